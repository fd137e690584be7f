package game

import (
	"errors"
	"strings"
	"testing"
)

func TestEventBus_AssignsSequence(t *testing.T) {
	bus := NewEventBus("m1")
	for i := 0; i < 3; i++ {
		if err := bus.Append(int64(i), EvJump, PlayerL, ""); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	for i, e := range bus.Events() {
		if e.Seq != int64(i) {
			t.Fatalf("event %d has seq %d", i, e.Seq)
		}
		if e.MatchID != "m1" {
			t.Fatalf("event %d not stamped with match ID", i)
		}
	}
}

func TestEventBus_RejectsTickRegression(t *testing.T) {
	bus := NewEventBus("m1")
	if err := bus.Append(5, EvJump, PlayerL, ""); err != nil {
		t.Fatalf("append: %v", err)
	}
	err := bus.Append(3, EvLand, PlayerL, "")
	if !errors.Is(err, ErrOrderingViolation) {
		t.Fatalf("expected ordering violation, got %v", err)
	}
	if bus.Len() != 1 {
		t.Fatal("rejected event must not be partially applied")
	}
	// Same tick is fine: ordering within a tick is by sequence.
	if err := bus.Append(5, EvLand, PlayerL, ""); err != nil {
		t.Fatalf("same-tick append: %v", err)
	}
}

func TestEventBus_RejectsForeignMatch(t *testing.T) {
	bus := NewEventBus("m1")
	err := bus.AppendEvent(Event{MatchID: "other", Tick: 0, Code: EvGoal, Player: PlayerL})
	if !errors.Is(err, ErrIsolationViolation) {
		t.Fatalf("expected isolation violation, got %v", err)
	}
	if bus.Len() != 0 {
		t.Fatal("foreign event must not land in the log")
	}
}

func TestEventBus_SealStopsAppends(t *testing.T) {
	bus := NewEventBus("m1")
	if err := bus.Append(0, EvMatchEnd, NoPlayer, ""); err != nil {
		t.Fatalf("append: %v", err)
	}
	bus.Seal()
	if !bus.Complete() {
		t.Fatal("sealed bus should be complete")
	}
	if err := bus.Append(1, EvJump, PlayerL, ""); !errors.Is(err, ErrOrderingViolation) {
		t.Fatalf("append after seal should fail, got %v", err)
	}

	aborted := NewEventBus("m2")
	aborted.MarkIncomplete()
	if aborted.Complete() {
		t.Fatal("incomplete bus must not report complete")
	}
}

func TestEventBus_DrainSince(t *testing.T) {
	bus := NewEventBus("m1")
	for i := 0; i < 4; i++ {
		if err := bus.Append(int64(i), EvInput, PlayerL, ""); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, cursor := bus.DrainSince(0)
	if len(got) != 4 || cursor != 4 {
		t.Fatalf("first drain: %d events, cursor %d", len(got), cursor)
	}
	got, cursor = bus.DrainSince(cursor)
	if len(got) != 0 || cursor != 4 {
		t.Fatal("drain at the end should return nothing and hold the cursor")
	}

	if err := bus.Append(4, EvInput, PlayerL, ""); err != nil {
		t.Fatalf("append: %v", err)
	}
	got, cursor = bus.DrainSince(cursor)
	if len(got) != 1 || cursor != 5 {
		t.Fatalf("restarted drain: %d events, cursor %d", len(got), cursor)
	}
}

func TestEventBus_Filters(t *testing.T) {
	bus := NewEventBus("m1")
	must(bus.Append(0, EvJump, PlayerL, ""))
	must(bus.Append(1, EvJump, PlayerR, ""))
	must(bus.Append(2, EvGoal, PlayerL, "score=1-0"))

	if n := bus.Count(EvJump); n != 2 {
		t.Fatalf("Count(jump) = %d", n)
	}
	if got := bus.FilterPlayer(PlayerL, EvJump); len(got) != 1 {
		t.Fatalf("FilterPlayer(L, jump) = %d events", len(got))
	}
	if got := bus.Filter(""); len(got) != 3 {
		t.Fatalf("Filter(all) = %d events", len(got))
	}
}

func TestEventCanonicalFormat(t *testing.T) {
	e := Event{Tick: 12, Seq: 3, Code: EvGoal, Player: PlayerL, Payload: "score=1-0"}
	got := e.Canonical()
	want := "000012.00003 G  L score=1-0"
	if got != want {
		t.Fatalf("canonical = %q, want %q", got, want)
	}
	if !strings.HasPrefix(Event{Tick: 1, Code: EvMatchStart, Player: NoPlayer}.Canonical(), "000001.00000 MS -") {
		t.Fatal("canonical prefix malformed for two-char codes")
	}
}

package game

import (
	"errors"
	"fmt"
	"strings"
)

// The EventBus is the match's append-only, totally-ordered log: every input
// frame, goal transition, and scoring change lands here with its fixed tick
// and an insertion sequence. It is the ground truth ghost replay consumes,
// so ordering violations are rejected at the append boundary instead of
// being tolerated.

// EventCode is the compact type code written with every event.
type EventCode string

const (
	EvMatchStart   EventCode = "MS"
	EvMatchEnd     EventCode = "ME"
	EvGoal         EventCode = "G"
	EvPickup       EventCode = "PU"
	EvDrop         EventCode = "DR"
	EvShotStart    EventCode = "SS"
	EvShotRelease  EventCode = "SR"
	EvStealAttempt EventCode = "SA"
	EvStealSuccess EventCode = "S+"
	EvStealFail    EventCode = "S-"
	EvJump         EventCode = "J"
	EvLand         EventCode = "LD"
	EvGoalChange   EventCode = "AG"
	EvInput        EventCode = "I"
	EvPlanFail     EventCode = "PF"
	EvAborted      EventCode = "AB"
)

// Event is one immutable log record. Ordering is total by
// (match, tick, sequence); Seq is assigned by the bus at append time.
type Event struct {
	MatchID string
	Tick    int64
	Seq     int64
	Code    EventCode
	Player  PlayerID
	Payload string
}

// Canonical renders the event as a single deterministic line. Replay
// verification compares logs by these strings, so two runs are
// "byte-identical" exactly when every Canonical line matches.
func (e Event) Canonical() string {
	return fmt.Sprintf("%06d.%05d %-2s %s %s", e.Tick, e.Seq, e.Code, e.Player, e.Payload)
}

var (
	// ErrOrderingViolation rejects appends that would regress the tick
	// order, reuse a sequence, or write after the log is sealed.
	ErrOrderingViolation = errors.New("event ordering violation")

	// ErrIsolationViolation rejects events stamped for a different match.
	ErrIsolationViolation = errors.New("cross-match event isolation violation")
)

// EventBus is a per-match append-only log. It is only ever appended by its
// own match's tick loop, so it carries no locking.
type EventBus struct {
	matchID  string
	events   []Event
	lastTick int64
	nextSeq  int64
	sealed   bool
	complete bool
}

// NewEventBus creates the log for one match.
func NewEventBus(matchID string) *EventBus {
	return &EventBus{matchID: matchID, lastTick: -1}
}

// MatchID returns the owning match's identifier.
func (b *EventBus) MatchID() string { return b.matchID }

// Append records an event at the given tick. Tick must be non-decreasing;
// the bus assigns the insertion sequence and stamps the match ID.
func (b *EventBus) Append(tick int64, code EventCode, player PlayerID, payload string) error {
	return b.AppendEvent(Event{MatchID: b.matchID, Tick: tick, Code: code, Player: player, Payload: payload})
}

// AppendEvent records a pre-built event. An event stamped for another match
// is an isolation violation; a tick regression, an already-used sequence, or
// an append after sealing is an ordering violation. Rejected events are
// never partially applied.
func (b *EventBus) AppendEvent(ev Event) error {
	if ev.MatchID != "" && ev.MatchID != b.matchID {
		return fmt.Errorf("%w: event for match %q appended to match %q", ErrIsolationViolation, ev.MatchID, b.matchID)
	}
	if b.sealed {
		return fmt.Errorf("%w: append after seal at tick %d", ErrOrderingViolation, ev.Tick)
	}
	if ev.Tick < b.lastTick {
		return fmt.Errorf("%w: tick %d after tick %d", ErrOrderingViolation, ev.Tick, b.lastTick)
	}
	if ev.Seq != 0 && ev.Seq < b.nextSeq {
		return fmt.Errorf("%w: duplicate sequence %d", ErrOrderingViolation, ev.Seq)
	}
	ev.MatchID = b.matchID
	ev.Seq = b.nextSeq
	b.nextSeq++
	b.lastTick = ev.Tick
	b.events = append(b.events, ev)
	return nil
}

// Events returns the full log. Callers must not mutate it.
func (b *EventBus) Events() []Event { return b.events }

// Len returns the number of recorded events.
func (b *EventBus) Len() int { return len(b.events) }

// DrainSince returns all events at or after the cursor plus the new cursor.
// The log itself is never truncated: the sequence is finite, lazy in the
// sense that nothing is copied until asked for, and restartable from any
// cursor a previous call returned.
func (b *EventBus) DrainSince(cursor int) ([]Event, int) {
	if cursor < 0 {
		cursor = 0
	}
	if cursor >= len(b.events) {
		return nil, cursor
	}
	out := b.events[cursor:]
	return out, len(b.events)
}

// Seal marks the log finished and complete. Further appends are rejected.
func (b *EventBus) Seal() {
	b.sealed = true
	b.complete = true
}

// MarkIncomplete seals the log without marking it complete. Aborted matches
// end up here; an incomplete log is not a valid replay source.
func (b *EventBus) MarkIncomplete() {
	b.sealed = true
	b.complete = false
}

// Complete reports whether the log covers a finished match.
func (b *EventBus) Complete() bool { return b.sealed && b.complete }

// Filter returns events matching code, or all events for the empty code.
func (b *EventBus) Filter(code EventCode) []Event {
	var out []Event
	for _, e := range b.events {
		if code == "" || e.Code == code {
			out = append(out, e)
		}
	}
	return out
}

// FilterPlayer returns events for one side and code ("" matches any code).
func (b *EventBus) FilterPlayer(player PlayerID, code EventCode) []Event {
	var out []Event
	for _, e := range b.events {
		if e.Player != player {
			continue
		}
		if code == "" || e.Code == code {
			out = append(out, e)
		}
	}
	return out
}

// Count returns how many events carry the given code.
func (b *EventBus) Count(code EventCode) int {
	n := 0
	for _, e := range b.events {
		if e.Code == code {
			n++
		}
	}
	return n
}

// Format renders the whole log for test output.
func (b *EventBus) Format() string {
	var sb strings.Builder
	for _, e := range b.events {
		sb.WriteString(e.Canonical())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// --- payload encoding ---

// inputPayload encodes an InputFrame for the log. The source tag is
// deliberately omitted: a ghost replaying a human's frames must produce the
// same bytes the human did, or log comparison could never be strict.
func inputPayload(f *InputFrame) string {
	return fmt.Sprintf("move=%.4f jp=%d pu=%d tr=%d sw=%d jh=%d th=%d",
		f.MoveX,
		b2i(f.JumpPressed), b2i(f.PickupPressed), b2i(f.ThrowReleased), b2i(f.SwapPressed),
		b2i(f.JumpHeld), b2i(f.ThrowHeld))
}

// parseInputPayload rebuilds an InputFrame from a recorded input event.
// The caller assigns Source.
func parseInputPayload(payload string) (InputFrame, error) {
	var move float64
	var jp, pu, tr, sw, jh, th int
	_, err := fmt.Sscanf(payload, "move=%f jp=%d pu=%d tr=%d sw=%d jh=%d th=%d",
		&move, &jp, &pu, &tr, &sw, &jh, &th)
	if err != nil {
		return InputFrame{}, fmt.Errorf("parse input payload %q: %w", payload, err)
	}
	return InputFrame{
		MoveX:         move,
		JumpPressed:   jp != 0,
		PickupPressed: pu != 0,
		ThrowReleased: tr != 0,
		SwapPressed:   sw != 0,
		JumpHeld:      jh != 0,
		ThrowHeld:     th != 0,
	}, nil
}

// SimulationEvent reports whether a code is produced by the simulation
// itself rather than by AI commentary. Replay verification compares only
// simulation events: a ghost has no decision engine, so goal-change,
// shot-decision, and planning events exist only in live runs.
func SimulationEvent(c EventCode) bool {
	switch c {
	case EvGoalChange, EvPlanFail, EvShotStart:
		return false
	default:
		return true
	}
}

func b2i(v bool) int {
	if v {
		return 1
	}
	return 0
}

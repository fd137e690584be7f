package game

import (
	"math"
	"math/rand"
	"testing"
)

func testWorld(t *testing.T, levelName string) *World {
	t.Helper()
	lvl := DefaultLevels().ByName(levelName)
	if lvl == nil {
		t.Fatalf("built-in level %q missing", levelName)
	}
	g := BuildNavGraph(lvl)
	return NewWorld(lvl, g, rand.New(rand.NewSource(1)), NewEventBus("test"))
}

func neutralFrames() [2]*InputFrame {
	return [2]*InputFrame{{Source: SourceAI}, {Source: SourceAI}}
}

func TestJumpHeightMatchesEnvelope(t *testing.T) {
	w := testWorld(t, "Flat Court")
	start := w.Players[PlayerL].Pos.Y

	maxGain := 0.0
	for tick := 0; tick < 120; tick++ {
		frames := neutralFrames()
		frames[PlayerL].JumpPressed = tick == 0
		frames[PlayerL].JumpHeld = true
		w.Step(frames)
		if gain := w.Players[PlayerL].Pos.Y - start; gain > maxGain {
			maxGain = gain
		}
	}

	// The discrete apex sits a little under the analytic v^2/2g; the graph
	// builder's envelope cap must stay below what a full jump achieves.
	analytic := JumpVelocity * JumpVelocity / (2 * GravityRise)
	if maxGain < NavMaxJumpHeight-10 {
		t.Fatalf("full jump reached %.1f, below the nav envelope %.1f", maxGain, NavMaxJumpHeight)
	}
	if maxGain > analytic {
		t.Fatalf("jump apex %.1f exceeds the analytic bound %.1f", maxGain, analytic)
	}
	if !w.Players[PlayerL].OnGround {
		t.Fatal("player should have landed within two seconds")
	}
}

func TestJumpCutShortensJump(t *testing.T) {
	w := testWorld(t, "Flat Court")
	start := w.Players[PlayerL].Pos.Y

	maxGain := 0.0
	for tick := 0; tick < 120; tick++ {
		frames := neutralFrames()
		frames[PlayerL].JumpPressed = tick == 0
		frames[PlayerL].JumpHeld = tick < 5
		w.Step(frames)
		if gain := w.Players[PlayerL].Pos.Y - start; gain > maxGain {
			maxGain = gain
		}
	}
	if maxGain > NavMaxJumpHeight*0.7 {
		t.Fatalf("cut jump reached %.1f, expected well under a full jump", maxGain)
	}
}

func TestJumpBufferFiresOnLanding(t *testing.T) {
	w := testWorld(t, "Flat Court")

	// First jump, then press again mid-fall: the buffered press must fire
	// on landing without a fresh edge.
	var airborneTick int
	for tick := 0; tick < 600; tick++ {
		frames := neutralFrames()
		frames[PlayerL].JumpPressed = tick == 0
		w.Step(frames)
		if !w.Players[PlayerL].OnGround {
			airborneTick = tick
		}
		if w.Players[PlayerL].OnGround && airborneTick > 0 {
			break
		}
	}
	jumpsBefore := w.bus.Count(EvJump)
	if jumpsBefore != 1 {
		t.Fatalf("setup expected one jump, log has %d", jumpsBefore)
	}

	// Go airborne again and press jump a few ticks before touchdown.
	frames := neutralFrames()
	frames[PlayerL].JumpPressed = true
	frames[PlayerL].JumpHeld = true
	w.Step(frames)
	for w.Players[PlayerL].Vel.Y >= 0 {
		w.Step(neutralFrames())
	}
	for w.Players[PlayerL].Pos.Y > SpawnY+30 {
		w.Step(neutralFrames())
	}
	frames = neutralFrames()
	frames[PlayerL].JumpPressed = true // still airborne: buffered
	w.Step(frames)
	for i := 0; i < JumpBufferTicks; i++ {
		w.Step(neutralFrames())
	}
	if got := w.bus.Count(EvJump); got != 3 {
		t.Fatalf("expected the buffered press to fire a third jump, log has %d", got)
	}
}

func TestPickupRequiresProximity(t *testing.T) {
	w := testWorld(t, "Flat Court")

	// Spawn is 300 away from the center ball: a press does nothing.
	frames := neutralFrames()
	frames[PlayerL].PickupPressed = true
	w.Step(frames)
	if w.Ball.Phase == BallHeld {
		t.Fatal("pickup succeeded far outside the pickup radius")
	}

	// Walk to the ball pressing pickup; it must attach within a few seconds.
	for tick := 0; tick < 600 && w.Ball.Phase != BallHeld; tick++ {
		frames := neutralFrames()
		frames[PlayerL].MoveX = 1
		frames[PlayerL].PickupPressed = true
		w.Step(frames)
	}
	if w.Ball.Phase != BallHeld || w.Ball.Holder != PlayerL {
		t.Fatal("walking into range with pickup pressed should take the ball")
	}
	if w.bus.Count(EvPickup) != 1 {
		t.Fatalf("expected exactly one pickup event, got %d", w.bus.Count(EvPickup))
	}

	// Held ball rides above the holder.
	w.Step(neutralFrames())
	if w.Ball.Pos.Dist(w.Players[PlayerL].Pos) > PlayerHeight {
		t.Fatal("held ball should track its holder")
	}
}

func TestThrowReleasesCharge(t *testing.T) {
	w := testWorld(t, "Flat Court")
	w.Ball.Phase = BallHeld
	w.Ball.Holder = PlayerL

	for i := 0; i < 30; i++ {
		frames := neutralFrames()
		frames[PlayerL].ThrowHeld = true
		w.Step(frames)
	}
	frames := neutralFrames()
	frames[PlayerL].ThrowReleased = true
	w.Step(frames)

	if w.Ball.Phase != BallInFlight {
		t.Fatalf("released ball should be in flight, got %v", w.Ball.Phase)
	}
	if w.Ball.Vel.X <= 0 || w.Ball.Vel.Y <= 0 {
		t.Fatalf("left player's shot should fly up and right, vel=%+v", w.Ball.Vel)
	}
	if w.bus.Count(EvShotRelease) != 1 {
		t.Fatal("shot release must be logged")
	}
	// The shooter cannot instantly re-grab their own shot.
	if w.Ball.noPickupFor(PlayerL) == 0 {
		t.Fatal("shooter re-grab lockout missing")
	}
	if w.Ball.noPickupFor(PlayerR) != 0 {
		t.Fatal("lockout must not apply to the other side")
	}
}

func TestGoalDetectionAndReset(t *testing.T) {
	w := testWorld(t, "Flat Court")
	basket := w.Level.RightBasket()

	w.Ball.Phase = BallInFlight
	w.Ball.shooter = PlayerL
	w.Ball.Pos = Vec2{X: basket.X, Y: basket.Y + 60}
	w.Ball.Vel = Vec2{X: 0, Y: -BallFreeSpeed - 50}

	for i := 0; i < 60 && w.ScoreL == 0; i++ {
		w.Step(neutralFrames())
	}
	if w.ScoreL != 1 {
		t.Fatal("ball dropping through the basket mouth should score")
	}
	if w.bus.Count(EvGoal) != 1 {
		t.Fatal("goal must be logged")
	}
	if w.Players[PlayerL].Pos.X != SpawnLeftX || w.Players[PlayerR].Pos.X != SpawnRightX {
		t.Fatal("players should reset to spawns after a score")
	}
	if w.Ball.Phase != BallFree {
		t.Fatal("ball should reset free at center")
	}
}

func TestStealContestRespectsRangeAndCooldown(t *testing.T) {
	w := testWorld(t, "Flat Court")
	w.Ball.Phase = BallHeld
	w.Ball.Holder = PlayerR

	// Far apart: the press is spent without an attempt.
	frames := neutralFrames()
	frames[PlayerL].PickupPressed = true
	w.Step(frames)
	if w.bus.Count(EvStealAttempt) != 0 {
		t.Fatal("steal attempted outside steal range")
	}

	// Adjacent: repeated presses attempt at most once per cooldown window.
	w.Players[PlayerL].Pos.X = w.Players[PlayerR].Pos.X - StealRange/2
	for i := 0; i < StealCooldownTicks; i++ {
		frames := neutralFrames()
		frames[PlayerL].PickupPressed = true
		w.Step(frames)
	}
	if got := w.bus.Count(EvStealAttempt); got != 1 {
		t.Fatalf("expected one attempt inside a cooldown window, got %d", got)
	}
	attempts := w.bus.Count(EvStealSuccess) + w.bus.Count(EvStealFail)
	if attempts != 1 {
		t.Fatalf("every attempt must resolve to success or failure, got %d outcomes", attempts)
	}
}

func TestWallsClampPlayers(t *testing.T) {
	w := testWorld(t, "Flat Court")
	for i := 0; i < 600; i++ {
		frames := neutralFrames()
		frames[PlayerL].MoveX = -1
		w.Step(frames)
	}
	half := ArenaWidth/2 - WallThickness - PlayerWidth/2
	if w.Players[PlayerL].Pos.X < -half-0.001 {
		t.Fatalf("player pushed through the wall: x=%.1f", w.Players[PlayerL].Pos.X)
	}
	if math.Abs(w.Players[PlayerL].Pos.X - -half) > 1 {
		t.Fatalf("player should rest against the wall, x=%.1f", w.Players[PlayerL].Pos.X)
	}
}

func TestPlatformLanding(t *testing.T) {
	w := testWorld(t, "Twin Ledges")
	p := &w.Players[PlayerL]
	ledge := w.Level.Platforms[1] // right ledge at x=330

	// Drop the player from above the ledge and let them fall onto it.
	p.Pos = Vec2{X: ledge.X, Y: ledge.Top() + PlayerHeight/2 + 120}
	p.Vel = Vec2{}
	p.OnGround = false

	for i := 0; i < 120 && !p.OnGround; i++ {
		w.Step(neutralFrames())
	}
	if !p.OnGround {
		t.Fatal("player never landed on the platform")
	}
	if math.Abs(p.Pos.Y-(ledge.Top()+PlayerHeight/2)) > 0.5 {
		t.Fatalf("player rests at %.1f, want platform top %.1f", p.Pos.Y, ledge.Top()+PlayerHeight/2)
	}
	if w.bus.FilterPlayer(PlayerL, EvLand) == nil {
		t.Fatal("landing must be logged")
	}
}

package game

import (
	"fmt"
	"math"
	"math/rand"
)

// The integrator is a fixed-tick, single-threaded step function. Determinism
// rests on three things: the step order never varies (left player, right
// player, ball, scoring), every random draw goes through the match's seeded
// stream, and no wall-clock time enters anywhere. Same seed, same inputs,
// same world, tick for tick.

// playerState is the live physics state of one side.
type playerState struct {
	Pos Vec2
	Vel Vec2

	OnGround bool
	coyote   int // ticks of grace after walking off an edge
	buffer   int // ticks a jump press stays buffered
	jumping  bool

	stealCooldown int
	chargeTicks   int
}

// ballState is the live physics state of the ball.
type ballState struct {
	Pos    Vec2
	Vel    Vec2
	Phase  BallPhase
	Holder PlayerID

	noPickup int // ticks the shooter cannot re-grab a just-released ball
	shooter  PlayerID
}

// World owns the mutable simulation state for one match.
type World struct {
	Level *Level
	Graph *NavGraph

	Tick    int64
	Players [2]playerState
	Ball    ballState

	ScoreL int
	ScoreR int

	rng *rand.Rand
	bus *EventBus
}

// NewWorld sets up spawn positions and a free center ball.
func NewWorld(level *Level, graph *NavGraph, rng *rand.Rand, bus *EventBus) *World {
	w := &World{Level: level, Graph: graph, rng: rng, bus: bus}
	w.resetPositions()
	return w
}

func (w *World) resetPositions() {
	w.Players[PlayerL].Pos = Vec2{X: SpawnLeftX, Y: SpawnY}
	w.Players[PlayerR].Pos = Vec2{X: SpawnRightX, Y: SpawnY}
	for i := range w.Players {
		w.Players[i].Vel = Vec2{}
		w.Players[i].OnGround = true
	}
	w.Ball = ballState{
		Pos:     Vec2{X: 0, Y: FloorSurfaceY + BallSize/2},
		Phase:   BallFree,
		Holder:  NoPlayer,
		shooter: NoPlayer,
	}
}

// Snapshot publishes the current state as an immutable per-tick view.
func (w *World) Snapshot() *WorldSnapshot {
	return &WorldSnapshot{
		Tick:       w.Tick,
		Pos:        [2]Vec2{w.Players[0].Pos, w.Players[1].Pos},
		Vel:        [2]Vec2{w.Players[0].Vel, w.Players[1].Vel},
		OnGround:   [2]bool{w.Players[0].OnGround, w.Players[1].OnGround},
		BallPos:    w.Ball.Pos,
		BallVel:    w.Ball.Vel,
		BallPhase:  w.Ball.Phase,
		Holder:     w.Ball.Holder,
		ScoreLeft:  w.ScoreL,
		ScoreRight: w.ScoreR,
		Level:      w.Level,
		Graph:      w.Graph,
	}
}

// Step advances one fixed tick from the two sides' input frames. Latches are
// consumed here, exactly once, whatever rate the producer captured at.
func (w *World) Step(frames [2]*InputFrame) {
	for _, id := range []PlayerID{PlayerL, PlayerR} {
		f := frames[id]
		jump, pickup, throwRel, _ := f.ConsumeLatches()
		w.stepPlayer(id, f, jump)
		w.stepActions(id, f, pickup, throwRel)
	}
	w.stepBall()
	w.checkGoal()
	w.Tick++
}

// stepPlayer integrates movement for one side.
func (w *World) stepPlayer(id PlayerID, f *InputFrame, jumpPressed bool) {
	p := &w.Players[id]

	// Horizontal: accelerate toward the commanded speed, decelerate when idle.
	target := f.MoveX * MoveSpeed
	var accel float64
	switch {
	case target != 0 && p.OnGround:
		accel = GroundAccel
	case target != 0:
		accel = AirAccel
	case p.OnGround:
		accel = GroundDecel
	default:
		accel = AirDecel
	}
	p.Vel.X = approach(p.Vel.X, target, accel*FixedDT)

	// Jump buffering and coyote time.
	if jumpPressed {
		p.buffer = JumpBufferTicks
	} else if p.buffer > 0 {
		p.buffer--
	}
	if p.OnGround {
		p.coyote = CoyoteTicks
	} else if p.coyote > 0 {
		p.coyote--
	}
	if p.buffer > 0 && (p.OnGround || p.coyote > 0) {
		p.Vel.Y = JumpVelocity
		p.OnGround = false
		p.coyote = 0
		p.buffer = 0
		p.jumping = true
		w.emit(EvJump, id, fmt.Sprintf("x=%.1f y=%.1f", p.Pos.X, p.Pos.Y))
	}

	// Jump cut: releasing the button mid-rise shortens the jump.
	if p.jumping && p.Vel.Y > 0 && !f.JumpHeld {
		p.Vel.Y *= JumpCutMultiplier
		p.jumping = false
	}

	if !p.OnGround {
		g := GravityRise
		if p.Vel.Y < 0 {
			g = GravityFall
			p.jumping = false
		}
		p.Vel.Y -= g * FixedDT
	}

	prevFeet := p.Pos.Y - PlayerHeight/2
	p.Pos.X += p.Vel.X * FixedDT
	p.Pos.Y += p.Vel.Y * FixedDT

	// Walls.
	half := ArenaWidth/2 - WallThickness - PlayerWidth/2
	if p.Pos.X < -half {
		p.Pos.X = -half
		p.Vel.X = 0
	} else if p.Pos.X > half {
		p.Pos.X = half
		p.Vel.X = 0
	}

	// Landing: floor, then platform tops, falling only.
	wasAirborne := !p.OnGround
	feet := p.Pos.Y - PlayerHeight/2
	landed := false
	if p.Vel.Y <= 0 {
		if feet <= FloorSurfaceY {
			p.Pos.Y = FloorSurfaceY + PlayerHeight/2
			landed = true
		} else {
			for _, plat := range w.Level.Platforms {
				top := plat.Top()
				if prevFeet >= top && feet <= top &&
					p.Pos.X >= plat.LeftX()-PlayerWidth/2 && p.Pos.X <= plat.RightX()+PlayerWidth/2 {
					p.Pos.Y = top + PlayerHeight/2
					landed = true
					break
				}
			}
		}
	}
	if landed {
		p.Vel.Y = 0
		p.OnGround = true
		p.jumping = false
		if wasAirborne {
			w.emit(EvLand, id, fmt.Sprintf("x=%.1f y=%.1f", p.Pos.X, p.Pos.Y))
		}
	} else if p.OnGround && !w.standingOnSurface(p) {
		// Walked off an edge.
		p.OnGround = false
	}

	if p.stealCooldown > 0 {
		p.stealCooldown--
	}
}

// standingOnSurface checks the player still has ground under their feet.
func (w *World) standingOnSurface(p *playerState) bool {
	feet := p.Pos.Y - PlayerHeight/2
	if math.Abs(feet-FloorSurfaceY) < 1 {
		return true
	}
	for _, plat := range w.Level.Platforms {
		if math.Abs(feet-plat.Top()) < 1 &&
			p.Pos.X >= plat.LeftX()-PlayerWidth/2 && p.Pos.X <= plat.RightX()+PlayerWidth/2 {
			return true
		}
	}
	return false
}

// stepActions resolves pickup, steal, and throw for one side.
func (w *World) stepActions(id PlayerID, f *InputFrame, pickup, throwRel bool) {
	p := &w.Players[id]

	if pickup {
		switch {
		case w.Ball.Phase != BallHeld:
			grabbable := w.Ball.Phase == BallFree || (w.Ball.Phase == BallInFlight && w.Ball.shooter != id)
			if grabbable && w.Ball.noPickupFor(id) == 0 && p.Pos.Dist(w.Ball.Pos) <= BallPickupRadius {
				w.Ball.Phase = BallHeld
				w.Ball.Holder = id
				w.Ball.Vel = Vec2{}
				p.chargeTicks = 0
				w.emit(EvPickup, id, fmt.Sprintf("x=%.1f y=%.1f", w.Ball.Pos.X, w.Ball.Pos.Y))
			}
		case w.Ball.Holder == id.Opponent():
			w.trySteal(id)
		}
	}

	if w.Ball.Holder != id {
		p.chargeTicks = 0
		return
	}
	if f.ThrowHeld {
		p.chargeTicks++
	}
	if throwRel {
		w.releaseShot(id)
	}
}

// trySteal runs one contested possession roll.
func (w *World) trySteal(id PlayerID) {
	p := &w.Players[id]
	holder := &w.Players[id.Opponent()]
	if p.stealCooldown > 0 || p.Pos.Dist(holder.Pos) > StealRange {
		return
	}
	p.stealCooldown = StealCooldownTicks
	w.emit(EvStealAttempt, id, fmt.Sprintf("dist=%.1f", p.Pos.Dist(holder.Pos)))

	chance := StealBaseChance
	if holder.OnGround {
		chance -= StealDefenderAdvantage
	}
	if w.rng.Float64() < chance {
		w.Ball.Holder = id
		holder.chargeTicks = 0
		p.chargeTicks = 0
		w.emit(EvStealSuccess, id, "")
	} else {
		w.emit(EvStealFail, id, "")
	}
}

// releaseShot converts accumulated charge into a launch toward the shooter's
// basket. Longer charges fly faster and truer; quick flicks go out weak.
func (w *World) releaseShot(id PlayerID) {
	p := &w.Players[id]
	charge := math.Min(float64(p.chargeTicks)*FixedDT/ShotChargeTime, 1)
	p.chargeTicks = 0

	power := charge
	if charge < ShotQuickThreshold {
		power = charge * ShotQuickPower
	}
	speed := ShotMaxSpeed * (0.4 + 0.6*power)

	variance := ShotMaxVariance - (ShotMaxVariance-ShotMinVariance)*charge
	jitter := (w.rng.Float64()*2 - 1) * variance * 15 // degrees

	basket := w.Level.RightBasket()
	dir := 1.0
	if id == PlayerR {
		basket = w.Level.LeftBasket()
		dir = -1
	}
	angle := (ShotDefaultAngle + jitter) * math.Pi / 180

	w.Ball.Phase = BallInFlight
	w.Ball.Holder = NoPlayer
	w.Ball.shooter = id
	w.Ball.noPickup = 15
	w.Ball.Pos = Vec2{X: p.Pos.X, Y: p.Pos.Y + PlayerHeight/2}
	w.Ball.Vel = Vec2{X: math.Cos(angle) * speed * dir, Y: math.Sin(angle) * speed}

	quality := EvaluateShotQuality(p.Pos, basket)
	w.emit(EvShotRelease, id, fmt.Sprintf("charge=%.2f power=%.2f angle=%.1f quality=%.2f",
		charge, power, ShotDefaultAngle+jitter, quality))
}

// noPickupFor returns the remaining re-grab lockout for a side.
func (b *ballState) noPickupFor(id PlayerID) int {
	if b.shooter == id {
		return b.noPickup
	}
	return 0
}

// stepBall integrates a free or flying ball; a held ball rides its holder.
func (w *World) stepBall() {
	b := &w.Ball
	if b.noPickup > 0 {
		b.noPickup--
	}

	if b.Phase == BallHeld {
		hp := w.Players[b.Holder].Pos
		b.Pos = Vec2{X: hp.X, Y: hp.Y + PlayerHeight/2 + BallSize/2}
		b.Vel = Vec2{}
		return
	}

	b.Vel.Y -= BallGravity * FixedDT
	drag := math.Pow(BallAirFriction, FixedDT)
	b.Vel.X *= drag
	b.Pos.X += b.Vel.X * FixedDT
	b.Pos.Y += b.Vel.Y * FixedDT

	// Walls.
	half := ArenaWidth/2 - WallThickness - BallSize/2
	if b.Pos.X < -half {
		b.Pos.X = -half
		b.Vel.X = -b.Vel.X * BallBounce
	} else if b.Pos.X > half {
		b.Pos.X = half
		b.Vel.X = -b.Vel.X * BallBounce
	}

	// Floor and platform tops.
	bottom := b.Pos.Y - BallSize/2
	if b.Vel.Y < 0 {
		if bottom <= FloorSurfaceY {
			w.bounceBall(FloorSurfaceY)
		} else {
			for _, plat := range w.Level.Platforms {
				top := plat.Top()
				if bottom <= top && b.Pos.Y+BallSize/2 > top &&
					b.Pos.X >= plat.LeftX() && b.Pos.X <= plat.RightX() {
					w.bounceBall(top)
					break
				}
			}
		}
	}

	speed := math.Sqrt(b.Vel.X*b.Vel.X + b.Vel.Y*b.Vel.Y)
	if b.Phase == BallInFlight && speed < BallFreeSpeed {
		b.Phase = BallFree
		b.shooter = NoPlayer
		b.noPickup = 0
		w.emit(EvDrop, NoPlayer, fmt.Sprintf("x=%.1f y=%.1f", b.Pos.X, b.Pos.Y))
	}
}

func (w *World) bounceBall(surfaceY float64) {
	b := &w.Ball
	b.Pos.Y = surfaceY + BallSize/2
	b.Vel.Y = -b.Vel.Y * BallBounce
	b.Vel.X *= BallGroundFriction
	if math.Abs(b.Vel.Y) < 40 {
		b.Vel.Y = 0
	}
}

// checkGoal detects the ball dropping through a basket mouth and resets the
// court after a score.
func (w *World) checkGoal() {
	b := &w.Ball
	if b.Phase != BallInFlight || b.Vel.Y >= 0 {
		return
	}
	for _, scorer := range []PlayerID{PlayerL, PlayerR} {
		basket := w.Level.RightBasket()
		if scorer == PlayerR {
			basket = w.Level.LeftBasket()
		}
		if math.Abs(b.Pos.X-basket.X) > BasketWidth/2 {
			continue
		}
		prevY := b.Pos.Y - b.Vel.Y*FixedDT
		if prevY >= basket.Y && b.Pos.Y < basket.Y {
			if scorer == PlayerL {
				w.ScoreL++
			} else {
				w.ScoreR++
			}
			w.emit(EvGoal, scorer, fmt.Sprintf("score=%d-%d", w.ScoreL, w.ScoreR))
			w.resetPositions()
			return
		}
	}
}

func (w *World) emit(code EventCode, player PlayerID, payload string) {
	if w.bus == nil {
		return
	}
	must(w.bus.Append(w.Tick, code, player, payload))
}

// approach moves cur toward target by at most step.
func approach(cur, target, step float64) float64 {
	if cur < target {
		return math.Min(cur+step, target)
	}
	return math.Max(cur-step, target)
}

package game

import (
	"errors"
	"fmt"
	"math/rand"
)

// Controller is the AI input source for one side. Each tick it reads the
// snapshot, runs the decision engine, walks the planner, and emits exactly
// the same InputFrame shape a human device would: latched presses, held
// buttons, a clamped axis. Physics never knows the difference.
type Controller struct {
	side    PlayerID
	profile Profile
	engine  *DecisionEngine
	planner *Planner
	bus     *EventBus
	rng     *rand.Rand

	frame InputFrame

	charging     bool
	chargeTicks  int
	releaseTicks int
}

// NewController creates an AI controller. The rng must be the match's seeded
// stream (or one derived from it) so tournament runs reproduce.
func NewController(side PlayerID, profile Profile, graph *NavGraph, bus *EventBus, rng *rand.Rand) *Controller {
	return &Controller{
		side:    side,
		profile: profile,
		engine:  NewDecisionEngine(side, profile),
		planner: NewPlanner(graph),
		bus:     bus,
		rng:     rng,
		frame:   InputFrame{Source: SourceAI},
	}
}

// Goal exposes the active goal for reports and tests.
func (c *Controller) Goal() Goal { return c.engine.Active() }

func (c *Controller) NextFrame(tick int64, snap *WorldSnapshot) *InputFrame {
	c.frame.Tick = tick
	c.frame.MoveX = 0
	c.frame.JumpHeld = false
	// ThrowHeld persists across ticks while charging; everything else is
	// rebuilt from this tick's snapshot.

	prev := c.engine.Active().Kind
	goal, changed := c.engine.Evaluate(snap)
	if changed {
		c.stopCharging()
		c.logf(tick, EvGoalChange, "goal=%s->%s commit=%d", prev, goal.Kind, c.engine.CommitLeft())
	}

	switch goal.Kind {
	case GoalShoot:
		c.actShoot(tick, snap, goal)
	case GoalSteal:
		c.actContest(tick, snap, goal)
	case GoalPursue, GoalIntercept:
		c.actChase(tick, snap, goal)
	default:
		c.steer(tick, snap, goal)
	}

	return &c.frame
}

// actShoot navigates to the shot position, then charges and releases.
func (c *Controller) actShoot(tick int64, snap *WorldSnapshot, goal Goal) {
	me := snap.PlayerPos(c.side)
	basket := snap.TargetBasket(c.side)
	opp := snap.PlayerPos(c.side.Opponent())

	if c.charging {
		c.chargeTicks++
		pressured := me.Dist(opp) < c.profile.StealRange*1.5
		quick := pressured && float64(c.chargeTicks) >= ShotQuickThreshold*TickRate
		if c.chargeTicks >= c.releaseTicks || quick {
			c.frame.ThrowReleased = true
			c.frame.ThrowHeld = false
			c.charging = false
			return
		}
		c.frame.ThrowHeld = true
		return
	}

	quality := EvaluateShotQuality(me, basket)
	minQ := c.profile.MinShotQuality
	if snap.Graph != nil {
		minQ = ScaleMinQuality(minQ, snap.Graph.MaxShotQuality)
	}
	inRange := me.Dist(basket) <= c.profile.ShootRange
	atSpot := goal.TargetNode == NoNode || c.planner.AtTarget(me, goal.TargetNode)

	if snap.OnGround[c.side] && inRange && quality >= minQ && atSpot {
		c.charging = true
		c.chargeTicks = 0
		window := c.profile.ChargeMax - c.profile.ChargeMin
		c.releaseTicks = int((c.profile.ChargeMin + c.rng.Float64()*window) * TickRate)
		c.frame.ThrowHeld = true
		c.logf(tick, EvShotStart, "x=%.1f y=%.1f quality=%.2f label=%s", me.X, me.Y, quality, QualityLabel(quality))
		return
	}
	c.steer(tick, snap, goal)
}

// actContest closes on the ball carrier and pops the contest button in range.
func (c *Controller) actContest(tick int64, snap *WorldSnapshot, goal Goal) {
	me := snap.PlayerPos(c.side)
	opp := snap.PlayerPos(c.side.Opponent())
	if me.Dist(opp) <= c.profile.StealRange {
		c.frame.PickupPressed = true
		return
	}
	c.steer(tick, snap, goal)
}

// actChase moves to the ball and grabs it when close.
func (c *Controller) actChase(tick int64, snap *WorldSnapshot, goal Goal) {
	me := snap.PlayerPos(c.side)
	if snap.BallPhase != BallHeld && me.Dist(snap.BallPos) <= BallPickupRadius {
		c.frame.PickupPressed = true
	}
	c.steer(tick, snap, goal)
}

// steer asks the planner for this tick's movement toward the goal node.
func (c *Controller) steer(tick int64, snap *WorldSnapshot, goal Goal) {
	if goal.TargetNode == NoNode {
		return
	}
	me := snap.PlayerPos(c.side)
	cmd, err := c.planner.Command(me, snap.OnGround[c.side], goal.TargetNode)
	if err != nil {
		if errors.Is(err, ErrUnreachable) {
			c.logf(tick, EvPlanFail, "goal=%s target=%d", goal.Kind, goal.TargetNode)
			c.engine.ForceReconsider()
			return
		}
		return
	}
	c.frame.MoveX = cmd.MoveX
	if cmd.Jump {
		c.frame.JumpPressed = true
	}
	c.frame.JumpHeld = cmd.JumpHold
}

func (c *Controller) stopCharging() {
	c.charging = false
	c.chargeTicks = 0
	c.frame.ThrowHeld = false
}

func (c *Controller) logf(tick int64, code EventCode, format string, args ...interface{}) {
	if c.bus == nil {
		return
	}
	must(c.bus.Append(tick, code, c.side, fmt.Sprintf(format, args...)))
}

package game

import "fmt"

// GoalKind enumerates what an AI can be trying to do. Exactly one goal is
// active per side at a time.
type GoalKind int

const (
	GoalRecover   GoalKind = iota // fallback: regroup on the floor
	GoalPursue                    // chase a loose ball
	GoalIntercept                 // move to a flying ball's predicted landing
	GoalShoot                     // holding the ball: reach a shot position and score
	GoalDefend                    // opponent has the ball: hold the lane to our basket
	GoalSteal                     // opponent has the ball and is close: contest it
)

func (k GoalKind) String() string {
	switch k {
	case GoalRecover:
		return "recover"
	case GoalPursue:
		return "pursue"
	case GoalIntercept:
		return "intercept"
	case GoalShoot:
		return "shoot"
	case GoalDefend:
		return "defend"
	case GoalSteal:
		return "steal"
	default:
		return fmt.Sprintf("goal(%d)", int(k))
	}
}

// Goal is an active objective: the kind plus the nav node and position the
// planner should steer toward.
type Goal struct {
	Kind       GoalKind
	TargetNode NodeID
	TargetPos  Vec2
}

// DecisionEngine selects goals from world snapshots. Two gates guard every
// switch: the commitment timer must have expired, and the challenger's
// utility must beat the active goal's by the profile's hysteresis margin.
// Both gates exist to stop dithering between near-equal goals; a planning
// failure bypasses them because persisting with an unreachable goal is
// worse than dithering.
type DecisionEngine struct {
	side    PlayerID
	profile Profile

	active     Goal
	commitLeft int
	lastEval   int64
	force      bool
}

// NewDecisionEngine creates the engine for one side.
func NewDecisionEngine(side PlayerID, profile Profile) *DecisionEngine {
	return &DecisionEngine{
		side:     side,
		profile:  profile,
		active:   Goal{Kind: GoalRecover, TargetNode: NoNode},
		lastEval: -GoalEvalInterval,
	}
}

// Active returns the current goal.
func (d *DecisionEngine) Active() Goal { return d.active }

// CommitLeft returns the remaining commitment ticks.
func (d *DecisionEngine) CommitLeft() int { return d.commitLeft }

// ForceReconsider zeroes the commitment timer and schedules an immediate
// re-evaluation. Called on planning failure.
func (d *DecisionEngine) ForceReconsider() {
	d.commitLeft = 0
	d.force = true
}

// Evaluate advances the engine one tick and returns the goal to act on,
// plus whether the goal kind switched this tick. Scoring runs on a fixed
// cadence; between evaluations the active goal's target is still refreshed
// from the snapshot so the planner tracks a moving ball or opponent.
func (d *DecisionEngine) Evaluate(snap *WorldSnapshot) (Goal, bool) {
	if d.commitLeft > 0 {
		d.commitLeft--
	}

	due := snap.Tick-d.lastEval >= GoalEvalInterval
	if !due && !d.force {
		d.refreshTarget(snap)
		return d.active, false
	}
	d.lastEval = snap.Tick
	d.force = false

	scores := d.score(snap)
	bestKind, bestScore := GoalRecover, scores[GoalRecover]
	for k := GoalPursue; k <= GoalSteal; k++ {
		if scores[k] > bestScore {
			bestKind, bestScore = k, scores[k]
		}
	}

	if bestKind == d.active.Kind {
		d.refreshTarget(snap)
		return d.active, false
	}

	// A challenger needs the timer expired and a lead of at least the
	// hysteresis margin over the active goal's current score. A gap below
	// the margin, raw ties included, retains the incumbent.
	if d.commitLeft > 0 || bestScore < scores[d.active.Kind]+d.profile.Hysteresis {
		d.refreshTarget(snap)
		return d.active, false
	}

	d.active = Goal{Kind: bestKind, TargetNode: NoNode}
	d.commitLeft = d.profile.CommitTicks(bestKind)
	d.refreshTarget(snap)
	return d.active, true
}

// score computes the utility of every goal kind from snapshot facts only.
func (d *DecisionEngine) score(snap *WorldSnapshot) map[GoalKind]float64 {
	s := map[GoalKind]float64{
		GoalRecover:   RecoverUtilityFloor,
		GoalPursue:    0,
		GoalIntercept: 0,
		GoalShoot:     0,
		GoalDefend:    0,
		GoalSteal:     0,
	}
	me := snap.PlayerPos(d.side)
	opp := snap.PlayerPos(d.side.Opponent())

	switch {
	case snap.HasBall(d.side):
		// Holding the ball, scoring is the only job.
		q := 0.0
		if snap.Graph != nil {
			q = snap.Graph.MaxShotQuality
		}
		s[GoalShoot] = 0.8 + 0.2*q

	case snap.OpponentHasBall(d.side):
		ownBasket := snap.OwnBasket(d.side)
		oppToBasket := opp.Dist(ownBasket)
		s[GoalDefend] = 0.55 + 0.3*(1-clamp01(oppToBasket/ArenaWidth))

		contestRadius := d.profile.StealRange * 4
		meToOpp := me.Dist(opp)
		if meToOpp < contestRadius {
			s[GoalSteal] = 0.5 + 0.35*(1-meToOpp/contestRadius)
		} else {
			s[GoalSteal] = 0.2
		}

	default:
		if snap.BallPhase == BallInFlight {
			landing := snap.PredictBallLanding()
			adv := 0.0
			if me.Dist(landing) < opp.Dist(landing) {
				adv = 0.1
			}
			s[GoalIntercept] = 0.75 + adv
			s[GoalPursue] = 0.4
		} else {
			meToBall := me.Dist(snap.BallPos)
			s[GoalPursue] = 0.65 + 0.25*(1-clamp01(meToBall/ArenaWidth))
			if me.Dist(snap.BallPos) > opp.Dist(snap.BallPos) {
				s[GoalPursue] -= 0.05
			}
		}
	}
	return s
}

// refreshTarget re-resolves the active goal's target from the snapshot.
func (d *DecisionEngine) refreshTarget(snap *WorldSnapshot) {
	if snap.Graph == nil {
		return
	}
	g := snap.Graph
	switch d.active.Kind {
	case GoalShoot:
		basket := snap.TargetBasket(d.side)
		minQ := ScaleMinQuality(d.profile.MinShotQuality, g.MaxShotQuality)
		node := g.BestShotNode(basket, d.profile.ShootRange, minQ)
		d.setTarget(g, node)
	case GoalPursue:
		d.setTarget(g, g.ClosestNode(snap.BallPos))
	case GoalIntercept:
		d.setTarget(g, g.ClosestNode(snap.PredictBallLanding()))
	case GoalDefend:
		post := snap.DefensivePost(d.side, d.profile.DefenseOffset)
		d.setTarget(g, g.ClosestNode(post))
		d.active.TargetPos = post
	case GoalSteal:
		d.setTarget(g, g.ClosestNode(snap.PlayerPos(d.side.Opponent())))
	case GoalRecover:
		d.setTarget(g, g.FloorNode())
	}
}

func (d *DecisionEngine) setTarget(g *NavGraph, node NodeID) {
	d.active.TargetNode = node
	if node != NoNode {
		d.active.TargetPos = g.Nodes[node].Center
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

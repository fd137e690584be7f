package game

import "math"

// Vec2 is a 2D point or velocity in arena coordinates (y up, origin center).
type Vec2 struct {
	X float64
	Y float64
}

func (v Vec2) Dist(o Vec2) float64 {
	dx := v.X - o.X
	dy := v.Y - o.Y
	return math.Sqrt(dx*dx + dy*dy)
}

func (v Vec2) DistSq(o Vec2) float64 {
	dx := v.X - o.X
	dy := v.Y - o.Y
	return dx*dx + dy*dy
}

// PlayerID identifies one of the two controlled sides.
type PlayerID int

const (
	PlayerL PlayerID = iota
	PlayerR

	// NoPlayer marks events and ball states that belong to neither side.
	NoPlayer PlayerID = -1
)

func (p PlayerID) String() string {
	switch p {
	case PlayerL:
		return "L"
	case PlayerR:
		return "R"
	default:
		return "-"
	}
}

// Opponent returns the other side.
func (p PlayerID) Opponent() PlayerID {
	if p == PlayerL {
		return PlayerR
	}
	return PlayerL
}

// BallPhase is the ball's possession state.
type BallPhase int

const (
	BallFree BallPhase = iota
	BallHeld
	BallInFlight
)

func (b BallPhase) String() string {
	switch b {
	case BallFree:
		return "F"
	case BallHeld:
		return "H"
	case BallInFlight:
		return "I"
	default:
		return "?"
	}
}

// WorldSnapshot is the read-only per-tick view every component queries
// instead of touching live physics state. It is produced at the top of each
// fixed tick, handed to the input sources and decision engines, and
// discarded when the next tick supersedes it. Never mutated once published.
type WorldSnapshot struct {
	Tick int64

	Pos [2]Vec2
	Vel [2]Vec2

	OnGround [2]bool

	BallPos   Vec2
	BallVel   Vec2
	BallPhase BallPhase
	Holder    PlayerID // NoPlayer unless BallPhase == BallHeld

	ScoreLeft  int
	ScoreRight int

	Level *Level
	Graph *NavGraph
}

// PlayerPos returns the position of the given side.
func (s *WorldSnapshot) PlayerPos(id PlayerID) Vec2 { return s.Pos[id] }

// HasBall reports whether the given side currently holds the ball.
func (s *WorldSnapshot) HasBall(id PlayerID) bool {
	return s.BallPhase == BallHeld && s.Holder == id
}

// OpponentHasBall reports whether the other side holds the ball.
func (s *WorldSnapshot) OpponentHasBall(id PlayerID) bool {
	return s.BallPhase == BallHeld && s.Holder == id.Opponent()
}

// TargetBasket returns the basket the given side scores on.
func (s *WorldSnapshot) TargetBasket(id PlayerID) Vec2 {
	if id == PlayerL {
		return s.Level.RightBasket()
	}
	return s.Level.LeftBasket()
}

// OwnBasket returns the basket the given side defends.
func (s *WorldSnapshot) OwnBasket(id PlayerID) Vec2 {
	if id == PlayerL {
		return s.Level.LeftBasket()
	}
	return s.Level.RightBasket()
}

// DefensivePost returns the floor position a side falls back to when
// defending, offset toward center from its own basket.
func (s *WorldSnapshot) DefensivePost(id PlayerID, offset float64) Vec2 {
	basket := s.OwnBasket(id)
	x := basket.X + offset
	if id == PlayerR {
		x = basket.X - offset
	}
	return Vec2{X: x, Y: FloorSurfaceY}
}

// PredictBallLanding extrapolates an in-flight ball to the height it was
// launched from (or the floor surface, whichever it meets first) using plain
// projectile motion. For a free or held ball the current position is
// returned unchanged.
func (s *WorldSnapshot) PredictBallLanding() Vec2 {
	if s.BallPhase != BallInFlight {
		return s.BallPos
	}
	// Solve 0 = dy = vy*t - g/2*t^2 down to the floor surface.
	g := BallGravity
	vy := s.BallVel.Y
	drop := s.BallPos.Y - FloorSurfaceY
	disc := vy*vy + 2*g*drop
	if disc < 0 {
		return s.BallPos
	}
	t := (vy + math.Sqrt(disc)) / g
	x := s.BallPos.X + s.BallVel.X*t
	half := ArenaWidth/2 - WallThickness - BallSize/2
	x = math.Max(-half, math.Min(half, x))
	return Vec2{X: x, Y: FloorSurfaceY}
}

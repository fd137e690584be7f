package game

// Gameplay tuning. All movement, ball, and shot values live here so the nav
// graph builder can derive jump/drop feasibility from the exact constants the
// integrator uses.

// Fixed-rate simulation step. One tick is the unit of determinism: all
// recorded events and replays are keyed by fixed ticks, never frames.
const (
	TickRate = 60
	FixedDT  = 1.0 / TickRate
)

// Player movement.
const (
	GravityRise       = 980.0  // gravity while rising
	GravityFall       = 1400.0 // gravity while falling (fast fall)
	JumpVelocity      = 650.0  // initial vertical speed of a full jump
	JumpCutMultiplier = 0.4    // vertical speed retained when jump is released early
	MoveSpeed         = 300.0
	GroundAccel       = 2400.0
	GroundDecel       = 1800.0
	AirAccel          = 1500.0
	AirDecel          = 900.0

	CoyoteTicks     = 6 // ticks after leaving ground a jump still fires
	JumpBufferTicks = 6 // ticks a jump press is remembered before landing

	StickDeadzone = 0.25
)

// Player and ball dimensions.
const (
	PlayerWidth  = 32.0
	PlayerHeight = 64.0
	BallSize     = 26.0
)

// Ball physics.
const (
	BallGravity        = 800.0
	BallBounce         = 0.7 // restitution per bounce
	BallAirFriction    = 0.95
	BallGroundFriction = 0.6 // horizontal speed retained per bounce
	BallPickupRadius   = 50.0
	BallFreeSpeed      = 200.0 // in-flight ball becomes free below this speed
)

// Shooting.
const (
	ShotMaxSpeed       = 800.0
	ShotChargeTime     = 1.6 // seconds of hold for a full charge
	ShotMaxVariance    = 0.50
	ShotMinVariance    = 0.02
	ShotQuickThreshold = 0.25 // charge fraction below this shoots at reduced power
	ShotQuickPower     = 0.7
	ShotDefaultAngle   = 60.0 // degrees above horizontal
)

// Steal contest.
const (
	StealRange             = 60.0
	StealBaseChance        = 0.35
	StealDefenderAdvantage = 0.15 // added to the keep chance of the ball holder
	StealCooldownTicks     = 30
)

// Arena.
const (
	ArenaWidth    = 1600.0
	ArenaHeight   = 900.0
	ArenaFloorY   = -ArenaHeight / 2
	WallThickness = 20.0
	FloorSurfaceY = ArenaFloorY + 20.0

	BasketWidth    = 60.0
	BasketHeight   = 80.0
	BasketPushIn   = 156.0 // wall inner edge to basket center
	DefaultBasketY = ArenaFloorY + 240.0
)

// Spawns.
const (
	SpawnLeftX  = -300.0
	SpawnRightX = 300.0
	SpawnY      = FloorSurfaceY + PlayerHeight/2
)

// Navigation.
const (
	NavMaxJumpHeight     = 210.0 // cap below the analytic apex, leaves clearance
	NavPositionTolerance = 30.0
	NavJumpTolerance     = 8.0
)

// Decision engine. Commitment is the minimum number of ticks a goal stays
// active before a voluntary switch; a candidate must beat the active goal's
// utility by the profile's hysteresis margin to preempt it.
const (
	GoalEvalInterval = 5 // ticks between scheduled goal evaluations

	RecoverUtilityFloor = 0.05
)

// commitTicks returns the commitment window for a freshly adopted goal.
// Intercept commits longest: abandoning a flight prediction halfway is
// worse than finishing it.
func commitTicks(k GoalKind) int {
	switch k {
	case GoalIntercept:
		return 90
	case GoalDefend:
		return 75
	case GoalShoot:
		return 60
	case GoalPursue:
		return 45
	case GoalSteal:
		return 30
	default:
		return 30
	}
}

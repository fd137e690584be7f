package game

import "math"

// The nav graph turns level geometry into a directed traversal graph. Every
// platform surface (and the floor) becomes a node; edges are Walk, Jump, or
// Drop transitions whose feasibility is derived analytically from the
// movement constants in tuning.go — no simulation, no per-match state — so a
// graph is cacheable for as long as its level's geometry is live.

// NodeID indexes a node within one graph. IDs are stable for the lifetime of
// the level geometry the graph was built from.
type NodeID int

// NoNode marks an absent node reference.
const NoNode NodeID = -1

// EdgeKind is the traversal type of an edge.
type EdgeKind int

const (
	EdgeWalk EdgeKind = iota
	EdgeJump
	EdgeDrop
)

func (k EdgeKind) String() string {
	switch k {
	case EdgeWalk:
		return "walk"
	case EdgeJump:
		return "jump"
	case EdgeDrop:
		return "drop"
	default:
		return "unknown"
	}
}

// PlatformRole classifies what a node is good for when picking targets.
type PlatformRole int

const (
	RoleFloor PlatformRole = iota
	RoleShotPosition
	RoleTransit
	RoleDeadZone // under-rim or behind-board positions; never a shooting target
)

func (r PlatformRole) String() string {
	switch r {
	case RoleFloor:
		return "floor"
	case RoleShotPosition:
		return "shot"
	case RoleTransit:
		return "transit"
	case RoleDeadZone:
		return "dead"
	default:
		return "unknown"
	}
}

// NavNode is one walkable surface.
type NavNode struct {
	ID     NodeID
	Center Vec2
	LeftX  float64
	RightX float64
	TopY   float64

	IsFloor bool
	Role    PlatformRole

	// Precomputed shot qualities toward each basket.
	ShotQualityLeft  float64
	ShotQualityRight float64

	// Reachable is true only for nodes with a feasible path from the spawn
	// (floor) node and back. Unreachable nodes are excluded from planning.
	Reachable bool
}

// ContainsX reports whether x lies within the node's horizontal extent.
func (n *NavNode) ContainsX(x float64) bool {
	return x >= n.LeftX && x <= n.RightX
}

// ClampX clamps x into the node's horizontal extent.
func (n *NavNode) ClampX(x float64) float64 {
	return math.Max(n.LeftX, math.Min(n.RightX, x))
}

// NavEdge is a directed transition between two nodes.
type NavEdge struct {
	From NodeID
	To   NodeID
	Kind EdgeKind
	Cost float64

	// TakeoffX is where to start the transition, LandX where it ends.
	TakeoffX float64
	LandX    float64

	// JumpHold is the fraction of a full jump hold needed (0 = tap).
	JumpHold float64
}

// NavGraph is the traversal graph for one level.
type NavGraph struct {
	Level *Level
	Nodes []NavNode
	Edges [][]NavEdge // Edges[i] = outgoing edges of node i

	// MaxShotQuality is the best quality achievable from any node toward
	// either basket, used to scale profile thresholds per level.
	MaxShotQuality float64
}

// BuildNavGraph discretizes a level into nodes and derives every feasible
// edge from the movement constants. The floor is always node 0 and serves as
// the spawn node for reachability analysis.
func BuildNavGraph(level *Level) *NavGraph {
	g := &NavGraph{Level: level}

	floorLeft, floorRight := level.FloorBounds()
	g.Nodes = append(g.Nodes, NavNode{
		ID:      0,
		Center:  Vec2{X: 0, Y: FloorSurfaceY},
		LeftX:   floorLeft,
		RightX:  floorRight,
		TopY:    FloorSurfaceY,
		IsFloor: true,
		Role:    RoleFloor,
	})

	for _, p := range level.Platforms {
		id := NodeID(len(g.Nodes))
		g.Nodes = append(g.Nodes, NavNode{
			ID:     id,
			Center: Vec2{X: p.X, Y: p.Top()},
			LeftX:  p.LeftX(),
			RightX: p.RightX(),
			TopY:   p.Top(),
		})
	}

	left := level.LeftBasket()
	right := level.RightBasket()
	g.MaxShotQuality = 0.3
	for i := range g.Nodes {
		n := &g.Nodes[i]
		n.ShotQualityLeft = EvaluateShotQuality(n.Center, left)
		n.ShotQualityRight = EvaluateShotQuality(n.Center, right)
		n.Role = classifyRole(n)
		if q := math.Max(n.ShotQualityLeft, n.ShotQualityRight); q > g.MaxShotQuality {
			g.MaxShotQuality = q
		}
	}

	g.Edges = make([][]NavEdge, len(g.Nodes))
	for i := range g.Nodes {
		for j := range g.Nodes {
			if i == j {
				continue
			}
			from, to := &g.Nodes[i], &g.Nodes[j]
			if trajectoryBlocked(from, to, g.Nodes) {
				continue
			}
			g.Edges[i] = append(g.Edges[i], edgesBetween(from, to)...)
		}
	}

	g.markReachable()
	return g
}

// classifyRole assigns a role from precomputed shot qualities.
func classifyRole(n *NavNode) PlatformRole {
	if n.IsFloor {
		return RoleFloor
	}
	best := math.Max(n.ShotQualityLeft, n.ShotQualityRight)
	worst := math.Min(n.ShotQualityLeft, n.ShotQualityRight)
	switch {
	case worst < 0.25:
		return RoleDeadZone
	case best >= ShotQualityGood:
		return RoleShotPosition
	default:
		return RoleTransit
	}
}

// jumpReach solves the rise-phase kinematics for a jump of the given height
// gain and returns the horizontal distance coverable while rising, or false
// if the height is beyond the jump envelope.
func jumpReach(heightGain float64) (float64, bool) {
	if heightGain > NavMaxJumpHeight {
		return 0, false
	}
	disc := JumpVelocity*JumpVelocity - 2*GravityRise*heightGain
	if disc < 0 {
		return 0, false
	}
	timeToHeight := (JumpVelocity - math.Sqrt(disc)) / GravityRise
	return MoveSpeed * timeToHeight, true
}

// dropReach returns the horizontal distance coverable while falling the
// given height.
func dropReach(fallHeight float64) float64 {
	fallTime := math.Sqrt(2 * fallHeight / GravityFall)
	return MoveSpeed * fallTime
}

// horizontalGap returns the clearance between two nodes' extents; zero when
// they overlap horizontally.
func horizontalGap(a, b *NavNode) float64 {
	switch {
	case b.LeftX > a.RightX:
		return b.LeftX - a.RightX
	case a.LeftX > b.RightX:
		return a.LeftX - b.RightX
	default:
		return 0
	}
}

// edgesBetween derives every feasible edge from one node to another. When a
// pair is connected by both a Walk and a Jump, both edges are kept: the Walk
// edge always costs less, so ranking prefers it, while the Jump edge remains
// available as a shortcut for ledges with no walkable route.
func edgesBetween(from, to *NavNode) []NavEdge {
	heightDiff := to.TopY - from.TopY
	gap := horizontalGap(from, to)
	var edges []NavEdge

	switch {
	case heightDiff > NavPositionTolerance/2:
		// Jump up.
		reach, ok := jumpReach(heightDiff)
		if !ok || gap > reach+NavPositionTolerance {
			return nil
		}
		takeoff, land := transitionPoints(from, to)
		hold := math.Min(1, math.Max(0.1, heightDiff/maxJumpApex()*1.2))
		edges = append(edges, NavEdge{
			From:     from.ID,
			To:       to.ID,
			Kind:     EdgeJump,
			Cost:     heightDiff + gap*0.5,
			TakeoffX: takeoff,
			LandX:    land,
			JumpHold: hold,
		})

	case heightDiff < -PlayerHeight:
		// Drop down.
		fall := -heightDiff
		reach := dropReach(fall)
		if gap > reach+NavPositionTolerance {
			return nil
		}
		var dropX, landX float64
		if to.Center.X > from.Center.X {
			dropX = from.RightX
			landX = to.ClampX(from.RightX + reach*0.5)
		} else {
			dropX = from.LeftX
			landX = to.ClampX(from.LeftX - reach*0.5)
		}
		edges = append(edges, NavEdge{
			From:     from.ID,
			To:       to.ID,
			Kind:     EdgeDrop,
			Cost:     fall*0.3 + gap*0.5,
			TakeoffX: dropX,
			LandX:    landX,
		})

	default:
		// Similar height.
		if gap > NavPositionTolerance {
			// Small hop across a gap.
			reach := hopReach(heightDiff)
			if gap > reach+NavPositionTolerance {
				return nil
			}
			takeoff, land := transitionPoints(from, to)
			edges = append(edges, NavEdge{
				From:     from.ID,
				To:       to.ID,
				Kind:     EdgeJump,
				Cost:     gap,
				TakeoffX: takeoff,
				LandX:    land,
				JumpHold: 0.1,
			})
		} else {
			// Touching or overlapping: walkable. Cost is strictly below any
			// jump cost so the planner ranks Walk first.
			walkX := to.LeftX + NavPositionTolerance
			if to.Center.X < from.Center.X {
				walkX = to.RightX - NavPositionTolerance
			}
			walkX = to.ClampX(walkX)
			edges = append(edges, NavEdge{
				From:     from.ID,
				To:       to.ID,
				Kind:     EdgeWalk,
				Cost:     math.Abs(from.Center.X-to.Center.X) * 0.1,
				TakeoffX: walkX,
				LandX:    walkX,
			})
			// Keep the jump available as a shortcut over the same pair.
			if gap <= hopReach(heightDiff)+NavPositionTolerance {
				takeoff, land := transitionPoints(from, to)
				edges = append(edges, NavEdge{
					From:     from.ID,
					To:       to.ID,
					Kind:     EdgeJump,
					Cost:     math.Abs(from.Center.X-to.Center.X)*0.1 + NavPositionTolerance,
					TakeoffX: takeoff,
					LandX:    land,
					JumpHold: 0.1,
				})
			}
		}
	}
	return edges
}

// maxJumpApex is the analytic full-hold jump height.
func maxJumpApex() float64 {
	return JumpVelocity * JumpVelocity / (2 * GravityRise)
}

// hopReach returns the horizontal distance a full jump covers when landing
// near the takeoff height: the rise to the apex plus the fall back down.
func hopReach(heightDiff float64) float64 {
	apex := maxJumpApex()
	if heightDiff >= apex {
		return 0
	}
	tRise := JumpVelocity / GravityRise
	tFall := math.Sqrt(2 * (apex - heightDiff) / GravityFall)
	return MoveSpeed * (tRise + tFall)
}

// transitionPoints picks takeoff and landing x for a jump between two nodes.
func transitionPoints(from, to *NavNode) (takeoff, land float64) {
	margin := PlayerWidth/2 + NavJumpTolerance
	switch {
	case to.LeftX > from.RightX:
		return from.RightX - NavJumpTolerance, to.ClampX(to.LeftX + margin)
	case from.LeftX > to.RightX:
		return from.LeftX + NavJumpTolerance, to.ClampX(to.RightX - margin)
	default:
		// Overlapping: take off from outside the overlap so the arc clears
		// the target's lip instead of rising into its underside.
		overlapLeft := math.Max(from.LeftX, to.LeftX)
		overlapRight := math.Min(from.RightX, to.RightX)
		if from.Center.X < to.Center.X {
			x := math.Max(from.LeftX, overlapLeft-margin)
			return x, to.ClampX(overlapLeft + margin)
		}
		x := math.Min(from.RightX, overlapRight+margin)
		return x, to.ClampX(overlapRight - margin)
	}
}

// trajectoryBlocked reports whether another platform sits inside the
// vertical and horizontal span a jump or drop between the nodes would cross.
func trajectoryBlocked(from, to *NavNode, all []NavNode) bool {
	minY := math.Min(from.TopY, to.TopY)
	maxY := math.Max(from.TopY, to.TopY)
	trajLeft := math.Min(from.Center.X, to.Center.X)
	trajRight := math.Max(from.Center.X, to.Center.X)

	for i := range all {
		n := &all[i]
		if n.ID == from.ID || n.ID == to.ID || n.IsFloor {
			continue
		}
		inY := n.TopY > minY+PlayerHeight/2 && n.TopY < maxY-PlayerHeight/2
		if !inY {
			continue
		}
		overlapsX := n.RightX > trajLeft-PlayerWidth/2 && n.LeftX < trajRight+PlayerWidth/2
		if overlapsX {
			return true
		}
	}
	return false
}

// markReachable keeps a node only when a path runs from the floor node to it
// and back. Forward flood-fill alone would pass a surface that can be entered
// but never left; requiring the round trip guarantees any two reachable nodes
// connect through the floor. Isolated platforms stay unreachable: a geometry
// warning, not an error. Planning simply never targets them.
func (g *NavGraph) markReachable() {
	fwd := g.floodFromFloor(false)
	back := g.floodFromFloor(true)
	for i := range g.Nodes {
		g.Nodes[i].Reachable = fwd[i] && back[i]
	}
}

// floodFromFloor breadth-first marks every node connected to the floor,
// walking edges forward or reversed.
func (g *NavGraph) floodFromFloor(reverse bool) []bool {
	adj := make([][]NodeID, len(g.Nodes))
	for from := range g.Edges {
		for _, e := range g.Edges[from] {
			if reverse {
				adj[e.To] = append(adj[e.To], NodeID(from))
			} else {
				adj[from] = append(adj[from], e.To)
			}
		}
	}
	seen := make([]bool, len(g.Nodes))
	queue := []NodeID{0}
	seen[0] = true
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range adj[cur] {
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	return seen
}

// Unreachable returns the IDs of nodes with no round trip to the spawn node.
// Exposed for feasibility validation of level geometry.
func (g *NavGraph) Unreachable() []NodeID {
	var out []NodeID
	for i := range g.Nodes {
		if !g.Nodes[i].Reachable {
			out = append(out, g.Nodes[i].ID)
		}
	}
	return out
}

// FindNodeAt returns the node a position is standing on, within tolerance,
// or NoNode.
func (g *NavGraph) FindNodeAt(pos Vec2, tolerance float64) NodeID {
	for i := range g.Nodes {
		n := &g.Nodes[i]
		if pos.X < n.LeftX-tolerance || pos.X > n.RightX+tolerance {
			continue
		}
		if math.Abs(pos.Y-n.TopY) < PlayerHeight/2+tolerance {
			return n.ID
		}
	}
	return NoNode
}

// ClosestNode returns the reachable node nearest to a target position.
func (g *NavGraph) ClosestNode(target Vec2) NodeID {
	best := NoNode
	bestD := math.MaxFloat64
	for i := range g.Nodes {
		n := &g.Nodes[i]
		if !n.Reachable {
			continue
		}
		if d := n.Center.DistSq(target); d < bestD {
			bestD = d
			best = n.ID
		}
	}
	return best
}

// shotQualityToward returns a node's precomputed quality toward a basket.
func (g *NavGraph) shotQualityToward(id NodeID, basket Vec2) float64 {
	if id < 0 || int(id) >= len(g.Nodes) {
		return 0
	}
	n := &g.Nodes[id]
	if basket.X < 0 {
		return n.ShotQualityLeft
	}
	return n.ShotQualityRight
}

// BestShotNode picks the reachable node to shoot from at the given basket:
// the highest-quality node within range that clears minQuality, falling back
// to the best-quality node anywhere so the AI still moves toward a usable
// position. Dead zones are never candidates. Returns NoNode when nothing
// clears the threshold.
func (g *NavGraph) BestShotNode(basket Vec2, shootRange, minQuality float64) NodeID {
	best := NoNode
	bestQ := 0.0
	bestD := math.MaxFloat64
	for i := range g.Nodes {
		n := &g.Nodes[i]
		if !n.Reachable || n.Role == RoleDeadZone {
			continue
		}
		q := g.shotQualityToward(n.ID, basket)
		if q < minQuality {
			continue
		}
		d := n.Center.Dist(basket)
		if d > shootRange {
			continue
		}
		if q > bestQ || (q == bestQ && d < bestD) {
			best, bestQ, bestD = n.ID, q, d
		}
	}
	if best != NoNode {
		return best
	}
	// Nothing in range: take the best-quality node anywhere.
	for i := range g.Nodes {
		n := &g.Nodes[i]
		if !n.Reachable || n.Role == RoleDeadZone {
			continue
		}
		q := g.shotQualityToward(n.ID, basket)
		if q >= minQuality && q > bestQ {
			best, bestQ = n.ID, q
		}
	}
	return best
}

// FloorNode returns the floor node's ID.
func (g *NavGraph) FloorNode() NodeID { return 0 }

package game

import (
	"container/heap"
	"errors"
	"math"
)

// ErrUnreachable reports that no path exists to the requested target node.
// The decision engine treats it as grounds for immediate goal
// reconsideration, bypassing the commitment timer.
var ErrUnreachable = errors.New("nav target unreachable")

// StepKind is one traversal action within a planned path.
type StepKind int

const (
	StepWalk StepKind = iota // walk to X on the current surface
	StepJump                 // jump at X with the given hold, land at LandX
	StepDrop                 // walk off the edge at X toward LandX
)

// PathStep is a single action toward the goal node.
type PathStep struct {
	Kind  StepKind
	X     float64 // where the action happens (walk target / takeoff point)
	LandX float64 // expected landing x for jumps and drops
	Hold  float64 // jump hold fraction, 0 for taps
	To    NodeID  // node this step arrives on
}

// Path is a full route to a goal node.
type Path struct {
	Steps []PathStep
	Cost  float64
	Goal  NodeID
}

// --- A* search (cost-weighted best-first over the nav graph) ---

type searchNode struct {
	id    NodeID
	g     float64
	f     float64
	index int // heap index
}

type searchHeap []*searchNode

func (h searchHeap) Len() int           { return len(h) }
func (h searchHeap) Less(i, j int) bool { return h[i].f < h[j].f }
func (h searchHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *searchHeap) Push(x interface{}) {
	n := x.(*searchNode)
	n.index = len(*h)
	*h = append(*h, n)
}
func (h *searchHeap) Pop() interface{} {
	old := *h
	n := old[len(old)-1]
	old[len(old)-1] = nil
	*h = old[:len(old)-1]
	return n
}

// pathHeuristic weights vertical distance more: going up costs a jump.
func pathHeuristic(from, to Vec2) float64 {
	return math.Abs(from.X-to.X) + math.Abs(from.Y-to.Y)*1.5
}

// FindPath searches the graph from the node under startPos to the goal node
// and returns the action sequence. Unreachable or unknown targets return
// ErrUnreachable.
func FindPath(g *NavGraph, startPos Vec2, goal NodeID) (*Path, error) {
	if goal == NoNode || int(goal) >= len(g.Nodes) || !g.Nodes[goal].Reachable {
		return nil, ErrUnreachable
	}
	start := g.FindNodeAt(startPos, NavPositionTolerance)
	if start == NoNode {
		// Airborne or between surfaces: plan from the nearest node.
		start = g.ClosestNode(startPos)
		if start == NoNode {
			return nil, ErrUnreachable
		}
	}
	if start == goal {
		return finishPath(g, nil, start, goal, startPos, 0), nil
	}

	goalPos := g.Nodes[goal].Center
	gScore := make([]float64, len(g.Nodes))
	cameFrom := make([]*NavEdge, len(g.Nodes))
	for i := range gScore {
		gScore[i] = math.Inf(1)
	}
	gScore[start] = 0

	open := &searchHeap{{id: start, g: 0, f: pathHeuristic(g.Nodes[start].Center, goalPos)}}
	heap.Init(open)

	for open.Len() > 0 {
		cur := heap.Pop(open).(*searchNode)
		if cur.id == goal {
			return finishPath(g, cameFrom, start, goal, startPos, cur.g), nil
		}
		if cur.g > gScore[cur.id]+1e-9 {
			continue
		}
		for i := range g.Edges[cur.id] {
			e := &g.Edges[cur.id][i]
			if !g.Nodes[e.To].Reachable {
				continue
			}
			tentative := cur.g + e.Cost
			if tentative < gScore[e.To] {
				gScore[e.To] = tentative
				cameFrom[e.To] = e
				heap.Push(open, &searchNode{
					id: e.To,
					g:  tentative,
					f:  tentative + pathHeuristic(g.Nodes[e.To].Center, goalPos),
				})
			}
		}
	}
	return nil, ErrUnreachable
}

// finishPath reconstructs the edge chain into steps, then appends a final
// walk onto the goal node's surface.
func finishPath(g *NavGraph, cameFrom []*NavEdge, start, goal NodeID, startPos Vec2, cost float64) *Path {
	var chain []*NavEdge
	if cameFrom != nil {
		for cur := goal; cur != start; {
			e := cameFrom[cur]
			if e == nil {
				break
			}
			chain = append(chain, e)
			cur = e.From
		}
		for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
			chain[i], chain[j] = chain[j], chain[i]
		}
	}

	p := &Path{Cost: cost, Goal: goal}
	curX := startPos.X
	for _, e := range chain {
		if math.Abs(curX-e.TakeoffX) > NavPositionTolerance {
			p.Steps = append(p.Steps, PathStep{Kind: StepWalk, X: e.TakeoffX, LandX: e.TakeoffX, To: e.From})
		}
		switch e.Kind {
		case EdgeWalk:
			p.Steps = append(p.Steps, PathStep{Kind: StepWalk, X: e.LandX, LandX: e.LandX, To: e.To})
		case EdgeJump:
			p.Steps = append(p.Steps, PathStep{Kind: StepJump, X: e.TakeoffX, LandX: e.LandX, Hold: e.JumpHold, To: e.To})
		case EdgeDrop:
			p.Steps = append(p.Steps, PathStep{Kind: StepDrop, X: e.TakeoffX, LandX: e.LandX, To: e.To})
		}
		curX = e.LandX
	}

	// Walk to the node center last so callers can refine with their own
	// target x afterward.
	goalNode := &g.Nodes[goal]
	if math.Abs(curX-goalNode.Center.X) > NavPositionTolerance {
		p.Steps = append(p.Steps, PathStep{Kind: StepWalk, X: goalNode.Center.X, LandX: goalNode.Center.X, To: goal})
	}
	return p
}

// MoveCommand is the planner's output for a single tick: axis direction plus
// jump intent, consumed identically to human input. It is never a route
// commitment — the next tick's snapshot can override everything.
type MoveCommand struct {
	MoveX    float64
	Jump     bool // request a jump this tick
	JumpHold bool // keep the jump button held (controls jump height)
}

// maxJumpHoldTicks is the rise time of a full jump in fixed ticks.
var maxJumpHoldTicks = int(math.Floor(JumpVelocity / GravityRise * TickRate))

// Planner walks an entity along planned paths one tick at a time. It replans
// whenever the target node changes or the current waypoint is reached.
type Planner struct {
	graph *NavGraph

	path    *Path
	stepIdx int
	target  NodeID

	airborne      bool
	holdTicksLeft int
}

// NewPlanner creates a planner over a built graph.
func NewPlanner(graph *NavGraph) *Planner {
	return &Planner{graph: graph, target: NoNode}
}

// Reset drops the current path, forcing a replan on the next command.
func (p *Planner) Reset() {
	p.path = nil
	p.stepIdx = 0
	p.target = NoNode
	p.airborne = false
	p.holdTicksLeft = 0
}

// AtTarget reports whether pos is standing on the given node.
func (p *Planner) AtTarget(pos Vec2, target NodeID) bool {
	return target != NoNode && p.graph.FindNodeAt(pos, NavPositionTolerance) == target
}

// Command produces this tick's movement toward the target node. It returns
// ErrUnreachable when no path exists; the caller must treat that as a
// planning failure, not steer blindly.
func (p *Planner) Command(pos Vec2, onGround bool, target NodeID) (MoveCommand, error) {
	if target != p.target || p.path == nil {
		path, err := FindPath(p.graph, pos, target)
		if err != nil {
			p.Reset()
			return MoveCommand{}, err
		}
		p.path = path
		p.stepIdx = 0
		p.target = target
		p.airborne = false
		p.holdTicksLeft = 0
	}

	for p.stepIdx < len(p.path.Steps) {
		step := p.path.Steps[p.stepIdx]
		cmd, done := p.execStep(step, pos, onGround)
		if !done {
			return cmd, nil
		}
		p.stepIdx++
		p.airborne = false
		p.holdTicksLeft = 0
	}
	return MoveCommand{}, nil
}

// execStep runs one step; done is true when the step completed and the next
// one should run this same tick.
func (p *Planner) execStep(step PathStep, pos Vec2, onGround bool) (MoveCommand, bool) {
	switch step.Kind {
	case StepWalk:
		dx := step.X - pos.X
		if math.Abs(dx) <= NavPositionTolerance {
			return MoveCommand{}, true
		}
		return MoveCommand{MoveX: sign(dx)}, false

	case StepJump:
		if p.airborne {
			// Mid-jump: steer toward the landing point, keep holding while
			// hold ticks remain.
			if onGround {
				return MoveCommand{}, true // landed
			}
			cmd := MoveCommand{MoveX: steerTo(step.LandX, pos.X)}
			if p.holdTicksLeft > 0 {
				p.holdTicksLeft--
				cmd.JumpHold = true
			}
			return cmd, false
		}
		dx := step.X - pos.X
		if math.Abs(dx) > NavJumpTolerance*2 {
			return MoveCommand{MoveX: sign(dx)}, false
		}
		// At the takeoff point: fire the jump.
		p.airborne = true
		p.holdTicksLeft = int(step.Hold * float64(maxJumpHoldTicks))
		return MoveCommand{MoveX: steerTo(step.LandX, pos.X), Jump: true, JumpHold: true}, false

	case StepDrop:
		if p.airborne {
			if onGround {
				return MoveCommand{}, true
			}
			return MoveCommand{MoveX: steerTo(step.LandX, pos.X)}, false
		}
		if !onGround {
			p.airborne = true
			return MoveCommand{MoveX: steerTo(step.LandX, pos.X)}, false
		}
		// Walk off the edge.
		return MoveCommand{MoveX: sign(step.LandX - step.X)}, false
	}
	return MoveCommand{}, true
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

func steerTo(targetX, x float64) float64 {
	if math.Abs(targetX-x) <= NavJumpTolerance {
		return 0
	}
	return sign(targetX - x)
}

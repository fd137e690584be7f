package game

import (
	"math"
	"testing"
)

func twinLedges(t *testing.T) *Level {
	t.Helper()
	lvl := DefaultLevels().ByName("Twin Ledges")
	if lvl == nil {
		t.Fatal("built-in Twin Ledges level missing")
	}
	return lvl
}

func findEdge(g *NavGraph, from, to NodeID, kind EdgeKind) *NavEdge {
	for i := range g.Edges[from] {
		e := &g.Edges[from][i]
		if e.To == to && e.Kind == kind {
			return e
		}
	}
	return nil
}

func TestBuildNavGraph_FloorIsNodeZero(t *testing.T) {
	g := BuildNavGraph(twinLedges(t))
	if len(g.Nodes) != 3 {
		t.Fatalf("expected floor + 2 platforms, got %d nodes", len(g.Nodes))
	}
	if !g.Nodes[0].IsFloor || g.Nodes[0].Role != RoleFloor {
		t.Fatal("node 0 should be the floor")
	}
	if g.FloorNode() != 0 {
		t.Fatal("FloorNode should return 0")
	}
}

func TestBuildNavGraph_JumpUpNotWalk(t *testing.T) {
	// Ledges sit 170 above the floor surface: inside the jump envelope, far
	// outside any walkable height difference.
	g := BuildNavGraph(twinLedges(t))
	if findEdge(g, 0, 1, EdgeJump) == nil {
		t.Fatal("expected a jump edge from floor to left ledge")
	}
	if findEdge(g, 0, 1, EdgeWalk) != nil {
		t.Fatal("floor to elevated ledge must not be walkable")
	}
	if findEdge(g, 1, 0, EdgeDrop) == nil {
		t.Fatal("expected a drop edge from ledge back to floor")
	}
}

func TestBuildNavGraph_JumpEnvelopeRespected(t *testing.T) {
	tooHigh := &Level{
		ID:   "test-too-high",
		Name: "test-too-high",
		Platforms: []Platform{
			{X: 0, Y: ArenaFloorY + 500, Width: 200, Height: 20},
		},
	}
	g := BuildNavGraph(tooHigh)
	if findEdge(g, 0, 1, EdgeJump) != nil {
		t.Fatal("platform above the jump envelope must have no jump edge")
	}
}

func TestBuildNavGraph_IsolatedPlatformUnreachable(t *testing.T) {
	iso := &Level{
		ID:   "test-isolated",
		Name: "test-isolated",
		Platforms: []Platform{
			{X: 0, Y: ArenaFloorY + 500, Width: 200, Height: 20},
		},
	}
	g := BuildNavGraph(iso)
	unreachable := g.Unreachable()
	if len(unreachable) != 1 || unreachable[0] != 1 {
		t.Fatalf("expected node 1 unreachable, got %v", unreachable)
	}
	if g.Nodes[0].Reachable != true {
		t.Fatal("floor must always be reachable")
	}
}

func TestBuildNavGraph_ReachableNodesPairwiseConnected(t *testing.T) {
	// Reachability is a round-trip guarantee: between any two reachable
	// nodes, in either direction, a path must exist. Nodes that cannot make
	// the round trip to the floor must carry the unreachable flag instead.
	for _, lvl := range DefaultLevels().Levels {
		lvl := lvl
		g := BuildNavGraph(&lvl)
		for a := range g.Nodes {
			if !g.Nodes[a].Reachable {
				continue
			}
			standing := Vec2{X: g.Nodes[a].Center.X, Y: g.Nodes[a].TopY + PlayerHeight/2}
			for b := range g.Nodes {
				if a == b || !g.Nodes[b].Reachable {
					continue
				}
				if _, err := FindPath(g, standing, NodeID(b)); err != nil {
					t.Fatalf("%s: no path from node %d to node %d: %v", lvl.Name, a, b, err)
				}
			}
		}
	}
}

func TestBuildNavGraph_WalkPreferredOverJump(t *testing.T) {
	// Two touching platforms at the same height: both a walk and a jump edge
	// exist, and the walk edge must rank strictly cheaper.
	lvl := &Level{
		ID:   "test-bridge",
		Name: "test-bridge",
		Platforms: []Platform{
			{X: -100, Y: ArenaFloorY + 180, Width: 220, Height: 20},
			{X: 100, Y: ArenaFloorY + 180, Width: 220, Height: 20},
		},
	}
	g := BuildNavGraph(lvl)
	walk := findEdge(g, 1, 2, EdgeWalk)
	jump := findEdge(g, 1, 2, EdgeJump)
	if walk == nil {
		t.Fatal("touching same-height platforms should have a walk edge")
	}
	if jump == nil {
		t.Fatal("jump shortcut should coexist with the walk edge")
	}
	if walk.Cost >= jump.Cost {
		t.Fatalf("walk cost %.1f must rank below jump cost %.1f", walk.Cost, jump.Cost)
	}
}

func TestBuildNavGraph_GapHopJumpNotWalk(t *testing.T) {
	// Two same-height platforms separated by a jumpable gap: connected by a
	// jump edge only, never a walk edge.
	lvl := &Level{
		ID:   "test-gap",
		Name: "test-gap",
		Platforms: []Platform{
			{X: -200, Y: ArenaFloorY + 180, Width: 200, Height: 20},
			{X: 200, Y: ArenaFloorY + 180, Width: 200, Height: 20},
		},
	}
	g := BuildNavGraph(lvl)
	if findEdge(g, 1, 2, EdgeJump) == nil {
		t.Fatal("expected a hop edge across the gap")
	}
	if findEdge(g, 1, 2, EdgeWalk) != nil {
		t.Fatal("a gap must never be walkable")
	}

	// Widen the gap past the flight envelope: no edge at all.
	wide := &Level{
		ID:   "test-wide-gap",
		Name: "test-wide-gap",
		Platforms: []Platform{
			{X: -400, Y: ArenaFloorY + 180, Width: 200, Height: 20},
			{X: 400, Y: ArenaFloorY + 180, Width: 200, Height: 20},
		},
	}
	g = BuildNavGraph(wide)
	if len(g.Edges[1]) != 0 {
		for _, e := range g.Edges[1] {
			if e.To == 2 {
				t.Fatalf("gap beyond the flight envelope produced an edge: %+v", e)
			}
		}
	}
}

func TestBuildNavGraph_EdgesTargetValidNodes(t *testing.T) {
	g := BuildNavGraph(DefaultLevels().ByName("Terraces"))
	for from := range g.Edges {
		for _, e := range g.Edges[from] {
			if e.To < 0 || int(e.To) >= len(g.Nodes) {
				t.Fatalf("edge from %d targets invalid node %d", from, e.To)
			}
			if e.From != NodeID(from) {
				t.Fatalf("edge stored under node %d claims From=%d", from, e.From)
			}
			if e.Cost <= 0 {
				t.Fatalf("edge %d->%d has non-positive cost %.2f", e.From, e.To, e.Cost)
			}
		}
	}
}

func TestBestShotNode_PrefersElevatedInRange(t *testing.T) {
	lvl := twinLedges(t)
	g := BuildNavGraph(lvl)
	basket := lvl.RightBasket()

	node := g.BestShotNode(basket, 650, 0.4)
	if node == NoNode {
		t.Fatal("expected a shot node within range")
	}
	if g.Nodes[node].IsFloor {
		t.Fatal("elevated ledge should outrank the floor as a shot position")
	}
	if math.Abs(g.Nodes[node].Center.X-330) > 1 {
		t.Fatalf("expected the ledge near the basket, got node at x=%.0f", g.Nodes[node].Center.X)
	}
}

func TestBestShotNode_NeverPicksDeadZone(t *testing.T) {
	g := BuildNavGraph(DefaultLevels().ByName("Terraces"))
	basket := g.Level.RightBasket()
	node := g.BestShotNode(basket, 10000, 0.1)
	if node == NoNode {
		t.Fatal("expected some shot node")
	}
	if g.Nodes[node].Role == RoleDeadZone {
		t.Fatal("dead zones must never be shot targets")
	}
}

func TestFindNodeAt(t *testing.T) {
	g := BuildNavGraph(twinLedges(t))
	onFloor := Vec2{X: 0, Y: FloorSurfaceY + PlayerHeight/2}
	if id := g.FindNodeAt(onFloor, NavPositionTolerance); id != 0 {
		t.Fatalf("expected floor node, got %d", id)
	}
	onLedge := Vec2{X: 330, Y: g.Nodes[2].TopY + PlayerHeight/2}
	if id := g.FindNodeAt(onLedge, NavPositionTolerance); id != 2 {
		t.Fatalf("expected ledge node 2, got %d", id)
	}
	midAir := Vec2{X: 0, Y: 300}
	if id := g.FindNodeAt(midAir, NavPositionTolerance); id != NoNode {
		t.Fatalf("mid-air position should match no node, got %d", id)
	}
}

func TestGraphCacheableAcrossMatches(t *testing.T) {
	// Graphs built from the same geometry must be structurally identical:
	// nothing match-dependent may leak into the build.
	lvl := twinLedges(t)
	a := BuildNavGraph(lvl)
	b := BuildNavGraph(lvl)
	if len(a.Nodes) != len(b.Nodes) {
		t.Fatalf("node count differs: %d vs %d", len(a.Nodes), len(b.Nodes))
	}
	for i := range a.Nodes {
		if a.Nodes[i] != b.Nodes[i] {
			t.Fatalf("node %d differs between builds", i)
		}
	}
	for i := range a.Edges {
		if len(a.Edges[i]) != len(b.Edges[i]) {
			t.Fatalf("edge count differs at node %d", i)
		}
		for j := range a.Edges[i] {
			if a.Edges[i][j] != b.Edges[i][j] {
				t.Fatalf("edge %d/%d differs between builds", i, j)
			}
		}
	}
}

package centrality_test

import (
	"math"
	"reflect"
	"testing"

	"spyglass/internal/centrality"
)

func TestAddEdgeAccumulatesWeight(t *testing.T) {
	g := centrality.NewGraph()
	g.AddEdge("a", "b", 1)
	g.AddEdge("b", "a", 2)
	g.AddEdge("a", "a", 5)

	if got := g.Weight("a", "b"); got != 3 {
		t.Fatalf("expected accumulated weight 3, got %v", got)
	}
	if g.Order() != 2 {
		t.Fatalf("self loop must not add nodes, order %d", g.Order())
	}
	if got := g.Weight("a", "missing"); got != 0 {
		t.Fatalf("absent edge should weigh 0, got %v", got)
	}
}

func TestDegreeCentrality(t *testing.T) {
	// Star: hub touches all three leaves.
	g := centrality.NewGraph()
	g.AddEdge("hub", "a", 1)
	g.AddEdge("hub", "b", 1)
	g.AddEdge("hub", "c", 1)

	deg := g.Degree()
	if deg["hub"] != 1.0 {
		t.Fatalf("hub degree = %v, want 1.0", deg["hub"])
	}
	if math.Abs(deg["a"]-1.0/3.0) > 1e-9 {
		t.Fatalf("leaf degree = %v, want 1/3", deg["a"])
	}
}

func TestBetweennessPathGraph(t *testing.T) {
	// Path a-b-c: b sits on the only shortest path between a and c.
	g := centrality.NewGraph()
	g.AddEdge("a", "b", 1)
	g.AddEdge("b", "c", 1)

	bc := g.Betweenness(0, 1)
	if math.Abs(bc["b"]-1.0) > 1e-9 {
		t.Fatalf("middle node betweenness = %v, want 1.0", bc["b"])
	}
	if bc["a"] != 0 || bc["c"] != 0 {
		t.Fatalf("endpoints should have zero betweenness: %v", bc)
	}
}

func TestBetweennessStarGraph(t *testing.T) {
	g := centrality.NewGraph()
	for _, leaf := range []string{"a", "b", "c", "d"} {
		g.AddEdge("hub", leaf, 1)
	}

	bc := g.Betweenness(0, 1)
	if math.Abs(bc["hub"]-1.0) > 1e-9 {
		t.Fatalf("hub betweenness = %v, want 1.0", bc["hub"])
	}
	for _, leaf := range []string{"a", "b", "c", "d"} {
		if bc[leaf] != 0 {
			t.Fatalf("leaf %s betweenness = %v, want 0", leaf, bc[leaf])
		}
	}
}

func TestBetweennessTinyGraph(t *testing.T) {
	g := centrality.NewGraph()
	g.AddEdge("a", "b", 1)

	bc := g.Betweenness(0, 1)
	if bc["a"] != 0 || bc["b"] != 0 {
		t.Fatalf("two-node graph should score zeros: %v", bc)
	}
}

func TestRemovePrunesNodesAndEdges(t *testing.T) {
	g := centrality.NewGraph()
	g.AddEdge("keep1", "keep2", 2)
	g.AddEdge("keep1", "drop", 5)
	g.AddEdge("keep2", "drop", 5)

	pruned := g.Remove(map[string]struct{}{"drop": {}})
	if pruned.Order() != 2 {
		t.Fatalf("expected 2 nodes after prune, got %d", pruned.Order())
	}
	if got := pruned.Weight("keep1", "keep2"); got != 2 {
		t.Fatalf("surviving edge weight = %v, want 2", got)
	}
	if got := pruned.Weight("keep1", "drop"); got != 0 {
		t.Fatalf("pruned edge still present: %v", got)
	}
}

func TestTopNStableOrder(t *testing.T) {
	scores := map[string]float64{
		"zeta": 0.5, "alpha": 0.5, "mid": 0.3, "low": 0.1,
	}
	got := centrality.TopN(scores, 3)
	want := []string{"alpha", "zeta", "mid"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("TopN = %v, want %v", got, want)
	}

	all := centrality.TopN(scores, 0)
	if len(all) != 4 {
		t.Fatalf("n=0 should return all, got %v", all)
	}
}

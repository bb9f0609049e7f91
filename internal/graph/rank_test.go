package graph

import (
	"strconv"
	"testing"

	"callmap/internal/errors"
)

// testGraph builds a graph whose node set is derived from the edge list.
// Labels mirror IDs so assertions stay readable.
func testGraph(rootID string, edges []Edge) *Graph {
	g := &Graph{ID: "test", RootID: rootID, Direction: DirectionBoth, Depth: 2}
	seen := make(map[string]bool)
	addNode := func(id string) {
		if seen[id] {
			return
		}
		seen[id] = true
		g.Nodes = append(g.Nodes, &Node{ID: id, Label: id})
	}
	addNode(rootID)
	for _, e := range edges {
		addNode(e.From)
		addNode(e.To)
		g.Edges = append(g.Edges, e)
	}
	return g
}

func TestRankBasic(t *testing.T) {
	// A -> B -> C
	// A -> D
	// B -> D
	g := testGraph("A", []Edge{
		{From: "A", To: "B"},
		{From: "B", To: "C"},
		{From: "A", To: "D"},
		{From: "B", To: "D"},
	})

	ranking, err := Rank(g, DefaultRankOptions())
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}

	if len(ranking.Results) == 0 {
		t.Fatal("Expected some results")
	}
	if ranking.Results[0].ID != "A" {
		t.Errorf("Expected root A as top result, got %s", ranking.Results[0].ID)
	}
	if ranking.TotalNodes != 4 {
		t.Errorf("Expected 4 nodes, got %d", ranking.TotalNodes)
	}
	if ranking.TotalEdges != 4 {
		t.Errorf("Expected 4 edges, got %d", ranking.TotalEdges)
	}
	if ranking.RootID != "A" {
		t.Errorf("Expected root A, got %s", ranking.RootID)
	}
}

func TestRankReachesCallers(t *testing.T) {
	// Callers-direction graph: edges point into the root. Reverse
	// propagation must still assign the callers nonzero scores.
	g := testGraph("A", []Edge{
		{From: "B", To: "A"},
		{From: "C", To: "B"},
	})
	g.Direction = DirectionCallers

	ranking, err := Rank(g, DefaultRankOptions())
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}

	scores := make(map[string]float64)
	for _, r := range ranking.Results {
		scores[r.ID] = r.Score
	}
	if scores["B"] <= 0 {
		t.Errorf("Expected caller B to receive rank mass, got %v", scores["B"])
	}
	if scores["C"] <= 0 {
		t.Errorf("Expected transitive caller C to receive rank mass, got %v", scores["C"])
	}
	if scores["A"] <= scores["B"] {
		t.Errorf("Expected root to outrank its caller: A=%v B=%v", scores["A"], scores["B"])
	}
}

func TestRankConvergence(t *testing.T) {
	g := testGraph("main", []Edge{
		{From: "main", To: "engine"},
		{From: "engine", To: "builder"},
		{From: "engine", To: "store"},
		{From: "builder", To: "provider"},
		{From: "builder", To: "signature"},
		{From: "store", To: "db"},
		{From: "provider", To: "supervisor"},
	})

	opts := DefaultRankOptions()
	opts.TopK = len(g.Nodes)

	ranking, err := Rank(g, opts)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	if !ranking.Converged {
		t.Errorf("Expected convergence within %d iterations, ran %d", opts.MaxIterations, ranking.Iterations)
	}
	if len(ranking.Results) != len(g.Nodes) {
		t.Errorf("Expected all %d nodes ranked, got %d", len(g.Nodes), len(ranking.Results))
	}
}

func TestRankPropagatesForwardOnly(t *testing.T) {
	// X calls the root but is never called from it; in a callees-direction
	// graph no rank mass should flow backward into X.
	g := testGraph("A", []Edge{
		{From: "A", To: "B"},
		{From: "X", To: "A"},
	})
	g.Direction = DirectionCallees

	ranking, err := Rank(g, DefaultRankOptions())
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	for _, r := range ranking.Results {
		if r.ID == "X" {
			t.Errorf("Expected no rank mass for X, got %v", r.Score)
		}
	}
	if ranking.Results[0].ID != "A" {
		t.Errorf("Expected root A as top result, got %s", ranking.Results[0].ID)
	}
}

func TestRankTopK(t *testing.T) {
	g := testGraph("A", []Edge{
		{From: "A", To: "B"},
		{From: "A", To: "C"},
		{From: "A", To: "D"},
		{From: "A", To: "E"},
	})

	opts := DefaultRankOptions()
	opts.TopK = 2

	ranking, err := Rank(g, opts)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	if len(ranking.Results) != 2 {
		t.Errorf("Expected 2 results with TopK=2, got %d", len(ranking.Results))
	}
}

func TestRankMinScore(t *testing.T) {
	g := testGraph("A", []Edge{
		{From: "A", To: "B"},
		{From: "B", To: "C"},
		{From: "C", To: "D"},
	})

	opts := DefaultRankOptions()
	opts.MinScore = 0.1

	ranking, err := Rank(g, opts)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	for _, r := range ranking.Results {
		if r.Score < opts.MinScore {
			t.Errorf("Result %s score %v below threshold %v", r.ID, r.Score, opts.MinScore)
		}
	}
}

func TestRankEmptyGraph(t *testing.T) {
	_, err := Rank(&Graph{}, DefaultRankOptions())
	if !errors.IsCode(err, errors.InvalidParameter) {
		t.Errorf("Expected INVALID_PARAMETER for empty graph, got %v", err)
	}
}

func TestRankMissingRoot(t *testing.T) {
	g := testGraph("A", []Edge{{From: "A", To: "B"}})
	g.RootID = "nonexistent"

	_, err := Rank(g, DefaultRankOptions())
	if !errors.IsCode(err, errors.NodeNotFound) {
		t.Errorf("Expected NODE_NOT_FOUND for missing root, got %v", err)
	}
}

func TestRankPathBacktracking(t *testing.T) {
	g := testGraph("A", []Edge{
		{From: "A", To: "B"},
		{From: "B", To: "C"},
		{From: "C", To: "D"},
	})

	opts := DefaultRankOptions()
	opts.IncludePaths = true
	opts.TopK = 10

	ranking, err := Rank(g, opts)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}

	for _, r := range ranking.Results {
		if r.ID == "A" {
			if len(r.Path) != 0 {
				t.Errorf("Root should carry no path, got %v", r.Path)
			}
			continue
		}
		if len(r.Path) == 0 {
			t.Errorf("Expected path for %s", r.ID)
			continue
		}
		if r.Path[0] != "A" {
			t.Errorf("Expected path for %s to start at root, got %v", r.ID, r.Path)
		}
		if r.Path[len(r.Path)-1] != r.ID {
			t.Errorf("Expected path for %s to end at itself, got %v", r.ID, r.Path)
		}
	}
}

func BenchmarkRank(b *testing.B) {
	numNodes := 1000
	edges := make([]Edge, 0, numNodes*5)
	for i := 0; i < numNodes; i++ {
		for j := 1; j <= 5; j++ {
			edges = append(edges, Edge{
				From: "node_" + strconv.Itoa(i),
				To:   "node_" + strconv.Itoa((i+j)%numNodes),
			})
		}
	}
	g := testGraph("node_0", edges)

	opts := DefaultRankOptions()
	opts.TopK = 20

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Rank(g, opts)
	}
}

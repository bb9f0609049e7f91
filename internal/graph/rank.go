package graph

import (
	"sort"

	"callmap/internal/errors"
)

// RankOptions configures personalized PageRank over a built graph.
type RankOptions struct {
	// Damping is the probability of following an edge vs teleporting
	// back to the root (default: 0.85).
	Damping float64

	// MaxIterations is the maximum number of power iterations (default: 20).
	MaxIterations int

	// Tolerance for convergence detection (default: 1e-6).
	Tolerance float64

	// TopK is the number of top results to return (default: 20).
	TopK int

	// MinScore drops results below the threshold after ranking.
	MinScore float64

	// IncludePaths enables backtracking to explain how nodes were reached.
	IncludePaths bool
}

// DefaultRankOptions returns sensible defaults.
func DefaultRankOptions() RankOptions {
	return RankOptions{
		Damping:       0.85,
		MaxIterations: 20,
		Tolerance:     1e-6,
		TopK:          20,
		IncludePaths:  true,
	}
}

// RankedNode is one node of the graph with its importance score relative
// to the root.
type RankedNode struct {
	ID    string   `json:"id"`
	Label string   `json:"label"`
	Score float64  `json:"score"`
	Path  []string `json:"path,omitempty"` // node IDs from root to this node
}

// Ranking is the full result of one Rank computation.
type Ranking struct {
	Results    []RankedNode `json:"results"`
	Iterations int          `json:"iterations"`
	Converged  bool         `json:"converged"`
	RootID     string       `json:"rootId"`
	TotalNodes int          `json:"totalNodes"`
	TotalEdges int          `json:"totalEdges"`
}

// sparse adjacency over node indices, built per Rank call. Propagation
// follows out edges only; in edges exist solely for path backtracking.
type adjacency struct {
	ids []string
	idx map[string]int
	out [][]int
	in  [][]int
}

// Rank computes personalized PageRank over a built call graph, seeded at
// its root node. Scores measure how central each node is to the root's
// neighborhood; the root itself always ranks.
func Rank(g *Graph, opts RankOptions) (*Ranking, error) {
	if g == nil || len(g.Nodes) == 0 {
		return nil, errors.New(errors.InvalidParameter, "cannot rank an empty graph")
	}
	if g.Node(g.RootID) == nil {
		return nil, errors.New(errors.NodeNotFound, "graph root "+g.RootID+" not present in node set")
	}

	if opts.Damping <= 0 || opts.Damping >= 1 {
		opts.Damping = 0.85
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = 20
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = 1e-6
	}
	if opts.TopK <= 0 {
		opts.TopK = 20
	}

	adj := buildAdjacency(g)
	rootIdx := adj.idx[g.RootID]
	n := len(adj.ids)

	// Teleport vector concentrates all restart mass on the root.
	teleport := make([]float64, n)
	teleport[rootIdx] = 1.0

	scores := make([]float64, n)
	copy(scores, teleport)

	newScores := make([]float64, n)
	var iterations int
	var converged bool

	for iter := 0; iter < opts.MaxIterations; iter++ {
		iterations = iter + 1

		for i := range newScores {
			newScores[i] = 0
		}

		for i, targets := range adj.out {
			if len(targets) == 0 {
				continue
			}
			contrib := scores[i] / float64(len(targets))
			for _, t := range targets {
				newScores[t] += contrib
			}
		}

		maxDiff := 0.0
		for i := range newScores {
			newScores[i] = opts.Damping*newScores[i] + (1-opts.Damping)*teleport[i]
			diff := newScores[i] - scores[i]
			if diff < 0 {
				diff = -diff
			}
			if diff > maxDiff {
				maxDiff = diff
			}
		}

		scores, newScores = newScores, scores

		if maxDiff < opts.Tolerance {
			converged = true
			break
		}
	}

	type scoredNode struct {
		idx   int
		score float64
	}
	ranked := make([]scoredNode, 0, n)
	for i, s := range scores {
		if s > 0 && s >= opts.MinScore {
			ranked = append(ranked, scoredNode{idx: i, score: s})
		}
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return adj.ids[ranked[i].idx] < adj.ids[ranked[j].idx]
	})

	if len(ranked) > opts.TopK {
		ranked = ranked[:opts.TopK]
	}

	results := make([]RankedNode, len(ranked))
	for i, sn := range ranked {
		id := adj.ids[sn.idx]
		result := RankedNode{
			ID:    id,
			Score: sn.score,
		}
		if node := g.Node(id); node != nil {
			result.Label = node.Label
		}
		if opts.IncludePaths && sn.idx != rootIdx {
			result.Path = adj.backtrack(sn.idx, rootIdx, 5, scores)
		}
		results[i] = result
	}

	return &Ranking{
		Results:    results,
		Iterations: iterations,
		Converged:  converged,
		RootID:     g.RootID,
		TotalNodes: len(g.Nodes),
		TotalEdges: len(g.Edges),
	}, nil
}

func buildAdjacency(g *Graph) *adjacency {
	adj := &adjacency{
		ids: make([]string, 0, len(g.Nodes)),
		idx: make(map[string]int, len(g.Nodes)),
	}
	for _, node := range g.Nodes {
		adj.idx[node.ID] = len(adj.ids)
		adj.ids = append(adj.ids, node.ID)
	}
	n := len(adj.ids)
	adj.out = make([][]int, n)
	adj.in = make([][]int, n)

	// Callers graphs store edges pointing at the root; flip them once so
	// rank mass still flows outward from the seed.
	reversed := g.Direction == DirectionCallers

	for _, e := range g.Edges {
		from, okFrom := adj.idx[e.From]
		to, okTo := adj.idx[e.To]
		if !okFrom || !okTo {
			continue
		}
		if reversed {
			from, to = to, from
		}
		adj.out[from] = append(adj.out[from], to)
		adj.in[to] = append(adj.in[to], from)
	}
	return adj
}

// backtrack walks incoming edges from target toward the root, preferring
// the highest-scoring predecessor, then reverses so the path reads
// root-first.
func (adj *adjacency) backtrack(target, rootIdx, maxDepth int, scores []float64) []string {
	path := []string{adj.ids[target]}
	current := target
	visited := map[int]bool{target: true}

	for depth := 0; depth < maxDepth; depth++ {
		bestPrev := -1
		bestScore := -1.0
		for _, prev := range adj.in[current] {
			if !visited[prev] && scores[prev] > bestScore {
				bestScore = scores[prev]
				bestPrev = prev
			}
		}
		if bestPrev < 0 {
			break
		}

		path = append(path, adj.ids[bestPrev])
		visited[bestPrev] = true
		if bestPrev == rootIdx {
			break
		}
		current = bestPrev
	}

	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

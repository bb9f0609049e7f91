package query

import (
	"encoding/json"
	"strings"

	"gopkg.in/yaml.v3"

	"callmap/internal/errors"
	"callmap/internal/graph"
	"callmap/internal/store"
)

// Export formats accepted by ExportGraph.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatDOT  = "dot"
)

// GetGraphResult is a stored graph with its recorded node statuses.
type GetGraphResult struct {
	Graph    *graph.Graph              `json:"graph"`
	Statuses map[string]store.NodeFlag `json:"statuses,omitempty"`
}

// ListGraphs returns metadata for every stored graph, newest first.
func (e *Engine) ListGraphs() ([]store.GraphMeta, error) {
	return e.graphs.ListGraphs()
}

// GetGraph loads a stored graph and any node statuses recorded by
// earlier relocations.
func (e *Engine) GetGraph(id string) (*GetGraphResult, error) {
	g, err := e.graphs.GetGraph(id)
	if err != nil {
		return nil, err
	}
	statuses, err := e.graphs.NodeStatuses(id)
	if err != nil {
		return nil, err
	}
	if len(statuses) == 0 {
		statuses = nil
	}
	return &GetGraphResult{Graph: g, Statuses: statuses}, nil
}

// DeleteGraph removes a stored graph and everything recorded about it.
func (e *Engine) DeleteGraph(id string) error {
	return e.graphs.DeleteGraph(id)
}

// RankGraph scores a stored graph's nodes by their structural weight
// relative to the root.
func (e *Engine) RankGraph(id string, topK int) (*graph.Ranking, error) {
	g, err := e.graphs.GetGraph(id)
	if err != nil {
		return nil, err
	}
	opts := graph.DefaultRankOptions()
	if topK > 0 {
		opts.TopK = topK
	}
	return graph.Rank(g, opts)
}

// ExportGraph renders a stored graph as JSON, YAML, or Graphviz DOT.
// An empty format defaults to JSON.
func (e *Engine) ExportGraph(id, format string) ([]byte, error) {
	g, err := e.graphs.GetGraph(id)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatJSON, "":
		return json.MarshalIndent(g, "", "  ")
	case FormatYAML:
		// Round-trip through JSON so the YAML keys match the wire
		// names instead of the Go field names.
		payload, err := json.Marshal(g)
		if err != nil {
			return nil, errors.Wrap(errors.InternalError, "failed to encode graph", err)
		}
		var doc map[string]interface{}
		if err := json.Unmarshal(payload, &doc); err != nil {
			return nil, errors.Wrap(errors.InternalError, "failed to decode graph", err)
		}
		return yaml.Marshal(doc)
	case FormatDOT:
		return renderDOT(g), nil
	}
	return nil, errors.New(errors.InvalidParameter, "unknown export format: "+format+" (expected json, yaml, or dot)")
}

// renderDOT writes a Graphviz digraph. The root node gets a bold
// border; labels carry the signature on a second line when one was
// resolved.
func renderDOT(g *graph.Graph) []byte {
	var b strings.Builder
	b.WriteString("digraph callgraph {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box, fontname=\"Helvetica\"];\n")
	for _, n := range g.Nodes {
		label := n.Label
		if n.Signature != "" {
			label += `\n` + n.Signature
		}
		b.WriteString("  " + dotQuote(n.ID) + " [label=" + dotQuote(label))
		if n.ID == g.RootID {
			b.WriteString(", style=bold")
		}
		b.WriteString("];\n")
	}
	for _, edge := range g.Edges {
		b.WriteString("  " + dotQuote(edge.From) + " -> " + dotQuote(edge.To) + ";\n")
	}
	b.WriteString("}\n")
	return []byte(b.String())
}

func dotQuote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

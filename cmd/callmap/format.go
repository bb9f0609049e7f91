package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"callmap/internal/envelope"
	"callmap/internal/graph"
	"callmap/internal/query"
	"callmap/internal/store"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatHuman OutputFormat = "human"
)

// FormatResponse formats an envelope according to the specified format.
// JSON output is the whole envelope; human output renders the data
// payload with warnings appended.
func FormatResponse(resp *envelope.Response, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatHuman:
		return formatHuman(resp)
	default:
		return "", fmt.Errorf("unsupported format: %s (expected json or human)", format)
	}
}

func formatJSON(resp interface{}) (string, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

func formatHuman(resp *envelope.Response) (string, error) {
	var b strings.Builder

	switch v := resp.Data.(type) {
	case *query.BuildGraphResult:
		formatGraphHuman(&b, v.Graph)
		if v.Saved {
			fmt.Fprintf(&b, "\nSaved as %s\n", v.Graph.ID)
		}
	case *query.SignatureResult:
		formatSignatureHuman(&b, v)
	case *query.RelocateResult:
		formatRelocateHuman(&b, v)
	case *query.GetGraphResult:
		formatGraphHuman(&b, v.Graph)
		formatStatusFlagsHuman(&b, v.Statuses)
	case []store.GraphMeta:
		formatGraphListHuman(&b, v)
	case *graph.Ranking:
		formatRankingHuman(&b, v)
	case *query.StatusResult:
		formatEngineStatusHuman(&b, v)
	case []query.ServerInfo:
		formatServersHuman(&b, v)
	case []workspaceRow:
		formatWorkspacesHuman(&b, v)
	default:
		return formatJSON(resp)
	}

	if len(resp.Warnings) > 0 {
		b.WriteString("\nWarnings:\n")
		for _, w := range resp.Warnings {
			if w.Code != "" {
				fmt.Fprintf(&b, "  [%s] %s\n", w.Code, w.Message)
			} else {
				fmt.Fprintf(&b, "  %s\n", w.Message)
			}
		}
	}
	if tier := resp.Meta.Confidence.Tier; tier != "" {
		fmt.Fprintf(&b, "\nConfidence: %s (%.2f)\n", tier, resp.Meta.Confidence.Score)
	}

	return strings.TrimRight(b.String(), "\n"), nil
}

func formatGraphHuman(b *strings.Builder, g *graph.Graph) {
	fmt.Fprintf(b, "Call graph %s (%s, depth %d): %d nodes, %d edges\n",
		g.ID, g.Direction, g.Depth, len(g.Nodes), len(g.Edges))
	if g.Truncated {
		b.WriteString("  (truncated at node budget)\n")
	}
	b.WriteString("\nNodes:\n")
	for _, n := range g.Nodes {
		marker := " "
		if n.ID == g.RootID {
			marker = "*"
		}
		fmt.Fprintf(b, "  %s %s", marker, n.Label)
		if n.Signature != "" {
			b.WriteString(n.Signature)
		}
		fmt.Fprintf(b, "  %s:%d\n", n.URI, n.Line+1)
	}
	if len(g.Edges) > 0 {
		labels := make(map[string]string, len(g.Nodes))
		for _, n := range g.Nodes {
			labels[n.ID] = n.Label
		}
		b.WriteString("\nCalls:\n")
		for _, e := range g.Edges {
			fmt.Fprintf(b, "  %s -> %s\n", labels[e.From], labels[e.To])
		}
	}
}

func formatSignatureHuman(b *strings.Builder, r *query.SignatureResult) {
	fmt.Fprintf(b, "%s", r.BareName)
	if r.Signature != "" {
		b.WriteString(r.Signature)
	}
	b.WriteString("\n")
	if r.Kind != "" {
		fmt.Fprintf(b, "  kind: %s\n", r.Kind)
	}
	fmt.Fprintf(b, "  at:   %s:%d:%d\n", r.URI, r.Line+1, r.Column+1)
	if r.Name != r.BareName {
		fmt.Fprintf(b, "  raw:  %s\n", r.Name)
	}
}

func formatRelocateHuman(b *strings.Builder, r *query.RelocateResult) {
	fmt.Fprintf(b, "Node %s in graph %s\n", r.Node.Label, r.GraphID)
	fmt.Fprintf(b, "  source: %s\n", r.SourceState)
	if r.Skipped {
		fmt.Fprintf(b, "  location unchanged: %s:%d\n", r.Node.URI, r.Node.Line+1)
		return
	}
	if r.Match != nil {
		fmt.Fprintf(b, "  found:  %s:%d:%d\n", r.Match.URI, r.Match.Line+1, r.Match.Column+1)
		fmt.Fprintf(b, "  via:    %s (%s confidence)\n", r.Match.Strategy, r.Match.Confidence)
	}
}

func formatStatusFlagsHuman(b *strings.Builder, flags map[string]store.NodeFlag) {
	if len(flags) == 0 {
		return
	}
	b.WriteString("\nNode statuses:\n")
	for id, flag := range flags {
		fmt.Fprintf(b, "  %s: %s", id, flag.Status)
		if flag.Reason != "" {
			fmt.Fprintf(b, " (%s)", flag.Reason)
		}
		b.WriteString("\n")
	}
}

func formatGraphListHuman(b *strings.Builder, metas []store.GraphMeta) {
	if len(metas) == 0 {
		b.WriteString("No stored graphs.\n")
		return
	}
	fmt.Fprintf(b, "%d stored graph(s):\n", len(metas))
	for _, m := range metas {
		fmt.Fprintf(b, "  %s  %-24s %s depth=%d nodes=%d edges=%d  %s\n",
			m.ID, m.RootLabel, m.Direction, m.Depth, m.NodeCount, m.EdgeCount,
			m.CreatedAt.Format("2006-01-02 15:04"))
	}
}

func formatRankingHuman(b *strings.Builder, r *graph.Ranking) {
	fmt.Fprintf(b, "Rank over %d nodes / %d edges (converged: %v after %d iterations)\n",
		r.TotalNodes, r.TotalEdges, r.Converged, r.Iterations)
	for i, n := range r.Results {
		fmt.Fprintf(b, "  %2d. %-32s %.4f\n", i+1, n.Label, n.Score)
	}
}

func formatEngineStatusHuman(b *strings.Builder, s *query.StatusResult) {
	fmt.Fprintf(b, "callmap v%s\n", s.Version)
	fmt.Fprintf(b, "Workspace: %s\n\n", s.WorkspaceRoot)

	b.WriteString("Providers:\n")
	if s.Scip.Available {
		fmt.Fprintf(b, "  SCIP:        %s (%d documents, indexed %s)\n",
			s.Scip.Path, s.Scip.Documents, s.Scip.IndexedAt)
	} else {
		b.WriteString("  SCIP:        no index\n")
	}
	if len(s.Servers) > 0 {
		for lang, stats := range s.Servers {
			fmt.Fprintf(b, "  LSP %-9s %s (restarts: %d)\n", lang+":", stats.State, stats.RestartCount)
		}
	} else {
		b.WriteString("  LSP:         no servers running\n")
	}
	fmt.Fprintf(b, "  Tree-sitter: available=%v\n", s.TreeSitter)

	fmt.Fprintf(b, "\nLanguages: %s\n", strings.Join(s.Languages, ", "))
	fmt.Fprintf(b, "Store: %s (%d graphs)\n", s.Store.Path, s.Store.Graphs)
}

func formatServersHuman(b *strings.Builder, servers []query.ServerInfo) {
	if len(servers) == 0 {
		b.WriteString("No language servers registered.\n")
		return
	}
	for _, s := range servers {
		state := "not installed"
		if s.Running {
			state = "running"
		} else if s.Installed {
			state = "installed"
		}
		source := ""
		if s.Builtin {
			source = " (builtin)"
		}
		cmd := s.Command
		if len(s.Args) > 0 {
			cmd += " " + strings.Join(s.Args, " ")
		}
		fmt.Fprintf(b, "  %-14s %-44s %s%s\n", s.LanguageID, cmd, state, source)
		if len(s.Extensions) > 0 {
			fmt.Fprintf(b, "  %-14s extensions: %s\n", "", strings.Join(s.Extensions, " "))
		}
	}
}

func formatWorkspacesHuman(b *strings.Builder, list []workspaceRow) {
	if len(list) == 0 {
		b.WriteString("No registered workspaces.\n")
		return
	}
	for _, w := range list {
		marker := " "
		if w.Active {
			marker = "*"
		}
		fmt.Fprintf(b, "  %s %-20s %s\n", marker, w.Name, w.Path)
	}
}

package query

import (
	"context"

	"callmap/internal/graph"
	"callmap/internal/lsp"
	"callmap/internal/paths"
)

// BuildGraphRequest names the root position and expansion bounds. Path
// may be absolute or workspace-relative; Position is zero-based.
type BuildGraphRequest struct {
	Path      string
	Position  lsp.Position
	Direction string
	Depth     int
	Save      bool
}

// BuildGraphResult carries the built graph and its provenance.
type BuildGraphResult struct {
	Graph      *graph.Graph `json:"graph"`
	Saved      bool         `json:"saved"`
	Provenance *Provenance  `json:"-"`
}

// BuildGraph expands a call graph from the symbol at the request
// position, optionally persisting it together with source fingerprints
// for later relocation.
func (e *Engine) BuildGraph(ctx context.Context, req BuildGraphRequest) (*BuildGraphResult, error) {
	direction := req.Direction
	if direction == "" {
		direction = e.cfg.Graph.DefaultDirection
	}
	dir, err := graph.ParseDirection(direction)
	if err != nil {
		return nil, err
	}
	depth := req.Depth
	if depth == 0 {
		depth = e.cfg.Graph.MaxDepth
	}

	abs := e.absPath(req.Path)
	prov := e.newProvenance()

	provider, err := e.callProvider(abs, prov)
	if err != nil {
		return nil, err
	}

	builder := graph.NewBuilder(provider, e.logger, e.cfg.Graph.MaxNodes)
	g, err := builder.Build(ctx, graph.BuildRequest{
		URI:       paths.ToFileURI(abs),
		Position:  req.Position,
		Direction: dir,
		Depth:     depth,
	})
	if err != nil {
		return nil, err
	}
	e.relativizeGraph(g)

	result := &BuildGraphResult{Graph: g, Provenance: prov}
	if req.Save {
		if err := e.graphs.SaveGraph(g); err != nil {
			return nil, err
		}
		if err := e.fingerprints.RecordGraphSources(g); err != nil {
			e.logger.Warn("Failed to fingerprint graph sources", map[string]interface{}{
				"graphId": g.ID,
				"error":   err.Error(),
			})
		}
		result.Saved = true
	}
	return result, nil
}

// relativizeGraph rewrites node URIs to canonical workspace-relative paths
// so persisted graphs and their fingerprints survive a workspace move.
// Nodes outside the workspace keep their absolute URIs.
func (e *Engine) relativizeGraph(g *graph.Graph) {
	for _, node := range g.Nodes {
		node.URI = e.relativeURI(node.URI)
	}
}

// relativeURI converts a file URI or absolute path to its canonical
// workspace-relative form. URIs outside the workspace come back unchanged.
func (e *Engine) relativeURI(uri string) string {
	abs := paths.FromFileURI(uri)
	if !paths.IsWithinWorkspace(abs, e.cfg.WorkspaceRoot) {
		return uri
	}
	rel, err := paths.Canonicalize(abs, e.cfg.WorkspaceRoot)
	if err != nil {
		return uri
	}
	return rel
}

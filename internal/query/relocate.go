package query

import (
	"context"
	"strings"

	"callmap/internal/errors"
	"callmap/internal/graph"
	"callmap/internal/paths"
	"callmap/internal/relocate"
	"callmap/internal/store"
)

// RelocateRequest re-finds one stored graph node in the current source.
// Node accepts either a node ID or, as a convenience, a node label.
type RelocateRequest struct {
	GraphID string
	Node    string
}

// RelocateResult reports where the node lives now. When the source file
// still matches its recorded fingerprint the stored location is current
// and no search runs.
type RelocateResult struct {
	GraphID     string            `json:"graphId"`
	Node        *graph.Node       `json:"node"`
	SourceState store.SourceState `json:"sourceState"`
	Skipped     bool              `json:"skipped"`
	Match       *relocate.Match   `json:"match,omitempty"`
	Provenance  *Provenance       `json:"-"`
}

// Relocate re-resolves a stored node against the file as it exists
// today. Misses flag the node as broken in the store; successful
// matches clear the flag.
func (e *Engine) Relocate(ctx context.Context, req RelocateRequest) (*RelocateResult, error) {
	g, err := e.graphs.GetGraph(req.GraphID)
	if err != nil {
		return nil, err
	}

	node := g.Node(req.Node)
	if node == nil {
		for _, n := range g.Nodes {
			if n.Label == req.Node {
				node = n
				break
			}
		}
	}
	if node == nil {
		return nil, errors.New(errors.NodeNotFound, "node not found in graph: "+req.Node)
	}

	prov := e.newProvenance()
	state, err := e.fingerprints.Verify(node.URI)
	if err != nil {
		e.logger.Warn("Fingerprint check failed", map[string]interface{}{
			"uri":   node.URI,
			"error": err.Error(),
		})
		state = store.SourceUnknown
	}

	result := &RelocateResult{
		GraphID:     g.ID,
		Node:        node,
		SourceState: state,
		Provenance:  prov,
	}

	if state == store.SourceUnchanged {
		result.Skipped = true
		prov.Completeness = Completeness{Score: 1.0, Reason: "source fingerprint unchanged"}
		return result, nil
	}

	// Stored URIs are workspace-relative; the symbol source and the
	// line-scan fallback both want real filesystem locations.
	abs := e.absPath(paths.FromFileURI(node.URI))
	source := e.symbolSource(abs, prov)
	relocator := relocate.NewRelocator(source, e.logger)

	line := node.Line
	match, err := relocator.Relocate(ctx, relocate.StoredRef{
		Name:          storedName(node),
		ContainerName: node.ContainerName,
		URI:           paths.ToFileURI(abs),
		Line:          &line,
	})
	if err != nil {
		if flagErr := e.graphs.SetNodeStatus(g.ID, node.ID, store.StatusBroken, "relocation miss"); flagErr != nil {
			e.logger.Warn("Failed to flag broken node", map[string]interface{}{
				"nodeId": node.ID,
				"error":  flagErr.Error(),
			})
		}
		return nil, err
	}

	if err := e.graphs.SetNodeStatus(g.ID, node.ID, store.StatusOK, ""); err != nil {
		e.logger.Warn("Failed to clear node status", map[string]interface{}{
			"nodeId": node.ID,
			"error":  err.Error(),
		})
	}
	match.URI = e.relativeURI(match.URI)
	result.Match = match
	return result, nil
}

// storedName strips the container qualifier from a node label so the
// structural search can treat container and member independently.
func storedName(node *graph.Node) string {
	if node.ContainerName != "" {
		return strings.TrimPrefix(node.Label, node.ContainerName+".")
	}
	return node.Label
}

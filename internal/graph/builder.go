package graph

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"callmap/internal/errors"
	"callmap/internal/logging"
	"callmap/internal/lsp"
	"callmap/internal/signature"
)

// Depth limits for one expansion. Deeper graphs explode combinatorially
// on real codebases and stop being readable.
const (
	MinDepth     = 1
	MaxDepth     = 4
	DefaultDepth = 2

	// DefaultMaxNodes bounds the total node count per graph.
	DefaultMaxNodes = 100
)

// Provider supplies the call hierarchy primitives for one language. The
// language binding happens in the provider; the builder is language-blind.
type Provider interface {
	PrepareCallHierarchy(ctx context.Context, uri string, pos lsp.Position) ([]lsp.CallHierarchyItem, error)
	IncomingCalls(ctx context.Context, item lsp.CallHierarchyItem) ([]lsp.CallHierarchyIncomingCall, error)
	OutgoingCalls(ctx context.Context, item lsp.CallHierarchyItem) ([]lsp.CallHierarchyOutgoingCall, error)
	Hover(ctx context.Context, uri string, pos lsp.Position) (string, error)
}

// Builder expands call graphs through a Provider.
type Builder struct {
	provider Provider
	logger   *logging.Logger
	maxNodes int
}

// NewBuilder creates a builder. maxNodes <= 0 selects the default budget.
func NewBuilder(provider Provider, logger *logging.Logger, maxNodes int) *Builder {
	if maxNodes <= 0 {
		maxNodes = DefaultMaxNodes
	}
	return &Builder{
		provider: provider,
		logger:   logger,
		maxNodes: maxNodes,
	}
}

// BuildRequest names the root symbol position and expansion bounds.
type BuildRequest struct {
	URI       string
	Position  lsp.Position
	Direction Direction
	Depth     int
}

// build-session state. Each Build call owns a fresh one; nothing is
// shared between graphs.
type session struct {
	graph   *Graph
	visited map[string]bool
	edges   map[string]bool
	nodes   map[string]*Node
}

type frontierEntry struct {
	item  lsp.CallHierarchyItem
	depth int
}

// Build expands a call graph breadth-first from the symbol at the request
// position. An unresolvable root aborts with no partial graph; failures
// expanding individual nodes are logged and skipped so one bad item cannot
// sink the rest of the graph.
func (b *Builder) Build(ctx context.Context, req BuildRequest) (*Graph, error) {
	direction, err := ParseDirection(string(req.Direction))
	if err != nil {
		return nil, err
	}

	depth := req.Depth
	if depth == 0 {
		depth = DefaultDepth
	}
	if depth < MinDepth {
		depth = MinDepth
	}
	if depth > MaxDepth {
		depth = MaxDepth
	}

	items, err := b.provider.PrepareCallHierarchy(ctx, req.URI, req.Position)
	if err != nil {
		return nil, errors.Wrap(errors.SymbolNotResolvable, "failed to resolve root symbol", err)
	}
	if len(items) == 0 {
		return nil, errors.New(errors.SymbolNotResolvable, "no resolvable symbol at the requested position")
	}
	root := items[0]

	s := &session{
		graph: &Graph{
			ID:        uuid.NewString(),
			Direction: direction,
			Depth:     depth,
			CreatedAt: time.Now().UTC(),
		},
		visited: make(map[string]bool),
		edges:   make(map[string]bool),
		nodes:   make(map[string]*Node),
	}

	rootNode := b.addNode(ctx, s, root, 0)
	s.graph.RootID = rootNode.ID
	s.visited[rootNode.ID] = true

	queue := []frontierEntry{{item: root, depth: 0}}

	for len(queue) > 0 {
		entry := queue[0]
		queue = queue[1:]

		if entry.depth >= depth {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(errors.Timeout, "graph build cancelled", err)
		}

		if direction == DirectionBoth || direction == DirectionCallers {
			queue = b.expandIncoming(ctx, s, entry, queue)
		}
		if direction == DirectionBoth || direction == DirectionCallees {
			queue = b.expandOutgoing(ctx, s, entry, queue)
		}
	}

	return s.graph, nil
}

func (b *Builder) expandIncoming(ctx context.Context, s *session, entry frontierEntry, queue []frontierEntry) []frontierEntry {
	calls, err := b.provider.IncomingCalls(ctx, entry.item)
	if err != nil {
		b.logger.Warn("Failed to expand incoming calls", map[string]interface{}{
			"symbol": entry.item.Name,
			"uri":    entry.item.URI,
			"error":  err.Error(),
		})
		return queue
	}

	toID := itemID(entry.item)
	for _, call := range calls {
		queue = b.link(ctx, s, call.From, toID, true, entry.depth, queue)
	}
	return queue
}

func (b *Builder) expandOutgoing(ctx context.Context, s *session, entry frontierEntry, queue []frontierEntry) []frontierEntry {
	calls, err := b.provider.OutgoingCalls(ctx, entry.item)
	if err != nil {
		b.logger.Warn("Failed to expand outgoing calls", map[string]interface{}{
			"symbol": entry.item.Name,
			"uri":    entry.item.URI,
			"error":  err.Error(),
		})
		return queue
	}

	fromID := itemID(entry.item)
	for _, call := range calls {
		queue = b.link(ctx, s, call.To, fromID, false, entry.depth, queue)
	}
	return queue
}

// link materializes the far end of one call and records the edge. For
// incoming calls the far item is the caller (edge far -> near); for
// outgoing calls it is the callee (edge near -> far). New items join the
// frontier one level deeper.
func (b *Builder) link(ctx context.Context, s *session, far lsp.CallHierarchyItem, nearID string, incoming bool, depth int, queue []frontierEntry) []frontierEntry {
	farID := itemID(far)

	if s.nodes[farID] == nil {
		if len(s.nodes) >= b.maxNodes {
			s.graph.Truncated = true
			return queue
		}
		b.addNode(ctx, s, far, depth+1)
	}

	if incoming {
		b.addEdge(s, farID, nearID)
	} else {
		b.addEdge(s, nearID, farID)
	}

	if !s.visited[farID] {
		s.visited[farID] = true
		queue = append(queue, frontierEntry{item: far, depth: depth + 1})
	}
	return queue
}

// addNode materializes a node for an item, resolving its display label and
// signature. Nodes are created exactly once per identity key.
func (b *Builder) addNode(ctx context.Context, s *session, item lsp.CallHierarchyItem, depth int) *Node {
	id := itemID(item)
	if existing := s.nodes[id]; existing != nil {
		return existing
	}

	label := signature.BareName(item.Name)
	node := &Node{
		ID:            id,
		Label:         label,
		URI:           item.URI,
		Line:          item.SelectionRange.Start.Line,
		Column:        item.SelectionRange.Start.Character,
		Kind:          item.Kind.String(),
		ContainerName: containerOf(label),
		Signature:     b.resolveSignature(ctx, item),
		Depth:         depth,
	}

	s.nodes[id] = node
	s.graph.Nodes = append(s.graph.Nodes, node)
	return node
}

// addEdge appends a deduplicated directed edge.
func (b *Builder) addEdge(s *session, fromID, toID string) {
	key := fromID + "->" + toID
	if s.edges[key] {
		return
	}
	s.edges[key] = true
	s.graph.Edges = append(s.graph.Edges, Edge{From: fromID, To: toID})
}

// containerOf derives the containing scope from a qualified bare name.
// "Calculator.add" records Calculator; plain names record nothing.
func containerOf(label string) string {
	if idx := strings.LastIndex(label, "."); idx > 0 {
		return label[:idx]
	}
	return ""
}

// resolveSignature prefers a signature extracted from hover markup and
// falls back to one embedded in the symbol name or detail. Empty means
// undetectable; the node simply carries no signature.
func (b *Builder) resolveSignature(ctx context.Context, item lsp.CallHierarchyItem) string {
	hoverText, err := b.provider.Hover(ctx, item.URI, item.SelectionRange.Start)
	if err != nil {
		b.logger.Debug("Hover lookup failed", map[string]interface{}{
			"symbol": item.Name,
			"error":  err.Error(),
		})
	} else if hoverText != "" {
		if sig, ok := signature.ExtractFromHover(hoverText); ok {
			return sig
		}
	}

	return signature.Normalize(item.Name, item.Detail).Signature
}

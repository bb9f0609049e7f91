package scip

import (
	"context"
	"sort"
	"strings"

	"callmap/internal/errors"
	"callmap/internal/logging"
	"callmap/internal/lsp"
	"callmap/internal/paths"
)

// Provider serves the call-hierarchy, hover, and document-symbol
// surface from a loaded index. Queries are in-memory; the context
// parameters exist to satisfy the shared provider contracts.
type Provider struct {
	index  *Index
	root   string
	logger *logging.Logger
}

// NewProvider wraps a loaded index for the given workspace root.
func NewProvider(index *Index, workspaceRoot string, logger *logging.Logger) *Provider {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Provider{index: index, root: workspaceRoot, logger: logger}
}

// Index exposes the underlying index for freshness checks.
func (p *Provider) Index() *Index {
	return p.index
}

// PrepareCallHierarchy resolves the callable at a position. A position
// on a definition name wins, then one on a call site, then the function
// whose body spans the line, so cursor-in-body behaves like a live
// server.
func (p *Provider) PrepareCallHierarchy(ctx context.Context, uri string, pos lsp.Position) ([]lsp.CallHierarchyItem, error) {
	doc := p.document(uri)
	if doc == nil {
		return nil, errors.New(errors.IndexMissing, "file not present in SCIP index: "+uri)
	}

	for _, occ := range doc.Occurrences {
		if occ.Roles&symbolRoleDefinition == 0 || !callable(occ.Symbol) {
			continue
		}
		if r, ok := occurrenceRange(occ); ok && containsPosition(r, pos) {
			return []lsp.CallHierarchyItem{p.item(occ.Symbol, doc, occ)}, nil
		}
	}

	for _, occ := range doc.Occurrences {
		if occ.Roles&symbolRoleDefinition != 0 || !callable(occ.Symbol) {
			continue
		}
		r, ok := occurrenceRange(occ)
		if !ok || !containsPosition(r, pos) {
			continue
		}
		if defDoc, def := p.index.definition(occ.Symbol); def != nil {
			return []lsp.CallHierarchyItem{p.item(occ.Symbol, defDoc, def)}, nil
		}
	}

	spans := functionSpans(doc)
	enclosing := enclosingCallable(spans, pos.Line)
	if enclosing == "" {
		return nil, nil
	}
	p.logger.Debug("Resolved position through enclosing function span", map[string]interface{}{
		"uri":    uri,
		"line":   pos.Line,
		"symbol": enclosing,
	})
	if defDoc, def := p.index.definition(enclosing); def != nil {
		return []lsp.CallHierarchyItem{p.item(enclosing, defDoc, def)}, nil
	}
	return nil, nil
}

// IncomingCalls finds the callables whose bodies reference the item,
// with one entry per caller aggregating all call sites.
func (p *Provider) IncomingCalls(ctx context.Context, item lsp.CallHierarchyItem) ([]lsp.CallHierarchyIncomingCall, error) {
	symbolID, _ := p.symbolAt(item.URI, item.SelectionRange.Start)
	if symbolID == "" {
		return nil, nil
	}

	var calls []lsp.CallHierarchyIncomingCall
	byCaller := make(map[string]int)

	for _, doc := range p.index.Documents {
		spans := functionSpans(doc)
		for _, occ := range doc.Occurrences {
			if occ.Symbol != symbolID || occ.Roles&symbolRoleDefinition != 0 {
				continue
			}
			r, ok := occurrenceRange(occ)
			if !ok {
				continue
			}
			caller := enclosingCallable(spans, r.Start.Line)
			if caller == "" {
				continue
			}
			if i, seen := byCaller[caller]; seen {
				calls[i].FromRanges = append(calls[i].FromRanges, r)
				continue
			}
			defDoc, defOcc := p.index.definition(caller)
			if defOcc == nil {
				continue
			}
			byCaller[caller] = len(calls)
			calls = append(calls, lsp.CallHierarchyIncomingCall{
				From:       p.item(caller, defDoc, defOcc),
				FromRanges: []lsp.Range{r},
			})
		}
	}
	return calls, nil
}

// OutgoingCalls finds the callables referenced inside the item's body.
// Symbols with no definition in the index, typically dependencies, are
// left out.
func (p *Provider) OutgoingCalls(ctx context.Context, item lsp.CallHierarchyItem) ([]lsp.CallHierarchyOutgoingCall, error) {
	symbolID, doc := p.symbolAt(item.URI, item.SelectionRange.Start)
	if symbolID == "" || doc == nil {
		return nil, nil
	}

	spans := functionSpans(doc)
	body, ok := spans[symbolID]
	if !ok {
		return nil, nil
	}

	var calls []lsp.CallHierarchyOutgoingCall
	byCallee := make(map[string]int)

	for _, occ := range doc.Occurrences {
		if occ.Roles&symbolRoleDefinition != 0 || !callable(occ.Symbol) {
			continue
		}
		r, ok := occurrenceRange(occ)
		if !ok || r.Start.Line < body.start || r.Start.Line > body.end {
			continue
		}
		// nested functions own their occurrences
		if enclosingCallable(spans, r.Start.Line) != symbolID {
			continue
		}
		if i, seen := byCallee[occ.Symbol]; seen {
			calls[i].FromRanges = append(calls[i].FromRanges, r)
			continue
		}
		defDoc, defOcc := p.index.definition(occ.Symbol)
		if defOcc == nil {
			continue
		}
		byCallee[occ.Symbol] = len(calls)
		calls = append(calls, lsp.CallHierarchyOutgoingCall{
			To:         p.item(occ.Symbol, defDoc, defOcc),
			FromRanges: []lsp.Range{r},
		})
	}
	return calls, nil
}

// Hover returns the markdown documentation the indexer recorded for the
// symbol at a position. Most indexers open it with a fenced code block
// carrying the declaration, which feeds signature extraction.
func (p *Provider) Hover(ctx context.Context, uri string, pos lsp.Position) (string, error) {
	doc := p.document(uri)
	if doc == nil {
		return "", nil
	}
	for _, occ := range doc.Occurrences {
		r, ok := occurrenceRange(occ)
		if !ok || !containsPosition(r, pos) {
			continue
		}
		if info := p.index.Symbol(occ.Symbol); info != nil && len(info.Documentation) > 0 {
			return strings.Join(info.Documentation, "\n\n"), nil
		}
	}
	return "", nil
}

// DocumentSymbols reconstructs the hierarchical symbol tree of a file
// from its definition occurrences. Nesting follows the recorded
// enclosing symbol when present and the descriptor structure otherwise.
func (p *Provider) DocumentSymbols(ctx context.Context, uri string) ([]lsp.DocumentSymbol, error) {
	doc := p.document(uri)
	if doc == nil {
		return nil, errors.New(errors.IndexMissing, "file not present in SCIP index: "+uri)
	}

	occs := make(map[string]*Occurrence)
	var order []string
	for _, occ := range doc.Occurrences {
		if occ.Roles&symbolRoleDefinition == 0 {
			continue
		}
		// locals are parameters and variables, not tree nodes
		if strings.HasPrefix(occ.Symbol, "local ") {
			continue
		}
		if _, seen := occs[occ.Symbol]; seen {
			continue
		}
		occs[occ.Symbol] = occ
		order = append(order, occ.Symbol)
	}

	children := make(map[string][]string)
	var roots []string
	for _, id := range order {
		pid := parentID(id)
		if info := p.index.Symbol(id); info != nil && info.EnclosingSymbol != "" {
			pid = info.EnclosingSymbol
		}
		if _, ok := occs[pid]; pid != "" && ok {
			children[pid] = append(children[pid], id)
			continue
		}
		roots = append(roots, id)
	}

	spans := functionSpans(doc)

	var build func(id string) lsp.DocumentSymbol
	build = func(id string) lsp.DocumentSymbol {
		occ := occs[id]
		sel, _ := occurrenceRange(occ)
		full := sel
		if r, ok := enclosingRangeOf(occ); ok {
			full = r
		} else if s, ok := spans[id]; ok {
			full = lsp.Range{
				Start: lsp.Position{Line: s.start},
				End:   lsp.Position{Line: s.end},
			}
		}
		node := lsp.DocumentSymbol{
			Name:           leafName(symbolName(id)),
			Kind:           p.kindOf(id),
			Range:          full,
			SelectionRange: sel,
		}
		for _, kid := range children[id] {
			node.Children = append(node.Children, build(kid))
		}
		sortSymbols(node.Children)
		return node
	}

	out := make([]lsp.DocumentSymbol, 0, len(roots))
	for _, id := range roots {
		out = append(out, build(id))
	}
	sortSymbols(out)
	return out, nil
}

func (p *Provider) document(uri string) *Document {
	rel := p.relPath(uri)
	if rel == "" {
		return nil
	}
	return p.index.Document(rel)
}

func (p *Provider) relPath(uri string) string {
	abs := paths.FromFileURI(uri)
	rel, err := paths.Canonicalize(abs, p.root)
	if err != nil || strings.HasPrefix(rel, "..") {
		return ""
	}
	return rel
}

func (p *Provider) fileURI(relativePath string) string {
	return paths.ToFileURI(paths.JoinWorkspace(p.root, relativePath))
}

// symbolAt re-resolves the symbol behind an item produced by this
// provider using its selection range.
func (p *Provider) symbolAt(uri string, pos lsp.Position) (string, *Document) {
	doc := p.document(uri)
	if doc == nil {
		return "", nil
	}
	for _, occ := range doc.Occurrences {
		if occ.Roles&symbolRoleDefinition == 0 || !callable(occ.Symbol) {
			continue
		}
		if r, ok := occurrenceRange(occ); ok && containsPosition(r, pos) {
			return occ.Symbol, doc
		}
	}
	return "", doc
}

func (p *Provider) item(symbolID string, doc *Document, occ *Occurrence) lsp.CallHierarchyItem {
	sel, _ := occurrenceRange(occ)
	full := sel
	if r, ok := enclosingRangeOf(occ); ok {
		full = r
	}
	return lsp.CallHierarchyItem{
		Name:           symbolName(symbolID),
		Kind:           p.kindOf(symbolID),
		URI:            p.fileURI(doc.RelativePath),
		Range:          full,
		SelectionRange: sel,
	}
}

// kindOf prefers the indexer-recorded kind and falls back to the
// descriptor shape.
func (p *Provider) kindOf(symbolID string) lsp.SymbolKind {
	if info := p.index.Symbol(symbolID); info != nil && info.Kind != 0 {
		return info.Kind
	}
	desc := descriptorOf(symbolID)
	if callable(symbolID) {
		if strings.Contains(desc, "#") {
			return lsp.KindMethod
		}
		return lsp.KindFunction
	}
	if strings.HasSuffix(desc, "#") {
		return lsp.KindClass
	}
	return lsp.KindVariable
}

// enclosingCallable picks the innermost function whose span covers the
// line.
func enclosingCallable(spans map[string]span, line int) string {
	best := ""
	bestStart := -1
	for id, s := range spans {
		if line >= s.start && line <= s.end && s.start > bestStart {
			best, bestStart = id, s.start
		}
	}
	return best
}

func containsPosition(r lsp.Range, pos lsp.Position) bool {
	if pos.Line < r.Start.Line || pos.Line > r.End.Line {
		return false
	}
	if pos.Line == r.Start.Line && pos.Character < r.Start.Character {
		return false
	}
	if pos.Line == r.End.Line && pos.Character > r.End.Character {
		return false
	}
	return true
}

func sortSymbols(nodes []lsp.DocumentSymbol) {
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].SelectionRange.Start.Line != nodes[j].SelectionRange.Start.Line {
			return nodes[i].SelectionRange.Start.Line < nodes[j].SelectionRange.Start.Line
		}
		return nodes[i].SelectionRange.Start.Character < nodes[j].SelectionRange.Start.Character
	})
}

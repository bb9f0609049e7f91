package scip

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	scippb "github.com/sourcegraph/scip/bindings/go/scip"
	"google.golang.org/protobuf/proto"

	"callmap/internal/errors"
	"callmap/internal/logging"
	"callmap/internal/lsp"
	"callmap/internal/paths"
)

const testPrefix = "scip-typescript npm demo 1.0.0 "

var (
	calcClassSym = testPrefix + "`src/calc.ts`/Calculator#"
	addSym       = testPrefix + "`src/calc.ts`/Calculator#add()."
	checkSym     = testPrefix + "`src/calc.ts`/Calculator#checkOverflow()."
	mainSym      = testPrefix + "`src/calc.ts`/main()."
	helperSym    = testPrefix + "`src/util.ts`/helper()."
	debounceSym  = "scip-typescript npm lodash 4.0.0 `lodash`/debounce()."
)

func occurrence(symbol string, rng []int32, roles int32, enclosing ...int32) *scippb.Occurrence {
	o := &scippb.Occurrence{Range: rng, Symbol: symbol, SymbolRoles: roles}
	if len(enclosing) > 0 {
		o.EnclosingRange = enclosing
	}
	return o
}

// fixtureIndex models two TypeScript files: calc.ts with a Calculator
// class (add calls checkOverflow; main calls add twice and an external
// debounce) and util.ts with a helper that calls add.
func fixtureIndex() *scippb.Index {
	def := int32(scippb.SymbolRole_Definition)
	return &scippb.Index{
		Metadata: &scippb.Metadata{
			ProjectRoot: "file:///demo",
			ToolInfo:    &scippb.ToolInfo{Name: "scip-typescript"},
		},
		Documents: []*scippb.Document{
			{
				RelativePath: "src/calc.ts",
				Language:     "typescript",
				Occurrences: []*scippb.Occurrence{
					occurrence(calcClassSym, []int32{2, 6, 16}, def),
					occurrence(addSym, []int32{4, 2, 5}, def, 4, 2, 7, 3),
					occurrence("local 0", []int32{4, 6, 7}, def),
					occurrence(checkSym, []int32{5, 16, 29}, 0),
					occurrence(checkSym, []int32{9, 2, 15}, def, 9, 2, 11, 3),
					occurrence(mainSym, []int32{14, 16, 20}, def, 14, 0, 18, 1),
					occurrence(calcClassSym, []int32{15, 16, 26}, 0),
					occurrence(debounceSym, []int32{15, 30, 38}, 0),
					occurrence(addSym, []int32{16, 4, 7}, 0),
					occurrence(addSym, []int32{17, 4, 7}, 0),
				},
				Symbols: []*scippb.SymbolInformation{
					{Symbol: calcClassSym},
					{
						Symbol: addSym,
						Documentation: []string{
							"```typescript\n(method) Calculator.add(a: number, b: number): number\n```",
						},
					},
					{Symbol: checkSym},
					{Symbol: mainSym},
				},
			},
			{
				RelativePath: "src/util.ts",
				Language:     "typescript",
				Occurrences: []*scippb.Occurrence{
					occurrence(helperSym, []int32{1, 9, 15}, def),
					occurrence(addSym, []int32{2, 10, 13}, 0),
				},
				Symbols: []*scippb.SymbolInformation{
					{Symbol: helperSym},
				},
			},
		},
		ExternalSymbols: []*scippb.SymbolInformation{
			{
				Symbol: debounceSym,
				Documentation: []string{
					"```typescript\nfunction debounce(fn: Function, wait: number): Function\n```",
				},
			},
		},
	}
}

func writeIndex(t *testing.T, dir string, raw *scippb.Index) string {
	t.Helper()
	data, err := proto.Marshal(raw)
	if err != nil {
		t.Fatalf("proto.Marshal() error = %v", err)
	}
	path := filepath.Join(dir, DefaultIndexName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func loadFixture(t *testing.T) (*Provider, string) {
	t.Helper()
	root := t.TempDir()
	idx, err := Load(writeIndex(t, root, fixtureIndex()))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return NewProvider(idx, root, logging.Discard()), root
}

func fileURI(root, rel string) string {
	return paths.ToFileURI(filepath.Join(root, filepath.FromSlash(rel)))
}

func prepareOne(t *testing.T, p *Provider, uri string, pos lsp.Position) lsp.CallHierarchyItem {
	t.Helper()
	items, err := p.PrepareCallHierarchy(context.Background(), uri, pos)
	if err != nil {
		t.Fatalf("PrepareCallHierarchy() error = %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("PrepareCallHierarchy() returned %d items, want 1", len(items))
	}
	return items[0]
}

func TestLoadMissingIndex(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "none.scip"))
	if !errors.IsCode(err, errors.IndexMissing) {
		t.Errorf("Load() error = %v, want IndexMissing", err)
	}
}

func TestLoadCorruptIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.scip")
	if err := os.WriteFile(path, []byte("this is not an index"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if !errors.IsCode(err, errors.IndexMissing) {
		t.Errorf("Load() error = %v, want IndexMissing", err)
	}
}

func TestLoadBuildsLookups(t *testing.T) {
	p, _ := loadFixture(t)
	idx := p.Index()

	if len(idx.Documents) != 2 {
		t.Fatalf("Documents = %d, want 2", len(idx.Documents))
	}
	if idx.Tool != "scip-typescript" {
		t.Errorf("Tool = %q, want scip-typescript", idx.Tool)
	}
	if idx.Document("src/calc.ts") == nil {
		t.Error("Document(src/calc.ts) = nil")
	}
	if idx.Document("src/ghost.ts") != nil {
		t.Error("Document(src/ghost.ts) != nil")
	}

	info := idx.Symbol(addSym)
	if info == nil {
		t.Fatal("Symbol(add) = nil")
	}
	if len(info.Documentation) != 1 {
		t.Errorf("Documentation entries = %d, want 1", len(info.Documentation))
	}
	if idx.Symbol(debounceSym) == nil {
		t.Error("Symbol(debounce) = nil, want external symbol metadata")
	}
}

func TestSymbolName(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{addSym, "Calculator.add"},
		{mainSym, "main"},
		{calcClassSym, "Calculator"},
		{"scip-typescript npm @types/node 18.0.0 process.env.NODE_ENV.", "process.env.NODE_ENV"},
		{"scip-go gomod demo abc123 `demo/pkg`/Parse(+1).", "Parse"},
		{"scip-go gomod demo abc123 `demo/pkg`/Engine#Close().", "Engine.Close"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := symbolName(tt.id); got != tt.want {
				t.Errorf("symbolName(%q) = %q, want %q", tt.id, got, tt.want)
			}
		})
	}
}

func TestParentID(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want string
	}{
		{"method", addSym, calcClassSym},
		{"function", mainSym, ""},
		{"type", calcClassSym, ""},
		{"nested type", "p m pkg v Outer#Inner#", "p m pkg v Outer#"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parentID(tt.id); got != tt.want {
				t.Errorf("parentID(%q) = %q, want %q", tt.id, got, tt.want)
			}
		})
	}
}

func TestCallable(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{addSym, true},
		{"scip-go gomod demo abc123 `demo/pkg`/Parse(+1).", true},
		{calcClassSym, false},
		{"local 0", false},
	}

	for _, tt := range tests {
		if got := callable(tt.id); got != tt.want {
			t.Errorf("callable(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestResolveIndexPath(t *testing.T) {
	root := string(filepath.Separator) + filepath.Join("work", "repo")

	if got := ResolveIndexPath(root, ""); got != filepath.Join(root, "index.scip") {
		t.Errorf("ResolveIndexPath(root, \"\") = %q", got)
	}
	if got := ResolveIndexPath(root, "build/custom.scip"); got != filepath.Join(root, "build", "custom.scip") {
		t.Errorf("ResolveIndexPath(root, relative) = %q", got)
	}
	abs := string(filepath.Separator) + filepath.Join("var", "idx.scip")
	if got := ResolveIndexPath(root, abs); got != abs {
		t.Errorf("ResolveIndexPath(root, abs) = %q, want %q", got, abs)
	}
}

func TestPrepareCallHierarchyAtDefinition(t *testing.T) {
	p, root := loadFixture(t)

	item := prepareOne(t, p, fileURI(root, "src/calc.ts"), lsp.Position{Line: 4, Character: 3})
	if item.Name != "Calculator.add" {
		t.Errorf("Name = %q, want Calculator.add", item.Name)
	}
	if item.Kind != lsp.KindMethod {
		t.Errorf("Kind = %v, want method", item.Kind)
	}
	if item.SelectionRange.Start.Line != 4 || item.SelectionRange.Start.Character != 2 {
		t.Errorf("SelectionRange.Start = %+v, want 4:2", item.SelectionRange.Start)
	}
	if item.Range.End.Line != 7 {
		t.Errorf("Range.End.Line = %d, want 7 from enclosing range", item.Range.End.Line)
	}
	if !strings.HasSuffix(item.URI, "src/calc.ts") {
		t.Errorf("URI = %q, want calc.ts suffix", item.URI)
	}
}

func TestPrepareCallHierarchyAtCallSite(t *testing.T) {
	p, root := loadFixture(t)

	item := prepareOne(t, p, fileURI(root, "src/calc.ts"), lsp.Position{Line: 16, Character: 5})
	if item.Name != "Calculator.add" {
		t.Errorf("Name = %q, want Calculator.add", item.Name)
	}
	if item.SelectionRange.Start.Line != 4 {
		t.Errorf("SelectionRange.Start.Line = %d, want definition line 4", item.SelectionRange.Start.Line)
	}
}

func TestPrepareCallHierarchyInBody(t *testing.T) {
	p, root := loadFixture(t)

	item := prepareOne(t, p, fileURI(root, "src/calc.ts"), lsp.Position{Line: 15, Character: 0})
	if item.Name != "main" {
		t.Errorf("Name = %q, want enclosing function main", item.Name)
	}
	if item.Kind != lsp.KindFunction {
		t.Errorf("Kind = %v, want function", item.Kind)
	}
}

func TestPrepareCallHierarchyMisses(t *testing.T) {
	p, root := loadFixture(t)

	_, err := p.PrepareCallHierarchy(context.Background(), fileURI(root, "src/ghost.ts"), lsp.Position{})
	if !errors.IsCode(err, errors.IndexMissing) {
		t.Errorf("unindexed file error = %v, want IndexMissing", err)
	}

	items, err := p.PrepareCallHierarchy(context.Background(), fileURI(root, "src/calc.ts"), lsp.Position{Line: 0, Character: 0})
	if err != nil {
		t.Fatalf("PrepareCallHierarchy() error = %v", err)
	}
	if len(items) != 0 {
		t.Errorf("items = %d, want 0 outside any symbol", len(items))
	}
}

func TestIncomingCalls(t *testing.T) {
	p, root := loadFixture(t)
	item := prepareOne(t, p, fileURI(root, "src/calc.ts"), lsp.Position{Line: 4, Character: 3})

	calls, err := p.IncomingCalls(context.Background(), item)
	if err != nil {
		t.Fatalf("IncomingCalls() error = %v", err)
	}
	if len(calls) != 2 {
		t.Fatalf("IncomingCalls() = %d callers, want 2", len(calls))
	}

	byName := make(map[string]lsp.CallHierarchyIncomingCall)
	for _, c := range calls {
		byName[c.From.Name] = c
	}

	main, ok := byName["main"]
	if !ok {
		t.Fatal("main missing from callers")
	}
	if len(main.FromRanges) != 2 {
		t.Errorf("main FromRanges = %d, want both call sites", len(main.FromRanges))
	}
	if main.From.SelectionRange.Start.Line != 14 {
		t.Errorf("main definition line = %d, want 14", main.From.SelectionRange.Start.Line)
	}

	helper, ok := byName["helper"]
	if !ok {
		t.Fatal("helper missing from callers")
	}
	if len(helper.FromRanges) != 1 {
		t.Errorf("helper FromRanges = %d, want 1", len(helper.FromRanges))
	}
	if !strings.HasSuffix(helper.From.URI, "src/util.ts") {
		t.Errorf("helper URI = %q, want util.ts suffix", helper.From.URI)
	}
}

func TestOutgoingCalls(t *testing.T) {
	p, root := loadFixture(t)
	item := prepareOne(t, p, fileURI(root, "src/calc.ts"), lsp.Position{Line: 4, Character: 3})

	calls, err := p.OutgoingCalls(context.Background(), item)
	if err != nil {
		t.Fatalf("OutgoingCalls() error = %v", err)
	}
	if len(calls) != 1 {
		t.Fatalf("OutgoingCalls() = %d callees, want 1", len(calls))
	}
	if calls[0].To.Name != "Calculator.checkOverflow" {
		t.Errorf("To.Name = %q, want Calculator.checkOverflow", calls[0].To.Name)
	}
	if calls[0].To.SelectionRange.Start.Line != 9 {
		t.Errorf("callee definition line = %d, want 9", calls[0].To.SelectionRange.Start.Line)
	}
}

func TestOutgoingCallsSkipsExternalTargets(t *testing.T) {
	p, root := loadFixture(t)
	item := prepareOne(t, p, fileURI(root, "src/calc.ts"), lsp.Position{Line: 14, Character: 17})

	calls, err := p.OutgoingCalls(context.Background(), item)
	if err != nil {
		t.Fatalf("OutgoingCalls() error = %v", err)
	}
	if len(calls) != 1 {
		t.Fatalf("OutgoingCalls() = %d callees, want only the indexed one", len(calls))
	}
	if calls[0].To.Name != "Calculator.add" {
		t.Errorf("To.Name = %q, want Calculator.add", calls[0].To.Name)
	}
	if len(calls[0].FromRanges) != 2 {
		t.Errorf("FromRanges = %d, want both call sites", len(calls[0].FromRanges))
	}
}

func TestHover(t *testing.T) {
	p, root := loadFixture(t)
	uri := fileURI(root, "src/calc.ts")

	tests := []struct {
		name string
		pos  lsp.Position
		want string
	}{
		{"at definition", lsp.Position{Line: 4, Character: 3}, "(method) Calculator.add"},
		{"at call site", lsp.Position{Line: 16, Character: 5}, "(method) Calculator.add"},
		{"external symbol", lsp.Position{Line: 15, Character: 32}, "function debounce"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := p.Hover(context.Background(), uri, tt.pos)
			if err != nil {
				t.Fatalf("Hover() error = %v", err)
			}
			if !strings.Contains(text, tt.want) {
				t.Errorf("Hover() = %q, want it to contain %q", text, tt.want)
			}
		})
	}

	t.Run("no documentation", func(t *testing.T) {
		text, err := p.Hover(context.Background(), uri, lsp.Position{Line: 9, Character: 3})
		if err != nil {
			t.Fatalf("Hover() error = %v", err)
		}
		if text != "" {
			t.Errorf("Hover() = %q, want empty for undocumented symbol", text)
		}
	})
}

func TestDocumentSymbols(t *testing.T) {
	p, root := loadFixture(t)

	tree, err := p.DocumentSymbols(context.Background(), fileURI(root, "src/calc.ts"))
	if err != nil {
		t.Fatalf("DocumentSymbols() error = %v", err)
	}
	if len(tree) != 2 {
		t.Fatalf("roots = %d, want Calculator and main", len(tree))
	}

	calc := tree[0]
	if calc.Name != "Calculator" {
		t.Errorf("roots[0].Name = %q, want Calculator", calc.Name)
	}
	if calc.Kind != lsp.KindClass {
		t.Errorf("Calculator.Kind = %v, want class", calc.Kind)
	}
	if len(calc.Children) != 2 {
		t.Fatalf("Calculator children = %d, want 2", len(calc.Children))
	}
	if calc.Children[0].Name != "add" || calc.Children[1].Name != "checkOverflow" {
		t.Errorf("children = %q, %q; want add, checkOverflow in line order",
			calc.Children[0].Name, calc.Children[1].Name)
	}
	if calc.Children[0].SelectionRange.Start.Line != 4 {
		t.Errorf("add selection line = %d, want 4", calc.Children[0].SelectionRange.Start.Line)
	}
	if calc.Children[0].Range.End.Line != 7 {
		t.Errorf("add range end = %d, want 7 from enclosing range", calc.Children[0].Range.End.Line)
	}

	main := tree[1]
	if main.Name != "main" {
		t.Errorf("roots[1].Name = %q, want main", main.Name)
	}
	if main.Kind != lsp.KindFunction {
		t.Errorf("main.Kind = %v, want function", main.Kind)
	}
	for _, node := range tree {
		if node.Name == "0" || strings.HasPrefix(node.Name, "local") {
			t.Errorf("local symbol %q leaked into the tree", node.Name)
		}
	}
}

func TestDocumentSymbolsMissingFile(t *testing.T) {
	p, root := loadFixture(t)
	_, err := p.DocumentSymbols(context.Background(), fileURI(root, "src/ghost.ts"))
	if !errors.IsCode(err, errors.IndexMissing) {
		t.Errorf("DocumentSymbols() error = %v, want IndexMissing", err)
	}
}

func TestStale(t *testing.T) {
	p, root := loadFixture(t)
	idx := p.Index()

	source := filepath.Join(root, "calc.ts")
	if err := os.WriteFile(source, []byte("export {}\n"), 0644); err != nil {
		t.Fatal(err)
	}

	older := idx.ModTime.Add(-time.Hour)
	if err := os.Chtimes(source, older, older); err != nil {
		t.Fatal(err)
	}
	if idx.Stale(source) {
		t.Error("Stale() = true for a file older than the index")
	}

	newer := idx.ModTime.Add(time.Hour)
	if err := os.Chtimes(source, newer, newer); err != nil {
		t.Fatal(err)
	}
	if !idx.Stale(source) {
		t.Error("Stale() = false for a file newer than the index")
	}

	if idx.Stale(filepath.Join(root, "missing.ts")) {
		t.Error("Stale() = true for a missing file")
	}
}

func TestFunctionSpansHeuristic(t *testing.T) {
	p, _ := loadFixture(t)
	doc := p.Index().Document("src/util.ts")

	spans := functionSpans(doc)
	s, ok := spans[helperSym]
	if !ok {
		t.Fatal("helper missing from spans")
	}
	if s.start != 1 {
		t.Errorf("start = %d, want 1", s.start)
	}
	if s.end != 1+maxFunctionSpan {
		t.Errorf("end = %d, want bounded default %d", s.end, 1+maxFunctionSpan)
	}
}

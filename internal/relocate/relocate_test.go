package relocate

import (
	"testing"

	"callmap/internal/lsp"
)

func sym(name string, line int, children ...lsp.DocumentSymbol) lsp.DocumentSymbol {
	return lsp.DocumentSymbol{
		Name: name,
		Kind: lsp.KindMethod,
		Range: lsp.Range{
			Start: lsp.Position{Line: line},
			End:   lsp.Position{Line: line + 3},
		},
		SelectionRange: lsp.Range{
			Start: lsp.Position{Line: line, Character: 4},
			End:   lsp.Position{Line: line, Character: 4 + len(name)},
		},
		Children: children,
	}
}

func intPtr(n int) *int {
	return &n
}

func calculatorTree() []lsp.DocumentSymbol {
	return []lsp.DocumentSymbol{
		sym("Calculator", 10,
			sym("add", 22),
			sym("subtract", 34),
			sym("multiply", 40),
		),
	}
}

func TestFindContainerChildExact(t *testing.T) {
	stored := StoredRef{Name: "multiply", ContainerName: "Calculator", URI: "file:///src/calc.ts", Line: intPtr(40)}

	match, ok := Find(stored, calculatorTree())
	if !ok {
		t.Fatal("Expected a match")
	}
	if match.Strategy != StrategyContainerChild {
		t.Errorf("Strategy = %s, want %s", match.Strategy, StrategyContainerChild)
	}
	if match.Line != 40 {
		t.Errorf("Line = %d, want 40", match.Line)
	}
	if match.Confidence != ConfidenceHigh {
		t.Errorf("Confidence = %s, want high", match.Confidence)
	}
	if match.URI != stored.URI {
		t.Errorf("URI = %s, want %s", match.URI, stored.URI)
	}
}

func TestFindContainerChildExactSurvivesLineDrift(t *testing.T) {
	stored := StoredRef{Name: "multiply", ContainerName: "Calculator", Line: intPtr(12)}

	match, ok := Find(stored, calculatorTree())
	if !ok {
		t.Fatal("Expected a match despite drifted line")
	}
	if match.Strategy != StrategyContainerChild {
		t.Errorf("Strategy = %s, want %s", match.Strategy, StrategyContainerChild)
	}
	if match.Line != 40 {
		t.Errorf("Line = %d, want live line 40", match.Line)
	}
}

func TestFindContainerChildBare(t *testing.T) {
	tree := []lsp.DocumentSymbol{
		sym("Calculator", 10, sym("multiply(x, y)", 40)),
	}
	stored := StoredRef{Name: "multiply", ContainerName: "Calculator"}

	match, ok := Find(stored, tree)
	if !ok {
		t.Fatal("Expected a match")
	}
	if match.Strategy != StrategyContainerChildBare {
		t.Errorf("Strategy = %s, want %s", match.Strategy, StrategyContainerChildBare)
	}
	if match.Name != "multiply(x, y)" {
		t.Errorf("Name = %q, want live raw name", match.Name)
	}
}

func TestFindContainerChildLine(t *testing.T) {
	tree := []lsp.DocumentSymbol{
		sym("Calculator", 10, sym("renamed", 40)),
	}
	stored := StoredRef{Name: "multiply", ContainerName: "Calculator", Line: intPtr(40)}

	match, ok := Find(stored, tree)
	if !ok {
		t.Fatal("Expected a line match inside the container")
	}
	if match.Strategy != StrategyContainerChildLine {
		t.Errorf("Strategy = %s, want %s", match.Strategy, StrategyContainerChildLine)
	}
	if match.Confidence != ConfidenceMedium {
		t.Errorf("Confidence = %s, want medium", match.Confidence)
	}
}

func TestFindContainerExactBeatsEarlierLine(t *testing.T) {
	// The exact-name pass over all children runs before the line pass,
	// so a drifted exact match beats a line-equal impostor listed first.
	tree := []lsp.DocumentSymbol{
		sym("Calculator", 10,
			sym("other", 40),
			sym("multiply", 47),
		),
	}
	stored := StoredRef{Name: "multiply", ContainerName: "Calculator", Line: intPtr(40)}

	match, ok := Find(stored, tree)
	if !ok {
		t.Fatal("Expected a match")
	}
	if match.Strategy != StrategyContainerChild {
		t.Errorf("Strategy = %s, want exact child over line match", match.Strategy)
	}
	if match.Line != 47 {
		t.Errorf("Line = %d, want 47", match.Line)
	}
}

func TestFindContainerExhaustedSkipsLooserStrategies(t *testing.T) {
	// helper.run would match by suffix, but once the stored container
	// is found and its children miss, the looser rungs must not run
	// inside it.
	tree := []lsp.DocumentSymbol{
		sym("Service", 1, sym("helper.run", 5)),
	}
	stored := StoredRef{Name: "run", ContainerName: "Service"}

	if _, ok := Find(stored, tree); ok {
		t.Error("Expected no match after container exhaustion")
	}
}

func TestFindContainerExhaustedContinuesOutward(t *testing.T) {
	tree := []lsp.DocumentSymbol{
		sym("Calculator", 1, sym("subtract", 5)),
		sym("run", 20),
	}
	stored := StoredRef{Name: "run", ContainerName: "Calculator"}

	match, ok := Find(stored, tree)
	if !ok {
		t.Fatal("Expected outward search to continue past the container")
	}
	if match.Strategy != StrategyExactName {
		t.Errorf("Strategy = %s, want %s", match.Strategy, StrategyExactName)
	}
	if match.Line != 20 {
		t.Errorf("Line = %d, want 20", match.Line)
	}
}

func TestFindQualifiedName(t *testing.T) {
	tests := []struct {
		name     string
		liveName string
	}{
		{"dot qualified", "Calculator.add"},
		{"colon qualified", "Calculator:add"},
		{"dot qualified with signature", "Calculator.add(a, b)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := []lsp.DocumentSymbol{sym(tt.liveName, 7)}
			stored := StoredRef{Name: "add", ContainerName: "Calculator"}

			match, ok := Find(stored, tree)
			if !ok {
				t.Fatal("Expected a qualified match")
			}
			if match.Strategy != StrategyQualifiedName {
				t.Errorf("Strategy = %s, want %s", match.Strategy, StrategyQualifiedName)
			}
		})
	}
}

func TestFindSuffixName(t *testing.T) {
	tests := []struct {
		name     string
		liveName string
		stored   string
	}{
		{"deep dot path", "utils.math.add", "add"},
		{"module colon form", "mymod:handler", "handler"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := []lsp.DocumentSymbol{sym(tt.liveName, 3)}
			stored := StoredRef{Name: tt.stored}

			match, ok := Find(stored, tree)
			if !ok {
				t.Fatal("Expected a suffix match")
			}
			if match.Strategy != StrategySuffixName {
				t.Errorf("Strategy = %s, want %s", match.Strategy, StrategySuffixName)
			}
		})
	}
}

func TestFindExactNameIgnoresMissingContainer(t *testing.T) {
	tree := []lsp.DocumentSymbol{sym("add", 9)}
	stored := StoredRef{Name: "add", ContainerName: "Calculator"}

	match, ok := Find(stored, tree)
	if !ok {
		t.Fatal("Expected exact name match")
	}
	if match.Strategy != StrategyExactName {
		t.Errorf("Strategy = %s, want %s", match.Strategy, StrategyExactName)
	}
}

func TestFindBareNameOnlyWhenRawDiffers(t *testing.T) {
	t.Run("raw with signature matches by bare name", func(t *testing.T) {
		tree := []lsp.DocumentSymbol{sym("multiply(x, y)", 12)}
		match, ok := Find(StoredRef{Name: "multiply"}, tree)
		if !ok {
			t.Fatal("Expected a bare-name match")
		}
		if match.Strategy != StrategyBareName {
			t.Errorf("Strategy = %s, want %s", match.Strategy, StrategyBareName)
		}
	})

	t.Run("plain raw name matches exactly instead", func(t *testing.T) {
		tree := []lsp.DocumentSymbol{sym("multiply", 12)}
		match, ok := Find(StoredRef{Name: "multiply"}, tree)
		if !ok {
			t.Fatal("Expected a match")
		}
		if match.Strategy != StrategyExactName {
			t.Errorf("Strategy = %s, want %s", match.Strategy, StrategyExactName)
		}
	})
}

func TestFindDepthFirstChildBeatsLaterSibling(t *testing.T) {
	tree := []lsp.DocumentSymbol{
		sym("Outer", 1, sym("target", 10)),
		sym("target", 50),
	}
	stored := StoredRef{Name: "target"}

	match, ok := Find(stored, tree)
	if !ok {
		t.Fatal("Expected a match")
	}
	if match.Line != 10 {
		t.Errorf("Line = %d, want depth-first match at 10", match.Line)
	}
}

func TestFindLineScanFallback(t *testing.T) {
	tree := []lsp.DocumentSymbol{
		sym("Foo", 39, sym("completelyRenamed", 40)),
	}
	stored := StoredRef{Name: "oldName", Line: intPtr(40)}

	match, ok := Find(stored, tree)
	if !ok {
		t.Fatal("Expected line scan to find the node")
	}
	if match.Strategy != StrategyLineScan {
		t.Errorf("Strategy = %s, want %s", match.Strategy, StrategyLineScan)
	}
	if match.Confidence != ConfidenceLow {
		t.Errorf("Confidence = %s, want low", match.Confidence)
	}
	if match.Name != "completelyRenamed" {
		t.Errorf("Name = %q, want live name", match.Name)
	}
}

func TestFindNotFound(t *testing.T) {
	// Renamed symbol, stale line, no container match: the matcher must
	// return nothing rather than guess.
	tree := []lsp.DocumentSymbol{
		sym("Calc", 98, sym("newName", 99)),
	}
	stored := StoredRef{Name: "multiply", ContainerName: "Other", Line: intPtr(40)}

	if _, ok := Find(stored, tree); ok {
		t.Error("Expected notFound rather than a guess")
	}
}

func TestFindDefensiveInputs(t *testing.T) {
	if _, ok := Find(StoredRef{Name: "x"}, nil); ok {
		t.Error("Empty tree should not match")
	}
	if _, ok := Find(StoredRef{}, calculatorTree()); ok {
		t.Error("Empty stored name should not match")
	}
}

func TestFindContainerWithoutChildrenIsNotAContainer(t *testing.T) {
	tree := []lsp.DocumentSymbol{
		sym("Service", 1),
		sym("Service.run", 5),
	}
	stored := StoredRef{Name: "run", ContainerName: "Service"}

	match, ok := Find(stored, tree)
	if !ok {
		t.Fatal("Expected qualified match past the childless container")
	}
	if match.Strategy != StrategyQualifiedName {
		t.Errorf("Strategy = %s, want %s", match.Strategy, StrategyQualifiedName)
	}
}

func TestStrategyConfidence(t *testing.T) {
	tests := []struct {
		strategy Strategy
		want     Confidence
	}{
		{StrategyContainerChild, ConfidenceHigh},
		{StrategyContainerChildBare, ConfidenceHigh},
		{StrategyContainerChildLine, ConfidenceMedium},
		{StrategyQualifiedName, ConfidenceMedium},
		{StrategySuffixName, ConfidenceMedium},
		{StrategyExactName, ConfidenceMedium},
		{StrategyBareName, ConfidenceMedium},
		{StrategyLineScan, ConfidenceLow},
		{StrategyStaleLine, ConfidenceSpeculative},
	}

	for _, tt := range tests {
		if got := tt.strategy.Confidence(); got != tt.want {
			t.Errorf("%s confidence = %s, want %s", tt.strategy, got, tt.want)
		}
	}
}

// Package relocate re-finds previously recorded symbols in a freshly
// queried document symbol tree. Stored references outlive file edits, so
// the matcher works through a ladder of strategies ordered from structural
// certainty down to bare line equality, and reports which rung produced
// the match.
package relocate

import (
	"strings"

	"callmap/internal/lsp"
	"callmap/internal/signature"
)

// StoredRef is a persisted relocation target. Line is zero-based and
// optional; it may have gone stale since the reference was recorded.
type StoredRef struct {
	Name          string `json:"name"`
	ContainerName string `json:"containerName,omitempty"`
	URI           string `json:"uri"`
	Line          *int   `json:"line,omitempty"`
}

// Strategy names the rung of the matching ladder that produced a match.
type Strategy string

const (
	StrategyContainerChild     Strategy = "container-child"
	StrategyContainerChildBare Strategy = "container-child-bare"
	StrategyContainerChildLine Strategy = "container-child-line"
	StrategyQualifiedName      Strategy = "qualified-name"
	StrategySuffixName         Strategy = "suffix-name"
	StrategyExactName          Strategy = "exact-name"
	StrategyBareName           Strategy = "bare-name"
	StrategyLineScan           Strategy = "line-scan"
	StrategyStaleLine          Strategy = "stale-line"
)

// Confidence grades a match. Container-scoped matches rank highest;
// name-only matches are medium; anything resolved purely by line number
// is low, and the no-tree stale line fallback is speculative.
type Confidence string

const (
	ConfidenceHigh        Confidence = "high"
	ConfidenceMedium      Confidence = "medium"
	ConfidenceLow         Confidence = "low"
	ConfidenceSpeculative Confidence = "speculative"
)

// Confidence maps a strategy to its result grade.
func (s Strategy) Confidence() Confidence {
	switch s {
	case StrategyContainerChild, StrategyContainerChildBare:
		return ConfidenceHigh
	case StrategyQualifiedName, StrategySuffixName, StrategyExactName, StrategyBareName, StrategyContainerChildLine:
		return ConfidenceMedium
	case StrategyLineScan:
		return ConfidenceLow
	default:
		return ConfidenceSpeculative
	}
}

// Match is a resolved live location. Line and Column are zero-based and
// point at the symbol's selection anchor.
type Match struct {
	URI        string     `json:"uri"`
	Line       int        `json:"line"`
	Column     int        `json:"column"`
	Name       string     `json:"name"`
	Kind       string     `json:"kind,omitempty"`
	Strategy   Strategy   `json:"strategy"`
	Confidence Confidence `json:"confidence"`
}

// Find walks the live symbol tree depth-first, trying each strategy on a
// node before recursing into its children. First success wins. A stored
// container name pins the search to that container's direct children;
// when the container is found but yields no child match, the search moves
// outward rather than falling through to looser strategies inside it.
func Find(stored StoredRef, tree []lsp.DocumentSymbol) (*Match, bool) {
	if stored.Name == "" || len(tree) == 0 {
		return nil, false
	}

	m := &matcher{
		stored:     stored,
		storedBare: signature.BareName(stored.Name),
	}
	if match := m.searchNodes(tree); match != nil {
		return match, true
	}
	if stored.Line != nil {
		if match := m.lineScan(tree); match != nil {
			return match, true
		}
	}
	return nil, false
}

type matcher struct {
	stored     StoredRef
	storedBare string
}

func (m *matcher) searchNodes(nodes []lsp.DocumentSymbol) *Match {
	for i := range nodes {
		node := &nodes[i]

		if m.stored.ContainerName != "" && node.Name == m.stored.ContainerName && len(node.Children) > 0 {
			if match := m.searchContainer(node); match != nil {
				return match
			}
			// Container exhausted. Looser strategies must not run
			// inside it; continue with the outward search.
			continue
		}

		if match := m.matchNode(node); match != nil {
			return match
		}
		if match := m.searchNodes(node.Children); match != nil {
			return match
		}
	}
	return nil
}

// searchContainer checks the container's direct children in three passes:
// exact name, bare name, then definition line. A pass over all children
// completes before the next starts so an exact match anywhere beats an
// earlier looser one.
func (m *matcher) searchContainer(container *lsp.DocumentSymbol) *Match {
	for i := range container.Children {
		child := &container.Children[i]
		if child.Name == m.stored.Name {
			return m.found(child, StrategyContainerChild)
		}
	}
	for i := range container.Children {
		child := &container.Children[i]
		if signature.BareName(child.Name) == m.storedBare {
			return m.found(child, StrategyContainerChildBare)
		}
	}
	if m.stored.Line != nil {
		for i := range container.Children {
			child := &container.Children[i]
			if child.SelectionRange.Start.Line == *m.stored.Line {
				return m.found(child, StrategyContainerChildLine)
			}
		}
	}
	return nil
}

// matchNode applies the name-based strategies to a single node: qualified
// forms, suffix forms, exact raw equality, then bare-name equality.
func (m *matcher) matchNode(node *lsp.DocumentSymbol) *Match {
	raw := node.Name
	if raw == "" {
		return nil
	}
	bare := signature.BareName(raw)

	if m.stored.ContainerName != "" {
		for _, target := range []string{m.stored.Name, m.storedBare} {
			for _, sep := range []string{".", ":"} {
				qualified := m.stored.ContainerName + sep + target
				if raw == qualified || bare == qualified {
					return m.found(node, StrategyQualifiedName)
				}
			}
		}
	}

	for _, target := range []string{m.stored.Name, m.storedBare} {
		for _, sep := range []string{".", ":"} {
			suffix := sep + target
			if strings.HasSuffix(raw, suffix) || strings.HasSuffix(bare, suffix) {
				return m.found(node, StrategySuffixName)
			}
		}
	}

	if raw == m.stored.Name {
		return m.found(node, StrategyExactName)
	}
	if raw != bare && bare == m.storedBare {
		return m.found(node, StrategyBareName)
	}
	return nil
}

// lineScan is the whole-tree last resort: any node defined on the stored
// line matches, regardless of name.
func (m *matcher) lineScan(nodes []lsp.DocumentSymbol) *Match {
	for i := range nodes {
		node := &nodes[i]
		if node.SelectionRange.Start.Line == *m.stored.Line {
			return m.found(node, StrategyLineScan)
		}
		if match := m.lineScan(node.Children); match != nil {
			return match
		}
	}
	return nil
}

func (m *matcher) found(sym *lsp.DocumentSymbol, strategy Strategy) *Match {
	return &Match{
		URI:        m.stored.URI,
		Line:       sym.SelectionRange.Start.Line,
		Column:     sym.SelectionRange.Start.Character,
		Name:       sym.Name,
		Kind:       sym.Kind.String(),
		Strategy:   strategy,
		Confidence: strategy.Confidence(),
	}
}

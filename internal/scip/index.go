// Package scip answers call-hierarchy, hover, and document-symbol
// queries from a SCIP index file, so graphs can be built without a live
// language server once an indexer has processed the workspace.
package scip

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	scippb "github.com/sourcegraph/scip/bindings/go/scip"
	"google.golang.org/protobuf/proto"

	"callmap/internal/errors"
	"callmap/internal/lsp"
)

// DefaultIndexName is the file probed at the workspace root when no
// index path is configured.
const DefaultIndexName = "index.scip"

// symbolRoleDefinition is the SymbolRole bit marking a definition
// occurrence.
const symbolRoleDefinition int32 = 1

// maxFunctionSpan bounds the inferred body length when the indexer
// recorded no enclosing range and no later definition follows in the
// file. scip-go emits no enclosing ranges at all.
const maxFunctionSpan = 500

// Occurrence is one symbol occurrence in an indexed document.
type Occurrence struct {
	Range          []int32
	Symbol         string
	Roles          int32
	EnclosingRange []int32
}

// SymbolInformation is the per-symbol metadata the indexer recorded.
// Kind is zero when the indexer left it unset.
type SymbolInformation struct {
	Symbol          string
	DisplayName     string
	Documentation   []string
	Kind            lsp.SymbolKind
	EnclosingSymbol string
}

// Document is one indexed source file.
type Document struct {
	RelativePath string
	Language     string
	Occurrences  []*Occurrence
	Symbols      []*SymbolInformation
}

// Index is a loaded SCIP index with lookup maps over its documents.
type Index struct {
	Path        string
	ProjectRoot string
	Tool        string
	LoadedAt    time.Time
	ModTime     time.Time
	Documents   []*Document

	symbols map[string]*SymbolInformation
	byPath  map[string]*Document
}

// ResolveIndexPath resolves a configured index path against the
// workspace root. Empty means the conventional index.scip at the root.
func ResolveIndexPath(workspaceRoot, configured string) string {
	if configured == "" {
		configured = DefaultIndexName
	}
	if filepath.IsAbs(configured) {
		return configured
	}
	return filepath.Join(workspaceRoot, configured)
}

// Load reads and decodes a SCIP index file.
func Load(path string) (*Index, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(errors.IndexMissing, "SCIP index not found at "+path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.IndexMissing, "failed to read SCIP index "+path, err)
	}

	var raw scippb.Index
	if err := proto.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(errors.IndexMissing, "failed to decode SCIP index "+path, err)
	}

	idx := &Index{
		Path:      path,
		LoadedAt:  time.Now().UTC(),
		ModTime:   info.ModTime(),
		Documents: make([]*Document, 0, len(raw.Documents)),
		symbols:   make(map[string]*SymbolInformation),
		byPath:    make(map[string]*Document),
	}
	if raw.Metadata != nil {
		idx.ProjectRoot = raw.Metadata.ProjectRoot
		if raw.Metadata.ToolInfo != nil {
			idx.Tool = raw.Metadata.ToolInfo.Name
		}
	}

	for _, d := range raw.Documents {
		doc := convertDocument(d)
		idx.Documents = append(idx.Documents, doc)
		idx.byPath[doc.RelativePath] = doc
		for _, sym := range doc.Symbols {
			idx.symbols[sym.Symbol] = sym
		}
	}
	for _, sym := range raw.ExternalSymbols {
		converted := convertSymbolInformation(sym)
		if _, ok := idx.symbols[converted.Symbol]; !ok {
			idx.symbols[converted.Symbol] = converted
		}
	}

	return idx, nil
}

// Document returns the indexed document at a project-relative path.
func (idx *Index) Document(relativePath string) *Document {
	return idx.byPath[relativePath]
}

// Symbol returns the recorded metadata for a symbol ID.
func (idx *Index) Symbol(id string) *SymbolInformation {
	return idx.symbols[id]
}

// Stale reports whether sourcePath changed after the index was written.
// Unreadable files count as unchanged; later stages surface their own
// errors for those.
func (idx *Index) Stale(sourcePath string) bool {
	info, err := os.Stat(sourcePath)
	if err != nil {
		return false
	}
	return info.ModTime().After(idx.ModTime)
}

// definition finds the defining occurrence of a symbol anywhere in the
// index.
func (idx *Index) definition(symbolID string) (*Document, *Occurrence) {
	for _, doc := range idx.Documents {
		for _, occ := range doc.Occurrences {
			if occ.Symbol == symbolID && occ.Roles&symbolRoleDefinition != 0 {
				return doc, occ
			}
		}
	}
	return nil, nil
}

func convertDocument(d *scippb.Document) *Document {
	doc := &Document{
		RelativePath: d.RelativePath,
		Language:     d.Language,
		Occurrences:  make([]*Occurrence, len(d.Occurrences)),
		Symbols:      make([]*SymbolInformation, len(d.Symbols)),
	}
	for i, occ := range d.Occurrences {
		doc.Occurrences[i] = &Occurrence{
			Range:          occ.Range,
			Symbol:         occ.Symbol,
			Roles:          occ.SymbolRoles,
			EnclosingRange: occ.EnclosingRange,
		}
	}
	for i, sym := range d.Symbols {
		doc.Symbols[i] = convertSymbolInformation(sym)
	}
	return doc
}

func convertSymbolInformation(sym *scippb.SymbolInformation) *SymbolInformation {
	return &SymbolInformation{
		Symbol:          sym.Symbol,
		DisplayName:     sym.DisplayName,
		Documentation:   sym.Documentation,
		Kind:            mapKind(sym.Kind),
		EnclosingSymbol: sym.EnclosingSymbol,
	}
}

// mapKind translates the indexer-recorded kind. Zero means unrecorded;
// callers fall back to the descriptor shape.
func mapKind(kind scippb.SymbolInformation_Kind) lsp.SymbolKind {
	switch kind {
	case scippb.SymbolInformation_Function, scippb.SymbolInformation_Macro:
		return lsp.KindFunction
	case scippb.SymbolInformation_Method, scippb.SymbolInformation_AbstractMethod,
		scippb.SymbolInformation_StaticMethod:
		return lsp.KindMethod
	case scippb.SymbolInformation_Constructor:
		return lsp.KindConstructor
	case scippb.SymbolInformation_Class, scippb.SymbolInformation_Struct,
		scippb.SymbolInformation_Object:
		return lsp.KindClass
	case scippb.SymbolInformation_Interface, scippb.SymbolInformation_Trait,
		scippb.SymbolInformation_Protocol:
		return lsp.KindInterface
	case scippb.SymbolInformation_Enum:
		return lsp.KindEnum
	case scippb.SymbolInformation_EnumMember:
		return lsp.KindEnumMember
	case scippb.SymbolInformation_Field, scippb.SymbolInformation_StaticField:
		return lsp.KindField
	case scippb.SymbolInformation_Property, scippb.SymbolInformation_StaticProperty:
		return lsp.KindProperty
	case scippb.SymbolInformation_Variable, scippb.SymbolInformation_StaticVariable:
		return lsp.KindVariable
	case scippb.SymbolInformation_Constant:
		return lsp.KindConstant
	case scippb.SymbolInformation_Namespace:
		return lsp.KindNamespace
	case scippb.SymbolInformation_Package, scippb.SymbolInformation_Module:
		return lsp.KindPackage
	default:
		return 0
	}
}

// callable reports whether a symbol ID names a function or method. The
// method descriptor always ends its segment with ")." (a disambiguator
// may sit inside the parens), which stays reliable for indexers like
// scip-go that leave the Kind field unset.
func callable(symbolID string) bool {
	return strings.Contains(symbolID, ").")
}

// descriptorOf splits the trailing descriptor from a symbol ID of the
// form "scheme manager package [version] descriptor".
func descriptorOf(symbolID string) string {
	parts := strings.SplitN(symbolID, " ", 5)
	switch len(parts) {
	case 5:
		return parts[4]
	case 4:
		return parts[3]
	}
	return symbolID
}

// symbolName derives a dotted qualified name from the descriptor tail:
// "`src/calc.ts`/Calculator#add()." becomes "Calculator.add".
func symbolName(symbolID string) string {
	desc := descriptorOf(symbolID)
	if i := strings.LastIndex(desc, "`"); i >= 0 {
		desc = strings.TrimPrefix(desc[i+1:], "/")
	}
	desc = strings.TrimSuffix(desc, ".")
	desc = strings.TrimSuffix(desc, "#")
	if strings.HasSuffix(desc, ")") {
		if i := strings.LastIndex(desc, "("); i >= 0 {
			desc = desc[:i]
		}
	}
	desc = strings.ReplaceAll(desc, "#", ".")
	if i := strings.LastIndex(desc, "/"); i >= 0 {
		desc = desc[i+1:]
	}
	if desc == "" {
		return symbolID
	}
	return desc
}

// leafName is the last dotted segment of a qualified name.
func leafName(qualified string) string {
	if i := strings.LastIndex(qualified, "."); i >= 0 && i+1 < len(qualified) {
		return qualified[i+1:]
	}
	return qualified
}

// parentID derives the enclosing symbol ID from the descriptor shape:
// the segment before the last '#' owns everything after it. Empty for
// top-level symbols.
func parentID(symbolID string) string {
	desc := descriptorOf(symbolID)
	body := strings.TrimSuffix(desc, "#")
	body = strings.TrimSuffix(body, ".")
	i := strings.LastIndex(body, "#")
	if i < 0 {
		return ""
	}
	prefix := symbolID[:len(symbolID)-len(desc)]
	return prefix + desc[:i+1]
}

// packedRange decodes the packed SCIP range encoding, which is
// [startLine, startChar, endChar] for single-line ranges and
// [startLine, startChar, endLine, endChar] otherwise.
func packedRange(packed []int32) (lsp.Range, bool) {
	if len(packed) < 3 {
		return lsp.Range{}, false
	}
	start := lsp.Position{Line: int(packed[0]), Character: int(packed[1])}
	end := lsp.Position{Line: int(packed[0]), Character: int(packed[2])}
	if len(packed) >= 4 {
		end = lsp.Position{Line: int(packed[2]), Character: int(packed[3])}
	}
	return lsp.Range{Start: start, End: end}, true
}

func occurrenceRange(occ *Occurrence) (lsp.Range, bool) {
	return packedRange(occ.Range)
}

func enclosingRangeOf(occ *Occurrence) (lsp.Range, bool) {
	return packedRange(occ.EnclosingRange)
}

// span is an inclusive line interval covering a callable's body.
type span struct {
	start, end int
}

// functionSpans infers the body lines of every callable defined in doc.
// Recorded enclosing ranges win; otherwise a body runs to the line
// before the next definition, bounded by maxFunctionSpan.
func functionSpans(doc *Document) map[string]span {
	type def struct {
		symbol string
		start  int
		end    int
	}
	var defs []def
	for _, occ := range doc.Occurrences {
		if occ.Roles&symbolRoleDefinition == 0 || !callable(occ.Symbol) {
			continue
		}
		r, ok := occurrenceRange(occ)
		if !ok {
			continue
		}
		d := def{symbol: occ.Symbol, start: r.Start.Line, end: -1}
		if enc, ok := enclosingRangeOf(occ); ok {
			d.end = enc.End.Line
		}
		defs = append(defs, d)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].start < defs[j].start })

	spans := make(map[string]span, len(defs))
	for i, d := range defs {
		end := d.end
		if end < 0 {
			end = d.start + maxFunctionSpan
			if i+1 < len(defs) {
				end = defs[i+1].start - 1
			}
		}
		spans[d.symbol] = span{start: d.start, end: end}
	}
	return spans
}

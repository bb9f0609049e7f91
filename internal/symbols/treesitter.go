//go:build cgo

package symbols

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/kotlin"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"callmap/internal/errors"
	"callmap/internal/lsp"
	"callmap/internal/paths"
)

// Extractor parses source files and produces document symbol trees. It
// reuses a single tree-sitter parser and is not safe for concurrent use.
type Extractor struct {
	parser *sitter.Parser
}

// NewExtractor returns a ready extractor. The non-cgo stub returns nil
// instead.
func NewExtractor() *Extractor {
	return &Extractor{parser: sitter.NewParser()}
}

// IsAvailable reports whether tree-sitter extraction can run.
func (e *Extractor) IsAvailable() bool { return e != nil }

// DocumentSymbols reads the file behind uri and extracts its symbol
// tree. The grammar is chosen by file extension.
func (e *Extractor) DocumentSymbols(ctx context.Context, uri string) ([]lsp.DocumentSymbol, error) {
	path := paths.FromFileURI(uri)
	lang, ok := LanguageForPath(path)
	if !ok {
		return nil, errors.New(errors.BackendUnavailable, "no tree-sitter grammar for "+filepath.Ext(path))
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.InternalError, "read source file", err)
	}
	return e.ExtractSource(ctx, content, lang)
}

// ExtractSource parses source and returns its root symbols in document
// order. Containers carry their members as children; Go methods are
// nested under their receiver type when it is declared in the same
// file.
func (e *Extractor) ExtractSource(ctx context.Context, source []byte, lang Language) ([]lsp.DocumentSymbol, error) {
	grammar := grammarFor(lang)
	if grammar == nil {
		return nil, errors.New(errors.BackendUnavailable, "no tree-sitter grammar for language: "+string(lang))
	}
	e.parser.SetLanguage(grammar)
	tree, err := e.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, errors.Wrap(errors.InternalError, "parse source", err)
	}
	defer tree.Close()

	syms := collectSymbols(tree.RootNode(), source, lang, false)
	if lang == LangGo {
		syms = nestGoMethods(syms)
	}
	return syms, nil
}

func grammarFor(lang Language) *sitter.Language {
	switch lang {
	case LangGo:
		return golang.GetLanguage()
	case LangJavaScript:
		return javascript.GetLanguage()
	case LangTypeScript:
		return typescript.GetLanguage()
	case LangTSX:
		return tsx.GetLanguage()
	case LangPython:
		return python.GetLanguage()
	case LangRust:
		return rust.GetLanguage()
	case LangJava:
		return java.GetLanguage()
	case LangKotlin:
		return kotlin.GetLanguage()
	}
	return nil
}

// TODO: surface arrow functions assigned to const bindings under their
// declarator name.
var scriptFunctions = map[string]bool{
	"function_declaration":           true,
	"generator_function_declaration": true,
	"method_definition":              true,
	"method_signature":               true,
	"abstract_method_signature":      true,
}

var scriptContainers = map[string]bool{
	"class_declaration":          true,
	"abstract_class_declaration": true,
	"interface_declaration":      true,
	"enum_declaration":           true,
}

var functionNodes = map[Language]map[string]bool{
	LangGo:         {"function_declaration": true, "method_declaration": true},
	LangJavaScript: scriptFunctions,
	LangTypeScript: scriptFunctions,
	LangTSX:        scriptFunctions,
	LangPython:     {"function_definition": true},
	LangRust:       {"function_item": true},
	LangJava:       {"method_declaration": true, "constructor_declaration": true},
	LangKotlin:     {"function_declaration": true},
}

var containerNodes = map[Language]map[string]bool{
	LangGo:         {"type_spec": true},
	LangJavaScript: {"class_declaration": true},
	LangTypeScript: scriptContainers,
	LangTSX:        scriptContainers,
	LangPython:     {"class_definition": true},
	LangRust:       {"struct_item": true, "enum_item": true, "trait_item": true, "impl_item": true},
	LangJava:       {"class_declaration": true, "interface_declaration": true, "enum_declaration": true},
	LangKotlin:     {"class_declaration": true, "object_declaration": true},
}

// collectSymbols walks node and gathers function and container
// declarations. A container owns its subtree, so members are collected
// once as children and never again at the outer level.
func collectSymbols(node *sitter.Node, source []byte, lang Language, inContainer bool) []lsp.DocumentSymbol {
	var out []lsp.DocumentSymbol
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch {
		case functionNodes[lang][child.Type()]:
			if sym, ok := functionSymbol(child, source, lang, inContainer); ok {
				out = append(out, sym)
			}
		case containerNodes[lang][child.Type()]:
			if sym, ok := containerSymbol(child, source); ok {
				sym.Children = collectSymbols(child, source, lang, true)
				out = append(out, sym)
			}
		default:
			out = append(out, collectSymbols(child, source, lang, inContainer)...)
		}
	}
	return out
}

func functionSymbol(node *sitter.Node, source []byte, lang Language, inContainer bool) (lsp.DocumentSymbol, bool) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		nameNode = nameChild(node, "simple_identifier", "identifier", "field_identifier", "property_identifier")
	}
	if nameNode == nil {
		return lsp.DocumentSymbol{}, false
	}
	name := nameNode.Content(source)
	if name == "" {
		return lsp.DocumentSymbol{}, false
	}

	kind := lsp.KindFunction
	switch node.Type() {
	case "constructor_declaration":
		kind = lsp.KindConstructor
	case "method_declaration", "method_definition", "method_signature", "abstract_method_signature":
		kind = lsp.KindMethod
	default:
		if inContainer {
			kind = lsp.KindMethod
		}
	}

	if lang == LangGo && node.Type() == "method_declaration" {
		if recv := receiverType(node, source); recv != "" {
			name = recv + "." + name
		}
	}

	return lsp.DocumentSymbol{
		Name:           name,
		Detail:         firstLineSignature(node, source),
		Kind:           kind,
		Range:          nodeRange(node),
		SelectionRange: nodeRange(nameNode),
	}, true
}

func containerSymbol(node *sitter.Node, source []byte) (lsp.DocumentSymbol, bool) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		switch node.Type() {
		case "impl_item":
			// impl blocks are named after the type they extend.
			if t := node.ChildByFieldName("type"); t != nil {
				nameNode = firstDescendant(t, "type_identifier")
			}
		default:
			nameNode = nameChild(node, "type_identifier", "simple_identifier", "identifier")
		}
	}
	if nameNode == nil {
		return lsp.DocumentSymbol{}, false
	}
	name := nameNode.Content(source)
	if name == "" {
		return lsp.DocumentSymbol{}, false
	}
	return lsp.DocumentSymbol{
		Name:           name,
		Detail:         firstLineSignature(node, source),
		Kind:           containerKind(node),
		Range:          nodeRange(node),
		SelectionRange: nodeRange(nameNode),
	}, true
}

func containerKind(node *sitter.Node) lsp.SymbolKind {
	switch node.Type() {
	case "interface_declaration", "trait_item":
		return lsp.KindInterface
	case "enum_declaration", "enum_item":
		return lsp.KindEnum
	case "struct_item":
		return lsp.KindStruct
	case "object_declaration":
		return lsp.KindObject
	case "type_spec":
		if t := node.ChildByFieldName("type"); t != nil {
			switch t.Type() {
			case "struct_type":
				return lsp.KindStruct
			case "interface_type":
				return lsp.KindInterface
			}
		}
	}
	return lsp.KindClass
}

// receiverType returns the bare type name of a Go method receiver,
// following through pointers and type parameters.
func receiverType(node *sitter.Node, source []byte) string {
	recv := node.ChildByFieldName("receiver")
	if recv == nil {
		return ""
	}
	if id := firstDescendant(recv, "type_identifier"); id != nil {
		return id.Content(source)
	}
	return ""
}

// nestGoMethods moves methods under the type declared in the same file
// and strips the receiver qualifier from their name. Methods whose type
// lives elsewhere stay at the root with the qualified name.
func nestGoMethods(roots []lsp.DocumentSymbol) []lsp.DocumentSymbol {
	byType := make(map[string]int)
	for i, s := range roots {
		switch s.Kind {
		case lsp.KindStruct, lsp.KindInterface, lsp.KindClass:
			byType[s.Name] = i
		}
	}
	moved := make(map[int]bool)
	for i := range roots {
		if roots[i].Kind != lsp.KindMethod {
			continue
		}
		recv, bare, ok := strings.Cut(roots[i].Name, ".")
		if !ok {
			continue
		}
		ti, found := byType[recv]
		if !found {
			continue
		}
		m := roots[i]
		m.Name = bare
		roots[ti].Children = append(roots[ti].Children, m)
		moved[i] = true
	}
	if len(moved) == 0 {
		return roots
	}
	kept := make([]lsp.DocumentSymbol, 0, len(roots)-len(moved))
	for i := range roots {
		if !moved[i] {
			kept = append(kept, roots[i])
		}
	}
	return kept
}

func nameChild(node *sitter.Node, types ...string) *sitter.Node {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		for _, t := range types {
			if child.Type() == t {
				return child
			}
		}
	}
	return nil
}

func firstDescendant(node *sitter.Node, nodeType string) *sitter.Node {
	if node.Type() == nodeType {
		return node
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		if found := firstDescendant(node.NamedChild(i), nodeType); found != nil {
			return found
		}
	}
	return nil
}

// firstLineSignature returns the declaration text up to the body, with
// a trailing colon stripped for languages that use block colons.
func firstLineSignature(node *sitter.Node, source []byte) string {
	start := int(node.StartByte())
	end := int(node.EndByte())
	if end > len(source) {
		end = len(source)
	}
	text := source[start:end]
	for i, b := range text {
		if b == '\n' || b == '{' {
			text = text[:i]
			break
		}
	}
	line := strings.TrimSpace(string(text))
	line = strings.TrimSuffix(line, ":")
	return strings.TrimSpace(line)
}

func nodeRange(node *sitter.Node) lsp.Range {
	start := node.StartPoint()
	end := node.EndPoint()
	return lsp.Range{
		Start: lsp.Position{Line: int(start.Row), Character: int(start.Column)},
		End:   lsp.Position{Line: int(end.Row), Character: int(end.Column)},
	}
}

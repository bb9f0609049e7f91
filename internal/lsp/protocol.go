package lsp

import (
	"encoding/json"
	"strings"
)

// Position is a zero-based line and character offset in a document. All
// positions in this package stay zero-based end to end; rendering layers
// add 1 for display only.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Range is a half-open [start, end) span in a document.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Location is a range inside a document identified by URI.
type Location struct {
	URI   string `json:"uri"`
	Range Range  `json:"range"`
}

// TextDocumentIdentifier identifies a document by URI.
type TextDocumentIdentifier struct {
	URI string `json:"uri"`
}

// TextDocumentItem is the full document payload sent with didOpen.
type TextDocumentItem struct {
	URI        string `json:"uri"`
	LanguageID string `json:"languageId"`
	Version    int    `json:"version"`
	Text       string `json:"text"`
}

// TextDocumentPositionParams is the common document+position request shape.
type TextDocumentPositionParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	Position     Position               `json:"position"`
}

// DocumentSymbolParams requests the symbol tree of one document.
type DocumentSymbolParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
}

// DidOpenParams notifies the server that a document is open.
type DidOpenParams struct {
	TextDocument TextDocumentItem `json:"textDocument"`
}

// DidCloseParams notifies the server that a document was closed.
type DidCloseParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
}

// CallHierarchyCallsParams requests incoming or outgoing calls for a
// previously prepared item.
type CallHierarchyCallsParams struct {
	Item CallHierarchyItem `json:"item"`
}

// SymbolKind is the numeric symbol classification from the protocol.
type SymbolKind int

const (
	KindFile          SymbolKind = 1
	KindModule        SymbolKind = 2
	KindNamespace     SymbolKind = 3
	KindPackage       SymbolKind = 4
	KindClass         SymbolKind = 5
	KindMethod        SymbolKind = 6
	KindProperty      SymbolKind = 7
	KindField         SymbolKind = 8
	KindConstructor   SymbolKind = 9
	KindEnum          SymbolKind = 10
	KindInterface     SymbolKind = 11
	KindFunction      SymbolKind = 12
	KindVariable      SymbolKind = 13
	KindConstant      SymbolKind = 14
	KindString        SymbolKind = 15
	KindNumber        SymbolKind = 16
	KindBoolean       SymbolKind = 17
	KindArray         SymbolKind = 18
	KindObject        SymbolKind = 19
	KindKey           SymbolKind = 20
	KindNull          SymbolKind = 21
	KindEnumMember    SymbolKind = 22
	KindStruct        SymbolKind = 23
	KindEvent         SymbolKind = 24
	KindOperator      SymbolKind = 25
	KindTypeParameter SymbolKind = 26
)

// String returns the lowercase name used in graph payloads and output.
// Unknown values collapse to "symbol" rather than failing.
func (k SymbolKind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindModule:
		return "module"
	case KindNamespace:
		return "namespace"
	case KindPackage:
		return "package"
	case KindClass:
		return "class"
	case KindMethod:
		return "method"
	case KindProperty:
		return "property"
	case KindField:
		return "field"
	case KindConstructor:
		return "constructor"
	case KindEnum:
		return "enum"
	case KindInterface:
		return "interface"
	case KindFunction:
		return "function"
	case KindVariable:
		return "variable"
	case KindConstant:
		return "constant"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBoolean:
		return "boolean"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	case KindKey:
		return "key"
	case KindNull:
		return "null"
	case KindEnumMember:
		return "enumMember"
	case KindStruct:
		return "struct"
	case KindEvent:
		return "event"
	case KindOperator:
		return "operator"
	case KindTypeParameter:
		return "typeParameter"
	default:
		return "symbol"
	}
}

// DocumentSymbol is one node of the hierarchical symbol tree. Range spans
// the whole declaration body; SelectionRange just the name.
type DocumentSymbol struct {
	Name           string           `json:"name"`
	Detail         string           `json:"detail,omitempty"`
	Kind           SymbolKind       `json:"kind"`
	Range          Range            `json:"range"`
	SelectionRange Range            `json:"selectionRange"`
	Children       []DocumentSymbol `json:"children,omitempty"`
}

// SymbolInformation is the flat, non-hierarchical shape older servers
// return from textDocument/documentSymbol.
type SymbolInformation struct {
	Name          string     `json:"name"`
	Kind          SymbolKind `json:"kind"`
	Location      Location   `json:"location"`
	ContainerName string     `json:"containerName,omitempty"`
}

// CallHierarchyItem is a resolved symbol that can be expanded in either
// call direction.
type CallHierarchyItem struct {
	Name           string     `json:"name"`
	Kind           SymbolKind `json:"kind"`
	Detail         string     `json:"detail,omitempty"`
	URI            string     `json:"uri"`
	Range          Range      `json:"range"`
	SelectionRange Range      `json:"selectionRange"`
}

// CallHierarchyIncomingCall is a caller of the prepared item.
type CallHierarchyIncomingCall struct {
	From       CallHierarchyItem `json:"from"`
	FromRanges []Range           `json:"fromRanges"`
}

// CallHierarchyOutgoingCall is a callee of the prepared item.
type CallHierarchyOutgoingCall struct {
	To         CallHierarchyItem `json:"to"`
	FromRanges []Range           `json:"fromRanges"`
}

// MarkupContent is hover content with an explicit markup kind.
type MarkupContent struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

// Hover keeps contents raw because servers answer with one of three
// shapes: MarkupContent, a bare string, or an array mixing strings and
// {language, value} objects.
type Hover struct {
	Contents json.RawMessage `json:"contents"`
	Range    *Range          `json:"range,omitempty"`
}

// Text flattens hover contents to plain markdown text. Empty when the
// hover carried nothing usable.
func (h *Hover) Text() string {
	if h == nil || len(h.Contents) == 0 {
		return ""
	}

	var mc MarkupContent
	if err := json.Unmarshal(h.Contents, &mc); err == nil && mc.Value != "" {
		return mc.Value
	}

	var s string
	if err := json.Unmarshal(h.Contents, &s); err == nil {
		return s
	}

	var parts []json.RawMessage
	if err := json.Unmarshal(h.Contents, &parts); err == nil {
		texts := make([]string, 0, len(parts))
		for _, part := range parts {
			var ps string
			if err := json.Unmarshal(part, &ps); err == nil {
				texts = append(texts, ps)
				continue
			}
			var pm MarkupContent
			if err := json.Unmarshal(part, &pm); err == nil && pm.Value != "" {
				texts = append(texts, pm.Value)
			}
		}
		return strings.Join(texts, "\n")
	}

	return ""
}

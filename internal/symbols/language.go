// Package symbols extracts document symbol trees straight from source
// text with tree-sitter. It is the offline fallback when neither a SCIP
// index nor a live language server can answer, and it only serves
// document-symbol queries; call hierarchy needs one of the richer
// providers.
package symbols

import (
	"path/filepath"
	"strings"
)

// Language identifies a tree-sitter grammar.
type Language string

const (
	LangGo         Language = "go"
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangTSX        Language = "tsx"
	LangPython     Language = "python"
	LangRust       Language = "rust"
	LangJava       Language = "java"
	LangKotlin     Language = "kotlin"
)

// LanguageFromExtension maps a file extension (with leading dot) to the
// grammar that parses it.
func LanguageFromExtension(ext string) (Language, bool) {
	switch strings.ToLower(ext) {
	case ".go":
		return LangGo, true
	case ".js", ".jsx", ".mjs", ".cjs":
		return LangJavaScript, true
	case ".ts", ".mts", ".cts":
		return LangTypeScript, true
	case ".tsx":
		return LangTSX, true
	case ".py":
		return LangPython, true
	case ".rs":
		return LangRust, true
	case ".java":
		return LangJava, true
	case ".kt", ".kts":
		return LangKotlin, true
	default:
		return "", false
	}
}

// LanguageForPath maps a file path to its grammar.
func LanguageForPath(path string) (Language, bool) {
	return LanguageFromExtension(filepath.Ext(path))
}

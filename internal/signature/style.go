// Package signature reduces heterogeneous symbol names, hover strings, and
// detail strings from language tooling backends into a canonical
// (bareName, parameterSignature) pair. Parameter lists are classified into
// one of five declaration styles so types can be extracted without
// per-language grammar knowledge.
package signature

import (
	"regexp"
	"strings"
)

// ParamStyle identifies how a parameter list declares its types.
type ParamStyle string

const (
	// StyleColon is `name: Type` (TypeScript, Python, Rust, Kotlin, Swift)
	StyleColon ParamStyle = "colon"
	// StyleTypeBefore is `Type name` (Java, C#, C, C++)
	StyleTypeBefore ParamStyle = "type-before"
	// StyleTypeAfterGo is `name Type` (Go)
	StyleTypeAfterGo ParamStyle = "type-after-go"
	// StylePhp is `Type $name` or `$name` (PHP)
	StylePhp ParamStyle = "php"
	// StyleDynamic is a bare parameter name with no type annotation
	// (Ruby, Lua, untyped JavaScript)
	StyleDynamic ParamStyle = "dynamic"
)

// colonParamRe matches "identifier, optional ?, colon" where the colon is
// not a scope operator (::).
var colonParamRe = regexp.MustCompile(`^[A-Za-z_$][\w$]*\s*\??\s*:([^:]|$)`)

// typeKeywords is the fixed set of words treated as type names regardless
// of capitalization. Used by LooksLikeType.
var typeKeywords = map[string]bool{
	"int": true, "uint": true, "long": true, "short": true,
	"float": true, "double": true, "char": true, "byte": true,
	"bool": true, "boolean": true, "string": true, "str": true,
	"void": true, "object": true, "num": true, "number": true,
	"map": true, "list": true, "array": true, "set": true,
	"vec": true, "dict": true, "any": true, "mixed": true,
	"unsigned": true, "signed": true, "const": true, "auto": true,
	"callable": true, "iterable": true, "chan": true, "error": true,
}

// LooksLikeType reports whether a word is plausibly a type name rather
// than a parameter name. This heuristic is deliberately simple: known
// keyword, uppercase initial, or a type-ish suffix. Mis-detection degrades
// to a wrong-but-plausible type string, never an error.
func LooksLikeType(word string) bool {
	if word == "" {
		return false
	}
	if typeKeywords[strings.ToLower(word)] {
		return true
	}
	first := word[0]
	if first >= 'A' && first <= 'Z' {
		return true
	}
	return strings.HasSuffix(word, "[]") ||
		strings.HasSuffix(word, "*") ||
		strings.HasSuffix(word, "&")
}

// DetectParamStyle classifies a comma-split parameter token list into one
// of the five styles. Variadic markers and implicit-self tokens carry no
// style signal and are skipped; the first token that yields a signal
// decides for the whole list. Lists with no signal are dynamic.
func DetectParamStyle(tokens []string) ParamStyle {
	for _, raw := range tokens {
		tok := strings.TrimSpace(raw)
		if tok == "" || variadicPrefix(tok) != "" || isImplicitSelf(tok) {
			continue
		}

		if strings.Contains(tok, "$") {
			return StylePhp
		}
		if colonParamRe.MatchString(tok) {
			return StyleColon
		}

		parts := strings.Fields(stripDefault(tok))
		if len(parts) >= 2 {
			if LooksLikeType(parts[0]) {
				return StyleTypeBefore
			}
			return StyleTypeAfterGo
		}
	}

	return StyleDynamic
}

// variadicPrefix returns the variadic marker a token starts with, or empty.
func variadicPrefix(tok string) string {
	switch {
	case strings.HasPrefix(tok, "..."):
		return "..."
	case strings.HasPrefix(tok, "**"):
		return "**"
	case strings.HasPrefix(tok, "*"):
		return "*"
	}
	return ""
}

// isImplicitSelf reports whether the token is a conventional receiver
// placeholder. These are never caller-supplied arguments.
func isImplicitSelf(tok string) bool {
	return tok == "self" || tok == "cls" || tok == "this"
}

// stripDefault removes a trailing `= default value` clause. Comparison and
// arrow operators containing '=' are left alone.
func stripDefault(tok string) string {
	for i := 0; i < len(tok); i++ {
		if tok[i] != '=' {
			continue
		}
		if i+1 < len(tok) && tok[i+1] == '>' {
			i++
			continue
		}
		if i > 0 {
			switch tok[i-1] {
			case '!', '<', '>', '=':
				continue
			}
		}
		return strings.TrimSpace(tok[:i])
	}
	return strings.TrimSpace(tok)
}

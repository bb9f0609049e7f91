package signature

import (
	"regexp"
	"strings"
)

// phpTypedRe matches a PHP type hint before a $variable, preserving a
// leading nullable marker: "?string $name", "App\Models\User $u".
var phpTypedRe = regexp.MustCompile(`^(\??[A-Za-z_\\][\w\\|\[\]]*)\s+\$`)

// SplitParams splits a raw parameter-list string on top-level commas.
// Commas nested inside <>, [], or {} pairs do not split, so generic types
// like Map<string, number> survive as a single token. Tokens are returned
// untrimmed.
func SplitParams(params string) []string {
	var tokens []string
	depth := 0
	start := 0

	for i := 0; i < len(params); i++ {
		switch params[i] {
		case '<', '[', '{':
			depth++
		case '>', ']', '}':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				tokens = append(tokens, params[start:i])
				start = i + 1
			}
		}
	}
	tokens = append(tokens, params[start:])
	return tokens
}

// ExtractTypesFromParams reduces a raw parameter-list string to a canonical
// parenthesized signature: types where the list declares them, parameter
// names where it does not. An empty or whitespace-only list yields "()",
// which is a known-empty signature rather than an unknown one.
func ExtractTypesFromParams(params string) string {
	if strings.TrimSpace(params) == "" {
		return "()"
	}

	tokens := SplitParams(params)
	style := DetectParamStyle(tokens)

	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if extracted, ok := extractTypeFromSingleParam(tok, style); ok {
			out = append(out, extracted)
		}
	}
	return "(" + strings.Join(out, ", ") + ")"
}

// extractTypeFromSingleParam reduces one parameter token under the given
// style. The second return is false when the token contributes nothing to
// the signature (implicit self, empty token).
func extractTypeFromSingleParam(token string, style ParamStyle) (string, bool) {
	tok := strings.TrimSpace(token)
	if tok == "" {
		return "", false
	}

	// Variadic tokens keep their marker. A colon-typed annotation is
	// re-wrapped (*args: int -> *int); anything else passes through.
	if prefix := variadicPrefix(tok); prefix != "" {
		rest := strings.TrimSpace(strings.TrimPrefix(tok, prefix))
		if _, typ, ok := splitColon(rest); ok && typ != "" {
			return prefix + typ, true
		}
		return tok, true
	}

	if isImplicitSelf(tok) {
		return "", false
	}

	switch style {
	case StyleColon:
		name, typ, ok := splitColon(tok)
		if !ok {
			// Partially annotated list; this token is a bare name.
			return stripDefault(tok), true
		}
		optional := strings.HasSuffix(name, "?")
		if typ == "" {
			return strings.TrimSuffix(name, "?"), true
		}
		if optional {
			typ += "?"
		}
		return typ, true

	case StyleTypeBefore:
		parts := strings.Fields(stripDefault(tok))
		switch {
		case len(parts) >= 2:
			return strings.Join(parts[:len(parts)-1], " "), true
		case len(parts) == 1:
			return parts[0], true
		}
		return "", false

	case StyleTypeAfterGo:
		parts := strings.Fields(stripDefault(tok))
		switch {
		case len(parts) >= 2:
			return strings.Join(parts[1:], " "), true
		case len(parts) == 1:
			return parts[0], true
		}
		return "", false

	case StylePhp:
		base := stripDefault(tok)
		if m := phpTypedRe.FindStringSubmatch(base); m != nil {
			return m[1], true
		}
		if i := strings.Index(base, "$"); i >= 0 {
			return identifierPrefix(base[i+1:]), true
		}
		return base, true

	default: // StyleDynamic
		return stripDefault(tok), true
	}
}

// splitColon splits "name: Type = default" into its trimmed name and type
// parts, stripping the default clause. ok is false when the token has no
// colon.
func splitColon(tok string) (name, typ string, ok bool) {
	idx := strings.Index(tok, ":")
	if idx < 0 {
		return "", "", false
	}
	name = strings.TrimSpace(tok[:idx])
	typ = strings.TrimSpace(stripDefault(tok[idx+1:]))
	return name, typ, true
}

// identifierPrefix returns the leading identifier run of s.
func identifierPrefix(s string) string {
	for i := 0; i < len(s); i++ {
		c := s[i]
		isIdent := c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
		if !isIdent {
			return s[:i]
		}
	}
	return s
}

package signature

import (
	"regexp"
	"strings"
)

var fencedBlockRe = regexp.MustCompile("(?s)```[^\n]*\n(.*?)```")

// ExtractFromHover pulls a canonical parameter signature out of hover
// markup. The first fenced code block is preferred over prose; within it,
// a parenthesized group directly followed by a return-type indicator
// (":", "=>", "->") wins, with a group at end-of-line as fallback. ok is
// false when the hover carries no detectable parameter list, which callers
// treat as "omit the signature", never as an error.
func ExtractFromHover(hoverText string) (sig string, ok bool) {
	if strings.TrimSpace(hoverText) == "" {
		return "", false
	}

	content := hoverText
	if m := fencedBlockRe.FindStringSubmatch(hoverText); m != nil {
		content = m[1]
	} else {
		// No fenced block; inline code spans would otherwise glue
		// backticks onto the outermost tokens.
		content = strings.ReplaceAll(content, "`", "")
	}

	if params, found := paramsBeforeReturnMarker(content); found {
		return ExtractTypesFromParams(params), true
	}
	if params, found := paramsAtLineEnd(content); found {
		return ExtractTypesFromParams(params), true
	}
	return "", false
}

// paramsBeforeReturnMarker finds the first balanced (...) group whose
// closing parenthesis is followed, after optional spaces, by a return-type
// indicator. Groups like "(method)" in TypeScript hover prefixes fail the
// indicator check and are skipped naturally.
func paramsBeforeReturnMarker(content string) (string, bool) {
	for start := 0; start < len(content); start++ {
		if content[start] != '(' {
			continue
		}
		end, balanced := matchParen(content, start)
		if !balanced {
			continue
		}

		rest := content[end+1:]
		i := 0
		for i < len(rest) && (rest[i] == ' ' || rest[i] == '\t') {
			i++
		}
		if i < len(rest) && rest[i] == ':' {
			return content[start+1 : end], true
		}
		if i+1 < len(rest) && (rest[i:i+2] == "=>" || rest[i:i+2] == "->") {
			return content[start+1 : end], true
		}
	}
	return "", false
}

// paramsAtLineEnd finds a balanced (...) group that closes a line, as in
// untyped declarations like "def add(a, b)".
func paramsAtLineEnd(content string) (string, bool) {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimRight(line, " \t\r")
		if !strings.HasSuffix(line, ")") {
			continue
		}
		depth := 0
		for i := len(line) - 1; i >= 0; i-- {
			switch line[i] {
			case ')':
				depth++
			case '(':
				depth--
				if depth == 0 {
					return line[i+1 : len(line)-1], true
				}
			}
		}
	}
	return "", false
}

// matchParen returns the index of the ')' balancing the '(' at open.
func matchParen(s string, open int) (int, bool) {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

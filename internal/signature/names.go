package signature

import (
	"regexp"
	"strings"
)

// NormalizedSymbol is a raw backend symbol name reduced to a stable
// identity. BareName is always set; Signature is empty when no parameter
// information was available. The signature is descriptive only and must
// never be used as a matching key.
type NormalizedSymbol struct {
	BareName  string `json:"bareName"`
	Signature string `json:"signature,omitempty"`
}

// embeddedSigRe matches names that carry their own parameter list, as some
// backends emit: identifier prefix, parenthesized group, optional
// colon-prefixed return suffix. The group is greedy so nested parentheses
// inside the parameter list stay intact.
var embeddedSigRe = regexp.MustCompile(`^([A-Za-z_$][\w$.]*)\s*\((.*)\)\s*(:\s*.*)?$`)

// Normalize splits a raw symbol name into bare name and signature. Names
// with an embedded parameter list ("Method(int, string) : void") are split
// apart; plain names pass through with rawDetail, when non-blank, standing
// in as the signature.
func Normalize(rawName, rawDetail string) NormalizedSymbol {
	if m := embeddedSigRe.FindStringSubmatch(rawName); m != nil {
		return NormalizedSymbol{
			BareName:  strings.TrimSpace(m[1]),
			Signature: "(" + strings.TrimSpace(m[2]) + ")",
		}
	}

	sig := rawDetail
	if strings.TrimSpace(sig) == "" {
		sig = ""
	}
	return NormalizedSymbol{BareName: rawName, Signature: sig}
}

// BareName is shorthand for Normalize without detail. Normalizing an
// already-bare name is the identity.
func BareName(rawName string) string {
	return Normalize(rawName, "").BareName
}

// SanitizeName reduces a raw symbol name to a form safe for file names:
// the bare name with characters disallowed on common filesystems removed,
// along with any residual parentheses.
func SanitizeName(rawName string) string {
	bare := BareName(rawName)
	return strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', ':', '"', '/', '\\', '|', '?', '*', '(', ')':
			return -1
		}
		return r
	}, bare)
}

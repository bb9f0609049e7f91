//go:build !cgo

package symbols

import (
	"context"

	"callmap/internal/errors"
	"callmap/internal/lsp"
)

// Extractor is a placeholder in builds without cgo; tree-sitter
// grammars need a C toolchain.
type Extractor struct{}

// NewExtractor returns nil when tree-sitter extraction is unavailable.
func NewExtractor() *Extractor { return nil }

// IsAvailable reports whether tree-sitter extraction can run.
func (e *Extractor) IsAvailable() bool { return false }

func (e *Extractor) DocumentSymbols(ctx context.Context, uri string) ([]lsp.DocumentSymbol, error) {
	return nil, errors.New(errors.BackendUnavailable, "tree-sitter extraction requires a cgo build")
}

func (e *Extractor) ExtractSource(ctx context.Context, source []byte, lang Language) ([]lsp.DocumentSymbol, error) {
	return nil, errors.New(errors.BackendUnavailable, "tree-sitter extraction requires a cgo build")
}

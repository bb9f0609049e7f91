package query

import (
	"context"

	"callmap/internal/errors"
	"callmap/internal/lsp"
	"callmap/internal/paths"
	"callmap/internal/signature"
)

// SignatureRequest asks for the symbol at a position. Position is
// zero-based.
type SignatureRequest struct {
	Path     string
	Position lsp.Position
}

// SignatureResult is the normalized symbol at a position. Signature is
// empty when no provider could detect one; that is an omission, not an
// error.
type SignatureResult struct {
	Name       string      `json:"name"`
	BareName   string      `json:"bareName"`
	Kind       string      `json:"kind,omitempty"`
	Signature  string      `json:"signature,omitempty"`
	URI        string      `json:"uri"`
	Line       int         `json:"line"`
	Column     int         `json:"column"`
	Provenance *Provenance `json:"-"`
}

// Signature resolves the symbol at a position and normalizes its
// signature, preferring hover text over the call hierarchy detail.
func (e *Engine) Signature(ctx context.Context, req SignatureRequest) (*SignatureResult, error) {
	abs := e.absPath(req.Path)
	prov := e.newProvenance()

	provider, err := e.callProvider(abs, prov)
	if err != nil {
		return nil, err
	}

	uri := paths.ToFileURI(abs)
	items, err := provider.PrepareCallHierarchy(ctx, uri, req.Position)
	if err != nil {
		return nil, errors.Wrap(errors.SymbolNotResolvable, "failed to resolve symbol", err)
	}
	if len(items) == 0 {
		return nil, errors.New(errors.SymbolNotResolvable, "no resolvable symbol at the requested position")
	}
	item := items[0]

	sig := ""
	hoverText, hoverErr := provider.Hover(ctx, item.URI, item.SelectionRange.Start)
	if hoverErr != nil {
		e.logger.Debug("Hover lookup failed", map[string]interface{}{
			"symbol": item.Name,
			"error":  hoverErr.Error(),
		})
	} else if hoverText != "" {
		if s, ok := signature.ExtractFromHover(hoverText); ok {
			sig = s
		}
	}

	normalized := signature.Normalize(item.Name, item.Detail)
	if sig == "" {
		sig = normalized.Signature
	}

	return &SignatureResult{
		Name:       item.Name,
		BareName:   normalized.BareName,
		Kind:       item.Kind.String(),
		Signature:  sig,
		URI:        item.URI,
		Line:       item.SelectionRange.Start.Line,
		Column:     item.SelectionRange.Start.Character,
		Provenance: prov,
	}, nil
}

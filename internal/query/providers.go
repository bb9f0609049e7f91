package query

import (
	"context"
	"os"
	"sync"

	"callmap/internal/errors"
	"callmap/internal/logging"
	"callmap/internal/lsp"
	"callmap/internal/paths"
)

// lspProvider curries the supervisor with one language and opens
// documents on demand. It serves both call hierarchy and document
// symbol queries.
type lspProvider struct {
	sup        *lsp.Supervisor
	languageID string
	logger     *logging.Logger

	mu     sync.Mutex
	opened map[string]bool
}

func newLSPProvider(sup *lsp.Supervisor, languageID string, logger *logging.Logger) *lspProvider {
	return &lspProvider{
		sup:        sup,
		languageID: languageID,
		logger:     logger,
		opened:     make(map[string]bool),
	}
}

// ensureOpen announces a document before its first query. Servers may
// refuse document-scoped requests for files they have never seen.
func (p *lspProvider) ensureOpen(ctx context.Context, uri string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.opened[uri] {
		return nil
	}
	data, err := os.ReadFile(paths.FromFileURI(uri))
	if err != nil {
		return errors.Wrap(errors.InternalError, "failed to read document for didOpen", err)
	}
	if err := p.sup.DidOpen(ctx, p.languageID, uri, string(data)); err != nil {
		return err
	}
	p.opened[uri] = true
	return nil
}

func (p *lspProvider) PrepareCallHierarchy(ctx context.Context, uri string, pos lsp.Position) ([]lsp.CallHierarchyItem, error) {
	if err := p.ensureOpen(ctx, uri); err != nil {
		return nil, err
	}
	return p.sup.PrepareCallHierarchy(ctx, p.languageID, uri, pos)
}

func (p *lspProvider) IncomingCalls(ctx context.Context, item lsp.CallHierarchyItem) ([]lsp.CallHierarchyIncomingCall, error) {
	return p.sup.IncomingCalls(ctx, p.languageID, item)
}

func (p *lspProvider) OutgoingCalls(ctx context.Context, item lsp.CallHierarchyItem) ([]lsp.CallHierarchyOutgoingCall, error) {
	return p.sup.OutgoingCalls(ctx, p.languageID, item)
}

func (p *lspProvider) Hover(ctx context.Context, uri string, pos lsp.Position) (string, error) {
	if err := p.ensureOpen(ctx, uri); err != nil {
		return "", err
	}
	return p.sup.Hover(ctx, p.languageID, uri, pos)
}

func (p *lspProvider) DocumentSymbols(ctx context.Context, uri string) ([]lsp.DocumentSymbol, error) {
	if err := p.ensureOpen(ctx, uri); err != nil {
		return nil, err
	}
	return p.sup.DocumentSymbols(ctx, p.languageID, uri)
}

// unavailableSource reports every document as unservable so the
// relocator drops straight to its stale line fallback.
type unavailableSource struct{}

func (unavailableSource) DocumentSymbols(ctx context.Context, uri string) ([]lsp.DocumentSymbol, error) {
	return nil, errors.New(errors.BackendUnavailable, "no symbol provider available")
}

package relocate

import (
	"bytes"
	"context"
	"os"

	"callmap/internal/errors"
	"callmap/internal/logging"
	"callmap/internal/lsp"
	"callmap/internal/paths"
)

// SymbolSource produces the live symbol tree for a document. One query is
// issued per relocation attempt; everything after is in-memory matching.
type SymbolSource interface {
	DocumentSymbols(ctx context.Context, uri string) ([]lsp.DocumentSymbol, error)
}

// Relocator resolves stored references against live symbol trees, falling
// back to the stored line when no tree can be produced at all.
type Relocator struct {
	source SymbolSource
	logger *logging.Logger
}

func NewRelocator(source SymbolSource, logger *logging.Logger) *Relocator {
	return &Relocator{source: source, logger: logger}
}

// Relocate finds the current location of a stored reference. A miss is
// reported as a RELOCATION_MISS error naming the symbol; callers mark the
// owning node broken and carry on.
func (r *Relocator) Relocate(ctx context.Context, stored StoredRef) (*Match, error) {
	tree, err := r.source.DocumentSymbols(ctx, stored.URI)
	if err != nil || len(tree) == 0 {
		if err != nil {
			r.logger.Warn("Symbol tree unavailable", map[string]interface{}{
				"uri":   stored.URI,
				"error": err.Error(),
			})
		}
		if match := r.staleLineFallback(stored); match != nil {
			return match, nil
		}
		if err != nil {
			return nil, errors.Wrap(errors.RelocationMiss, "symbol not found: "+stored.Name, err)
		}
		return nil, errors.New(errors.RelocationMiss, "symbol not found: "+stored.Name)
	}

	if match, ok := Find(stored, tree); ok {
		r.logger.Debug("Relocated symbol", map[string]interface{}{
			"name":       stored.Name,
			"uri":        stored.URI,
			"line":       match.Line,
			"strategy":   string(match.Strategy),
			"confidence": string(match.Confidence),
		})
		return match, nil
	}

	r.logger.Debug("Structural search exhausted", map[string]interface{}{
		"name":      stored.Name,
		"container": stored.ContainerName,
		"uri":       stored.URI,
	})
	return nil, errors.New(errors.RelocationMiss, "symbol not found: "+stored.Name)
}

// staleLineFallback accepts the stored line as a best effort location when
// structural search is entirely unavailable. The line must still exist in
// the document. Logged at Info so it stands apart from structural matches.
func (r *Relocator) staleLineFallback(stored StoredRef) *Match {
	if stored.Line == nil {
		return nil
	}
	data, err := os.ReadFile(paths.FromFileURI(stored.URI))
	if err != nil {
		return nil
	}
	if *stored.Line < 0 || *stored.Line >= countLines(data) {
		return nil
	}

	r.logger.Info("Using stale line fallback", map[string]interface{}{
		"name": stored.Name,
		"uri":  stored.URI,
		"line": *stored.Line,
	})
	return &Match{
		URI:        stored.URI,
		Line:       *stored.Line,
		Column:     0,
		Name:       stored.Name,
		Strategy:   StrategyStaleLine,
		Confidence: ConfidenceSpeculative,
	}
}

func countLines(data []byte) int {
	if len(data) == 0 {
		return 0
	}
	n := bytes.Count(data, []byte("\n"))
	if data[len(data)-1] != '\n' {
		n++
	}
	return n
}

// Package query is the engine behind every callmap operation. It picks
// the provider that can answer for a given file, runs graph builds,
// signature lookups, and relocations through it, and persists results
// in the workspace store.
package query

import (
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"callmap/internal/config"
	"callmap/internal/errors"
	"callmap/internal/graph"
	"callmap/internal/logging"
	"callmap/internal/lsp"
	"callmap/internal/paths"
	"callmap/internal/registry"
	"callmap/internal/relocate"
	"callmap/internal/scip"
	"callmap/internal/store"
	"callmap/internal/symbols"
)

// Engine coordinates the symbol providers and the graph store for one
// workspace. Construct it once per workspace and close it when done.
type Engine struct {
	cfg    *config.Config
	logger *logging.Logger
	reg    *registry.Registry

	supervisor *lsp.Supervisor
	scip       *scip.Provider
	extractor  *symbols.Extractor

	db           *store.DB
	graphs       *store.GraphStore
	fingerprints *store.FingerprintStore
}

// NewEngine opens the workspace store and wires up whichever providers
// the configuration enables. A missing SCIP index or language server is
// not an error; the engine degrades to the providers it has.
func NewEngine(cfg *config.Config, logger *logging.Logger) (*Engine, error) {
	if logger == nil {
		logger = logging.Discard()
	}

	reg, err := registry.Load(cfg.WorkspaceRoot)
	if err != nil {
		return nil, err
	}

	db, err := store.Open(cfg.WorkspaceRoot, cfg.Store.Path, logger)
	if err != nil {
		return nil, err
	}

	graphs, err := store.NewGraphStore(db, logger, cfg.Store.Compression)
	if err != nil {
		db.Close()
		return nil, err
	}

	e := &Engine{
		cfg:          cfg,
		logger:       logger,
		reg:          reg,
		extractor:    symbols.NewExtractor(),
		db:           db,
		graphs:       graphs,
		fingerprints: store.NewFingerprintStore(db, logger),
	}

	if cfg.Lsp.Enabled {
		e.supervisor = lsp.NewSupervisor(cfg, reg, logger)
	}

	if cfg.Scip.Enabled {
		indexPath := scip.ResolveIndexPath(cfg.WorkspaceRoot, cfg.Scip.IndexPath)
		idx, err := scip.Load(indexPath)
		if err != nil {
			logger.Debug("SCIP index not loaded", map[string]interface{}{
				"path":  indexPath,
				"error": err.Error(),
			})
		} else {
			e.scip = scip.NewProvider(idx, cfg.WorkspaceRoot, logger)
		}
	}

	return e, nil
}

// Config returns the configuration the engine was built with.
func (e *Engine) Config() *config.Config {
	return e.cfg
}

// Close stops any running language servers and closes the store.
func (e *Engine) Close() error {
	if e.supervisor != nil {
		e.supervisor.Shutdown()
	}
	return e.db.Close()
}

func (e *Engine) newProvenance() *Provenance {
	return &Provenance{Workspace: e.cfg.WorkspaceRoot}
}

// absPath resolves an operation path against the workspace root.
func (e *Engine) absPath(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return paths.JoinWorkspace(e.cfg.WorkspaceRoot, path)
}

// scipCovers reports whether the loaded index has a document for the
// file.
func (e *Engine) scipCovers(absPath string) bool {
	if e.scip == nil {
		return false
	}
	rel, err := paths.Canonicalize(absPath, e.cfg.WorkspaceRoot)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	return e.scip.Index().Document(rel) != nil
}

// resolveSpec returns the server spec for a language, with config
// overrides taking precedence over the registry.
func (e *Engine) resolveSpec(languageID string) (registry.ServerSpec, bool) {
	if srv, ok := e.cfg.Lsp.Servers[languageID]; ok {
		return registry.ServerSpec{Command: srv.Command, Args: srv.Args}, true
	}
	return e.reg.Lookup(languageID)
}

// lspFor reports the language server that can serve a file. The server
// binary must be on PATH; a registered but uninstalled server is not a
// provider.
func (e *Engine) lspFor(absPath string) (string, bool) {
	if e.supervisor == nil {
		return "", false
	}
	languageID, ok := e.reg.LanguageForPath(absPath)
	if !ok {
		return "", false
	}
	spec, ok := e.resolveSpec(languageID)
	if !ok {
		return "", false
	}
	if _, err := exec.LookPath(spec.Command); err != nil {
		return "", false
	}
	return languageID, true
}

// callProvider picks the call hierarchy provider for a file: fresh SCIP
// first, then a configured language server, then a stale SCIP index as
// the last resort. Tree-sitter cannot answer call hierarchy queries, so
// it never appears on this ladder.
func (e *Engine) callProvider(absPath string, prov *Provenance) (graph.Provider, error) {
	scipAvailable := e.scipCovers(absPath)
	scipStale := scipAvailable && e.scip.Index().Stale(absPath)
	if scipAvailable {
		prov.IndexedAt = e.scip.Index().ModTime.UTC().Format(time.RFC3339)
		prov.IndexStale = scipStale
	}

	if scipAvailable && !scipStale {
		prov.record(ProviderSCIP, true, true)
		prov.Completeness = Completeness{Score: scoreSCIPFresh, Reason: "fresh SCIP index"}
		return e.scip, nil
	}

	if languageID, ok := e.lspFor(absPath); ok {
		prov.record(ProviderSCIP, scipAvailable, false)
		prov.record(ProviderLSP, true, true)
		prov.Completeness = Completeness{Score: scoreLSP, Reason: "language server: " + languageID}
		return newLSPProvider(e.supervisor, languageID, e.logger), nil
	}

	if scipAvailable {
		prov.record(ProviderSCIP, true, true)
		prov.record(ProviderLSP, false, false)
		prov.Completeness = Completeness{Score: scoreSCIPStale, Reason: "stale SCIP index"}
		prov.Warnings = append(prov.Warnings, "SCIP index is older than the source file")
		return e.scip, nil
	}

	prov.record(ProviderSCIP, false, false)
	prov.record(ProviderLSP, false, false)
	return nil, errors.New(errors.BackendUnavailable, "no call hierarchy provider for "+filepath.Base(absPath))
}

// symbolSource picks the document symbol provider for a file. Unlike
// call hierarchy, tree-sitter can serve symbol trees, so it closes the
// ladder ahead of a stale index. When nothing can serve, the relocator
// still gets a source so it can reach its line fallback.
func (e *Engine) symbolSource(absPath string, prov *Provenance) relocate.SymbolSource {
	scipAvailable := e.scipCovers(absPath)
	scipStale := scipAvailable && e.scip.Index().Stale(absPath)
	if scipAvailable {
		prov.IndexedAt = e.scip.Index().ModTime.UTC().Format(time.RFC3339)
		prov.IndexStale = scipStale
	}

	if scipAvailable && !scipStale {
		prov.record(ProviderSCIP, true, true)
		prov.Completeness = Completeness{Score: scoreSCIPFresh, Reason: "fresh SCIP index"}
		return e.scip
	}

	if languageID, ok := e.lspFor(absPath); ok {
		prov.record(ProviderSCIP, scipAvailable, false)
		prov.record(ProviderLSP, true, true)
		prov.Completeness = Completeness{Score: scoreLSP, Reason: "language server: " + languageID}
		return newLSPProvider(e.supervisor, languageID, e.logger)
	}

	if e.extractor.IsAvailable() {
		if _, ok := symbols.LanguageForPath(absPath); ok {
			prov.record(ProviderSCIP, scipAvailable, false)
			prov.record(ProviderLSP, false, false)
			prov.record(ProviderTreeSitter, true, true)
			prov.Completeness = Completeness{Score: scoreTreeSitter, Reason: "tree-sitter extraction"}
			return e.extractor
		}
	}

	if scipAvailable {
		prov.record(ProviderSCIP, true, true)
		prov.record(ProviderLSP, false, false)
		prov.record(ProviderTreeSitter, false, false)
		prov.Completeness = Completeness{Score: scoreSCIPStale, Reason: "stale SCIP index"}
		prov.Warnings = append(prov.Warnings, "SCIP index is older than the source file")
		return e.scip
	}

	prov.record(ProviderSCIP, false, false)
	prov.record(ProviderLSP, false, false)
	prov.record(ProviderTreeSitter, false, false)
	return unavailableSource{}
}

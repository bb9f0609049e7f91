package query

import (
	"os/exec"
	"time"

	"callmap/internal/lsp"
	"callmap/internal/version"
)

// ServerInfo describes one registered language server and its state on
// this machine.
type ServerInfo struct {
	LanguageID string   `json:"languageId"`
	Command    string   `json:"command"`
	Args       []string `json:"args,omitempty"`
	Extensions []string `json:"extensions,omitempty"`
	Builtin    bool     `json:"builtin"`
	Installed  bool     `json:"installed"`
	Running    bool     `json:"running"`
}

// Servers lists every registered language server, sorted by language.
func (e *Engine) Servers() []ServerInfo {
	specs := e.reg.Servers()
	languages := e.reg.Languages()
	out := make([]ServerInfo, 0, len(languages))
	for _, languageID := range languages {
		spec := specs[languageID]
		info := ServerInfo{
			LanguageID: languageID,
			Command:    spec.Command,
			Args:       spec.Args,
			Extensions: spec.Extensions,
			Builtin:    spec.Builtin,
		}
		if _, err := exec.LookPath(spec.Command); err == nil {
			info.Installed = true
		}
		if e.supervisor != nil {
			info.Running = e.supervisor.IsReady(languageID)
		}
		out = append(out, info)
	}
	return out
}

// ScipStatus describes the loaded SCIP index, if any.
type ScipStatus struct {
	Available bool   `json:"available"`
	Path      string `json:"path,omitempty"`
	Tool      string `json:"tool,omitempty"`
	Documents int    `json:"documents,omitempty"`
	IndexedAt string `json:"indexedAt,omitempty"`
}

// StoreStatus describes the graph store.
type StoreStatus struct {
	Path   string `json:"path"`
	Graphs int    `json:"graphs"`
}

// StatusResult is a point-in-time view of everything the engine can
// reach.
type StatusResult struct {
	Version       string                      `json:"version"`
	WorkspaceRoot string                      `json:"workspaceRoot"`
	Scip          ScipStatus                  `json:"scip"`
	TreeSitter    bool                        `json:"treeSitter"`
	Servers       map[string]lsp.ProcessStats `json:"servers,omitempty"`
	Languages     []string                    `json:"languages"`
	Store         StoreStatus                 `json:"store"`
}

// Status reports provider availability and store contents.
func (e *Engine) Status() (*StatusResult, error) {
	result := &StatusResult{
		Version:       version.Version,
		WorkspaceRoot: e.cfg.WorkspaceRoot,
		TreeSitter:    e.extractor.IsAvailable(),
		Languages:     e.reg.Languages(),
		Store:         StoreStatus{Path: e.db.Path()},
	}

	if e.scip != nil {
		idx := e.scip.Index()
		result.Scip = ScipStatus{
			Available: true,
			Path:      idx.Path,
			Tool:      idx.Tool,
			Documents: len(idx.Documents),
			IndexedAt: idx.ModTime.UTC().Format(time.RFC3339),
		}
	}

	if e.supervisor != nil {
		if stats := e.supervisor.Stats(); len(stats) > 0 {
			result.Servers = stats
		}
	}

	metas, err := e.graphs.ListGraphs()
	if err != nil {
		return nil, err
	}
	result.Store.Graphs = len(metas)

	return result, nil
}

// Package registry maps languages to launchable language servers. A
// compiled-in set covers the common servers; a workspace servers.toml can
// override or extend it.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"callmap/internal/errors"
)

// FileName is the workspace-relative registry file.
const FileName = ".callmap/servers.toml"

// ServerSpec describes how to launch one language server over stdio.
type ServerSpec struct {
	Command    string   `toml:"command" json:"command"`
	Args       []string `toml:"args,omitempty" json:"args,omitempty"`
	Extensions []string `toml:"extensions,omitempty" json:"extensions,omitempty"`

	// Builtin is true for compiled-in entries not read from disk.
	Builtin bool `toml:"-" json:"builtin"`
}

// registryFile is the on-disk shape: a [servers.<languageId>] table per
// server.
type registryFile struct {
	Servers map[string]ServerSpec `toml:"servers"`
}

// Registry resolves language IDs to server specs and file paths to
// language IDs.
type Registry struct {
	servers    map[string]ServerSpec
	extensions map[string]string
}

// builtinServers returns the compiled-in defaults. Commands are resolved
// through PATH at spawn time.
func builtinServers() map[string]ServerSpec {
	return map[string]ServerSpec{
		"go": {
			Command:    "gopls",
			Extensions: []string{".go"},
			Builtin:    true,
		},
		"typescript": {
			Command:    "typescript-language-server",
			Args:       []string{"--stdio"},
			Extensions: []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs"},
			Builtin:    true,
		},
		"python": {
			Command:    "pyright-langserver",
			Args:       []string{"--stdio"},
			Extensions: []string{".py", ".pyi"},
			Builtin:    true,
		},
		"rust": {
			Command:    "rust-analyzer",
			Extensions: []string{".rs"},
			Builtin:    true,
		},
		"cpp": {
			Command:    "clangd",
			Extensions: []string{".c", ".h", ".cpp", ".hpp", ".cc", ".cxx"},
			Builtin:    true,
		},
		"java": {
			Command:    "jdtls",
			Extensions: []string{".java"},
			Builtin:    true,
		},
		"php": {
			Command:    "intelephense",
			Args:       []string{"--stdio"},
			Extensions: []string{".php"},
			Builtin:    true,
		},
		"ruby": {
			Command:    "solargraph",
			Args:       []string{"stdio"},
			Extensions: []string{".rb"},
			Builtin:    true,
		},
		"kotlin": {
			Command:    "kotlin-language-server",
			Extensions: []string{".kt", ".kts"},
			Builtin:    true,
		},
	}
}

// Builtin returns a registry holding only the compiled-in servers.
func Builtin() *Registry {
	r := &Registry{
		servers:    builtinServers(),
		extensions: make(map[string]string),
	}
	r.rebuildExtensions()
	return r
}

// Load returns the builtin registry merged with the workspace
// servers.toml, when present. File entries replace builtin entries for the
// same language ID.
func Load(workspaceRoot string) (*Registry, error) {
	r := Builtin()

	path := filepath.Join(workspaceRoot, FileName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return r, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ConfigInvalid, "failed to read server registry", err)
	}

	var file registryFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrap(errors.ConfigInvalid, fmt.Sprintf("invalid server registry %s", path), err)
	}

	for languageID, spec := range file.Servers {
		if spec.Command == "" {
			return nil, errors.New(errors.ConfigInvalid,
				fmt.Sprintf("server %q in %s has no command", languageID, path))
		}
		spec.Builtin = false
		r.servers[languageID] = spec
	}
	r.rebuildExtensions()

	return r, nil
}

// Save writes the non-builtin entries back to the workspace servers.toml.
func (r *Registry) Save(workspaceRoot string) error {
	file := registryFile{Servers: make(map[string]ServerSpec)}
	for languageID, spec := range r.servers {
		if !spec.Builtin {
			file.Servers[languageID] = spec
		}
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return errors.Wrap(errors.ConfigInvalid, "failed to encode server registry", err)
	}

	path := filepath.Join(workspaceRoot, FileName)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(errors.StoreError, "failed to create registry directory", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(errors.StoreError, "failed to write server registry", err)
	}
	return nil
}

// Set adds or replaces a server entry. Entries added this way are
// persisted by Save.
func (r *Registry) Set(languageID string, spec ServerSpec) error {
	if languageID == "" {
		return errors.New(errors.InvalidParameter, "language ID is required")
	}
	if spec.Command == "" {
		return errors.New(errors.InvalidParameter, "server command is required")
	}
	spec.Builtin = false
	r.servers[languageID] = spec
	r.rebuildExtensions()
	return nil
}

// Lookup returns the spec for a language ID.
func (r *Registry) Lookup(languageID string) (ServerSpec, bool) {
	spec, ok := r.servers[languageID]
	return spec, ok
}

// LanguageForPath maps a file path to a language ID by extension.
func (r *Registry) LanguageForPath(path string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return "", false
	}
	languageID, ok := r.extensions[ext]
	return languageID, ok
}

// Languages returns all registered language IDs, sorted.
func (r *Registry) Languages() []string {
	out := make([]string, 0, len(r.servers))
	for languageID := range r.servers {
		out = append(out, languageID)
	}
	sort.Strings(out)
	return out
}

// Servers returns a copy of all entries keyed by language ID.
func (r *Registry) Servers() map[string]ServerSpec {
	out := make(map[string]ServerSpec, len(r.servers))
	for languageID, spec := range r.servers {
		out[languageID] = spec
	}
	return out
}

func (r *Registry) rebuildExtensions() {
	r.extensions = make(map[string]string)

	// Sorted for a deterministic winner when two servers claim the same
	// extension; non-builtin entries win over builtin ones.
	ids := make([]string, 0, len(r.servers))
	for languageID := range r.servers {
		ids = append(ids, languageID)
	}
	sort.Strings(ids)

	for _, languageID := range ids {
		if !r.servers[languageID].Builtin {
			continue
		}
		for _, ext := range r.servers[languageID].Extensions {
			r.extensions[strings.ToLower(ext)] = languageID
		}
	}
	for _, languageID := range ids {
		if r.servers[languageID].Builtin {
			continue
		}
		for _, ext := range r.servers[languageID].Extensions {
			r.extensions[strings.ToLower(ext)] = languageID
		}
	}
}

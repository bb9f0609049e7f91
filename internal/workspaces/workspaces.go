// Package workspaces manages the user-level registry of known workspaces
// stored in ~/.callmap/workspaces.toml. The MCP server uses it to switch
// the workspace it serves without restarting.
package workspaces

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"

	"callmap/internal/errors"
)

// Workspace is one registered workspace root.
type Workspace struct {
	// ID is the immutable UUID assigned at registration.
	ID string `toml:"id"`

	// Name is the mutable human-friendly alias.
	Name string `toml:"name"`

	// Path is the absolute filesystem path to the workspace root.
	Path string `toml:"path"`

	// AddedAt is when the workspace was registered.
	AddedAt time.Time `toml:"added_at"`
}

// Registry is the full workspaces file plus its on-disk location.
type Registry struct {
	// Active names the workspace new sessions should serve.
	Active string `toml:"active,omitempty"`

	Workspaces []Workspace `toml:"workspaces"`

	path string
}

// DefaultPath returns the per-user registry location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".callmap", "workspaces.toml"), nil
}

// Load reads the registry at path, or the default location when path is
// empty. A missing file yields an empty registry.
func Load(path string) (*Registry, error) {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	reg := &Registry{path: path}
	if _, err := toml.DecodeFile(path, reg); err != nil {
		if os.IsNotExist(err) {
			return reg, nil
		}
		return nil, fmt.Errorf("failed to parse workspaces registry: %w", err)
	}
	return reg, nil
}

// Save writes the registry back to its on-disk location.
func (r *Registry) Save() error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return fmt.Errorf("failed to create registry directory: %w", err)
	}

	f, err := os.Create(r.path)
	if err != nil {
		return fmt.Errorf("failed to create registry file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(r); err != nil {
		return fmt.Errorf("failed to encode registry: %w", err)
	}
	return nil
}

// Add registers a workspace. The path must exist and resolve to a
// directory; names and paths must be unique.
func (r *Registry) Add(name, path string) (*Workspace, error) {
	if name == "" {
		return nil, errors.New(errors.InvalidParameter, "workspace name is required")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(errors.InvalidParameter, "invalid workspace path", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, errors.Wrap(errors.InvalidParameter, "workspace path does not exist: "+abs, err)
	}
	if !info.IsDir() {
		return nil, errors.New(errors.InvalidParameter, "workspace path is not a directory: "+abs)
	}

	for _, w := range r.Workspaces {
		if w.Name == name {
			return nil, errors.New(errors.InvalidParameter, "workspace "+name+" already registered")
		}
		if w.Path == abs {
			return nil, errors.New(errors.InvalidParameter, "workspace path already registered as "+w.Name)
		}
	}

	ws := Workspace{
		ID:      uuid.New().String(),
		Name:    name,
		Path:    abs,
		AddedAt: time.Now().UTC(),
	}
	r.Workspaces = append(r.Workspaces, ws)
	return &ws, nil
}

// Remove unregisters a workspace by name. Removing the active workspace
// clears the active marker.
func (r *Registry) Remove(name string) error {
	for i, w := range r.Workspaces {
		if w.Name == name {
			r.Workspaces = append(r.Workspaces[:i], r.Workspaces[i+1:]...)
			if r.Active == name {
				r.Active = ""
			}
			return nil
		}
	}
	return errors.New(errors.WorkspaceNotFound, "workspace not found: "+name)
}

// Rename changes a workspace's alias; its ID and path stay the same.
func (r *Registry) Rename(oldName, newName string) error {
	if newName == "" {
		return errors.New(errors.InvalidParameter, "new workspace name is required")
	}
	for _, w := range r.Workspaces {
		if w.Name == newName {
			return errors.New(errors.InvalidParameter, "workspace "+newName+" already registered")
		}
	}
	for i, w := range r.Workspaces {
		if w.Name == oldName {
			r.Workspaces[i].Name = newName
			if r.Active == oldName {
				r.Active = newName
			}
			return nil
		}
	}
	return errors.New(errors.WorkspaceNotFound, "workspace not found: "+oldName)
}

// Get returns a workspace by name.
func (r *Registry) Get(name string) *Workspace {
	for i := range r.Workspaces {
		if r.Workspaces[i].Name == name {
			return &r.Workspaces[i]
		}
	}
	return nil
}

// SetActive marks the named workspace as the one to serve.
func (r *Registry) SetActive(name string) error {
	if r.Get(name) == nil {
		return errors.New(errors.WorkspaceNotFound, "workspace not found: "+name)
	}
	r.Active = name
	return nil
}

// ActiveWorkspace returns the active workspace, or nil when none is set.
func (r *Registry) ActiveWorkspace() *Workspace {
	if r.Active == "" {
		return nil
	}
	return r.Get(r.Active)
}

// List returns all workspaces sorted by name.
func (r *Registry) List() []Workspace {
	out := make([]Workspace, len(r.Workspaces))
	copy(out, r.Workspaces)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}

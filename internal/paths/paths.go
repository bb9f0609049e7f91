package paths

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Canonicalize converts an absolute path to a workspace-relative canonical path
// - Resolves symlinks to real paths
// - Makes path relative to the workspace root
// - Converts backslashes to forward slashes
func Canonicalize(absolutePath string, workspaceRoot string) (string, error) {
	resolved, err := filepath.EvalSymlinks(absolutePath)
	if err != nil {
		// If the file doesn't exist yet, use the path as-is
		if os.IsNotExist(err) {
			resolved = absolutePath
		} else {
			return "", err
		}
	}

	rootResolved, err := filepath.EvalSymlinks(workspaceRoot)
	if err != nil {
		if os.IsNotExist(err) {
			rootResolved = workspaceRoot
		} else {
			return "", err
		}
	}

	relativePath, err := filepath.Rel(rootResolved, resolved)
	if err != nil {
		return "", err
	}

	return filepath.ToSlash(relativePath), nil
}

// IsWithinWorkspace checks if a path is inside the workspace root
func IsWithinWorkspace(path string, workspaceRoot string) bool {
	canonical, err := Canonicalize(path, workspaceRoot)
	if err != nil {
		return false
	}

	return !strings.HasPrefix(canonical, "..")
}

// Normalize converts backslashes to forward slashes in an already-relative path
func Normalize(path string) string {
	return filepath.ToSlash(path)
}

// JoinWorkspace joins a workspace root with a canonical relative path,
// converting to OS-specific separators.
func JoinWorkspace(workspaceRoot string, canonicalPath string) string {
	normalized := strings.ReplaceAll(canonicalPath, "\\", "/")
	parts := strings.Split(normalized, "/")
	return filepath.Join(append([]string{workspaceRoot}, parts...)...)
}

// ToFileURI converts an absolute filesystem path to a file:// URI as used
// on the LSP wire.
func ToFileURI(absolutePath string) string {
	p := filepath.ToSlash(absolutePath)
	if !strings.HasPrefix(p, "/") {
		// Windows drive paths need a leading slash in the URI
		p = "/" + p
	}
	return "file://" + p
}

// FromFileURI converts a file:// URI back to a filesystem path. Non-file
// URIs are returned unchanged so callers can pass through opaque
// identifiers.
func FromFileURI(uri string) string {
	if !strings.HasPrefix(uri, "file://") {
		return uri
	}
	p := strings.TrimPrefix(uri, "file://")
	if unescaped, err := url.PathUnescape(p); err == nil {
		p = unescaped
	}
	// Strip the extra slash before Windows drive letters
	if len(p) >= 3 && p[0] == '/' && p[2] == ':' {
		p = p[1:]
	}
	return filepath.FromSlash(p)
}

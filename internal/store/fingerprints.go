package store

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/crypto/blake2b"

	"callmap/internal/graph"
	"callmap/internal/logging"
	"callmap/internal/paths"
)

// SourceState describes how a fingerprinted file compares to disk now.
type SourceState string

const (
	// SourceUnchanged means the file matches its recorded digest.
	SourceUnchanged SourceState = "unchanged"
	// SourceModified means the file exists but its content changed.
	SourceModified SourceState = "modified"
	// SourceMissing means the file no longer exists.
	SourceMissing SourceState = "missing"
	// SourceUnknown means no fingerprint was ever recorded.
	SourceUnknown SourceState = "unknown"
)

// FingerprintStore records content digests of the source files referenced
// by persisted graphs, so later navigation can tell whether a stored line
// is still trustworthy.
type FingerprintStore struct {
	db     *DB
	logger *logging.Logger
}

func NewFingerprintStore(db *DB, logger *logging.Logger) *FingerprintStore {
	return &FingerprintStore{db: db, logger: logger}
}

// RecordFile fingerprints one file's content under its URI.
func (s *FingerprintStore) RecordFile(uri string, data []byte) error {
	digest := blake2b.Sum256(data)
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO file_fingerprints (uri, digest, size, recorded_at)
		VALUES (?, ?, ?, ?)
	`, uri, hex.EncodeToString(digest[:]), len(data), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to record fingerprint: %w", err)
	}
	return nil
}

// RecordGraphSources fingerprints every distinct file a graph references.
// Unreadable files are skipped; a build must not fail because one source
// went away between expansion and persistence.
func (s *FingerprintStore) RecordGraphSources(g *graph.Graph) error {
	seen := make(map[string]bool)
	for _, node := range g.Nodes {
		if node.URI == "" || seen[node.URI] {
			continue
		}
		seen[node.URI] = true

		data, err := os.ReadFile(s.sourcePath(node.URI))
		if err != nil {
			s.logger.Debug("Skipping fingerprint for unreadable source", map[string]interface{}{
				"uri":   node.URI,
				"error": err.Error(),
			})
			continue
		}
		if err := s.RecordFile(node.URI, data); err != nil {
			return err
		}
	}
	return nil
}

// Verify compares a file's current content against its recorded digest.
func (s *FingerprintStore) Verify(uri string) (SourceState, error) {
	var recorded string
	err := s.db.QueryRow(
		"SELECT digest FROM file_fingerprints WHERE uri = ?", uri,
	).Scan(&recorded)
	if err == sql.ErrNoRows {
		return SourceUnknown, nil
	}
	if err != nil {
		return SourceUnknown, fmt.Errorf("failed to load fingerprint: %w", err)
	}

	data, err := os.ReadFile(s.sourcePath(uri))
	if err != nil {
		if os.IsNotExist(err) {
			return SourceMissing, nil
		}
		return SourceUnknown, err
	}

	digest := blake2b.Sum256(data)
	if hex.EncodeToString(digest[:]) == recorded {
		return SourceUnchanged, nil
	}
	return SourceModified, nil
}

// sourcePath resolves a stored URI to a filesystem path. Persisted graphs
// carry workspace-relative URIs; absolute file:// URIs from older stores
// still resolve as-is.
func (s *FingerprintStore) sourcePath(uri string) string {
	p := paths.FromFileURI(uri)
	if filepath.IsAbs(p) {
		return p
	}
	return paths.JoinWorkspace(s.db.Root(), p)
}

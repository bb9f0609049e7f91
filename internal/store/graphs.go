package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	"callmap/internal/errors"
	"callmap/internal/graph"
	"callmap/internal/logging"
)

const (
	encodingZstd = "zstd"
	encodingNone = "none"
)

// NodeStatus flags the relocation health of a persisted graph node.
type NodeStatus string

const (
	StatusOK     NodeStatus = "ok"
	StatusBroken NodeStatus = "broken"
)

// NodeFlag is one node's recorded status.
type NodeFlag struct {
	Status    NodeStatus `json:"status"`
	Reason    string     `json:"reason,omitempty"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// GraphMeta is the payload-free listing row for a stored graph.
type GraphMeta struct {
	ID        string    `json:"id"`
	RootID    string    `json:"rootId"`
	RootLabel string    `json:"rootLabel"`
	Direction string    `json:"direction"`
	Depth     int       `json:"depth"`
	NodeCount int       `json:"nodeCount"`
	EdgeCount int       `json:"edgeCount"`
	Truncated bool      `json:"truncated"`
	CreatedAt time.Time `json:"createdAt"`
}

// GraphStore persists built call graphs. Payloads are JSON documents,
// zstd-compressed unless compression is disabled.
type GraphStore struct {
	db       *DB
	logger   *logging.Logger
	compress bool
	encoder  *zstd.Encoder
	decoder  *zstd.Decoder
}

// NewGraphStore creates a graph store over an open database.
func NewGraphStore(db *DB, logger *logging.Logger, compress bool) (*GraphStore, error) {
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &GraphStore{
		db:       db,
		logger:   logger,
		compress: compress,
		encoder:  encoder,
		decoder:  decoder,
	}, nil
}

// SaveGraph persists a built graph. Saving an existing ID replaces it.
func (s *GraphStore) SaveGraph(g *graph.Graph) error {
	payload, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("failed to marshal graph: %w", err)
	}

	encoding := encodingNone
	stored := payload
	if s.compress {
		encoding = encodingZstd
		stored = s.encoder.EncodeAll(payload, nil)
	}

	rootLabel := ""
	if root := g.Root(); root != nil {
		rootLabel = root.Label
	}
	createdAt := g.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	err = s.db.WithTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT OR REPLACE INTO graphs
				(id, root_id, root_label, direction, depth, node_count, edge_count, truncated, encoding, payload, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			g.ID, g.RootID, rootLabel, string(g.Direction), g.Depth,
			len(g.Nodes), len(g.Edges), boolToInt(g.Truncated),
			encoding, stored, createdAt.UTC().Format(time.RFC3339Nano),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to save graph: %w", err)
	}

	s.logger.Info("Saved call graph", map[string]interface{}{
		"graphId": g.ID,
		"root":    rootLabel,
		"nodes":   len(g.Nodes),
		"edges":   len(g.Edges),
		"bytes":   len(stored),
	})
	return nil
}

// GetGraph loads a stored graph by ID.
func (s *GraphStore) GetGraph(id string) (*graph.Graph, error) {
	var encoding string
	var payload []byte
	err := s.db.QueryRow(
		"SELECT encoding, payload FROM graphs WHERE id = ?", id,
	).Scan(&encoding, &payload)
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.GraphNotFound, "graph not found: "+id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load graph: %w", err)
	}

	if encoding == encodingZstd {
		payload, err = s.decoder.DecodeAll(payload, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress graph payload: %w", err)
		}
	}

	var g graph.Graph
	if err := json.Unmarshal(payload, &g); err != nil {
		return nil, fmt.Errorf("failed to unmarshal graph: %w", err)
	}
	return &g, nil
}

// ListGraphs returns metadata for all stored graphs, newest first.
func (s *GraphStore) ListGraphs() ([]GraphMeta, error) {
	rows, err := s.db.Query(`
		SELECT id, root_id, root_label, direction, depth, node_count, edge_count, truncated, created_at
		FROM graphs
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list graphs: %w", err)
	}
	defer rows.Close()

	metas := []GraphMeta{}
	for rows.Next() {
		var m GraphMeta
		var truncated int
		var createdAt string
		if err := rows.Scan(
			&m.ID, &m.RootID, &m.RootLabel, &m.Direction, &m.Depth,
			&m.NodeCount, &m.EdgeCount, &truncated, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan graph row: %w", err)
		}
		m.Truncated = truncated != 0
		m.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		metas = append(metas, m)
	}
	return metas, rows.Err()
}

// DeleteGraph removes a stored graph and its node statuses.
func (s *GraphStore) DeleteGraph(id string) error {
	result, err := s.db.Exec("DELETE FROM graphs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete graph: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return errors.New(errors.GraphNotFound, "graph not found: "+id)
	}

	s.logger.Info("Deleted call graph", map[string]interface{}{
		"graphId": id,
	})
	return nil
}

// SetNodeStatus records the relocation status of one graph node.
func (s *GraphStore) SetNodeStatus(graphID, nodeID string, status NodeStatus, reason string) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO node_status (graph_id, node_id, status, reason, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, graphID, nodeID, string(status), reason, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to set node status: %w", err)
	}
	return nil
}

// NodeStatuses returns the recorded status flags for a graph, keyed by
// node ID. Nodes never flagged are absent.
func (s *GraphStore) NodeStatuses(graphID string) (map[string]NodeFlag, error) {
	rows, err := s.db.Query(
		"SELECT node_id, status, reason, updated_at FROM node_status WHERE graph_id = ?",
		graphID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load node statuses: %w", err)
	}
	defer rows.Close()

	flags := make(map[string]NodeFlag)
	for rows.Next() {
		var nodeID, status, updatedAt string
		var reason sql.NullString
		if err := rows.Scan(&nodeID, &status, &reason, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan node status: %w", err)
		}
		flag := NodeFlag{Status: NodeStatus(status), Reason: reason.String}
		flag.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
		flags[nodeID] = flag
	}
	return flags, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

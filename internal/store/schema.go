package store

import (
	"database/sql"
	"fmt"
)

const currentSchemaVersion = 1

// initializeSchema creates all tables for a new database.
func (db *DB) initializeSchema() error {
	return db.WithTx(func(tx *sql.Tx) error {
		if err := createSchemaVersionTable(tx); err != nil {
			return err
		}
		if err := createGraphsTable(tx); err != nil {
			return err
		}
		if err := createNodeStatusTable(tx); err != nil {
			return err
		}
		if err := createFingerprintsTable(tx); err != nil {
			return err
		}
		if err := setSchemaVersion(tx, currentSchemaVersion); err != nil {
			return err
		}

		db.logger.Info("Graph store schema initialized", map[string]interface{}{
			"version": currentSchemaVersion,
		})
		return nil
	})
}

// runMigrations runs any pending schema migrations.
func (db *DB) runMigrations() error {
	version, err := db.getSchemaVersion()
	if err != nil {
		return err
	}

	if version == currentSchemaVersion {
		return nil
	}

	db.logger.Info("Migrating graph store schema", map[string]interface{}{
		"from_version": version,
		"to_version":   currentSchemaVersion,
	})

	// Migration steps land here as the schema evolves.

	return nil
}

func (db *DB) getSchemaVersion() (int, error) {
	var tableName string
	err := db.QueryRow(`
		SELECT name FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&tableName)

	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var version int
	err = db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return version, nil
}

func setSchemaVersion(tx *sql.Tx, version int) error {
	if _, err := tx.Exec("DELETE FROM schema_version"); err != nil {
		return err
	}
	_, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version)
	return err
}

func createSchemaVersionTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`)
	return err
}

// createGraphsTable creates the graphs table. The payload column holds the
// full graph document as JSON, optionally zstd-compressed; the remaining
// columns are denormalized metadata so listing never touches payloads.
func createGraphsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS graphs (
			id TEXT PRIMARY KEY,
			root_id TEXT NOT NULL,
			root_label TEXT NOT NULL,
			direction TEXT NOT NULL CHECK(direction IN ('both', 'callers', 'callees')),
			depth INTEGER NOT NULL,
			node_count INTEGER NOT NULL,
			edge_count INTEGER NOT NULL,
			truncated INTEGER NOT NULL DEFAULT 0,
			encoding TEXT NOT NULL CHECK(encoding IN ('zstd', 'none')),
			payload BLOB NOT NULL,
			created_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create graphs table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_graphs_created_at ON graphs(created_at)",
		"CREATE INDEX IF NOT EXISTS idx_graphs_root_label ON graphs(root_label)",
	}
	for _, indexSQL := range indexes {
		if _, err := tx.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

// createNodeStatusTable creates the node_status table that flags graph
// nodes whose stored reference could not be relocated.
func createNodeStatusTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS node_status (
			graph_id TEXT NOT NULL,
			node_id TEXT NOT NULL,
			status TEXT NOT NULL CHECK(status IN ('ok', 'broken')),
			reason TEXT,
			updated_at TEXT NOT NULL,

			PRIMARY KEY (graph_id, node_id),
			FOREIGN KEY (graph_id) REFERENCES graphs(id) ON DELETE CASCADE
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create node_status table: %w", err)
	}

	if _, err := tx.Exec(
		"CREATE INDEX IF NOT EXISTS idx_node_status_status ON node_status(status)",
	); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	return nil
}

// createFingerprintsTable creates the file_fingerprints table recording
// content digests of the source files behind persisted graphs.
func createFingerprintsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS file_fingerprints (
			uri TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			size INTEGER NOT NULL,
			recorded_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create file_fingerprints table: %w", err)
	}
	return nil
}

// Package archive is the durable-persistence collaborator for decision
// logs. The kernel core is in-memory only; integrators that need records
// to survive the process mirror them here and can re-verify the hash chain
// from the archived rows alone, without trusting the process that wrote
// them.
package archive

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/stimguard/stimguard/internal/audit"
)

// Archive stores decision records in SQLite, one row per chain position.
type Archive struct {
	db *sql.DB
}

// Open initializes the archive database at the given path, creating parent
// directories and the schema as needed.
func Open(path string) (*Archive, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("archive: create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("archive: open database: %w", err)
	}

	a := &Archive{db: db}
	if err := a.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return a, nil
}

func (a *Archive) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS decision_records (
		kernel_id   TEXT    NOT NULL,
		idx         INTEGER NOT NULL,
		ts          TEXT    NOT NULL,
		decision    TEXT    NOT NULL,
		status      TEXT    NOT NULL,
		prev_hash   TEXT    NOT NULL,
		hash        TEXT    NOT NULL,
		record_json TEXT    NOT NULL,
		PRIMARY KEY (kernel_id, idx)
	);`
	if _, err := a.db.Exec(schema); err != nil {
		return fmt.Errorf("archive: create schema: %w", err)
	}
	return nil
}

// Mirror inserts any records not yet archived for their kernel. Existing
// rows are never updated: the archive is append-only, like the log it
// mirrors. Records must be a chain snapshot in order, starting at index 0.
func (a *Archive) Mirror(records []audit.LogRecord) error {
	tx, err := a.db.Begin()
	if err != nil {
		return fmt.Errorf("archive: begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO decision_records
		(kernel_id, idx, ts, decision, status, prev_hash, hash, record_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("archive: prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range records {
		blob, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("archive: marshal record %d: %w", i, err)
		}
		if _, err := stmt.Exec(rec.KernelID, i, rec.Timestamp, string(rec.Decision),
			string(rec.Result.Status), rec.PrevHash, rec.Hash, string(blob)); err != nil {
			return fmt.Errorf("archive: insert record %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("archive: commit: %w", err)
	}
	return nil
}

// Chain loads the archived records of one kernel, ordered by chain
// position.
func (a *Archive) Chain(kernelID string) ([]audit.LogRecord, error) {
	rows, err := a.db.Query(`
		SELECT record_json FROM decision_records
		WHERE kernel_id = ? ORDER BY idx`, kernelID)
	if err != nil {
		return nil, fmt.Errorf("archive: query chain: %w", err)
	}
	defer rows.Close()

	var records []audit.LogRecord
	for rows.Next() {
		var blob string
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("archive: scan record: %w", err)
		}
		var rec audit.LogRecord
		if err := json.Unmarshal([]byte(blob), &rec); err != nil {
			return nil, fmt.Errorf("archive: unmarshal record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("archive: iterate chain: %w", err)
	}
	return records, nil
}

// Verify reloads a kernel's archived chain and recomputes every hash link.
// Tampering with any stored row surfaces exactly as it would on the live
// log: earliest violated index first.
func (a *Archive) Verify(kernelID string) (audit.VerifyResult, error) {
	records, err := a.Chain(kernelID)
	if err != nil {
		return audit.VerifyResult{}, err
	}
	return audit.VerifyChain(records), nil
}

// Kernels lists the kernel IDs present in the archive.
func (a *Archive) Kernels() ([]string, error) {
	rows, err := a.db.Query(`SELECT DISTINCT kernel_id FROM decision_records ORDER BY kernel_id`)
	if err != nil {
		return nil, fmt.Errorf("archive: query kernels: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("archive: scan kernel id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("archive: iterate kernels: %w", err)
	}
	return ids, nil
}

// Close closes the underlying database.
func (a *Archive) Close() error {
	return a.db.Close()
}

// Package history keeps a local SQLite log of exported addon archives.
//
// Resource-pack identifiers are minted fresh on every export, so the log is the only
// record of which identity a distributed archive carries.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/eykd/mcaddon-go/internal/pack"
)

// Store is a SQLite-backed export log.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Entry is one recorded export.
type Entry struct {
	ID               int64     `json:"id"`
	ExportedAt       time.Time `json:"exported_at"`
	Name             string    `json:"name"`
	Version          string    `json:"version"`
	FileName         string    `json:"file_name"`
	SizeBytes        int64     `json:"size_bytes"`
	BehaviorHeaderID string    `json:"behavior_header_id"`
	BehaviorModuleID string    `json:"behavior_module_id"`
	ResourceHeaderID string    `json:"resource_header_id"`
	ResourceModuleID string    `json:"resource_module_id"`
}

// EntryFor describes an export of a.
func EntryFor(a *pack.Archive) Entry {
	e := Entry{
		Name:             a.BehaviorPack.Header.Name,
		Version:          a.BehaviorPack.Header.Version.String(),
		FileName:         a.FileName,
		SizeBytes:        int64(len(a.Data)),
		BehaviorHeaderID: a.BehaviorPack.Header.UUID,
		ResourceHeaderID: a.ResourcePack.Header.UUID,
	}
	if len(a.BehaviorPack.Modules) > 0 {
		e.BehaviorModuleID = a.BehaviorPack.Modules[0].UUID
	}
	if len(a.ResourcePack.Modules) > 0 {
		e.ResourceModuleID = a.ResourcePack.Modules[0].UUID
	}
	return e
}

// Open opens or creates the log at path, creating parent directories as needed.
func Open(path string) (*Store, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return nil, errors.New("missing history db path")
	}
	p = filepath.Clean(p)
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite", p)
	if err != nil {
		return nil, fmt.Errorf("opening history db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record appends e. A zero ExportedAt is replaced by the current time. The stored
// entry, with its assigned ID, is returned.
func (s *Store) Record(ctx context.Context, e Entry) (Entry, error) {
	if e.ExportedAt.IsZero() {
		e.ExportedAt = s.now()
	}
	res, err := s.db.ExecContext(ctx, `
INSERT INTO exports (
	exported_at_unix_ms, name, version, file_name, size_bytes,
	bp_header_id, bp_module_id, rp_header_id, rp_module_id
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ExportedAt.UnixMilli(), e.Name, e.Version, e.FileName, e.SizeBytes,
		e.BehaviorHeaderID, e.BehaviorModuleID, e.ResourceHeaderID, e.ResourceModuleID,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("recording export: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Entry{}, fmt.Errorf("recording export: %w", err)
	}
	e.ID = id
	e.ExportedAt = time.UnixMilli(e.ExportedAt.UnixMilli())
	return e, nil
}

// List returns up to limit entries, newest first. A non-positive limit returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	q := `
SELECT id, exported_at_unix_ms, name, version, file_name, size_bytes,
	bp_header_id, bp_module_id, rp_header_id, rp_module_id
FROM exports
ORDER BY exported_at_unix_ms DESC, id DESC`
	var args []any
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing exports: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var ms int64
		if err := rows.Scan(
			&e.ID, &ms, &e.Name, &e.Version, &e.FileName, &e.SizeBytes,
			&e.BehaviorHeaderID, &e.BehaviorModuleID, &e.ResourceHeaderID, &e.ResourceModuleID,
		); err != nil {
			return nil, fmt.Errorf("scanning export: %w", err)
		}
		e.ExportedAt = time.UnixMilli(ms)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing exports: %w", err)
	}
	return out, nil
}

func initSchema(db *sql.DB) error {
	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		return fmt.Errorf("pragma journal_mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout=3000;`); err != nil {
		return fmt.Errorf("pragma busy_timeout: %w", err)
	}

	const targetVersion = 1
	var v int
	if err := db.QueryRow(`PRAGMA user_version;`).Scan(&v); err != nil {
		return fmt.Errorf("pragma user_version: %w", err)
	}
	if v >= targetVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS exports (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	exported_at_unix_ms INTEGER NOT NULL,
	name TEXT NOT NULL,
	version TEXT NOT NULL,
	file_name TEXT NOT NULL,
	size_bytes INTEGER NOT NULL,
	bp_header_id TEXT NOT NULL,
	bp_module_id TEXT NOT NULL,
	rp_header_id TEXT NOT NULL,
	rp_module_id TEXT NOT NULL
)`); err != nil {
		return fmt.Errorf("creating exports table: %w", err)
	}
	if _, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_exports_time ON exports(exported_at_unix_ms DESC)`); err != nil {
		return fmt.Errorf("creating exports index: %w", err)
	}
	if _, err := tx.Exec(fmt.Sprintf(`PRAGMA user_version=%d;`, targetVersion)); err != nil {
		return fmt.Errorf("setting user_version: %w", err)
	}
	return tx.Commit()
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schemaVersion = "1"

// SQLiteStore writes every snapshot to a fresh SQLite file next to the
// target and renames it into place, so a crash mid-write leaves the previous
// snapshot intact.
type SQLiteStore struct{}

// NewSQLiteStore returns a snapshot store.
func NewSQLiteStore() *SQLiteStore {
	return &SQLiteStore{}
}

var _ Store = (*SQLiteStore)(nil)

func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(delete)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return db, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS entries (
		seq      INTEGER PRIMARY KEY,
		id       TEXT NOT NULL,
		summary  TEXT NOT NULL,
		tags     TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS tag_index (
		id   INTEGER PRIMARY KEY,
		tag  TEXT NOT NULL UNIQUE
	);
	CREATE TABLE IF NOT EXISTS meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// Save writes snap to path via a temporary file and rename.
func (s *SQLiteStore) Save(ctx context.Context, path string, snap *Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.Remove(tmp); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale temp: %w", err)
	}

	if err := writeSnapshot(ctx, tmp, snap); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

func writeSnapshot(ctx context.Context, path string, snap *Snapshot) error {
	db, err := openDB(path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrate(ctx, db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i, r := range snap.Records {
		tags, err := json.Marshal(r.Tags)
		if err != nil {
			return fmt.Errorf("marshal tags: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO entries (seq, id, summary, tags) VALUES (?, ?, ?, ?)`,
			i, r.ID, r.Summary, string(tags)); err != nil {
			return fmt.Errorf("insert entry: %w", err)
		}
	}
	for id, tag := range snap.TagIndex {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO tag_index (id, tag) VALUES (?, ?)`, id, tag); err != nil {
			return fmt.Errorf("insert tag: %w", err)
		}
	}
	meta := map[string]string{
		"schema_version": schemaVersion,
		"saved_at":       time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range meta {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO meta (key, value) VALUES (?, ?)`, k, v); err != nil {
			return fmt.Errorf("insert meta: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Load reads the snapshot at path.
func (s *SQLiteStore) Load(ctx context.Context, path string) (*Snapshot, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("stat snapshot: %w", err)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("empty snapshot file %s", path)
	}

	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	snap := &Snapshot{}
	rows, err := db.QueryContext(ctx, `SELECT id, summary, tags FROM entries ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var r Record
		var tags string
		if err := rows.Scan(&r.ID, &r.Summary, &tags); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		if err := json.Unmarshal([]byte(tags), &r.Tags); err != nil {
			return nil, fmt.Errorf("entry %s tags: %w", r.ID, err)
		}
		snap.Records = append(snap.Records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	tagRows, err := db.QueryContext(ctx, `SELECT id, tag FROM tag_index ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query tag index: %w", err)
	}
	defer tagRows.Close()
	for tagRows.Next() {
		var id int
		var tag string
		if err := tagRows.Scan(&id, &tag); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		if id != len(snap.TagIndex) {
			return nil, fmt.Errorf("tag index gap at id %d", id)
		}
		snap.TagIndex = append(snap.TagIndex, tag)
	}
	return snap, tagRows.Err()
}

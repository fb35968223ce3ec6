package state

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/schemawatch/schemawatch/pkg/schema"
)

// SQLiteStore implements Store on a local SQLite file.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore creates an unopened SQLite store.
func NewSQLiteStore() *SQLiteStore {
	return &SQLiteStore{}
}

// Open opens the SQLite database at path with WAL journaling and
// foreign keys enabled. Use ":memory:" for an in-memory store.
func (s *SQLiteStore) Open(path string) error {
	dsn := "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	if path == ":memory:" {
		dsn = "file::memory:?_pragma=foreign_keys(1)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("open state database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("ping state database: %w", err)
	}

	s.db = db
	s.path = path
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// SaveSnapshot inserts one record. ID, CreatedAt, CapturedAt, and
// ContentHash are filled from the snapshot when unset.
func (s *SQLiteStore) SaveSnapshot(rec *SnapshotRecord) error {
	if s.db == nil {
		return fmt.Errorf("state database not opened")
	}
	if rec.Snapshot == nil {
		return fmt.Errorf("snapshot record carries no snapshot")
	}

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.CapturedAt.IsZero() {
		rec.CapturedAt = rec.Snapshot.CapturedAt
	}
	if rec.ContentHash == "" {
		rec.ContentHash = rec.Snapshot.Fingerprint()
	}

	payload, err := json.Marshal(rec.Snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot payload: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO snapshots (id, database, captured_at, created_at, content_hash, payload)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Database, rec.CapturedAt, rec.CreatedAt, rec.ContentHash, payload,
	)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// GetSnapshot loads one record by id, payload included.
func (s *SQLiteStore) GetSnapshot(id string) (*SnapshotRecord, error) {
	if s.db == nil {
		return nil, fmt.Errorf("state database not opened")
	}

	row := s.db.QueryRow(
		`SELECT id, database, captured_at, created_at, content_hash, payload
		 FROM snapshots WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("snapshot %s: %w", id, ErrNotFound)
	}
	return rec, err
}

// ListSnapshots returns record metadata newest first, without payloads.
// An empty database name lists every database.
func (s *SQLiteStore) ListSnapshots(database string) ([]*SnapshotRecord, error) {
	if s.db == nil {
		return nil, fmt.Errorf("state database not opened")
	}

	query := `SELECT id, database, captured_at, created_at, content_hash
	          FROM snapshots`
	args := []any{}
	if database != "" {
		query += ` WHERE database = ?`
		args = append(args, database)
	}
	query += ` ORDER BY created_at DESC, rowid DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []*SnapshotRecord
	for rows.Next() {
		rec := &SnapshotRecord{}
		if err := rows.Scan(&rec.ID, &rec.Database, &rec.CapturedAt, &rec.CreatedAt, &rec.ContentHash); err != nil {
			return nil, fmt.Errorf("scan snapshot record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// LatestSnapshot loads the most recent record of a database.
func (s *SQLiteStore) LatestSnapshot(database string) (*SnapshotRecord, error) {
	return s.ResolveSnapshot(SnapshotRef{Database: database})
}

// ResolveSnapshot loads the record ref points at. A ref naming neither
// an id nor a database fails loudly before any query runs.
func (s *SQLiteStore) ResolveSnapshot(ref SnapshotRef) (*SnapshotRecord, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	if ref.ID != "" {
		return s.GetSnapshot(ref.ID)
	}
	if s.db == nil {
		return nil, fmt.Errorf("state database not opened")
	}

	row := s.db.QueryRow(
		`SELECT id, database, captured_at, created_at, content_hash, payload
		 FROM snapshots WHERE database = ?
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT 1 OFFSET ?`,
		ref.Database, ref.Offset)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		if ref.Offset > 0 {
			return nil, fmt.Errorf("database %s has no snapshot %d back: %w", ref.Database, ref.Offset, ErrNotFound)
		}
		return nil, fmt.Errorf("database %s has no snapshots: %w", ref.Database, ErrNotFound)
	}
	return rec, err
}

// DeleteSnapshot removes one record.
func (s *SQLiteStore) DeleteSnapshot(id string) error {
	if s.db == nil {
		return fmt.Errorf("state database not opened")
	}

	result, err := s.db.Exec(`DELETE FROM snapshots WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("snapshot %s: %w", id, ErrNotFound)
	}
	return nil
}

// PruneSnapshots deletes all but the newest keep records of a database.
func (s *SQLiteStore) PruneSnapshots(database string, keep int) (int, error) {
	if s.db == nil {
		return 0, fmt.Errorf("state database not opened")
	}
	if keep < 0 {
		keep = 0
	}

	result, err := s.db.Exec(
		`DELETE FROM snapshots WHERE database = ? AND id NOT IN (
		    SELECT id FROM snapshots WHERE database = ?
		    ORDER BY created_at DESC, rowid DESC LIMIT ?)`,
		database, database, keep)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	affected, err := result.RowsAffected()
	return int(affected), err
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*SnapshotRecord, error) {
	rec := &SnapshotRecord{}
	var payload []byte
	if err := row.Scan(&rec.ID, &rec.Database, &rec.CapturedAt, &rec.CreatedAt, &rec.ContentHash, &payload); err != nil {
		return nil, err
	}

	var snap schema.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot payload: %w", err)
	}
	rec.Snapshot = &snap
	return rec, nil
}

var _ Store = (*SQLiteStore)(nil)

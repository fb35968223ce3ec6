// Package state persists captured snapshots in a local SQLite database.
// It keeps the full canonical JSON of every snapshot together with its
// content hash, so history queries and drift checks never re-capture.
package state

import (
	"errors"
	"fmt"
	"time"

	"github.com/schemawatch/schemawatch/pkg/schema"
)

// ErrNotFound is returned when a snapshot lookup matches nothing.
var ErrNotFound = errors.New("snapshot not found")

// SnapshotRecord is one stored snapshot with its storage metadata.
type SnapshotRecord struct {
	// ID is the record's UUID, assigned on save when empty.
	ID string `json:"id"`

	// Database is the configured database name the snapshot was
	// captured from, or the file stem for imported files.
	Database string `json:"database"`

	// CapturedAt is the snapshot's own capture time.
	CapturedAt time.Time `json:"capturedAt"`

	// CreatedAt is when the record was written to the store.
	CreatedAt time.Time `json:"createdAt"`

	// ContentHash is the snapshot fingerprint. Two records with equal
	// hashes hold identical normalized schemas.
	ContentHash string `json:"contentHash"`

	// Snapshot is the canonical snapshot. List operations leave it nil
	// and return metadata only.
	Snapshot *schema.Snapshot `json:"snapshot,omitempty"`
}

// SnapshotRef identifies a stored snapshot for resolution. Exactly one
// of ID or Database must be set. Offset selects older snapshots of a
// database: 0 is the latest, 1 the one before it.
type SnapshotRef struct {
	ID       string
	Database string
	Offset   int
}

// Validate rejects refs that carry neither identifier form. This is
// the one loud failure in the resolution path: it signals a caller
// bug, not missing data.
func (r SnapshotRef) Validate() error {
	if r.ID == "" && r.Database == "" {
		return fmt.Errorf("snapshot ref needs an id or a database name, got neither")
	}
	return nil
}

// Store is the snapshot persistence interface.
type Store interface {
	// SaveSnapshot stores a snapshot. Fills rec.ID, rec.CreatedAt and
	// rec.ContentHash when unset.
	SaveSnapshot(rec *SnapshotRecord) error

	// GetSnapshot loads one record, payload included.
	GetSnapshot(id string) (*SnapshotRecord, error)

	// ListSnapshots returns record metadata, newest first. An empty
	// database name lists every database.
	ListSnapshots(database string) ([]*SnapshotRecord, error)

	// LatestSnapshot loads the most recent record for a database,
	// payload included.
	LatestSnapshot(database string) (*SnapshotRecord, error)

	// ResolveSnapshot loads the record a ref points at.
	ResolveSnapshot(ref SnapshotRef) (*SnapshotRecord, error)

	// DeleteSnapshot removes one record.
	DeleteSnapshot(id string) error

	// PruneSnapshots deletes all but the newest keep records of a
	// database and reports how many went away.
	PruneSnapshots(database string, keep int) (int, error)

	// Close releases the underlying database.
	Close() error
}

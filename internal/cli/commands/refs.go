package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/schemawatch/schemawatch/internal/snapfile"
	"github.com/schemawatch/schemawatch/internal/state"
	"github.com/schemawatch/schemawatch/pkg/schema"
)

// resolveSnapshotArg turns one snapshot argument into a snapshot.
// Accepted forms:
//
//	path/to/snapshot.json    a snapshot file (json or yaml)
//	id:<uuid>                a stored snapshot by record id
//	db:<name>                the latest stored snapshot of a database
//	db:<name>~N              the snapshot N captures before the latest
//
// The returned label names the resolved snapshot for output.
func resolveSnapshotArg(arg string, store *state.SQLiteStore) (*schema.Snapshot, string, error) {
	switch {
	case strings.HasPrefix(arg, "id:"):
		id := strings.TrimPrefix(arg, "id:")
		rec, err := store.ResolveSnapshot(state.SnapshotRef{ID: id})
		if err != nil {
			return nil, "", err
		}
		return rec.Snapshot, shortLabel(rec), nil

	case strings.HasPrefix(arg, "db:"):
		ref, err := parseDatabaseRef(strings.TrimPrefix(arg, "db:"))
		if err != nil {
			return nil, "", err
		}
		rec, err := store.ResolveSnapshot(ref)
		if err != nil {
			return nil, "", err
		}
		return rec.Snapshot, shortLabel(rec), nil

	default:
		snap, err := snapfile.Load(arg)
		if err != nil {
			return nil, "", err
		}
		return snap, arg, nil
	}
}

// parseDatabaseRef parses "<name>" or "<name>~N" into a store ref.
func parseDatabaseRef(spec string) (state.SnapshotRef, error) {
	name, offsetPart, found := strings.Cut(spec, "~")
	if name == "" {
		return state.SnapshotRef{}, fmt.Errorf("database reference %q names no database", "db:"+spec)
	}
	if !found {
		return state.SnapshotRef{Database: name}, nil
	}

	offset, err := strconv.Atoi(offsetPart)
	if err != nil || offset < 0 {
		return state.SnapshotRef{}, fmt.Errorf("database reference %q has an invalid offset %q", "db:"+spec, offsetPart)
	}
	return state.SnapshotRef{Database: name, Offset: offset}, nil
}

// shortLabel names a stored record for human output.
func shortLabel(rec *state.SnapshotRecord) string {
	id := rec.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("%s@%s", rec.Database, id)
}

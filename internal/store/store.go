// Package store keeps indexed file content and snapshot records so search
// can hydrate candidates with the code around each match.
package store

import (
	"context"
	"strings"
	"time"

	"github.com/ricesearch/rice-insight/internal/pkg/errors"
)

// Store holds file content per snapshot.
type Store interface {
	// PutFile stores the content of one file in a snapshot.
	PutFile(ctx context.Context, snapshotID, path, content string) error

	// GetFileContent returns the content of a file. The boolean is false
	// when the file is unknown.
	GetFileContent(ctx context.Context, snapshotID, path string) (string, bool, error)

	// ListFiles returns the paths stored for a snapshot in ascending order.
	ListFiles(ctx context.Context, snapshotID string) ([]string, error)

	// SaveSnapshot records snapshot statistics.
	SaveSnapshot(ctx context.Context, snap Snapshot) error

	// GetSnapshot returns a snapshot record.
	GetSnapshot(ctx context.Context, snapshotID string) (*Snapshot, error)

	// ListSnapshots returns all snapshot records ordered by ID.
	ListSnapshots(ctx context.Context) ([]Snapshot, error)

	// DeleteSnapshot removes a snapshot record and all of its files.
	DeleteSnapshot(ctx context.Context, snapshotID string) error

	// Close releases resources.
	Close() error
}

// Snapshot describes one indexed version of a code base.
type Snapshot struct {
	ID        string    `json:"id" yaml:"id"`
	Root      string    `json:"root,omitempty" yaml:"root,omitempty"`
	Files     int       `json:"files" yaml:"files"`
	Chunks    int       `json:"chunks" yaml:"chunks"`
	Bytes     int64     `json:"bytes" yaml:"bytes"`
	IndexedAt time.Time `json:"indexed_at" yaml:"indexed_at"`
}

// MaxSnapshotIDLength bounds snapshot identifiers.
const MaxSnapshotIDLength = 128

// ValidateSnapshotID checks that an ID is usable as a key component.
func ValidateSnapshotID(id string) error {
	if id == "" {
		return errors.ValidationError("snapshot id cannot be empty")
	}
	if len(id) > MaxSnapshotIDLength {
		return errors.ValidationError("snapshot id too long").WithDetail("snapshot_id", id[:MaxSnapshotIDLength])
	}
	if strings.ContainsAny(id, ": \t\n") {
		return errors.ValidationError("snapshot id must not contain ':' or whitespace").WithDetail("snapshot_id", id)
	}
	return nil
}

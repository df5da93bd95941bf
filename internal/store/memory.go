package store

import (
	"context"
	"sort"
	"sync"

	"github.com/ricesearch/rice-insight/internal/pkg/errors"
)

// MemoryStore keeps everything in process memory.
type MemoryStore struct {
	mu        sync.RWMutex
	files     map[string]map[string]string // snapshot -> path -> content
	snapshots map[string]Snapshot
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		files:     make(map[string]map[string]string),
		snapshots: make(map[string]Snapshot),
	}
}

func (m *MemoryStore) PutFile(_ context.Context, snapshotID, path, content string) error {
	if err := ValidateSnapshotID(snapshotID); err != nil {
		return err
	}
	if path == "" {
		return errors.ValidationError("file path cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	files, ok := m.files[snapshotID]
	if !ok {
		files = make(map[string]string)
		m.files[snapshotID] = files
	}
	files[path] = content
	return nil
}

func (m *MemoryStore) GetFileContent(_ context.Context, snapshotID, path string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	content, ok := m.files[snapshotID][path]
	return content, ok, nil
}

func (m *MemoryStore) ListFiles(_ context.Context, snapshotID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	paths := make([]string, 0, len(m.files[snapshotID]))
	for p := range m.files[snapshotID] {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}

func (m *MemoryStore) SaveSnapshot(_ context.Context, snap Snapshot) error {
	if err := ValidateSnapshotID(snap.ID); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[snap.ID] = snap
	return nil
}

func (m *MemoryStore) GetSnapshot(_ context.Context, snapshotID string) (*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap, ok := m.snapshots[snapshotID]
	if !ok {
		return nil, errors.NotFoundError("snapshot " + snapshotID)
	}
	return &snap, nil
}

func (m *MemoryStore) ListSnapshots(_ context.Context) ([]Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snaps := make([]Snapshot, 0, len(m.snapshots))
	for _, s := range m.snapshots {
		snaps = append(snaps, s)
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].ID < snaps[j].ID })
	return snaps, nil
}

func (m *MemoryStore) DeleteSnapshot(_ context.Context, snapshotID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.files, snapshotID)
	delete(m.snapshots, snapshotID)
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}

// internal/savegame/memory.go
//
// In-memory implementation of game.Store. Holds serialized snapshots
// keyed by owner, mirroring what the SQLite backend persists; used in
// tests and when the server runs without a database.
//
// Characteristics:
//   - Concurrency-safe via RWMutex.
//   - State is lost when the process restarts.

package savegame

import (
	"context"
	"sync"

	"github.com/robalobadob/unveil/internal/game"
)

// Memory is a map-backed game.Store.
type Memory struct {
	mu    sync.RWMutex
	items map[string][]byte // keyed by owner + "|" + storage key
}

// NewMemory constructs an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{items: make(map[string][]byte)}
}

func memKey(owner, key string) string { return owner + "|" + key }

// Save serializes and stores the snapshot under the owner's puzzle key.
func (m *Memory) Save(ctx context.Context, owner, version string, snap *game.Snapshot) error {
	data, err := encode(snap)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[memKey(owner, snapKey(version, snap.ID))] = data
	return nil
}

// Load returns the decoded snapshot, or a miss.
func (m *Memory) Load(ctx context.Context, owner, version string, id int) (*game.Snapshot, bool, error) {
	m.mu.RLock()
	data, ok := m.items[memKey(owner, snapKey(version, id))]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	snap, ok := decode(data, id)
	return snap, ok, nil
}

// RememberVersion records the owner's last-used puzzle version.
func (m *Memory) RememberVersion(ctx context.Context, owner, version string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[memKey(owner, prefKey)] = []byte(version)
	return nil
}

// LastVersion returns the owner's remembered puzzle version, if any.
func (m *Memory) LastVersion(ctx context.Context, owner string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.items[memKey(owner, prefKey)]
	if !ok || len(data) == 0 {
		return "", false, nil
	}
	return string(data), true, nil
}

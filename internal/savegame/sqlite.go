// internal/savegame/sqlite.go
//
// SQLite-backed game.Store. Rows live in the savegames table
// (owner, key, payload) where key is "<version>-<id>" for snapshots
// and "selected-version" for the remembered track.

package savegame

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/robalobadob/unveil/internal/game"
)

// SQLite persists savegames in a shared *sql.DB.
type SQLite struct {
	db *sql.DB
}

// NewSQLite wraps an open database; the savegames table must already
// be migrated.
func NewSQLite(db *sql.DB) *SQLite { return &SQLite{db: db} }

func (s *SQLite) put(ctx context.Context, owner, key string, payload []byte) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT OR REPLACE INTO savegames (owner, key, payload, updated_at)
        VALUES (?, ?, ?, ?)`,
		owner, key, string(payload), time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

func (s *SQLite) get(ctx context.Context, owner, key string) ([]byte, bool, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM savegames WHERE owner=? AND key=?`,
		owner, key,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(payload), true, nil
}

// Save serializes and upserts the snapshot.
func (s *SQLite) Save(ctx context.Context, owner, version string, snap *game.Snapshot) error {
	data, err := encode(snap)
	if err != nil {
		return err
	}
	return s.put(ctx, owner, snapKey(version, snap.ID), data)
}

// Load returns the decoded snapshot, or a miss. Decode failures are
// misses, not errors.
func (s *SQLite) Load(ctx context.Context, owner, version string, id int) (*game.Snapshot, bool, error) {
	data, ok, err := s.get(ctx, owner, snapKey(version, id))
	if err != nil || !ok {
		return nil, false, err
	}
	snap, ok := decode(data, id)
	return snap, ok, nil
}

// RememberVersion records the owner's last-used puzzle version.
func (s *SQLite) RememberVersion(ctx context.Context, owner, version string) error {
	return s.put(ctx, owner, prefKey, []byte(version))
}

// LastVersion returns the owner's remembered puzzle version, if any.
func (s *SQLite) LastVersion(ctx context.Context, owner string) (string, bool, error) {
	data, ok, err := s.get(ctx, owner, prefKey)
	if err != nil || !ok || len(data) == 0 {
		return "", false, err
	}
	return string(data), true, nil
}

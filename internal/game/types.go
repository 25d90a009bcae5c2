// internal/game/types.go
//
// Core type definitions for the guess engine.
// Defines:
//   - Guess: one tracked player guess with its variant closure.
//   - Session: the live state of one loaded puzzle.
//   - Snapshot: the versioned persistence format.
//   - Store / Fetcher / Scheduler: the engine's collaborators.

package game

import (
	"context"

	"github.com/robalobadob/unveil/internal/wiki"
)

// SaveVersion tags the snapshot format. Loading a snapshot with a
// different tag is a miss, never a partial migration.
const SaveVersion = 1

// Guess is a tracked player guess. Words is the closure of
// morphological variants (base, plural, singular) considered
// equivalent; Hits is a snapshot count of currently-matching tokens,
// recomputed on every reveal pass.
type Guess struct {
	Word  string   `json:"word"`
	Words []string `json:"words"`
	Hits  int      `json:"hits"`
}

// Session is the live state of one loaded puzzle. Owned exclusively by
// the Engine; collaborators only ever see serialized copies.
type Session struct {
	Version string        `json:"version"`
	ID      int           `json:"id"`
	Guesses []*Guess      `json:"guesses"`
	Article *wiki.Article `json:"article"`
	Solved  bool          `json:"solved"`
}

// Snapshot is the persisted form of a session.
type Snapshot struct {
	V       int           `json:"v"`
	ID      int           `json:"id"`
	Guesses []*Guess      `json:"guesses"`
	Article *wiki.Article `json:"article"`
	Solved  bool          `json:"solved"`
}

// Store persists session snapshots keyed by owner and puzzle, plus the
// owner's last-used puzzle version. Implementations must treat a
// missing, malformed, or mismatched snapshot as a miss (ok == false),
// never as an error.
type Store interface {
	Save(ctx context.Context, owner, version string, snap *Snapshot) error
	Load(ctx context.Context, owner, version string, id int) (*Snapshot, bool, error)
	RememberVersion(ctx context.Context, owner, version string) error
	LastVersion(ctx context.Context, owner string) (string, bool, error)
}

// Fetcher loads and sanitizes an article by name.
type Fetcher interface {
	FetchArticle(ctx context.Context, name string) (*wiki.Article, error)
}

// Scheduler resolves the scheduled article name for a puzzle.
type Scheduler interface {
	ArticleName(ctx context.Context, version string, id int) (string, error)
}

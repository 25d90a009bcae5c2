// internal/game/engine.go
//
// Guess engine and session state machine for one player.
// Responsibilities:
//   - Load puzzles: restore a saved session or fetch, censor, and
//     persist a fresh one. A newer load cancels a stale in-flight one.
//   - Apply guesses: normalize, expand to morphological variants,
//     reveal matching tokens, track hit counts.
//   - Detect the win: title heading fully revealed; solving
//     force-reveals the rest of the document.
//   - Cycle the highlight cursor through repeated matches.
//
// Notes:
//   - The engine exclusively owns the live Session; the HTTP layer
//     only ever sees a rendered View.
//   - Persistence failures never fail a guess; they are logged and the
//     game plays on.
package game

import (
	"context"
	"errors"
	"sync"

	"github.com/gertd/go-pluralize"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/unveil/internal/commonwords"
	"github.com/robalobadob/unveil/internal/textnorm"
	"github.com/robalobadob/unveil/internal/wiki"
)

var (
	ErrLoading    = errors.New("game: puzzle still loading")
	ErrNoSession  = errors.New("game: no puzzle loaded")
	ErrEmptyGuess = errors.New("game: empty guess")
)

var plural = pluralize.NewClient()

// Engine drives one player's puzzle session.
type Engine struct {
	store Store
	sched Scheduler
	fetch Fetcher
	words *commonwords.Source
	owner string

	mu      sync.Mutex
	session *Session
	allow   *commonwords.List
	loading bool
	loadErr error
	cancel  context.CancelFunc
	gen     int // bumped per LoadPuzzle; stale loads must not install state

	// highlight cursor, reset whenever a new puzzle loads
	highlightIndex int
	activeGuess    string
}

// New constructs an Engine for one owner (a user id or an anonymous
// cookie id).
func New(store Store, sched Scheduler, fetch Fetcher, words *commonwords.Source, owner string) *Engine {
	return &Engine{store: store, sched: sched, fetch: fetch, words: words, owner: owner}
}

// LoadPuzzle transitions the engine to Loading and installs the
// requested puzzle: from a saved snapshot when one matches, otherwise
// by fetching and censoring the scheduled article. Any in-flight load
// is cancelled first; a superseded load never overwrites newer state.
func (e *Engine) LoadPuzzle(ctx context.Context, version string, id int) error {
	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.gen++
	gen := e.gen
	e.loading = true
	e.loadErr = nil
	e.session = nil
	e.highlightIndex = 0
	e.activeGuess = ""
	e.mu.Unlock()

	sess, allow, err := e.loadSession(ctx, version, id)

	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.gen {
		// A newer LoadPuzzle superseded this one; its state wins.
		return context.Canceled
	}
	// External cancellation (client gone, request timeout) falls
	// through: the load fails like any other and clears Loading.
	e.loading = false
	if err != nil {
		e.loadErr = err
		return err
	}
	e.session = sess
	e.allow = allow
	return nil
}

func (e *Engine) loadSession(ctx context.Context, version string, id int) (*Session, *commonwords.List, error) {
	allow, err := e.words.ForVersion(version)
	if err != nil {
		return nil, nil, err
	}

	if err := e.store.RememberVersion(ctx, e.owner, version); err != nil {
		log.Warn().Err(err).Str("owner", e.owner).Msg("remember puzzle version")
	}

	if snap, ok, err := e.store.Load(ctx, e.owner, version, id); err == nil && ok {
		// Restore the persisted document verbatim; guesses are not
		// replayed against a re-fetched article.
		return &Session{
			Version: version,
			ID:      id,
			Guesses: snap.Guesses,
			Article: snap.Article,
			Solved:  snap.Solved,
		}, allow, nil
	} else if err != nil {
		log.Warn().Err(err).Str("owner", e.owner).Msg("load snapshot")
	}

	name, err := e.sched.ArticleName(ctx, version, id)
	if err != nil {
		return nil, nil, err
	}
	art, err := e.fetch.FetchArticle(ctx, name)
	if err != nil {
		return nil, nil, err
	}

	for _, w := range art.Doc.Words() {
		if !allow.Contains(w.Norm) {
			w.Censored = true
		}
	}

	sess := &Session{Version: version, ID: id, Guesses: []*Guess{}, Article: art}
	e.persist(ctx, sess)
	return sess, allow, nil
}

// SubmitGuess applies one raw player guess. Allow-listed words only
// trigger highlighting and are not tracked; repeating a guess cycles
// its highlight instead of duplicating it. Returns the tracked guess,
// or nil for allow-listed words.
func (e *Engine) SubmitGuess(ctx context.Context, raw string) (*Guess, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.loading {
		return nil, ErrLoading
	}
	if e.session == nil {
		if e.loadErr != nil {
			return nil, e.loadErr
		}
		return nil, ErrNoSession
	}

	word := textnorm.Normalize(raw)
	if word == "" {
		return nil, ErrEmptyGuess
	}

	if e.allow.Contains(word) {
		e.highlight([]string{word}, word)
		return nil, nil
	}

	for _, g := range e.session.Guesses {
		if containsString(g.Words, word) {
			e.highlight(g.Words, g.Word)
			return g, nil
		}
	}

	g := &Guess{Word: word, Words: variants(word)}
	e.reveal(g)
	e.session.Guesses = append(e.session.Guesses, g)
	e.persist(ctx, e.session)
	e.highlight(g.Words, g.Word)
	e.checkWin(ctx)
	return g, nil
}

// variants expands a normalized word into its equivalence set: the
// word itself, its plural, and its singular, duplicates collapsed.
func variants(word string) []string {
	out := []string{word}
	if p := plural.Plural(word); p != "" && !containsString(out, p) {
		out = append(out, p)
	}
	if s := plural.Singular(word); s != "" && !containsString(out, s) {
		out = append(out, s)
	}
	return out
}

// reveal un-censors every token matching the guess's variant set and
// recounts its hits from zero.
func (e *Engine) reveal(g *Guess) {
	g.Hits = 0
	for _, w := range e.session.Article.Doc.Words() {
		if !containsString(g.Words, w.Norm) {
			continue
		}
		w.Censored = false
		g.Hits++
	}
}

// checkWin marks the session solved once the synthesized title heading
// has no censored tokens left, then force-reveals the whole document.
// The title-only scope is deliberate; widening it would change game
// difficulty.
func (e *Engine) checkWin(ctx context.Context) {
	if e.session.Solved {
		return
	}
	h := e.session.Article.Doc.FirstElement("h1")
	if h == nil {
		return
	}
	for _, w := range h.Words() {
		if w.Censored {
			return
		}
	}

	for _, w := range e.session.Article.Doc.Words() {
		w.Censored = false
	}
	e.session.Solved = true
	e.persist(ctx, e.session)
	e.clearHighlight()
}

// highlight marks every token matching the variant set and focuses the
// one under the cursor. Triggering the same guess twice in a row
// advances the cursor modulo the match count; a different guess resets
// it.
func (e *Engine) highlight(words []string, key string) {
	var matches []*wiki.Node
	for _, w := range e.session.Article.Doc.Words() {
		if containsString(words, w.Norm) {
			matches = append(matches, w)
		}
	}

	if key == e.activeGuess {
		if len(matches) > 0 {
			e.highlightIndex = (e.highlightIndex + 1) % len(matches)
		}
	} else {
		e.highlightIndex = 0
		e.activeGuess = key
	}

	e.clearFlags()
	for _, m := range matches {
		m.Highlighted = true
	}
	if len(matches) > 0 {
		if e.highlightIndex >= len(matches) {
			e.highlightIndex = 0
		}
		matches[e.highlightIndex].Focused = true
	}
}

func (e *Engine) clearHighlight() {
	e.activeGuess = ""
	e.highlightIndex = 0
	e.clearFlags()
}

func (e *Engine) clearFlags() {
	e.session.Article.Doc.Walk(func(n *wiki.Node) {
		n.Highlighted = false
		n.Focused = false
	})
}

// persist saves a snapshot copy of the session. Failures are logged,
// never surfaced: a broken save store must not break the game.
func (e *Engine) persist(ctx context.Context, sess *Session) {
	snap := &Snapshot{
		V:       SaveVersion,
		ID:      sess.ID,
		Guesses: sess.Guesses,
		Article: sess.Article,
		Solved:  sess.Solved,
	}
	if err := e.store.Save(ctx, e.owner, sess.Version, snap); err != nil {
		log.Warn().Err(err).Str("owner", e.owner).Int("id", sess.ID).Msg("save session")
	}
}

func containsString(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

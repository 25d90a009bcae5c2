// internal/httpserver/routes_puzzle.go
//
// HTTP routes for playing a puzzle.
// Exposes three endpoints under /puzzle:
//   - POST /puzzle/load  → resolve and load a puzzle (snapshot or fresh fetch)
//   - POST /puzzle/guess → submit one guess
//   - GET  /puzzle/state → render the current session
//
// Each owner (user id or anonymous cookie id) gets one engine; the
// engine persists snapshots through game.Store, so a returning player
// resumes where they left off.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/unveil/internal/game"
	"github.com/robalobadob/unveil/internal/schedule"
	"github.com/robalobadob/unveil/internal/wiki"
)

// mountPuzzle registers all /puzzle routes.
func (s *Server) mountPuzzle(r chi.Router) {
	r.Route("/puzzle", func(r chi.Router) {
		r.Post("/load", s.handlePuzzleLoad)
		r.Post("/guess", s.handlePuzzleGuess)
		r.Get("/state", s.handlePuzzleState)
	})
}

// ownerID returns the authenticated user ID if logged in, otherwise
// ensures an anonymous ID via ensureAnonID.
func (s *Server) ownerID(w http.ResponseWriter, r *http.Request) string {
	if me, _ := r.Context().Value(ctxUserKey{}).(*authUser); me != nil {
		return me.ID
	}
	return s.ensureAnonID(w, r)
}

// engineFor returns the owner's engine, creating it on first use.
func (s *Server) engineFor(owner string) *game.Engine {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.engines[owner]
	if !ok {
		e = game.New(s.store, s.sched, s.fetch, s.words, owner)
		s.engines[owner] = e
	}
	return e
}

// -----------------------------------------------------------------------------
// /puzzle/load

// loadReq selects which puzzle to load. Fragment mirrors the client's
// location hash ("#/<version>/<id>"); explicit version/id win over it.
type loadReq struct {
	Fragment string `json:"fragment"`
	Version  string `json:"version"`
	ID       *int   `json:"id"`
}

// handlePuzzleLoad resolves the requested puzzle (fragment, then the
// owner's remembered version, then the default) and loads it.
func (s *Server) handlePuzzleLoad(w http.ResponseWriter, r *http.Request) {
	var req loadReq
	_ = json.NewDecoder(r.Body).Decode(&req)

	owner := s.ownerID(w, r)
	eng := s.engineFor(owner)

	remembered := ""
	if v, ok, err := s.store.LastVersion(r.Context(), owner); err == nil && ok {
		remembered = v
	}

	now := time.Now()
	version, id := schedule.Resolve(req.Fragment, remembered, now)
	if req.Version != "" {
		version = req.Version
	}
	if req.ID != nil {
		id = *req.ID
		if today := schedule.IDForDate(now); id > today || id < 0 {
			id = today
		}
	}

	if err := eng.LoadPuzzle(r.Context(), version, id); err != nil {
		s.writeLoadError(w, err, version, id)
		return
	}
	_ = json.NewEncoder(w).Encode(eng.View())
}

// writeLoadError maps load failures onto HTTP statuses: missing
// schedule entries are 404s, upstream trouble is a 502, a superseded
// load is a 409.
func (s *Server) writeLoadError(w http.ResponseWriter, err error, version string, id int) {
	log.Warn().Err(err).Str("version", version).Int("id", id).Msg("load puzzle")

	var ne *wiki.NetworkError
	switch {
	case errors.Is(err, context.Canceled):
		http.Error(w, `{"error":"superseded"}`, http.StatusConflict)
	case errors.Is(err, schedule.ErrNoEntry):
		http.Error(w, `{"error":"no_puzzle"}`, http.StatusNotFound)
	case errors.As(err, &ne), errors.Is(err, wiki.ErrRedirectLoop), errors.Is(err, wiki.ErrNoContent):
		http.Error(w, `{"error":"upstream_failed"}`, http.StatusBadGateway)
	default:
		http.Error(w, `{"error":"load_failed"}`, http.StatusInternalServerError)
	}
}

// -----------------------------------------------------------------------------
// /puzzle/guess

// puzzleGuessReq is the request payload for /puzzle/guess.
type puzzleGuessReq struct {
	Word string `json:"word"`
}

// puzzleGuessRes pairs the tracked guess (null for allow-listed words)
// with the refreshed session view.
type puzzleGuessRes struct {
	Guess *game.Guess `json:"guess"`
	State *game.View  `json:"state"`
}

// handlePuzzleGuess applies one guess and, when it solves the puzzle
// for a logged-in user, bumps their stats.
func (s *Server) handlePuzzleGuess(w http.ResponseWriter, r *http.Request) {
	var req puzzleGuessReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}

	owner := s.ownerID(w, r)
	eng := s.engineFor(owner)
	wasSolved := eng.View().Solved

	g, err := eng.SubmitGuess(r.Context(), req.Word)
	if err != nil {
		switch {
		case errors.Is(err, game.ErrLoading):
			http.Error(w, `{"error":"loading"}`, http.StatusConflict)
		case errors.Is(err, game.ErrNoSession):
			http.Error(w, `{"error":"no_session"}`, http.StatusConflict)
		case errors.Is(err, game.ErrEmptyGuess):
			http.Error(w, `{"error":"empty_guess"}`, http.StatusBadRequest)
		default:
			// A failed load surfaces here on the next guess.
			http.Error(w, `{"error":"load_failed"}`, http.StatusBadGateway)
		}
		return
	}

	v := eng.View()
	if v.Solved && !wasSolved {
		if me, _ := r.Context().Value(ctxUserKey{}).(*authUser); me != nil {
			if err := s.bumpStats(me.ID); err != nil {
				log.Warn().Err(err).Str("user", me.ID).Msg("bump stats")
			}
		}
	}

	_ = json.NewEncoder(w).Encode(puzzleGuessRes{Guess: g, State: v})
}

// -----------------------------------------------------------------------------
// /puzzle/state

// handlePuzzleState renders the owner's current session; before any
// load this is an empty view.
func (s *Server) handlePuzzleState(w http.ResponseWriter, r *http.Request) {
	owner := s.ownerID(w, r)
	_ = json.NewEncoder(w).Encode(s.engineFor(owner).View())
}

// internal/schedule/schedule.go
//
// Resolves which puzzle (version + numeric id) to play and which
// article backs it. Ids are calendar days: the epoch date is id 0 and
// each later day adds one. Article names come from precomputed monthly
// schedule files published per puzzle version.

package schedule

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"time"
)

// DefaultVersion is the puzzle track used when nothing else applies.
const DefaultVersion = "standard"

// epoch maps to puzzle id 0.
var epoch = time.Date(2022, time.June, 25, 0, 0, 0, 0, time.UTC)

// ErrNoEntry means the schedule has no article for the requested date.
var ErrNoEntry = errors.New("schedule: no entry for date")

// IDForDate returns the puzzle id whose date is t. Dates before the
// epoch clamp to 0.
func IDForDate(t time.Time) int {
	days := int(t.UTC().Truncate(24*time.Hour).Sub(epoch).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// DateForID returns the calendar date of a puzzle id.
func DateForID(id int) time.Time {
	return epoch.AddDate(0, 0, id)
}

var fragmentRe = regexp.MustCompile(`^#?/([a-zA-Z]+)/([0-9]+)$`)

// ParseFragment extracts a (version, id) pair from a location fragment
// of the form "#/<version>/<id>".
func ParseFragment(frag string) (version string, id int, ok bool) {
	m := fragmentRe.FindStringSubmatch(frag)
	if m == nil {
		return "", 0, false
	}
	id, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, false
	}
	return m[1], id, true
}

// Resolve picks the puzzle to load: a syntactically valid fragment
// wins, then the remembered version with today's id, then the default
// version with today's id. Ids pointing at future dates clamp to
// today — no future puzzles are servable.
func Resolve(fragment, remembered string, now time.Time) (string, int) {
	today := IDForDate(now)
	if v, id, ok := ParseFragment(fragment); ok {
		if id > today {
			id = today
		}
		return v, id
	}
	v := remembered
	if v == "" {
		v = DefaultVersion
	}
	return v, today
}

// Entry is one scheduled puzzle inside a monthly file. Name is the
// base64-encoded article title.
type Entry struct {
	Name  string `json:"name"`
	Index int    `json:"index"`
	Date  string `json:"date"` // YYYYMMDD
}

// Service fetches monthly schedule files from a static base URL laid
// out as <base>/<version>/<yyyymm>.js.
type Service struct {
	baseURL string
	http    *http.Client
}

// NewService builds a Service for the given schedule root URL.
func NewService(baseURL string) *Service {
	return &Service{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// ArticleName resolves the scheduled article for a puzzle, matching
// the id's date against the monthly file. Returns an error wrapping
// ErrNoEntry when no entry matches.
func (s *Service) ArticleName(ctx context.Context, version string, id int) (string, error) {
	date := DateForID(id)
	u := fmt.Sprintf("%s/%s/%s.js", s.baseURL, version, date.Format("200601"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("schedule: fetch %s: status %d", u, resp.StatusCode)
	}

	var entries []Entry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return "", fmt.Errorf("schedule: decode %s: %w", u, err)
	}

	key := date.Format("20060102")
	for _, e := range entries {
		if e.Date != key {
			continue
		}
		name, err := base64.StdEncoding.DecodeString(e.Name)
		if err != nil {
			return "", fmt.Errorf("schedule: decode entry name for %s: %w", key, err)
		}
		return string(name), nil
	}
	return "", fmt.Errorf("%w: %s/%s puzzle %d", ErrNoEntry, version, key, id)
}

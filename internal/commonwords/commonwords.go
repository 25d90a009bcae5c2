// internal/commonwords/commonwords.go
//
// Per-version allow-lists of words that are never censored (articles,
// prepositions, each track's "common" vocabulary). Lists come from
// COMMON_WORDS_DIR/<version>.txt when configured, otherwise from the
// embedded defaults in assets/lists. Read-only after load.

package commonwords

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/robalobadob/unveil/assets"
	"github.com/robalobadob/unveil/internal/textnorm"
)

// List is the allow-list for one puzzle version. Membership is tested
// against normalized forms.
type List struct {
	version string
	set     map[string]struct{}
}

// Version reports which puzzle track this list belongs to.
func (l *List) Version() string { return l.version }

// Contains reports whether the normalized form is allow-listed.
func (l *List) Contains(norm string) bool {
	_, ok := l.set[norm]
	return ok
}

// Len returns the number of distinct entries.
func (l *List) Len() int { return len(l.set) }

// Source loads and caches allow-lists per version.
type Source struct {
	dir string // optional override directory; "" means embedded only

	mu    sync.Mutex
	cache map[string]*List
}

// NewSource creates a Source. dir may be empty to use only the
// embedded lists.
func NewSource(dir string) *Source {
	return &Source{dir: dir, cache: make(map[string]*List)}
}

// ForVersion returns the allow-list for a puzzle version. Unknown
// versions fall back to the standard list so a misconfigured track
// still censors sensibly.
func (s *Source) ForVersion(version string) (*List, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.cache[version]; ok {
		return l, nil
	}

	words, err := s.readList(version)
	if err != nil {
		if version == "standard" {
			return nil, err
		}
		words, err = s.readList("standard")
		if err != nil {
			return nil, err
		}
	}

	l := &List{version: version, set: make(map[string]struct{}, len(words))}
	for _, w := range words {
		if n := textnorm.Normalize(w); n != "" {
			l.set[n] = struct{}{}
		}
	}
	s.cache[version] = l
	return l, nil
}

func (s *Source) readList(version string) ([]string, error) {
	if s.dir != "" {
		if words, err := readFileLines(filepath.Join(s.dir, version+".txt")); err == nil {
			return words, nil
		}
	}
	return assets.CommonWords(version)
}

func readFileLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		w := strings.TrimSpace(sc.Text())
		if w == "" || strings.HasPrefix(w, "#") {
			continue
		}
		out = append(out, w)
	}
	return out, sc.Err()
}

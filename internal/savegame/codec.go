// internal/savegame/codec.go
//
// Snapshot wire format shared by the savegame backends. Snapshots are
// stored serialized so the adapter never holds a live reference to a
// session; decoding enforces the soft-miss rules.

package savegame

import (
	"encoding/json"
	"strconv"

	"github.com/robalobadob/unveil/internal/game"
)

// snapKey builds the per-puzzle storage key, "<version>-<id>".
func snapKey(version string, id int) string {
	return version + "-" + strconv.Itoa(id)
}

// prefKey is the standalone key remembering the owner's last-used
// puzzle version.
const prefKey = "selected-version"

func encode(snap *game.Snapshot) ([]byte, error) {
	return json.Marshal(snap)
}

// decode parses a stored snapshot. Malformed payloads, id mismatches,
// and format-version mismatches are all misses — never an error, never
// a partial migration.
func decode(data []byte, id int) (*game.Snapshot, bool) {
	var snap game.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, false
	}
	if snap.V != game.SaveVersion || snap.ID != id {
		return nil, false
	}
	if snap.Article == nil || snap.Article.Doc == nil {
		return nil, false
	}
	if snap.Guesses == nil {
		snap.Guesses = []*game.Guess{}
	}
	return &snap, true
}

package assets

import (
	"bufio"
	"embed"
	"strings"
)

//go:embed lists/*.txt
var FS embed.FS

func readLines(name string) ([]string, error) {
	f, err := FS.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		out = append(out, strings.ToLower(s))
	}
	return out, sc.Err()
}

// CommonWords returns the embedded allow-list for a puzzle version,
// e.g. "standard" or "gaming".
func CommonWords(version string) ([]string, error) {
	return readLines("lists/" + version + ".txt")
}

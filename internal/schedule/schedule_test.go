package schedule

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestIDForDate(t *testing.T) {
	tests := []struct {
		date string
		want int
	}{
		{"2022-06-25", 0},
		{"2022-06-26", 1},
		{"2022-07-25", 30},
		{"2022-06-24", 0}, // before epoch clamps to 0
	}
	for _, tt := range tests {
		d, _ := time.Parse("2006-01-02", tt.date)
		if got := IDForDate(d); got != tt.want {
			t.Errorf("IDForDate(%s) = %d, want %d", tt.date, got, tt.want)
		}
	}
}

func TestDateForIDRoundTrip(t *testing.T) {
	for _, id := range []int{0, 1, 30, 365, 1000} {
		if got := IDForDate(DateForID(id)); got != id {
			t.Errorf("IDForDate(DateForID(%d)) = %d", id, got)
		}
	}
}

func TestParseFragment(t *testing.T) {
	tests := []struct {
		frag    string
		version string
		id      int
		ok      bool
	}{
		{"#/standard/12", "standard", 12, true},
		{"/gaming/0", "gaming", 0, true},
		{"#/standard/-1", "", 0, false},
		{"#/std2/5", "", 0, false},
		{"#/standard/", "", 0, false},
		{"", "", 0, false},
		{"#/standard/12/extra", "", 0, false},
	}
	for _, tt := range tests {
		v, id, ok := ParseFragment(tt.frag)
		if ok != tt.ok || v != tt.version || id != tt.id {
			t.Errorf("ParseFragment(%q) = (%q, %d, %v), want (%q, %d, %v)",
				tt.frag, v, id, ok, tt.version, tt.id, tt.ok)
		}
	}
}

func TestResolve(t *testing.T) {
	now := DateForID(100)

	v, id := Resolve("#/gaming/42", "", now)
	if v != "gaming" || id != 42 {
		t.Errorf("fragment resolve = (%q, %d)", v, id)
	}

	// Future ids clamp to today.
	v, id = Resolve("#/standard/500", "", now)
	if v != "standard" || id != 100 {
		t.Errorf("future clamp = (%q, %d), want (standard, 100)", v, id)
	}

	v, id = Resolve("", "gaming", now)
	if v != "gaming" || id != 100 {
		t.Errorf("remembered resolve = (%q, %d)", v, id)
	}

	v, id = Resolve("garbage", "", now)
	if v != DefaultVersion || id != 100 {
		t.Errorf("default resolve = (%q, %d)", v, id)
	}
}

func TestArticleName(t *testing.T) {
	id := 3
	date := DateForID(id)
	entries := []Entry{
		{Name: base64.StdEncoding.EncodeToString([]byte("Other_article")), Index: 2, Date: DateForID(2).Format("20060102")},
		{Name: base64.StdEncoding.EncodeToString([]byte("Particle_physics")), Index: id, Date: date.Format("20060102")},
	}

	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(entries)
	}))
	defer srv.Close()

	s := NewService(srv.URL)
	name, err := s.ArticleName(context.Background(), "standard", id)
	if err != nil {
		t.Fatalf("ArticleName: %v", err)
	}
	if name != "Particle_physics" {
		t.Errorf("name = %q", name)
	}
	wantPath := "/standard/" + date.Format("200601") + ".js"
	if gotPath != wantPath {
		t.Errorf("path = %q, want %q", gotPath, wantPath)
	}
}

func TestArticleNameNoEntry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	s := NewService(srv.URL)
	_, err := s.ArticleName(context.Background(), "standard", 7)
	if !errors.Is(err, ErrNoEntry) {
		t.Fatalf("error = %v, want ErrNoEntry", err)
	}
}

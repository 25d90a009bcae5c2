// internal/wiki/client.go
//
// Fetches article markup from a MediaWiki parse endpoint and feeds it
// through the sanitizer. Redirect markers in the returned markup are
// followed up to maxRedirects deep; the upstream dialect has no loop
// protection of its own.

package wiki

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const maxRedirects = 10

// NetworkError reports a non-success upstream response.
type NetworkError struct {
	Status     int
	StatusText string
	URL        string
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("wiki: server error: [%d] [%s] [%s]", e.Status, e.StatusText, e.URL)
}

var (
	// ErrRedirectLoop aborts a load whose redirect chain exceeds
	// maxRedirects.
	ErrRedirectLoop = errors.New("wiki: redirect chain exceeded maximum depth")

	// ErrNoContent means the requested page parsed to nothing.
	ErrNoContent = errors.New("wiki: page has no content")
)

// Client fetches and sanitizes articles.
type Client struct {
	apiURL string
	http   *http.Client
}

// NewClient builds a Client for the given parse API endpoint.
// An empty apiURL selects the English-language default.
func NewClient(apiURL string) *Client {
	if apiURL == "" {
		apiURL = "https://en.wikipedia.org/w/api.php"
	}
	return &Client{
		apiURL: apiURL,
		http:   &http.Client{Timeout: 30 * time.Second},
	}
}

type parseResponse struct {
	Parse struct {
		Title string `json:"title"`
		Text  string `json:"text"`
	} `json:"parse"`
}

// preStrips are raw-markup removals applied before parsing: media
// elements the puzzle can never show, formatting tags that fragment
// words, and one known encoding artifact.
var preStrips = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`<img[^>]*>`), ""},
	{regexp.MustCompile(`</?small>`), ""},
	{regexp.MustCompile(`(?s)<audio.*?</audio>`), ""},
	{regexp.MustCompile(`(?s)<video.*?</video>`), ""},
	{regexp.MustCompile(`â€“`), "-"},
}

// FetchArticle loads, cleans, and tokenizes the named article,
// following redirects.
func (c *Client) FetchArticle(ctx context.Context, name string) (*Article, error) {
	return c.fetch(ctx, name, 0)
}

func (c *Client) fetch(ctx context.Context, name string, depth int) (*Article, error) {
	u := c.apiURL + "?action=parse&format=json&page=" + url.QueryEscape(name) +
		"&prop=text&formatversion=2&origin=*"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &NetworkError{
			Status:     resp.StatusCode,
			StatusText: http.StatusText(resp.StatusCode),
			URL:        resp.Request.URL.String(),
		}
	}

	var body parseResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("wiki: decode parse response: %w", err)
	}
	if body.Parse.Text == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoContent, name)
	}

	text := body.Parse.Text
	for _, s := range preStrips {
		text = s.re.ReplaceAllString(text, s.repl)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("wiki: parse markup: %w", err)
	}

	if doc.Find(".redirectMsg").Length() > 0 {
		target := strings.TrimSpace(doc.Find(".redirectText li a").First().Text())
		if target != "" {
			if depth >= maxRedirects {
				return nil, ErrRedirectLoop
			}
			return c.fetch(ctx, strings.ReplaceAll(target, " ", "_"), depth+1)
		}
	}

	return sanitize(doc, body.Parse.Title)
}

package wiki

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func mustSanitize(t *testing.T, rawHTML, rawTitle string) *Article {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	art, err := sanitize(doc, rawTitle)
	if err != nil {
		t.Fatalf("sanitize: %v", err)
	}
	return art
}

func wordTexts(n *Node) []string {
	var out []string
	for _, w := range n.Words() {
		out = append(out, w.Text)
	}
	return out
}

func TestSanitizeBasics(t *testing.T) {
	raw := `<div class="mw-parser-output">
<p>The <a href="/wiki/Photon">photon</a> is an <b>elementary particle</b>.</p>
</div>`
	art := mustSanitize(t, raw, "Particle_physics")

	if art.Title != "Particle physics" {
		t.Errorf("title = %q, want %q", art.Title, "Particle physics")
	}

	h := art.Doc.FirstElement("h1")
	if h == nil {
		t.Fatal("no synthesized title heading")
	}
	if got := wordTexts(h); len(got) != 2 || got[0] != "Particle" || got[1] != "physics" {
		t.Errorf("heading words = %v", got)
	}

	p := art.Doc.FirstElement("p")
	if p == nil {
		t.Fatal("paragraph missing")
	}
	got := wordTexts(p)
	want := []string{"The", "photon", "is", "an", "elementary", "particle"}
	if len(got) != len(want) {
		t.Fatalf("paragraph words = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("paragraph words = %v, want %v", got, want)
		}
	}

	// The trailing period must be a punctuation token, not part of a
	// word.
	foundDot := false
	p.Walk(func(n *Node) {
		if n.Kind == KindPunct && n.Text == "." {
			foundDot = true
		}
	})
	if !foundDot {
		t.Error("period was not tokenized as punctuation")
	}
}

func TestSanitizeRemovesDenylistedElements(t *testing.T) {
	raw := `<div class="mw-parser-output">
<div id="toc">contents</div>
<table class="infobox"><tbody><tr><td>born 1900</td></tr></tbody></table>
<p>Kept prose<sup class="reference">[1]</sup> here.</p>
<div class="navbox">navigation</div>
</div>`
	art := mustSanitize(t, raw, "Test")

	all := art.Doc.TextContent()
	for _, bad := range []string{"contents", "born 1900", "[1]", "navigation"} {
		if strings.Contains(all, bad) {
			t.Errorf("denylisted content %q survived: %q", bad, all)
		}
	}
	if !strings.Contains(all, "Kept prose") {
		t.Errorf("legitimate prose lost: %q", all)
	}
}

func TestSanitizeTruncatesTrailingSections(t *testing.T) {
	raw := `<div class="mw-parser-output">
<p>Body text.</p>
<h2><span class="mw-headline" id="See_also">See also</span></h2>
<ul><li>Related thing</li></ul>
<h2><span class="mw-headline" id="References">References</span></h2>
</div>`
	art := mustSanitize(t, raw, "Test")

	all := art.Doc.TextContent()
	if !strings.Contains(all, "Body text") {
		t.Errorf("content before the stop heading lost: %q", all)
	}
	for _, gone := range []string{"See also", "Related thing", "References"} {
		if strings.Contains(all, gone) {
			t.Errorf("content from %q onward survived: %q", gone, all)
		}
	}
}

func TestSanitizeTruncatesNotesOnlyArticle(t *testing.T) {
	// No "See also" section: truncation must still fire on the Notes
	// anchor even though the denylist also targets it.
	raw := `<div class="mw-parser-output">
<p>Body text.</p>
<h2><span class="mw-headline" id="Notes">Notes</span></h2>
<p>Trailing notes prose that should be gone.</p>
</div>`
	art := mustSanitize(t, raw, "Test")

	all := art.Doc.TextContent()
	if !strings.Contains(all, "Body text") {
		t.Errorf("content before the stop heading lost: %q", all)
	}
	if strings.Contains(all, "Trailing notes prose") {
		t.Errorf("content after the Notes heading survived: %q", all)
	}
}

func TestSanitizeSpecialPunctuationUnits(t *testing.T) {
	raw := `<div class="mw-parser-output"><p>Quanta, e.g. photons, carry energy.</p></div>`
	art := mustSanitize(t, raw, "Test")

	var punct []string
	art.Doc.Walk(func(n *Node) {
		if n.Kind == KindPunct {
			punct = append(punct, n.Text)
		}
	})
	found := false
	for _, p := range punct {
		if p == "e.g." {
			found = true
		}
	}
	if !found {
		t.Errorf("e.g. not kept as a single punctuation unit: %v", punct)
	}
	for _, w := range wordTexts(art.Doc) {
		if w == "e" || w == "g" {
			t.Errorf("e.g. fragmented into word tokens: %v", wordTexts(art.Doc))
		}
	}
}

func TestSanitizePunctuationAdjacencyFixes(t *testing.T) {
	raw := `<div class="mw-parser-output"><p>Light (; quanta) shines.</p></div>`
	art := mustSanitize(t, raw, "Test")

	p := art.Doc.FirstElement("p")
	if p == nil {
		t.Fatal("paragraph missing")
	}
	if got := p.TextContent(); strings.Contains(got, "(; ") {
		t.Errorf("punctuation artifact not collapsed: %q", got)
	}
}

func TestSanitizePartitionsText(t *testing.T) {
	const prose = "Photons have no mass, yet carry momentum."
	raw := `<div class="mw-parser-output"><p>` + prose + `</p></div>`
	art := mustSanitize(t, raw, "Test")

	p := art.Doc.FirstElement("p")
	if p == nil {
		t.Fatal("paragraph missing")
	}
	if got := p.TextContent(); got != prose {
		t.Errorf("token concatenation = %q, want %q", got, prose)
	}

	// Every non-space character belongs to exactly one word or
	// punctuation token.
	var tokens int
	p.Walk(func(n *Node) {
		if n.Kind == KindWord || n.Kind == KindPunct {
			tokens++
		}
	})
	if tokens != 9 { // 7 words + comma + period
		t.Errorf("token count = %d, want 9", tokens)
	}
}

func TestSanitizeUnwrapsFormattingWrappers(t *testing.T) {
	raw := `<div class="mw-parser-output"><p><b>Bold</b> and <a href="/x" title="tip">linked</a> text.</p></div>`
	art := mustSanitize(t, raw, "Test")

	if art.Doc.FirstElement("a") != nil || art.Doc.FirstElement("b") != nil {
		t.Error("formatting wrappers not unwrapped")
	}
	got := wordTexts(art.Doc.FirstElement("p"))
	want := []string{"Bold", "and", "linked", "text"}
	if len(got) != len(want) {
		t.Fatalf("words = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("words = %v, want %v", got, want)
		}
	}
}

func TestSanitizePrunesEmptyElements(t *testing.T) {
	raw := `<div class="mw-parser-output"><p>Text.</p><div><span></span></div></div>`
	art := mustSanitize(t, raw, "Test")

	for _, k := range art.Doc.Kids {
		if k.Kind == KindElement && len(k.Kids) == 0 {
			t.Errorf("empty element %q survived pruning", k.Tag)
		}
	}
}

func TestSanitizeBlockquoteFlattened(t *testing.T) {
	raw := `<div class="mw-parser-output"><blockquote><p>Inner <i>styled</i> quote.</p></blockquote></div>`
	art := mustSanitize(t, raw, "Test")

	bq := art.Doc.FirstElement("blockquote")
	if bq == nil {
		t.Fatal("blockquote missing")
	}
	if bq.FirstElement("p") != nil || bq.FirstElement("i") != nil {
		t.Error("blockquote inner markup should be flattened to text")
	}
	if got := bq.TextContent(); !strings.Contains(got, "Inner styled quote") {
		t.Errorf("blockquote text = %q", got)
	}
}

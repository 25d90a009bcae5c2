// internal/wiki/sanitize.go
//
// Cleans a parsed wiki article and tokenizes it into the Node tree.
// This is not a general-purpose HTML sanitizer: it targets the one
// markup dialect the encyclopedia API emits, so the denylist below is
// a fixed, enumerable set. Unmatched selectors are no-ops.

package wiki

import (
	stdhtml "html"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/robalobadob/unveil/internal/textnorm"
)

// badSelectors enumerates structural elements that never belong in a
// puzzle: infoboxes, reference lists, navboxes, citation markers,
// collapsed sections, math widgets, media and styling-only wrappers.
var badSelectors = []string{
	"[rel='mw-deduplicated-inline-style']",
	"[title='Name at birth']",
	"[aria-labelledby='micro-periodic-table-title']",
	".barbox",
	".wikitable",
	".clade",
	".Expand_section",
	".nowrap",
	".IPA",
	".thumb",
	".mw-empty-elt",
	".mw-editsection",
	".nounderlines",
	".nomobile",
	".searchaux",
	"#toc",
	".sidebar",
	".sistersitebox",
	".noexcerpt",
	"#External_links",
	"#Further_reading",
	".hatnote",
	".haudio",
	".portalbox",
	".mw-references-wrap",
	".infobox",
	".unsolved",
	".navbox",
	".metadata",
	".refbegin",
	".reflist",
	".mw-stack",
	"#Notes",
	"#References",
	".reference",
	".quotebox",
	".collapsible",
	".uncollapsed",
	".mw-collapsible",
	".mw-made-collapsible",
	".mbox-small",
	".mbox",
	"#coordinates",
	".succession-box",
	".noprint",
	".mwe-math-element",
	".cs1-ws-icon",
	"sup",
	"excerpt",
	"style",
}

// sectionStops are the headings that mark the end of puzzle-worthy
// prose; the first match and everything after it is dropped.
var sectionStops = []string{"#See_also", "#Notes", "#References"}

// punctRunes is the fixed punctuation set split into dedicated tokens.
var punctRunes = map[rune]bool{
	'.': true, ',': true, ':': true, '(': true, ')': true,
	'[': true, ']': true, '?': true, '!': true, ';': true,
	'`': true, '~': true, '-': true, '–': true, '—': true,
	'&': true, '*': true, '"': true,
}

// specialPunct are multi-character sequences treated as one
// punctuation unit instead of being split per character.
var specialPunct = []string{"e.g.", "i.e."}

// punctContainers are the text-bearing elements whose direct text runs
// get punctuation splitting.
var punctContainers = map[string]bool{
	"p": true, "blockquote": true, "h1": true, "h2": true,
	"table": true, "li": true, "i": true, "cite": true, "span": true,
}

// textFixes are literal substitutions for known punctuation-adjacency
// artifacts left behind by element removal, applied before
// tokenization.
var textFixes = strings.NewReplacer(
	"(; ", "(",
	"(, ", "(",
	": \u200b;", ";",
	" () ", " ",
	"\u00a0", " ",
)

// sanitize runs the cleaning pipeline over a parsed article document
// and returns the tokenized result. rawTitle is the API title, with
// underscores still in place.
func sanitize(doc *goquery.Document, rawTitle string) (*Article, error) {
	root := doc.Find(".mw-parser-output").First()
	if root.Length() == 0 {
		root = doc.Find("body").First()
	}

	// Truncate first: the denylist sweep would remove the #Notes and
	// #References anchors the truncation keys on.
	truncateTrailingSections(doc)

	for _, sel := range badSelectors {
		doc.Find(sel).Remove()
	}

	// Unwrap pure formatting wrappers so they cannot fragment word
	// tokens, and heading-label wrappers while their class is still
	// addressable.
	doc.Find(".mw-headline").Children().Each(unwrapSelection)
	doc.Find("a, b").Each(unwrapSelection)

	doc.Find("blockquote").Each(func(_ int, s *goquery.Selection) {
		s.SetText(s.Text())
	})

	doc.Find("[title]").RemoveAttr("title")
	doc.Find("[class]").RemoveAttr("class")
	doc.Find("[style]").RemoveAttr("style")

	title := strings.ReplaceAll(rawTitle, "_", " ")
	root.PrependHtml("<h1>" + stdhtml.EscapeString(title) + "</h1>")

	tree := buildTree(root)
	prune(tree)
	return &Article{Title: title, Doc: tree}, nil
}

// truncateTrailingSections deletes the first trailing-section heading
// container and every sibling after it.
func truncateTrailingSections(doc *goquery.Document) {
	for _, sel := range sectionStops {
		anchor := doc.Find(sel).First()
		if anchor.Length() == 0 {
			continue
		}
		container := anchor.Parent()
		container.NextAll().Remove()
		container.Remove()
		return
	}
}

func unwrapSelection(_ int, s *goquery.Selection) {
	for _, n := range s.Nodes {
		unwrapNode(n)
	}
}

// unwrapNode replaces an element with its children, discarding only
// the wrapper.
func unwrapNode(n *html.Node) {
	parent := n.Parent
	if parent == nil {
		return
	}
	for n.FirstChild != nil {
		c := n.FirstChild
		n.RemoveChild(c)
		parent.InsertBefore(c, n)
	}
	parent.RemoveChild(n)
}

// buildTree converts the cleaned HTML below root into a Node tree,
// tokenizing text runs on the way.
func buildTree(root *goquery.Selection) *Node {
	out := NewElement("div")
	for _, rn := range root.Nodes {
		for c := rn.FirstChild; c != nil; c = c.NextSibling {
			appendNode(out, c)
		}
	}
	return out
}

func appendNode(parent *Node, n *html.Node) {
	switch n.Type {
	case html.ElementNode:
		el := NewElement(n.Data)
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			appendNode(el, c)
		}
		parent.Append(el)
	case html.TextNode:
		tokenizeText(parent, n.Data, punctContainers[parent.Tag])
	}
	// Comments and doctypes carry no readable text; dropped.
}

// tokenizeText splits a text run into word, punctuation, and spacer
// tokens. splitPunct controls whether punctuation characters become
// dedicated tokens; outside punctuation containers they stay attached
// to their word run.
func tokenizeText(parent *Node, raw string, splitPunct bool) {
	rs := []rune(textFixes.Replace(raw))
	i := 0
	for i < len(rs) {
		switch r := rs[i]; {
		case unicode.IsSpace(r):
			j := i
			for j < len(rs) && unicode.IsSpace(rs[j]) {
				j++
			}
			parent.Append(NewText(string(rs[i:j])))
			i = j
		case splitPunct && specialAt(rs, i) != "":
			sp := specialAt(rs, i)
			parent.Append(NewPunct(sp))
			i += len([]rune(sp))
		case splitPunct && punctRunes[r]:
			parent.Append(NewPunct(string(r)))
			i++
		default:
			j := i
			for j < len(rs) && !unicode.IsSpace(rs[j]) && !(splitPunct && punctRunes[rs[j]]) {
				j++
			}
			word := string(rs[i:j])
			parent.Append(NewWord(word, textnorm.Normalize(word)))
			i = j
		}
	}
}

// specialAt reports the multi-character punctuation unit starting at
// rs[i], or "" when none applies. The unit must begin at a token
// boundary so a word like "pie.g" is never cut in half.
func specialAt(rs []rune, i int) string {
	if i > 0 && !unicode.IsSpace(rs[i-1]) && !punctRunes[rs[i-1]] {
		return ""
	}
	for _, sp := range specialPunct {
		spr := []rune(sp)
		if i+len(spr) <= len(rs) && string(rs[i:i+len(spr)]) == sp {
			return sp
		}
	}
	return ""
}

// prune drops elements left with no content after cleaning.
func prune(n *Node) {
	kept := n.Kids[:0]
	for _, k := range n.Kids {
		if k.Kind == KindElement {
			prune(k)
			if len(k.Kids) == 0 {
				continue
			}
		}
		kept = append(kept, k)
	}
	n.Kids = kept
}

// internal/wiki/doc.go
//
// Tokenized document tree produced by the sanitizer and mutated by the
// guess engine. Every readable character of the source article lands in
// exactly one leaf token, in reading order:
//   - word tokens carry the display text plus its normalized form,
//   - punctuation tokens are decorative and never matched,
//   - text nodes hold the whitespace between tokens.
// Structural elements (p, h1, li, ...) wrap the leaves. Highlight flags
// are transient and never persisted; the censored flag is part of the
// saved game.

package wiki

import (
	"html"
	"strings"
	"unicode/utf8"
)

// Kind discriminates node types in the tokenized tree.
type Kind string

const (
	KindElement Kind = "el"
	KindText    Kind = "text"
	KindWord    Kind = "word"
	KindPunct   Kind = "punct"
)

// Node is one node of a tokenized document.
type Node struct {
	Kind Kind    `json:"k"`
	Tag  string  `json:"tag,omitempty"` // element nodes only
	Text string  `json:"t,omitempty"`   // leaf nodes only
	Norm string  `json:"n,omitempty"`   // word tokens only
	Kids []*Node `json:"kids,omitempty"`

	Censored    bool `json:"c,omitempty"`
	Highlighted bool `json:"-"`
	Focused     bool `json:"-"`
}

// Article is the sanitizer's output: a display title plus the
// tokenized document. The canonical article is never mutated by the
// engine directly; sessions work on a clone.
type Article struct {
	Title string `json:"title"`
	Doc   *Node  `json:"doc"`
}

func NewElement(tag string) *Node { return &Node{Kind: KindElement, Tag: tag} }
func NewText(text string) *Node { return &Node{Kind: KindText, Text: text} }
func NewPunct(text string) *Node { return &Node{Kind: KindPunct, Text: text} }

// NewWord builds a word token; norm must already be the normalized
// form of text.
func NewWord(text, norm string) *Node {
	return &Node{Kind: KindWord, Text: text, Norm: norm}
}

// Append adds child nodes.
func (n *Node) Append(kids ...*Node) { n.Kids = append(n.Kids, kids...) }

// Walk visits n and every descendant in document order.
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	for _, k := range n.Kids {
		k.Walk(fn)
	}
}

// Words returns all word tokens in document order.
func (n *Node) Words() []*Node {
	var out []*Node
	n.Walk(func(k *Node) {
		if k.Kind == KindWord {
			out = append(out, k)
		}
	})
	return out
}

// FirstElement returns the first element with the given tag, or nil.
func (n *Node) FirstElement(tag string) *Node {
	if n.Kind == KindElement && n.Tag == tag {
		return n
	}
	for _, k := range n.Kids {
		if m := k.FirstElement(tag); m != nil {
			return m
		}
	}
	return nil
}

// TextContent concatenates the display text of every leaf, ignoring
// censoring. Used for round-trip checks against the source text.
func (n *Node) TextContent() string {
	var b strings.Builder
	n.Walk(func(k *Node) {
		if k.Kind != KindElement {
			b.WriteString(k.Text)
		}
	})
	return b.String()
}

// Clone deep-copies the subtree, flags included.
func (n *Node) Clone() *Node {
	c := *n
	c.Kids = make([]*Node, len(n.Kids))
	for i, k := range n.Kids {
		c.Kids[i] = k.Clone()
	}
	return &c
}

// Clone deep-copies the article.
func (a *Article) Clone() *Article {
	return &Article{Title: a.Title, Doc: a.Doc.Clone()}
}

const blockGlyph = "█"

// CensoredRun returns a placeholder run with one block glyph per rune
// of the hidden word.
func CensoredRun(text string) string {
	return strings.Repeat(blockGlyph, utf8.RuneCountInString(text))
}

// RenderHTML serializes the subtree to markup for the rendering layer.
// Censored words render as block-glyph runs of equal rune length;
// censored/highlighted/focused state is exposed as span classes.
func (n *Node) RenderHTML() string {
	var b strings.Builder
	n.render(&b)
	return b.String()
}

func (n *Node) render(b *strings.Builder) {
	switch n.Kind {
	case KindText:
		b.WriteString(html.EscapeString(n.Text))
	case KindPunct:
		b.WriteString(`<span class="punctuation">`)
		b.WriteString(html.EscapeString(n.Text))
		b.WriteString(`</span>`)
	case KindWord:
		b.WriteString(`<span class="`)
		b.WriteString(strings.Join(n.classes(), " "))
		b.WriteString(`">`)
		if n.Censored {
			b.WriteString(CensoredRun(n.Text))
		} else {
			b.WriteString(html.EscapeString(n.Text))
		}
		b.WriteString(`</span>`)
	case KindElement:
		b.WriteString("<")
		b.WriteString(n.Tag)
		b.WriteString(">")
		for _, k := range n.Kids {
			k.render(b)
		}
		b.WriteString("</")
		b.WriteString(n.Tag)
		b.WriteString(">")
	}
}

func (n *Node) classes() []string {
	out := []string{"word"}
	if n.Censored {
		out = append(out, "censored")
	}
	if n.Highlighted {
		out = append(out, "highlighted")
	}
	if n.Focused {
		out = append(out, "focused")
	}
	return out
}

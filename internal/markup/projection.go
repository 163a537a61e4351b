package markup

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Position locates a plain-text index inside the tree.
type Position struct {
	Node   *html.Node
	Offset int
}

type segment struct {
	node       *html.Node
	start, end int
}

// Projection is the plain text of an element together with a map from every
// plain-text byte back to the text node that holds it.
type Projection struct {
	Text     string
	segments []segment
}

// Project builds the plain-text projection of el. Line breaks project to "\n".
func Project(el *html.Node) Projection {
	var (
		b    strings.Builder
		segs []segment
	)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch {
			case c.Type == html.TextNode:
				start := b.Len()
				b.WriteString(c.Data)
				segs = append(segs, segment{node: c, start: start, end: b.Len()})
			case IsElement(c, atom.Br):
				start := b.Len()
				b.WriteByte('\n')
				segs = append(segs, segment{node: c, start: start, end: b.Len()})
			case IsElement(c, atom.Script, atom.Style):
			case c.Type == html.ElementNode:
				walk(c)
			}
		}
	}
	walk(el)
	return Projection{Text: b.String(), segments: segs}
}

// Locate maps a plain-text index to its node and byte offset.
func (p Projection) Locate(i int) (Position, bool) {
	idx := sort.Search(len(p.segments), func(k int) bool { return p.segments[k].end > i })
	if idx == len(p.segments) || i < p.segments[idx].start {
		return Position{}, false
	}
	seg := p.segments[idx]
	return Position{Node: seg.node, Offset: i - seg.start}, true
}

// PlainText returns the text content of n with markup stripped.
func PlainText(n *html.Node) string {
	return Project(n).Text
}

// WordCount counts whitespace-separated words.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// SplitAt cuts el at the given plain-text offsets. Each offset must point at
// a character of a text node. Inline ancestors spanning a cut are duplicated
// on both sides so every piece stays balanced, whitespace at the cut edges is
// trimmed, and the new pieces are inserted as siblings after el. The returned
// slice starts with el itself.
func SplitAt(el *html.Node, offsets []int) ([]*html.Node, error) {
	proj := Project(el)
	cuts := normalizeCuts(offsets, len(proj.Text))

	positions := make([]Position, len(cuts))
	for i, cut := range cuts {
		pos, ok := proj.Locate(cut)
		if !ok || pos.Node.Type != html.TextNode {
			return nil, fmt.Errorf("offset %d does not point at text", cut)
		}
		positions[i] = pos
	}

	// Right to left, so earlier positions stay valid while later ones are cut.
	pieces := make([]*html.Node, len(cuts)+1)
	pieces[0] = el
	for i := len(positions) - 1; i >= 0; i-- {
		pieces[i+1] = splitAtPosition(el, positions[i])
	}

	prev := el
	for _, piece := range pieces {
		trimEdges(piece)
		if piece != el && el.Parent != nil {
			InsertAfter(prev, piece)
		}
		prev = piece
	}
	return pieces, nil
}

func normalizeCuts(offsets []int, limit int) []int {
	sorted := append([]int(nil), offsets...)
	sort.Ints(sorted)
	out := sorted[:0]
	for _, o := range sorted {
		if o <= 0 || o >= limit {
			continue
		}
		if len(out) > 0 && out[len(out)-1] == o {
			continue
		}
		out = append(out, o)
	}
	return out
}

func splitAtPosition(el *html.Node, pos Position) *html.Node {
	boundary := pos.Node
	if pos.Offset > 0 {
		tail := Text(pos.Node.Data[pos.Offset:])
		pos.Node.Data = pos.Node.Data[:pos.Offset]
		InsertAfter(pos.Node, tail)
		boundary = tail
	}
	for boundary.Parent != el {
		parent := boundary.Parent
		clone := splitClone(parent)
		moveFrom(boundary, clone)
		InsertAfter(parent, clone)
		if parent.FirstChild == nil {
			Detach(parent)
		}
		boundary = clone
	}
	right := splitClone(el)
	moveFrom(boundary, right)
	return right
}

// splitClone copies an element for the right-hand side of a cut; ids are not
// carried over since they must stay unique.
func splitClone(n *html.Node) *html.Node {
	c := shallowClone(n)
	attrs := c.Attr[:0]
	for _, a := range c.Attr {
		if a.Key != "id" {
			attrs = append(attrs, a)
		}
	}
	c.Attr = attrs
	return c
}

func moveFrom(start, dst *html.Node) {
	for n := start; n != nil; {
		next := n.NextSibling
		n.Parent.RemoveChild(n)
		dst.AppendChild(n)
		n = next
	}
}

func trimEdges(el *html.Node) {
	texts := textNodes(el)
	for _, t := range texts {
		t.Data = strings.TrimLeftFunc(t.Data, unicode.IsSpace)
		if t.Data != "" {
			break
		}
	}
	for i := len(texts) - 1; i >= 0; i-- {
		texts[i].Data = strings.TrimRightFunc(texts[i].Data, unicode.IsSpace)
		if texts[i].Data != "" {
			break
		}
	}
}

func textNodes(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			out = append(out, c)
			continue
		}
		out = append(out, textNodes(c)...)
	}
	return out
}

package markup

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var blockTags = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"details": true, "div": true, "dl": true, "fieldset": true,
	"figure": true, "figcaption": true, "footer": true, "form": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"header": true, "hr": true, "li": true, "main": true, "nav": true,
	"ol": true, "p": true, "pre": true, "section": true, "table": true,
	"ul": true,
}

// Elements that are strictly inline text wrappers; a block inside one of them is malformed.
var inlineContainerTags = map[string]bool{
	"p": true, "span": true, "em": true, "strong": true, "b": true,
	"i": true, "u": true, "small": true, "font": true, "label": true,
}

var mediaTags = map[string]bool{
	"img": true, "picture": true, "video": true, "iframe": true, "audio": true,
}

// IsElement reports whether n is an element with one of the given tags.
func IsElement(n *html.Node, tags ...atom.Atom) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	if len(tags) == 0 {
		return true
	}
	for _, t := range tags {
		if n.DataAtom == t {
			return true
		}
	}
	return false
}

// IsBlock reports block-level elements.
func IsBlock(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode && blockTags[n.Data]
}

// IsInlineContainer reports elements that must only hold inline content.
func IsInlineContainer(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode && inlineContainerTags[n.Data]
}

// IsHeading reports h1-h6.
func IsHeading(n *html.Node) bool {
	return IsElement(n, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6)
}

// IsWhitespace reports text nodes with nothing but whitespace.
func IsWhitespace(n *html.Node) bool {
	return n != nil && n.Type == html.TextNode && strings.TrimSpace(n.Data) == ""
}

// IsMedia reports a relocatable media fragment: a figure, a bare media
// element, or a paragraph/div whose only content is one media element
// (optionally wrapped in a link).
func IsMedia(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	if n.DataAtom == atom.Figure || mediaTags[n.Data] {
		return true
	}
	if n.DataAtom != atom.P && n.DataAtom != atom.Div {
		return false
	}
	only := soleElement(n)
	if only == nil {
		return false
	}
	if only.DataAtom == atom.A {
		only = soleElement(only)
		if only == nil {
			return false
		}
	}
	return mediaTags[only.Data] || only.DataAtom == atom.Figure
}

// soleElement returns the single element child of n when every other child
// is whitespace or a line break.
func soleElement(n *html.Node) *html.Node {
	var found *html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch {
		case c.Type == html.CommentNode, IsWhitespace(c), IsElement(c, atom.Br):
			continue
		case c.Type == html.ElementNode && found == nil:
			found = c
		default:
			return nil
		}
	}
	return found
}

// HasBlockDescendant reports whether any descendant is a block or media element.
func HasBlockDescendant(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if IsBlock(c) || (IsElement(c) && mediaTags[c.Data]) {
			return true
		}
		if HasBlockDescendant(c) {
			return true
		}
	}
	return false
}

// HasAncestor reports whether any ancestor of n (stopping at the fragment root) has one of the tags.
func HasAncestor(n *html.Node, tags ...atom.Atom) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if IsElement(p, tags...) {
			return true
		}
	}
	return false
}

// CountMedia parses body and counts media fragments anywhere in it.
func CountMedia(body string) (int, error) {
	frag, err := Parse(body)
	if err != nil {
		return 0, err
	}
	return len(FindMedia(frag.Root())), nil
}

// FindMedia returns outermost media fragments in document order.
func FindMedia(root *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if IsMedia(c) {
				out = append(out, c)
				continue
			}
			walk(c)
		}
	}
	walk(root)
	return out
}

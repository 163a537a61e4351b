// Package markup models an article body as a node tree and offers the
// text-level operations the enrichment stages share: plain-text projection,
// offset mapping and balanced splitting.
package markup

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Fragment is a parsed body. The root is a synthetic <body> element; its
// children are the top-level blocks of the document.
type Fragment struct {
	root *html.Node
	doc  *goquery.Document
}

// Parse builds a fragment from body markup.
func Parse(body string) (*Fragment, error) {
	nodes, err := ParseNodes(body)
	if err != nil {
		return nil, err
	}
	root := newBody()
	for _, n := range nodes {
		root.AppendChild(n)
	}
	return &Fragment{root: root, doc: goquery.NewDocumentFromNode(root)}, nil
}

// ParseNodes parses markup in a body context and returns detached top-level nodes.
func ParseNodes(markup string) ([]*html.Node, error) {
	nodes, err := html.ParseFragment(strings.NewReader(markup), newBody())
	if err != nil {
		return nil, fmt.Errorf("parse markup: %w", err)
	}
	return nodes, nil
}

// Root returns the synthetic body element.
func (f *Fragment) Root() *html.Node {
	return f.root
}

// Selection exposes the fragment to goquery selectors.
func (f *Fragment) Selection() *goquery.Selection {
	return f.doc.Selection
}

// Blocks returns the current top-level nodes in order.
func (f *Fragment) Blocks() []*html.Node {
	var out []*html.Node
	for c := f.root.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

// Render serialises the fragment back to markup.
func (f *Fragment) Render() (string, error) {
	out, err := f.doc.Selection.Html()
	if err != nil {
		return "", fmt.Errorf("render body: %w", err)
	}
	return out, nil
}

// RenderNode serialises a single node including its own tag.
func RenderNode(n *html.Node) (string, error) {
	var b strings.Builder
	if err := html.Render(&b, n); err != nil {
		return "", fmt.Errorf("render node: %w", err)
	}
	return b.String(), nil
}

// Element builds a detached element with attributes given as key, value pairs.
func Element(tag string, attrs ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
	return n
}

// Text builds a detached text node.
func Text(data string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: data}
}

// Attr returns the value of an attribute.
func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr replaces or adds an attribute.
func SetAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// Detach removes a node from its parent if it has one.
func Detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// ReplaceWith swaps old for the given nodes at the same position.
func ReplaceWith(old *html.Node, nodes ...*html.Node) {
	parent := old.Parent
	if parent == nil {
		return
	}
	for _, n := range nodes {
		Detach(n)
		parent.InsertBefore(n, old)
	}
	parent.RemoveChild(old)
}

// InsertAfter places n directly after ref.
func InsertAfter(ref, n *html.Node) {
	Detach(n)
	if ref.NextSibling != nil {
		ref.Parent.InsertBefore(n, ref.NextSibling)
		return
	}
	ref.Parent.AppendChild(n)
}

func shallowClone(n *html.Node) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
	}
	if len(n.Attr) > 0 {
		c.Attr = append([]html.Attribute(nil), n.Attr...)
	}
	return c
}

func newBody() *html.Node {
	return &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
}

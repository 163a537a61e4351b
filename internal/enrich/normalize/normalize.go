// Package normalize repairs the malformed markup patterns produced by the
// draft generator: block elements stranded inside inline containers and the
// lightweight plain-text dialect (markdown-style headings, lists, emphasis).
package normalize

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"ArticleEnricher/internal/markup"
)

var (
	blockMarker  = regexp.MustCompile(`(?m)^\s{0,3}(#{1,6}\s+\S|[-*+]\s+\S|\d{1,3}[.)]\s+\S)`)
	inlineMarker = regexp.MustCompile(`\*\*\S|__\S|\*[^\s*]|(^|[^\pL\pN_])_[^\s_]`)
	lineMarker   = regexp.MustCompile(`(?m)^\s{0,3}(#{1,6}|[-*+]|\d{1,3}[.)])\s+`)
)

// Result is the normalized body plus the warnings raised on the way.
type Result struct {
	Body     string
	Warnings []string
}

// Normalizer converts generator output into canonical markup.
type Normalizer struct {
	blocks goldmark.Markdown
	inline goldmark.Markdown
}

// New builds a normalizer. The dialect is headings, lists and emphasis only:
// links, code spans, escapes and the rest of CommonMark are not recognised.
// Raw inline HTML inside dialect text is passed through.
func New() *Normalizer {
	blocks := parser.NewParser(
		parser.WithBlockParsers(
			util.Prioritized(parser.NewListParser(), 300),
			util.Prioritized(parser.NewListItemParser(), 400),
			util.Prioritized(parser.NewATXHeadingParser(), 600),
			util.Prioritized(parser.NewParagraphParser(), 1000),
		),
		parser.WithInlineParsers(
			util.Prioritized(parser.NewRawHTMLParser(), 400),
			util.Prioritized(parser.NewEmphasisParser(), 500),
		),
	)
	inline := parser.NewParser(
		parser.WithBlockParsers(util.Prioritized(parser.NewParagraphParser(), 1000)),
		parser.WithInlineParsers(util.Prioritized(parser.NewEmphasisParser(), 500)),
	)
	return &Normalizer{
		blocks: goldmark.New(goldmark.WithParser(blocks), goldmark.WithRendererOptions(gmhtml.WithUnsafe())),
		inline: goldmark.New(goldmark.WithParser(inline)),
	}
}

// Normalize runs the dialect conversion, the nesting repair and the
// empty-paragraph cleanup, in that order.
func (n *Normalizer) Normalize(body string) (Result, error) {
	frag, err := markup.Parse(body)
	if err != nil {
		return Result{}, err
	}

	var warnings []string
	if err := n.convertStrayRuns(frag.Root()); err != nil {
		return Result{}, err
	}
	if err := n.convertDialectParagraphs(frag.Root()); err != nil {
		return Result{}, err
	}
	if err := n.convertInlineMarkers(frag.Root()); err != nil {
		return Result{}, err
	}
	warnings = append(warnings, repairNesting(frag.Root())...)
	dropEmptyParagraphs(frag.Root())

	out, err := frag.Render()
	if err != nil {
		return Result{}, err
	}
	return Result{Body: out, Warnings: warnings}, nil
}

// convertStrayRuns wraps top-level inline content (text outside any block)
// by running it through the dialect converter, so "## Title" lines become
// headings and consecutive "- item" lines become a single list.
func (n *Normalizer) convertStrayRuns(root *html.Node) error {
	var run []*html.Node
	flush := func() error {
		defer func() { run = nil }()
		if !hasText(run) {
			return nil
		}
		src, err := dialectSource(run)
		if err != nil {
			return err
		}
		converted, err := n.convert(n.blocks, src)
		if err != nil {
			return err
		}
		if !conserved(lineMarker.ReplaceAllString(src, ""), converted) {
			return nil
		}
		anchor := run[0]
		for _, c := range converted {
			root.InsertBefore(c, anchor)
		}
		for _, node := range run {
			markup.Detach(node)
		}
		return nil
	}

	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode || (c.Type == html.ElementNode && !markup.IsBlock(c) && !markup.IsMedia(c)) {
			run = append(run, c)
			continue
		}
		if err := flush(); err != nil {
			return err
		}
	}
	return flush()
}

// convertDialectParagraphs replaces paragraphs whose text uses block markers.
func (n *Normalizer) convertDialectParagraphs(root *html.Node) error {
	var targets []*html.Node
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if markup.IsElement(c, atom.P) && !markup.HasBlockDescendant(c) && blockMarker.MatchString(markup.PlainText(c)) {
				targets = append(targets, c)
				continue
			}
			if !markup.IsElement(c, atom.Pre, atom.Code, atom.Script, atom.Style) {
				walk(c)
			}
		}
	}
	walk(root)

	for _, p := range targets {
		src, err := dialectSource(children(p))
		if err != nil {
			return err
		}
		converted, err := n.convert(n.blocks, src)
		if err != nil {
			return err
		}
		if !conserved(lineMarker.ReplaceAllString(src, ""), converted) {
			continue
		}
		markup.ReplaceWith(p, converted...)
	}
	return nil
}

// convertInlineMarkers turns **bold** and *italic* inside text nodes into tags.
func (n *Normalizer) convertInlineMarkers(root *html.Node) error {
	var targets []*html.Node
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			switch {
			case c.Type == html.TextNode:
				if c.Parent != root && inlineMarker.MatchString(c.Data) {
					targets = append(targets, c)
				}
			case markup.IsElement(c, atom.Pre, atom.Code, atom.Script, atom.Style):
			default:
				walk(c)
			}
		}
	}
	walk(root)

	for _, t := range targets {
		core := strings.TrimFunc(t.Data, unicode.IsSpace)
		lead := t.Data[:strings.Index(t.Data, core)]
		trail := t.Data[len(lead)+len(core):]

		converted, err := n.convert(n.inline, html.EscapeString(core))
		if err != nil {
			return err
		}
		if len(converted) != 1 || !markup.IsElement(converted[0], atom.P) || !conserved(html.EscapeString(core), converted) {
			continue
		}
		var replacement []*html.Node
		if lead != "" {
			replacement = append(replacement, markup.Text(lead))
		}
		for c := converted[0].FirstChild; c != nil; {
			next := c.NextSibling
			markup.Detach(c)
			replacement = append(replacement, c)
			c = next
		}
		if trail != "" {
			replacement = append(replacement, markup.Text(trail))
		}
		markup.ReplaceWith(t, replacement...)
	}
	return nil
}

func (n *Normalizer) convert(md goldmark.Markdown, src string) ([]*html.Node, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return nil, fmt.Errorf("convert dialect: %w", err)
	}
	nodes, err := markup.ParseNodes(buf.String())
	if err != nil {
		return nil, err
	}
	out := nodes[:0]
	for _, node := range nodes {
		if markup.IsWhitespace(node) {
			continue
		}
		out = append(out, node)
	}
	return out, nil
}

// repairNesting splits inline containers around block children, innermost
// first, so blocks bubble up until they are siblings of text paragraphs.
func repairNesting(root *html.Node) []string {
	var warnings []string
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		for c := node.FirstChild; c != nil; {
			next := c.NextSibling
			if c.Type == html.ElementNode {
				walk(c)
				if markup.IsInlineContainer(c) && holdsBlock(c) {
					if id, ok := markup.Attr(c, "id"); ok {
						warnings = append(warnings, fmt.Sprintf("<%s id=%q> wraps a block element and was left unsplit", c.Data, id))
					} else {
						splitAround(c)
					}
				}
			}
			c = next
		}
	}
	walk(root)
	return warnings
}

func holdsBlock(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if markup.IsBlock(c) {
			return true
		}
	}
	return false
}

func splitAround(container *html.Node) {
	parent := container.Parent
	current := cloneEmpty(container)
	emit := func() {
		if hasText(children(current)) || hasElement(current) {
			parent.InsertBefore(current, container)
		}
		current = cloneEmpty(container)
	}
	for c := container.FirstChild; c != nil; {
		next := c.NextSibling
		markup.Detach(c)
		if markup.IsBlock(c) {
			emit()
			parent.InsertBefore(c, container)
		} else {
			current.AppendChild(c)
		}
		c = next
	}
	emit()
	parent.RemoveChild(container)
}

func dropEmptyParagraphs(root *html.Node) {
	var empties []*html.Node
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if markup.IsElement(c, atom.P) && isEmptyParagraph(c) {
				empties = append(empties, c)
				continue
			}
			walk(c)
		}
	}
	walk(root)
	for _, p := range empties {
		markup.Detach(p)
	}
}

func isEmptyParagraph(p *html.Node) bool {
	for c := p.FirstChild; c != nil; c = c.NextSibling {
		switch {
		case c.Type == html.TextNode && strings.TrimSpace(c.Data) != "":
			return false
		case c.Type == html.ElementNode && c.DataAtom != atom.Br:
			return false
		}
	}
	return true
}

func cloneEmpty(n *html.Node) *html.Node {
	c := markup.Element(n.Data)
	c.Attr = append(c.Attr, n.Attr...)
	return c
}

func children(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

func hasText(nodes []*html.Node) bool {
	for _, n := range nodes {
		switch n.Type {
		case html.TextNode:
			if strings.TrimSpace(n.Data) != "" {
				return true
			}
		case html.ElementNode:
			if strings.TrimSpace(markup.PlainText(n)) != "" {
				return true
			}
		}
	}
	return false
}

func hasElement(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return true
		}
	}
	return false
}

// dialectSource renders nodes back to markup for the converter, turning
// <br> into line breaks so each marked line starts its own block.
func dialectSource(nodes []*html.Node) (string, error) {
	var b strings.Builder
	for _, c := range nodes {
		if markup.IsElement(c, atom.Br) {
			b.WriteByte('\n')
			continue
		}
		rendered, err := markup.RenderNode(c)
		if err != nil {
			return "", err
		}
		b.WriteString(rendered)
	}
	return b.String(), nil
}

// conserved reports whether converting src into nodes kept its text, ignoring
// whitespace and emphasis markers. src is markup with line markers removed.
func conserved(src string, nodes []*html.Node) bool {
	before, err := markup.ParseNodes(src)
	if err != nil {
		return false
	}
	return textKey(before) == textKey(nodes)
}

func textKey(nodes []*html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			for _, r := range n.Data {
				if !unicode.IsSpace(r) && r != '*' && r != '_' {
					b.WriteRune(r)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range nodes {
		walk(n)
	}
	return b.String()
}

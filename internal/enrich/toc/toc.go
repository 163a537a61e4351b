// Package toc assigns anchors to top-level section headings and inserts a
// linked outline in front of the first one.
package toc

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gosimple/slug"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"ArticleEnricher/internal/domain"
	"ArticleEnricher/internal/markup"
)

// DefaultMinHeadings is the smallest number of sections that gets an outline.
const DefaultMinHeadings = 2

const (
	outlineClass   = "toc"
	fallbackAnchor = "section"
)

// Result is the rewritten body with its sections and rendered outline.
type Result struct {
	Body     string
	Sections []domain.Section
	Outline  string
}

// Option configures a Builder.
type Option func(*Builder)

// WithMinHeadings changes the outline threshold.
func WithMinHeadings(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.minHeadings = n
		}
	}
}

// Builder produces outlines.
type Builder struct {
	minHeadings int
}

// New returns a Builder with default settings overridden by opts.
func New(opts ...Option) *Builder {
	b := &Builder{minHeadings: DefaultMinHeadings}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build anchors every top-level h2 and inserts the outline. Bodies with an
// existing outline or too few headings are returned unchanged.
func (b *Builder) Build(body string) (Result, error) {
	frag, err := markup.Parse(body)
	if err != nil {
		return Result{}, err
	}
	if frag.Selection().Find("nav." + outlineClass).Length() > 0 {
		return Result{Body: body}, nil
	}

	var headings []*html.Node
	for _, n := range frag.Blocks() {
		if markup.IsElement(n, atom.H2) && strings.TrimSpace(markup.PlainText(n)) != "" {
			headings = append(headings, n)
		}
	}
	if len(headings) < b.minHeadings {
		return Result{Body: body}, nil
	}

	used := map[string]bool{}
	isHeading := map[*html.Node]bool{}
	for _, h := range headings {
		isHeading[h] = true
	}
	frag.Selection().Find("[id]").Each(func(_ int, s *goquery.Selection) {
		if n := s.Get(0); !isHeading[n] {
			id, _ := s.Attr("id")
			used[id] = true
		}
	})

	sections := make([]domain.Section, 0, len(headings))
	for i, h := range headings {
		title := strings.Join(strings.Fields(markup.PlainText(h)), " ")
		anchor := uniqueAnchor(baseAnchor(h, title, used), used)
		used[anchor] = true
		markup.SetAttr(h, "id", anchor)
		sections = append(sections, domain.Section{Title: title, Anchor: anchor, Position: i})
	}

	nav := outline(sections)
	headings[0].Parent.InsertBefore(nav, headings[0])

	rendered, err := markup.RenderNode(nav)
	if err != nil {
		return Result{}, err
	}
	out, err := frag.Render()
	if err != nil {
		return Result{}, err
	}
	return Result{Body: out, Sections: sections, Outline: rendered}, nil
}

// baseAnchor keeps an id the heading already has unless another element owns it.
func baseAnchor(h *html.Node, title string, used map[string]bool) string {
	if id, ok := markup.Attr(h, "id"); ok {
		if id = strings.TrimSpace(id); id != "" && !used[id] {
			return id
		}
	}
	if s := slug.Make(title); s != "" {
		return s
	}
	return fallbackAnchor
}

func uniqueAnchor(base string, used map[string]bool) string {
	anchor := base
	for n := 2; used[anchor]; n++ {
		anchor = base + "-" + strconv.Itoa(n)
	}
	return anchor
}

func outline(sections []domain.Section) *html.Node {
	nav := markup.Element("nav", "class", outlineClass)
	ol := markup.Element("ol")
	for _, s := range sections {
		a := markup.Element("a", "href", "#"+s.Anchor)
		a.AppendChild(markup.Text(s.Title))
		li := markup.Element("li")
		li.AppendChild(a)
		ol.AppendChild(li)
	}
	nav.AppendChild(ol)
	return nav
}

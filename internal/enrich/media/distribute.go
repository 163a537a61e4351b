// Package media paces embedded media evenly through a document body.
package media

import (
	"golang.org/x/net/html"

	"ArticleEnricher/internal/domain"
	"ArticleEnricher/internal/markup"
)

// DefaultMinSpacing is the smallest number of words kept between two media fragments.
const DefaultMinSpacing = 100

// Distributor relocates top-level media fragments.
type Distributor struct {
	minSpacing int
}

// Option configures the distributor.
type Option func(*Distributor)

// WithMinSpacing sets the spacing floor in words.
func WithMinSpacing(words int) Option {
	return func(d *Distributor) {
		if words > 0 {
			d.minSpacing = words
		}
	}
}

// New creates a distributor.
func New(opts ...Option) *Distributor {
	d := &Distributor{minSpacing: DefaultMinSpacing}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Result describes a distribution pass.
type Result struct {
	Body  string
	Media []domain.MediaElement
	// Spacing is the word interval used between placements.
	Spacing int
	// Appended counts fragments that found no free gap and went to the end.
	Appended int
}

// Distribute strips media fragments from body and re-inserts them, in their
// original order, each time the running word count crosses the next
// multiple of the spacing. A fragment is only placed after a text block
// (never after a heading or another fragment). Fragments left over once the
// text runs out take the last free text blocks; only when none remain are
// they appended to the end.
func (d *Distributor) Distribute(body string) (Result, error) {
	frag, err := markup.Parse(body)
	if err != nil {
		return Result{}, err
	}

	var fragments []*html.Node
	for _, block := range frag.Blocks() {
		if markup.IsMedia(block) {
			fragments = append(fragments, block)
			markup.Detach(block)
		}
	}
	if len(fragments) == 0 {
		return Result{Body: body}, nil
	}

	elements := make([]domain.MediaElement, 0, len(fragments))
	for _, f := range fragments {
		rendered, err := markup.RenderNode(f)
		if err != nil {
			return Result{}, err
		}
		elements = append(elements, domain.MediaElement{HTML: rendered})
	}

	blocks := frag.Blocks()
	counts := make([]int, len(blocks))
	total := 0
	for i, b := range blocks {
		counts[i] = wordsIn(b)
		total += counts[i]
	}

	spacing := total / (len(fragments) + 1)
	if spacing < d.minSpacing {
		spacing = d.minSpacing
	}

	placed, running, threshold, lastGap := 0, 0, spacing, -1
	for i, b := range blocks {
		if placed == len(fragments) {
			break
		}
		running += counts[i]
		if running >= threshold && counts[i] > 0 && !markup.IsHeading(b) {
			markup.InsertAfter(b, fragments[placed])
			placed++
			threshold += spacing
			lastGap = i
		}
	}

	var free []int
	for i := lastGap + 1; i < len(blocks); i++ {
		if counts[i] > 0 && !markup.IsHeading(blocks[i]) {
			free = append(free, i)
		}
	}
	if left := len(fragments) - placed; len(free) > left {
		free = free[len(free)-left:]
	}
	for _, i := range free {
		markup.InsertAfter(blocks[i], fragments[placed])
		placed++
	}

	appended := len(fragments) - placed
	for ; placed < len(fragments); placed++ {
		frag.Root().AppendChild(fragments[placed])
	}

	out, err := frag.Render()
	if err != nil {
		return Result{}, err
	}
	return Result{Body: out, Media: elements, Spacing: spacing, Appended: appended}, nil
}

func wordsIn(n *html.Node) int {
	if n.Type == html.TextNode {
		return markup.WordCount(n.Data)
	}
	if n.Type != html.ElementNode {
		return 0
	}
	return markup.WordCount(markup.PlainText(n))
}

// Package rebalance splits overlong paragraphs at sentence boundaries.
//
// Boundary detection is heuristic: terminal punctuation followed by
// whitespace, with dashes, colons and semicolons as a fallback. Abbreviations
// ("e.g. this") and punctuation inside quotes can produce early cuts.
package rebalance

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/net/html/atom"

	"ArticleEnricher/internal/markup"
)

const (
	// DefaultMaxWords is the paragraph length above which a block is split.
	DefaultMaxWords = 80
	// DefaultMinTrailingWords is the floor below which the last piece merges back.
	DefaultMinTrailingWords = 15

	targetRatio = 0.65
)

var (
	primaryBoundary   = regexp.MustCompile(`[.!?…]+["'”’»)\]]*\s+`)
	secondaryBoundary = regexp.MustCompile(`(\s[-–—]+|[–—:;])\s+`)
)

// Rebalancer splits paragraphs whose word count exceeds the maximum.
type Rebalancer struct {
	maxWords    int
	minTrailing int
}

// Option configures the rebalancer.
type Option func(*Rebalancer)

// WithMaxWords sets the paragraph word limit.
func WithMaxWords(n int) Option {
	return func(r *Rebalancer) {
		if n > 0 {
			r.maxWords = n
		}
	}
}

// WithMinTrailingWords sets the orphan floor for the last piece.
func WithMinTrailingWords(n int) Option {
	return func(r *Rebalancer) {
		if n > 0 {
			r.minTrailing = n
		}
	}
}

// New creates a rebalancer with the given options.
func New(opts ...Option) *Rebalancer {
	r := &Rebalancer{
		maxWords:    DefaultMaxWords,
		minTrailing: DefaultMinTrailingWords,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Result carries the rebalanced body.
type Result struct {
	Body string
	// Splits counts paragraphs that were cut.
	Splits int
}

// Rebalance splits every overlong inline-only paragraph of body.
func (r *Rebalancer) Rebalance(body string) (Result, error) {
	frag, err := markup.Parse(body)
	if err != nil {
		return Result{}, err
	}

	splits := 0
	for _, p := range frag.Selection().Find("p").Nodes {
		if markup.HasBlockDescendant(p) || markup.IsMedia(p) || markup.HasAncestor(p, atom.Nav, atom.A) {
			continue
		}
		text := markup.PlainText(p)
		if markup.WordCount(text) <= r.maxWords {
			continue
		}
		cuts := r.SplitPoints(text)
		if len(cuts) == 0 {
			continue
		}
		if _, err := markup.SplitAt(p, cuts); err != nil {
			return Result{}, err
		}
		splits++
	}

	out, err := frag.Render()
	if err != nil {
		return Result{}, err
	}
	return Result{Body: out, Splits: splits}, nil
}

// SplitPoints returns the plain-text offsets at which text should be cut.
// Each offset points at the first character of the next piece. Pieces still
// over the limit after primary cuts are cut again at secondary boundaries.
func (r *Rebalancer) SplitPoints(text string) []int {
	target := int(math.Round(targetRatio * float64(r.maxWords)))
	if target < 1 {
		target = 1
	}

	primary := boundaries(text, primaryBoundary)
	combined := append(append([]int(nil), primary...), boundaries(text, secondaryBoundary)...)
	sort.Ints(combined)
	combined = dedupe(combined)

	var cuts []int
	start := 0
	for _, end := range append(greedy(text, primary, 0, len(text), target, r.maxWords, r.minTrailing), len(text)) {
		if markup.WordCount(text[start:end]) > r.maxWords {
			cuts = append(cuts, greedy(text, combined, start, end, target, r.maxWords, r.minTrailing)...)
		}
		if end < len(text) {
			cuts = append(cuts, end)
		}
		start = end
	}
	sort.Ints(cuts)
	cuts = dedupe(cuts)

	if n := len(cuts); n > 0 && markup.WordCount(text[cuts[n-1]:]) < r.minTrailing {
		prev := 0
		if n > 1 {
			prev = cuts[n-2]
		}
		if markup.WordCount(text[prev:]) <= r.maxWords {
			cuts = cuts[:n-1]
		}
	}
	return cuts
}

func boundaries(text string, expr *regexp.Regexp) []int {
	limit := len(strings.TrimRightFunc(text, unicode.IsSpace))
	var out []int
	for _, m := range expr.FindAllStringIndex(text, -1) {
		if m[1] < limit {
			out = append(out, m[1])
		}
	}
	return out
}

// greedy picks cuts among offsets inside (start, end). A cut is taken once a
// piece reaches target words, or earlier (but not below floor) when the next
// boundary would push the piece over limit.
func greedy(text string, offsets []int, start, end, target, limit, floor int) []int {
	var inside []int
	for _, off := range offsets {
		if off > start && off < end {
			inside = append(inside, off)
		}
	}

	var cuts []int
	last := start
	for i, off := range inside {
		next := end
		if i+1 < len(inside) {
			next = inside[i+1]
		}
		words := markup.WordCount(text[last:off])
		if words >= target || (words >= floor && markup.WordCount(text[last:next]) > limit) {
			cuts = append(cuts, off)
			last = off
		}
	}
	return cuts
}

func dedupe(sorted []int) []int {
	out := sorted[:0]
	for i, v := range sorted {
		if i > 0 && v == sorted[i-1] {
			continue
		}
		out = append(out, v)
	}
	return out
}

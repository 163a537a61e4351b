package linking

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"ArticleEnricher/internal/domain"
	"ArticleEnricher/internal/markup"
)

const (
	DefaultMaxLinks          = 15
	DefaultMaxPerDestination = 2
)

// Text inside these elements is never linked.
var excludedAncestors = []atom.Atom{
	atom.A, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
	atom.Code, atom.Pre, atom.Script, atom.Style, atom.Button, atom.Figcaption, atom.Nav,
}

// Limits caps link injection per document.
type Limits struct {
	MaxLinks          int
	MaxPerDestination int
}

// State is the mutable per-document link bookkeeping. A fresh State must be
// used for every document.
type State struct {
	Total          int
	PerDestination map[string]int
}

// NewState returns empty bookkeeping.
func NewState() *State {
	return &State{PerDestination: map[string]int{}}
}

// Link is one injected hyperlink.
type Link struct {
	Phrase string
	URL    string
}

// InjectResult is the rewritten body and the links placed in it.
type InjectResult struct {
	Body  string
	Links []Link
}

// Injector rewrites phrase occurrences into links.
type Injector struct {
	limits Limits
}

// NewInjector applies defaults to zero limits.
func NewInjector(limits Limits) *Injector {
	if limits.MaxLinks <= 0 {
		limits.MaxLinks = DefaultMaxLinks
	}
	if limits.MaxPerDestination <= 0 {
		limits.MaxPerDestination = DefaultMaxPerDestination
	}
	return &Injector{limits: limits}
}

// Inject walks targets in order and links the first eligible, whole-word,
// case-insensitive occurrence of each. Targets pointing at selfURL are
// skipped. Each target yields at most one link.
func (in *Injector) Inject(body string, targets []domain.LinkTarget, selfURL string, state *State) (InjectResult, error) {
	if state == nil {
		state = NewState()
	}
	if state.PerDestination == nil {
		state.PerDestination = map[string]int{}
	}

	frag, err := markup.Parse(body)
	if err != nil {
		return InjectResult{}, err
	}

	var links []Link
	for _, t := range targets {
		if state.Total >= in.limits.MaxLinks {
			break
		}
		if t.URL == selfURL || state.PerDestination[t.URL] >= in.limits.MaxPerDestination {
			continue
		}
		node, start, end, ok := findPhrase(frag.Root(), phrasePattern(t.Phrase))
		if !ok {
			continue
		}
		wrapLink(node, start, end, t.URL)
		state.Total++
		state.PerDestination[t.URL]++
		links = append(links, Link{Phrase: t.Phrase, URL: t.URL})
	}

	if len(links) == 0 {
		return InjectResult{Body: body}, nil
	}
	out, err := frag.Render()
	if err != nil {
		return InjectResult{}, err
	}
	return InjectResult{Body: out, Links: links}, nil
}

func phrasePattern(phrase string) *regexp.Regexp {
	words := strings.Fields(phrase)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)` + strings.Join(words, `\s+`))
}

// findPhrase returns the first eligible text node holding a whole-word match.
func findPhrase(root *html.Node, expr *regexp.Regexp) (*html.Node, int, int, bool) {
	var (
		found      *html.Node
		start, end int
	)
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch {
			case c.Type == html.TextNode:
				for _, m := range expr.FindAllStringIndex(c.Data, -1) {
					if wholeWord(c.Data, m[0], m[1]) {
						found, start, end = c, m[0], m[1]
						return true
					}
				}
			case markup.IsElement(c, excludedAncestors...):
			case c.Type == html.ElementNode:
				if walk(c) {
					return true
				}
			}
		}
		return false
	}
	if !walk(root) {
		return nil, 0, 0, false
	}
	return found, start, end, true
}

func wholeWord(s string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(s[:start])
		if isWordRune(r) {
			return false
		}
	}
	if end < len(s) {
		r, _ := utf8.DecodeRuneInString(s[end:])
		if isWordRune(r) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func wrapLink(text *html.Node, start, end int, url string) {
	before, match, after := text.Data[:start], text.Data[start:end], text.Data[end:]

	a := markup.Element("a", "href", url)
	a.AppendChild(markup.Text(match))

	var nodes []*html.Node
	if before != "" {
		nodes = append(nodes, markup.Text(before))
	}
	nodes = append(nodes, a)
	if after != "" {
		nodes = append(nodes, markup.Text(after))
	}
	markup.ReplaceWith(text, nodes...)
}

package domain

import (
	"strings"
	"time"
)

// CorpusEntry is the metadata of a previously published document.
type CorpusEntry struct {
	Slug        string    `json:"slug" yaml:"slug"`
	Title       string    `json:"title" yaml:"title"`
	Category    string    `json:"category" yaml:"category"`
	Keywords    []string  `json:"keywords" yaml:"keywords"`
	URL         string    `json:"url" yaml:"url"`
	PublishedAt time.Time `json:"published_at" yaml:"published_at"`
}

// Corpus is the batch-scoped, read-only snapshot used for linking and scoring.
type Corpus struct {
	entries []CorpusEntry
	bySlug  map[string]int
}

// NewCorpus copies entries so later mutation of the input cannot leak into the snapshot.
func NewCorpus(entries []CorpusEntry) Corpus {
	copied := make([]CorpusEntry, len(entries))
	index := make(map[string]int, len(entries))
	for i, e := range entries {
		e.Keywords = append([]string(nil), e.Keywords...)
		copied[i] = e
		if _, ok := index[e.Slug]; !ok {
			index[e.Slug] = i
		}
	}
	return Corpus{entries: copied, bySlug: index}
}

// Entries returns a copy of the snapshot in its original order.
func (c Corpus) Entries() []CorpusEntry {
	out := make([]CorpusEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Len returns the number of entries.
func (c Corpus) Len() int {
	return len(c.entries)
}

// Lookup finds an entry by slug.
func (c Corpus) Lookup(slug string) (CorpusEntry, bool) {
	i, ok := c.bySlug[slug]
	if !ok {
		return CorpusEntry{}, false
	}
	return c.entries[i], true
}

// Resource is an entry of the external resource catalog (products, downloads).
type Resource struct {
	Name        string  `json:"name" yaml:"name"`
	URL         string  `json:"url" yaml:"url"`
	Category    string  `json:"category" yaml:"category"`
	Rating      float64 `json:"rating" yaml:"rating"`
	ReviewCount int     `json:"review_count" yaml:"review_count"`
}

// HasReviews reports whether the resource carries a rating or review signal.
func (r Resource) HasReviews() bool {
	return r.ReviewCount > 0 || r.Rating > 0
}

// TargetSource tells where a link target came from.
type TargetSource string

const (
	TargetTitle    TargetSource = "title"
	TargetKeyword  TargetSource = "keyword"
	TargetCategory TargetSource = "category"
	TargetStatic   TargetSource = "static"
	TargetResource TargetSource = "resource"
)

// LinkTarget maps a phrase to a destination with an explicit priority.
type LinkTarget struct {
	Phrase   string
	URL      string
	Priority int
	Source   TargetSource
}

// Less orders targets longest phrase first, then by priority, then alphabetically.
func (t LinkTarget) Less(other LinkTarget) bool {
	li, lo := len([]rune(t.Phrase)), len([]rune(other.Phrase))
	if li != lo {
		return li > lo
	}
	if t.Priority != other.Priority {
		return t.Priority > other.Priority
	}
	return strings.ToLower(t.Phrase) < strings.ToLower(other.Phrase)
}

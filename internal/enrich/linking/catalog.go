// Package linking derives linkable phrases from the corpus and rewrites
// their first occurrences in a document into internal links.
package linking

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/gosimple/slug"

	"ArticleEnricher/internal/domain"
)

// Target priorities; higher wins between phrases of the same length.
const (
	PriorityTitle          = 90
	PriorityStatic         = 80
	PriorityResource       = 75
	PriorityShortTitle     = 70
	PriorityResourcePrefix = 65
	PriorityCategory       = 60
	PrioritySynonym        = 55
	PriorityKeyword        = 50
)

const (
	DefaultMaxPhrasesPerDestination = 6
	DefaultCategoryURLPattern       = "/category/{slug}/"
	DefaultDocumentURLPattern       = "/{slug}/"

	minPhraseRunes = 4
)

var (
	titleSeparators    = []string{":", " - ", " – ", " — ", " | "}
	resourceSeparators = []string{" - ", " – ", ":", " ("}
	leadingArticles    = []string{"the ", "a ", "an "}
)

// StaticDestination is a fixed phrase pointing at a hand-picked page.
type StaticDestination struct {
	Phrase string `yaml:"phrase"`
	URL    string `yaml:"url"`
}

// CatalogConfig controls catalog construction.
type CatalogConfig struct {
	// CategoryURLPattern builds listing URLs; "{slug}" is replaced by the slugified category.
	CategoryURLPattern       string
	CategorySynonyms         map[string][]string
	StaticDestinations       []StaticDestination
	MaxPhrasesPerDestination int
}

// CatalogInput is everything the catalog is derived from.
type CatalogInput struct {
	Corpus    domain.Corpus
	Resources []domain.Resource
	// Categories adds listing pages for categories not yet present in the corpus.
	Categories []string
}

// Catalog is the ordered, read-only set of link targets for one batch.
type Catalog struct {
	targets []domain.LinkTarget
}

// Targets returns a copy of the ordered targets.
func (c Catalog) Targets() []domain.LinkTarget {
	out := make([]domain.LinkTarget, len(c.targets))
	copy(out, c.targets)
	return out
}

// Len returns the number of targets.
func (c Catalog) Len() int {
	return len(c.targets)
}

// CategoryURL returns the listing page of a category.
func CategoryURL(pattern, category string) string {
	if pattern == "" {
		pattern = DefaultCategoryURLPattern
	}
	return strings.ReplaceAll(pattern, "{slug}", slug.Make(category))
}

// DocumentURL returns the public address of a document slug.
func DocumentURL(pattern, docSlug string) string {
	if pattern == "" {
		pattern = DefaultDocumentURLPattern
	}
	return strings.ReplaceAll(pattern, "{slug}", docSlug)
}

// BuildCatalog derives, deduplicates, caps and orders link targets.
func BuildCatalog(in CatalogInput, cfg CatalogConfig) Catalog {
	if cfg.MaxPhrasesPerDestination <= 0 {
		cfg.MaxPhrasesPerDestination = DefaultMaxPhrasesPerDestination
	}

	b := &builder{best: map[string]domain.LinkTarget{}}

	categories := map[string]string{}
	addCategory := func(name string) {
		name = strings.TrimSpace(name)
		if name == "" {
			return
		}
		key := strings.ToLower(name)
		if _, ok := categories[key]; !ok {
			categories[key] = name
		}
	}

	for _, e := range in.Corpus.Entries() {
		if e.URL == "" {
			continue
		}
		b.add(e.Title, e.URL, PriorityTitle, domain.TargetTitle)
		for _, short := range titleVariants(e.Title) {
			b.add(short, e.URL, PriorityShortTitle, domain.TargetTitle)
		}
		for _, kw := range e.Keywords {
			if len(strings.Fields(kw)) >= 2 {
				b.add(kw, e.URL, PriorityKeyword, domain.TargetKeyword)
			}
		}
		addCategory(e.Category)
	}
	for _, c := range in.Categories {
		addCategory(c)
	}
	for name := range cfg.CategorySynonyms {
		addCategory(name)
	}

	keys := make([]string, 0, len(categories))
	for key := range categories {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		name := categories[key]
		url := CategoryURL(cfg.CategoryURLPattern, name)
		b.add(name, url, PriorityCategory, domain.TargetCategory)
		for configured, synonyms := range cfg.CategorySynonyms {
			if strings.ToLower(configured) != key {
				continue
			}
			for _, s := range synonyms {
				b.add(s, url, PrioritySynonym, domain.TargetCategory)
			}
		}
	}

	for _, s := range cfg.StaticDestinations {
		b.add(s.Phrase, s.URL, PriorityStatic, domain.TargetStatic)
	}

	for _, r := range in.Resources {
		if r.URL == "" {
			continue
		}
		b.add(r.Name, r.URL, PriorityResource, domain.TargetResource)
		if prefix, ok := cutAtAny(r.Name, resourceSeparators); ok {
			b.add(prefix, r.URL, PriorityResourcePrefix, domain.TargetResource)
		}
	}

	return Catalog{targets: b.finish(cfg.MaxPhrasesPerDestination)}
}

type builder struct {
	best map[string]domain.LinkTarget
}

func (b *builder) add(phrase, url string, priority int, source domain.TargetSource) {
	phrase = strings.Join(strings.Fields(phrase), " ")
	if utf8.RuneCountInString(phrase) < minPhraseRunes || url == "" {
		return
	}
	key := strings.ToLower(phrase)
	if cur, ok := b.best[key]; ok && cur.Priority >= priority {
		return
	}
	b.best[key] = domain.LinkTarget{Phrase: phrase, URL: url, Priority: priority, Source: source}
}

func (b *builder) finish(perDestination int) []domain.LinkTarget {
	byURL := map[string][]domain.LinkTarget{}
	for _, t := range b.best {
		byURL[t.URL] = append(byURL[t.URL], t)
	}

	var out []domain.LinkTarget
	for _, group := range byURL {
		sort.Slice(group, func(i, j int) bool {
			if group[i].Priority != group[j].Priority {
				return group[i].Priority > group[j].Priority
			}
			return group[i].Less(group[j])
		})
		if len(group) > perDestination {
			group = group[:perDestination]
		}
		out = append(out, group...)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// titleVariants returns shortened forms of a title that are still specific
// enough to link: the part before a subtitle separator and the title
// without a leading article.
func titleVariants(title string) []string {
	var out []string
	if prefix, ok := cutAtAny(title, titleSeparators); ok {
		out = append(out, prefix)
	}
	lower := strings.ToLower(title)
	for _, article := range leadingArticles {
		if strings.HasPrefix(lower, article) {
			rest := strings.TrimSpace(title[len(article):])
			if len(strings.Fields(rest)) >= 2 {
				out = append(out, rest)
			}
			break
		}
	}
	return out
}

// cutAtAny returns the text before the earliest separator when it has at least two words.
func cutAtAny(s string, separators []string) (string, bool) {
	idx := -1
	for _, sep := range separators {
		if i := strings.Index(s, sep); i > 0 && (idx == -1 || i < idx) {
			idx = i
		}
	}
	if idx == -1 {
		return "", false
	}
	prefix := strings.TrimSpace(s[:idx])
	if len(strings.Fields(prefix)) < 2 {
		return "", false
	}
	return prefix, true
}

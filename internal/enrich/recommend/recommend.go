// Package recommend ranks related corpus documents and picks the best
// matching external resource for a document.
package recommend

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"ArticleEnricher/internal/domain"
)

// DefaultCount is the number of related documents returned.
const DefaultCount = 3

const (
	weightCategoryExact = 10
	weightCategoryToken = 5
	weightTitleToken    = 3
	weightKeyword       = 2
)

var stopwords = map[string]bool{
	"and": true, "the": true, "for": true, "with": true, "your": true, "you": true,
	"how": true, "what": true, "why": true, "are": true, "from": true, "into": true,
	"that": true, "this": true, "their": true, "about": true, "best": true, "guide": true,
}

// Recommender scores corpus documents against the current one.
type Recommender struct {
	count int
}

// New creates a recommender returning count entries (DefaultCount when <= 0).
func New(count int) *Recommender {
	if count <= 0 {
		count = DefaultCount
	}
	return &Recommender{count: count}
}

// Score is the deterministic relevance of entry to doc.
func Score(doc domain.Document, entry domain.CorpusEntry) int {
	score := 0
	if sameCategory(doc.Category, entry.Category) {
		score += weightCategoryExact
	}
	score += weightCategoryToken * overlap(Tokens(doc.Category), Tokens(entry.Category))
	score += weightTitleToken * overlap(Tokens(doc.Title), Tokens(entry.Title))
	score += weightKeyword * overlap(keywordSet(doc.Keywords), keywordSet(entry.Keywords))
	return score
}

type scored struct {
	entry domain.CorpusEntry
	score int
}

// Related returns up to count recommendations, best score first. When fewer
// than count entries score above zero, the most recent remaining entries
// fill the list. The document itself is never included.
func (r *Recommender) Related(doc domain.Document, corpus domain.Corpus) []domain.Recommendation {
	var candidates []scored
	for _, e := range corpus.Entries() {
		if e.Slug == doc.Slug {
			continue
		}
		candidates = append(candidates, scored{entry: e, score: Score(doc, e)})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return newer(candidates[i].entry, candidates[j].entry)
	})

	out := make([]domain.Recommendation, 0, r.count)
	var rest []scored
	for _, c := range candidates {
		if c.score > 0 && len(out) < r.count {
			out = append(out, toRecommendation(c))
			continue
		}
		rest = append(rest, c)
	}

	if len(out) < r.count {
		sort.SliceStable(rest, func(i, j int) bool { return newer(rest[i].entry, rest[j].entry) })
		for _, c := range rest {
			if len(out) == r.count {
				break
			}
			out = append(out, toRecommendation(c))
		}
	}
	return out
}

// BestResource picks the catalog entry matching doc best. Ties prefer
// entries with a rating or reviews. Without any positive score it falls
// back to the first reviewed entry, then to the first entry.
func (r *Recommender) BestResource(doc domain.Document, resources []domain.Resource) *domain.ResourcePick {
	if len(resources) == 0 {
		return nil
	}

	titleTokens := Tokens(doc.Title)
	categoryTokens := Tokens(doc.Category)
	keywordTokens := Tokens(strings.Join(doc.Keywords, " "))

	best, bestScore := -1, 0
	for i, res := range resources {
		nameTokens := Tokens(res.Name)
		score := 0
		if sameCategory(doc.Category, res.Category) {
			score += weightCategoryExact
		}
		score += weightCategoryToken * overlap(categoryTokens, Tokens(res.Category))
		score += weightTitleToken * overlap(titleTokens, nameTokens)
		score += weightKeyword * overlap(keywordTokens, nameTokens)
		if score <= 0 {
			continue
		}
		if best == -1 || score > bestScore || (score == bestScore && betterSignal(res, resources[best])) {
			best, bestScore = i, score
		}
	}

	if best == -1 {
		for i, res := range resources {
			if res.HasReviews() {
				return &domain.ResourcePick{Resource: resources[i]}
			}
		}
		return &domain.ResourcePick{Resource: resources[0]}
	}
	return &domain.ResourcePick{Resource: resources[best], Score: bestScore}
}

// Tokens lowercases s and returns its alphanumeric words of three or more
// characters, minus stopwords.
func Tokens(s string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, f := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if utf8.RuneCountInString(f) < 3 || stopwords[f] {
			continue
		}
		out[f] = struct{}{}
	}
	return out
}

func keywordSet(keywords []string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, k := range keywords {
		k = strings.ToLower(strings.Join(strings.Fields(k), " "))
		if k != "" {
			out[k] = struct{}{}
		}
	}
	return out
}

func overlap(a, b map[string]struct{}) int {
	n := 0
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}

func sameCategory(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	return a != "" && strings.EqualFold(a, b)
}

func newer(a, b domain.CorpusEntry) bool {
	if !a.PublishedAt.Equal(b.PublishedAt) {
		return a.PublishedAt.After(b.PublishedAt)
	}
	return a.Slug < b.Slug
}

func betterSignal(a, b domain.Resource) bool {
	if a.HasReviews() != b.HasReviews() {
		return a.HasReviews()
	}
	return a.ReviewCount > b.ReviewCount
}

func toRecommendation(c scored) domain.Recommendation {
	return domain.Recommendation{
		Slug:  c.entry.Slug,
		Title: c.entry.Title,
		URL:   c.entry.URL,
		Score: c.score,
	}
}

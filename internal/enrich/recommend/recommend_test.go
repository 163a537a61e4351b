package recommend

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ArticleEnricher/internal/domain"
)

var base = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

func currentDoc() domain.Document {
	return domain.Document{
		Slug:     "a",
		Title:    "Deep Work Habits",
		Category: "Productivity",
		Keywords: []string{"Focus"},
	}
}

func slugs(recs []domain.Recommendation) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Slug)
	}
	return out
}

func TestTokens(t *testing.T) {
	t.Parallel()

	got := Tokens("The 10x Guide: Deep-Work for AI & you")
	assert.Equal(t, map[string]struct{}{"10x": {}, "deep": {}, "work": {}}, got)
}

func TestScore(t *testing.T) {
	t.Parallel()

	entry := domain.CorpusEntry{Slug: "b", Title: "Focus Rituals", Category: "productivity", Keywords: []string{"focus "}}
	assert.Equal(t, 10+5+2, Score(currentDoc(), entry))

	assert.Zero(t, Score(currentDoc(), domain.CorpusEntry{Slug: "x", Title: "Packing Light", Category: "Travel"}))
}

func TestRelatedRanksThenFillsWithRecent(t *testing.T) {
	t.Parallel()

	corpus := domain.NewCorpus([]domain.CorpusEntry{
		{Slug: "a", Title: "Deep Work Habits", Category: "Productivity", PublishedAt: base.Add(96 * time.Hour)},
		{Slug: "b", Title: "Focus Rituals", Category: "Productivity", Keywords: []string{"focus"}, PublishedAt: base},
		{Slug: "c", Title: "Building Habits", Category: "Habits", PublishedAt: base},
		{Slug: "d", Title: "Packing Light", Category: "Travel", PublishedAt: base.Add(48 * time.Hour)},
		{Slug: "e", Title: "Road Trips", Category: "Travel", PublishedAt: base.Add(24 * time.Hour)},
	})

	recs := New(3).Related(currentDoc(), corpus)
	require.Len(t, recs, 3)
	assert.Equal(t, []string{"b", "c", "d"}, slugs(recs))
	assert.Equal(t, 17, recs[0].Score)
	assert.Equal(t, 3, recs[1].Score)
	assert.Zero(t, recs[2].Score)
}

func TestRelatedTiesPreferNewerThenSlug(t *testing.T) {
	t.Parallel()

	corpus := domain.NewCorpus([]domain.CorpusEntry{
		{Slug: "old", Title: "Morning Focus", Category: "Productivity", PublishedAt: base},
		{Slug: "new", Title: "Evening Focus", Category: "Productivity", PublishedAt: base.Add(time.Hour)},
		{Slug: "bbb", Title: "Travel Notes", PublishedAt: base},
		{Slug: "aaa", Title: "Travel Notes", PublishedAt: base},
	})

	recs := New(0).Related(currentDoc(), corpus)
	assert.Equal(t, []string{"new", "old", "aaa"}, slugs(recs))
}

func TestRelatedSmallCorpus(t *testing.T) {
	t.Parallel()

	corpus := domain.NewCorpus([]domain.CorpusEntry{{Slug: "a", Title: "Deep Work Habits"}})
	assert.Empty(t, New(3).Related(currentDoc(), corpus))
}

func TestBestResourcePicksHighestScore(t *testing.T) {
	t.Parallel()

	resources := []domain.Resource{
		{Name: "Generic Notebook", Category: "Stationery", Rating: 4.9, ReviewCount: 900},
		{Name: "Deep Work Planner", Category: "Productivity", Rating: 4.5, ReviewCount: 10},
		{Name: "Focus Planner", Category: "Productivity"},
	}

	pick := New(0).BestResource(currentDoc(), resources)
	require.NotNil(t, pick)
	assert.Equal(t, "Deep Work Planner", pick.Resource.Name)
	assert.Equal(t, 21, pick.Score)
}

func TestBestResourceTiePrefersReviews(t *testing.T) {
	t.Parallel()

	resources := []domain.Resource{
		{Name: "Habit Journal", Category: "Productivity"},
		{Name: "Habit Tracker", Category: "Productivity", ReviewCount: 3},
		{Name: "Habit Cards", Category: "Productivity", ReviewCount: 40},
	}

	pick := New(0).BestResource(currentDoc(), resources)
	require.NotNil(t, pick)
	assert.Equal(t, "Habit Cards", pick.Resource.Name)
}

func TestBestResourceFallbacks(t *testing.T) {
	t.Parallel()

	doc := domain.Document{Slug: "x", Title: "Sourdough Starter", Category: "Baking"}

	reviewed := []domain.Resource{
		{Name: "Wall Calendar", Category: "Stationery"},
		{Name: "Desk Lamp", Category: "Office", Rating: 4.2},
	}
	pick := New(0).BestResource(doc, reviewed)
	require.NotNil(t, pick)
	assert.Equal(t, "Desk Lamp", pick.Resource.Name)
	assert.Zero(t, pick.Score)

	plain := []domain.Resource{{Name: "Wall Calendar"}, {Name: "Desk Lamp"}}
	pick = New(0).BestResource(doc, plain)
	require.NotNil(t, pick)
	assert.Equal(t, "Wall Calendar", pick.Resource.Name)

	assert.Nil(t, New(0).BestResource(doc, nil))
}

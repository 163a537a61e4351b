package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ArticleEnricher/internal/domain"
	"ArticleEnricher/internal/enrich/linking"
	"ArticleEnricher/internal/markup"
	"ArticleEnricher/internal/ports"
)

type staticDocuments []domain.Document

func (s staticDocuments) LoadDocuments(context.Context) ([]domain.Document, error) {
	return append([]domain.Document(nil), s...), nil
}

type staticCorpus struct {
	entries []domain.CorpusEntry
	err     error
}

func (s staticCorpus) LoadCorpus(context.Context) (domain.Corpus, error) {
	if s.err != nil {
		return domain.Corpus{}, s.err
	}
	return domain.NewCorpus(s.entries), nil
}

type staticResources []domain.Resource

func (s staticResources) LoadResources(context.Context) ([]domain.Resource, error) {
	return s, nil
}

type memStore struct {
	mu      sync.Mutex
	docs    map[string]domain.EnrichedDocument
	failFor string
}

func newMemStore() *memStore {
	return &memStore{docs: map[string]domain.EnrichedDocument{}}
}

func (m *memStore) AlreadyEnriched(_ context.Context, slugs []string) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]bool{}
	for _, s := range slugs {
		if doc, ok := m.docs[s]; ok && doc.Document.IsEnriched() {
			out[s] = true
		}
	}
	return out, nil
}

func (m *memStore) SaveEnriched(_ context.Context, doc domain.EnrichedDocument) error {
	if doc.Document.Slug == m.failFor {
		return errors.New("disk full")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.Document.Slug] = doc
	return nil
}

type countingMetrics struct {
	mu       sync.Mutex
	outcomes map[string]int
	stages   map[domain.Stage]int
	batches  int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{outcomes: map[string]int{}, stages: map[domain.Stage]int{}}
}

func (c *countingMetrics) ObserveDocument(outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outcomes[outcome]++
}

func (c *countingMetrics) ObserveStage(stage domain.Stage, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stages[stage]++
}

func (c *countingMetrics) ObserveBatch(domain.BatchReport, time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches++
}

func figure(i int) string {
	return `<figure><img src="img-` + string(rune('0'+i)) + `.png"/></figure>`
}

// exampleDocument is a 500-word block, three figures and two sections.
func exampleDocument() domain.Document {
	sentence := "Focus on one small productivity habit every single day now. "
	long := "<p>" + strings.TrimSpace(strings.Repeat(sentence, 50)) + "</p>"
	short := "<p>" + strings.TrimSpace(strings.Repeat("Start with a tiny step and keep going daily. ", 3)) + "</p>"

	return domain.Document{
		Slug:     "tiny-habits",
		Title:    "Tiny Habits That Stick",
		Category: "Productivity",
		Keywords: []string{"habits"},
		Body: "<h2>Why it matters</h2>" + long +
			figure(1) + figure(2) + figure(3) +
			"<h2>How to start</h2>" + short,
		PublishedAt: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}
}

func exampleCorpus() staticCorpus {
	return staticCorpus{entries: []domain.CorpusEntry{
		{Slug: "newest", Title: "Packing Light", Category: "Travel", URL: "/newest/", PublishedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
		{Slug: "other", Title: "Morning Routines Explained", Category: "Productivity", URL: "/other/", PublishedAt: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)},
	}}
}

func TestProcessBatchFiveHundredWordExample(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	metrics := newCountingMetrics()
	pipeline := NewPipeline(PipelineDeps{
		Documents: staticDocuments{exampleDocument()},
		Corpus:    exampleCorpus(),
		Store:     store,
		Metrics:   metrics,
		Enricher:  NewEnricher(EnrichOptions{MaxWords: 80, ObserveStage: metrics.ObserveStage}),
	})

	report, err := pipeline.ProcessBatch(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"tiny-habits"}, report.Enriched)
	assert.NotEmpty(t, report.RunID)

	out := store.docs["tiny-habits"]
	require.True(t, out.Document.IsEnriched())
	body := out.Document.Body

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	require.NoError(t, err)

	paragraphs := doc.Find("p")
	assert.Greater(t, paragraphs.Length(), 2, "the long block is split")
	paragraphs.Each(func(_ int, p *goquery.Selection) {
		assert.LessOrEqual(t, markup.WordCount(p.Text()), 80)
	})

	assert.Equal(t, 3, doc.Find("figure").Length())
	doc.Find("figure").Each(func(_ int, f *goquery.Selection) {
		assert.NotEqual(t, "figure", goquery.NodeName(f.Next()), "no adjacent media")
		assert.NotEqual(t, "figure", goquery.NodeName(f.Prev()), "no adjacent media")
	})

	assert.Equal(t, 1, doc.Find(`a[href="/category/productivity/"]`).Length())
	assert.Equal(t, 0, doc.Find("h2 a").Length())

	require.NotEmpty(t, out.Related)
	assert.Equal(t, "other", out.Related[0].Slug)
	assert.Equal(t, "newest", out.Related[1].Slug)

	require.Len(t, out.Sections, 2)
	assert.Equal(t, 2, doc.Find("nav.toc li").Length())
	assert.NotEqual(t, out.Sections[0].Anchor, out.Sections[1].Anchor)
	assert.Less(t, strings.Index(body, `<nav class="toc">`), strings.Index(body, `<h2 id="why-it-matters">`))

	assert.Equal(t, 1, metrics.outcomes[OutcomeEnriched])
	assert.Equal(t, 1, metrics.stages[domain.StageRebalance])
	assert.Equal(t, 1, metrics.batches)
}

func TestProcessBatchIsIdempotent(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	deps := PipelineDeps{
		Documents: staticDocuments{exampleDocument()},
		Corpus:    exampleCorpus(),
		Store:     store,
	}

	first, err := NewPipeline(deps).ProcessBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, first.Enriched, 1)
	stored := store.docs["tiny-habits"]

	second, err := NewPipeline(deps).ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, second.Enriched)
	assert.Equal(t, []string{"tiny-habits"}, second.Skipped)
	assert.Equal(t, stored, store.docs["tiny-habits"])

	// Enriched output fed back as raw input is skipped as well.
	third, err := NewPipeline(PipelineDeps{Documents: staticDocuments{stored.Document}}).ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"tiny-habits"}, third.Skipped)
	assert.Equal(t, 1, strings.Count(stored.Document.Body, domain.EnrichedMarker))
}

func TestProcessBatchIsolatesFailures(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	store.failFor = "broken"

	good := exampleDocument()
	broken := exampleDocument()
	broken.Slug = "broken"
	untitled := exampleDocument()
	untitled.Slug = "untitled"
	untitled.Title = " "
	duplicate := exampleDocument()

	metrics := newCountingMetrics()
	report, err := NewPipeline(PipelineDeps{
		Documents: staticDocuments{good, broken, untitled, duplicate},
		Corpus:    exampleCorpus(),
		Resources: staticResources{{Name: "Habit Tracker Pro", URL: "/shop/tracker/", Category: "Productivity", ReviewCount: 12}},
		Store:     store,
		Metrics:   metrics,
		Workers:   2,
	}).ProcessBatch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"tiny-habits"}, report.Enriched)
	assert.Equal(t, []string{"untitled", "tiny-habits"}, report.Rejected)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "broken", report.Failed[0].Slug)
	assert.Equal(t, domain.StageStore, report.Failed[0].Stage)
	assert.Contains(t, report.Failed[0].Err, "disk full")

	require.NotNil(t, store.docs["tiny-habits"].Resource)
	assert.Equal(t, "Habit Tracker Pro", store.docs["tiny-habits"].Resource.Resource.Name)
	assert.Equal(t, 2, metrics.outcomes[OutcomeRejected])
	assert.Equal(t, 1, metrics.outcomes[OutcomeFailed])
}

func TestProcessBatchCorpusFailureIsFatal(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	_, err := NewPipeline(PipelineDeps{
		Documents: staticDocuments{exampleDocument()},
		Corpus:    staticCorpus{err: errors.New("output dir unreadable")},
		Store:     store,
	}).ProcessBatch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load corpus")
	assert.Empty(t, store.docs)
}

func TestProcessBatchEmptyCorpusFallsBackToEmptyLists(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	report, err := NewPipeline(PipelineDeps{
		Documents: staticDocuments{exampleDocument()},
		Store:     store,
	}).ProcessBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Enriched, 1)
	assert.Empty(t, store.docs["tiny-habits"].Related)
	assert.Nil(t, store.docs["tiny-habits"].Resource)
}

func TestEnricherRecoversStagePanics(t *testing.T) {
	t.Parallel()

	e := NewEnricher(EnrichOptions{})
	err := e.stage(domain.StageMedia, func() error { panic("boom") })
	require.Error(t, err)

	stage, ok := StageOf(err)
	require.True(t, ok)
	assert.Equal(t, domain.StageMedia, stage)
	assert.Contains(t, err.Error(), "boom")
}

func TestEnrichRejectsMarkedInput(t *testing.T) {
	t.Parallel()

	doc := exampleDocument()
	doc.Body = domain.EnrichedMarker + doc.Body

	_, err := NewEnricher(EnrichOptions{}).Enrich(doc, domain.NewCorpus(nil), linking.Catalog{}, nil)
	require.ErrorIs(t, err, domain.ErrAlreadyEnriched)
}

type recordingNotifier struct {
	mu      sync.Mutex
	reports []domain.BatchReport
	err     error
}

func (r *recordingNotifier) PublishReport(_ context.Context, report domain.BatchReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, report)
	return r.err
}

func TestProcessBatchNotifiesOnlyWhenSomethingHappened(t *testing.T) {
	t.Parallel()

	failing := &recordingNotifier{err: errors.New("chat unreachable")}
	ok := &recordingNotifier{}
	deps := PipelineDeps{
		Documents: staticDocuments{exampleDocument()},
		Corpus:    exampleCorpus(),
		Store:     newMemStore(),
		Notifiers: []ports.ReportNotifier{failing, ok},
	}

	first, err := NewPipeline(deps).ProcessBatch(context.Background())
	require.NoError(t, err, "notifier errors do not fail the batch")
	require.Len(t, ok.reports, 1)
	assert.Equal(t, first.RunID, ok.reports[0].RunID)
	assert.Len(t, failing.reports, 1)

	_, err = NewPipeline(deps).ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Len(t, ok.reports, 1, "an all-skipped batch is not announced")
}

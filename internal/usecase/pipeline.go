package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"ArticleEnricher/internal/domain"
	"ArticleEnricher/internal/enrich/linking"
	"ArticleEnricher/internal/ports"
)

const defaultWorkers = 4

// Document outcomes reported to metrics.
const (
	OutcomeEnriched = "enriched"
	OutcomeSkipped  = "skipped"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Documents ports.DocumentSource
	Corpus    ports.CorpusSource
	Resources ports.ResourceCatalog
	Store     ports.DocumentStore
	Metrics   ports.Metrics
	Notifiers []ports.ReportNotifier
	Enricher  *Enricher
	Linking   linking.CatalogConfig
	Workers   int
	Logger    *slog.Logger
	Clock     func() time.Time
}

// Pipeline implements the batch enrichment workflow.
type Pipeline struct {
	documents ports.DocumentSource
	corpus    ports.CorpusSource
	resources ports.ResourceCatalog
	store     ports.DocumentStore
	metrics   ports.Metrics
	notifiers []ports.ReportNotifier
	enricher  *Enricher
	linking   linking.CatalogConfig
	workers   int
	logger    *slog.Logger
	now       func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	p := &Pipeline{
		documents: deps.Documents,
		corpus:    deps.Corpus,
		resources: deps.Resources,
		store:     deps.Store,
		metrics:   deps.Metrics,
		notifiers: deps.Notifiers,
		enricher:  deps.Enricher,
		linking:   deps.Linking,
		workers:   deps.Workers,
		logger:    deps.Logger,
		now:       deps.Clock,
	}
	if p.enricher == nil {
		p.enricher = NewEnricher(EnrichOptions{})
	}
	if p.workers <= 0 {
		p.workers = defaultWorkers
	}
	if p.logger == nil {
		p.logger = slog.New(slog.DiscardHandler)
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

type outcome struct {
	slug    string
	failure *domain.Failure
}

// ProcessBatch loads the inputs, enriches every pending document and stores
// the results. Per-document problems end up in the report; only failing to
// load the inputs or to query the store aborts the batch.
func (p *Pipeline) ProcessBatch(ctx context.Context) (domain.BatchReport, error) {
	started := p.now()
	report := domain.BatchReport{RunID: uuid.NewString()}
	log := p.logger.With("run_id", report.RunID)

	if p.documents == nil {
		return report, nil
	}

	corpus := domain.NewCorpus(nil)
	if p.corpus != nil {
		var err error
		corpus, err = p.corpus.LoadCorpus(ctx)
		if err != nil {
			return report, fmt.Errorf("load corpus: %w", err)
		}
	}

	var resources []domain.Resource
	if p.resources != nil {
		var err error
		resources, err = p.resources.LoadResources(ctx)
		if err != nil {
			log.Warn("resource catalog unavailable, continuing without it", "error", err)
			resources = nil
		}
	}

	docs, err := p.documents.LoadDocuments(ctx)
	if err != nil {
		return report, fmt.Errorf("load documents: %w", err)
	}

	catalog := linking.BuildCatalog(linking.CatalogInput{Corpus: corpus, Resources: resources}, p.linking)
	log.Info("batch started",
		"documents", len(docs),
		"corpus", corpus.Len(),
		"resources", len(resources),
		"link_targets", catalog.Len(),
	)

	slugs := make([]string, len(docs))
	for i, doc := range docs {
		slugs[i] = doc.Slug
	}

	skip := map[string]bool{}
	if p.store != nil && len(slugs) > 0 {
		skip, err = p.store.AlreadyEnriched(ctx, slugs)
		if err != nil {
			return report, fmt.Errorf("load enriched: %w", err)
		}
	}

	seen := map[string]bool{}
	var pending []domain.Document
	for _, doc := range docs {
		switch {
		case skip[doc.Slug] || doc.IsEnriched():
			report.Skipped = append(report.Skipped, doc.Slug)
			p.observeDocument(OutcomeSkipped)
			log.Debug("document already enriched", "slug", doc.Slug)
		case doc.Slug == "" || seen[doc.Slug]:
			report.Rejected = append(report.Rejected, doc.Slug)
			p.observeDocument(OutcomeRejected)
			log.Warn("document rejected", "slug", doc.Slug, "stage", domain.StageValidate, "error", "missing or duplicate slug")
		default:
			if err := doc.Validate(); err != nil {
				report.Rejected = append(report.Rejected, doc.Slug)
				p.observeDocument(OutcomeRejected)
				log.Warn("document rejected", "slug", doc.Slug, "stage", domain.StageValidate, "error", err)
				continue
			}
			seen[doc.Slug] = true
			pending = append(pending, doc)
		}
	}

	results := make([]outcome, len(pending))
	g := new(errgroup.Group)
	g.SetLimit(p.workers)
	for i, doc := range pending {
		g.Go(func() error {
			results[i] = p.process(ctx, log, doc, corpus, catalog, resources)
			return nil
		})
	}
	_ = g.Wait()

	for _, res := range results {
		switch {
		case res.slug == "":
			// not started: batch context was cancelled
		case res.failure != nil:
			report.Failed = append(report.Failed, *res.failure)
			p.observeDocument(OutcomeFailed)
		default:
			report.Enriched = append(report.Enriched, res.slug)
			p.observeDocument(OutcomeEnriched)
		}
	}

	elapsed := p.now().Sub(started)
	if p.metrics != nil {
		p.metrics.ObserveBatch(report, elapsed)
	}
	log.Info("batch finished",
		"enriched", len(report.Enriched),
		"skipped", len(report.Skipped),
		"rejected", len(report.Rejected),
		"failed", len(report.Failed),
		"elapsed", elapsed,
	)

	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("batch interrupted: %w", err)
	}

	if len(report.Enriched) > 0 || len(report.Failed) > 0 {
		for _, n := range p.notifiers {
			if err := n.PublishReport(ctx, report); err != nil {
				log.Warn("publish batch report", "error", err)
			}
		}
	}
	return report, nil
}

func (p *Pipeline) process(ctx context.Context, log *slog.Logger, doc domain.Document, corpus domain.Corpus, catalog linking.Catalog, resources []domain.Resource) outcome {
	if ctx.Err() != nil {
		return outcome{}
	}

	enriched, err := p.enricher.Enrich(doc, corpus, catalog, resources)
	if err != nil {
		stage, ok := StageOf(err)
		if !ok {
			stage = domain.StageValidate
		}
		return p.fail(log, doc.Slug, stage, err)
	}
	enriched.EnrichedAt = p.now()
	for _, w := range enriched.Warnings {
		log.Warn("enrichment warning", "slug", doc.Slug, "warning", w)
	}

	if p.store != nil {
		if err := p.store.SaveEnriched(ctx, enriched); err != nil {
			return p.fail(log, doc.Slug, domain.StageStore, err)
		}
	}

	log.Debug("document enriched",
		"slug", doc.Slug,
		"sections", len(enriched.Sections),
		"related", len(enriched.Related),
	)
	return outcome{slug: doc.Slug}
}

func (p *Pipeline) fail(log *slog.Logger, slug string, stage domain.Stage, err error) outcome {
	log.Error("document failed", "slug", slug, "stage", stage, "error", err)
	return outcome{slug: slug, failure: &domain.Failure{Slug: slug, Stage: stage, Err: err.Error()}}
}

func (p *Pipeline) observeDocument(result string) {
	if p.metrics != nil {
		p.metrics.ObserveDocument(result)
	}
}

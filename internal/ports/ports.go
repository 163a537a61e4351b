package ports

import (
	"context"
	"time"

	"ArticleEnricher/internal/domain"
)

// DocumentSource supplies raw drafts from the upstream generator.
type DocumentSource interface {
	LoadDocuments(ctx context.Context) ([]domain.Document, error)
}

// CorpusSource snapshots previously enriched documents for linking and scoring.
type CorpusSource interface {
	LoadCorpus(ctx context.Context) (domain.Corpus, error)
}

// ResourceCatalog supplies the external resource catalog (products, downloads).
type ResourceCatalog interface {
	LoadResources(ctx context.Context) ([]domain.Resource, error)
}

// DocumentStore persists enriched output and answers the idempotency check.
type DocumentStore interface {
	AlreadyEnriched(ctx context.Context, slugs []string) (map[string]bool, error)
	SaveEnriched(ctx context.Context, doc domain.EnrichedDocument) error
}

// Metrics records batch outcomes.
type Metrics interface {
	ObserveDocument(outcome string)
	ObserveStage(stage domain.Stage, elapsed time.Duration)
	ObserveBatch(report domain.BatchReport, elapsed time.Duration)
}

// ReportNotifier announces a finished batch (chat message, site rebuild hook).
type ReportNotifier interface {
	PublishReport(ctx context.Context, report domain.BatchReport) error
}

// Scheduler controls when batches execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}

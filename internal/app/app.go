package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"ArticleEnricher/internal/config"
	"ArticleEnricher/internal/domain"
	"ArticleEnricher/internal/enrich/linking"
	"ArticleEnricher/internal/infrastructure/catalog"
	"ArticleEnricher/internal/infrastructure/metrics"
	"ArticleEnricher/internal/infrastructure/parser"
	"ArticleEnricher/internal/infrastructure/scheduler"
	"ArticleEnricher/internal/infrastructure/storage"
	"ArticleEnricher/internal/infrastructure/telegram"
	"ArticleEnricher/internal/infrastructure/webhook"
	"ArticleEnricher/internal/logging"
	"ArticleEnricher/internal/ports"
	"ArticleEnricher/internal/scanner"
	"ArticleEnricher/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	pipeline *usecase.Pipeline
	logger   *slog.Logger
	db       *sql.DB
}

// New builds a runnable application instance from configuration.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	registry := scanner.NewRegistry()
	registry.Register(parser.NewJSONScanner())
	registry.Register(parser.NewYAMLScanner())
	registry.Register(parser.NewHTMLScanner(nil))

	source := parser.NewStrategySource(registry, cfg.Input.Sources, logging.Component(baseLogger, "source"))

	a := &Application{cfg: cfg, logger: baseLogger}

	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}

	var recorder ports.Metrics
	observe := func(domain.Stage, time.Duration) {}
	if cfg.Metrics.Enabled {
		r := metrics.NewRecorder(cfg.Metrics.Textfile, logging.Component(baseLogger, "metrics"))
		recorder = r
		observe = r.ObserveStage
	}

	enricher := usecase.NewEnricher(usecase.EnrichOptions{
		MaxWords:               cfg.Pipeline.MaxWords,
		MinTrailingWords:       cfg.Pipeline.MinTrailingWords,
		MediaMinSpacing:        cfg.Pipeline.MediaMinSpacing,
		MaxLinks:               cfg.Linking.MaxLinks,
		MaxLinksPerDestination: cfg.Linking.MaxPerDestination,
		MinHeadings:            cfg.Pipeline.MinHeadings,
		RelatedCount:           cfg.Pipeline.RelatedCount,
		DocumentURLPattern:     cfg.Linking.DocumentURLPattern,
		ObserveStage:           observe,
	})

	a.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Documents: source,
		Corpus:    store,
		Resources: catalog.NewYAMLCatalog(cfg.Input.Resources),
		Store:     store,
		Metrics:   recorder,
		Notifiers: notifiers(cfg.Notify),
		Enricher:  enricher,
		Linking:   catalogConfig(cfg.Linking),
		Workers:   cfg.Pipeline.Workers,
		Logger:    logging.Component(baseLogger, "pipeline"),
	})
	return a, nil
}

type enrichedStore interface {
	ports.DocumentStore
	ports.CorpusSource
}

func (a *Application) openStore(ctx context.Context) (enrichedStore, error) {
	out := a.cfg.Output
	switch out.Store {
	case "", config.StoreFilesystem:
		return storage.NewFileStore(out.Dir, a.cfg.Linking.DocumentURLPattern), nil
	case config.StoreSQLite:
		db, err := storage.OpenSQLite(out.DSN)
		if err != nil {
			return nil, err
		}
		repo := storage.NewSQLiteRepository(db, a.cfg.Linking.DocumentURLPattern)
		if err := repo.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		a.db = db
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown output store %q", out.Store)
	}
}

func notifiers(cfg config.NotifyConfig) []ports.ReportNotifier {
	var out []ports.ReportNotifier
	if cfg.Telegram.Enabled() {
		out = append(out, telegram.NewNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID).WithAPIBase(cfg.Telegram.APIBase))
	}
	if cfg.Webhook.URL != "" {
		out = append(out, webhook.NewClient(cfg.Webhook.URL, cfg.Webhook.APIKey))
	}
	return out
}

func catalogConfig(cfg config.LinkingConfig) linking.CatalogConfig {
	static := make([]linking.StaticDestination, 0, len(cfg.StaticDestinations))
	for _, s := range cfg.StaticDestinations {
		static = append(static, linking.StaticDestination{Phrase: s.Phrase, URL: s.URL})
	}
	return linking.CatalogConfig{
		CategoryURLPattern:       cfg.CategoryURLPattern,
		CategorySynonyms:         cfg.CategorySynonyms,
		StaticDestinations:       static,
		MaxPhrasesPerDestination: cfg.MaxPhrasesPerDestination,
	}
}

// Run performs a single batch.
func (a *Application) Run(ctx context.Context) (domain.BatchReport, error) {
	return a.pipeline.ProcessBatch(ctx)
}

// Schedule runs batches on the configured cron expression until ctx is done.
func (a *Application) Schedule(ctx context.Context) error {
	driver := scheduler.NewCronScheduler(a.cfg.Scheduler.CronExpression, a.cfg.Scheduler.Location())
	sched := usecase.NewScheduler(driver, a.pipeline, logging.Component(a.logger, "scheduler"))
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("scheduler started",
		"cron", a.cfg.Scheduler.CronExpression,
		"timezone", a.cfg.Scheduler.Location().String(),
	)

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return sched.Stop(stopCtx)
}

// Close releases the store connection, if any.
func (a *Application) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

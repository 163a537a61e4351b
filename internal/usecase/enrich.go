package usecase

import (
	"errors"
	"fmt"
	"time"

	"ArticleEnricher/internal/domain"
	"ArticleEnricher/internal/enrich/linking"
	"ArticleEnricher/internal/enrich/media"
	"ArticleEnricher/internal/enrich/normalize"
	"ArticleEnricher/internal/enrich/rebalance"
	"ArticleEnricher/internal/enrich/recommend"
	"ArticleEnricher/internal/enrich/toc"
)

// StageError attributes an enrichment error to the stage that raised it.
type StageError struct {
	Stage domain.Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// StageOf returns the stage an error is attributed to, if any.
func StageOf(err error) (domain.Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}

// EnrichOptions tunes the individual stages. Zero values select stage defaults.
type EnrichOptions struct {
	MaxWords               int
	MinTrailingWords       int
	MediaMinSpacing        int
	MaxLinks               int
	MaxLinksPerDestination int
	MinHeadings            int
	RelatedCount           int
	DocumentURLPattern     string

	// ObserveStage, when set, receives the duration of every completed stage.
	ObserveStage func(stage domain.Stage, elapsed time.Duration)
}

// Enricher runs the fixed stage sequence on one document. It holds no
// per-document state and is safe for concurrent use.
type Enricher struct {
	normalizer  *normalize.Normalizer
	rebalancer  *rebalance.Rebalancer
	distributor *media.Distributor
	injector    *linking.Injector
	outliner    *toc.Builder
	recommender *recommend.Recommender
	urlPattern  string
	observe     func(domain.Stage, time.Duration)
}

// NewEnricher builds the stage chain.
func NewEnricher(opts EnrichOptions) *Enricher {
	return &Enricher{
		normalizer: normalize.New(),
		rebalancer: rebalance.New(
			rebalance.WithMaxWords(opts.MaxWords),
			rebalance.WithMinTrailingWords(opts.MinTrailingWords),
		),
		distributor: media.New(media.WithMinSpacing(opts.MediaMinSpacing)),
		injector: linking.NewInjector(linking.Limits{
			MaxLinks:          opts.MaxLinks,
			MaxPerDestination: opts.MaxLinksPerDestination,
		}),
		outliner:    toc.New(toc.WithMinHeadings(opts.MinHeadings)),
		recommender: recommend.New(opts.RelatedCount),
		urlPattern:  opts.DocumentURLPattern,
		observe:     opts.ObserveStage,
	}
}

// Enrich transforms doc without touching any external system. The returned
// body carries the enriched marker. Errors are *StageError values.
func (e *Enricher) Enrich(doc domain.Document, corpus domain.Corpus, catalog linking.Catalog, resources []domain.Resource) (domain.EnrichedDocument, error) {
	if doc.IsEnriched() {
		return domain.EnrichedDocument{}, &StageError{Stage: domain.StageValidate, Err: domain.ErrAlreadyEnriched}
	}
	if err := doc.Validate(); err != nil {
		return domain.EnrichedDocument{}, &StageError{Stage: domain.StageValidate, Err: err}
	}

	out := domain.EnrichedDocument{Document: doc}
	body := doc.Body

	err := e.stage(domain.StageNormalize, func() error {
		res, err := e.normalizer.Normalize(body)
		if err != nil {
			return err
		}
		body = res.Body
		out.Warnings = append(out.Warnings, res.Warnings...)
		return nil
	})
	if err != nil {
		return domain.EnrichedDocument{}, err
	}

	err = e.stage(domain.StageRebalance, func() error {
		res, err := e.rebalancer.Rebalance(body)
		if err != nil {
			return err
		}
		body = res.Body
		return nil
	})
	if err != nil {
		return domain.EnrichedDocument{}, err
	}

	err = e.stage(domain.StageMedia, func() error {
		res, err := e.distributor.Distribute(body)
		if err != nil {
			return err
		}
		body = res.Body
		if res.Appended > 0 {
			out.Warnings = append(out.Warnings, fmt.Sprintf("%d media fragment(s) appended after the last paragraph", res.Appended))
		}
		return nil
	})
	if err != nil {
		return domain.EnrichedDocument{}, err
	}

	err = e.stage(domain.StageLinks, func() error {
		res, err := e.injector.Inject(body, catalog.Targets(), e.selfURL(doc, corpus), linking.NewState())
		if err != nil {
			return err
		}
		body = res.Body
		return nil
	})
	if err != nil {
		return domain.EnrichedDocument{}, err
	}

	err = e.stage(domain.StageTOC, func() error {
		res, err := e.outliner.Build(body)
		if err != nil {
			return err
		}
		body = res.Body
		out.Sections = res.Sections
		out.Outline = res.Outline
		return nil
	})
	if err != nil {
		return domain.EnrichedDocument{}, err
	}

	err = e.stage(domain.StageRecommend, func() error {
		out.Related = e.recommender.Related(doc, corpus)
		out.Resource = e.recommender.BestResource(doc, resources)
		return nil
	})
	if err != nil {
		return domain.EnrichedDocument{}, err
	}

	out.Document.Body = domain.EnrichedMarker + body
	return out, nil
}

// stage runs fn, converting both errors and panics into a *StageError.
func (e *Enricher) stage(name domain.Stage, fn func() error) (err error) {
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = &StageError{Stage: name, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	if err := fn(); err != nil {
		return &StageError{Stage: name, Err: err}
	}
	if e.observe != nil {
		e.observe(name, time.Since(started))
	}
	return nil
}

func (e *Enricher) selfURL(doc domain.Document, corpus domain.Corpus) string {
	if entry, ok := corpus.Lookup(doc.Slug); ok && entry.URL != "" {
		return entry.URL
	}
	return linking.DocumentURL(e.urlPattern, doc.Slug)
}

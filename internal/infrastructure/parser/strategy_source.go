package parser

import (
	"context"
	"fmt"
	"log/slog"

	"ArticleEnricher/internal/config"
	"ArticleEnricher/internal/domain"
	"ArticleEnricher/internal/ports"
	"ArticleEnricher/internal/scanner"
)

// StrategySource implements DocumentSource via registered scanner strategies.
type StrategySource struct {
	registry *scanner.Registry
	sources  []config.SourceConfig
	logger   *slog.Logger
}

var _ ports.DocumentSource = (*StrategySource)(nil)

// NewStrategySource wires scanner registry with config-defined sources.
func NewStrategySource(reg *scanner.Registry, sources []config.SourceConfig, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry: reg,
		sources:  sources,
		logger:   log,
	}
}

// LoadDocuments iterates over configured sources and executes their scanners.
func (s *StrategySource) LoadDocuments(ctx context.Context) ([]domain.Document, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}

	s.debug("load documents", "sources", len(s.sources))

	var aggregated []domain.Document
	for _, src := range s.sources {
		s.debug("process source", "source", src.Name, "scanner", src.Scanner, "dir", src.Dir, "urls", len(src.URLs))
		strategy, err := s.registry.Resolve(src.Scanner)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", src.Name, err)
		}

		req := scanner.Request{
			SourceName: src.Name,
			Dir:        src.Dir,
			Pattern:    src.Pattern,
			URLs:       src.URLs,
			Options:    src.Options,
		}

		results, err := strategy.Scan(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("scan source %s: %w", src.Name, err)
		}

		s.debug("source produced documents", "source", src.Name, "count", len(results))
		aggregated = append(aggregated, results...)
	}

	s.debug("strategy source done", "total_documents", len(aggregated))
	return aggregated, nil
}

func (s *StrategySource) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

package parser

import (
	"context"
	"fmt"
	"log/slog"

	"NewsDesk/internal/domain"
	"NewsDesk/internal/ports"
	"NewsDesk/internal/scanner"
)

// maxEntriesPerDocument bounds how many entries one document may yield. The
// recency cap per source belongs to the aggregator, which sees dates.
const maxEntriesPerDocument = 500

// StrategySource implements FeedFetcher via registered scanner strategies.
type StrategySource struct {
	registry *scanner.Registry
	logger   *slog.Logger
}

var _ ports.FeedFetcher = (*StrategySource)(nil)

// NewStrategySource wires the scanner registry.
func NewStrategySource(reg *scanner.Registry, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry: reg,
		logger:   log,
	}
}

// Fetch resolves the strategy for the source kind and runs it.
func (s *StrategySource) Fetch(ctx context.Context, source domain.FeedSource) ([]domain.RawEntry, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}

	kind := source.Kind
	if kind == "" {
		kind = domain.FeedKindRSS
	}
	strategy, err := s.registry.Resolve(kind)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", source.Name, err)
	}

	s.debug("scan source", "source", source.Name, "scanner", kind)
	entries, err := strategy.Scan(ctx, scanner.Request{Source: source, Limit: maxEntriesPerDocument})
	if err != nil {
		return nil, fmt.Errorf("scan source %s: %w", source.Name, err)
	}

	for i := range entries {
		if entries[i].Category == "" {
			entries[i].Category = source.Category
		}
	}
	s.debug("source produced entries", "source", source.Name, "count", len(entries))
	return entries, nil
}

func (s *StrategySource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

package search

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"NewsDesk/internal/domain"
)

// Searcher runs a single query and never fails.
type Searcher interface {
	Search(ctx context.Context, q domain.SearchQuery) []domain.NewsItem
}

// FallbackOptions lists the tiered queries.
type FallbackOptions struct {
	// TrustedDomains feed tier 1 as "site:<domain> <SiteTopic>" queries.
	TrustedDomains []string
	SiteTopic      string
	MaxSiteQueries int
	// TopicalQueries are tier 2.
	TopicalQueries    []string
	MaxTopicalQueries int
	// BroadQueries are tier 3, run with BroadFreshness.
	BroadQueries   []string
	BroadFreshness string
	PerQuery       int
	Freshness      string
	// QueryDelay separates consecutive queries.
	QueryDelay time.Duration
}

// Fallback tops up a thin feed corpus with tiered search queries.
type Fallback struct {
	searcher Searcher
	opts     FallbackOptions
	logger   *slog.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewFallback builds the tiered supplement.
func NewFallback(searcher Searcher, opts FallbackOptions, logger *slog.Logger) *Fallback {
	if opts.SiteTopic == "" {
		opts.SiteTopic = "international politics"
	}
	if opts.MaxSiteQueries <= 0 {
		opts.MaxSiteQueries = 4
	}
	if opts.MaxTopicalQueries <= 0 {
		opts.MaxTopicalQueries = 3
	}
	if opts.PerQuery <= 0 {
		opts.PerQuery = 5
	}
	if opts.Freshness == "" {
		opts.Freshness = "pd"
	}
	if opts.BroadFreshness == "" {
		opts.BroadFreshness = "pm"
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Fallback{
		searcher: searcher,
		opts:     opts,
		logger:   logger.With("component", "search_fallback"),
		sleep:    sleepContext,
	}
}

type tier struct {
	name      string
	queries   []string
	freshness string
}

// Supplement returns search items only when existingCount is below targetCount,
// stopping as soon as enough have been collected to close the gap.
func (f *Fallback) Supplement(ctx context.Context, existingCount, targetCount int) []domain.NewsItem {
	need := targetCount - existingCount
	if need <= 0 {
		return nil
	}
	f.logger.Info("feed corpus below target, searching", "existing", existingCount, "target", targetCount)

	var collected []domain.NewsItem
	first := true
	for _, t := range f.tiers() {
		if len(collected) >= need {
			break
		}
		for _, text := range t.queries {
			if ctx.Err() != nil {
				return collected
			}
			if !first {
				if err := f.sleep(ctx, f.opts.QueryDelay); err != nil {
					return collected
				}
			}
			first = false

			items := f.searcher.Search(ctx, domain.SearchQuery{
				Text:      text,
				Count:     f.opts.PerQuery,
				Freshness: t.freshness,
			})
			collected = append(collected, items...)
			f.logger.Debug("fallback query done", "tier", t.name, "query", text, "results", len(items))

			if len(collected) >= need {
				break
			}
		}
	}

	f.logger.Info("search supplement collected", "items", len(collected), "needed", need)
	return collected
}

func (f *Fallback) tiers() []tier {
	sites := make([]string, 0, len(f.opts.TrustedDomains))
	for _, d := range f.opts.TrustedDomains {
		sites = append(sites, fmt.Sprintf("site:%s %s", d, f.opts.SiteTopic))
	}
	return []tier{
		{name: "sites", queries: capQueries(sites, f.opts.MaxSiteQueries), freshness: f.opts.Freshness},
		{name: "topical", queries: capQueries(f.opts.TopicalQueries, f.opts.MaxTopicalQueries), freshness: f.opts.Freshness},
		{name: "broad", queries: f.opts.BroadQueries, freshness: f.opts.BroadFreshness},
	}
}

func capQueries(queries []string, n int) []string {
	if n > 0 && len(queries) > n {
		return queries[:n]
	}
	return queries
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

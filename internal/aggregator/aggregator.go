package aggregator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	"golang.org/x/sync/errgroup"

	"NewsDesk/internal/domain"
	"NewsDesk/internal/ports"
)

// Options tune a fetch cycle.
type Options struct {
	// Timeout boxes each source independently.
	Timeout time.Duration
	// PerSource caps items kept per source, most recent first.
	PerSource int
	// RecentWindow is used for the recency ratio in the report.
	RecentWindow time.Duration
	// Parallelism bounds concurrent fetches; zero means one goroutine per source.
	Parallelism int
}

// SourceFailure records why one source contributed nothing.
type SourceFailure struct {
	Source string
	Err    error
}

// Report summarizes one fetch cycle for logging.
type Report struct {
	Sources     int
	Failures    []SourceFailure
	Items       int
	RecentRatio float64
}

// Aggregator fetches many feed sources in parallel and merges them.
type Aggregator struct {
	fetcher ports.FeedFetcher
	opts    Options
	logger  *slog.Logger
	now     func() time.Time
}

// New builds an aggregator; zero options fall back to 10s per source, 12 items, 48h window.
func New(fetcher ports.FeedFetcher, opts Options, logger *slog.Logger) *Aggregator {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.PerSource <= 0 {
		opts.PerSource = 12
	}
	if opts.RecentWindow <= 0 {
		opts.RecentWindow = 48 * time.Hour
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Aggregator{
		fetcher: fetcher,
		opts:    opts,
		logger:  logger.With("component", "aggregator"),
		now:     time.Now,
	}
}

// FetchAll settles every source and returns the deduplicated union sorted by
// publish date, newest first. Failed sources are logged and contribute nothing.
func (a *Aggregator) FetchAll(ctx context.Context, sources []domain.FeedSource) ([]domain.NewsItem, Report) {
	report := Report{Sources: len(sources)}
	if len(sources) == 0 {
		return nil, report
	}

	perSource := make([][]domain.NewsItem, len(sources))
	errs := make([]error, len(sources))

	var g errgroup.Group
	if a.opts.Parallelism > 0 {
		g.SetLimit(a.opts.Parallelism)
	}
	for i, src := range sources {
		g.Go(func() error {
			items, err := a.fetchOne(ctx, src)
			perSource[i], errs[i] = items, err
			return nil
		})
	}
	_ = g.Wait()

	var merged []domain.NewsItem
	for i, src := range sources {
		if errs[i] != nil {
			report.Failures = append(report.Failures, SourceFailure{Source: src.Name, Err: errs[i]})
			a.logger.Warn("feed source failed", "source", src.Name, "error", errs[i])
			continue
		}
		merged = append(merged, perSource[i]...)
	}

	merged = domain.DedupeByURL(merged)
	SortByRecency(merged)

	report.Items = len(merged)
	report.RecentRatio = RecentRatio(merged, a.now(), a.opts.RecentWindow)
	a.logger.Info("feeds aggregated",
		"sources", report.Sources,
		"failed", len(report.Failures),
		"items", report.Items,
		"recent_ratio", fmt.Sprintf("%.2f", report.RecentRatio),
	)
	return merged, report
}

var errSourceTimeout = errors.New("source timed out")

// fetchOne races the fetch against the per-source timeout. A fetch that loses
// the race is abandoned; its result is dropped when it eventually returns.
func (a *Aggregator) fetchOne(ctx context.Context, src domain.FeedSource) ([]domain.NewsItem, error) {
	ctx, cancel := context.WithTimeout(ctx, a.opts.Timeout)
	defer cancel()

	type outcome struct {
		entries []domain.RawEntry
		err     error
	}
	done := make(chan outcome, 1)
	go func() {
		entries, err := a.fetcher.Fetch(ctx, src)
		done <- outcome{entries: entries, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return nil, out.err
		}
		return a.normalize(src, out.entries), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w after %s: %v", errSourceTimeout, a.opts.Timeout, ctx.Err())
	}
}

func (a *Aggregator) normalize(src domain.FeedSource, entries []domain.RawEntry) []domain.NewsItem {
	fetchedAt := a.now()
	items := make([]domain.NewsItem, 0, len(entries))
	for _, e := range entries {
		link := strings.TrimSpace(e.Link)
		if link == "" {
			continue
		}

		host := domain.HostOf(link)
		if host == "" {
			host = domain.HostOf(src.URL)
		}
		category := e.Category
		if category == "" {
			category = src.Category
		}

		published := ParseDate(e, fetchedAt)
		items = append(items, domain.NewsItem{
			Title:       StripMarkup(e.Title),
			Description: StripMarkup(e.Description),
			URL:         link,
			SourceName:  src.Name,
			Domain:      host,
			Category:    category,
			PublishedAt: published,
			Origin:      domain.OriginFeed,
			IsRecent:    !published.Before(fetchedAt.Add(-a.opts.RecentWindow)),
		})
	}

	SortByRecency(items)
	if len(items) > a.opts.PerSource {
		items = items[:a.opts.PerSource]
	}
	return items
}

// ParseDate coerces whatever date an entry carries, falling back to fallback.
func ParseDate(e domain.RawEntry, fallback time.Time) time.Time {
	if e.PublishedAt != nil && !e.PublishedAt.IsZero() {
		return *e.PublishedAt
	}
	if raw := strings.TrimSpace(e.Published); raw != "" {
		if t, err := dateparse.ParseAny(raw); err == nil {
			return t
		}
	}
	return fallback
}

// StripMarkup removes HTML tags and entities and collapses whitespace.
func StripMarkup(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.Join(strings.Fields(s), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// SortByRecency orders items newest first, keeping input order on ties.
func SortByRecency(items []domain.NewsItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PublishedAt.After(items[j].PublishedAt)
	})
}

// RecentRatio is the fraction of items published within window of now.
func RecentRatio(items []domain.NewsItem, now time.Time, window time.Duration) float64 {
	if len(items) == 0 {
		return 0
	}
	recent := 0
	for _, item := range items {
		if item.RecentWithin(now, window) {
			recent++
		}
	}
	return float64(recent) / float64(len(items))
}

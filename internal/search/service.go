package search

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"NewsDesk/internal/aggregator"
	"NewsDesk/internal/domain"
	"NewsDesk/internal/ports"
	"NewsDesk/internal/ratelimit"
)

// Options configure query defaults and result annotation.
type Options struct {
	Language     string
	Country      string
	Freshness    string
	Count        int
	RecentWindow time.Duration
	// UsageLogEvery logs quota usage every n provider calls.
	UsageLogEvery int
}

// Service runs search queries through the cache, the monthly quota and the
// provider queue, in that order. It never fails: problems yield no results.
type Service struct {
	provider ports.SearchProvider
	queue    *ratelimit.Queue
	quota    *ratelimit.MonthlyQuota
	cache    ports.Cache[[]domain.NewsItem]
	opts     Options
	logger   *slog.Logger
	now      func() time.Time
}

// NewService wires the search dependencies; a nil quota means unlimited.
func NewService(provider ports.SearchProvider, queue *ratelimit.Queue, quota *ratelimit.MonthlyQuota, cache ports.Cache[[]domain.NewsItem], opts Options, logger *slog.Logger) *Service {
	if opts.Language == "" {
		opts.Language = "en"
	}
	if opts.Country == "" {
		opts.Country = "US"
	}
	if opts.Freshness == "" {
		opts.Freshness = "pd"
	}
	if opts.Count <= 0 {
		opts.Count = 10
	}
	if opts.RecentWindow <= 0 {
		opts.RecentWindow = 48 * time.Hour
	}
	if opts.UsageLogEvery <= 0 {
		opts.UsageLogEvery = 1000
	}
	if quota == nil {
		quota = ratelimit.NewMonthlyQuota(0)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if queue == nil {
		queue = ratelimit.NewQueue(ratelimit.Config{Name: "search"}, logger)
	}
	return &Service{
		provider: provider,
		queue:    queue,
		quota:    quota,
		cache:    cache,
		opts:     opts,
		logger:   logger.With("component", "search"),
		now:      time.Now,
	}
}

// Search runs one query; zero fields of q take the service defaults.
func (s *Service) Search(ctx context.Context, q domain.SearchQuery) []domain.NewsItem {
	q = s.withDefaults(q)
	key := q.Key()

	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, key); ok {
			s.logger.Debug("search cache hit", "query", q.Text, "results", len(cached))
			return cached
		}
	}

	used, err := s.quota.Take(s.now())
	if err != nil {
		s.logger.Warn("search quota reached, skipping query", "query", q.Text, "limit", s.quota.Limit())
		return nil
	}
	if used%s.opts.UsageLogEvery == 0 {
		s.logger.Info("search quota usage", "used", used, "limit", s.quota.Limit())
	}

	results, err := ratelimit.Do(ctx, s.queue, func(ctx context.Context) ([]domain.SearchResult, error) {
		return s.provider.Search(ctx, q)
	})
	if err != nil {
		s.logger.Warn("search query failed", "query", q.Text, "error", err)
		return nil
	}
	if len(results) == 0 {
		s.logger.Debug("search returned no results", "query", q.Text)
	}

	items := s.toNewsItems(q.Text, results)
	if s.cache != nil {
		s.cache.Put(ctx, key, items)
	}
	return items
}

func (s *Service) withDefaults(q domain.SearchQuery) domain.SearchQuery {
	q.Text = AugmentQuery(strings.TrimSpace(q.Text), s.now())
	if q.Count <= 0 {
		q.Count = s.opts.Count
	}
	if q.Freshness == "" {
		q.Freshness = s.opts.Freshness
	}
	if q.Language == "" {
		q.Language = s.opts.Language
	}
	if q.Country == "" {
		q.Country = s.opts.Country
	}
	return q
}

// AugmentQuery appends " latest" unless the query already asks for fresh results.
func AugmentQuery(text string, now time.Time) string {
	lower := strings.ToLower(text)
	for _, marker := range []string{"latest", "recent", "today", strconv.Itoa(now.Year())} {
		if strings.Contains(lower, marker) {
			return text
		}
	}
	return text + " latest"
}

func (s *Service) toNewsItems(query string, results []domain.SearchResult) []domain.NewsItem {
	now := s.now()
	items := make([]domain.NewsItem, 0, len(results))
	for _, r := range results {
		if strings.TrimSpace(r.URL) == "" {
			continue
		}
		host := r.Domain
		if host == "" {
			host = domain.HostOf(r.URL)
		}

		// Undated results count as fetched now, as feed entries do.
		published, dated := ResultTime(r, now)
		if !dated {
			published = now
		}
		items = append(items, domain.NewsItem{
			Title:       aggregator.StripMarkup(r.Title),
			Description: aggregator.StripMarkup(r.Description),
			URL:         r.URL,
			SourceName:  host,
			Domain:      host,
			PublishedAt: published,
			Origin:      domain.OriginSearch,
			IsRecent:    !published.Before(now.Add(-s.opts.RecentWindow)),
			Query:       query,
		})
	}
	return items
}

var relativeAge = regexp.MustCompile(`(?i)^(\d+)\s+(minute|hour|day|week|month|year)s?\s+ago`)

// ResultTime derives a publish time from the provider date, or from the
// relative age ("3 hours ago") when no absolute date is given.
func ResultTime(r domain.SearchResult, now time.Time) (time.Time, bool) {
	if raw := strings.TrimSpace(r.PublishedDate); raw != "" {
		if t, err := dateparse.ParseAny(raw); err == nil {
			return t, true
		}
	}

	age := strings.TrimSpace(r.Age)
	if age == "" {
		return time.Time{}, false
	}
	if m := relativeAge.FindStringSubmatch(age); m != nil {
		n, _ := strconv.Atoi(m[1])
		switch strings.ToLower(m[2]) {
		case "minute":
			return now.Add(-time.Duration(n) * time.Minute), true
		case "hour":
			return now.Add(-time.Duration(n) * time.Hour), true
		case "day":
			return now.AddDate(0, 0, -n), true
		case "week":
			return now.AddDate(0, 0, -7*n), true
		case "month":
			return now.AddDate(0, -n, 0), true
		case "year":
			return now.AddDate(-n, 0, 0), true
		}
	}
	if t, err := dateparse.ParseAny(age); err == nil {
		return t, true
	}
	return time.Time{}, false
}

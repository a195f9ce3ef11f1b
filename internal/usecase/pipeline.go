package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"NewsDesk/internal/aggregator"
	"NewsDesk/internal/archive"
	"NewsDesk/internal/articles"
	"NewsDesk/internal/domain"
	"NewsDesk/internal/ports"
)

// ErrNoResults means every feed and every search tier came back empty.
var ErrNoResults = errors.New("no news found")

// FeedAggregator fetches and merges the configured feed sources.
type FeedAggregator interface {
	FetchAll(ctx context.Context, sources []domain.FeedSource) ([]domain.NewsItem, aggregator.Report)
}

// SearchSupplement tops up a thin feed corpus.
type SearchSupplement interface {
	Supplement(ctx context.Context, existingCount, targetCount int) []domain.NewsItem
}

// TopicExtractor clusters a corpus into topics.
type TopicExtractor interface {
	Extract(ctx context.Context, corpus []domain.NewsItem) []domain.Topic
}

// ArticleGenerator produces articles synchronously or in the background.
type ArticleGenerator interface {
	Generate(ctx context.Context, req articles.Request) articles.Outcome
	Start(ctx context.Context, req articles.Request) articles.Outcome
}

// AnalysisOptions tune the top level analysis.
type AnalysisOptions struct {
	TargetCount   int
	RecentWindow  time.Duration
	CorpusLimit   int
	TopicFloor    int
	RetentionDays int
	Location      *time.Location
}

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Feeds     FeedAggregator
	Sources   []domain.FeedSource
	Search    SearchSupplement
	Extractor TopicExtractor
	Articles  ArticleGenerator
	Archive   *archive.Store
	Corpus    ports.Cache[[]domain.NewsItem]
	Notifier  ports.Notifier
	Logger    *slog.Logger
}

// Pipeline implements the daily news analysis workflow.
type Pipeline struct {
	feeds     FeedAggregator
	sources   []domain.FeedSource
	search    SearchSupplement
	extractor TopicExtractor
	articles  ArticleGenerator
	archive   *archive.Store
	corpus    ports.Cache[[]domain.NewsItem]
	notifier  ports.Notifier
	opts      AnalysisOptions
	logger    *slog.Logger
	now       func() time.Time

	flight singleflight.Group
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps, opts AnalysisOptions) *Pipeline {
	if opts.TargetCount <= 0 {
		opts.TargetCount = 30
	}
	if opts.RecentWindow <= 0 {
		opts.RecentWindow = 48 * time.Hour
	}
	if opts.CorpusLimit <= 0 {
		opts.CorpusLimit = 40
	}
	if opts.TopicFloor <= 0 {
		opts.TopicFloor = 6
	}
	if opts.RetentionDays <= 0 {
		opts.RetentionDays = 60
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Pipeline{
		feeds:     deps.Feeds,
		sources:   deps.Sources,
		search:    deps.Search,
		extractor: deps.Extractor,
		articles:  deps.Articles,
		archive:   deps.Archive,
		corpus:    deps.Corpus,
		notifier:  deps.Notifier,
		opts:      opts,
		logger:    logger.With("component", "pipeline"),
		now:       time.Now,
	}
}

// Today is the current archive key.
func (p *Pipeline) Today() string {
	return p.now().In(p.opts.Location).Format(domain.DateLayout)
}

// Analyze returns today's topics, producing them on the first call of the day.
// Concurrent callers for the same day share one run. The run is detached from
// any single caller, so a caller giving up does not cut it short for the rest.
func (p *Pipeline) Analyze(ctx context.Context) (domain.TopicList, error) {
	date := p.Today()
	ch := p.flight.DoChan(date, func() (any, error) {
		return p.analyze(context.WithoutCancel(ctx), date)
	})

	select {
	case <-ctx.Done():
		return domain.TopicList{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return domain.TopicList{}, res.Err
		}
		if res.Shared {
			p.logger.Debug("analysis shared with concurrent caller", "date", date)
		}
		return res.Val.(domain.TopicList), nil
	}
}

func (p *Pipeline) analyze(ctx context.Context, date string) (domain.TopicList, error) {
	if cached, ok := p.archive.Topics(date); ok {
		return p.fromArchive(ctx, date, cached), nil
	}

	p.logger.Info("analysis started", "date", date, "sources", len(p.sources))

	var feedItems []domain.NewsItem
	if p.feeds != nil {
		feedItems, _ = p.feeds.FetchAll(ctx, p.sources)
	}

	merged := feedItems
	if len(feedItems) < p.opts.TargetCount && p.search != nil {
		merged = append(append([]domain.NewsItem(nil), feedItems...), p.search.Supplement(ctx, len(feedItems), p.opts.TargetCount)...)
	}

	merged = domain.DedupeByURL(merged)
	if len(merged) == 0 {
		p.logger.Warn("no news items from feeds or search", "date", date)
		return domain.TopicList{}, ErrNoResults
	}

	corpus, recent := p.recentFirst(merged)
	p.logger.Info("corpus prepared",
		"unique", len(merged),
		"recent", recent,
		"recent_ratio", fmt.Sprintf("%.2f", float64(recent)/float64(len(merged))),
		"used", len(corpus),
	)

	topics := p.extractor.Extract(ctx, corpus)
	rssRatio := feedRatio(corpus)
	if err := p.archive.PutTopics(ctx, date, topics, rssRatio); err != nil {
		p.logger.Warn("topics not persisted", "date", date, "error", err)
	}
	if p.corpus != nil {
		p.corpus.Put(ctx, date, corpus)
	}
	p.notify(ctx, date, topics)

	p.logger.Info("analysis finished", "date", date, "topics", len(topics), "rss_ratio", rssRatio)
	return domain.TopicList{Topics: topics, IsFromArchive: false}, nil
}

func (p *Pipeline) fromArchive(ctx context.Context, date string, cached []domain.Topic) domain.TopicList {
	if len(cached) < p.opts.TopicFloor {
		filled := domain.Backfill(cached, p.opts.TopicFloor, date)
		p.logger.Info("archived topics below floor, backfilled", "date", date, "had", len(cached), "now", len(filled))
		if err := p.archive.PutTopics(ctx, date, filled, p.rssRatioOf(date)); err != nil {
			p.logger.Warn("backfilled topics not persisted", "date", date, "error", err)
		}
		cached = filled
	}
	return domain.TopicList{Topics: cached, IsFromArchive: true}
}

func (p *Pipeline) rssRatioOf(date string) float64 {
	view, err := p.archive.Day(date)
	if err != nil {
		return 0
	}
	return view.Stats.RSSRatio
}

// recentFirst orders items inside the recency window first and caps the corpus.
func (p *Pipeline) recentFirst(items []domain.NewsItem) ([]domain.NewsItem, int) {
	now := p.now()
	var recent, older []domain.NewsItem
	for _, item := range items {
		if item.RecentWithin(now, p.opts.RecentWindow) {
			recent = append(recent, item)
		} else {
			older = append(older, item)
		}
	}
	out := append(recent, older...)
	if len(out) > p.opts.CorpusLimit {
		out = out[:p.opts.CorpusLimit]
	}
	return out, len(recent)
}

// feedRatio is the percentage of feed-origin items.
func feedRatio(items []domain.NewsItem) float64 {
	if len(items) == 0 {
		return 0
	}
	feed := 0
	for _, item := range items {
		if item.Origin == domain.OriginFeed {
			feed++
		}
	}
	return float64(feed) * 100 / float64(len(items))
}

func (p *Pipeline) notify(ctx context.Context, date string, topics []domain.Topic) {
	if p.notifier == nil || len(topics) == 0 {
		return
	}
	if err := p.notifier.PublishDigest(ctx, buildDigestMessage(date, topics)); err != nil {
		p.logger.Warn("topic digest not delivered", "error", err)
	}
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

func buildDigestMessage(date string, topics []domain.Topic) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*World politics, %s*\n", date)
	for _, t := range topics {
		fmt.Fprintf(&b, "\n*%d. %s*\n%s\n", t.ID, markdownEscaper.Replace(t.Title), markdownEscaper.Replace(t.Summary))
	}
	return b.String()
}

// Topics returns archived topics for date, backfilled to the floor.
func (p *Pipeline) Topics(ctx context.Context, date string) (domain.TopicList, error) {
	cached, ok := p.archive.Topics(date)
	if !ok {
		return domain.TopicList{}, archive.ErrNotFound
	}
	return p.fromArchive(ctx, date, cached), nil
}

// Article serves one variant; standard articles are generated inline, the
// longer variants are started in the background.
func (p *Pipeline) Article(ctx context.Context, date string, variant domain.Variant, topic domain.Topic, supplied []domain.NewsItem) articles.Outcome {
	if date == "" {
		date = p.Today()
	}
	req := articles.Request{Date: date, Topic: topic, Variant: variant, Context: supplied}
	if variant == domain.VariantStandard {
		return p.articles.Generate(ctx, req)
	}
	return p.articles.Start(ctx, req)
}

// Prune drops archived days past the retention window.
func (p *Pipeline) Prune(ctx context.Context, now time.Time) []string {
	return p.archive.Prune(ctx, p.opts.RetentionDays, now.In(p.opts.Location))
}

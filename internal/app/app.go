package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"NewsDesk/internal/aggregator"
	"NewsDesk/internal/api"
	"NewsDesk/internal/archive"
	"NewsDesk/internal/articles"
	"NewsDesk/internal/cache"
	"NewsDesk/internal/config"
	"NewsDesk/internal/domain"
	"NewsDesk/internal/infrastructure/llm"
	"NewsDesk/internal/infrastructure/parser"
	"NewsDesk/internal/infrastructure/scheduler"
	"NewsDesk/internal/infrastructure/storage"
	"NewsDesk/internal/infrastructure/telegram"
	"NewsDesk/internal/infrastructure/websearch"
	"NewsDesk/internal/logging"
	"NewsDesk/internal/ports"
	"NewsDesk/internal/ratelimit"
	"NewsDesk/internal/scanner"
	"NewsDesk/internal/search"
	"NewsDesk/internal/topics"
	"NewsDesk/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	store     *archive.Store
	pipeline  *usecase.Pipeline
	scheduler *usecase.Scheduler
	server    *http.Server
	closers   []func() error
}

// New builds the application graph. Nothing is loaded or started until Run.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	a := &Application{cfg: cfg, logger: baseLogger.With("component", "app")}

	var redisClient *redis.Client
	if cfg.Cache.Backend == config.CacheRedis {
		redisClient = cache.NewRedisClient(cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
		a.closers = append(a.closers, redisClient.Close)
	}
	searchCache := newCache[[]domain.NewsItem](redisClient, "newsdesk:search:", cfg.Cache.SearchTTL, baseLogger)
	keywordCache := newCache[[]string](redisClient, "newsdesk:keywords:", cfg.Cache.KeywordTTL, baseLogger)
	corpusCache := newCache[[]domain.NewsItem](redisClient, "newsdesk:corpus:", cfg.Cache.CorpusTTL, baseLogger)

	persist, err := a.persistence(ctx)
	if err != nil {
		a.close()
		return nil, err
	}
	a.store = archive.NewStore(persist, baseLogger)

	registry := scanner.NewRegistry(parser.NewRSSScanner(nil), parser.NewHTMLScanner(nil))
	source := parser.NewStrategySource(registry, baseLogger)
	feeds := aggregator.New(source, aggregator.Options{
		Timeout:      cfg.Feeds.Timeout,
		PerSource:    cfg.Feeds.PerSourceLimit,
		RecentWindow: cfg.Analysis.RecencyWindow,
	}, baseLogger)

	searchQueue := ratelimit.NewQueue(ratelimit.Config{
		Name:         "search",
		MaxPerWindow: cfg.Search.PerSecond,
		Window:       time.Second,
		Gap:          cfg.Search.Gap,
	}, baseLogger)
	searchService := search.NewService(
		websearch.NewClient(websearch.Config{Endpoint: cfg.Search.Endpoint, APIKey: cfg.Search.APIKey}, nil),
		searchQueue,
		ratelimit.NewMonthlyQuota(cfg.Search.MonthlyLimit),
		searchCache,
		search.Options{
			Language:     cfg.Search.Language,
			Country:      cfg.Search.Country,
			RecentWindow: cfg.Analysis.RecencyWindow,
		},
		baseLogger,
	)
	fallback := search.NewFallback(searchService, search.FallbackOptions{
		TrustedDomains: cfg.Search.TrustedDomains,
		TopicalQueries: cfg.Search.TopicalQueries,
		BroadQueries:   cfg.Search.BroadQueries,
		PerQuery:       cfg.Search.PerQuery,
		QueryDelay:     cfg.Search.QueryDelay,
	}, baseLogger)

	generationQueue := ratelimit.NewQueue(ratelimit.Config{
		Name:         "generation",
		MaxPerWindow: cfg.Generation.PerMinute,
		Window:       time.Minute,
		Gap:          cfg.Generation.Gap,
		Backoff:      cfg.Generation.Backoff,
	}, baseLogger)
	generator := ratelimit.NewQueuedGenerator(llm.NewChatGPTClient(llm.Config{
		BaseURL:      cfg.Generation.Endpoint,
		Model:        cfg.Generation.Model,
		APIKey:       cfg.Generation.APIKey,
		SystemPrompt: cfg.Generation.SystemPrompt,
		MaxTokens:    cfg.Generation.MaxTokens,
		Temperature:  cfg.Generation.Temperature,
		Timeout:      cfg.Generation.Timeout,
	}, nil), generationQueue)
	if cfg.Generation.APIKey == "" {
		a.logger.Warn("generation api key missing, topics and articles will use fallback content")
	}

	extractor := topics.NewExtractor(generator, topics.Options{
		MaxTopics:   cfg.Analysis.MaxTopics,
		FeedItems:   cfg.Analysis.FeedPromptItems,
		SearchItems: cfg.Analysis.SearchPromptItems,
		PromptItems: cfg.Analysis.PromptItems,
	}, baseLogger)

	articleGen := articles.NewGenerator(articles.Deps{
		Store:     a.store,
		Generator: generator,
		Searcher:  searchService,
		Keywords:  keywordCache,
		Corpus:    corpusCache,
		Logger:    baseLogger,
	}, articles.Options{})

	var notifier ports.Notifier
	if tg := telegram.NewNotifier(telegram.Config{
		BotToken: cfg.Notifications.Telegram.BotToken,
		ChatID:   cfg.Notifications.Telegram.ChatID,
	}, nil); tg.Configured() {
		notifier = tg
	}

	a.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Feeds:     feeds,
		Sources:   feedSources(cfg.Feeds.Sources),
		Search:    fallback,
		Extractor: extractor,
		Articles:  articleGen,
		Archive:   a.store,
		Corpus:    corpusCache,
		Notifier:  notifier,
		Logger:    baseLogger,
	}, usecase.AnalysisOptions{
		TargetCount:   cfg.Search.TargetCount,
		RecentWindow:  cfg.Analysis.RecencyWindow,
		CorpusLimit:   cfg.Analysis.CorpusLimit,
		TopicFloor:    cfg.Analysis.TopicFloor,
		RetentionDays: cfg.Archive.RetentionDays,
		Location:      cfg.Scheduler.Location(),
	})

	if cfg.Scheduler.Enabled {
		driver := scheduler.NewCronScheduler(cfg.Scheduler.CronExpression, cfg.Scheduler.Location(), cfg.Scheduler.RunOnStart)
		a.scheduler = usecase.NewScheduler(driver, a.pipeline, baseLogger)
	}

	maintenance := usecase.NewMaintenance(a.store, map[string]usecase.Clearer{
		"search":   searchCache,
		"keywords": keywordCache,
		"corpus":   corpusCache,
	}, a.pipeline.Today, baseLogger)

	if !strings.EqualFold(cfg.Logging.Level, "debug") {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(a.pipeline, a.store, maintenance, api.Options{
		AllowedOrigins: cfg.Server.CORSOrigins,
		RetryAfter:     cfg.Server.RetryAfter,
	}, baseLogger)
	a.server = &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// Run loads the archive, starts the scheduler and serves HTTP until ctx is done.
func (a *Application) Run(ctx context.Context) error {
	defer a.close()

	a.store.Load(ctx)
	if removed := a.pipeline.Prune(ctx, time.Now()); len(removed) > 0 {
		a.logger.Info("expired archive days removed at startup", "removed", len(removed))
	}

	if a.scheduler != nil {
		if err := a.scheduler.Start(ctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("http shutdown incomplete", "error", err)
	}
	if a.scheduler != nil {
		if err := a.scheduler.Stop(shutdownCtx); err != nil {
			a.logger.Warn("scheduler stop incomplete", "error", err)
		}
	}
	a.logger.Info("application stopped")
	return runErr
}

func (a *Application) persistence(ctx context.Context) (ports.ArchivePersistence, error) {
	cfg := a.cfg.Archive
	switch cfg.Backend {
	case "", config.BackendFile:
		return storage.NewFilePersistence(cfg.Path), nil
	case config.BackendSQLite:
		db, err := storage.OpenSQLite(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		return storage.NewSQLPersistence(db), nil
	case config.BackendS3:
		if cfg.Bucket == "" {
			return nil, fmt.Errorf("archive backend s3: bucket is required")
		}
		client, err := storage.NewS3Client(ctx, storage.S3Config{
			Bucket:       cfg.Bucket,
			Key:          cfg.Key,
			Region:       cfg.Region,
			UsePathStyle: cfg.UsePathStyle,
		})
		if err != nil {
			return nil, err
		}
		return storage.NewS3Persistence(client, cfg.Bucket, cfg.Key), nil
	default:
		return nil, fmt.Errorf("unknown archive backend %q", cfg.Backend)
	}
}

func (a *Application) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close resource", "error", err)
		}
	}
	a.closers = nil
}

// newCache returns a Redis-backed cache when client is set, an in-memory one otherwise.
func newCache[V any](client *redis.Client, prefix string, ttl time.Duration, logger *slog.Logger) ports.Cache[V] {
	if client != nil {
		return cache.NewRedis[V](client, prefix, ttl, logger)
	}
	return cache.NewTTL[V](ttl)
}

func feedSources(cfgs []config.SourceConfig) []domain.FeedSource {
	out := make([]domain.FeedSource, 0, len(cfgs))
	for _, c := range cfgs {
		out = append(out, domain.FeedSource{
			Name:     c.Name,
			URL:      c.URL,
			Kind:     c.Kind,
			Category: c.Category,
			Options:  c.Options,
		})
	}
	return out
}

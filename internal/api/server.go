package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"NewsDesk/internal/archive"
	"NewsDesk/internal/articles"
	"NewsDesk/internal/domain"
	"NewsDesk/internal/usecase"
)

// Analyzer is the orchestration surface the handlers drive.
type Analyzer interface {
	Today() string
	Analyze(ctx context.Context) (domain.TopicList, error)
	Topics(ctx context.Context, date string) (domain.TopicList, error)
	Article(ctx context.Context, date string, variant domain.Variant, topic domain.Topic, supplied []domain.NewsItem) articles.Outcome
}

// Archive exposes read access to stored days and articles.
type Archive interface {
	Article(date string, v domain.Variant, topicID int) (domain.Article, error)
	Status(date string, v domain.Variant, topicID int) domain.GenerationStatus
	Day(date string) (archive.DayView, error)
	Summaries() []domain.ArchiveSummary
}

// CacheMaintainer resets caches on request.
type CacheMaintainer interface {
	ClearCaches(ctx context.Context, req usecase.ClearRequest) (usecase.ClearReport, error)
}

// Options control router construction.
type Options struct {
	AllowedOrigins []string
	// RetryAfter is advertised when no news could be found.
	RetryAfter time.Duration
}

// Handlers groups route handlers around their dependencies.
type Handlers struct {
	analyzer    Analyzer
	archive     Archive
	maintenance CacheMaintainer
	retryAfter  time.Duration
	logger      *slog.Logger
}

// NewRouter constructs a Gin engine with every route registered.
func NewRouter(analyzer Analyzer, store Archive, maintenance CacheMaintainer, opts Options, logger *slog.Logger) *gin.Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.RetryAfter <= 0 {
		opts.RetryAfter = 5 * time.Minute
	}
	h := &Handlers{
		analyzer:    analyzer,
		archive:     store,
		maintenance: maintenance,
		retryAfter:  opts.RetryAfter,
		logger:      logger.With("component", "api"),
	}

	r := gin.New()
	r.Use(gin.Recovery(), h.requestLog())

	config := cors.DefaultConfig()
	if len(opts.AllowedOrigins) == 0 {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = opts.AllowedOrigins
	}
	config.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	r.Use(cors.New(config))

	group := r.Group("/api")
	{
		group.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
		})
		RegisterAnalysisRoutes(group, h)
		RegisterArticleRoutes(group, h)
		RegisterArchiveRoutes(group, h)
		RegisterMaintenanceRoutes(group, h)
	}
	return r
}

func (h *Handlers) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.logger.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, errorBody{Code: code, Message: message})
}

// dateParam reads ?date=, defaulting to today.
func (h *Handlers) dateParam(c *gin.Context) (string, bool) {
	date := c.Query("date")
	if date == "" {
		return h.analyzer.Today(), true
	}
	if _, err := time.Parse(domain.DateLayout, date); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
		return "", false
	}
	return date, true
}

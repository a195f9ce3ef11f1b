package ports

import (
	"context"
	"time"

	"NewsDesk/internal/domain"
)

// FeedFetcher pulls raw entries from one syndication source.
type FeedFetcher interface {
	Fetch(ctx context.Context, source domain.FeedSource) ([]domain.RawEntry, error)
}

// SearchProvider runs one web search query.
// Providers wrap HTTP 429 responses with ratelimit.ErrRateLimited.
type SearchProvider interface {
	Search(ctx context.Context, query domain.SearchQuery) ([]domain.SearchResult, error)
}

// Generation purposes, used for logging and by test doubles.
const (
	PurposeTopics   = "topics"
	PurposeKeywords = "keywords"
	PurposeArticle  = "article"
	PurposeRetry    = "retry"
)

// GenerationRequest is a single prompt sent to a generation provider.
type GenerationRequest struct {
	Purpose   string
	System    string
	Prompt    string
	MaxTokens int
}

// GenerationProvider turns a prompt into text (e.g., ChatGPT).
// Providers wrap HTTP 429 responses with ratelimit.ErrRateLimited.
type GenerationProvider interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}

// ArchivePersistence reads and overwrites the whole archive document.
// Load returns an empty map when nothing was stored yet.
type ArchivePersistence interface {
	Load(ctx context.Context) (map[string]*domain.ArchiveRecord, error)
	Save(ctx context.Context, records map[string]*domain.ArchiveRecord) error
	// Snapshot writes a backup copy and returns where it went.
	Snapshot(ctx context.Context, records map[string]*domain.ArchiveRecord, label string) (string, error)
}

// Cache is a key/value store with a fixed time-to-live per instance.
type Cache[V any] interface {
	Get(ctx context.Context, key string) (V, bool)
	Put(ctx context.Context, key string, value V)
	Clear(ctx context.Context) int
}

// Notifier streams digests to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when background jobs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}

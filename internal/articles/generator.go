package articles

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"NewsDesk/internal/archive"
	"NewsDesk/internal/domain"
	"NewsDesk/internal/ports"
	"NewsDesk/internal/topics"
)

// ErrContentTooShort marks generated text at or below domain.MinContentLength.
var ErrContentTooShort = errors.New("generated content too short")

// Searcher runs a single query and never fails.
type Searcher interface {
	Search(ctx context.Context, q domain.SearchQuery) []domain.NewsItem
}

// Options tune keyword derivation and context gathering.
type Options struct {
	MaxKeywords    int
	SearchKeywords int
	PerKeyword     int
	CallerContext  int
	ContextLimit   int
	PromptItems    int
	RelatedNews    int
}

// Request identifies one article to produce.
type Request struct {
	Date    string
	Topic   domain.Topic
	Variant domain.Variant
	// Context is optional caller supplied material, e.g. the day's corpus.
	Context []domain.NewsItem
}

// Outcome is what a caller receives: a finished article or a placeholder.
type Outcome struct {
	Article    domain.Article
	State      domain.GenerationState
	InProgress bool
}

// Generator runs the per (date, topic, variant) generation state machine.
type Generator struct {
	store     *archive.Store
	generator ports.GenerationProvider
	searcher  Searcher
	keywords  ports.Cache[[]string]
	corpus    ports.Cache[[]domain.NewsItem]
	opts      Options
	logger    *slog.Logger
	now       func() time.Time
}

// Deps groups the collaborators of a Generator.
type Deps struct {
	Store     *archive.Store
	Generator ports.GenerationProvider
	Searcher  Searcher
	Keywords  ports.Cache[[]string]
	Corpus    ports.Cache[[]domain.NewsItem]
	Logger    *slog.Logger
}

// NewGenerator builds the state machine; Generator should already be rate limited.
func NewGenerator(deps Deps, opts Options) *Generator {
	if opts.MaxKeywords <= 0 {
		opts.MaxKeywords = 10
	}
	if opts.SearchKeywords <= 0 {
		opts.SearchKeywords = 5
	}
	if opts.PerKeyword <= 0 {
		opts.PerKeyword = 3
	}
	if opts.CallerContext <= 0 {
		opts.CallerContext = 10
	}
	if opts.ContextLimit <= 0 {
		opts.ContextLimit = 20
	}
	if opts.PromptItems <= 0 {
		opts.PromptItems = 10
	}
	if opts.RelatedNews <= 0 {
		opts.RelatedNews = 5
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Generator{
		store:     deps.Store,
		generator: deps.Generator,
		searcher:  deps.Searcher,
		keywords:  deps.Keywords,
		corpus:    deps.Corpus,
		opts:      opts,
		logger:    logger.With("component", "article_generator"),
		now:       time.Now,
	}
}

// Generate returns a cached article, a still-generating placeholder, or runs
// the generation to completion. It never fails.
func (g *Generator) Generate(ctx context.Context, req Request) Outcome {
	if out, claimed := g.claim(ctx, req); !claimed {
		return out
	}
	return g.run(ctx, req)
}

// Start claims the key and generates in the background, returning the
// placeholder right away. Cached and in-flight keys behave as in Generate.
func (g *Generator) Start(ctx context.Context, req Request) Outcome {
	out, claimed := g.claim(ctx, req)
	if !claimed {
		return out
	}

	bg := context.WithoutCancel(ctx)
	go g.run(bg, req)
	return g.placeholder(req)
}

func (g *Generator) claim(ctx context.Context, req Request) (Outcome, bool) {
	art, res := g.store.Claim(ctx, req.Date, req.Variant, req.Topic.ID)
	switch res {
	case archive.Cached:
		g.logger.Debug("article served from archive", "date", req.Date, "topic", req.Topic.ID, "variant", req.Variant)
		return Outcome{Article: art, State: art.State()}, false
	case archive.InFlight:
		g.logger.Info("article already generating", "date", req.Date, "topic", req.Topic.ID, "variant", req.Variant)
		return g.placeholder(req), false
	default:
		return Outcome{}, true
	}
}

func (g *Generator) placeholder(req Request) Outcome {
	return Outcome{
		Article: domain.Article{
			Title:   req.Topic.Title,
			Content: placeholderHTML(req.Topic),
			Variant: req.Variant,
		},
		State:      domain.StateGenerating,
		InProgress: true,
	}
}

// run owns the in-flight flag; it is cleared by Complete or, on an early exit, by Release.
func (g *Generator) run(ctx context.Context, req Request) Outcome {
	completed := false
	defer func() {
		if !completed {
			g.store.Release(context.WithoutCancel(ctx), req.Date, req.Variant, req.Topic.ID)
		}
	}()

	logger := g.logger.With("date", req.Date, "topic", req.Topic.ID, "variant", req.Variant)
	logger.Info("article generation started")

	g.progress(ctx, req, domain.ProgressKeywords)
	keywords := g.keywordsFor(ctx, req.Topic)

	g.progress(ctx, req, domain.ProgressContext)
	items := g.gatherContext(ctx, req, keywords)
	logger.Debug("context gathered", "keywords", len(keywords), "items", len(items))

	g.progress(ctx, req, domain.ProgressPrompt)
	prompt := buildPrompt(req.Variant, req.Topic, items, g.opts.PromptItems)

	g.progress(ctx, req, domain.ProgressGenerating)
	content, err := g.compose(ctx, req, prompt)
	fallback := err != nil
	if fallback {
		content = fallbackHTML(req.Topic, err)
		if ctx.Err() != nil {
			// The caller went away; leave the key free for the next request.
			logger.Warn("article generation canceled", "error", err)
			return Outcome{Article: domain.Article{
				Title:           req.Topic.Title,
				Content:         content,
				Completed:       true,
				IsErrorFallback: true,
				Variant:         req.Variant,
			}, State: domain.StateCompletedWithFallback}
		}
		logger.Warn("article generation failed, serving fallback", "error", err)
	}

	g.progress(ctx, req, domain.ProgressFinalizing)
	art := domain.Article{
		Title:           req.Topic.Title,
		Content:         content,
		RelatedNews:     relatedNews(items, g.opts.RelatedNews),
		GeneratedAt:     generatedAt(g.now()),
		Completed:       true,
		IsErrorFallback: fallback,
		Variant:         req.Variant,
	}

	if err := g.store.Complete(context.WithoutCancel(ctx), req.Date, req.Topic.ID, art); err != nil {
		logger.Error("store generated article", "error", err)
	}
	completed = true

	logger.Info("article generation finished", "fallback", fallback, "length", utf8.RuneCountInString(content))
	return Outcome{Article: art, State: art.State()}
}

// compose asks for the article, then retries once with a simplified prompt.
func (g *Generator) compose(ctx context.Context, req Request, prompt string) (string, error) {
	st := styleFor(req.Variant)

	content, err := g.attempt(ctx, ports.GenerationRequest{
		Purpose: ports.PurposeArticle,
		System:  st.system,
		Prompt:  prompt,
	})
	if err == nil {
		return content, nil
	}
	g.logger.Warn("article attempt rejected, retrying with simplified prompt", "topic", req.Topic.ID, "error", err)

	content, retryErr := g.attempt(ctx, ports.GenerationRequest{
		Purpose: ports.PurposeRetry,
		System:  st.system,
		Prompt:  buildRetryPrompt(req.Variant, req.Topic),
	})
	if retryErr != nil {
		return "", fmt.Errorf("retry failed: %w", retryErr)
	}
	return content, nil
}

func (g *Generator) attempt(ctx context.Context, req ports.GenerationRequest) (string, error) {
	raw, err := g.generator.Generate(ctx, req)
	if err != nil {
		return "", fmt.Errorf("generate %s: %w", req.Purpose, err)
	}
	content := strings.TrimSpace(topics.StripCodeFence(raw))
	if n := utf8.RuneCountInString(content); n <= domain.MinContentLength {
		return "", fmt.Errorf("%w: %d characters", ErrContentTooShort, n)
	}
	return content, nil
}

func (g *Generator) progress(ctx context.Context, req Request, value int) {
	if req.Variant != domain.VariantVideoScript {
		return
	}
	g.store.UpdateProgress(context.WithoutCancel(ctx), req.Date, req.Topic.ID, value)
}

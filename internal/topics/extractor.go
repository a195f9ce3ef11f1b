package topics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"NewsDesk/internal/domain"
	"NewsDesk/internal/ports"
)

// Options bound the prompt payload and the result.
type Options struct {
	MaxTopics   int
	FeedItems   int
	SearchItems int
	PromptItems int
}

// Extractor clusters a news corpus into the day's topics with one generation call.
type Extractor struct {
	generator ports.GenerationProvider
	opts      Options
	logger    *slog.Logger
	now       func() time.Time
}

// NewExtractor builds an extractor; generator should already be rate limited.
func NewExtractor(generator ports.GenerationProvider, opts Options, logger *slog.Logger) *Extractor {
	if opts.MaxTopics <= 0 {
		opts.MaxTopics = 6
	}
	if opts.FeedItems <= 0 {
		opts.FeedItems = 20
	}
	if opts.SearchItems <= 0 {
		opts.SearchItems = 10
	}
	if opts.PromptItems <= 0 {
		opts.PromptItems = 25
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Extractor{
		generator: generator,
		opts:      opts,
		logger:    logger.With("component", "topic_extractor"),
		now:       time.Now,
	}
}

// Extract never fails; provider or parse problems produce the default topic set.
func (e *Extractor) Extract(ctx context.Context, corpus []domain.NewsItem) []domain.Topic {
	today := e.now().Format(domain.DateLayout)

	prompt, err := e.buildPrompt(today, e.selectItems(corpus))
	if err != nil {
		e.logger.Warn("build topic prompt", "error", err)
		return e.finish(domain.DefaultTopics(today))
	}

	raw, err := e.generator.Generate(ctx, ports.GenerationRequest{
		Purpose: ports.PurposeTopics,
		System:  "You are an editor who groups international political news into distinct topics and answers in JSON only.",
		Prompt:  prompt,
	})
	if err != nil {
		e.logger.Warn("topic generation failed, using defaults", "error", err)
		return e.finish(domain.DefaultTopics(today))
	}

	topics, err := ParseTopics(raw)
	if err != nil {
		e.logger.Warn("topic response unusable, using defaults", "error", err)
		return e.finish(domain.DefaultTopics(today))
	}

	out := e.finish(topics)
	e.logger.Info("topics extracted", "count", len(out))
	return out
}

func (e *Extractor) finish(topics []domain.Topic) []domain.Topic {
	out := domain.SortAndReindex(topics)
	if len(out) > e.opts.MaxTopics {
		out = out[:e.opts.MaxTopics]
	}
	return out
}

// selectItems puts feed items first, then a bounded slice of search items.
func (e *Extractor) selectItems(corpus []domain.NewsItem) []domain.NewsItem {
	var feed, found []domain.NewsItem
	for _, item := range corpus {
		if item.Origin == domain.OriginSearch {
			found = append(found, item)
		} else {
			feed = append(feed, item)
		}
	}
	if len(feed) > e.opts.FeedItems {
		feed = feed[:e.opts.FeedItems]
	}
	if len(found) > e.opts.SearchItems {
		found = found[:e.opts.SearchItems]
	}

	selected := append(feed, found...)
	if len(selected) > e.opts.PromptItems {
		selected = selected[:e.opts.PromptItems]
	}
	return selected
}

type projection struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Source      string `json:"source"`
	Date        string `json:"date"`
	Category    string `json:"category,omitempty"`
	FromFeed    bool   `json:"isRss"`
}

func project(item domain.NewsItem) projection {
	date := "unknown"
	if !item.PublishedAt.IsZero() {
		date = item.PublishedAt.UTC().Format(time.RFC3339)
	}
	return projection{
		Title:       item.Title,
		Description: truncate(item.Description, 300),
		Source:      item.SourceName,
		Date:        date,
		Category:    item.Category,
		FromFeed:    item.Origin == domain.OriginFeed,
	}
}

func (e *Extractor) buildPrompt(today string, items []domain.NewsItem) (string, error) {
	projected := make([]projection, 0, len(items))
	for _, item := range items {
		projected = append(projected, project(item))
	}
	payload, err := json.MarshalIndent(projected, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal corpus: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Today is %s. Below are recent international politics news items as JSON.\n", today)
	b.WriteString("Items with isRss=true come from curated feeds and should weigh more than search results.\n")
	fmt.Fprintf(&b, "Identify the %d most important distinct topics from the last two days.\n", e.opts.MaxTopics)
	b.WriteString(`Answer with JSON only, shaped as {"topics":[{"id":1,"title":"...","summary":"...","icon":"fa-globe","dateOccurred":"YYYY-MM-DD"}]}.`)
	b.WriteString("\n\nNews items:\n")
	b.Write(payload)
	return b.String(), nil
}

// ErrNoTopics reports a response without a usable topics array.
var ErrNoTopics = errors.New("response has no topics")

type rawTopic struct {
	Title        string `json:"title"`
	Summary      string `json:"summary"`
	Icon         string `json:"icon"`
	DateOccurred string `json:"dateOccurred"`
}

// ParseTopics decodes a {"topics":[...]} answer, tolerating code fences and
// prose around the JSON object. Ids are ignored; they are reassigned later.
func ParseTopics(raw string) ([]domain.Topic, error) {
	body := StripCodeFence(raw)
	if start, end := strings.Index(body, "{"), strings.LastIndex(body, "}"); start >= 0 && end > start {
		body = body[start : end+1]
	}

	var decoded struct {
		Topics []rawTopic `json:"topics"`
	}
	if err := json.Unmarshal([]byte(body), &decoded); err != nil {
		return nil, fmt.Errorf("decode topics: %w", err)
	}

	topics := make([]domain.Topic, 0, len(decoded.Topics))
	for _, t := range decoded.Topics {
		if strings.TrimSpace(t.Title) == "" {
			continue
		}
		icon := strings.TrimSpace(t.Icon)
		if icon == "" {
			icon = "fa-globe"
		}
		topics = append(topics, domain.Topic{
			Title:        strings.TrimSpace(t.Title),
			Summary:      strings.TrimSpace(t.Summary),
			Icon:         icon,
			DateOccurred: strings.TrimSpace(t.DateOccurred),
		})
	}
	if len(topics) == 0 {
		return nil, ErrNoTopics
	}
	return topics, nil
}

// StripCodeFence removes a surrounding ``` or ```json fence.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

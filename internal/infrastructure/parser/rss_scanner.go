package parser

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"NewsDesk/internal/domain"
	"NewsDesk/internal/scanner"
)

// RSSScanner reads RSS, Atom and JSON feeds.
type RSSScanner struct {
	client *http.Client
}

// NewRSSScanner wires an HTTP client; nil gets a 20 second timeout client.
func NewRSSScanner(client *http.Client) *RSSScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &RSSScanner{client: client}
}

// Name identifies the strategy inside the registry.
func (r *RSSScanner) Name() string {
	return domain.FeedKindRSS
}

// Scan downloads the feed document and maps its items in feed order.
func (r *RSSScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.RawEntry, error) {
	body, err := fetchBody(ctx, r.client, req.Source.URL)
	if err != nil {
		return nil, fmt.Errorf("feed %s: %w", req.Source.Name, err)
	}
	defer body.Close()

	feed, err := gofeed.NewParser().Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", req.Source.Name, err)
	}

	count := len(feed.Items)
	if req.Limit > 0 && count > req.Limit {
		count = req.Limit
	}

	entries := make([]domain.RawEntry, 0, count)
	for _, item := range feed.Items[:count] {
		if item == nil {
			continue
		}
		entries = append(entries, toRawEntry(item))
	}
	return entries, nil
}

func toRawEntry(item *gofeed.Item) domain.RawEntry {
	entry := domain.RawEntry{
		Title:       item.Title,
		Link:        item.Link,
		Description: item.Description,
		Published:   item.Published,
	}
	if entry.Description == "" {
		entry.Description = item.Content
	}
	if entry.Published == "" {
		entry.Published = item.Updated
	}

	switch {
	case item.PublishedParsed != nil:
		entry.PublishedAt = item.PublishedParsed
	case item.UpdatedParsed != nil:
		entry.PublishedAt = item.UpdatedParsed
	}

	if len(item.Categories) > 0 {
		entry.Category = item.Categories[0]
	}
	return entry
}

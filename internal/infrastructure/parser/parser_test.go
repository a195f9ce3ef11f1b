package parser

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"NewsDesk/internal/aggregator"
	"NewsDesk/internal/domain"
	"NewsDesk/internal/scanner"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>World</title>
    <item>
      <title>Summit opens</title>
      <link>https://news.example.com/summit</link>
      <description>&lt;p&gt;Leaders meet&lt;/p&gt;</description>
      <pubDate>Mon, 06 Jan 2025 08:00:00 GMT</pubDate>
      <category>diplomacy</category>
    </item>
    <item>
      <title>Talks stall</title>
      <link>https://news.example.com/talks</link>
      <description>No agreement yet</description>
    </item>
    <item>
      <title>Third item</title>
      <link>https://news.example.com/third</link>
    </item>
  </channel>
</rss>`

const sampleListing = `<html><body>
  <article>
    <h2>Ceasefire holds</h2>
    <a href="/world/ceasefire">read</a>
    <p>Quiet night along the border.</p>
    <time datetime="2025-01-06T07:30:00Z">6 Jan</time>
  </article>
  <article>
    <h2></h2>
    <a href="/world/empty">skip</a>
  </article>
  <article>
    <h2>Election called</h2>
    <a href="https://other.example.org/election">read</a>
  </article>
</body></html>`

func TestRSSScannerMapsItems(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != userAgent {
			t.Errorf("unexpected user agent: %s", r.Header.Get("User-Agent"))
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(sampleRSS))
	}))
	defer srv.Close()

	entries, err := NewRSSScanner(srv.Client()).Scan(context.Background(), scanner.Request{
		Source: domain.FeedSource{Name: "world", URL: srv.URL},
		Limit:  2,
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries after limit, got %d", len(entries))
	}

	first := entries[0]
	if first.Title != "Summit opens" || first.Link != "https://news.example.com/summit" {
		t.Fatalf("unexpected first entry: %+v", first)
	}
	if first.PublishedAt == nil || first.PublishedAt.Day() != 6 {
		t.Fatalf("expected parsed publish date, got %v", first.PublishedAt)
	}
	if first.Category != "diplomacy" {
		t.Fatalf("unexpected category: %s", first.Category)
	}
	if entries[1].PublishedAt != nil {
		t.Fatalf("undated item should have no parsed date")
	}
}

func TestRSSScannerHTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewRSSScanner(srv.Client()).Scan(context.Background(), scanner.Request{
		Source: domain.FeedSource{Name: "broken", URL: srv.URL},
	})
	if err == nil || !strings.Contains(err.Error(), "502") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestHTMLScannerResolvesLinks(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleListing))
	}))
	defer srv.Close()

	entries, err := NewHTMLScanner(srv.Client()).Scan(context.Background(), scanner.Request{
		Source: domain.FeedSource{Name: "listing", URL: srv.URL + "/world/", Kind: domain.FeedKindHTML},
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries (untitled skipped), got %d", len(entries))
	}
	if entries[0].Link != srv.URL+"/world/ceasefire" {
		t.Fatalf("expected resolved link, got %s", entries[0].Link)
	}
	if entries[0].Published != "2025-01-06T07:30:00Z" {
		t.Fatalf("expected datetime attribute, got %q", entries[0].Published)
	}
	if entries[0].Description != "Quiet night along the border." {
		t.Fatalf("unexpected description: %q", entries[0].Description)
	}
	if entries[1].Link != "https://other.example.org/election" {
		t.Fatalf("absolute link should be kept, got %s", entries[1].Link)
	}
}

type stubScanner struct {
	name    string
	entries []domain.RawEntry
	gotReq  scanner.Request
}

func (s *stubScanner) Name() string { return s.name }

func (s *stubScanner) Scan(_ context.Context, req scanner.Request) ([]domain.RawEntry, error) {
	s.gotReq = req
	return s.entries, nil
}

func TestStrategySourceDefaultsKindAndCategory(t *testing.T) {
	t.Parallel()

	rss := &stubScanner{name: domain.FeedKindRSS, entries: []domain.RawEntry{{Title: "a"}, {Title: "b", Category: "own"}}}
	src := NewStrategySource(scanner.NewRegistry(rss), nil)

	entries, err := src.Fetch(context.Background(), domain.FeedSource{Name: "x", URL: "http://x", Category: "world"})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if rss.gotReq.Limit != maxEntriesPerDocument {
		t.Fatalf("expected document bound, got %d", rss.gotReq.Limit)
	}
	if entries[0].Category != "world" || entries[1].Category != "own" {
		t.Fatalf("unexpected categories: %+v", entries)
	}

	if _, err := src.Fetch(context.Background(), domain.FeedSource{Name: "y", Kind: "ftp"}); err == nil {
		t.Fatalf("expected unknown kind to fail")
	}
}

func TestOldestFirstFeedKeepsNewestItems(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><rss version="2.0"><channel><title>Oldest first</title>`)
	for i := 1; i <= 15; i++ {
		fmt.Fprintf(&b, "<item><title>Item %d</title><link>https://news.example.com/%d</link><pubDate>%s</pubDate></item>",
			i, i, start.Add(time.Duration(i)*time.Hour).Format(time.RFC1123Z))
	}
	b.WriteString(`</channel></rss>`)
	feed := b.String()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(feed))
	}))
	defer srv.Close()

	src := NewStrategySource(scanner.NewRegistry(NewRSSScanner(srv.Client())), nil)
	agg := aggregator.New(src, aggregator.Options{PerSource: 12}, nil)

	items, _ := agg.FetchAll(context.Background(), []domain.FeedSource{{Name: "oldest", URL: srv.URL}})
	if len(items) != 12 {
		t.Fatalf("expected 12 items, got %d", len(items))
	}
	if items[0].Title != "Item 15" || items[11].Title != "Item 4" {
		t.Fatalf("expected items 15..4, got newest=%q oldest=%q", items[0].Title, items[11].Title)
	}
}

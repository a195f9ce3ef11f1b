package parser

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"NewsDesk/internal/domain"
	"NewsDesk/internal/scanner"
)

// Selector option keys for html sources.
const (
	OptionItem        = "item"
	OptionTitle       = "title"
	OptionLink        = "link"
	OptionDescription = "description"
	OptionDate        = "date"
	OptionDateAttr    = "dateAttr"
)

var defaultSelectors = map[string]string{
	OptionItem:        "article",
	OptionTitle:       "h2, h3",
	OptionLink:        "a[href]",
	OptionDescription: "p",
	OptionDate:        "time",
	OptionDateAttr:    "datetime",
}

// HTMLScanner scrapes a news listing page using CSS selectors from the source options.
type HTMLScanner struct {
	client *http.Client
}

// NewHTMLScanner wires an HTTP client; nil gets a 20 second timeout client.
func NewHTMLScanner(client *http.Client) *HTMLScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &HTMLScanner{client: client}
}

// Name identifies the strategy inside the registry.
func (h *HTMLScanner) Name() string {
	return domain.FeedKindHTML
}

// Scan walks every item block of the listing page in document order.
func (h *HTMLScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.RawEntry, error) {
	base, err := url.Parse(req.Source.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid listing url %s: %w", req.Source.URL, err)
	}

	body, err := fetchBody(ctx, h.client, req.Source.URL)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", req.Source.Name, err)
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return extractEntries(doc, base, req.Source.Options, req.Limit), nil
}

func extractEntries(doc *goquery.Document, base *url.URL, options map[string]string, limit int) []domain.RawEntry {
	sel := func(key string) string {
		if v := strings.TrimSpace(options[key]); v != "" {
			return v
		}
		return defaultSelectors[key]
	}

	var entries []domain.RawEntry
	doc.Find(sel(OptionItem)).EachWithBreak(func(_ int, item *goquery.Selection) bool {
		entry, ok := parseItem(item, base, sel)
		if ok {
			entries = append(entries, entry)
		}
		return limit <= 0 || len(entries) < limit
	})
	return entries
}

func parseItem(item *goquery.Selection, base *url.URL, sel func(string) string) (domain.RawEntry, bool) {
	title := strings.TrimSpace(item.Find(sel(OptionTitle)).First().Text())

	link := item.Find(sel(OptionLink)).First()
	if goquery.NodeName(item) == "a" {
		link = item
	}
	href, _ := link.Attr("href")
	href = strings.TrimSpace(href)
	if title == "" || href == "" {
		return domain.RawEntry{}, false
	}
	if ref, err := url.Parse(href); err == nil {
		href = base.ResolveReference(ref).String()
	}

	dateNode := item.Find(sel(OptionDate)).First()
	published, ok := dateNode.Attr(sel(OptionDateAttr))
	if !ok || strings.TrimSpace(published) == "" {
		published = dateNode.Text()
	}

	return domain.RawEntry{
		Title:       title,
		Link:        href,
		Description: strings.TrimSpace(item.Find(sel(OptionDescription)).First().Text()),
		Published:   strings.TrimSpace(published),
	}, true
}

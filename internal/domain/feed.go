package domain

import "time"

// FeedSource kinds understood by the scanner registry.
const (
	FeedKindRSS  = "rss"
	FeedKindHTML = "html"
)

// FeedSource is one configured syndication endpoint.
type FeedSource struct {
	Name     string
	URL      string
	Kind     string
	Category string
	// Options carries strategy specific settings, e.g. CSS selectors for html listings.
	Options map[string]string
}

// RawEntry is a loosely typed syndication entry as returned by a feed strategy.
// Any field may be empty.
type RawEntry struct {
	Title       string
	Link        string
	Description string
	Published   string
	PublishedAt *time.Time
	Category    string
}

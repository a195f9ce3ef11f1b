package domain

import (
	"net/url"
	"strings"
	"time"
)

// Origin tags where a NewsItem came from.
type Origin string

const (
	OriginFeed   Origin = "feed"
	OriginSearch Origin = "search"
)

// NewsItem is one normalized piece of source material.
type NewsItem struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	SourceName  string    `json:"source"`
	Domain      string    `json:"domain"`
	Category    string    `json:"category"`
	PublishedAt time.Time `json:"publishedAt"`
	Origin      Origin    `json:"origin"`
	IsRecent    bool      `json:"isRecent"`
	Query       string    `json:"query,omitempty"`
}

// RecentWithin reports whether the item was published within window of now.
func (n NewsItem) RecentWithin(now time.Time, window time.Duration) bool {
	if n.PublishedAt.IsZero() {
		return n.IsRecent
	}
	return !n.PublishedAt.Before(now.Add(-window))
}

// DedupeByURL keeps the first item for every canonical URL.
func DedupeByURL(items []NewsItem) []NewsItem {
	seen := make(map[string]struct{}, len(items))
	out := make([]NewsItem, 0, len(items))
	for _, item := range items {
		key := CanonicalURL(item.URL)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	return out
}

// CanonicalURL normalizes a link so that trivially different spellings collapse:
// lowercase scheme and host, no fragment, no tracking parameters, no trailing slash.
func CanonicalURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return strings.ToLower(raw)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	q := u.Query()
	for k := range q {
		lk := strings.ToLower(k)
		if strings.HasPrefix(lk, "utm_") || lk == "fbclid" || lk == "gclid" {
			q.Del(k)
		}
	}
	u.RawQuery = q.Encode()

	return strings.TrimRight(u.String(), "/")
}

// HostOf returns the host of a link without a leading "www.".
func HostOf(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

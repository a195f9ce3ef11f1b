package domain

import (
	"strconv"
	"strings"
)

// SearchQuery is the full parameter tuple sent to a search provider.
type SearchQuery struct {
	Text      string
	Count     int
	Freshness string
	Language  string
	Country   string
}

// Key identifies the query for caching.
func (q SearchQuery) Key() string {
	return strings.Join([]string{q.Text, strconv.Itoa(q.Count), q.Freshness, q.Language, q.Country}, "|")
}

// SearchResult is one web result returned by a search provider.
type SearchResult struct {
	Title         string
	URL           string
	Description   string
	Age           string
	PublishedDate string
	Domain        string
}

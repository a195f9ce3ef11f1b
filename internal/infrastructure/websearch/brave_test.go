package websearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"NewsDesk/internal/domain"
	"NewsDesk/internal/ratelimit"
)

func TestSearchMapsResults(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Subscription-Token") != "key" {
			t.Errorf("missing subscription token")
		}
		q := r.URL.Query()
		if q.Get("q") != "nato latest" || q.Get("count") != "5" || q.Get("freshness") != "pd" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"web":{"results":[
			{"title":"NATO meets","url":"https://www.bbc.com/n","description":"d","age":"2 hours ago","meta_url":{"hostname":"www.bbc.com"}},
			{"title":"Older","url":"https://apnews.com/o","page_age":"2025-01-01T00:00:00"}
		]}}`))
	}))
	defer srv.Close()

	client := NewClient(Config{Endpoint: srv.URL, APIKey: "key"}, srv.Client())
	results, err := client.Search(context.Background(), domain.SearchQuery{Text: "nato latest", Count: 5, Freshness: "pd"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Domain != "bbc.com" || results[0].Age != "2 hours ago" {
		t.Fatalf("unexpected first result: %+v", results[0])
	}
	if results[1].Age != "2025-01-01T00:00:00" {
		t.Fatalf("expected page_age fallback, got %q", results[1].Age)
	}
}

func TestSearchRateLimited(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(Config{Endpoint: srv.URL, APIKey: "key"}, srv.Client())
	_, err := client.Search(context.Background(), domain.SearchQuery{Text: "x"})
	if !ratelimit.IsRateLimited(err) {
		t.Fatalf("expected rate limited error, got %v", err)
	}
}

func TestSearchRequiresKey(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(Config{}, nil).Search(context.Background(), domain.SearchQuery{Text: "x"}); err == nil {
		t.Fatalf("expected misconfiguration error")
	}
}

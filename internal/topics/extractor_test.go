package topics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"NewsDesk/internal/domain"
	"NewsDesk/internal/ports"
)

type stubGenerator struct {
	reply string
	err   error
	reqs  []ports.GenerationRequest
}

func (s *stubGenerator) Generate(_ context.Context, req ports.GenerationRequest) (string, error) {
	s.reqs = append(s.reqs, req)
	return s.reply, s.err
}

func newTestExtractor(gen ports.GenerationProvider) *Extractor {
	e := NewExtractor(gen, Options{}, nil)
	e.now = func() time.Time { return time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC) }
	return e
}

func TestExtractSortsAndReindexes(t *testing.T) {
	t.Parallel()

	gen := &stubGenerator{reply: "```json\n" + `{"topics":[
		{"id":7,"title":"B","summary":"b","icon":"fa-a","dateOccurred":"2025-01-04"},
		{"id":3,"title":"A","summary":"a","icon":"fa-b","dateOccurred":"2025-01-06"},
		{"id":9,"title":"Undated","summary":"u"},
		{"id":1,"title":"C","summary":"c","icon":"fa-c","dateOccurred":"2025-01-05"}
	]}` + "\n```"}

	got := newTestExtractor(gen).Extract(context.Background(), []domain.NewsItem{{Title: "x", Origin: domain.OriginFeed}})

	wantTitles := []string{"A", "C", "B", "Undated"}
	if len(got) != len(wantTitles) {
		t.Fatalf("expected %d topics, got %d", len(wantTitles), len(got))
	}
	for i, topic := range got {
		if topic.Title != wantTitles[i] || topic.ID != i+1 {
			t.Fatalf("position %d: got id=%d title=%s", i, topic.ID, topic.Title)
		}
	}
	if got[3].Icon != "fa-globe" {
		t.Fatalf("missing icon should default, got %q", got[3].Icon)
	}
	if len(gen.reqs) != 1 || gen.reqs[0].Purpose != ports.PurposeTopics {
		t.Fatalf("expected exactly one topics call, got %d", len(gen.reqs))
	}
}

func TestExtractFallsBackToDefaults(t *testing.T) {
	t.Parallel()

	cases := map[string]*stubGenerator{
		"provider error": {err: errors.New("boom")},
		"not json":       {reply: "I cannot help with that"},
		"empty topics":   {reply: `{"topics":[]}`},
	}
	for name, gen := range cases {
		got := newTestExtractor(gen).Extract(context.Background(), nil)
		if len(got) != 6 {
			t.Fatalf("%s: expected 6 default topics, got %d", name, len(got))
		}
		if got[0].DateOccurred != "2025-01-06" || got[0].ID != 1 {
			t.Fatalf("%s: unexpected first default: %+v", name, got[0])
		}
	}
}

func TestExtractTruncatesToMax(t *testing.T) {
	t.Parallel()

	var parts []string
	for i := 0; i < 9; i++ {
		parts = append(parts, fmt.Sprintf(`{"title":"T%d","dateOccurred":"2025-01-0%d"}`, i, i+1))
	}
	gen := &stubGenerator{reply: `{"topics":[` + strings.Join(parts, ",") + `]}`}

	got := newTestExtractor(gen).Extract(context.Background(), nil)
	if len(got) != 6 {
		t.Fatalf("expected 6 topics, got %d", len(got))
	}
	if got[0].Title != "T8" {
		t.Fatalf("newest topic should come first, got %s", got[0].Title)
	}
}

func TestSelectItemsPrefersFeed(t *testing.T) {
	t.Parallel()

	var corpus []domain.NewsItem
	for i := 0; i < 15; i++ {
		corpus = append(corpus, domain.NewsItem{Title: fmt.Sprintf("s%d", i), Origin: domain.OriginSearch})
	}
	for i := 0; i < 30; i++ {
		corpus = append(corpus, domain.NewsItem{Title: fmt.Sprintf("f%d", i), Origin: domain.OriginFeed})
	}

	got := newTestExtractor(&stubGenerator{}).selectItems(corpus)
	if len(got) != 25 {
		t.Fatalf("expected 25 prompt items, got %d", len(got))
	}
	for i := 0; i < 20; i++ {
		if got[i].Origin != domain.OriginFeed {
			t.Fatalf("item %d should be feed-origin", i)
		}
	}
	if got[20].Origin != domain.OriginSearch {
		t.Fatalf("search items should follow feed items")
	}
}

func TestStripCodeFence(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"```json\n{\"a\":1}\n```": `{"a":1}`,
		"```\n{}\n```":            `{}`,
		`{"plain":true}`:          `{"plain":true}`,
	}
	for in, want := range cases {
		if got := StripCodeFence(in); got != want {
			t.Fatalf("StripCodeFence(%q) = %q, want %q", in, got, want)
		}
	}
}

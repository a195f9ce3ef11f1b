package articles

import (
	"context"
	"strings"
	"unicode"

	"NewsDesk/internal/domain"
)

// gatherContext searches the top keywords and merges the results with caller
// supplied items that mention the topic title.
func (g *Generator) gatherContext(ctx context.Context, req Request, keywords []string) []domain.NewsItem {
	var gathered []domain.NewsItem

	searched := keywords
	if len(searched) > g.opts.SearchKeywords {
		searched = searched[:g.opts.SearchKeywords]
	}
	for _, kw := range searched {
		if ctx.Err() != nil {
			break
		}
		gathered = append(gathered, g.searcher.Search(ctx, domain.SearchQuery{
			Text:  kw,
			Count: g.opts.PerKeyword,
		})...)
	}

	candidates := req.Context
	if len(candidates) == 0 && g.corpus != nil {
		candidates, _ = g.corpus.Get(ctx, req.Date)
	}
	gathered = append(gathered, matchTopic(candidates, req.Topic, g.opts.CallerContext)...)

	gathered = domain.DedupeByURL(gathered)
	out := make([]domain.NewsItem, 0, len(gathered))
	for _, item := range gathered {
		if strings.TrimSpace(item.Title) == "" || strings.TrimSpace(item.Description) == "" {
			continue
		}
		out = append(out, item)
		if len(out) == g.opts.ContextLimit {
			break
		}
	}
	return out
}

// matchTopic keeps items whose title or description contains a word of the topic title.
func matchTopic(items []domain.NewsItem, topic domain.Topic, limit int) []domain.NewsItem {
	words := titleWords(topic.Title)
	if len(words) == 0 {
		return nil
	}

	var out []domain.NewsItem
	for _, item := range items {
		text := strings.ToLower(item.Title + " " + item.Description)
		for _, w := range words {
			if strings.Contains(text, w) {
				out = append(out, item)
				break
			}
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func titleWords(title string) []string {
	fields := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) > 2 && !stopWords[f] {
			out = append(out, f)
		}
	}
	return out
}

var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "from": true,
	"over": true, "into": true, "after": true, "amid": true, "latest": true,
}

func relatedNews(items []domain.NewsItem, limit int) []domain.RelatedNews {
	out := make([]domain.RelatedNews, 0, limit)
	for _, item := range items {
		if len(out) == limit {
			break
		}
		when := ""
		if !item.PublishedAt.IsZero() {
			when = item.PublishedAt.UTC().Format("2006-01-02 15:04")
		}
		out = append(out, domain.RelatedNews{
			Title:  item.Title,
			Source: item.SourceName,
			Time:   when,
			URL:    item.URL,
		})
	}
	return out
}

package articles

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"NewsDesk/internal/domain"
	"NewsDesk/internal/ports"
	"NewsDesk/internal/topics"
)

const minKeywords = 3

var listMarker = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s*`)

// keywordsFor derives search keywords for a topic, cached per topic title.
// Provider failures fall back to templated keywords, which are not cached.
func (g *Generator) keywordsFor(ctx context.Context, topic domain.Topic) []string {
	key := strings.ToLower(strings.TrimSpace(topic.Title))
	if g.keywords != nil {
		if cached, ok := g.keywords.Get(ctx, key); ok && len(cached) > 0 {
			return cached
		}
	}

	raw, err := g.generator.Generate(ctx, ports.GenerationRequest{
		Purpose: ports.PurposeKeywords,
		System:  "You produce web search keywords for news research.",
		Prompt: fmt.Sprintf(
			"Give %d to %d short English web search queries that would find the latest news about this topic.\n"+
				"Topic: %s\nSummary: %s\nAnswer with a JSON array of strings only.",
			5, g.opts.MaxKeywords, topic.Title, topic.Summary),
	})
	if err != nil {
		g.logger.Warn("keyword generation failed, using templates", "topic", topic.Title, "error", err)
		return fallbackKeywords(topic)
	}

	keywords := ParseKeywords(raw, g.opts.MaxKeywords)
	if len(keywords) < minKeywords {
		g.logger.Warn("too few keywords, using templates", "topic", topic.Title, "count", len(keywords))
		return fallbackKeywords(topic)
	}
	if g.keywords != nil {
		g.keywords.Put(ctx, key, keywords)
	}
	return keywords
}

// ParseKeywords reads a JSON array of strings, or one keyword per line.
func ParseKeywords(raw string, limit int) []string {
	body := topics.StripCodeFence(raw)

	var candidates []string
	if start, end := strings.Index(body, "["), strings.LastIndex(body, "]"); start >= 0 && end > start {
		var arr []string
		if err := json.Unmarshal([]byte(body[start:end+1]), &arr); err == nil {
			candidates = arr
		}
	}
	if candidates == nil {
		for _, line := range strings.Split(body, "\n") {
			candidates = append(candidates, listMarker.ReplaceAllString(line, ""))
		}
	}

	seen := map[string]struct{}{}
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		c = strings.Trim(strings.TrimSpace(c), `"'`)
		if c == "" {
			continue
		}
		lower := strings.ToLower(c)
		if _, ok := seen[lower]; ok {
			continue
		}
		seen[lower] = struct{}{}
		out = append(out, c)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func fallbackKeywords(topic domain.Topic) []string {
	title := strings.TrimSpace(topic.Title)
	return []string{
		title,
		title + " latest news",
		title + " analysis",
		title + " international reaction",
		title + " background",
	}
}

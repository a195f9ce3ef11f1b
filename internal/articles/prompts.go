package articles

import (
	"fmt"
	"html"
	"strings"
	"time"

	"NewsDesk/internal/domain"
)

type style struct {
	system       string
	instructions string
	length       string
}

var styles = map[domain.Variant]style{
	domain.VariantStandard: {
		system: "You are a senior international affairs correspondent writing analytical long-form articles in HTML.",
		instructions: "Write a formal, analytical article. Structure it with <h2> sections covering background, " +
			"current developments, positions of the main actors, international reaction and outlook. " +
			"Cite sources by name inside the text.",
		length: "1500 to 2500 words",
	},
	domain.VariantInformal: {
		system: "You are a witty explainer who makes world politics approachable for readers in their twenties.",
		instructions: "Write in a casual, conversational register with short paragraphs, rhetorical questions and " +
			"everyday analogies. Keep the facts precise. Use <h2> headings and finish with a short 'why it matters' section.",
		length: "1200 to 2000 words",
	},
	domain.VariantVideoScript: {
		system: "You write scripts for ten minute explainer videos about international news.",
		instructions: "Write a video script in HTML. Split it into numbered scenes. For every scene give " +
			"<h3>Scene N</h3>, a <p class=\"visual\"> line describing what is on screen and a <p class=\"narration\"> " +
			"block with the spoken text. Open with a hook and close with a call to action.",
		length: "1200 to 1800 words",
	},
}

func styleFor(v domain.Variant) style {
	if s, ok := styles[v]; ok {
		return s
	}
	return styles[domain.VariantStandard]
}

func buildPrompt(v domain.Variant, topic domain.Topic, items []domain.NewsItem, limit int) string {
	st := styleFor(v)

	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\nSummary: %s\n", topic.Title, topic.Summary)
	if topic.DateOccurred != "" {
		fmt.Fprintf(&b, "Date: %s\n", topic.DateOccurred)
	}
	b.WriteString("\nRelevant reporting:\n")
	if len(items) == 0 {
		b.WriteString("(no supporting articles were found; rely on well established background only)\n")
	}
	for i, item := range items {
		if i == limit {
			break
		}
		fmt.Fprintf(&b, "%d. %s (%s)\n   %s\n", i+1, item.Title, item.SourceName, truncate(item.Description, 400))
	}
	fmt.Fprintf(&b, "\n%s\nLength: %s. Return only the HTML body, no markdown fences.", st.instructions, st.length)
	return b.String()
}

func buildRetryPrompt(v domain.Variant, topic domain.Topic) string {
	kind := "news article"
	if v == domain.VariantVideoScript {
		kind = "video script with numbered scenes"
	}
	return fmt.Sprintf(
		"Write a %s in HTML of at least 800 words about %q. Summary: %s. Use <h2> headings and <p> paragraphs only.",
		kind, topic.Title, topic.Summary)
}

func fallbackHTML(topic domain.Topic, cause error) string {
	reason := "the generation service did not return usable content"
	if cause != nil {
		reason = cause.Error()
	}
	return fmt.Sprintf(`<article class="fallback">
<h2>%s</h2>
<p>%s</p>
<p class="notice">We could not produce the full article right now. Please try again in a few minutes.</p>
<p class="error">Reason: %s</p>
</article>`, html.EscapeString(topic.Title), html.EscapeString(topic.Summary), html.EscapeString(reason))
}

func placeholderHTML(topic domain.Topic) string {
	return fmt.Sprintf(`<article class="generating">
<h2>%s</h2>
<p>This article is being written. Check back in a moment.</p>
</article>`, html.EscapeString(topic.Title))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func generatedAt(now time.Time) time.Time {
	return now.UTC().Truncate(time.Second)
}

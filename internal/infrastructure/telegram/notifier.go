package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"NewsDesk/internal/ports"
	"NewsDesk/internal/ratelimit"
)

const (
	defaultAPIBase = "https://api.telegram.org"
	// maxMessageLen is the bot API limit for one text message.
	maxMessageLen = 4096
)

// Config identifies the bot and the destination chat.
type Config struct {
	BotToken string
	ChatID   string
	APIBase  string
	Timeout  time.Duration
}

// Notifier sends topic digests to a Telegram chat via bot API.
type Notifier struct {
	botToken string
	chatID   string
	apiBase  string
	client   *http.Client
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier.
func NewNotifier(cfg Config, httpClient *http.Client) *Notifier {
	if cfg.APIBase == "" {
		cfg.APIBase = defaultAPIBase
	}
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Notifier{
		botToken: cfg.BotToken,
		chatID:   cfg.ChatID,
		apiBase:  strings.TrimRight(cfg.APIBase, "/"),
		client:   httpClient,
	}
}

// Configured reports whether both token and chat are set.
func (n *Notifier) Configured() bool {
	return n != nil && n.botToken != "" && n.chatID != ""
}

// PublishDigest posts a Markdown digest, split into several messages when it
// exceeds the per-message limit.
func (n *Notifier) PublishDigest(ctx context.Context, digest string) error {
	if !n.Configured() {
		return fmt.Errorf("telegram notifier misconfigured")
	}
	for i, part := range splitMessage(digest, maxMessageLen) {
		if err := n.send(ctx, part); err != nil {
			return fmt.Errorf("send part %d: %w", i+1, err)
		}
	}
	return nil
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Parameters  struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

func (n *Notifier) send(ctx context.Context, text string) error {
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.botToken)
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", text)
	form.Set("parse_mode", "Markdown")
	form.Set("disable_web_page_preview", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return nil
	}

	var body apiResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(raw, &body)
	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("telegram: retry after %ds: %w", body.Parameters.RetryAfter, ratelimit.ErrRateLimited)
	}
	if body.Description != "" {
		return fmt.Errorf("telegram error: %s: %s", resp.Status, body.Description)
	}
	return fmt.Errorf("telegram error: %s", resp.Status)
}

// splitMessage cuts text at line boundaries into chunks of at most limit bytes.
// A single line longer than limit is cut hard.
func splitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}
	var parts []string
	var b strings.Builder
	flush := func() {
		if b.Len() > 0 {
			parts = append(parts, strings.TrimRight(b.String(), "\n"))
			b.Reset()
		}
	}
	for _, line := range strings.SplitAfter(text, "\n") {
		for len(line) > limit {
			flush()
			cut := runeCut(line, limit)
			parts = append(parts, line[:cut])
			line = line[cut:]
		}
		if b.Len()+len(line) > limit {
			flush()
		}
		b.WriteString(line)
	}
	flush()
	return parts
}

// runeCut returns the largest index at or below limit that does not split a UTF-8 sequence.
func runeCut(s string, limit int) int {
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	if cut == 0 {
		return limit
	}
	return cut
}

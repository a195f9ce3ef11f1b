package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"NewsDesk/internal/ports"
	"NewsDesk/internal/ratelimit"
)

func TestGenerateReturnsFirstChoice(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("missing bearer token")
		}
		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body.Model != "gpt-4o-mini" || len(body.Messages) != 2 || body.Messages[0].Content != "sys" {
			t.Errorf("unexpected request body: %+v", body)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"  hello  "},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	client := NewChatGPTClient(Config{BaseURL: srv.URL + "/v1", Model: "gpt-4o-mini", APIKey: "secret"}, srv.Client())
	got, err := client.Generate(context.Background(), ports.GenerationRequest{Purpose: ports.PurposeTopics, System: "sys", Prompt: "p"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got != "hello" {
		t.Fatalf("unexpected completion %q", got)
	}
}

func TestGenerateMapsTooManyRequests(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit","code":"rate_limit_exceeded"}}`))
	}))
	defer srv.Close()

	client := NewChatGPTClient(Config{BaseURL: srv.URL + "/v1", Model: "m", APIKey: "k"}, srv.Client())
	_, err := client.Generate(context.Background(), ports.GenerationRequest{Purpose: ports.PurposeArticle, Prompt: "p"})
	if !ratelimit.IsRateLimited(err) {
		t.Fatalf("expected rate limited error, got %v", err)
	}
}

func TestGenerateEmptyChoice(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","choices":[]}`))
	}))
	defer srv.Close()

	client := NewChatGPTClient(Config{BaseURL: srv.URL + "/v1", Model: "m", APIKey: "k"}, srv.Client())
	if _, err := client.Generate(context.Background(), ports.GenerationRequest{Prompt: "p"}); err == nil {
		t.Fatalf("expected error for empty completion")
	}
}

func TestGenerateMisconfigured(t *testing.T) {
	t.Parallel()

	if _, err := NewChatGPTClient(Config{}, nil).Generate(context.Background(), ports.GenerationRequest{}); err == nil {
		t.Fatalf("expected misconfiguration error")
	}
}

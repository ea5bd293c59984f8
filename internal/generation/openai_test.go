package generation

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/STRATINT/replybot/internal/config"
	"github.com/STRATINT/replybot/internal/logging"
)

type capturedRequest struct {
	Model               string  `json:"model"`
	Temperature         float32 `json:"temperature"`
	MaxCompletionTokens int     `json:"max_completion_tokens"`
	Messages            []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newTestServer(t *testing.T, reply string, captured *capturedRequest) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, captured); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		choices := `[]`
		if reply != "" {
			choices = `[{"index":0,"message":{"role":"assistant","content":` + mustJSON(t, reply) + `},"finish_reason":"stop"}]`
		}
		_, _ = w.Write([]byte(`{"id":"cmpl-1","object":"chat.completion","choices":` + choices + `,"usage":{"total_tokens":12}}`))
	}))
	t.Cleanup(server.Close)
	return server
}

func mustJSON(t *testing.T, s string) string {
	t.Helper()
	b, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(b)
}

func TestGenerateTextStandardModel(t *testing.T) {
	var captured capturedRequest
	server := newTestServer(t, "  great point!  ", &captured)

	cfg := config.OpenAIConfig{APIKey: "sk-test", Model: "gpt-4o-mini", Temperature: 0.7, MaxTokens: 120}
	client := NewOpenAIClientWithBaseURL(cfg, server.URL, logging.Discard())

	text, err := client.GenerateText(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("GenerateText returned error: %v", err)
	}
	if text != "great point!" {
		t.Errorf("expected trimmed text, got %q", text)
	}
	if captured.Model != "gpt-4o-mini" || captured.MaxCompletionTokens != 120 {
		t.Errorf("unexpected request: %+v", captured)
	}
	if len(captured.Messages) != 2 || captured.Messages[0].Role != "system" {
		t.Errorf("expected system and user messages, got %+v", captured.Messages)
	}
	if captured.Temperature != 0.7 {
		t.Errorf("expected temperature 0.7, got %v", captured.Temperature)
	}
}

func TestGenerateTextReasoningModelMergesPrompts(t *testing.T) {
	var captured capturedRequest
	server := newTestServer(t, "ok", &captured)

	cfg := config.OpenAIConfig{APIKey: "sk-test", Model: "o3-mini", Temperature: 0.7}
	client := NewOpenAIClientWithBaseURL(cfg, server.URL, logging.Discard())

	if _, err := client.GenerateText(context.Background(), "system", "user"); err != nil {
		t.Fatalf("GenerateText returned error: %v", err)
	}
	if len(captured.Messages) != 1 || captured.Messages[0].Role != "user" {
		t.Fatalf("expected a single user message, got %+v", captured.Messages)
	}
	if captured.Messages[0].Content != "system\n\nuser" {
		t.Errorf("unexpected merged prompt %q", captured.Messages[0].Content)
	}
	if captured.Temperature != 0 {
		t.Errorf("expected temperature to be omitted, got %v", captured.Temperature)
	}
}

func TestGenerateTextNoChoicesIsEmpty(t *testing.T) {
	var captured capturedRequest
	server := newTestServer(t, "", &captured)

	cfg := config.OpenAIConfig{APIKey: "sk-test", Model: "gpt-4o-mini"}
	client := NewOpenAIClientWithBaseURL(cfg, server.URL, logging.Discard())

	text, err := client.GenerateText(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("expected no error for empty completion, got %v", err)
	}
	if text != "" {
		t.Errorf("expected empty text, got %q", text)
	}
}

func TestGenerateTextAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	}))
	t.Cleanup(server.Close)

	cfg := config.OpenAIConfig{APIKey: "sk-test", Model: "gpt-4o-mini"}
	client := NewOpenAIClientWithBaseURL(cfg, server.URL, logging.Discard())

	if _, err := client.GenerateText(context.Background(), "system", "user"); err == nil {
		t.Fatal("expected error from failing API")
	}
}

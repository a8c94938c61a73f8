package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestMessageConstructors(t *testing.T) {
	sys := SystemMessage("You are Stock Unlock.")
	if sys.Role != RoleSystem || sys.Content != "You are Stock Unlock." {
		t.Fatalf("SystemMessage: got %+v", sys)
	}

	user := UserMessage("hello")
	if user.Role != RoleUser || user.Content != "hello" {
		t.Fatalf("UserMessage: got %+v", user)
	}

	asst := AssistantMessage("hi there")
	if asst.Role != RoleAssistant || asst.Content != "hi there" {
		t.Fatalf("AssistantMessage: got %+v", asst)
	}
}

func TestResponseString(t *testing.T) {
	r := &Response{
		Model:   "gpt-4o-mini",
		Content: "short answer",
		Usage:   Usage{TotalTokens: 50},
		Latency: 100 * time.Millisecond,
	}
	s := r.String()
	if !strings.Contains(s, "gpt-4o-mini") || !strings.Contains(s, "50 tokens") {
		t.Fatalf("unexpected String(): %s", s)
	}

	r.Content = strings.Repeat("x", 200)
	if s = r.String(); !strings.Contains(s, "...") {
		t.Fatalf("long content not truncated: %s", s)
	}
}

func TestNewOpenAIProviderRequiresKey(t *testing.T) {
	if _, err := NewOpenAIProvider(""); !errors.Is(err, ErrNoAPIKey) {
		t.Fatalf("got %v, want ErrNoAPIKey", err)
	}
}

func newChatServer(t *testing.T, handler http.HandlerFunc) *OpenAIProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := NewOpenAIProvider("test-key", WithOpenAIBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewOpenAIProvider: %v", err)
	}
	return p
}

func TestChat(t *testing.T) {
	p := newChatServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("missing auth header, got %q", got)
		}
		var req openAIChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}
		fmt.Fprint(w, `{
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "RELIANCE looks steady."}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 40, "completion_tokens": 8, "total_tokens": 48}
		}`)
	})

	resp, err := p.Chat(context.Background(), []Message{
		SystemMessage("You are Stock Unlock."),
		UserMessage("Tell me about RELIANCE"),
	}, nil)
	if err != nil {
		t.Fatalf("Chat() error: %v", err)
	}
	if resp.Content != "RELIANCE looks steady." {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.Usage.TotalTokens != 48 {
		t.Errorf("TotalTokens = %d, want 48", resp.Usage.TotalTokens)
	}
}

func TestChatAPIErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{
			name:    "unauthorized",
			status:  http.StatusUnauthorized,
			body:    `{"error": {"message": "invalid key", "type": "auth", "code": ""}}`,
			wantErr: ErrNoAPIKey,
		},
		{
			name:    "rate limited",
			status:  http.StatusTooManyRequests,
			body:    `{"error": {"message": "slow down", "type": "rate", "code": ""}}`,
			wantErr: ErrRateLimit,
		},
		{
			name:    "context length",
			status:  http.StatusBadRequest,
			body:    `{"error": {"message": "too long", "type": "invalid", "code": "context_length_exceeded"}}`,
			wantErr: ErrContextLength,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newChatServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})
			_, err := p.Chat(context.Background(), []Message{UserMessage("hi")}, nil)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestChatStream(t *testing.T) {
	p := newChatServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"lo\"},\"finish_reason\":\"stop\"}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	ch, err := p.ChatStream(context.Background(), []Message{UserMessage("hi")}, nil)
	if err != nil {
		t.Fatalf("ChatStream() error: %v", err)
	}

	var content strings.Builder
	var done bool
	for chunk := range ch {
		if chunk.Err != nil {
			t.Fatalf("stream error: %v", chunk.Err)
		}
		content.WriteString(chunk.Content)
		if chunk.Done {
			done = true
		}
	}
	if content.String() != "Hello" {
		t.Errorf("streamed content = %q, want %q", content.String(), "Hello")
	}
	if !done {
		t.Error("stream never signaled done")
	}
}

func TestModerate(t *testing.T) {
	p := newChatServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/moderations" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"results": [{"flagged": true, "categories": {"harassment": true, "violence": false}}]}`)
	})

	res, err := p.Moderate(context.Background(), "bad input")
	if err != nil {
		t.Fatalf("Moderate() error: %v", err)
	}
	if !res.Flagged {
		t.Error("expected flagged result")
	}
	if len(res.Categories) != 1 || res.Categories[0] != "harassment" {
		t.Errorf("Categories = %v", res.Categories)
	}
}

func TestModerateClean(t *testing.T) {
	p := newChatServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"results": [{"flagged": false, "categories": {}}]}`)
	})

	res, err := p.Moderate(context.Background(), "tell me about AAPL")
	if err != nil {
		t.Fatalf("Moderate() error: %v", err)
	}
	if res.Flagged {
		t.Error("clean input must not be flagged")
	}
}

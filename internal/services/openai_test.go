package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/desertthunder/plx/internal/shared"
)

func newTestOpenAI(t *testing.T, handler http.HandlerFunc) *OpenAIService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	srv, err := NewOpenAIService(shared.OpenAIConfig{APIKey: "sk-test", BaseURL: server.URL, Model: "test-model"}, server.Client(), nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	return srv
}

func TestOpenAIService(t *testing.T) {
	t.Run("Requires API Key", func(t *testing.T) {
		for _, key := range []string{"", "your_api_key"} {
			if _, err := NewOpenAIService(shared.OpenAIConfig{APIKey: key}, nil, nil); !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("key %q: expected ErrMissingCredentials, got %v", key, err)
			}
		}
	})

	t.Run("Complete Sends Chat Request", func(t *testing.T) {
		srv := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/chat/completions" {
				t.Errorf("expected /chat/completions, got %s", r.URL.Path)
			}
			if r.Header.Get("Authorization") != "Bearer sk-test" {
				t.Errorf("expected bearer key, got %q", r.Header.Get("Authorization"))
			}

			var req chatRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Fatalf("failed to decode request: %v", err)
			}
			if req.Model != "test-model" || req.Temperature != 0 {
				t.Errorf("unexpected model/temperature %s/%v", req.Model, req.Temperature)
			}
			if req.ResponseFormat == nil || req.ResponseFormat.Type != "json_object" {
				t.Error("expected JSON response format")
			}
			if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Content != "sort by bpm" {
				t.Errorf("unexpected messages %+v", req.Messages)
			}

			fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"{\"type\":\"sort\"}"}}]}`)
		})

		out, err := srv.Complete(context.Background(), "classify", "sort by bpm")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if out != `{"type":"sort"}` {
			t.Errorf("unexpected completion %q", out)
		}
	})

	t.Run("Maps Status Codes", func(t *testing.T) {
		tests := []struct {
			status int
			want   error
		}{
			{http.StatusUnauthorized, shared.ErrInvalidCredentials},
			{http.StatusTooManyRequests, shared.ErrRateLimited},
			{http.StatusServiceUnavailable, shared.ErrServiceUnavailable},
			{http.StatusBadRequest, shared.ErrAPIRequest},
		}

		for _, tt := range tests {
			t.Run(http.StatusText(tt.status), func(t *testing.T) {
				srv := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(tt.status)
					fmt.Fprint(w, `{"error":{"message":"nope","type":"test"}}`)
				})

				_, err := srv.Complete(context.Background(), "s", "u")
				if !errors.Is(err, tt.want) {
					t.Errorf("expected %v, got %v", tt.want, err)
				}
			})
		}
	})

	t.Run("Empty Choices", func(t *testing.T) {
		srv := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"choices":[]}`)
		})
		if _, err := srv.Complete(context.Background(), "s", "u"); !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("Canceled Context", func(t *testing.T) {
		srv := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := srv.Complete(ctx, "s", "u"); err == nil {
			t.Error("expected error for canceled context")
		}
	})
}

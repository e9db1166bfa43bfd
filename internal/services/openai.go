// OpenAI-compatible chat completion client used as the classification and suggestion oracle
package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plx/internal/shared"
	"golang.org/x/time/rate"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// OpenAIService sends one system prompt and one user message per call and returns the reply text.
//
// Replies are requested in JSON mode at temperature 0.
type OpenAIService struct {
	api     *APIService
	model   string
	limiter *rate.Limiter
	logger  *log.Logger
}

// NewOpenAIService creates a completion client from cfg. client may be nil.
func NewOpenAIService(cfg shared.OpenAIConfig, client *http.Client, logger *log.Logger) (*OpenAIService, error) {
	if cfg.APIKey == "" || strings.HasPrefix(cfg.APIKey, "your_") {
		return nil, fmt.Errorf("%w: openai api_key", shared.ErrMissingCredentials)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOpenAIBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	return &OpenAIService{
		api:     NewAPIService(cfg.BaseURL, client).WithToken(cfg.APIKey),
		model:   cfg.Model,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}, nil
}

func (s *OpenAIService) Name() string {
	return "OpenAI"
}

// Complete implements editor.Completer.
func (s *OpenAIService) Complete(ctx context.Context, system, user string) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter error: %w", err)
	}

	req := chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	resp, err := s.api.PostJSON(ctx, "/chat/completions", req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}
	if !resp.OK() {
		return "", s.statusError(resp)
	}

	var out chatResponse
	if err := resp.Decode(&out); err != nil {
		return "", fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("%w: completion returned no content", shared.ErrAPIRequest)
	}

	s.logger.Debug("completion", "model", s.model, "chars", len(out.Choices[0].Message.Content))
	return out.Choices[0].Message.Content, nil
}

func (s *OpenAIService) statusError(resp *APIResponse) error {
	msg := fmt.Sprintf("status %d", resp.StatusCode)
	var body apiError
	if resp.Decode(&body) == nil && body.Error.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, body.Error.Message)
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", shared.ErrInvalidCredentials, msg)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", shared.ErrRateLimited, msg)
	case http.StatusServiceUnavailable, http.StatusBadGateway:
		return fmt.Errorf("%w: %s", shared.ErrServiceUnavailable, msg)
	default:
		return fmt.Errorf("%w: %s", shared.ErrAPIRequest, msg)
	}
}

// Package perplexity implements search.Provider against the Perplexity
// chat-completions API.
//
// Perplexity speaks the OpenAI chat-completions protocol, so requests go
// through the openai-go client pointed at the Perplexity base URL, with the
// query as the only user message. The raw body is kept and the answer is read
// from choices[0].message.content; any other shape is reported as
// search.ErrMalformedResponse.
package perplexity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/tidwall/gjson"

	"github.com/nadzzz/copilot/internal/config"
	"github.com/nadzzz/copilot/internal/search"
)

// Provider queries Perplexity with a bearer token.
type Provider struct {
	client openai.Client
	model  string
}

var _ search.Provider = (*Provider)(nil)

// New creates a new Perplexity provider from config. httpClient may be nil.
func New(cfg config.SearchConfig, httpClient *http.Client) *Provider {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithMaxRetries(0),
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	return &Provider{
		client: openai.NewClient(opts...),
		model:  cfg.Model,
	}
}

// Name returns the backend identifier.
func (p *Provider) Name() string { return "perplexity" }

// Search sends query to Perplexity and returns the trimmed answer.
func (p *Provider) Search(ctx context.Context, query string) (string, error) {
	var raw []byte
	_, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(query),
		},
	}, option.WithResponseBodyInto(&raw))
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("search failed (status %d): %w", apiErr.StatusCode, err)
		}
		return "", fmt.Errorf("search request: %w", err)
	}

	answer, err := extractAnswer(raw)
	if err != nil {
		return "", err
	}

	slog.Debug("search complete", "model", p.model, "text_length", len(answer))
	return answer, nil
}

// extractAnswer pulls choices[0].message.content out of a chat-completion body.
func extractAnswer(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("%w: invalid json: %.200s", search.ErrMalformedResponse, body)
	}
	content := gjson.GetBytes(body, "choices.0.message.content")
	if content.Type != gjson.String {
		return "", fmt.Errorf("%w: no message content", search.ErrMalformedResponse)
	}
	return strings.TrimSpace(content.String()), nil
}

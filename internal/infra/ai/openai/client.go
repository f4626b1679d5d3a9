package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	domai "github.com/bryanwahyu/accommodation-engine/internal/domain/ai"
)

type Client struct {
	*openai.Client
}

func NewClient(apiKey, baseURL string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if strings.TrimSpace(baseURL) != "" {
		cfg.BaseURL = baseURL
	}
	return &Client{Client: openai.NewClientWithConfig(cfg)}
}

// CreateChatCompletion sends the request after adapting token limits to the
// target model family.
func (c *Client) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	req = adaptForModel(req)
	resp, err := c.Client.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return resp, fmt.Errorf("%w: %s", domai.ErrQuotaExceeded, apiErr.Message)
		}
		return resp, fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return resp, domai.ErrEmptyCompletion
	}
	return resp, nil
}

// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
func adaptForModel(req openai.ChatCompletionRequest) openai.ChatCompletionRequest {
	if isReasoningModel(req.Model) && req.MaxTokens > 0 {
		req.MaxCompletionTokens = req.MaxTokens
		req.MaxTokens = 0
		// reasoning models only accept the default temperature
		req.Temperature = 0
	}
	return req
}

func isReasoningModel(model string) bool {
	m := strings.ToLower(strings.TrimSpace(model))
	return strings.HasPrefix(m, "o1") || strings.HasPrefix(m, "o3") || strings.HasPrefix(m, "o4") || strings.HasPrefix(m, "gpt-5")
}

var _ domai.Client = (*Client)(nil)

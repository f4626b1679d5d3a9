package ai

import (
	"context"
	"log/slog"

	"github.com/sashabaranov/go-openai"

	domai "github.com/bryanwahyu/accommodation-engine/internal/domain/ai"
	"github.com/bryanwahyu/accommodation-engine/internal/domain/analysis"
)

// DefaultFallbackModel is used when the gateway is built without one.
const DefaultFallbackModel = "gpt-4o-mini"

// Gateway is the single choke point for remote completion calls.
type Gateway struct {
	client        domai.Client
	fallbackModel string
	logger        *slog.Logger
}

func NewGateway(client domai.Client, fallbackModel string, logger *slog.Logger) *Gateway {
	if fallbackModel == "" {
		fallbackModel = DefaultFallbackModel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{client: client, fallbackModel: fallbackModel, logger: logger}
}

// FallbackModel returns the model used after a primary failure.
func (g *Gateway) FallbackModel() string { return g.fallbackModel }

// Complete issues one completion. Under the complex pathway the module's tool
// schemas are attached with tool_choice auto unless toolChoice forces a
// function; a forced toolChoice also attaches the schemas under simple.
func (g *Gateway) Complete(
	ctx context.Context,
	cfg analysis.ModelConfig,
	messages []openai.ChatCompletionMessage,
	module analysis.ModuleType,
	pathway analysis.Pathway,
	toolChoice *openai.ToolChoice,
) (openai.ChatCompletionResponse, error) {
	req := BuildRequest(cfg, messages, module, pathway, toolChoice)

	g.logger.Debug("llm completion",
		slog.String("module", string(module)),
		slog.String("pathway", string(pathway)),
		slog.Int("messages", len(messages)),
		slog.Int("tools", len(req.Tools)))

	return WithFallback(ctx, g.logger, "complete", cfg.Model, g.fallbackModel,
		func(ctx context.Context, model string) (openai.ChatCompletionResponse, error) {
			attempt := req
			attempt.Model = model
			resp, err := g.client.CreateChatCompletion(ctx, attempt)
			if err != nil {
				return resp, err
			}
			if len(resp.Choices) == 0 {
				return resp, domai.ErrEmptyCompletion
			}
			return resp, nil
		})
}

// Generate is a tool-free completion that returns the first choice's text.
func (g *Gateway) Generate(ctx context.Context, op string, cfg analysis.ModelConfig, messages []openai.ChatCompletionMessage) (string, error) {
	req := openai.ChatCompletionRequest{
		Messages:    messages,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}
	return WithFallback(ctx, g.logger, op, cfg.Model, g.fallbackModel,
		func(ctx context.Context, model string) (string, error) {
			attempt := req
			attempt.Model = model
			resp, err := g.client.CreateChatCompletion(ctx, attempt)
			if err != nil {
				return "", err
			}
			if len(resp.Choices) == 0 {
				return "", domai.ErrEmptyCompletion
			}
			return resp.Choices[0].Message.Content, nil
		})
}

// BuildRequest assembles the completion payload without sending it.
func BuildRequest(
	cfg analysis.ModelConfig,
	messages []openai.ChatCompletionMessage,
	module analysis.ModuleType,
	pathway analysis.Pathway,
	toolChoice *openai.ToolChoice,
) openai.ChatCompletionRequest {
	req := openai.ChatCompletionRequest{
		Model:       cfg.Model,
		Messages:    messages,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}
	if pathway == analysis.PathwayComplex || toolChoice != nil {
		req.Tools = ToolsFor(module)
		if toolChoice != nil {
			req.ToolChoice = *toolChoice
		} else {
			req.ToolChoice = "auto"
		}
	}
	return req
}

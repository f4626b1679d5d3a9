package ai

import (
	"context"

	"github.com/sashabaranov/go-openai"
)

// Client is the chat completion collaborator. *openai.Client satisfies it.
type Client interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

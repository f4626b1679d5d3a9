package analysis

import (
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// ToolResult answers one tool call.
type ToolResult struct {
	CallID  string
	Content string
}

// Conversation is an append-only message log. Assistant tool-call messages
// can only enter together with one result per call, in call order, so the log
// is always valid input for the next completion.
type Conversation struct {
	messages []openai.ChatCompletionMessage
}

func NewConversation(system, user string) *Conversation {
	return &Conversation{messages: []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: system},
		{Role: openai.ChatMessageRoleUser, Content: user},
	}}
}

// Messages returns a copy of the log.
func (c *Conversation) Messages() []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *Conversation) Len() int { return len(c.messages) }

// AppendToolRound appends the assistant message and its tool results. Nothing
// is appended unless results match the calls one-to-one in order.
func (c *Conversation) AppendToolRound(assistant openai.ChatCompletionMessage, results []ToolResult) error {
	calls := assistant.ToolCalls
	if len(calls) == 0 {
		return fmt.Errorf("assistant message has no tool calls")
	}
	if len(results) != len(calls) {
		return fmt.Errorf("tool results: got %d, want %d", len(results), len(calls))
	}
	for i, call := range calls {
		if results[i].CallID != call.ID {
			return fmt.Errorf("tool result %d answers %q, want %q", i, results[i].CallID, call.ID)
		}
	}

	assistant.Role = openai.ChatMessageRoleAssistant
	c.messages = append(c.messages, assistant)
	for _, r := range results {
		c.messages = append(c.messages, openai.ChatCompletionMessage{
			Role:       openai.ChatMessageRoleTool,
			ToolCallID: r.CallID,
			Content:    r.Content,
		})
	}
	return nil
}

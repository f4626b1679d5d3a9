package ai

import (
	"context"
	"errors"
	"net"
	"reflect"
	"testing"

	"github.com/sashabaranov/go-openai"

	"github.com/bryanwahyu/accommodation-engine/internal/domain/analysis"
)

type scriptedClient struct {
	requests  []openai.ChatCompletionRequest
	responses []openai.ChatCompletionResponse
	errs      []error
}

func (c *scriptedClient) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	i := len(c.requests)
	c.requests = append(c.requests, req)
	var err error
	if i < len(c.errs) {
		err = c.errs[i]
	}
	if err != nil {
		return openai.ChatCompletionResponse{}, err
	}
	if i < len(c.responses) {
		return c.responses[i], nil
	}
	return openai.ChatCompletionResponse{}, errors.New("no scripted response")
}

func textResponse(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content},
		}},
	}
}

var testConfig = analysis.ModelConfig{Model: "primary-model", MaxTokens: 4000, Temperature: 0.3}

func TestCompleteFallsBackWithIdenticalPayload(t *testing.T) {
	netErr := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	client := &scriptedClient{
		errs:      []error{netErr, nil},
		responses: []openai.ChatCompletionResponse{{}, textResponse("from fallback")},
	}
	gw := NewGateway(client, "fallback-model", nil)

	msgs := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: "sys"},
		{Role: openai.ChatMessageRoleUser, Content: "docs"},
	}
	resp, err := gw.Complete(context.Background(), testConfig, msgs, analysis.ModulePostSecondary, analysis.PathwayComplex, nil)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got := resp.Choices[0].Message.Content; got != "from fallback" {
		t.Fatalf("content = %q, want fallback content", got)
	}
	if len(client.requests) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(client.requests))
	}
	primary, fallback := client.requests[0], client.requests[1]
	if primary.Model != "primary-model" || fallback.Model != "fallback-model" {
		t.Fatalf("models = %q, %q", primary.Model, fallback.Model)
	}
	fallback.Model = primary.Model
	if !reflect.DeepEqual(primary, fallback) {
		t.Fatalf("fallback payload differs from primary:\nprimary=%+v\nfallback=%+v", primary, fallback)
	}
}

func TestCompletePropagatesFallbackError(t *testing.T) {
	fallbackErr := errors.New("fallback down")
	client := &scriptedClient{errs: []error{errors.New("primary down"), fallbackErr}}
	gw := NewGateway(client, "fallback-model", nil)

	_, err := gw.Complete(context.Background(), testConfig, nil, analysis.ModuleK12, analysis.PathwaySimple, nil)
	if err != fallbackErr {
		t.Fatalf("expected fallback error unmodified, got %v", err)
	}
	if len(client.requests) != 2 {
		t.Fatalf("expected exactly one retry, got %d requests", len(client.requests))
	}
}

func TestBuildRequestToolAttachment(t *testing.T) {
	tests := []struct {
		name       string
		module     analysis.ModuleType
		pathway    analysis.Pathway
		choice     *openai.ToolChoice
		wantTools  []string
		wantChoice any
	}{
		{
			name:    "simple has no tools",
			module:  analysis.ModuleK12,
			pathway: analysis.PathwaySimple,
		},
		{
			name:       "complex k12 auto",
			module:     analysis.ModuleK12,
			pathway:    analysis.PathwayComplex,
			wantTools:  []string{ToolCatalogFindings, ToolPopulateItemMaster},
			wantChoice: "auto",
		},
		{
			name:       "complex generic forced",
			module:     analysis.ModulePostSecondary,
			pathway:    analysis.PathwayComplex,
			choice:     ForceFunction(ToolPopulateItemMaster),
			wantTools:  []string{ToolPopulateItemMaster, ToolLookupAccommodations},
			wantChoice: *ForceFunction(ToolPopulateItemMaster),
		},
		{
			name:       "forced choice honored under simple",
			module:     analysis.ModuleK12,
			pathway:    analysis.PathwaySimple,
			choice:     ForceFunction(ToolPopulateItemMaster),
			wantTools:  []string{ToolCatalogFindings, ToolPopulateItemMaster},
			wantChoice: *ForceFunction(ToolPopulateItemMaster),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := BuildRequest(testConfig, nil, tt.module, tt.pathway, tt.choice)
			var names []string
			for _, tool := range req.Tools {
				names = append(names, tool.Function.Name)
			}
			if !reflect.DeepEqual(names, tt.wantTools) {
				t.Fatalf("tools = %v, want %v", names, tt.wantTools)
			}
			if !reflect.DeepEqual(req.ToolChoice, tt.wantChoice) {
				t.Fatalf("tool_choice = %#v, want %#v", req.ToolChoice, tt.wantChoice)
			}
			if req.MaxTokens != 4000 || req.Temperature != 0.3 {
				t.Fatalf("model config not applied: %+v", req)
			}
		})
	}
}

func TestGenerateReturnsContent(t *testing.T) {
	client := &scriptedClient{responses: []openai.ChatCompletionResponse{textResponse("working_memory_deficit")}}
	gw := NewGateway(client, "", nil)
	if gw.FallbackModel() != DefaultFallbackModel {
		t.Fatalf("fallback model = %q", gw.FallbackModel())
	}
	out, err := gw.Generate(context.Background(), "expert_inference", testConfig, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != "working_memory_deficit" {
		t.Fatalf("out = %q", out)
	}
	if len(client.requests[0].Tools) != 0 {
		t.Fatalf("Generate must not attach tools")
	}
}

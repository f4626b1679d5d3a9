package resolver

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/bryanwahyu/accommodation-engine/internal/domain/analysis"
	"github.com/bryanwahyu/accommodation-engine/internal/domain/itemmaster"
	"github.com/bryanwahyu/accommodation-engine/internal/infra/ai/prompt"
)

// Tier records which cascade step produced a key. ResolutionMethod keeps the
// coarser exact_match / ai_resolved label consumed downstream.
type Tier string

const (
	TierExact     Tier = "exact"
	TierKeyword   Tier = "keyword"
	TierInference Tier = "inference"
	TierFallback  Tier = "fallback"
)

// Item is one free-text term to resolve.
type Item struct {
	CanonicalKey     string
	SurfaceTerm      string
	Description      string
	ResolutionMethod string
	Tier             Tier
}

// Generator is the tool-free completion used for expert inference.
type Generator interface {
	Generate(ctx context.Context, op string, cfg analysis.ModelConfig, messages []openai.ChatCompletionMessage) (string, error)
}

// ModelSource yields the module's primary model.
type ModelSource interface {
	ModelConfig(module analysis.ModuleType) analysis.ModelConfig
}

const expertMaxTokens = 20

type Resolver struct {
	gen    Generator
	models ModelSource
	logger *slog.Logger
}

func New(gen Generator, models ModelSource, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{gen: gen, models: models, logger: logger}
}

// Resolve returns a copy of items with every CanonicalKey set, in input
// order. Items resolve one after another; a request never has two model
// calls in flight.
func (r *Resolver) Resolve(ctx context.Context, items []Item, module analysis.ModuleType) []Item {
	out := make([]Item, len(items))
	for i, it := range items {
		out[i] = r.ResolveOne(ctx, it, module)
	}
	return out
}

// ResolveOne runs exact, keyword, then expert inference, stopping at the first hit.
func (r *Resolver) ResolveOne(ctx context.Context, it Item, module analysis.ModuleType) Item {
	if !isSentinel(it.CanonicalKey) {
		it.CanonicalKey = strings.TrimSpace(it.CanonicalKey)
		it.ResolutionMethod = itemmaster.MethodExactMatch
		it.Tier = TierExact
		return it
	}

	if key, ok := KeywordMatch(it.SurfaceTerm, it.Description); ok {
		it.CanonicalKey = key
		it.ResolutionMethod = itemmaster.MethodAIResolved
		it.Tier = TierKeyword
		return it
	}

	key, err := r.expertInference(ctx, it, module)
	it.ResolutionMethod = itemmaster.MethodAIResolved
	if err != nil {
		r.logger.Warn("expert inference failed, using unknown barrier",
			slog.String("surface_term", it.SurfaceTerm), slog.Any("error", err))
		it.CanonicalKey = itemmaster.UnknownBarrier
		it.Tier = TierFallback
		return it
	}
	it.CanonicalKey = key
	it.Tier = TierInference
	return it
}

func (r *Resolver) expertInference(ctx context.Context, it Item, module analysis.ModuleType) (string, error) {
	cfg := analysis.ModelConfig{
		MaxTokens: expertMaxTokens,
		// zero is dropped from the payload, so ask for the smallest non-zero value
		Temperature: math.SmallestNonzeroFloat32,
	}
	if r.models != nil {
		cfg.Model = r.models.ModelConfig(module).Model
	}
	msgs := prompt.ExpertInferenceMessages(it.SurfaceTerm, it.Description, string(module), ExpertKeys(), itemmaster.UnknownBarrier)
	raw, err := r.gen.Generate(ctx, "expert_inference", cfg, msgs)
	if err != nil {
		return "", err
	}
	return parseExpertKey(raw), nil
}

func parseExpertKey(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.Trim(s, "`\"'. \n\t")
	for _, k := range ExpertKeys() {
		if s == k {
			return k
		}
	}
	return itemmaster.UnknownBarrier
}

func isSentinel(key string) bool {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "", "unknown", itemmaster.UnknownBarrier:
		return true
	}
	return false
}

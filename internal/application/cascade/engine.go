package cascade

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/bryanwahyu/accommodation-engine/internal/domain/analysis"
	"github.com/bryanwahyu/accommodation-engine/internal/domain/findings"
	"github.com/bryanwahyu/accommodation-engine/internal/domain/itemmaster"
	"github.com/bryanwahyu/accommodation-engine/internal/infra/ai/prompt"
)

// Generator is the tool-free completion used to fill missing fields.
type Generator interface {
	Generate(ctx context.Context, op string, cfg analysis.ModelConfig, messages []openai.ChatCompletionMessage) (string, error)
}

// Engine completes the six display fields of an item-master record, using
// lookup tables first and generative inference only for the gaps.
type Engine struct {
	lookups itemmaster.LookupRepository
	gen     Generator
	logger  *slog.Logger
}

func New(lookups itemmaster.LookupRepository, gen Generator, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{lookups: lookups, gen: gen, logger: logger}
}

// Populate never fails: lookup errors count as missing fields and a failed
// inference call falls back to a deterministic template fill.
func (e *Engine) Populate(ctx context.Context, key string, f *findings.Finding, caseID, gradeBand string, cfg analysis.ModelConfig) itemmaster.ItemMasterRecord {
	rec := itemmaster.ItemMasterRecord{
		CaseID:       caseID,
		CanonicalKey: key,
		ModuleType:   string(analysis.ModuleK12),
	}
	if f != nil {
		rec.ModuleType = f.ModuleType
		rec.FindingID = f.ID
		rec.EvidenceBasis = f.Description
	}
	if rec.ModuleType == "" {
		rec.ModuleType = string(analysis.ModuleK12)
	}

	known := e.lookup(ctx, key, gradeBand)
	var missing []string
	for _, name := range itemmaster.DisplayFields {
		if v, ok := known[name]; ok {
			rec.SetField(name, v)
			continue
		}
		missing = append(missing, name)
	}

	if len(missing) > 0 {
		inferred, err := e.infer(ctx, key, f, gradeBand, known, missing, cfg)
		if err != nil {
			e.logger.Warn("cascade inference failed, using template fill",
				slog.String("case_id", caseID),
				slog.String("canonical_key", key),
				slog.Any("error", err))
			inferred = map[string]string{}
		}
		fill := TemplateFill(key, f)
		// lookup values are already set and never overwritten
		for _, name := range missing {
			v := strings.TrimSpace(inferred[name])
			if v == "" {
				v = fill[name]
			}
			rec.SetField(name, v)
		}
		rec.InferredFields = missing
	}

	rec.ValidationStatus, rec.InferenceLevel = Classify(len(missing))
	rec.Source = itemmaster.SourceDatabase
	if len(missing) > 0 {
		rec.Source = itemmaster.SourceCascadeInference
	}
	if strings.TrimSpace(rec.EvidenceBasis) == "" {
		rec.EvidenceBasis = "Not specified in source documents"
	}
	return rec
}

// Classify maps the number of missing display fields onto status and level.
// "All missing" means all six display fields.
func Classify(missing int) (itemmaster.ValidationStatus, itemmaster.InferenceLevel) {
	switch {
	case missing <= 0:
		return itemmaster.StatusValidated, itemmaster.InferenceNone
	case missing >= len(itemmaster.DisplayFields):
		return itemmaster.StatusFullInference, itemmaster.InferenceComplete
	default:
		return itemmaster.StatusPartialInference, itemmaster.InferencePartial
	}
}

func (e *Engine) lookup(ctx context.Context, key, band string) map[string]string {
	known := map[string]string{}
	put := func(name, v string) {
		if v = strings.TrimSpace(v); v != "" {
			known[name] = v
		}
	}
	if e.lookups == nil {
		return known
	}

	if g, err := e.lookups.Glossary(ctx, key, band); err != nil {
		e.logLookupErr("glossary", key, err)
	} else if g != nil {
		put(itemmaster.FieldItemLabel, g.ItemLabel)
		put(itemmaster.FieldParentFriendlyLabel, g.ParentFriendlyLabel)
	}
	if s, err := e.lookups.Support(ctx, key, band); err != nil {
		e.logLookupErr("support", key, err)
	} else if s != nil {
		put(itemmaster.FieldSupport1, s.Support1)
		put(itemmaster.FieldSupport2, s.Support2)
	}
	if c, err := e.lookups.Caution(ctx, key, band); err != nil {
		e.logLookupErr("caution", key, err)
	} else if c != nil {
		put(itemmaster.FieldCautionNote, c.CautionNote)
	}
	if o, err := e.lookups.Observation(ctx, key, band); err != nil {
		e.logLookupErr("observation", key, err)
	} else if o != nil {
		put(itemmaster.FieldClassroomObservation, o.ClassroomObservation)
	}
	return known
}

func (e *Engine) logLookupErr(table, key string, err error) {
	e.logger.Warn("lookup failed, treating field as missing",
		slog.String("table", table), slog.String("canonical_key", key), slog.Any("error", err))
}

func (e *Engine) infer(ctx context.Context, key string, f *findings.Finding, band string, known map[string]string, missing []string, cfg analysis.ModelConfig) (map[string]string, error) {
	if e.gen == nil {
		return nil, fmt.Errorf("no generator configured")
	}
	fc := prompt.FindingContext{GradeBand: band}
	if f != nil {
		fc.Type = string(f.Type)
		fc.Description = f.Description
		fc.ClassroomImpact = f.ClassroomImpact
	}
	raw, err := e.gen.Generate(ctx, "cascade_inference", cfg, prompt.CascadeMessages(key, fc, known, missing))
	if err != nil {
		return nil, err
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(prompt.ExtractJSONObject(raw)), &obj); err != nil {
		return nil, fmt.Errorf("parse cascade inference: %w", err)
	}
	out := make(map[string]string, len(missing))
	for _, name := range missing {
		switch v := obj[name].(type) {
		case string:
			out[name] = v
		case nil:
		default:
			out[name] = fmt.Sprint(v)
		}
	}
	return out, nil
}

// TemplateFill derives every display field from the key and the finding text.
func TemplateFill(key string, f *findings.Finding) map[string]string {
	title := TitleKey(key)
	lower := strings.ToLower(title)

	desc, impact := "", ""
	typ := findings.TypeWeakness
	if f != nil {
		desc = strings.TrimSpace(f.Description)
		impact = strings.TrimSpace(f.ClassroomImpact)
		if f.Type != "" {
			typ = f.Type
		}
	}
	if desc == "" {
		desc = lower
	}

	parent := fmt.Sprintf("Needs support with %s", lower)
	if typ == findings.TypeStrength {
		parent = fmt.Sprintf("A strength in %s", lower)
	}
	observation := impact
	if observation == "" {
		observation = fmt.Sprintf("In class this may look like: %s", desc)
	}

	return map[string]string{
		itemmaster.FieldItemLabel:            title,
		itemmaster.FieldParentFriendlyLabel:  parent,
		itemmaster.FieldClassroomObservation: observation,
		itemmaster.FieldSupport1:             fmt.Sprintf("Provide classroom supports that address: %s", desc),
		itemmaster.FieldSupport2:             fmt.Sprintf("Monitor progress in %s and adjust supports as needed.", lower),
		itemmaster.FieldCautionNote:          "Generated from the assessment wording; review before sharing with families.",
	}
}

// TitleKey turns working_memory_deficit into Working Memory Deficit.
func TitleKey(key string) string {
	// a Caser is stateful and must not be shared between goroutines
	return cases.Title(language.English).String(strings.ReplaceAll(strings.TrimSpace(key), "_", " "))
}

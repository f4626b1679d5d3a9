package cascade

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sashabaranov/go-openai"

	"github.com/bryanwahyu/accommodation-engine/internal/domain/analysis"
	"github.com/bryanwahyu/accommodation-engine/internal/domain/findings"
	"github.com/bryanwahyu/accommodation-engine/internal/domain/itemmaster"
)

type fakeLookups struct {
	glossary    *itemmaster.GlossaryEntry
	support     *itemmaster.SupportEntry
	caution     *itemmaster.CautionEntry
	observation *itemmaster.ObservationEntry
	err         error
}

func (l fakeLookups) Glossary(context.Context, string, string) (*itemmaster.GlossaryEntry, error) {
	return l.glossary, l.err
}
func (l fakeLookups) Support(context.Context, string, string) (*itemmaster.SupportEntry, error) {
	return l.support, l.err
}
func (l fakeLookups) Caution(context.Context, string, string) (*itemmaster.CautionEntry, error) {
	return l.caution, l.err
}
func (l fakeLookups) Observation(context.Context, string, string) (*itemmaster.ObservationEntry, error) {
	return l.observation, l.err
}

type fakeGenerator struct {
	reply    string
	err      error
	calls    int
	messages [][]openai.ChatCompletionMessage
}

func (g *fakeGenerator) Generate(_ context.Context, _ string, _ analysis.ModelConfig, msgs []openai.ChatCompletionMessage) (string, error) {
	g.calls++
	g.messages = append(g.messages, msgs)
	return g.reply, g.err
}

var (
	cfg     = analysis.ModelConfig{Model: "m", MaxTokens: 4000, Temperature: 0.3}
	finding = &findings.Finding{
		ID:              "f-1",
		Type:            findings.TypeWeakness,
		Description:     "Forgets multi-step directions",
		ClassroomImpact: "Loses track during math routines",
		ModuleType:      "k12",
	}
	fullLookups = fakeLookups{
		glossary:    &itemmaster.GlossaryEntry{ItemLabel: "Working Memory", ParentFriendlyLabel: "Holding information in mind"},
		support:     &itemmaster.SupportEntry{Support1: "Chunk directions", Support2: "Provide checklists"},
		caution:     &itemmaster.CautionEntry{CautionNote: "Not a sign of low effort"},
		observation: &itemmaster.ObservationEntry{ClassroomObservation: "Asks for directions to be repeated"},
	}
)

func TestPopulateAllFieldsFromLookups(t *testing.T) {
	gen := &fakeGenerator{}
	e := New(fullLookups, gen, nil)

	rec := e.Populate(context.Background(), "working_memory_deficit", finding, "case-1", "3-5", cfg)

	if gen.calls != 0 {
		t.Fatalf("expected zero generative calls, got %d", gen.calls)
	}
	if rec.ValidationStatus != itemmaster.StatusValidated || rec.InferenceLevel != itemmaster.InferenceNone || rec.Source != itemmaster.SourceDatabase {
		t.Fatalf("status=%q level=%q source=%q", rec.ValidationStatus, rec.InferenceLevel, rec.Source)
	}
	if rec.Support2 != "Provide checklists" || len(rec.InferredFields) != 0 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.EvidenceBasis != finding.Description || rec.FindingID != "f-1" || rec.CaseID != "case-1" {
		t.Fatalf("record not linked to finding: %+v", rec)
	}
}

func TestPopulateAllFieldsMissingInfersOnce(t *testing.T) {
	gen := &fakeGenerator{reply: "```json\n" + `{"item_label":"Working Memory","parent_friendly_label":"Remembering steps","classroom_observation":"Needs repeats","support_1":"Chunk tasks","support_2":"Visual checklist","caution_note":"Avoid labeling","extra":"dropped"}` + "\n```"}
	e := New(fakeLookups{}, gen, nil)

	rec := e.Populate(context.Background(), "working_memory_deficit", finding, "case-1", "3-5", cfg)

	if gen.calls != 1 {
		t.Fatalf("expected one generative call, got %d", gen.calls)
	}
	if rec.InferenceLevel != itemmaster.InferenceComplete || rec.ValidationStatus != itemmaster.StatusFullInference || rec.Source != itemmaster.SourceCascadeInference {
		t.Fatalf("status=%q level=%q source=%q", rec.ValidationStatus, rec.InferenceLevel, rec.Source)
	}
	if rec.Support2 != "Visual checklist" {
		t.Fatalf("inferred value not merged: %+v", rec)
	}
	if diff := cmp.Diff(itemmaster.DisplayFields, rec.InferredFields); diff != "" {
		t.Fatalf("inferred fields (-want +got):\n%s", diff)
	}
}

func TestPopulateAllFieldsMissingTemplateFallback(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("primary and fallback down")}
	e := New(fakeLookups{err: errors.New("db down")}, gen, nil)

	rec := e.Populate(context.Background(), "working_memory_deficit", finding, "case-1", "3-5", cfg)

	if gen.calls != 1 {
		t.Fatalf("expected one generative call, got %d", gen.calls)
	}
	if rec.InferenceLevel != itemmaster.InferenceComplete {
		t.Fatalf("level = %q", rec.InferenceLevel)
	}
	if rec.ItemLabel != "Working Memory Deficit" {
		t.Fatalf("item label = %q", rec.ItemLabel)
	}
	if rec.ClassroomObservation != finding.ClassroomImpact {
		t.Fatalf("observation = %q", rec.ClassroomObservation)
	}
	if !strings.Contains(rec.Support1, finding.Description) {
		t.Fatalf("support_1 does not interpolate finding text: %q", rec.Support1)
	}
	for _, name := range itemmaster.DisplayFields {
		if rec.Field(name) == "" {
			t.Fatalf("field %s left empty", name)
		}
	}
}

func TestPopulatePartialKeepsLookupValues(t *testing.T) {
	lookups := fakeLookups{
		glossary: &itemmaster.GlossaryEntry{ItemLabel: "Working Memory", ParentFriendlyLabel: "Holding information in mind"},
		support:  &itemmaster.SupportEntry{Support1: "Chunk directions"},
	}
	gen := &fakeGenerator{reply: `{"item_label":"OVERRIDE","support_2":"Checklist","caution_note":"Be kind","classroom_observation":"Repeats"}`}
	e := New(lookups, gen, nil)

	rec := e.Populate(context.Background(), "working_memory_deficit", finding, "case-1", "3-5", cfg)

	if rec.ItemLabel != "Working Memory" {
		t.Fatalf("lookup value overwritten: %q", rec.ItemLabel)
	}
	if rec.ValidationStatus != itemmaster.StatusPartialInference || rec.InferenceLevel != itemmaster.InferencePartial {
		t.Fatalf("status=%q level=%q", rec.ValidationStatus, rec.InferenceLevel)
	}
	want := []string{itemmaster.FieldClassroomObservation, itemmaster.FieldSupport2, itemmaster.FieldCautionNote}
	if diff := cmp.Diff(want, rec.InferredFields); diff != "" {
		t.Fatalf("inferred fields (-want +got):\n%s", diff)
	}
	prompt := gen.messages[0][1].Content
	if !strings.Contains(prompt, "Requested keys: classroom_observation, support_2, caution_note") {
		t.Fatalf("prompt should request only missing keys:\n%s", prompt)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		missing int
		status  itemmaster.ValidationStatus
		level   itemmaster.InferenceLevel
	}{
		{0, itemmaster.StatusValidated, itemmaster.InferenceNone},
		{1, itemmaster.StatusPartialInference, itemmaster.InferencePartial},
		{5, itemmaster.StatusPartialInference, itemmaster.InferencePartial},
		{6, itemmaster.StatusFullInference, itemmaster.InferenceComplete},
	}
	for _, tt := range tests {
		s, l := Classify(tt.missing)
		if s != tt.status || l != tt.level {
			t.Fatalf("Classify(%d) = %q/%q, want %q/%q", tt.missing, s, l, tt.status, tt.level)
		}
	}
}

func TestTemplateFillStrength(t *testing.T) {
	fill := TemplateFill("visual_spatial_reasoning", &findings.Finding{Type: findings.TypeStrength, Description: "Strong puzzle skills"})
	if fill[itemmaster.FieldParentFriendlyLabel] != "A strength in visual spatial reasoning" {
		t.Fatalf("parent label = %q", fill[itemmaster.FieldParentFriendlyLabel])
	}
	if fill[itemmaster.FieldClassroomObservation] != "In class this may look like: Strong puzzle skills" {
		t.Fatalf("observation = %q", fill[itemmaster.FieldClassroomObservation])
	}
}

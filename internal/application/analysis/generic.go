package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"

	appai "github.com/bryanwahyu/accommodation-engine/internal/application/ai"
	"github.com/bryanwahyu/accommodation-engine/internal/application/cascade"
	"github.com/bryanwahyu/accommodation-engine/internal/application/report"
	"github.com/bryanwahyu/accommodation-engine/internal/application/resolver"
	domain "github.com/bryanwahyu/accommodation-engine/internal/domain/analysis"
	"github.com/bryanwahyu/accommodation-engine/internal/domain/itemmaster"
)

const handlerResultsHeading = "\n\n## AI Handler Results\n\n"

const noEvidence = "Not specified in source documents"

// runGeneric serves post_secondary and tutoring with a single call.
func (s *Service) runGeneric(ctx context.Context, req domain.Request, effective domain.Pathway, cfg domain.ModelConfig,
	conv *Conversation, rctx report.Context, log *slog.Logger) (outcome, error) {
	resp, err := s.Gateway.Complete(ctx, cfg, conv.Messages(), req.ModuleType, effective, nil)
	if err != nil {
		return outcome{}, fmt.Errorf("analysis: %w", err)
	}
	msg := firstMessage(resp)
	narrative := msg.Content

	var records []itemmaster.ItemMasterRecord
	if len(msg.ToolCalls) > 0 {
		records, err = s.executeGenericTools(ctx, req, msg.ToolCalls)
		if err != nil {
			log.Warn("tool execution failed, returning narrative only", slog.Any("error", err))
			records = nil
		}
	}

	if effective == domain.PathwaySimple || len(records) == 0 {
		return outcome{narrative: narrative, records: records}, nil
	}
	tpl, _ := s.Config.ReportTemplate(req.ModuleType)
	return outcome{
		narrative: narrative + handlerResultsHeading + report.Render(records, tpl, rctx),
		records:   records,
	}, nil
}

func (s *Service) lookupBand(req domain.Request) string {
	if req.ModuleType == domain.ModulePostSecondary {
		return domain.GradeBandPostSecondary
	}
	return domain.GradeBand(req.Context.StudentGrade)
}

// executeGenericTools runs every tool call and persists the resulting records.
// Any failure discards all structured output.
func (s *Service) executeGenericTools(ctx context.Context, req domain.Request, calls []openai.ToolCall) ([]itemmaster.ItemMasterRecord, error) {
	var records []itemmaster.ItemMasterRecord
	for _, call := range calls {
		var (
			recs []itemmaster.ItemMasterRecord
			err  error
		)
		switch call.Function.Name {
		case appai.ToolPopulateItemMaster:
			recs, err = s.populateGeneric(ctx, req, call.Function.Arguments)
		case appai.ToolLookupAccommodations:
			recs, err = s.lookupAccommodations(ctx, req, call.Function.Arguments)
		default:
			s.log().Debug("ignoring tool call", slog.String("tool", call.Function.Name))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", call.Function.Name, err)
		}
		records = append(records, recs...)
	}

	for i := range records {
		if err := s.ItemMaster.SaveItemMaster(ctx, req.CaseID, &records[i]); err != nil {
			return nil, fmt.Errorf("save item master: %w", err)
		}
	}
	return records, nil
}

func (s *Service) populateGeneric(ctx context.Context, req domain.Request, raw string) ([]itemmaster.ItemMasterRecord, error) {
	var args appai.PopulateGenericArgs
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}

	items := make([]resolver.Item, len(args.Barriers))
	for i, b := range args.Barriers {
		items[i] = resolver.Item{CanonicalKey: b.CanonicalKey, SurfaceTerm: b.SurfaceTerm, Description: b.Description}
	}
	resolved := s.Resolver.Resolve(ctx, items, req.ModuleType)
	if len(resolved) != len(items) {
		return nil, fmt.Errorf("resolver returned %d items for %d barriers", len(resolved), len(items))
	}

	records := make([]itemmaster.ItemMasterRecord, 0, len(args.Barriers))
	for i, b := range args.Barriers {
		key := resolved[i].CanonicalKey
		supports := accommodationsFor(args.Accommodations, b.CanonicalKey, key)

		rec := s.newRecord(req, key, resolved[i].ResolutionMethod)
		rec.ItemLabel = firstNonEmpty(b.SurfaceTerm, cascade.TitleKey(key))
		rec.ParentFriendlyLabel = strings.TrimSpace(b.Description)
		rec.ClassroomObservation = strings.TrimSpace(b.Description)
		if len(supports) > 0 {
			rec.Support1 = supports[0].Description
			rec.CautionNote = strings.TrimSpace(supports[0].Justification)
		}
		if len(supports) > 1 {
			rec.Support2 = supports[1].Description
		}
		rec.EvidenceBasis = firstNonEmpty(b.Evidence, b.Description, noEvidence)
		rec.Source = itemmaster.SourceAIAnalysis
		rec.ValidationStatus, rec.InferenceLevel = resolvedStatus(key, resolved[i].ResolutionMethod)
		records = append(records, rec)
	}
	return records, nil
}

func (s *Service) lookupAccommodations(ctx context.Context, req domain.Request, raw string) ([]itemmaster.ItemMasterRecord, error) {
	var args appai.LookupAccommodationsArgs
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	item := s.Resolver.Resolve(ctx, []resolver.Item{{
		CanonicalKey: args.CanonicalKey,
		SurfaceTerm:  args.SurfaceTerm,
		Description:  args.Evidence,
	}}, req.ModuleType)
	if len(item) != 1 {
		return nil, fmt.Errorf("resolver returned %d items", len(item))
	}
	key := item[0].CanonicalKey
	band := s.lookupBand(req)

	rec := s.newRecord(req, key, item[0].ResolutionMethod)
	rec.Source = itemmaster.SourceDatabase
	rec.EvidenceBasis = firstNonEmpty(args.Evidence, noEvidence)
	rec.ItemLabel = firstNonEmpty(args.SurfaceTerm, cascade.TitleKey(key))

	if g, err := s.Lookups.Glossary(ctx, key, band); err != nil {
		s.log().Warn("glossary lookup failed", slog.String("canonical_key", key), slog.Any("error", err))
	} else if g != nil {
		rec.ItemLabel = firstNonEmpty(g.ItemLabel, rec.ItemLabel)
		rec.ParentFriendlyLabel = g.ParentFriendlyLabel
	}

	sup, err := s.Lookups.Support(ctx, key, band)
	if err != nil {
		s.log().Warn("support lookup failed", slog.String("canonical_key", key), slog.Any("error", err))
	}
	if sup == nil || key == itemmaster.UnknownBarrier {
		rec.ValidationStatus, rec.InferenceLevel = itemmaster.StatusFlagged, itemmaster.InferenceNone
		return []itemmaster.ItemMasterRecord{rec}, nil
	}
	rec.Support1, rec.Support2 = sup.Support1, sup.Support2
	rec.ValidationStatus, rec.InferenceLevel = itemmaster.StatusValidated, itemmaster.InferenceNone
	return []itemmaster.ItemMasterRecord{rec}, nil
}

func (s *Service) newRecord(req domain.Request, key, method string) itemmaster.ItemMasterRecord {
	return itemmaster.ItemMasterRecord{
		ID:               uuid.NewString(),
		CaseID:           req.CaseID,
		CanonicalKey:     key,
		ModuleType:       string(req.ModuleType),
		ResolutionMethod: method,
		CreatedAt:        s.now(),
	}
}

// resolvedStatus grades a model-extracted barrier by how its key was found.
func resolvedStatus(key, method string) (itemmaster.ValidationStatus, itemmaster.InferenceLevel) {
	switch {
	case key == itemmaster.UnknownBarrier:
		return itemmaster.StatusFlagged, itemmaster.InferenceComplete
	case method == itemmaster.MethodExactMatch:
		return itemmaster.StatusValidated, itemmaster.InferenceNone
	default:
		return itemmaster.StatusPartialInference, itemmaster.InferencePartial
	}
}

// accommodationsFor returns the accommodations whose key matches either the
// key the model supplied or the resolved one.
func accommodationsFor(all []appai.AccommodationArg, keys ...string) []appai.AccommodationArg {
	var out []appai.AccommodationArg
	for _, a := range all {
		k := strings.TrimSpace(a.CanonicalKey)
		if k == "" || strings.TrimSpace(a.Description) == "" {
			continue
		}
		for _, want := range keys {
			if strings.EqualFold(k, strings.TrimSpace(want)) {
				out = append(out, a)
				break
			}
		}
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

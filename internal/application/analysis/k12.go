package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"

	appai "github.com/bryanwahyu/accommodation-engine/internal/application/ai"
	"github.com/bryanwahyu/accommodation-engine/internal/application/report"
	"github.com/bryanwahyu/accommodation-engine/internal/application/resolver"
	domain "github.com/bryanwahyu/accommodation-engine/internal/domain/analysis"
	"github.com/bryanwahyu/accommodation-engine/internal/domain/findings"
	"github.com/bryanwahyu/accommodation-engine/internal/domain/itemmaster"
)

// runK12 drives discovery, population and the final narrative.
func (s *Service) runK12(ctx context.Context, req domain.Request, effective domain.Pathway, cfg domain.ModelConfig,
	conv *Conversation, rctx report.Context, log *slog.Logger) (outcome, error) {
	// discovery
	resp, err := s.Gateway.Complete(ctx, cfg, conv.Messages(), req.ModuleType, effective, nil)
	if err != nil {
		return outcome{}, fmt.Errorf("discovery: %w", err)
	}
	discovery := firstMessage(resp)
	narrative := discovery.Content
	if effective == domain.PathwaySimple || len(discovery.ToolCalls) == 0 {
		return outcome{narrative: narrative}, nil
	}
	if name := discovery.ToolCalls[0].Function.Name; name != appai.ToolCatalogFindings {
		log.Warn("discovery did not start with catalog_findings", slog.String("tool", name))
		return outcome{narrative: narrative}, nil
	}

	catalogued, acks, err := s.catalogFindings(ctx, req, discovery.ToolCalls)
	if err != nil {
		log.Warn("catalog_findings failed, returning narrative only", slog.Any("error", err))
		return outcome{narrative: narrative}, nil
	}
	if err := conv.AppendToolRound(discovery, acks); err != nil {
		log.Warn("discovery round rejected", slog.Any("error", err))
		return outcome{narrative: narrative}, nil
	}

	// population
	resp, err = s.Gateway.Complete(ctx, cfg, conv.Messages(), req.ModuleType, domain.PathwayComplex,
		appai.ForceFunction(appai.ToolPopulateItemMaster))
	if err != nil {
		return outcome{}, fmt.Errorf("population: %w", err)
	}
	population := firstMessage(resp)
	if len(population.ToolCalls) == 0 {
		log.Info("population returned no tool calls")
		return outcome{narrative: narrative}, nil
	}

	records, acks, err := s.populateK12(ctx, req, cfg, population.ToolCalls, catalogued)
	if err != nil {
		log.Warn("populate_item_master failed, returning narrative only", slog.Any("error", err))
		return outcome{narrative: narrative}, nil
	}
	if err := conv.AppendToolRound(population, acks); err != nil {
		log.Warn("population round rejected", slog.Any("error", err))
		return outcome{narrative: narrative}, nil
	}

	// final narrative
	resp, err = s.Gateway.Complete(ctx, cfg, conv.Messages(), req.ModuleType, domain.PathwaySimple, nil)
	if err != nil {
		return outcome{}, fmt.Errorf("final narrative: %w", err)
	}
	final := firstMessage(resp).Content
	if strings.TrimSpace(final) == "" {
		final = narrative
	}
	if strings.TrimSpace(final) == "" {
		final = report.Fallback(records, rctx)
	} else if tpl, ok := s.Config.ReportTemplate(req.ModuleType); ok {
		final = joinSections(final, report.Render(records, tpl, rctx))
	}
	return outcome{narrative: final, records: records}, nil
}

type ack struct {
	Status       string                      `json:"status"`
	Error        string                      `json:"error,omitempty"`
	Catalogued   int                         `json:"catalogued,omitempty"`
	Selected     []selectedFinding           `json:"selected,omitempty"`
	ItemMasterID string                      `json:"item_master_id,omitempty"`
	CanonicalKey string                      `json:"canonical_key,omitempty"`
	Validation   itemmaster.ValidationStatus `json:"validation_status,omitempty"`
	Records      int                         `json:"records,omitempty"`
}

type selectedFinding struct {
	Type        findings.Type `json:"type"`
	RankOrder   int           `json:"rank_order"`
	Description string        `json:"description"`
}

func ackJSON(a ack) string {
	b, err := json.Marshal(a)
	if err != nil {
		return `{"status":"error"}`
	}
	return string(b)
}

func errorAck(err error) string { return ackJSON(ack{Status: "error", Error: err.Error()}) }

var ignoredAck = ackJSON(ack{Status: "ignored"})

// catalogFindings persists every catalogued finding and acknowledges each
// call in order. Only the selected findings keep a rank order.
func (s *Service) catalogFindings(ctx context.Context, req domain.Request, calls []openai.ToolCall) ([]*findings.Finding, []ToolResult, error) {
	perCall := make([]int, len(calls))
	parseErr := make([]error, len(calls))
	var all []*findings.Finding
	now := s.now()

	for i, call := range calls {
		if call.Function.Name != appai.ToolCatalogFindings {
			continue
		}
		var args appai.CatalogFindingsArgs
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			parseErr[i] = fmt.Errorf("invalid catalog_findings arguments: %w", err)
			continue
		}
		for _, cf := range args.Findings {
			typ := findings.Type(strings.ToLower(strings.TrimSpace(cf.Type)))
			if typ != findings.TypeStrength && typ != findings.TypeWeakness {
				continue
			}
			if strings.TrimSpace(cf.Description) == "" {
				continue
			}
			all = append(all, &findings.Finding{
				ID:              uuid.NewString(),
				CaseID:          req.CaseID,
				Type:            typ,
				Description:     strings.TrimSpace(cf.Description),
				RelevanceScore:  findings.ClampRelevance(cf.RelevanceScore),
				ClassroomImpact: strings.TrimSpace(cf.ClassroomImpact),
				RankOrder:       max(cf.RankOrder, 0),
				ModuleType:      string(req.ModuleType),
				CreatedAt:       now,
			})
			perCall[i]++
		}
	}

	selected := append(
		selectTop(all, findings.TypeStrength, findings.MaxSelectedStrengths),
		selectTop(all, findings.TypeWeakness, findings.MaxSelectedWeaknesses)...,
	)

	for _, f := range all {
		if err := s.Findings.CreateAssessmentFinding(ctx, f); err != nil {
			return nil, nil, fmt.Errorf("create finding: %w", err)
		}
	}

	summary := make([]selectedFinding, 0, len(selected))
	for _, f := range selected {
		summary = append(summary, selectedFinding{Type: f.Type, RankOrder: f.RankOrder, Description: f.Description})
	}
	acks := make([]ToolResult, len(calls))
	for i, call := range calls {
		content := ignoredAck
		switch {
		case parseErr[i] != nil:
			content = errorAck(parseErr[i])
		case call.Function.Name == appai.ToolCatalogFindings:
			content = ackJSON(ack{Status: "ok", Catalogued: perCall[i], Selected: summary})
		}
		acks[i] = ToolResult{CallID: call.ID, Content: content}
	}
	return all, acks, nil
}

// selectTop keeps the ranked findings of one type, ordered by rank and capped,
// and renumbers them from 1. When the model ranked none, the most relevant
// findings are taken instead. Every other finding of the type loses its rank.
func selectTop(all []*findings.Finding, typ findings.Type, limit int) []*findings.Finding {
	var ofType, ranked []*findings.Finding
	for _, f := range all {
		if f.Type != typ {
			continue
		}
		ofType = append(ofType, f)
		if f.RankOrder > 0 {
			ranked = append(ranked, f)
		}
	}
	if len(ranked) > 0 {
		sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].RankOrder < ranked[j].RankOrder })
	} else {
		ranked = append(ranked, ofType...)
		sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].RelevanceScore > ranked[j].RelevanceScore })
	}
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	for _, f := range ofType {
		f.RankOrder = 0
	}
	for i, f := range ranked {
		f.RankOrder = i + 1
	}
	return ranked
}

type populateCall struct {
	index int
	args  appai.PopulateK12Args
}

// populateK12 turns each populate_item_master call into a persisted record
// linked to its finding.
func (s *Service) populateK12(ctx context.Context, req domain.Request, cfg domain.ModelConfig,
	calls []openai.ToolCall, catalogued []*findings.Finding) ([]itemmaster.ItemMasterRecord, []ToolResult, error) {
	acks := make([]ToolResult, len(calls))
	var valid []populateCall
	for i, call := range calls {
		acks[i] = ToolResult{CallID: call.ID, Content: ignoredAck}
		if call.Function.Name != appai.ToolPopulateItemMaster {
			continue
		}
		var args appai.PopulateK12Args
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			acks[i].Content = errorAck(fmt.Errorf("invalid populate_item_master arguments: %w", err))
			continue
		}
		valid = append(valid, populateCall{index: i, args: args})
	}

	items := make([]resolver.Item, len(valid))
	for i, pc := range valid {
		items[i] = resolver.Item{
			CanonicalKey: pc.args.CanonicalKey,
			SurfaceTerm:  pc.args.SurfaceTerm,
			Description:  pc.args.FindingDescription,
		}
	}
	resolved := s.Resolver.Resolve(ctx, items, req.ModuleType)
	if len(resolved) != len(valid) {
		return nil, nil, errors.New("resolver returned a different number of items")
	}

	band := domain.GradeBand(req.Context.StudentGrade)
	records := make([]itemmaster.ItemMasterRecord, 0, len(valid))
	for i, pc := range valid {
		item := resolved[i]
		f, err := s.matchFinding(ctx, req, pc.args, catalogued)
		if err != nil {
			return nil, nil, err
		}

		rec := s.Cascade.Populate(ctx, item.CanonicalKey, f, req.CaseID, band, cfg)
		rec.ID = uuid.NewString()
		rec.ResolutionMethod = item.ResolutionMethod
		rec.CreatedAt = s.now()
		if ev := strings.TrimSpace(pc.args.EvidenceBasis); ev != "" {
			rec.EvidenceBasis = ev
		}
		if err := s.ItemMaster.SaveItemMaster(ctx, req.CaseID, &rec); err != nil {
			return nil, nil, fmt.Errorf("save item master: %w", err)
		}

		f.CanonicalKey = item.CanonicalKey
		f.MatchingMethod = item.ResolutionMethod
		f.ItemMasterID = rec.ID
		if err := s.Findings.UpdateAssessmentFinding(ctx, f); err != nil {
			return nil, nil, fmt.Errorf("update finding: %w", err)
		}

		records = append(records, rec)
		acks[pc.index].Content = ackJSON(ack{
			Status:       "ok",
			ItemMasterID: rec.ID,
			CanonicalKey: rec.CanonicalKey,
			Validation:   rec.ValidationStatus,
		})
	}
	return records, acks, nil
}

// matchFinding links a populate call to a selected finding by type and rank,
// then by description. Findings left out of the selection are never linked;
// unmatched calls get a new persisted finding.
func (s *Service) matchFinding(ctx context.Context, req domain.Request, args appai.PopulateK12Args, catalogued []*findings.Finding) (*findings.Finding, error) {
	typ := findings.Type(strings.ToLower(strings.TrimSpace(args.FindingType)))
	if args.RankOrder > 0 {
		for _, f := range catalogued {
			if f.Selected() && f.Type == typ && f.RankOrder == args.RankOrder {
				return f, nil
			}
		}
	}
	desc := strings.TrimSpace(args.FindingDescription)
	for _, f := range catalogued {
		if desc == "" || !strings.EqualFold(f.Description, desc) {
			continue
		}
		if f.Selected() {
			return f, nil
		}
		s.log().Warn("populate call names an unselected finding, recording it separately",
			slog.String("case_id", req.CaseID), slog.String("finding_id", f.ID))
		break
	}

	if typ != findings.TypeStrength {
		typ = findings.TypeWeakness
	}
	f := &findings.Finding{
		ID:             uuid.NewString(),
		CaseID:         req.CaseID,
		Type:           typ,
		Description:    desc,
		RelevanceScore: findings.ClampRelevance(0),
		RankOrder:      max(args.RankOrder, 0),
		ModuleType:     string(req.ModuleType),
		CreatedAt:      s.now(),
	}
	if err := s.Findings.CreateAssessmentFinding(ctx, f); err != nil {
		return nil, fmt.Errorf("create finding: %w", err)
	}
	return f, nil
}

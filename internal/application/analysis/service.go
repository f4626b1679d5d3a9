package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/bryanwahyu/accommodation-engine/internal/application"
	"github.com/bryanwahyu/accommodation-engine/internal/application/pathway"
	"github.com/bryanwahyu/accommodation-engine/internal/application/report"
	"github.com/bryanwahyu/accommodation-engine/internal/application/resolver"
	domain "github.com/bryanwahyu/accommodation-engine/internal/domain/analysis"
	"github.com/bryanwahyu/accommodation-engine/internal/domain/findings"
	"github.com/bryanwahyu/accommodation-engine/internal/domain/itemmaster"
	"github.com/bryanwahyu/accommodation-engine/internal/infra/ai/prompt"
)

// Completer is the completion gateway.
type Completer interface {
	Complete(ctx context.Context, cfg domain.ModelConfig, messages []openai.ChatCompletionMessage,
		module domain.ModuleType, pathway domain.Pathway, toolChoice *openai.ToolChoice) (openai.ChatCompletionResponse, error)
}

// KeyResolver maps free text onto canonical keys.
type KeyResolver interface {
	Resolve(ctx context.Context, items []resolver.Item, module domain.ModuleType) []resolver.Item
}

// FieldPopulator completes K-12 item-master display fields.
type FieldPopulator interface {
	Populate(ctx context.Context, key string, f *findings.Finding, caseID, gradeBand string, cfg domain.ModelConfig) itemmaster.ItemMasterRecord
}

// Service is the tool-call orchestrator and the engine's single entry point.
// It holds no per-request state, so one Service serves concurrent requests.
type Service struct {
	Gateway    Completer
	Pathways   pathway.Selector
	Config     domain.ConfigProvider
	Resolver   KeyResolver
	Cascade    FieldPopulator
	Findings   findings.Repository
	ItemMaster itemmaster.Repository
	Lookups    itemmaster.LookupRepository
	Clock      application.Clock
	Logger     *slog.Logger
}

type outcome struct {
	narrative string
	records   []itemmaster.ItemMasterRecord
}

// Analyze always returns a result; every error, including a panic, becomes a
// failed result with an error message.
func (s *Service) Analyze(ctx context.Context, req domain.Request) (res domain.Result) {
	now := s.now()
	log := s.log().With(slog.String("case_id", req.CaseID), slog.String("module", string(req.ModuleType)))

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("analysis panicked", slog.Any("panic", rec), slog.String("stack", string(debug.Stack())))
			res = failed(now, fmt.Errorf("internal error: %v", rec))
		}
	}()

	out, err := s.run(ctx, req, now, log)
	if err != nil {
		log.Error("analysis failed", slog.Any("error", err))
		return failed(now, err)
	}
	log.Info("analysis completed", slog.Int("item_master_records", len(out.records)))
	return domain.Result{
		Status:         domain.StatusCompleted,
		AnalysisDate:   now,
		MarkdownReport: out.narrative,
		ItemMasterData: nonNil(out.records),
	}
}

func (s *Service) run(ctx context.Context, req domain.Request, now time.Time, log *slog.Logger) (outcome, error) {
	if err := req.Validate(); err != nil {
		return outcome{}, err
	}

	effective := s.Pathways.Effective(req.ModuleType, req.Pathway)
	cfg := s.Config.ModelConfig(req.ModuleType)
	system, err := s.Config.SystemPrompt(req.ModuleType, effective)
	if err != nil {
		return outcome{}, fmt.Errorf("configuration: %w", err)
	}
	log = log.With(slog.String("pathway", string(effective)), slog.String("model", cfg.Model))

	conv := NewConversation(system, prompt.BuildUserMessage(req))
	rctx := reportContext(req, now)

	switch req.ModuleType {
	case domain.ModuleK12:
		return s.runK12(ctx, req, effective, cfg, conv, rctx, log)
	case domain.ModulePostSecondary, domain.ModuleTutoring:
		return s.runGeneric(ctx, req, effective, cfg, conv, rctx, log)
	}
	return outcome{}, fmt.Errorf("%w: %q", domain.ErrInvalidModuleType, req.ModuleType)
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now()
}

func (s *Service) log() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func failed(now time.Time, err error) domain.Result {
	return domain.Result{
		Status:         domain.StatusFailed,
		AnalysisDate:   now,
		ItemMasterData: []itemmaster.ItemMasterRecord{},
		ErrorMessage:   err.Error(),
	}
}

func nonNil(records []itemmaster.ItemMasterRecord) []itemmaster.ItemMasterRecord {
	if records == nil {
		return []itemmaster.ItemMasterRecord{}
	}
	return records
}

func firstMessage(resp openai.ChatCompletionResponse) openai.ChatCompletionMessage {
	if len(resp.Choices) == 0 {
		return openai.ChatCompletionMessage{}
	}
	return resp.Choices[0].Message
}

func reportContext(req domain.Request, now time.Time) report.Context {
	return report.Context{
		UniqueID:     req.Context.UniqueID,
		ProgramMajor: req.Context.ProgramMajor,
		ReportAuthor: req.Context.ReportAuthor,
		StudentGrade: req.Context.StudentGrade,
		AnalysisDate: now.Format("2006-01-02"),
	}
}

func joinSections(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n\n")
}

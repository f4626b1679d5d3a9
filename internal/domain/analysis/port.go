package analysis

import "context"

// ConfigProvider supplies model settings, system prompts and report templates.
type ConfigProvider interface {
	// ModelConfig never fails; unknown or broken entries yield the safe default.
	ModelConfig(module ModuleType) ModelConfig
	// SystemPrompt fails when no prompt is registered for (module, pathway).
	SystemPrompt(module ModuleType, pathway Pathway) (string, error)
	ReportTemplate(module ModuleType) (string, bool)
}

// ResultRepository persists finished analyses.
type ResultRepository interface {
	SaveResult(ctx context.Context, caseID, jobID string, res *Result) error
	LatestResult(ctx context.Context, caseID string) (*Result, error)
}

// ReportStore port (object storage for rendered reports)
type ReportStore interface {
	PutReport(ctx context.Context, key string, markdown []byte) (string, error)
	PutJSON(ctx context.Context, key string, payload []byte) (string, error)
}

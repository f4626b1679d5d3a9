package findings

import "context"

// Repository port for assessment findings, keyed by case.
type Repository interface {
	CreateAssessmentFinding(ctx context.Context, f *Finding) error
	UpdateAssessmentFinding(ctx context.Context, f *Finding) error
	GetAssessmentFindings(ctx context.Context, caseID string) ([]*Finding, error)
}

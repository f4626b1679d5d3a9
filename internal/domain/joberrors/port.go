package joberrors

import "context"

// Repository defines persistence for job errors
type Repository interface {
	SaveJobError(ctx context.Context, e *JobError) error
	ListByCase(ctx context.Context, caseID string, limit int) ([]*JobError, error)
}

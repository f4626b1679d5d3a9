package sqlstore

import (
	"context"
	"strings"

	"github.com/bryanwahyu/accommodation-engine/internal/domain/joberrors"
)

func (s *Store) SaveJobError(ctx context.Context, e *joberrors.JobError) error {
	const q = `
INSERT INTO job_errors
  (case_id, job_id, module_type, attempt, message, details_json, created_at)
VALUES (?,?,?,?,?,?,?)
`
	msg := e.Message
	if strings.TrimSpace(msg) == "" {
		msg = "-"
	}
	e.CreatedAt = s.timeOrNow(e.CreatedAt)
	return s.exec(ctx, q,
		stringOrDash(e.CaseID), stringOrDash(e.JobID), stringOrDash(e.ModuleType),
		e.Attempt, msg, jsonOrEmpty(e.DetailsJSON), e.CreatedAt)
}

func (s *Store) ListByCase(ctx context.Context, caseID string, limit int) ([]*joberrors.JobError, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, case_id, job_id, module_type, attempt, message, details_json, created_at
FROM job_errors
WHERE case_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ?`
	rows, err := s.query(ctx, q, caseID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*joberrors.JobError
	for rows.Next() {
		var e joberrors.JobError
		if err := rows.Scan(&e.ID, &e.CaseID, &e.JobID, &e.ModuleType, &e.Attempt, &e.Message, &e.DetailsJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

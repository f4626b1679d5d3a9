package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bryanwahyu/accommodation-engine/internal/domain/analysis"
	"github.com/bryanwahyu/accommodation-engine/internal/domain/itemmaster"
)

// ErrNotFound is returned when a case has no persisted result.
var ErrNotFound = errors.New("not found")

// SaveResult appends the final result of a job. The item-master snapshot is
// stored as JSON next to the report.
func (s *Store) SaveResult(ctx context.Context, caseID, jobID string, res *analysis.Result) error {
	const q = `
INSERT INTO analysis_results
(case_id, job_id, status, analysis_date, markdown_report, item_master_json, error_message, created_at)
VALUES (?,?,?,?,?,?,?,?)`
	b := []byte("[]")
	if res.Status != analysis.StatusFailed && len(res.ItemMasterData) > 0 {
		var err error
		if b, err = json.Marshal(res.ItemMasterData); err != nil {
			return err
		}
	}
	err := s.exec(ctx, q, caseID, stringOrDash(jobID), string(res.Status), s.timeOrNow(res.AnalysisDate),
		res.MarkdownReport, string(b), res.ErrorMessage, s.now())
	if err != nil {
		return fmt.Errorf("insert result for %s: %w", caseID, err)
	}
	return nil
}

// LatestResult returns the most recently stored result for caseID.
func (s *Store) LatestResult(ctx context.Context, caseID string) (*analysis.Result, error) {
	const q = `
SELECT status, analysis_date, markdown_report, item_master_json, error_message
FROM analysis_results
WHERE case_id = ?
ORDER BY created_at DESC, id DESC
LIMIT 1`
	var res analysis.Result
	var status string
	var report, items, msg sql.NullString
	err := s.queryRow(ctx, q, caseID).Scan(&status, &res.AnalysisDate, &report, &items, &msg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	res.Status = analysis.Status(status)
	res.MarkdownReport, res.ErrorMessage = report.String, msg.String
	if items.String != "" {
		if err := json.Unmarshal([]byte(items.String), &res.ItemMasterData); err != nil {
			return nil, fmt.Errorf("decode item master snapshot: %w", err)
		}
	}
	if res.ItemMasterData == nil {
		res.ItemMasterData = []itemmaster.ItemMasterRecord{}
	}
	return &res, nil
}

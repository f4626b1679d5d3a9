package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bryanwahyu/accommodation-engine/internal/domain/findings"
)

const findingColumns = `id, case_id, finding_type, description, relevance_score, classroom_impact,
 rank_order, module_type, canonical_key, matching_method, item_master_id, created_at`

// CreateAssessmentFinding inserts a finding; a repeated id updates it.
func (s *Store) CreateAssessmentFinding(ctx context.Context, f *findings.Finding) error {
	q := `
INSERT INTO assessment_findings
(` + findingColumns + `)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?)
` + s.dialect.Upsert("id", "description", "relevance_score", "classroom_impact", "rank_order")

	f.CreatedAt = s.timeOrNow(f.CreatedAt)
	err := s.exec(ctx, q,
		f.ID, f.CaseID, string(f.Type), f.Description, f.RelevanceScore, f.ClassroomImpact,
		f.RankOrder, stringOrDash(f.ModuleType), f.CanonicalKey, f.MatchingMethod, f.ItemMasterID, f.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert finding %s: %w", f.ID, err)
	}
	return nil
}

// UpdateAssessmentFinding annotates a finding with its resolution.
func (s *Store) UpdateAssessmentFinding(ctx context.Context, f *findings.Finding) error {
	const q = `
UPDATE assessment_findings
SET rank_order = ?, canonical_key = ?, matching_method = ?, item_master_id = ?
WHERE id = ? AND case_id = ?`
	if err := s.exec(ctx, q, f.RankOrder, f.CanonicalKey, f.MatchingMethod, f.ItemMasterID, f.ID, f.CaseID); err != nil {
		return fmt.Errorf("update finding %s: %w", f.ID, err)
	}
	return nil
}

// GetAssessmentFindings lists a case's findings, selected ones first by rank.
func (s *Store) GetAssessmentFindings(ctx context.Context, caseID string) ([]*findings.Finding, error) {
	q := `
SELECT ` + findingColumns + `
FROM assessment_findings
WHERE case_id = ?
ORDER BY finding_type, CASE WHEN rank_order > 0 THEN 0 ELSE 1 END, rank_order, relevance_score DESC, created_at`
	rows, err := s.query(ctx, q, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*findings.Finding
	for rows.Next() {
		var f findings.Finding
		var typ string
		var impact, key, method, imID sql.NullString
		if err := rows.Scan(&f.ID, &f.CaseID, &typ, &f.Description, &f.RelevanceScore, &impact,
			&f.RankOrder, &f.ModuleType, &key, &method, &imID, &f.CreatedAt); err != nil {
			return nil, err
		}
		f.Type = findings.Type(typ)
		f.ClassroomImpact, f.CanonicalKey, f.MatchingMethod, f.ItemMasterID = impact.String, key.String, method.String, imID.String
		out = append(out, &f)
	}
	return out, rows.Err()
}

package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/bryanwahyu/accommodation-engine/internal/domain/itemmaster"
)

const itemMasterColumns = `id, case_id, canonical_key, item_label, parent_friendly_label, classroom_observation,
 support_1, support_2, caution_note, evidence_basis, validation_status, inference_level, source,
 module_type, resolution_method, inferred_fields, finding_id, created_at`

// SaveItemMaster upserts one record under caseID.
func (s *Store) SaveItemMaster(ctx context.Context, caseID string, r *itemmaster.ItemMasterRecord) error {
	q := `
INSERT INTO item_master
(` + itemMasterColumns + `)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
` + s.dialect.Upsert("id",
		"item_label", "parent_friendly_label", "classroom_observation", "support_1", "support_2",
		"caution_note", "evidence_basis", "validation_status", "inference_level", "source", "inferred_fields")

	inferred := "[]"
	if len(r.InferredFields) > 0 {
		b, err := json.Marshal(r.InferredFields)
		if err != nil {
			return err
		}
		inferred = string(b)
	}
	r.CaseID = caseID
	r.CreatedAt = s.timeOrNow(r.CreatedAt)

	err := s.exec(ctx, q,
		r.ID, caseID, stringOrDash(r.CanonicalKey), r.ItemLabel, r.ParentFriendlyLabel, r.ClassroomObservation,
		r.Support1, r.Support2, r.CautionNote, stringOrDash(r.EvidenceBasis),
		string(r.ValidationStatus), string(r.InferenceLevel), string(r.Source),
		stringOrDash(r.ModuleType), r.ResolutionMethod, inferred, r.FindingID, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert item master %s: %w", r.ID, err)
	}
	return nil
}

func (s *Store) ListItemMaster(ctx context.Context, caseID string) ([]*itemmaster.ItemMasterRecord, error) {
	q := `
SELECT ` + itemMasterColumns + `
FROM item_master
WHERE case_id = ?
ORDER BY created_at, id`
	rows, err := s.query(ctx, q, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*itemmaster.ItemMasterRecord
	for rows.Next() {
		var r itemmaster.ItemMasterRecord
		var status, level, source string
		var method, inferred, findingID sql.NullString
		if err := rows.Scan(&r.ID, &r.CaseID, &r.CanonicalKey, &r.ItemLabel, &r.ParentFriendlyLabel, &r.ClassroomObservation,
			&r.Support1, &r.Support2, &r.CautionNote, &r.EvidenceBasis, &status, &level, &source,
			&r.ModuleType, &method, &inferred, &findingID, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.ValidationStatus = itemmaster.ValidationStatus(status)
		r.InferenceLevel = itemmaster.InferenceLevel(level)
		r.Source = itemmaster.Source(source)
		r.ResolutionMethod, r.FindingID = method.String, findingID.String
		if inferred.Valid && inferred.String != "" {
			if err := json.Unmarshal([]byte(inferred.String), &r.InferredFields); err != nil {
				return nil, fmt.Errorf("item master %s inferred_fields: %w", r.ID, err)
			}
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

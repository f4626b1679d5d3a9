package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/bryanwahyu/accommodation-engine/internal/domain/analysis"
	"github.com/bryanwahyu/accommodation-engine/internal/domain/itemmaster"
)

// Reference tables hold one row per (canonical_key, grade_band). A row for the
// requested band wins over the general row.
const bandFilter = `
WHERE canonical_key = ? AND grade_band IN (?, ?)
ORDER BY CASE WHEN grade_band = ? THEN 0 ELSE 1 END
LIMIT 1`

func (s *Store) lookupRow(ctx context.Context, cols, table, key, band string, dest ...any) (bool, error) {
	q := `SELECT ` + cols + ` FROM ` + table + bandFilter
	err := s.queryRow(ctx, q, key, band, analysis.GradeBandGeneral, band).Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) Glossary(ctx context.Context, key, gradeBand string) (*itemmaster.GlossaryEntry, error) {
	var label, parent sql.NullString
	ok, err := s.lookupRow(ctx, "item_label, parent_friendly_label", "glossary", key, gradeBand, &label, &parent)
	if err != nil || !ok {
		return nil, err
	}
	return &itemmaster.GlossaryEntry{ItemLabel: label.String, ParentFriendlyLabel: parent.String}, nil
}

func (s *Store) Support(ctx context.Context, key, gradeBand string) (*itemmaster.SupportEntry, error) {
	var s1, s2 sql.NullString
	ok, err := s.lookupRow(ctx, "support_1, support_2", "support_strategies", key, gradeBand, &s1, &s2)
	if err != nil || !ok {
		return nil, err
	}
	return &itemmaster.SupportEntry{Support1: s1.String, Support2: s2.String}, nil
}

func (s *Store) Caution(ctx context.Context, key, gradeBand string) (*itemmaster.CautionEntry, error) {
	var note sql.NullString
	ok, err := s.lookupRow(ctx, "caution_note", "caution_notes", key, gradeBand, &note)
	if err != nil || !ok {
		return nil, err
	}
	return &itemmaster.CautionEntry{CautionNote: note.String}, nil
}

func (s *Store) Observation(ctx context.Context, key, gradeBand string) (*itemmaster.ObservationEntry, error) {
	var obs sql.NullString
	ok, err := s.lookupRow(ctx, "classroom_observation", "observation_templates", key, gradeBand, &obs)
	if err != nil || !ok {
		return nil, err
	}
	return &itemmaster.ObservationEntry{ClassroomObservation: obs.String}, nil
}

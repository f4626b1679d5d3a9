package findings

import "time"

// Type enum
type Type string

const (
	TypeStrength Type = "strength"
	TypeWeakness Type = "weakness"
)

// Selection caps for the ranked findings that continue to population.
const (
	MaxSelectedStrengths  = 4
	MaxSelectedWeaknesses = 3
)

// Finding is a K-12 strength or weakness catalogued from the documents.
// RankOrder is zero unless the finding was selected.
type Finding struct {
	ID              string    `json:"id"`
	CaseID          string    `json:"case_id"`
	Type            Type      `json:"type"`
	Description     string    `json:"description"`
	RelevanceScore  int       `json:"relevance_score"`
	ClassroomImpact string    `json:"classroom_impact,omitempty"`
	RankOrder       int       `json:"rank_order,omitempty"`
	ModuleType      string    `json:"module_type"`
	CanonicalKey    string    `json:"canonical_key,omitempty"`
	MatchingMethod  string    `json:"matching_method,omitempty"`
	ItemMasterID    string    `json:"item_master_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Selected reports whether the model ranked this finding.
func (f *Finding) Selected() bool { return f.RankOrder > 0 }

// ClampRelevance keeps the score in 1..10.
func ClampRelevance(score int) int {
	if score < 1 {
		return 1
	}
	if score > 10 {
		return 10
	}
	return score
}

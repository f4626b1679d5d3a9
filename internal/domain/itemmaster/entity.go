package itemmaster

import "time"

// ValidationStatus enum
type ValidationStatus string

const (
	StatusValidated        ValidationStatus = "validated"
	StatusPartialInference ValidationStatus = "partial_inference"
	StatusFullInference    ValidationStatus = "full_inference"
	StatusFlagged          ValidationStatus = "flagged"
)

// InferenceLevel enum
type InferenceLevel string

const (
	InferenceNone     InferenceLevel = "none"
	InferencePartial  InferenceLevel = "partial"
	InferenceComplete InferenceLevel = "complete"
)

// Source enum
type Source string

const (
	SourceDatabase         Source = "database"
	SourceCascadeInference Source = "cascade_inference"
	SourceAIAnalysis       Source = "ai_analysis"
)

// Resolution methods recorded on resolved items and findings.
const (
	MethodExactMatch = "exact_match"
	MethodAIResolved = "ai_resolved"
)

// UnknownBarrier is the sentinel key for terms the taxonomy cannot place.
const UnknownBarrier = "unknown_barrier"

// Display field names, in render order.
const (
	FieldItemLabel            = "item_label"
	FieldParentFriendlyLabel  = "parent_friendly_label"
	FieldClassroomObservation = "classroom_observation"
	FieldSupport1             = "support_1"
	FieldSupport2             = "support_2"
	FieldCautionNote          = "caution_note"
)

// DisplayFields is the required display field set.
var DisplayFields = []string{
	FieldItemLabel,
	FieldParentFriendlyLabel,
	FieldClassroomObservation,
	FieldSupport1,
	FieldSupport2,
	FieldCautionNote,
}

// ItemMasterRecord is the structured accommodation entry for one canonical key.
// CanonicalKey and EvidenceBasis are never empty once populated.
type ItemMasterRecord struct {
	ID                   string           `json:"id"`
	CaseID               string           `json:"case_id"`
	CanonicalKey         string           `json:"canonical_key"`
	ItemLabel            string           `json:"item_label"`
	ParentFriendlyLabel  string           `json:"parent_friendly_label"`
	ClassroomObservation string           `json:"classroom_observation"`
	Support1             string           `json:"support_1"`
	Support2             string           `json:"support_2"`
	CautionNote          string           `json:"caution_note"`
	EvidenceBasis        string           `json:"evidence_basis"`
	ValidationStatus     ValidationStatus `json:"validation_status"`
	InferenceLevel       InferenceLevel   `json:"inference_level"`
	Source               Source           `json:"source"`
	ModuleType           string           `json:"module_type"`
	ResolutionMethod     string           `json:"resolution_method,omitempty"`
	InferredFields       []string         `json:"inferred_fields,omitempty"`
	FindingID            string           `json:"finding_id,omitempty"`
	CreatedAt            time.Time        `json:"created_at"`
}

// Field returns a display field by name.
func (r *ItemMasterRecord) Field(name string) string {
	switch name {
	case FieldItemLabel:
		return r.ItemLabel
	case FieldParentFriendlyLabel:
		return r.ParentFriendlyLabel
	case FieldClassroomObservation:
		return r.ClassroomObservation
	case FieldSupport1:
		return r.Support1
	case FieldSupport2:
		return r.Support2
	case FieldCautionNote:
		return r.CautionNote
	}
	return ""
}

// SetField assigns a display field by name; unknown names are ignored.
func (r *ItemMasterRecord) SetField(name, value string) {
	switch name {
	case FieldItemLabel:
		r.ItemLabel = value
	case FieldParentFriendlyLabel:
		r.ParentFriendlyLabel = value
	case FieldClassroomObservation:
		r.ClassroomObservation = value
	case FieldSupport1:
		r.Support1 = value
	case FieldSupport2:
		r.Support2 = value
	case FieldCautionNote:
		r.CautionNote = value
	}
}

// IsInferred reports whether the named field came from generative inference.
func (r *ItemMasterRecord) IsInferred(name string) bool {
	for _, f := range r.InferredFields {
		if f == name {
			return true
		}
	}
	return false
}

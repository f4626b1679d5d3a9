package itemmaster

import "context"

// Repository port for item-master persistence.
type Repository interface {
	SaveItemMaster(ctx context.Context, caseID string, rec *ItemMasterRecord) error
	ListItemMaster(ctx context.Context, caseID string) ([]*ItemMasterRecord, error)
}

// GlossaryEntry supplies the label fields.
type GlossaryEntry struct {
	ItemLabel           string
	ParentFriendlyLabel string
}

type SupportEntry struct {
	Support1 string
	Support2 string
}

type CautionEntry struct {
	CautionNote string
}

type ObservationEntry struct {
	ClassroomObservation string
}

// LookupRepository reads reference tables by (canonical key, grade band).
// A nil entry with nil error means the row does not exist.
type LookupRepository interface {
	Glossary(ctx context.Context, key, gradeBand string) (*GlossaryEntry, error)
	Support(ctx context.Context, key, gradeBand string) (*SupportEntry, error)
	Caution(ctx context.Context, key, gradeBand string) (*CautionEntry, error)
	Observation(ctx context.Context, key, gradeBand string) (*ObservationEntry, error)
}

package analysis

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bryanwahyu/accommodation-engine/internal/domain/itemmaster"
)

var (
	ErrInvalidModuleType = errors.New("invalid module type")
	ErrInvalidPathway    = errors.New("invalid pathway")
	ErrNoDocuments       = errors.New("analysis request has no documents")
)

// ModuleType enum
type ModuleType string

const (
	ModuleK12           ModuleType = "k12"
	ModulePostSecondary ModuleType = "post_secondary"
	ModuleTutoring      ModuleType = "tutoring"
)

// ParseModuleType maps a runtime string onto the closed module set.
func ParseModuleType(raw string) (ModuleType, error) {
	switch ModuleType(strings.ToLower(strings.TrimSpace(raw))) {
	case ModuleK12:
		return ModuleK12, nil
	case ModulePostSecondary:
		return ModulePostSecondary, nil
	case ModuleTutoring:
		return ModuleTutoring, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidModuleType, raw)
	}
}

// Pathway enum; PathwayUnset means the caller did not ask for one.
type Pathway string

const (
	PathwayUnset   Pathway = ""
	PathwaySimple  Pathway = "simple"
	PathwayComplex Pathway = "complex"
)

func ParsePathway(raw string) (Pathway, error) {
	switch Pathway(strings.ToLower(strings.TrimSpace(raw))) {
	case PathwayUnset:
		return PathwayUnset, nil
	case PathwaySimple:
		return PathwaySimple, nil
	case PathwayComplex:
		return PathwayComplex, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPathway, raw)
	}
}

// Document is one extracted assessment document.
type Document struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// Context carries optional report metadata.
type Context struct {
	UniqueID     string `json:"unique_id,omitempty"`
	ProgramMajor string `json:"program_major,omitempty"`
	ReportAuthor string `json:"report_author,omitempty"`
	StudentGrade string `json:"student_grade,omitempty"`
}

// Request is a single analysis job.
type Request struct {
	CaseID     string     `json:"case_id"`
	ModuleType ModuleType `json:"module_type"`
	Pathway    Pathway    `json:"pathway,omitempty"`
	Documents  []Document `json:"documents"`
	Context    Context    `json:"context"`
}

// Validate checks the fields the engine relies on.
func (r Request) Validate() error {
	if strings.TrimSpace(r.CaseID) == "" {
		return errors.New("case_id is required")
	}
	if _, err := ParseModuleType(string(r.ModuleType)); err != nil {
		return err
	}
	if _, err := ParsePathway(string(r.Pathway)); err != nil {
		return err
	}
	if len(r.Documents) == 0 {
		return ErrNoDocuments
	}
	return nil
}

// ModelConfig is the per-module completion configuration.
type ModelConfig struct {
	Model       string  `json:"model" yaml:"model"`
	MaxTokens   int     `json:"max_tokens" yaml:"maxTokens"`
	Temperature float32 `json:"temperature" yaml:"temperature"`
}

// Status enum
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Result is what every analysis resolves to. ItemMasterData must be ignored
// when Status is failed.
type Result struct {
	Status         Status                        `json:"status"`
	AnalysisDate   time.Time                     `json:"analysis_date"`
	MarkdownReport string                        `json:"markdown_report"`
	ItemMasterData []itemmaster.ItemMasterRecord `json:"item_master_data"`
	ErrorMessage   string                        `json:"error_message,omitempty"`
}

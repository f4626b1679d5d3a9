package joberrors

import "time"

// JobError represents a persisted failed attempt of an analysis job
type JobError struct {
	ID          int64     `json:"id"`
	CaseID      string    `json:"case_id"`
	JobID       string    `json:"job_id"`
	ModuleType  string    `json:"module_type,omitempty"`
	Attempt     int       `json:"attempt"`
	Message     string    `json:"message"`
	DetailsJSON string    `json:"details_json,omitempty"` // raw JSON string
	CreatedAt   time.Time `json:"created_at"`
}

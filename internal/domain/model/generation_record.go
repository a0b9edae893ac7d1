package model

import "time"

// GenerationRecord is the persisted row behind a GenerationJob. The status
// poller reconciles observed statuses into it opportunistically; reads scan a
// bounded recent window rather than assuming an indexed lookup.
type GenerationRecord struct {
	ID           string
	UserID       string
	JobID        string
	Provider     Provider
	Model        string
	Kind         JobKind
	Status       JobStatus
	ResultURL    string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

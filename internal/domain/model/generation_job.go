package model

import (
	"strings"
	"time"
)

type Provider string

const (
	ProviderRunway    Provider = "runway"
	ProviderLuma      Provider = "luma"
	ProviderKling     Provider = "kling"
	ProviderReplicate Provider = "replicate"
	ProviderGoogle    Provider = "google"
	ProviderOpenAI    Provider = "openai"
)

// DefaultProvider is assumed when a request carries no provider hint.
const DefaultProvider = ProviderReplicate

// ParseProvider normalizes a provider identifier. Empty input falls back to
// the default; unknown identifiers return false.
func ParseProvider(s string) (Provider, bool) {
	if s == "" {
		return DefaultProvider, true
	}
	switch p := Provider(strings.ToLower(strings.TrimSpace(s))); p {
	case ProviderRunway, ProviderLuma, ProviderKling, ProviderReplicate, ProviderGoogle, ProviderOpenAI:
		return p, true
	default:
		return "", false
	}
}

type JobKind string

const (
	JobKindVideo     JobKind = "video"
	JobKindAnimation JobKind = "animation"
	JobKindImage     JobKind = "image"
)

func ParseJobKind(s string) (JobKind, bool) {
	switch k := JobKind(strings.ToLower(strings.TrimSpace(s))); k {
	case JobKindVideo, JobKindAnimation, JobKindImage:
		return k, true
	default:
		return "", false
	}
}

// JobStatus is the canonical status vocabulary. Provider-native strings are
// translated into it at the adapter boundary and never leak past it.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// Terminal reports whether no further transitions are permitted.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// JobResult is present only on completed jobs.
type JobResult struct {
	URL string `json:"url"`
}

// GenerationJob tracks one request to an external provider producing an
// asynchronous artifact.
type GenerationJob struct {
	ID        string     `json:"id"`
	Provider  Provider   `json:"provider"`
	Model     string     `json:"model"`
	Kind      JobKind    `json:"kind"`
	Status    JobStatus  `json:"status"`
	Progress  int        `json:"progress,omitempty"`
	Result    *JobResult `json:"result,omitempty"`
	Error     string     `json:"error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func NewPendingJob(id string, provider Provider, modelName string, kind JobKind) *GenerationJob {
	return &GenerationJob{
		ID:        id,
		Provider:  provider,
		Model:     modelName,
		Kind:      kind,
		Status:    JobStatusPending,
		CreatedAt: time.Now(),
	}
}

// ApplyStatus moves the job to next and reports whether the transition was
// accepted. A terminal job absorbs every further transition: repeated
// observations of an already-final job are idempotent reads.
func (j *GenerationJob) ApplyStatus(next JobStatus) bool {
	if j.Status.Terminal() {
		return false
	}
	j.Status = next
	// Result and error are mutually exclusive and absent outside their
	// terminal state.
	if next != JobStatusCompleted {
		j.Result = nil
	}
	if next != JobStatusFailed {
		j.Error = ""
	}
	return true
}

// Complete transitions to completed with the generated asset URL.
func (j *GenerationJob) Complete(url string) bool {
	if !j.ApplyStatus(JobStatusCompleted) {
		return false
	}
	j.Result = &JobResult{URL: url}
	j.Progress = 100
	return true
}

// Fail transitions to failed with a human-readable reason.
func (j *GenerationJob) Fail(reason string) bool {
	if !j.ApplyStatus(JobStatusFailed) {
		return false
	}
	j.Error = reason
	return true
}

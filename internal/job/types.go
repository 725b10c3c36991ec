package job

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned for unknown job ids
var ErrNotFound = errors.New("job not found")

// ErrNotRetryable is returned when retrying a job that has not finished unsuccessfully
var ErrNotRetryable = errors.New("job is not failed or cancelled")

// JobType represents the kind of job
type JobType string

const (
	JobTranslate JobType = "translate"
)

// JobStatus represents the current state of a job
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusCancelled JobStatus = "cancelled"
)

// Job represents a queued translation run
type Job struct {
	ID          string          `json:"id"`
	Type        JobType         `json:"type"`
	Status      JobStatus       `json:"status"`
	SourcePath  string          `json:"source_path"`
	Params      json.RawMessage `json:"params"`
	Progress    float64         `json:"progress"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// TranslateParams are parameters for a translation job
type TranslateParams struct {
	SourceLang    string `json:"source_lang"`                                            // "en", or "" to derive from the file name
	TargetLang    string `json:"target_lang" validate:"required,max=16"`                 // "zh-CN", "ko", ...
	Engine        string `json:"engine" validate:"required,oneof=gemini openai"`         // LLM client
	Preset        string `json:"preset" validate:"omitempty,oneof=anime movie documentary custom"`
	CustomPrompt  string `json:"custom_prompt" validate:"max=4000"`                      // for "custom" preset
	MergeStrategy string `json:"merge_strategy" validate:"omitempty,oneof=sentence consecutive none"`
	SimplifiedIDs bool   `json:"simplified_ids"`
}

// TranslateResult is the output of a finished translation. Success is false when
// segments stayed unresolved; the artifacts are still written.
type TranslateResult struct {
	OutputDir  string   `json:"output_dir"`
	Artifacts  []string `json:"artifacts"`
	Segments   int      `json:"segments"`
	Cues       int      `json:"cues"`
	Success    bool     `json:"success"`
	Unresolved int      `json:"unresolved"`
	Rounds     int      `json:"rounds"`
	Message    string   `json:"message"`
	Duration   float64  `json:"duration"` // processing time in seconds
}

// JobHandler processes a job and returns its result payload
type JobHandler func(ctx context.Context, job *Job, updateProgress func(float64)) (json.RawMessage, error)

package models

import "time"

// ProcessingJob is one unit of asynchronous work in the transcription queue.
// SourceID identifies the audio source the job belongs to; the server's
// transcribe handler uses it as the asr decoder source, so jobs sharing a
// SourceID continue the same decoder state.
type ProcessingJob struct {
	ID          string     `json:"id"`
	SourceID    string     `json:"source_id"`
	Type        string     `json:"type"`
	Status      string     `json:"status"`
	Priority    int        `json:"priority"`
	Progress    int        `json:"progress"`
	RetryCount  int        `json:"retry_count"`
	Error       string     `json:"error,omitempty"`
	AudioPath   string     `json:"-"`
	ResultText  string     `json:"result_text,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Job types. The queue carries a single type: transcribing an uploaded
// audio clip through the ASR core.
const (
	JobTypeTranscribe = "transcribe"
)

// Job statuses.
const (
	JobStatusQueued    = "queued"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// Job priorities, lower runs first.
const (
	JobPriorityImmediate = 0
	JobPriorityNormal    = 5
	JobPriorityBatch     = 9
)

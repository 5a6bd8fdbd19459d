package domain

import "time"

// Stage is one step of the fixed submission sequence.
type Stage string

// Stages in required order.
const (
	StageUploadFiles     Stage = "upload_files"
	StageUploadMetadata  Stage = "upload_metadata"
	StageIssueToken      Stage = "issue_token"
	StagePublishRegistry Stage = "publish_registry"
	StageAnchorHashes    Stage = "anchor_hashes"
)

// Stages lists every stage in execution order.
var Stages = []Stage{
	StageUploadFiles,
	StageUploadMetadata,
	StageIssueToken,
	StagePublishRegistry,
	StageAnchorHashes,
}

// Index returns the 1-based position of s, or 0 if s is not a stage.
func (s Stage) Index() int {
	for i, st := range Stages {
		if st == s {
			return i + 1
		}
	}
	return 0
}

// Title is the human readable stage label.
func (s Stage) Title() string {
	switch s {
	case StageUploadFiles:
		return "Upload files"
	case StageUploadMetadata:
		return "Upload metadata"
	case StageIssueToken:
		return "Create token"
	case StagePublishRegistry:
		return "Publish to registry"
	case StageAnchorHashes:
		return "Anchor document hashes"
	}
	return string(s)
}

// SubmissionStatus is the coarse lifecycle of a submission.
type SubmissionStatus string

// SubmissionStatus values. Done and Failed are terminal.
const (
	StatusIdle    SubmissionStatus = "idle"
	StatusRunning SubmissionStatus = "running"
	StatusDone    SubmissionStatus = "done"
	StatusFailed  SubmissionStatus = "failed"
)

// Terminal reports whether no further transitions can happen.
func (s SubmissionStatus) Terminal() bool {
	return s == StatusDone || s == StatusFailed
}

// ErrorRecord is the failure surfaced to the progress consumer.
type ErrorRecord struct {
	Kind    string `json:"kind"`
	Stage   Stage  `json:"stage"`
	Message string `json:"message"`
}

// SubmissionEvent is one stage transition, appended to the audit log.
// Corresponds to submission_events table in ClickHouse.
type SubmissionEvent struct {
	SubmissionID string
	DraftKey     string
	Owner        string
	Stage        Stage // empty for whole-submission events
	Status       string
	ErrorKind    string
	Message      string
	OccurredAt   time.Time
}

// Event statuses.
const (
	EventStarted   = "started"
	EventCompleted = "completed"
	EventFailed    = "failed"
)

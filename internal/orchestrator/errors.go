package orchestrator

import (
	"errors"
	"fmt"

	"realestate-tokenizer/internal/domain"
)

// ErrorKind classifies a submission failure.
type ErrorKind string

// Error kinds.
const (
	KindValidation  ErrorKind = "ValidationError"
	KindUpload      ErrorKind = "UploadError"
	KindIssuance    ErrorKind = "IssuanceError"
	KindPublication ErrorKind = "PublicationError"
	KindAnchor      ErrorKind = "AnchorError"
	KindDuplicate   ErrorKind = "DuplicateSubmissionError"
)

var (
	// ErrDuplicateSubmission is returned when a TokenRecord already exists
	// for the draft being submitted.
	ErrDuplicateSubmission = errors.New("draft was already submitted")

	// ErrSubmissionInFlight is returned when the same draft is currently running.
	ErrSubmissionInFlight = errors.New("submission for this draft is already running")

	// ErrNoOwner is returned at the metadata stage when no account is connected.
	ErrNoOwner = errors.New("no connected account")

	// ErrTokenNotIndexed is returned when a token was minted but its
	// TokenRecord could not be written. The draft stays blocked in this
	// process until the record is repaired.
	ErrTokenNotIndexed = errors.New("token minted but not indexed")
)

// StageError is a failure attributed to one stage.
type StageError struct {
	Kind  ErrorKind
	Stage domain.Stage // empty for pre-flight failures
	Err   error
}

func (e *StageError) Error() string {
	if e.Stage == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s at %s: %v", e.Kind, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Record converts e to the progress-facing error record.
func (e *StageError) Record() *domain.ErrorRecord {
	return &domain.ErrorRecord{
		Kind:    string(e.Kind),
		Stage:   e.Stage,
		Message: e.Err.Error(),
	}
}

// kindFor maps a stage to the error kind raised by its remote calls.
func kindFor(stage domain.Stage) ErrorKind {
	switch stage {
	case domain.StageUploadFiles, domain.StageUploadMetadata:
		return KindUpload
	case domain.StageIssueToken:
		return KindIssuance
	case domain.StagePublishRegistry:
		return KindPublication
	case domain.StageAnchorHashes:
		return KindAnchor
	}
	return KindValidation
}

func stageErr(stage domain.Stage, err error) *StageError {
	return &StageError{Kind: kindFor(stage), Stage: stage, Err: err}
}

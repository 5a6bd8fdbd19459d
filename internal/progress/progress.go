// Package progress renders submission snapshots for the listing form.
// Every function is a pure function of a snapshot.
package progress

import (
	"fmt"
	"strings"

	"realestate-tokenizer/internal/domain"
	"realestate-tokenizer/internal/orchestrator"
)

// StepState is the display state of one stage.
type StepState string

// StepState values.
const (
	StepPending  StepState = "pending"
	StepActive   StepState = "active"
	StepComplete StepState = "complete"
	StepFailed   StepState = "failed"
)

// Headlines shown above the step list.
const (
	HeadlineIdle       = "Ready to submit"
	HeadlineRunning    = "Submitting listing"
	HeadlineDone       = "Listing published"
	HeadlineFailed     = "Submission failed"
	HeadlineUnverified = "Listing published, but document verification incomplete"
)

// Step is one row of the progress list.
type Step struct {
	Stage domain.Stage `json:"stage"`
	Title string       `json:"title"`
	State StepState    `json:"state"`
}

// ErrorView is the failure shown to the user.
type ErrorView struct {
	Kind    string       `json:"kind"`
	Stage   domain.Stage `json:"stage"`
	Message string       `json:"message"`
}

// View is the progress surface consumed by the UI.
type View struct {
	// Stage is the running stage, nil when idle or terminal.
	Stage           *domain.Stage  `json:"stage"`
	CompletedStages []domain.Stage `json:"completedStages"`
	Error           *ErrorView     `json:"error"`

	Headline  string `json:"headline"`
	Steps     []Step `json:"steps"`
	Percent   int    `json:"percent"`
	Terminal  bool   `json:"terminal"`
	Success   bool   `json:"success"`
	Published bool   `json:"published"`

	// CanSubmit is false while a submission is running.
	CanSubmit bool   `json:"canSubmit"`
	TokenID   string `json:"tokenId,omitempty"`
}

// Build derives the view of s.
func Build(s orchestrator.Snapshot) View {
	v := View{
		CompletedStages: append([]domain.Stage{}, s.CompletedStages...),
		Terminal:        s.Status.Terminal(),
		Published:       s.Published,
		CanSubmit:       s.Status != domain.StatusRunning,
		TokenID:         s.TokenID,
	}

	if s.Status == domain.StatusRunning && s.Stage != "" {
		stage := s.Stage
		v.Stage = &stage
	}

	if s.Error != nil {
		v.Error = &ErrorView{Kind: s.Error.Kind, Stage: s.Error.Stage, Message: s.Error.Message}
	}

	for _, st := range domain.Stages {
		step := Step{Stage: st, Title: st.Title(), State: StepPending}
		switch {
		case s.Completed(st):
			step.State = StepComplete
		case s.Status == domain.StatusFailed && s.Stage == st:
			step.State = StepFailed
		case s.Status == domain.StatusRunning && s.Stage == st:
			step.State = StepActive
		}
		v.Steps = append(v.Steps, step)
	}

	v.Percent = len(s.CompletedStages) * 100 / len(domain.Stages)

	switch s.Status {
	case domain.StatusIdle:
		v.Headline = HeadlineIdle
	case domain.StatusRunning:
		v.Headline = HeadlineRunning
	case domain.StatusDone:
		v.Headline = HeadlineDone
		v.Success = true
	case domain.StatusFailed:
		if s.Published {
			v.Headline = HeadlineUnverified
		} else {
			v.Headline = HeadlineFailed
		}
	}

	return v
}

// Render formats the view as plain text, one step per line.
func Render(v View) string {
	var b strings.Builder
	b.WriteString(v.Headline)
	b.WriteString("\n")
	for i, step := range v.Steps {
		fmt.Fprintf(&b, "  [%s] %d. %s\n", marker(step.State), i+1, step.Title)
	}
	if v.Error != nil {
		fmt.Fprintf(&b, "  error (%s at %s): %s\n", v.Error.Kind, v.Error.Stage, v.Error.Message)
	}
	if v.TokenID != "" {
		fmt.Fprintf(&b, "  token: %s\n", v.TokenID)
	}
	return b.String()
}

func marker(s StepState) string {
	switch s {
	case StepComplete:
		return "x"
	case StepActive:
		return ">"
	case StepFailed:
		return "!"
	}
	return " "
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"realestate-tokenizer/internal/domain"
	"realestate-tokenizer/internal/orchestrator"
	"realestate-tokenizer/internal/progress"
)

// Multipart form fields of a submission.
const (
	fieldDraft            = "draft"
	fieldPrimaryImage     = "primaryImage"
	fieldAdditionalImages = "additionalImages[]"
	fieldLegalDocs        = "legalDocs"
	fieldValuationReport  = "valuationReport"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// submissionStatus is returned by submit and getSubmission, and pushed on the stream.
type submissionStatus struct {
	Snapshot orchestrator.Snapshot `json:"snapshot"`
	Progress progress.View         `json:"progress"`
}

type acceptedResponse struct {
	SubmissionID string `json:"submissionId"`
	DraftKey     string `json:"draftKey"`
	submissionStatus
}

func newStatus(snap orchestrator.Snapshot) submissionStatus {
	return submissionStatus{Snapshot: snap, Progress: progress.Build(snap)}
}

// submit validates a multipart listing draft and starts its pipeline in the
// background. The pipeline outlives the request.
func (s *Server) submit(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		abort(c, http.StatusBadRequest, fmt.Errorf("parse multipart form: %w", err))
		return
	}

	draft, err := readDraft(c.Request.MultipartForm)
	if err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}

	sub := &domain.Submission{Draft: draft, Owner: c.GetHeader(OwnerHeader)}
	job, err := s.opts.Submitter.Prepare(c.Request.Context(), sub)
	if err != nil {
		s.rejectSubmission(c, err)
		return
	}

	tracker := orchestrator.NewTracker(job.ID())
	s.mu.Lock()
	s.trackers[job.ID()] = tracker
	s.mu.Unlock()

	s.jobs.Add(1)
	go func() {
		defer s.jobs.Done()
		defer s.evictAfter(job.ID())
		res, err := job.Run(context.Background(), tracker)
		if err != nil {
			s.log("submission %s failed: %v", job.ID(), err)
			return
		}
		s.log("submission %s done: token %s", job.ID(), res.TokenID)
	}()

	s.log("submission %s accepted (owner %q)", job.ID(), sub.Owner)
	c.JSON(http.StatusAccepted, acceptedResponse{
		SubmissionID:     job.ID(),
		DraftKey:         job.DraftKey(),
		submissionStatus: newStatus(tracker.Snapshot()),
	})
}

// rejectSubmission maps a pre-flight failure to a response.
func (s *Server) rejectSubmission(c *gin.Context, err error) {
	resp := errorResponse{Error: err.Error()}
	code := http.StatusInternalServerError

	var se *orchestrator.StageError
	if errors.As(err, &se) {
		resp.Kind = string(se.Kind)
	}

	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		code = http.StatusBadRequest
		resp.Fields = verr.Fields
	case errors.Is(err, orchestrator.ErrDuplicateSubmission),
		errors.Is(err, orchestrator.ErrSubmissionInFlight):
		code = http.StatusConflict
	case se != nil && se.Kind == orchestrator.KindValidation:
		code = http.StatusBadRequest
	}
	c.AbortWithStatusJSON(code, resp)
}

func readDraft(form *multipart.Form) (*domain.ListingDraft, error) {
	raw := form.Value[fieldDraft]
	if len(raw) == 0 || raw[0] == "" {
		return nil, fmt.Errorf("form field %q is required", fieldDraft)
	}

	var d domain.ListingDraft
	if err := json.Unmarshal([]byte(raw[0]), &d); err != nil {
		return nil, fmt.Errorf("decode %s: %w", fieldDraft, err)
	}

	var err error
	if d.Media.PrimaryImage, err = readOne(form, fieldPrimaryImage); err != nil {
		return nil, err
	}
	if d.Media.LegalDocs, err = readOne(form, fieldLegalDocs); err != nil {
		return nil, err
	}
	if d.Media.ValuationReport, err = readOne(form, fieldValuationReport); err != nil {
		return nil, err
	}
	for _, fh := range form.File[fieldAdditionalImages] {
		f, err := readFile(fh)
		if err != nil {
			return nil, err
		}
		d.Media.AdditionalImages = append(d.Media.AdditionalImages, f)
	}
	return &d, nil
}

func readOne(form *multipart.Form, field string) (*domain.File, error) {
	fhs := form.File[field]
	if len(fhs) == 0 {
		return nil, nil
	}
	return readFile(fhs[0])
}

func readFile(fh *multipart.FileHeader) (*domain.File, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
	}

	// Generic part types are left for extension-based detection.
	ct := fh.Header.Get("Content-Type")
	if ct == "application/octet-stream" {
		ct = ""
	}
	return &domain.File{Name: fh.Filename, ContentType: ct, Data: data}, nil
}

func (s *Server) getSubmission(c *gin.Context) {
	t, ok := s.tracker(c.Param("id"))
	if !ok {
		abort(c, http.StatusNotFound, fmt.Errorf("submission %s not found", c.Param("id")))
		return
	}
	c.JSON(http.StatusOK, newStatus(t.Snapshot()))
}

type eventResponse struct {
	Stage      domain.Stage `json:"stage,omitempty"`
	Status     string       `json:"status"`
	ErrorKind  string       `json:"errorKind,omitempty"`
	Message    string       `json:"message,omitempty"`
	OccurredAt time.Time    `json:"occurredAt"`
}

// getEvents returns the audit log of a submission. It also serves
// submissions that ran before a restart.
func (s *Server) getEvents(c *gin.Context) {
	events, err := s.opts.Events.GetBySubmissionID(c.Request.Context(), c.Param("id"))
	if err != nil {
		abort(c, http.StatusInternalServerError, err)
		return
	}
	if len(events) == 0 {
		abort(c, http.StatusNotFound, fmt.Errorf("submission %s not found", c.Param("id")))
		return
	}

	resp := make([]eventResponse, 0, len(events))
	for _, e := range events {
		resp = append(resp, eventResponse{
			Stage:      e.Stage,
			Status:     e.Status,
			ErrorKind:  e.ErrorKind,
			Message:    e.Message,
			OccurredAt: e.OccurredAt,
		})
	}
	c.JSON(http.StatusOK, resp)
}

// stream pushes every snapshot of a submission over a websocket until the
// submission is terminal or the client goes away.
func (s *Server) stream(c *gin.Context) {
	t, ok := s.tracker(c.Param("id"))
	if !ok {
		abort(c, http.StatusNotFound, fmt.Errorf("submission %s not found", c.Param("id")))
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log("upgrade %s: %v", c.Param("id"), err)
		return
	}
	defer conn.Close()

	ch, cancel := t.Subscribe()
	defer cancel()

	// The client only sends control frames; a read error means it left.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	for snap := range ch {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(newStatus(snap)); err != nil {
			s.log("stream %s: %v", snap.SubmissionID, err)
			return
		}
	}

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "submission finished"))
}

// Package api exposes the submission pipeline over HTTP.
package api

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"realestate-tokenizer/internal/domain"
	"realestate-tokenizer/internal/observability"
	"realestate-tokenizer/internal/orchestrator"
	"realestate-tokenizer/internal/registry"
	"realestate-tokenizer/internal/storage"
)

// DefaultMaxUploadBytes bounds the in-memory part of a multipart submission.
const DefaultMaxUploadBytes = 64 << 20

// DefaultTrackerTTL is how long finished submissions stay in memory.
const DefaultTrackerTTL = time.Hour

// OwnerHeader carries the connected wallet account.
const OwnerHeader = "X-Account-ID"

// Submitter accepts submissions for background execution.
type Submitter interface {
	Prepare(ctx context.Context, sub *domain.Submission) (*orchestrator.Job, error)
}

// RegistryReader lists published listings from the registry log.
type RegistryReader interface {
	Entries(ctx context.Context, opts registry.ReadOpts) ([]registry.Entry, error)
}

// Options configures the Server.
type Options struct {
	Submitter      Submitter
	Records        storage.TokenRecordStore
	Events         storage.SubmissionEventStore
	Registry       RegistryReader
	Clock          func() time.Time
	MaxUploadBytes int64
	// TrackerTTL is how long a terminal submission's tracker is kept after
	// it finishes. Its history stays available from the event log.
	TrackerTTL time.Duration
	Logger     *log.Logger
	Verbose    bool
}

// Server holds the HTTP handlers and the trackers of accepted submissions.
type Server struct {
	opts   Options
	engine *gin.Engine

	mu       sync.RWMutex
	trackers map[string]*orchestrator.Tracker

	jobs sync.WaitGroup
}

// New creates a Server with every route registered.
func New(opts Options) *Server {
	if opts.Clock == nil {
		opts.Clock = func() time.Time { return time.Now().UTC() }
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if opts.TrackerTTL <= 0 {
		opts.TrackerTTL = DefaultTrackerTTL
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	s := &Server{
		opts:     opts,
		trackers: make(map[string]*orchestrator.Tracker),
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.metrics())

	r.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/metrics", gin.WrapH(observability.Handler()))

	v1 := r.Group("/api/v1")
	v1.POST("/submissions", s.submit)
	v1.GET("/submissions/:id", s.getSubmission)
	v1.GET("/submissions/:id/events", s.getEvents)
	v1.GET("/submissions/:id/stream", s.stream)
	v1.POST("/tokenomics/preview", s.preview)
	v1.GET("/listings", s.listingsByOwner)
	v1.GET("/listings/:tokenId", s.getListing)
	v1.GET("/registry", s.registryEntries)

	s.engine = r
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Wait blocks until every accepted submission has reached a terminal state.
func (s *Server) Wait() {
	s.jobs.Wait()
}

// metrics records every request under its route template.
func (s *Server) metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		observability.RecordHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start).Seconds())
	}
}

// evictAfter drops the tracker of a finished submission once the TTL passes.
func (s *Server) evictAfter(id string) {
	time.AfterFunc(s.opts.TrackerTTL, func() {
		s.mu.Lock()
		delete(s.trackers, id)
		s.mu.Unlock()
	})
}

func (s *Server) tracker(id string) (*orchestrator.Tracker, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.trackers[id]
	return t, ok
}

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Error  string            `json:"error"`
	Kind   string            `json:"kind,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

func abort(c *gin.Context, code int, err error) {
	c.AbortWithStatusJSON(code, errorResponse{Error: err.Error()})
}

func (s *Server) log(format string, args ...interface{}) {
	if s.opts.Verbose {
		s.opts.Logger.Printf("[api] "+format, args...)
	}
}

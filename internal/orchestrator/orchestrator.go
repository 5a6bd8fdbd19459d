// Package orchestrator runs the asset-submission pipeline.
// It coordinates: upload files → upload metadata → issue token → publish registry → anchor hashes
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"realestate-tokenizer/internal/contentstore"
	"realestate-tokenizer/internal/domain"
	"realestate-tokenizer/internal/idhash"
	"realestate-tokenizer/internal/observability"
	"realestate-tokenizer/internal/registry"
	"realestate-tokenizer/internal/storage"
)

// Hasher digests file contents for anchoring.
type Hasher interface {
	Hash(data []byte) string
}

// TokenIssuer creates the listing token and returns its ID.
type TokenIssuer interface {
	Create(ctx context.Context, p domain.TokenParams) (string, error)
}

// RegistryPublisher appends {tokenId, metadataCID} to the registry log.
type RegistryPublisher interface {
	Publish(ctx context.Context, tokenID, metadataCID string) (*domain.Receipt, error)
}

// HashAnchor appends a file digest to an anchor log.
type HashAnchor interface {
	Anchor(ctx context.Context, doc registry.Document, topicID string) (*domain.Receipt, error)
}

// Options for creating Orchestrator.
type Options struct {
	// Capability clients
	ContentStore contentstore.Store
	Hasher       Hasher
	Issuer       TokenIssuer
	Publisher    RegistryPublisher
	Anchor       HashAnchor

	// Stores
	Records storage.TokenRecordStore
	Events  storage.SubmissionEventStore // optional audit log

	AnchorTopicID string
	Clock         func() time.Time
	Logger        *log.Logger
	Verbose       bool

	// Attempts and backoff for writing the TokenRecord after a mint.
	IndexAttempts   int
	IndexRetryDelay time.Duration
}

// Orchestrator executes submissions. It is safe for concurrent use; the
// same draft cannot run twice at once.
type Orchestrator struct {
	opts Options

	mu       sync.Mutex
	inFlight map[string]string // draft key -> submission id
	minted   map[string]string // draft key -> token id, minted but not indexed
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	if opts.Hasher == nil {
		opts.Hasher = idhash.SHA256Hasher{}
	}
	if opts.Clock == nil {
		opts.Clock = func() time.Time { return time.Now().UTC() }
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.IndexAttempts <= 0 {
		opts.IndexAttempts = 3
	}
	if opts.IndexRetryDelay <= 0 {
		opts.IndexRetryDelay = 200 * time.Millisecond
	}
	return &Orchestrator{
		opts:     opts,
		inFlight: make(map[string]string),
		minted:   make(map[string]string),
	}
}

// Result contains the outputs of a finished submission.
type Result struct {
	SubmissionID string
	DraftKey     string
	Files        domain.FileManifest
	MetadataCID  string
	TokenID      string
	Registry     *domain.Receipt
	Anchors      []domain.Receipt
	Final        Snapshot
}

// Job is an accepted submission that has passed pre-flight checks.
// Run must be called exactly once to release the draft.
type Job struct {
	o        *Orchestrator
	sub      domain.Submission
	draftKey string
	once     sync.Once
}

// ID returns the submission ID.
func (j *Job) ID() string { return j.sub.ID }

// DraftKey returns the idempotency key of the draft.
func (j *Job) DraftKey() string { return j.draftKey }

// Run validates and executes a submission, blocking until it is terminal.
// Pre-flight failures are returned without notifying observers.
func (o *Orchestrator) Run(ctx context.Context, sub *domain.Submission, observers ...Observer) (*Result, error) {
	job, err := o.Prepare(ctx, sub)
	if err != nil {
		return nil, err
	}
	return job.Run(ctx, observers...)
}

// Prepare runs the synchronous pre-flight checks: draft validation and
// deduplication against existing token records and running submissions.
// It makes no content store or ledger calls.
func (o *Orchestrator) Prepare(ctx context.Context, sub *domain.Submission) (*Job, error) {
	if sub == nil {
		return nil, &StageError{Kind: KindValidation, Err: errors.New("submission is required")}
	}
	if err := sub.Draft.Validate(); err != nil {
		return nil, &StageError{Kind: KindValidation, Err: err}
	}

	key := idhash.ComputeDraftKey(sub.Owner, sub.Draft)

	existing, err := o.opts.Records.GetByDraftKey(ctx, key)
	switch {
	case err == nil:
		return nil, &StageError{
			Kind: KindDuplicate,
			Err:  fmt.Errorf("%w as token %s", ErrDuplicateSubmission, existing.TokenID),
		}
	case !errors.Is(err, storage.ErrNotFound):
		return nil, &StageError{Kind: KindDuplicate, Err: fmt.Errorf("check draft key: %w", err)}
	}

	job := &Job{o: o, sub: *sub, draftKey: key}
	if job.sub.ID == "" {
		job.sub.ID = uuid.NewString()
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if tokenID, ok := o.minted[key]; ok {
		return nil, &StageError{
			Kind: KindDuplicate,
			Err:  fmt.Errorf("%w as token %s (%v)", ErrDuplicateSubmission, tokenID, ErrTokenNotIndexed),
		}
	}
	if running, ok := o.inFlight[key]; ok {
		return nil, &StageError{
			Kind: KindDuplicate,
			Err:  fmt.Errorf("%w (submission %s)", ErrSubmissionInFlight, running),
		}
	}
	o.inFlight[key] = job.sub.ID

	return job, nil
}

func (o *Orchestrator) release(key string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inFlight, key)
}

// run is the mutable state of one executing submission. Only the pipeline
// goroutine touches it.
type run struct {
	job       *Job
	observers []Observer
	snap      Snapshot
	meta      *domain.AssetMetadata
	result    *Result
}

// Run executes the five stages in order. The returned error is a
// *StageError when a stage fails; the Result is returned either way.
func (j *Job) Run(ctx context.Context, observers ...Observer) (*Result, error) {
	var (
		res *Result
		err error
	)
	ran := false
	j.once.Do(func() {
		ran = true
		defer j.o.release(j.draftKey)
		res, err = j.run(ctx, observers)
	})
	if !ran {
		return nil, fmt.Errorf("submission %s already ran", j.sub.ID)
	}
	return res, err
}

func (j *Job) run(ctx context.Context, observers []Observer) (*Result, error) {
	o := j.o
	r := &run{
		job:       j,
		observers: observers,
		snap: Snapshot{
			SubmissionID:    j.sub.ID,
			Status:          domain.StatusIdle,
			CompletedStages: []domain.Stage{},
		},
		result: &Result{SubmissionID: j.sub.ID, DraftKey: j.draftKey},
	}

	observability.SubmissionStarted()
	defer observability.SubmissionFinished()

	o.log("submission %s: starting (draft %s)", j.sub.ID, shortKey(j.draftKey))
	r.snap.Status = domain.StatusRunning

	stages := []struct {
		stage domain.Stage
		fn    func(*Orchestrator, context.Context, *run) error
	}{
		{domain.StageUploadFiles, (*Orchestrator).uploadFiles},
		{domain.StageUploadMetadata, (*Orchestrator).uploadMetadata},
		{domain.StageIssueToken, (*Orchestrator).issueToken},
		{domain.StagePublishRegistry, (*Orchestrator).publishRegistry},
		{domain.StageAnchorHashes, (*Orchestrator).anchorHashes},
	}

	for _, s := range stages {
		r.begin(s.stage)
		start := time.Now()
		err := s.fn(o, ctx, r)
		if err != nil {
			var se *StageError
			if !errors.As(err, &se) {
				se = stageErr(s.stage, err)
			}
			observability.RecordStage(string(s.stage), string(se.Kind), time.Since(start).Seconds())
			r.fail(se)
			return r.result, se
		}
		observability.RecordStage(string(s.stage), "", time.Since(start).Seconds())
		r.complete(s.stage)
	}

	r.finish()
	return r.result, nil
}

// Stage 1: upload every file concurrently, fail fast on the first error.
func (o *Orchestrator) uploadFiles(ctx context.Context, r *run) error {
	files := r.job.sub.Draft.Media.Files()
	results := make([]domain.UploadResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	for i, rf := range files {
		i, rf := i, rf
		g.Go(func() error {
			f := rf.File
			var (
				digest string
				wg     sync.WaitGroup
			)
			wg.Add(1)
			go func() {
				defer wg.Done()
				digest = o.opts.Hasher.Hash(f.Data)
			}()

			cid, err := o.opts.ContentStore.UploadFile(gctx, f.Name, f.Data)
			wg.Wait()
			if err != nil {
				return fmt.Errorf("upload %s %q: %w", rf.Role, f.Name, err)
			}

			results[i] = domain.UploadResult{
				Role:        rf.Role,
				CID:         cid,
				Hash:        digest,
				ContentType: contentType(f),
				Size:        int64(len(f.Data)),
			}
			o.log("submission %s: uploaded %s %q -> %s", r.job.sub.ID, rf.Role, f.Name, cid)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var manifest domain.FileManifest
	for _, res := range results {
		manifest.Put(res)
	}
	r.result.Files = manifest
	return nil
}

// Stage 2: assemble AssetMetadata and pin it.
func (o *Orchestrator) uploadMetadata(ctx context.Context, r *run) error {
	owner := r.job.sub.Owner
	if owner == "" {
		return &StageError{Kind: KindValidation, Stage: domain.StageUploadMetadata, Err: ErrNoOwner}
	}

	meta := BuildMetadata(r.job.sub.Draft, r.result.Files, owner, o.opts.Clock())
	if err := meta.Validate(); err != nil {
		return &StageError{Kind: KindValidation, Stage: domain.StageUploadMetadata, Err: err}
	}

	cid, err := o.opts.ContentStore.UploadJSON(ctx, meta)
	if err != nil {
		return fmt.Errorf("upload metadata: %w", err)
	}

	r.meta = meta
	r.result.MetadataCID = cid
	r.snap.MetadataCID = cid
	return nil
}

// Stage 3: issue the token and index it.
func (o *Orchestrator) issueToken(ctx context.Context, r *run) error {
	params := TokenParamsFor(r.job.sub.Draft, r.meta)

	tokenID, err := o.opts.Issuer.Create(ctx, params)
	if err != nil {
		return fmt.Errorf("create token: %w", err)
	}
	r.result.TokenID = tokenID
	r.snap.TokenID = tokenID

	rec := &domain.TokenRecord{
		TokenID:     tokenID,
		MetadataCID: r.result.MetadataCID,
		Owner:       r.job.sub.Owner,
		DraftKey:    r.job.draftKey,
		CreatedAt:   o.opts.Clock(),
	}
	if err := o.indexToken(ctx, rec); err != nil {
		o.mu.Lock()
		o.minted[rec.DraftKey] = tokenID
		o.mu.Unlock()
		o.opts.Logger.Printf("submission %s: token %s minted but not indexed (draft %s): %v",
			r.job.sub.ID, tokenID, shortKey(rec.DraftKey), err)
		return fmt.Errorf("token %s: %w: %w", tokenID, ErrTokenNotIndexed, err)
	}
	return nil
}

// indexToken writes the TokenRecord with a few attempts. The token already
// exists on the ledger, so caller cancellation does not stop the write.
func (o *Orchestrator) indexToken(ctx context.Context, rec *domain.TokenRecord) error {
	ctx = context.WithoutCancel(ctx)
	delay := o.opts.IndexRetryDelay

	var err error
	for attempt := 0; attempt < o.opts.IndexAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(delay)
			delay *= 2
		}
		err = o.opts.Records.Insert(ctx, rec)
		if err == nil || errors.Is(err, storage.ErrDuplicateKey) || errors.Is(err, storage.ErrInvalidInput) {
			break
		}
	}
	return err
}

// Stage 4: the durability point.
func (o *Orchestrator) publishRegistry(ctx context.Context, r *run) error {
	receipt, err := o.opts.Publisher.Publish(ctx, r.result.TokenID, r.result.MetadataCID)
	if err != nil {
		return fmt.Errorf("publish registry: %w", err)
	}
	r.result.Registry = receipt
	r.snap.Published = true
	return nil
}

// Stage 5: anchor every file digest in manifest order, stop at the first failure.
func (o *Orchestrator) anchorHashes(ctx context.Context, r *run) error {
	for _, f := range r.result.Files.Entries() {
		doc := registry.Document{
			FileHash: f.Hash,
			FileType: f.ContentType,
			Role:     f.Role,
			TokenID:  r.result.TokenID,
		}
		receipt, err := o.opts.Anchor.Anchor(ctx, doc, o.opts.AnchorTopicID)
		if err != nil {
			return fmt.Errorf("anchor %s: %w", f.Role, err)
		}
		r.result.Anchors = append(r.result.Anchors, *receipt)
	}
	return nil
}

func (r *run) begin(stage domain.Stage) {
	r.snap.Stage = stage
	r.publish()
	r.event(stage, domain.EventStarted, nil)
	r.job.o.log("submission %s: stage %d/%d %s started", r.job.sub.ID, stage.Index(), len(domain.Stages), stage)
}

func (r *run) complete(stage domain.Stage) {
	r.snap.CompletedStages = append(r.snap.CompletedStages, stage)
	r.event(stage, domain.EventCompleted, nil)
	r.job.o.log("submission %s: stage %s completed", r.job.sub.ID, stage)
}

func (r *run) fail(se *StageError) {
	r.snap.Status = domain.StatusFailed
	r.snap.Error = se.Record()
	r.publish()
	r.event(se.Stage, domain.EventFailed, se)
	r.event("", domain.EventFailed, se)
	r.result.Final = r.snap.clone()

	observability.RecordSubmission(string(domain.StatusFailed), r.job.o.opts.Clock().Unix())
	r.job.o.opts.Logger.Printf("[orchestrator] submission %s: failed: %v (published=%t)",
		r.job.sub.ID, se, r.snap.Published)
}

func (r *run) finish() {
	r.snap.Status = domain.StatusDone
	r.snap.Stage = ""
	r.publish()
	r.event("", domain.EventCompleted, nil)
	r.result.Final = r.snap.clone()

	observability.RecordSubmission(string(domain.StatusDone), r.job.o.opts.Clock().Unix())
	r.job.o.log("submission %s: done, token %s", r.job.sub.ID, r.result.TokenID)
}

func (r *run) publish() {
	r.snap.UpdatedAt = r.job.o.opts.Clock()
	for _, obs := range r.observers {
		obs.Observe(r.snap.clone())
	}
}

// event appends to the audit log. Write failures never fail the submission.
func (r *run) event(stage domain.Stage, status string, se *StageError) {
	o := r.job.o
	if o.opts.Events == nil {
		return
	}
	e := &domain.SubmissionEvent{
		SubmissionID: r.job.sub.ID,
		DraftKey:     r.job.draftKey,
		Owner:        r.job.sub.Owner,
		Stage:        stage,
		Status:       status,
		OccurredAt:   o.opts.Clock(),
	}
	if se != nil {
		e.ErrorKind = string(se.Kind)
		e.Message = se.Err.Error()
	}
	// Detached so a cancelled request context does not drop the audit trail.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := o.opts.Events.Insert(ctx, e); err != nil {
		observability.RecordEventLogError()
		o.opts.Logger.Printf("[orchestrator] submission %s: event log write failed: %v", r.job.sub.ID, err)
	}
}

func shortKey(k string) string {
	if len(k) > 12 {
		return k[:12]
	}
	return k
}

// log prints if verbose mode is enabled.
func (o *Orchestrator) log(format string, args ...interface{}) {
	if o.opts.Verbose {
		o.opts.Logger.Printf("[orchestrator] "+format, args...)
	}
}

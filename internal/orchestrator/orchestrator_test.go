package orchestrator

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"io"
	"log"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"realestate-tokenizer/internal/contentstore"
	"realestate-tokenizer/internal/domain"
	"realestate-tokenizer/internal/issuer"
	"realestate-tokenizer/internal/ledger"
	"realestate-tokenizer/internal/ledger/stub"
	"realestate-tokenizer/internal/registry"
	"realestate-tokenizer/internal/storage"
	"realestate-tokenizer/internal/storage/memory"
	"realestate-tokenizer/internal/tokenomics"
)

const (
	ownerID       = "0.0.1001"
	treasuryID    = "0.0.2"
	registryTopic = "0.0.9001"
	anchorTopic   = "0.0.9002"
)

var fixedNow = time.Date(2024, time.January, 31, 9, 0, 0, 0, time.UTC)

type harness struct {
	content *contentstore.MemoryStore
	ledger  *stub.Ledger
	records *memory.TokenRecordStore
	events  *memory.SubmissionEventStore
	orch    *Orchestrator
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	pub, _, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	h := &harness{
		content: contentstore.NewMemoryStore(),
		ledger:  stub.NewLedger(),
		records: memory.NewTokenRecordStore(),
		events:  memory.NewSubmissionEventStore(),
	}
	h.ledger.AddAccount(ownerID, ledger.EncodePublicKey(pub))

	clock := func() time.Time { return fixedNow }
	quiet := log.New(io.Discard, "", 0)
	reg := registry.New(registry.Options{Ledger: h.ledger, TopicID: registryTopic, Clock: clock, Logger: quiet})

	h.orch = New(Options{
		ContentStore:    h.content,
		Issuer:          issuer.New(issuer.Options{Ledger: h.ledger, TreasuryAccountID: treasuryID, Logger: quiet}),
		Publisher:       reg,
		Anchor:          reg,
		Records:         h.records,
		Events:          h.events,
		AnchorTopicID:   anchorTopic,
		Clock:           clock,
		Logger:          quiet,
		IndexRetryDelay: time.Millisecond,
	})
	return h
}

// flakyRecords fails the first failures inserts.
type flakyRecords struct {
	storage.TokenRecordStore
	mu       sync.Mutex
	failures int
	inserts  int
}

func (f *flakyRecords) Insert(ctx context.Context, r *domain.TokenRecord) error {
	f.mu.Lock()
	f.inserts++
	fail := f.inserts <= f.failures
	f.mu.Unlock()
	if fail {
		return errors.New("connection reset")
	}
	return f.TokenRecordStore.Insert(ctx, r)
}

// withRecords rebuilds the orchestrator over a different token record store.
func (h *harness) withRecords(records storage.TokenRecordStore) {
	opts := h.orch.opts
	opts.Records = records
	h.orch = New(opts)
}

func testDraft() *domain.ListingDraft {
	return &domain.ListingDraft{
		BasicInfo: domain.BasicInfo{
			Name:        "Harbor View Apartments",
			Category:    "residential",
			Description: "Twelve unit apartment block close to the waterfront.",
			Location:    domain.Location{Country: "US", State: "WA", City: "Seattle"},
		},
		Media: domain.Media{
			PrimaryImage: &domain.File{Name: "front.jpg", ContentType: "image/jpeg", Data: []byte("front")},
		},
		Tokenomics: domain.Tokenomics{
			AssetValue:      decimal.NewFromInt(150000000),
			TotalSupply:     1000000,
			ProjectedIncome: decimal.NewFromInt(90000),
			PayoutFrequency: domain.PayoutMonthly,
			RetentionChoice: "10",
		},
		TokenConfig: domain.TokenConfig{
			Name:       "Harbor View",
			Symbol:     "HRBR",
			Decimals:   2,
			SupplyType: domain.SupplyFinite,
		},
	}
}

func fullMedia() domain.Media {
	return domain.Media{
		PrimaryImage: &domain.File{Name: "front.jpg", Data: []byte("front")},
		AdditionalImages: []*domain.File{
			{Name: "a.jpg", Data: []byte("a")},
			{Name: "b.png", Data: []byte("b")},
		},
		LegalDocs:       &domain.File{Name: "deed.pdf", Data: []byte("deed")},
		ValuationReport: &domain.File{Name: "valuation.pdf", Data: []byte("valuation")},
	}
}

// recorder collects every snapshot it observes.
type recorder struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (r *recorder) Observe(s Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, s)
}

func (r *recorder) all() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Snapshot(nil), r.snaps...)
}

func expectStageError(t *testing.T, err error, kind ErrorKind, stage domain.Stage) *StageError {
	t.Helper()
	var se *StageError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StageError, got %v", err)
	}
	if se.Kind != kind {
		t.Errorf("kind = %s, want %s (err: %v)", se.Kind, kind, se)
	}
	if se.Stage != stage {
		t.Errorf("stage = %q, want %q", se.Stage, stage)
	}
	return se
}

func countCalls(calls []string, name string) int {
	n := 0
	for _, c := range calls {
		if c == name {
			n++
		}
	}
	return n
}

func TestRun_PrimaryImageOnly(t *testing.T) {
	h := newHarness(t)
	rec := &recorder{}

	res, err := h.orch.Run(context.Background(), &domain.Submission{Draft: testDraft(), Owner: ownerID}, rec)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.Final.Status != domain.StatusDone {
		t.Fatalf("status = %s, want done", res.Final.Status)
	}
	if !reflect.DeepEqual(res.Final.CompletedStages, domain.Stages) {
		t.Errorf("completed = %v, want %v", res.Final.CompletedStages, domain.Stages)
	}
	if !res.Final.Published || res.Final.Error != nil {
		t.Errorf("unexpected final snapshot: %+v", res.Final)
	}

	// Metadata carries the derived price
	data, ok := h.content.Get(res.MetadataCID)
	if !ok {
		t.Fatalf("metadata %s not in content store", res.MetadataCID)
	}
	var meta domain.AssetMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		t.Fatalf("decode metadata: %v", err)
	}
	if got := tokenomics.Format(meta.Tokenomics.PricePerToken); got != "150.00" {
		t.Errorf("pricePerToken = %q, want 150.00", got)
	}
	if meta.Owner != ownerID || meta.Schema != domain.MetadataSchemaVersion {
		t.Errorf("unexpected metadata header: owner=%s schema=%s", meta.Owner, meta.Schema)
	}
	if meta.Files.PrimaryImage == nil || meta.Files.PrimaryImage.CID != res.Files.PrimaryImage.CID {
		t.Errorf("metadata files do not match manifest: %+v", meta.Files)
	}
	if meta.Tokenomics.NextPayout != "2024-02-29" {
		t.Errorf("nextPayout = %s, want 2024-02-29", meta.Tokenomics.NextPayout)
	}

	// Token issued with 10% retention
	token := h.ledger.Tokens[res.TokenID]
	if token == nil {
		t.Fatalf("token %s not created", res.TokenID)
	}
	if token.InitialSupply != 100000 || token.MaxSupply != 1000000 || token.TreasuryAccountID != treasuryID {
		t.Errorf("unexpected token request: %+v", token)
	}

	// Indexed with draft key
	stored, err := h.records.GetByTokenID(context.Background(), res.TokenID)
	if err != nil {
		t.Fatalf("token record missing: %v", err)
	}
	if stored.DraftKey != res.DraftKey || stored.MetadataCID != res.MetadataCID {
		t.Errorf("unexpected token record: %+v", stored)
	}

	if n := len(h.ledger.Messages(registryTopic)); n != 1 {
		t.Errorf("registry messages = %d, want 1", n)
	}
	if n := len(h.ledger.Messages(anchorTopic)); n != 1 {
		t.Errorf("anchor messages = %d, want 1", n)
	}

	// Stage ordering as seen by the ledger
	want := []string{"getAccountInfo", "createToken", "submitMessage", "submitMessage"}
	if got := h.ledger.CallLog(); !reflect.DeepEqual(got, want) {
		t.Errorf("ledger calls = %v, want %v", got, want)
	}

	snaps := rec.all()
	if len(snaps) != len(domain.Stages)+1 {
		t.Fatalf("snapshots = %d, want %d", len(snaps), len(domain.Stages)+1)
	}
	for i, st := range domain.Stages {
		if snaps[i].Stage != st || snaps[i].Status != domain.StatusRunning || len(snaps[i].CompletedStages) != i {
			t.Errorf("snapshot %d = %+v", i, snaps[i])
		}
	}
}

func TestRun_MissingPrimaryImage(t *testing.T) {
	h := newHarness(t)
	rec := &recorder{}

	d := testDraft()
	d.Media.PrimaryImage = nil

	res, err := h.orch.Run(context.Background(), &domain.Submission{Draft: d, Owner: ownerID}, rec)
	if res != nil {
		t.Errorf("expected nil result, got %+v", res)
	}
	expectStageError(t, err, KindValidation, "")

	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected wrapped *domain.ValidationError, got %v", err)
	}
	if _, ok := verr.Fields["media.primaryImage"]; !ok {
		t.Errorf("expected primaryImage field error, got %v", verr.Fields)
	}

	if h.content.Len() != 0 || len(h.ledger.CallLog()) != 0 {
		t.Errorf("network calls made: content=%d ledger=%v", h.content.Len(), h.ledger.CallLog())
	}
	if len(rec.all()) != 0 {
		t.Errorf("observer notified for a pre-flight failure")
	}
}

func TestRun_MismatchedMaxSupplyRejectedPreflight(t *testing.T) {
	h := newHarness(t)

	d := testDraft()
	maxSupply := int64(500000)
	d.TokenConfig.MaxSupply = &maxSupply

	_, err := h.orch.Run(context.Background(), &domain.Submission{Draft: d, Owner: ownerID})
	expectStageError(t, err, KindValidation, "")

	if len(h.ledger.CallLog()) != 0 {
		t.Errorf("ledger contacted: %v", h.ledger.CallLog())
	}
}

func TestRun_IssuanceFailure(t *testing.T) {
	h := newHarness(t)
	h.ledger.FailCreateToken = errors.New("INSUFFICIENT_PAYER_BALANCE")

	res, err := h.orch.Run(context.Background(), &domain.Submission{Draft: testDraft(), Owner: ownerID})
	expectStageError(t, err, KindIssuance, domain.StageIssueToken)

	if res.Final.Status != domain.StatusFailed || res.Final.Stage != domain.StageIssueToken {
		t.Errorf("unexpected final snapshot: %+v", res.Final)
	}
	if res.Final.Error == nil || res.Final.Error.Kind != "IssuanceError" {
		t.Errorf("unexpected error record: %+v", res.Final.Error)
	}

	// File and metadata stay in storage
	if h.content.Len() != 2 {
		t.Errorf("content objects = %d, want 2", h.content.Len())
	}
	if _, ok := h.content.Get(res.MetadataCID); !ok {
		t.Errorf("metadata was removed")
	}

	records, err := h.records.GetByOwner(context.Background(), ownerID)
	if err != nil {
		t.Fatalf("GetByOwner failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("token record created on failed issuance: %+v", records)
	}
	if n := countCalls(h.ledger.CallLog(), "submitMessage"); n != 0 {
		t.Errorf("registry published after failed issuance (%d messages)", n)
	}
}

func TestRun_UnknownOwnerAccount(t *testing.T) {
	h := newHarness(t)

	_, err := h.orch.Run(context.Background(), &domain.Submission{Draft: testDraft(), Owner: "0.0.404"})
	expectStageError(t, err, KindIssuance, domain.StageIssueToken)
	if !errors.Is(err, issuer.ErrAccountNotFound) {
		t.Errorf("expected ErrAccountNotFound, got %v", err)
	}
	if n := countCalls(h.ledger.CallLog(), "createToken"); n != 0 {
		t.Errorf("createToken called without an owner key")
	}
}

func TestRun_PublicationFailure(t *testing.T) {
	h := newHarness(t)
	h.ledger.FailSubmitMessage = func(topicID string, _ []byte) error {
		if topicID == registryTopic {
			return errors.New("topic unavailable")
		}
		return nil
	}

	res, err := h.orch.Run(context.Background(), &domain.Submission{Draft: testDraft(), Owner: ownerID})
	expectStageError(t, err, KindPublication, domain.StagePublishRegistry)

	if res.Final.Published {
		t.Errorf("published set after failed publication")
	}
	// Token and its index record exist; the metadata CID can be republished
	if _, err := h.records.GetByTokenID(context.Background(), res.TokenID); err != nil {
		t.Errorf("token record missing: %v", err)
	}
	if n := len(h.ledger.Messages(anchorTopic)); n != 0 {
		t.Errorf("anchors attempted after failed publication: %d", n)
	}
}

func TestRun_AnchorOrder(t *testing.T) {
	h := newHarness(t)
	d := testDraft()
	d.Media = fullMedia()

	res, err := h.orch.Run(context.Background(), &domain.Submission{Draft: d, Owner: ownerID})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	msgs := h.ledger.Messages(anchorTopic)
	if len(msgs) != 5 || len(res.Anchors) != 5 {
		t.Fatalf("anchors = %d (receipts %d), want 5", len(msgs), len(res.Anchors))
	}

	want := []domain.FileRole{
		domain.RolePrimaryImage,
		domain.RoleAdditionalImage,
		domain.RoleAdditionalImage,
		domain.RoleLegalDocs,
		domain.RoleValuationReport,
	}
	wantHashes := []string{
		res.Files.PrimaryImage.Hash,
		res.Files.AdditionalImages[0].Hash,
		res.Files.AdditionalImages[1].Hash,
		res.Files.LegalDocs.Hash,
		res.Files.ValuationReport.Hash,
	}
	for i, m := range msgs {
		var doc registry.DocumentHashMessage
		if err := json.Unmarshal(m.Message, &doc); err != nil {
			t.Fatalf("decode anchor %d: %v", i, err)
		}
		if doc.Role != want[i] || doc.FileHash != wantHashes[i] || doc.TokenID != res.TokenID {
			t.Errorf("anchor %d = %+v", i, doc)
		}
	}

	var doc registry.DocumentHashMessage
	_ = json.Unmarshal(msgs[3].Message, &doc)
	if doc.FileType != "application/pdf" {
		t.Errorf("legal doc file type = %q, want application/pdf", doc.FileType)
	}
}

func TestRun_AnchorFailureAfterPublish(t *testing.T) {
	h := newHarness(t)
	d := testDraft()
	d.Media = fullMedia()

	anchored := 0
	h.ledger.FailSubmitMessage = func(topicID string, _ []byte) error {
		if topicID != anchorTopic {
			return nil
		}
		anchored++
		if anchored == 2 {
			return errors.New("anchor rejected")
		}
		return nil
	}

	res, err := h.orch.Run(context.Background(), &domain.Submission{Draft: d, Owner: ownerID})
	expectStageError(t, err, KindAnchor, domain.StageAnchorHashes)

	if res.Final.Status != domain.StatusFailed || !res.Final.Published {
		t.Errorf("want failed and published, got %+v", res.Final)
	}
	if res.Final.Error == nil || res.Final.Error.Kind != "AnchorError" {
		t.Errorf("unexpected error record: %+v", res.Final.Error)
	}
	// First failure stops the rest
	if anchored != 2 {
		t.Errorf("anchor attempts = %d, want 2", anchored)
	}
	if n := len(h.ledger.Messages(anchorTopic)); n != 1 {
		t.Errorf("anchored messages = %d, want 1", n)
	}
	if n := len(h.ledger.Messages(registryTopic)); n != 1 {
		t.Errorf("registry messages = %d, want 1", n)
	}
}

func TestRun_UploadFailureIsFatal(t *testing.T) {
	h := newHarness(t)
	d := testDraft()
	d.Media = fullMedia()

	h.content.FailOn = func(name string) error {
		if name == "b.png" {
			return errors.New("gateway timeout")
		}
		return nil
	}

	rec := &recorder{}
	res, err := h.orch.Run(context.Background(), &domain.Submission{Draft: d, Owner: ownerID}, rec)
	expectStageError(t, err, KindUpload, domain.StageUploadFiles)

	if len(res.Final.CompletedStages) != 0 {
		t.Errorf("completed stages = %v, want none", res.Final.CompletedStages)
	}
	for _, name := range h.content.Uploads() {
		if name == "" {
			t.Errorf("metadata uploaded after a failed file upload")
		}
	}
	if len(h.ledger.CallLog()) != 0 {
		t.Errorf("ledger contacted: %v", h.ledger.CallLog())
	}

	snaps := rec.all()
	last := snaps[len(snaps)-1]
	if last.Status != domain.StatusFailed || last.Stage != domain.StageUploadFiles {
		t.Errorf("last snapshot = %+v", last)
	}
}

func TestRun_OptionalFileFailureIsFatal(t *testing.T) {
	h := newHarness(t)
	d := testDraft()
	d.Media.ValuationReport = &domain.File{Name: "valuation.pdf", Data: []byte("v")}

	h.content.FailOn = func(name string) error {
		if name == "valuation.pdf" {
			return errors.New("pin failed")
		}
		return nil
	}

	_, err := h.orch.Run(context.Background(), &domain.Submission{Draft: d, Owner: ownerID})
	expectStageError(t, err, KindUpload, domain.StageUploadFiles)
}

func TestRun_MetadataUploadFailure(t *testing.T) {
	h := newHarness(t)
	h.content.FailOn = func(name string) error {
		if name == "" {
			return errors.New("pinJSONToIPFS: 500")
		}
		return nil
	}

	res, err := h.orch.Run(context.Background(), &domain.Submission{Draft: testDraft(), Owner: ownerID})
	expectStageError(t, err, KindUpload, domain.StageUploadMetadata)

	if !reflect.DeepEqual(res.Final.CompletedStages, []domain.Stage{domain.StageUploadFiles}) {
		t.Errorf("completed = %v", res.Final.CompletedStages)
	}
}

func TestRun_NoConnectedAccount(t *testing.T) {
	h := newHarness(t)

	res, err := h.orch.Run(context.Background(), &domain.Submission{Draft: testDraft()})
	expectStageError(t, err, KindValidation, domain.StageUploadMetadata)
	if !errors.Is(err, ErrNoOwner) {
		t.Errorf("expected ErrNoOwner, got %v", err)
	}

	// Files were uploaded before the owner check
	if h.content.Len() != 1 || res.Files.PrimaryImage == nil {
		t.Errorf("expected the primary image upload to have happened")
	}
}

func TestRun_DuplicateSubmission(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, err := h.orch.Run(ctx, &domain.Submission{Draft: testDraft(), Owner: ownerID})
	if err != nil {
		t.Fatalf("first Run failed: %v", err)
	}

	_, err = h.orch.Run(ctx, &domain.Submission{Draft: testDraft(), Owner: ownerID})
	expectStageError(t, err, KindDuplicate, "")
	if !errors.Is(err, ErrDuplicateSubmission) {
		t.Errorf("expected ErrDuplicateSubmission, got %v", err)
	}

	if n := countCalls(h.ledger.CallLog(), "createToken"); n != 1 {
		t.Errorf("createToken calls = %d, want 1 (token %s)", n, first.TokenID)
	}

	// A different owner is a different draft
	h.ledger.AddAccount("0.0.1002", h.ledger.Accounts[ownerID].Key)
	if _, err := h.orch.Run(ctx, &domain.Submission{Draft: testDraft(), Owner: "0.0.1002"}); err != nil {
		t.Errorf("Run for another owner failed: %v", err)
	}
}

func TestRun_RetryAfterPartialFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.ledger.FailCreateToken = errors.New("BUSY")
	if _, err := h.orch.Run(ctx, &domain.Submission{Draft: testDraft(), Owner: ownerID}); err == nil {
		t.Fatal("expected failure")
	}

	// No token record exists, so resubmission is allowed
	h.ledger.FailCreateToken = nil
	res, err := h.orch.Run(ctx, &domain.Submission{Draft: testDraft(), Owner: ownerID})
	if err != nil {
		t.Fatalf("resubmission failed: %v", err)
	}
	if res.Final.Status != domain.StatusDone {
		t.Errorf("status = %s, want done", res.Final.Status)
	}
}

func TestRun_IndexWriteRetried(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.withRecords(&flakyRecords{TokenRecordStore: h.records, failures: 1})

	res, err := h.orch.Run(ctx, &domain.Submission{Draft: testDraft(), Owner: ownerID})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if rec, err := h.records.GetByTokenID(ctx, res.TokenID); err != nil || rec.DraftKey != res.DraftKey {
		t.Fatalf("token record not written: %+v, %v", rec, err)
	}

	_, err = h.orch.Run(ctx, &domain.Submission{Draft: testDraft(), Owner: ownerID})
	if !errors.Is(err, ErrDuplicateSubmission) {
		t.Errorf("expected ErrDuplicateSubmission, got %v", err)
	}
	if n := countCalls(h.ledger.CallLog(), "createToken"); n != 1 {
		t.Errorf("createToken calls = %d, want 1", n)
	}
}

func TestRun_MintedButNotIndexed(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.withRecords(&flakyRecords{TokenRecordStore: h.records, failures: 100})

	res, err := h.orch.Run(ctx, &domain.Submission{Draft: testDraft(), Owner: ownerID})
	expectStageError(t, err, KindIssuance, domain.StageIssueToken)
	if !errors.Is(err, ErrTokenNotIndexed) {
		t.Errorf("expected ErrTokenNotIndexed, got %v", err)
	}
	if res.TokenID == "" {
		t.Errorf("expected the minted token ID on the result")
	}
	if countCalls(h.ledger.CallLog(), "submitMessage") != 0 {
		t.Errorf("registry must not be published without an index record")
	}

	// The token exists on the ledger, so a resubmission must not mint again
	_, err = h.orch.Run(ctx, &domain.Submission{Draft: testDraft(), Owner: ownerID})
	expectStageError(t, err, KindDuplicate, "")
	if !errors.Is(err, ErrDuplicateSubmission) {
		t.Errorf("expected ErrDuplicateSubmission, got %v", err)
	}
	if n := countCalls(h.ledger.CallLog(), "createToken"); n != 1 {
		t.Errorf("createToken calls = %d, want 1", n)
	}
}

func TestPrepare_InFlight(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sub := &domain.Submission{Draft: testDraft(), Owner: ownerID}

	job, err := h.orch.Prepare(ctx, sub)
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if job.ID() == "" || job.DraftKey() == "" {
		t.Errorf("job missing identifiers: id=%q key=%q", job.ID(), job.DraftKey())
	}

	_, err = h.orch.Prepare(ctx, sub)
	expectStageError(t, err, KindDuplicate, "")
	if !errors.Is(err, ErrSubmissionInFlight) {
		t.Errorf("expected ErrSubmissionInFlight, got %v", err)
	}

	if _, err := job.Run(ctx); err != nil {
		t.Fatalf("job Run failed: %v", err)
	}
	if _, err := job.Run(ctx); err == nil {
		t.Errorf("expected error running a job twice")
	}

	// Released, now deduplicated by the token record
	_, err = h.orch.Prepare(ctx, sub)
	if !errors.Is(err, ErrDuplicateSubmission) {
		t.Errorf("expected ErrDuplicateSubmission, got %v", err)
	}
}

func TestPrepare_KeepsSubmissionID(t *testing.T) {
	h := newHarness(t)
	job, err := h.orch.Prepare(context.Background(), &domain.Submission{ID: "sub-42", Draft: testDraft(), Owner: ownerID})
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	defer job.Run(context.Background())

	if job.ID() != "sub-42" {
		t.Errorf("ID = %s, want sub-42", job.ID())
	}
}

func TestRun_EventLog(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, err := h.orch.Run(ctx, &domain.Submission{ID: "sub-1", Draft: testDraft(), Owner: ownerID})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	events, err := h.events.GetBySubmissionID(ctx, "sub-1")
	if err != nil {
		t.Fatalf("GetBySubmissionID failed: %v", err)
	}
	if len(events) != 2*len(domain.Stages)+1 {
		t.Fatalf("events = %d, want %d", len(events), 2*len(domain.Stages)+1)
	}
	for i, st := range domain.Stages {
		if events[2*i].Stage != st || events[2*i].Status != domain.EventStarted {
			t.Errorf("event %d = %+v", 2*i, events[2*i])
		}
		if events[2*i+1].Stage != st || events[2*i+1].Status != domain.EventCompleted {
			t.Errorf("event %d = %+v", 2*i+1, events[2*i+1])
		}
	}
	last := events[len(events)-1]
	if last.Stage != "" || last.Status != domain.EventCompleted || last.DraftKey != res.DraftKey {
		t.Errorf("last event = %+v", last)
	}
}

type failingEvents struct{}

func (failingEvents) Insert(context.Context, *domain.SubmissionEvent) error {
	return errors.New("clickhouse unavailable")
}

func (failingEvents) GetBySubmissionID(context.Context, string) ([]*domain.SubmissionEvent, error) {
	return nil, errors.New("clickhouse unavailable")
}

func TestRun_EventLogFailureIsNotFatal(t *testing.T) {
	h := newHarness(t)
	h.orch.opts.Events = failingEvents{}

	res, err := h.orch.Run(context.Background(), &domain.Submission{Draft: testDraft(), Owner: ownerID})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Final.Status != domain.StatusDone {
		t.Errorf("status = %s, want done", res.Final.Status)
	}
}

func TestRun_ConcurrentSubmissionsOfDifferentDrafts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d := testDraft()
			d.BasicInfo.Name = d.BasicInfo.Name + string(rune('A'+i))
			_, errs[i] = h.orch.Run(ctx, &domain.Submission{Draft: d, Owner: ownerID})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("submission %d failed: %v", i, err)
		}
	}
	records, _ := h.records.GetByOwner(ctx, ownerID)
	if len(records) != 4 {
		t.Errorf("records = %d, want 4", len(records))
	}
}

package resumes

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"cvforge-backend/internal/extract"
	"cvforge-backend/internal/queue"
	"cvforge-backend/internal/structure"
)

const testUser = "user-1"

var sampleText = strings.Repeat("Built and operated large ingestion pipelines. ", 3)

type fakeStore struct {
	mu        sync.Mutex
	objects   map[string][]byte
	derived   map[string][]byte
	openCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		objects: make(map[string][]byte),
		derived: make(map[string][]byte),
	}
}

func (f *fakeStore) Save(ctx context.Context, userID, fileName string, r io.Reader) (string, int64, string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", 0, "", err
	}
	key := userID + "/" + fileName
	f.mu.Lock()
	f.objects[key] = data
	f.mu.Unlock()
	return key, int64(len(data)), "text/plain", nil
}

func (f *fakeStore) Open(ctx context.Context, storageKey string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.openCalls++
	data, ok := f.objects[storageKey]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeStore) SaveWithKey(ctx context.Context, storageKey, contentType string, r io.Reader) (int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	f.mu.Lock()
	f.derived[storageKey] = data
	f.mu.Unlock()
	return int64(len(data)), nil
}

type fakeStructurer struct {
	mu       sync.Mutex
	calls    int
	failures int
	err      error
	result   *structure.StructuredResume
}

func (f *fakeStructurer) Structure(ctx context.Context, text, templateID string) (*structure.StructuredResume, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.calls <= f.failures {
		return nil, fmt.Errorf("transient llm failure on call %d", f.calls)
	}
	if f.result != nil {
		return f.result, nil
	}
	result := &structure.StructuredResume{
		Contact: structure.Contact{FullName: "Jane Doe", Email: "jane@example.com"},
		Summary: "Engineer.",
	}
	result.Normalize()
	return result, nil
}

func newTestService(t *testing.T, structurer *fakeStructurer) (*Service, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	svc := NewService(NewMemoryRepo(), store, structurer, time.Second)
	svc.sleep = func(time.Duration) {}
	return svc, store
}

func createManual(t *testing.T, svc *Service) ResumeRecord {
	t.Helper()
	rec, err := svc.Create(context.Background(), testUser, CreateInput{
		FileName: "resume.txt",
		Source:   SourceManual,
		RawText:  sampleText,
	})
	if err != nil {
		t.Fatalf("create manual resume: %v", err)
	}
	return rec
}

func TestCreateContractUpload(t *testing.T) {
	svc, _ := newTestService(t, &fakeStructurer{})
	ctx := context.Background()

	if _, err := svc.Create(ctx, testUser, CreateInput{
		FileName: "cv.pdf", Source: SourceUpload,
	}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected contract rejection without storageKey, got %v", err)
	}

	if _, err := svc.Create(ctx, testUser, CreateInput{
		FileName: "cv.pdf", Source: SourceUpload,
		StorageKey: "k", MimeType: "application/pdf", RawText: sampleText,
	}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected contract rejection with rawText on upload, got %v", err)
	}

	rec, err := svc.Create(ctx, testUser, CreateInput{
		FileName: "cv.pdf", Source: SourceUpload,
		StorageKey: "k", MimeType: "application/pdf", SizeBytes: 123,
	})
	if err != nil {
		t.Fatalf("expected valid upload creation, got %v", err)
	}
	if rec.Status != StatusProcessing || rec.Processed {
		t.Fatalf("expected fresh record processing/unprocessed, got %s/%v", rec.Status, rec.Processed)
	}
	if rec.Version != 1 {
		t.Fatalf("expected version 1, got %d", rec.Version)
	}
}

func TestCreateContractManualTextBoundary(t *testing.T) {
	svc, _ := newTestService(t, &fakeStructurer{})
	ctx := context.Background()

	if _, err := svc.Create(ctx, testUser, CreateInput{
		FileName: "cv.txt", Source: SourceManual, RawText: strings.Repeat("a", 49),
	}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected rejection at 49 chars, got %v", err)
	}

	if _, err := svc.Create(ctx, testUser, CreateInput{
		FileName: "cv.txt", Source: SourceManual, RawText: strings.Repeat("a", 50),
	}); err != nil {
		t.Fatalf("expected acceptance at 50 chars, got %v", err)
	}

	if _, err := svc.Create(ctx, testUser, CreateInput{
		FileName: "cv.txt", Source: SourceManual, RawText: sampleText, StorageKey: "k",
	}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected rejection of storageKey on manual, got %v", err)
	}
}

func TestCreateRejectsUnknownSourceAndTemplate(t *testing.T) {
	svc, _ := newTestService(t, &fakeStructurer{})
	ctx := context.Background()

	if _, err := svc.Create(ctx, testUser, CreateInput{
		FileName: "cv.txt", Source: "scraped", RawText: sampleText,
	}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected unknown source rejection, got %v", err)
	}

	if _, err := svc.Create(ctx, testUser, CreateInput{
		FileName: "cv.txt", Source: SourceManual, RawText: sampleText,
		SelectedTemplate: "comic-sans",
	}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected unknown template rejection, got %v", err)
	}
}

func TestProcessManualHappyPath(t *testing.T) {
	structurer := &fakeStructurer{}
	svc, store := newTestService(t, structurer)
	rec := createManual(t, svc)

	result, err := svc.Process(context.Background(), testUser, rec.ID, "")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if result.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", result.Status)
	}
	if result.ATSScore == nil {
		t.Fatal("expected a score")
	}
	if store.openCalls != 0 {
		t.Fatalf("manual resume must not touch the blob store, got %d opens", store.openCalls)
	}
	if result.Metrics.StructuringAttempts != 1 {
		t.Fatalf("expected 1 structuring attempt, got %d", result.Metrics.StructuringAttempts)
	}

	stored, err := svc.Get(context.Background(), testUser, rec.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !stored.Processed || stored.Status != StatusCompleted || stored.StructuredData == nil || stored.ATSScore == nil {
		t.Fatalf("completed invariant violated: %+v", stored)
	}
}

func TestProcessUploadConversionRunsOnce(t *testing.T) {
	structurer := &fakeStructurer{failures: 3}
	svc, store := newTestService(t, structurer)

	rec, err := svc.Upload(context.Background(), testUser, "resume.txt", strings.NewReader(sampleText))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	// First run: conversion succeeds and persists, structuring exhausts
	// its three attempts and fails.
	_, err = svc.Process(context.Background(), testUser, rec.ID, "")
	se := AsStageError(err)
	if se == nil || se.Stage != StageStructuring {
		t.Fatalf("expected structuring stage failure, got %v", err)
	}
	if store.openCalls != 1 {
		t.Fatalf("expected 1 blob fetch, got %d", store.openCalls)
	}

	failed, err := svc.Get(context.Background(), testUser, rec.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if failed.Status != StatusFailed || failed.FailedStage != StageStructuring {
		t.Fatalf("expected failed/structuring, got %s/%s", failed.Status, failed.FailedStage)
	}
	if failed.NormalizedText == "" {
		t.Fatal("expected extracted text to survive the failed run")
	}

	// Retry: the persisted text makes conversion a no-op.
	result, err := svc.Process(context.Background(), testUser, rec.ID, "")
	if err != nil {
		t.Fatalf("retry Process: %v", err)
	}
	if result.Status != StatusCompleted {
		t.Fatalf("expected completed on retry, got %s", result.Status)
	}
	if store.openCalls != 1 {
		t.Fatalf("conversion must be idempotent: expected 1 blob fetch total, got %d", store.openCalls)
	}
}

// scannedPDF builds a valid one-page PDF whose only text is a few stray
// characters, the typical residue of a scanned document.
func scannedPDF() []byte {
	body := "BT /F1 12 Tf (Short CV) Tj ET"
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(body), body),
	}
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xrefPos := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xrefPos)
	return buf.Bytes()
}

func TestProcessScannedPDFFailsConversion(t *testing.T) {
	svc, store := newTestService(t, &fakeStructurer{})

	store.objects["user-1/scan.pdf"] = scannedPDF()

	rec, err := svc.Create(context.Background(), testUser, CreateInput{
		FileName: "scan.pdf", Source: SourceUpload,
		StorageKey: "user-1/scan.pdf", MimeType: "application/pdf",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = svc.Process(context.Background(), testUser, rec.ID, "")
	se := AsStageError(err)
	if se == nil || se.Stage != StageConversion {
		t.Fatalf("expected conversion failure, got %v", err)
	}
	xe := extract.AsError(err)
	if xe == nil || xe.Code != extract.CodePDFScannedNoText {
		t.Fatalf("expected %s, got %v", extract.CodePDFScannedNoText, err)
	}

	failed, _ := svc.Get(context.Background(), testUser, rec.ID)
	if failed.Status != StatusFailed || failed.FailedStage != StageConversion {
		t.Fatalf("expected failed/conversion, got %s/%s", failed.Status, failed.FailedStage)
	}
}

func TestProcessStructuringFailTwiceSucceedThird(t *testing.T) {
	structurer := &fakeStructurer{failures: 2}
	svc, _ := newTestService(t, structurer)

	var slept []time.Duration
	svc.sleep = func(d time.Duration) { slept = append(slept, d) }

	rec := createManual(t, svc)
	result, err := svc.Process(context.Background(), testUser, rec.ID, "")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if result.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", result.Status)
	}
	if result.Metrics.StructuringAttempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", result.Metrics.StructuringAttempts)
	}
	if len(slept) != 2 || slept[0] != 1*time.Second || slept[1] != 2*time.Second {
		t.Fatalf("expected linear backoff [1s 2s], got %v", slept)
	}
}

type conflictOnUpdateRepo struct {
	Repo
	updates int
}

func (r *conflictOnUpdateRepo) Update(ctx context.Context, rec ResumeRecord) (ResumeRecord, error) {
	r.updates++
	if r.updates == 1 {
		return ResumeRecord{}, ErrVersionConflict
	}
	return r.Repo.Update(ctx, rec)
}

func TestProcessConcurrentRunRejected(t *testing.T) {
	structurer := &fakeStructurer{}
	store := newFakeStore()
	memory := NewMemoryRepo()
	repo := &conflictOnUpdateRepo{Repo: memory}
	svc := NewService(repo, store, structurer, time.Second)
	svc.sleep = func(time.Duration) {}

	rec, err := svc.Create(context.Background(), testUser, CreateInput{
		FileName: "cv.txt", Source: SourceManual, RawText: sampleText,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = svc.Process(context.Background(), testUser, rec.ID, "")
	if !errors.Is(err, ErrRunInFlight) {
		t.Fatalf("expected ErrRunInFlight, got %v", err)
	}
	se := AsStageError(err)
	if se == nil || se.Stage != StageMarkProcessing {
		t.Fatalf("expected mark_processing stage, got %v", err)
	}

	// The record must not have been mutated by the rejected run.
	stored, _ := svc.Get(context.Background(), testUser, rec.ID)
	if stored.Status != StatusProcessing || stored.FailedStage != "" {
		t.Fatalf("rejected run mutated the record: %+v", stored)
	}
}

func TestProcessNotFoundIsFatalWithoutMutation(t *testing.T) {
	svc, _ := newTestService(t, &fakeStructurer{})
	_, err := svc.Process(context.Background(), testUser, "missing-id", "")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	se := AsStageError(err)
	if se == nil || se.Stage != StageLoad {
		t.Fatalf("expected load stage, got %v", err)
	}
}

func TestProcessOwnershipMismatch(t *testing.T) {
	svc, _ := newTestService(t, &fakeStructurer{})
	rec := createManual(t, svc)
	_, err := svc.Process(context.Background(), "someone-else", rec.ID, "")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign record, got %v", err)
	}
}

func TestProcessCompletedShortCircuits(t *testing.T) {
	structurer := &fakeStructurer{}
	svc, _ := newTestService(t, structurer)
	rec := createManual(t, svc)

	if _, err := svc.Process(context.Background(), testUser, rec.ID, ""); err != nil {
		t.Fatalf("first Process: %v", err)
	}
	callsAfterFirst := structurer.calls

	result, err := svc.Process(context.Background(), testUser, rec.ID, "")
	if err != nil {
		t.Fatalf("second Process: %v", err)
	}
	if result.Status != StatusCompleted || result.ATSScore == nil {
		t.Fatalf("expected completed short-circuit, got %+v", result)
	}
	if structurer.calls != callsAfterFirst {
		t.Fatal("short-circuit must not call the structurer again")
	}
}

func TestUpdateStructuredRescoresSynchronously(t *testing.T) {
	structurer := &fakeStructurer{}
	svc, _ := newTestService(t, structurer)
	rec := createManual(t, svc)
	if _, err := svc.Process(context.Background(), testUser, rec.ID, ""); err != nil {
		t.Fatalf("Process: %v", err)
	}

	before, _ := svc.Get(context.Background(), testUser, rec.ID)

	richer := &structure.StructuredResume{
		Contact: structure.Contact{
			FullName: "Jane Doe", Email: "jane@example.com",
			Phone: "+1 555 0100", Location: "Berlin", LinkedIn: "in/janedoe",
		},
		Summary: strings.Repeat("Senior engineer shipping storage systems. ", 3),
		Experience: []structure.Experience{{
			JobTitle: "Staff Engineer", Company: "Acme", IsCurrent: true,
			Responsibilities: []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"},
		}},
		Education: []structure.Education{{Degree: "BSc", Institution: "TU Berlin"}},
		Skills: []structure.SkillGroup{{Category: "Languages", Skills: []string{
			"Go", "SQL", "Python", "Rust", "Bash", "C", "Java", "Kotlin",
			"TS", "Terraform", "K8s", "Postgres", "Redis", "Kafka", "gRPC",
		}}},
	}

	updated, err := svc.UpdateStructured(context.Background(), testUser, rec.ID, richer, "technical")
	if err != nil {
		t.Fatalf("UpdateStructured: %v", err)
	}
	if updated.ATSScore == nil || before.ATSScore == nil {
		t.Fatal("expected scores on both records")
	}
	if *updated.ATSScore <= *before.ATSScore {
		t.Fatalf("richer resume must score higher: %d <= %d", *updated.ATSScore, *before.ATSScore)
	}
	if updated.LastEditedAt == nil {
		t.Fatal("expected lastEditedAt stamp")
	}
	if updated.SelectedTemplate != "technical" {
		t.Fatalf("expected template update, got %q", updated.SelectedTemplate)
	}
}

type stubQueue struct {
	messages []queue.Message
	err      error
}

func (s *stubQueue) Send(ctx context.Context, msg queue.Message) error {
	if s.err != nil {
		return s.err
	}
	s.messages = append(s.messages, msg)
	return nil
}

func TestEnqueue(t *testing.T) {
	svc, _ := newTestService(t, &fakeStructurer{})
	rec := createManual(t, svc)

	if err := svc.Enqueue(context.Background(), testUser, rec.ID, "", "req-1"); !errors.Is(err, ErrQueueNotConfigured) {
		t.Fatalf("expected ErrQueueNotConfigured without a queue, got %v", err)
	}

	q := &stubQueue{}
	svc.Queue = q
	if err := svc.Enqueue(context.Background(), testUser, rec.ID, "technical", "req-1"); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if len(q.messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(q.messages))
	}
	msg := q.messages[0]
	if msg.ResumeID != rec.ID || msg.UserID != testUser || msg.TemplateID != "technical" || msg.RequestID != "req-1" {
		t.Fatalf("unexpected message: %+v", msg)
	}

	if err := svc.Enqueue(context.Background(), testUser, "missing", "", ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown record, got %v", err)
	}
}

func TestUploadPersistsExtractedCopy(t *testing.T) {
	svc, store := newTestService(t, &fakeStructurer{})
	rec, err := svc.Upload(context.Background(), testUser, "resume.txt", strings.NewReader(sampleText))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if _, err := svc.Process(context.Background(), testUser, rec.ID, ""); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(store.derived) != 1 {
		t.Fatalf("expected one derived .extracted.txt object, got %d", len(store.derived))
	}
}

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nikolaslecce/sample-genai-underwriting-workbench-demo/config"
	"github.com/nikolaslecce/sample-genai-underwriting-workbench-demo/model"
)

func newTestStore(maxJobs int) *MemoryStore {
	return NewMemoryStore(&config.StoreConfig{MaxJobs: maxJobs})
}

func testJob(id string, uploadedAt time.Time) *model.Job {
	return &model.Job{
		JobID:            id,
		OriginalFilename: id + ".pdf",
		S3Key:            "uploads/" + id + "/" + id + ".pdf",
		Status:           model.StatusCreated,
		InsuranceType:    model.InsuranceTypePropertyCasualty,
		UploadTimestamp:  uploadedAt,
	}
}

func TestMemoryStoreCreateAndGet(t *testing.T) {
	store := newTestStore(0)
	ctx := context.Background()

	job := testJob("job-1", time.Now())
	if err := store.CreateJob(ctx, job); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	got, err := store.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got.OriginalFilename != "job-1.pdf" {
		t.Errorf("Expected filename job-1.pdf, got %s", got.OriginalFilename)
	}
	if got.Status != model.StatusCreated {
		t.Errorf("Expected status %s, got %s", model.StatusCreated, got.Status)
	}

	// Returned job is a copy; mutating it must not touch the store
	got.Status = model.StatusFailed
	again, _ := store.GetJob(ctx, "job-1")
	if again.Status != model.StatusCreated {
		t.Error("Expected store to be isolated from caller mutation")
	}
}

func TestMemoryStoreGetNotFound(t *testing.T) {
	store := newTestStore(0)

	_, err := store.GetJob(context.Background(), "missing")
	if !errors.Is(err, ErrJobNotFound) {
		t.Errorf("Expected ErrJobNotFound, got %v", err)
	}
}

func TestMemoryStoreListSortsNewestFirst(t *testing.T) {
	store := newTestStore(0)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	store.CreateJob(ctx, testJob("oldest", base))
	store.CreateJob(ctx, testJob("newest", base.Add(2*time.Hour)))
	store.CreateJob(ctx, testJob("middle", base.Add(time.Hour)))

	jobs, err := store.ListJobs(ctx)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(jobs) != 3 {
		t.Fatalf("Expected 3 jobs, got %d", len(jobs))
	}

	expected := []string{"newest", "middle", "oldest"}
	for i, id := range expected {
		if jobs[i].JobID != id {
			t.Errorf("Expected jobs[%d] = %s, got %s", i, id, jobs[i].JobID)
		}
	}
}

func TestMemoryStoreUpdates(t *testing.T) {
	store := newTestStore(0)
	ctx := context.Background()
	store.CreateJob(ctx, testJob("job-1", time.Now()))

	if err := store.UpdateStatus(ctx, "job-1", model.StatusInProgress, ""); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := store.SetStage(ctx, "job-1", model.StageExtract); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := store.SetDocumentType(ctx, "job-1", "ACORD_FORM"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := store.SetExtractedData(ctx, "job-1", map[string]any{"insured": "ACME"}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := store.SetAnalysisOutput(ctx, "job-1", map[string]any{"risk": "low"}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	job, _ := store.GetJob(ctx, "job-1")
	if job.Status != model.StatusInProgress {
		t.Errorf("Expected status %s, got %s", model.StatusInProgress, job.Status)
	}
	if job.Stage != model.StageExtract {
		t.Errorf("Expected stage %s, got %s", model.StageExtract, job.Stage)
	}
	if job.DocumentType != "ACORD_FORM" {
		t.Errorf("Expected document type ACORD_FORM, got %s", job.DocumentType)
	}
	if job.ExtractedData["insured"] != "ACME" {
		t.Errorf("Expected extracted data to be stored, got %v", job.ExtractedData)
	}
	if job.AnalysisOutput["risk"] != "low" {
		t.Errorf("Expected analysis output to be stored, got %v", job.AnalysisOutput)
	}
}

func TestMemoryStoreUpdateMissingJob(t *testing.T) {
	store := newTestStore(0)
	ctx := context.Background()

	if err := store.UpdateStatus(ctx, "missing", model.StatusFailed, "boom"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("Expected ErrJobNotFound, got %v", err)
	}
	if err := store.SetStage(ctx, "missing", model.StageClassify); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("Expected ErrJobNotFound, got %v", err)
	}
}

func TestMemoryStoreCleanup(t *testing.T) {
	store := newTestStore(2)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	store.CreateJob(ctx, testJob("first", base))
	store.CreateJob(ctx, testJob("second", base.Add(time.Hour)))
	store.CreateJob(ctx, testJob("third", base.Add(2*time.Hour)))

	if store.Count() != 2 {
		t.Errorf("Expected 2 jobs after cleanup, got %d", store.Count())
	}
	if _, err := store.GetJob(ctx, "first"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("Expected oldest job to be evicted, got %v", err)
	}
	if _, err := store.GetJob(ctx, "third"); err != nil {
		t.Errorf("Expected newest job to survive, got %v", err)
	}
}

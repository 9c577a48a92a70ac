package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nikolaslecce/sample-genai-underwriting-workbench-demo/config"
	"github.com/nikolaslecce/sample-genai-underwriting-workbench-demo/model"
	"github.com/nikolaslecce/sample-genai-underwriting-workbench-demo/service"
)

func newJobRouter(h *JobHandler) *gin.Engine {
	router := gin.New()
	router.GET("/api/jobs", h.List)
	router.GET("/api/jobs/:jobId", h.Get)
	router.GET("/api/jobs/:jobId/document-url", h.DocumentURL)
	return router
}

func seedJob(t *testing.T, store service.JobStore, jobID, filename string, uploaded time.Time) {
	t.Helper()
	err := store.CreateJob(context.Background(), &model.Job{
		JobID:            jobID,
		OriginalFilename: filename,
		S3Key:            "uploads/" + jobID + "/" + filename,
		Status:           model.StatusCreated,
		InsuranceType:    model.InsuranceTypePropertyCasualty,
		UploadTimestamp:  uploaded,
	})
	if err != nil {
		t.Fatalf("Failed to seed job %s: %v", jobID, err)
	}
}

func TestListJobs(t *testing.T) {
	store := service.NewMemoryStore(&config.StoreConfig{})
	now := time.Now().UTC()
	seedJob(t, store, "job-1", "older.pdf", now.Add(-2*time.Hour))
	seedJob(t, store, "job-2", "newer.pdf", now)

	router := newJobRouter(NewJobHandler(store, &stubStorage{}))

	req := httptest.NewRequest("GET", "/api/jobs", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var resp struct {
		Jobs []struct {
			JobID            string `json:"jobId"`
			Status           string `json:"status"`
			UploadTimestamp  string `json:"uploadTimestamp"`
			OriginalFilename string `json:"originalFilename"`
		} `json:"jobs"`
		Count int `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	if resp.Count != 2 {
		t.Errorf("Expected count 2, got %d", resp.Count)
	}
	if len(resp.Jobs) != 2 {
		t.Fatalf("Expected 2 jobs, got %d", len(resp.Jobs))
	}
	// Newest first
	if resp.Jobs[0].JobID != "job-2" || resp.Jobs[1].JobID != "job-1" {
		t.Errorf("Expected newest-first ordering, got %s then %s", resp.Jobs[0].JobID, resp.Jobs[1].JobID)
	}
	if _, err := time.Parse(time.RFC3339, resp.Jobs[0].UploadTimestamp); err != nil {
		t.Errorf("Expected RFC3339 uploadTimestamp, got %q: %v", resp.Jobs[0].UploadTimestamp, err)
	}
}

func TestListJobsEmpty(t *testing.T) {
	store := service.NewMemoryStore(&config.StoreConfig{})
	router := newJobRouter(NewJobHandler(store, &stubStorage{}))

	req := httptest.NewRequest("GET", "/api/jobs", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var resp struct {
		Jobs  []json.RawMessage `json:"jobs"`
		Count int               `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.Count != 0 || len(resp.Jobs) != 0 {
		t.Errorf("Expected empty job list, got count=%d len=%d", resp.Count, len(resp.Jobs))
	}
}

func TestGetJob(t *testing.T) {
	store := service.NewMemoryStore(&config.StoreConfig{})
	seedJob(t, store, "job-1", "policy.pdf", time.Now().UTC())
	if err := store.SetExtractedData(context.Background(), "job-1", map[string]any{"insured": "Acme Corp"}); err != nil {
		t.Fatalf("Failed to set extracted data: %v", err)
	}

	router := newJobRouter(NewJobHandler(store, &stubStorage{}))

	req := httptest.NewRequest("GET", "/api/jobs/job-1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var job model.Job
	if err := json.Unmarshal(w.Body.Bytes(), &job); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if job.JobID != "job-1" {
		t.Errorf("Expected jobId job-1, got %s", job.JobID)
	}
	if job.ExtractedData["insured"] != "Acme Corp" {
		t.Errorf("Expected extracted data to round-trip, got %v", job.ExtractedData)
	}
}

func TestGetJobNotFound(t *testing.T) {
	store := service.NewMemoryStore(&config.StoreConfig{})
	router := newJobRouter(NewJobHandler(store, &stubStorage{}))

	req := httptest.NewRequest("GET", "/api/jobs/missing", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Job missing not found") {
		t.Errorf("Expected not-found message, got %s", w.Body.String())
	}
}

func TestJobDocumentURL(t *testing.T) {
	store := service.NewMemoryStore(&config.StoreConfig{})
	seedJob(t, store, "job-1", "policy.pdf", time.Now().UTC())

	router := newJobRouter(NewJobHandler(store, &stubStorage{viewURL: "http://storage.test/view"}))

	req := httptest.NewRequest("GET", "/api/jobs/job-1/document-url", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var resp struct {
		DocumentURL string `json:"documentUrl"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.DocumentURL != "http://storage.test/view/uploads/job-1/policy.pdf" {
		t.Errorf("Unexpected documentUrl: %s", resp.DocumentURL)
	}
}

func TestJobDocumentURLMissingDocument(t *testing.T) {
	store := service.NewMemoryStore(&config.StoreConfig{})
	if err := store.CreateJob(context.Background(), &model.Job{
		JobID:           "job-1",
		Status:          model.StatusCreated,
		UploadTimestamp: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("Failed to seed job: %v", err)
	}

	router := newJobRouter(NewJobHandler(store, &stubStorage{}))

	req := httptest.NewRequest("GET", "/api/jobs/job-1/document-url", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "No document found for job job-1") {
		t.Errorf("Expected no-document message, got %s", w.Body.String())
	}
}

func TestJobDocumentURLUnknownJob(t *testing.T) {
	store := service.NewMemoryStore(&config.StoreConfig{})
	router := newJobRouter(NewJobHandler(store, &stubStorage{}))

	req := httptest.NewRequest("GET", "/api/jobs/missing/document-url", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

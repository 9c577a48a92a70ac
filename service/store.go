package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/nikolaslecce/sample-genai-underwriting-workbench-demo/config"
	"github.com/nikolaslecce/sample-genai-underwriting-workbench-demo/model"
)

// ErrJobNotFound is returned when a job ID has no record.
var ErrJobNotFound = errors.New("job not found")

// JobStore is the persistence interface for job records. Implementations
// must be safe for concurrent use.
type JobStore interface {
	CreateJob(ctx context.Context, job *model.Job) error
	GetJob(ctx context.Context, jobID string) (*model.Job, error)
	// ListJobs returns all jobs sorted by upload timestamp, newest first.
	ListJobs(ctx context.Context) ([]*model.Job, error)
	UpdateStatus(ctx context.Context, jobID, status, errMsg string) error
	SetStage(ctx context.Context, jobID, stage string) error
	SetDocumentType(ctx context.Context, jobID, documentType string) error
	SetExtractedData(ctx context.Context, jobID string, data map[string]any) error
	SetAnalysisOutput(ctx context.Context, jobID string, output map[string]any) error
}

// MemoryStore is an in-memory JobStore for development and tests. Deployed
// environments use the Postgres store instead.
type MemoryStore struct {
	jobs    map[string]*model.Job
	mu      sync.RWMutex
	maxJobs int // maximum jobs to keep, 0 = unlimited
}

// NewMemoryStore creates a MemoryStore capped at cfg.MaxJobs records.
func NewMemoryStore(cfg *config.StoreConfig) *MemoryStore {
	maxJobs := 0
	if cfg != nil && cfg.MaxJobs > 0 {
		maxJobs = cfg.MaxJobs
	}
	return &MemoryStore{
		jobs:    make(map[string]*model.Job),
		maxJobs: maxJobs,
	}
}

func (s *MemoryStore) CreateJob(ctx context.Context, job *model.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job.UpdatedAt = time.Now()
	s.jobs[job.JobID] = job

	s.cleanupIfNeeded()
	return nil
}

func (s *MemoryStore) GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, ErrJobNotFound
	}
	copied := *job
	return &copied, nil
}

func (s *MemoryStore) ListJobs(ctx context.Context) ([]*model.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*model.Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		copied := *j
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].UploadTimestamp.After(result[j].UploadTimestamp)
	})
	return result, nil
}

func (s *MemoryStore) UpdateStatus(ctx context.Context, jobID, status, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	job.Status = status
	job.ErrorMsg = errMsg
	job.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) SetStage(ctx context.Context, jobID, stage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	job.Stage = stage
	job.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) SetDocumentType(ctx context.Context, jobID, documentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	job.DocumentType = documentType
	job.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) SetExtractedData(ctx context.Context, jobID string, data map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	job.ExtractedData = data
	job.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) SetAnalysisOutput(ctx context.Context, jobID string, output map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	job.AnalysisOutput = output
	job.UpdatedAt = time.Now()
	return nil
}

// Count returns the number of jobs in the store.
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// cleanupIfNeeded removes the oldest jobs when the store exceeds maxJobs.
// Must be called with lock held.
func (s *MemoryStore) cleanupIfNeeded() {
	if s.maxJobs <= 0 {
		return // Unlimited
	}

	if len(s.jobs) <= s.maxJobs {
		return
	}

	jobs := make([]*model.Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, j)
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].UploadTimestamp.Before(jobs[j].UploadTimestamp)
	})

	removeCount := len(jobs) - s.maxJobs
	for i := 0; i < removeCount; i++ {
		slog.Info("auto-cleaning old job",
			"job_id", jobs[i].JobID,
			"upload_timestamp", jobs[i].UploadTimestamp,
		)
		delete(s.jobs, jobs[i].JobID)
	}
}

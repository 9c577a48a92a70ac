package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/nikolaslecce/sample-genai-underwriting-workbench-demo/model"
	"github.com/nikolaslecce/sample-genai-underwriting-workbench-demo/pkg/logger"
)

// UploadPrefix is the object-key prefix for uploaded documents. Keys follow
// uploads/{jobId}/{filename}.
const UploadPrefix = "uploads/"

// DocumentAnalyzer is the document-intelligence surface the pipeline drives.
type DocumentAnalyzer interface {
	Classify(ctx context.Context, documentURL, insuranceType string) (string, error)
	Extract(ctx context.Context, documentURL, documentType, insuranceType string, pageStart, pageEnd int) (map[string]any, error)
	Analyze(ctx context.Context, documentType, insuranceType string, extractedData map[string]any) (map[string]any, error)
}

// DocumentSource is the slice of storage the pipeline needs.
type DocumentSource interface {
	PresignedViewURL(ctx context.Context, objectName string) (string, error)
	FetchObject(ctx context.Context, objectName string) (io.ReadCloser, error)
	ListenForUploads(ctx context.Context, prefix string) <-chan string
}

// PageRange is a contiguous batch of pages handed to extraction.
type PageRange struct {
	Start int
	End   int
}

// PipelineService runs the asynchronous analysis pipeline. An uploaded
// document moves its job through classify, extract and analyze stages and
// ends Complete or Failed.
type PipelineService struct {
	store     JobStore
	storage   DocumentSource
	analyzer  DocumentAnalyzer
	batchSize int

	// countPages is swappable in tests; the default reads the PDF with pdfcpu.
	countPages func(data []byte) (int, error)
}

func NewPipelineService(store JobStore, storage DocumentSource, analyzer DocumentAnalyzer, batchSize int) *PipelineService {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &PipelineService{
		store:      store,
		storage:    storage,
		analyzer:   analyzer,
		batchSize:  batchSize,
		countPages: pdfPageCount,
	}
}

// Run consumes upload notifications until ctx is cancelled. Each upload is
// processed on its own goroutine; a failing document never blocks the next.
func (p *PipelineService) Run(ctx context.Context) {
	logger.Info(ctx, "pipeline listening for uploads", "prefix", UploadPrefix)

	for key := range p.storage.ListenForUploads(ctx, UploadPrefix) {
		jobID, ok := jobIDFromKey(key)
		if !ok {
			logger.Warn(ctx, "ignoring object outside upload layout", "key", key)
			continue
		}
		go func(jobID, key string) {
			if err := p.Process(logger.WithJob(ctx, jobID), jobID, key); err != nil {
				logger.Error(logger.WithJob(ctx, jobID), "pipeline failed", "error", err)
			}
		}(jobID, key)
	}
}

// Process runs the full pipeline for one uploaded document. Any stage error
// marks the job Failed with the error message; callers get the same error.
func (p *PipelineService) Process(ctx context.Context, jobID, key string) error {
	job, err := p.store.GetJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("no job record for upload %s: %w", key, err)
	}
	if model.IsTerminal(job.Status) {
		logger.Info(ctx, "skipping re-notification for finished job", "status", job.Status)
		return nil
	}

	if err := p.run(ctx, job, key); err != nil {
		if updErr := p.store.UpdateStatus(ctx, jobID, model.StatusFailed, err.Error()); updErr != nil {
			logger.Error(ctx, "failed to mark job failed", "error", updErr)
		}
		return err
	}
	return nil
}

func (p *PipelineService) run(ctx context.Context, job *model.Job, key string) error {
	documentURL, err := p.storage.PresignedViewURL(ctx, key)
	if err != nil {
		return fmt.Errorf("presign document: %w", err)
	}

	if err := p.store.UpdateStatus(ctx, job.JobID, model.StatusInProgress, ""); err != nil {
		return err
	}

	// Stage 1: classify from the first page
	if err := p.store.SetStage(ctx, job.JobID, model.StageClassify); err != nil {
		return err
	}
	documentType, err := p.analyzer.Classify(ctx, documentURL, job.InsuranceType)
	if err != nil {
		return fmt.Errorf("classify: %w", err)
	}
	if err := p.store.SetDocumentType(ctx, job.JobID, documentType); err != nil {
		return err
	}
	logger.Info(ctx, "document classified", "document_type", documentType)

	// Stage 2: extract fields batch by batch
	if err := p.store.SetStage(ctx, job.JobID, model.StageExtract); err != nil {
		return err
	}
	totalPages, err := p.pageCount(ctx, key)
	if err != nil {
		return fmt.Errorf("count pages: %w", err)
	}

	extracted := make(map[string]any)
	for _, batch := range PageBatches(totalPages, p.batchSize) {
		fields, err := p.analyzer.Extract(ctx, documentURL, documentType, job.InsuranceType, batch.Start, batch.End)
		if err != nil {
			return fmt.Errorf("extract pages %d-%d: %w", batch.Start, batch.End, err)
		}
		for k, v := range fields {
			extracted[k] = v
		}
	}
	if err := p.store.SetExtractedData(ctx, job.JobID, extracted); err != nil {
		return err
	}
	logger.Info(ctx, "extraction finished", "pages", totalPages, "fields", len(extracted))

	// Stage 3: underwriting analysis
	if err := p.store.SetStage(ctx, job.JobID, model.StageAnalyze); err != nil {
		return err
	}
	analysis, err := p.analyzer.Analyze(ctx, documentType, job.InsuranceType, extracted)
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}
	if err := p.store.SetAnalysisOutput(ctx, job.JobID, analysis); err != nil {
		return err
	}

	if err := p.store.UpdateStatus(ctx, job.JobID, model.StatusComplete, ""); err != nil {
		return err
	}
	logger.Info(ctx, "analysis complete")
	return nil
}

func (p *PipelineService) pageCount(ctx context.Context, key string) (int, error) {
	rc, err := p.storage.FetchObject(ctx, key)
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return 0, fmt.Errorf("read document: %w", err)
	}
	return p.countPages(data)
}

func pdfPageCount(data []byte) (int, error) {
	count, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		return 0, fmt.Errorf("read PDF: %w", err)
	}
	return count, nil
}

// PageBatches splits totalPages into contiguous 1-based ranges of at most
// batchSize pages.
func PageBatches(totalPages, batchSize int) []PageRange {
	if batchSize <= 0 {
		batchSize = 1
	}
	var batches []PageRange
	for p := 1; p <= totalPages; p += batchSize {
		end := p + batchSize - 1
		if end > totalPages {
			end = totalPages
		}
		batches = append(batches, PageRange{Start: p, End: end})
	}
	return batches
}

// jobIDFromKey extracts the job ID from an uploads/{jobId}/{filename} key.
func jobIDFromKey(key string) (string, bool) {
	if !strings.HasPrefix(key, UploadPrefix) {
		return "", false
	}
	parts := strings.SplitN(strings.TrimPrefix(key, UploadPrefix), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", false
	}
	return parts[0], true
}

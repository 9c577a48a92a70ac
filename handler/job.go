package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nikolaslecce/sample-genai-underwriting-workbench-demo/pkg/logger"
	"github.com/nikolaslecce/sample-genai-underwriting-workbench-demo/service"
)

type JobHandler struct {
	store   service.JobStore
	storage DocumentStorage
}

func NewJobHandler(store service.JobStore, storage DocumentStorage) *JobHandler {
	return &JobHandler{
		store:   store,
		storage: storage,
	}
}

// List returns all jobs, newest first. The response carries summary fields
// only; extraction and analysis payloads are served by Get.
func (h *JobHandler) List(c *gin.Context) {
	jobs, err := h.store.ListJobs(c.Request.Context())
	if err != nil {
		logger.Error(c.Request.Context(), "failed to list jobs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list jobs"})
		return
	}

	result := make([]gin.H, len(jobs))
	for i, job := range jobs {
		result[i] = gin.H{
			"jobId":            job.JobID,
			"status":           job.Status,
			"uploadTimestamp":  job.UploadTimestamp.Format(time.RFC3339),
			"originalFilename": job.OriginalFilename,
			"documentType":     job.DocumentType,
			"insuranceType":    job.InsuranceType,
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"jobs":  result,
		"count": len(result),
	})
}

// Get returns a single job with extraction and analysis data
func (h *JobHandler) Get(c *gin.Context) {
	id := c.Param("jobId")

	job, err := h.store.GetJob(c.Request.Context(), id)
	if errors.Is(err, service.ErrJobNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Job %s not found", id)})
		return
	}
	if err != nil {
		logger.Error(c.Request.Context(), "failed to get job", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get job"})
		return
	}

	c.JSON(http.StatusOK, job)
}

// DocumentURL returns a presigned view URL for the job's stored document
func (h *JobHandler) DocumentURL(c *gin.Context) {
	id := c.Param("jobId")

	job, err := h.store.GetJob(c.Request.Context(), id)
	if errors.Is(err, service.ErrJobNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Job %s not found", id)})
		return
	}
	if err != nil {
		logger.Error(c.Request.Context(), "failed to get job", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get job"})
		return
	}

	if job.S3Key == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("No document found for job %s", id)})
		return
	}

	url, err := h.storage.PresignedViewURL(c.Request.Context(), job.S3Key)
	if err != nil {
		logger.Error(c.Request.Context(), "failed to presign document", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate document URL"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"documentUrl": url})
}

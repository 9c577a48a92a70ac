package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nikolaslecce/sample-genai-underwriting-workbench-demo/model"
	"github.com/nikolaslecce/sample-genai-underwriting-workbench-demo/pkg/logger"
	"github.com/nikolaslecce/sample-genai-underwriting-workbench-demo/service"
)

// DocumentStorage is the slice of storage the API handlers need.
type DocumentStorage interface {
	PresignedUploadURL(ctx context.Context, objectName string) (string, error)
	PresignedViewURL(ctx context.Context, objectName string) (string, error)
}

type DocumentHandler struct {
	storage DocumentStorage
	store   service.JobStore
}

func NewDocumentHandler(storage DocumentStorage, store service.JobStore) *DocumentHandler {
	return &DocumentHandler{
		storage: storage,
		store:   store,
	}
}

type CreateUploadRequest struct {
	Filename      string `json:"filename"`
	ContentType   string `json:"contentType"`
	InsuranceType string `json:"insuranceType"`
}

type CreateUploadResponse struct {
	JobID         string `json:"jobId"`
	UploadURL     string `json:"uploadUrl"`
	S3Key         string `json:"s3Key"`
	Status        string `json:"status"`
	InsuranceType string `json:"insuranceType"`
	Message       string `json:"message"`
}

// CreateUpload authorizes a direct-to-storage upload: it issues a presigned
// PUT URL and creates the initial job record. The file bytes never pass
// through this server.
func (h *DocumentHandler) CreateUpload(c *gin.Context) {
	var req CreateUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if req.Filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing filename in request"})
		return
	}
	insuranceType := model.NormalizeInsuranceType(req.InsuranceType)

	jobID := uuid.New().String()
	s3Key := fmt.Sprintf("uploads/%s/%s", jobID, req.Filename)

	uploadURL, err := h.storage.PresignedUploadURL(c.Request.Context(), s3Key)
	if err != nil {
		logger.Error(c.Request.Context(), "failed to presign upload", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate upload URL"})
		return
	}

	job := &model.Job{
		JobID:            jobID,
		OriginalFilename: req.Filename,
		S3Key:            s3Key,
		Status:           model.StatusCreated,
		InsuranceType:    insuranceType,
		UploadTimestamp:  time.Now().UTC(),
	}
	if err := h.store.CreateJob(c.Request.Context(), job); err != nil {
		logger.Error(c.Request.Context(), "failed to create job record", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create job record"})
		return
	}

	logger.Info(c.Request.Context(), "upload authorized",
		"job_id", jobID,
		"filename", req.Filename,
		"insurance_type", insuranceType,
	)

	c.JSON(http.StatusOK, CreateUploadResponse{
		JobID:         jobID,
		UploadURL:     uploadURL,
		S3Key:         s3Key,
		Status:        model.StatusCreated,
		InsuranceType: insuranceType,
		Message:       "Upload URL generated successfully",
	})
}

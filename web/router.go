// Package web serves the underwriting workbench UI. Pages are rendered
// server-side; file uploads go through the API's presigned-URL handshake,
// so document bytes flow from this process straight to storage.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nikolaslecce/sample-genai-underwriting-workbench-demo/client"
	"github.com/nikolaslecce/sample-genai-underwriting-workbench-demo/middleware"
	"github.com/nikolaslecce/sample-genai-underwriting-workbench-demo/pkg/logger"
)

//go:embed templates/*.html
var templateFS embed.FS

// maxUploadBytes is the largest upload accepted. Bigger files are rejected
// outright; they must never be truncated into a corrupt PUT.
const maxUploadBytes = 50 << 20

// APIClient is the slice of the workbench API the UI consumes.
type APIClient interface {
	CreateUpload(ctx context.Context, filename, contentType, insuranceType string) (*client.UploadTicket, error)
	UploadDocument(ctx context.Context, uploadURL string, data []byte, contentType string) error
	ListJobs(ctx context.Context) ([]client.Job, error)
	GetJob(ctx context.Context, jobID string) (*client.Job, error)
	DocumentURL(ctx context.Context, jobID string) (string, error)
}

type Server struct {
	api APIClient
}

func NewServer(api APIClient) *Server {
	return &Server{api: api}
}

// NewRouter builds the UI router.
func NewRouter(api APIClient) *gin.Engine {
	s := NewServer(api)

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())

	tmpl := template.Must(template.ParseFS(templateFS, "templates/*.html"))
	router.SetHTMLTemplate(tmpl)

	router.GET("/", s.UploadPage)
	router.POST("/upload", s.Upload)
	router.GET("/jobs", s.JobList)
	router.GET("/jobs/:jobId", s.JobDetail)

	return router
}

// UploadPage renders the upload form.
func (s *Server) UploadPage(c *gin.Context) {
	c.HTML(http.StatusOK, "upload.html", gin.H{})
}

// Upload accepts a browser form post and runs the two-step handshake:
// create-upload against the API, then a PUT of the raw bytes to the
// presigned URL. Non-PDF files are rejected here, before any network call.
func (s *Server) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("document")
	if err != nil {
		s.uploadError(c, http.StatusBadRequest, "Please choose a file to upload.")
		return
	}
	insuranceType := c.PostForm("insuranceType")

	file, err := fileHeader.Open()
	if err != nil {
		s.uploadError(c, http.StatusBadRequest, "Could not read the uploaded file.")
		return
	}
	defer file.Close()

	// Read one byte past the cap so oversize files are detected, not clipped.
	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		s.uploadError(c, http.StatusBadRequest, "Could not read the uploaded file.")
		return
	}
	if int64(len(data)) > maxUploadBytes {
		s.uploadError(c, http.StatusRequestEntityTooLarge, "File is larger than the 50 MB upload limit.")
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}

	if !client.IsPDF(contentType) {
		s.uploadError(c, http.StatusBadRequest, "Only PDF files are supported.")
		return
	}

	ctx := c.Request.Context()
	ticket, err := s.api.CreateUpload(ctx, fileHeader.Filename, contentType, insuranceType)
	if err != nil {
		s.apiFailure(c, err)
		return
	}

	if err := s.api.UploadDocument(ctx, ticket.UploadURL, data, contentType); err != nil {
		s.apiFailure(c, err)
		return
	}

	logger.Info(ctx, "document uploaded", "job_id", ticket.JobID, "filename", fileHeader.Filename)
	c.Redirect(http.StatusSeeOther, "/jobs/"+ticket.JobID)
}

// jobRow is a job prepared for the list template.
type jobRow struct {
	JobID         string
	Filename      string
	Status        string
	Glyph         string
	Uploaded      string
	DocumentType  string
	InsuranceType string
}

// JobList renders all jobs, optionally narrowed by the filename filter. The
// filter only takes effect when the form is submitted; typing alone never
// re-queries.
func (s *Server) JobList(c *gin.Context) {
	query := c.Query("q")

	jobs, err := s.api.ListJobs(c.Request.Context())
	if err != nil {
		s.apiFailure(c, err)
		return
	}

	filtered := FilterJobs(jobs, query)
	rows := make([]jobRow, len(filtered))
	for i, job := range filtered {
		rows[i] = jobRow{
			JobID:         job.JobID,
			Filename:      job.OriginalFilename,
			Status:        job.Status,
			Glyph:         StatusGlyph(job.Status),
			Uploaded:      FormatTimestamp(job.UploadTimestamp),
			DocumentType:  job.DocumentType,
			InsuranceType: job.InsuranceType,
		}
	}

	c.HTML(http.StatusOK, "jobs.html", gin.H{
		"Query": query,
		"Jobs":  rows,
	})
}

// JobDetail renders a single job with its extraction and analysis payloads.
func (s *Server) JobDetail(c *gin.Context) {
	jobID := c.Param("jobId")

	job, err := s.api.GetJob(c.Request.Context(), jobID)
	if err != nil {
		s.apiFailure(c, err)
		return
	}

	// Best effort; the page still renders without a viewer link.
	documentURL, _ := s.api.DocumentURL(c.Request.Context(), jobID)

	c.HTML(http.StatusOK, "job.html", gin.H{
		"Job":            job,
		"Glyph":          StatusGlyph(job.Status),
		"Uploaded":       FormatTimestamp(job.UploadTimestamp),
		"ExtractedData":  prettyJSON(job.ExtractedData),
		"AnalysisOutput": prettyJSON(job.AnalysisOutput),
		"DocumentURL":    documentURL,
	})
}

func (s *Server) uploadError(c *gin.Context, status int, message string) {
	c.HTML(status, "upload.html", gin.H{"Error": message})
}

// apiFailure maps a client error onto the right error page. Authentication
// failures get their own message so the user knows to sign in again rather
// than retry.
func (s *Server) apiFailure(c *gin.Context, err error) {
	// Failed GETs can be retried in place; a failed upload starts over.
	retryURL := c.Request.URL.RequestURI()
	if c.Request.Method != http.MethodGet {
		retryURL = "/"
	}

	if errors.Is(err, client.ErrUnauthorized) {
		c.HTML(http.StatusUnauthorized, "error.html", gin.H{
			"Title":   "Session expired",
			"Message": "Your session has expired. Please sign in again.",
		})
		return
	}

	var protoErr *client.ProtocolError
	if errors.As(err, &protoErr) {
		logger.Error(c.Request.Context(), "malformed api response", "error", err)
		c.HTML(http.StatusBadGateway, "error.html", gin.H{
			"Title":    "Unexpected response",
			"Message":  "The server returned an unexpected response. Please try again.",
			"RetryURL": retryURL,
		})
		return
	}

	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		status := apiErr.StatusCode
		if status < 400 {
			status = http.StatusBadGateway
		}
		c.HTML(status, "error.html", gin.H{
			"Title":    "Request failed",
			"Message":  apiErr.Message,
			"RetryURL": retryURL,
		})
		return
	}

	logger.Error(c.Request.Context(), "api request failed", "error", err)
	c.HTML(http.StatusBadGateway, "error.html", gin.H{
		"Title":    "Something went wrong",
		"Message":  "Unable to reach the server. Please try again.",
		"RetryURL": retryURL,
	})
}

func prettyJSON(v map[string]any) string {
	if len(v) == 0 {
		return ""
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ""
	}
	return string(data)
}

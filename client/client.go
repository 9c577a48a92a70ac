// Package client is the HTTP client for the workbench API. It drives the
// two-step document upload handshake: ask the API for a presigned upload URL,
// then PUT the file bytes straight to storage.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrUnauthorized reports a rejected or expired credential. Callers surface
// it differently from other failures so the user knows to sign in again.
var ErrUnauthorized = errors.New("unauthorized")

// ProtocolError reports a malformed API response, e.g. an upload handshake
// missing one of its required fields. It is raised before any file bytes
// are sent.
type ProtocolError struct {
	Field string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("invalid server response: missing %s", e.Field)
}

// APIError carries a non-2xx API response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// SetToken installs the bearer token used on subsequent API calls.
func (c *Client) SetToken(token string) {
	c.token = token
}

// Job is a job record as the API serializes it. UploadTimestamp stays a
// string here; presentation code decides how (and whether) it parses.
type Job struct {
	JobID            string         `json:"jobId"`
	OriginalFilename string         `json:"originalFilename"`
	Status           string         `json:"status"`
	Stage            string         `json:"stage"`
	DocumentType     string         `json:"documentType"`
	InsuranceType    string         `json:"insuranceType"`
	UploadTimestamp  string         `json:"uploadTimestamp"`
	ExtractedData    map[string]any `json:"extractedData"`
	AnalysisOutput   map[string]any `json:"analysisOutput"`
	ErrorMsg         string         `json:"error"`
}

type LoginResult struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expiresAt"`
	Username  string `json:"username"`
}

// Login exchanges credentials for a bearer token and installs it on the
// client.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	body := map[string]string{"username": username, "password": password}
	var result LoginResult
	if err := c.post(ctx, "/api/auth/login", body, &result); err != nil {
		return nil, err
	}
	c.token = result.Token
	return &result, nil
}

// UploadTicket is the API's answer to a create-upload request: where to PUT
// the bytes and which job the upload belongs to.
type UploadTicket struct {
	JobID     string `json:"jobId"`
	UploadURL string `json:"uploadUrl"`
	S3Key     string `json:"s3Key"`
}

// CreateUpload performs the first half of the upload handshake. The returned
// ticket is validated field by field; an incomplete response yields a
// ProtocolError and no bytes are sent.
func (c *Client) CreateUpload(ctx context.Context, filename, contentType, insuranceType string) (*UploadTicket, error) {
	body := map[string]string{
		"filename":      filename,
		"contentType":   contentType,
		"insuranceType": insuranceType,
	}
	var ticket UploadTicket
	if err := c.post(ctx, "/api/documents/upload", body, &ticket); err != nil {
		return nil, err
	}

	if ticket.UploadURL == "" {
		return nil, &ProtocolError{Field: "uploadUrl"}
	}
	if ticket.JobID == "" {
		return nil, &ProtocolError{Field: "jobId"}
	}
	if ticket.S3Key == "" {
		return nil, &ProtocolError{Field: "s3Key"}
	}
	return &ticket, nil
}

// UploadDocument performs the second half of the handshake: a raw PUT of the
// file bytes to the presigned URL. The request carries the file's own
// content type and no API credentials; the URL itself is the authorization.
func (c *Client) UploadDocument(ctx context.Context, uploadURL string, data []byte, contentType string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = int64(len(data))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: "storage rejected upload"}
	}
	return nil
}

type jobListResponse struct {
	Jobs  []Job `json:"jobs"`
	Count int   `json:"count"`
}

// ListJobs fetches all jobs, newest first.
func (c *Client) ListJobs(ctx context.Context) ([]Job, error) {
	var result jobListResponse
	if err := c.get(ctx, "/api/jobs", &result); err != nil {
		return nil, err
	}
	return result.Jobs, nil
}

// GetJob fetches a single job with its extraction and analysis payloads.
func (c *Client) GetJob(ctx context.Context, jobID string) (*Job, error) {
	var job Job
	if err := c.get(ctx, "/api/jobs/"+jobID, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// DocumentURL fetches a short-lived view URL for the job's stored document.
func (c *Client) DocumentURL(ctx context.Context, jobID string) (string, error) {
	var result struct {
		DocumentURL string `json:"documentUrl"`
	}
	if err := c.get(ctx, "/api/jobs/"+jobID+"/document-url", &result); err != nil {
		return "", err
	}
	return result.DocumentURL, nil
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(resp)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// errorMessage extracts the API's error field from a failure response,
// falling back to the HTTP status text when the body is not parseable.
func errorMessage(resp *http.Response) string {
	data, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err == nil {
		var body struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &body) == nil && body.Error != "" {
			return body.Error
		}
	}
	return http.StatusText(resp.StatusCode)
}

// IsPDF reports whether a MIME type names a PDF document. The check is a
// case-insensitive substring match so variants like application/x-pdf pass.
func IsPDF(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "pdf")
}

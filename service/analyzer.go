package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nikolaslecce/sample-genai-underwriting-workbench-demo/config"
)

// AnalyzerService is the HTTP client for the document-intelligence API that
// backs the pipeline: page-one classification, per-batch field extraction
// and the final underwriting analysis.
type AnalyzerService struct {
	config     *config.AnalyzerConfig
	httpClient *http.Client
}

func NewAnalyzerService(cfg *config.AnalyzerConfig) *AnalyzerService {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &AnalyzerService{
		config: cfg,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type classifyRequest struct {
	DocumentURL   string `json:"document_url"`
	InsuranceType string `json:"insurance_type"`
	ModelVersion  string `json:"model_version"`
}

type classifyResponse struct {
	Code    int    `json:"code"`
	Message string `json:"msg"`
	Data    struct {
		DocumentType string `json:"document_type"`
	} `json:"data"`
}

type extractRequest struct {
	DocumentURL   string `json:"document_url"`
	DocumentType  string `json:"document_type"`
	InsuranceType string `json:"insurance_type"`
	ModelVersion  string `json:"model_version"`
	PageStart     int    `json:"page_start"`
	PageEnd       int    `json:"page_end"`
}

type extractResponse struct {
	Code    int    `json:"code"`
	Message string `json:"msg"`
	Data    struct {
		Fields map[string]any `json:"fields"`
	} `json:"data"`
}

type analyzeRequest struct {
	DocumentType  string         `json:"document_type"`
	InsuranceType string         `json:"insurance_type"`
	ExtractedData map[string]any `json:"extracted_data"`
}

type analyzeResponse struct {
	Code    int    `json:"code"`
	Message string `json:"msg"`
	Data    struct {
		Analysis map[string]any `json:"analysis"`
	} `json:"data"`
}

// Classify determines the document type from the first page of the document
// behind documentURL, using the taxonomy for the given insurance type.
func (s *AnalyzerService) Classify(ctx context.Context, documentURL, insuranceType string) (string, error) {
	req := classifyRequest{
		DocumentURL:   documentURL,
		InsuranceType: insuranceType,
		ModelVersion:  s.config.ModelVersion,
	}

	var resp classifyResponse
	if err := s.post(ctx, "/v1/classify", req, &resp); err != nil {
		return "", err
	}
	if resp.Code != 0 {
		return "", fmt.Errorf("analyzer API error: %s", resp.Message)
	}
	if resp.Data.DocumentType == "" {
		return "", fmt.Errorf("analyzer returned empty document type")
	}
	return resp.Data.DocumentType, nil
}

// Extract pulls structured fields from the given page range.
func (s *AnalyzerService) Extract(ctx context.Context, documentURL, documentType, insuranceType string, pageStart, pageEnd int) (map[string]any, error) {
	req := extractRequest{
		DocumentURL:   documentURL,
		DocumentType:  documentType,
		InsuranceType: insuranceType,
		ModelVersion:  s.config.ModelVersion,
		PageStart:     pageStart,
		PageEnd:       pageEnd,
	}

	var resp extractResponse
	if err := s.post(ctx, "/v1/extract", req, &resp); err != nil {
		return nil, err
	}
	if resp.Code != 0 {
		return nil, fmt.Errorf("analyzer API error: %s", resp.Message)
	}
	return resp.Data.Fields, nil
}

// Analyze produces the underwriting analysis over the merged extraction.
func (s *AnalyzerService) Analyze(ctx context.Context, documentType, insuranceType string, extractedData map[string]any) (map[string]any, error) {
	req := analyzeRequest{
		DocumentType:  documentType,
		InsuranceType: insuranceType,
		ExtractedData: extractedData,
	}

	var resp analyzeResponse
	if err := s.post(ctx, "/v1/analyze", req, &resp); err != nil {
		return nil, err
	}
	if resp.Code != 0 {
		return nil, fmt.Errorf("analyzer API error: %s", resp.Message)
	}
	return resp.Data.Analysis, nil
}

func (s *AnalyzerService) post(ctx context.Context, path string, body, out any) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.APIURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.config.APIToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "*/*")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w, body: %s", err, string(respBody))
	}
	return nil
}

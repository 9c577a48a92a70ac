package model

import (
	"time"
)

// Job represents one uploaded document and its analysis lifecycle.
type Job struct {
	JobID            string         `json:"jobId"`
	OriginalFilename string         `json:"originalFilename"`
	S3Key            string         `json:"s3Key,omitempty"`
	Status           string         `json:"status"`
	Stage            string         `json:"stage,omitempty"`
	DocumentType     string         `json:"documentType,omitempty"`
	InsuranceType    string         `json:"insuranceType,omitempty"`
	UploadTimestamp  time.Time      `json:"uploadTimestamp"`
	ExtractedData    map[string]any `json:"extractedData,omitempty"`
	AnalysisOutput   map[string]any `json:"analysisOutput,omitempty"`
	ErrorMsg         string         `json:"errorMsg,omitempty"`
	UpdatedAt        time.Time      `json:"updatedAt"`
}

// Job status constants
const (
	StatusCreated    = "CREATED"
	StatusInProgress = "InProgress"
	StatusComplete   = "Complete"
	StatusFailed     = "Failed"
)

// Pipeline stages recorded on an InProgress job
const (
	StageClassify = "classify"
	StageExtract  = "extract"
	StageAnalyze  = "analyze"
)

// Supported lines of business
const (
	InsuranceTypeLife             = "life"
	InsuranceTypePropertyCasualty = "property_casualty"
)

// NormalizeInsuranceType returns a valid insurance type, falling back to
// property & casualty for anything unrecognized.
func NormalizeInsuranceType(t string) string {
	switch t {
	case InsuranceTypeLife, InsuranceTypePropertyCasualty:
		return t
	default:
		return InsuranceTypePropertyCasualty
	}
}

// IsTerminal reports whether a status is a pipeline end state.
func IsTerminal(status string) bool {
	return status == StatusComplete || status == StatusFailed
}

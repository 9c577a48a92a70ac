package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestJobTimestampMarshalsISO8601(t *testing.T) {
	job := &Job{
		JobID:            "job-1",
		OriginalFilename: "acord.pdf",
		Status:           StatusCreated,
		UploadTimestamp:  time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC),
	}

	data, err := json.Marshal(job)
	if err != nil {
		t.Fatalf("Failed to marshal job: %v", err)
	}
	if !strings.Contains(string(data), `"uploadTimestamp":"2025-03-14T09:26:53Z"`) {
		t.Errorf("Expected ISO-8601 uploadTimestamp, got %s", string(data))
	}
}

func TestNormalizeInsuranceType(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"life", "life", InsuranceTypeLife},
		{"property casualty", "property_casualty", InsuranceTypePropertyCasualty},
		{"empty defaults to p&c", "", InsuranceTypePropertyCasualty},
		{"garbage defaults to p&c", "marine", InsuranceTypePropertyCasualty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeInsuranceType(tt.input); got != tt.expected {
				t.Errorf("Expected '%s', got '%s'", tt.expected, got)
			}
		})
	}
}

func TestIsTerminal(t *testing.T) {
	for _, status := range []string{StatusComplete, StatusFailed} {
		if !IsTerminal(status) {
			t.Errorf("Expected '%s' to be terminal", status)
		}
	}
	for _, status := range []string{StatusCreated, StatusInProgress, ""} {
		if IsTerminal(status) {
			t.Errorf("Expected '%s' to be non-terminal", status)
		}
	}
}

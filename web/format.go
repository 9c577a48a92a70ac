package web

import (
	"strings"
	"time"

	"github.com/nikolaslecce/sample-genai-underwriting-workbench-demo/client"
)

// timestampLayouts are the wire formats we accept, tried in order.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// FormatTimestamp renders an API timestamp for display. A value that parses
// under none of the known layouts renders as the literal "Invalid date"
// rather than failing the page.
func FormatTimestamp(value string) string {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.Format("Jan 2, 2006 3:04 PM")
		}
	}
	return "Invalid date"
}

// StatusGlyph maps a job status to its list glyph. Unknown statuses get no
// glyph; the status text still renders next to it.
func StatusGlyph(status string) string {
	switch status {
	case "Complete":
		return "✓"
	case "InProgress":
		return "⏳"
	case "Failed":
		return "✗"
	default:
		return ""
	}
}

// FilterJobs returns the jobs whose filename contains the query,
// case-insensitively. An empty query returns the input unchanged, so
// applying the empty filter is a no-op rather than an empty page.
func FilterJobs(jobs []client.Job, query string) []client.Job {
	if query == "" {
		return jobs
	}
	needle := strings.ToLower(query)
	filtered := make([]client.Job, 0, len(jobs))
	for _, job := range jobs {
		if strings.Contains(strings.ToLower(job.OriginalFilename), needle) {
			filtered = append(filtered, job)
		}
	}
	return filtered
}

package domain

import "time"

// DiagnosticStatus indicates whether a single startup check passed.
type DiagnosticStatus string

const (
	DiagnosticStatusPass DiagnosticStatus = "pass"
	DiagnosticStatusFail DiagnosticStatus = "fail"
)

// DiagnosticCategory groups checks by what they validate: external tools the
// pipeline shells out to, or local configuration values.
type DiagnosticCategory string

const (
	DiagnosticCategoryTool   DiagnosticCategory = "tool"
	DiagnosticCategoryConfig DiagnosticCategory = "config"
)

// DiagnosticItem is one startup check result with an optional remediation hint.
type DiagnosticItem struct {
	ID       string             `json:"id"`
	Name     string             `json:"name"`
	Category DiagnosticCategory `json:"category"`
	Status   DiagnosticStatus   `json:"status"`
	Message  string             `json:"message"`
	Hint     string             `json:"hint,omitempty"`
}

// DiagnosticReport aggregates the startup checks shown before an analysis.
type DiagnosticReport struct {
	GeneratedAt time.Time        `json:"generatedAt"`
	HasFailures bool             `json:"hasFailures"`
	Items       []DiagnosticItem `json:"items"`
}

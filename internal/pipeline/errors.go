package pipeline

import "fmt"

// Stage names used in errors, callbacks, and job status mapping.
const (
	StageDownloading = "downloading"
	StageExtracting  = "extracting"
	StageClassifying = "classifying"
)

// FailureKind tags a pipeline failure for callers that match on cause.
type FailureKind string

const (
	FailureDownloadTimeout      FailureKind = "download_timeout"
	FailureDownloadForbidden    FailureKind = "download_forbidden"
	FailureDownloadTool         FailureKind = "download_tool_error"
	FailureNoOutputProduced     FailureKind = "no_output_produced"
	FailureDownloadUnexpected   FailureKind = "unexpected_download_failure"
	FailureNoAudioTrack         FailureKind = "no_audio_track"
	FailureExtractionTool       FailureKind = "extraction_tool_error"
	FailureExtractionUnexpected FailureKind = "unexpected_extraction_failure"
	FailureClassification       FailureKind = "classification_failure"
)

// CommandLog captures one external command invocation result.
type CommandLog struct {
	Command  string   `json:"command"`
	Args     []string `json:"args"`
	ExitCode int      `json:"exitCode"`
	Stdout   string   `json:"stdout"`
	Stderr   string   `json:"stderr"`
}

// PipelineError is a tagged, stage-aware error with optional command context.
// Hint carries a user-facing remediation suggestion where one exists.
type PipelineError struct {
	Kind       FailureKind `json:"kind"`
	Stage      string      `json:"stage"`
	Message    string      `json:"message"`
	Hint       string      `json:"hint,omitempty"`
	CommandLog CommandLog  `json:"commandLog"`
	Err        error       `json:"-"`
}

// Error formats pipeline failures for logs and UI.
func (e *PipelineError) Error() string {
	if e == nil {
		return ""
	}
	if e.CommandLog.Command == "" {
		return fmt.Sprintf("%s: %s", e.Stage, e.Message)
	}

	return fmt.Sprintf(
		"%s: %s (cmd=%s exit=%d)",
		e.Stage,
		e.Message,
		e.CommandLog.Command,
		e.CommandLog.ExitCode,
	)
}

// Unwrap exposes underlying error for errors.Is / errors.As.
func (e *PipelineError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

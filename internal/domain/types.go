package domain

// JobStatus tracks each pipeline stage for a single analysis job.
type JobStatus string

const (
	JobStatusIdle        JobStatus = "idle"
	JobStatusDownloading JobStatus = "downloading"
	JobStatusExtracting  JobStatus = "extracting"
	JobStatusClassifying JobStatus = "classifying"
	JobStatusDone        JobStatus = "done"
	JobStatusFailed      JobStatus = "failed"
	JobStatusCancelled   JobStatus = "cancelled"
)

// Settings contains user-selectable runtime configuration.
type Settings struct {
	ModelSource     string  `json:"modelSource"`
	CacheDir        string  `json:"cacheDir"`
	MaxAudioSeconds float64 `json:"maxAudioSeconds"`
}

// Job stores the current job identity and lifecycle status.
type Job struct {
	ID     string    `json:"id"`
	Status JobStatus `json:"status"`
}

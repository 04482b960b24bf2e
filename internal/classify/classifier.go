// Package classify wraps the pretrained accent model behind a scoring
// boundary: a PCM WAV path in, a label with confidence out.
package classify

import "context"

// Prediction is one classifier verdict for a single audio clip.
// ConfidencePercent is the maximum class posterior expressed as a
// percentage, rounded to two decimal places.
type Prediction struct {
	Label             string  `json:"label"`
	ConfidencePercent float64 `json:"confidencePercent"`
}

// Classifier scores one 16 kHz mono s16le PCM WAV file.
type Classifier interface {
	Classify(ctx context.Context, audioPath string) (Prediction, error)
}

package pipeline

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"accent-analyzer/internal/classify"
)

// defaultDownloadTimeout bounds a single yt-dlp attempt.
const defaultDownloadTimeout = 120 * time.Second

// defaultMaxAudioSeconds bounds classifier input when settings are missing.
const defaultMaxAudioSeconds = 30.0

// Request contains the analysis input and execution callbacks for one run.
type Request struct {
	URL             string
	MaxAudioSeconds float64
	OnStage         func(stage string)
	OnLog           func(log CommandLog)
}

// Result contains the classifier verdict and command logs for one run.
type Result struct {
	Label             string       `json:"label"`
	ConfidencePercent float64      `json:"confidencePercent"`
	AudioSeconds      float64      `json:"audioSeconds"`
	Logs              []CommandLog `json:"logs"`
}

// Classifier scores an extracted audio clip into a label and confidence.
type Classifier interface {
	Classify(ctx context.Context, audioPath string) (classify.Prediction, error)
}

// Pipeline orchestrates download, audio extraction, and accent classification.
type Pipeline struct {
	ytdlpPath       string
	ffmpegPath      string
	ffprobePath     string
	downloadTimeout time.Duration
	classifier      Classifier
	runner          commandRunner
	mkdirTemp       func(dir, pattern string) (string, error)
	removeAll       func(path string) error
	stat            func(name string) (os.FileInfo, error)
	readDir         func(name string) ([]os.DirEntry, error)
}

// New constructs the production pipeline with OS dependencies.
func New(classifier Classifier) *Pipeline {
	return &Pipeline{
		ytdlpPath:       "yt-dlp",
		ffmpegPath:      "ffmpeg",
		ffprobePath:     "ffprobe",
		downloadTimeout: defaultDownloadTimeout,
		classifier:      classifier,
		runner:          &execRunner{},
		mkdirTemp:       os.MkdirTemp,
		removeAll:       os.RemoveAll,
		stat:            os.Stat,
		readDir:         os.ReadDir,
	}
}

// Run executes one analysis: download, extract, classify. The scratch
// workspace is removed on every exit path before the result is returned.
func (p *Pipeline) Run(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.URL) == "" {
		return Result{}, &PipelineError{
			Kind:    FailureDownloadUnexpected,
			Stage:   StageDownloading,
			Message: "video URL is required",
		}
	}

	maxSeconds := req.MaxAudioSeconds
	if maxSeconds <= 0 {
		maxSeconds = defaultMaxAudioSeconds
	}

	workDir, err := p.mkdirTemp("", "accent-analyzer-*")
	if err != nil {
		return Result{}, &PipelineError{
			Kind:    FailureDownloadUnexpected,
			Stage:   StageDownloading,
			Message: "failed to create scratch workspace",
			Err:     err,
		}
	}
	defer func() {
		_ = p.removeAll(workDir)
	}()

	var logs []CommandLog
	onLog := func(log CommandLog) {
		logs = append(logs, log)
		emitLog(req.OnLog, log)
	}

	emitStage(req.OnStage, StageDownloading)
	videoPath, err := p.download(ctx, strings.TrimSpace(req.URL), workDir, onLog)
	if err != nil {
		return Result{}, err
	}

	emitStage(req.OnStage, StageExtracting)
	audioPath, clipSeconds, err := p.extract(ctx, videoPath, workDir, maxSeconds, onLog)
	if err != nil {
		return Result{}, err
	}

	emitStage(req.OnStage, StageClassifying)
	prediction, err := p.classifier.Classify(ctx, audioPath)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return Result{}, err
		}
		return Result{}, &PipelineError{
			Kind:    FailureClassification,
			Stage:   StageClassifying,
			Message: "accent classification failed",
			Err:     err,
		}
	}

	return Result{
		Label:             prediction.Label,
		ConfidencePercent: prediction.ConfidencePercent,
		AudioSeconds:      clipSeconds,
		Logs:              logs,
	}, nil
}

// emitStage forwards stage updates when callback is configured.
func emitStage(cb func(stage string), stage string) {
	if cb != nil {
		cb(stage)
	}
}

// NewForTests constructs a pipeline with injectable dependencies.
func NewForTests(
	ytdlpPath string,
	ffmpegPath string,
	ffprobePath string,
	downloadTimeout time.Duration,
	classifier Classifier,
	runner commandRunner,
	mkdirTemp func(dir, pattern string) (string, error),
	removeAll func(path string) error,
) *Pipeline {
	return &Pipeline{
		ytdlpPath:       ytdlpPath,
		ffmpegPath:      ffmpegPath,
		ffprobePath:     ffprobePath,
		downloadTimeout: downloadTimeout,
		classifier:      classifier,
		runner:          runner,
		mkdirTemp:       mkdirTemp,
		removeAll:       removeAll,
		stat:            os.Stat,
		readDir:         os.ReadDir,
	}
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// downloadFilePrefix roots the yt-dlp output template so the produced file
// can be located deterministically after the process exits.
const downloadFilePrefix = "source"

const forbiddenHint = "The service refused the request (HTTP 403). " +
	"The host may block automated downloads; try a direct media file URL instead."

// download retrieves the URL into workDir with yt-dlp and returns the path
// of the produced video file. A single attempt, bounded by the configured
// download timeout.
func (p *Pipeline) download(ctx context.Context, url, workDir string, onLog func(CommandLog)) (string, error) {
	dctx, cancel := context.WithTimeout(ctx, p.downloadTimeout)
	defer cancel()

	args := buildDownloadArgs(url, workDir)
	result, runErr := p.runner.Run(dctx, p.ytdlpPath, args...)
	log := CommandLog{
		Command:  p.ytdlpPath,
		Args:     args,
		ExitCode: result.ExitCode,
		Stdout:   result.Stdout,
		Stderr:   result.Stderr,
	}
	emitLog(onLog, log)

	if runErr != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("download interrupted: %w", ctx.Err())
		}
		if errors.Is(dctx.Err(), context.DeadlineExceeded) {
			return "", &PipelineError{
				Kind:       FailureDownloadTimeout,
				Stage:      StageDownloading,
				Message:    fmt.Sprintf("download did not finish within %s", p.downloadTimeout),
				CommandLog: log,
				Err:        runErr,
			}
		}
		if isForbiddenOutput(result.Stderr) {
			return "", &PipelineError{
				Kind:       FailureDownloadForbidden,
				Stage:      StageDownloading,
				Message:    "the video host rejected the download",
				Hint:       forbiddenHint,
				CommandLog: log,
				Err:        runErr,
			}
		}
		if result.ExitCode > 0 {
			return "", &PipelineError{
				Kind:       FailureDownloadTool,
				Stage:      StageDownloading,
				Message:    "yt-dlp failed to retrieve the video",
				CommandLog: log,
				Err:        runErr,
			}
		}
		return "", &PipelineError{
			Kind:       FailureDownloadUnexpected,
			Stage:      StageDownloading,
			Message:    "video download failed unexpectedly",
			CommandLog: log,
			Err:        runErr,
		}
	}

	videoPath, err := p.findDownloadedFile(workDir)
	if err != nil {
		return "", &PipelineError{
			Kind:       FailureDownloadUnexpected,
			Stage:      StageDownloading,
			Message:    fmt.Sprintf("cannot scan workspace for downloaded file: %s", workDir),
			CommandLog: log,
			Err:        err,
		}
	}
	if videoPath == "" {
		// Some extractors exit 0 without writing anything.
		return "", &PipelineError{
			Kind:       FailureNoOutputProduced,
			Stage:      StageDownloading,
			Message:    "yt-dlp reported success but produced no output file",
			CommandLog: log,
		}
	}

	return videoPath, nil
}

// findDownloadedFile scans workDir for the first completed file written under
// the output template prefix.
func (p *Pipeline) findDownloadedFile(workDir string) (string, error) {
	entries, err := p.readDir(workDir)
	if err != nil {
		return "", err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, downloadFilePrefix) {
			continue
		}
		if strings.HasSuffix(name, ".part") || strings.HasSuffix(name, ".ytdl") {
			continue
		}
		return filepath.Join(workDir, name), nil
	}
	return "", nil
}

// buildDownloadArgs builds the yt-dlp invocation: best audio-bearing stream,
// remuxed into a single known container, written under workDir.
func buildDownloadArgs(url, workDir string) []string {
	return []string{
		"--quiet",
		"--no-warnings",
		"--no-playlist",
		"-f", "ba/b",
		"--remux-video", "mp4",
		"-o", filepath.Join(workDir, downloadFilePrefix+".%(ext)s"),
		url,
	}
}

// isForbiddenOutput detects service-side blocking from tool diagnostics.
func isForbiddenOutput(stderr string) bool {
	lowered := strings.ToLower(stderr)
	return strings.Contains(lowered, "403") || strings.Contains(lowered, "forbidden")
}

// emitLog forwards command logs when callback is configured.
func emitLog(cb func(log CommandLog), log CommandLog) {
	if cb != nil {
		cb(log)
	}
}

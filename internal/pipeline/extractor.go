package pipeline

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"
)

// audioFileName is the fixed-format artifact consumed by the classifier.
const audioFileName = "audio-16k-mono.wav"

// extract produces a 16 kHz mono s16le PCM WAV from the downloaded video,
// truncated to maxSeconds when the probed source duration exceeds it. An
// unprobeable duration counts as exceeding, so the cap always applies there.
// Returns the audio path and the expected clip duration in seconds.
func (p *Pipeline) extract(ctx context.Context, videoPath, workDir string, maxSeconds float64, onLog func(CommandLog)) (string, float64, error) {
	duration := p.probeDuration(ctx, videoPath, onLog)

	if hasAudio, probed := p.probeAudioStream(ctx, videoPath, onLog); probed && !hasAudio {
		return "", 0, &PipelineError{
			Kind:    FailureNoAudioTrack,
			Stage:   StageExtracting,
			Message: "the downloaded video has no audio track",
		}
	}

	capSeconds := 0.0
	if duration > maxSeconds {
		capSeconds = maxSeconds
	}

	outPath := filepath.Join(workDir, audioFileName)
	args := buildExtractArgs(videoPath, outPath, capSeconds)
	result, runErr := p.runner.Run(ctx, p.ffmpegPath, args...)
	log := CommandLog{
		Command:  p.ffmpegPath,
		Args:     args,
		ExitCode: result.ExitCode,
		Stdout:   result.Stdout,
		Stderr:   result.Stderr,
	}
	emitLog(onLog, log)

	if runErr != nil {
		if ctx.Err() != nil {
			return "", 0, fmt.Errorf("extraction interrupted: %w", ctx.Err())
		}
		if isMissingStreamOutput(result.Stderr) {
			return "", 0, &PipelineError{
				Kind:       FailureNoAudioTrack,
				Stage:      StageExtracting,
				Message:    "the downloaded video has no audio track",
				CommandLog: log,
				Err:        runErr,
			}
		}
		if result.ExitCode > 0 {
			return "", 0, &PipelineError{
				Kind:       FailureExtractionTool,
				Stage:      StageExtracting,
				Message:    "ffmpeg audio conversion failed",
				CommandLog: log,
				Err:        runErr,
			}
		}
		return "", 0, &PipelineError{
			Kind:       FailureExtractionUnexpected,
			Stage:      StageExtracting,
			Message:    "audio extraction failed unexpectedly",
			CommandLog: log,
			Err:        runErr,
		}
	}

	if _, err := p.stat(outPath); err != nil {
		return "", 0, &PipelineError{
			Kind:       FailureExtractionTool,
			Stage:      StageExtracting,
			Message:    "ffmpeg completed but the audio file is missing",
			CommandLog: log,
			Err:        err,
		}
	}

	clipSeconds := duration
	if capSeconds > 0 {
		clipSeconds = capSeconds
	}
	return outPath, clipSeconds, nil
}

// probeDuration reads the container duration in seconds. Probe failures
// degrade to unbounded rather than failing the run: the duration gates only
// the truncation optimization, never correctness.
func (p *Pipeline) probeDuration(ctx context.Context, videoPath string, onLog func(CommandLog)) float64 {
	args := buildDurationProbeArgs(videoPath)
	result, runErr := p.runner.Run(ctx, p.ffprobePath, args...)
	emitLog(onLog, CommandLog{
		Command:  p.ffprobePath,
		Args:     args,
		ExitCode: result.ExitCode,
		Stdout:   result.Stdout,
		Stderr:   result.Stderr,
	})
	if runErr != nil {
		return math.Inf(1)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(result.Stdout), 64)
	if err != nil || duration < 0 {
		return math.Inf(1)
	}
	return duration
}

// probeAudioStream reports whether the container carries an audio stream.
// probed is false when the probe itself failed, in which case the caller
// falls back to ffmpeg's own diagnostics.
func (p *Pipeline) probeAudioStream(ctx context.Context, videoPath string, onLog func(CommandLog)) (hasAudio bool, probed bool) {
	args := buildAudioProbeArgs(videoPath)
	result, runErr := p.runner.Run(ctx, p.ffprobePath, args...)
	emitLog(onLog, CommandLog{
		Command:  p.ffprobePath,
		Args:     args,
		ExitCode: result.ExitCode,
		Stdout:   result.Stdout,
		Stderr:   result.Stderr,
	})
	if runErr != nil {
		return false, false
	}
	return strings.TrimSpace(result.Stdout) != "", true
}

// buildDurationProbeArgs builds ffprobe args reading container duration only.
func buildDurationProbeArgs(videoPath string) []string {
	return []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		videoPath,
	}
}

// buildAudioProbeArgs builds ffprobe args listing audio stream indexes.
func buildAudioProbeArgs(videoPath string) []string {
	return []string{
		"-v", "error",
		"-select_streams", "a",
		"-show_entries", "stream=index",
		"-of", "csv=p=0",
		videoPath,
	}
}

// buildExtractArgs builds extraction CLI args for mono 16k PCM WAV output.
// A positive capSeconds adds an explicit duration bound for the transcode.
func buildExtractArgs(inputPath, outPath string, capSeconds float64) []string {
	args := []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", inputPath,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
	}
	if capSeconds > 0 {
		args = append(args, "-t", strconv.FormatFloat(capSeconds, 'f', 3, 64))
	}
	return append(args, outPath)
}

// isMissingStreamOutput detects ffmpeg's no-usable-stream diagnostics.
func isMissingStreamOutput(stderr string) bool {
	lowered := strings.ToLower(stderr)
	return strings.Contains(lowered, "does not contain any stream") ||
		strings.Contains(lowered, "stream map 'a' matches no streams")
}

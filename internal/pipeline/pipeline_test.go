package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"accent-analyzer/internal/classify"
)

// fakeRunner simulates command execution order and outcomes.
type fakeRunner struct {
	run func(ctx context.Context, name string, args ...string) (commandResult, error)
}

// Run delegates to injected behavior.
func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	if f.run == nil {
		return commandResult{}, nil
	}
	return f.run(ctx, name, args...)
}

// fakeClassifier returns a fixed prediction or error.
type fakeClassifier struct {
	prediction classify.Prediction
	err        error
	audioPath  string
}

func (f *fakeClassifier) Classify(ctx context.Context, audioPath string) (classify.Prediction, error) {
	f.audioPath = audioPath
	if f.err != nil {
		return classify.Prediction{}, f.err
	}
	return f.prediction, nil
}

// trackedWorkspace wires mkdirTemp/removeAll so tests can assert cleanup.
type trackedWorkspace struct {
	dir     string
	removed string
}

func (w *trackedWorkspace) mkdirTemp(dir, pattern string) (string, error) {
	created, err := os.MkdirTemp(dir, pattern)
	w.dir = created
	return created, err
}

func (w *trackedWorkspace) removeAll(path string) error {
	w.removed = path
	return os.RemoveAll(path)
}

// TestPipelineRunSuccessShortSource checks the full happy path without truncation.
func TestPipelineRunSuccessShortSource(t *testing.T) {
	ws := &trackedWorkspace{}
	classifier := &fakeClassifier{prediction: classify.Prediction{Label: "england", ConfidencePercent: 87.65}}

	call := 0
	var extractArgs []string
	runner := &fakeRunner{
		run: func(ctx context.Context, name string, args ...string) (commandResult, error) {
			call++
			switch call {
			case 1:
				if name != "yt-dlp-custom" {
					t.Fatalf("command 1 name = %q, want yt-dlp-custom", name)
				}
				dir := filepath.Dir(argValue(args, "-o"))
				mustWriteFile(t, filepath.Join(dir, "source.mp4"), "video")
				return commandResult{ExitCode: 0}, nil
			case 2:
				if name != "ffprobe-custom" {
					t.Fatalf("command 2 name = %q, want ffprobe-custom", name)
				}
				return commandResult{Stdout: "10.482000\n", ExitCode: 0}, nil
			case 3:
				if name != "ffprobe-custom" {
					t.Fatalf("command 3 name = %q, want ffprobe-custom", name)
				}
				return commandResult{Stdout: "0\n", ExitCode: 0}, nil
			case 4:
				if name != "ffmpeg-custom" {
					t.Fatalf("command 4 name = %q, want ffmpeg-custom", name)
				}
				extractArgs = append([]string{}, args...)
				mustWriteFile(t, args[len(args)-1], "wav")
				return commandResult{ExitCode: 0}, nil
			default:
				t.Fatalf("unexpected command call: %d", call)
				return commandResult{}, nil
			}
		},
	}

	pipeline := NewForTests("yt-dlp-custom", "ffmpeg-custom", "ffprobe-custom", time.Minute, classifier, runner, ws.mkdirTemp, ws.removeAll)

	var stages []string
	result, err := pipeline.Run(context.Background(), Request{
		URL:             "https://example.com/watch?v=abc",
		MaxAudioSeconds: 30,
		OnStage:         func(stage string) { stages = append(stages, stage) },
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if call != 4 {
		t.Fatalf("command calls = %d, want 4", call)
	}
	if result.Label != "england" {
		t.Fatalf("label = %q, want england", result.Label)
	}
	if result.ConfidencePercent != 87.65 {
		t.Fatalf("confidence = %v, want 87.65", result.ConfidencePercent)
	}
	if result.AudioSeconds != 10.482 {
		t.Fatalf("audio seconds = %v, want 10.482", result.AudioSeconds)
	}
	if len(result.Logs) != 4 {
		t.Fatalf("logs count = %d, want 4", len(result.Logs))
	}
	if hasArg(extractArgs, "-t") {
		t.Fatalf("short source should not pass -t, args=%v", extractArgs)
	}
	if classifier.audioPath == "" || filepath.Base(classifier.audioPath) != audioFileName {
		t.Fatalf("classifier input = %q, want %s in workspace", classifier.audioPath, audioFileName)
	}

	wantStages := []string{StageDownloading, StageExtracting, StageClassifying}
	if len(stages) != len(wantStages) {
		t.Fatalf("stages = %v, want %v", stages, wantStages)
	}
	for i := range wantStages {
		if stages[i] != wantStages[i] {
			t.Fatalf("stage[%d] = %q, want %q", i, stages[i], wantStages[i])
		}
	}

	if ws.removed != ws.dir {
		t.Fatalf("removed = %q, want workspace %q", ws.removed, ws.dir)
	}
	if _, statErr := os.Stat(ws.dir); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("workspace should be removed on success, stat err = %v", statErr)
	}
}

// TestPipelineRunTruncatesLongSource checks the duration cap on long videos.
func TestPipelineRunTruncatesLongSource(t *testing.T) {
	ws := &trackedWorkspace{}
	classifier := &fakeClassifier{prediction: classify.Prediction{Label: "us", ConfidencePercent: 91.2}}

	var extractArgs []string
	runner := &fakeRunner{
		run: func(ctx context.Context, name string, args ...string) (commandResult, error) {
			switch name {
			case "yt-dlp":
				dir := filepath.Dir(argValue(args, "-o"))
				mustWriteFile(t, filepath.Join(dir, "source.webm"), "video")
				return commandResult{ExitCode: 0}, nil
			case "ffprobe":
				if hasArg(args, "-select_streams") {
					return commandResult{Stdout: "0", ExitCode: 0}, nil
				}
				return commandResult{Stdout: "95.300000", ExitCode: 0}, nil
			default:
				extractArgs = append([]string{}, args...)
				mustWriteFile(t, args[len(args)-1], "wav")
				return commandResult{ExitCode: 0}, nil
			}
		},
	}

	pipeline := NewForTests("yt-dlp", "ffmpeg", "ffprobe", time.Minute, classifier, runner, ws.mkdirTemp, ws.removeAll)
	result, err := pipeline.Run(context.Background(), Request{
		URL:             "https://example.com/v/long",
		MaxAudioSeconds: 30,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := argValue(extractArgs, "-t"); got != "30.000" {
		t.Fatalf("-t arg = %q, want 30.000", got)
	}
	if result.AudioSeconds != 30 {
		t.Fatalf("audio seconds = %v, want 30", result.AudioSeconds)
	}
}

// TestPipelineRunUnknownDurationStillCapsClip checks probe failure degrades to a capped transcode.
func TestPipelineRunUnknownDurationStillCapsClip(t *testing.T) {
	ws := &trackedWorkspace{}
	classifier := &fakeClassifier{prediction: classify.Prediction{Label: "indian", ConfidencePercent: 55.5}}

	var extractArgs []string
	runner := &fakeRunner{
		run: func(ctx context.Context, name string, args ...string) (commandResult, error) {
			switch name {
			case "yt-dlp":
				dir := filepath.Dir(argValue(args, "-o"))
				mustWriteFile(t, filepath.Join(dir, "source.mp4"), "video")
				return commandResult{ExitCode: 0}, nil
			case "ffprobe":
				if hasArg(args, "-select_streams") {
					return commandResult{Stdout: "0", ExitCode: 0}, nil
				}
				return commandResult{Stderr: "N/A", ExitCode: 1}, errors.New("exit status 1")
			default:
				extractArgs = append([]string{}, args...)
				mustWriteFile(t, args[len(args)-1], "wav")
				return commandResult{ExitCode: 0}, nil
			}
		},
	}

	pipeline := NewForTests("yt-dlp", "ffmpeg", "ffprobe", time.Minute, classifier, runner, ws.mkdirTemp, ws.removeAll)
	result, err := pipeline.Run(context.Background(), Request{
		URL:             "https://example.com/v/unknown",
		MaxAudioSeconds: 30,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := argValue(extractArgs, "-t"); got != "30.000" {
		t.Fatalf("-t arg = %q, want 30.000", got)
	}
	if result.AudioSeconds != 30 {
		t.Fatalf("audio seconds = %v, want 30", result.AudioSeconds)
	}
}

// TestPipelineRunForbiddenDownload checks the HTTP 403 classification and hint.
func TestPipelineRunForbiddenDownload(t *testing.T) {
	ws := &trackedWorkspace{}
	call := 0
	runner := &fakeRunner{
		run: func(ctx context.Context, name string, args ...string) (commandResult, error) {
			call++
			return commandResult{
				Stderr:   "ERROR: unable to download video data: HTTP Error 403: Forbidden",
				ExitCode: 1,
			}, errors.New("exit status 1")
		},
	}

	pipeline := NewForTests("yt-dlp", "ffmpeg", "ffprobe", time.Minute, &fakeClassifier{}, runner, ws.mkdirTemp, ws.removeAll)
	_, err := pipeline.Run(context.Background(), Request{URL: "https://example.com/blocked"})
	if err == nil {
		t.Fatal("expected error")
	}

	var pErr *PipelineError
	if !errors.As(err, &pErr) {
		t.Fatalf("error type = %T, want *PipelineError", err)
	}
	if pErr.Kind != FailureDownloadForbidden {
		t.Fatalf("kind = %s, want %s", pErr.Kind, FailureDownloadForbidden)
	}
	if pErr.Stage != StageDownloading {
		t.Fatalf("stage = %s, want %s", pErr.Stage, StageDownloading)
	}
	if pErr.Hint == "" {
		t.Fatal("expected a user-facing hint for 403 failures")
	}
	if call != 1 {
		t.Fatalf("command calls = %d, want 1 (no extraction after failed download)", call)
	}
	if _, statErr := os.Stat(ws.dir); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("workspace should be removed on failure, stat err = %v", statErr)
	}
}

// TestPipelineRunDownloadTimeout checks the bounded single download attempt.
func TestPipelineRunDownloadTimeout(t *testing.T) {
	ws := &trackedWorkspace{}
	runner := &fakeRunner{
		run: func(ctx context.Context, name string, args ...string) (commandResult, error) {
			<-ctx.Done()
			return commandResult{ExitCode: -1}, ctx.Err()
		},
	}

	pipeline := NewForTests("yt-dlp", "ffmpeg", "ffprobe", 10*time.Millisecond, &fakeClassifier{}, runner, ws.mkdirTemp, ws.removeAll)
	_, err := pipeline.Run(context.Background(), Request{URL: "https://example.com/slow"})
	if err == nil {
		t.Fatal("expected error")
	}

	var pErr *PipelineError
	if !errors.As(err, &pErr) {
		t.Fatalf("error type = %T, want *PipelineError", err)
	}
	if pErr.Kind != FailureDownloadTimeout {
		t.Fatalf("kind = %s, want %s", pErr.Kind, FailureDownloadTimeout)
	}
	if _, statErr := os.Stat(ws.dir); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("workspace should be removed on timeout, stat err = %v", statErr)
	}
}

// TestPipelineRunCancelDuringDownload checks user cancellation is not reported as a failure.
func TestPipelineRunCancelDuringDownload(t *testing.T) {
	ws := &trackedWorkspace{}
	ctx, cancel := context.WithCancel(context.Background())
	runner := &fakeRunner{
		run: func(ctx context.Context, name string, args ...string) (commandResult, error) {
			cancel()
			<-ctx.Done()
			return commandResult{ExitCode: -1}, ctx.Err()
		},
	}

	pipeline := NewForTests("yt-dlp", "ffmpeg", "ffprobe", time.Minute, &fakeClassifier{}, runner, ws.mkdirTemp, ws.removeAll)
	_, err := pipeline.Run(ctx, Request{URL: "https://example.com/cancelled"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}

	var pErr *PipelineError
	if errors.As(err, &pErr) {
		t.Fatalf("cancellation should not be a PipelineError, got kind %s", pErr.Kind)
	}
	if _, statErr := os.Stat(ws.dir); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("workspace should be removed on cancel, stat err = %v", statErr)
	}
}

// TestPipelineRunNoOutputProduced checks the zero-exit-no-file download edge.
func TestPipelineRunNoOutputProduced(t *testing.T) {
	ws := &trackedWorkspace{}
	runner := &fakeRunner{
		run: func(ctx context.Context, name string, args ...string) (commandResult, error) {
			return commandResult{ExitCode: 0}, nil
		},
	}

	pipeline := NewForTests("yt-dlp", "ffmpeg", "ffprobe", time.Minute, &fakeClassifier{}, runner, ws.mkdirTemp, ws.removeAll)
	_, err := pipeline.Run(context.Background(), Request{URL: "https://example.com/empty"})
	if err == nil {
		t.Fatal("expected error")
	}

	var pErr *PipelineError
	if !errors.As(err, &pErr) {
		t.Fatalf("error type = %T, want *PipelineError", err)
	}
	if pErr.Kind != FailureNoOutputProduced {
		t.Fatalf("kind = %s, want %s", pErr.Kind, FailureNoOutputProduced)
	}
}

// TestPipelineRunSkipsPartialDownloads checks in-progress artifacts are not picked up.
func TestPipelineRunSkipsPartialDownloads(t *testing.T) {
	ws := &trackedWorkspace{}
	runner := &fakeRunner{
		run: func(ctx context.Context, name string, args ...string) (commandResult, error) {
			dir := filepath.Dir(argValue(args, "-o"))
			mustWriteFile(t, filepath.Join(dir, "source.mp4.part"), "partial")
			mustWriteFile(t, filepath.Join(dir, "source.mp4.ytdl"), "state")
			return commandResult{ExitCode: 0}, nil
		},
	}

	pipeline := NewForTests("yt-dlp", "ffmpeg", "ffprobe", time.Minute, &fakeClassifier{}, runner, ws.mkdirTemp, ws.removeAll)
	_, err := pipeline.Run(context.Background(), Request{URL: "https://example.com/partial"})
	if err == nil {
		t.Fatal("expected error")
	}

	var pErr *PipelineError
	if !errors.As(err, &pErr) {
		t.Fatalf("error type = %T, want *PipelineError", err)
	}
	if pErr.Kind != FailureNoOutputProduced {
		t.Fatalf("kind = %s, want %s", pErr.Kind, FailureNoOutputProduced)
	}
}

// TestPipelineRunNoAudioTrack checks the silent-video edge stops before ffmpeg.
func TestPipelineRunNoAudioTrack(t *testing.T) {
	ws := &trackedWorkspace{}
	call := 0
	runner := &fakeRunner{
		run: func(ctx context.Context, name string, args ...string) (commandResult, error) {
			call++
			switch name {
			case "yt-dlp":
				dir := filepath.Dir(argValue(args, "-o"))
				mustWriteFile(t, filepath.Join(dir, "source.mp4"), "video")
				return commandResult{ExitCode: 0}, nil
			case "ffprobe":
				if hasArg(args, "-select_streams") {
					return commandResult{Stdout: "", ExitCode: 0}, nil
				}
				return commandResult{Stdout: "12.0", ExitCode: 0}, nil
			default:
				t.Fatalf("ffmpeg should not run for a silent video")
				return commandResult{}, nil
			}
		},
	}

	pipeline := NewForTests("yt-dlp", "ffmpeg", "ffprobe", time.Minute, &fakeClassifier{}, runner, ws.mkdirTemp, ws.removeAll)
	_, err := pipeline.Run(context.Background(), Request{URL: "https://example.com/silent"})
	if err == nil {
		t.Fatal("expected error")
	}

	var pErr *PipelineError
	if !errors.As(err, &pErr) {
		t.Fatalf("error type = %T, want *PipelineError", err)
	}
	if pErr.Kind != FailureNoAudioTrack {
		t.Fatalf("kind = %s, want %s", pErr.Kind, FailureNoAudioTrack)
	}
	if pErr.Stage != StageExtracting {
		t.Fatalf("stage = %s, want %s", pErr.Stage, StageExtracting)
	}
	if call != 3 {
		t.Fatalf("command calls = %d, want 3", call)
	}
}

// TestPipelineRunFFmpegMissingStream checks the no-audio fallback via ffmpeg stderr.
func TestPipelineRunFFmpegMissingStream(t *testing.T) {
	ws := &trackedWorkspace{}
	runner := &fakeRunner{
		run: func(ctx context.Context, name string, args ...string) (commandResult, error) {
			switch name {
			case "yt-dlp":
				dir := filepath.Dir(argValue(args, "-o"))
				mustWriteFile(t, filepath.Join(dir, "source.mp4"), "video")
				return commandResult{ExitCode: 0}, nil
			case "ffprobe":
				// Both probes fail so ffmpeg decides the stream question.
				return commandResult{Stderr: "probe error", ExitCode: 1}, errors.New("exit status 1")
			default:
				return commandResult{
					Stderr:   "Output file does not contain any stream",
					ExitCode: 1,
				}, errors.New("exit status 1")
			}
		},
	}

	pipeline := NewForTests("yt-dlp", "ffmpeg", "ffprobe", time.Minute, &fakeClassifier{}, runner, ws.mkdirTemp, ws.removeAll)
	_, err := pipeline.Run(context.Background(), Request{URL: "https://example.com/silent2"})
	if err == nil {
		t.Fatal("expected error")
	}

	var pErr *PipelineError
	if !errors.As(err, &pErr) {
		t.Fatalf("error type = %T, want *PipelineError", err)
	}
	if pErr.Kind != FailureNoAudioTrack {
		t.Fatalf("kind = %s, want %s", pErr.Kind, FailureNoAudioTrack)
	}
}

// TestPipelineRunExtractionToolFailure checks generic ffmpeg failures.
func TestPipelineRunExtractionToolFailure(t *testing.T) {
	ws := &trackedWorkspace{}
	runner := &fakeRunner{
		run: func(ctx context.Context, name string, args ...string) (commandResult, error) {
			switch name {
			case "yt-dlp":
				dir := filepath.Dir(argValue(args, "-o"))
				mustWriteFile(t, filepath.Join(dir, "source.mp4"), "video")
				return commandResult{ExitCode: 0}, nil
			case "ffprobe":
				if hasArg(args, "-select_streams") {
					return commandResult{Stdout: "0", ExitCode: 0}, nil
				}
				return commandResult{Stdout: "8.0", ExitCode: 0}, nil
			default:
				return commandResult{
					Stderr:   "Invalid data found when processing input",
					ExitCode: 1,
				}, errors.New("exit status 1")
			}
		},
	}

	pipeline := NewForTests("yt-dlp", "ffmpeg", "ffprobe", time.Minute, &fakeClassifier{}, runner, ws.mkdirTemp, ws.removeAll)
	_, err := pipeline.Run(context.Background(), Request{URL: "https://example.com/corrupt"})
	if err == nil {
		t.Fatal("expected error")
	}

	var pErr *PipelineError
	if !errors.As(err, &pErr) {
		t.Fatalf("error type = %T, want *PipelineError", err)
	}
	if pErr.Kind != FailureExtractionTool {
		t.Fatalf("kind = %s, want %s", pErr.Kind, FailureExtractionTool)
	}
	if pErr.CommandLog.Command != "ffmpeg" {
		t.Fatalf("command = %q, want ffmpeg", pErr.CommandLog.Command)
	}
	if _, statErr := os.Stat(ws.dir); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("workspace should be removed on failure, stat err = %v", statErr)
	}
}

// TestPipelineRunClassifierFailure checks scorer errors surface as classification failures.
func TestPipelineRunClassifierFailure(t *testing.T) {
	ws := &trackedWorkspace{}
	classifier := &fakeClassifier{err: errors.New("model load failed")}
	runner := &fakeRunner{
		run: func(ctx context.Context, name string, args ...string) (commandResult, error) {
			switch name {
			case "yt-dlp":
				dir := filepath.Dir(argValue(args, "-o"))
				mustWriteFile(t, filepath.Join(dir, "source.mp4"), "video")
				return commandResult{ExitCode: 0}, nil
			case "ffprobe":
				if hasArg(args, "-select_streams") {
					return commandResult{Stdout: "0", ExitCode: 0}, nil
				}
				return commandResult{Stdout: "5.0", ExitCode: 0}, nil
			default:
				mustWriteFile(t, args[len(args)-1], "wav")
				return commandResult{ExitCode: 0}, nil
			}
		},
	}

	pipeline := NewForTests("yt-dlp", "ffmpeg", "ffprobe", time.Minute, classifier, runner, ws.mkdirTemp, ws.removeAll)
	_, err := pipeline.Run(context.Background(), Request{URL: "https://example.com/v"})
	if err == nil {
		t.Fatal("expected error")
	}

	var pErr *PipelineError
	if !errors.As(err, &pErr) {
		t.Fatalf("error type = %T, want *PipelineError", err)
	}
	if pErr.Kind != FailureClassification {
		t.Fatalf("kind = %s, want %s", pErr.Kind, FailureClassification)
	}
	if pErr.Stage != StageClassifying {
		t.Fatalf("stage = %s, want %s", pErr.Stage, StageClassifying)
	}
}

// TestPipelineRunRequiresURL checks the empty-input validation.
func TestPipelineRunRequiresURL(t *testing.T) {
	pipeline := NewForTests("yt-dlp", "ffmpeg", "ffprobe", time.Minute, &fakeClassifier{}, &fakeRunner{}, os.MkdirTemp, os.RemoveAll)
	_, err := pipeline.Run(context.Background(), Request{URL: "   "})
	if err == nil {
		t.Fatal("expected error")
	}

	var pErr *PipelineError
	if !errors.As(err, &pErr) {
		t.Fatalf("error type = %T, want *PipelineError", err)
	}
	if pErr.Stage != StageDownloading {
		t.Fatalf("stage = %s, want %s", pErr.Stage, StageDownloading)
	}
}

// TestBuildDownloadArgs verifies deterministic yt-dlp command arguments.
func TestBuildDownloadArgs(t *testing.T) {
	args := buildDownloadArgs("https://example.com/v", "/tmp/work")
	want := []string{
		"--quiet",
		"--no-warnings",
		"--no-playlist",
		"-f", "ba/b",
		"--remux-video", "mp4",
		"-o", filepath.Join("/tmp/work", "source.%(ext)s"),
		"https://example.com/v",
	}

	if len(args) != len(want) {
		t.Fatalf("args len = %d, want %d", len(args), len(want))
	}
	for i := range want {
		if args[i] != want[i] {
			t.Fatalf("args[%d] = %q, want %q", i, args[i], want[i])
		}
	}
}

// TestBuildExtractArgsWithoutCap verifies args for sources within the bound.
func TestBuildExtractArgsWithoutCap(t *testing.T) {
	args := buildExtractArgs("/in.mp4", "/tmp/audio.wav", 0)
	want := []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", "/in.mp4",
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		"/tmp/audio.wav",
	}

	if len(args) != len(want) {
		t.Fatalf("args len = %d, want %d", len(args), len(want))
	}
	for i := range want {
		if args[i] != want[i] {
			t.Fatalf("args[%d] = %q, want %q", i, args[i], want[i])
		}
	}
}

// TestBuildExtractArgsWithCap verifies the duration bound formatting.
func TestBuildExtractArgsWithCap(t *testing.T) {
	args := buildExtractArgs("/in.mp4", "/tmp/audio.wav", 30)
	if got := argValue(args, "-t"); got != "30.000" {
		t.Fatalf("-t arg = %q, want 30.000", got)
	}
	if args[len(args)-1] != "/tmp/audio.wav" {
		t.Fatalf("last arg = %q, want output path", args[len(args)-1])
	}

	args = buildExtractArgs("/in.mp4", "/tmp/audio.wav", 12.5)
	if got := argValue(args, "-t"); got != "12.500" {
		t.Fatalf("-t arg = %q, want 12.500", got)
	}
}

// TestIsForbiddenOutput verifies 403 detection in tool diagnostics.
func TestIsForbiddenOutput(t *testing.T) {
	cases := []struct {
		stderr string
		want   bool
	}{
		{"ERROR: HTTP Error 403: Forbidden", true},
		{"error: forbidden by upstream", true},
		{"ERROR: HTTP Error 404: Not Found", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := isForbiddenOutput(tc.stderr); got != tc.want {
			t.Fatalf("isForbiddenOutput(%q) = %v, want %v", tc.stderr, got, tc.want)
		}
	}
}

// mustWriteFile creates parent directory and writes file content.
func mustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir parent: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write file %s: %v", path, err)
	}
}

// argValue returns value for key-style CLI args.
func argValue(args []string, key string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == key {
			return args[i+1]
		}
	}
	return ""
}

// hasArg reports whether args include the target flag.
func hasArg(args []string, key string) bool {
	for _, arg := range args {
		if arg == key {
			return true
		}
	}
	return false
}

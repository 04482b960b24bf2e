package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"strings"

	"accent-analyzer/internal/domain"
)

// scorerVerdict is the single-line JSON the scorer CLI writes to stdout.
type scorerVerdict struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// scorerRunner abstracts scorer process execution for testability.
type scorerRunner interface {
	Run(ctx context.Context, name string, args ...string) (stdout string, stderr string, err error)
}

// execScorerRunner executes the scorer via os/exec.
type execScorerRunner struct{}

// Run executes one command and captures stdout and stderr.
func (r *execScorerRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// ProcessClassifier invokes the external accent scorer CLI. The scorer owns
// the model internals; this side owns only the invocation and the contract
// that the audio file is already in the model's expected PCM format.
type ProcessClassifier struct {
	scorerPath  string
	modelSource string
	cacheDir    string
	runner      scorerRunner
}

// NewProcessClassifier builds a classifier around the accent scorer CLI.
func NewProcessClassifier(scorerPath, modelSource, cacheDir string) *ProcessClassifier {
	return &ProcessClassifier{
		scorerPath:  scorerPath,
		modelSource: modelSource,
		cacheDir:    cacheDir,
		runner:      &execScorerRunner{},
	}
}

// Warmup loads the model once so later Classify calls pay no load cost.
func (c *ProcessClassifier) Warmup(ctx context.Context) error {
	args := buildScorerArgs(c.modelSource, c.cacheDir)
	args = append(args, "--probe")
	_, stderr, err := c.runner.Run(ctx, c.scorerPath, args...)
	if err != nil {
		return fmt.Errorf("load accent model %q: %w (%s)", c.modelSource, err, strings.TrimSpace(stderr))
	}
	return nil
}

// Classify scores one audio file and returns the argmax label with its
// posterior probability as a percentage.
func (c *ProcessClassifier) Classify(ctx context.Context, audioPath string) (Prediction, error) {
	args := buildScorerArgs(c.modelSource, c.cacheDir)
	args = append(args, "-f", audioPath)

	stdout, stderr, err := c.runner.Run(ctx, c.scorerPath, args...)
	if err != nil {
		if ctx.Err() != nil {
			return Prediction{}, fmt.Errorf("classification interrupted: %w", ctx.Err())
		}
		return Prediction{}, fmt.Errorf("accent scorer failed: %w (%s)", err, strings.TrimSpace(stderr))
	}

	verdict, err := parseScorerVerdict(stdout)
	if err != nil {
		return Prediction{}, err
	}

	return Prediction{
		Label:             verdict.Label,
		ConfidencePercent: roundConfidence(verdict.Score),
	}, nil
}

// parseScorerVerdict decodes the last non-empty stdout line and validates it
// against the model's label set and probability range.
func parseScorerVerdict(stdout string) (scorerVerdict, error) {
	line := lastNonEmptyLine(stdout)
	if line == "" {
		return scorerVerdict{}, fmt.Errorf("accent scorer produced no verdict")
	}

	var verdict scorerVerdict
	if err := json.Unmarshal([]byte(line), &verdict); err != nil {
		return scorerVerdict{}, fmt.Errorf("decode scorer verdict %q: %w", line, err)
	}

	verdict.Label = strings.ToLower(strings.TrimSpace(verdict.Label))
	if !domain.IsKnownAccent(verdict.Label) {
		return scorerVerdict{}, fmt.Errorf("scorer returned unknown accent label %q", verdict.Label)
	}
	if verdict.Score < 0 || verdict.Score > 1 {
		return scorerVerdict{}, fmt.Errorf("scorer returned out-of-range score %v", verdict.Score)
	}
	return verdict, nil
}

// buildScorerArgs builds the shared model selection arguments.
func buildScorerArgs(modelSource, cacheDir string) []string {
	args := []string{"--json", "-m", modelSource}
	if strings.TrimSpace(cacheDir) != "" {
		args = append(args, "--savedir", cacheDir)
	}
	return args
}

// roundConfidence converts a posterior probability to a percentage with two
// decimal places.
func roundConfidence(score float64) float64 {
	return math.Round(score*10000) / 100
}

// lastNonEmptyLine skips scorer progress chatter preceding the verdict.
func lastNonEmptyLine(s string) string {
	lines := strings.Split(s, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}

// NewProcessClassifierForTests constructs a classifier with an injectable runner.
func NewProcessClassifierForTests(scorerPath, modelSource, cacheDir string, runner scorerRunner) *ProcessClassifier {
	return &ProcessClassifier{
		scorerPath:  scorerPath,
		modelSource: modelSource,
		cacheDir:    cacheDir,
		runner:      runner,
	}
}

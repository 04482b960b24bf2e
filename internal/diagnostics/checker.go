package diagnostics

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strings"
	"time"

	"accent-analyzer/internal/domain"
)

// Checker validates external tools and required filesystem paths.
type Checker struct {
	lookPath   func(string) (string, error)
	mkdirAll   func(string, os.FileMode) error
	createTemp func(string, string) (*os.File, error)
	remove     func(string) error
}

// NewChecker builds a checker using real OS dependencies.
func NewChecker() *Checker {
	return &Checker{
		lookPath:   exec.LookPath,
		mkdirAll:   os.MkdirAll,
		createTemp: os.CreateTemp,
		remove:     os.Remove,
	}
}

// Run executes all startup checks and returns a combined report.
func (c *Checker) Run(settings domain.Settings) domain.DiagnosticReport {
	items := []domain.DiagnosticItem{
		c.checkTool("yt-dlp"),
		c.checkTool("ffmpeg"),
		c.checkTool("ffprobe"),
		c.checkTool("accent-id"),
		c.checkModelSource(settings.ModelSource),
		c.checkCacheDir(settings.CacheDir),
	}

	hasFailures := false
	for _, item := range items {
		if item.Status == domain.DiagnosticStatusFail {
			hasFailures = true
			break
		}
	}

	return domain.DiagnosticReport{
		GeneratedAt: time.Now().UTC(),
		HasFailures: hasFailures,
		Items:       items,
	}
}

// checkTool verifies a required CLI executable is on PATH.
func (c *Checker) checkTool(name string) domain.DiagnosticItem {
	path, err := c.lookPath(name)
	if err != nil {
		return domain.DiagnosticItem{
			ID:       "tool_" + name,
			Name:     name,
			Category: domain.DiagnosticCategoryTool,
			Status:   domain.DiagnosticStatusFail,
			Message:  fmt.Sprintf("Tool not found in PATH: %s", name),
			Hint:     "Install it and ensure the binary is available on PATH before starting an analysis.",
		}
	}

	return domain.DiagnosticItem{
		ID:       "tool_" + name,
		Name:     name,
		Category: domain.DiagnosticCategoryTool,
		Status:   domain.DiagnosticStatusPass,
		Message:  fmt.Sprintf("Found at %s", path),
	}
}

// checkModelSource validates the configured accent model source.
func (c *Checker) checkModelSource(modelSource string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:       "model_source",
		Name:     "Accent model",
		Category: domain.DiagnosticCategoryConfig,
	}

	if strings.TrimSpace(modelSource) == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Accent model source is empty."
		item.Hint = "Pick a model from the catalog or set a model source in settings."
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Configured model: %s", modelSource)
	return item
}

// checkCacheDir validates model cache directory existence and write access.
func (c *Checker) checkCacheDir(cacheDir string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:       "cache_dir",
		Name:     "Model cache directory",
		Category: domain.DiagnosticCategoryConfig,
	}

	if strings.TrimSpace(cacheDir) == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Model cache directory is empty."
		item.Hint = "Set a directory where the accent model can be cached."
		return item
	}

	if err := c.mkdirAll(cacheDir, 0o755); err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Cannot create model cache directory: %s", cacheDir)
		item.Hint = "Choose a writable location or adjust filesystem permissions."
		return item
	}

	tmpFile, err := c.createTemp(cacheDir, ".write-check-*")
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Model cache directory is not writable: %s", cacheDir)
		item.Hint = "Choose a writable directory for the model cache."
		return item
	}

	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()
	_ = c.remove(tmpPath)

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Writable directory: %s", cacheDir)
	return item
}

// NewCheckerForTests creates checker with injectable dependencies.
func NewCheckerForTests(
	lookPath func(string) (string, error),
	mkdirAll func(string, os.FileMode) error,
	createTemp func(string, string) (*os.File, error),
	remove func(string) error,
) *Checker {
	return &Checker{
		lookPath:   lookPath,
		mkdirAll:   mkdirAll,
		createTemp: createTemp,
		remove:     remove,
	}
}

// IsNotExist reports whether error represents file-not-found.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

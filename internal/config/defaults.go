package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"

	"accent-analyzer/internal/domain"
)

const (
	defaultModelSource     = "Jzuluaga/accent-id-commonaccent_ecapa"
	defaultMaxAudioSeconds = 30.0
)

// defaultsSpec maps ACCENT_ANALYZER_* environment overrides onto defaults.
type defaultsSpec struct {
	ModelSource     string  `envconfig:"MODEL_SOURCE" default:"Jzuluaga/accent-id-commonaccent_ecapa"`
	CacheDir        string  `envconfig:"CACHE_DIR"`
	MaxAudioSeconds float64 `envconfig:"MAX_AUDIO_SECONDS" default:"30"`
}

// DefaultSettings returns baseline local configuration for first launch.
// Environment variables override the built-in values.
func DefaultSettings() domain.Settings {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	var spec defaultsSpec
	if err := envconfig.Process("accent_analyzer", &spec); err != nil {
		spec = defaultsSpec{
			ModelSource:     defaultModelSource,
			MaxAudioSeconds: defaultMaxAudioSeconds,
		}
	}

	if strings.TrimSpace(spec.ModelSource) == "" {
		spec.ModelSource = defaultModelSource
	}
	if strings.TrimSpace(spec.CacheDir) == "" {
		spec.CacheDir = filepath.Join(homeDir, ".accent-analyzer", "models")
	}
	if spec.MaxAudioSeconds <= 0 {
		spec.MaxAudioSeconds = defaultMaxAudioSeconds
	}

	return domain.Settings{
		ModelSource:     spec.ModelSource,
		CacheDir:        spec.CacheDir,
		MaxAudioSeconds: spec.MaxAudioSeconds,
	}
}

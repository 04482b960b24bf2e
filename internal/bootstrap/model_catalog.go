package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"accent-analyzer/internal/domain"
)

var accentModelCatalog = []domain.AccentModelOption{
	{
		ID:          "ecapa",
		Name:        "CommonAccent ECAPA",
		Source:      "Jzuluaga/accent-id-commonaccent_ecapa",
		SizeLabel:   "~85 MB",
		Description: "ECAPA-TDNN encoder, 16 English accents. Fast, default choice.",
	},
	{
		ID:          "xlsr",
		Name:        "CommonAccent XLSR",
		Source:      "Jzuluaga/accent-id-commonaccent_xlsr",
		SizeLabel:   "~1.3 GB",
		Description: "wav2vec 2.0 XLSR encoder. Higher accuracy, slower inference.",
	},
}

// GetAccentModels returns built-in accent model presets for one-click prefetch.
func (a *App) GetAccentModels() []domain.AccentModelOption {
	models := make([]domain.AccentModelOption, len(accentModelCatalog))
	copy(models, accentModelCatalog)

	settings, err := a.loadNormalizedSettings()
	if err != nil {
		return models
	}

	markCachedModels(models, settings.CacheDir)
	return models
}

// PrefetchAccentModel downloads the selected model into the cache through the
// scorer's fetch mode and makes it the configured model source.
func (a *App) PrefetchAccentModel(modelID string) (domain.Settings, error) {
	id := strings.TrimSpace(modelID)
	if id == "" {
		return domain.Settings{}, fmt.Errorf("model id is required")
	}

	model, found := getAccentModelByID(id)
	if !found {
		return domain.Settings{}, fmt.Errorf("unknown model id: %s", id)
	}

	settings, err := a.loadNormalizedSettings()
	if err != nil {
		return domain.Settings{}, err
	}

	if err := fetchModelWithScorer(model.Source, settings.CacheDir); err != nil {
		return domain.Settings{}, fmt.Errorf("prefetch model %s: %w", model.Name, err)
	}

	settings.ModelSource = model.Source
	if err := a.Store.Save(settings); err != nil {
		return domain.Settings{}, fmt.Errorf("save settings: %w", err)
	}

	a.refreshDiagnosticsFromSettings(settings)
	return settings, nil
}

// loadNormalizedSettings loads settings with defaults applied.
func (a *App) loadNormalizedSettings() (domain.Settings, error) {
	if a.Store == nil {
		return domain.Settings{}, fmt.Errorf("settings store is not configured")
	}
	settings, err := a.Store.Load()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	return normalizeSettings(settings), nil
}

func getAccentModelByID(id string) (domain.AccentModelOption, bool) {
	for _, model := range accentModelCatalog {
		if model.ID == id {
			return model, true
		}
	}
	return domain.AccentModelOption{}, false
}

// fetchModelWithScorer asks the scorer CLI to populate its cache. The scorer
// owns the download and the on-disk layout; this side only waits for it.
func fetchModelWithScorer(source, cacheDir string) error {
	ctx, cancel := context.WithTimeout(context.Background(), modelFetchTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, scorerCommand, "--fetch", "-m", source, "--savedir", cacheDir)
	output, err := cmd.CombinedOutput()
	if err != nil {
		trimmed := strings.TrimSpace(string(output))
		if len(trimmed) > 500 {
			trimmed = trimmed[:500] + "..."
		}
		if trimmed == "" {
			return err
		}
		return fmt.Errorf("%w (%s)", err, trimmed)
	}
	return nil
}

// modelCacheDirName mirrors the scorer's cache layout: one directory per
// model source, path separators flattened.
func modelCacheDirName(source string) string {
	return strings.ReplaceAll(strings.TrimSpace(source), "/", "--")
}

// markCachedModels flags catalog entries already present in the cache.
func markCachedModels(models []domain.AccentModelOption, cacheDir string) {
	if strings.TrimSpace(cacheDir) == "" {
		return
	}

	for i := range models {
		candidate := filepath.Join(cacheDir, modelCacheDirName(models[i].Source), "hyperparams.yaml")
		info, err := os.Stat(candidate)
		if err != nil || info.IsDir() {
			continue
		}
		models[i].Downloaded = true
		models[i].LocalPath = filepath.Dir(candidate)
	}
}

package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Settings holds all configuration options.
//
// Settings is an explicit value passed into constructors; nothing in
// the application reads configuration from ambient global state.
type Settings struct {
	// GameDataPath is the game's mod install directory (GameData).
	GameDataPath string `json:"game_data_path"`

	// CachePath is the base cache directory. The artifact cache, image
	// cache and registry file live underneath it.
	CachePath string `json:"cache_path"`

	// NumConcurrentWorkflows bounds how many install/update workflows
	// run in parallel.
	NumConcurrentWorkflows int `json:"num_concurrent_workflows"`

	// AutoCheckForUpdates makes the CLI check all mods on startup.
	AutoCheckForUpdates bool `json:"auto_check_for_updates"`

	// Download retry policy
	DownloadMaxRetries    int     `json:"download_max_retries"`
	DownloadRetryCooldown float64 `json:"download_retry_cooldown"`
	DownloadRetryExponent float64 `json:"download_retry_exponent"`

	// Image cache thumbnail bounds
	ImageMaxWidth  int `json:"image_max_width"`
	ImageMaxHeight int `json:"image_max_height"`
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	homeDir, _ := os.UserHomeDir()
	return &Settings{
		GameDataPath:           filepath.Join(homeDir, "KSP", "GameData"),
		CachePath:              filepath.Join(homeDir, ".modkeeper"),
		NumConcurrentWorkflows: 4,
		AutoCheckForUpdates:    false,

		DownloadMaxRetries:    7,
		DownloadRetryCooldown: 0.2,
		DownloadRetryExponent: 4.0,

		ImageMaxWidth:  250,
		ImageMaxHeight: 250,
	}
}

// Load reads settings from a JSON file. A missing file is not an
// error: defaults are returned so first runs work without setup.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return nil, err
	}

	settings := DefaultSettings()
	if err := json.Unmarshal(data, settings); err != nil {
		return nil, err
	}

	return settings, nil
}

// Save writes settings to a JSON file.
func (s *Settings) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// ArtifactCachePath is the directory holding downloaded mod archives,
// named by their resolved file name.
func (s *Settings) ArtifactCachePath() string {
	return filepath.Join(s.CachePath, "modCache")
}

// ImageCachePath is the directory holding mod thumbnails, named by the
// remote image file name.
func (s *Settings) ImageCachePath() string {
	return filepath.Join(s.CachePath, "imageCache")
}

// RegistryPath is the persisted mod registry file.
func (s *Settings) RegistryPath() string {
	return filepath.Join(s.CachePath, "mods.json")
}

// EnsureDirs creates the cache directory tree.
func (s *Settings) EnsureDirs() error {
	for _, dir := range []string{s.CachePath, s.ArtifactCachePath(), s.ImageCachePath()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

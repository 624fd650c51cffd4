package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const settingsName = "xi-term.yaml"

// Settings configures the front-end itself, as opposed to the engine
// preferences the user edits in preferences.xiconfig.
type Settings struct {
	// CorePath locates the engine executable. Empty means look up
	// "xi-core" in PATH.
	CorePath string `yaml:"core_path,omitempty"`

	// ExtrasDir is handed to the engine as client_extras_dir; bundled
	// plugins live there.
	ExtrasDir string `yaml:"extras_dir,omitempty"`

	LogLevel string `yaml:"log_level,omitempty"`
	LogFile  string `yaml:"log_file,omitempty"`

	Font FontSettings `yaml:"font,omitempty"`

	// Gutter toggles the line-number column.
	Gutter *bool `yaml:"gutter,omitempty"`
}

// FontSettings mirror the engine's font preferences for metric
// estimation.
type FontSettings struct {
	Family string  `yaml:"family,omitempty"`
	Size   float64 `yaml:"size,omitempty"`
}

// DefaultSettings returns the settings used when no file exists.
func DefaultSettings() Settings {
	return Settings{
		CorePath: "xi-core",
		LogLevel: "info",
		Font:     FontSettings{Family: "monospace", Size: 14},
	}
}

// GutterEnabled reports the gutter setting, defaulting to on.
func (s Settings) GutterEnabled() bool {
	if s.Gutter == nil {
		return true
	}
	return *s.Gutter
}

// LoadSettings reads xi-term.yaml from the config directory. A missing
// file yields defaults; a malformed one is an error, silently running
// with half-applied settings would be worse.
func LoadSettings(dir string) (Settings, error) {
	s := DefaultSettings()

	data, err := os.ReadFile(filepath.Join(dir, settingsName))
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("read settings: %w", err)
	}

	if err := yaml.Unmarshal(data, &s); err != nil {
		return DefaultSettings(), fmt.Errorf("parse %s: %w", settingsName, err)
	}
	if s.CorePath == "" {
		s.CorePath = "xi-core"
	}
	return s, nil
}

// SaveSettings writes the settings file.
func SaveSettings(dir string, s Settings) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, settingsName), data, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

// Package config manages the on-disk configuration area shared with
// the engine: the directory the engine loads user preferences from,
// the front-end's own settings file, and persisted UI state.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnvConfigDir overrides the config directory when set. The engine
// honors the directory we hand it in client_started, so the override
// steers both sides.
const EnvConfigDir = "XI_CONFIG_DIR"

const (
	appDirName      = "xi"
	preferencesName = "preferences.xiconfig"
)

// defaultPreferences seeds a fresh config directory. Everything is
// commented out; the engine's built-in defaults apply until the user
// uncomments a line.
const defaultPreferences = `# xi preferences
#
# The engine reads this file at startup and reloads it on change.
# Remove the leading "#" from a line to override the default.

# tab_size = 4
# translate_tabs_to_spaces = true
# use_tab_stops = true
# autodetect_whitespace = true

# font_face = "monospace"
# font_size = 14

# line_ending = "\n"
# scroll_past_end = false
# wrap_width = 0
# word_wrap = false
`

// Dir resolves the config directory: the environment override when
// set, otherwise the per-user config root. The directory may not exist
// yet; Ensure creates it.
func Dir() (string, error) {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return dir, nil
	}

	root, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(root, appDirName), nil
}

// Ensure creates the config directory and seeds the preferences file
// on first run. Existing preferences are never touched.
func Ensure(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	prefs := filepath.Join(dir, preferencesName)
	if _, err := os.Stat(prefs); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat preferences: %w", err)
	}

	if err := os.WriteFile(prefs, []byte(defaultPreferences), 0o644); err != nil {
		return fmt.Errorf("seed preferences: %w", err)
	}
	return nil
}

// PreferencesPath returns the engine-facing preferences file path.
func PreferencesPath(dir string) string {
	return filepath.Join(dir, preferencesName)
}

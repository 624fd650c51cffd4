package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const stateName = "state.json"

// DefaultTheme is used until the user picks one.
const DefaultTheme = "InspiredGitHub"

// State is the persisted UI state: the chosen theme and the last
// window frame. The file is edited key by key, so fields written by
// other versions of the front-end survive round trips untouched.
type State struct {
	mu   sync.Mutex
	path string
	raw  []byte
}

// LoadState reads the state file from the config directory. A missing
// or unreadable file yields empty state; persistence is best-effort.
func LoadState(dir string) *State {
	s := &State{
		path: filepath.Join(dir, stateName),
		raw:  []byte("{}"),
	}

	data, err := os.ReadFile(s.path)
	if err == nil && gjson.ValidBytes(data) {
		s.raw = data
	}
	return s
}

// Theme returns the persisted theme name, or the default.
func (s *State) Theme() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v := gjson.GetBytes(s.raw, "theme"); v.Exists() {
		return v.String()
	}
	return DefaultTheme
}

// SetTheme persists the theme choice.
func (s *State) SetTheme(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := sjson.SetBytes(s.raw, "theme", name)
	if err != nil {
		return fmt.Errorf("set theme: %w", err)
	}
	s.raw = raw
	return s.save()
}

// Frame returns the persisted terminal size, ok=false when never
// recorded.
func (s *State) Frame() (width, height int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := gjson.GetBytes(s.raw, "frame.width")
	h := gjson.GetBytes(s.raw, "frame.height")
	if !w.Exists() || !h.Exists() {
		return 0, 0, false
	}
	return int(w.Int()), int(h.Int()), true
}

// SetFrame persists the terminal size.
func (s *State) SetFrame(width, height int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := sjson.SetBytes(s.raw, "frame.width", width)
	if err != nil {
		return fmt.Errorf("set frame: %w", err)
	}
	raw, err = sjson.SetBytes(raw, "frame.height", height)
	if err != nil {
		return fmt.Errorf("set frame: %w", err)
	}
	s.raw = raw
	return s.save()
}

// save writes the state atomically: full write to a temp file in the
// same directory, then rename over the old one.
func (s *State) save() error {
	dir := filepath.Dir(s.path)

	tmp, err := os.CreateTemp(dir, stateName+".tmp-*")
	if err != nil {
		return fmt.Errorf("state temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(s.raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close state: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace state: %w", err)
	}
	return nil
}

package editor

import (
	"github.com/sw5cc/xi-term/internal/core"
)

// View is the front-end state for one engine view. All mutation
// happens on the UI goroutine; the registry hands out the pointer,
// never a copy.
type View struct {
	id   core.ViewID
	path string

	cache *LineCache

	// plugins is the availability map the engine replaces wholesale
	// with available_plugins; started/stopped flip single entries.
	plugins map[string]bool

	// commands holds plugin-contributed commands keyed by plugin.
	commands map[string][]core.Command

	// config is the engine's merged configuration for this view,
	// updated by config_changed diffs.
	config map[string]any

	language string

	finds   []core.FindQuery
	replace core.ReplaceState

	status *StatusBar

	// Visible region, in lines. Tracked so scroll RPCs and missing-
	// line requests know what the user sees.
	firstLine int
	lastLine  int

	// Caret position in document coordinates, as last revealed by the
	// engine's scroll_to. Rendering keeps it inside the viewport.
	caretLine int
	caretCol  int

	dirty bool
}

// NewView creates the state for a freshly opened view.
func NewView(id core.ViewID, path string) *View {
	return &View{
		id:       id,
		path:     path,
		cache:    NewLineCache(),
		plugins:  make(map[string]bool),
		commands: make(map[string][]core.Command),
		config:   make(map[string]any),
		status:   NewStatusBar(),
		dirty:    true,
	}
}

// ID returns the engine-assigned view id.
func (v *View) ID() core.ViewID { return v.id }

// Path returns the file backing this view, empty for unnamed buffers.
func (v *View) Path() string { return v.path }

// SetPath records the path after a save-as.
func (v *View) SetPath(path string) { v.path = path }

// Cache returns the view's line cache.
func (v *View) Cache() *LineCache { return v.cache }

// Status returns the view's status bar model.
func (v *View) Status() *StatusBar { return v.status }

// ApplyUpdate runs one update notification through the line cache.
func (v *View) ApplyUpdate(u core.UpdatePayload) error {
	if err := v.cache.ApplyUpdate(u); err != nil {
		return err
	}
	v.dirty = true
	return nil
}

// Pristine reports whether the document matches its file on disk.
func (v *View) Pristine() bool { return v.cache.Pristine() }

// Dirty reports whether the view needs redrawing.
func (v *View) Dirty() bool { return v.dirty }

// MarkDirty forces a redraw on the next frame.
func (v *View) MarkDirty() { v.dirty = true }

// ClearDirty is called after the view has been drawn.
func (v *View) ClearDirty() { v.dirty = false }

// SetVisible records the visible line interval [first, last).
func (v *View) SetVisible(first, last int) {
	v.firstLine = first
	v.lastLine = last
}

// Visible returns the visible line interval [first, last).
func (v *View) Visible() (first, last int) {
	return v.firstLine, v.lastLine
}

// SetCaret records the position scroll_to asked to reveal.
func (v *View) SetCaret(line, col int) {
	v.caretLine = line
	v.caretCol = col
	v.dirty = true
}

// Caret returns the last revealed position.
func (v *View) Caret() (line, col int) {
	return v.caretLine, v.caretCol
}

// SetAvailablePlugins replaces the whole availability map. Entries for
// plugins the engine no longer lists are gone afterwards.
func (v *View) SetAvailablePlugins(plugins []core.PluginDescription) {
	next := make(map[string]bool, len(plugins))
	for _, p := range plugins {
		next[p.Name] = p.Running
	}
	v.plugins = next
}

// PluginStarted marks one plugin running.
func (v *View) PluginStarted(name string) {
	v.plugins[name] = true
}

// PluginStopped marks one plugin stopped and drops its commands.
func (v *View) PluginStopped(name string) {
	v.plugins[name] = false
	delete(v.commands, name)
}

// Plugins returns the availability map. Callers must not mutate it.
func (v *View) Plugins() map[string]bool {
	return v.plugins
}

// PluginRunning reports one plugin's state.
func (v *View) PluginRunning(name string) bool {
	return v.plugins[name]
}

// SetCommands replaces one plugin's command list.
func (v *View) SetCommands(plugin string, cmds []core.Command) {
	if len(cmds) == 0 {
		delete(v.commands, plugin)
		return
	}
	v.commands[plugin] = cmds
}

// Commands returns the commands contributed by one plugin.
func (v *View) Commands(plugin string) []core.Command {
	return v.commands[plugin]
}

// MergeConfig folds a config_changed diff into the view's settings.
func (v *View) MergeConfig(changes map[string]any) {
	for k, val := range changes {
		v.config[k] = val
	}
}

// ConfigValue reads one merged setting.
func (v *View) ConfigValue(key string) (any, bool) {
	val, ok := v.config[key]
	return val, ok
}

// SetLanguage records the engine's language choice for the view.
func (v *View) SetLanguage(languageID string) {
	v.language = languageID
}

// Language returns the syntax language, empty when undetected.
func (v *View) Language() string { return v.language }

// SetFindStatus replaces the active find queries.
func (v *View) SetFindStatus(queries []core.FindQuery) {
	v.finds = queries
}

// FindStatus returns the active find queries.
func (v *View) FindStatus() []core.FindQuery {
	return v.finds
}

// SetReplaceStatus replaces the replacement state.
func (v *View) SetReplaceStatus(s core.ReplaceState) {
	v.replace = s
}

// ReplaceStatus returns the replacement state.
func (v *View) ReplaceStatus() core.ReplaceState {
	return v.replace
}

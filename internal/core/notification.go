package core

import (
	"encoding/json"
	"fmt"
)

// Notification is one decoded engine event. The set of implementations
// is closed: routing code can type-switch exhaustively.
type Notification interface {
	notification()
}

// Color is an RGBA color as the engine serializes theme entries.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
	A uint8 `json:"a"`
}

// Line is one visible line as pushed by the engine. Styles is a flat
// sequence of triples [relative start, length, style id]; the start is
// relative to the end of the previous span and may be negative for
// overlapping regions.
type Line struct {
	Text   string `json:"text"`
	Ln     int    `json:"ln,omitempty"`
	Cursor []int  `json:"cursor,omitempty"`
	Styles []int  `json:"styles,omitempty"`
}

// UpdateOp is one instruction in an update batch. Ops transform the
// previous line cache into the next one.
type UpdateOp struct {
	Op    string `json:"op"`
	N     int    `json:"n"`
	Lines []Line `json:"lines,omitempty"`
	Ln    int    `json:"ln,omitempty"`
}

// Update op names.
const (
	OpCopy       = "copy"
	OpSkip       = "skip"
	OpInvalidate = "invalidate"
	OpInsert     = "ins"
	OpUpdate     = "update"
)

// Update applies an incremental content/annotation change to one view.
type Update struct {
	ViewID ViewID        `json:"view_id"`
	Update UpdatePayload `json:"update"`
}

// UpdatePayload carries the op batch plus document state flags.
type UpdatePayload struct {
	Ops         []UpdateOp      `json:"ops"`
	Pristine    bool            `json:"pristine"`
	Annotations json.RawMessage `json:"annotations,omitempty"`
}

// ScrollTo asks a view to bring a position into its visible region.
type ScrollTo struct {
	ViewID ViewID `json:"view_id"`
	Line   int    `json:"line"`
	Col    int    `json:"col"`
}

// DefStyle defines or replaces one entry in the shared style table.
// Colors are 32-bit ARGB; absent fields keep defaults.
type DefStyle struct {
	ID        int     `json:"id"`
	FgColor   *uint32 `json:"fg_color,omitempty"`
	BgColor   *uint32 `json:"bg_color,omitempty"`
	Weight    *int    `json:"weight,omitempty"`
	Italic    bool    `json:"italic,omitempty"`
	Underline bool    `json:"underline,omitempty"`
}

// ThemeChanged announces the engine's new active theme.
type ThemeChanged struct {
	Name  string        `json:"name"`
	Theme ThemeSettings `json:"theme"`
}

// ThemeSettings is the subset of theme colors the front-end renders
// with. All fields are optional on the wire.
type ThemeSettings struct {
	Foreground              *Color `json:"foreground,omitempty"`
	Background              *Color `json:"background,omitempty"`
	Caret                   *Color `json:"caret,omitempty"`
	LineHighlight           *Color `json:"line_highlight,omitempty"`
	Selection               *Color `json:"selection,omitempty"`
	SelectionForeground     *Color `json:"selection_foreground,omitempty"`
	InactiveSelection       *Color `json:"inactive_selection,omitempty"`
	FindHighlight           *Color `json:"find_highlight,omitempty"`
	FindHighlightForeground *Color `json:"find_highlight_foreground,omitempty"`
	Gutter                  *Color `json:"gutter,omitempty"`
	GutterForeground        *Color `json:"gutter_foreground,omitempty"`
	Shadow                  *Color `json:"shadow,omitempty"`
}

// AvailableThemes lists every selectable theme.
type AvailableThemes struct {
	Themes []string `json:"themes"`
}

// PluginDescription is one plugin's availability record.
type PluginDescription struct {
	Name    string `json:"name"`
	Running bool   `json:"running"`
}

// AvailablePlugins replaces a view's plugin-availability mapping.
type AvailablePlugins struct {
	ViewID  ViewID              `json:"view_id"`
	Plugins []PluginDescription `json:"plugins"`
}

// PluginStarted marks one plugin running for a view.
type PluginStarted struct {
	ViewID ViewID `json:"view_id"`
	Plugin string `json:"plugin"`
}

// PluginStopped marks one plugin stopped for a view. A nonzero code
// means abnormal exit.
type PluginStopped struct {
	ViewID ViewID `json:"view_id"`
	Plugin string `json:"plugin"`
	Code   int    `json:"code"`
}

// Command is one plugin-contributed command.
type Command struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	RPCCmd      json.RawMessage `json:"rpc_cmd"`
	CmdName     string          `json:"cmd_name"`
}

// UpdateCmds replaces one plugin's command list on a view.
type UpdateCmds struct {
	ViewID ViewID    `json:"view_id"`
	Plugin string    `json:"plugin"`
	Cmds   []Command `json:"cmds"`
}

// ConfigChanged forwards a partial configuration diff to a view.
type ConfigChanged struct {
	ViewID  ViewID         `json:"view_id"`
	Changes map[string]any `json:"changes"`
}

// AvailableLanguages lists every language the engine can highlight.
type AvailableLanguages struct {
	Languages []string `json:"languages"`
}

// LanguageChanged announces a view's new syntax language.
type LanguageChanged struct {
	ViewID     ViewID `json:"view_id"`
	LanguageID string `json:"language_id"`
}

// Alert surfaces a modal, user-dismissable message.
type Alert struct {
	Msg string `json:"msg"`
}

// AddStatusItem adds one status-bar item to a view.
type AddStatusItem struct {
	ViewID    ViewID `json:"view_id"`
	Source    string `json:"source"`
	Key       string `json:"key"`
	Value     string `json:"value"`
	Alignment string `json:"alignment"`
}

// UpdateStatusItem changes the value of an existing status item.
type UpdateStatusItem struct {
	ViewID ViewID `json:"view_id"`
	Key    string `json:"key"`
	Value  string `json:"value"`
}

// RemoveStatusItem deletes one status item from a view.
type RemoveStatusItem struct {
	ViewID ViewID `json:"view_id"`
	Key    string `json:"key"`
}

// ShowHover delivers the engine's answer to a hover request.
type ShowHover struct {
	ViewID    ViewID `json:"view_id"`
	RequestID int    `json:"request_id"`
	Result    string `json:"result"`
}

// FindQuery is the engine's record of one active find query.
type FindQuery struct {
	ID            int    `json:"id"`
	Chars         string `json:"chars"`
	CaseSensitive bool   `json:"case_sensitive"`
	IsRegex       bool   `json:"is_regex"`
	WholeWords    bool   `json:"whole_words"`
	Matches       int    `json:"matches"`
	Lines         []int  `json:"lines,omitempty"`
}

// FindStatus reports the state of a view's find session.
type FindStatus struct {
	ViewID  ViewID      `json:"view_id"`
	Queries []FindQuery `json:"queries"`
}

// ReplaceState is the engine's record of the active replacement.
type ReplaceState struct {
	Chars        string `json:"chars"`
	PreserveCase bool   `json:"preserve_case"`
}

// ReplaceStatus reports the state of a view's replace session.
type ReplaceStatus struct {
	ViewID ViewID       `json:"view_id"`
	Status ReplaceState `json:"status"`
}

func (Update) notification()             {}
func (ScrollTo) notification()           {}
func (DefStyle) notification()           {}
func (ThemeChanged) notification()       {}
func (AvailableThemes) notification()    {}
func (AvailablePlugins) notification()   {}
func (PluginStarted) notification()      {}
func (PluginStopped) notification()      {}
func (UpdateCmds) notification()         {}
func (ConfigChanged) notification()      {}
func (AvailableLanguages) notification() {}
func (LanguageChanged) notification()    {}
func (Alert) notification()              {}
func (AddStatusItem) notification()      {}
func (UpdateStatusItem) notification()   {}
func (RemoveStatusItem) notification()   {}
func (ShowHover) notification()          {}
func (FindStatus) notification()         {}
func (ReplaceStatus) notification()      {}

// DecodeNotification maps a method name to its typed payload.
func DecodeNotification(method string, params json.RawMessage) (Notification, error) {
	var (
		n   Notification
		err error
	)

	switch method {
	case "update":
		n, err = decodeInto[Update](params)
	case "scroll_to":
		n, err = decodeInto[ScrollTo](params)
	case "def_style":
		n, err = decodeInto[DefStyle](params)
	case "theme_changed":
		n, err = decodeInto[ThemeChanged](params)
	case "available_themes":
		n, err = decodeInto[AvailableThemes](params)
	case "available_plugins":
		n, err = decodeInto[AvailablePlugins](params)
	case "plugin_started":
		n, err = decodeInto[PluginStarted](params)
	case "plugin_stopped":
		n, err = decodeInto[PluginStopped](params)
	case "update_cmds":
		n, err = decodeInto[UpdateCmds](params)
	case "config_changed":
		n, err = decodeInto[ConfigChanged](params)
	case "available_languages":
		n, err = decodeInto[AvailableLanguages](params)
	case "language_changed":
		n, err = decodeInto[LanguageChanged](params)
	case "alert":
		n, err = decodeInto[Alert](params)
	case "add_status_item":
		n, err = decodeInto[AddStatusItem](params)
	case "update_status_item":
		n, err = decodeInto[UpdateStatusItem](params)
	case "remove_status_item":
		n, err = decodeInto[RemoveStatusItem](params)
	case "show_hover":
		n, err = decodeInto[ShowHover](params)
	case "find_status":
		n, err = decodeInto[FindStatus](params)
	case "replace_status":
		n, err = decodeInto[ReplaceStatus](params)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, method)
	}

	if err != nil {
		return nil, &DecodeError{Method: method, Err: err}
	}
	return n, nil
}

// decodeInto unmarshals params into a concrete notification type.
func decodeInto[T Notification](params json.RawMessage) (T, error) {
	var v T
	if err := json.Unmarshal(params, &v); err != nil {
		return v, err
	}
	return v, nil
}

// Package frontend routes decoded engine traffic into front-end state:
// the view registry, the shared style table, and the theme state. It
// owns the work queue that serializes view mutations onto the UI
// goroutine.
package frontend

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rivo/uniseg"

	"github.com/sw5cc/xi-term/internal/config"
	"github.com/sw5cc/xi-term/internal/core"
	"github.com/sw5cc/xi-term/internal/editor"
	"github.com/sw5cc/xi-term/internal/logging"
	"github.com/sw5cc/xi-term/internal/style"
)

// Handler is the core.Handler installed on the dispatcher, so both of
// its methods run on the transport's reader goroutine, one message at
// a time, in wire order.
//
// Global tables (style map, theme state, name lists) are locked and
// mutated in place. Per-view state is owned by the UI goroutine, so
// view mutations are posted to the work queue. The view lookup happens
// inside the posted closure: a view registered on the UI goroutine
// right after its new_view response is already visible to closures
// posted while the registration was in flight.
type Handler struct {
	views   *editor.Registry
	styles  *style.Map
	state   *style.State
	persist *config.State
	queue   *Queue
	logger  *logging.Logger

	measure func(string) float64

	onAlert  func(string)
	onHover  func(core.ViewID, string)
	onDamage func()

	mu        sync.Mutex
	themes    []string
	languages []string
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithLogger sets the handler's logger.
func WithLogger(l *logging.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = l.WithComponent("frontend")
	}
}

// WithAlertFunc sets the callback for engine alerts. It runs on the
// queue's consumer. Without one, alerts are logged.
func WithAlertFunc(fn func(msg string)) HandlerOption {
	return func(h *Handler) {
		h.onAlert = fn
	}
}

// WithHoverFunc sets the callback for hover results. It runs on the
// queue's consumer, only for views present in the registry.
func WithHoverFunc(fn func(view core.ViewID, text string)) HandlerOption {
	return func(h *Handler) {
		h.onHover = fn
	}
}

// WithDamageFunc sets the callback invoked after a view mutation, on
// the queue's consumer. The terminal front-end schedules a repaint
// from it.
func WithDamageFunc(fn func()) HandlerOption {
	return func(h *Handler) {
		h.onDamage = fn
	}
}

// WithMeasureFunc overrides the string-width measurer used to answer
// measure_width.
func WithMeasureFunc(fn func(s string) float64) HandlerOption {
	return func(h *Handler) {
		h.measure = fn
	}
}

// NewHandler wires the handler to the state it routes into. persist
// may be nil; theme choices are then not written to disk.
func NewHandler(views *editor.Registry, styles *style.Map, state *style.State, persist *config.State, queue *Queue, opts ...HandlerOption) *Handler {
	h := &Handler{
		views:   views,
		styles:  styles,
		state:   state,
		persist: persist,
		queue:   queue,
		logger:  logging.GetLogger().WithComponent("frontend"),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.measure == nil {
		h.measure = h.metricWidth
	}
	return h
}

// HandleNotification routes one engine notification.
func (h *Handler) HandleNotification(n core.Notification) {
	switch n := n.(type) {
	case core.Update:
		h.postView("update", n.ViewID, func(v *editor.View) {
			if err := v.ApplyUpdate(n.Update); err != nil {
				h.logger.Error("update for %s not applied: %v", n.ViewID, err)
			}
		})

	case core.ScrollTo:
		h.postView("scroll_to", n.ViewID, func(v *editor.View) {
			v.SetCaret(n.Line, n.Col)
		})

	case core.DefStyle:
		// The style table is locked, and lines referencing the new id
		// may follow in the very next message. Define it now rather
		// than after a queue round trip.
		h.styles.Define(n)

	case core.ThemeChanged:
		h.applyTheme(n)

	case core.AvailableThemes:
		h.mu.Lock()
		h.themes = append([]string(nil), n.Themes...)
		h.mu.Unlock()

	case core.AvailablePlugins:
		h.postView("available_plugins", n.ViewID, func(v *editor.View) {
			v.SetAvailablePlugins(n.Plugins)
		})

	case core.PluginStarted:
		h.postView("plugin_started", n.ViewID, func(v *editor.View) {
			v.PluginStarted(n.Plugin)
		})

	case core.PluginStopped:
		if n.Code != 0 {
			h.logger.Warn("plugin %s on %s exited with code %d", n.Plugin, n.ViewID, n.Code)
		}
		h.postView("plugin_stopped", n.ViewID, func(v *editor.View) {
			v.PluginStopped(n.Plugin)
		})

	case core.UpdateCmds:
		h.postView("update_cmds", n.ViewID, func(v *editor.View) {
			v.SetCommands(n.Plugin, n.Cmds)
		})

	case core.ConfigChanged:
		h.postView("config_changed", n.ViewID, func(v *editor.View) {
			v.MergeConfig(n.Changes)
			h.applyFontConfig(n.Changes)
		})

	case core.AvailableLanguages:
		h.mu.Lock()
		h.languages = append([]string(nil), n.Languages...)
		h.mu.Unlock()

	case core.LanguageChanged:
		h.postView("language_changed", n.ViewID, func(v *editor.View) {
			v.SetLanguage(n.LanguageID)
		})

	case core.Alert:
		h.queue.Post(func() {
			if h.onAlert != nil {
				h.onAlert(n.Msg)
				return
			}
			h.logger.Info("engine alert: %s", n.Msg)
		})

	case core.AddStatusItem:
		h.postView("add_status_item", n.ViewID, func(v *editor.View) {
			v.Status().Add(editor.StatusItem{
				Source:    n.Source,
				Key:       n.Key,
				Value:     n.Value,
				Alignment: n.Alignment,
			})
		})

	case core.UpdateStatusItem:
		h.postView("update_status_item", n.ViewID, func(v *editor.View) {
			if !v.Status().Update(n.Key, n.Value) {
				h.logger.Warn("status item %q not present on %s", n.Key, n.ViewID)
			}
		})

	case core.RemoveStatusItem:
		h.postView("remove_status_item", n.ViewID, func(v *editor.View) {
			v.Status().Remove(n.Key)
		})

	case core.ShowHover:
		h.postView("show_hover", n.ViewID, func(v *editor.View) {
			if h.onHover != nil {
				h.onHover(v.ID(), n.Result)
			}
		})

	case core.FindStatus:
		h.postView("find_status", n.ViewID, func(v *editor.View) {
			v.SetFindStatus(n.Queries)
		})

	case core.ReplaceStatus:
		h.postView("replace_status", n.ViewID, func(v *editor.View) {
			v.SetReplaceStatus(n.Status)
		})

	default:
		h.logger.Warn("notification %T has no route", n)
	}
}

// HandleRequest answers engine-originated requests. measure_width is
// the only one the engine sends today.
func (h *Handler) HandleRequest(method string, params json.RawMessage) (any, error) {
	switch method {
	case "measure_width":
		var queries []core.MeasureWidthQuery
		if err := json.Unmarshal(params, &queries); err != nil {
			return nil, &core.DecodeError{Method: method, Err: err}
		}
		widths := make([][]float64, len(queries))
		for i, q := range queries {
			ws := make([]float64, len(q.Strings))
			for j, s := range q.Strings {
				ws[j] = h.measure(s)
			}
			widths[i] = ws
		}
		return widths, nil

	default:
		return nil, fmt.Errorf("%w: %s", core.ErrUnknownMethod, method)
	}
}

// Themes returns the last advertised theme list.
func (h *Handler) Themes() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.themes...)
}

// Languages returns the last advertised language list.
func (h *Handler) Languages() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.languages...)
}

// applyTheme installs a new theme everywhere it is read: the style
// table's reserved entries, the shared theme state (whose redraw hook
// fires on every apply, changed or not), and the persisted choice so
// the next session starts with the same theme. Views are then marked
// dirty on the UI goroutine; every one of them renders with theme
// colors.
func (h *Handler) applyTheme(n core.ThemeChanged) {
	t := style.FromSettings(n.Name, n.Theme)
	h.styles.SetTheme(t)
	h.state.ApplyTheme(t)

	if h.persist != nil {
		if err := h.persist.SetTheme(n.Name); err != nil {
			h.logger.Warn("theme choice not persisted: %v", err)
		}
	}

	h.queue.Post(func() {
		h.views.Each(func(v *editor.View) {
			v.MarkDirty()
		})
		h.damage()
	})
}

// applyFontConfig picks font changes out of a config diff. The
// terminal draws every view with one grid, so font settings are
// global; the last diff wins regardless of which view carried it.
func (h *Handler) applyFontConfig(changes map[string]any) {
	f := h.state.Font()
	changed := false
	if face, ok := changes["font_face"].(string); ok && face != "" && face != f.Family {
		f.Family = face
		changed = true
	}
	if size, ok := changes["font_size"].(float64); ok && size > 0 && size != f.Size {
		f.Size = size
		changed = true
	}
	if changed {
		h.state.ApplyFont(f)
	}
}

// postView schedules a mutation of one view on the queue's consumer.
// A view the registry has never held is logged and dropped there; one
// stale id must not take the session down.
func (h *Handler) postView(method string, id core.ViewID, fn func(*editor.View)) {
	h.queue.Post(func() {
		v, ok := h.views.Get(id)
		if !ok {
			h.logger.Warn("%s for unknown view %s dropped", method, id)
			return
		}
		fn(v)
		h.damage()
	})
}

func (h *Handler) damage() {
	if h.onDamage != nil {
		h.onDamage()
	}
}

// metricWidth estimates a string's width from the derived font
// metrics. Cell counting matches what the renderer draws, so the
// engine's wrap decisions line up with the grid.
func (h *Handler) metricWidth(s string) float64 {
	return float64(uniseg.StringWidth(s)) * h.state.Metrics().CharWidth
}

package core

import (
	"encoding/json"
	"fmt"

	"github.com/sw5cc/xi-term/internal/logging"
)

// Client wraps the dispatcher with one typed method per RPC the
// front-end issues. All methods are safe from any goroutine except the
// reader goroutine (synchronous calls would deadlock there).
type Client struct {
	dispatcher *Dispatcher
	logger     *logging.Logger
}

// NewClient creates a client over the given dispatcher.
func NewClient(d *Dispatcher) *Client {
	return &Client{
		dispatcher: d,
		logger:     logging.GetLogger().WithComponent("client"),
	}
}

// Dispatcher exposes the underlying dispatcher.
func (c *Client) Dispatcher() *Dispatcher {
	return c.dispatcher
}

// ClientStarted is the first message of the startup handshake. It
// tells the engine where the front-end keeps bundled plugins and which
// directory holds user configuration.
func (c *Client) ClientStarted(extrasDir, configDir string) error {
	return c.dispatcher.Notify("client_started", map[string]string{
		"client_extras_dir": extrasDir,
		"config_dir":        configDir,
	})
}

// NewView asks the engine to open a document and returns the view id
// it assigns. An empty path opens an unnamed buffer.
func (c *Client) NewView(filePath string) (ViewID, error) {
	params := map[string]string{}
	if filePath != "" {
		params["file_path"] = filePath
	}

	var id string
	if err := c.dispatcher.RequestInto("new_view", params, &id); err != nil {
		return "", fmt.Errorf("new_view: %w", err)
	}
	return ViewID(id), nil
}

// CloseView tells the engine a view is gone. Fire-and-forget: the
// engine may still emit notifications for the id afterwards, which the
// routing layer drops.
func (c *Client) CloseView(view ViewID) error {
	return c.dispatcher.Notify("close_view", map[string]ViewID{
		"view_id": view,
	})
}

// Save writes a view's content to the given path. The engine owns the
// buffer; the front-end never sees the bytes.
func (c *Client) Save(view ViewID, filePath string) error {
	return c.dispatcher.Notify("save", map[string]any{
		"view_id":   view,
		"file_path": filePath,
	})
}

// SetTheme asks the engine to activate a theme. The engine answers
// with a theme_changed notification carrying the full color set.
func (c *Client) SetTheme(name string) error {
	return c.dispatcher.Notify("set_theme", map[string]string{
		"theme_name": name,
	})
}

// SetLanguage pins a view's syntax language.
func (c *Client) SetLanguage(view ViewID, languageID string) error {
	return c.dispatcher.Notify("set_language", map[string]any{
		"view_id":     view,
		"language_id": languageID,
	})
}

// ModifyUserConfig applies a settings diff in the named config domain.
func (c *Client) ModifyUserConfig(domain any, changes map[string]any) error {
	return c.dispatcher.Notify("modify_user_config", map[string]any{
		"domain":  domain,
		"changes": changes,
	})
}

// TracingConfig toggles sample collection inside the engine so both
// sides trace over roughly the same window.
func (c *Client) TracingConfig(enabled bool) error {
	return c.dispatcher.Notify("tracing_config", map[string]bool{
		"enabled": enabled,
	})
}

// SaveTrace asks the engine to write the combined trace to the
// destination path: its own samples concatenated with the front-end
// samples passed here.
func (c *Client) SaveTrace(destination string, frontendSamples any) error {
	return c.dispatcher.Notify("save_trace", map[string]any{
		"destination":      destination,
		"frontend_samples": frontendSamples,
	})
}

// StartPlugin launches a named plugin for a view.
func (c *Client) StartPlugin(view ViewID, plugin string) error {
	return c.dispatcher.Notify("plugin", map[string]any{
		"command":     "start",
		"view_id":     view,
		"plugin_name": plugin,
	})
}

// StopPlugin stops a named plugin for a view.
func (c *Client) StopPlugin(view ViewID, plugin string) error {
	return c.dispatcher.Notify("plugin", map[string]any{
		"command":     "stop",
		"view_id":     view,
		"plugin_name": plugin,
	})
}

// Edit sends a fire-and-forget edit-namespace notification for a view.
// Most user input funnels through here; see edit.go for the wrappers.
func (c *Client) Edit(view ViewID, method string, params any) error {
	return c.dispatcher.Notify("edit", editEnvelope{
		Method: method,
		ViewID: view,
		Params: params,
	})
}

// EditRequest sends a synchronous edit-namespace request and returns
// the raw result. Used by cut and copy, which return the affected text.
func (c *Client) EditRequest(view ViewID, method string, params any) (json.RawMessage, error) {
	return c.dispatcher.Request("edit", editEnvelope{
		Method: method,
		ViewID: view,
		Params: params,
	})
}

// editEnvelope is the nested shape of edit-namespace traffic.
type editEnvelope struct {
	Method string `json:"method"`
	ViewID ViewID `json:"view_id"`
	Params any    `json:"params,omitempty"`
}

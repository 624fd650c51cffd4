// Package app wires the front-end together: configuration, logging,
// the spawned engine with its RPC stack, the shared UI state, and the
// terminal loop. It owns startup order and shutdown order.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/gdamore/tcell/v2"

	"github.com/sw5cc/xi-term/internal/config"
	"github.com/sw5cc/xi-term/internal/core"
	"github.com/sw5cc/xi-term/internal/editor"
	"github.com/sw5cc/xi-term/internal/frontend"
	"github.com/sw5cc/xi-term/internal/logging"
	"github.com/sw5cc/xi-term/internal/style"
	"github.com/sw5cc/xi-term/internal/term"
	"github.com/sw5cc/xi-term/internal/trace"
)

// Options configures the application. Unset fields fall back to the
// settings file, then to built-in defaults.
type Options struct {
	// CorePath is the engine executable to spawn.
	CorePath string

	// ConfigDir overrides the per-user configuration directory.
	ConfigDir string

	// ExtrasDir is advertised to the engine as client_extras_dir;
	// bundled plugins live there.
	ExtrasDir string

	// Files are opened on startup. Empty opens one scratch buffer.
	Files []string

	// Theme overrides the persisted theme for this session.
	Theme string

	// LogLevel sets the logging verbosity (debug, info, warn, error).
	LogLevel string

	// LogFile receives log output. Empty discards logs; the terminal
	// itself is in raw mode and cannot take them.
	LogFile string

	// Trace starts trace sampling on both sides at startup.
	Trace bool

	// Screen overrides the real terminal; tests inject a simulation
	// screen here.
	Screen tcell.Screen
}

// Application is the assembled front-end. New builds every component
// in dependency order; Run performs the engine handshake and blocks in
// the terminal loop; Shutdown releases everything in reverse.
type Application struct {
	opts Options

	logger  *logging.Logger
	logFile *os.File

	configDir string
	extrasDir string
	persist   *config.State
	settings  config.Settings

	recorder *trace.Recorder
	tracing  *trace.Controller

	proc       *core.CoreProcess
	transport  *core.Transport
	dispatcher *core.Dispatcher
	client     *core.Client

	views  *editor.Registry
	styles *style.Map
	state  *style.State
	queue  *frontend.Queue
	front  *frontend.Handler
	ui     *term.UI

	running      atomic.Bool
	shutdownOnce sync.Once
}

// New builds the application. On failure the partially built
// components are torn down and the error names the component that
// refused to start.
func New(opts Options) (*Application, error) {
	a := &Application{opts: opts}
	if err := a.bootstrap(); err != nil {
		a.Shutdown()
		return nil, err
	}
	return a, nil
}

// bootstrap initializes all components in dependency order.
func (a *Application) bootstrap() error {
	// 1. Config directory, persisted state, settings file.
	dir := a.opts.ConfigDir
	if dir == "" {
		d, err := config.Dir()
		if err != nil {
			return &InitError{Component: "config dir", Err: err}
		}
		dir = d
	}
	if err := config.Ensure(dir); err != nil {
		return &InitError{Component: "config dir", Err: err}
	}
	a.configDir = dir
	a.persist = config.LoadState(dir)

	settings, settingsErr := config.LoadSettings(dir)
	a.settings = settings

	// 2. Logging. The level and destination resolve flags over the
	// settings file; components created from here on share the logger.
	if err := a.initLogging(); err != nil {
		return &InitError{Component: "logging", Err: err}
	}
	if settingsErr != nil {
		a.logger.Warn("settings unusable, running with defaults: %v", settingsErr)
	}

	// 3. Trace recorder. Sampling stays off until Run has told the
	// engine to sample too.
	a.recorder = trace.NewRecorder()

	// 4. Extras dir. The engine loads bundled plugins from it, so a
	// configured path that does not exist is a setup error.
	a.extrasDir = a.opts.ExtrasDir
	if a.extrasDir == "" {
		a.extrasDir = a.settings.ExtrasDir
	}
	if a.extrasDir != "" {
		if _, err := os.Stat(a.extrasDir); err != nil {
			return &InitError{Component: "extras dir", Err: err}
		}
	}

	// 5. Core process and the RPC stack over its pipes.
	corePath := a.opts.CorePath
	if corePath == "" {
		corePath = a.settings.CorePath
	}
	proc, err := core.SpawnCore(context.Background(), core.CoreConfig{Command: corePath})
	if err != nil {
		return &InitError{Component: "core process", Err: err}
	}
	a.proc = proc
	a.transport = core.NewTransport(proc.Stdout(), proc.Stdin(), nil)
	a.transport.SetLogger(a.logger)
	a.dispatcher = core.NewDispatcher(a.transport,
		core.WithLogger(a.logger),
		core.WithRecorder(a.recorder),
	)
	a.client = core.NewClient(a.dispatcher)
	a.tracing = trace.NewController(a.recorder, a.client)

	// 6. Shared UI state.
	a.views = editor.NewRegistry()
	a.styles = style.NewMap()
	a.state = style.NewState()
	a.queue = frontend.NewQueue()

	font := style.DefaultFont()
	if a.settings.Font.Family != "" {
		font.Family = a.settings.Font.Family
	}
	if a.settings.Font.Size > 0 {
		font.Size = a.settings.Font.Size
	}
	a.state.ApplyFont(font)

	// 7. Notification routing. The handler must be registered before
	// the dispatcher starts reading.
	a.front = frontend.NewHandler(a.views, a.styles, a.state, a.persist, a.queue,
		frontend.WithLogger(a.logger),
		frontend.WithDamageFunc(func() { a.ui.MarkDamaged() }),
		frontend.WithAlertFunc(func(msg string) { a.ui.ShowMessage(msg) }),
		frontend.WithHoverFunc(func(view core.ViewID, text string) { a.ui.ShowHover(view, text) }),
	)
	a.dispatcher.SetHandler(a.front)
	if err := a.dispatcher.Start(); err != nil {
		return &InitError{Component: "dispatcher", Err: err}
	}

	// 8. Terminal UI. The damage callbacks above run only from queued
	// closures on the UI goroutine, after this field is set.
	ui, err := term.New(term.Options{
		Client:   a.client,
		Views:    a.views,
		Styles:   a.styles,
		State:    a.state,
		Persist:  a.persist,
		Queue:    a.queue,
		Frontend: a.front,
		Tracing:  a.tracing,
		ConnDead: a.dispatcher.Done(),
		Gutter:   a.settings.GutterEnabled(),
		Logger:   a.logger,
		Screen:   a.opts.Screen,
	})
	if err != nil {
		return &InitError{Component: "terminal", Err: err}
	}
	a.ui = ui
	a.state.OnRedraw(a.ui.ScheduleRepaint)

	return nil
}

// initLogging builds the shared logger from flags and settings.
func (a *Application) initLogging() error {
	level := a.opts.LogLevel
	if level == "" {
		level = a.settings.LogLevel
	}

	var out io.Writer = io.Discard
	path := a.opts.LogFile
	if path == "" {
		path = a.settings.LogFile
	}
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		a.logFile = f
		out = f
	}

	a.logger = logging.NewLogger(logging.LoggerConfig{
		Level:  logging.ParseLogLevel(level),
		Output: out,
	})
	logging.SetLogger(a.logger)
	return nil
}

// Run performs the startup handshake, opens the initial files, and
// blocks in the terminal loop. A user-initiated quit returns ErrQuit;
// anything else is a failure.
func (a *Application) Run() error {
	if !a.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer a.running.Store(false)

	// Handshake: advertise ourselves, then restore the theme the user
	// last picked. theme_changed comes back through the normal route.
	if err := a.client.ClientStarted(a.extrasDir, a.configDir); err != nil {
		return &InitError{Component: "handshake", Err: err}
	}
	theme := a.opts.Theme
	if theme == "" {
		theme = a.persist.Theme()
	}
	if err := a.client.SetTheme(theme); err != nil {
		return &InitError{Component: "handshake", Err: err}
	}

	if a.opts.Trace {
		if err := a.tracing.SetEnabled(true); err != nil {
			a.logger.Warn("tracing not enabled: %v", err)
		}
	}

	if err := a.ui.Init(); err != nil {
		return &InitError{Component: "terminal", Err: err}
	}
	defer a.ui.Fini()

	files := a.opts.Files
	if len(files) == 0 {
		files = []string{""}
	}
	for _, f := range files {
		if err := a.ui.Open(f); err != nil {
			return err
		}
	}

	if err := a.ui.Run(); err != nil {
		return err
	}
	return ErrQuit
}

// Quit asks the terminal loop to exit, as if the user had quit. Safe
// from any goroutine; signal handlers call it.
func (a *Application) Quit() {
	if a.ui != nil {
		a.ui.Quit()
	}
}

// Shutdown releases everything in reverse start order. Safe to call
// more than once, and after a failed New.
func (a *Application) Shutdown() {
	a.shutdownOnce.Do(func() {
		if a.queue != nil {
			a.queue.Close()
		}
		if a.dispatcher != nil {
			// Unblocks anyone waiting on a response.
			_ = a.dispatcher.Close()
		}
		if a.proc != nil {
			a.proc.Stop()
		}
		if a.logFile != nil {
			_ = a.logFile.Close()
		}
	})
}

// IsRunning reports whether the terminal loop is active.
func (a *Application) IsRunning() bool {
	return a.running.Load()
}

// Client returns the engine RPC surface.
func (a *Application) Client() *core.Client {
	return a.client
}

// Views returns the view registry.
func (a *Application) Views() *editor.Registry {
	return a.views
}

// Tracing returns the trace controller.
func (a *Application) Tracing() *trace.Controller {
	return a.tracing
}

// Logger returns the application logger.
func (a *Application) Logger() *logging.Logger {
	if a.logger == nil {
		return logging.GetLogger()
	}
	return a.logger
}

// ConfigDir returns the resolved configuration directory.
func (a *Application) ConfigDir() string {
	return a.configDir
}

// Settings returns the loaded front-end settings.
func (a *Application) Settings() config.Settings {
	return a.settings
}

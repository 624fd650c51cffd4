package app

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/sw5cc/xi-term/internal/config"
	"github.com/sw5cc/xi-term/internal/core"
)

// TestMain doubles as a fake engine. When the marker variable is set,
// the test binary speaks just enough of the engine protocol to drive
// the application, then exits on stdin EOF. Tests spawn the binary
// itself as the core process.
func TestMain(m *testing.M) {
	if os.Getenv("XI_TERM_FAKE_ENGINE") == "1" {
		fakeEngineMain()
		return
	}
	os.Exit(m.Run())
}

// fakeEngineMain answers new_view requests, pushes an update and a
// scroll_to for each opened view, and echoes set_theme back as
// theme_changed the way the real engine does. When a methods file is
// named in the environment, every received method is appended to it,
// in arrival order, before it is handled.
func fakeEngineMain() {
	in := bufio.NewScanner(os.Stdin)
	in.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	out := bufio.NewWriter(os.Stdout)

	var methods *os.File
	if path := os.Getenv("XI_TERM_FAKE_ENGINE_METHODS"); path != "" {
		methods, _ = os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	}

	views := 0
	for in.Scan() {
		var msg struct {
			ID     *int64          `json:"id"`
			Method string          `json:"method"`
			Params json.RawMessage `json:"params"`
		}
		if err := json.Unmarshal(in.Bytes(), &msg); err != nil {
			continue
		}
		if methods != nil && msg.Method != "" {
			fmt.Fprintln(methods, msg.Method)
		}

		switch msg.Method {
		case "set_theme":
			var p struct {
				ThemeName string `json:"theme_name"`
			}
			_ = json.Unmarshal(msg.Params, &p)
			fmt.Fprintf(out, `{"method":"theme_changed","params":{"name":%q,"theme":{}}}`+"\n", p.ThemeName)

		case "new_view":
			if msg.ID == nil {
				continue
			}
			views++
			id := fmt.Sprintf("view-id-%d", views)
			fmt.Fprintf(out, `{"id":%d,"result":%q}`+"\n", *msg.ID, id)
			fmt.Fprintf(out, `{"method":"update","params":{"view_id":%q,"update":{"ops":[{"op":"ins","n":1,"lines":[{"text":"hello from the engine\n","ln":1,"cursor":[0]}]}],"pristine":true}}}`+"\n", id)
			fmt.Fprintf(out, `{"method":"scroll_to","params":{"view_id":%q,"line":0,"col":0}}`+"\n", id)

		default:
			if msg.ID != nil {
				fmt.Fprintf(out, `{"id":%d,"result":null}`+"\n", *msg.ID)
			}
		}
		out.Flush()
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestApplicationEndToEnd(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XI_TERM_FAKE_ENGINE", "1")

	logPath := filepath.Join(dir, "xi-term.log")
	screen := tcell.NewSimulationScreen("UTF-8")

	app, err := New(Options{
		CorePath:  os.Args[0],
		ConfigDir: dir,
		Theme:     "Solarized (dark)",
		LogLevel:  "debug",
		LogFile:   logPath,
		Screen:    screen,
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer app.Shutdown()

	done := make(chan error, 1)
	go func() { done <- app.Run() }()

	waitFor(t, "the scratch view", func() bool {
		return app.Views().Len() == 1
	})
	waitFor(t, "the first update to render", func() bool {
		// Row 0 is gutter (2 cells for a one-line document) then text.
		r, _, _, _ := screen.GetContent(2, 0)
		return r == 'h'
	})

	if !app.IsRunning() {
		t.Error("IsRunning() = false while the loop is up")
	}
	if err := app.Run(); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Run() = %v, want ErrAlreadyRunning", err)
	}

	app.Quit()
	select {
	case err := <-done:
		if !errors.Is(err, ErrQuit) {
			t.Errorf("Run() = %v, want ErrQuit", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not exit after Quit()")
	}

	// The theme_changed echo went through the normal route and stuck.
	if got := config.LoadState(dir).Theme(); got != "Solarized (dark)" {
		t.Errorf("persisted theme = %q, want %q", got, "Solarized (dark)")
	}

	info, err := os.Stat(logPath)
	if err != nil {
		t.Fatalf("log file missing: %v", err)
	}
	if info.Size() == 0 {
		t.Error("log file is empty")
	}
}

func TestApplicationOpensRequestedFiles(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XI_TERM_FAKE_ENGINE", "1")

	var files []string
	for _, name := range []string{"a.txt", "b.txt"} {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte("x\n"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		files = append(files, p)
	}

	app, err := New(Options{
		CorePath:  os.Args[0],
		ConfigDir: dir,
		Files:     files,
		Screen:    tcell.NewSimulationScreen("UTF-8"),
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer app.Shutdown()

	done := make(chan error, 1)
	go func() { done <- app.Run() }()

	waitFor(t, "both views", func() bool {
		return app.Views().Len() == 2
	})

	app.Quit()
	select {
	case err := <-done:
		if !errors.Is(err, ErrQuit) {
			t.Errorf("Run() = %v, want ErrQuit", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not exit after Quit()")
	}
}

// TestHandshakeOrder pins the wire prefix of a session: client_started
// first, then set_theme, then the first new_view. With no theme option
// and a fresh config dir, set_theme carries the default, which the
// engine echo then persists.
func TestHandshakeOrder(t *testing.T) {
	dir := t.TempDir()
	methodsPath := filepath.Join(dir, "methods.log")
	t.Setenv("XI_TERM_FAKE_ENGINE", "1")
	t.Setenv("XI_TERM_FAKE_ENGINE_METHODS", methodsPath)

	app, err := New(Options{
		CorePath:  os.Args[0],
		ConfigDir: dir,
		Screen:    tcell.NewSimulationScreen("UTF-8"),
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer app.Shutdown()

	done := make(chan error, 1)
	go func() { done <- app.Run() }()

	waitFor(t, "the scratch view", func() bool {
		return app.Views().Len() == 1
	})

	// The engine logs a method before replying, so with the new_view
	// response observed above the whole prefix is on disk.
	data, err := os.ReadFile(methodsPath)
	if err != nil {
		t.Fatalf("methods log missing: %v", err)
	}
	got := strings.Fields(string(data))
	want := []string{"client_started", "set_theme", "new_view"}
	if len(got) < len(want) {
		t.Fatalf("engine saw %v, want at least %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("engine saw %v, want prefix %v", got[:len(want)], want)
		}
	}

	app.Quit()
	select {
	case err := <-done:
		if !errors.Is(err, ErrQuit) {
			t.Errorf("Run() = %v, want ErrQuit", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not exit after Quit()")
	}

	// Theme() falls back to the default on an empty file, so check the
	// key really reached disk through the theme_changed echo.
	state, err := os.ReadFile(filepath.Join(dir, "state.json"))
	if err != nil {
		t.Fatalf("state file missing: %v", err)
	}
	if !strings.Contains(string(state), `"theme":"InspiredGitHub"`) {
		t.Errorf("state file %s does not record the default theme", state)
	}
}

func TestNewMissingCoreIsFatal(t *testing.T) {
	dir := t.TempDir()

	_, err := New(Options{
		ConfigDir: dir,
		CorePath:  filepath.Join(dir, "no-such-engine"),
	})
	if !errors.Is(err, core.ErrCoreNotFound) {
		t.Fatalf("New() = %v, want ErrCoreNotFound", err)
	}
	var initErr *InitError
	if !errors.As(err, &initErr) || initErr.Component != "core process" {
		t.Errorf("error = %v, want InitError for the core process", err)
	}

	// Config bootstrap ran before the spawn attempt.
	if _, err := os.Stat(config.PreferencesPath(dir)); err != nil {
		t.Errorf("preferences not seeded: %v", err)
	}
}

func TestNewMissingExtrasDirIsFatal(t *testing.T) {
	dir := t.TempDir()

	_, err := New(Options{
		ConfigDir: dir,
		ExtrasDir: filepath.Join(dir, "missing-extras"),
		CorePath:  "unused",
	})
	var initErr *InitError
	if !errors.As(err, &initErr) || initErr.Component != "extras dir" {
		t.Fatalf("New() = %v, want InitError for the extras dir", err)
	}
}

func TestShutdownIdempotent(t *testing.T) {
	t.Setenv("XI_TERM_FAKE_ENGINE", "1")

	app, err := New(Options{
		CorePath:  os.Args[0],
		ConfigDir: t.TempDir(),
		Screen:    tcell.NewSimulationScreen("UTF-8"),
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	app.Shutdown()
	app.Shutdown()
	app.Shutdown()
}

func TestInitErrorUnwrap(t *testing.T) {
	underlying := errors.New("boom")
	err := &InitError{Component: "thing", Err: underlying}

	if !errors.Is(err, underlying) {
		t.Error("errors.Is does not see through InitError")
	}
	if got, want := err.Error(), "init thing: boom"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

// Package main is the entry point for the xi-term front-end.
package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/sw5cc/xi-term/internal/app"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := newRootCmd().Execute(); err != nil {
		if errors.Is(err, app.ErrQuit) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var opts app.Options

	cmd := &cobra.Command{
		Use:     "xi-term [files...]",
		Short:   "Terminal front-end for the xi text engine",
		Version: fmt.Sprintf("%s (commit %s)", version, commit),
		Args:    cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Files = args
			return runEditor(opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().StringVar(&opts.CorePath, "core", "", "engine executable (default from settings, then \"xi-core\" in PATH)")
	cmd.Flags().StringVar(&opts.ConfigDir, "config-dir", "", "configuration directory (default $XI_CONFIG_DIR, then the per-user directory)")
	cmd.Flags().StringVar(&opts.ExtrasDir, "extras-dir", "", "directory with bundled plugins, advertised to the engine")
	cmd.Flags().StringVar(&opts.Theme, "theme", "", "theme for this session (default the persisted choice)")
	cmd.Flags().StringVar(&opts.LogLevel, "log-level", "", "log verbosity: debug, info, warn, error")
	cmd.Flags().StringVar(&opts.LogFile, "log-file", "", "write logs to this file (default discard; the terminal is taken)")
	cmd.Flags().BoolVar(&opts.Trace, "trace", false, "start trace sampling at startup")

	return cmd
}

func runEditor(opts app.Options) error {
	// Full-screen rendering needs a real terminal on both ends; refuse
	// redirected pipes before touching the screen.
	if !isTerminal(os.Stdin.Fd()) || !isTerminal(os.Stdout.Fd()) {
		return errors.New("stdin and stdout must be a terminal")
	}

	application, err := app.New(opts)
	if err != nil {
		return err
	}
	defer application.Shutdown()

	// In raw mode Ctrl-C arrives as a key event; these cover kill(1)
	// and closing terminal emulators.
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)
	go func() {
		<-signals
		application.Quit()
	}()

	return application.Run()
}

// isTerminal reports whether the descriptor is attached to a terminal,
// counting Cygwin pseudo terminals.
func isTerminal(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

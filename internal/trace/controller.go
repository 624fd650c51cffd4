package trace

import (
	"fmt"
	"io"

	"github.com/sw5cc/xi-term/internal/logging"
)

// CoreTracer is the slice of the core connection the controller needs:
// the RPC that toggles engine-side sampling and the one that writes
// the merged trace file.
type CoreTracer interface {
	TracingConfig(enabled bool) error
	SaveTrace(destination string, frontendSamples any) error
}

// Controller couples the local recorder to the engine's sampling so
// both sides collect over roughly the same window. There is no hard
// synchronization guarantee; the RPC just bounds the skew.
type Controller struct {
	recorder *Recorder
	core     CoreTracer
	logger   *logging.Logger
}

// NewController creates a controller over the recorder and engine.
func NewController(rec *Recorder, core CoreTracer) *Controller {
	return &Controller{
		recorder: rec,
		core:     core,
		logger:   logging.GetLogger().WithComponent("trace"),
	}
}

// Recorder returns the local sample buffer.
func (c *Controller) Recorder() *Recorder {
	return c.recorder
}

// SetEnabled toggles collection on both sides. The local flag flips
// first so no window exists where the engine samples and we drop.
func (c *Controller) SetEnabled(enabled bool) error {
	c.recorder.SetEnabled(enabled)
	if err := c.core.TracingConfig(enabled); err != nil {
		return fmt.Errorf("tracing_config: %w", err)
	}
	c.logger.Info("tracing %v", enabled)
	return nil
}

// Enabled reports whether local collection is on.
func (c *Controller) Enabled() bool {
	return c.recorder.Enabled()
}

// Export asks the engine to write the combined trace to destination:
// its samples concatenated with our snapshot. Failures are reported to
// the caller, never fatal; the snapshot is non-destructive so a retry
// exports the same samples.
func (c *Controller) Export(destination string) error {
	samples := c.recorder.Snapshot()
	events := ChromeEvents(samples, c.recorder.SessionID())
	if err := c.core.SaveTrace(destination, events); err != nil {
		return fmt.Errorf("save_trace: %w", err)
	}
	c.logger.Info("trace export requested: %s (%d samples)", destination, len(samples))
	return nil
}

// WriteTo dumps the local snapshot as a standalone Chrome trace,
// bypassing the engine. Used when the connection is gone.
func (c *Controller) WriteTo(w io.Writer) error {
	return WriteChrome(w, c.recorder.Snapshot(), c.recorder.SessionID())
}

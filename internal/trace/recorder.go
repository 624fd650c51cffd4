// Package trace collects performance samples on the front-end side and
// coordinates sampling with the core process, which keeps its own
// buffer. Samples are begin/end markers; an export merges both sides
// into one Chrome trace-event file.
package trace

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Phase marks what a sample represents, using Chrome trace-event
// phase letters.
type Phase string

const (
	PhaseBegin   Phase = "B"
	PhaseEnd     Phase = "E"
	PhaseInstant Phase = "I"
)

// Sample is one timestamped marker. Samples are value types; a
// snapshot never aliases recorder state.
type Sample struct {
	Name      string
	Category  string
	Phase     Phase
	Timestamp time.Time
}

// Recorder is the front-end sample buffer. Recording is cheap when
// disabled (one atomic load). Append order is emission order; Snapshot
// returns an ordered copy without clearing.
type Recorder struct {
	enabled atomic.Bool

	mu      sync.Mutex
	samples []Sample

	session uuid.UUID
}

// NewRecorder creates a disabled recorder with a fresh session id.
func NewRecorder() *Recorder {
	return &Recorder{
		samples: make([]Sample, 0, 256),
		session: uuid.New(),
	}
}

// SetEnabled toggles sample collection. Disabling keeps existing
// samples; only new ones are suppressed.
func (r *Recorder) SetEnabled(enabled bool) {
	r.enabled.Store(enabled)
}

// Enabled reports whether samples are being collected.
func (r *Recorder) Enabled() bool {
	return r.enabled.Load()
}

// SessionID identifies this recorder's lifetime in exports.
func (r *Recorder) SessionID() string {
	return r.session.String()
}

// Record appends one sample. No-op while disabled.
func (r *Recorder) Record(name, category string, phase Phase) {
	if !r.enabled.Load() {
		return
	}
	s := Sample{
		Name:      name,
		Category:  category,
		Phase:     phase,
		Timestamp: time.Now(),
	}
	r.mu.Lock()
	r.samples = append(r.samples, s)
	r.mu.Unlock()
}

// Snapshot returns all samples in emission order. The buffer is left
// untouched: callers deciding what to do with an export never race a
// concurrent reader by mutating shared state.
func (r *Recorder) Snapshot() []Sample {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Sample, len(r.samples))
	copy(out, r.samples)
	return out
}

// Len returns the number of collected samples.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.samples)
}

// Clear drops all samples. The enabled flag is unaffected.
func (r *Recorder) Clear() {
	r.mu.Lock()
	r.samples = r.samples[:0]
	r.mu.Unlock()
}

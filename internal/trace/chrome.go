package trace

import (
	"encoding/json"
	"io"
	"os"
)

// Chrome trace-event JSON. The engine merges our samples with its own,
// so the shapes here must stand alone as a loadable trace too (for
// engine-less export and tests).

// chromeEvent is one entry of the traceEvents array.
type chromeEvent struct {
	Name string         `json:"name"`
	Cat  string         `json:"cat"`
	Ph   string         `json:"ph"`
	Ts   int64          `json:"ts"`
	Pid  int            `json:"pid"`
	Tid  int            `json:"tid"`
	S    string         `json:"s,omitempty"`
	Args map[string]any `json:"args,omitempty"`
}

// ChromeEvents converts samples into Chrome trace-event objects, in
// order, prefixed with a process_name metadata event.
func ChromeEvents(samples []Sample, sessionID string) []map[string]any {
	pid := os.Getpid()

	out := make([]map[string]any, 0, len(samples)+1)
	out = append(out, map[string]any{
		"name": "process_name",
		"ph":   "M",
		"pid":  pid,
		"tid":  0,
		"args": map[string]any{"name": "xi-term", "session": sessionID},
	})

	for _, s := range samples {
		ev := chromeEvent{
			Name: s.Name,
			Cat:  s.Category,
			Ph:   string(s.Phase),
			Ts:   s.Timestamp.UnixMicro(),
			Pid:  pid,
			Tid:  1,
		}
		if s.Phase == PhaseInstant {
			ev.S = "t"
		}
		out = append(out, eventToMap(ev))
	}
	return out
}

// eventToMap keeps the exported slice homogeneous with the metadata
// entry.
func eventToMap(ev chromeEvent) map[string]any {
	m := map[string]any{
		"name": ev.Name,
		"cat":  ev.Cat,
		"ph":   ev.Ph,
		"ts":   ev.Ts,
		"pid":  ev.Pid,
		"tid":  ev.Tid,
	}
	if ev.S != "" {
		m["s"] = ev.S
	}
	if len(ev.Args) > 0 {
		m["args"] = ev.Args
	}
	return m
}

// WriteChrome writes a standalone Chrome trace file for the given
// samples. ui.perfetto.dev and chrome://tracing load it directly.
func WriteChrome(w io.Writer, samples []Sample, sessionID string) error {
	trace := map[string]any{
		"displayTimeUnit": "ms",
		"traceEvents":     ChromeEvents(samples, sessionID),
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(trace)
}

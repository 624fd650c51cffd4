package core

import (
	"bufio"
	"io"
	"sync"
	"sync/atomic"

	"github.com/sw5cc/xi-term/internal/logging"
)

// Scanner sizing for inbound lines. A full-screen update for a wide
// window can run to hundreds of kilobytes; the cap bounds a runaway
// engine rather than normal traffic.
const (
	readBufferSize = 1024 * 1024
	maxLineSize    = 10 * 1024 * 1024
)

// Transport frames newline-delimited JSON over a byte stream to the
// core process. It owns a single reader goroutine and delivers each
// received line, in order, to one registered listener.
type Transport struct {
	reader io.Reader
	writer io.Writer
	closer io.Closer

	// writeMu serializes outbound lines; the UI goroutine and the
	// reader goroutine (engine-request replies) both send.
	writeMu sync.Mutex

	onMessage func(data []byte)
	onClose   func(err error)

	started atomic.Bool
	closed  atomic.Bool
	done    chan struct{}

	logger *logging.Logger
}

// NewTransport creates a transport over the given connection, typically
// the stdout/stdin pipes of the spawned core process. The closer may be
// nil when the caller owns pipe lifetime.
func NewTransport(r io.Reader, w io.Writer, c io.Closer) *Transport {
	return &Transport{
		reader: r,
		writer: w,
		closer: c,
		done:   make(chan struct{}),
		logger: logging.GetLogger().WithComponent("transport"),
	}
}

// SetLogger replaces the transport's logger.
func (t *Transport) SetLogger(l *logging.Logger) {
	t.logger = l.WithComponent("transport")
}

// OnMessage registers the single listener for inbound lines.
// Must be called before Start.
func (t *Transport) OnMessage(fn func(data []byte)) {
	t.onMessage = fn
}

// OnClose registers a callback invoked once when the stream ends,
// with the terminal read error (nil on clean EOF).
func (t *Transport) OnClose(fn func(err error)) {
	t.onClose = fn
}

// Start launches the reader goroutine. Safe to call once.
func (t *Transport) Start() {
	if t.started.Swap(true) {
		return
	}
	go t.readLoop()
}

// Send writes one message followed by a newline. Concurrent calls are
// serialized so lines never interleave.
func (t *Transport) Send(data []byte) error {
	if t.closed.Load() {
		return ErrConnClosed
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if _, err := t.writer.Write(data); err != nil {
		return err
	}
	_, err := t.writer.Write([]byte{'\n'})
	return err
}

// Close shuts the transport down. Idempotent. The reader goroutine
// exits on its next read; pending listeners see onClose exactly once.
func (t *Transport) Close() error {
	if t.closed.Swap(true) {
		return nil
	}
	close(t.done)
	if t.closer != nil {
		return t.closer.Close()
	}
	return nil
}

// IsClosed reports whether Close has been called or the stream ended.
func (t *Transport) IsClosed() bool {
	return t.closed.Load()
}

// Done is closed when the transport stops delivering messages.
func (t *Transport) Done() <-chan struct{} {
	return t.done
}

// readLoop scans lines until the stream ends. Each line is handed to
// the listener synchronously: delivery order is wire order.
func (t *Transport) readLoop() {
	scanner := bufio.NewScanner(t.reader)
	scanner.Buffer(make([]byte, 0, readBufferSize), maxLineSize)

	for scanner.Scan() {
		if t.closed.Load() {
			return
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if t.onMessage != nil {
			// Scanner reuses its buffer across Scan calls; hand the
			// listener a stable copy.
			data := make([]byte, len(line))
			copy(data, line)
			t.onMessage(data)
		}
	}

	err := scanner.Err()
	if err != nil && !t.closed.Load() {
		t.logger.Error("read loop terminated: %v", err)
	}

	t.shutdown(err)
}

// shutdown marks the transport closed and fires onClose once.
func (t *Transport) shutdown(err error) {
	if t.closed.Swap(true) {
		return
	}
	close(t.done)
	if t.onClose != nil {
		t.onClose(err)
	}
}

package core

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sw5cc/xi-term/internal/logging"
	"github.com/sw5cc/xi-term/internal/trace"
)

// Handler receives decoded engine traffic from the dispatcher.
//
// Both methods run on the transport's reader goroutine, one message at
// a time, in wire order. Implementations must not call Request from
// either method: the awaited response could never be read.
type Handler interface {
	// HandleNotification is invoked for each engine notification.
	HandleNotification(n Notification)

	// HandleRequest answers an engine-originated request such as
	// measure_width. The returned value is sent back as the result.
	HandleRequest(method string, params json.RawMessage) (any, error)
}

// Dispatcher owns the transport, serializes outbound requests, and
// de-multiplexes inbound messages into responses, notifications, and
// engine-originated requests.
type Dispatcher struct {
	transport *Transport

	// pending holds one buffered channel per in-flight request,
	// keyed by id. Guarded by mu; a blocked Request never holds it.
	mu      sync.Mutex
	pending map[int64]chan *Response

	nextID  atomic.Int64
	handler Handler

	started atomic.Bool
	closed  atomic.Bool

	logger   *logging.Logger
	recorder *trace.Recorder
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithLogger sets the dispatcher's logger.
func WithLogger(l *logging.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = l.WithComponent("dispatcher")
	}
}

// WithRecorder attaches a trace recorder; when sampling is enabled the
// dispatcher records begin/end samples around sends and inbound
// dispatch.
func WithRecorder(r *trace.Recorder) DispatcherOption {
	return func(d *Dispatcher) {
		d.recorder = r
	}
}

// NewDispatcher creates a dispatcher over the given transport.
func NewDispatcher(t *Transport, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		transport: t,
		pending:   make(map[int64]chan *Response),
		logger:    logging.GetLogger().WithComponent("dispatcher"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SetHandler registers the notification/request handler.
// Must be called before Start.
func (d *Dispatcher) SetHandler(h Handler) {
	d.handler = h
}

// Start wires the transport callbacks and begins reading.
func (d *Dispatcher) Start() error {
	if d.handler == nil {
		return ErrNoHandler
	}
	if d.started.Swap(true) {
		return nil
	}
	d.transport.OnMessage(d.dispatch)
	d.transport.OnClose(d.connClosed)
	d.transport.Start()
	return nil
}

// Notify sends a fire-and-forget RPC: {method, params} with no id.
// A serialization or write failure is returned to the caller but holds
// no correlation state.
func (d *Dispatcher) Notify(method string, params any) error {
	if d.closed.Load() || d.transport.IsClosed() {
		return ErrConnClosed
	}
	return d.send(&request{Method: method, Params: params})
}

// Request sends {id, method, params} and blocks until the matching
// response arrives or the connection dies. There is no timeout and no
// cancellation: a hung engine hangs the caller. Never call this from
// the reader goroutine (i.e. from a Handler).
func (d *Dispatcher) Request(method string, params any) (json.RawMessage, error) {
	if !d.started.Load() {
		return nil, ErrNotStarted
	}
	if d.closed.Load() || d.transport.IsClosed() {
		return nil, ErrConnClosed
	}

	id := d.nextID.Add(1)
	ch := make(chan *Response, 1)

	d.mu.Lock()
	d.pending[id] = ch
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		delete(d.pending, id)
		d.mu.Unlock()
	}()

	if err := d.send(&request{ID: &id, Method: method, Params: params}); err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	select {
	case <-d.transport.Done():
		return nil, ErrConnClosed
	case resp := <-ch:
		if resp.Error != nil {
			return nil, resp.Error
		}
		return resp.Result, nil
	}
}

// RequestInto is Request plus unmarshaling of the result.
func (d *Dispatcher) RequestInto(method string, params any, result any) error {
	raw, err := d.Request(method, params)
	if err != nil {
		return err
	}
	if result != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, result); err != nil {
			return fmt.Errorf("unmarshal result: %w", err)
		}
	}
	return nil
}

// Close shuts down the connection. Pending requests complete with
// ErrConnClosed.
func (d *Dispatcher) Close() error {
	if d.closed.Swap(true) {
		return nil
	}
	return d.transport.Close()
}

// Done is closed once the connection stops delivering messages.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.transport.Done()
}

// send marshals and writes one message. The transport serializes
// concurrent writers.
func (d *Dispatcher) send(msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	d.record("rpc_send", trace.PhaseBegin)
	err = d.transport.Send(data)
	d.record("rpc_send", trace.PhaseEnd)
	return err
}

// dispatch classifies one inbound line. Runs on the reader goroutine;
// everything it calls is synchronous so notification order is wire
// order.
func (d *Dispatcher) dispatch(data []byte) {
	var p probe
	if err := json.Unmarshal(data, &p); err != nil {
		d.logger.Error("malformed message dropped: %v", &DecodeError{Err: err})
		return
	}

	switch {
	case p.ID != nil && p.Method == "":
		d.handleResponse(*p.ID, data)

	case p.ID != nil && p.Method != "":
		d.handleCoreRequest(*p.ID, p.Method, p.Params)

	case p.Method != "":
		d.handleNotification(p.Method, p.Params)

	default:
		d.logger.Error("message with neither id nor method dropped")
	}
}

// handleResponse completes the pending request with the matching id.
func (d *Dispatcher) handleResponse(id int64, data []byte) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		d.logger.Error("malformed response dropped: %v", &DecodeError{Err: err})
		return
	}

	d.mu.Lock()
	ch, ok := d.pending[id]
	if ok {
		delete(d.pending, id)
	}
	d.mu.Unlock()

	if !ok {
		d.logger.Warn("response for unknown request id %d dropped", id)
		return
	}

	// Buffered channel; the waiter may have given up but never blocks us.
	select {
	case ch <- &resp:
	default:
	}
}

// handleCoreRequest answers a request originated by the engine.
func (d *Dispatcher) handleCoreRequest(id int64, method string, params json.RawMessage) {
	d.record("core_request."+method, trace.PhaseBegin)
	result, err := d.handler.HandleRequest(method, params)
	d.record("core_request."+method, trace.PhaseEnd)
	if err != nil {
		d.logger.Error("core request %s failed: %v", method, err)
		return
	}
	if sendErr := d.send(&reply{ID: id, Result: result}); sendErr != nil {
		d.logger.Error("reply to core request %s failed: %v", method, sendErr)
	}
}

// handleNotification decodes and delivers one notification, inline.
func (d *Dispatcher) handleNotification(method string, params json.RawMessage) {
	n, err := DecodeNotification(method, params)
	if err != nil {
		d.logger.Error("notification dropped: %v", err)
		return
	}
	d.record("notify."+method, trace.PhaseBegin)
	d.handler.HandleNotification(n)
	d.record("notify."+method, trace.PhaseEnd)
}

// connClosed fails every pending request once the stream ends.
func (d *Dispatcher) connClosed(err error) {
	d.closed.Store(true)
	if err != nil {
		d.logger.Error("connection to core lost: %v", err)
	} else {
		d.logger.Info("connection to core closed")
	}

	// Waiters unblock via the transport's done channel; dropping the
	// table here just releases the channels.
	d.mu.Lock()
	d.pending = make(map[int64]chan *Response)
	d.mu.Unlock()
}

// record appends a trace sample when sampling is enabled.
func (d *Dispatcher) record(name string, phase trace.Phase) {
	if d.recorder != nil {
		d.recorder.Record(name, "rpc", phase)
	}
}

package core

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sw5cc/xi-term/internal/logging"
)

// captureHandler records delivered notifications and answers engine
// requests with a pluggable function.
type captureHandler struct {
	mu        sync.Mutex
	order     []Notification
	notified  chan Notification
	onRequest func(method string, params json.RawMessage) (any, error)
}

func newCaptureHandler() *captureHandler {
	return &captureHandler{notified: make(chan Notification, 64)}
}

func (h *captureHandler) HandleNotification(n Notification) {
	h.mu.Lock()
	h.order = append(h.order, n)
	h.mu.Unlock()
	h.notified <- n
}

func (h *captureHandler) HandleRequest(method string, params json.RawMessage) (any, error) {
	if h.onRequest != nil {
		return h.onRequest(method, params)
	}
	return nil, fmt.Errorf("unexpected core request %s", method)
}

// wireRequest is the engine-side view of an outbound request line.
type wireRequest struct {
	ID     *int64          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

// engineLines scans everything the front-end writes, one line per
// channel receive.
func engineLines(p *pipePair) <-chan []byte {
	ch := make(chan []byte, 256)
	go func() {
		defer close(ch)
		scanner := bufio.NewScanner(p.engineIn)
		for scanner.Scan() {
			line := make([]byte, len(scanner.Bytes()))
			copy(line, scanner.Bytes())
			ch <- line
		}
	}()
	return ch
}

// readWireRequest decodes the next request at the engine side. On any
// failure it reports via Errorf and returns ok=false; callers running
// off the test goroutine close the engine pipe to unblock waiters.
func readWireRequest(t *testing.T, lines <-chan []byte) (wireRequest, bool) {
	select {
	case line, open := <-lines:
		if !open {
			t.Error("Engine pipe closed before request arrived")
			return wireRequest{}, false
		}
		var req wireRequest
		if err := json.Unmarshal(line, &req); err != nil {
			t.Errorf("Engine received invalid JSON %q: %v", line, err)
			return wireRequest{}, false
		}
		if req.ID == nil {
			t.Errorf("Request line missing id: %q", line)
			return wireRequest{}, false
		}
		return req, true
	case <-time.After(time.Second):
		t.Error("Timeout waiting for request at engine")
		return wireRequest{}, false
	}
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *pipePair, *captureHandler) {
	t.Helper()
	pipes := newPipePair()
	t.Cleanup(func() { pipes.Close() })

	tr := NewTransport(pipes.frontIn, pipes.frontOut, nil)
	d := NewDispatcher(tr, WithLogger(logging.NullLogger))
	h := newCaptureHandler()
	d.SetHandler(h)
	if err := d.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d, pipes, h
}

func TestDispatcher_RequestResponse(t *testing.T) {
	d, pipes, _ := newTestDispatcher(t)
	lines := engineLines(pipes)

	go func() {
		req, ok := readWireRequest(t, lines)
		if !ok {
			pipes.engineOut.Close()
			return
		}
		if req.Method != "new_view" {
			t.Errorf("Expected method new_view, got %q", req.Method)
		}
		fmt.Fprintf(pipes.engineOut, `{"id":%d,"result":"view-id-1"}`+"\n", *req.ID)
	}()

	var viewID ViewID
	if err := d.RequestInto("new_view", map[string]any{"file_path": "/tmp/a.txt"}, &viewID); err != nil {
		t.Fatalf("RequestInto() error = %v", err)
	}
	if viewID != "view-id-1" {
		t.Errorf("Expected view-id-1, got %q", viewID)
	}
}

func TestDispatcher_ConcurrentRequestsCorrelateByID(t *testing.T) {
	d, pipes, _ := newTestDispatcher(t)
	lines := engineLines(pipes)

	const callers = 16

	// The engine gathers every request first, then answers in reverse
	// arrival order. Correlation must come from the id, never from
	// response ordering.
	engineDone := make(chan struct{})
	go func() {
		defer close(engineDone)
		reqs := make([]wireRequest, 0, callers)
		for i := 0; i < callers; i++ {
			req, ok := readWireRequest(t, lines)
			if !ok {
				pipes.engineOut.Close()
				return
			}
			reqs = append(reqs, req)
		}
		for i := len(reqs) - 1; i >= 0; i-- {
			fmt.Fprintf(pipes.engineOut, `{"id":%d,"result":%s}`+"\n", *reqs[i].ID, reqs[i].Params)
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var got int
			if err := d.RequestInto("echo", i, &got); err != nil {
				t.Errorf("Caller %d: RequestInto() error = %v", i, err)
				return
			}
			if got != i {
				t.Errorf("Caller %d received result %d", i, got)
			}
		}(i)
	}

	wg.Wait()
	<-engineDone
}

func TestDispatcher_RequestErrorResponse(t *testing.T) {
	d, pipes, _ := newTestDispatcher(t)
	lines := engineLines(pipes)

	go func() {
		req, ok := readWireRequest(t, lines)
		if !ok {
			pipes.engineOut.Close()
			return
		}
		fmt.Fprintf(pipes.engineOut, `{"id":%d,"error":{"code":-32601,"message":"method not found"}}`+"\n", *req.ID)
	}()

	_, err := d.Request("bogus_method", nil)
	if err == nil {
		t.Fatal("Expected error, got nil")
	}

	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("Expected *RPCError, got %T: %v", err, err)
	}
	if rpcErr.Code != -32601 {
		t.Errorf("Expected code -32601, got %d", rpcErr.Code)
	}
	if rpcErr.Message != "method not found" {
		t.Errorf("Unexpected message %q", rpcErr.Message)
	}
}

func TestDispatcher_NotificationsArriveInWireOrder(t *testing.T) {
	_, pipes, h := newTestDispatcher(t)

	const count = 20
	go func() {
		for i := 0; i < count; i++ {
			fmt.Fprintf(pipes.engineOut, `{"method":"alert","params":{"msg":"%d"}}`+"\n", i)
		}
	}()

	for i := 0; i < count; i++ {
		select {
		case n := <-h.notified:
			alert, ok := n.(Alert)
			if !ok {
				t.Fatalf("Expected Alert, got %T", n)
			}
			if alert.Msg != fmt.Sprintf("%d", i) {
				t.Fatalf("Notification %d out of order: got msg %q", i, alert.Msg)
			}
		case <-time.After(time.Second):
			t.Fatalf("Timeout waiting for notification %d", i)
		}
	}
}

func TestDispatcher_MalformedMessageDropped(t *testing.T) {
	_, pipes, h := newTestDispatcher(t)

	// A line that is not JSON, one that decodes to no known shape, and
	// then a valid notification. The first two are dropped; the
	// connection keeps delivering.
	go func() {
		fmt.Fprint(pipes.engineOut, "this is not json\n")
		fmt.Fprint(pipes.engineOut, `{"params":{"msg":"no method"}}`+"\n")
		fmt.Fprint(pipes.engineOut, `{"method":"alert","params":{"msg":"still alive"}}`+"\n")
	}()

	select {
	case n := <-h.notified:
		alert, ok := n.(Alert)
		if !ok {
			t.Fatalf("Expected Alert, got %T", n)
		}
		if alert.Msg != "still alive" {
			t.Errorf("Unexpected msg %q", alert.Msg)
		}
	case <-time.After(time.Second):
		t.Fatal("Connection stopped delivering after malformed message")
	}

	h.mu.Lock()
	delivered := len(h.order)
	h.mu.Unlock()
	if delivered != 1 {
		t.Errorf("Expected exactly 1 delivered notification, got %d", delivered)
	}
}

func TestDispatcher_UnknownMethodDropped(t *testing.T) {
	_, pipes, h := newTestDispatcher(t)

	go func() {
		fmt.Fprint(pipes.engineOut, `{"method":"totally_new_thing","params":{}}`+"\n")
		fmt.Fprint(pipes.engineOut, `{"method":"available_themes","params":{"themes":["InspiredGitHub"]}}`+"\n")
	}()

	select {
	case n := <-h.notified:
		themes, ok := n.(AvailableThemes)
		if !ok {
			t.Fatalf("Expected AvailableThemes, got %T", n)
		}
		if len(themes.Themes) != 1 || themes.Themes[0] != "InspiredGitHub" {
			t.Errorf("Unexpected themes %v", themes.Themes)
		}
	case <-time.After(time.Second):
		t.Fatal("Connection stopped delivering after unknown method")
	}
}

func TestDispatcher_ResponseForUnknownIDDropped(t *testing.T) {
	_, pipes, h := newTestDispatcher(t)

	go func() {
		fmt.Fprint(pipes.engineOut, `{"id":9999,"result":"orphan"}`+"\n")
		fmt.Fprint(pipes.engineOut, `{"method":"alert","params":{"msg":"after orphan"}}`+"\n")
	}()

	select {
	case n := <-h.notified:
		if alert, ok := n.(Alert); !ok || alert.Msg != "after orphan" {
			t.Errorf("Unexpected notification %#v", n)
		}
	case <-time.After(time.Second):
		t.Fatal("Connection stopped delivering after orphan response")
	}
}

func TestDispatcher_CloseFailsPendingRequests(t *testing.T) {
	d, pipes, _ := newTestDispatcher(t)
	lines := engineLines(pipes)

	// There is no client-side timeout on synchronous requests; an
	// unanswered request blocks until the connection goes away. Close
	// is what unblocks it here.
	errCh := make(chan error, 1)
	go func() {
		_, err := d.Request("save", map[string]any{"view_id": "view-id-1"})
		errCh <- err
	}()

	readWireRequest(t, lines)

	if err := d.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrConnClosed) {
			t.Errorf("Expected ErrConnClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Pending request still blocked after Close")
	}
}

func TestDispatcher_EngineExitFailsPendingRequests(t *testing.T) {
	d, pipes, _ := newTestDispatcher(t)
	lines := engineLines(pipes)

	errCh := make(chan error, 1)
	go func() {
		_, err := d.Request("save", map[string]any{"view_id": "view-id-1"})
		errCh <- err
	}()

	readWireRequest(t, lines)

	// Engine dies: its write side of the pipe closes, the read loop
	// sees EOF.
	pipes.engineOut.Close()

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrConnClosed) {
			t.Errorf("Expected ErrConnClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Pending request still blocked after engine exit")
	}

	if _, err := d.Request("save", nil); !errors.Is(err, ErrConnClosed) {
		t.Errorf("Expected ErrConnClosed for request after exit, got %v", err)
	}
}

func TestDispatcher_AnswersCoreRequest(t *testing.T) {
	_, pipes, h := newTestDispatcher(t)
	lines := engineLines(pipes)

	h.onRequest = func(method string, params json.RawMessage) (any, error) {
		if method != "measure_width" {
			return nil, fmt.Errorf("unexpected method %s", method)
		}
		var queries []MeasureWidthQuery
		if err := json.Unmarshal(params, &queries); err != nil {
			return nil, err
		}
		widths := make([][]float64, len(queries))
		for i, q := range queries {
			widths[i] = make([]float64, len(q.Strings))
			for j, s := range q.Strings {
				widths[i][j] = float64(len(s))
			}
		}
		return widths, nil
	}

	fmt.Fprint(pipes.engineOut, `{"id":7,"method":"measure_width","params":[{"id":1,"strings":["abc","de"]}]}`+"\n")

	select {
	case line, ok := <-lines:
		if !ok {
			t.Fatal("Engine pipe closed before reply")
		}
		var rep struct {
			ID     int64       `json:"id"`
			Result [][]float64 `json:"result"`
		}
		if err := json.Unmarshal(line, &rep); err != nil {
			t.Fatalf("Reply is invalid JSON %q: %v", line, err)
		}
		if rep.ID != 7 {
			t.Errorf("Reply id = %d, want 7", rep.ID)
		}
		if len(rep.Result) != 1 || len(rep.Result[0]) != 2 ||
			rep.Result[0][0] != 3 || rep.Result[0][1] != 2 {
			t.Errorf("Unexpected widths %v", rep.Result)
		}
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for reply to core request")
	}
}

func TestDispatcher_NotifyOmitsID(t *testing.T) {
	d, pipes, _ := newTestDispatcher(t)
	lines := engineLines(pipes)

	if err := d.Notify("set_theme", map[string]any{"theme_name": "InspiredGitHub"}); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}

	select {
	case line := <-lines:
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(line, &raw); err != nil {
			t.Fatalf("Invalid JSON %q: %v", line, err)
		}
		if _, hasID := raw["id"]; hasID {
			t.Errorf("Notification carries an id: %s", line)
		}
		if string(raw["method"]) != `"set_theme"` {
			t.Errorf("Unexpected method in %s", line)
		}
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for notification at engine")
	}
}

func TestDispatcher_StartWithoutHandler(t *testing.T) {
	pipes := newPipePair()
	defer pipes.Close()

	d := NewDispatcher(NewTransport(pipes.frontIn, pipes.frontOut, nil))
	if err := d.Start(); !errors.Is(err, ErrNoHandler) {
		t.Errorf("Expected ErrNoHandler, got %v", err)
	}
}

func TestDispatcher_RequestBeforeStart(t *testing.T) {
	pipes := newPipePair()
	defer pipes.Close()

	d := NewDispatcher(NewTransport(pipes.frontIn, pipes.frontOut, nil))
	if _, err := d.Request("new_view", nil); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Expected ErrNotStarted, got %v", err)
	}
}

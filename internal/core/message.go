package core

import "encoding/json"

// ViewID is the opaque token the engine assigns when a view is opened.
// It routes every per-view notification; the front-end never mints one.
type ViewID string

// request is the outbound wire shape. Notifications omit the id.
type request struct {
	ID     *int64 `json:"id,omitempty"`
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
}

// Response is an inbound reply correlated to a pending request id.
type Response struct {
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *RPCError       `json:"error,omitempty"`
}

// reply answers an engine-originated request (e.g. measure_width).
type reply struct {
	ID     int64 `json:"id"`
	Result any   `json:"result"`
}

// probe is the first-pass decode used to classify an inbound line.
// A present id with no method is a response; id plus method is a
// request from the engine; a bare method is a notification.
type probe struct {
	ID     *int64          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
	Result json.RawMessage `json:"result"`
	Error  json.RawMessage `json:"error"`
}

// MeasureWidthQuery is one batch of strings the engine wants measured,
// carried by the measure_width request. The reply is one width slice
// per query, in order.
type MeasureWidthQuery struct {
	ID      int      `json:"id"`
	Strings []string `json:"strings"`
}

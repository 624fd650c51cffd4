// Package core implements the RPC connection to the xi editing engine.
//
// The engine runs as a separate long-lived process (xi-core) that owns
// all text content, edit history, styling, and plugin state. The
// front-end talks to it over newline-delimited JSON on the process's
// stdin/stdout; this package owns that whole boundary.
//
// # Architecture
//
// The package is organized around these components:
//
//   - CoreProcess: spawns and supervises the engine executable
//   - Transport: newline-delimited JSON framing with a reader goroutine
//   - Dispatcher: request/response correlation and inbound classification
//   - Client: typed wrappers for every RPC the front-end issues
//   - Notification: the closed set of events the engine may emit
//
// # Quick Start
//
//	proc, err := core.SpawnCore(ctx, core.CoreConfig{Command: "xi-core"})
//	if err != nil {
//	    return err
//	}
//	dsp := core.NewDispatcher(core.NewTransport(proc.Stdout(), proc.Stdin(), nil))
//	dsp.SetHandler(myHandler)
//	dsp.Start()
//
//	client := core.NewClient(dsp)
//	viewID, err := client.NewView("/path/to/file.go")
//
// # Message classification
//
// Each inbound line is classified exactly once, on the reader
// goroutine: a matching pending id completes a blocked Request; a
// method plus id is an engine-originated request needing a reply
// (measure_width); a bare method is a notification, decoded into its
// typed variant and handed to the registered Handler synchronously so
// wire order is preserved. Anything else is logged and dropped without
// tearing down the connection.
//
// # Thread safety
//
// Notify and Request may be called from any goroutine; outbound writes
// are serialized internally. Request must never be called from the
// Handler (it runs on the reader goroutine, so the awaited response
// could never be read).
package core

// Package asmtrace captures code generated at runtime by a managed
// runtime into an append-only binary trace file.
//
// The root package defines the contract between a host runtime and the
// capture layer: opaque method and class handles, the Resolver metadata
// query surface, and the Host attach-time interface. Concrete work
// happens in the subpackages:
//
//	asmtrace/            Root package with handles and the Host contract
//	├── capture/         Session lifecycle, event handlers, attach logic
//	├── trace/           Binary trace format, encoder and decoder
//	├── wazerotrace/     Host adapter for the wazero runtime
//	├── errors/          Structured error types for diagnostics
//	└── cmd/
//	    ├── trace/       Run a wasm module under capture
//	    └── timewrap/    Wall-clock timing wrapper for capture runs
//
// # Quick Start
//
// Attach a session to a host and let its events flow into a file:
//
//	host := wazerotrace.New(logger)
//	agent, err := capture.Attach(host, "asmtrace-%p.bin", &capture.Config{Logger: logger})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer agent.Detach()
//
//	ctx := host.Context(context.Background())
//	// compile and run modules with ctx; every generated function is recorded
//
// # Thread Safety
//
// Event handlers may be invoked concurrently from any thread the host
// delivers events on. Each record reaches the file whole; metadata
// resolution runs outside the writer lock so slow host queries never
// stall other threads' records.
//
// # Shutdown
//
// A host reporting ErrShutdown during metadata resolution causes the
// triggering event to be dropped with nothing written. Detach is
// idempotent and events delivered after it are no-ops.
package asmtrace

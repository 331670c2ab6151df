// Package capture implements the trace capture session.
//
// A Session owns one append-only trace file. Host runtime callbacks
// (method compiled, method unloaded, dynamic code generated) arrive on
// arbitrary threads, possibly concurrently; each handler resolves any
// method metadata it needs before taking the session's writer lock,
// then encodes one self-contained record under the lock and flushes.
//
// Error policy is deliberately severe: any sink or metadata failure
// other than the host's expected shutdown condition logs a structured
// diagnostic and terminates the process. A partially written trace
// that keeps growing is worse than an abrupt stop. The one absorbed
// condition is the host reporting that it is mid-shutdown during
// metadata resolution; the triggering event is dropped silently.
package capture

package asmtrace

import "errors"

// MethodHandle is the host runtime's opaque identifier for a method.
// Handles are only compared for equality and are never dereferenced.
type MethodHandle uint64

// ClassHandle is the host runtime's opaque identifier for a class.
type ClassHandle uint64

// LineEntry maps a bytecode offset within a method to a source line.
type LineEntry struct {
	Offset int64
	Line   int32
}

// Frame is one logical stack frame folded into compiled code by inlining.
type Frame struct {
	Method        MethodHandle
	ByteCodeIndex int32
}

// PCInfo describes the inline stack reconstructed at one program counter
// within a compiled method.
type PCInfo struct {
	PC     uint64
	Frames []Frame
}

// Sentinel conditions reported by Resolver queries.
var (
	// ErrShutdown means the host runtime is mid-shutdown. It is not an
	// error: the triggering event is abandoned with nothing written.
	ErrShutdown = errors.New("asmtrace: host runtime is shutting down")

	// ErrAbsent means the queried information does not exist, e.g. a
	// class compiled without a source file attribute.
	ErrAbsent = errors.New("asmtrace: information not available")

	// ErrNativeMethod means the method has no bytecode and therefore no
	// line number table.
	ErrNativeMethod = errors.New("asmtrace: native method")
)

// Resolver is the metadata query surface of the host runtime. Queries
// may be issued from any thread the runtime delivers events on; the
// capture layer never holds its writer lock across a Resolver call.
type Resolver interface {
	// MethodName returns the name and type signature of a method.
	MethodName(m MethodHandle) (name, signature string, err error)

	// DeclaringClass returns the class that declares a method.
	DeclaringClass(m MethodHandle) (ClassHandle, error)

	// ClassSignature returns the type signature of a class.
	ClassSignature(c ClassHandle) (string, error)

	// SourceFileName returns the source file a class was compiled from,
	// or ErrAbsent when the class has none.
	SourceFileName(c ClassHandle) (string, error)

	// LineNumberTable returns the bytecode-offset to line mapping for a
	// method. ErrAbsent and ErrNativeMethod mean the table is
	// legitimately missing and encode as an empty table.
	LineNumberTable(m MethodHandle) ([]LineEntry, error)

	// RuntimeTime returns the host runtime's own notion of current time
	// in nanoseconds, recorded in the trace header to correlate the
	// capture clock with runtime-reported times.
	RuntimeTime() (int64, error)
}

// Releaser is implemented by resolvers whose metadata is backed by
// storage the host runtime allocated outside the Go heap. Release is
// called exactly once for every method whose metadata was fetched
// during an event, on every exit path including abandonment.
type Releaser interface {
	Release(m MethodHandle)
}

// Capabilities lists the instrumentation features the agent requires
// from the host runtime before any events can be delivered.
type Capabilities struct {
	SourceFileNames    bool
	LineNumbers        bool
	CompiledMethodLoad bool
}

// EventHandlers carries the agent callbacks a Host invokes. The runtime
// may call them concurrently from arbitrary threads, in any order.
type EventHandlers struct {
	// MethodLoad reports machine code generated for a method. code holds
	// the generated bytes at codeAddr; inline is the runtime's inline
	// debug info and may be nil.
	MethodLoad func(m MethodHandle, codeAddr uint64, code []byte, inline []PCInfo)

	// MethodUnload reports that a previously reported code address is no
	// longer valid.
	MethodUnload func(m MethodHandle, codeAddr uint64)

	// DynamicCode reports runtime-generated code with no associated
	// method, e.g. interpreter stubs.
	DynamicCode func(name string, codeAddr uint64, code []byte)
}

// Host is the instrumentation surface a managed runtime exposes to the
// agent at attach time.
type Host interface {
	Resolver

	// RequireCapabilities enables the capabilities the agent needs.
	RequireCapabilities(caps Capabilities) error

	// SetEventHandlers registers the agent's callbacks.
	SetEventHandlers(h EventHandlers) error
}

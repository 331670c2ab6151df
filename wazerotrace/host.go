package wazerotrace

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/experimental"
	"go.uber.org/zap"

	"github.com/wippyai/asmtrace"
)

// codeSpan is the synthetic address stride between functions. wazero
// never reports real code placement, so each function is assigned a
// disjoint fake range.
const codeSpan = 0x100

// anonymousModule stands in for an empty module name in class
// signatures.
const anonymousModule = "(anonymous)"

// Host implements asmtrace.Host on top of wazero's function-listener
// factory. Compile a module with a context from Context and every
// function definition wazero announces is forwarded to the registered
// event handlers.
type Host struct {
	log *zap.Logger

	mu       sync.Mutex
	closed   bool
	handlers asmtrace.EventHandlers

	nextMethod asmtrace.MethodHandle
	nextClass  asmtrace.ClassHandle
	nextAddr   uint64

	methods    map[asmtrace.MethodHandle]api.FunctionDefinition
	classes    map[string]asmtrace.ClassHandle
	classNames map[asmtrace.ClassHandle]string
}

var _ asmtrace.Host = (*Host)(nil)
var _ experimental.FunctionListenerFactory = (*Host)(nil)

// New creates a Host. A nil logger disables logging.
func New(log *zap.Logger) *Host {
	if log == nil {
		log = zap.NewNop()
	}
	return &Host{
		log:        log,
		nextAddr:   0x10000,
		methods:    map[asmtrace.MethodHandle]api.FunctionDefinition{},
		classes:    map[string]asmtrace.ClassHandle{},
		classNames: map[asmtrace.ClassHandle]string{},
	}
}

// Context returns ctx with this host installed as the function-listener
// factory. Pass the result to wazero's compile and instantiate calls.
func (h *Host) Context(ctx context.Context) context.Context {
	return experimental.WithFunctionListenerFactory(ctx, h)
}

// RequireCapabilities implements asmtrace.Host. wazero always delivers
// compile-time function announcements, and the absent source-level
// capabilities degrade to absent metadata rather than failures.
func (h *Host) RequireCapabilities(asmtrace.Capabilities) error {
	return nil
}

// SetEventHandlers implements asmtrace.Host.
func (h *Host) SetEventHandlers(handlers asmtrace.EventHandlers) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers = handlers
	return nil
}

// Close stops event delivery and shifts metadata queries to the
// shutdown condition, mirroring a runtime going away underneath the
// agent.
func (h *Host) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
}

// NewFunctionListener implements the wazero factory. It registers the
// definition, emits the corresponding load event, and declines per-call
// listening by returning nil.
func (h *Host) NewFunctionListener(def api.FunctionDefinition) experimental.FunctionListener {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	handlers := h.handlers

	addr := h.nextAddr
	h.nextAddr += codeSpan

	goFunc := def.GoFunction() != nil
	var handle asmtrace.MethodHandle
	if !goFunc {
		h.nextMethod++
		handle = h.nextMethod
		h.methods[handle] = def
	}
	// The handler resolves metadata through this host, so it must run
	// outside the host lock.
	h.mu.Unlock()

	if goFunc {
		if handlers.DynamicCode != nil {
			handlers.DynamicCode(def.DebugName(), addr, nil)
		}
		return nil
	}
	if handlers.MethodLoad != nil {
		handlers.MethodLoad(handle, addr, nil, nil)
	}
	return nil
}

func (h *Host) definition(m asmtrace.MethodHandle) (api.FunctionDefinition, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, asmtrace.ErrShutdown
	}
	def, ok := h.methods[m]
	if !ok {
		return nil, asmtrace.ErrAbsent
	}
	return def, nil
}

// MethodName implements asmtrace.Resolver. The signature is rendered
// from the wasm function type, e.g. "(i32,i32)i64".
func (h *Host) MethodName(m asmtrace.MethodHandle) (string, string, error) {
	def, err := h.definition(m)
	if err != nil {
		return "", "", err
	}
	name := def.Name()
	if name == "" {
		name = def.DebugName()
	}
	return name, typeSignature(def), nil
}

// DeclaringClass implements asmtrace.Resolver, mapping each module name
// to a stable class handle.
func (h *Host) DeclaringClass(m asmtrace.MethodHandle) (asmtrace.ClassHandle, error) {
	def, err := h.definition(m)
	if err != nil {
		return 0, err
	}
	name := def.ModuleName()
	if name == "" {
		name = anonymousModule
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.classes[name]; ok {
		return c, nil
	}
	h.nextClass++
	h.classes[name] = h.nextClass
	h.classNames[h.nextClass] = name
	return h.nextClass, nil
}

// ClassSignature implements asmtrace.Resolver.
func (h *Host) ClassSignature(c asmtrace.ClassHandle) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return "", asmtrace.ErrShutdown
	}
	name, ok := h.classNames[c]
	if !ok {
		return "", asmtrace.ErrAbsent
	}
	return name, nil
}

// SourceFileName implements asmtrace.Resolver. Core wasm modules carry
// no source file attribute.
func (h *Host) SourceFileName(asmtrace.ClassHandle) (string, error) {
	return "", asmtrace.ErrAbsent
}

// LineNumberTable implements asmtrace.Resolver. Line information would
// require DWARF custom sections, which wazero does not surface here.
func (h *Host) LineNumberTable(asmtrace.MethodHandle) ([]asmtrace.LineEntry, error) {
	return nil, asmtrace.ErrAbsent
}

// RuntimeTime implements asmtrace.Resolver.
func (h *Host) RuntimeTime() (int64, error) {
	return time.Now().UnixNano(), nil
}

// typeSignature renders a function type as "(params)results" using the
// wasm value type names.
func typeSignature(def api.FunctionDefinition) string {
	var b strings.Builder
	b.WriteByte('(')
	for i, p := range def.ParamTypes() {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(api.ValueTypeName(p))
	}
	b.WriteByte(')')
	for i, r := range def.ResultTypes() {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(api.ValueTypeName(r))
	}
	return b.String()
}

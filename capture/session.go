package capture

import (
	"bufio"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/asmtrace"
	"github.com/wippyai/asmtrace/errors"
	"github.com/wippyai/asmtrace/trace"
)

// Config holds optional session configuration. A nil Config or a zero
// field selects the default.
type Config struct {
	// Logger receives diagnostics and carries the fatal path. Defaults
	// to a logger that writes error-level diagnostics to standard
	// error, so a fatal condition is never silent.
	Logger *zap.Logger

	// Arch is the architecture string written to the trace header.
	// Defaults to runtime.GOARCH.
	Arch string
}

// Session owns one append-only trace file. All writes to the sink are
// serialized by a single writer lock; the sink reference is only ever
// touched while that lock is held, and every handler re-checks it for
// nil after acquiring the lock because Close may nil it concurrently.
type Session struct {
	log      *zap.Logger
	resolver asmtrace.Resolver
	arch     string

	mu   sync.Mutex
	file *os.File
	bufw *bufio.Writer
	enc  *trace.Writer

	loads    atomic.Uint64
	unloads  atomic.Uint64
	dynamics atomic.Uint64
	bytes    atomic.Uint64
}

// Stats is a point-in-time snapshot of session counters.
type Stats struct {
	MethodLoads   uint64
	MethodUnloads uint64
	DynamicCodes  uint64
	Bytes         uint64
}

// countingWriter counts logical record bytes before buffering.
type countingWriter struct {
	w *bufio.Writer
	n *atomic.Uint64
}

func (c countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n.Add(uint64(n))
	return n, err
}

// ExpandPath replaces the first occurrence of the "%p" placeholder in
// path with the decimal pid of the current process. A path without the
// placeholder is returned verbatim.
func ExpandPath(path string) string {
	return expandPath(path, os.Getpid())
}

func expandPath(path string, pid int) string {
	return strings.Replace(path, "%p", strconv.Itoa(pid), 1)
}

// Open creates a capture session writing to path (after placeholder
// expansion) and writes the file header. The writer lock is held from
// before the sink exists until the header is flushed, so no event can
// race the header write.
//
// Open does not return on failure: a session that cannot write is a
// fatal condition by policy.
func Open(path string, resolver asmtrace.Resolver, cfg *Config) *Session {
	s := newSession(resolver, cfg)
	s.open(path)
	return s
}

// defaultLogger writes error-level diagnostics to standard error. Fatal
// errors must reach the user even when the caller configured nothing.
func defaultLogger() *zap.Logger {
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewProductionEncoderConfig()),
		zapcore.Lock(os.Stderr),
		zapcore.ErrorLevel,
	)
	return zap.New(core)
}

func newSession(resolver asmtrace.Resolver, cfg *Config) *Session {
	s := &Session{
		log:      defaultLogger(),
		resolver: resolver,
		arch:     runtime.GOARCH,
	}
	if cfg != nil {
		if cfg.Logger != nil {
			s.log = cfg.Logger
		}
		if cfg.Arch != "" {
			s.arch = cfg.Arch
		}
	}
	return s
}

// fatal logs the structured error and terminates the process. Tests
// substitute termination with a panic via zap.WithFatalHook.
func (s *Session) fatal(err error) {
	s.log.Fatal("capture failed", zap.Error(err))
}

func (s *Session) open(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resolved := ExpandPath(path)
	f, err := os.Create(resolved)
	if err != nil {
		s.fatal(errors.IO(errors.PhaseSession, "open output file "+resolved, err))
		return
	}
	s.file = f
	s.bufw = bufio.NewWriter(f)
	s.enc = trace.NewWriter(countingWriter{w: s.bufw, n: &s.bytes}, func(err error) {
		s.fatal(err)
	})
	s.writeHeaderLocked()
	s.flushLocked()
	s.log.Info("capture session opened",
		zap.String("path", resolved),
		zap.String("arch", s.arch))
}

// writeHeaderLocked emits the fixed file header, including the pairing
// of a capture-clock reading with the runtime's own clock so consumers
// can correlate trace times with runtime-reported times.
func (s *Session) writeHeaderLocked() {
	nanos, err := s.resolver.RuntimeTime()
	if err != nil {
		s.fatal(errors.Metadata("RuntimeTime", err))
		return
	}
	w := s.enc
	w.WriteRaw([]byte(trace.FileTag))
	w.WriteI32(trace.MajorVersion)
	w.WriteI32(trace.MinorVersion)
	w.WriteString(s.arch)
	w.WriteTimestamp(s.timestamp())
	w.WriteU64(uint64(nanos))
}

func (s *Session) flushLocked() {
	if err := s.bufw.Flush(); err != nil {
		s.fatal(errors.IO(errors.PhaseSession, "flush output file", err))
	}
}

func (s *Session) timestamp() trace.Timestamp {
	ts, err := readClock()
	if err != nil {
		s.fatal(errors.Clock("clock_gettime", err))
	}
	return ts
}

// Close flushes and closes the sink and nils the reference. Handlers
// that lose the race to Close observe the nil sink under the lock and
// become no-ops; detach is not an error condition even with callbacks
// still in flight. Closing an already closed session is a no-op.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return
	}
	s.flushLocked()
	if err := s.file.Close(); err != nil {
		s.fatal(errors.IO(errors.PhaseSession, "close output file", err))
	}
	s.file = nil
	s.bufw = nil
	s.enc = nil
	s.log.Info("capture session closed", zap.Uint64("bytes", s.bytes.Load()))
}

// Stats returns a snapshot of the session counters. Safe to call from
// any goroutine while capture is running.
func (s *Session) Stats() Stats {
	return Stats{
		MethodLoads:   s.loads.Load(),
		MethodUnloads: s.unloads.Load(),
		DynamicCodes:  s.dynamics.Load(),
		Bytes:         s.bytes.Load(),
	}
}

package capture

import (
	stderrors "errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wippyai/asmtrace"
	"github.com/wippyai/asmtrace/errors"
	"github.com/wippyai/asmtrace/trace"
)

// fakeHost wraps a fakeResolver with the attach-time surface, recording
// what the agent negotiated.
type fakeHost struct {
	*fakeResolver

	caps     asmtrace.Capabilities
	handlers asmtrace.EventHandlers

	capsErr     error
	handlersErr error
}

func newFakeHost() *fakeHost {
	return &fakeHost{fakeResolver: newFakeResolver()}
}

func (h *fakeHost) RequireCapabilities(caps asmtrace.Capabilities) error {
	h.caps = caps
	return h.capsErr
}

func (h *fakeHost) SetEventHandlers(handlers asmtrace.EventHandlers) error {
	h.handlers = handlers
	return h.handlersErr
}

func TestAttachUsageErrors(t *testing.T) {
	tests := []struct {
		name    string
		options string
	}{
		{"empty", ""},
		{"short help", "-h"},
		{"long help", "--help"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Attach(newFakeHost(), tt.options, &Config{Logger: fatalAsPanicLogger()})
			if err == nil {
				t.Fatal("expected a usage error")
			}
			var e *errors.Error
			if !stderrors.As(err, &e) || e.Kind != errors.KindUsage {
				t.Errorf("error kind: got %v", err)
			}
		})
	}
}

func TestUsageMentionsSubstitution(t *testing.T) {
	if !strings.Contains(Usage(), "%p") {
		t.Error("usage text does not mention the pid placeholder")
	}
}

func TestAttachNegotiatesCapabilities(t *testing.T) {
	h := newFakeHost()
	path := filepath.Join(t.TempDir(), "trace.bin")

	agent, err := Attach(h, path, &Config{Logger: fatalAsPanicLogger()})
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	defer agent.Detach()

	want := asmtrace.Capabilities{
		SourceFileNames:    true,
		LineNumbers:        true,
		CompiledMethodLoad: true,
	}
	if h.caps != want {
		t.Errorf("capabilities: got %+v, want %+v", h.caps, want)
	}
}

func TestAttachCapabilityFailure(t *testing.T) {
	h := newFakeHost()
	h.capsErr = stderrors.New("capability denied")

	_, err := Attach(h, filepath.Join(t.TempDir(), "t.bin"),
		&Config{Logger: fatalAsPanicLogger()})
	if err == nil || !strings.Contains(err.Error(), "capability denied") {
		t.Errorf("error: got %v", err)
	}
	if h.handlers.DynamicCode != nil {
		t.Error("handlers registered after capability failure")
	}
}

// Events delivered through the registered handlers must flow into the
// trace file, and detaching must turn later deliveries into no-ops.
func TestAttachDeliversEvents(t *testing.T) {
	h := newFakeHost()
	h.addMethod(1, fakeMethod{name: "main", signature: "()V", class: 1})
	path := filepath.Join(t.TempDir(), "trace.bin")

	agent, err := Attach(h, path, &Config{Logger: fatalAsPanicLogger(), Arch: "amd64"})
	if err != nil {
		t.Fatalf("attach: %v", err)
	}

	h.handlers.DynamicCode("stub", 0x100, []byte{0xc3})
	h.handlers.MethodLoad(1, 0x200, []byte{0xc3}, nil)
	h.handlers.MethodUnload(1, 0x200)
	agent.Detach()
	h.handlers.DynamicCode("late", 0x300, []byte{0xc3})

	records := readAllRecords(t, path)
	if len(records) != 3 {
		t.Fatalf("records: got %d, want 3", len(records))
	}
	if _, ok := records[0].(*trace.DynamicCode); !ok {
		t.Errorf("record 0: got %T", records[0])
	}
	if _, ok := records[1].(*trace.MethodLoad); !ok {
		t.Errorf("record 1: got %T", records[1])
	}
	if _, ok := records[2].(*trace.MethodUnload); !ok {
		t.Errorf("record 2: got %T", records[2])
	}

	if stats := agent.Session().Stats(); stats.DynamicCodes != 1 {
		t.Errorf("stats after late event: %+v", stats)
	}
}

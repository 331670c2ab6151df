package capture

import (
	"github.com/wippyai/asmtrace"
	"github.com/wippyai/asmtrace/errors"
)

const usageMessage = `assembly capture agent
Usage: attach with <filename>
    The filename argument is non-optional and may contain '%p'
    which will be replaced by the pid of the current process.`

// Usage returns the attach-option usage text.
func Usage() string {
	return usageMessage
}

// Agent ties a capture session to a host runtime for its lifetime.
type Agent struct {
	session *Session
}

// Attach is the composition root: it validates the attach options (a
// destination path), negotiates capabilities with the host, registers
// the event handlers, and only then opens the session so the handlers
// observe a nil sink until the header is safely on disk.
//
// An empty options string or a help flag yields a usage error before
// any capture state exists; the caller prints Usage and exits non-zero.
func Attach(host asmtrace.Host, options string, cfg *Config) (*Agent, error) {
	switch options {
	case "":
		return nil, errors.Usage("must specify an output file name")
	case "-h", "--help":
		return nil, errors.Usage("help requested")
	}

	caps := asmtrace.Capabilities{
		SourceFileNames:    true,
		LineNumbers:        true,
		CompiledMethodLoad: true,
	}
	if err := host.RequireCapabilities(caps); err != nil {
		return nil, errors.Wrap(errors.PhaseAttach, errors.KindMetadata, err, "require capabilities")
	}

	s := newSession(host, cfg)
	if err := host.SetEventHandlers(asmtrace.EventHandlers{
		MethodLoad:   s.MethodLoad,
		MethodUnload: s.MethodUnload,
		DynamicCode:  s.DynamicCode,
	}); err != nil {
		return nil, errors.Wrap(errors.PhaseAttach, errors.KindMetadata, err, "set event handlers")
	}
	s.open(options)

	return &Agent{session: s}, nil
}

// Session exposes the agent's capture session, e.g. for statistics.
func (a *Agent) Session() *Session {
	return a.session
}

// Detach closes the session. In-flight callbacks that lose the race
// write nothing; detach is not an error condition.
func (a *Agent) Detach() {
	a.session.Close()
}

package capture

import (
	stderrors "errors"
	"math"

	"github.com/wippyai/asmtrace"
	"github.com/wippyai/asmtrace/errors"
	"github.com/wippyai/asmtrace/trace"
)

// checkAbandon absorbs the expected shutdown condition and escalates
// everything else. Returning normally means the event is dropped with
// nothing written and no diagnostic, which is the designed behavior
// when the host runtime is mid-shutdown.
func (s *Session) checkAbandon(err error) {
	if stderrors.Is(err, asmtrace.ErrShutdown) {
		return
	}
	s.fatal(err)
}

func (s *Session) checkCodeSize(n int) {
	if int64(n) > math.MaxInt32 {
		s.fatal(errors.Overflow(errors.PhaseEncode, "code size %d exceeds int32", n))
	}
}

// MethodLoad records machine code generated for a method, together with
// the metadata of every method referenced by the event's inline debug
// info. The timestamp is taken before any metadata work so it reflects
// compilation time rather than resolution time.
func (s *Session) MethodLoad(method asmtrace.MethodHandle, codeAddr uint64, code []byte, inline []asmtrace.PCInfo) {
	ts := s.timestamp()
	s.checkCodeSize(len(code))

	// Resolve all metadata before taking the writer lock so a slow host
	// query never blocks other threads' record writes.
	mt := newMethodTable(s.resolver)
	defer mt.release()

	if _, err := mt.lookup(method); err != nil {
		s.checkAbandon(err)
		return
	}
	for _, pc := range inline {
		for _, frame := range pc.Frames {
			if _, err := mt.lookup(frame.Method); err != nil {
				s.checkAbandon(err)
				return
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enc == nil {
		return
	}
	w := s.enc

	w.WriteTag(trace.TagMethodLoad)
	w.WriteTimestamp(ts)
	w.WriteU64(codeAddr)
	w.WriteI32(int32(len(code)))
	w.WriteRaw(code)

	w.WriteTag(trace.TagMethods)
	w.WriteI32(int32(len(mt.records)))
	for _, rec := range mt.records {
		w.WriteString(rec.classSignature)
		w.WriteString(rec.name)
		w.WriteString(rec.signature)
		if rec.hasSourceFile {
			w.WriteString(rec.sourceFile)
		} else {
			w.WriteNullString()
		}
		w.WriteI32(int32(len(rec.lines)))
		for _, line := range rec.lines {
			w.WriteU64(uint64(line.Offset))
			w.WriteI32(line.Line)
		}
	}

	// Debug info references methods by the ids assigned above. The
	// section is present even with no inline information so readers
	// always find both sections.
	w.WriteTag(trace.TagDebugInfo)
	w.WriteI32(int32(len(inline)))
	for _, pc := range inline {
		w.WriteU64(pc.PC)
		w.WriteI32(int32(len(pc.Frames)))
		for _, frame := range pc.Frames {
			rec, ok := mt.find(frame.Method)
			if !ok {
				s.fatal(errors.Wrap(errors.PhaseEncode, errors.KindMetadata, nil,
					"inline frame references unresolved method"))
				return
			}
			w.WriteI32(rec.id)
			w.WriteI32(frame.ByteCodeIndex)
		}
	}

	s.flushLocked()
	s.loads.Add(1)
}

// MethodUnload records that a previously reported code address is no
// longer valid. No metadata is resolved; the address identifies the
// range being retired.
func (s *Session) MethodUnload(_ asmtrace.MethodHandle, codeAddr uint64) {
	ts := s.timestamp()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enc == nil {
		return
	}
	w := s.enc

	w.WriteTag(trace.TagMethodUnload)
	w.WriteTimestamp(ts)
	w.WriteU64(codeAddr)

	s.flushLocked()
	s.unloads.Add(1)
}

// DynamicCode records runtime-generated code with no associated method,
// such as interpreter stubs.
func (s *Session) DynamicCode(name string, codeAddr uint64, code []byte) {
	ts := s.timestamp()
	s.checkCodeSize(len(code))

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enc == nil {
		return
	}
	w := s.enc

	w.WriteTag(trace.TagDynamicCode)
	w.WriteTimestamp(ts)
	w.WriteString(name)
	w.WriteU64(codeAddr)
	w.WriteI32(int32(len(code)))
	w.WriteRaw(code)

	s.flushLocked()
	s.dynamics.Add(1)
}

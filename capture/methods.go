package capture

import (
	stderrors "errors"

	"github.com/wippyai/asmtrace"
	"github.com/wippyai/asmtrace/errors"
)

// methodRecord caches the resolved metadata for one method handle. The
// id cross-references this method from debug-info frames written later
// in the same record.
type methodRecord struct {
	id             int32
	handle         asmtrace.MethodHandle
	classSignature string
	name           string
	signature      string
	sourceFile     string
	hasSourceFile  bool
	lines          []asmtrace.LineEntry
}

// methodTable is the event-local metadata cache. A fresh table is built
// for every compilation event and discarded at its end, trading repeated
// small lookups for zero cross-event concurrency or growth concerns.
// Methods per event are few, so lookup is a linear scan.
type methodTable struct {
	resolver asmtrace.Resolver
	records  []*methodRecord
}

func newMethodTable(r asmtrace.Resolver) *methodTable {
	return &methodTable{resolver: r}
}

// find returns the already-resolved record for a handle, if any.
func (t *methodTable) find(m asmtrace.MethodHandle) (*methodRecord, bool) {
	for _, rec := range t.records {
		if rec.handle == m {
			return rec, true
		}
	}
	return nil, false
}

// lookup returns the cached record for a handle, resolving and caching
// it on first observation. Ids are assigned sequentially in first-seen
// order starting at 0.
//
// If the host reports it is shutting down, lookup releases the partial
// record and returns asmtrace.ErrShutdown: the caller must abandon the
// whole event without writing anything. Any other query failure returns
// a structured metadata error the caller must treat as fatal.
func (t *methodTable) lookup(m asmtrace.MethodHandle) (*methodRecord, error) {
	if rec, ok := t.find(m); ok {
		return rec, nil
	}

	rec := &methodRecord{id: int32(len(t.records)), handle: m}
	var err error

	rec.name, rec.signature, err = t.resolver.MethodName(m)
	if err != nil {
		return nil, t.abandon(m, "MethodName", err)
	}
	class, err := t.resolver.DeclaringClass(m)
	if err != nil {
		return nil, t.abandon(m, "DeclaringClass", err)
	}
	rec.classSignature, err = t.resolver.ClassSignature(class)
	if err != nil {
		return nil, t.abandon(m, "ClassSignature", err)
	}

	switch src, err := t.resolver.SourceFileName(class); {
	case err == nil:
		rec.sourceFile, rec.hasSourceFile = src, true
	case stderrors.Is(err, asmtrace.ErrAbsent):
		// No source file attribute; encoded as a null string.
	default:
		return nil, t.abandon(m, "SourceFileName", err)
	}

	switch lines, err := t.resolver.LineNumberTable(m); {
	case err == nil:
		rec.lines = lines
	case stderrors.Is(err, asmtrace.ErrAbsent), stderrors.Is(err, asmtrace.ErrNativeMethod):
		// No line numbers; encoded as an empty table.
	default:
		return nil, t.abandon(m, "LineNumberTable", err)
	}

	t.records = append(t.records, rec)
	return rec, nil
}

// abandon releases the storage behind a partially resolved record and
// classifies the failure. The host's shutdown condition passes through
// as the ErrShutdown sentinel; everything else becomes a metadata error.
func (t *methodTable) abandon(m asmtrace.MethodHandle, query string, err error) error {
	if rel, ok := t.resolver.(asmtrace.Releaser); ok {
		rel.Release(m)
	}
	if stderrors.Is(err, asmtrace.ErrShutdown) {
		return asmtrace.ErrShutdown
	}
	return errors.Metadata(query, err)
}

// release returns every fully resolved record's storage to the host.
// Called on every exit path of the owning event.
func (t *methodTable) release() {
	rel, ok := t.resolver.(asmtrace.Releaser)
	if !ok {
		t.records = nil
		return
	}
	for _, rec := range t.records {
		rel.Release(rec.handle)
	}
	t.records = nil
}

package capture

import (
	"sync"

	"github.com/wippyai/asmtrace"
)

// fakeMethod is the scripted metadata behind one method handle.
type fakeMethod struct {
	name      string
	signature string
	class     asmtrace.ClassHandle
	hasSource bool
	source    string
	lines     []asmtrace.LineEntry
	native    bool
}

// fakeResolver plays the host runtime for tests. It can be scripted to
// fail a named query with a given error and counts Release calls per
// handle to verify the exactly-once release contract.
type fakeResolver struct {
	mu        sync.Mutex
	methods   map[asmtrace.MethodHandle]fakeMethod
	classSigs map[asmtrace.ClassHandle]string

	failQuery  string
	failErr    error
	failHandle asmtrace.MethodHandle // 0 means any handle

	releases map[asmtrace.MethodHandle]int
	nanos    int64
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		methods:   map[asmtrace.MethodHandle]fakeMethod{},
		classSigs: map[asmtrace.ClassHandle]string{},
		releases:  map[asmtrace.MethodHandle]int{},
		nanos:     424242,
	}
}

func (r *fakeResolver) addMethod(h asmtrace.MethodHandle, m fakeMethod) {
	r.methods[h] = m
	if _, ok := r.classSigs[m.class]; !ok {
		r.classSigs[m.class] = "Lclass" + string(rune('0'+int(m.class))) + ";"
	}
}

func (r *fakeResolver) failOn(query string, err error) {
	r.failQuery = query
	r.failErr = err
}

func (r *fakeResolver) check(query string) error {
	if r.failQuery == query {
		return r.failErr
	}
	return nil
}

// checkMethod is the per-method variant of check, honoring failHandle.
func (r *fakeResolver) checkMethod(query string, m asmtrace.MethodHandle) error {
	if r.failQuery == query && (r.failHandle == 0 || r.failHandle == m) {
		return r.failErr
	}
	return nil
}

func (r *fakeResolver) MethodName(m asmtrace.MethodHandle) (string, string, error) {
	if err := r.checkMethod("MethodName", m); err != nil {
		return "", "", err
	}
	fm, ok := r.methods[m]
	if !ok {
		return "", "", asmtrace.ErrAbsent
	}
	return fm.name, fm.signature, nil
}

func (r *fakeResolver) DeclaringClass(m asmtrace.MethodHandle) (asmtrace.ClassHandle, error) {
	if err := r.check("DeclaringClass"); err != nil {
		return 0, err
	}
	return r.methods[m].class, nil
}

func (r *fakeResolver) ClassSignature(c asmtrace.ClassHandle) (string, error) {
	if err := r.check("ClassSignature"); err != nil {
		return "", err
	}
	return r.classSigs[c], nil
}

func (r *fakeResolver) SourceFileName(c asmtrace.ClassHandle) (string, error) {
	if err := r.check("SourceFileName"); err != nil {
		return "", err
	}
	for _, fm := range r.methods {
		if fm.class == c {
			if !fm.hasSource {
				return "", asmtrace.ErrAbsent
			}
			return fm.source, nil
		}
	}
	return "", asmtrace.ErrAbsent
}

func (r *fakeResolver) LineNumberTable(m asmtrace.MethodHandle) ([]asmtrace.LineEntry, error) {
	if err := r.checkMethod("LineNumberTable", m); err != nil {
		return nil, err
	}
	fm := r.methods[m]
	if fm.native {
		return nil, asmtrace.ErrNativeMethod
	}
	return fm.lines, nil
}

func (r *fakeResolver) RuntimeTime() (int64, error) {
	if err := r.check("RuntimeTime"); err != nil {
		return 0, err
	}
	return r.nanos, nil
}

func (r *fakeResolver) Release(m asmtrace.MethodHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.releases[m]++
}

func (r *fakeResolver) released(m asmtrace.MethodHandle) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.releases[m]
}

package trace

import (
	"bytes"
	stderrors "errors"
	"testing"

	"github.com/wippyai/asmtrace/errors"
)

// failCollector records failures instead of terminating so encoder
// behavior can be asserted.
type failCollector struct {
	errs []error
}

func (f *failCollector) fail(err error) {
	f.errs = append(f.errs, err)
}

func TestWriterWriteU32(t *testing.T) {
	tests := []struct {
		value uint32
		want  []byte
	}{
		{0, []byte{0x00, 0x00, 0x00, 0x00}},
		{1, []byte{0x00, 0x00, 0x00, 0x01}},
		{0x01020304, []byte{0x01, 0x02, 0x03, 0x04}},
		{0xFFFFFFFF, []byte{0xff, 0xff, 0xff, 0xff}},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		var fc failCollector
		w := NewWriter(&buf, fc.fail)
		w.WriteU32(tt.value)
		if !bytes.Equal(buf.Bytes(), tt.want) {
			t.Errorf("WriteU32(0x%x): got %v, want %v", tt.value, buf.Bytes(), tt.want)
		}
		if len(fc.errs) != 0 {
			t.Errorf("WriteU32(0x%x): unexpected failures %v", tt.value, fc.errs)
		}
	}
}

func TestWriterWriteI32Negative(t *testing.T) {
	var buf bytes.Buffer
	var fc failCollector
	w := NewWriter(&buf, fc.fail)
	w.WriteI32(-1)
	want := []byte{0xff, 0xff, 0xff, 0xff}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("WriteI32(-1): got %v, want %v", buf.Bytes(), want)
	}
}

func TestWriterWriteU64(t *testing.T) {
	tests := []struct {
		value uint64
		want  []byte
	}{
		{0, []byte{0, 0, 0, 0, 0, 0, 0, 0}},
		{1, []byte{0, 0, 0, 0, 0, 0, 0, 1}},
		{0x0102030405060708, []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		var fc failCollector
		w := NewWriter(&buf, fc.fail)
		w.WriteU64(tt.value)
		if !bytes.Equal(buf.Bytes(), tt.want) {
			t.Errorf("WriteU64(0x%x): got %v, want %v", tt.value, buf.Bytes(), tt.want)
		}
	}
}

func TestWriterWriteString(t *testing.T) {
	var buf bytes.Buffer
	var fc failCollector
	w := NewWriter(&buf, fc.fail)
	w.WriteString("arch")
	want := []byte{0x00, 0x00, 0x00, 0x04, 'a', 'r', 'c', 'h'}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("WriteString: got %v, want %v", buf.Bytes(), want)
	}
}

func TestWriterEmptyVsNullString(t *testing.T) {
	var buf bytes.Buffer
	var fc failCollector
	w := NewWriter(&buf, fc.fail)

	w.WriteString("")
	if !bytes.Equal(buf.Bytes(), []byte{0, 0, 0, 0}) {
		t.Errorf("empty string: got %v, want length 0", buf.Bytes())
	}

	buf.Reset()
	w.WriteNullString()
	if !bytes.Equal(buf.Bytes(), []byte{0xff, 0xff, 0xff, 0xff}) {
		t.Errorf("null string: got %v, want length -1", buf.Bytes())
	}
}

func TestWriterWriteTag(t *testing.T) {
	tests := []struct {
		tag  Tag
		want []byte
	}{
		{TagDynamicCode, []byte{'D', 'Y', 'N', 'C'}},
		{TagMethodLoad, []byte{'C', 'M', 'L', 'T'}},
		{TagMethods, []byte{'M', 'T', 'H', 'T'}},
		{TagDebugInfo, []byte{'D', 'E', 'B', 'I'}},
		{TagMethodUnload, []byte{'C', 'M', 'U', 'T'}},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		var fc failCollector
		w := NewWriter(&buf, fc.fail)
		w.WriteTag(tt.tag)
		if !bytes.Equal(buf.Bytes(), tt.want) {
			t.Errorf("WriteTag(%s): got %v, want %v", tt.tag, buf.Bytes(), tt.want)
		}
		if tt.tag.String() != string(tt.want) {
			t.Errorf("Tag.String: got %q, want %q", tt.tag.String(), tt.want)
		}
	}
}

func TestWriterWriteTimestamp(t *testing.T) {
	var buf bytes.Buffer
	var fc failCollector
	w := NewWriter(&buf, fc.fail)
	w.WriteTimestamp(Timestamp{Sec: 1, Nsec: 2})
	want := []byte{
		0, 0, 0, 0, 0, 0, 0, 1,
		0, 0, 0, 0, 0, 0, 0, 2,
	}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("WriteTimestamp: got %v, want %v", buf.Bytes(), want)
	}
}

// brokenWriter fails after n bytes.
type brokenWriter struct {
	n int
}

func (b *brokenWriter) Write(p []byte) (int, error) {
	if len(p) > b.n {
		n := b.n
		b.n = 0
		return n, stderrors.New("device full")
	}
	b.n -= len(p)
	return len(p), nil
}

func TestWriterShortWriteFails(t *testing.T) {
	var fc failCollector
	w := NewWriter(&brokenWriter{n: 2}, fc.fail)
	w.WriteU32(7)
	if len(fc.errs) != 1 {
		t.Fatalf("expected one failure, got %v", fc.errs)
	}
	want := &errors.Error{Phase: errors.PhaseEncode, Kind: errors.KindIO}
	if !stderrors.Is(fc.errs[0], want) {
		t.Errorf("failure: got %v, want encode/io", fc.errs[0])
	}
}

func TestWriterRawBytes(t *testing.T) {
	var buf bytes.Buffer
	var fc failCollector
	w := NewWriter(&buf, fc.fail)
	code := []byte{0x90, 0x90, 0xc3}
	w.WriteRaw(code)
	if !bytes.Equal(buf.Bytes(), code) {
		t.Errorf("WriteRaw: got %v, want %v", buf.Bytes(), code)
	}
}

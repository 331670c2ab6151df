package trace

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/wippyai/asmtrace/errors"
)

// Writer serializes trace primitives to an output sink. It does not
// buffer or lock; callers own both concerns.
//
// Write failures are reported through the fail callback, which must not
// return: a short write means captured data was lost and the capture
// policy is to terminate rather than continue with a corrupt trace.
type Writer struct {
	w    io.Writer
	fail func(error)
}

// NewWriter creates a Writer over w. fail is invoked with a structured
// error on any write failure and must not return.
func NewWriter(w io.Writer, fail func(error)) *Writer {
	return &Writer{w: w, fail: fail}
}

func (w *Writer) write(data []byte, what string) {
	n, err := w.w.Write(data)
	if err == nil && n != len(data) {
		err = io.ErrShortWrite
	}
	if err != nil {
		w.fail(errors.IO(errors.PhaseEncode, what, err))
	}
}

// WriteU32 writes a 4-byte big-endian value.
func (w *Writer) WriteU32(v uint32) {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	w.write(buf[:], "u32")
}

// WriteI32 writes a 4-byte big-endian two's-complement value.
func (w *Writer) WriteI32(v int32) {
	w.WriteU32(uint32(v))
}

// WriteU64 writes an 8-byte big-endian value. The conversion is done by
// a single platform-independent routine rather than per-call-site byte
// swapping.
func (w *Writer) WriteU64(v uint64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	w.write(buf[:], "u64")
}

// WriteTag writes a record or section tag.
func (w *Writer) WriteTag(t Tag) {
	w.WriteU32(uint32(t))
}

// WriteTimestamp writes a capture-clock reading as two u64 fields.
func (w *Writer) WriteTimestamp(ts Timestamp) {
	w.WriteU64(uint64(ts.Sec))
	w.WriteU64(uint64(ts.Nsec))
}

// WriteString writes a 4-byte big-endian length followed by the raw
// bytes. The length must fit a signed 32-bit integer; longer strings
// are a fatal condition. A zero-length string writes length 0 and is
// distinct from a null string.
func (w *Writer) WriteString(s string) {
	if int64(len(s)) > math.MaxInt32 {
		w.fail(errors.Overflow(errors.PhaseEncode, "string length %d exceeds int32", len(s)))
		return
	}
	w.WriteI32(int32(len(s)))
	if len(s) > 0 {
		w.write([]byte(s), "string bytes")
	}
}

// WriteNullString writes the null marker, length -1. Call sites choose
// between WriteString and WriteNullString so that required strings can
// never silently encode as null.
func (w *Writer) WriteNullString() {
	w.WriteI32(-1)
}

// WriteRaw writes the bytes verbatim, used for machine-code bodies.
func (w *Writer) WriteRaw(b []byte) {
	if len(b) > 0 {
		w.write(b, "raw code bytes")
	}
}

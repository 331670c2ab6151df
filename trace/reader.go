package trace

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/wippyai/asmtrace"
)

// Reader decodes a trace file sequentially. It is the consumer-side
// counterpart of Writer; the capture agent itself never reads traces.
type Reader struct {
	r io.Reader
}

// NewReader creates a Reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

func (r *Reader) readFull(buf []byte, what string) error {
	if _, err := io.ReadFull(r.r, buf); err != nil {
		return fmt.Errorf("trace: read %s: %w", what, err)
	}
	return nil
}

func (r *Reader) readU32(what string) (uint32, error) {
	var buf [4]byte
	if err := r.readFull(buf[:], what); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

func (r *Reader) readI32(what string) (int32, error) {
	v, err := r.readU32(what)
	return int32(v), err
}

func (r *Reader) readU64(what string) (uint64, error) {
	var buf [8]byte
	if err := r.readFull(buf[:], what); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}

func (r *Reader) readTimestamp() (Timestamp, error) {
	sec, err := r.readU64("timestamp seconds")
	if err != nil {
		return Timestamp{}, err
	}
	nsec, err := r.readU64("timestamp nanoseconds")
	if err != nil {
		return Timestamp{}, err
	}
	return Timestamp{Sec: int64(sec), Nsec: int64(nsec)}, nil
}

// readString reads a length-prefixed string. ok is false for the null
// marker (length -1), which is distinct from the empty string.
func (r *Reader) readString(what string) (s string, ok bool, err error) {
	n, err := r.readI32(what + " length")
	if err != nil {
		return "", false, err
	}
	switch {
	case n == -1:
		return "", false, nil
	case n < 0:
		return "", false, fmt.Errorf("trace: %s: invalid length %d", what, n)
	case n == 0:
		return "", true, nil
	}
	buf := make([]byte, n)
	if err := r.readFull(buf, what); err != nil {
		return "", false, err
	}
	return string(buf), true, nil
}

func (r *Reader) readRequiredString(what string) (string, error) {
	s, ok, err := r.readString(what)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("trace: %s: unexpected null string", what)
	}
	return s, nil
}

// ReadHeader reads and validates the file header.
func (r *Reader) ReadHeader() (*Header, error) {
	tag := make([]byte, len(FileTag))
	if err := r.readFull(tag, "file tag"); err != nil {
		return nil, err
	}
	if string(tag) != FileTag {
		return nil, fmt.Errorf("trace: bad file tag %q", tag)
	}
	h := &Header{}
	var err error
	if h.Major, err = r.readI32("major version"); err != nil {
		return nil, err
	}
	if h.Minor, err = r.readI32("minor version"); err != nil {
		return nil, err
	}
	if h.Major != MajorVersion {
		return nil, fmt.Errorf("trace: unsupported version %d.%d", h.Major, h.Minor)
	}
	if h.Arch, err = r.readRequiredString("architecture"); err != nil {
		return nil, err
	}
	if h.CaptureTime, err = r.readTimestamp(); err != nil {
		return nil, err
	}
	nanos, err := r.readU64("runtime clock")
	if err != nil {
		return nil, err
	}
	h.RuntimeNanos = int64(nanos)
	return h, nil
}

// Next reads the next record. It returns *MethodLoad, *MethodUnload or
// *DynamicCode, or io.EOF at a clean record boundary.
func (r *Reader) Next() (any, error) {
	tag, err := r.readU32("record tag")
	if err != nil {
		if isEOF(err) {
			return nil, io.EOF
		}
		return nil, err
	}
	switch Tag(tag) {
	case TagMethodLoad:
		return r.readMethodLoad()
	case TagMethodUnload:
		return r.readMethodUnload()
	case TagDynamicCode:
		return r.readDynamicCode()
	default:
		return nil, fmt.Errorf("trace: unknown record tag 0x%08x", tag)
	}
}

// isEOF reports a clean end of file. io.ReadFull returns io.EOF only
// when zero bytes were read; a record tag cut off mid-way surfaces as
// io.ErrUnexpectedEOF and stays an error.
func isEOF(err error) bool {
	return errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF)
}

func (r *Reader) readCode() ([]byte, error) {
	size, err := r.readI32("code size")
	if err != nil {
		return nil, err
	}
	if size < 0 {
		return nil, fmt.Errorf("trace: invalid code size %d", size)
	}
	code := make([]byte, size)
	if size > 0 {
		if err := r.readFull(code, "code bytes"); err != nil {
			return nil, err
		}
	}
	return code, nil
}

func (r *Reader) expectTag(want Tag) error {
	tag, err := r.readU32("section tag")
	if err != nil {
		return err
	}
	if Tag(tag) != want {
		return fmt.Errorf("trace: expected %s section, found 0x%08x", want, tag)
	}
	return nil
}

func (r *Reader) readMethodLoad() (*MethodLoad, error) {
	rec := &MethodLoad{}
	var err error
	if rec.Time, err = r.readTimestamp(); err != nil {
		return nil, err
	}
	if rec.CodeAddr, err = r.readU64("code address"); err != nil {
		return nil, err
	}
	if rec.Code, err = r.readCode(); err != nil {
		return nil, err
	}

	if err := r.expectTag(TagMethods); err != nil {
		return nil, err
	}
	count, err := r.readI32("method count")
	if err != nil {
		return nil, err
	}
	if count < 0 {
		return nil, fmt.Errorf("trace: invalid method count %d", count)
	}
	for i := int32(0); i < count; i++ {
		m := Method{}
		if m.ClassSignature, err = r.readRequiredString("class signature"); err != nil {
			return nil, err
		}
		if m.Name, err = r.readRequiredString("method name"); err != nil {
			return nil, err
		}
		if m.Signature, err = r.readRequiredString("method signature"); err != nil {
			return nil, err
		}
		if m.SourceFile, m.HasSourceFile, err = r.readString("source file"); err != nil {
			return nil, err
		}
		lineCount, err := r.readI32("line count")
		if err != nil {
			return nil, err
		}
		if lineCount < 0 {
			return nil, fmt.Errorf("trace: invalid line count %d", lineCount)
		}
		for j := int32(0); j < lineCount; j++ {
			offset, err := r.readU64("bytecode offset")
			if err != nil {
				return nil, err
			}
			line, err := r.readI32("line number")
			if err != nil {
				return nil, err
			}
			m.Lines = append(m.Lines, asmtrace.LineEntry{Offset: int64(offset), Line: line})
		}
		rec.Methods = append(rec.Methods, m)
	}

	if err := r.expectTag(TagDebugInfo); err != nil {
		return nil, err
	}
	pcCount, err := r.readI32("pc count")
	if err != nil {
		return nil, err
	}
	if pcCount < 0 {
		return nil, fmt.Errorf("trace: invalid pc count %d", pcCount)
	}
	for i := int32(0); i < pcCount; i++ {
		pc := PCDebug{}
		if pc.PC, err = r.readU64("pc"); err != nil {
			return nil, err
		}
		frameCount, err := r.readI32("frame count")
		if err != nil {
			return nil, err
		}
		if frameCount < 0 {
			return nil, fmt.Errorf("trace: invalid frame count %d", frameCount)
		}
		for j := int32(0); j < frameCount; j++ {
			id, err := r.readI32("method id")
			if err != nil {
				return nil, err
			}
			if id < 0 || id >= count {
				return nil, fmt.Errorf("trace: method id %d outside method table of %d", id, count)
			}
			bci, err := r.readI32("bytecode index")
			if err != nil {
				return nil, err
			}
			pc.Frames = append(pc.Frames, DebugFrame{MethodID: id, ByteCodeIndex: bci})
		}
		rec.PCs = append(rec.PCs, pc)
	}
	return rec, nil
}

func (r *Reader) readMethodUnload() (*MethodUnload, error) {
	rec := &MethodUnload{}
	var err error
	if rec.Time, err = r.readTimestamp(); err != nil {
		return nil, err
	}
	if rec.CodeAddr, err = r.readU64("code address"); err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *Reader) readDynamicCode() (*DynamicCode, error) {
	rec := &DynamicCode{}
	var err error
	if rec.Time, err = r.readTimestamp(); err != nil {
		return nil, err
	}
	if rec.Name, err = r.readRequiredString("dynamic code name"); err != nil {
		return nil, err
	}
	if rec.CodeAddr, err = r.readU64("code address"); err != nil {
		return nil, err
	}
	rec.Code, err = r.readCode()
	if err != nil {
		return nil, err
	}
	return rec, nil
}

package trace

import "github.com/wippyai/asmtrace"

// FileTag is the 8-byte magic at the start of every trace file.
const FileTag = "JVMTIASM"

// Format version written to the header.
const (
	MajorVersion = 1
	MinorVersion = 0
)

// Tag marks a record or section in the trace file.
type Tag uint32

// Record and section tags. The byte sequence of each tag in the file is
// its four ASCII characters.
const (
	TagDynamicCode  Tag = 'D'<<24 | 'Y'<<16 | 'N'<<8 | 'C'
	TagMethodLoad   Tag = 'C'<<24 | 'M'<<16 | 'L'<<8 | 'T'
	TagMethods      Tag = 'M'<<24 | 'T'<<16 | 'H'<<8 | 'T'
	TagDebugInfo    Tag = 'D'<<24 | 'E'<<16 | 'B'<<8 | 'I'
	TagMethodUnload Tag = 'C'<<24 | 'M'<<16 | 'U'<<8 | 'T'
)

// String returns the four ASCII characters of the tag.
func (t Tag) String() string {
	return string([]byte{byte(t >> 24), byte(t >> 16), byte(t >> 8), byte(t)})
}

// Timestamp is a capture-clock reading, written to the file as two
// unsigned 64-bit fields.
type Timestamp struct {
	Sec  int64
	Nsec int64
}

// Header is the decoded file header.
type Header struct {
	Major        int32
	Minor        int32
	Arch         string
	CaptureTime  Timestamp
	RuntimeNanos int64
}

// Method is one decoded entry of a CMLT record's method table.
type Method struct {
	ClassSignature string
	Name           string
	Signature      string
	SourceFile     string
	HasSourceFile  bool
	Lines          []asmtrace.LineEntry
}

// DebugFrame is one decoded inline frame of a DEBI section. MethodID
// indexes the method table written earlier in the same record.
type DebugFrame struct {
	MethodID      int32
	ByteCodeIndex int32
}

// PCDebug is the decoded inline stack at one program counter.
type PCDebug struct {
	PC     uint64
	Frames []DebugFrame
}

// MethodLoad is a decoded CMLT record.
type MethodLoad struct {
	Time     Timestamp
	CodeAddr uint64
	Code     []byte
	Methods  []Method
	PCs      []PCDebug
}

// MethodUnload is a decoded CMUT record.
type MethodUnload struct {
	Time     Timestamp
	CodeAddr uint64
}

// DynamicCode is a decoded DYNC record.
type DynamicCode struct {
	Time     Timestamp
	Name     string
	CodeAddr uint64
	Code     []byte
}

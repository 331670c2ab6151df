// Package trace implements the binary trace file format.
//
// A trace file is a fixed header followed by a flat concatenation of
// self-delimiting records with no index; readers scan sequentially.
// All multi-byte integers are big-endian (network order).
//
//	Header: 8-byte file tag "JVMTIASM"
//	        u32 major version | u32 minor version
//	        length-prefixed architecture string
//	        capture-clock timestamp (u64 sec, u64 nsec)
//	        u64 runtime-clock nanoseconds
//	Record: u32 tag, one of CMLT, CMUT, DYNC, then a tag-specific body.
//
// CMLT records embed a MTHT method table and a DEBI debug-info section
// whose frames reference method-table entries by index.
//
// The Writer reports failures through a callback instead of error
// returns: a short write means captured data was lost, which the
// capture layer treats as fatal.
package trace

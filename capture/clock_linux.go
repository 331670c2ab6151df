//go:build linux

package capture

import (
	"golang.org/x/sys/unix"

	"github.com/wippyai/asmtrace/trace"
)

// Trace timestamps are matched against other profiling data sources, so
// they must come from the same clock those tools use. On Linux that is
// CLOCK_MONOTONIC, the non-adjustable clock perf records with.
const clockID = unix.CLOCK_MONOTONIC

func readClock() (trace.Timestamp, error) {
	var ts unix.Timespec
	if err := unix.ClockGettime(clockID, &ts); err != nil {
		return trace.Timestamp{}, err
	}
	return trace.Timestamp{Sec: int64(ts.Sec), Nsec: int64(ts.Nsec)}, nil
}

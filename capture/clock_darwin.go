//go:build darwin

package capture

import (
	"golang.org/x/sys/unix"

	"github.com/wippyai/asmtrace/trace"
)

// Instruments reports times based on gettimeofday, which is the same
// clock as CLOCK_REALTIME, so that is what trace timestamps use here.
const clockID = unix.CLOCK_REALTIME

func readClock() (trace.Timestamp, error) {
	var ts unix.Timespec
	if err := unix.ClockGettime(clockID, &ts); err != nil {
		return trace.Timestamp{}, err
	}
	return trace.Timestamp{Sec: int64(ts.Sec), Nsec: int64(ts.Nsec)}, nil
}

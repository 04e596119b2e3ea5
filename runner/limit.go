package runner

import (
	"fmt"
	"strings"
	"time"
)

// Limit represents the resource limits for a single run. Zero value of any
// field means no additional cap beyond the host default.
type Limit struct {
	CPUTime  time.Duration // user + system CPU time, enforced by RLIMIT_CPU (rounded up to seconds)
	RealTime time.Duration // wall clock time, enforced by the supervisor
	Memory   Size          // address space, enforced by RLIMIT_AS
	Output   Size          // maximum file size written, enforced by RLIMIT_FSIZE
	Stack    Size          // stack size, enforced by RLIMIT_STACK
	Process  uint64        // processes of the real user, enforced by RLIMIT_NPROC
}

// CPUSeconds returns the CPU time limit rounded up to whole seconds, as
// RLIMIT_CPU only accepts seconds
func (l Limit) CPUSeconds() uint64 {
	if l.CPUTime <= 0 {
		return 0
	}
	return uint64((l.CPUTime + time.Second - 1) / time.Second)
}

func (l Limit) String() string {
	var sb strings.Builder
	sb.WriteString("Limit[")
	fmt.Fprintf(&sb, "CPU=%v, Real=%v, Memory=%v, Output=%v, Stack=%v, Process=%d",
		l.CPUTime, l.RealTime, l.Memory, l.Output, l.Stack, l.Process)
	sb.WriteString("]")
	return sb.String()
}

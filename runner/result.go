package runner

import (
	"fmt"
	"syscall"
	"time"
)

// Result is the program runner result
type Result struct {
	Status                    // result status
	ExitStatus int            // exit status (valid when exited normally)
	Signal     syscall.Signal // terminating signal, 0 if not signalled
	Error      string         // potential detailed error message (for program runner error)

	UserTime   time.Duration // used user CPU time   (underlying type int64 in ns)
	SystemTime time.Duration // used system CPU time (underlying type int64 in ns)
	Memory     Size          // peak resident memory (underlying type uint64 in bytes)
	Output     Size          // size of the redirected stdout file

	// metrics for the program runner
	SetUpTime   time.Duration
	RunningTime time.Duration
}

// Time returns the total CPU time used by the program
func (r Result) Time() time.Duration {
	return r.UserTime + r.SystemTime
}

func (r Result) String() string {
	switch r.Status {
	case StatusNormal:
		return fmt.Sprintf("Result[%v %v][%v %v]", r.Time(), r.Memory, r.SetUpTime, r.RunningTime)

	case StatusRunnerError:
		return fmt.Sprintf("Result[RunnerFailed(%s)][%v %v][%v %v]", r.Error, r.Time(), r.Memory, r.SetUpTime, r.RunningTime)

	default:
		if r.Signal != 0 {
			return fmt.Sprintf("Result[%v(%v)][%v %v][%v %v]", r.Status, r.Signal, r.Time(), r.Memory, r.SetUpTime, r.RunningTime)
		}
		return fmt.Sprintf("Result[%v(%d)][%v %v][%v %v]", r.Status, r.ExitStatus, r.Time(), r.Memory, r.SetUpTime, r.RunningTime)
	}
}

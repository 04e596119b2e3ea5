package runner

import (
	"syscall"
	"time"
)

// DefaultMemorySlack is the fraction below the memory limit within which a
// program killed by a memory fault is still attributed to the memory limit
const DefaultMemorySlack = 0.1

// Usage is the observation of a reaped child used for classification
type Usage struct {
	Exited     bool           // child called exit
	ExitStatus int            // exit code if exited
	Signal     syscall.Signal // terminating signal if signalled

	UserTime    time.Duration
	SystemTime  time.Duration
	Memory      Size // max(sampled VmRSS, rusage maxrss)
	RunningTime time.Duration
	Output      Size // bytes written to the stdout file
	Killed      bool // killed by the supervisor on the real time limit
}

// Classify determines the status for the usage against the limit.
// The first matching rule wins:
//  1. time limit (SIGXCPU, cpu time or real time reached)
//  2. memory limit (peak memory reached, or memory fault near the limit)
//  3. output limit (SIGXFSZ or output larger than the limit)
//  4. disallowed syscall (SIGSYS)
//  5. runtime error (other signal or nonzero exit status)
//  6. normal
//
// A time limit breach is reported as memory limit only when the child was
// killed by a memory fault and the peak memory is within slack of the limit.
func Classify(u Usage, l Limit, slack float64) Status {
	signalled := !u.Exited && u.Signal != 0
	memFault := signalled && isMemoryFault(u.Signal)
	nearMemory := l.Memory > 0 && float64(u.Memory) >= float64(l.Memory)*(1-slack)

	timeExceeded := u.Killed || (signalled && u.Signal == syscall.SIGXCPU) ||
		(l.CPUTime > 0 && u.UserTime+u.SystemTime >= l.CPUTime) ||
		(l.RealTime > 0 && u.RunningTime >= l.RealTime)
	if timeExceeded {
		if memFault && nearMemory {
			return StatusMemoryLimitExceeded
		}
		return StatusTimeLimitExceeded
	}

	if l.Memory > 0 && (u.Memory >= l.Memory || (memFault && nearMemory)) {
		return StatusMemoryLimitExceeded
	}

	if (signalled && u.Signal == syscall.SIGXFSZ) || (l.Output > 0 && u.Output > l.Output) {
		return StatusOutputLimitExceeded
	}

	if signalled && u.Signal == syscall.SIGSYS {
		return StatusDisallowedSyscall
	}

	if signalled || (u.Exited && u.ExitStatus != 0) {
		return StatusRuntimeError
	}
	return StatusNormal
}

// memory allocation failure under RLIMIT_AS usually ends with one of these
func isMemoryFault(sig syscall.Signal) bool {
	switch sig {
	case syscall.SIGSEGV, syscall.SIGBUS, syscall.SIGABRT:
		return true
	}
	return false
}

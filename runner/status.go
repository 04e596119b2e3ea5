package runner

// Status is the result Status
type Status int

// Result Status for program runner
const (
	StatusInvalid Status = iota // 0 not initialized
	// Normal
	StatusNormal // 1 normal

	// Resource Limit Exceeded
	StatusTimeLimitExceeded   // 2 tle
	StatusMemoryLimitExceeded // 3 mle
	StatusOutputLimitExceeded // 4 ole

	// Unauthorized Access
	StatusDisallowedSyscall // 5 ban

	// Runtime Error
	StatusRuntimeError // 6 signalled or nonzero exit status

	// Programmer Runner Error
	StatusRunnerError // 7 runner error
)

var (
	statusString = []string{
		"Invalid",
		"",
		"Time Limit Exceeded",
		"Memory Limit Exceeded",
		"Output Limit Exceeded",
		"Disallowed Syscall",
		"Runtime Error",
		"Runner Error",
	}

	statusVerdict = []string{
		"INVALID",
		"OK",
		"TIME_LIMIT",
		"MEMORY_LIMIT",
		"OUTPUT_LIMIT",
		"BAD_SYSCALL",
		"RUNTIME_ERROR",
		"INTERNAL_ERROR",
	}
)

func (t Status) String() string {
	i := int(t)
	if i >= 0 && i < len(statusString) {
		return statusString[i]
	}
	return statusString[0]
}

func (t Status) Error() string {
	return t.String()
}

// Verdict returns the upper case verdict name used in reports (e.g. TIME_LIMIT)
func (t Status) Verdict() string {
	i := int(t)
	if i >= 0 && i < len(statusVerdict) {
		return statusVerdict[i]
	}
	return statusVerdict[0]
}

// MarshalText encodes the status as its verdict name
func (t Status) MarshalText() ([]byte, error) {
	return []byte(t.Verdict()), nil
}

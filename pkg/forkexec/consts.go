package forkexec

import (
	"golang.org/x/sys/unix"
)

// defines missing consts from syscall package
const (
	SECCOMP_SET_MODE_STRICT   = 0
	SECCOMP_SET_MODE_FILTER   = 1
	SECCOMP_FILTER_FLAG_TSYNC = 1

	// maximum execve attempts when the executable is busy
	etxtbsyRetry = 50
)

var (
	slash = [...]byte{'/', 0}
	empty = [...]byte{0}

	etxtbsyRetryInterval = unix.Timespec{Nsec: 20 * 1000 * 1000} // 20ms
)

package forkexec

import (
	"syscall"

	"github.com/judgelight/judgelight/pkg/rlimit"
)

// Runner is the configuration including the exec path, argv
// and resource limits applied to the child process
type Runner struct {
	// path for execve syscall, Args[0] if empty. Ignored when ExecFile is set
	Path string

	// argv and env for execve syscall for the child process
	Args []string
	Env  []string

	// if exec_fd is defined, then at the end, execveat(fd, "", AT_EMPTY_PATH) is called
	ExecFile uintptr

	// POSIX Resource limit set by prlimit
	RLimits []rlimit.RLimit

	// file disriptors map for new process, from 0 to len - 1
	Files []uintptr

	// chroot changes the root directory and then chdir("/") before the
	// credential is dropped
	Chroot string

	// work path set by chdir(dir) (current working directory for child)
	// if chroot is defined, this will execute after changed to new root
	WorkDir string

	// UID / GID to switch to, nil keeps the current identity
	// supplementary groups are cleared when either is set
	UID, GID *uint32

	// seccomp syscall filter applied to child
	Seccomp *syscall.SockFprog

	// no_new_privs calls prctl(PR_SET_NO_NEW_PRIVS) to disable calls to
	// setuid processes. It is automatically enabled when seccomp filter is provided
	NoNewPrivs bool
}

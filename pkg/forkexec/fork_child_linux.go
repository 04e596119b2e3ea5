package forkexec

import (
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Reference to src/syscall/exec_linux.go
//
//go:norace
func forkAndExecInChild(r *Runner, params *execParams, p [2]int) (r1 uintptr, err1 syscall.Errno) {
	// similar to exec_linux, avoid side effect by shuffling around
	fd, nextfd := prepareFds(r.Files, r.ExecFile)
	execFile := r.ExecFile
	argv0, argv, env := params.argv0, params.argv, params.env
	dropCred := r.UID != nil || r.GID != nil
	var uid, gid uintptr
	if r.UID != nil {
		uid = uintptr(*r.UID)
	}
	if r.GID != nil {
		gid = uintptr(*r.GID)
	}

	// Acquire the fork lock so that no other threads
	// create new fds that are not yet close-on-exec
	// before we fork.
	syscall.ForkLock.Lock()

	// About to call fork.
	// No more allocation or calls of non-assembly functions.
	beforeFork()

	r1, _, err1 = syscall.RawSyscall6(syscall.SYS_CLONE, uintptr(syscall.SIGCHLD), 0, 0, 0, 0, 0)
	if err1 != 0 || r1 != 0 {
		// in parent process, immediate return
		return
	}

	// In child process
	afterForkInChild()
	// Notice: cannot call any GO functions beyond this point

	pipe := p[1]

	// Close read end of pipe
	if _, _, err1 = syscall.RawSyscall(syscall.SYS_CLOSE, uintptr(p[0]), 0, 0); err1 != 0 {
		childExitError(pipe, LocCloseWrite, 0, err1)
	}

	// The pipe always ends up at nextfd so that the seccomp filter can
	// allow the error report on that fd only
	if pipe != nextfd {
		_, _, err1 = syscall.RawSyscall(syscall.SYS_DUP3, uintptr(pipe), uintptr(nextfd), syscall.O_CLOEXEC)
		if err1 != 0 {
			childExitError(pipe, LocDup3, 0, err1)
		}
		pipe = nextfd
	}
	nextfd++

	// Pass 1 & pass 2 assigns fds for child process
	// exec file would be overwritten by pass 2
	if execFile > 0 && int(execFile) < len(fd) {
		_, _, err1 = syscall.RawSyscall(syscall.SYS_DUP3, execFile, uintptr(nextfd), syscall.O_CLOEXEC)
		if err1 != 0 {
			childExitError(pipe, LocDup3, 0, err1)
		}
		execFile = uintptr(nextfd)
		nextfd++
	}
	// Pass 1: fd[i] < i => nextfd
	for i := 0; i < len(fd); i++ {
		if fd[i] >= 0 && fd[i] < i {
			_, _, err1 = syscall.RawSyscall(syscall.SYS_DUP3, uintptr(fd[i]), uintptr(nextfd), syscall.O_CLOEXEC)
			if err1 != 0 {
				childExitError(pipe, LocDup3, i, err1)
			}
			fd[i] = nextfd
			nextfd++
		}
	}
	// Pass 2: fd[i] => i
	for i := 0; i < len(fd); i++ {
		if fd[i] == -1 {
			syscall.RawSyscall(syscall.SYS_CLOSE, uintptr(i), 0, 0)
			continue
		}
		if fd[i] == i {
			// dup2(i, i) will not clear close on exec flag, need to reset the flag
			_, _, err1 = syscall.RawSyscall(syscall.SYS_FCNTL, uintptr(fd[i]), syscall.F_SETFD, 0)
			if err1 != 0 {
				childExitError(pipe, LocFcntl, i, err1)
			}
			continue
		}
		_, _, err1 = syscall.RawSyscall(syscall.SYS_DUP3, uintptr(fd[i]), uintptr(i), 0)
		if err1 != 0 {
			childExitError(pipe, LocDup3, i, err1)
		}
	}

	// New session and process group so that the whole tree can be killed
	_, _, err1 = syscall.RawSyscall(syscall.SYS_SETSID, 0, 0, 0)
	if err1 != 0 {
		childExitError(pipe, LocSetSid, 0, err1)
	}

	// chroot needs privilege, so it goes before the credential drop
	if params.chroot != nil {
		_, _, err1 = syscall.RawSyscall(syscall.SYS_CHROOT, uintptr(unsafe.Pointer(params.chroot)), 0, 0)
		if err1 != 0 {
			childExitError(pipe, LocChroot, 0, err1)
		}
		_, _, err1 = syscall.RawSyscall(syscall.SYS_CHDIR, uintptr(unsafe.Pointer(&slash[0])), 0, 0)
		if err1 != 0 {
			childExitError(pipe, LocChrootChdir, 0, err1)
		}
	}

	// Drop group before user, setgid is not permitted afterwards
	if dropCred {
		_, _, err1 = syscall.RawSyscall(unix.SYS_SETGROUPS, 0, 0, 0)
		if err1 != 0 {
			childExitError(pipe, LocSetGroups, 0, err1)
		}
		if r.GID != nil {
			_, _, err1 = syscall.RawSyscall(unix.SYS_SETGID, gid, 0, 0)
			if err1 != 0 {
				childExitError(pipe, LocSetGid, 0, err1)
			}
		}
		if r.UID != nil {
			_, _, err1 = syscall.RawSyscall(unix.SYS_SETUID, uid, 0, 0)
			if err1 != 0 {
				childExitError(pipe, LocSetUid, 0, err1)
			}
		}
	}

	// chdir for child
	if params.workdir != nil {
		_, _, err1 = syscall.RawSyscall(syscall.SYS_CHDIR, uintptr(unsafe.Pointer(params.workdir)), 0, 0)
		if err1 != 0 {
			childExitError(pipe, LocChdir, 0, err1)
		}
	}

	// Set limit
	for i, rlim := range r.RLimits {
		// prlimit instead of setrlimit to avoid 32-bit limitation (linux > 3.2)
		_, _, err1 = syscall.RawSyscall6(syscall.SYS_PRLIMIT64, 0, uintptr(rlim.Res), uintptr(unsafe.Pointer(&rlim.Rlim)), 0, 0, 0)
		if err1 != 0 {
			childExitError(pipe, LocSetRlimit, i, err1)
		}
	}

	// No new privs
	if r.NoNewPrivs || r.Seccomp != nil {
		_, _, err1 = syscall.RawSyscall6(syscall.SYS_PRCTL, unix.PR_SET_NO_NEW_PRIVS, 1, 0, 0, 0, 0)
		if err1 != 0 {
			childExitError(pipe, LocSetNoNewPrivs, 0, err1)
		}
	}

	// Load seccomp filter, only execve is expected from here on
	if r.Seccomp != nil {
		_, _, err1 = syscall.RawSyscall(unix.SYS_SECCOMP, SECCOMP_SET_MODE_FILTER, SECCOMP_FILTER_FLAG_TSYNC, uintptr(unsafe.Pointer(r.Seccomp)))
		if err1 != 0 {
			childExitError(pipe, LocSeccomp, 0, err1)
		}
	}

	// time to exec
	// if execfile fd is specified, call fexecve
	for range [etxtbsyRetry]struct{}{} {
		if execFile > 0 {
			_, _, err1 = syscall.RawSyscall6(unix.SYS_EXECVEAT, execFile,
				uintptr(unsafe.Pointer(&empty[0])), uintptr(unsafe.Pointer(&argv[0])),
				uintptr(unsafe.Pointer(&env[0])), unix.AT_EMPTY_PATH, 0)
		} else {
			_, _, err1 = syscall.RawSyscall(unix.SYS_EXECVE, uintptr(unsafe.Pointer(argv0)),
				uintptr(unsafe.Pointer(&argv[0])), uintptr(unsafe.Pointer(&env[0])))
		}
		// ETXTBSY happens when another fork still holds the write fd of a
		// freshly copied executable, wait for it to exec
		if err1 != syscall.ETXTBSY {
			break
		}
		syscall.RawSyscall(unix.SYS_NANOSLEEP, uintptr(unsafe.Pointer(&etxtbsyRetryInterval)), 0, 0)
	}
	childExitError(pipe, LocExecve, 0, err1)
	return
}

//go:nosplit
func childExitError(pipe int, loc ErrorLocation, idx int, err syscall.Errno) {
	childError := ChildError{
		Err:      err,
		Location: loc,
		Index:    idx,
	}

	// send error code on pipe
	syscall.RawSyscall(unix.SYS_WRITE, uintptr(pipe), uintptr(unsafe.Pointer(&childError)), unsafe.Sizeof(childError))
	for {
		syscall.RawSyscall(syscall.SYS_EXIT, uintptr(err), 0, 0)
	}
}

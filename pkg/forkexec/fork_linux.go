package forkexec

import (
	"syscall"
	"unsafe" // required for go:linkname.

	"golang.org/x/sys/unix"
)

//go:linkname beforeFork syscall.runtime_BeforeFork
func beforeFork()

//go:linkname afterFork syscall.runtime_AfterFork
func afterFork()

//go:linkname afterForkInChild syscall.runtime_AfterForkInChild
func afterForkInChild()

// Start forks the child, applies the configuration and execve the program.
// It returns once the exec succeeded with the pid of the child, or with a
// ChildError describing the failed step after the child is reaped.
func (r *Runner) Start() (int, error) {
	params, err := r.prepareExec()
	if err != nil {
		return 0, err
	}

	// pipe p carries a ChildError if the child fails before execve
	// p[0] is used by parent and p[1] is used by child, both close on exec
	var p [2]int
	if err := unix.Pipe2(p[:], unix.O_CLOEXEC); err != nil {
		return 0, err
	}

	// fork in child
	pid, err1 := forkAndExecInChild(r, params, p)

	// restore all signals
	afterFork()
	syscall.ForkLock.Unlock()

	return syncWithChild(p, int(pid), err1)
}

func syncWithChild(p [2]int, pid int, err1 syscall.Errno) (int, error) {
	unix.Close(p[1])

	// clone syscall failed
	if err1 != 0 {
		unix.Close(p[0])
		return 0, ChildError{Err: err1, Location: LocClone}
	}

	// EOF means execve closed the pipe
	var childErr ChildError
	r1, err := readFull(p[0], unsafe.Slice((*byte)(unsafe.Pointer(&childErr)), unsafe.Sizeof(childErr)))
	unix.Close(p[0])
	if r1 == 0 && err == nil {
		return pid, nil
	}

	handleChildFailed(pid)
	if err != nil {
		return 0, err
	}
	if r1 != int(unsafe.Sizeof(childErr)) {
		return 0, syscall.EPIPE
	}
	return 0, childErr
}

func readFull(fd int, b []byte) (int, error) {
	n := 0
	for n < len(b) {
		r, err := unix.Read(fd, b[n:])
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return n, err
		}
		if r == 0 {
			break
		}
		n += r
	}
	return n, nil
}

func handleChildFailed(pid int) {
	var wstatus syscall.WaitStatus
	// make sure not blocked
	syscall.Kill(pid, syscall.SIGKILL)
	// child failed; wait for it to exit, to make sure the zombies don't accumulate
	_, err := syscall.Wait4(pid, &wstatus, 0, nil)
	for err == syscall.EINTR {
		_, err = syscall.Wait4(pid, &wstatus, 0, nil)
	}
}

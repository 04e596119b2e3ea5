package forkexec

import (
	"syscall"
)

// execParams holds the C strings used by the child, allocated before fork
type execParams struct {
	argv0   *byte
	argv    []*byte
	env     []*byte
	chroot  *byte
	workdir *byte
}

func (r *Runner) prepareExec() (*execParams, error) {
	if len(r.Args) == 0 {
		return nil, syscall.EINVAL
	}
	var (
		p   execParams
		err error
	)
	path := r.Path
	if path == "" {
		path = r.Args[0]
	}
	if p.argv0, err = syscall.BytePtrFromString(path); err != nil {
		return nil, err
	}
	if p.argv, err = syscall.SlicePtrFromStrings(r.Args); err != nil {
		return nil, err
	}
	if p.env, err = syscall.SlicePtrFromStrings(r.Env); err != nil {
		return nil, err
	}
	if p.chroot, err = bytePtrOrNil(r.Chroot); err != nil {
		return nil, err
	}
	if p.workdir, err = bytePtrOrNil(r.WorkDir); err != nil {
		return nil, err
	}
	return &p, nil
}

// ErrorPipeFd returns the fd the child moves the error pipe to before any
// other fd shuffling: the first fd above every file and the exec file
func ErrorPipeFd(files []uintptr, execFile uintptr) int {
	_, fd := prepareFds(files, execFile)
	return fd
}

// prepareFds copies the fd table and returns the first fd above every
// source, target and the exec file. It is never below 3 so that inherited
// standard fds survive when no files are given.
func prepareFds(files []uintptr, execFile uintptr) ([]int, int) {
	fd := make([]int, len(files))
	nextfd := max(len(files), int(execFile), 2)
	for i, ufd := range files {
		fd[i] = int(ufd)
		nextfd = max(nextfd, fd[i])
	}
	return fd, nextfd + 1
}

func bytePtrOrNil(str string) (*byte, error) {
	if str == "" {
		return nil, nil
	}
	return syscall.BytePtrFromString(str)
}

package sandbox

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/judgelight/judgelight/pkg/forkexec"
	"github.com/judgelight/judgelight/pkg/memfd"
	"github.com/judgelight/judgelight/pkg/rlimit"
	"github.com/judgelight/judgelight/pkg/seccomp"
)

// prepared holds everything allocated in the parent before the fork
type prepared struct {
	path     string
	args     []string
	env      []string
	fds      []uintptr
	stdout   *os.File
	execFile *os.File
	filter   seccomp.Filter
	rlimits  []rlimit.RLimit

	opened []*os.File
}

// prepare allocates the resources of the run in the parent. On error
// everything already opened is closed.
func (s *Supervisor) prepare(req Request) (*prepared, error) {
	p := new(prepared)
	if err := s.fill(p, req); err != nil {
		p.close()
		return nil, err
	}
	return p, nil
}

func (s *Supervisor) fill(p *prepared, req Request) (err error) {
	if p.path, err = resolvePath(req); err != nil {
		return err
	}
	p.args = req.Args
	if len(p.args) == 0 {
		p.args = []string{req.Path}
	}
	p.env = req.Env
	if p.env == nil {
		p.env = os.Environ()
	}

	if req.Rules != nil && s.tableErr != nil {
		return fmt.Errorf("syscall table: %w", s.tableErr)
	}
	rl := rlimit.FromLimit(req.Limit)
	p.rlimits = rl.PrepareRLimit()

	if req.ExecFromMemfd {
		if p.execFile, err = memfd.FromPath(p.path); err != nil {
			return err
		}
		p.opened = append(p.opened, p.execFile)
	}

	p.fds = make([]uintptr, 3)
	for i, name := range []string{req.Stdin, req.Stdout, req.Stderr} {
		if name == "" {
			p.fds[i] = uintptr(i)
			continue
		}
		flag := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
		if i == 0 {
			flag = os.O_RDONLY
		}
		f, err := os.OpenFile(name, flag, 0o644)
		if err != nil {
			return fmt.Errorf("redirect fd %d: %w", i, err)
		}
		p.opened = append(p.opened, f)
		p.fds[i] = f.Fd()
		if i == 1 {
			p.stdout = f
		}
	}

	if req.Rules == nil {
		return nil
	}
	var execFd uintptr
	if p.execFile != nil {
		execFd = p.execFile.Fd()
	}
	// the failure report of the child goes through the filter
	opts := []seccomp.CompileOption{
		seccomp.WithErrorPipe(forkexec.ErrorPipeFd(p.fds, execFd), forkexec.ChildErrorSize),
	}
	if req.ExecFromMemfd {
		opts = append(opts, seccomp.WithExecveat())
	}
	p.filter, err = seccomp.Compile(req.Rules, s.table, opts...)
	return err
}

// outputSize is the size of the stdout file, zero when stdout is inherited
func (p *prepared) outputSize() int64 {
	if p.stdout == nil {
		return 0
	}
	fi, err := p.stdout.Stat()
	if err != nil {
		return 0
	}
	return fi.Size()
}

func (p *prepared) close() {
	for _, f := range p.opened {
		f.Close()
	}
	p.opened = nil
}

// resolvePath finds the program in the parent so that a missing or non
// executable file is reported before the fork
func resolvePath(req Request) (string, error) {
	path := req.Path
	if path == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidRequest)
	}
	if !strings.Contains(path, "/") {
		if req.Chroot != "" && !req.ExecFromMemfd {
			return "", fmt.Errorf("%w: %q must be a path inside the new root", ErrInvalidRequest, path)
		}
		lp, err := exec.LookPath(path)
		if err != nil {
			return "", fmt.Errorf("resolve %q: %w", path, err)
		}
		return lp, nil
	}

	// path as seen by the parent
	check := path
	if !req.ExecFromMemfd {
		if !filepath.IsAbs(check) && req.WorkDir != "" {
			check = filepath.Join(req.WorkDir, check)
		}
		if req.Chroot != "" {
			check = filepath.Join(req.Chroot, "/", check)
		}
	}
	fi, err := os.Stat(check)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", path, err)
	}
	if !fi.Mode().IsRegular() || fi.Mode().Perm()&0o111 == 0 {
		return "", fmt.Errorf("%w: %s", ErrNotExecutable, path)
	}
	return path, nil
}

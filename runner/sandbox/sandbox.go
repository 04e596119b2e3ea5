// Package sandbox runs a single program under resource limits and a syscall
// filter, supervises it until it terminates and classifies the outcome.
//
// A run forks the child through pkg/forkexec, polls it with wait4(WNOHANG)
// every poll interval while sampling its resident memory, kills the whole
// process group once the real time limit is reached and finally reports a
// runner.Result built from the rusage of the reaped child.
package sandbox

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/judgelight/judgelight/pkg/memstat"
	"github.com/judgelight/judgelight/pkg/seccomp"
	"github.com/judgelight/judgelight/pkg/sysno"
	"github.com/judgelight/judgelight/runner"
)

var (
	// ErrInvalidRequest is returned for requests that cannot be run
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNotExecutable is returned when the program is not an executable file
	ErrNotExecutable = errors.New("not an executable file")
)

// DefaultPollInterval is the interval between two checks of the child
const DefaultPollInterval = 10 * time.Millisecond

// Request describes one program run
type Request struct {
	// Path is an absolute or relative path, or a name searched in PATH
	Path string
	// Args is argv of the child, [Path] if empty
	Args []string
	// Env replaces the environment when non-nil, otherwise it is inherited
	Env []string

	// Stdin, Stdout, Stderr are redirection files, inherited when empty
	Stdin  string
	Stdout string
	Stderr string

	Limit runner.Limit
	// Rules is the syscall filter, nil installs none
	Rules *seccomp.RuleSet

	// Chroot is the new root directory of the child
	Chroot string
	// WorkDir is the working directory, inside Chroot if set
	WorkDir string
	// UID and GID are the identities to switch to
	UID, GID *uint32

	// ExecFromMemfd copies the executable into a sealed memfd and executes
	// it from there, so the program needs no path inside Chroot
	ExecFromMemfd bool
}

// Sampler reports the resident memory of a live process
type Sampler interface {
	Sample(pid int) (runner.Size, bool)
}

// Supervisor runs requests. It is safe for concurrent use.
type Supervisor struct {
	logger       *zap.Logger
	sampler      Sampler
	pollInterval time.Duration
	memorySlack  float64
	table        *sysno.Table
	tableErr     error
}

// Option configures a Supervisor
type Option func(*Supervisor)

// WithLogger sets the logger, no logs are written by default
func WithLogger(l *zap.Logger) Option {
	return func(s *Supervisor) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSampler replaces the procfs memory sampler
func WithSampler(sm Sampler) Option {
	return func(s *Supervisor) {
		s.sampler = sm
	}
}

// WithPollInterval sets the interval between wait4 polls
func WithPollInterval(d time.Duration) Option {
	return func(s *Supervisor) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithMemorySlack sets the fraction of the memory limit used to attribute
// memory faults to the memory limit
func WithMemorySlack(f float64) Option {
	return func(s *Supervisor) {
		if f >= 0 && f < 1 {
			s.memorySlack = f
		}
	}
}

// WithTable sets the syscall table used to compile rule sets
func WithTable(t *sysno.Table) Option {
	return func(s *Supervisor) {
		s.table, s.tableErr = t, nil
	}
}

// New creates a supervisor with the options applied over the defaults
func New(opts ...Option) *Supervisor {
	s := &Supervisor{
		logger:       zap.NewNop(),
		pollInterval: DefaultPollInterval,
		memorySlack:  runner.DefaultMemorySlack,
	}
	s.table, s.tableErr = sysno.Native()
	if sm, err := memstat.NewSampler(""); err == nil {
		s.sampler = sm
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

var defaultSupervisor = sync.OnceValue(func() *Supervisor {
	return New()
})

// Run runs the request with the default supervisor
func Run(ctx context.Context, req Request) runner.Result {
	return defaultSupervisor().Run(ctx, req)
}

type job struct {
	s   *Supervisor
	req Request
}

func (j *job) Run(ctx context.Context) runner.Result {
	return j.s.Run(ctx, j.req)
}

// Job binds the request to the supervisor
func (s *Supervisor) Job(req Request) runner.Runner {
	return &job{s: s, req: req}
}

package sandbox

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/judgelight/judgelight/pkg/forkexec"
	"github.com/judgelight/judgelight/runner"
)

// Run runs the request and blocks until the child is reaped. Failures of
// the supervisor itself are reported as runner.StatusRunnerError.
func (s *Supervisor) Run(ctx context.Context, req Request) runner.Result {
	start := time.Now()
	logger := s.logger.With(zap.Stringer("run_id", ulid.Make()), zap.String("path", req.Path))

	if err := ctx.Err(); err != nil {
		return runnerError(err, start)
	}
	p, err := s.prepare(req)
	if err != nil {
		logger.Warn("prepare failed", zap.Error(err))
		return runnerError(err, start)
	}
	defer p.close()
	logger.Debug("prepared",
		zap.Stringer("limit", req.Limit),
		zap.Int("filter_len", p.filter.Len()),
		zap.Int("rlimits", len(p.rlimits)))

	ch := &forkexec.Runner{
		Path:       p.path,
		Args:       p.args,
		Env:        p.env,
		RLimits:    p.rlimits,
		Files:      p.fds,
		Chroot:     req.Chroot,
		WorkDir:    req.WorkDir,
		UID:        req.UID,
		GID:        req.GID,
		NoNewPrivs: true,
	}
	if p.execFile != nil {
		ch.ExecFile = p.execFile.Fd()
	}
	if p.filter != nil {
		ch.Seccomp = p.filter.SockFprog()
	}

	// the real clock of the child starts at fork, exec is part of the run
	forkTime := time.Now()
	pid, err := ch.Start()
	if err != nil {
		logger.Warn("start failed", zap.Error(err))
		r := runnerError(err, start)
		r.SetUpTime = forkTime.Sub(start)
		r.RunningTime = time.Since(forkTime)
		return r
	}
	logger = logger.With(zap.Int("pid", pid))
	logger.Debug("started", zap.Duration("setup", forkTime.Sub(start)), zap.Duration("exec", time.Since(forkTime)))

	u, err := s.supervise(ctx, pid, req.Limit.RealTime, forkTime)
	u.Output = runner.Size(p.outputSize())

	result := runner.Result{
		Status:      runner.Classify(u, req.Limit, s.memorySlack),
		ExitStatus:  u.ExitStatus,
		Signal:      u.Signal,
		UserTime:    u.UserTime,
		SystemTime:  u.SystemTime,
		Memory:      u.Memory,
		Output:      u.Output,
		SetUpTime:   forkTime.Sub(start),
		RunningTime: u.RunningTime,
	}
	if err != nil && !u.Killed {
		result.Status = runner.StatusRunnerError
		result.Error = err.Error()
	}
	logger.Info("finished",
		zap.Stringer("status", result.Status),
		zap.Int("exit_status", result.ExitStatus),
		zap.Stringer("signal", result.Signal),
		zap.Duration("time", result.Time()),
		zap.Duration("running", result.RunningTime),
		zap.Stringer("memory", result.Memory))
	return result
}

// supervise polls the child until it exits. The returned error is set when
// the supervision stopped early, the child is reaped in every case.
func (s *Supervisor) supervise(ctx context.Context, pid int, realTime time.Duration, forkTime time.Time) (runner.Usage, error) {
	var (
		wstatus unix.WaitStatus
		rusage  unix.Rusage
		peak    runner.Size
		killed  bool
		err     error
	)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	var deadline <-chan time.Time
	if realTime > 0 {
		timer := time.NewTimer(realTime - time.Since(forkTime))
		defer timer.Stop()
		deadline = timer.C
	}

loop:
	for {
		wpid, werr := unix.Wait4(pid, &wstatus, unix.WNOHANG, &rusage)
		if werr == unix.EINTR {
			continue
		}
		if werr != nil {
			err = werr
			killAll(pid)
			reap(pid, &wstatus, &rusage)
			break
		}
		if wpid == pid {
			break
		}
		if s.sampler != nil {
			if m, ok := s.sampler.Sample(pid); ok && m > peak {
				peak = m
			}
		}

		select {
		case <-ticker.C:
		case <-deadline:
			killed = true
			killAll(pid)
			reap(pid, &wstatus, &rusage)
			break loop
		case <-ctx.Done():
			err = ctx.Err()
			killed = realTime > 0 && time.Since(forkTime) >= realTime
			killAll(pid)
			reap(pid, &wstatus, &rusage)
			break loop
		}
	}
	// descendants left in the process group
	unix.Kill(-pid, unix.SIGKILL)

	u := runner.Usage{
		Exited:      wstatus.Exited(),
		UserTime:    time.Duration(rusage.Utime.Nano()),
		SystemTime:  time.Duration(rusage.Stime.Nano()),
		Memory:      max(peak, runner.Size(rusage.Maxrss<<10)),
		RunningTime: time.Since(forkTime),
		Killed:      killed,
	}
	if u.Exited {
		u.ExitStatus = wstatus.ExitStatus()
	}
	if wstatus.Signaled() {
		u.Signal = wstatus.Signal()
	}
	if errors.Is(err, unix.ECHILD) {
		err = errors.New("child disappeared before it was reaped")
	}
	return u, err
}

// killAll kills the process group led by the child and the child itself,
// in case it failed before setsid
func killAll(pid int) {
	unix.Kill(-pid, unix.SIGKILL)
	unix.Kill(pid, unix.SIGKILL)
}

func reap(pid int, wstatus *unix.WaitStatus, rusage *unix.Rusage) {
	_, err := unix.Wait4(pid, wstatus, 0, rusage)
	for err == unix.EINTR {
		_, err = unix.Wait4(pid, wstatus, 0, rusage)
	}
}

func runnerError(err error, start time.Time) runner.Result {
	return runner.Result{
		Status:    runner.StatusRunnerError,
		Error:     err.Error(),
		SetUpTime: time.Since(start),
	}
}

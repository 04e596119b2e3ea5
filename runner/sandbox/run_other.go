//go:build !linux

package sandbox

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/judgelight/judgelight/runner"
)

// Run is not supported outside linux
func (s *Supervisor) Run(context.Context, Request) runner.Result {
	return runner.Result{
		Status:    runner.StatusRunnerError,
		Error:     fmt.Sprintf("sandbox: unsupported on platform %s", runtime.GOOS),
		SetUpTime: time.Duration(0),
	}
}

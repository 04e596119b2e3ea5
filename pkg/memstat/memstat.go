// Package memstat samples the resident set size of a running process from procfs.
package memstat

import (
	"fmt"

	"github.com/prometheus/procfs"

	"github.com/judgelight/judgelight/runner"
)

// Sampler reads VmRSS of processes under a procfs mount
type Sampler struct {
	fs procfs.FS
}

// NewSampler creates a sampler for the procfs mounted at procRoot.
// Empty procRoot means /proc.
func NewSampler(procRoot string) (*Sampler, error) {
	if procRoot == "" {
		procRoot = procfs.DefaultMountPoint
	}
	fs, err := procfs.NewFS(procRoot)
	if err != nil {
		return nil, fmt.Errorf("memstat: %w", err)
	}
	return &Sampler{fs: fs}, nil
}

// Sample returns the current resident set size of pid. It returns false
// when the process is gone or its status cannot be read, which is
// expected once the process exits.
func (s *Sampler) Sample(pid int) (runner.Size, bool) {
	p, err := s.fs.Proc(pid)
	if err != nil {
		return 0, false
	}
	st, err := p.NewStatus()
	if err != nil {
		return 0, false
	}
	return runner.Size(st.VmRSS), true
}

// Package sysno maps syscall names to numbers for a single architecture.
//
// The tables come from github.com/elastic/go-seccomp-bpf/arch, so the names
// follow the kernel syscall tables (e.g. "openat", "exit_group"). Only the
// 386, amd64 and arm tables are available.
package sysno

import (
	"errors"
	"fmt"
	"sort"

	"github.com/elastic/go-seccomp-bpf/arch"
)

var (
	// ErrUnknownSyscall is returned when a name or number is not in the table
	ErrUnknownSyscall = errors.New("unknown syscall")
	// ErrUnsupportedArch is returned when no table exists for an architecture
	ErrUnsupportedArch = errors.New("unsupported architecture")
)

// Table is the syscall table of one architecture
type Table struct {
	info *arch.Info
}

var native, nativeErr = ForArch("")

// Native returns the table of the running architecture
func Native() (*Table, error) {
	return native, nativeErr
}

// ForArch returns the table of the named architecture using GOARCH naming
// (e.g. "amd64", "386", "arm"). Empty name selects the running architecture.
// Architectures without a syscall table in go-seccomp-bpf, arm64 among them,
// fail with ErrUnsupportedArch.
func ForArch(name string) (*Table, error) {
	info, err := arch.GetInfo(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrUnsupportedArch, name, err)
	}
	return &Table{info: info}, nil
}

// Number looks up the syscall number by name
func (t *Table) Number(name string) (uint32, error) {
	nr, ok := t.info.SyscallNames[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownSyscall, name)
	}
	return uint32(nr), nil
}

// Name looks up the syscall name by number
func (t *Table) Name(nr uint32) (string, error) {
	n, ok := t.info.SyscallNumbers[int(nr)]
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrUnknownSyscall, nr)
	}
	return n, nil
}

// Names returns every syscall name in the table, sorted
func (t *Table) Names() []string {
	ret := make([]string, 0, len(t.info.SyscallNames))
	for n := range t.info.SyscallNames {
		ret = append(ret, n)
	}
	sort.Strings(ret)
	return ret
}

// Arch returns the AUDIT_ARCH_* value that the kernel reports in seccomp_data
func (t *Table) Arch() uint32 {
	return uint32(t.info.ID)
}

// ArchName returns the architecture name of the table
func (t *Table) ArchName() string {
	return t.info.Name
}

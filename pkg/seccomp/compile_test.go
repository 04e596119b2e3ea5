package seccomp

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/bpf"
	"golang.org/x/sys/unix"

	"github.com/judgelight/judgelight/pkg/sysno"
)

var testAllows = []string{
	"read", "write", "readv", "writev", "close", "fstat", "lseek", "dup", "dup2", "dup3", "ioctl", "fcntl", "fadvise64",
	"mmap", "mprotect", "munmap", "brk", "mremap", "msync", "mincore", "madvise",
	"rt_sigaction", "rt_sigprocmask", "rt_sigreturn", "rt_sigpending", "sigaltstack",
	"getcwd", "exit", "exit_group", "arch_prctl",
	"gettimeofday", "getrlimit", "getrusage", "times", "time", "clock_gettime", "restart_syscall",
}

func amd64Table(t *testing.T) *sysno.Table {
	t.Helper()
	tb, err := sysno.ForArch("amd64")
	require.NoError(t, err)
	return tb
}

func nr(t *testing.T, tb *sysno.Table, name string) uint32 {
	t.Helper()
	n, err := tb.Number(name)
	require.NoError(t, err)
	return n
}

func newVM(t *testing.T, f Filter) *bpf.VM {
	t.Helper()
	insns, err := f.Instructions()
	require.NoError(t, err)
	vm, err := bpf.NewVM(insns)
	require.NoError(t, err)
	return vm
}

// eval runs the filter on a seccomp_data as the kernel loads it on a
// little-endian host. The VM loads big-endian words, so every word is stored
// big-endian at the offset of its native position.
func eval(t *testing.T, vm *bpf.VM, arch, nr uint32, args ...uint64) uint32 {
	t.Helper()
	in := make([]byte, 64)
	binary.BigEndian.PutUint32(in[offsetNr:], nr)
	binary.BigEndian.PutUint32(in[offsetArch:], arch)
	for i, arg := range args {
		off := offsetArgs + 8*i
		binary.BigEndian.PutUint32(in[off:], uint32(arg))
		binary.BigEndian.PutUint32(in[off+4:], uint32(arg>>32))
	}
	ret, err := vm.Run(in)
	require.NoError(t, err)
	return uint32(ret)
}

func TestWhitelist(t *testing.T) {
	tb := amd64Table(t)
	f, err := Compile(Whitelist("read", "write", "exit_group"), tb)
	require.NoError(t, err)
	vm := newVM(t, f)

	allow, kill := ActionAllow.kernel(), ActionKill.kernel()
	for name, want := range map[string]uint32{
		"read":       allow,
		"write":      allow,
		"exit_group": allow,
		"execve":     allow,
		"openat":     kill,
		"fork":       kill,
		"execveat":   kill,
	} {
		assert.Equal(t, want, eval(t, vm, unix.AUDIT_ARCH_X86_64, nr(t, tb, name)), name)
	}

	assert.Equal(t, kill, eval(t, vm, unix.AUDIT_ARCH_AARCH64, 0), "foreign arch")
	assert.Equal(t, kill, eval(t, vm, unix.AUDIT_ARCH_X86_64, x32SyscallBit|nr(t, tb, "read")), "x32")
}

func TestBlacklist(t *testing.T) {
	tb := amd64Table(t)
	rs := Blacklist(DenyPermission, "fork", "vfork").Deny(ActionTrap, "ptrace")
	f, err := Compile(rs, tb)
	require.NoError(t, err)
	vm := newVM(t, f)

	eperm := uint32(0x00050000) | uint32(unix.EPERM)
	assert.Equal(t, eperm, eval(t, vm, unix.AUDIT_ARCH_X86_64, nr(t, tb, "fork")))
	assert.Equal(t, eperm, eval(t, vm, unix.AUDIT_ARCH_X86_64, nr(t, tb, "vfork")))
	assert.Equal(t, uint32(0x00030000), eval(t, vm, unix.AUDIT_ARCH_X86_64, nr(t, tb, "ptrace")))
	assert.Equal(t, ActionAllow.kernel(), eval(t, vm, unix.AUDIT_ARCH_X86_64, nr(t, tb, "read")))
}

func TestExecRules(t *testing.T) {
	tb := amd64Table(t)

	f, err := Compile(Whitelist("read").Deny(ActionKill, "execve"), tb)
	require.NoError(t, err)
	vm := newVM(t, f)
	assert.Equal(t, ActionKill.kernel(), eval(t, vm, unix.AUDIT_ARCH_X86_64, nr(t, tb, "execve")))

	f, err = Compile(Whitelist("read"), tb, WithExecveat())
	require.NoError(t, err)
	vm = newVM(t, f)
	assert.Equal(t, ActionAllow.kernel(), eval(t, vm, unix.AUDIT_ARCH_X86_64, nr(t, tb, "execve")))
	assert.Equal(t, ActionAllow.kernel(), eval(t, vm, unix.AUDIT_ARCH_X86_64, nr(t, tb, "execveat")))
}

func TestErrorPipe(t *testing.T) {
	tb := amd64Table(t)
	const fd, size = 5, 24
	allow, kill := ActionAllow.kernel(), ActionKill.kernel()

	tests := map[string]struct {
		rs      *RuleSet
		syscall string
		args    []uint64
		exp     uint32
	}{
		"Write of the record to the pipe should be allowed": {
			rs:      Whitelist("exit_group"),
			syscall: "write",
			args:    []uint64{fd, 0x7ffd0000, size},
			exp:     allow,
		},
		"Write to another fd should hit the default": {
			rs:      Whitelist("exit_group"),
			syscall: "write",
			args:    []uint64{1, 0x7ffd0000, size},
			exp:     kill,
		},
		"Write of another size should hit the default": {
			rs:      Whitelist("exit_group"),
			syscall: "write",
			args:    []uint64{fd, 0x7ffd0000, size + 1},
			exp:     kill,
		},
		"Write with a high fd word should hit the default": {
			rs:      Whitelist("exit_group"),
			syscall: "write",
			args:    []uint64{1<<32 | fd, 0x7ffd0000, size},
			exp:     kill,
		},
		"Write denied by a rule should still reach the pipe": {
			rs:      Blacklist(DenyPermission, "write"),
			syscall: "write",
			args:    []uint64{fd, 0x7ffd0000, size},
			exp:     allow,
		},
		"Write denied by a rule should apply elsewhere": {
			rs:      Blacklist(DenyPermission, "write"),
			syscall: "write",
			args:    []uint64{2, 0x7ffd0000, size},
			exp:     DenyPermission.kernel(),
		},
		"Other syscalls with matching arguments should hit the rules": {
			rs:      Whitelist("exit_group"),
			syscall: "read",
			args:    []uint64{fd, 0x7ffd0000, size},
			exp:     kill,
		},
		"Exit should be allowed": {
			rs:      Whitelist("exit_group"),
			syscall: "exit",
			exp:     allow,
		},
		"Nanosleep should be allowed": {
			rs:      Whitelist("exit_group"),
			syscall: "nanosleep",
			exp:     allow,
		},
		"Named exit should keep its action": {
			rs:      Whitelist("exit_group").Deny(ActionTrap, "exit"),
			syscall: "exit",
			exp:     ActionTrap.kernel(),
		},
		"Allowed syscalls should stay allowed": {
			rs:      Whitelist("exit_group"),
			syscall: "exit_group",
			exp:     allow,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			f, err := Compile(tc.rs, tb, WithErrorPipe(fd, size))
			require.NoError(t, err)
			vm := newVM(t, f)
			assert.Equal(t, tc.exp, eval(t, vm, unix.AUDIT_ARCH_X86_64, nr(t, tb, tc.syscall), tc.args...))
		})
	}
}

func TestErrorPipeAllowedWrite(t *testing.T) {
	tb := amd64Table(t)
	with, err := Compile(Whitelist("write", "exit_group"), tb, WithErrorPipe(5, 24))
	require.NoError(t, err)
	without, err := Compile(Whitelist("write", "exit_group"), tb, func(o *compileOptions) {
		o.errorPipe = nil
	})
	require.NoError(t, err)
	// write is allowed anyway, only exit and nanosleep are added
	assert.Equal(t, without.Len()+4, with.Len())
}

func TestElideDefault(t *testing.T) {
	tb := amd64Table(t)
	empty, err := Compile(&RuleSet{Default: ActionAllow}, tb)
	require.NoError(t, err)
	same, err := Compile(Blacklist(ActionAllow, "read", "write"), tb)
	require.NoError(t, err)
	assert.Equal(t, empty, same)
	// arch check, x32 check and the default return
	assert.Equal(t, 7, empty.Len())
}

func TestCompileErrors(t *testing.T) {
	tb := amd64Table(t)

	_, err := Compile(Whitelist("read", "no_such_syscall"), tb)
	assert.ErrorIs(t, err, sysno.ErrUnknownSyscall)

	_, err = Compile(&RuleSet{}, tb)
	assert.ErrorIs(t, err, ErrInvalidAction)

	_, err = Compile(Whitelist().Set(Action(42), "read"), tb)
	assert.ErrorIs(t, err, ErrInvalidAction)
}

func TestTreeMatchesLinear(t *testing.T) {
	tb := amd64Table(t)
	rs := Whitelist(testAllows...).
		Deny(DenyPermission, "fork", "vfork", "clone").
		Deny(DenyFailure, "socket", "connect").
		Deny(ActionTrap, "ptrace")
	require.Greater(t, len(rs.Rules), linearThreshold)

	treeFilter, err := Compile(rs, tb)
	require.NoError(t, err)
	linearFilter, err := Compile(rs, tb, func(o *compileOptions) { o.linearThreshold = 1 << 10 })
	require.NoError(t, err)
	assert.NotEqual(t, treeFilter, linearFilter)

	treeVM, linearVM := newVM(t, treeFilter), newVM(t, linearFilter)
	for n := uint32(0); n < 600; n++ {
		require.Equal(t, eval(t, linearVM, unix.AUDIT_ARCH_X86_64, n), eval(t, treeVM, unix.AUDIT_ARCH_X86_64, n), "nr %d", n)
	}
	for _, name := range rs.Names() {
		want := rs.Rules[name].kernel()
		assert.Equal(t, want, eval(t, treeVM, unix.AUDIT_ARCH_X86_64, nr(t, tb, name)), name)
	}
}

func TestNativeDefaultProfile(t *testing.T) {
	tb, err := sysno.Native()
	if err != nil {
		t.Skip("no syscall table:", err)
	}
	f, err := Compile(Whitelist("read", "write", "exit_group"), tb)
	require.NoError(t, err)
	assert.Greater(t, f.Len(), 4)
	assert.Less(t, f.Len(), maxInstructions)
}

package profile

import (
	"github.com/judgelight/judgelight/pkg/seccomp"
)

var (
	// safe syscalls for single threaded programs reading stdin and writing stdout
	defaultSyscallAllows = []string{
		// file access through fd
		"read",
		"write",
		"readv",
		"writev",
		"close",
		"fstat",
		"newfstatat",
		"lseek",
		"dup",
		"dup2",
		"dup3",
		"ioctl",
		"fcntl",
		"fadvise64",
		"pread64",
		"pwrite64",

		// dynamic loader
		"open",
		"openat",
		"access",
		"faccessat",
		"readlink",
		"readlinkat",

		// memory action
		"mmap",
		"mprotect",
		"munmap",
		"brk",
		"mremap",
		"msync",
		"mincore",
		"madvise",

		// signal action
		"rt_sigaction",
		"rt_sigprocmask",
		"rt_sigreturn",
		"rt_sigpending",
		"sigaltstack",

		// get current work dir
		"getcwd",

		// process exit
		"exit",
		"exit_group",

		// libc start up
		"arch_prctl",
		"set_tid_address",
		"set_robust_list",
		"rseq",
		"prlimit64",
		"getrandom",
		"futex",
		"gettid",
		"getpid",

		// time
		"gettimeofday",
		"getrlimit",
		"getrusage",
		"times",
		"time",
		"clock_gettime",
		"restart_syscall",
	}

	// additional syscalls for compilers, which spawn the tool chain
	compilerSyscallAllows = []string{
		"vfork", "fork", "clone", "clone3", "execve", "wait4",
		"clock_getres", "setrlimit", "pipe", "pipe2",
		"getdents64", "getdents",
		"umask", "rename", "chmod", "mkdir", "unlink", "unlinkat",
		"chdir", "fchdir", "ftruncate", "stat", "lstat",
		"sched_getaffinity", "sched_yield",
		"uname", "sysinfo", "fchmodat", "getuid", "geteuid", "getgid", "getegid",
		"getppid", "statfs", "fstatfs", "kill", "tgkill",
	}

	// syscalls that escape the run or affect other processes
	permissiveSyscallDenies = []string{
		"fork", "vfork", "clone", "clone3",
		"kill", "tkill", "tgkill", "ptrace",
		"socket", "connect", "bind", "listen", "accept", "accept4",
		"mount", "umount2", "pivot_root", "chroot",
		"setuid", "setgid", "setgroups", "setsid",
		"reboot", "kexec_load", "init_module", "delete_module",
	}
)

// Builtin returns the built-in profiles
func Builtin() []Profile {
	return []Profile{
		{
			Name:        "default",
			Description: "kill on anything but basic file descriptor, memory and signal syscalls",
			Default:     seccomp.ActionKill,
			Allow:       defaultSyscallAllows,
			SkipUnknown: true,
		},
		{
			Name:        "compiler",
			Description: "default plus process and file management used by compilers",
			Default:     seccomp.ActionKill,
			Allow:       append(append([]string{}, defaultSyscallAllows...), compilerSyscallAllows...),
			SkipUnknown: true,
		},
		{
			Name:        "permissive",
			Description: "allow everything except process, network and system administration syscalls",
			Default:     seccomp.ActionAllow,
			Deny:        permissiveSyscallDenies,
			DenyAction:  seccomp.DenyPermission,
			SkipUnknown: true,
		},
	}
}

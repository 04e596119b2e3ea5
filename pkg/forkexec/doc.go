// Package forkexec starts a child process with redirected file descriptors,
// an optional new root, dropped credentials, resource limits and a seccomp
// filter, all applied between fork and execve.
//
// Setup failures inside the child are reported back through a close on exec
// pipe as a ChildError, so the caller sees where and why the child failed.
//
// seccomp requires kernel >= 3.8; pipe2 and dup3 require kernel >= 2.6.27;
// execveat requires kernel >= 3.19
package forkexec

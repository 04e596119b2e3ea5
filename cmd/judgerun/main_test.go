package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/judgelight/judgelight/cmd/judgerun/commands"
)

func runApp(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := Run(context.Background(), append([]string{"judgerun"}, args...), strings.NewReader(""), &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestProfilesCommand(t *testing.T) {
	out, _, err := runApp(t, "profiles")
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	for _, name := range []string{"compiler", "default", "permissive"} {
		assert.Contains(t, out, name)
	}
}

func TestSyscallsCommand(t *testing.T) {
	out, _, err := runApp(t, "syscalls", "--arch", "amd64", "--format", "json")
	require.NoError(t, err)

	var st commands.SyscallTable
	require.NoError(t, jsoniter.UnmarshalFromString(out, &st))
	assert.Equal(t, uint32(0xc000003e), st.AuditID)
	require.NotEmpty(t, st.Syscalls)
	assert.Equal(t, commands.Syscall{Name: "read", Number: 0}, st.Syscalls[0])
}

func TestSyscallsCommandUnknownArch(t *testing.T) {
	_, _, err := runApp(t, "syscalls", "--arch", "vax")
	assert.Error(t, err)
}

func TestInvalidCommand(t *testing.T) {
	_, _, err := runApp(t, "nope")
	assert.Error(t, err)
}

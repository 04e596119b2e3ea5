package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/judgelight/judgelight/cmd/judgerun/commands"
)

func TestRunCommand(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh")
	}
	dir := t.TempDir()
	out := filepath.Join(dir, "out.txt")

	stdout, _, err := runApp(t, "run", "--profile", "none", "--rtl", "5s", "--out", out, "--", "/bin/sh", "-c", "echo hello; exit 3")
	require.NoError(t, err)

	fields := strings.Fields(stdout)
	require.Len(t, fields, 4)
	assert.Equal(t, "RUNTIME_ERROR", fields[0])
	assert.Equal(t, "3", fields[3])

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(data))
}

func TestRunCommandRunnerError(t *testing.T) {
	stdout, _, err := runApp(t, "run", "--profile", "none", "--format", "json", "--", "/nonexistent/program")
	require.Error(t, err)

	var report commands.Report
	require.NoError(t, jsoniter.UnmarshalFromString(stdout, &report))
	assert.Equal(t, "INTERNAL_ERROR", report.Status)
	assert.NotEmpty(t, report.Error)
}

func TestBatchCommand(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh")
	}
	dir := t.TempDir()
	manifest := filepath.Join(dir, "batch.yaml")
	require.NoError(t, os.WriteFile(manifest, []byte(`
profile: none
limits:
  real_time: 5s
jobs:
  - name: ok
    path: /bin/sh
    args: [sh, -c, "exit 0"]
  - name: fail
    path: /bin/sh
    args: [sh, -c, "exit 1"]
`), 0o644))

	stdout, _, err := runApp(t, "batch", "--parallel", "2", manifest)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "ok OK "))
	assert.True(t, strings.HasPrefix(lines[1], "fail RUNTIME_ERROR "))
}

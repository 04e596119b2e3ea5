package sandbox

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "root", "bin"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "prog"), []byte("#!/bin/sh\n"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "root", "bin", "prog"), []byte("#!/bin/sh\n"), 0o755))

	tests := map[string]struct {
		req     Request
		expPath string
		expErr  error
	}{
		"Absolute executable path should be kept": {
			req:     Request{Path: filepath.Join(dir, "prog")},
			expPath: filepath.Join(dir, "prog"),
		},
		"Relative path should be checked inside the work dir": {
			req:     Request{Path: "./prog", WorkDir: dir},
			expPath: "./prog",
		},
		"Path inside the new root should be checked there": {
			req:     Request{Path: "/bin/prog", Chroot: filepath.Join(dir, "root")},
			expPath: "/bin/prog",
		},
		"Empty path should fail": {
			req:    Request{},
			expErr: ErrInvalidRequest,
		},
		"Bare name with chroot should fail": {
			req:    Request{Path: "prog", Chroot: dir},
			expErr: ErrInvalidRequest,
		},
		"Non executable file should fail": {
			req:    Request{Path: filepath.Join(dir, "data")},
			expErr: ErrNotExecutable,
		},
		"Directory should fail": {
			req:    Request{Path: filepath.Join(dir, "root")},
			expErr: ErrNotExecutable,
		},
		"Missing file should fail": {
			req:    Request{Path: filepath.Join(dir, "missing")},
			expErr: os.ErrNotExist,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			path, err := resolvePath(tc.req)

			if tc.expErr != nil {
				assert.ErrorIs(t, err, tc.expErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.expPath, path)
		})
	}
}

func TestResolvePathLookup(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "judgelight-test-prog"), []byte("#!/bin/sh\n"), 0o755))
	t.Setenv("PATH", dir)

	path, err := resolvePath(Request{Path: "judgelight-test-prog"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "judgelight-test-prog"), path)
}

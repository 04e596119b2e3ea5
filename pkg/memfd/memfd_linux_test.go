package memfd

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	f, err := New("test-memfd")
	require.NoError(t, err)
	defer f.Close()

	data := []byte("hello world")
	_, err = f.Write(data)
	require.NoError(t, err)
	_, err = f.Seek(0, io.SeekStart)
	require.NoError(t, err)

	got, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestDupToMemfd(t *testing.T) {
	content := []byte("memfd content")
	f, err := DupToMemfd("dup-memfd", bytes.NewReader(content))
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Write([]byte("fail"))
	assert.Error(t, err, "sealed memfd accepted a write")

	got, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestDupToMemfd_ErrorPropagation(t *testing.T) {
	_, err := DupToMemfd("dup-memfd-err", errorReader{})
	assert.ErrorIs(t, err, os.ErrInvalid)
}

func TestFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "solution")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755))

	f, err := FromPath(path)
	require.NoError(t, err)
	defer f.Close()
	got, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/sh\n", string(got))

	_, err = FromPath(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

type errorReader struct{}

func (errorReader) Read([]byte) (int, error) { return 0, os.ErrInvalid }

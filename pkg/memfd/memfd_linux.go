// Package memfd copies executables into sealed anonymous memory files so the
// child can execveat them without a path inside its root.
package memfd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

const (
	createFlag = unix.MFD_CLOEXEC | unix.MFD_ALLOW_SEALING
	roSeal     = unix.F_SEAL_SEAL | unix.F_SEAL_SHRINK | unix.F_SEAL_GROW | unix.F_SEAL_WRITE
)

// New creates a new memfd, caller need to close the file
func New(name string) (*os.File, error) {
	fd, err := unix.MemfdCreate(name, createFlag)
	if err != nil {
		return nil, fmt.Errorf("memfd: memfd_create %s: %w", name, err)
	}
	file := os.NewFile(uintptr(fd), name)
	if file == nil {
		unix.Close(fd)
		return nil, fmt.Errorf("memfd: invalid fd %d for %s", fd, name)
	}
	return file, nil
}

// DupToMemfd reads content from reader to sealed (readonly) memfd for given name
func DupToMemfd(name string, reader io.Reader) (*os.File, error) {
	file, err := New(name)
	if err != nil {
		return nil, err
	}
	if _, err = file.ReadFrom(reader); err != nil {
		file.Close()
		return nil, fmt.Errorf("memfd: copy %s: %w", name, err)
	}
	if _, err = unix.FcntlInt(file.Fd(), unix.F_ADD_SEALS, roSeal); err != nil {
		file.Close()
		return nil, fmt.Errorf("memfd: seal %s: %w", name, err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		file.Close()
		return nil, fmt.Errorf("memfd: seek %s: %w", name, err)
	}
	return file, nil
}

// FromPath copies the file at path into a sealed memfd named after its base name
func FromPath(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("memfd: %w", err)
	}
	defer f.Close()
	return DupToMemfd(filepath.Base(path), f)
}

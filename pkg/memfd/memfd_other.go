//go:build !linux

package memfd

import (
	"fmt"
	"io"
	"os"
	"runtime"
)

var errNotImplemented = fmt.Errorf("memfd: unsupported on platform %s", runtime.GOOS)

// New is not supported outside linux
func New(string) (*os.File, error) {
	return nil, errNotImplemented
}

// DupToMemfd is not supported outside linux
func DupToMemfd(string, io.Reader) (*os.File, error) {
	return nil, errNotImplemented
}

// FromPath is not supported outside linux
func FromPath(string) (*os.File, error) {
	return nil, errNotImplemented
}

package logging

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "debug", Format: "json", Writer: &buf})
	require.NoError(t, err)

	l.Debug("started", zap.Int("pid", 42))
	require.NoError(t, l.Sync())

	var entry map[string]any
	require.NoError(t, jsoniter.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "started", entry["msg"])
	assert.EqualValues(t, 42, entry["pid"])
	assert.Contains(t, entry, "time")
}

func TestNewLevel(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "warn", Writer: &buf})
	require.NoError(t, err)

	l.Info("hidden")
	l.Warn("shown")
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.True(t, strings.Contains(out, "WARN") && strings.Contains(out, "shown"), out)
}

func TestNewInvalid(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)

	_, err = New(Config{Format: "xml"})
	assert.Error(t, err)

	_, err = New(Config{Output: filepath.Join(t.TempDir(), "missing", "log")})
	assert.Error(t, err)
}

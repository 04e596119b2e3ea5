package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizeSet(t *testing.T) {
	tests := []struct {
		in   string
		want Size
	}{
		{"1024", 1024},
		{"64k", 64 << 10},
		{"64KB", 64 << 10},
		{"256m", 256 << 20},
		{"256MiB", 256 << 20},
		{"1G", 1 << 30},
		{"12b", 12},
	}
	for _, tt := range tests {
		var s Size
		require.NoError(t, s.Set(tt.in), tt.in)
		assert.Equal(t, tt.want, s, tt.in)
	}

	var s Size
	assert.Error(t, s.Set(""))
	assert.Error(t, s.Set("k"))
	assert.Error(t, s.Set("-1m"))
}

func TestSizeString(t *testing.T) {
	assert.Equal(t, "512 B", Size(512).String())
	assert.Equal(t, "64.0 KiB", Size(64<<10).String())
	assert.Equal(t, "1.5 MiB", Size(3<<19).String())
	assert.Equal(t, "2.0 GiB", Size(2<<30).String())
	assert.Equal(t, uint64(64), Size(64<<10).KiB())
}

func TestLimitCPUSeconds(t *testing.T) {
	assert.Equal(t, uint64(0), Limit{}.CPUSeconds())
	assert.Equal(t, uint64(1), Limit{CPUTime: 1}.CPUSeconds())
	assert.Equal(t, uint64(1), Limit{CPUTime: 1e9}.CPUSeconds())
	assert.Equal(t, uint64(2), Limit{CPUTime: 1e9 + 1}.CPUSeconds())
}

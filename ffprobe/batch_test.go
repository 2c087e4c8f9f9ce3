package ffprobe

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeProbe writes a script that answers like ffprobe with a fixed duration.
func fakeProbe(t *testing.T, duration string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported")
	}
	path := filepath.Join(t.TempDir(), "ffprobe")
	script := "#!/bin/sh\necho '{\"streams\":[{\"index\":0,\"codec_type\":\"video\"}],\"format\":{\"duration\":\"" + duration + "\"}}'\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0755))
	return path
}

func TestProbeAll(t *testing.T) {
	p := NewProber(fakeProbe(t, "12.5"), zaptest.NewLogger(t))

	var (
		mu    sync.Mutex
		calls []int
	)
	outcomes := p.ProbeAll(context.Background(), []string{"a.mp4", "b.mp4", "a.mp4", "c.mp4"}, BatchOptions{
		Workers: 2,
		OnProgress: func(completed, total int, _ string, err error) {
			mu.Lock()
			defer mu.Unlock()
			assert.NoError(t, err)
			assert.Equal(t, 3, total)
			calls = append(calls, completed)
		},
	})

	require.Len(t, outcomes, 3)
	for _, path := range []string{"a.mp4", "b.mp4", "c.mp4"} {
		d, err := outcomes[path].Duration()
		require.NoError(t, err, path)
		assert.Equal(t, 12.5, d)
		assert.True(t, outcomes[path].Result.HasVideo())
	}
	assert.Equal(t, []int{1, 2, 3}, calls)
}

func TestProbeAll_Failures(t *testing.T) {
	p := NewProber(filepath.Join(t.TempDir(), "missing-ffprobe"), zaptest.NewLogger(t))
	outcomes := p.ProbeAll(context.Background(), []string{"a.mp4"}, BatchOptions{})

	_, err := outcomes["a.mp4"].Duration()
	assert.ErrorContains(t, err, "ffprobe failed on a.mp4")
}

func TestProbeAll_Cancelled(t *testing.T) {
	p := NewProber(fakeProbe(t, "1"), zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes := p.ProbeAll(ctx, []string{"a.mp4", "b.mp4"}, BatchOptions{Workers: 1})
	require.Len(t, outcomes, 2)
	for _, o := range outcomes {
		assert.Error(t, o.Err)
	}
}

package profiler

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-anim/internal/logging"
	"github.com/stretchr/testify/assert"
)

func TestProfilerReportsAfterInterval(t *testing.T) {
	var buf bytes.Buffer
	p := NewProfiler(WithLogger(logging.NewWriter(&buf, slog.LevelInfo)), WithInterval(20*time.Millisecond))

	assert.False(t, p.Tick())
	assert.Zero(t, buf.Len())
	assert.Zero(t, p.Last())

	time.Sleep(30 * time.Millisecond)
	assert.True(t, p.Tick())
	assert.Contains(t, buf.String(), "msg=profiler")
	assert.Contains(t, buf.String(), "tps=")
	assert.Greater(t, p.Last().TicksPerSecond, 0.0)
	assert.Greater(t, p.Last().SysMB, 0.0)

	assert.False(t, p.Tick())
}

func TestProfilerDefaults(t *testing.T) {
	p := NewProfiler()
	assert.Equal(t, time.Second, p.updateInterval)
	assert.NotNil(t, p.logger)
}

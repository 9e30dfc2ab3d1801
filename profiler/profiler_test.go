package profiler

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordMetric_SlidingWindow(t *testing.T) {
	p := New(zerolog.Nop(), Options{MaxSamples: 2})

	p.RecordMetric("bytes", 10)
	p.RecordMetric("bytes", 30)
	p.RecordMetric("bytes", 50)

	s := p.Stats().Metrics["bytes"]
	assert.Equal(t, int64(3), s.Count)
	assert.Equal(t, 10.0, s.Min)
	assert.Equal(t, 50.0, s.Max)
	assert.Equal(t, 40.0, s.Avg, "average covers the last two samples")
}

func TestStartOperation(t *testing.T) {
	p := New(zerolog.Nop(), Options{})

	done := p.StartOperation("pipeline")
	time.Sleep(2 * time.Millisecond)
	done()

	op, ok := p.Stats().Operations["pipeline"]
	require.True(t, ok)
	assert.Equal(t, int64(1), op.Count)
	assert.GreaterOrEqual(t, op.Min, 0.002)
}

func TestReport(t *testing.T) {
	var logs bytes.Buffer
	p := New(zerolog.New(&logs), Options{})
	p.RecordMetric("output_bytes", 1024)
	p.StartOperation("detect")()

	p.Report()

	lines := strings.Split(strings.TrimSpace(logs.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], `"message":"runtime"`)
	assert.Contains(t, lines[1], `"operation":"detect"`)
	assert.Contains(t, lines[2], `"metric":"output_bytes"`)
}

func TestStartStop(t *testing.T) {
	var logs safeBuffer
	p := New(zerolog.New(&logs), Options{ReportInterval: time.Millisecond})

	p.Start(context.Background())
	p.Start(context.Background())
	assert.Eventually(t, func() bool { return logs.Len() > 0 }, time.Second, time.Millisecond)
	p.Stop()
	p.Stop()
}

type safeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *safeBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Len()
}

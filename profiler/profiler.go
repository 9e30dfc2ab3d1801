// Package profiler - collects stage timings and value metrics of a batch run
// and reports them, with memory statistics, through zerolog.
package profiler

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Options configures the profiler.
type Options struct {
	// ReportInterval is the period of background reports started by Start
	// (default: 10s).
	ReportInterval time.Duration
	// MaxSamples caps the samples kept per metric (default: 600).
	MaxSamples int
}

// Profiler tracks operation timings and custom metrics. It is safe for
// concurrent use.
type Profiler struct {
	logger         zerolog.Logger
	reportInterval time.Duration
	maxSamples     int

	mu        sync.Mutex
	startTime time.Time
	metrics   map[string]*tracker
	timings   map[string]*tracker

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// tracker keeps a sliding window of samples and running extremes.
type tracker struct {
	values []float64
	sum    float64
	min    float64
	max    float64
	count  int64
}

func (t *tracker) add(v float64, maxSamples int) {
	if t.count == 0 || v < t.min {
		t.min = v
	}
	if t.count == 0 || v > t.max {
		t.max = v
	}
	t.values = append(t.values, v)
	t.sum += v
	if len(t.values) > maxSamples {
		t.sum -= t.values[0]
		t.values = t.values[1:]
	}
	t.count++
}

func (t *tracker) summary() Summary {
	s := Summary{Min: t.min, Max: t.max, Count: t.count}
	if len(t.values) > 0 {
		s.Avg = t.sum / float64(len(t.values))
	}
	return s
}

// Summary describes one metric or operation. Operation values are seconds.
type Summary struct {
	Avg   float64 `json:"avg"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int64   `json:"count"`
}

// Stats is a snapshot of the profiler.
type Stats struct {
	Uptime     time.Duration      `json:"uptime"`
	Goroutines int                `json:"goroutines"`
	HeapAlloc  uint64             `json:"heap_alloc"`
	TotalAlloc uint64             `json:"total_alloc"`
	NumGC      uint32             `json:"num_gc"`
	Metrics    map[string]Summary `json:"metrics"`
	Operations map[string]Summary `json:"operations"`
}

// New creates a profiler.
//
// Arguments:
// - logger: Destination of the reports.
// - opts: Configuration options for the profiler.
//
// Returns:
// - A configured Profiler.
func New(logger zerolog.Logger, opts Options) *Profiler {
	if opts.ReportInterval == 0 {
		opts.ReportInterval = 10 * time.Second
	}
	if opts.MaxSamples == 0 {
		opts.MaxSamples = 600
	}
	return &Profiler{
		logger:         logger.With().Str("component", "profiler").Logger(),
		reportInterval: opts.ReportInterval,
		maxSamples:     opts.MaxSamples,
		startTime:      time.Now(),
		metrics:        make(map[string]*tracker),
		timings:        make(map[string]*tracker),
	}
}

// Start emits a report every ReportInterval until ctx is done or Stop is
// called. Calling Start on a running profiler is a no-op.
func (p *Profiler) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}

	ctx, p.cancel = context.WithCancel(ctx)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ticker := time.NewTicker(p.reportInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.Report()
			}
		}
	}()
}

// Stop ends background reporting and waits for it to finish.
func (p *Profiler) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
		p.wg.Wait()
	}
}

// RecordMetric records a custom metric value.
//
// Arguments:
// - name: The name of the metric.
// - value: The metric value to record.
func (p *Profiler) RecordMetric(name string, value float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	record(p.metrics, name, value, p.maxSamples)
}

// StartOperation begins timing an operation.
//
// Arguments:
// - name: The name of the operation to track.
//
// Returns:
// - A function to call when the operation completes.
//
// @example
// done := prof.StartOperation("pipeline")
// out, err := p.Process(data, opts)
// done()
func (p *Profiler) StartOperation(name string) func() {
	start := time.Now()
	return func() {
		d := time.Since(start)
		p.mu.Lock()
		defer p.mu.Unlock()
		record(p.timings, name, d.Seconds(), p.maxSamples)
	}
}

func record(m map[string]*tracker, name string, value float64, maxSamples int) {
	t, ok := m[name]
	if !ok {
		t = &tracker{values: make([]float64, 0, 16)}
		m[name] = t
	}
	t.add(value, maxSamples)
}

// Stats returns a snapshot of the current statistics.
func (p *Profiler) Stats() Stats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	p.mu.Lock()
	defer p.mu.Unlock()

	s := Stats{
		Uptime:     time.Since(p.startTime),
		Goroutines: runtime.NumGoroutine(),
		HeapAlloc:  mem.HeapAlloc,
		TotalAlloc: mem.TotalAlloc,
		NumGC:      mem.NumGC,
		Metrics:    make(map[string]Summary, len(p.metrics)),
		Operations: make(map[string]Summary, len(p.timings)),
	}
	for name, t := range p.metrics {
		s.Metrics[name] = t.summary()
	}
	for name, t := range p.timings {
		s.Operations[name] = t.summary()
	}
	return s
}

// Report logs the current statistics: one event for the runtime, then one
// per operation and metric in name order.
func (p *Profiler) Report() {
	s := p.Stats()

	p.logger.Info().
		Dur("uptime", s.Uptime.Truncate(time.Millisecond)).
		Int("goroutines", s.Goroutines).
		Uint64("heap_alloc", s.HeapAlloc).
		Uint64("total_alloc", s.TotalAlloc).
		Uint32("gc_cycles", s.NumGC).
		Msg("runtime")

	for _, name := range sortedKeys(s.Operations) {
		op := s.Operations[name]
		p.logger.Info().
			Str("operation", name).
			Dur("avg", seconds(op.Avg)).
			Dur("min", seconds(op.Min)).
			Dur("max", seconds(op.Max)).
			Int64("count", op.Count).
			Msg("operation timing")
	}
	for _, name := range sortedKeys(s.Metrics) {
		m := s.Metrics[name]
		p.logger.Info().
			Str("metric", name).
			Float64("avg", m.Avg).
			Float64("min", m.Min).
			Float64("max", m.Max).
			Int64("count", m.Count).
			Msg("metric")
	}
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second)).Truncate(time.Microsecond)
}

func sortedKeys(m map[string]Summary) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

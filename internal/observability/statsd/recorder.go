package statsd

import (
	"sync"
	"time"
)

// Recorder is an in-memory Sink that keeps every emitted line, for tests.
type Recorder struct {
	mu    sync.Mutex
	lines []string
}

var _ Sink = (*Recorder)(nil)

// Count records a counter line.
func (r *Recorder) Count(name string, value int64, tags map[string]string) {
	r.add(FormatLine("", name, formatFloat(float64(value))+"|c", nil, tags))
}

// Gauge records a gauge line.
func (r *Recorder) Gauge(name string, value float64, tags map[string]string) {
	r.add(FormatLine("", name, formatFloat(value)+"|g", nil, tags))
}

// Timing records a timing line.
func (r *Recorder) Timing(name string, value time.Duration, tags map[string]string) {
	r.add(FormatLine("", name, formatFloat(float64(value)/float64(time.Millisecond))+"|ms", nil, tags))
}

// Lines returns a copy of everything recorded.
func (r *Recorder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}

func (r *Recorder) add(line string) {
	if line == "" {
		return
	}
	r.mu.Lock()
	r.lines = append(r.lines, line)
	r.mu.Unlock()
}

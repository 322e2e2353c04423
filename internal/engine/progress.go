package engine

import (
	"sync"
	"time"
)

// Progress is one aggregate sample delivered to the caller's sink. Samples
// are ephemeral; nothing in the engine retains them.
type Progress struct {
	BytesReceived int64
	TotalBytes    int64 // -1 while the size is unknown
	Percentage    float64
	Speed         float64 // bytes per second
	Elapsed       time.Duration
	ETA           time.Duration
}

type ProgressFunc func(Progress)

// tracker is the single serialization point for byte accounting. Read loops
// only ever call add, which cannot block on the caller's sink; the sampler
// goroutine alone turns the counters into Progress values.
type tracker struct {
	mu          sync.Mutex
	received    int64
	total       int64
	started     time.Time
	sampleAt    time.Time
	sampleBytes int64
}

func newTracker(total int64, now time.Time) *tracker {
	return &tracker{
		total:    total,
		started:  now,
		sampleAt: now,
	}
}

func (t *tracker) add(n int64) {
	t.mu.Lock()
	t.received += n
	t.mu.Unlock()
}

func (t *tracker) setTotal(n int64) {
	t.mu.Lock()
	t.total = n
	t.mu.Unlock()
}

func (t *tracker) bytesReceived() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.received
}

func (t *tracker) totalBytes() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

// snapshot produces the next sample and advances the speed window. Speed is
// bytes since the previous snapshot over the elapsed window; percentage stays
// zero until the total is known; ETA is zero whenever speed is zero.
func (t *tracker) snapshot(now time.Time) Progress {
	t.mu.Lock()
	defer t.mu.Unlock()
	p := Progress{
		BytesReceived: t.received,
		TotalBytes:    t.total,
		Elapsed:       now.Sub(t.started),
	}
	if window := now.Sub(t.sampleAt); window > 0 {
		p.Speed = float64(t.received-t.sampleBytes) / window.Seconds()
	}
	t.sampleAt = now
	t.sampleBytes = t.received
	if t.total > 0 {
		p.Percentage = float64(t.received) / float64(t.total) * 100
		if remaining := t.total - t.received; remaining > 0 && p.Speed > 0 {
			p.ETA = time.Duration(float64(remaining) / p.Speed * float64(time.Second))
		}
	}
	return p
}

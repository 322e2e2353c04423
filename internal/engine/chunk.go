package engine

import (
	"context"
	"sync"
	"time"
)

type chunkStatus int

const (
	chunkPending chunkStatus = iota
	chunkDownloading
	chunkCompleted
	chunkCancelled
)

func (s chunkStatus) String() string {
	switch s {
	case chunkPending:
		return "pending"
	case chunkDownloading:
		return "downloading"
	case chunkCompleted:
		return "completed"
	case chunkCancelled:
		return "cancelled"
	}
	return "unknown"
}

// chunk is one contiguous byte range of the file. A planned chunk owns a
// buffer spanning its full range; a salvaged chunk carries exactly the bytes
// rescued from a cancelled transfer, with end adjusted to match.
type chunk struct {
	index    int
	start    int64
	end      int64 // inclusive
	salvaged bool

	mu          sync.Mutex
	status      chunkStatus
	downloaded  int64
	buf         []byte
	startedAt   time.Time
	sampleAt    time.Time
	sampleBytes int64
	speed       float64 // bytes/sec over the last sample window
	cancelXfer  context.CancelFunc
}

// chunkView is a consistent single-lock snapshot used by the steal scan.
type chunkView struct {
	status     chunkStatus
	age        time.Duration
	speed      float64
	downloaded int64
	remaining  int64
}

func (c *chunk) size() int64 { return c.end - c.start + 1 }

func (c *chunk) markDownloading(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = chunkDownloading
	c.startedAt = now
	c.sampleAt = now
	c.sampleBytes = c.downloaded
}

// beginAttempt registers the transfer's cancel func and reports where the
// ranged request should resume. It refuses chunks already flagged cancelled.
func (c *chunk) beginAttempt(cancel context.CancelFunc) (resume int64, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status == chunkCancelled {
		return 0, false
	}
	if c.buf == nil {
		c.buf = make([]byte, c.size())
	}
	c.cancelXfer = cancel
	return c.downloaded, true
}

// append records freshly read bytes and reports how many were accepted. It
// refuses everything once the chunk has been flagged cancelled: bytes past
// the salvage boundary belong to the split sub-chunks and must be dropped.
func (c *chunk) append(p []byte, now time.Time, sampleEvery time.Duration) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status == chunkCancelled {
		return 0, false
	}
	n := copy(c.buf[c.downloaded:], p)
	c.downloaded += int64(n)
	if elapsed := now.Sub(c.sampleAt); elapsed >= sampleEvery {
		c.speed = float64(c.downloaded-c.sampleBytes) / elapsed.Seconds()
		c.sampleAt = now
		c.sampleBytes = c.downloaded
	}
	return n, true
}

// finish validates a fully transferred chunk and marks it completed.
func (c *chunk) finish() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status == chunkCancelled {
		return errChunkCancelled
	}
	if c.downloaded != c.size() {
		return errShortChunk(c.size(), c.downloaded)
	}
	c.status = chunkCompleted
	c.cancelXfer = nil
	return nil
}

func (c *chunk) cancelled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status == chunkCancelled
}

// view reports live chunk state. A stalled transfer decays toward zero speed
// because the open sample window keeps growing without new bytes.
func (c *chunk) view(now time.Time, sampleEvery time.Duration) chunkView {
	c.mu.Lock()
	defer c.mu.Unlock()
	speed := c.speed
	if elapsed := now.Sub(c.sampleAt); elapsed >= sampleEvery {
		speed = float64(c.downloaded-c.sampleBytes) / elapsed.Seconds()
	}
	return chunkView{
		status:     c.status,
		age:        now.Sub(c.startedAt),
		speed:      speed,
		downloaded: c.downloaded,
		remaining:  c.size() - c.downloaded,
	}
}

// cancelForSteal flags the chunk cancelled and tears down its in-flight
// transfer. The returned byte count is final: append refuses everything after
// the flag, so the salvage boundary and the split remainder cannot overlap.
func (c *chunk) cancelForSteal() (downloaded int64, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != chunkDownloading {
		return 0, false
	}
	c.status = chunkCancelled
	if c.cancelXfer != nil {
		c.cancelXfer()
	}
	return c.downloaded, true
}

// chunkTable is the shared chunk-state table plus the pending queue. One
// mutex guards both so dequeue, enqueue and steal decisions serialize.
type chunkTable struct {
	mu     sync.Mutex
	chunks []*chunk
	queue  []*chunk
	next   int
}

func newChunkTable(chunks []*chunk) *chunkTable {
	t := &chunkTable{
		chunks: chunks,
		queue:  make([]*chunk, len(chunks)),
		next:   len(chunks),
	}
	copy(t.queue, chunks)
	return t
}

// dequeue hands the oldest pending chunk to exactly one worker.
func (t *chunkTable) dequeue(now time.Time) *chunk {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.queue) == 0 {
		return nil
	}
	c := t.queue[0]
	t.queue = t.queue[1:]
	c.markDownloading(now)
	return c
}

func (t *chunkTable) all() []*chunk {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*chunk, len(t.chunks))
	copy(out, t.chunks)
	return out
}

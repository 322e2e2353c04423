// Package engine downloads one file over HTTP by splitting it into byte
// ranges fetched concurrently, adapting at runtime: chunks that fall far
// behind the pack are cancelled, their received prefix is kept, and the
// unfetched remainder is re-split across the still-healthy workers. The
// assembled file is returned as a single in-memory buffer.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rauko1753/filch/internal/utils"
)

// SplitBand is one row of the steal fan-out table: remainders below UpTo are
// re-planned as Slices sub-chunks. A zero UpTo marks the catch-all row.
type SplitBand struct {
	UpTo   int64
	Slices int
}

// Config carries every tunable of the engine. Zero values fall back to the
// defaults, so callers only set what they want to change.
type Config struct {
	SmallFileCutoff int64 // files below this use SmallChunkSize
	LargeFileCutoff int64 // files above this use LargeChunkSize
	SmallChunkSize  int64
	MediumChunkSize int64
	LargeChunkSize  int64

	SequentialBelow int64 // sizes below this skip chunking entirely

	MinWorkers int
	MaxWorkers int

	MaxAttempts  int           // total attempts per chunk, first try included
	RetryBackoff time.Duration // first retry delay, doubled per attempt

	ReadBufferSize int64
	SampleInterval time.Duration

	StealMinAge       time.Duration // a chunk younger than this is never a victim
	StealSpeedRatio   float64       // victim threshold as a fraction of average speed
	StealMinRemainder int64         // never steal when less than this is left
	SplitBands        []SplitBand

	ProbeBytes int64

	// AllowIncomplete restores the legacy merge behavior: log a warning on a
	// coverage shortfall and return the best-effort buffer anyway.
	AllowIncomplete bool
}

func DefaultConfig() Config {
	return Config{
		SmallFileCutoff:   10 * 1024 * 1024,
		LargeFileCutoff:   100 * 1024 * 1024,
		SmallChunkSize:    256 * 1024,
		MediumChunkSize:   512 * 1024,
		LargeChunkSize:    2 * 1024 * 1024,
		SequentialBelow:   5 * 1024 * 1024,
		MinWorkers:        4,
		MaxWorkers:        16,
		MaxAttempts:       3,
		RetryBackoff:      time.Second,
		ReadBufferSize:    64 * 1024,
		SampleInterval:    100 * time.Millisecond,
		StealMinAge:       2 * time.Second,
		StealSpeedRatio:   0.3,
		StealMinRemainder: 256 * 1024,
		SplitBands: []SplitBand{
			{UpTo: 256 * 1024, Slices: 1},
			{UpTo: 2 * 1024 * 1024, Slices: 2},
			{UpTo: 5 * 1024 * 1024, Slices: 4},
			{Slices: 8},
		},
		ProbeBytes: 1024,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.SmallFileCutoff == 0 {
		c.SmallFileCutoff = def.SmallFileCutoff
	}
	if c.LargeFileCutoff == 0 {
		c.LargeFileCutoff = def.LargeFileCutoff
	}
	if c.SmallChunkSize == 0 {
		c.SmallChunkSize = def.SmallChunkSize
	}
	if c.MediumChunkSize == 0 {
		c.MediumChunkSize = def.MediumChunkSize
	}
	if c.LargeChunkSize == 0 {
		c.LargeChunkSize = def.LargeChunkSize
	}
	if c.SequentialBelow == 0 {
		c.SequentialBelow = def.SequentialBelow
	}
	if c.MinWorkers == 0 {
		c.MinWorkers = def.MinWorkers
	}
	if c.MaxWorkers == 0 {
		c.MaxWorkers = def.MaxWorkers
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = def.MaxAttempts
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = def.RetryBackoff
	}
	if c.ReadBufferSize == 0 {
		c.ReadBufferSize = def.ReadBufferSize
	}
	if c.SampleInterval == 0 {
		c.SampleInterval = def.SampleInterval
	}
	if c.StealMinAge == 0 {
		c.StealMinAge = def.StealMinAge
	}
	if c.StealSpeedRatio == 0 {
		c.StealSpeedRatio = def.StealSpeedRatio
	}
	if c.StealMinRemainder == 0 {
		c.StealMinRemainder = def.StealMinRemainder
	}
	if len(c.SplitBands) == 0 {
		c.SplitBands = def.SplitBands
	}
	if c.ProbeBytes == 0 {
		c.ProbeBytes = def.ProbeBytes
	}
	return c
}

// Task is what the prober learns about a URL before downloading.
type Task struct {
	URL           string
	TotalBytes    int64 // -1 when the server does not reveal the size
	SupportsRange bool
	Filename      string
}

type Engine struct {
	cfg    Config
	client utils.HTTPDoer
	now    func() time.Time
}

// New builds an engine around the given client. A nil client gets a default
// one, which keeps call sites in tests short.
func New(client utils.HTTPDoer, cfg Config) *Engine {
	if client == nil {
		client = utils.NewFilchHTTPClient(utils.HTTPClientConfig{})
	}
	return &Engine{cfg: cfg.withDefaults(), client: client, now: time.Now}
}

// Download probes the URL and retrieves the file, blocking until the transfer
// fully completes or fails. The returned buffer is the whole file; on error
// there is no partial result. Cancel ctx to abort. sink may be nil.
func (e *Engine) Download(ctx context.Context, url string, sink ProgressFunc) ([]byte, error) {
	return e.DownloadTask(ctx, e.Probe(ctx, url), sink)
}

// DownloadTask retrieves a previously probed task. Callers that already paid
// for a probe (to learn the filename or check the size) use this to avoid a
// second one.
func (e *Engine) DownloadTask(ctx context.Context, task Task, sink ProgressFunc) ([]byte, error) {
	tr := newTracker(task.TotalBytes, e.now())
	d := &download{e: e, url: task.URL, tr: tr}

	stop := make(chan struct{})
	var samplerWg sync.WaitGroup
	if sink != nil {
		samplerWg.Add(1)
		go func() {
			defer samplerWg.Done()
			ticker := time.NewTicker(e.cfg.SampleInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					sink(tr.snapshot(e.now()))
				case <-stop:
					sink(tr.snapshot(e.now()))
					return
				}
			}
		}()
	}
	defer func() {
		close(stop)
		samplerWg.Wait()
	}()

	if !task.SupportsRange || task.TotalBytes < e.cfg.SequentialBelow {
		log.Debug().Str("op", "engine").Msgf("sequential download for %s (range=%t size=%d)", task.URL, task.SupportsRange, task.TotalBytes)
		return d.sequential(ctx)
	}

	chunks := planChunks(task.TotalBytes, &e.cfg)
	workers := workerCountFor(len(chunks), &e.cfg)
	d.table = newChunkTable(chunks)
	log.Debug().Str("op", "engine").Msgf("planned %d chunks of %s for %s, %d workers",
		len(chunks), utils.FormatBytes(uint64(chunkSizeFor(task.TotalBytes, &e.cfg))), task.URL, workers)

	dctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var once sync.Once
	var firstErr error
	d.fail = func(err error) {
		once.Do(func() {
			firstErr = err
			cancel()
		})
	}

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.runWorker(dctx)
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return mergeChunks(d.table.all(), task.TotalBytes, e.cfg.AllowIncomplete)
}

package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// errChunkCancelled marks a transfer abandoned by the work-stealing monitor.
// It is not a failure: the victim's bytes were salvaged and the remainder
// re-planned before the flag was raised.
var errChunkCancelled = errors.New("chunk cancelled")

func errShortChunk(want, got int64) error {
	return fmt.Errorf("size mismatch: expected %d bytes, got %d", want, got)
}

// download bundles the state of one Download call so a single Engine can
// serve overlapping downloads.
type download struct {
	e     *Engine
	url   string
	table *chunkTable
	tr    *tracker
	fail  func(error)
}

// runWorker pulls pending chunks until the queue runs dry, then makes exactly
// one steal attempt; when no candidate qualifies its share of work is done.
func (d *download) runWorker(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c := d.table.dequeue(d.e.now())
		if c == nil {
			if d.steal() {
				continue
			}
			return
		}
		if err := d.downloadChunk(ctx, c); err != nil {
			d.fail(err)
			return
		}
	}
}

// downloadChunk drives one chunk through its attempts. Transient failures
// back off exponentially and resume where the last attempt stopped; a chunk
// cancelled mid-transfer or mid-backoff is abandoned without error. Running
// out of attempts on a chunk nobody cancelled is fatal for the download.
func (d *download) downloadChunk(ctx context.Context, c *chunk) error {
	cfg := &d.e.cfg
	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			backoff := cfg.RetryBackoff << (attempt - 2)
			log.Debug().Str("op", "engine/chunk").Msgf("chunk %d retrying in %s (attempt %d/%d)", c.index, backoff, attempt, cfg.MaxAttempts)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			if c.cancelled() {
				return nil
			}
		}
		err := d.transferChunk(ctx, c)
		if err == nil {
			return nil
		}
		if errors.Is(err, errChunkCancelled) {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lastErr = err
		log.Debug().Str("op", "engine/chunk").Err(err).Msgf("chunk %d attempt %d failed", c.index, attempt)
	}
	return fmt.Errorf("chunk %d failed after %d attempts: %w", c.index, cfg.MaxAttempts, lastErr)
}

// transferChunk performs one ranged request for the chunk's unfetched tail,
// streaming into the chunk's buffer. The cancel func registered with the
// chunk lets the steal monitor unblock a stalled read immediately.
func (d *download) transferChunk(ctx context.Context, c *chunk) error {
	cfg := &d.e.cfg
	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	resume, ok := c.beginAttempt(cancel)
	if !ok {
		return errChunkCancelled
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, d.url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", c.start+resume, c.end))
	req.Header.Set("Connection", "keep-alive")
	resp, err := d.e.client.Do(req)
	if err != nil {
		if c.cancelled() {
			return errChunkCancelled
		}
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusPartialContent {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	buffer := make([]byte, cfg.ReadBufferSize)
	for {
		bytesRead, readErr := resp.Body.Read(buffer)
		if bytesRead > 0 {
			accepted, owned := c.append(buffer[:bytesRead], d.e.now(), cfg.SampleInterval)
			if !owned {
				return errChunkCancelled
			}
			d.tr.add(int64(accepted))
		}
		if readErr != nil {
			if readErr == io.EOF {
				break
			}
			if c.cancelled() {
				return errChunkCancelled
			}
			return readErr
		}
	}
	return c.finish()
}

package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"
)

// sequential streams the whole file over one plain GET. It serves servers
// without range support, files too small to be worth chunking, and files of
// unknown size; when the size is unknown up front it is adopted from the
// response headers so percentage reporting can begin. Errors propagate
// directly, there is no mid-stream retry.
func (d *download) sequential(ctx context.Context) ([]byte, error) {
	cfg := &d.e.cfg
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := d.e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	total := d.tr.totalBytes()
	if total <= 0 && resp.ContentLength > 0 {
		total = resp.ContentLength
		d.tr.setTotal(total)
		log.Debug().Str("op", "engine/sequential").Msgf("size learned from response: %d bytes", total)
	}

	var out bytes.Buffer
	if total > 0 {
		out.Grow(int(total))
	}
	buffer := make([]byte, cfg.ReadBufferSize)
	for {
		bytesRead, readErr := resp.Body.Read(buffer)
		if bytesRead > 0 {
			out.Write(buffer[:bytesRead])
			d.tr.add(int64(bytesRead))
		}
		if readErr != nil {
			if readErr == io.EOF {
				break
			}
			return nil, readErr
		}
	}

	written := int64(out.Len())
	if total > 0 && written != total {
		return nil, fmt.Errorf("short body: got %d of %d bytes", written, total)
	}
	if total <= 0 {
		d.tr.setTotal(written)
	}
	return out.Bytes(), nil
}

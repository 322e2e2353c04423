package engine

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

var filenameSanitizer = regexp.MustCompile(`[^a-zA-Z0-9_\-\. ]+`)

// Probe inspects the URL with a small ranged request and a HEAD size query.
// It never fails: any transport trouble degrades to a task without range
// support, which routes the download onto the sequential path.
func (e *Engine) Probe(ctx context.Context, rawURL string) Task {
	task := Task{URL: rawURL, TotalBytes: -1}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return task
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=0-%d", e.cfg.ProbeBytes-1))
	resp, err := e.client.Do(req)
	if err != nil {
		log.Debug().Str("op", "engine/probe").Err(err).Msg("range probe failed, assuming no range support")
	} else {
		io.CopyN(io.Discard, resp.Body, e.cfg.ProbeBytes)
		resp.Body.Close()
		task.SupportsRange = resp.StatusCode == http.StatusPartialContent
		if task.SupportsRange {
			if total, ok := parseContentRangeTotal(resp.Header.Get("Content-Range")); ok {
				task.TotalBytes = total
			}
		}
	}

	size, name, err := e.headInfo(ctx, rawURL)
	if err != nil {
		log.Debug().Str("op", "engine/probe").Err(err).Msg("size query failed")
	} else {
		if size > 0 {
			task.TotalBytes = size
		}
		if name != "" {
			task.Filename = name
		}
	}
	log.Debug().Str("op", "engine/probe").Msgf("probed %s: range=%t size=%d", rawURL, task.SupportsRange, task.TotalBytes)
	return task
}

// headInfo runs the separate size query and pulls a filename out of
// Content-Disposition when the server offers one.
func (e *Engine) headInfo(ctx context.Context, rawURL string) (int64, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return -1, "", err
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return -1, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return -1, "", fmt.Errorf("size query returned status %d", resp.StatusCode)
	}

	filename := ""
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			if fn, ok := params["filename"]; ok && fn != "" {
				filename = filenameSanitizer.ReplaceAllString(fn, "_")
			} else if fn, ok := params["filename*"]; ok && strings.HasPrefix(fn, "UTF-8''") {
				if unescaped, err := url.PathUnescape(strings.TrimPrefix(fn, "UTF-8''")); err == nil {
					filename = filenameSanitizer.ReplaceAllString(unescaped, "_")
				}
			}
		}
	}

	size := int64(-1)
	if cl := resp.Header.Get("Content-Length"); cl != "" {
		if parsed, err := strconv.ParseInt(cl, 10, 64); err == nil && parsed > 0 {
			size = parsed
		}
	}
	return size, filename, nil
}

// parseContentRangeTotal extracts the total from "bytes 0-1023/5242880".
func parseContentRangeTotal(header string) (int64, bool) {
	idx := strings.LastIndexByte(header, '/')
	if idx < 0 {
		return 0, false
	}
	totalPart := header[idx+1:]
	if totalPart == "*" || totalPart == "" {
		return 0, false
	}
	total, err := strconv.ParseInt(totalPart, 10, 64)
	if err != nil || total <= 0 {
		return 0, false
	}
	return total, true
}

package engine

import (
	"fmt"
	"sort"

	"github.com/RoaringBitmap/roaring/roaring64"
	"github.com/rs/zerolog/log"
)

// mergeChunks assembles completed chunks into the final buffer at their own
// offsets, in startByte order. Planned and salvaged chunks merge uniformly;
// cancelled chunks contribute nothing. Coverage of [0, totalBytes-1] is
// validated with a bitmap: overlaps always fail, and a shortfall fails unless
// allowIncomplete asks for the legacy warn-and-return behavior.
func mergeChunks(chunks []*chunk, totalBytes int64, allowIncomplete bool) ([]byte, error) {
	completed := make([]*chunk, 0, len(chunks))
	for _, c := range chunks {
		if c.status == chunkCompleted {
			completed = append(completed, c)
		}
	}
	sort.Slice(completed, func(i, j int) bool {
		return completed[i].start < completed[j].start
	})

	out := make([]byte, totalBytes)
	coverage := roaring64.New()
	for _, c := range completed {
		if c.downloaded == 0 {
			continue
		}
		span := roaring64.New()
		span.AddRange(uint64(c.start), uint64(c.start+c.downloaded))
		if span.Intersects(coverage) {
			return nil, fmt.Errorf("chunk %d [%d-%d] overlaps already merged bytes", c.index, c.start, c.start+c.downloaded-1)
		}
		coverage.Or(span)
		copy(out[c.start:], c.buf[:c.downloaded])
	}

	if got := int64(coverage.GetCardinality()); got != totalBytes {
		if !allowIncomplete {
			return nil, fmt.Errorf("assembled %d of %d bytes", got, totalBytes)
		}
		log.Warn().Str("op", "engine/merge").Msgf("assembled %d of %d bytes, returning best-effort buffer", got, totalBytes)
	}
	return out, nil
}

package engine

// chunkSizeFor picks the chunk size tier for a file of the given total size.
func chunkSizeFor(totalBytes int64, cfg *Config) int64 {
	switch {
	case totalBytes < cfg.SmallFileCutoff:
		return cfg.SmallChunkSize
	case totalBytes <= cfg.LargeFileCutoff:
		return cfg.MediumChunkSize
	default:
		return cfg.LargeChunkSize
	}
}

// planChunks tiles [0, totalBytes-1] with contiguous disjoint ranges. The
// final chunk absorbs whatever the ceiling division leaves over.
func planChunks(totalBytes int64, cfg *Config) []*chunk {
	size := chunkSizeFor(totalBytes, cfg)
	count := (totalBytes + size - 1) / size
	chunks := make([]*chunk, 0, count)
	for i := int64(0); i < count; i++ {
		start := i * size
		end := min(start+size, totalBytes) - 1
		chunks = append(chunks, &chunk{index: int(i), start: start, end: end})
	}
	return chunks
}

func workerCountFor(chunkCount int, cfg *Config) int {
	n := chunkCount / 4
	if n < cfg.MinWorkers {
		n = cfg.MinWorkers
	}
	if n > cfg.MaxWorkers {
		n = cfg.MaxWorkers
	}
	return n
}

// splitFanoutFor consults the fan-out table for a stolen remainder of the
// given length. The zero-bound band is the catch-all.
func splitFanoutFor(remainder int64, bands []SplitBand) int {
	for _, b := range bands {
		if b.UpTo > 0 && remainder < b.UpTo {
			return b.Slices
		}
	}
	return bands[len(bands)-1].Slices
}

// splitRange cuts [start, end] into n equal contiguous slices, the last
// absorbing the remainder. n is capped by the range length.
func splitRange(start, end int64, n int) [][2]int64 {
	length := end - start + 1
	if int64(n) > length {
		n = int(length)
	}
	if n < 1 {
		n = 1
	}
	per := length / int64(n)
	out := make([][2]int64, 0, n)
	for i := 0; i < n; i++ {
		s := start + int64(i)*per
		e := s + per - 1
		if i == n-1 {
			e = end
		}
		out = append(out, [2]int64{s, e})
	}
	return out
}

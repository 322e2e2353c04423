package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	kib = 1024
	mib = 1024 * 1024
)

func defaultCfg() *Config {
	cfg := DefaultConfig()
	return &cfg
}

func TestChunkSizeTiers(t *testing.T) {
	cfg := defaultCfg()
	tests := []struct {
		name  string
		total int64
		want  int64
	}{
		{"tiny file", 512 * kib, 256 * kib},
		{"just under small cutoff", 10*mib - 1, 256 * kib},
		{"at small cutoff", 10 * mib, 512 * kib},
		{"mid range", 20 * mib, 512 * kib},
		{"at large cutoff", 100 * mib, 512 * kib},
		{"above large cutoff", 100*mib + 1, 2 * mib},
		{"huge file", 4 * 1024 * mib, 2 * mib},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, chunkSizeFor(tt.total, cfg))
		})
	}
}

func TestPlanTwentyMiB(t *testing.T) {
	cfg := defaultCfg()
	chunks := planChunks(20*mib, cfg)
	require.Len(t, chunks, 40)
	for _, c := range chunks {
		assert.Equal(t, int64(512*kib), c.size())
	}
	assert.Equal(t, 10, workerCountFor(len(chunks), cfg))
}

func TestPlanPartitionInvariant(t *testing.T) {
	cfg := defaultCfg()
	sizes := []int64{
		5 * mib, 5*mib + 1, 5*mib + 137, 9 * mib, 10 * mib,
		20 * mib, 64*mib + 12345, 100 * mib, 250*mib + 7, 1024 * mib,
	}
	for _, total := range sizes {
		chunks := planChunks(total, cfg)
		require.NotEmpty(t, chunks)
		assert.Equal(t, int64(0), chunks[0].start)
		var sum int64
		for i, c := range chunks {
			require.GreaterOrEqual(t, c.end, c.start, "total %d chunk %d", total, i)
			if i > 0 {
				require.Equal(t, chunks[i-1].end+1, c.start, "total %d chunk %d not contiguous", total, i)
			}
			sum += c.size()
		}
		assert.Equal(t, total-1, chunks[len(chunks)-1].end, "total %d", total)
		assert.Equal(t, total, sum, "total %d", total)
	}
}

func TestWorkerCountClamp(t *testing.T) {
	cfg := defaultCfg()
	tests := []struct {
		chunks int
		want   int
	}{
		{1, 4},
		{15, 4},
		{16, 4},
		{20, 5},
		{40, 10},
		{64, 16},
		{100, 16},
		{10000, 16},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, workerCountFor(tt.chunks, cfg), "chunks=%d", tt.chunks)
	}
}

func TestSplitFanout(t *testing.T) {
	bands := DefaultConfig().SplitBands
	tests := []struct {
		remainder int64
		want      int
	}{
		{1, 1},
		{256*kib - 1, 1},
		{256 * kib, 2},
		{2*mib - 1, 2},
		{2 * mib, 4},
		{5*mib - 1, 4},
		{5 * mib, 8},
		{50 * mib, 8},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, splitFanoutFor(tt.remainder, bands), "remainder=%d", tt.remainder)
	}
}

func TestSplitRange(t *testing.T) {
	t.Run("equal slices with remainder absorbed", func(t *testing.T) {
		parts := splitRange(100, 1099, 4)
		require.Len(t, parts, 4)
		assert.Equal(t, [2]int64{100, 349}, parts[0])
		assert.Equal(t, [2]int64{350, 599}, parts[1])
		assert.Equal(t, [2]int64{600, 849}, parts[2])
		assert.Equal(t, [2]int64{850, 1099}, parts[3])
	})
	t.Run("uneven length", func(t *testing.T) {
		parts := splitRange(0, 9, 3)
		require.Len(t, parts, 3)
		assert.Equal(t, [2]int64{0, 2}, parts[0])
		assert.Equal(t, [2]int64{3, 5}, parts[1])
		assert.Equal(t, [2]int64{6, 9}, parts[2])
	})
	t.Run("more slices than bytes", func(t *testing.T) {
		parts := splitRange(5, 7, 8)
		require.Len(t, parts, 3)
		assert.Equal(t, [2]int64{5, 5}, parts[0])
		assert.Equal(t, [2]int64{6, 6}, parts[1])
		assert.Equal(t, [2]int64{7, 7}, parts[2])
	})
	t.Run("single slice", func(t *testing.T) {
		parts := splitRange(42, 99, 1)
		require.Len(t, parts, 1)
		assert.Equal(t, [2]int64{42, 99}, parts[0])
	})
	t.Run("contiguity preserved", func(t *testing.T) {
		for _, n := range []int{1, 2, 4, 8} {
			parts := splitRange(1000, 73512, n)
			require.Len(t, parts, n)
			assert.Equal(t, int64(1000), parts[0][0])
			assert.Equal(t, int64(73512), parts[n-1][1])
			for i := 1; i < len(parts); i++ {
				assert.Equal(t, parts[i-1][1]+1, parts[i][0])
			}
		}
	})
}

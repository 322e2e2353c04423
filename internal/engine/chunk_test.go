package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkAppendRefusedAfterCancel(t *testing.T) {
	c := &chunk{start: 0, end: 1023}
	c.markDownloading(time.Now())
	_, ok := c.beginAttempt(func() {})
	require.True(t, ok)

	n, owned := c.append(make([]byte, 100), time.Now(), time.Second)
	assert.Equal(t, 100, n)
	assert.True(t, owned)

	salvaged, ok := c.cancelForSteal()
	require.True(t, ok)
	assert.Equal(t, int64(100), salvaged)

	n, owned = c.append(make([]byte, 100), time.Now(), time.Second)
	assert.Zero(t, n)
	assert.False(t, owned)
	assert.Equal(t, int64(100), c.downloaded)

	assert.ErrorIs(t, c.finish(), errChunkCancelled)
}

func TestChunkCancelForStealOnlyWhileDownloading(t *testing.T) {
	pending := &chunk{start: 0, end: 99}
	_, ok := pending.cancelForSteal()
	assert.False(t, ok)
	assert.Equal(t, chunkPending, pending.status)

	done := &chunk{start: 0, end: 99, status: chunkCompleted, downloaded: 100}
	_, ok = done.cancelForSteal()
	assert.False(t, ok)
	assert.Equal(t, chunkCompleted, done.status)
}

func TestChunkCancelForStealTearsDownTransfer(t *testing.T) {
	c := &chunk{start: 0, end: 1023}
	c.markDownloading(time.Now())
	torn := false
	_, ok := c.beginAttempt(func() { torn = true })
	require.True(t, ok)

	_, ok = c.cancelForSteal()
	require.True(t, ok)
	assert.True(t, torn)
}

func TestChunkBeginAttemptRefusesCancelled(t *testing.T) {
	c := &chunk{start: 0, end: 1023}
	c.markDownloading(time.Now())
	_, ok := c.beginAttempt(func() {})
	require.True(t, ok)
	c.append(make([]byte, 64), time.Now(), time.Second)
	_, ok = c.cancelForSteal()
	require.True(t, ok)

	_, ok = c.beginAttempt(func() {})
	assert.False(t, ok)
}

func TestChunkResumeOffset(t *testing.T) {
	c := &chunk{start: 2048, end: 4095}
	c.markDownloading(time.Now())
	resume, ok := c.beginAttempt(func() {})
	require.True(t, ok)
	assert.Zero(t, resume)
	require.Len(t, c.buf, 2048)

	c.append(make([]byte, 512), time.Now(), time.Second)

	resume, ok = c.beginAttempt(func() {})
	require.True(t, ok)
	assert.Equal(t, int64(512), resume)
}

func TestChunkFinish(t *testing.T) {
	c := &chunk{start: 0, end: 255}
	c.markDownloading(time.Now())
	c.beginAttempt(func() {})
	c.append(make([]byte, 200), time.Now(), time.Second)
	err := c.finish()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "size mismatch")

	c.append(make([]byte, 56), time.Now(), time.Second)
	require.NoError(t, c.finish())
	assert.Equal(t, chunkCompleted, c.status)
}

func TestChunkAppendCapsAtBufferEnd(t *testing.T) {
	c := &chunk{start: 0, end: 99}
	c.markDownloading(time.Now())
	c.beginAttempt(func() {})
	n, owned := c.append(make([]byte, 150), time.Now(), time.Second)
	assert.True(t, owned)
	assert.Equal(t, 100, n)
	assert.Equal(t, int64(100), c.downloaded)
}

func TestChunkSpeedWindow(t *testing.T) {
	base := time.Now()
	c := &chunk{start: 0, end: 10*mib - 1}
	c.markDownloading(base)
	c.beginAttempt(func() {})

	c.append(make([]byte, 64*kib), base.Add(50*time.Millisecond), 100*time.Millisecond)
	assert.Zero(t, c.speed, "window should not close before the sample interval")

	c.append(make([]byte, 64*kib), base.Add(200*time.Millisecond), 100*time.Millisecond)
	assert.InDelta(t, float64(128*kib)/0.2, c.speed, 1)

	v := c.view(base.Add(250*time.Millisecond), 100*time.Millisecond)
	assert.Equal(t, int64(128*kib), v.downloaded)
	assert.Equal(t, 250*time.Millisecond, v.age)
}

func TestChunkViewDecaysStalledSpeed(t *testing.T) {
	base := time.Now()
	c := &chunk{start: 0, end: mib - 1}
	c.markDownloading(base)
	c.beginAttempt(func() {})
	c.append(make([]byte, 256*kib), base.Add(100*time.Millisecond), 100*time.Millisecond)
	require.Greater(t, c.speed, 0.0)

	v := c.view(base.Add(5*time.Second), 100*time.Millisecond)
	assert.Zero(t, v.speed, "no new bytes over a long window should read as stalled")
	assert.Equal(t, int64(mib-256*kib), v.remaining)
}

func TestChunkTableDequeueOrder(t *testing.T) {
	chunks := planChunks(mib, defaultCfg())
	table := newChunkTable(chunks)
	now := time.Now()
	for i := range chunks {
		c := table.dequeue(now)
		require.NotNil(t, c)
		assert.Equal(t, i, c.index)
		assert.Equal(t, chunkDownloading, c.status)
	}
	assert.Nil(t, table.dequeue(now))
}

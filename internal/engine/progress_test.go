package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTrackerSnapshotMath(t *testing.T) {
	base := time.Now()
	tr := newTracker(1000, base)
	tr.add(250)

	p := tr.snapshot(base.Add(100 * time.Millisecond))
	assert.Equal(t, int64(250), p.BytesReceived)
	assert.Equal(t, int64(1000), p.TotalBytes)
	assert.InDelta(t, 25.0, p.Percentage, 1e-9)
	assert.InDelta(t, 2500.0, p.Speed, 1e-6)
	assert.Equal(t, 100*time.Millisecond, p.Elapsed)
	assert.InDelta(t, 0.3, p.ETA.Seconds(), 1e-9)
}

func TestTrackerZeroSpeedMeansZeroETA(t *testing.T) {
	base := time.Now()
	tr := newTracker(1000, base)
	tr.add(250)
	tr.snapshot(base.Add(100 * time.Millisecond))

	p := tr.snapshot(base.Add(200 * time.Millisecond))
	assert.Zero(t, p.Speed)
	assert.Zero(t, p.ETA)
	assert.InDelta(t, 25.0, p.Percentage, 1e-9)
}

func TestTrackerSpeedMeasuredSinceLastSample(t *testing.T) {
	base := time.Now()
	tr := newTracker(1000, base)
	tr.add(100)
	tr.snapshot(base.Add(100 * time.Millisecond))

	tr.add(400)
	p := tr.snapshot(base.Add(300 * time.Millisecond))
	assert.InDelta(t, 2000.0, p.Speed, 1e-6)
	assert.Equal(t, int64(500), p.BytesReceived)
}

func TestTrackerUnknownTotal(t *testing.T) {
	base := time.Now()
	tr := newTracker(-1, base)
	tr.add(5000)

	p := tr.snapshot(base.Add(time.Second))
	assert.Equal(t, int64(-1), p.TotalBytes)
	assert.Zero(t, p.Percentage)
	assert.Zero(t, p.ETA)
	assert.InDelta(t, 5000.0, p.Speed, 1e-6)

	tr.setTotal(10000)
	tr.add(2500)
	p = tr.snapshot(base.Add(2 * time.Second))
	assert.Equal(t, int64(10000), p.TotalBytes)
	assert.InDelta(t, 75.0, p.Percentage, 1e-9)
}

func TestTrackerCompleteHasZeroETA(t *testing.T) {
	base := time.Now()
	tr := newTracker(1000, base)
	tr.add(1000)

	p := tr.snapshot(base.Add(time.Second))
	assert.Equal(t, 100.0, p.Percentage)
	assert.Zero(t, p.ETA)
}

func TestTrackerGettersLeaveWindowAlone(t *testing.T) {
	base := time.Now()
	tr := newTracker(-1, base)
	tr.add(100)

	assert.Equal(t, int64(100), tr.bytesReceived())
	assert.Equal(t, int64(-1), tr.totalBytes())

	p := tr.snapshot(base.Add(100 * time.Millisecond))
	assert.InDelta(t, 1000.0, p.Speed, 1e-6)
}

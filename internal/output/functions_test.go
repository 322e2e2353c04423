package output

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressBarClamps(t *testing.T) {
	assert.Contains(t, ProgressBar(50, 100, 30), "50.0%")
	assert.Contains(t, ProgressBar(-10, 100, 30), "0.0%")
	assert.Contains(t, ProgressBar(500, 100, 30), "100.0%")
	// zero total must not divide by zero
	assert.NotPanics(t, func() { ProgressBar(0, 0, 30) })
}

func TestWrapText(t *testing.T) {
	short := wrapText("short line", 4)
	assert.Equal(t, []string{"short line"}, short)

	long := wrapText(strings.Repeat("a", 500), 4)
	assert.Greater(t, len(long), 1)
	var total int
	for _, l := range long {
		total += len(l)
	}
	assert.Equal(t, 500, total, "wrapping drops no characters")
}

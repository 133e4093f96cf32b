package monitoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWindowEmpty(t *testing.T) {
	w := NewWindow(16)
	assert.Equal(t, Summary{}, w.Summary())
}

func TestWindowSummary(t *testing.T) {
	w := NewWindow(16)
	for _, ms := range []int{10, 20, 30, 40} {
		w.Observe(time.Duration(ms) * time.Millisecond)
	}

	s := w.Summary()
	assert.Equal(t, 4, s.Count)
	assert.InDelta(t, 25.0, s.Mean, 1e-9)
	assert.InDelta(t, 20.0, s.P50, 1e-9)
	assert.InDelta(t, 40.0, s.P95, 1e-9)
	assert.InDelta(t, 40.0, s.P99, 1e-9)
	assert.InDelta(t, 40.0, s.Max, 1e-9)
}

func TestWindowWrapsAround(t *testing.T) {
	w := NewWindow(3)
	for _, ms := range []int{1, 2, 3, 4} {
		w.Observe(time.Duration(ms) * time.Millisecond)
	}

	s := w.Summary()
	assert.Equal(t, 3, s.Count, "oldest sample falls out of a full window")
	assert.InDelta(t, 3.0, s.Mean, 1e-9)
	assert.InDelta(t, 4.0, s.Max, 1e-9)
}

func TestWindowMinimumSize(t *testing.T) {
	w := NewWindow(0)
	w.Observe(2 * time.Millisecond)
	w.Observe(7 * time.Millisecond)

	s := w.Summary()
	assert.Equal(t, 1, s.Count)
	assert.InDelta(t, 7.0, s.Max, 1e-9)
}

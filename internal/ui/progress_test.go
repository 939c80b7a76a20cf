package ui

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWaitTracker_ObserveStampsEvents(t *testing.T) {
	// Given: a fresh tracker
	tracker := NewWaitTracker()

	// When: two events are observed
	first := tracker.Observe(WaitEvent{Versions: 2, Building: 1})
	second := tracker.Observe(WaitEvent{Versions: 3, Building: 0})

	// Then: polls count up and elapsed is monotonic
	assert.Equal(t, 1, first.Polls)
	assert.Equal(t, 2, second.Polls)
	assert.GreaterOrEqual(t, second.Elapsed, first.Elapsed)
	assert.Equal(t, 3, second.Versions)
}

func TestWaitTracker_LastReturnsMostRecent(t *testing.T) {
	tracker := NewWaitTracker()

	assert.Equal(t, WaitEvent{}, tracker.Last())

	tracker.Observe(WaitEvent{Versions: 1})
	tracker.Observe(WaitEvent{Versions: 5, Message: "retrying"})

	last := tracker.Last()
	assert.Equal(t, 5, last.Versions)
	assert.Equal(t, "retrying", last.Message)
	assert.Equal(t, 2, last.Polls)
}

func TestWaitTracker_Elapsed(t *testing.T) {
	tracker := NewWaitTracker()

	time.Sleep(10 * time.Millisecond)

	assert.GreaterOrEqual(t, tracker.Elapsed(), 10*time.Millisecond)
}

func TestWaitTracker_ConcurrentObserve(t *testing.T) {
	// Given: many goroutines sharing one tracker
	tracker := NewWaitTracker()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				tracker.Observe(WaitEvent{Versions: j})
			}
		}()
	}
	wg.Wait()

	// Then: every observation was counted exactly once
	assert.Equal(t, 200, tracker.Polls())
	assert.Equal(t, 200, tracker.Last().Polls)
}

func TestRenderSparkline(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		width  int
		want   string
	}{
		{"empty series", nil, 10, ""},
		{"zero width", []float64{1, 2}, 0, ""},
		{"single value", []float64{5}, 10, "█"},
		{"ascending", []float64{1, 4, 8}, 10, "▁▄█"},
		{"all zero", []float64{0, 0, 0}, 10, "▁▁▁"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RenderSparkline(tt.values, tt.width))
		})
	}
}

func TestRenderSparkline_CompressesWideSeries(t *testing.T) {
	values := make([]float64, 100)
	for i := range values {
		values[i] = float64(i)
	}

	out := RenderSparkline(values, 20)

	assert.Equal(t, 20, len([]rune(out)))
}

package ui

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// PlainRenderer outputs one line per catalog poll (for CI/pipes).
type PlainRenderer struct {
	mu      sync.Mutex
	out     io.Writer
	tracker *WaitTracker
}

// NewPlainRenderer creates a plain text renderer.
func NewPlainRenderer(cfg Config) *PlainRenderer {
	return &PlainRenderer{
		out:     cfg.Output,
		tracker: NewWaitTracker(),
	}
}

// Start implements Renderer.
func (r *PlainRenderer) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, _ = fmt.Fprintln(r.out, "Waiting for index build...")
	return nil
}

// Update implements Renderer.
func (r *PlainRenderer) Update(event WaitEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	event = r.tracker.Observe(event)

	if event.Message != "" {
		_, _ = fmt.Fprintf(r.out, "[poll %d] %s\n", event.Polls, event.Message)
		return
	}

	_, _ = fmt.Fprintf(r.out, "[poll %d] %s elapsed, %d versions in catalog, %d building\n",
		event.Polls, formatDuration(event.Elapsed), event.Versions, event.Building)
}

// Complete implements Renderer.
func (r *PlainRenderer) Complete(outcome WaitOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case outcome.TimedOut:
		_, _ = fmt.Fprintf(r.out, "Timed out after %s. The build may still finish; check with `kbmcp versions`.\n",
			formatDuration(outcome.Duration))
	case outcome.Status == "FAILED":
		_, _ = fmt.Fprintf(r.out, "Index build FAILED: version %s (after %s)\n",
			outcome.VersionID, formatDuration(outcome.Duration))
	default:
		_, _ = fmt.Fprintf(r.out, "Version %s is %s", outcome.VersionID, outcome.Status)
		if outcome.FileCount > 0 {
			_, _ = fmt.Fprintf(r.out, " (%d files)", outcome.FileCount)
		}
		_, _ = fmt.Fprintf(r.out, " after %s\n", formatDuration(outcome.Duration))
		if outcome.Promoted {
			_, _ = fmt.Fprintf(r.out, "Promoted %s to active\n", outcome.VersionID)
		}
	}
}

// Stop implements Renderer.
func (r *PlainRenderer) Stop() error {
	return nil
}

// formatDuration formats a duration in a human-friendly way.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		if s == 0 {
			return fmt.Sprintf("%dm", m)
		}
		return fmt.Sprintf("%dm %ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh %dm", h, m)
}

// Ensure PlainRenderer implements Renderer
var _ Renderer = (*PlainRenderer)(nil)

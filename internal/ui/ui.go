// Package ui provides terminal output for the kbmcp CLI: a live wait
// display for remote index builds, styled catalog and status views, and
// plain-text fallbacks for pipes and CI.
package ui

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
)

// WaitEvent is one catalog poll while waiting for an index build.
// Versions, Building and Message come from the poller; Elapsed and
// Polls are stamped by the renderer's tracker.
type WaitEvent struct {
	Elapsed  time.Duration
	Polls    int
	Versions int
	Building int
	Message  string
}

// WaitOutcome is the terminal state of an index build wait.
type WaitOutcome struct {
	// VersionID is the version the wait resolved to, empty on timeout.
	VersionID string
	// Status is the version's terminal status, READY or FAILED.
	Status string
	// FileCount is the number of files in the built version, when known.
	FileCount int
	// Duration is the total wait time.
	Duration time.Duration
	// Promoted reports whether the version was activated afterwards.
	Promoted bool
	// TimedOut reports that the wait gave up before a terminal status.
	TimedOut bool
}

// Renderer displays wait progress. Update and Complete may be called
// from the polling goroutine.
type Renderer interface {
	// Start initializes the renderer.
	Start(ctx context.Context) error

	// Update reports one catalog poll.
	Update(event WaitEvent)

	// Complete marks the wait as finished with its outcome.
	Complete(outcome WaitOutcome)

	// Stop stops the renderer and cleans up.
	Stop() error
}

// Config configures the UI renderer.
type Config struct {
	Output     io.Writer
	ForcePlain bool
	NoColor    bool
}

// ConfigOption is a function that modifies Config.
type ConfigOption func(*Config)

// WithForcePlain forces plain text output.
func WithForcePlain(force bool) ConfigOption {
	return func(c *Config) {
		c.ForcePlain = force
	}
}

// WithNoColor disables color output.
func WithNoColor(noColor bool) ConfigOption {
	return func(c *Config) {
		c.NoColor = noColor
	}
}

// NewConfig creates a new Config with the given output and options.
func NewConfig(output io.Writer, opts ...ConfigOption) Config {
	cfg := Config{
		Output: output,
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	return cfg
}

// NewRenderer creates an appropriate renderer based on config and
// environment. It returns a TUI renderer for interactive terminals and
// a plain text renderer for CI environments, pipes, or when plain mode
// is forced.
func NewRenderer(cfg Config) Renderer {
	if cfg.ForcePlain {
		return NewPlainRenderer(cfg)
	}

	if !IsTTY(cfg.Output) {
		return NewPlainRenderer(cfg)
	}

	if DetectCI() {
		return NewPlainRenderer(cfg)
	}

	tui, err := NewTUIRenderer(cfg)
	if err != nil {
		return NewPlainRenderer(cfg)
	}

	return tui
}

// IsTTY checks if output is a terminal.
func IsTTY(w io.Writer) bool {
	if w == nil {
		return false
	}

	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}

	return false
}

// DetectNoColor checks if NO_COLOR environment variable is set.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

// DetectCI checks if running in a CI environment.
func DetectCI() bool {
	ciVars := []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "TRAVIS"}
	for _, v := range ciVars {
		if _, exists := os.LookupEnv(v); exists {
			return true
		}
	}
	return false
}

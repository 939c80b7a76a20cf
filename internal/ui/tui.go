package ui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// TUIRenderer provides a live wait display using bubbletea.
type TUIRenderer struct {
	mu      sync.Mutex
	cfg     Config
	program *tea.Program
	model   *waitModel
	tracker *WaitTracker
	cancel  context.CancelFunc
	started bool
	done    chan struct{}
}

// NewTUIRenderer creates a TUI renderer.
// Returns an error if TUI initialization fails (e.g., non-TTY output).
func NewTUIRenderer(cfg Config) (*TUIRenderer, error) {
	if !IsTTY(cfg.Output) {
		return nil, fmt.Errorf("output is not a TTY")
	}

	tracker := NewWaitTracker()
	model := newWaitModel(tracker)

	if cfg.NoColor || DetectNoColor() {
		model.styles = NoColorStyles()
	}

	return &TUIRenderer{
		cfg:     cfg,
		tracker: tracker,
		model:   model,
		done:    make(chan struct{}),
	}, nil
}

// Start implements Renderer.
func (r *TUIRenderer) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return nil
	}

	_, r.cancel = context.WithCancel(ctx)

	var opts []tea.ProgramOption
	if f, ok := r.cfg.Output.(*os.File); ok {
		opts = append(opts, tea.WithOutput(f))
	}

	r.program = tea.NewProgram(r.model, opts...)
	r.started = true

	// Run in background
	go func() {
		defer close(r.done)
		_, _ = r.program.Run()
	}()

	return nil
}

// Update implements Renderer.
func (r *TUIRenderer) Update(event WaitEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	event = r.tracker.Observe(event)

	if r.program != nil {
		r.program.Send(waitEventMsg(event))
	}
}

// Complete implements Renderer.
func (r *TUIRenderer) Complete(outcome WaitOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.program != nil {
		r.program.Send(waitDoneMsg(outcome))
	}
}

// Stop implements Renderer.
func (r *TUIRenderer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		r.cancel()
	}

	if r.program != nil {
		r.program.Quit()

		// Wait with timeout to avoid hanging on unresponsive TUI
		select {
		case <-r.done:
		case <-time.After(2 * time.Second):
			// TUI didn't respond to quit, proceed anyway
		}
	}

	return nil
}

// Message types for bubbletea
type waitEventMsg WaitEvent
type waitDoneMsg WaitOutcome
type tickMsg time.Time

// waitModel is the bubbletea model for the index build wait.
type waitModel struct {
	tracker  *WaitTracker
	spinner  spinner.Model
	styles   Styles
	width    int
	quitting bool
	done     bool
	outcome  WaitOutcome
}

// newWaitModel creates a new wait model.
func newWaitModel(tracker *WaitTracker) *waitModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorLime))

	return &waitModel{
		tracker: tracker,
		spinner: s,
		styles:  DefaultStyles(),
		width:   80,
	}
}

// Init implements tea.Model.
func (m *waitModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		tickCmd(),
	)
}

// tickCmd returns a command that ticks every 250ms so the elapsed time
// advances between catalog polls.
func tickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (m *waitModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case waitEventMsg:
		// State lives in the tracker; the message only wakes the view.
		return m, nil

	case waitDoneMsg:
		m.done = true
		m.outcome = WaitOutcome(msg)
		return m, tea.Quit

	case tickMsg:
		return m, tickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model.
func (m *waitModel) View() string {
	if m.quitting {
		return "Cancelled. The build keeps running; check with `kbmcp versions`.\n"
	}

	if m.done {
		return m.renderOutcome()
	}

	last := m.tracker.Last()

	header := fmt.Sprintf("%s %s  %s",
		m.spinner.View(),
		m.styles.Active.Render("Waiting for index build"),
		m.styles.Label.Render(formatDuration(m.tracker.Elapsed())))

	catalog := m.styles.Dim.Render("catalog not polled yet")
	if last.Polls > 0 {
		catalog = m.styles.Label.Render(fmt.Sprintf("catalog: %d versions, %d building", last.Versions, last.Building)) +
			m.styles.Dim.Render(fmt.Sprintf("  (poll %d)", last.Polls))
	}

	lines := []string{header, "  " + catalog}
	if last.Message != "" {
		lines = append(lines, "  "+m.styles.Warning.Render(last.Message))
	}
	lines = append(lines, "", m.styles.Dim.Render("q to cancel waiting"))

	return strings.Join(lines, "\n") + "\n"
}

// renderOutcome renders the final panel once the wait resolved.
func (m *waitModel) renderOutcome() string {
	contentWidth := m.width - 4
	if contentWidth < 40 {
		contentWidth = 40
	}

	var lines []string
	borderColor := ColorLime

	switch {
	case m.outcome.TimedOut:
		borderColor = ColorYellow
		lines = append(lines, m.styles.Warning.Render("⚠ Timed out waiting for the build"))
		lines = append(lines, "")
		lines = append(lines, m.styles.Label.Render("Waited:")+" "+formatDuration(m.outcome.Duration))
		lines = append(lines, m.styles.Dim.Render("The build may still finish; check with `kbmcp versions`."))

	case m.outcome.Status == "FAILED":
		borderColor = ColorRed
		lines = append(lines, m.styles.Error.Render("✗ Index build failed"))
		lines = append(lines, "")
		lines = append(lines, m.styles.Label.Render("Version: ")+m.styles.Active.Render(m.outcome.VersionID))
		lines = append(lines, m.styles.Label.Render("Duration:")+" "+formatDuration(m.outcome.Duration))

	default:
		lines = append(lines, m.styles.Success.Render("✓ Index build complete"))
		lines = append(lines, "")
		lines = append(lines, m.styles.Label.Render("Version: ")+m.styles.Active.Render(m.outcome.VersionID))
		if m.outcome.FileCount > 0 {
			lines = append(lines, m.styles.Label.Render("Files:   ")+m.styles.Active.Render(fmt.Sprintf("%d", m.outcome.FileCount)))
		}
		lines = append(lines, m.styles.Label.Render("Duration:")+" "+formatDuration(m.outcome.Duration))
		if m.outcome.Promoted {
			lines = append(lines, "")
			lines = append(lines, m.styles.Success.Render("Promoted to active; searches now use this version."))
		}
	}

	content := strings.Join(lines, "\n")

	panel := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(borderColor)).
		Padding(1, 2).
		Width(contentWidth)

	return panel.Render(content) + "\n"
}

// Ensure TUIRenderer implements Renderer
var _ Renderer = (*TUIRenderer)(nil)

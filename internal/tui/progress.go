package tui

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Tracker records the latest completed step. It is safe to update from the
// engine's worker goroutine while the UI reads it.
type Tracker struct {
	step  atomic.Int64
	steps atomic.Int64
	time  atomic.Uint64
}

func (t *Tracker) OnStep(step, steps int, simTime float64) {
	t.steps.Store(int64(steps))
	t.time.Store(math.Float64bits(simTime))
	t.step.Store(int64(step))
}

// Snapshot returns the last step, the total step count and the simulated
// time.
func (t *Tracker) Snapshot() (step, steps int, simTime float64) {
	return int(t.step.Load()), int(t.steps.Load()), math.Float64frombits(t.time.Load())
}

func (t *Tracker) Fraction() float64 {
	step, steps, _ := t.Snapshot()
	if steps == 0 {
		return 0
	}
	return float64(step) / float64(steps)
}

type tickMsg time.Time

type doneMsg struct{ err error }

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

type progressModel struct {
	title   string
	tracker *Tracker
	cancel  context.CancelFunc
	started time.Time
	frame   int
	done    bool
	err     error
	width   int
}

func newProgressModel(title string, tracker *Tracker, cancel context.CancelFunc) progressModel {
	return progressModel{
		title:   title,
		tracker: tracker,
		cancel:  cancel,
		started: time.Now(),
		width:   40,
	}
}

func (m progressModel) Init() tea.Cmd { return tick() }

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.cancel()
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.width = max(10, min(msg.Width-30, 60))
		return m, nil
	case tickMsg:
		if m.done {
			return m, nil
		}
		m.frame++
		return m, tick()
	case doneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m progressModel) View() string {
	step, steps, simTime := m.tracker.Snapshot()

	status := StatusRunning.Render(Spinner(m.frame) + " running")
	switch {
	case m.done && m.err != nil:
		status = StatusFailed.Render("✗ " + m.err.Error())
	case m.done:
		status = StatusRunning.Render("✓ done")
	}

	var sb strings.Builder
	sb.WriteString(Title.Render(m.title) + "  " + status + "\n")
	sb.WriteString(ProgressBar(m.tracker.Fraction(), m.width))
	fmt.Fprintf(&sb, " %5.1f%%\n", 100*m.tracker.Fraction())
	sb.WriteString(Subtle.Render(fmt.Sprintf("step %d/%d  t=%.4g  elapsed %s",
		step, steps, simTime, time.Since(m.started).Round(time.Millisecond))))
	if !m.done {
		sb.WriteString("\n" + KeyHint.Render("q to cancel"))
	}
	return sb.String() + "\n"
}

// Options configure RunWithProgress. Nil fields use the terminal.
type Options struct {
	Input   io.Reader
	Output  io.Writer
	NoInput bool
}

// RunWithProgress calls run with a Tracker while drawing a progress bar.
// Pressing q cancels the context passed to run. The error is run's.
func RunWithProgress(ctx context.Context, title string, opts Options, run func(ctx context.Context, t *Tracker) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tracker := &Tracker{}
	progOpts := []tea.ProgramOption{tea.WithContext(ctx)}
	switch {
	case opts.NoInput:
		progOpts = append(progOpts, tea.WithInput(nil))
	case opts.Input != nil:
		progOpts = append(progOpts, tea.WithInput(opts.Input))
	}
	if opts.Output != nil {
		progOpts = append(progOpts, tea.WithOutput(opts.Output))
	}
	p := tea.NewProgram(newProgressModel(title, tracker, cancel), progOpts...)

	errc := make(chan error, 1)
	go func() {
		err := run(ctx, tracker)
		errc <- err
		p.Send(doneMsg{err: err})
	}()

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		cancel()
		<-errc
		return fmt.Errorf("tui: %w", err)
	}
	return <-errc
}

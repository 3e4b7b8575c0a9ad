package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// stepMsg updates one step of a StepsModel
type stepMsg struct {
	n       int
	status  StepStatus
	message string
}

// doneMsg ends a StepsModel
type doneMsg struct {
	err error
}

// StepsModel is a Bubble Tea model showing a step list with a spinner on the
// running step. It quits when the operation reports completion or on ctrl+c.
type StepsModel struct {
	steps   []Step
	spinner spinner.Model
	cancel  context.CancelFunc
	err     error
	done    bool
}

// NewStepsModel creates a model for the named steps
func NewStepsModel(names []string, cancel context.CancelFunc) StepsModel {
	steps := make([]Step, len(names))
	for i, name := range names {
		steps[i] = Step{Name: name}
	}
	return StepsModel{
		steps:   steps,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(StepRunningStyle)),
		cancel:  cancel,
	}
}

// Init implements tea.Model
func (m StepsModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model
func (m StepsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stepMsg:
		if msg.n >= 1 && msg.n <= len(m.steps) {
			m.steps[msg.n-1].Status = msg.status
			m.steps[msg.n-1].Message = msg.message
		}
		return m, nil

	case doneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			if m.cancel != nil {
				m.cancel()
			}
			return m, nil
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model
func (m StepsModel) View() string {
	lines := make([]string, 0, len(m.steps)+1)
	for i, step := range m.steps {
		lines = append(lines, renderStepLine(i+1, len(m.steps), step, m.spinner.View()))
	}
	return strings.Join(lines, "\n") + "\n"
}

// Steps returns a copy of the current step states
func (m StepsModel) Steps() []Step {
	out := make([]Step, len(m.steps))
	copy(out, m.steps)
	return out
}

// RunSteps runs op while displaying its steps. On a terminal the list is
// animated with Bubble Tea; otherwise each finished step is printed as a line.
// The context passed to op is cancelled on ctrl+c.
func RunSteps(ctx context.Context, out io.Writer, names []string, op func(ctx context.Context, onStep StepCallback) error) error {
	if out == nil {
		out = os.Stdout
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if out != os.Stdout || !IsInteractive() {
		return op(ctx, plainStepCallback(out, names))
	}

	p := tea.NewProgram(NewStepsModel(names, cancel), tea.WithOutput(out), tea.WithContext(ctx))

	errCh := make(chan error, 1)
	go func() {
		err := op(ctx, func(n int, status StepStatus, message string) {
			p.Send(stepMsg{n: n, status: status, message: message})
		})
		errCh <- err
		p.Send(doneMsg{err: err})
	}()

	if _, runErr := p.Run(); runErr != nil && ctx.Err() == nil {
		cancel()
		<-errCh
		return fmt.Errorf("terminal UI failed: %w", runErr)
	}
	return <-errCh
}

// plainStepCallback prints finished steps as lines
func plainStepCallback(out io.Writer, names []string) StepCallback {
	return func(n int, status StepStatus, message string) {
		if n < 1 || n > len(names) || status == StepPending {
			return
		}
		step := Step{Name: names[n-1], Status: status, Message: message}
		if status == StepRunning {
			_, _ = fmt.Fprintln(out, renderStepLine(n, len(names), step, StepRunningStyle.Render(StepMarkerRunning)))
			return
		}
		_, _ = fmt.Fprintln(out, renderStepLine(n, len(names), step, ""))
	}
}

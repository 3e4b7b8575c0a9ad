package ui

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestStepsModel_Update(t *testing.T) {
	m := NewStepsModel([]string{"Contact box", "Wait for approval"}, nil)

	next, _ := m.Update(stepMsg{n: 1, status: StepComplete})
	next, _ = next.Update(stepMsg{n: 2, status: StepRunning, message: "track id 4"})
	next, _ = next.Update(stepMsg{n: 9, status: StepFailed}) // out of range, ignored
	model := next.(StepsModel)

	steps := model.Steps()
	if steps[0].Status != StepComplete {
		t.Errorf("step 1 status = %v, want StepComplete", steps[0].Status)
	}
	if steps[1].Status != StepRunning || steps[1].Message != "track id 4" {
		t.Errorf("step 2 = %+v, want running with message", steps[1])
	}

	view := model.View()
	for _, want := range []string{"[1/2]", "Contact box", "[2/2]", "track id 4"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q:\n%s", want, view)
		}
	}
}

func TestStepsModel_DoneQuits(t *testing.T) {
	m := NewStepsModel([]string{"a"}, nil)
	wantErr := errors.New("boom")

	next, cmd := m.Update(doneMsg{err: wantErr})
	if cmd == nil {
		t.Fatal("Update(doneMsg) returned nil cmd, want tea.Quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("Update(doneMsg) cmd did not quit")
	}
	if model := next.(StepsModel); !model.done || !errors.Is(model.err, wantErr) {
		t.Errorf("model done=%v err=%v", model.done, model.err)
	}
}

func TestStepsModel_CtrlCCancels(t *testing.T) {
	cancelled := false
	m := NewStepsModel([]string{"a"}, func() { cancelled = true })

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if !cancelled {
		t.Error("ctrl+c did not cancel the operation")
	}
}

func TestRunSteps_Plain(t *testing.T) {
	var buf bytes.Buffer
	wantErr := errors.New("denied")

	err := RunSteps(context.Background(), &buf, []string{"Contact box", "Wait for approval"},
		func(ctx context.Context, onStep StepCallback) error {
			onStep(1, StepComplete, "")
			onStep(2, StepFailed, "denied")
			return wantErr
		})

	if !errors.Is(err, wantErr) {
		t.Errorf("RunSteps() error = %v, want %v", err, wantErr)
	}
	out := buf.String()
	if !strings.Contains(out, "Contact box") || !strings.Contains(out, "(denied)") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestRenderTable(t *testing.T) {
	out := RenderTable([]string{"UID", "NAME"}, [][]string{{"abc", "home"}, {"abcdef", "x"}})
	lines := strings.Split(out, "\n")
	if len(lines) != 3 {
		t.Fatalf("RenderTable() has %d lines, want 3:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[1], "abc     home") {
		t.Errorf("row not padded to widest cell: %q", lines[1])
	}
}

func TestRenderDetails_Sorted(t *testing.T) {
	out := RenderDetails(map[string]string{"b": "2", "a": "1"}, "")
	if strings.Index(out, "a:") > strings.Index(out, "b:") {
		t.Errorf("details not sorted:\n%s", out)
	}
}

func TestPrinter_PrintError(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)
	p.PrintError("Pairing failed", errors.New("access not granted"), []string{"Accept the request on the box"})

	out := buf.String()
	for _, want := range []string{"FAILED", "access not granted", "Accept the request on the box"} {
		if !strings.Contains(out, want) {
			t.Errorf("PrintError output missing %q", want)
		}
	}
}

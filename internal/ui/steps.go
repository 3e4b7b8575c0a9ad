package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// StepStatus represents the current state of a step
type StepStatus int

const (
	StepPending  StepStatus = iota // Not yet started
	StepRunning                    // Currently executing
	StepComplete                   // Successfully completed
	StepFailed                     // Failed
)

// Step is a single step of a multi-step operation
type Step struct {
	Name    string
	Status  StepStatus
	Message string // Optional note (e.g., "track id 12")
}

// StepCallback reports progress of step n (1-based)
type StepCallback func(n int, status StepStatus, message string)

// renderStepLine renders "  [n/total] name   marker  (message)".
// running is the marker drawn for a running step (a spinner frame when animated).
func renderStepLine(n, total int, step Step, running string) string {
	var marker string
	var nameStyle lipgloss.Style

	switch step.Status {
	case StepComplete:
		marker, nameStyle = StepCompleteStyle.Render(StepMarkerComplete), StepCompleteStyle
	case StepRunning:
		marker, nameStyle = running, StepRunningStyle
	case StepFailed:
		marker, nameStyle = ErrorTitleStyle.Render(FailureMarker), ErrorTitleStyle
	default:
		marker, nameStyle = StepPendingStyle.Render(StepMarkerPending), StepPendingStyle
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("  [%d/%d] ", n, total))
	b.WriteString(nameStyle.Render(step.Name))

	padding := 36 - lipgloss.Width(step.Name)
	if padding < 1 {
		padding = 1
	}
	b.WriteString(strings.Repeat(" ", padding))
	b.WriteString(marker)

	if step.Message != "" {
		b.WriteString("  ")
		b.WriteString(NoteStyle.Render("(" + step.Message + ")"))
	}
	return b.String()
}

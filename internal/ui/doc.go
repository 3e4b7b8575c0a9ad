// Package ui renders the terminal output of the fbx CLI.
//
// Output is built with Lipgloss and follows a "run once and exit" pattern:
// commands print a header, do their work and print a result box. The only
// animated component is the step list shown while pairing, which runs as a
// Bubble Tea program with a spinner on the step in progress and degrades to
// plain lines when stdout is not a terminal.
//
// # Usage Pattern
//
//	p := ui.NewPrinter(nil)
//	p.PrintHeader("Pairing", "fbx pair", map[string]string{"Box": url})
//
//	err := ui.RunSteps(ctx, os.Stdout, []string{"Contact box", "Wait for approval"},
//	    func(ctx context.Context, onStep ui.StepCallback) error {
//	        onStep(1, ui.StepRunning, "")
//	        // ...
//	        onStep(1, ui.StepComplete, "")
//	        return nil
//	    })
//
// # Logging Integration
//
// zap logging is silent unless FBX_LOG_LEVEL is set, so the styled output is
// not interleaved with log lines.
package ui

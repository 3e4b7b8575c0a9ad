package ui

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Printer writes styled output for the CLI commands.
type Printer struct {
	out   io.Writer
	width int
}

// NewPrinter creates a new Printer that writes to the given writer.
// If w is nil, os.Stdout is used.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{
		out:   w,
		width: GetTerminalWidth(),
	}
}

// Width returns the width used by this printer
func (p *Printer) Width() int {
	return p.width
}

// Writer returns the underlying writer
func (p *Printer) Writer() io.Writer {
	return p.out
}

// Print writes content to the output
func (p *Printer) Print(content string) {
	_, _ = fmt.Fprint(p.out, content)
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// Newline prints an empty line
func (p *Printer) Newline() {
	_, _ = fmt.Fprintln(p.out)
}

// PrintHeader prints a command header box
func (p *Printer) PrintHeader(title, command string, params map[string]string) {
	p.Println(RenderHeader(title, command, params, p.width))
	p.Newline()
}

// PrintSuccess prints a success result box
func (p *Printer) PrintSuccess(title string, details map[string]string) {
	p.Println(RenderSuccessBox(title, details, p.width))
}

// PrintError prints an error result box with troubleshooting hints
func (p *Printer) PrintError(title string, err error, hints []string) {
	p.Println(RenderErrorBox(title, err, hints, p.width))
}

// PrintDetails prints aligned key/value pairs
func (p *Printer) PrintDetails(details map[string]string) {
	p.Println(RenderDetails(details, ""))
}

// PrintTable prints rows under a header line. Columns are padded to the widest cell.
func (p *Printer) PrintTable(header []string, rows [][]string) {
	p.Println(RenderTable(header, rows))
}

// RenderHeader renders a command header box
func RenderHeader(title, command string, params map[string]string, width int) string {
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}

	top := lipgloss.JoinVertical(lipgloss.Left,
		HeaderTitleStyle.Render(strings.ToUpper(title)),
		HeaderCommandStyle.Render(command),
	)
	if len(params) == 0 {
		return BorderStyle(width).Render(top)
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		top,
		RenderDivider(width-6),
		RenderDetails(params, "  "),
	)
	return BorderStyle(width).Render(content)
}

// RenderDetails renders key/value pairs sorted by key
func RenderDetails(details map[string]string, indent string) string {
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, indent+KeyStyle.Render(k+":")+" "+ValueStyle.Render(details[k]))
	}
	return strings.Join(lines, "\n")
}

// RenderSuccessBox renders a success result box
func RenderSuccessBox(title string, details map[string]string, width int) string {
	lines := []string{
		"",
		SuccessTitleStyle.Render(SuccessMarker + "  SUCCESS  ─  " + title),
		"",
	}
	if len(details) > 0 {
		lines = append(lines, RenderDetails(details, ""), "")
	}
	return ResultBoxStyle(clampWidth(width), SuccessColor).Render(strings.Join(lines, "\n"))
}

// RenderErrorBox renders an error result box with troubleshooting hints
func RenderErrorBox(title string, err error, hints []string, width int) string {
	lines := []string{
		"",
		ErrorTitleStyle.Render(FailureMarker + "  FAILED  ─  " + title),
		"",
	}
	if err != nil {
		lines = append(lines, ErrorMessageStyle.Render("Error: "+err.Error()), "")
	}
	if len(hints) > 0 {
		lines = append(lines, HintStyle.Bold(true).Render("Troubleshooting:"))
		for _, hint := range hints {
			lines = append(lines, HintStyle.Render("  • "+hint))
		}
		lines = append(lines, "")
	}
	return ResultBoxStyle(clampWidth(width), ErrorColor).Render(strings.Join(lines, "\n"))
}

// RenderTable renders a plain column layout
func RenderTable(header []string, rows [][]string) string {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			if w := lipgloss.Width(row[i]); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var b strings.Builder
	for i, h := range header {
		b.WriteString(TableHeaderStyle.Render(pad(h, widths[i])))
		if i < len(header)-1 {
			b.WriteString("  ")
		}
	}
	for _, row := range rows {
		b.WriteString("\n")
		for i := 0; i < len(row) && i < len(widths); i++ {
			b.WriteString(pad(row[i], widths[i]))
			if i < len(widths)-1 {
				b.WriteString("  ")
			}
		}
	}
	return b.String()
}

func pad(s string, width int) string {
	if n := width - lipgloss.Width(s); n > 0 {
		return s + strings.Repeat(" ", n)
	}
	return s
}

func clampWidth(width int) int {
	if width < MinTerminalWidth {
		return MinTerminalWidth
	}
	return width
}

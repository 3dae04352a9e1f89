package tui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/patchnotifier/patch-notifier/pkg/utils"
	"golang.org/x/term"
)

var (
	// Style colors
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	success   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	warning   = lipgloss.AdaptiveColor{Light: "#FFA500", Dark: "#FFB347"}
	errorClr  = lipgloss.AdaptiveColor{Light: "#FF5555", Dark: "#FF6666"}
	dim       = lipgloss.AdaptiveColor{Light: "#666666", Dark: "#888888"}

	// Text styles (no boxes)
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(highlight)
	successStyle = lipgloss.NewStyle().Foreground(success)
	warningStyle = lipgloss.NewStyle().Foreground(warning)
	errorStyle   = lipgloss.NewStyle().Foreground(errorClr).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(dim)
	boldStyle    = lipgloss.NewStyle().Bold(true)

	messageStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderLeft(true).
			BorderForeground(dim).
			PaddingLeft(1)
)

// PlannedPatch is one application line of a planned message.
type PlannedPatch struct {
	Name             string
	InstalledVersion string
	LatestVersion    string
	// Gap is "major", "minor", "patch", "none" or "unknown".
	Gap string
}

// MessagePlan is a message that would be sent in a dry run.
type MessagePlan struct {
	DeviceID  int
	Hostname  string
	Recipient string
	Variant   string
	Patches   []PlannedPatch
	Text      string
}

// RenderMessagePlan renders a planned message with colors.
func RenderMessagePlan(p MessagePlan) string {
	if !isTerminal() {
		return renderMessagePlanPlain(p)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("✉ Device %d (%s)", p.DeviceID, p.Hostname)) + "\n")
	b.WriteString("   ")
	b.WriteString(dimStyle.Render("To: "))
	b.WriteString(boldStyle.Render(p.Recipient))
	b.WriteString(dimStyle.Render(" [" + p.Variant + "]"))
	b.WriteString("\n")

	for _, pp := range p.Patches {
		b.WriteString("   ")
		b.WriteString(formatGapStyled(pp.Gap))
		b.WriteString(fmt.Sprintf(" %-32s ", pp.Name))
		b.WriteString(dimStyle.Render(pp.InstalledVersion))
		b.WriteString(" → ")
		b.WriteString(successStyle.Render(pp.LatestVersion))
		b.WriteString("\n")
	}
	b.WriteString(messageStyle.Render(p.Text))
	b.WriteString("\n\n")
	return b.String()
}

func renderMessagePlanPlain(p MessagePlan) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Device %d (%s) -> %s [%s]\n", p.DeviceID, p.Hostname, p.Recipient, p.Variant))
	for _, pp := range p.Patches {
		b.WriteString(fmt.Sprintf("  %-7s %s %s -> %s\n", pp.Gap, pp.Name, pp.InstalledVersion, pp.LatestVersion))
	}
	b.WriteString("---\n")
	b.WriteString(p.Text)
	b.WriteString("\n---\n")
	return b.String()
}

func formatGapStyled(gap string) string {
	switch gap {
	case utils.PatchTypeMajor:
		return errorStyle.Render("▲ major")
	case utils.PatchTypeMinor:
		return warningStyle.Render("△ minor")
	case utils.PatchTypePatch:
		return successStyle.Render("· patch")
	default:
		return dimStyle.Render(fmt.Sprintf("  %-5s", gap))
	}
}

// ErrorInfo contains information about an error to display.
type ErrorInfo struct {
	Title   string
	Message string
	Hint    string
}

// RenderError renders an error message with colors.
func RenderError(info ErrorInfo) string {
	if !isTerminal() {
		return renderErrorPlain(info)
	}

	var b strings.Builder
	b.WriteString(errorStyle.Render("✗ "+info.Title) + "\n")
	b.WriteString("   ")
	b.WriteString(errorStyle.Render(info.Message))
	b.WriteString("\n")

	if info.Hint != "" {
		b.WriteString("   ")
		b.WriteString(dimStyle.Render("Hint: "+info.Hint) + "\n")
	}
	return b.String()
}

func renderErrorPlain(info ErrorInfo) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Error: %s\n", info.Title))
	b.WriteString(fmt.Sprintf("  %s\n", info.Message))
	if info.Hint != "" {
		b.WriteString(fmt.Sprintf("  Hint: %s\n", info.Hint))
	}
	return b.String()
}

// isTerminal checks if stdout is a terminal.
func isTerminal() bool {
	// Prefer enabling styles when either stream is a TTY to avoid losing colors
	// when e.g. stdout is redirected but stderr is still interactive.
	return term.IsTerminal(int(os.Stdout.Fd())) || term.IsTerminal(int(os.Stderr.Fd()))
}

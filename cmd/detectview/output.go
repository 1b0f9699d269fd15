package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#00AA00"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#D7AF00"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#5A9"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7B61FF"))
)

func successText(s string) string { return successStyle.Render("✓ " + s) }
func errorText(s string) string   { return errorStyle.Render("✗ " + s) }
func warningText(s string) string { return warningStyle.Render("! " + s) }
func infoText(s string) string    { return infoStyle.Render(s) }
func headerText(s string) string  { return headerStyle.Render(s) }

func printf(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, format, args...)
}

package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

const (
	colorInk    = lipgloss.Color("#F4F1EA")
	colorAccent = lipgloss.Color("#2E7D6B")
	colorOp     = lipgloss.Color("#A3D9A5")
	colorArg    = lipgloss.Color("#8EC5E8")
	colorValue  = lipgloss.Color("#E8C468")
	colorFault  = lipgloss.Color("#E86A5C")
	colorMuted  = lipgloss.Color("#707070")
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorInk).Background(colorAccent).Padding(0, 1)

	// cursor marks the highlighted operation in the picker.
	cursorStyle = lipgloss.NewStyle().Foreground(colorInk).Background(colorAccent)

	opStyle    = lipgloss.NewStyle().Foreground(colorOp)
	argStyle   = lipgloss.NewStyle().Foreground(colorArg)
	valueStyle = lipgloss.NewStyle().Foreground(colorValue)
	errorStyle = lipgloss.NewStyle().Foreground(colorFault)
	hintStyle  = lipgloss.NewStyle().Foreground(colorMuted).Italic(true)
)

func printResult(name, result string) {
	fmt.Println(opStyle.Render(name) + " = " + valueStyle.Render(result))
}

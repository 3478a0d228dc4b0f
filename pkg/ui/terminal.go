package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
)

// Logo is printed above interactive output
const Logo = `
  ┌─┐┌─┐┌┐┌┌┬┐┬┌─┐┌┬┐┬
  ├┤ ├─┤│││ │ │├─┤ │││
  └  ┴ ┴┘└┘ ┴ ┴┴ ┴─┴┘┴─┘
`

// Output is where the Print helpers write
var Output io.Writer = os.Stdout

var (
	cyanStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	yellowStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	redStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	greenStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	magentaStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
	dimStyle     = lipgloss.NewStyle().Faint(true)
)

// Color helpers for terminal output
var (
	Cyan    = cyanStyle.Render
	Yellow  = yellowStyle.Render
	Red     = redStyle.Render
	Green   = greenStyle.Render
	Magenta = magentaStyle.Render
	Dim     = dimStyle.Render
)

// PrintLogo prints the logo
func PrintLogo() {
	fmt.Fprint(Output, Cyan(Logo))
}

// PrintError prints an error message in red
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(Output, Red(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(Output, Red(msg))
	}
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	fmt.Fprintln(Output, Green(msg))
}

// PrintInfo prints a label and value
func PrintInfo(label string, value string) {
	fmt.Fprintf(Output, "%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(Output, Yellow(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(Output, Yellow(msg))
	}
}

// PrintHighlight prints a highlighted message in magenta
func PrintHighlight(msg string) {
	fmt.Fprintln(Output, Magenta(msg))
}

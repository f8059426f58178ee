package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorCyan  = lipgloss.Color("36")  // teal - primary actions
	colorGreen = lipgloss.Color("35")  // green - success
	colorRed   = lipgloss.Color("167") // soft red - errors
	colorGray  = lipgloss.Color("245") // gray - secondary text
	colorDim   = lipgloss.Color("240") // dim gray - muted text
)

var (
	styleDim         = lipgloss.NewStyle().Foreground(colorDim)
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)
)

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconInfo    = "›"
)

func printSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s %s\n", styleIconSuccess.Render(iconSuccess), fmt.Sprintf(format, args...))
}

func printError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s %s\n", styleIconError.Render(iconError), fmt.Sprintf(format, args...))
}

func printInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s %s\n", styleIconInfo.Render(iconInfo), fmt.Sprintf(format, args...))
}

func printDetail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "  %s\n", styleDim.Render(fmt.Sprintf(format, args...)))
}

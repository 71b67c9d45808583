package progress

import "github.com/fatih/color"

// Color and attribute helpers shared by the status glyphs, the progress bar,
// and the template style filters. fatih/color handles NO_COLOR and non-tty
// detection for us.
var (
	cyan      = color.New(color.FgCyan).SprintFunc()
	blue      = color.New(color.FgBlue).SprintFunc()
	green     = color.New(color.FgGreen).SprintFunc()
	yellow    = color.New(color.FgYellow).SprintFunc()
	red       = color.New(color.FgRed).SprintFunc()
	magenta   = color.New(color.FgMagenta).SprintFunc()
	bold      = color.New(color.Bold).SprintFunc()
	dim       = color.New(color.Faint).SprintFunc()
	underline = color.New(color.Underline).SprintFunc()

	brightGreen = color.New(color.FgHiGreen).SprintFunc()
	yellowDim   = color.New(color.FgYellow, color.Faint).SprintFunc()
)

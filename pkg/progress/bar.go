package progress

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// BarChars selects the characters used to draw a progress bar.
type BarChars struct {
	Fill  string // filled portion
	Head  string // leading edge
	Empty string // unfilled portion
	Left  string // left bracket
	Right string // right bracket
}

// DefaultBarChars is the classic "[===>   ]" style.
func DefaultBarChars() BarChars {
	return BarChars{Fill: "=", Head: ">", Empty: " ", Left: "[", Right: "]"}
}

// BlocksBarChars draws the bar with solid block characters, no brackets.
func BlocksBarChars() BarChars {
	return BarChars{Fill: "█", Head: "▓", Empty: "░"}
}

// ThinBarChars draws the bar with thin line characters, no brackets.
func ThinBarChars() BarChars {
	return BarChars{Fill: "━", Head: "╸", Empty: "─"}
}

func barCharsNamed(name string) BarChars {
	switch name {
	case "blocks":
		return BlocksBarChars()
	case "thin":
		return ThinBarChars()
	default:
		return DefaultBarChars()
	}
}

// renderBar draws a bar of exactly width cells. The head character marks the
// leading edge except at 100%, where the fill runs edge to edge.
func renderBar(cur, total, width int, chars BarChars) string {
	brackets := ansi.StringWidth(chars.Left) + ansi.StringWidth(chars.Right)
	inner := width - brackets
	if inner < 0 {
		inner = 0
	}

	var ratio float64
	if total > 0 {
		ratio = float64(cur) / float64(total)
	}
	filled := int(float64(inner)*ratio + 0.5)

	var content string
	switch {
	case ratio >= 1.0:
		content = strings.Repeat(chars.Fill, inner)
	case filled > 0:
		content = strings.Repeat(chars.Fill, filled-1) + chars.Head + strings.Repeat(chars.Empty, max(inner-filled, 0))
	default:
		content = strings.Repeat(chars.Empty, inner)
	}

	return dim(chars.Left + content + chars.Right)
}

// Package osc emits OSC 9;4 escape sequences, which several terminals
// (Ghostty, VS Code, Windows Terminal, iTerm2, VTE-based emulators) display
// as a progress indicator in the title bar or tab.
package osc

import (
	"fmt"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
)

// State selects how the terminal displays the indicator.
type State int

const (
	// StateNone clears any existing indicator.
	StateNone State = 0
	// StateNormal is a regular progress bar.
	StateNormal State = 1
	// StateError marks the progress as failed, typically red.
	StateError State = 2
	// StateIndeterminate shows an animated indicator without a percentage.
	StateIndeterminate State = 3
	// StateWarning marks the progress with a warning, typically yellow.
	StateWarning State = 4
)

var (
	mu      sync.Mutex
	enabled = true
)

// Configure enables or disables OSC sequences. Call it before any progress
// jobs start; sequences already emitted are not recalled.
func Configure(on bool) {
	mu.Lock()
	enabled = on
	mu.Unlock()
}

// Enabled reports whether OSC sequences will be emitted. True by default.
func Enabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

// terminalSupported sniffs the environment once. Unknown terminals default
// to false so we never pollute logs with escape sequences.
var terminalSupported = sync.OnceValue(func() bool {
	switch os.Getenv("TERM_PROGRAM") {
	case "ghostty", "vscode", "iTerm.app":
		return true
	case "WezTerm", "Alacritty":
		return false
	}
	if _, ok := os.LookupEnv("WT_SESSION"); ok {
		return true
	}
	if _, ok := os.LookupEnv("VTE_VERSION"); ok {
		return true
	}
	return false
})

// SetProgress emits a progress update. pct is clamped to 0-100 and ignored
// by the terminal for StateNone and StateIndeterminate.
func SetProgress(state State, pct int) {
	if pct > 100 {
		pct = 100
	}
	if pct < 0 {
		pct = 0
	}
	if !Enabled() || !stderrIsTerminal() || !terminalSupported() {
		return
	}
	mu.Lock()
	_, _ = fmt.Fprintf(os.Stderr, "\x1b]9;4;%d;%d\x1b\\", int(state), pct)
	mu.Unlock()
}

// ClearProgress removes the indicator.
func ClearProgress() {
	SetProgress(StateNone, 0)
}

func stderrIsTerminal() bool {
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

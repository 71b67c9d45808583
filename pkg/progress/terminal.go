package progress

import (
	"fmt"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
)

// Terminal abstracts the output device so the renderer can be tested with a
// fake terminal.
type Terminal interface {
	// Size returns the current terminal dimensions in character cells.
	Size() (rows, cols int)

	// WriteLine writes s followed by a newline.
	WriteLine(s string) error

	// MoveCursorUp moves the cursor to the start of the line n rows up.
	MoveCursorUp(n int) error

	// ClearToEndOfScreen erases from the cursor to the end of the screen.
	ClearToEndOfScreen() error

	// IsInteractive reports whether the device is a real terminal.
	IsInteractive() bool
}

// ProcessTerminal is a Terminal backed by os.Stderr, so progress never
// interleaves with data written to stdout. Dimensions are cached and
// refreshed on resize to avoid an ioctl per frame.
type ProcessTerminal struct {
	out *os.File

	sizeMu sync.RWMutex
	rows   int
	cols   int
}

// NewProcessTerminal returns a terminal writing to stderr.
func NewProcessTerminal() *ProcessTerminal {
	t := &ProcessTerminal{out: os.Stderr}
	t.refreshSize()

	ch := make(chan os.Signal, 1)
	notifyResize(ch)
	go func() {
		for range ch {
			t.refreshSize()
		}
	}()
	return t
}

func (t *ProcessTerminal) refreshSize() {
	rows, cols, ok := querySize(t.out)
	if !ok {
		rows, cols = 24, 80
	}
	t.sizeMu.Lock()
	t.rows, t.cols = rows, cols
	t.sizeMu.Unlock()
}

func (t *ProcessTerminal) Size() (rows, cols int) {
	t.sizeMu.RLock()
	defer t.sizeMu.RUnlock()
	return t.rows, t.cols
}

func (t *ProcessTerminal) WriteLine(s string) error {
	_, err := fmt.Fprintln(t.out, s)
	return err
}

func (t *ProcessTerminal) MoveCursorUp(n int) error {
	if n <= 0 {
		return nil
	}
	_, err := fmt.Fprintf(t.out, "\x1b[%dA\r", n)
	return err
}

func (t *ProcessTerminal) ClearToEndOfScreen() error {
	_, err := t.out.WriteString("\x1b[0J")
	return err
}

func (t *ProcessTerminal) IsInteractive() bool {
	fd := t.out.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

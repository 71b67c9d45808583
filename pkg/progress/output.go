package progress

import (
	"os"
	"strings"
	"sync"
)

// Output selects how progress reaches the terminal.
type Output int

const (
	// OutputUI redraws a live region in place (interactive terminals).
	OutputUI Output = iota
	// OutputText appends one line per update, suitable for CI logs and pipes.
	OutputText
)

// Environment toggles are read once per process.
var (
	envNoProgress = sync.OnceValue(func() bool {
		return envBool("SPOOL_NO_PROGRESS")
	})
	envTextMode = sync.OnceValue(func() bool {
		return envBool("SPOOL_TEXT_MODE")
	})
)

func envBool(key string) bool {
	v := os.Getenv(key)
	return v == "1" || strings.EqualFold(v, "true")
}

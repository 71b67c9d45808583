package progress

import (
	"fmt"
	"strconv"
	"time"
)

// formatDuration renders a duration the way it appears in progress lines:
// "42s" under a minute, "1m30s" under an hour, "1h30m45s" beyond.
func formatDuration(d time.Duration) string {
	secs := int64(d.Seconds())
	if secs < 0 {
		secs = 0
	}
	switch {
	case secs < 60:
		return fmt.Sprintf("%ds", secs)
	case secs < 3600:
		return fmt.Sprintf("%dm%ds", secs/60, secs%60)
	default:
		return fmt.Sprintf("%dh%dm%ds", secs/3600, (secs%3600)/60, secs%60)
	}
}

// formatBytes renders a byte count with binary prefixes (KB = 1024 bytes).
func formatBytes(n int) string {
	const (
		kb = 1024.0
		mb = kb * 1024.0
		gb = mb * 1024.0
	)
	b := float64(n)
	switch {
	case b >= gb:
		return fmt.Sprintf("%.1f GB", b/gb)
	case b >= mb:
		return fmt.Sprintf("%.1f MB", b/mb)
	case b >= kb:
		return fmt.Sprintf("%.1f KB", b/kb)
	default:
		return fmt.Sprintf("%d B", n)
	}
}

// formatCount renders a count with decimal SI suffixes (K, M, B).
func formatCount(n, decimals int) string {
	const (
		k = 1_000.0
		m = 1_000_000.0
		b = 1_000_000_000.0
	)
	c := float64(n)
	switch {
	case c >= b:
		return strconv.FormatFloat(c/b, 'f', decimals, 64) + "B"
	case c >= m:
		return strconv.FormatFloat(c/m, 'f', decimals, 64) + "M"
	case c >= k:
		return strconv.FormatFloat(c/k, 'f', decimals, 64) + "K"
	default:
		return strconv.Itoa(n)
	}
}

// formatRate renders a per-second rate, falling back to per-minute for slow
// rates and "-/s" when no rate is known yet.
func formatRate(rate float64, ok bool) string {
	if !ok {
		return "-/s"
	}
	switch {
	case rate >= 1:
		return fmt.Sprintf("%.1f/s", rate)
	case rate >= 1.0/60.0:
		return fmt.Sprintf("%.1f/m", rate*60)
	case rate > 0:
		return fmt.Sprintf("%.2f/s", rate)
	default:
		return "-/s"
	}
}

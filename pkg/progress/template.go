package progress

import (
	"fmt"
	"strconv"
	"time"

	"github.com/flosch/pongo2/v6"
)

// Filters are stateless, so they are registered once for the whole process.
// Anything that depends on the frame being rendered (spinner phase, terminal
// width, progress values) is passed as a function closure in the execution
// context instead; see templateFuncs.
func init() {
	pongo2.SetAutoescape(false)

	filters := map[string]pongo2.FilterFunction{
		"flex":          filterFlex,
		"flex_fill":     filterFlexFill,
		"truncate_text": filterTruncateText,
		"cyan":          styleFilter(cyan),
		"blue":          styleFilter(blue),
		"green":         styleFilter(green),
		"yellow":        styleFilter(yellow),
		"red":           styleFilter(red),
		"magenta":       styleFilter(magenta),
		"bold":          styleFilter(bold),
		"dim":           styleFilter(dim),
		"underline":     styleFilter(underline),
	}
	for name, fn := range filters {
		if err := pongo2.RegisterFilter(name, fn); err != nil {
			panic(err)
		}
	}
}

// filterFlex marks its input as truncate-to-fit; the flex pass resolves the
// tags against the real terminal width after template rendering.
func filterFlex(in, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	return pongo2.AsValue(flexTag + in.String() + flexTag), nil
}

// filterFlexFill marks its input as pad-to-fill, pushing any suffix to the
// right edge of the terminal.
func filterFlexFill(in, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	return pongo2.AsValue(flexFillTag + in.String() + flexFillTag), nil
}

// filterTruncateText is a byte-length truncation for text mode, where no
// flex pass runs. The optional filter argument overrides the length.
func filterTruncateText(in, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	content := in.String()
	maxLen := 60
	if param != nil && !param.IsNil() {
		maxLen = param.Integer()
	}
	switch {
	case len(content) <= maxLen:
		return pongo2.AsValue(content), nil
	case maxLen > 1:
		return pongo2.AsValue(safePrefix(content, maxLen-1) + "…"), nil
	default:
		return pongo2.AsValue("…"), nil
	}
}

// safePrefix returns a prefix of s with at most maxBytes bytes, cutting only
// at rune boundaries.
func safePrefix(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	cut := 0
	for i := range s {
		if i > maxBytes {
			break
		}
		cut = i
	}
	return s[:cut]
}

func styleFilter(paint func(...any) string) pongo2.FilterFunction {
	return func(in, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
		return pongo2.AsValue(paint(in.String())), nil
	}
}

// templateFuncs builds the per-render function closures available inside job
// templates. All state is captured at snapshot time so a template render
// never takes job locks mid-execution.
func (j *Job) templateFuncs(ctx renderCtx) pongo2.Context {
	var (
		animMS      = ctx.now.Sub(ctx.start).Milliseconds()
		jobElapsed  = ctx.now.Sub(j.start)
		st          = j.statusSnapshot()
		cur         = ctx.cur
		total       = ctx.total
		hasProgress = ctx.hasProgress
		width       = ctx.width
		textMode    = ctx.textMode
		opElapsed   = j.opElapsedSecs(ctx.now)
	)
	rate, hasRate := j.rateSnapshot()
	etaValue, etaComplete := calculateETA(hasProgress, cur, total, rate, hasRate, opElapsed)
	rateStr := rateString(hasProgress, cur, rate, hasRate, opElapsed)

	return pongo2.Context{
		// elapsed() renders the time since the job started.
		"elapsed": func() string {
			return formatDuration(jobElapsed)
		},

		// eta(hide_complete) estimates time remaining from the smoothed rate,
		// falling back to linear extrapolation over the current operation.
		"eta": func(args ...*pongo2.Value) *pongo2.Value {
			hide := len(args) > 0 && args[0].Bool()
			if hide && (etaComplete || etaValue == "") {
				return pongo2.AsValue("")
			}
			if etaValue == "" {
				return pongo2.AsValue("-")
			}
			return pongo2.AsValue(etaValue)
		},

		// rate() renders the current throughput.
		"rate": func() string {
			return rateStr
		},

		// bytes(hide_complete, with_total) renders progress as byte counts.
		"bytes": func(args ...*pongo2.Value) *pongo2.Value {
			hide := len(args) > 0 && args[0].Bool()
			withTotal := true
			if len(args) > 1 {
				withTotal = args[1].Bool()
			}
			if !hasProgress || (hide && cur >= total) {
				return pongo2.AsValue("")
			}
			if withTotal {
				return pongo2.AsValue(formatBytes(cur) + " / " + formatBytes(total))
			}
			return pongo2.AsValue(formatBytes(cur))
		},

		// percentage(decimals, hide_complete) renders progress as a percent.
		"percentage": func(args ...*pongo2.Value) *pongo2.Value {
			decimals := 0
			if len(args) > 0 {
				decimals = clampInt(args[0].Integer(), 0, 20)
			}
			hide := len(args) > 1 && args[1].Bool()
			if !hasProgress || (hide && cur >= total) {
				return pongo2.AsValue("")
			}
			if total <= 0 {
				return pongo2.AsValue("0%")
			}
			pct := float64(cur) / float64(total) * 100
			return pongo2.AsValue(strconv.FormatFloat(pct, 'f', decimals, 64) + "%")
		},

		// count_format(value, decimals) renders a count with SI suffixes.
		// Omit value (or pass a negative one) to use the current progress.
		"count_format": func(args ...*pongo2.Value) *pongo2.Value {
			value := -1
			decimals := 1
			if len(args) > 0 {
				value = args[0].Integer()
			}
			if len(args) > 1 {
				decimals = clampInt(args[1].Integer(), 0, 20)
			}
			if value < 0 {
				if !hasProgress {
					return pongo2.AsValue("")
				}
				value = cur
			}
			return pongo2.AsValue(formatCount(value, decimals))
		},

		// spinner(name) renders the status glyph: an animated frame while
		// running, a fixed glyph for every other status.
		"spinner": func(args ...*pongo2.Value) *pongo2.Value {
			switch st.kind {
			case statusRunning:
				if textMode {
					return pongo2.AsValue(" ")
				}
				name := defaultSpinner
				if len(args) > 0 && args[0].String() != "" {
					name = args[0].String()
				}
				return pongo2.AsValue(blue(spinnerFrame(name, animMS)))
			case statusHide:
				return pongo2.AsValue(" ")
			case statusPending:
				return pongo2.AsValue(yellowDim("⏸"))
			case statusDone:
				return pongo2.AsValue(brightGreen("✔"))
			case statusFailed:
				return pongo2.AsValue(red("✗"))
			case statusWarn:
				return pongo2.AsValue(yellow("⚠"))
			case statusRunningCustom, statusDoneCustom:
				return pongo2.AsValue(st.glyph)
			}
			return pongo2.AsValue(" ")
		},

		// progress_bar(width, style, hide_complete) renders a bar. width 0
		// (or omitted args with width 0) emits a flex placeholder that grows
		// to the remaining space; a negative width means "terminal width
		// minus n"; no arguments means the full render width.
		"progress_bar": func(args ...*pongo2.Value) *pongo2.Value {
			if !hasProgress {
				return pongo2.AsValue("")
			}
			barWidth := width
			flexBar := false
			if len(args) > 0 {
				switch w := args[0].Integer(); {
				case w == 0:
					flexBar = true
				case w < 0:
					barWidth = width + w
				default:
					barWidth = w
				}
			}
			chars := DefaultBarChars()
			if len(args) > 1 && args[1].String() != "" {
				chars = barCharsNamed(args[1].String())
			}
			if len(args) > 2 && args[2].Bool() && cur >= total {
				return pongo2.AsValue("")
			}
			if flexBar {
				placeholder := fmt.Sprintf("%s%s cur=%d total=%d chars=%s>%s",
					flexTag, barTag, cur, total, encodeBarChars(chars), flexTag)
				return pongo2.AsValue(placeholder)
			}
			return pongo2.AsValue(renderBar(cur, total, barWidth, chars))
		},
	}
}

// calculateETA estimates remaining time. With a smoothed rate available it
// divides the remaining items by it; otherwise it extrapolates linearly from
// the elapsed time of the current operation. complete is true once progress
// reached the total.
func calculateETA(hasProgress bool, cur, total int, rate float64, hasRate bool, opElapsedSecs float64) (value string, complete bool) {
	if !hasProgress {
		return "", false
	}
	if cur > 0 && total > 0 && cur <= total {
		remaining := float64(total - cur)
		var remainingSecs float64
		if hasRate && rate > 0 {
			remainingSecs = remaining / rate
		} else {
			ratio := float64(cur) / float64(total)
			remainingSecs = opElapsedSecs/ratio - opElapsedSecs
		}
		if remainingSecs > 0 {
			return formatDuration(time.Duration(remainingSecs * float64(time.Second))), false
		}
		return "0s", true
	}
	return "", cur >= total
}

// rateString renders throughput, using the average over the current
// operation until the smoothed estimator has a sample.
func rateString(hasProgress bool, cur int, rate float64, hasRate bool, opElapsedSecs float64) string {
	if !hasProgress {
		return "-/s"
	}
	r := rate
	if !hasRate {
		r = 0
		if opElapsedSecs > 0 && cur > 0 {
			r = float64(cur) / opElapsedSecs
		}
	}
	return formatRate(r, true)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

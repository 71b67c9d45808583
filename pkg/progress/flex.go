package progress

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// Layout tags understood by Flex. Templates emit them through the flex and
// flex_fill filters and the progress_bar function; they never reach the
// terminal.
const (
	flexTag     = "<spool:flex>"
	flexFillTag = "<spool:flex_fill>"
	barTag      = "<spool:progress"
)

// Flex resolves layout tags in s against the given terminal width.
// Content between a pair of flexTag markers is truncated to fit; content
// between flexFillTag markers is padded (pushing the suffix to the right
// edge) or truncated. Bar placeholders expand to a progress bar sized to
// the space the flex pass grants them.
func Flex(s string, width int) string {
	if !strings.Contains(s, flexTag) && !strings.Contains(s, flexFillTag) {
		return s
	}

	// Tags may nest one level (a flex region containing a bar placeholder),
	// so run passes until a fixpoint, with a cap against pathological input.
	cur := s
	for pass := 0; pass < 8; pass++ {
		if !strings.Contains(cur, flexTag) && !strings.Contains(cur, flexFillTag) {
			break
		}
		next := flexOnce(cur, width)
		if next == cur {
			break
		}
		cur = next
	}
	return cur
}

func flexOnce(s string, width int) string {
	if out, ok := flexFillPass(s, width); ok {
		return out
	}
	if out, ok := flexPass(s, width); ok {
		return out
	}
	return flexLineByLine(s, width)
}

// flexFillPass handles a complete flexFillTag pair anywhere in s.
func flexFillPass(s string, width int) (string, bool) {
	if strings.Count(s, flexFillTag) < 2 {
		return "", false
	}
	return lineFlexFill(s, width)
}

// flexPass handles a complete flexTag pair, including multi-line content and
// bar placeholders.
func flexPass(s string, width int) (string, bool) {
	if strings.Count(s, flexTag) < 2 {
		return "", false
	}

	parts := strings.SplitN(s, flexTag, 3)
	if len(parts) < 2 {
		return "", false
	}
	prefix, content := parts[0], parts[1]
	suffix := ""
	if len(parts) == 3 {
		suffix = parts[2]
	}

	if content == "" {
		return prefix + suffix, true
	}

	// Width already consumed on the line the content starts on.
	prefixWidth := 0
	if !strings.HasSuffix(prefix, "\n") {
		prefixWidth = ansi.StringWidth(lastLine(prefix))
	}

	// Multi-line content collapses to a truncated first line.
	if strings.Contains(content, "\n") {
		available := max(width-prefixWidth-3, 0)
		firstLine, _, _ := strings.Cut(content, "\n")
		if available > 3 {
			return prefix + ansi.Truncate(firstLine, available, "…"), true
		}
		return prefix + "…", true
	}

	suffixWidth := 0
	if suffix != "" {
		suffixWidth = ansi.StringWidth(firstLine(suffix))
	}
	available := max(width-prefixWidth-suffixWidth, 0)

	if prefixWidth >= width {
		return ansi.Truncate(prefix, width, "…"), true
	}

	if strings.HasPrefix(content, barTag) {
		if bar, ok := renderBarPlaceholder(content, available); ok {
			return prefix + bar + suffix, true
		}
	}

	if available > 3 {
		return prefix + ansi.Truncate(content, available, "…") + suffix, true
	}
	if avail := width - prefixWidth; avail > 3 {
		return prefix + ansi.Truncate(content, avail, "…"), true
	}
	return prefix, true
}

// renderBarPlaceholder expands a "<spool:progress cur=N total=N chars=...>"
// placeholder into a bar of exactly the given width.
func renderBarPlaceholder(content string, width int) (string, bool) {
	trimmed := strings.TrimFunc(content, func(r rune) bool {
		return r == '<' || r == '>' || r == ' '
	})

	var (
		cur, total       int
		hasCur, hasTotal bool
		chars            = DefaultBarChars()
	)
	for _, part := range strings.Fields(trimmed) {
		switch {
		case strings.HasPrefix(part, "cur="):
			if v, err := strconv.Atoi(part[len("cur="):]); err == nil {
				cur, hasCur = v, true
			}
		case strings.HasPrefix(part, "total="):
			if v, err := strconv.Atoi(part[len("total="):]); err == nil {
				total, hasTotal = v, true
			}
		case strings.HasPrefix(part, "chars="):
			chars = decodeBarChars(part[len("chars="):])
		}
	}
	if !hasCur || !hasTotal {
		return "", false
	}
	return renderBar(cur, total, width, chars), true
}

// flexLineByLine is the fallback for frames where tags do not pair up across
// the whole string (for example one tagged line among plain lines).
func flexLineByLine(s string, width int) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if strings.Contains(line, flexFillTag) {
			if out, ok := lineFlexFill(line, width); ok {
				lines[i] = out
				continue
			}
		}
		if strings.Contains(line, flexTag) {
			lines[i] = lineFlex(line, width)
		}
	}
	return strings.Join(lines, "\n")
}

func lineFlexFill(line string, width int) (string, bool) {
	parts := strings.SplitN(line, flexFillTag, 3)
	if len(parts) < 2 {
		return "", false
	}
	prefix, content := parts[0], parts[1]
	suffix := ""
	if len(parts) == 3 {
		suffix = parts[2]
	}

	prefixWidth := ansi.StringWidth(prefix)
	suffixWidth := ansi.StringWidth(suffix)
	contentWidth := ansi.StringWidth(content)
	available := max(width-prefixWidth-suffixWidth, 0)

	var b strings.Builder
	b.WriteString(prefix)
	if contentWidth >= available {
		if available > 3 {
			b.WriteString(ansi.Truncate(content, available, "…"))
		} else {
			b.WriteString(content)
		}
	} else {
		b.WriteString(content)
		b.WriteString(strings.Repeat(" ", available-contentWidth))
	}
	b.WriteString(suffix)
	return b.String(), true
}

func lineFlex(line string, width int) string {
	parts := strings.SplitN(line, flexTag, 3)
	if len(parts) < 2 {
		return line
	}
	prefix, content := parts[0], parts[1]
	suffix := ""
	if len(parts) == 3 {
		suffix = parts[2]
	}

	prefixWidth := ansi.StringWidth(prefix)
	suffixWidth := ansi.StringWidth(suffix)
	available := max(width-prefixWidth-suffixWidth, 0)

	if prefixWidth >= width {
		return ansi.Truncate(line, width, "…")
	}

	if strings.HasPrefix(content, barTag) {
		if bar, ok := renderBarPlaceholder(content, available); ok {
			return prefix + bar + suffix
		}
	}

	if available > 3 {
		return prefix + ansi.Truncate(content, available, "…") + suffix
	}
	if avail := width - prefixWidth; avail > 3 {
		return prefix + ansi.Truncate(content, avail, "…")
	}
	return prefix
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// encodeBarChars packs a BarChars into a comma-separated value safe for
// embedding inside a placeholder tag. Comma, percent, space, and angle
// brackets are percent-encoded.
func encodeBarChars(chars BarChars) string {
	enc := func(s string) string {
		var b strings.Builder
		for _, r := range s {
			switch r {
			case ',':
				b.WriteString("%2C")
			case '%':
				b.WriteString("%25")
			case ' ':
				b.WriteString("%20")
			case '<':
				b.WriteString("%3C")
			case '>':
				b.WriteString("%3E")
			default:
				b.WriteRune(r)
			}
		}
		return b.String()
	}
	return strings.Join([]string{
		enc(chars.Fill), enc(chars.Head), enc(chars.Empty), enc(chars.Left), enc(chars.Right),
	}, ",")
}

func decodeBarChars(encoded string) BarChars {
	dec := func(s string) string {
		var b strings.Builder
		for i := 0; i < len(s); {
			if s[i] == '%' && i+3 <= len(s) {
				switch s[i+1 : i+3] {
				case "2C":
					b.WriteByte(',')
				case "20":
					b.WriteByte(' ')
				case "3C":
					b.WriteByte('<')
				case "3E":
					b.WriteByte('>')
				case "25":
					b.WriteByte('%')
				default:
					b.WriteString(s[i : i+3])
				}
				i += 3
				continue
			}
			b.WriteByte(s[i])
			i++
		}
		return b.String()
	}
	parts := strings.SplitN(encoded, ",", 5)
	if len(parts) < 5 {
		return DefaultBarChars()
	}
	return BarChars{
		Fill:  dec(parts[0]),
		Head:  dec(parts[1]),
		Empty: dec(parts[2]),
		Left:  dec(parts[3]),
		Right: dec(parts[4]),
	}
}

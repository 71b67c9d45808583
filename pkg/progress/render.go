package progress

import (
	"strings"
	"time"
	"unicode"

	"github.com/charmbracelet/x/ansi"
	"github.com/flosch/pongo2/v6"
	"github.com/pkg/errors"
)

// renderCtx carries the per-frame state down the job tree. It is copied at
// each level, so child renders can adjust indent without affecting siblings.
type renderCtx struct {
	start           time.Time // animation baseline, fixed for the display's lifetime
	now             time.Time
	width           int
	indent          int
	includeChildren bool
	textMode        bool
	vars            pongo2.Context

	// progress of the job currently being rendered
	cur, total  int
	hasProgress bool
}

func (d *Display) prepareCtx() renderCtx {
	_, cols := d.term.Size()
	return renderCtx{
		start:           d.animStart,
		now:             time.Now(),
		width:           cols,
		includeChildren: true,
		textMode:        d.Output() == OutputText,
		vars:            pongo2.Context{"message": ""},
	}
}

// render produces this job's lines, including its children indented one cell
// per tree level. Hidden jobs render as the empty string.
func (j *Job) render(ctx renderCtx) (string, error) {
	vars := make(pongo2.Context, len(ctx.vars)+4)
	for k, v := range ctx.vars {
		vars[k] = v
	}
	j.mu.Lock()
	for k, v := range j.props {
		vars[k] = v
	}
	body := j.body
	j.mu.Unlock()
	ctx.vars = vars
	ctx.cur, ctx.total, ctx.hasProgress = j.progress()

	if !j.shouldDisplay() {
		return "", nil
	}

	if ctx.textMode && j.bodyText != "" {
		body = j.bodyText
	}
	tpl, err := j.template(body)
	if err != nil {
		return "", err
	}

	exec := make(pongo2.Context, len(vars)+16)
	for k, v := range vars {
		exec[k] = v
	}
	for k, v := range j.templateFuncs(ctx) {
		exec[k] = v
	}
	rendered, err := tpl.Execute(exec)
	if err != nil {
		return "", errors.Wrapf(err, "render job %d", j.id)
	}

	flexWidth := max(ctx.width-ctx.indent, 0)
	lines := []string{strings.TrimRightFunc(Flex(rendered, flexWidth), unicode.IsSpace)}

	if ctx.includeChildren && j.shouldDisplayChildren() {
		ctx.indent++
		for _, child := range j.Children() {
			out, err := child.render(ctx)
			if err != nil {
				return "", err
			}
			if out != "" {
				lines = append(lines, Indent(out, ctx.width-ctx.indent+1, ctx.indent))
			}
		}
	}
	return strings.Join(lines, "\n"), nil
}

// renderFrame snapshots the top-level jobs and renders them to one frame.
// The OSC indicator is refreshed from the same snapshot.
func (d *Display) renderFrame() (string, []*Job, error) {
	ctx := d.prepareCtx()
	jobs := d.snapshotJobs()
	d.updateOSC(jobs)

	var parts []string
	for _, j := range jobs {
		out, err := j.render(ctx)
		if err != nil {
			return "", nil, err
		}
		if out != "" {
			parts = append(parts, out)
		}
	}
	return strings.Join(parts, "\n"), jobs, nil
}

// processFlexOutput resolves any flex tags that survived per-job processing
// (tags spanning job boundaries, or emitted by a parent into child indent).
func (d *Display) processFlexOutput(s string) string {
	if strings.Contains(s, flexTag) || strings.Contains(s, flexFillTag) {
		_, cols := d.term.Size()
		return Flex(s, cols)
	}
	return s
}

// writeFrame replaces the previous frame on the terminal and records how
// many rows the new frame occupies, counting wrapped lines by visual width.
func (d *Display) writeFrame(output string, jobs []*Job) error {
	d.termMu.Lock()
	defer d.termMu.Unlock()

	if d.lines > 0 {
		if err := d.term.MoveCursorUp(d.lines); err != nil {
			return errors.Wrap(err, "move cursor")
		}
		if err := d.term.ClearToEndOfScreen(); err != nil {
			return errors.Wrap(err, "clear region")
		}
	}

	if output == "" {
		d.lines = 0
		return nil
	}

	logFrame(output, jobs)
	if err := d.term.WriteLine(output); err != nil {
		return errors.Wrap(err, "write frame")
	}

	_, cols := d.term.Size()
	consumed := 0
	for _, line := range strings.Split(output, "\n") {
		visible := max(ansi.StringWidth(line), 1)
		rows := 1
		if cols > 0 {
			rows = (visible-1)/cols + 1
		}
		consumed += max(rows, 1)
	}
	d.lines = max(consumed, 1)
	return nil
}

// refresh runs one cycle: render, diff against the previous frame, write.
// It returns false when the background loop should exit, either because the
// display is stopping or because the frame is settled with no active jobs.
// An unchanged frame with active jobs skips the terminal write but keeps the
// loop alive so spinners resume the moment the frame changes.
func (d *Display) refresh() (bool, error) {
	d.refreshMu.Lock()
	defer d.refreshMu.Unlock()

	if d.stopping.Load() {
		d.setStarted(false)
		return false, nil
	}
	if d.IsPaused() {
		return true, nil
	}

	frame, jobs, err := d.renderFrame()
	if err != nil {
		return true, err
	}
	anyRunning := countActive(jobs) > 0
	final := d.processFlexOutput(frame)

	d.termMu.Lock()
	lines := d.lines
	d.termMu.Unlock()

	d.frameMu.Lock()
	unchanged := final == d.lastFrame
	d.lastFrame = final
	d.frameMu.Unlock()

	if unchanged && lines > 0 {
		// Re-check against live state: a job may have started between the
		// snapshot and now, and stopping the loop then would strand it.
		if !anyRunning && d.ActiveJobs() == 0 {
			d.setStarted(false)
			return false, nil
		}
		return true, nil
	}

	if err := d.writeFrame(final, jobs); err != nil {
		return true, err
	}

	if !anyRunning && d.ActiveJobs() == 0 {
		d.setStarted(false)
		return false, nil
	}
	return true, nil
}

// refreshOnce renders and writes a frame synchronously, outside the loop's
// pause and diff logic. Used for terminal status changes and Stop.
func (d *Display) refreshOnce() error {
	if IsDisabled() {
		return nil
	}
	d.refreshMu.Lock()
	defer d.refreshMu.Unlock()

	frame, jobs, err := d.renderFrame()
	if err != nil {
		return err
	}
	return d.writeFrame(d.processFlexOutput(frame), jobs)
}

// renderTextMode writes one line for the given job, ignoring children.
func (d *Display) renderTextMode(j *Job) error {
	ctx := d.prepareCtx()
	ctx.includeChildren = false
	out, err := j.render(ctx)
	if err != nil {
		return err
	}
	if out == "" {
		return nil
	}
	if strings.Contains(out, flexTag) || strings.Contains(out, flexFillTag) {
		out = Flex(out, ctx.width)
	}
	d.termMu.Lock()
	defer d.termMu.Unlock()
	return d.term.WriteLine(out)
}

// Indent prefixes every line of s with n spaces and wraps lines longer than
// width, repeating the indent and the most recent ANSI color sequence on
// continuation lines so styling survives the wrap.
func Indent(s string, width, n int) string {
	pad := strings.Repeat(" ", n)
	var out []string

	for _, line := range strings.Split(s, "\n") {
		var cur strings.Builder
		cur.WriteString(pad)
		curWidth := n
		hasContent := false
		ansiCode := ""

		runes := []rune(line)
		for i := 0; i < len(runes); i++ {
			r := runes[i]
			if r == '\x1b' {
				seq := []rune{r}
				for i+1 < len(runes) {
					i++
					seq = append(seq, runes[i])
					if runes[i] == 'm' {
						break
					}
				}
				ansiCode = string(seq)
				cur.WriteString(ansiCode)
				continue
			}
			w := ansi.StringWidth(string(r))
			if curWidth+w > width && hasContent {
				out = append(out, cur.String())
				cur.Reset()
				cur.WriteString(pad)
				cur.WriteString(ansiCode)
				curWidth = n
				hasContent = false
			}
			cur.WriteRune(r)
			if !unicode.IsControl(r) {
				curWidth += w
			}
			if r != ' ' {
				hasContent = true
			}
		}
		out = append(out, cur.String())
	}
	return strings.Join(out, "\n")
}

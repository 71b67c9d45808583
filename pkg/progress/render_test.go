package progress

import (
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gotest.tools/v3/golden"
)

func TestRefreshOnceWritesFrame(t *testing.T) {
	d, term := newTestDisplay(80)
	attach(d, NewJob().Body("{{ message }}").Prop("message", "working").Build())

	require.NoError(t, d.refreshOnce())
	assert.Equal(t, []string{"working"}, term.written())
	d.termMu.Lock()
	assert.Equal(t, 1, d.lines)
	d.termMu.Unlock()
}

func TestRefreshOnceReplacesPreviousFrame(t *testing.T) {
	d, term := newTestDisplay(80)
	j := attach(d, NewJob().Body("{{ message }}").Prop("message", "one").Build())
	require.NoError(t, d.refreshOnce())

	j.mu.Lock()
	j.props["message"] = "two"
	j.mu.Unlock()
	require.NoError(t, d.refreshOnce())

	assert.Equal(t, []string{"one", "two"}, term.written())
	assert.Equal(t, []int{1}, term.moveUps, "second frame moves up over the first")
	assert.Equal(t, 1, term.clears)
}

func TestRefreshSkipsUnchangedFrame(t *testing.T) {
	d, term := newTestDisplay(80)
	j := attach(d, NewJob().Body("{{ message }}").Prop("message", "steady").Build())

	cont, err := d.refresh()
	require.NoError(t, err)
	assert.True(t, cont)
	require.Len(t, term.written(), 1)

	// Identical frame with an active job: no write, loop keeps going.
	cont, err = d.refresh()
	require.NoError(t, err)
	assert.True(t, cont)
	assert.Len(t, term.written(), 1)

	// Identical frame with nothing running: the loop settles and exits.
	j.mu.Lock()
	j.status = StatusDone
	j.mu.Unlock()
	cont, err = d.refresh()
	require.NoError(t, err)
	assert.False(t, cont)
	assert.Len(t, term.written(), 1)
}

func TestRefreshWhilePaused(t *testing.T) {
	d, term := newTestDisplay(80)
	attach(d, NewJob().Body("{{ message }}").Prop("message", "working").Build())

	d.paused.Store(true)
	cont, err := d.refresh()
	require.NoError(t, err)
	assert.True(t, cont)
	assert.Empty(t, term.written())
}

func TestRefreshWhileStopping(t *testing.T) {
	d, term := newTestDisplay(80)
	d.stopping.Store(true)

	cont, err := d.refresh()
	require.NoError(t, err)
	assert.False(t, cont)
	assert.Empty(t, term.written())
}

func TestSetStatusDoneRendersFinalFrame(t *testing.T) {
	d, term := newTestDisplay(80)
	j := attach(d, NewJob().Body("{{ message }}").Prop("message", "work").Build())

	// With the wake path shut off, only the synchronous render that
	// terminal statuses force can reach the terminal.
	d.stopping.Store(true)
	j.SetStatus(StatusDone)
	assert.Equal(t, []string{"work"}, term.written())
}

func TestSetStatusFailedRendersFinalFrame(t *testing.T) {
	d, term := newTestDisplay(80)
	j := attach(d, NewJob().Body("{{ message }}").Prop("message", "work").Build())

	d.stopping.Store(true)
	j.SetStatus(StatusFailed)
	assert.Equal(t, []string{"work"}, term.written())
}

func TestRenderTree(t *testing.T) {
	d, term := newTestDisplay(80)
	parent := attach(d, NewJob().Body("{{ message }}").Prop("message", "parent").Build())
	child := NewJob().Body("{{ message }}").Prop("message", "child").Build()
	child.parent = parent
	parent.children = append(parent.children, child)

	require.NoError(t, d.refreshOnce())
	assert.Equal(t, "parent\n child", term.lastWritten())
}

func TestRenderHiddenJob(t *testing.T) {
	d, term := newTestDisplay(80)
	attach(d, NewJob().Status(StatusHide).Build())

	require.NoError(t, d.refreshOnce())
	assert.Empty(t, term.written())
	d.termMu.Lock()
	assert.Equal(t, 0, d.lines)
	d.termMu.Unlock()
}

func TestRenderCollapsedChildren(t *testing.T) {
	d, term := newTestDisplay(80)
	parent := attach(d, NewJob().Body("{{ message }}").Prop("message", "parent").OnDone(DoneCollapse).Build())
	child := NewJob().Body("{{ message }}").Prop("message", "child").Build()
	child.parent = parent
	parent.children = append(parent.children, child)
	parent.mu.Lock()
	parent.status = StatusDone
	parent.mu.Unlock()

	require.NoError(t, d.refreshOnce())
	assert.Equal(t, "parent", term.lastWritten())
}

func TestWriteFrameCountsWrappedRows(t *testing.T) {
	d, _ := newTestDisplay(10)
	require.NoError(t, d.writeFrame(strings.Repeat("x", 25), nil))
	d.termMu.Lock()
	assert.Equal(t, 3, d.lines)
	d.termMu.Unlock()

	require.NoError(t, d.writeFrame("abc\n"+strings.Repeat("y", 15), nil))
	d.termMu.Lock()
	assert.Equal(t, 3, d.lines)
	d.termMu.Unlock()
}

func TestClearRemovesRegion(t *testing.T) {
	d, term := newTestDisplay(10)
	require.NoError(t, d.writeFrame(strings.Repeat("x", 25), nil))
	require.NoError(t, d.clear())

	assert.Equal(t, []int{3}, term.moveUps)
	assert.Equal(t, 1, term.clears)
	d.termMu.Lock()
	assert.Equal(t, 0, d.lines)
	d.termMu.Unlock()
}

func TestRenderTextModeUsesBodyText(t *testing.T) {
	d, term := newTestDisplay(80)
	d.SetOutput(OutputText)
	j := NewJob().Body("ui {{ message }}").BodyText("text {{ message }}").Prop("message", "m").Build()

	require.NoError(t, d.renderTextMode(j))
	assert.Equal(t, []string{"text m"}, term.written())
	assert.Empty(t, term.moveUps, "text mode never repositions the cursor")
}

func TestTextModeUpdateWritesLine(t *testing.T) {
	term := newMockTerminal(24, 80)
	term.interactive = false
	d := NewDisplay(term)

	j := NewJob().Body("{{ message }}").StartOn(d)
	j.Message("hello")
	j.Message("world")

	assert.Equal(t, []string{"hello", "world"}, term.written())
}

func TestProcessFlexOutput(t *testing.T) {
	d, _ := newTestDisplay(10)
	out := d.processFlexOutput("x" + flexFillTag + "y" + flexFillTag)
	assert.Equal(t, "xy        ", out)

	assert.Equal(t, "plain", d.processFlexOutput("plain"))
}

func TestIndent(t *testing.T) {
	assert.Equal(t, "  a\n  b", Indent("a\nb", 10, 2))
}

func TestIndentWrapsLongLines(t *testing.T) {
	out := Indent(strings.Repeat("a", 34), 10, 2)
	want := strings.Join([]string{
		"  aaaaaaaa",
		"  aaaaaaaa",
		"  aaaaaaaa",
		"  aaaaaaaa",
		"  aa",
	}, "\n")
	assert.Equal(t, want, out)
}

func TestIndentReappliesColorAcrossWraps(t *testing.T) {
	out := Indent("\x1b[31m"+strings.Repeat("b", 12)+"\x1b[0m", 10, 2)
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "  \x1b[31mbbbbbbbb", lines[0])
	assert.Equal(t, "  \x1b[31mbbbb\x1b[0m", lines[1])
}

func TestFrameGolden(t *testing.T) {
	old := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = old }()

	d, _ := newTestDisplay(40)
	parent := attach(d, NewJob().
		Body("{{ message }} {{ progress_bar(12) }}").
		Prop("message", "syncing").
		ProgressCurrent(3).
		ProgressTotal(4).
		Build())
	child := NewJob().Body("{{ message }}").Prop("message", "files").Build()
	child.parent = parent
	parent.children = append(parent.children, child)

	frame, _, err := d.renderFrame()
	require.NoError(t, err)
	golden.Assert(t, d.processFlexOutput(frame)+"\n", "frame.golden")
}

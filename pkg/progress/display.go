package progress

import (
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/larkey/spool/pkg/osc"
)

// Display coordinates a set of top-level jobs rendering into one terminal
// region. Most programs use the package-level functions, which operate on
// the default display; tests construct their own with NewDisplay and a fake
// Terminal.
type Display struct {
	term Terminal

	jobMu sync.Mutex
	jobs  []*Job

	// termMu serializes terminal writes and guards the row count of the
	// currently drawn region.
	termMu sync.Mutex
	lines  int

	// refreshMu ensures only one refresh cycle runs at a time.
	refreshMu sync.Mutex

	frameMu   sync.Mutex
	lastFrame string

	stateMu   sync.Mutex
	started   bool
	output    Output
	outputSet bool
	interval  time.Duration

	paused   atomic.Bool
	stopping atomic.Bool
	resized  atomic.Bool

	// wake coalesces repaint requests for the background goroutine.
	wake chan struct{}

	animStart time.Time

	oscMu         sync.Mutex
	lastOSCPct    int
	lastOSCFailed bool
	hasOSCPct     bool
}

// NewDisplay returns a display rendering to the given terminal.
func NewDisplay(term Terminal) *Display {
	return &Display{
		term:      term,
		interval:  200 * time.Millisecond,
		wake:      make(chan struct{}, 1),
		animStart: time.Now(),
	}
}

var defaultDisplay = sync.OnceValue(func() *Display {
	d := NewDisplay(NewProcessTerminal())
	d.watchResize()
	return d
})

// Default returns the process-wide display backed by stderr.
func Default() *Display {
	return defaultDisplay()
}

// Output returns the effective output mode: an explicit SetOutput wins,
// otherwise the environment and terminal decide.
func (d *Display) Output() Output {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	return d.outputLocked()
}

func (d *Display) outputLocked() Output {
	if d.outputSet {
		return d.output
	}
	if envTextMode() || !d.term.IsInteractive() {
		return OutputText
	}
	return OutputUI
}

// SetOutput forces the output mode.
func (d *Display) SetOutput(o Output) {
	d.stateMu.Lock()
	d.output, d.outputSet = o, true
	d.stateMu.Unlock()
}

// Interval returns the refresh interval of the background loop.
func (d *Display) Interval() time.Duration {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	return d.interval
}

// SetInterval sets the refresh interval. The default of 200ms matches the
// fastest spinner frame rate.
func (d *Display) SetInterval(iv time.Duration) {
	d.stateMu.Lock()
	d.interval = iv
	d.stateMu.Unlock()
}

func (d *Display) isStarted() bool {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	return d.started
}

func (d *Display) setStarted(v bool) {
	d.stateMu.Lock()
	d.started = v
	d.stateMu.Unlock()
}

// notify wakes the background goroutine, starting it on first use. The wake
// channel holds a single pending signal, so bursts of updates coalesce into
// one repaint.
func (d *Display) notify() {
	if IsDisabled() || d.stopping.Load() {
		return
	}
	d.ensureStarted()
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *Display) ensureStarted() {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	if d.started || IsDisabled() || d.stopping.Load() || d.outputLocked() == OutputText {
		return
	}
	d.started = true
	go d.loop()
}

// loop is the background scheduler: refresh, then wait for a wake or the
// next tick. Consecutive refreshes are at least interval/2 apart no matter
// how often notify fires. Render errors are logged and the row count reset
// so the next frame starts from a clean slate.
func (d *Display) loop() {
	refreshAfter := time.Now()
	for {
		if wait := time.Until(refreshAfter); wait > 0 {
			time.Sleep(wait)
		}
		refreshAfter = time.Now().Add(d.Interval() / 2)

		cont, err := d.refresh()
		if err != nil {
			slog.Error("progress refresh failed", "error", err)
			d.termMu.Lock()
			d.lines = 0
			d.termMu.Unlock()
		}
		if !cont {
			return
		}

		if d.resized.Swap(false) {
			// Repaint immediately at the new width, bypassing the diff.
			d.frameMu.Lock()
			d.lastFrame = ""
			d.frameMu.Unlock()
			continue
		}

		timer := time.NewTimer(d.Interval())
		select {
		case <-d.wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// watchResize marks the display dirty whenever the terminal is resized.
func (d *Display) watchResize() {
	ch := make(chan os.Signal, 1)
	notifyResize(ch)
	go func() {
		for range ch {
			d.resized.Store(true)
			select {
			case d.wake <- struct{}{}:
			default:
			}
		}
	}()
}

// IsPaused reports whether rendering is paused.
func (d *Display) IsPaused() bool {
	return d.paused.Load()
}

// Pause suspends rendering and clears the progress region so other output
// can be written. Updates made while paused accumulate and render on Resume.
func (d *Display) Pause() {
	d.paused.Store(true)
	if d.isStarted() {
		if err := d.clear(); err != nil {
			slog.Debug("progress clear failed", "error", err)
		}
	}
}

// Resume re-enables rendering after Pause.
func (d *Display) Resume() {
	d.paused.Store(false)
	if !d.isStarted() {
		return
	}
	if d.Output() == OutputUI {
		d.notify()
	}
}

// Stop renders the final state, clears the OSC indicator, and shuts the
// display down. The display cannot be restarted.
func (d *Display) Stop() {
	d.stopping.Store(true)
	if err := d.refreshOnce(); err != nil {
		slog.Error("progress final render failed", "error", err)
	}
	d.clearOSC()
	d.setStarted(false)
}

// StopClear removes the progress region from the screen, clears the OSC
// indicator, and shuts the display down.
func (d *Display) StopClear() {
	d.stopping.Store(true)
	if err := d.clear(); err != nil {
		slog.Debug("progress clear failed", "error", err)
	}
	d.clearOSC()
	d.setStarted(false)
}

// Flush forces an immediate refresh if the background loop is running.
func (d *Display) Flush() {
	if !d.isStarted() {
		return
	}
	if _, err := d.refresh(); err != nil {
		slog.Error("progress refresh failed", "error", err)
	}
}

// WithTerminalLock runs f while holding the terminal lock, so callers can
// interleave their own writes without corrupting the progress region.
func (d *Display) WithTerminalLock(f func()) {
	d.termMu.Lock()
	defer d.termMu.Unlock()
	f()
}

// clear erases the currently drawn region.
func (d *Display) clear() error {
	d.termMu.Lock()
	defer d.termMu.Unlock()
	if d.lines > 0 {
		if err := d.term.MoveCursorUp(d.lines); err != nil {
			return err
		}
		if err := d.term.ClearToEndOfScreen(); err != nil {
			return err
		}
	}
	d.lines = 0
	return nil
}

// JobCount returns the number of top-level jobs.
func (d *Display) JobCount() int {
	d.jobMu.Lock()
	defer d.jobMu.Unlock()
	return len(d.jobs)
}

// ActiveJobs returns the number of active jobs anywhere in the tree.
func (d *Display) ActiveJobs() int {
	return countActive(d.snapshotJobs())
}

func countActive(jobs []*Job) int {
	n := 0
	for _, j := range jobs {
		if j.IsRunning() {
			n++
		}
		n += countActive(j.Children())
	}
	return n
}

func (d *Display) snapshotJobs() []*Job {
	d.jobMu.Lock()
	defer d.jobMu.Unlock()
	out := make([]*Job, len(d.jobs))
	copy(out, d.jobs)
	return out
}

func (d *Display) removeJob(j *Job) {
	d.jobMu.Lock()
	defer d.jobMu.Unlock()
	kept := d.jobs[:0]
	for _, job := range d.jobs {
		if job.id != j.id {
			kept = append(kept, job)
		}
	}
	d.jobs = kept
}

// updateOSC derives the terminal progress indicator from the job snapshot.
// The first top-level job's overall progress wins when it has one; otherwise
// progress is averaged across the whole tree, estimating from status for
// jobs without counters. Sequences are only emitted when the percentage or
// the failure state changes.
func (d *Display) updateOSC(jobs []*Job) {
	if !osc.Enabled() || len(jobs) == 0 {
		return
	}
	if cur, total, ok := jobs[0].OverallProgress(); ok && total > 0 {
		pct := int(float64(cur) / float64(total) * 100)
		d.emitOSC(pct, hasFailed(jobs))
		return
	}
	sum, count, failed := averageProgress(jobs)
	if count > 0 {
		d.emitOSC(int(sum/float64(count)*100), failed)
	}
}

func (d *Display) emitOSC(pct int, failed bool) {
	pct = clampInt(pct, 0, 100)
	state := osc.StateNormal
	if failed {
		state = osc.StateError
	}
	d.oscMu.Lock()
	defer d.oscMu.Unlock()
	if d.hasOSCPct && d.lastOSCPct == pct && d.lastOSCFailed == failed {
		return
	}
	osc.SetProgress(state, pct)
	d.lastOSCPct, d.lastOSCFailed, d.hasOSCPct = pct, failed, true
}

func (d *Display) clearOSC() {
	if !osc.Enabled() {
		return
	}
	osc.ClearProgress()
	d.oscMu.Lock()
	d.hasOSCPct = false
	d.oscMu.Unlock()
}

func hasFailed(jobs []*Job) bool {
	for _, j := range jobs {
		if j.statusSnapshot().kind == statusFailed {
			return true
		}
		if hasFailed(j.Children()) {
			return true
		}
	}
	return false
}

// averageProgress sums progress ratios across the tree. Jobs without
// counters contribute an estimate from their status: half done while active,
// done otherwise.
func averageProgress(jobs []*Job) (sum float64, count int, failed bool) {
	for _, j := range jobs {
		if cur, total, ok := j.progress(); ok && total > 0 {
			ratio := float64(cur) / float64(total)
			if ratio > 1 {
				ratio = 1
			}
			sum += ratio
			count++
		} else {
			st := j.statusSnapshot()
			switch {
			case st.IsActive():
				sum += 0.5
			case st.kind == statusFailed:
				failed = true
				sum += 1
			default:
				sum += 1
			}
			count++
		}
		s, c, f := averageProgress(j.Children())
		sum += s
		count += c
		failed = failed || f
	}
	return sum, count, failed
}

// IsDisabled reports whether all progress rendering is disabled via the
// SPOOL_NO_PROGRESS environment variable.
func IsDisabled() bool {
	return envNoProgress()
}

// Package-level functions operate on the default display.

func SetOutput(o Output)          { Default().SetOutput(o) }
func OutputMode() Output          { return Default().Output() }
func SetInterval(d time.Duration) { Default().SetInterval(d) }
func Interval() time.Duration     { return Default().Interval() }
func Pause()                      { Default().Pause() }
func Resume()                     { Default().Resume() }
func IsPaused() bool              { return Default().IsPaused() }
func Stop()                       { Default().Stop() }
func StopClear()                  { Default().StopClear() }
func Flush()                      { Default().Flush() }
func WithTerminalLock(f func())   { Default().WithTerminalLock(f) }
func JobCount() int               { return Default().JobCount() }
func ActiveJobs() int             { return Default().ActiveJobs() }

package progress

import (
	"fmt"
	"math"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/flosch/pongo2/v6"
	"github.com/pkg/errors"
)

var nextJobID atomic.Int64

// Builder configures a Job before it is built or started.
type Builder struct {
	body     string
	bodyText string
	status   Status
	onDone   DoneBehavior
	props    map[string]any
	cur      int
	hasCur   bool
	total    int
	hasTotal bool
}

// NewJob returns a builder with the default spinner body and a running
// status.
func NewJob() *Builder {
	return &Builder{
		body:   defaultBody,
		status: StatusRunning,
		props:  map[string]any{},
	}
}

// Body sets the template used to render the job.
func (b *Builder) Body(tpl string) *Builder {
	b.body = tpl
	return b
}

// BodyText sets an alternative template used in text output mode.
func (b *Builder) BodyText(tpl string) *Builder {
	b.bodyText = tpl
	return b
}

// Status sets the initial status.
func (b *Builder) Status(s Status) *Builder {
	b.status = s
	return b
}

// OnDone sets what happens to the job's display once it stops running.
func (b *Builder) OnDone(behavior DoneBehavior) *Builder {
	b.onDone = behavior
	return b
}

// ProgressCurrent sets the initial progress value and seeds the "cur"
// template property.
func (b *Builder) ProgressCurrent(n int) *Builder {
	b.cur, b.hasCur = n, true
	return b.Prop("cur", n)
}

// ProgressTotal sets the progress total and seeds the "total" template
// property.
func (b *Builder) ProgressTotal(n int) *Builder {
	b.total, b.hasTotal = n, true
	return b.Prop("total", n)
}

// Prop sets a template property.
func (b *Builder) Prop(key string, val any) *Builder {
	b.props[key] = val
	return b
}

// Build creates the job without registering it on a display.
func (b *Builder) Build() *Job {
	now := time.Now()
	props := make(map[string]any, len(b.props))
	for k, v := range b.props {
		props[k] = v
	}
	j := &Job{
		id:       nextJobID.Add(1),
		bodyText: b.bodyText,
		onDone:   b.onDone,
		body:     b.body,
		status:   b.status,
		props:    props,
		start:    now,
		opStart:  now,
	}
	j.cur, j.hasCur = b.cur, b.hasCur
	j.total, j.hasTotal = b.total, b.hasTotal
	return j
}

// Start builds the job and registers it as a top-level job on the default
// display.
func (b *Builder) Start() *Job {
	return b.StartOn(Default())
}

// StartOn builds the job and registers it as a top-level job on d.
func (b *Builder) StartOn(d *Display) *Job {
	j := b.Build()
	j.disp.Store(d)
	d.jobMu.Lock()
	d.jobs = append(d.jobs, j)
	d.jobMu.Unlock()
	j.update()
	return j
}

// Job is a handle to one node in the progress tree. All methods are safe for
// concurrent use; each group of related fields has its own lock so template
// property updates never contend with progress counters.
type Job struct {
	id       int64
	bodyText string
	onDone   DoneBehavior
	start    time.Time

	disp   atomic.Pointer[Display]
	parent *Job // set before the child is shared, never reassigned

	mu     sync.Mutex // status, body, props, compiled template
	status Status
	body   string
	props  map[string]any
	tpl    *pongo2.Template
	tplSrc string

	progMu    sync.Mutex // progress counters and rate estimator
	cur       int
	total     int
	hasCur    bool
	hasTotal  bool
	lastTime  time.Time
	lastValue int
	hasLast   bool
	rate      float64
	hasRate   bool
	opsTotal  int
	hasOps    bool
	opIndex   int
	opStart   time.Time

	childMu  sync.Mutex
	children []*Job
}

// display resolves the owning display, falling back to the parent chain so
// children added before the root was started still render.
func (j *Job) display() *Display {
	if d := j.disp.Load(); d != nil {
		return d
	}
	if j.parent != nil {
		return j.parent.display()
	}
	return nil
}

// Add attaches child under this job and triggers a repaint.
func (j *Job) Add(child *Job) *Job {
	child.parent = j
	if d := j.disp.Load(); d != nil {
		child.disp.Store(d)
	}
	j.childMu.Lock()
	j.children = append(j.children, child)
	j.childMu.Unlock()
	child.update()
	return child
}

// Remove detaches this job from its parent (or from the display's top-level
// list). The display repaints on its next cycle.
func (j *Job) Remove() {
	if j.parent != nil {
		j.parent.childMu.Lock()
		kept := j.parent.children[:0]
		for _, c := range j.parent.children {
			if c.id != j.id {
				kept = append(kept, c)
			}
		}
		j.parent.children = kept
		j.parent.childMu.Unlock()
		return
	}
	if d := j.disp.Load(); d != nil {
		d.removeJob(j)
	}
}

// Children returns a copy of the current child list.
func (j *Job) Children() []*Job {
	j.childMu.Lock()
	defer j.childMu.Unlock()
	out := make([]*Job, len(j.children))
	copy(out, j.children)
	return out
}

// IsRunning reports whether the job's status is active.
func (j *Job) IsRunning() bool {
	return j.statusSnapshot().IsActive()
}

// SetBody replaces the job's template. The compiled template is recompiled
// on the next render.
func (j *Job) SetBody(tpl string) {
	j.mu.Lock()
	j.body = tpl
	j.tpl, j.tplSrc = nil, ""
	j.mu.Unlock()
	j.update()
}

// SetStatus updates the job's status. Setting the same status again is a
// no-op. Terminal statuses (done, warn, failed) force a synchronous render
// so the final state reaches the screen even if the process exits right
// after.
func (j *Job) SetStatus(s Status) {
	j.mu.Lock()
	if j.status == s {
		j.mu.Unlock()
		return
	}
	j.status = s
	j.mu.Unlock()
	j.update()
	if s.isTerminalForDisplay() {
		if d := j.display(); d != nil && d.Output() == OutputUI {
			_ = d.refreshOnce()
		}
	}
}

// Prop sets a template property and triggers a repaint.
func (j *Job) Prop(key string, val any) {
	j.mu.Lock()
	j.props[key] = val
	j.mu.Unlock()
	j.update()
}

// Message sets the "message" template property.
func (j *Job) Message(msg string) {
	j.Prop("message", msg)
}

// ProgressCurrent sets the current progress value, clamped to the total.
func (j *Job) ProgressCurrent(n int) {
	j.progMu.Lock()
	if j.hasTotal && n > j.total {
		n = j.total
	}
	j.updateRateLocked(n)
	j.cur, j.hasCur = n, true
	j.progMu.Unlock()
	j.Prop("cur", n)
}

// ProgressTotal sets the progress total. The total never drops below the
// current value.
func (j *Job) ProgressTotal(n int) {
	j.progMu.Lock()
	if j.hasCur && n < j.cur {
		n = j.cur
	}
	j.total, j.hasTotal = n, true
	j.progMu.Unlock()
	j.Prop("total", n)
}

// Increment adds n to the current progress value, clamped to the total.
func (j *Job) Increment(n int) {
	j.progMu.Lock()
	cur := 0
	if j.hasCur {
		cur = j.cur
	}
	next := cur + n
	if j.hasTotal && next > j.total {
		next = j.total
	}
	j.updateRateLocked(next)
	j.cur, j.hasCur = next, true
	j.progMu.Unlock()
	j.Prop("cur", next)
}

// StartOperations declares how many sequential operations this job covers.
// Each operation gets an equal share of the overall progress reported to the
// terminal's OSC indicator, while template functions keep showing the values
// of the current operation.
func (j *Job) StartOperations(count int) {
	if count < 1 {
		count = 1
	}
	j.progMu.Lock()
	j.opsTotal, j.hasOps = count, true
	j.opIndex = 0
	j.opStart = time.Now()
	j.progMu.Unlock()
}

// NextOperation advances to the next operation, resetting the per-operation
// progress counters, the "cur"/"total" template properties, and the rate
// estimator.
func (j *Job) NextOperation() {
	j.progMu.Lock()
	j.opIndex++
	j.hasCur, j.hasTotal = false, false
	j.hasLast, j.hasRate = false, false
	j.rate = 0
	j.opStart = time.Now()
	j.progMu.Unlock()

	j.mu.Lock()
	delete(j.props, "cur")
	delete(j.props, "total")
	j.mu.Unlock()

	j.update()
}

// overallScale is the denominator used for multi-operation progress so that
// fractional operation shares keep enough precision.
const overallScale = 1_000_000

// OverallProgress returns the job's progress for external consumers. With
// operations declared it maps completed operations plus the current
// operation's fraction onto a fixed scale; otherwise it returns the raw
// values. ok is false when no progress tracking is active. Each term is
// rounded, not truncated, so driving every operation to 100% lands exactly
// on the scale even when the operation count does not divide it.
func (j *Job) OverallProgress() (cur, total int, ok bool) {
	j.progMu.Lock()
	defer j.progMu.Unlock()

	switch {
	case j.hasOps && j.hasCur && j.hasTotal:
		perOp := float64(overallScale) / float64(j.opsTotal)
		completed := int(math.Round(float64(j.opIndex) * perOp))
		within := 0
		if j.total > 0 {
			within = int(math.Round(float64(j.cur) / float64(j.total) * perOp))
		}
		return min(completed+within, overallScale), overallScale, true
	case j.hasOps:
		perOp := float64(overallScale) / float64(j.opsTotal)
		return min(int(math.Round(float64(j.opIndex)*perOp)), overallScale), overallScale, true
	case j.hasCur && j.hasTotal:
		return j.cur, j.total, true
	default:
		return 0, 0, false
	}
}

// updateRateLocked feeds the exponentially smoothed rate estimator. Updates
// within 100ms of the previous sample are ignored so rapid small increments
// do not produce a jumpy ETA; backwards progress never affects the rate.
// Caller holds progMu.
func (j *Job) updateRateLocked(current int) {
	now := time.Now()
	if !j.hasLast {
		j.lastTime, j.lastValue, j.hasLast = now, current, true
		return
	}
	elapsed := now.Sub(j.lastTime).Seconds()
	if elapsed <= 0.1 || current <= j.lastValue {
		return
	}
	const alpha = 0.1
	inst := float64(current-j.lastValue) / elapsed
	if j.hasRate {
		j.rate = alpha*inst + (1-alpha)*j.rate
	} else {
		j.rate, j.hasRate = inst, true
	}
	j.lastTime, j.lastValue = now, current
}

func (j *Job) statusSnapshot() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

func (j *Job) progress() (cur, total int, ok bool) {
	j.progMu.Lock()
	defer j.progMu.Unlock()
	if j.hasCur && j.hasTotal {
		return j.cur, j.total, true
	}
	return 0, 0, false
}

func (j *Job) rateSnapshot() (float64, bool) {
	j.progMu.Lock()
	defer j.progMu.Unlock()
	return j.rate, j.hasRate
}

func (j *Job) opElapsedSecs(now time.Time) float64 {
	j.progMu.Lock()
	defer j.progMu.Unlock()
	return now.Sub(j.opStart).Seconds()
}

// template returns the compiled template for body, recompiling when the
// source changed since the last render.
func (j *Job) template(body string) (*pongo2.Template, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.tpl != nil && j.tplSrc == body {
		return j.tpl, nil
	}
	tpl, err := pongo2.FromString(body)
	if err != nil {
		return nil, errors.Wrapf(err, "compile template for job %d", j.id)
	}
	j.tpl, j.tplSrc = tpl, body
	return tpl, nil
}

func (j *Job) shouldDisplay() bool {
	st := j.statusSnapshot()
	return st.kind != statusHide && (st.IsActive() || j.onDone != DoneHide)
}

func (j *Job) shouldDisplayChildren() bool {
	return j.IsRunning() || j.onDone == DoneKeep
}

// update triggers a repaint: a synchronous line in text mode, a wake of the
// background goroutine otherwise. Jobs not yet attached to a display are
// silently skipped.
func (j *Job) update() {
	d := j.display()
	if d == nil || IsDisabled() || d.stopping.Load() {
		return
	}
	if d.Output() == OutputText {
		if err := d.renderTextMode(j); err != nil {
			fmt.Fprintf(os.Stderr, "spool: %v\n", err)
		}
		return
	}
	d.notify()
}

// Println writes a line above the progress region without corrupting it.
// The display is paused, the line written under the terminal lock, then
// rendering resumes.
func (j *Job) Println(s string) {
	if s == "" {
		return
	}
	d := j.display()
	if d == nil {
		fmt.Fprintln(os.Stderr, s)
		return
	}
	d.Pause()
	out := s
	if strings.Contains(s, flexTag) || strings.Contains(s, flexFillTag) {
		_, cols := d.term.Size()
		out = Flex(s, cols)
	}
	d.termMu.Lock()
	_ = d.term.WriteLine(out)
	d.termMu.Unlock()
	d.Resume()
}

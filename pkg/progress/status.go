package progress

// Status describes how a job is displayed and whether it still counts as
// running work. The zero value is StatusHide; jobs built through NewJob
// default to StatusRunning.
type Status struct {
	kind  statusKind
	glyph string
}

type statusKind int

const (
	statusHide statusKind = iota
	statusPending
	statusRunning
	statusRunningCustom
	statusDone
	statusDoneCustom
	statusWarn
	statusFailed
)

var (
	// StatusHide hides the job entirely.
	StatusHide = Status{kind: statusHide}
	// StatusPending shows a pause indicator.
	StatusPending = Status{kind: statusPending}
	// StatusRunning shows an animated spinner.
	StatusRunning = Status{kind: statusRunning}
	// StatusDone shows a green checkmark.
	StatusDone = Status{kind: statusDone}
	// StatusWarn shows a yellow warning icon.
	StatusWarn = Status{kind: statusWarn}
	// StatusFailed shows a red X.
	StatusFailed = Status{kind: statusFailed}
)

// RunningCustom returns a running status rendered with a custom glyph
// instead of the animated spinner.
func RunningCustom(glyph string) Status {
	return Status{kind: statusRunningCustom, glyph: glyph}
}

// DoneCustom returns a completed status rendered with a custom glyph.
func DoneCustom(glyph string) Status {
	return Status{kind: statusDoneCustom, glyph: glyph}
}

// IsActive reports whether the status represents ongoing work. Active jobs
// drive spinner animation and keep the background refresh goroutine alive.
func (s Status) IsActive() bool {
	return s.kind == statusRunning || s.kind == statusRunningCustom
}

// isTerminalForDisplay reports whether setting this status should force a
// synchronous render so the final state reaches the terminal even if the
// process exits immediately afterwards.
func (s Status) isTerminalForDisplay() bool {
	switch s.kind {
	case statusDone, statusDoneCustom, statusWarn, statusFailed:
		return true
	}
	return false
}

func (s Status) String() string {
	switch s.kind {
	case statusHide:
		return "hide"
	case statusPending:
		return "pending"
	case statusRunning, statusRunningCustom:
		return "running"
	case statusDone, statusDoneCustom:
		return "done"
	case statusWarn:
		return "warn"
	case statusFailed:
		return "failed"
	}
	return "unknown"
}

// DoneBehavior controls what happens to a job's display once it is no
// longer active.
type DoneBehavior int

const (
	// DoneKeep keeps the job and all of its children visible (default).
	DoneKeep DoneBehavior = iota
	// DoneCollapse keeps the job visible but hides its children.
	DoneCollapse
	// DoneHide removes the job from the display entirely.
	DoneHide
)

// Package progress renders a live, hierarchical progress region in the
// terminal's scrollback buffer (no alternate screen). Jobs form a tree;
// each job renders a template with spinner, progress bar, and metric
// functions, and a background goroutine repaints the region on demand.
//
// A minimal use:
//
//	job := progress.NewJob().Prop("message", "downloading").Start()
//	// ... work, calling job.ProgressCurrent / job.Message ...
//	job.SetStatus(progress.StatusDone)
//	progress.Stop()
//
// Output falls back to one-line-per-update text mode on non-interactive
// terminals, and everything can be disabled with SPOOL_NO_PROGRESS=1.
package progress

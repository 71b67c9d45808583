package progress

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/charmbracelet/x/ansi"
)

// Frame tracing writes one JSON line per drawn frame when SPOOL_TRACE_LOG
// names a file. ANSI sequences are stripped from the rendered text unless
// SPOOL_TRACE_RAW is set.

type jobSnapshot struct {
	ID       int64         `json:"id"`
	Status   string        `json:"status"`
	Message  *string       `json:"message"`
	Progress *[2]int       `json:"progress"`
	Children []jobSnapshot `json:"children"`
}

type frameEvent struct {
	Rendered string        `json:"rendered"`
	Jobs     []jobSnapshot `json:"jobs"`
}

type traceWriter struct {
	mu       sync.Mutex
	f        *os.File
	keepANSI bool
}

var traceLog = sync.OnceValue(func() *traceWriter {
	path := os.Getenv("SPOOL_TRACE_LOG")
	if path == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil
	}
	return &traceWriter{f: f, keepANSI: os.Getenv("SPOOL_TRACE_RAW") != ""}
})

func snapshotJob(j *Job) jobSnapshot {
	j.mu.Lock()
	status := j.status.String()
	var msg *string
	if m, ok := j.props["message"].(string); ok {
		msg = &m
	}
	j.mu.Unlock()

	snap := jobSnapshot{
		ID:       j.id,
		Status:   status,
		Message:  msg,
		Children: []jobSnapshot{},
	}
	if cur, total, ok := j.progress(); ok {
		snap.Progress = &[2]int{cur, total}
	}
	for _, c := range j.Children() {
		snap.Children = append(snap.Children, snapshotJob(c))
	}
	return snap
}

func logFrame(rendered string, jobs []*Job) {
	w := traceLog()
	if w == nil {
		return
	}
	if !w.keepANSI {
		rendered = ansi.Strip(rendered)
	}
	snaps := make([]jobSnapshot, 0, len(jobs))
	for _, j := range jobs {
		snaps = append(snaps, snapshotJob(j))
	}
	data, err := json.Marshal(frameEvent{Rendered: rendered, Jobs: snaps})
	if err != nil {
		return
	}
	w.mu.Lock()
	_, _ = w.f.Write(append(data, '\n'))
	w.mu.Unlock()
}

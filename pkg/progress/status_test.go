package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusIsActive(t *testing.T) {
	assert.True(t, StatusRunning.IsActive())
	assert.True(t, RunningCustom("→").IsActive())

	assert.False(t, StatusHide.IsActive())
	assert.False(t, StatusPending.IsActive())
	assert.False(t, StatusDone.IsActive())
	assert.False(t, DoneCustom("★").IsActive())
	assert.False(t, StatusWarn.IsActive())
	assert.False(t, StatusFailed.IsActive())
}

func TestStatusIsTerminalForDisplay(t *testing.T) {
	assert.True(t, StatusDone.isTerminalForDisplay())
	assert.True(t, DoneCustom("★").isTerminalForDisplay())
	assert.True(t, StatusWarn.isTerminalForDisplay())
	assert.True(t, StatusFailed.isTerminalForDisplay())

	assert.False(t, StatusHide.isTerminalForDisplay())
	assert.False(t, StatusPending.isTerminalForDisplay())
	assert.False(t, StatusRunning.isTerminalForDisplay())
	assert.False(t, RunningCustom("→").isTerminalForDisplay())
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "hide", StatusHide.String())
	assert.Equal(t, "pending", StatusPending.String())
	assert.Equal(t, "running", StatusRunning.String())
	assert.Equal(t, "done", StatusDone.String())
	assert.Equal(t, "warn", StatusWarn.String())
	assert.Equal(t, "failed", StatusFailed.String())

	// Custom glyph statuses report the underlying kind.
	assert.Equal(t, "running", RunningCustom("→").String())
	assert.Equal(t, "done", DoneCustom("★").String())
}

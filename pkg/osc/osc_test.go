package osc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateValues(t *testing.T) {
	// The numeric values are part of the OSC 9;4 wire format.
	assert.Equal(t, 0, int(StateNone))
	assert.Equal(t, 1, int(StateNormal))
	assert.Equal(t, 2, int(StateError))
	assert.Equal(t, 3, int(StateIndeterminate))
	assert.Equal(t, 4, int(StateWarning))
}

func TestConfigure(t *testing.T) {
	defer Configure(true)

	assert.True(t, Enabled())
	Configure(false)
	assert.False(t, Enabled())
	Configure(true)
	assert.True(t, Enabled())
}

func TestSetProgressWhileDisabled(t *testing.T) {
	defer Configure(true)
	Configure(false)

	// Must be safe to call no matter the environment.
	SetProgress(StateNormal, 50)
	SetProgress(StateError, 150)
	SetProgress(StateWarning, -10)
	ClearProgress()
}

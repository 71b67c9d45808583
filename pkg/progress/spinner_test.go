package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpinnerFrame(t *testing.T) {
	frames := spinners["line"].frames

	assert.Equal(t, frames[0], spinnerFrame("line", 0))
	assert.Equal(t, frames[0], spinnerFrame("line", 199))
	assert.Equal(t, frames[1], spinnerFrame("line", 200))
	assert.Equal(t, frames[3], spinnerFrame("line", 799))

	// Animation wraps around.
	assert.Equal(t, frames[0], spinnerFrame("line", 800))
}

func TestSpinnerFrameUnknownName(t *testing.T) {
	def := spinners[defaultSpinner]
	assert.Equal(t, def.frames[0], spinnerFrame("no-such-spinner", 0))
	assert.Equal(t, def.frames[1], spinnerFrame("no-such-spinner", def.frameMS))
}

func TestSpinnerFrameSlowSpinners(t *testing.T) {
	// Emoji spinners run at half speed.
	frames := spinners["globe"].frames
	assert.Equal(t, frames[0], spinnerFrame("globe", 399))
	assert.Equal(t, frames[1], spinnerFrame("globe", 400))
}

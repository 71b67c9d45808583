package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestBuilderDefaults(t *testing.T) {
	j := NewJob().Build()

	assert.Equal(t, StatusRunning, j.statusSnapshot())
	assert.True(t, j.IsRunning())
	assert.Equal(t, defaultBody, j.body)
	assert.Equal(t, DoneKeep, j.onDone)

	_, _, ok := j.progress()
	assert.False(t, ok)
}

func TestBuilderProgressSeedsProps(t *testing.T) {
	j := NewJob().ProgressCurrent(3).ProgressTotal(10).Prop("message", "hi").Build()

	cur, total, ok := j.progress()
	require.True(t, ok)
	assert.Equal(t, 3, cur)
	assert.Equal(t, 10, total)
	assert.Equal(t, 3, j.props["cur"])
	assert.Equal(t, 10, j.props["total"])
	assert.Equal(t, "hi", j.props["message"])
}

func TestProgressCurrentClampsToTotal(t *testing.T) {
	j := NewJob().ProgressTotal(10).Build()
	j.ProgressCurrent(15)

	cur, total, ok := j.progress()
	require.True(t, ok)
	assert.Equal(t, 10, cur)
	assert.Equal(t, 10, total)
}

func TestProgressTotalNeverBelowCurrent(t *testing.T) {
	j := NewJob().ProgressCurrent(8).Build()
	j.ProgressTotal(5)

	cur, total, ok := j.progress()
	require.True(t, ok)
	assert.Equal(t, 8, cur)
	assert.Equal(t, 8, total)
}

func TestIncrement(t *testing.T) {
	j := NewJob().ProgressTotal(10).Build()
	j.Increment(4)
	j.Increment(4)
	j.Increment(4)

	cur, total, ok := j.progress()
	require.True(t, ok)
	assert.Equal(t, 10, cur, "increments clamp to the total")
	assert.Equal(t, 10, total)
}

func TestConcurrentIncrements(t *testing.T) {
	j := NewJob().ProgressTotal(1000).Build()

	var g errgroup.Group
	for range 10 {
		g.Go(func() error {
			for range 100 {
				j.Increment(1)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	cur, total, ok := j.progress()
	require.True(t, ok)
	assert.Equal(t, 1000, cur)
	assert.Equal(t, 1000, total)
}

func TestOverallProgressRaw(t *testing.T) {
	j := NewJob().ProgressCurrent(3).ProgressTotal(12).Build()

	cur, total, ok := j.OverallProgress()
	require.True(t, ok)
	assert.Equal(t, 3, cur)
	assert.Equal(t, 12, total)
}

func TestOverallProgressNone(t *testing.T) {
	j := NewJob().Build()
	_, _, ok := j.OverallProgress()
	assert.False(t, ok)
}

func TestOverallProgressOperations(t *testing.T) {
	j := NewJob().Build()
	j.StartOperations(4)

	// No counters yet: one completed operation out of four.
	j.NextOperation()
	cur, total, ok := j.OverallProgress()
	require.True(t, ok)
	assert.Equal(t, overallScale/4, cur)
	assert.Equal(t, overallScale, total)

	// Halfway through the second operation.
	j.ProgressTotal(100)
	j.ProgressCurrent(50)
	cur, total, ok = j.OverallProgress()
	require.True(t, ok)
	assert.Equal(t, overallScale/4+overallScale/8, cur)
	assert.Equal(t, overallScale, total)
}

func TestOverallProgressCompletesOddOperationCounts(t *testing.T) {
	// Three operations do not divide the scale evenly; completing every
	// stage must still land exactly on the scale, not one short of it.
	j := NewJob().Build()
	j.StartOperations(3)
	for i := range 3 {
		if i > 0 {
			j.NextOperation()
		}
		j.ProgressTotal(10)
		j.ProgressCurrent(10)
	}

	cur, total, ok := j.OverallProgress()
	require.True(t, ok)
	assert.Equal(t, overallScale, cur)
	assert.Equal(t, overallScale, total)
}

func TestOverallProgressNeverExceedsScale(t *testing.T) {
	j := NewJob().Build()
	j.StartOperations(2)
	j.NextOperation()
	j.NextOperation()
	j.NextOperation()

	cur, total, ok := j.OverallProgress()
	require.True(t, ok)
	assert.Equal(t, overallScale, cur)
	assert.Equal(t, overallScale, total)
}

func TestNextOperationResetsCounters(t *testing.T) {
	j := NewJob().ProgressCurrent(5).ProgressTotal(10).Build()
	j.StartOperations(2)
	j.NextOperation()

	_, _, ok := j.progress()
	assert.False(t, ok)
	assert.NotContains(t, j.props, "cur")
	assert.NotContains(t, j.props, "total")

	_, hasRate := j.rateSnapshot()
	assert.False(t, hasRate)
}

func TestUpdateRateSmoothing(t *testing.T) {
	j := NewJob().Build()
	now := time.Now()

	// First sample only primes the estimator.
	j.hasLast = true
	j.lastValue = 0
	j.lastTime = now.Add(-time.Second)
	j.updateRateLocked(10)
	rate, ok := j.rateSnapshot()
	require.True(t, ok)
	assert.InDelta(t, 10.0, rate, 0.5)

	// Further samples are exponentially smoothed.
	j.lastValue = 10
	j.lastTime = time.Now().Add(-time.Second)
	j.updateRateLocked(30)
	rate, ok = j.rateSnapshot()
	require.True(t, ok)
	assert.InDelta(t, 0.1*20+0.9*10, rate, 0.5)
}

func TestUpdateRateIgnoresBackwardsProgress(t *testing.T) {
	j := NewJob().Build()
	j.hasLast = true
	j.lastValue = 50
	j.lastTime = time.Now().Add(-time.Second)

	j.updateRateLocked(40)
	_, ok := j.rateSnapshot()
	assert.False(t, ok)
}

func TestUpdateRateDebounces(t *testing.T) {
	j := NewJob().Build()
	j.hasLast = true
	j.lastValue = 0
	j.lastTime = time.Now()

	// Samples within the debounce window are dropped.
	j.updateRateLocked(100)
	_, ok := j.rateSnapshot()
	assert.False(t, ok)
}

func TestAddRemoveChildren(t *testing.T) {
	parent := NewJob().Build()
	a := NewJob().Build()
	b := NewJob().Build()

	parent.Add(a)
	parent.Add(b)
	require.Len(t, parent.Children(), 2)

	a.Remove()
	children := parent.Children()
	require.Len(t, children, 1)
	assert.Equal(t, b.id, children[0].id)
}

func TestChildFallsBackToParentDisplay(t *testing.T) {
	d := NewDisplay(newMockTerminal(24, 80))
	parent := NewJob().Build()
	parent.disp.Store(d)

	child := NewJob().Build()
	child.parent = parent
	assert.Same(t, d, child.display())
}

func TestSetStatusSameIsNoop(t *testing.T) {
	j := NewJob().Build()
	j.SetStatus(StatusRunning)
	assert.True(t, j.IsRunning())

	j.SetStatus(StatusDone)
	assert.False(t, j.IsRunning())
	assert.Equal(t, StatusDone, j.statusSnapshot())
}

func TestShouldDisplay(t *testing.T) {
	j := NewJob().Build()
	assert.True(t, j.shouldDisplay())

	j.SetStatus(StatusHide)
	assert.False(t, j.shouldDisplay())

	hidden := NewJob().OnDone(DoneHide).Build()
	assert.True(t, hidden.shouldDisplay(), "still running")
	hidden.SetStatus(StatusDone)
	assert.False(t, hidden.shouldDisplay())
}

func TestShouldDisplayChildren(t *testing.T) {
	j := NewJob().OnDone(DoneCollapse).Build()
	assert.True(t, j.shouldDisplayChildren())

	j.SetStatus(StatusDone)
	assert.False(t, j.shouldDisplayChildren())

	keep := NewJob().Build()
	keep.SetStatus(StatusDone)
	assert.True(t, keep.shouldDisplayChildren())
}

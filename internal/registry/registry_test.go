package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunarfall/swarmd/internal/geometry"
)

var testMonitor = geometry.Rect{X: 0, Y: 0, W: 1920, H: 1080}

func TestRegisterAssignsOrderAndCount(t *testing.T) {
	g := New()

	a := NewRecord(testMonitor, false, 1, 1.0)
	b := NewRecord(testMonitor, false, 1, 1.0)
	c := NewRecord(testMonitor, false, 1, 1.0)

	assert.Equal(t, 1, g.Register(a))
	assert.Equal(t, 2, g.Register(b))
	assert.Equal(t, 3, g.Register(c))

	assert.Equal(t, 1, a.Seq)
	assert.Equal(t, 2, b.Seq)
	assert.Equal(t, 3, c.Seq)
	assert.Equal(t, 3, g.Count())
	assert.NotEqual(t, a.ID, b.ID)
}

func TestUnregisterExactlyOnce(t *testing.T) {
	g := New()
	rec := NewRecord(testMonitor, false, 1, 1.0)
	g.Register(rec)

	assert.True(t, g.Unregister(rec))
	assert.Equal(t, 0, g.Count())
	assert.False(t, g.Unregister(rec), "second unregister must be a no-op")
	assert.Equal(t, 0, g.Count())
}

func TestSeqKeepsGrowingAfterRemoval(t *testing.T) {
	g := New()

	a := NewRecord(testMonitor, false, 1, 1.0)
	g.Register(a)
	g.Unregister(a)

	b := NewRecord(testMonitor, false, 1, 1.0)
	idx := g.Register(b)
	assert.Equal(t, 1, idx, "live count restarts")
	assert.Equal(t, 2, b.Seq, "insertion number does not")
}

func TestSnapshotExcludesSelfAndCopies(t *testing.T) {
	g := New()

	a := NewRecord(testMonitor, false, 1, 1.0)
	a.SetRect(geometry.Rect{X: 10, Y: 10, W: 100, H: 100})
	b := NewRecord(testMonitor, false, 1, 1.0)
	b.SetRect(geometry.Rect{X: 500, Y: 500, W: 200, H: 200})
	g.Register(a)
	g.Register(b)

	snap := g.Snapshot(b)
	require.Len(t, snap, 1)
	assert.Equal(t, geometry.Rect{X: 10, Y: 10, W: 100, H: 100}, snap[0])

	// Later movement must not retroactively change the snapshot.
	a.SetRect(geometry.Rect{X: 900, Y: 900, W: 100, H: 100})
	assert.Equal(t, geometry.Rect{X: 10, Y: 10, W: 100, H: 100}, snap[0])
}

func TestClicksOnlyDecrease(t *testing.T) {
	rec := NewRecord(testMonitor, false, 3, 1.0)

	assert.Equal(t, 3, rec.ClicksRemaining())
	assert.Equal(t, 2, rec.DecrementClicks())
	assert.Equal(t, 1, rec.DecrementClicks())
	assert.Equal(t, 0, rec.DecrementClicks())
}

func TestClicksClampToAtLeastOne(t *testing.T) {
	rec := NewRecord(testMonitor, false, 0, 1.0)
	assert.Equal(t, 1, rec.ClicksRemaining())
}

func TestConcurrentRegisterUnregisterSnapshot(t *testing.T) {
	g := New()
	var wg sync.WaitGroup

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				rec := NewRecord(testMonitor, false, 1, 1.0)
				rec.SetRect(geometry.Rect{X: j, Y: j, W: 50, H: 50})
				g.Register(rec)
				_ = g.Snapshot(rec)
				rec.SetRect(geometry.Rect{X: j + 1, Y: j, W: 50, H: 50})
				require.True(t, g.Unregister(rec))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, g.Count())
}

func TestStateTransitions(t *testing.T) {
	rec := NewRecord(testMonitor, true, 1, 0.8)

	assert.Equal(t, StateCreated, rec.State())
	rec.SetState(StateActive)
	assert.Equal(t, StateActive, rec.State())
	assert.Equal(t, "active", rec.State().String())
	assert.True(t, rec.Denial)
	assert.InDelta(t, 0.8, rec.Opacity(), 1e-9)
}

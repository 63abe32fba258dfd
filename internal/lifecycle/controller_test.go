package lifecycle

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunarfall/swarmd/internal/geometry"
	"github.com/lunarfall/swarmd/internal/random"
	"github.com/lunarfall/swarmd/internal/registry"
)

var testMonitor = geometry.Rect{X: 0, Y: 0, W: 1920, H: 1080}

// fakeWindow records applied geometry and opacity, mimicking the GTK
// facade's destroyed-window no-op contract.
type fakeWindow struct {
	mu        sync.Mutex
	rects     []geometry.Rect
	opacities []float64
	destroyed atomic.Bool
}

func (w *fakeWindow) ApplyGeometry(r geometry.Rect) {
	if w.destroyed.Load() {
		return
	}
	w.mu.Lock()
	w.rects = append(w.rects, r)
	w.mu.Unlock()
}

func (w *fakeWindow) ApplyOpacity(v float64) {
	if w.destroyed.Load() {
		return
	}
	w.mu.Lock()
	w.opacities = append(w.opacities, v)
	w.mu.Unlock()
}

func (w *fakeWindow) Destroy() { w.destroyed.Store(true) }

func (w *fakeWindow) appliedRects() []geometry.Rect {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]geometry.Rect, len(w.rects))
	copy(out, w.rects)
	return out
}

func (w *fakeWindow) appliedOpacities() []float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]float64, len(w.opacities))
	copy(out, w.opacities)
	return out
}

type testFixture struct {
	reg  *registry.Registry
	rec  *registry.Record
	win  *fakeWindow
	ctrl *Controller

	closes    atomic.Int32
	blacklist atomic.Int32
	mitosis   atomic.Int32
	webOpens  atomic.Int32
}

func newFixture(t *testing.T, clicks int, opts Options) *testFixture {
	t.Helper()

	f := &testFixture{
		reg: registry.New(),
		win: &fakeWindow{},
	}
	f.rec = registry.NewRecord(testMonitor, false, clicks, 1.0)
	f.reg.Register(f.rec)
	f.rec.SetRect(geometry.Rect{X: 760, Y: 390, W: 400, H: 300})
	f.rec.SetState(registry.StatePlaced)

	hooks := Hooks{
		Blacklist: func() { f.blacklist.Add(1) },
		Mitosis:   func() { f.mitosis.Add(1) },
		OpenWeb:   func() { f.webOpens.Add(1) },
		OnClose:   func() { f.closes.Add(1) },
	}
	f.ctrl = New(f.rec, f.reg, f.win, opts, hooks, random.NewSeeded(11, 13), nil)
	return f
}

func TestClickCountdownClosesExactlyOnce(t *testing.T) {
	f := newFixture(t, 3, Options{})
	f.ctrl.Start()

	f.ctrl.Click(false)
	assert.Equal(t, registry.StateActive, f.rec.State())
	assert.Equal(t, 1, f.reg.Count())

	f.ctrl.Click(false)
	assert.Equal(t, 1, f.reg.Count())

	f.ctrl.Click(false)
	assert.Equal(t, registry.StateClosed, f.rec.State())
	assert.Equal(t, 0, f.reg.Count())
	assert.True(t, f.win.destroyed.Load())
	assert.Equal(t, int32(1), f.closes.Load())
	assert.Equal(t, int32(1), f.webOpens.Load())
	assert.Equal(t, int32(0), f.blacklist.Load())

	// Clicks after close are ignored.
	f.ctrl.Click(false)
	assert.Equal(t, int32(1), f.closes.Load())
}

func TestCloseIsIdempotent(t *testing.T) {
	f := newFixture(t, 1, Options{})
	f.ctrl.Start()

	f.ctrl.Close(ReasonShutdown)
	f.ctrl.Close(ReasonShutdown)
	f.ctrl.Close(ReasonTimeout)

	assert.Equal(t, 0, f.reg.Count())
	assert.Equal(t, int32(1), f.closes.Load(), "close callback must fire exactly once")
	assert.Equal(t, int32(1), f.webOpens.Load())
	assert.Equal(t, registry.StateClosed, f.rec.State())
}

func TestBlacklistFiresOnModifiedClosingClick(t *testing.T) {
	f := newFixture(t, 2, Options{})
	f.ctrl.Start()

	f.ctrl.Click(true)
	assert.Equal(t, int32(0), f.blacklist.Load(), "non-closing click must not blacklist")

	f.ctrl.Click(true)
	assert.Equal(t, int32(1), f.blacklist.Load())
	assert.Equal(t, int32(1), f.closes.Load())
}

func TestMitosisFiresOnlyOnClickClose(t *testing.T) {
	f := newFixture(t, 1, Options{Mitosis: true})
	f.ctrl.Start()
	f.ctrl.Click(false)
	assert.Equal(t, int32(1), f.mitosis.Load())

	f2 := newFixture(t, 1, Options{Mitosis: true})
	f2.ctrl.Start()
	f2.ctrl.Close(ReasonTimeout)
	assert.Equal(t, int32(0), f2.mitosis.Load(), "timeout close must not trigger mitosis")

	f3 := newFixture(t, 1, Options{Mitosis: false})
	f3.ctrl.Start()
	f3.ctrl.Click(false)
	assert.Equal(t, int32(0), f3.mitosis.Load(), "mitosis disabled")
}

func TestAdvanceReflectsAtWalls(t *testing.T) {
	mon := geometry.Rect{X: 0, Y: 0, W: 1000, H: 800}
	r := geometry.Rect{X: 980, Y: 100, W: 50, H: 50}

	r2, vx, vy := advance(r, mon, 10, 5)
	assert.Equal(t, 950, r2.X, "clamped to the right wall")
	assert.Equal(t, -10, vx, "vx flips at the right wall")
	assert.Equal(t, 5, vy, "vy untouched")
	assert.True(t, r2.In(mon))

	r3, vx, vy := advance(geometry.Rect{X: 3, Y: 795, W: 50, H: 50}, mon, -10, 10)
	assert.Equal(t, 0, r3.X)
	assert.Equal(t, 750, r3.Y)
	assert.Equal(t, 10, vx)
	assert.Equal(t, -10, vy)
	assert.True(t, r3.In(mon))
}

func TestAdvanceNeverEscapesOverManySteps(t *testing.T) {
	mon := geometry.Rect{X: 100, Y: 100, W: 640, H: 480}
	r := geometry.Rect{X: 300, Y: 200, W: 120, H: 90}
	vx, vy := 7, -13

	flips := 0
	for i := 0; i < 5000; i++ {
		prevVx := vx
		r, vx, vy = advance(r, mon, vx, vy)
		require.True(t, r.In(mon), "step %d escaped: %+v", i, r)
		if vx != prevVx {
			flips++
			// A flip only happens at a wall.
			touching := r.X == mon.X || r.Right() == mon.Right()
			assert.True(t, touching, "vx flipped away from any wall at step %d", i)
		}
	}
	assert.Greater(t, flips, 0, "movement should have bounced at least once")
}

func TestMovementStopsOnClose(t *testing.T) {
	f := newFixture(t, 1, Options{
		MoveEnabled:  true,
		MoveSpeed:    5,
		MoveInterval: time.Millisecond,
	})
	f.ctrl.Start()

	// Let it move a bit, then close and verify applications stop.
	assert.Eventually(t, func() bool {
		return len(f.win.appliedRects()) > 3
	}, time.Second, time.Millisecond)

	f.ctrl.Close(ReasonShutdown)
	n := len(f.win.appliedRects())
	time.Sleep(20 * time.Millisecond)
	assert.LessOrEqual(t, len(f.win.appliedRects()), n+1, "movement must stop after close")

	for _, r := range f.win.appliedRects() {
		assert.True(t, r.In(testMonitor))
	}
}

func TestFadeClosesAfterOpacityReachesZero(t *testing.T) {
	f := newFixture(t, 1, Options{
		Timeout:      5 * time.Millisecond,
		FadeInterval: time.Millisecond,
		FadeStep:     0.2,
	})
	f.ctrl.Start()

	assert.Eventually(t, func() bool {
		return f.rec.State() == registry.StateClosed
	}, time.Second, time.Millisecond)

	ops := f.win.appliedOpacities()
	require.NotEmpty(t, ops)
	for i := 1; i < len(ops); i++ {
		assert.Less(t, ops[i], ops[i-1], "opacity must strictly decrease")
	}
	assert.Zero(t, ops[len(ops)-1])
	assert.Equal(t, int32(1), f.closes.Load())
}

func TestManualCloseStopsFade(t *testing.T) {
	f := newFixture(t, 1, Options{
		Timeout:      2 * time.Millisecond,
		FadeInterval: time.Millisecond,
		FadeStep:     0.001,
	})
	f.ctrl.Start()

	// Wait until the fade has started ticking, then close by click.
	assert.Eventually(t, func() bool {
		return len(f.win.appliedOpacities()) > 2
	}, time.Second, time.Millisecond)

	f.ctrl.Click(false)
	assert.Equal(t, registry.StateClosed, f.rec.State())

	n := len(f.win.appliedOpacities())
	time.Sleep(20 * time.Millisecond)
	assert.LessOrEqual(t, len(f.win.appliedOpacities()), n+1, "fade must stop after manual close")
	assert.Equal(t, int32(1), f.closes.Load())
}

func TestPumpScareOverridesTimeoutFade(t *testing.T) {
	f := newFixture(t, 1, Options{
		Timeout:        time.Millisecond,
		FadeInterval:   time.Millisecond,
		PumpScare:      true,
		PumpScareDelay: 5 * time.Millisecond,
	})
	f.ctrl.Start()

	assert.Eventually(t, func() bool {
		return f.rec.State() == registry.StateClosed
	}, time.Second, time.Millisecond)

	assert.Empty(t, f.win.appliedOpacities(), "pump scare must suppress the fade")
	assert.Equal(t, int32(1), f.closes.Load())
}

func TestPumpScareCancelledByManualClose(t *testing.T) {
	f := newFixture(t, 1, Options{
		PumpScare:      true,
		PumpScareDelay: time.Hour,
	})
	f.ctrl.Start()

	f.ctrl.Click(false)
	assert.Equal(t, registry.StateClosed, f.rec.State())
	assert.Equal(t, int32(1), f.closes.Load())

	select {
	case <-f.ctrl.Done():
	default:
		t.Fatal("controller context must be cancelled after close")
	}
}

func TestConcurrentClicksCloseOnce(t *testing.T) {
	f := newFixture(t, 5, Options{})
	f.ctrl.Start()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.ctrl.Click(false)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), f.closes.Load())
	assert.Equal(t, 0, f.reg.Count())
}

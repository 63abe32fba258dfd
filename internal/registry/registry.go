// Package registry tracks the ordered set of live popups. It is the
// only structure shared across every popup's lifecycle controller, so
// all mutation goes through a single mutex and reads hand out copies
// that stay valid while the live set keeps changing underneath.
package registry

import (
	"sync"
	"sync/atomic"

	"github.com/oklog/ulid/v2"

	"github.com/lunarfall/swarmd/internal/geometry"
)

// State is a popup's lifecycle state.
type State int32

const (
	StateCreated State = iota
	StatePlaced
	StateActive
	StateClosing
	StateClosed
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StatePlaced:
		return "placed"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Record is the shared state of one live popup. The lifecycle
// controller owns it; the registry and other popups' placement queries
// only read it. Geometry and opacity are guarded by the record's own
// mutex since movement and fade run on separate goroutines.
type Record struct {
	// ID is a ULID assigned at creation, used in logs.
	ID string
	// Seq is the monotonically increasing insertion number.
	Seq int
	// Monitor is the display region the popup was placed on. Immutable.
	Monitor geometry.Rect
	// Denial marks the popup's denial content treatment. Immutable.
	Denial bool

	mu      sync.Mutex
	rect    geometry.Rect
	opacity float64

	clicksRemaining atomic.Int32
	state           atomic.Int32
}

// NewRecord creates a record for a popup about to be registered.
func NewRecord(monitor geometry.Rect, denial bool, clicksToClose int, opacity float64) *Record {
	if clicksToClose < 1 {
		clicksToClose = 1
	}
	r := &Record{
		ID:      ulid.Make().String(),
		Monitor: monitor,
		Denial:  denial,
	}
	r.clicksRemaining.Store(int32(clicksToClose))
	r.opacity = opacity
	return r
}

// Rect returns the popup's current rectangle.
func (r *Record) Rect() geometry.Rect {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rect
}

// SetRect updates the popup's rectangle.
func (r *Record) SetRect(rect geometry.Rect) {
	r.mu.Lock()
	r.rect = rect
	r.mu.Unlock()
}

// Opacity returns the popup's current opacity.
func (r *Record) Opacity() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opacity
}

// SetOpacity updates the popup's opacity.
func (r *Record) SetOpacity(v float64) {
	r.mu.Lock()
	r.opacity = v
	r.mu.Unlock()
}

// DecrementClicks atomically consumes one click and returns the number
// of clicks still required. The counter only ever decreases.
func (r *Record) DecrementClicks() int {
	return int(r.clicksRemaining.Add(-1))
}

// ClicksRemaining returns the current click counter.
func (r *Record) ClicksRemaining() int {
	return int(r.clicksRemaining.Load())
}

// State returns the popup's lifecycle state.
func (r *Record) State() State {
	return State(r.state.Load())
}

// SetState updates the popup's lifecycle state.
func (r *Record) SetState(s State) {
	r.state.Store(int32(s))
}

// Registry is the process-wide ordered collection of live popups.
type Registry struct {
	mu      sync.Mutex
	records []*Record
	nextSeq int
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{}
}

// Register adds a record to the live set, assigns its insertion number
// and returns the live count including the new record. The new popup
// counts itself when its own placement is scored, so registration
// happens before placement.
func (g *Registry) Register(rec *Record) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextSeq++
	rec.Seq = g.nextSeq
	g.records = append(g.records, rec)
	return len(g.records)
}

// Unregister removes a record from the live set. It reports whether
// the record was present, so a double close can be detected by the
// caller; removing an absent record is a no-op.
func (g *Registry) Unregister(rec *Record) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i, r := range g.records {
		if r == rec {
			g.records = append(g.records[:i], g.records[i+1:]...)
			return true
		}
	}
	return false
}

// Count returns the number of live popups.
func (g *Registry) Count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.records)
}

// Snapshot returns a stable copy of the current rectangles of every
// live popup except exclude, in insertion order. The copy stays valid
// while other controllers register, move and unregister popups.
func (g *Registry) Snapshot(exclude *Record) []geometry.Rect {
	g.mu.Lock()
	records := make([]*Record, 0, len(g.records))
	for _, r := range g.records {
		if r != exclude {
			records = append(records, r)
		}
	}
	g.mu.Unlock()

	// Per-record locks are taken outside the registry lock so a busy
	// mover never stalls registration of new popups.
	rects := make([]geometry.Rect, len(records))
	for i, r := range records {
		rects[i] = r.Rect()
	}
	return rects
}

// Records returns a stable copy of the live records in insertion
// order, used for close-all style sweeps.
func (g *Registry) Records() []*Record {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*Record, len(g.records))
	copy(out, g.records)
	return out
}

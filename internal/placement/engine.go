// Package placement computes screen positions for new popups, biased
// away from the popups that are already on screen.
package placement

import (
	"log/slog"
	"math"

	"github.com/lunarfall/swarmd/internal/geometry"
	"github.com/lunarfall/swarmd/internal/random"
)

// Corner identifies a lowkey-mode anchor corner.
type Corner int

const (
	CornerTopLeft Corner = iota
	CornerTopRight
	CornerBottomLeft
	CornerBottomRight
	// CornerRandom picks one of the four corners uniformly at placement
	// time; the choice is fixed for the popup's lifetime.
	CornerRandom
)

const (
	// cellSide is the grid cell edge used to quantize the placement
	// area. Scoring every pixel individually is needless work.
	cellSide = 50

	// overlapBias scales the exponent of the anti-overlap term. The
	// exponential collapses toward 1 for fully overlapping candidates
	// and explodes as the overlap shrinks, so non-overlapping cells
	// dominate the draw while squared center distance breaks ties
	// among them.
	overlapBias = 32
)

// Engine computes popup sizes and positions. All randomness comes from
// the injected source, so placement is reproducible under a seeded one.
type Engine struct {
	rng    *random.Source
	logger *slog.Logger
}

// NewEngine creates a placement engine backed by the given source.
func NewEngine(rng *random.Source, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{rng: rng, logger: logger}
}

// Place computes the rectangle for a new popup with source media
// dimensions srcW x srcH on the given monitor. siblings are the
// rectangles of every other live popup; popupIndex is the live popup
// count including the new one. The returned rectangle always lies
// inside the monitor.
func (e *Engine) Place(srcW, srcH int, monitor geometry.Rect, siblings []geometry.Rect, popupIndex int, lowkey bool, corner Corner) geometry.Rect {
	w, h := e.scaleSize(srcW, srcH, monitor, lowkey)

	if lowkey {
		x, y := e.cornerPosition(monitor, w, h, corner)
		return geometry.Rect{X: x, Y: y, W: w, H: h}
	}
	return e.gridPlace(monitor, w, h, siblings, popupIndex)
}

// scaleSize picks the popup size: a random fraction of the monitor's
// smaller edge relative to the media's larger edge, preserving the
// media aspect ratio. Degenerate inputs clamp to a 1x1 minimum and to
// the monitor dimensions.
func (e *Engine) scaleSize(srcW, srcH int, monitor geometry.Rect, lowkey bool) (int, int) {
	if srcW < 1 {
		srcW = 1
	}
	if srcH < 1 {
		srcH = 1
	}

	sourceSize := float64(max(srcW, srcH)) / float64(max(1, min(monitor.W, monitor.H)))

	var target float64
	if lowkey {
		target = float64(e.rng.Between(20, 50)) / 100
	} else {
		target = float64(e.rng.Between(30, 70)) / 100
	}
	scale := target / sourceSize

	w := int(float64(srcW) * scale)
	h := int(float64(srcH) * scale)

	w = min(max(w, 1), monitor.W)
	h = min(max(h, 1), monitor.H)
	return w, h
}

// cornerPosition anchors a w x h popup at the requested monitor corner.
func (e *Engine) cornerPosition(monitor geometry.Rect, w, h int, corner Corner) (int, int) {
	if corner == CornerRandom {
		corner = Corner(e.rng.IntN(4))
	}

	right := corner == CornerTopRight || corner == CornerBottomRight
	bottom := corner == CornerBottomLeft || corner == CornerBottomRight

	x := monitor.X
	if right {
		x = monitor.X + monitor.W - w
	}
	y := monitor.Y
	if bottom {
		y = monitor.Y + monitor.H - h
	}
	return x, y
}

// gridPlace partitions the valid placement area into cellSide-sized
// cells, scores each cell against the sibling rectangles, draws one
// cell with probability proportional to its weight and then picks a
// uniform pixel inside it. The last cell on each axis absorbs the
// division remainder so every valid offset stays reachable.
func (e *Engine) gridPlace(monitor geometry.Rect, w, h int, siblings []geometry.Rect, popupIndex int) geometry.Rect {
	areaW := max(monitor.W-w, 0)
	areaH := max(monitor.H-h, 0)
	cols := max(areaW/cellSide, 1)
	rows := max(areaH/cellSide, 1)

	// The first popup has nothing to avoid; an empty sibling set can
	// also happen when every other popup closed between registration
	// and placement.
	uniform := popupIndex <= 1 || len(siblings) == 0

	weights := make([]float64, cols*rows)
	for cx := 0; cx < cols; cx++ {
		for cy := 0; cy < rows; cy++ {
			i := cx*rows + cy
			if uniform {
				weights[i] = 1
				continue
			}
			cand := geometry.Rect{X: monitor.X + cx*cellSide, Y: monitor.Y + cy*cellSide, W: w, H: h}
			weights[i] = cellWeight(cand, siblings)
		}
	}

	idx := weightedIndex(e.rng, weights)
	cx, cy := idx/rows, idx%rows

	x := monitor.X + e.pickInCell(cx, cols, areaW)
	y := monitor.Y + e.pickInCell(cy, rows, areaH)
	return geometry.Rect{X: x, Y: y, W: w, H: h}
}

// cellWeight scores one candidate rectangle against all siblings. A
// cell is only as good as its single worst conflict, so the weight is
// the minimum across siblings rather than an aggregate; aggregating
// would let many distant popups outvote one direct overlap.
func cellWeight(cand geometry.Rect, siblings []geometry.Rect) float64 {
	area := float64(max(cand.Area(), 1))
	best := math.Inf(1)
	for _, sib := range siblings {
		nonoverlap := 1 - float64(cand.Intersection(sib))/area
		w := math.Pow(2, overlapBias*nonoverlap) + cand.CenterDistSq(sib)
		if w < best {
			best = w
		}
	}
	return best
}

// pickInCell returns a uniform offset inside grid cell index c. Cells
// normally span cellSide pixels; the final cell absorbs the division
// remainder, stopping one short of the flush-against-edge offset.
func (e *Engine) pickInCell(c, cells, area int) int {
	lo := c * cellSide
	hi := lo + cellSide - 1
	if c == cells-1 {
		hi = area - 1
	}
	if hi < lo {
		hi = lo
	}
	return e.rng.Between(lo, hi)
}

// Package geometry provides the integer pixel rectangles used for popup
// placement and movement.
package geometry

// Rect is an axis-aligned rectangle in screen pixel coordinates.
type Rect struct {
	X, Y, W, H int
}

// Right returns the x coordinate one past the right edge.
func (r Rect) Right() int { return r.X + r.W }

// Bottom returns the y coordinate one past the bottom edge.
func (r Rect) Bottom() int { return r.Y + r.H }

// Area returns the rectangle's area in pixels.
func (r Rect) Area() int { return r.W * r.H }

// Intersection returns the overlap area between r and o, or 0 when the
// rectangles are disjoint.
func (r Rect) Intersection(o Rect) int {
	w := min(r.Right(), o.Right()) - max(r.X, o.X)
	h := min(r.Bottom(), o.Bottom()) - max(r.Y, o.Y)
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// CenterDistSq returns the squared distance between the centers of r and o.
// Centers are taken at half-pixel precision so odd sizes don't bias the
// distance toward one side.
func (r Rect) CenterDistSq(o Rect) float64 {
	dx := float64(r.X) + float64(r.W)/2 - (float64(o.X) + float64(o.W)/2)
	dy := float64(r.Y) + float64(r.H)/2 - (float64(o.Y) + float64(o.H)/2)
	return dx*dx + dy*dy
}

// In reports whether r lies fully inside o.
func (r Rect) In(o Rect) bool {
	return r.X >= o.X && r.Y >= o.Y && r.Right() <= o.Right() && r.Bottom() <= o.Bottom()
}

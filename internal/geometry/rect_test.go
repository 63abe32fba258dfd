package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIntersection(t *testing.T) {
	tests := []struct {
		name string
		a, b Rect
		want int
	}{
		{"identical", Rect{0, 0, 10, 10}, Rect{0, 0, 10, 10}, 100},
		{"disjoint", Rect{0, 0, 10, 10}, Rect{20, 20, 10, 10}, 0},
		{"touching edges", Rect{0, 0, 10, 10}, Rect{10, 0, 10, 10}, 0},
		{"partial overlap", Rect{0, 0, 10, 10}, Rect{5, 5, 10, 10}, 25},
		{"contained", Rect{0, 0, 100, 100}, Rect{10, 10, 5, 5}, 25},
		{"negative origin", Rect{-10, -10, 20, 20}, Rect{0, 0, 20, 20}, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Intersection(tt.b))
			assert.Equal(t, tt.want, tt.b.Intersection(tt.a), "intersection must be symmetric")
		})
	}
}

func TestCenterDistSq(t *testing.T) {
	a := Rect{0, 0, 10, 10}   // center (5,5)
	b := Rect{10, 10, 10, 10} // center (15,15)
	assert.InDelta(t, 200.0, a.CenterDistSq(b), 1e-9)
	assert.InDelta(t, 0.0, a.CenterDistSq(a), 1e-9)

	// Odd sizes use half-pixel centers.
	c := Rect{0, 0, 3, 3} // center (1.5,1.5)
	d := Rect{3, 0, 3, 3} // center (4.5,1.5)
	assert.InDelta(t, 9.0, c.CenterDistSq(d), 1e-9)
}

func TestIn(t *testing.T) {
	mon := Rect{0, 0, 1920, 1080}

	assert.True(t, Rect{0, 0, 100, 100}.In(mon))
	assert.True(t, Rect{1820, 980, 100, 100}.In(mon))
	assert.False(t, Rect{1821, 980, 100, 100}.In(mon))
	assert.False(t, Rect{-1, 0, 100, 100}.In(mon))
	assert.True(t, mon.In(mon))
}

package random

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeededDeterminism(t *testing.T) {
	a := NewSeeded(7, 11)
	b := NewSeeded(7, 11)
	for i := 0; i < 100; i++ {
		assert.Equal(t, a.IntN(1000), b.IntN(1000))
	}
}

func TestRollBounds(t *testing.T) {
	s := NewSeeded(1, 2)
	for i := 0; i < 50; i++ {
		assert.False(t, s.Roll(0))
		assert.False(t, s.Roll(-5))
		assert.True(t, s.Roll(100))
		assert.True(t, s.Roll(150))
	}
}

func TestRollFrequency(t *testing.T) {
	s := NewSeeded(3, 4)
	hits := 0
	const trials = 10000
	for i := 0; i < trials; i++ {
		if s.Roll(30) {
			hits++
		}
	}
	// 30% +- 3 points is plenty of slack for 10k trials.
	assert.InDelta(t, 0.30, float64(hits)/trials, 0.03)
}

func TestBetween(t *testing.T) {
	s := NewSeeded(5, 6)
	for i := 0; i < 1000; i++ {
		v := s.Between(30, 70)
		assert.GreaterOrEqual(t, v, 30)
		assert.LessOrEqual(t, v, 70)
	}
	assert.Equal(t, 5, s.Between(5, 5))
	assert.Equal(t, 5, s.Between(5, 3))
}

func TestConcurrentUse(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				_ = s.IntN(10)
				_ = s.Roll(50)
			}
		}()
	}
	wg.Wait()
}

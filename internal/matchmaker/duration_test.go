package matchmaker

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTriangularDuration_StaysInBounds(t *testing.T) {
	r := rand.New(rand.NewSource(1))

	for i := 0; i < 1000; i++ {
		d := triangularDuration(r, 30, 300)
		assert.GreaterOrEqual(t, d, 30*time.Second)
		assert.LessOrEqual(t, d, 300*time.Second)
	}
}

func TestTriangularDuration_DegenerateRangeReturnsMin(t *testing.T) {
	r := rand.New(rand.NewSource(1))

	d := triangularDuration(r, 60, 60)
	assert.Equal(t, 60*time.Second, d)
}

func TestTriangularDuration_ClustersNearMode(t *testing.T) {
	r := rand.New(rand.NewSource(42))

	mode := 165.0 // (30+300)/2
	var total float64
	const n = 5000
	for i := 0; i < n; i++ {
		total += triangularDuration(r, 30, 300).Seconds()
	}
	mean := total / n

	assert.InDelta(t, mode, mean, 5)
}

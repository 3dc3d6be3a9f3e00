package kdtree

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistance(t *testing.T) {
	assert.Equal(t, 5.0, Distance(NewPoint(0.0, 0.0), NewPoint(3.0, 4.0)))
	assert.Equal(t, 5.0, Distance(NewPoint(1, 1), NewPoint(4, 5)))
	assert.Equal(t, math.Sqrt(2), Distance(NewPoint[float32](9, 2), NewPoint[float32](8, 1)))
	assert.Equal(t, 0.0, Distance(NewPoint[int8](-7, 3, 1), NewPoint[int8](-7, 3, 1)))
}

func TestDistance_UnsignedDoesNotWrap(t *testing.T) {
	assert.Equal(t, 10.0, Distance(NewPoint[uint8](0), NewPoint[uint8](10)))
	assert.Equal(t, 10.0, Distance(NewPoint[uint8](10), NewPoint[uint8](0)))
}

func TestDistance_SymmetryAndIdentity(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		p := randomPoint(rng, 4, -100, 100)
		q := randomPoint(rng, 4, -100, 100)
		assert.Equal(t, Distance(p, q), Distance(q, p))
		assert.Equal(t, 0.0, Distance(p, p))
		assert.GreaterOrEqual(t, Distance(p, q), 0.0)
	}
}

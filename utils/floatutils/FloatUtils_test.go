package floatutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClip(t *testing.T) {
	assert.Equal(t, 1.0, Clip(5.0, -1.0, 1.0))
	assert.Equal(t, -1.0, Clip(-5.0, -1.0, 1.0))
	assert.Equal(t, 0.5, Clip(0.5, -1.0, 1.0))
}

func TestMaxSlice(t *testing.T) {
	max, indices := MaxSlice([]float64{1, 3, 2})
	assert.Equal(t, 3.0, max)
	assert.Equal(t, []int{1}, indices)

	// Ties report every maximal index
	max, indices = MaxSlice([]float64{4, 1, 4})
	assert.Equal(t, 4.0, max)
	assert.Equal(t, []int{0, 2}, indices)
}

func TestArgMax(t *testing.T) {
	assert.Equal(t, 2, ArgMax(-1, 0, 7, 3))
	assert.Equal(t, 0, ArgMax(5, 5, 1))
}

func TestMinMax(t *testing.T) {
	assert.Equal(t, -2.0, Min(3, -2, 1))
	assert.Equal(t, 3.0, Max(3, -2, 1))
}

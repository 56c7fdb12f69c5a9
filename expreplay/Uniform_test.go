package expreplay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// testEntry returns an entry whose reward identifies it
func testEntry(reward float64, terminal bool) Entry {
	state := mat.NewVecDense(2, []float64{reward, 0})
	next := mat.NewVecDense(2, []float64{reward, 1})
	return NewEntry(state, next, 0, reward, terminal)
}

// rewards collects the reward of every entry in the buffer
func rewards(entries []Entry) []float64 {
	out := make([]float64, len(entries))
	for i, e := range entries {
		out[i] = e.Reward
	}
	return out
}

func TestUniformEvictsOldestAtCapacity(t *testing.T) {
	buffer, err := NewUniform(Params{MaxLen: 3}, 1)
	require.NoError(t, err)

	for i := 1; i <= 4; i++ {
		require.NoError(t, buffer.Add(testEntry(float64(i), false)))
	}

	assert.Equal(t, 3, buffer.Len())
	assert.Equal(t, 3, buffer.Cap())

	// The first entry was evicted to make room for the fourth
	held := rewards(buffer.entries)
	assert.NotContains(t, held, 1.0)
	assert.ElementsMatch(t, []float64{2, 3, 4}, held)
}

func TestUniformSampleInsufficientData(t *testing.T) {
	buffer, err := NewUniform(Params{MaxLen: 10}, 1)
	require.NoError(t, err)

	// Empty buffers cannot serve any batch size
	for _, batchSize := range []int{1, 2, 5} {
		_, err := buffer.Sample(batchSize)
		assert.True(t, IsInsufficientData(err))
	}

	require.NoError(t, buffer.Add(testEntry(1, false)))
	require.NoError(t, buffer.Add(testEntry(2, false)))

	_, err = buffer.Sample(3)
	assert.True(t, IsInsufficientData(err))

	batch, err := buffer.Sample(2)
	require.NoError(t, err)
	assert.Len(t, batch, 2)
}

func TestUniformSamplesWithoutReplacement(t *testing.T) {
	buffer, err := NewUniform(Params{MaxLen: 5}, 1)
	require.NoError(t, err)
	for i := 1; i <= 5; i++ {
		require.NoError(t, buffer.Add(testEntry(float64(i), false)))
	}

	batch, err := buffer.Sample(5)
	require.NoError(t, err)
	assert.ElementsMatch(t, []float64{1, 2, 3, 4, 5}, rewards(batch))
}

func TestUniformClear(t *testing.T) {
	buffer, err := NewUniform(Params{MaxLen: 3}, 1)
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		require.NoError(t, buffer.Add(testEntry(float64(i), false)))
	}

	buffer.Clear()
	assert.Equal(t, 0, buffer.Len())
	assert.Equal(t, 3, buffer.Cap())

	_, err = buffer.Sample(1)
	assert.True(t, IsInsufficientData(err))

	// The buffer is usable again after clearing
	require.NoError(t, buffer.Add(testEntry(9, false)))
	assert.Equal(t, 1, buffer.Len())
}

func TestUniformCapabilities(t *testing.T) {
	buffer, err := NewUniform(Params{MaxLen: 3}, 1)
	require.NoError(t, err)

	caps := buffer.Capabilities()
	assert.False(t, caps.Prioritized)
	assert.Less(t, caps.NStep, 2)
}

func TestUniformParamsValidate(t *testing.T) {
	_, err := NewUniform(Params{MaxLen: 0}, 1)
	assert.Error(t, err)
}

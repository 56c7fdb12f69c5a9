package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	G "gorgonia.org/gorgonia"
)

func TestNewQNetworkValidation(t *testing.T) {
	head := NewLinearFactory(Identity)

	// One activation per hidden layer
	_, err := NewQNetwork(4, 2, 3, []int{8, 8}, []Activation{ReLU},
		G.GlorotU(1.0), false, head)
	assert.Error(t, err)

	_, err = NewQNetwork(0, 2, 3, nil, nil, G.GlorotU(1.0), false, head)
	assert.Error(t, err)
	_, err = NewQNetwork(4, 0, 3, nil, nil, G.GlorotU(1.0), false, head)
	assert.Error(t, err)
	_, err = NewQNetwork(4, 2, 0, nil, nil, G.GlorotU(1.0), false, head)
	assert.Error(t, err)
}

func TestNewQNetworkShape(t *testing.T) {
	net, err := NewQNetwork(4, 2, 3, []int{8}, []Activation{ReLU},
		G.GlorotU(1.0), false, NewLinearFactory(Identity))
	require.NoError(t, err)

	assert.Equal(t, 4, net.Features())
	assert.Equal(t, 2, net.BatchSize())
	assert.Equal(t, 3, net.Outputs())

	// Weights and bias per fully connected layer: one hidden plus the
	// output head
	assert.Len(t, net.Learnables(), 4)
	assert.NotNil(t, net.Prediction())
}

func TestNewQNetworkDuelingHeads(t *testing.T) {
	net, err := NewQNetwork(4, 2, 3, []int{8}, []Activation{ReLU},
		G.GlorotU(1.0), true, NewLinearFactory(Identity))
	require.NoError(t, err)

	// Hidden layer plus separate value and advantage heads
	assert.Len(t, net.Learnables(), 6)
}

func TestQNetworkCloneWithBatch(t *testing.T) {
	net, err := NewQNetwork(4, 32, 3, []int{8}, []Activation{ReLU},
		G.GlorotU(1.0), false, NewLinearFactory(Identity))
	require.NoError(t, err)

	clone, err := net.CloneWithBatch(1)
	require.NoError(t, err)

	assert.Equal(t, 1, clone.BatchSize())
	assert.Equal(t, net.Features(), clone.Features())
	assert.Equal(t, net.Outputs(), clone.Outputs())
	assert.Len(t, clone.Learnables(), len(net.Learnables()))
	assert.NotSame(t, net.Graph(), clone.Graph())

	_, err = net.CloneWithBatch(0)
	assert.Error(t, err)
}

func TestQNetworkSetInputLength(t *testing.T) {
	net, err := NewQNetwork(4, 2, 3, nil, nil, G.GlorotU(1.0), false,
		NewLinearFactory(Identity))
	require.NoError(t, err)

	assert.Error(t, net.SetInput(make([]float64, 3)))
	assert.NoError(t, net.SetInput(make([]float64, 8)))
}

func TestNoisyHeadResetNoise(t *testing.T) {
	net, err := NewQNetwork(4, 2, 3, []int{8}, []Activation{ReLU},
		G.GlorotU(1.0), false, NewNoisyFactory(0.5, 1))
	require.NoError(t, err)

	// A noisy head contributes mean and deviation nodes for weights
	// and bias on top of the plain hidden layer
	assert.Len(t, net.Learnables(), 6)

	resetter, ok := net.(NoiseResetter)
	require.True(t, ok)
	assert.NoError(t, resetter.ResetNoise())
}

func TestResetNoiseWithoutNoisyLayers(t *testing.T) {
	net, err := NewQNetwork(4, 2, 3, nil, nil, G.GlorotU(1.0), false,
		NewLinearFactory(Identity))
	require.NoError(t, err)

	resetter, ok := net.(NoiseResetter)
	require.True(t, ok)
	assert.Error(t, resetter.ResetNoise())
}

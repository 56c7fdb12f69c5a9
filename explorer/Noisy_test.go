package explorer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	G "gorgonia.org/gorgonia"

	"github.com/argmaxrl/argmax/network"
)

func TestNoisyWrapRequiresNoisyModel(t *testing.T) {
	expl, err := NewNoisy(NoisyParams{StdInit: 0.5, ResetNoiseEvery: 4}, 1)
	require.NoError(t, err)

	// A model whose head was built by the explorer's factory is
	// noise capable and passes through the wrapper
	noisy, err := network.NewQNetwork(4, 2, 3, nil, nil, G.GlorotU(1.0),
		false, expl.LayerFactory())
	require.NoError(t, err)

	wrapped, err := expl.Wrap(noisy)
	require.NoError(t, err)
	assert.Equal(t, noisy, wrapped)

	// A plain model silently training without exploration is a
	// configuration error
	plain, err := network.NewQNetwork(4, 2, 3, nil, nil, G.GlorotU(1.0),
		false, network.NewLinearFactory(network.Identity))
	require.NoError(t, err)

	_, err = expl.Wrap(plain)
	assert.Error(t, err)
}

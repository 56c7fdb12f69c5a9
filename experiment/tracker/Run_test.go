package tracker

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRunCreatesLayout(t *testing.T) {
	base := t.TempDir()

	run, err := NewRun(base, "DQN", "Cartpole")
	require.NoError(t, err)

	// {base}/{agent}/{environment}/{date}/{time}
	info, err := os.Stat(run.Dir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	envDir := filepath.Dir(filepath.Dir(run.Dir()))
	assert.Equal(t, "Cartpole", filepath.Base(envDir))
	assert.Equal(t, "DQN", filepath.Base(filepath.Dir(envDir)))
}

func TestSaveInfoWritesAgentSnapshot(t *testing.T) {
	run, err := NewRun(t.TempDir(), "DQN", "Cartpole")
	require.NoError(t, err)

	snapshot := map[string]interface{}{"id": "abc", "gamma": 0.9}
	require.NoError(t, run.SaveInfo(snapshot))

	data, err := os.ReadFile(filepath.Join(run.Dir(), "agent.json"))
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "abc", got["id"])
	assert.Equal(t, 0.9, got["gamma"])
}

func TestSaveCheckpointAccumulatesFiles(t *testing.T) {
	run, err := NewRun(t.TempDir(), "DQN", "Cartpole")
	require.NoError(t, err)

	require.NoError(t, run.SaveCheckpoint(map[string]int{"episode": 0}))
	require.NoError(t, run.SaveCheckpoint(map[string]int{"episode": 1}))

	files, err := os.ReadDir(filepath.Join(run.Dir(), "checkpoints"))
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestReturnTrackerRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "returns.bin")

	tracked := NewReturn(path)
	tracked.Track(1.5)
	tracked.Track(-2.0)
	tracked.Track(3.25)
	require.NoError(t, tracked.Save())

	returns, err := LoadReturns(path)
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, -2.0, 3.25}, returns)
}

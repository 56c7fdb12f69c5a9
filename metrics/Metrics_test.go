package metrics

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONLAppendsOneRecordPerLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.jsonl")

	sink, err := NewJSONL(path)
	require.NoError(t, err)
	require.NoError(t, sink.Scalar("reward", 12.5, 0))
	require.NoError(t, sink.Scalar("epsilon", 0.9, 1))
	require.NoError(t, sink.Close())

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var records []scalarRecord
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var record scalarRecord
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &record))
		records = append(records, record)
	}
	require.NoError(t, scanner.Err())

	require.Len(t, records, 2)
	assert.Equal(t, "reward", records[0].Tag)
	assert.Equal(t, 12.5, records[0].Value)
	assert.Equal(t, 0, records[0].Step)
	assert.Equal(t, "epsilon", records[1].Tag)
}

func TestJSONLAppendsAcrossSinks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.jsonl")

	first, err := NewJSONL(path)
	require.NoError(t, err)
	require.NoError(t, first.Scalar("reward", 1, 0))
	require.NoError(t, first.Close())

	second, err := NewJSONL(path)
	require.NoError(t, err)
	require.NoError(t, second.Scalar("reward", 2, 1))
	require.NoError(t, second.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, countLines(data))
}

func countLines(data []byte) int {
	lines := 0
	for _, b := range data {
		if b == '\n' {
			lines++
		}
	}
	return lines
}

func TestNopDiscards(t *testing.T) {
	sink := Nop()
	assert.NoError(t, sink.Scalar("anything", 1, 0))
	assert.NoError(t, sink.Close())
}

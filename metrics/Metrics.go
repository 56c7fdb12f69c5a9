// Package metrics implements sinks for scalar training metrics
package metrics

import (
	"encoding/json"
	"os"
	"time"

	"github.com/pkg/errors"
)

// Sink records scalar training metrics (episode reward, epsilon, beta)
// emitted by agent callbacks. Implementations are injected into
// agents; the training core never assumes a concrete backend.
type Sink interface {
	// Scalar records a single named value at a training step
	Scalar(tag string, value float64, step int) error

	Close() error
}

// nopSink discards every metric
type nopSink struct{}

// Nop returns a Sink that discards everything written to it
func Nop() Sink {
	return nopSink{}
}

func (nopSink) Scalar(string, float64, int) error { return nil }

func (nopSink) Close() error { return nil }

// scalarRecord is the on-disk form of a single metric value
type scalarRecord struct {
	Tag   string  `json:"tag"`
	Value float64 `json:"value"`
	Step  int     `json:"step"`
	Time  int64   `json:"time"`
}

// jsonlSink appends one JSON object per recorded value to a file
type jsonlSink struct {
	file *os.File
	enc  *json.Encoder
}

// NewJSONL returns a Sink that appends metrics to the file at path,
// one JSON object per line
func NewJSONL(path string) (Sink, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "newjsonl: could not open metrics file")
	}

	return &jsonlSink{file: file, enc: json.NewEncoder(file)}, nil
}

// Scalar records a single named value at a training step
func (j *jsonlSink) Scalar(tag string, value float64, step int) error {
	record := scalarRecord{
		Tag:   tag,
		Value: value,
		Step:  step,
		Time:  time.Now().Unix(),
	}
	return j.enc.Encode(record)
}

// Close flushes and closes the underlying file
func (j *jsonlSink) Close() error {
	return j.file.Close()
}

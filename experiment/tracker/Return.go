package tracker

import (
	"encoding/gob"
	"os"

	"github.com/pkg/errors"
)

// Return tracks the episodic returns seen over a training run and
// saves them to disk with gob for later analysis
type Return struct {
	returns  []float64
	filename string
}

// NewReturn creates and returns a new Return tracker which will save
// the cached episodic returns to the file at filename
func NewReturn(filename string) *Return {
	return &Return{filename: filename}
}

// Track caches the return of a finished episode
func (r *Return) Track(episodeReturn float64) {
	r.returns = append(r.returns, episodeReturn)
}

// Returns gets the episodic returns tracked so far
func (r *Return) Returns() []float64 {
	return r.returns
}

// Save writes the tracked returns to disk
func (r *Return) Save() error {
	file, err := os.Create(r.filename)
	if err != nil {
		return errors.Wrap(err, "save: could not create returns file")
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(r.returns); err != nil {
		return errors.Wrap(err, "save: could not encode returns")
	}
	return nil
}

// LoadReturns reads episodic returns previously saved by a Return
// tracker
func LoadReturns(filename string) ([]float64, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, "loadreturns: could not open file")
	}
	defer file.Close()

	var returns []float64
	if err := gob.NewDecoder(file).Decode(&returns); err != nil {
		return nil, errors.Wrap(err, "loadreturns: could not decode returns")
	}
	return returns, nil
}

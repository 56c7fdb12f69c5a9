package expreplay

import "errors"

// BufferError implements errors unique to an experience replay
// buffer.
type BufferError struct {
	Op  string
	Err error
}

// Error satisfies the error interface
func (e *BufferError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

// Unwrap returns the underlying cause of the BufferError
func (e *BufferError) Unwrap() error {
	return e.Err
}

var errEmptyBuffer error = errors.New("buffer empty")

var errInsufficientData = errors.New("fewer entries than requested batch size")

var errNoPrioritySupport = errors.New("buffer does not support priorities")

// IsInsufficientData returns whether or not an error reports that
// there are too few entries in the buffer to sample a batch from it.
//
// A buffer has too few entries to sample if its current length is less
// than the requested batch size.
func IsInsufficientData(err error) bool {
	if replayErr, ok := err.(*BufferError); ok {
		err = replayErr.Err
	}
	return err == errInsufficientData || err == errEmptyBuffer
}

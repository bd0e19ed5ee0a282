package audio

import (
	"errors"
	"fmt"
)

var (
	// ErrAudioRead is matched by every decode failure.
	ErrAudioRead = errors.New("audio read failed")
	// ErrAudioWrite is matched by every encode failure.
	ErrAudioWrite = errors.New("audio write failed")
)

// ReadError reports a file that could not be read or decoded.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("reading audio %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

func (e *ReadError) Is(target error) bool { return target == ErrAudioRead }

// WriteError reports a destination that could not be written.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("writing audio %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

func (e *WriteError) Is(target error) bool { return target == ErrAudioWrite }

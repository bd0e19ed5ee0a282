package model

import (
	"errors"
	"fmt"
)

// ErrModelLoad is matched by every artifact load failure.
var ErrModelLoad = errors.New("model load failed")

// LoadError reports an artifact that could not be loaded.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading model %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

func (e *LoadError) Is(target error) bool { return target == ErrModelLoad }

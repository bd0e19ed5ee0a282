// Package engine runs a loaded conversion network over a signal and falls
// back to passthrough whenever the network cannot produce usable audio.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/himanishpuri/VoiceDNA/internal/audio"
	"github.com/himanishpuri/VoiceDNA/internal/model"
)

var (
	// ErrPassthrough: the network has no inference operation.
	ErrPassthrough = errors.New("network has no inference operation")
	// ErrConversionFailed: inference ran but did not produce usable audio.
	ErrConversionFailed = errors.New("conversion failed")
)

// PassthroughWarning is returned by Convert for opaque networks.
type PassthroughWarning struct {
	Reason string
}

func (w *PassthroughWarning) Error() string {
	return "model has no inference method, using passthrough: " + w.Reason
}

func (w *PassthroughWarning) Is(target error) bool { return target == ErrPassthrough }

// ConversionFailure is returned by Convert when inference errors, panics or
// yields a malformed signal.
type ConversionFailure struct {
	Err error
}

func (f *ConversionFailure) Error() string {
	return fmt.Sprintf("conversion error, using passthrough: %v", f.Err)
}

func (f *ConversionFailure) Unwrap() error { return f.Err }

func (f *ConversionFailure) Is(target error) bool { return target == ErrConversionFailed }

// Engine owns one network for the duration of an invocation.
type Engine struct {
	network model.Network
	target  model.Target
}

// New wraps network, whose weights are bound to target.
func New(network model.Network, target model.Target) *Engine {
	return &Engine{network: network, target: target}
}

// SupportsInference reports whether network exposes an inference operation.
// It has no side effects.
func SupportsInference(network model.Network) bool {
	return model.SupportsInference(network)
}

func (e *Engine) SupportsInference() bool {
	return SupportsInference(e.network)
}

// Convert runs the network over samples, which must be at
// audio.PipelineRate. The returned samples are always usable: on any
// problem they are the input itself and the error is a *PassthroughWarning
// or a *ConversionFailure.
func (e *Engine) Convert(ctx context.Context, samples audio.Samples) (audio.Samples, error) {
	net, ok := e.network.(model.InferenceNetwork)
	if !ok {
		reason := "network does not support inference"
		if o, isOpaque := e.network.(model.OpaqueNetwork); isOpaque {
			reason = o.Reason
		}
		return samples, &PassthroughWarning{Reason: reason}
	}

	if seq, ok := net.(*model.Sequential); ok && seq.SampleRate != 0 && seq.SampleRate != audio.PipelineRate {
		return samples, &ConversionFailure{
			Err: fmt.Errorf("network expects %d Hz audio, pipeline runs at %d Hz", seq.SampleRate, audio.PipelineRate),
		}
	}

	out, err := e.infer(model.InferenceMode(ctx), net, samples)
	if err != nil {
		return samples, &ConversionFailure{Err: err}
	}
	return out, nil
}

func (e *Engine) infer(ctx context.Context, net model.InferenceNetwork, samples audio.Samples) (out audio.Samples, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("panic during inference: %v", r)
		}
	}()

	x, err := model.NewTensor([]float32(samples), 1, len(samples))
	if err != nil {
		return nil, err
	}
	x, err = x.To(e.target)
	if err != nil {
		return nil, err
	}

	y, err := net.Infer(ctx, x)
	if err != nil {
		return nil, err
	}
	if y == nil {
		return nil, errors.New("network returned no output")
	}

	y, err = y.To(model.CPU)
	if err != nil {
		return nil, err
	}
	y = y.Squeeze()

	switch {
	case y.Dims() != 1:
		return nil, fmt.Errorf("expected one-dimensional output, got shape %v", y.Shape)
	case y.Len() == 0:
		return nil, errors.New("network returned an empty signal")
	case !y.Finite():
		return nil, errors.New("network returned non-finite samples")
	}

	return audio.Samples(y.Data), nil
}

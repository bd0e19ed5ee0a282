package model

import "context"

type inferenceKey struct{}

// InferenceMode marks ctx for inference: layers with training-time behavior
// (dropout) act as identity and nothing mutates network state.
func InferenceMode(ctx context.Context) context.Context {
	return context.WithValue(ctx, inferenceKey{}, true)
}

// IsInference reports whether ctx was prepared with InferenceMode.
func IsInference(ctx context.Context) bool {
	on, _ := ctx.Value(inferenceKey{}).(bool)
	return on
}

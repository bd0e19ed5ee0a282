package model

import (
	"fmt"
	"math"
)

// Tensor is a dense float32 array bound to an execution target.
type Tensor struct {
	Shape  []int
	Data   []float32
	Device Target
}

// NewTensor wraps data with the given shape on the CPU. The shape must match
// len(data).
func NewTensor(data []float32, shape ...int) (*Tensor, error) {
	n := 1
	for _, d := range shape {
		if d < 0 {
			return nil, fmt.Errorf("negative dimension in shape %v", shape)
		}
		n *= d
	}
	if n != len(data) {
		return nil, fmt.Errorf("shape %v holds %d values, got %d", shape, n, len(data))
	}
	return &Tensor{Shape: append([]int(nil), shape...), Data: data, Device: CPU}, nil
}

// To returns a copy of t bound to target.
func (t *Tensor) To(target Target) (*Tensor, error) {
	if err := target.Available(); err != nil {
		return nil, err
	}
	return &Tensor{
		Shape:  append([]int(nil), t.Shape...),
		Data:   append([]float32(nil), t.Data...),
		Device: target,
	}, nil
}

// Squeeze drops every dimension of size one.
func (t *Tensor) Squeeze() *Tensor {
	shape := make([]int, 0, len(t.Shape))
	for _, d := range t.Shape {
		if d != 1 {
			shape = append(shape, d)
		}
	}
	if len(shape) == 0 && len(t.Data) == 1 {
		shape = []int{1}
	}
	return &Tensor{Shape: shape, Data: t.Data, Device: t.Device}
}

// Dims is the number of dimensions.
func (t *Tensor) Dims() int { return len(t.Shape) }

// Len is the number of values.
func (t *Tensor) Len() int { return len(t.Data) }

// Finite reports whether every value is a finite number.
func (t *Tensor) Finite() bool {
	return allFinite(t.Data)
}

func allFinite(data []float32) bool {
	for _, v := range data {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

package model

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// KindSequential is the only network kind with a Go implementation.
const KindSequential = "sequential"

// Network is either an InferenceNetwork or an OpaqueNetwork. Which one is
// decided once, when the artifact is loaded.
type Network interface {
	Describe() string
	network()
}

// InferenceNetwork can run a forward pass. Input is a [1, N] signal tensor.
type InferenceNetwork interface {
	Network
	Infer(ctx context.Context, x *Tensor) (*Tensor, error)
}

// OpaqueNetwork was decoded but exposes no usable inference operation.
type OpaqueNetwork struct {
	Reason string
}

func (OpaqueNetwork) network() {}

func (o OpaqueNetwork) Describe() string {
	return "opaque network: " + o.Reason
}

// InferenceFunc adapts a plain function to InferenceNetwork.
type InferenceFunc func(ctx context.Context, x *Tensor) (*Tensor, error)

func (InferenceFunc) network() {}

func (InferenceFunc) Describe() string { return "inference function" }

func (f InferenceFunc) Infer(ctx context.Context, x *Tensor) (*Tensor, error) {
	return f(ctx, x)
}

// NetworkSpec is the serialized form of a sequential network. The same
// struct is read from TOML by the pack command.
type NetworkSpec struct {
	Kind       string      `msgpack:"kind" toml:"kind"`
	SampleRate int         `msgpack:"sample_rate,omitempty" toml:"sample_rate"`
	Layers     []LayerSpec `msgpack:"layers" toml:"layers"`
}

// LayerSpec describes one layer; Op selects which fields apply.
type LayerSpec struct {
	Op        string    `msgpack:"op" toml:"op"`
	Kernel    []float64 `msgpack:"kernel,omitempty" toml:"kernel"`
	Bias      float64   `msgpack:"bias,omitempty" toml:"bias"`
	Dilation  int       `msgpack:"dilation,omitempty" toml:"dilation"`
	Gain      float64   `msgpack:"gain,omitempty" toml:"gain"`
	Func      string    `msgpack:"func,omitempty" toml:"func"`
	Alpha     float64   `msgpack:"alpha,omitempty" toml:"alpha"`
	Rate      float64   `msgpack:"rate,omitempty" toml:"rate"`
	Curve     []float64 `msgpack:"curve,omitempty" toml:"curve"`
	FrameSize int       `msgpack:"frame_size,omitempty" toml:"frame_size"`
	Hop       int       `msgpack:"hop,omitempty" toml:"hop"`
}

// Sequential applies its layers in order to a mono signal.
type Sequential struct {
	SampleRate int
	Device     Target
	layers     []layer
}

func (*Sequential) network() {}

func (s *Sequential) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "sequential network, %d layers, device %s", len(s.layers), s.Device)
	if s.SampleRate != 0 {
		fmt.Fprintf(&b, ", %d Hz", s.SampleRate)
	}
	for i, l := range s.Layers() {
		fmt.Fprintf(&b, "\n  %2d. %s", i, l)
	}
	return b.String()
}

// Layers returns the layer descriptions in order.
func (s *Sequential) Layers() []string {
	out := make([]string, len(s.layers))
	for i, l := range s.layers {
		out[i] = l.describe()
	}
	return out
}

// Infer runs every layer over x, which must be a [1, N] or [N] tensor on the
// network's device. The result is [1, N'] on the same device.
func (s *Sequential) Infer(ctx context.Context, x *Tensor) (*Tensor, error) {
	if x == nil {
		return nil, errors.New("nil input tensor")
	}
	if x.Device != s.Device {
		return nil, fmt.Errorf("input on %s, network on %s", x.Device, s.Device)
	}
	switch {
	case len(x.Shape) == 1:
	case len(x.Shape) == 2 && x.Shape[0] == 1:
	default:
		return nil, fmt.Errorf("expected a [1, N] input, got %v", x.Shape)
	}

	data := append([]float32(nil), x.Data...)
	for i, l := range s.layers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var err error
		data, err = l.forward(ctx, data)
		if err != nil {
			return nil, fmt.Errorf("layer %d (%s): %w", i, l.op(), err)
		}
	}

	return &Tensor{Shape: []int{1, len(data)}, Data: data, Device: s.Device}, nil
}

// NewNetwork builds the network described by spec with its weights bound to
// target. Unknown kinds or ops give an OpaqueNetwork; malformed layer
// parameters are an error.
func NewNetwork(spec NetworkSpec, target Target) (Network, error) {
	if spec.Kind != KindSequential {
		return OpaqueNetwork{Reason: fmt.Sprintf("unsupported network kind %q", spec.Kind)}, nil
	}
	if err := target.Available(); err != nil {
		return nil, err
	}
	if spec.SampleRate < 0 {
		return nil, fmt.Errorf("invalid sample rate %d", spec.SampleRate)
	}

	seq := &Sequential{SampleRate: spec.SampleRate, Device: target}
	for i, ls := range spec.Layers {
		if !supportedOps[ls.Op] {
			return OpaqueNetwork{Reason: fmt.Sprintf("layer %d: unsupported op %q", i, ls.Op)}, nil
		}
		l, err := newLayer(ls, target)
		if err != nil {
			return nil, fmt.Errorf("layer %d (%s): %w", i, ls.Op, err)
		}
		seq.layers = append(seq.layers, l)
	}
	return seq, nil
}

// decodeNetwork resolves a msgpack network document into a Network variant.
func decodeNetwork(raw []byte, target Target) (Network, error) {
	var fields map[string]msgpack.RawMessage
	if err := msgpack.Unmarshal(raw, &fields); err != nil {
		return OpaqueNetwork{Reason: "network document is not a map"}, nil
	}

	kindRaw, ok := fields["kind"]
	if !ok {
		return OpaqueNetwork{Reason: "network has no kind"}, nil
	}
	var spec NetworkSpec
	if err := msgpack.Unmarshal(kindRaw, &spec.Kind); err != nil {
		return OpaqueNetwork{Reason: "network kind is not a string"}, nil
	}
	if spec.Kind != KindSequential {
		return OpaqueNetwork{Reason: fmt.Sprintf("unsupported network kind %q", spec.Kind)}, nil
	}

	layersRaw, ok := fields["layers"]
	if !ok {
		return OpaqueNetwork{Reason: "network has no layers"}, nil
	}
	if err := msgpack.Unmarshal(layersRaw, &spec.Layers); err != nil {
		return nil, fmt.Errorf("decoding layers: %w", err)
	}
	if sr, ok := fields["sample_rate"]; ok {
		if err := msgpack.Unmarshal(sr, &spec.SampleRate); err != nil {
			return nil, fmt.Errorf("decoding sample_rate: %w", err)
		}
	}

	return NewNetwork(spec, target)
}

package model

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/himanishpuri/VoiceDNA/internal/spectrum"
)

// Layer ops understood by NewNetwork.
const (
	OpConv1D       = "conv1d"
	OpGain         = "gain"
	OpActivation   = "activation"
	OpDropout      = "dropout"
	OpSpectralGain = "spectral_gain"
)

var supportedOps = map[string]bool{
	OpConv1D:       true,
	OpGain:         true,
	OpActivation:   true,
	OpDropout:      true,
	OpSpectralGain: true,
}

var errNonFinite = errors.New("non-finite weights")

type layer interface {
	op() string
	describe() string
	forward(ctx context.Context, x []float32) ([]float32, error)
}

func newLayer(s LayerSpec, target Target) (layer, error) {
	switch s.Op {
	case OpConv1D:
		if len(s.Kernel) == 0 {
			return nil, errors.New("empty kernel")
		}
		if s.Dilation < 0 {
			return nil, fmt.Errorf("invalid dilation %d", s.Dilation)
		}
		kernel, err := bindWeights(s.Kernel, target)
		if err != nil {
			return nil, err
		}
		dilation := s.Dilation
		if dilation == 0 {
			dilation = 1
		}
		return &conv1d{kernel: kernel, bias: float32(s.Bias), dilation: dilation}, nil

	case OpGain:
		return &gain{gain: float32(s.Gain)}, nil

	case OpActivation:
		switch s.Func {
		case "tanh", "relu":
		case "leaky_relu":
			if s.Alpha == 0 {
				s.Alpha = 0.01
			}
		case "hardclip":
			if s.Alpha == 0 {
				s.Alpha = 1
			}
			if s.Alpha < 0 {
				return nil, fmt.Errorf("invalid hardclip threshold %g", s.Alpha)
			}
		default:
			return nil, fmt.Errorf("unknown activation %q", s.Func)
		}
		return &activation{fn: s.Func, alpha: float32(s.Alpha)}, nil

	case OpDropout:
		if s.Rate < 0 || s.Rate >= 1 {
			return nil, fmt.Errorf("dropout rate %g outside [0, 1)", s.Rate)
		}
		return &dropout{rate: s.Rate}, nil

	case OpSpectralGain:
		if len(s.Curve) == 0 {
			return nil, errors.New("empty gain curve")
		}
		frame := s.FrameSize
		if frame == 0 {
			frame = 512
		}
		if frame < 16 {
			return nil, fmt.Errorf("frame size %d too small", frame)
		}
		hop := s.Hop
		if hop == 0 {
			hop = frame / 4
		}
		if hop <= 0 || hop > frame {
			return nil, fmt.Errorf("hop %d outside (0, %d]", hop, frame)
		}
		curve, err := bindWeights(s.Curve, target)
		if err != nil {
			return nil, err
		}
		return &spectralGain{curve: curve, frameSize: frame, hop: hop}, nil
	}
	return nil, fmt.Errorf("unsupported op %q", s.Op)
}

func bindWeights(values []float64, target Target) (*Tensor, error) {
	data := make([]float32, len(values))
	for i, v := range values {
		data[i] = float32(v)
	}
	t, err := NewTensor(data, len(data))
	if err != nil {
		return nil, err
	}
	return t.To(target)
}

type conv1d struct {
	kernel   *Tensor
	bias     float32
	dilation int
}

func (c *conv1d) op() string { return OpConv1D }

func (c *conv1d) describe() string {
	return fmt.Sprintf("conv1d(kernel=%d, dilation=%d, bias=%g)", c.kernel.Len(), c.dilation, c.bias)
}

// forward is a same-padded 1-D convolution with zeros outside the signal.
func (c *conv1d) forward(_ context.Context, x []float32) ([]float32, error) {
	if !c.kernel.Finite() || !allFinite([]float32{c.bias}) {
		return nil, errNonFinite
	}
	k := c.kernel.Data
	center := (len(k) - 1) / 2
	out := make([]float32, len(x))
	for n := range x {
		sum := c.bias
		for j, w := range k {
			idx := n + (j-center)*c.dilation
			if idx < 0 || idx >= len(x) {
				continue
			}
			sum += w * x[idx]
		}
		out[n] = sum
	}
	return out, nil
}

type gain struct {
	gain float32
}

func (g *gain) op() string { return OpGain }

func (g *gain) describe() string { return fmt.Sprintf("gain(%g)", g.gain) }

func (g *gain) forward(_ context.Context, x []float32) ([]float32, error) {
	if !allFinite([]float32{g.gain}) {
		return nil, errNonFinite
	}
	out := make([]float32, len(x))
	for i, v := range x {
		out[i] = v * g.gain
	}
	return out, nil
}

type activation struct {
	fn    string
	alpha float32
}

func (a *activation) op() string { return OpActivation }

func (a *activation) describe() string {
	switch a.fn {
	case "leaky_relu", "hardclip":
		return fmt.Sprintf("activation(%s, alpha=%g)", a.fn, a.alpha)
	}
	return fmt.Sprintf("activation(%s)", a.fn)
}

func (a *activation) forward(_ context.Context, x []float32) ([]float32, error) {
	out := make([]float32, len(x))
	for i, v := range x {
		switch a.fn {
		case "tanh":
			out[i] = float32(math.Tanh(float64(v)))
		case "relu":
			out[i] = max(v, 0)
		case "leaky_relu":
			if v < 0 {
				v *= a.alpha
			}
			out[i] = v
		case "hardclip":
			out[i] = min(max(v, -a.alpha), a.alpha)
		}
	}
	return out, nil
}

type dropout struct {
	rate float64
}

func (d *dropout) op() string { return OpDropout }

func (d *dropout) describe() string { return fmt.Sprintf("dropout(%g)", d.rate) }

// forward is the identity in inference mode. Otherwise it zeroes values at
// random and rescales the survivors.
func (d *dropout) forward(ctx context.Context, x []float32) ([]float32, error) {
	out := append([]float32(nil), x...)
	if IsInference(ctx) || d.rate == 0 {
		return out, nil
	}
	scale := float32(1 / (1 - d.rate))
	for i := range out {
		if rand.Float64() < d.rate {
			out[i] = 0
		} else {
			out[i] *= scale
		}
	}
	return out, nil
}

type spectralGain struct {
	curve     *Tensor
	frameSize int
	hop       int
}

func (s *spectralGain) op() string { return OpSpectralGain }

func (s *spectralGain) describe() string {
	return fmt.Sprintf("spectral_gain(bands=%d, frame=%d, hop=%d)", s.curve.Len(), s.frameSize, s.hop)
}

// forward scales each STFT bin by the gain of the band it falls in. Bands
// split 0..Nyquist evenly; negative frequencies mirror positive ones so the
// resynthesized signal stays real.
func (s *spectralGain) forward(_ context.Context, x []float32) ([]float32, error) {
	if !s.curve.Finite() {
		return nil, errNonFinite
	}
	if len(x) == 0 {
		return []float32{}, nil
	}

	signal := make([]float64, len(x))
	for i, v := range x {
		signal[i] = float64(v)
	}

	win := spectrum.Hann(s.frameSize)
	frames, err := spectrum.STFT(signal, s.frameSize, s.hop, win)
	if err != nil {
		return nil, err
	}

	n := s.frameSize
	half := n/2 + 1
	bands := s.curve.Len()
	gains := make([]complex128, n)
	for b := 0; b < n; b++ {
		k := b
		if k >= half {
			k = n - b
		}
		gains[b] = complex(float64(s.curve.Data[k*bands/half]), 0)
	}

	for _, frame := range frames {
		for b := range frame {
			frame[b] *= gains[b]
		}
	}

	y, err := spectrum.ISTFT(frames, s.frameSize, s.hop, win, len(signal))
	if err != nil {
		return nil, err
	}

	out := make([]float32, len(y))
	for i, v := range y {
		out[i] = float32(v)
	}
	return out, nil
}

package audio

import (
	"fmt"
	"math"
	"sync"

	resampling "github.com/tphakala/go-audio-resampling"
)

// Resample converts samples from fromRate to toRate. Equal rates return the
// input slice itself. The input is never modified and the output holds
// round(len * toRate / fromRate) samples aligned in time with the input.
func Resample(samples Samples, fromRate, toRate int) (Samples, error) {
	if fromRate <= 0 || toRate <= 0 {
		return nil, fmt.Errorf("invalid resample rates %d -> %d", fromRate, toRate)
	}
	if fromRate == toRate {
		return samples, nil
	}

	want := int(math.Round(float64(len(samples)) * float64(toRate) / float64(fromRate)))
	if len(samples) == 0 {
		return Samples{}, nil
	}

	align, err := alignmentFor(fromRate, toRate)
	if err != nil {
		return nil, err
	}

	// Leading silence keeps the filter's priming out of the signal, trailing
	// silence pushes its tail out.
	input := make([]float64, align.lead+len(samples)+fromRate/10)
	for i, s := range samples {
		input[align.lead+i] = float64(s)
	}

	output, err := runResampler(input, fromRate, toRate)
	if err != nil {
		return nil, err
	}

	out := make(Samples, want)
	for i := 0; i < want; i++ {
		j := align.offset + i
		if j >= 0 && j < len(output) {
			out[i] = float32(output[j])
		}
	}
	return out, nil
}

func newResampler(fromRate, toRate int) (resampling.Resampler, error) {
	r, err := resampling.New(&resampling.Config{
		InputRate:  float64(fromRate),
		OutputRate: float64(toRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create resampler: %w", err)
	}
	return r, nil
}

func runResampler(input []float64, fromRate, toRate int) ([]float64, error) {
	r, err := newResampler(fromRate, toRate)
	if err != nil {
		return nil, err
	}
	output, err := r.Process(input)
	if err != nil {
		return nil, fmt.Errorf("resampling %d -> %d: %w", fromRate, toRate, err)
	}
	tail, err := r.Flush()
	if err != nil {
		return nil, fmt.Errorf("flushing resampler %d -> %d: %w", fromRate, toRate, err)
	}
	return append(output, tail...), nil
}

// alignment locates input sample 0 in the resampler output: lead zeros are
// prepended to the input and the signal starts at output index offset.
type alignment struct {
	lead   int
	offset int
}

var alignments sync.Map

// alignmentFor measures the resampler delay once per rate pair by locating
// the output peak of a unit impulse. lead is a multiple of the input period
// of the rate ratio, so its output position is an exact integer.
func alignmentFor(fromRate, toRate int) (alignment, error) {
	type pair struct{ from, to int }
	key := pair{fromRate, toRate}
	if a, ok := alignments.Load(key); ok {
		return a.(alignment), nil
	}

	g := gcd(fromRate, toRate)
	step := fromRate / g
	lead := step
	for lead < 1024 || lead/step*(toRate/g) < 1024 {
		lead += step
	}

	impulse := make([]float64, lead+1+fromRate/10)
	impulse[lead] = 1
	output, err := runResampler(impulse, fromRate, toRate)
	if err != nil {
		return alignment{}, err
	}
	if len(output) == 0 {
		return alignment{}, fmt.Errorf("resampler %d -> %d produced no output", fromRate, toRate)
	}

	peak := 0
	for i, v := range output {
		if math.Abs(v) > math.Abs(output[peak]) {
			peak = i
		}
	}

	a := alignment{lead: lead, offset: peak}
	alignments.Store(key, a)
	return a, nil
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

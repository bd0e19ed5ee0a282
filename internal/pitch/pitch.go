// Package pitch transposes a signal by whole semitones without changing its
// duration or sample rate.
package pitch

import (
	"errors"
	"fmt"
	"math"

	dsppitch "github.com/cwbudde/algo-dsp/dsp/effects/pitch"

	"github.com/himanishpuri/VoiceDNA/internal/audio"
)

// MaxSemitones bounds a shift in either direction (ratio 0.25 to 4).
const MaxSemitones = 24

// Method selects the transposition algorithm.
type Method string

const (
	// WSOLA time-stretches in the time domain and resamples back.
	WSOLA Method = "wsola"
	// Spectral uses a phase vocoder.
	Spectral Method = "spectral"
)

// ParseMethod accepts "wsola", "spectral" or "" (WSOLA).
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case "", WSOLA:
		return WSOLA, nil
	case Spectral:
		return Spectral, nil
	}
	return "", fmt.Errorf("unknown pitch method %q (want %s or %s)", s, WSOLA, Spectral)
}

// ErrPitchShift is matched by every shift failure.
var ErrPitchShift = errors.New("pitch shift failed")

// ShiftError reports invalid shift input.
type ShiftError struct {
	Semitones int
	Err       error
}

func (e *ShiftError) Error() string {
	return fmt.Sprintf("pitch shift by %+d semitones: %v", e.Semitones, e.Err)
}

func (e *ShiftError) Unwrap() error { return e.Err }

func (e *ShiftError) Is(target error) bool { return target == ErrPitchShift }

// Shifter transposes signals with a fixed method.
type Shifter struct {
	Method Method
}

// Shift transposes samples with the WSOLA shifter.
func Shift(samples audio.Samples, rate, semitones int) (audio.Samples, error) {
	return Shifter{}.Shift(samples, rate, semitones)
}

// Shift returns samples unchanged when semitones is zero. Otherwise the
// result has the same length and rate with pitch scaled by 2^(semitones/12).
func (s Shifter) Shift(samples audio.Samples, rate, semitones int) (audio.Samples, error) {
	if semitones == 0 {
		return samples, nil
	}
	if len(samples) == 0 {
		return nil, &ShiftError{Semitones: semitones, Err: errors.New("empty signal")}
	}
	if rate <= 0 {
		return nil, &ShiftError{Semitones: semitones, Err: fmt.Errorf("invalid sample rate %d", rate)}
	}
	if semitones > MaxSemitones || semitones < -MaxSemitones {
		return nil, &ShiftError{Semitones: semitones, Err: fmt.Errorf("shift outside ±%d semitones", MaxSemitones)}
	}

	proc, err := s.processor(float64(rate))
	if err != nil {
		return nil, &ShiftError{Semitones: semitones, Err: err}
	}
	if err := proc.SetPitchSemitones(float64(semitones)); err != nil {
		return nil, &ShiftError{Semitones: semitones, Err: err}
	}

	var out []float64
	if spectral, ok := proc.(*dsppitch.SpectralPitchShifter); ok {
		out, err = shiftSpectral(spectral, samples)
		if err != nil {
			return nil, &ShiftError{Semitones: semitones, Err: err}
		}
	} else {
		in := make([]float64, len(samples))
		for i, v := range samples {
			in[i] = float64(v)
		}
		out = proc.Process(in)
	}

	result := make(audio.Samples, len(samples))
	for i := 0; i < len(result) && i < len(out); i++ {
		result[i] = float32(out[i])
	}
	return result, nil
}

// shiftSpectral runs the phase vocoder with a quarter-frame synthesis hop at
// the largest ratio, and a frame of silence on both sides so the overlap-add
// edges, where the window sum vanishes, fall outside the signal.
func shiftSpectral(p *dsppitch.SpectralPitchShifter, samples audio.Samples) ([]float64, error) {
	frame := p.FrameSize()
	if err := p.SetAnalysisHop(frame / 16); err != nil {
		return nil, err
	}

	in := make([]float64, len(samples)+2*frame)
	for i, v := range samples {
		in[frame+i] = float64(v)
	}

	out, err := p.ProcessWithError(in)
	if err != nil {
		return nil, err
	}
	if len(out) < frame+len(samples) {
		return nil, fmt.Errorf("phase vocoder returned %d samples, want %d", len(out), len(in))
	}
	out = out[frame : frame+len(samples)]
	for i, v := range out {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("non-finite output at sample %d", i)
		}
	}
	return out, nil
}

func (s Shifter) processor(rate float64) (dsppitch.PitchProcessor, error) {
	switch s.Method {
	case "", WSOLA:
		return dsppitch.NewPitchShifter(rate)
	case Spectral:
		return dsppitch.NewSpectralPitchShifter(rate)
	}
	return nil, fmt.Errorf("unknown pitch method %q", s.Method)
}

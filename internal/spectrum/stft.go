// Package spectrum holds the short-time Fourier tools shared by the
// spectral network layers and the diagnostics renderer.
package spectrum

import (
	"errors"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// Tunables
const (
	WindowSize = 1024
	HopSize    = 256
)

// Hamming returns a Hamming window of length n.
func Hamming(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := 0; i < n; i++ {
		w[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

// Hann returns a periodic Hann window of length n. Periodic windows at a hop
// of n/4 sum to a constant, which ISTFT relies on.
func Hann(n int) []float64 {
	w := make([]float64, n)
	for i := 0; i < n; i++ {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return w
}

// MagnitudeSpectrum converts a complex spectrum into a magnitude spectrum (positive freqs only)
func MagnitudeSpectrum(spectrum []complex128) []float64 {
	half := len(spectrum) / 2
	mag := make([]float64, half)
	for i := 0; i < half; i++ {
		mag[i] = cmplx.Abs(spectrum[i])
	}
	return mag
}

// STFT returns the complex spectrum of every windowed frame,
// frames[frameIdx][bin]. Frames are centered: the signal is zero padded by
// half a window on both sides, so frame f is centered on sample f*hopSize.
func STFT(samples []float64, windowSize, hopSize int, window []float64) ([][]complex128, error) {
	if len(window) != windowSize {
		return nil, errors.New("window length must equal windowSize")
	}
	if hopSize <= 0 || hopSize > windowSize {
		return nil, errors.New("hop size must be in (0, windowSize]")
	}
	if len(samples) == 0 {
		return nil, nil
	}

	half := windowSize / 2
	padded := make([]float64, len(samples)+2*half)
	copy(padded[half:], samples)

	frames := make([][]complex128, 0, len(samples)/hopSize+1)
	for start := 0; start <= len(samples); start += hopSize {
		frame := make([]float64, windowSize)
		end := start + windowSize
		if end > len(padded) {
			end = len(padded)
		}
		copy(frame, padded[start:end])
		for i := range frame {
			frame[i] *= window[i]
		}
		frames = append(frames, fft.FFTReal(frame))
	}
	return frames, nil
}

// ISTFT resynthesizes a signal of the given length from centered STFT
// frames by windowed overlap-add. Each output sample is normalized by the
// summed squared window, so STFT followed by ISTFT with the same window and
// a hop of at most half a window reconstructs the input.
func ISTFT(frames [][]complex128, windowSize, hopSize int, window []float64, length int) ([]float64, error) {
	if len(window) != windowSize {
		return nil, errors.New("window length must equal windowSize")
	}
	if hopSize <= 0 || hopSize > windowSize {
		return nil, errors.New("hop size must be in (0, windowSize]")
	}

	half := windowSize / 2
	total := (len(frames)-1)*hopSize + windowSize
	if total < length+half {
		total = length + half
	}
	out := make([]float64, total)
	norm := make([]float64, total)

	for f, spec := range frames {
		if len(spec) != windowSize {
			return nil, errors.New("frame length must equal windowSize")
		}
		time := fft.IFFT(spec)
		start := f * hopSize
		for i := 0; i < windowSize; i++ {
			out[start+i] += real(time[i]) * window[i]
			norm[start+i] += window[i] * window[i]
		}
	}

	for i := range out {
		if norm[i] > 1e-8 {
			out[i] /= norm[i]
		}
	}
	return out[half : half+length], nil
}

// MagnitudeSpectrogram is STFT reduced to positive-frequency magnitudes,
// spectrogram[frameIdx][freqBin].
func MagnitudeSpectrogram(samples []float64, windowSize, hopSize int) ([][]float64, error) {
	frames, err := STFT(samples, windowSize, hopSize, Hamming(windowSize))
	if err != nil {
		return nil, err
	}
	spectrogram := make([][]float64, len(frames))
	for i, f := range frames {
		spectrogram[i] = MagnitudeSpectrum(f)
	}
	return spectrogram, nil
}

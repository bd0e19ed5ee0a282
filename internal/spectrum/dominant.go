package spectrum

import "math"

// DominantFrequency estimates the strongest frequency of a signal in Hz by
// averaging the magnitude spectrogram over time and interpolating around the
// loudest bin. It returns 0 for signals shorter than one window or silence.
func DominantFrequency(samples []float64, sampleRate int) float64 {
	if len(samples) < WindowSize || sampleRate <= 0 {
		return 0
	}

	spectrogram, err := MagnitudeSpectrogram(samples, WindowSize, HopSize)
	if err != nil || len(spectrogram) == 0 {
		return 0
	}

	nBins := len(spectrogram[0])
	avg := make([]float64, nBins)
	for _, frame := range spectrogram {
		for b, m := range frame {
			avg[b] += m
		}
	}

	// DC is never a pitch.
	best := 1
	for b := 2; b < nBins; b++ {
		if avg[b] > avg[best] {
			best = b
		}
	}
	if avg[best] <= 1e-12 {
		return 0
	}

	// Parabolic interpolation on log magnitudes.
	offset := 0.0
	if best > 0 && best < nBins-1 {
		l := math.Log(avg[best-1] + 1e-12)
		c := math.Log(avg[best] + 1e-12)
		r := math.Log(avg[best+1] + 1e-12)
		if d := l - 2*c + r; d != 0 {
			offset = 0.5 * (l - r) / d
		}
	}

	freqRes := float64(sampleRate) / float64(WindowSize)
	return (float64(best) + offset) * freqRes
}

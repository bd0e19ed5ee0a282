package audio

import (
	"math"
	"testing"
	"time"
)

func TestResampleIdentity(t *testing.T) {
	in := sine(300, PipelineRate, 100*time.Millisecond, 0.3)
	orig := append(Samples(nil), in...)

	out, err := Resample(in, PipelineRate, PipelineRate)
	if err != nil {
		t.Fatalf("Resample failed: %v", err)
	}
	if &out[0] != &in[0] {
		t.Error("Expected the same slice for equal rates")
	}
	for i := range orig {
		if out[i] != orig[i] {
			t.Fatalf("Sample %d changed", i)
		}
	}
}

func TestResampleLengthAndLevel(t *testing.T) {
	tests := []struct {
		from, to int
	}{
		{44100, 16000},
		{48000, 16000},
		{8000, 16000},
		{22050, 16000},
	}

	for _, tt := range tests {
		in := sine(440, tt.from, 500*time.Millisecond, 0.5)
		orig := append(Samples(nil), in...)

		out, err := Resample(in, tt.from, tt.to)
		if err != nil {
			t.Fatalf("Resample %d->%d failed: %v", tt.from, tt.to, err)
		}

		want := int(math.Round(float64(len(in)) * float64(tt.to) / float64(tt.from)))
		if len(out) != want {
			t.Errorf("%d->%d: expected %d samples, got %d", tt.from, tt.to, want, len(out))
		}

		// The middle of a resampled tone keeps its level.
		mid := Stats(out[len(out)/4 : 3*len(out)/4])
		if mid.RMS < 0.25 || mid.RMS > 0.45 {
			t.Errorf("%d->%d: unexpected RMS %v", tt.from, tt.to, mid.RMS)
		}

		for i := range orig {
			if in[i] != orig[i] {
				t.Fatalf("%d->%d: input mutated at %d", tt.from, tt.to, i)
			}
		}
	}
}

func TestResampleKeepsTiming(t *testing.T) {
	const at = 0.25
	for _, from := range []int{44100, 48000, 22050, 8000} {
		n := from / 2
		in := make(Samples, n)
		for i := range in {
			d := (float64(i)/float64(from) - at) / 0.002
			in[i] = float32(0.8 * math.Exp(-d*d/2))
		}

		out, err := Resample(in, from, PipelineRate)
		if err != nil {
			t.Fatalf("%d: Resample failed: %v", from, err)
		}

		peak := 0
		for i, v := range out {
			if v > out[peak] {
				peak = i
			}
		}
		want := int(at * PipelineRate)
		if d := peak - want; d < -16 || d > 16 {
			t.Errorf("%d -> %d: burst moved from %d to %d (%.2f ms)",
				from, PipelineRate, want, peak, float64(d)*1000/PipelineRate)
		}
	}
}

func TestResampleKeepsOnset(t *testing.T) {
	const from = 44100
	onset := sine(300, from, 10*time.Millisecond, 0.5)
	in := make(Samples, from/10)
	copy(in, onset)

	out, err := Resample(in, from, PipelineRate)
	if err != nil {
		t.Fatalf("Resample failed: %v", err)
	}

	ideal := sine(300, PipelineRate, 10*time.Millisecond, 0.5)
	var got, want float64
	for i, v := range ideal {
		want += float64(v) * float64(v)
		got += float64(out[i]) * float64(out[i])
	}
	if math.Abs(got-want) > 0.15*want {
		t.Errorf("Expected onset energy ~%.2f, got %.2f", want, got)
	}
	if math.Abs(float64(out[0])) > 0.05 {
		t.Errorf("Expected the waveform to start near zero, got %v", out[0])
	}
}

func TestResampleEmptyAndInvalid(t *testing.T) {
	out, err := Resample(Samples{}, 44100, 16000)
	if err != nil || len(out) != 0 {
		t.Errorf("Expected empty output, got %v, %v", out, err)
	}
	if _, err := Resample(Samples{1}, 0, 16000); err == nil {
		t.Error("Expected error for zero rate")
	}
}

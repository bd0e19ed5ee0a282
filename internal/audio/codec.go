package audio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/himanishpuri/VoiceDNA/pkg/utils"
)

// PipelineRate is the sample rate every stage between decode and encode
// works at.
const PipelineRate = 16000

const (
	wavFormatPCM    = 1
	defaultBitDepth = 16
)

// Samples is a mono signal with amplitudes nominally in [-1, 1].
type Samples []float32

// Codec decodes and encodes audio files. The zero value is usable: it looks
// ffmpeg up on PATH, transcodes into the OS temp dir and writes 16-bit WAV.
type Codec struct {
	// FFmpeg is the binary used for inputs that are not integer PCM WAV.
	FFmpeg string
	// TempDir holds intermediate transcodes.
	TempDir string
	// BitDepth of encoded WAV files, 16 or 24.
	BitDepth int
}

var defaultCodec Codec

// Decode reads path into mono samples and reports the file's native rate.
func Decode(ctx context.Context, path string) (Samples, int, error) {
	return defaultCodec.Decode(ctx, path)
}

// LoadAt decodes path and resamples to targetRate.
func LoadAt(ctx context.Context, path string, targetRate int) (Samples, error) {
	return defaultCodec.LoadAt(ctx, path, targetRate)
}

// Encode writes samples to path as a mono 16-bit PCM WAV.
func Encode(path string, samples Samples, rate int) error {
	return defaultCodec.Encode(path, samples, rate)
}

// Decode reads path into mono samples and reports the file's native rate.
// Integer PCM WAV is decoded in-process; everything else goes through ffmpeg.
func (c Codec) Decode(ctx context.Context, path string) (Samples, int, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, 0, &ReadError{Path: path, Err: err}
	}
	if info.IsDir() {
		return nil, 0, &ReadError{Path: path, Err: errors.New("is a directory")}
	}

	samples, rate, err := decodePCMWAV(path)
	if err == nil {
		return samples, rate, nil
	}
	if !errors.Is(err, errNotPCMWAV) {
		return nil, 0, &ReadError{Path: path, Err: err}
	}

	if err := ctx.Err(); err != nil {
		return nil, 0, &ReadError{Path: path, Err: err}
	}

	converted, err := transcodeToMonoWAV(ctx, c.FFmpeg, path, c.TempDir, 0)
	if err != nil {
		return nil, 0, &ReadError{Path: path, Err: err}
	}
	defer utils.DeleteFile(converted)

	samples, rate, err = decodePCMWAV(converted)
	if err != nil {
		return nil, 0, &ReadError{Path: path, Err: fmt.Errorf("decoding transcoded file: %w", err)}
	}
	return samples, rate, nil
}

// LoadAt decodes path and resamples to targetRate. The result is always at
// targetRate.
func (c Codec) LoadAt(ctx context.Context, path string, targetRate int) (Samples, error) {
	samples, rate, err := c.Decode(ctx, path)
	if err != nil {
		return nil, err
	}
	if rate == targetRate {
		return samples, nil
	}

	out, err := Resample(samples, rate, targetRate)
	if err != nil {
		return nil, &ReadError{Path: path, Err: err}
	}
	return out, nil
}

// Encode writes samples to path as a mono integer PCM WAV, creating parent
// directories and replacing any existing file. Values outside [-1, 1] are
// clipped.
func (c Codec) Encode(path string, samples Samples, rate int) error {
	bitDepth := c.BitDepth
	if bitDepth == 0 {
		bitDepth = defaultBitDepth
	}
	if bitDepth != 16 && bitDepth != 24 {
		return &WriteError{Path: path, Err: fmt.Errorf("unsupported bit depth %d", bitDepth)}
	}
	if rate <= 0 {
		return &WriteError{Path: path, Err: fmt.Errorf("invalid sample rate %d", rate)}
	}

	dir := filepath.Dir(path)
	if err := utils.MakeDir(dir); err != nil {
		return &WriteError{Path: path, Err: err}
	}

	f, err := utils.CreateTemp(dir, ".voicedna-*.wav")
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}
	tmpPath := f.Name()
	defer utils.DeleteFile(tmpPath)

	if err := writeWAV(f, samples, rate, bitDepth); err != nil {
		f.Close()
		return &WriteError{Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &WriteError{Path: path, Err: err}
	}

	if err := utils.MoveFile(tmpPath, path); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	return nil
}

func writeWAV(f *os.File, samples Samples, rate, bitDepth int) error {
	scale := float64(int(1) << (bitDepth - 1))
	maxVal := scale - 1

	data := make([]int, len(samples))
	for i, s := range samples {
		v := math.Round(float64(s) * scale)
		if math.IsNaN(v) {
			v = 0
		}
		if v > maxVal {
			v = maxVal
		} else if v < -scale {
			v = -scale
		}
		data[i] = int(v)
	}

	enc := wav.NewEncoder(f, rate, bitDepth, 1, wavFormatPCM)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: rate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("encoding PCM: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalizing WAV header: %w", err)
	}
	return nil
}

var errNotPCMWAV = errors.New("not an integer PCM WAV file")

// decodePCMWAV decodes an integer PCM WAV and averages channels to mono.
// It returns errNotPCMWAV for anything it cannot handle natively.
func decodePCMWAV(path string) (Samples, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	d.ReadInfo()
	if d.Err() != nil {
		return nil, 0, errNotPCMWAV
	}
	if d.WavAudioFormat != wavFormatPCM {
		return nil, 0, errNotPCMWAV
	}
	switch d.BitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, 0, errNotPCMWAV
	}
	if d.NumChans < 1 || d.SampleRate == 0 {
		return nil, 0, fmt.Errorf("invalid WAV header: %d channels at %d Hz", d.NumChans, d.SampleRate)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("reading PCM data: %w", err)
	}

	return toMono(buf.Data, int(d.NumChans), int(d.BitDepth)), int(d.SampleRate), nil
}

// toMono normalizes interleaved integer PCM to [-1, 1] and averages channels.
// 8-bit WAV is unsigned with a 128 midpoint.
func toMono(data []int, channels, bitDepth int) Samples {
	scale := 1.0 / float64(int(1)<<(bitDepth-1))
	offset := 0
	if bitDepth == 8 {
		offset = 128
	}

	frames := len(data) / channels
	out := make(Samples, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for ch := 0; ch < channels; ch++ {
			sum += float64(data[i*channels+ch] - offset)
		}
		out[i] = float32(sum / float64(channels) * scale)
	}
	return out
}

// Duration of samples at rate.
func Duration(samples Samples, rate int) time.Duration {
	if rate <= 0 {
		return 0
	}
	return time.Duration(float64(len(samples)) / float64(rate) * float64(time.Second))
}

// SignalStats summarizes a signal's level.
type SignalStats struct {
	Peak float64
	RMS  float64
}

func Stats(samples Samples) SignalStats {
	if len(samples) == 0 {
		return SignalStats{}
	}
	var peak, sumSq float64
	for _, s := range samples {
		v := math.Abs(float64(s))
		if v > peak {
			peak = v
		}
		sumSq += float64(s) * float64(s)
	}
	return SignalStats{
		Peak: peak,
		RMS:  math.Sqrt(sumSq / float64(len(samples))),
	}
}

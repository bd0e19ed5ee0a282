package spectrum

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"path/filepath"

	"github.com/eligwz/spectrogram"

	"github.com/himanishpuri/VoiceDNA/pkg/utils"
)

// Image size of rendered spectrograms.
const (
	ImageWidth  = 2048
	ImageHeight = 512
)

// RenderPNG draws a magnitude spectrogram of samples to a PNG file at path.
func RenderPNG(path string, samples []float64, sampleRate int) error {
	if len(samples) == 0 {
		return errors.New("cannot render an empty signal")
	}
	if err := utils.MakeDir(filepath.Dir(path)); err != nil {
		return err
	}

	img := spectrogram.NewImage128(image.Rect(0, 0, ImageWidth, ImageHeight))

	black := spectrogram.ParseColor("000000")
	draw.Draw(img, img.Bounds(), image.NewUniform(black), image.Point{}, draw.Src)

	// Hamming window, FFT, linear magnitude
	spectrogram.Drawfft(
		img,
		samples,
		uint32(sampleRate),
		uint32(ImageHeight),
		false,
		false,
		true,
		false,
	)

	if err := spectrogram.SavePng(img, path); err != nil {
		return fmt.Errorf("saving spectrogram %s: %w", path, err)
	}
	return nil
}

package voicedna

import "github.com/himanishpuri/VoiceDNA/internal/pipeline"

// Request describes one conversion.
type Request struct {
	ModelPath  string // Model artifact
	IndexPath  string // Optional index file, accepted but never read
	InputPath  string // Source audio in any format ffmpeg or the WAV decoder reads
	OutputPath string // Destination WAV
	Semitones  int    // Pitch shift applied after conversion
	Device     string // Execution target; empty means "cpu"
}

// Result is the outcome of Convert. RunID is set when the run was recorded.
type Result struct {
	*pipeline.Result
	RunID string
}

// ModelInfo summarizes a model artifact.
type ModelInfo struct {
	Path        string
	Shape       string
	Name        string
	Version     string
	SampleRate  int
	F0          string
	Size        int64
	Network     string
	Layers      []string // Layer descriptions of a sequential network
	Inference   bool
	Info        string
	Description string
}

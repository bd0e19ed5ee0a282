package models

import "time"

// Run is one recorded conversion.
type Run struct {
	ID         string    // Database ID (UUID)
	ModelPath  string    // Model artifact used
	IndexPath  string    // Index file passed in, if any (never read)
	InputPath  string    // Source audio
	OutputPath string    // Converted audio
	Semitones  int       // Requested pitch shift
	Device     string    // Execution target, e.g. "cpu"
	State      string    // Final pipeline state: "done" or "failed"
	FailedAt   string    // Stage that failed, empty on success
	Error      string    // Hard error message, empty on success
	Converted  bool      // False when the network was bypassed
	Warnings   []string  // Soft warnings in the order they were raised
	InputMs    int       // Input duration in milliseconds
	OutputMs   int       // Output duration in milliseconds
	ElapsedMs  int       // Wall time of the run
	CreatedAt  time.Time // When the run was recorded
}

// OK reports whether the run produced output.
func (r Run) OK() bool { return r.State == "done" }

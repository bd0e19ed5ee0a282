package pipeline

import "fmt"

// State of a conversion run. A run moves forward through the states in
// declaration order, skipping PitchShifting when no shift is requested, and
// ends in Done or Failed.
type State int

const (
	Idle State = iota
	ModelLoading
	Decoding
	Converting
	PitchShifting
	Encoding
	Done
	Failed
)

var stateNames = [...]string{
	Idle:          "idle",
	ModelLoading:  "model_loading",
	Decoding:      "decoding",
	Converting:    "converting",
	PitchShifting: "pitch_shifting",
	Encoding:      "encoding",
	Done:          "done",
	Failed:        "failed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ParseState is the inverse of State.String.
func ParseState(name string) (State, error) {
	for i, n := range stateNames {
		if n == name {
			return State(i), nil
		}
	}
	return Idle, fmt.Errorf("unknown pipeline state %q", name)
}

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == Done || s == Failed
}

// StageError is returned by Run when a hard stage fails.
type StageError struct {
	Stage State
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

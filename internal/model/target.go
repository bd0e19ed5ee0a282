package model

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Target is the execution device a network and its tensors are bound to.
type Target struct {
	Backend string
	Index   int
}

// CPU is the default target and the only backend in the pure-Go build.
var CPU = Target{Backend: "cpu"}

var knownBackends = map[string]bool{
	"cpu":  true,
	"cuda": true,
	"mps":  true,
}

// registered backends, keyed by Target.Backend.
var backends = map[string]bool{
	"cpu": true,
}

// ParseTarget parses "cpu", "cuda", "cuda:N" or "mps". An empty string is
// CPU.
func ParseTarget(s string) (Target, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return CPU, nil
	}

	name, idx, hasIdx := strings.Cut(s, ":")
	if !knownBackends[name] {
		return Target{}, fmt.Errorf("unknown device %q", s)
	}

	t := Target{Backend: name}
	if hasIdx {
		if name != "cuda" {
			return Target{}, fmt.Errorf("device %q does not take an index", name)
		}
		n, err := strconv.Atoi(idx)
		if err != nil || n < 0 {
			return Target{}, fmt.Errorf("invalid device index in %q", s)
		}
		t.Index = n
	}
	return t, nil
}

func (t Target) String() string {
	if t.Backend == "" {
		return CPU.String()
	}
	if t.Backend == "cuda" {
		return fmt.Sprintf("cuda:%d", t.Index)
	}
	return t.Backend
}

// IsCPU reports whether t is the host CPU.
func (t Target) IsCPU() bool {
	return t.Backend == "" || t.Backend == "cpu"
}

// Available returns an error when no backend is registered for t.
func (t Target) Available() error {
	if t.IsCPU() {
		return nil
	}
	if !backends[t.Backend] {
		return fmt.Errorf("device %s is not available in this build (available: %s)",
			t, strings.Join(AvailableBackends(), ", "))
	}
	return nil
}

// AvailableBackends lists the registered backend names.
func AvailableBackends() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

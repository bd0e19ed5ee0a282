package model

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

func gainSpec(g float64) NetworkSpec {
	return NetworkSpec{
		Kind:       KindSequential,
		SampleRate: 16000,
		Layers:     []LayerSpec{{Op: OpGain, Gain: g}},
	}
}

func saveArtifact(t *testing.T, doc any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "voice.vdna")
	if err := Save(path, doc); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	return path
}

func TestLoadBundle(t *testing.T) {
	path := saveArtifact(t, Bundle{
		Model:      gainSpec(0.5),
		Name:       "alto",
		Version:    "v2",
		SampleRate: 16000,
		F0:         "dio",
		Info:       "20 epochs",
	})

	a, err := Load(path, CPU)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if a.Shape != ShapeBundle {
		t.Errorf("Expected bundle shape, got %s", a.Shape)
	}
	want := Metadata{Name: "alto", Version: "v2", SampleRate: 16000, F0: "dio", Info: "20 epochs"}
	if a.Meta != want {
		t.Errorf("Expected metadata %+v, got %+v", want, a.Meta)
	}

	net := ExtractNetwork(a)
	seq, ok := net.(*Sequential)
	if !ok {
		t.Fatalf("Expected *Sequential, got %T", net)
	}
	if seq.Device != CPU {
		t.Errorf("Expected network on cpu, got %s", seq.Device)
	}
	if !SupportsInference(net) {
		t.Error("Expected inference capability")
	}
}

func TestLoadBare(t *testing.T) {
	a, err := Load(saveArtifact(t, gainSpec(2)), CPU)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if a.Shape != ShapeBare {
		t.Errorf("Expected bare shape, got %s", a.Shape)
	}
	if (a.Meta != Metadata{}) {
		t.Errorf("Bare artifacts carry no metadata, got %+v", a.Meta)
	}
	if !SupportsInference(ExtractNetwork(a)) {
		t.Error("Expected inference capability")
	}
}

func TestLoadOpaqueNetworks(t *testing.T) {
	tests := []struct {
		name   string
		doc    any
		reason string
	}{
		{
			name:   "bundle with weights only",
			doc:    map[string]any{"model": map[string]any{"weights": []float64{1, 2, 3}}, "sr": "40k"},
			reason: "no kind",
		},
		{
			name:   "unknown kind",
			doc:    map[string]any{"kind": "hubert_vits", "layers": []any{}},
			reason: `"hubert_vits"`,
		},
		{
			name:   "unknown op",
			doc:    NetworkSpec{Kind: KindSequential, Layers: []LayerSpec{{Op: "lstm"}}},
			reason: `"lstm"`,
		},
		{
			name:   "missing layers",
			doc:    map[string]any{"kind": KindSequential},
			reason: "no layers",
		},
		{
			name:   "scalar document",
			doc:    42,
			reason: "not a map",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := Load(saveArtifact(t, tt.doc), CPU)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			net := ExtractNetwork(a)
			if SupportsInference(net) {
				t.Fatal("Expected no inference capability")
			}
			opaque, ok := net.(OpaqueNetwork)
			if !ok {
				t.Fatalf("Expected OpaqueNetwork, got %T", net)
			}
			if !strings.Contains(opaque.Reason, tt.reason) {
				t.Errorf("Expected reason containing %q, got %q", tt.reason, opaque.Reason)
			}
		})
	}
}

func TestLoadBundleSampleRateString(t *testing.T) {
	a, err := Load(saveArtifact(t, map[string]any{"model": gainSpec(1), "sr": "40k", "f0": 1}), CPU)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if a.Meta.SampleRate != 40000 {
		t.Errorf("Expected 40000, got %d", a.Meta.SampleRate)
	}
	if a.Meta.F0 != "1" {
		t.Errorf("Expected f0 rendered as text, got %q", a.Meta.F0)
	}
}

func TestLoadFailures(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, data []byte) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, data, 0o644); err != nil {
			t.Fatal(err)
		}
		return p
	}

	body, err := msgpack.Marshal(gainSpec(1))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		path   string
		target Target
	}{
		{"missing file", filepath.Join(dir, "absent.vdna"), CPU},
		{"bad magic", write("magic.vdna", append([]byte("PK\x03\x04\x01"), body...)), CPU},
		{"bad version", write("version.vdna", append([]byte("VDNA\x07"), body...)), CPU},
		{"truncated", write("trunc.vdna", append([]byte("VDNA\x01"), body[:len(body)/2]...)), CPU},
		{"trailing data", write("trail.vdna", append(append([]byte("VDNA\x01"), body...), 0xc1, 0xc1)), CPU},
		{"empty", write("empty.vdna", nil), CPU},
		{"unavailable device", write("ok.vdna", append([]byte("VDNA\x01"), body...)), Target{Backend: "cuda"}},
		{"bad layer params", write("layers.vdna", mustEncode(t, NetworkSpec{Kind: KindSequential, Layers: []LayerSpec{{Op: OpConv1D}}})), CPU},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.path, tt.target)
			if !errors.Is(err, ErrModelLoad) {
				t.Fatalf("Expected ErrModelLoad, got %v", err)
			}
			var le *LoadError
			if !errors.As(err, &le) || le.Path != tt.path {
				t.Errorf("Expected *LoadError for %s, got %v", tt.path, err)
			}
		})
	}

	_, err = Load(filepath.Join(dir, "absent.vdna"), CPU)
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected os.ErrNotExist cause, got %v", err)
	}
}

func mustEncode(t *testing.T, doc any) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := Encode(&buf, doc); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestSaveWorldReadable(t *testing.T) {
	info, err := os.Stat(saveArtifact(t, gainSpec(1)))
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o644 {
		t.Errorf("Expected mode 0644, got %o", perm)
	}
}

func TestEncodeHeader(t *testing.T) {
	data := mustEncode(t, gainSpec(1))
	if !bytes.HasPrefix(data, []byte("VDNA\x01")) {
		t.Errorf("Unexpected header % x", data[:5])
	}
}

func TestDescribe(t *testing.T) {
	a, err := Load(saveArtifact(t, Bundle{Model: gainSpec(0.5), Name: "alto", F0: "dio"}), CPU)
	if err != nil {
		t.Fatal(err)
	}
	desc := Describe(a)
	for _, want := range []string{"bundle", "alto", "dio", "capability: inference", "gain(0.5)"} {
		if !strings.Contains(desc, want) {
			t.Errorf("Description missing %q:\n%s", want, desc)
		}
	}

	a, err = Load(saveArtifact(t, map[string]any{"model": "weights-blob"}), CPU)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(Describe(a), "passthrough") {
		t.Errorf("Expected passthrough capability:\n%s", Describe(a))
	}
}

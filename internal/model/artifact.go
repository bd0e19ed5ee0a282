package model

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/himanishpuri/VoiceDNA/pkg/utils"
)

// Artifact file layout: magic, one version byte, msgpack document.
const (
	Magic         = "VDNA"
	FormatVersion = 1
)

// Shape tells how the network sits inside the artifact document.
type Shape int

const (
	// ShapeBare: the whole document is the network.
	ShapeBare Shape = iota
	// ShapeBundle: a map whose "model" key holds the network, next to
	// metadata keys.
	ShapeBundle
)

func (s Shape) String() string {
	if s == ShapeBundle {
		return "bundle"
	}
	return "bare"
}

// Metadata carried by bundle artifacts. All fields are optional.
type Metadata struct {
	Name       string
	Version    string
	SampleRate int
	F0         string
	Info       string
}

// Bundle is the serialized bundle shape. Model is usually a NetworkSpec but
// may be any msgpack value.
type Bundle struct {
	Model      any    `msgpack:"model"`
	Name       string `msgpack:"name,omitempty"`
	Version    string `msgpack:"version,omitempty"`
	SampleRate int    `msgpack:"sr,omitempty"`
	F0         string `msgpack:"f0,omitempty"`
	Info       string `msgpack:"info,omitempty"`
}

// Artifact is a loaded model file. It is immutable after Load.
type Artifact struct {
	Path    string
	Version byte
	Shape   Shape
	Meta    Metadata
	Size    int64

	network Network
}

// Load reads a model artifact and binds its network to target.
func Load(path string, target Target) (*Artifact, error) {
	if err := target.Available(); err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	a, err := decodeArtifact(raw, target)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	a.Path = path
	a.Size = int64(len(raw))
	return a, nil
}

func decodeArtifact(raw []byte, target Target) (*Artifact, error) {
	if len(raw) < len(Magic)+1 || string(raw[:len(Magic)]) != Magic {
		return nil, errors.New("not a voicedna model (bad magic)")
	}
	version := raw[len(Magic)]
	if version != FormatVersion {
		return nil, fmt.Errorf("unsupported format version %d", version)
	}
	doc := raw[len(Magic)+1:]

	// Reject truncated or trailing-garbage documents before looking inside.
	br := bytes.NewReader(doc)
	if err := msgpack.NewDecoder(br).Skip(); err != nil {
		return nil, fmt.Errorf("corrupt model document: %w", err)
	}
	if br.Len() != 0 {
		return nil, errors.New("corrupt model document: trailing data")
	}

	a := &Artifact{Version: version}
	networkDoc := []byte(doc)

	var fields map[string]msgpack.RawMessage
	if err := msgpack.Unmarshal(doc, &fields); err == nil {
		if m, ok := fields["model"]; ok {
			a.Shape = ShapeBundle
			a.Meta = decodeMetadata(fields)
			networkDoc = m
		}
	}

	net, err := decodeNetwork(networkDoc, target)
	if err != nil {
		return nil, err
	}
	a.network = net
	return a, nil
}

// decodeMetadata reads the optional bundle keys leniently: values of an
// unexpected type are rendered as text, "sr" also accepts "40k" style
// strings.
func decodeMetadata(fields map[string]msgpack.RawMessage) Metadata {
	text := func(key string) string {
		raw, ok := fields[key]
		if !ok {
			return ""
		}
		var v any
		if err := msgpack.Unmarshal(raw, &v); err != nil || v == nil {
			return ""
		}
		return fmt.Sprint(v)
	}

	meta := Metadata{
		Name:    text("name"),
		Version: text("version"),
		F0:      text("f0"),
		Info:    text("info"),
	}

	sr := strings.ToLower(text("sr"))
	if strings.HasSuffix(sr, "k") {
		if n, err := strconv.Atoi(strings.TrimSuffix(sr, "k")); err == nil {
			meta.SampleRate = n * 1000
		}
	} else if n, err := strconv.Atoi(sr); err == nil {
		meta.SampleRate = n
	}
	return meta
}

// ExtractNetwork returns the network held by the artifact: the bundle's
// model for ShapeBundle, the whole document otherwise.
func ExtractNetwork(a *Artifact) Network {
	return a.network
}

// Encode writes doc in the artifact format.
func Encode(w io.Writer, doc any) error {
	body, err := msgpack.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding model document: %w", err)
	}

	bw := bufio.NewWriter(w)
	bw.WriteString(Magic)
	bw.WriteByte(FormatVersion)
	bw.Write(body)
	return bw.Flush()
}

// Save writes doc to path in the artifact format, replacing any existing
// file.
func Save(path string, doc any) error {
	if err := utils.MakeDir(filepath.Dir(path)); err != nil {
		return err
	}

	f, err := utils.CreateTemp(filepath.Dir(path), ".voicedna-model-*")
	if err != nil {
		return err
	}
	tmpPath := f.Name()
	defer utils.DeleteFile(tmpPath)

	if err := Encode(f, doc); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return utils.MoveFile(tmpPath, path)
}

// SupportsInference reports whether the network is an InferenceNetwork.
func SupportsInference(n Network) bool {
	_, ok := n.(InferenceNetwork)
	return ok
}

// Describe renders a human-readable summary of the artifact.
func Describe(a *Artifact) string {
	var b strings.Builder
	fmt.Fprintf(&b, "path:       %s\n", a.Path)
	fmt.Fprintf(&b, "format:     %s v%d, %d bytes\n", Magic, a.Version, a.Size)
	fmt.Fprintf(&b, "shape:      %s\n", a.Shape)
	if a.Shape == ShapeBundle {
		m := a.Meta
		if m.Name != "" {
			fmt.Fprintf(&b, "name:       %s\n", m.Name)
		}
		if m.Version != "" {
			fmt.Fprintf(&b, "version:    %s\n", m.Version)
		}
		if m.SampleRate != 0 {
			fmt.Fprintf(&b, "sr:         %d\n", m.SampleRate)
		}
		if m.F0 != "" {
			fmt.Fprintf(&b, "f0:         %s\n", m.F0)
		}
		if m.Info != "" {
			fmt.Fprintf(&b, "info:       %s\n", m.Info)
		}
	}
	capability := "passthrough (no inference operation)"
	if SupportsInference(a.network) {
		capability = "inference"
	}
	fmt.Fprintf(&b, "capability: %s\n", capability)
	fmt.Fprintf(&b, "network:    %s\n", a.network.Describe())
	return b.String()
}

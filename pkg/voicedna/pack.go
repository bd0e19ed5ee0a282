package voicedna

import (
	"bytes"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/himanishpuri/VoiceDNA/internal/model"
)

// PackFile is the TOML description of a model artifact read by Pack.
//
//	name = "alto"
//	f0 = "dio"
//	[model]
//	kind = "sequential"
//	[[model.layers]]
//	op = "gain"
//	gain = 0.8
type PackFile struct {
	Name       string            `toml:"name"`
	Version    string            `toml:"version"`
	SampleRate int               `toml:"sr"`
	F0         string            `toml:"f0"`
	Info       string            `toml:"info"`
	Bare       bool              `toml:"bare"`
	Model      model.NetworkSpec `toml:"model"`
}

// ParsePackFile decodes and checks a pack description. The network must
// build on the CPU target.
func ParsePackFile(data []byte) (*PackFile, error) {
	var pf PackFile
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&pf); err != nil {
		return nil, fmt.Errorf("parsing pack file: %w", err)
	}
	if pf.Model.Kind == "" {
		return nil, fmt.Errorf("pack file: model.kind is required")
	}
	if _, err := model.NewNetwork(pf.Model, model.CPU); err != nil {
		return nil, fmt.Errorf("pack file: %w", err)
	}
	return &pf, nil
}

// Document returns the value written to the artifact: the bare network, or
// a bundle carrying the metadata.
func (pf *PackFile) Document() any {
	if pf.Bare {
		return pf.Model
	}
	return model.Bundle{
		Model:      pf.Model,
		Name:       pf.Name,
		Version:    pf.Version,
		SampleRate: pf.SampleRate,
		F0:         pf.F0,
		Info:       pf.Info,
	}
}

// Pack builds the artifact described by the TOML file at specPath and
// writes it to outPath.
func Pack(specPath, outPath string) error {
	data, err := os.ReadFile(specPath)
	if err != nil {
		return fmt.Errorf("reading pack file: %w", err)
	}
	pf, err := ParsePackFile(data)
	if err != nil {
		return err
	}
	if err := model.Save(outPath, pf.Document()); err != nil {
		return fmt.Errorf("writing artifact: %w", err)
	}
	return nil
}

// internal/bundle/manifest.go
package bundle

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/SyedDaiam9101/leaf-classifier/internal/disease"
	"github.com/SyedDaiam9101/leaf-classifier/internal/inference"
	"github.com/SyedDaiam9101/leaf-classifier/internal/preprocess"
)

// ManifestName is the file each category directory must contain.
const ManifestName = "manifest.yaml"

// Manifest describes the artifacts of one category. Member order is the
// order the meta-classifier was trained with.
type Manifest struct {
	Category disease.Category `yaml:"category"`
	Members  []MemberSpec     `yaml:"members"`
	Meta     struct {
		Path string `yaml:"path"`
	} `yaml:"meta"`
	Layout string `yaml:"layout"`

	// dir is the directory relative paths are resolved against.
	dir string
}

// MemberSpec is one ensemble member entry in a manifest.
type MemberSpec struct {
	Name  string `yaml:"name"`
	Path  string `yaml:"path"`
	Input struct {
		Width  int `yaml:"width"`
		Height int `yaml:"height"`
	} `yaml:"input"`
	OutputDim  int    `yaml:"output_dim"`
	InputName  string `yaml:"input_name"`
	OutputName string `yaml:"output_name"`
}

// ManifestPath returns where the manifest for c lives under dir.
func ManifestPath(dir string, c disease.Category) string {
	return filepath.Join(dir, c.String(), ManifestName)
}

// ReadManifest parses and validates the manifest at path.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	m.dir = filepath.Dir(path)
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Manifest) validate() error {
	if !m.Category.Valid() {
		return fmt.Errorf("manifest has no valid category")
	}
	if len(m.Members) == 0 {
		return fmt.Errorf("manifest lists no ensemble members")
	}
	for i, s := range m.Members {
		if s.Path == "" {
			return fmt.Errorf("member %d has no path", i)
		}
		if s.Input.Width <= 0 || s.Input.Height <= 0 {
			return fmt.Errorf("member %d has invalid input size %dx%d", i, s.Input.Width, s.Input.Height)
		}
		if s.OutputDim <= 0 {
			return fmt.Errorf("member %d has invalid output_dim %d", i, s.OutputDim)
		}
	}
	if m.Meta.Path == "" {
		return fmt.Errorf("manifest has no meta-classifier path")
	}
	if _, err := preprocess.ParseLayout(m.Layout); err != nil {
		return err
	}
	return nil
}

// Resolve returns p relative to the manifest directory unless absolute.
func (m *Manifest) Resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.dir, p)
}

// MemberSpecs converts the manifest entries to inference specs with
// resolved paths.
func (m *Manifest) MemberSpecs() []inference.Spec {
	specs := make([]inference.Spec, len(m.Members))
	for i, s := range m.Members {
		name := s.Name
		if name == "" {
			name = filepath.Base(s.Path)
		}
		specs[i] = inference.Spec{
			Name:       name,
			Path:       m.Resolve(s.Path),
			Width:      s.Input.Width,
			Height:     s.Input.Height,
			OutputDim:  s.OutputDim,
			InputName:  s.InputName,
			OutputName: s.OutputName,
		}
	}
	return specs
}

package dataset

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/dentalai/dentalsynth/internal/utils"
	"github.com/dentalai/dentalsynth/pkg/conditions"
)

// ManifestName is the file name of the dataset manifest.
const ManifestName = "dataset.yaml"

// Manifest is the dataset.yaml read by the trainer.
type Manifest struct {
	Path  string   `yaml:"path"`
	Train string   `yaml:"train"`
	Val   string   `yaml:"val"`
	NC    int      `yaml:"nc"`
	Names []string `yaml:"names"`
}

// NewManifest describes the dataset at root. Names always list the full
// enumeration so label indices mean the same class in every dataset.
func NewManifest(root string) (*Manifest, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", root, err)
	}
	names := conditions.Names()
	return &Manifest{
		Path:  abs,
		Train: filepath.ToSlash(filepath.Join("images", SplitTrain)),
		Val:   filepath.ToSlash(filepath.Join("images", SplitVal)),
		NC:    len(names),
		Names: names,
	}, nil
}

// Validate checks that nc agrees with names.
func (m *Manifest) Validate() error {
	if m.Train == "" {
		return fmt.Errorf("manifest has no train entry")
	}
	if m.NC != len(m.Names) {
		return fmt.Errorf("manifest nc %d does not match %d names", m.NC, len(m.Names))
	}
	if m.NC == 0 {
		return fmt.Errorf("manifest has no classes")
	}
	return nil
}

// Write stores the manifest as root/dataset.yaml.
func (m *Manifest) Write(root string) (string, error) {
	data, err := yaml.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("failed to marshal manifest: %w", err)
	}
	path := filepath.Join(root, ManifestName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write manifest: %w", err)
	}
	return path, nil
}

// ClassNames returns the class names of the dataset at root, indexed by label
// class. Datasets without a readable manifest use the full enumeration.
func ClassNames(root string) []string {
	m, err := ReadManifest(root)
	if err != nil {
		return conditions.Names()
	}
	return m.Names
}

// ReadManifest loads and validates root/dataset.yaml.
func ReadManifest(root string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(root, ManifestName))
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// EnsureManifest writes root/dataset.yaml if it is missing. When the dataset has
// no validation images the train split doubles as validation.
func EnsureManifest(root string) (path string, created bool, err error) {
	path = filepath.Join(root, ManifestName)
	if utils.FileExists(path) {
		return path, false, nil
	}
	m, err := NewManifest(root)
	if err != nil {
		return "", false, err
	}
	if !utils.DirExists(filepath.Join(root, "images", SplitVal)) {
		m.Val = m.Train
	}
	path, err = m.Write(root)
	if err != nil {
		return "", false, err
	}
	return path, true, nil
}

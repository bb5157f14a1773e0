// Package modelpkg writes placeholder model packages for the iOS app and
// inspects exported ONNX models.
package modelpkg

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dentalai/dentalsynth/internal/utils"
	"github.com/dentalai/dentalsynth/pkg/conditions"
)

// DefaultPlaceholderName is the package the app loads by default.
const DefaultPlaceholderName = "DentalDetectionModel.mlpackage"

// PlaceholderOptions describes the model the placeholder stands in for.
type PlaceholderOptions struct {
	ImgSize      int
	Confidence   float64
	IoUThreshold float64
}

// DefaultPlaceholderOptions matches the export defaults.
func DefaultPlaceholderOptions() PlaceholderOptions {
	return PlaceholderOptions{
		ImgSize:      416,
		Confidence:   0.5,
		IoUThreshold: 0.45,
	}
}

type packageManifest struct {
	Author            string `json:"author"`
	ShortDescription  string `json:"short_description"`
	License           string `json:"license"`
	Version           string `json:"version"`
	InputDescription  string `json:"input_description"`
	OutputDescription string `json:"output_description"`
	ModelType         string `json:"model_type"`
	CoreMLVersion     string `json:"coreml_version"`
}

// ModelInfo is written to Data/model_info.json.
type ModelInfo struct {
	ModelName           string   `json:"model_name"`
	InputShape          []int    `json:"input_shape"`
	OutputShape         []int    `json:"output_shape"`
	Classes             []string `json:"classes"`
	ConfidenceThreshold float64  `json:"confidence_threshold"`
	IoUThreshold        float64  `json:"iou_threshold"`
	Note                string   `json:"note"`
}

// Anchors is the number of YOLOv8 predictions for a square input of size s
// across the stride 8, 16 and 32 heads.
func Anchors(s int) int {
	n := 0
	for _, stride := range []int{8, 16, 32} {
		g := s / stride
		n += g * g
	}
	return n
}

func (o PlaceholderOptions) validate() error {
	if o.ImgSize < 32 || o.ImgSize%32 != 0 {
		return fmt.Errorf("image size must be a positive multiple of 32, got %d", o.ImgSize)
	}
	if o.Confidence < 0 || o.Confidence > 1 {
		return fmt.Errorf("confidence threshold %g outside [0,1]", o.Confidence)
	}
	if o.IoUThreshold < 0 || o.IoUThreshold > 1 {
		return fmt.Errorf("IoU threshold %g outside [0,1]", o.IoUThreshold)
	}
	return nil
}

// WritePlaceholder creates an .mlpackage directory at out that the app can load
// until a converted model exists. It returns the total size in bytes.
func WritePlaceholder(out string, opts PlaceholderOptions) (int64, error) {
	if err := opts.validate(); err != nil {
		return 0, err
	}

	dataDir := filepath.Join(out, "Data")
	if err := utils.EnsureDir(dataDir); err != nil {
		return 0, err
	}

	manifest := packageManifest{
		Author:            "DentalAI Team",
		ShortDescription:  "DentalAI Detection Model (Placeholder)",
		License:           "MIT",
		Version:           "1.0",
		InputDescription:  "RGB image input for dental condition detection",
		OutputDescription: "Detection results with bounding boxes and confidence scores",
		ModelType:         "neural_network",
		CoreMLVersion:     "7.0",
	}
	if err := writeJSON(filepath.Join(out, "manifest.json"), manifest); err != nil {
		return 0, err
	}

	s := opts.ImgSize
	info := ModelInfo{
		ModelName:           utils.Stem(out),
		InputShape:          []int{1, 3, s, s},
		OutputShape:         []int{1, 4 + conditions.Count(), Anchors(s)},
		Classes:             conditions.Names(),
		ConfidenceThreshold: opts.Confidence,
		IoUThreshold:        opts.IoUThreshold,
		Note:                "This is a placeholder model. Replace with the trained model once conversion succeeds.",
	}
	if err := writeJSON(filepath.Join(dataDir, "model_info.json"), info); err != nil {
		return 0, err
	}

	if err := os.WriteFile(filepath.Join(dataDir, "weights.bin"), []byte("placeholder"), 0o644); err != nil {
		return 0, fmt.Errorf("failed to write weights: %w", err)
	}

	return utils.DirSize(out)
}

// ReadModelInfo loads Data/model_info.json from a package written by WritePlaceholder.
func ReadModelInfo(pkg string) (*ModelInfo, error) {
	data, err := os.ReadFile(filepath.Join(pkg, "Data", "model_info.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to read model info: %w", err)
	}
	var info ModelInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to parse model info: %w", err)
	}
	return &info, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}

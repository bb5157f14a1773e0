package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dentalai/dentalsynth/internal/utils"
)

// Export formats.
const (
	FormatCoreML = "coreml"
	FormatONNX   = "onnx"
)

// ExportConfig holds the parameters passed to `yolo export`.
type ExportConfig struct {
	Input    string  `json:"input"`  // trained .pt weights
	Output   string  `json:"output"` // final artifact path
	ImgSize  int     `json:"imgsz"`
	Conf     float64 `json:"conf"`
	IoU      float64 `json:"iou"`
	Quantize bool    `json:"quantize"`
	NMS      bool    `json:"nms"`
	Format   string  `json:"format"`
}

// DefaultExportConfig returns on-device export defaults.
func DefaultExportConfig() ExportConfig {
	return ExportConfig{
		Output:  "DentalDetectionModel.mlpackage",
		ImgSize: 416,
		Conf:    0.5,
		IoU:     0.45,
		NMS:     true,
		Format:  FormatCoreML,
	}
}

// Validate checks the export parameters.
func (c ExportConfig) Validate() error {
	if err := validateImgSize(c.ImgSize); err != nil {
		return err
	}
	if c.Conf < 0 || c.Conf > 1 {
		return fmt.Errorf("confidence %g must be within 0..1", c.Conf)
	}
	if c.IoU < 0 || c.IoU > 1 {
		return fmt.Errorf("iou %g must be within 0..1", c.IoU)
	}
	if c.Format != FormatCoreML && c.Format != FormatONNX {
		return fmt.Errorf("export format %q must be coreml or onnx", c.Format)
	}
	if c.Output == "" {
		return fmt.Errorf("output path is required")
	}
	return nil
}

// Args returns the command line for the export run.
func (c ExportConfig) Args() []string {
	return []string{
		"export",
		kv("model", c.Input),
		kv("format", c.Format),
		kv("imgsz", c.ImgSize),
		kv("conf", c.Conf),
		kv("iou", c.IoU),
		kv("int8", c.Quantize),
		kv("half", false),
		kv("nms", c.NMS),
		kv("simplify", true),
	}
}

func (c ExportConfig) artifactExt() string {
	if c.Format == FormatONNX {
		return ".onnx"
	}
	return ".mlpackage"
}

// Export converts the trained weights and moves the produced artifact to cfg.Output.
// Like Train, the error is reserved for invalid input.
func (p *Pipeline) Export(ctx context.Context, cfg ExportConfig) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	if !utils.FileExists(cfg.Input) {
		return Result{}, fmt.Errorf("model file does not exist: %s", cfg.Input)
	}
	if filepath.Ext(cfg.Input) != ".pt" {
		return Result{}, fmt.Errorf("model file must be a .pt file: %s", cfg.Input)
	}

	started := time.Now().Truncate(time.Second)
	out, err := p.runner.Run(ctx, p.binary, cfg.Args()...)
	if err != nil {
		r := failed("%s export failed: %v", cfg.Format, err)
		r.Output = out
		if tail := lastLines(out, 5); tail != "" {
			r.Message += "\n" + tail
		}
		return r, nil
	}

	produced, err := findArtifact(cfg.Input, cfg.artifactExt(), started)
	if err != nil {
		r := failed("%v", err)
		r.Output = out
		return r, nil
	}
	if abs(produced) != abs(cfg.Output) {
		if err := utils.MovePath(produced, cfg.Output); err != nil {
			r := failed("failed to move exported model: %v", err)
			r.Output = out
			return r, nil
		}
	}

	size, _ := utils.DirSize(cfg.Output)
	return Result{
		OK:       true,
		Message:  fmt.Sprintf("exported %s model (%s)", cfg.Format, utils.FormatFileSize(size)),
		Artifact: cfg.Output,
		Output:   out,
	}, nil
}

// findArtifact looks next to the input weights for a model written at or after
// since, preferring one named after the weights. Older files are leftovers of
// earlier exports. Several fresh candidates are an error.
func findArtifact(input, ext string, since time.Time) (string, error) {
	kind := strings.TrimPrefix(ext, ".")
	dir := filepath.Dir(input)
	preferred := filepath.Join(dir, utils.Stem(input)+ext)
	if fresh(preferred, since) {
		return preferred, nil
	}

	matches, err := filepath.Glob(filepath.Join(dir, "*"+ext))
	if err != nil {
		return "", fmt.Errorf("failed to search for %s file: %w", kind, err)
	}
	var found []string
	for _, m := range matches {
		if fresh(m, since) {
			found = append(found, m)
		}
	}
	switch len(found) {
	case 0:
		return "", fmt.Errorf("%s file not found after export", kind)
	case 1:
		return found[0], nil
	default:
		return "", fmt.Errorf("several %s files written by export, cannot tell which is the model: %s",
			kind, strings.Join(found, ", "))
	}
}

func fresh(path string, since time.Time) bool {
	info, err := os.Stat(path)
	return err == nil && !info.ModTime().Before(since)
}

func abs(path string) string {
	if a, err := filepath.Abs(path); err == nil {
		return a
	}
	return path
}

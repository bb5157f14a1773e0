package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/dentalai/dentalsynth/internal/utils"
)

// TrainConfig holds the parameters passed to `yolo detect train`.
type TrainConfig struct {
	Data       string `json:"data"`   // dataset.yaml
	Output     string `json:"output"` // where the best weights are copied
	Epochs     int    `json:"epochs"`
	ImgSize    int    `json:"imgsz"`
	Batch      int    `json:"batch"`
	Device     string `json:"device"`
	ModelSize  string `json:"model_size"`
	Pretrained bool   `json:"pretrained"`
	Project    string `json:"project"`
	Name       string `json:"name"`
}

// DefaultTrainConfig returns the CPU-friendly defaults used for synthetic data.
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		Output:     "dental_yolo_model.pt",
		Epochs:     50,
		ImgSize:    416,
		Batch:      16,
		Device:     "cpu",
		ModelSize:  "n",
		Pretrained: true,
		Project:    "dental_training",
		Name:       "yolo_dental_model",
	}
}

var modelSizes = map[string]bool{"n": true, "s": true, "m": true, "l": true, "x": true}

// Validate checks the training parameters.
func (c TrainConfig) Validate() error {
	if c.Epochs < 1 || c.Epochs > 10000 {
		return fmt.Errorf("epochs %d must be within 1..10000", c.Epochs)
	}
	if err := validateImgSize(c.ImgSize); err != nil {
		return err
	}
	if c.Batch < 1 || c.Batch > 1024 {
		return fmt.Errorf("batch %d must be within 1..1024", c.Batch)
	}
	if c.Device == "" {
		return fmt.Errorf("device cannot be empty")
	}
	if !modelSizes[c.ModelSize] {
		return fmt.Errorf("model size %q must be one of n, s, m, l, x", c.ModelSize)
	}
	if c.Project == "" || c.Name == "" {
		return fmt.Errorf("project and name are required")
	}
	if c.Output == "" {
		return fmt.Errorf("output path is required")
	}
	return nil
}

func validateImgSize(n int) error {
	if n < 32 || n > 2048 || n%32 != 0 {
		return fmt.Errorf("imgsz %d must be a multiple of 32 within 32..2048", n)
	}
	return nil
}

// BaseModel returns the model argument: pretrained weights or a fresh architecture.
func (c TrainConfig) BaseModel() string {
	if c.Pretrained {
		return fmt.Sprintf("yolov8%s.pt", c.ModelSize)
	}
	return fmt.Sprintf("yolov8%s.yaml", c.ModelSize)
}

// Args returns the command line for the training run.
func (c TrainConfig) Args() []string {
	return []string{
		"detect", "train",
		kv("data", c.Data),
		kv("model", c.BaseModel()),
		kv("epochs", c.Epochs),
		kv("imgsz", c.ImgSize),
		kv("batch", c.Batch),
		kv("device", c.Device),
		kv("project", c.Project),
		kv("name", c.Name),
		kv("exist_ok", true),
		kv("plots", true),
	}
}

// WeightsPath is where the tool leaves the best checkpoint.
func (c TrainConfig) WeightsPath() string {
	return filepath.Join(c.Project, c.Name, "weights", "best.pt")
}

// Pipeline invokes the YOLO tool through a Runner.
type Pipeline struct {
	runner Runner
	binary string
}

// New creates a pipeline. A nil runner uses ExecRunner.
func New(runner Runner) *Pipeline {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Pipeline{runner: runner, binary: DefaultBinary}
}

// WithBinary overrides the tool executable.
func (p *Pipeline) WithBinary(binary string) *Pipeline {
	if binary != "" {
		p.binary = binary
	}
	return p
}

// Train runs a training job and copies the best weights to cfg.Output. The
// error is non-nil only for an invalid configuration; tool failures are
// reported in the Result.
func (p *Pipeline) Train(ctx context.Context, cfg TrainConfig) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	if !utils.FileExists(cfg.Data) {
		return Result{}, fmt.Errorf("dataset file not found: %s", cfg.Data)
	}

	out, err := p.runner.Run(ctx, p.binary, cfg.Args()...)
	if err != nil {
		r := failed("training failed: %v", err)
		r.Output = out
		if tail := lastLines(out, 5); tail != "" {
			r.Message += "\n" + tail
		}
		return r, nil
	}

	weights := cfg.WeightsPath()
	if !utils.FileExists(weights) {
		r := failed("training finished but %s was not produced", weights)
		r.Output = out
		return r, nil
	}
	if err := utils.CopyFile(weights, cfg.Output); err != nil {
		r := failed("failed to save trained model: %v", err)
		r.Output = out
		return r, nil
	}
	return Result{
		OK:       true,
		Message:  fmt.Sprintf("trained yolov8%s for %d epochs", cfg.ModelSize, cfg.Epochs),
		Artifact: cfg.Output,
		Output:   out,
	}, nil
}

// Package review audits generated labels by asking a vision model to locate the
// condition and comparing its box to the ground truth.
package review

import (
	"context"
	"fmt"

	"github.com/dentalai/dentalsynth/pkg/annotation"
	"github.com/dentalai/dentalsynth/pkg/client"
	"github.com/dentalai/dentalsynth/pkg/conditions"
	"github.com/dentalai/dentalsynth/pkg/detection"
	"github.com/dentalai/dentalsynth/pkg/processing"
	"github.com/dentalai/dentalsynth/pkg/types"
	"github.com/dentalai/dentalsynth/pkg/vision"
)

// DefaultIoUThreshold is the overlap a model box needs to count as agreeing.
const DefaultIoUThreshold = 0.45

// DefaultMaxImageDim caps the longer side of images sent to the model.
const DefaultMaxImageDim = 1024

// Options configures a Reviewer.
type Options struct {
	Model        string
	IoUThreshold float64
	MaxImageDim  int
	// Names maps label indices to class names, normally the names of the
	// dataset's manifest. Nil means the full enumeration.
	Names []string
}

// Outcome is the verdict for one sample. LabelMatch is true when the predicted
// class equals the class of the best overlapping ground-truth box.
type Outcome struct {
	ImagePath  string   `json:"image"`
	LabelPath  string   `json:"label"`
	Predicted  string   `json:"predicted"`
	Confidence float64  `json:"confidence"`
	Truth      []string `json:"truth"`
	BestIoU    float64  `json:"best_iou"`
	LabelMatch bool     `json:"label_match"`
	Pass       bool     `json:"pass"`
	Aliased    bool     `json:"aliased,omitempty"`
}

// Reviewer checks samples against a vision model.
type Reviewer struct {
	detector  *detection.Detector
	processor *processing.Processor
	opts      Options
}

// New creates a Reviewer backed by vc.
func New(vc client.VisionClient, opts Options) (*Reviewer, error) {
	if opts.Model == "" {
		return nil, fmt.Errorf("model name is required")
	}
	if opts.IoUThreshold == 0 {
		opts.IoUThreshold = DefaultIoUThreshold
	}
	if opts.IoUThreshold < 0 || opts.IoUThreshold > 1 {
		return nil, fmt.Errorf("IoU threshold %g outside [0,1]", opts.IoUThreshold)
	}
	if opts.MaxImageDim <= 0 {
		opts.MaxImageDim = DefaultMaxImageDim
	}
	if len(opts.Names) == 0 {
		opts.Names = conditions.Names()
	}

	return &Reviewer{
		detector:  detection.NewDetector(vc).WithPrompt(detection.Prompt(opts.Names)),
		processor: processing.NewProcessor(),
		opts:      opts,
	}, nil
}

// Review sends imagePath to the model and scores the reply against labelPath.
func (r *Reviewer) Review(ctx context.Context, imagePath, labelPath string) (*Outcome, error) {
	truth, err := annotation.ParseFile(labelPath)
	if err != nil {
		return nil, err
	}

	img, err := r.processor.LoadImage(imagePath)
	if err != nil {
		return nil, err
	}
	imgB64, err := r.processor.PrepareImageForModel(img, processing.FormatJPG, r.opts.MaxImageDim, 90)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare image: %w", err)
	}

	finding, err := r.detector.DetectCondition(ctx, r.opts.Model, imgB64)
	if err != nil {
		return nil, fmt.Errorf("vision model failed on %s: %w", imagePath, err)
	}

	return r.score(imagePath, labelPath, finding, truth), nil
}

func (r *Reviewer) score(imagePath, labelPath string, f *detection.Finding, truth []annotation.Annotation) *Outcome {
	p := f.Result.Primary
	out := &Outcome{
		ImagePath:  imagePath,
		LabelPath:  labelPath,
		Predicted:  p.Label,
		Confidence: p.Confidence,
		Aliased:    f.Aliased,
	}

	bestClass := -1
	for _, a := range truth {
		out.Truth = append(out.Truth, r.className(a.Class))
		iou := p.Box.IoU(a.Box.ToBox())
		if iou > out.BestIoU {
			out.BestIoU = iou
			bestClass = a.Class
		}
	}

	if f.Known && bestClass >= 0 && bestClass < len(r.opts.Names) {
		c, _, err := conditions.Parse(r.opts.Names[bestClass])
		out.LabelMatch = err == nil && c == f.Class
	}
	out.Pass = out.LabelMatch && out.BestIoU >= r.opts.IoUThreshold
	return out
}

func (r *Reviewer) className(idx int) string {
	if idx >= 0 && idx < len(r.opts.Names) {
		return r.opts.Names[idx]
	}
	return fmt.Sprintf("class(%d)", idx)
}

// DefaultMinContrast is the saliency ratio below which a box is reported as weak.
const DefaultMinContrast = 1.0

// ContrastOutcome is the model-free verdict for one sample.
type ContrastOutcome struct {
	ImagePath string    `json:"image"`
	LabelPath string    `json:"label"`
	Contrast  []float64 `json:"contrast"`
	// Weak lists annotation indices whose contrast is below the minimum.
	Weak []int `json:"weak,omitempty"`
	Pass bool  `json:"pass"`
}

// CheckContrast scores every ground-truth box by how much it stands out from
// the rest of the image. No model is involved.
func CheckContrast(imagePath, labelPath string, minContrast float64) (*ContrastOutcome, error) {
	truth, err := annotation.ParseFile(labelPath)
	if err != nil {
		return nil, err
	}
	img, err := processing.NewProcessor().LoadImage(imagePath)
	if err != nil {
		return nil, err
	}

	boxes := make([]types.Box, len(truth))
	for i, a := range truth {
		boxes[i] = a.Box.ToBox()
	}
	out := &ContrastOutcome{
		ImagePath: imagePath,
		LabelPath: labelPath,
		Contrast:  vision.New().ContrastAll(img, boxes),
	}
	for i, c := range out.Contrast {
		if c < minContrast {
			out.Weak = append(out.Weak, i)
		}
	}
	out.Pass = len(truth) > 0 && len(out.Weak) == 0
	return out, nil
}

// Package dentalsynth generates synthetic dental images with YOLO annotations
// and assembles them into datasets a YOLO trainer can consume directly.
//
// Basic usage:
//
//	package main
//
//	import (
//		"fmt"
//		"log"
//
//		"github.com/dentalai/dentalsynth"
//	)
//
//	func main() {
//		gen, err := dentalsynth.New("dental_dataset", 200)
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		sum, err := gen.Generate()
//		if err != nil {
//			log.Fatal(err)
//		}
//		fmt.Printf("%d train / %d val images, manifest %s\n", sum.Train, sum.Val, sum.Manifest)
//
//		report, err := gen.Validate()
//		if err != nil {
//			log.Fatal(err)
//		}
//		fmt.Println("warnings:", report.Warnings)
//	}
//
// The package ties together:
//
// 1. Synth (pkg/synth): draws one image per sample in the single or multi style
// 2. Annotation (pkg/annotation): clamps placements into YOLO label lines
// 3. Dataset (pkg/dataset): writes the images/labels tree and dataset.yaml
//
// Training, export and label review live in pkg/pipeline, pkg/modelpkg and
// pkg/review, and are driven from the dentalsynth command.
package dentalsynth

import (
	"fmt"
	"image"
	"path/filepath"

	"github.com/dentalai/dentalsynth/pkg/analyzer"
	"github.com/dentalai/dentalsynth/pkg/annotation"
	"github.com/dentalai/dentalsynth/pkg/conditions"
	"github.com/dentalai/dentalsynth/pkg/dataset"
	"github.com/dentalai/dentalsynth/pkg/processing"
	"github.com/dentalai/dentalsynth/pkg/synth"
)

// Version of the dentalsynth library
const Version = "0.3.0"

// Generator provides a high-level interface for building one dataset.
type Generator struct {
	opts      dataset.Options
	images    *analyzer.ImageAnalyzer
	processor *processing.Processor
}

// New creates a Generator for count default-style samples under root.
func New(root string, count int) (*Generator, error) {
	opts := dataset.DefaultOptions(root)
	opts.Count = count
	return NewWithOptions(opts)
}

// NewWithOptions creates a Generator with custom options.
func NewWithOptions(opts dataset.Options) (*Generator, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	cfg := analyzer.DefaultConfig()
	cfg.ExpectedWidth, cfg.ExpectedHeight = opts.Render.Width, opts.Render.Height
	return &Generator{
		opts:      opts,
		images:    analyzer.NewWithConfig(cfg),
		processor: processing.NewProcessor(),
	}, nil
}

// Options returns the generation options.
func (g *Generator) Options() dataset.Options {
	return g.opts
}

// Generate writes every sample and the manifest.
func (g *Generator) Generate() (*dataset.Summary, error) {
	asm, err := dataset.New(g.opts)
	if err != nil {
		return nil, err
	}
	return asm.Run()
}

// Validate checks the written dataset, including every image header.
func (g *Generator) Validate() (*dataset.Report, error) {
	return dataset.Validate(g.opts.Root, dataset.ValidateOptions{
		Limits: g.opts.Limits,
		Images: g.images,
	})
}

// Sample renders one image of class c in memory with its clamped annotation.
// The class must belong to the generator's class set.
func (g *Generator) Sample(c conditions.Class, seed int64) (image.Image, annotation.Annotation, error) {
	if !g.opts.Classes.Contains(c) {
		return nil, annotation.Annotation{}, fmt.Errorf("class %s is not in the dataset", c)
	}
	opts := g.opts
	opts.Seed = seed
	opts.Classes = mustSet(c)
	opts.MaxConditions = 1
	asm, err := dataset.New(opts)
	if err != nil {
		return nil, annotation.Annotation{}, err
	}
	img, _, anns, err := asm.Generate()
	if err != nil {
		return nil, annotation.Annotation{}, err
	}
	return img, anns[0], nil
}

// SavePreview draws ann onto img and writes it to path.
func (g *Generator) SavePreview(img image.Image, anns []annotation.Annotation, path string) error {
	boxes := make([]processing.OverlayBox, 0, len(anns))
	for _, a := range anns {
		c, ok := conditions.FromIndex(a.Class)
		if !ok {
			return fmt.Errorf("unknown class index %d", a.Class)
		}
		boxes = append(boxes, processing.OverlayBox{Box: a.Box.ToBox(), Color: synth.ClassColor(c)})
	}
	format, err := processing.NormalizeFormat(filepath.Ext(path))
	if err != nil {
		return err
	}
	return g.processor.SaveImage(g.processor.CreateAnnotationOverlay(img, boxes), path, format, 92, false)
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}

func mustSet(c conditions.Class) *conditions.Set {
	s, err := conditions.NewSet([]conditions.Class{c})
	if err != nil {
		panic(err)
	}
	return s
}

// Package dataset assembles synthetic samples into the directory layout and
// manifest a YOLO trainer expects, and validates existing datasets.
package dataset

import (
	"fmt"
	"image"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/dentalai/dentalsynth/internal/utils"
	"github.com/dentalai/dentalsynth/pkg/annotation"
	"github.com/dentalai/dentalsynth/pkg/conditions"
	"github.com/dentalai/dentalsynth/pkg/processing"
	"github.com/dentalai/dentalsynth/pkg/synth"
)

// Sample describes one persisted image and its labels.
type Sample struct {
	Split       string
	Index       int
	ImagePath   string
	LabelPath   string
	Classes     []conditions.Class
	Annotations []annotation.Annotation
}

// Recorder receives every sample after it has been written.
type Recorder interface {
	Record(s Sample) error
}

// ProgressFunc is called after each written sample.
type ProgressFunc func(split string, done, total int)

// Summary reports what a run produced.
type Summary struct {
	Root        string
	Train       int
	Val         int
	Annotations int
	Manifest    string
}

// Assembler generates a dataset from Options.
type Assembler struct {
	opts      Options
	rng       *rand.Rand
	synth     *synth.Synthesizer
	builder   *annotation.Builder
	processor *processing.Processor
	format    string
	recorder  Recorder
	progress  ProgressFunc
}

// New validates opts and prepares an assembler. No files are touched.
func New(opts Options) (*Assembler, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	format, _ := processing.NormalizeFormat(opts.Format)
	rng := rand.New(rand.NewSource(opts.Seed))
	s, err := synth.New(opts.Render, rng)
	if err != nil {
		return nil, err
	}
	b, err := annotation.NewBuilder(conditions.Count(), opts.Limits)
	if err != nil {
		return nil, err
	}
	return &Assembler{
		opts:      opts,
		rng:       rng,
		synth:     s,
		builder:   b,
		processor: processing.NewProcessor(),
		format:    format,
	}, nil
}

// WithRecorder registers a recorder notified of every written sample.
func (a *Assembler) WithRecorder(r Recorder) *Assembler {
	a.recorder = r
	return a
}

// WithProgress registers a progress callback.
func (a *Assembler) WithProgress(fn ProgressFunc) *Assembler {
	a.progress = fn
	return a
}

// Run writes all samples, train split first, then the manifest. The first
// error aborts the run; files already written are left in place.
func (a *Assembler) Run() (*Summary, error) {
	if err := a.prepareDirs(); err != nil {
		return nil, err
	}

	train, val := Split(a.opts.Count, a.opts.TrainSplit)
	sum := &Summary{Root: a.opts.Root}
	for _, part := range []struct {
		split string
		n     int
	}{{SplitTrain, train}, {SplitVal, val}} {
		for i := 0; i < part.n; i++ {
			s, err := a.writeSample(part.split, i)
			if err != nil {
				return nil, err
			}
			sum.Annotations += len(s.Annotations)
			if a.progress != nil {
				a.progress(part.split, i+1, part.n)
			}
		}
	}
	sum.Train, sum.Val = train, val

	m, err := NewManifest(a.opts.Root)
	if err != nil {
		return nil, err
	}
	if sum.Manifest, err = m.Write(a.opts.Root); err != nil {
		return nil, err
	}
	return sum, nil
}

func (a *Assembler) prepareDirs() error {
	for _, kind := range []string{"images", "labels"} {
		for _, split := range []string{SplitTrain, SplitVal} {
			if err := utils.EnsureDir(filepath.Join(a.opts.Root, kind, split)); err != nil {
				return err
			}
		}
	}
	return nil
}

// chooseClasses picks one class for single-style images and 1..MaxConditions
// distinct classes for multi-style images.
func (a *Assembler) chooseClasses() []conditions.Class {
	if a.opts.Render.Style != synth.StyleMulti {
		return []conditions.Class{a.opts.Classes.Pick(a.rng)}
	}
	n := 1 + a.rng.Intn(a.opts.MaxConditions)
	return a.opts.Classes.Sample(a.rng, n)
}

// Generate synthesizes one sample in memory.
func (a *Assembler) Generate() (*image.NRGBA, []conditions.Class, []annotation.Annotation, error) {
	classes := a.chooseClasses()
	items := make([]synth.Item, 0, len(classes))
	anns := make([]annotation.Annotation, 0, len(classes))
	for _, c := range classes {
		ann, err := a.builder.Build(int(c), a.synth.Place(c))
		if err != nil {
			return nil, nil, nil, err
		}
		items = append(items, synth.Item{Class: c, Box: ann.Box})
		anns = append(anns, ann)
	}
	return a.synth.Render(items), classes, anns, nil
}

func (a *Assembler) writeSample(split string, index int) (*Sample, error) {
	img, classes, anns, err := a.Generate()
	if err != nil {
		return nil, err
	}

	name := SampleName(split, index)
	s := &Sample{
		Split:       split,
		Index:       index,
		ImagePath:   filepath.Join(a.opts.Root, "images", split, name+"."+a.format),
		LabelPath:   filepath.Join(a.opts.Root, "labels", split, name+".txt"),
		Classes:     classes,
		Annotations: anns,
	}

	lossless := a.format == processing.FormatWebP && a.opts.Quality == 100
	if err := a.processor.SaveImage(img, s.ImagePath, a.format, a.opts.Quality, lossless); err != nil {
		return nil, fmt.Errorf("failed to save %s: %w", s.ImagePath, err)
	}
	if err := os.WriteFile(s.LabelPath, []byte(annotation.Format(anns)), 0644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", s.LabelPath, err)
	}
	if a.recorder != nil {
		if err := a.recorder.Record(*s); err != nil {
			return nil, fmt.Errorf("failed to record %s: %w", name, err)
		}
	}
	return s, nil
}

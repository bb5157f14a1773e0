package dataset

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/dentalai/dentalsynth/pkg/annotation"
	"github.com/dentalai/dentalsynth/pkg/conditions"
	"github.com/dentalai/dentalsynth/pkg/processing"
	"github.com/dentalai/dentalsynth/pkg/synth"
)

// Split names, also used as file name prefixes.
const (
	SplitTrain = "train"
	SplitVal   = "val"
)

// Train fraction bounds.
const (
	MinTrainSplit = 0.5
	MaxTrainSplit = 0.9
)

// Options configures one generation run.
type Options struct {
	Root          string
	Count         int
	TrainSplit    float64
	Render        synth.Config
	Format        string
	Quality       int
	Seed          int64
	MaxConditions int             // upper bound of conditions per multi-style image
	Classes       *conditions.Set // classes drawn; label indices follow the enumeration
	Limits        annotation.Limits
}

// DefaultOptions returns 1000 single-condition jpg samples split 80/20.
func DefaultOptions(root string) Options {
	return Options{
		Root:          root,
		Count:         1000,
		TrainSplit:    0.8,
		Render:        synth.DefaultConfig(),
		Format:        processing.FormatJPG,
		Quality:       95,
		Seed:          1,
		MaxConditions: 4,
		Classes:       conditions.DefaultSet(),
		Limits:        annotation.DefaultLimits(),
	}
}

// Validate checks every option. It never touches the filesystem.
func (o Options) Validate() error {
	if o.Root == "" {
		return fmt.Errorf("output root is required")
	}
	if o.Count < 1 {
		return fmt.Errorf("count must be positive, got %d", o.Count)
	}
	if math.IsNaN(o.TrainSplit) || o.TrainSplit < MinTrainSplit || o.TrainSplit > MaxTrainSplit {
		return fmt.Errorf("train split %g must be within %.1f..%.1f", o.TrainSplit, MinTrainSplit, MaxTrainSplit)
	}
	if err := o.Render.Validate(); err != nil {
		return err
	}
	if _, err := processing.NormalizeFormat(o.Format); err != nil {
		return err
	}
	if o.Quality < 1 || o.Quality > 100 {
		return fmt.Errorf("quality %d must be within 1..100", o.Quality)
	}
	if o.Render.Style == synth.StyleMulti && o.MaxConditions < 1 {
		return fmt.Errorf("max conditions must be positive, got %d", o.MaxConditions)
	}
	if o.Classes == nil || o.Classes.Len() == 0 {
		return fmt.Errorf("class set cannot be empty")
	}
	return o.Limits.Validate()
}

// Split returns the train and validation sample counts for count samples.
func Split(count int, trainSplit float64) (train, val int) {
	train = int(math.Floor(float64(count) * trainSplit))
	return train, count - train
}

// SampleName returns the base file name of a sample, e.g. train_0007.
func SampleName(split string, index int) string {
	return fmt.Sprintf("%s_%04d", split, index)
}

// RootFor returns the dataset root of an image at <root>/images/<split>/<name>,
// or the image's directory when it sits outside that layout.
func RootFor(imagePath string) string {
	dir := filepath.Dir(imagePath)
	parent := filepath.Dir(dir)
	if filepath.Base(parent) == "images" {
		return filepath.Dir(parent)
	}
	return dir
}

// LabelPathFor maps <root>/images/<split>/<name>.<ext> to its label file
// <root>/labels/<split>/<name>.txt. Images outside that layout get a label
// next to them.
func LabelPathFor(imagePath string) string {
	dir, file := filepath.Split(imagePath)
	name := strings.TrimSuffix(file, filepath.Ext(file)) + ".txt"
	split := filepath.Base(dir)
	parent := filepath.Dir(filepath.Clean(dir))
	if filepath.Base(parent) == "images" {
		return filepath.Join(filepath.Dir(parent), "labels", split, name)
	}
	return filepath.Join(dir, name)
}

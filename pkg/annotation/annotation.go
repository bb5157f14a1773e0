// Package annotation builds, formats and parses YOLO label lines.
//
// A label line is "class cx cy w h" with the four box values normalized to the
// image size. The builder clamps every value into its documented range before
// handing it back, so anything it returns can be written as-is.
package annotation

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dentalai/dentalsynth/pkg/types"
)

// Limits bounds the values an annotation may carry.
type Limits struct {
	MinCenter float64 `json:"min_center"`
	MaxCenter float64 `json:"max_center"`
	MinWidth  float64 `json:"min_width"`
	MaxWidth  float64 `json:"max_width"`
	MinHeight float64 `json:"min_height"`
	MaxHeight float64 `json:"max_height"`
}

// DefaultLimits returns center in [0,1] and extents in [0.1,0.8].
func DefaultLimits() Limits {
	return Limits{
		MinCenter: 0, MaxCenter: 1,
		MinWidth: 0.1, MaxWidth: 0.8,
		MinHeight: 0.1, MaxHeight: 0.8,
	}
}

// Validate checks that the limits describe non-empty ranges inside [0,1].
func (l Limits) Validate() error {
	check := func(name string, lo, hi float64) error {
		if lo < 0 || hi > 1 || lo > hi {
			return fmt.Errorf("%s range [%g,%g] must satisfy 0 <= min <= max <= 1", name, lo, hi)
		}
		return nil
	}
	if err := check("center", l.MinCenter, l.MaxCenter); err != nil {
		return err
	}
	if err := check("width", l.MinWidth, l.MaxWidth); err != nil {
		return err
	}
	return check("height", l.MinHeight, l.MaxHeight)
}

// Annotation is one labelled box.
type Annotation struct {
	Class int
	Box   types.CenterBox
}

// String formats the annotation as a YOLO label line without a newline.
func (a Annotation) String() string {
	return fmt.Sprintf("%d %.6f %.6f %.6f %.6f", a.Class, a.Box.CX, a.Box.CY, a.Box.W, a.Box.H)
}

// Check reports whether a is within classCount and l.
func (a Annotation) Check(classCount int, l Limits) error {
	if a.Class < 0 || a.Class >= classCount {
		return fmt.Errorf("class %d outside [0,%d)", a.Class, classCount)
	}
	const eps = 1e-6
	in := func(v, lo, hi float64) bool { return v >= lo-eps && v <= hi+eps }
	if !in(a.Box.CX, l.MinCenter, l.MaxCenter) || !in(a.Box.CY, l.MinCenter, l.MaxCenter) {
		return fmt.Errorf("center (%g,%g) outside [%g,%g]", a.Box.CX, a.Box.CY, l.MinCenter, l.MaxCenter)
	}
	if !in(a.Box.W, l.MinWidth, l.MaxWidth) {
		return fmt.Errorf("width %g outside [%g,%g]", a.Box.W, l.MinWidth, l.MaxWidth)
	}
	if !in(a.Box.H, l.MinHeight, l.MaxHeight) {
		return fmt.Errorf("height %g outside [%g,%g]", a.Box.H, l.MinHeight, l.MaxHeight)
	}
	return nil
}

// Builder turns placement rectangles into clamped annotations.
type Builder struct {
	classCount int
	limits     Limits
}

// NewBuilder creates a builder for a dataset with classCount classes.
func NewBuilder(classCount int, limits Limits) (*Builder, error) {
	if classCount <= 0 {
		return nil, fmt.Errorf("class count must be positive, got %d", classCount)
	}
	if err := limits.Validate(); err != nil {
		return nil, fmt.Errorf("invalid annotation limits: %w", err)
	}
	return &Builder{classCount: classCount, limits: limits}, nil
}

// Limits returns the ranges the builder clamps into.
func (b *Builder) Limits() Limits {
	return b.limits
}

// Build clamps box into the builder's limits and pairs it with class.
// The only failure is a class index outside the dataset.
func (b *Builder) Build(class int, box types.CenterBox) (Annotation, error) {
	if class < 0 || class >= b.classCount {
		return Annotation{}, fmt.Errorf("class %d outside [0,%d)", class, b.classCount)
	}
	return Annotation{
		Class: class,
		Box: types.CenterBox{
			CX: clamp(box.CX, b.limits.MinCenter, b.limits.MaxCenter),
			CY: clamp(box.CY, b.limits.MinCenter, b.limits.MaxCenter),
			W:  clamp(box.W, b.limits.MinWidth, b.limits.MaxWidth),
			H:  clamp(box.H, b.limits.MinHeight, b.limits.MaxHeight),
		},
	}, nil
}

// Format joins annotations into label file content, one line each, in order.
func Format(anns []Annotation) string {
	var sb strings.Builder
	for _, a := range anns {
		sb.WriteString(a.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Parse reads a single label line.
func Parse(line string) (Annotation, error) {
	fields := strings.Fields(line)
	if len(fields) != 5 {
		return Annotation{}, fmt.Errorf("expected 5 fields, got %d", len(fields))
	}
	class, err := strconv.Atoi(fields[0])
	if err != nil {
		return Annotation{}, fmt.Errorf("invalid class id %q: %w", fields[0], err)
	}
	var vals [4]float64
	for i := 0; i < 4; i++ {
		v, err := strconv.ParseFloat(fields[i+1], 64)
		if err != nil {
			return Annotation{}, fmt.Errorf("invalid box value %q: %w", fields[i+1], err)
		}
		vals[i] = v
	}
	return Annotation{
		Class: class,
		Box:   types.CenterBox{CX: vals[0], CY: vals[1], W: vals[2], H: vals[3]},
	}, nil
}

// ParseFile reads every non-blank line of a label file.
func ParseFile(path string) ([]Annotation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open label file: %w", err)
	}
	defer f.Close()

	var out []Annotation
	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		a, err := Parse(line)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
		out = append(out, a)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read label file: %w", err)
	}
	return out, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

package dentalsynth

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dentalai/dentalsynth/pkg/annotation"
	"github.com/dentalai/dentalsynth/pkg/conditions"
	"github.com/dentalai/dentalsynth/pkg/dataset"
)

func smallGenerator(t *testing.T, count int) *Generator {
	t.Helper()
	opts := dataset.DefaultOptions(filepath.Join(t.TempDir(), "ds"))
	opts.Count = count
	opts.Render.Width, opts.Render.Height = 96, 96
	opts.Quality = 80
	gen, err := NewWithOptions(opts)
	if err != nil {
		t.Fatalf("NewWithOptions() failed: %v", err)
	}
	return gen
}

func TestNew(t *testing.T) {
	gen, err := New(t.TempDir(), 10)
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}
	if gen.images == nil || gen.processor == nil {
		t.Error("components not initialized")
	}
	if gen.Options().TrainSplit != 0.8 {
		t.Errorf("Expected default split 0.8, got %f", gen.Options().TrainSplit)
	}
}

func TestNewRejectsBadOptions(t *testing.T) {
	if _, err := New("", 10); err == nil {
		t.Error("Expected error for empty root")
	}
	if _, err := New(t.TempDir(), 0); err == nil {
		t.Error("Expected error for zero count")
	}
}

func TestGenerateAndValidate(t *testing.T) {
	gen := smallGenerator(t, 10)

	sum, err := gen.Generate()
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if sum.Train != 8 || sum.Val != 2 {
		t.Errorf("Expected 8/2 split, got %d/%d", sum.Train, sum.Val)
	}

	report, err := gen.Validate()
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if report.Train.Labels != 8 || report.Val.Labels != 2 {
		t.Errorf("Expected 8/2 labels, got %d/%d", report.Train.Labels, report.Val.Labels)
	}
	if len(report.Warnings) != 0 {
		t.Errorf("Expected no warnings, got %v", report.Warnings)
	}
}

func TestSample(t *testing.T) {
	gen := smallGenerator(t, 10)

	img, ann, err := gen.Sample(conditions.Tartar, 7)
	if err != nil {
		t.Fatalf("Sample failed: %v", err)
	}
	if img.Bounds().Dx() != 96 {
		t.Errorf("Expected width 96, got %d", img.Bounds().Dx())
	}
	if ann.Class != int(conditions.Tartar) {
		t.Errorf("Expected class %d, got %d", conditions.Tartar, ann.Class)
	}
	if err := ann.Check(conditions.Count(), annotation.DefaultLimits()); err != nil {
		t.Errorf("Sample annotation out of range: %v", err)
	}

	out := filepath.Join(t.TempDir(), "preview.png")
	if err := gen.SavePreview(img, []annotation.Annotation{ann}, out); err != nil {
		t.Fatalf("SavePreview failed: %v", err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("Expected preview file: %v", err)
	}
}

func TestGetVersion(t *testing.T) {
	if GetVersion() != Version {
		t.Errorf("Expected version %s, got %s", Version, GetVersion())
	}
}

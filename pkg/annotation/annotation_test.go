package annotation

import (
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dentalai/dentalsynth/pkg/types"
)

func TestBuildClampsValues(t *testing.T) {
	b, err := NewBuilder(10, DefaultLimits())
	if err != nil {
		t.Fatalf("NewBuilder failed: %v", err)
	}

	a, err := b.Build(3, types.CenterBox{CX: -0.2, CY: 1.4, W: 0.95, H: 0.01})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	want := types.CenterBox{CX: 0, CY: 1, W: 0.8, H: 0.1}
	if a.Box != want {
		t.Errorf("Expected %+v, got %+v", want, a.Box)
	}
	if a.Class != 3 {
		t.Errorf("Expected class 3, got %d", a.Class)
	}
}

func TestBuildRejectsUnknownClass(t *testing.T) {
	b, _ := NewBuilder(10, DefaultLimits())
	for _, class := range []int{-1, 10, 99} {
		if _, err := b.Build(class, types.CenterBox{CX: 0.5, CY: 0.5, W: 0.2, H: 0.2}); err == nil {
			t.Errorf("Expected error for class %d", class)
		}
	}
}

func TestBuildAlwaysInRange(t *testing.T) {
	limits := DefaultLimits()
	b, _ := NewBuilder(10, limits)
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 1000; i++ {
		box := types.CenterBox{
			CX: rng.Float64()*3 - 1,
			CY: rng.Float64()*3 - 1,
			W:  rng.Float64() * 2,
			H:  rng.Float64() * 2,
		}
		a, err := b.Build(rng.Intn(10), box)
		if err != nil {
			t.Fatalf("Build failed: %v", err)
		}
		if err := a.Check(10, limits); err != nil {
			t.Fatalf("annotation %s out of range: %v", a, err)
		}

		// Values must survive the 6-digit text format.
		parsed, err := Parse(a.String())
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if err := parsed.Check(10, limits); err != nil {
			t.Fatalf("formatted annotation %s out of range: %v", a, err)
		}
	}
}

func TestFormat(t *testing.T) {
	anns := []Annotation{
		{Class: 0, Box: types.CenterBox{CX: 0.5, CY: 0.45, W: 0.6, H: 0.3}},
		{Class: 9, Box: types.CenterBox{CX: 0.25, CY: 0.5, W: 0.1, H: 0.2}},
	}
	got := Format(anns)
	want := "0 0.500000 0.450000 0.600000 0.300000\n9 0.250000 0.500000 0.100000 0.200000\n"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
	if Format(nil) != "" {
		t.Error("Expected empty output for no annotations")
	}
}

func TestParseErrors(t *testing.T) {
	tests := []string{
		"",
		"1 0.5 0.5 0.5",
		"x 0.5 0.5 0.5 0.5",
		"1 0.5 abc 0.5 0.5",
		"1 0.5 0.5 0.5 0.5 0.5",
	}
	for _, line := range tests {
		if _, err := Parse(line); err == nil {
			t.Errorf("Expected error for %q", line)
		}
	}
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "train_0000.txt")
	content := "2 0.5 0.5 0.2 0.2\n\n4 0.3 0.6 0.15 0.25\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	anns, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}
	if len(anns) != 2 {
		t.Fatalf("Expected 2 annotations, got %d", len(anns))
	}
	if anns[1].Class != 4 {
		t.Errorf("Expected class 4, got %d", anns[1].Class)
	}

	bad := filepath.Join(dir, "bad.txt")
	if err := os.WriteFile(bad, []byte("1 0.5 0.5 0.5 0.5\nbroken\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err = ParseFile(bad)
	if err == nil || !strings.Contains(err.Error(), ":2:") {
		t.Errorf("Expected error naming line 2, got %v", err)
	}
}

func TestLimitsValidate(t *testing.T) {
	if err := DefaultLimits().Validate(); err != nil {
		t.Errorf("default limits invalid: %v", err)
	}
	l := DefaultLimits()
	l.MinWidth = 0.9
	if err := l.Validate(); err == nil {
		t.Error("Expected error when min > max")
	}
	if _, err := NewBuilder(0, DefaultLimits()); err == nil {
		t.Error("Expected error for zero classes")
	}
}

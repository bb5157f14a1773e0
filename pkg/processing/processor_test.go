package processing

import (
	"encoding/base64"
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/dentalai/dentalsynth/pkg/types"
)

func createTestImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.NRGBA{uint8(x % 256), uint8(y % 256), 128, 255})
		}
	}
	return img
}

func TestNormalizeFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"jpg", FormatJPG, false},
		{"JPEG", FormatJPG, false},
		{".png", FormatPNG, false},
		{"webp", FormatWebP, false},
		{"bmp", "", true},
	}
	for _, tt := range tests {
		got, err := NormalizeFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("NormalizeFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("Expected %q, got %q", tt.want, got)
		}
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	p := NewProcessor()
	dir := t.TempDir()
	img := createTestImage(64, 48)

	for _, format := range []string{FormatJPG, FormatPNG, FormatWebP} {
		path := filepath.Join(dir, "sample."+format)
		if err := p.SaveImage(img, path, format, 95, false); err != nil {
			t.Fatalf("SaveImage(%s) failed: %v", format, err)
		}
		loaded, err := p.LoadImage(path)
		if err != nil {
			t.Fatalf("LoadImage(%s) failed: %v", format, err)
		}
		b := loaded.Bounds()
		if b.Dx() != 64 || b.Dy() != 48 {
			t.Errorf("%s: expected 64x48, got %dx%d", format, b.Dx(), b.Dy())
		}
	}
}

func TestSaveImageRejectsBadInput(t *testing.T) {
	p := NewProcessor()
	dir := t.TempDir()
	img := createTestImage(8, 8)

	if err := p.SaveImage(img, filepath.Join(dir, "a.bmp"), "bmp", 95, false); err == nil {
		t.Error("Expected error for unsupported format")
	}
	if err := p.SaveImage(img, filepath.Join(dir, "a.jpg"), "jpg", 0, false); err == nil {
		t.Error("Expected error for quality 0")
	}
}

func TestIsImageFile(t *testing.T) {
	if !IsImageFile("train_0001.JPG") || !IsImageFile("x.webp") {
		t.Error("Expected image extensions to be recognised")
	}
	if IsImageFile("train_0001.txt") {
		t.Error("Expected label file to be rejected")
	}
}

func TestPrepareImageForModel(t *testing.T) {
	p := NewProcessor()
	img := createTestImage(800, 400)

	encoded, err := p.PrepareImageForModel(img, "jpg", 200, 80)
	if err != nil {
		t.Fatalf("PrepareImageForModel failed: %v", err)
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("invalid base64: %v", err)
	}
	decoded, err := p.DecodeImage(data)
	if err != nil {
		t.Fatalf("DecodeImage failed: %v", err)
	}
	if decoded.Bounds().Dx() != 200 || decoded.Bounds().Dy() != 100 {
		t.Errorf("Expected 200x100, got %dx%d", decoded.Bounds().Dx(), decoded.Bounds().Dy())
	}
}

func TestCreateAnnotationOverlay(t *testing.T) {
	p := NewProcessor()
	img := image.NewNRGBA(image.Rect(0, 0, 100, 100))
	red := color.NRGBA{255, 0, 0, 255}

	out := p.CreateAnnotationOverlay(img, []OverlayBox{
		{Box: types.Box{X: 0.2, Y: 0.2, W: 0.4, H: 0.4}, Color: red},
	})

	if got := out.NRGBAAt(20, 30); got != red {
		t.Errorf("Expected box edge to be red, got %v", got)
	}
	if got := out.NRGBAAt(40, 40); got != red {
		t.Errorf("Expected center crosshair to be red, got %v", got)
	}
	if got := out.NRGBAAt(30, 35); got == red {
		t.Error("Expected box interior to stay untouched")
	}
	if got := img.NRGBAAt(20, 30); got == red {
		t.Error("Expected source image to stay untouched")
	}
}

func TestDecodeImageRejectsGarbage(t *testing.T) {
	if _, err := NewProcessor().DecodeImage([]byte("not an image")); err == nil {
		t.Error("Expected error for garbage data")
	}
}

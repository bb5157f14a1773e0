// Package analyzer checks dataset images without fully decoding them.
package analyzer

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"strings"

	_ "golang.org/x/image/webp"
)

// ImageAnalyzer inspects image headers and enforces dataset requirements.
type ImageAnalyzer struct {
	config Config
}

// Config holds the requirements a dataset image must meet.
type Config struct {
	SupportedFormats []string `json:"supported_formats"`
	MinImageSize     int      `json:"min_image_size"`
	// ExpectedWidth and ExpectedHeight pin the image size; zero accepts any size.
	ExpectedWidth  int `json:"expected_width"`
	ExpectedHeight int `json:"expected_height"`
}

// DefaultConfig accepts every format the generator writes, at least 32px on a side.
func DefaultConfig() Config {
	return Config{
		SupportedFormats: []string{"jpeg", "png", "webp"},
		MinImageSize:     32,
	}
}

// New creates a new ImageAnalyzer with default configuration
func New() *ImageAnalyzer {
	return &ImageAnalyzer{config: DefaultConfig()}
}

// NewWithConfig creates a new ImageAnalyzer with custom configuration
func NewWithConfig(config Config) *ImageAnalyzer {
	return &ImageAnalyzer{config: config}
}

// ImageInfo contains basic image metadata
type ImageInfo struct {
	Format      string  `json:"format"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	AspectRatio float64 `json:"aspect_ratio"`
	Area        int     `json:"area"`
}

// Inspect reads the image header from r.
func (a *ImageAnalyzer) Inspect(r io.Reader) (ImageInfo, error) {
	cfg, format, err := image.DecodeConfig(r)
	if err != nil {
		return ImageInfo{}, fmt.Errorf("failed to decode image header: %w", err)
	}
	info := ImageInfo{
		Format: format,
		Width:  cfg.Width,
		Height: cfg.Height,
		Area:   cfg.Width * cfg.Height,
	}
	if cfg.Height > 0 {
		info.AspectRatio = float64(cfg.Width) / float64(cfg.Height)
	}
	return info, nil
}

// CheckFile inspects the image at path and validates it against the configuration.
func (a *ImageAnalyzer) CheckFile(path string) (ImageInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return ImageInfo{}, fmt.Errorf("failed to open image file: %w", err)
	}
	defer f.Close()

	info, err := a.Inspect(f)
	if err != nil {
		return info, err
	}
	return info, a.Validate(info)
}

// Validate checks if an image meets the configured requirements
func (a *ImageAnalyzer) Validate(info ImageInfo) error {
	if !a.isFormatSupported(info.Format) {
		return fmt.Errorf("unsupported image format: %s", info.Format)
	}
	if info.Width < a.config.MinImageSize || info.Height < a.config.MinImageSize {
		return fmt.Errorf("image too small: %dx%d (minimum: %d)",
			info.Width, info.Height, a.config.MinImageSize)
	}
	if a.config.ExpectedWidth > 0 && info.Width != a.config.ExpectedWidth {
		return fmt.Errorf("image width %d, expected %d", info.Width, a.config.ExpectedWidth)
	}
	if a.config.ExpectedHeight > 0 && info.Height != a.config.ExpectedHeight {
		return fmt.Errorf("image height %d, expected %d", info.Height, a.config.ExpectedHeight)
	}
	return nil
}

func (a *ImageAnalyzer) isFormatSupported(format string) bool {
	for _, supported := range a.config.SupportedFormats {
		if strings.EqualFold(format, supported) {
			return true
		}
	}
	return false
}

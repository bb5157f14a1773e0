// Package synth renders stylized dental images for synthetic training data.
//
// A Synthesizer picks a placement rectangle for a condition (Place) and draws a
// sample from a list of already clamped placements (Render). Every condition
// maps to exactly one drawing routine per style; the random source only moves
// and resizes shapes and jitters colours. Which condition to draw is always the
// caller's decision.
//
// Two styles are supported:
//
//   - StyleSingle: one condition per image. A row of six teeth on a noisy skin
//     tone, tinted and marked for the condition, with a gum strip underneath and
//     a light box blur for texture. The placement covers the teeth row.
//   - StyleMulti: several conditions per image. A mouth outline with two tooth
//     rows, and a coloured, outlined shape per condition inside its placement.
package synth

import (
	"fmt"
	"image"
	"math/rand"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/dentalai/dentalsynth/pkg/conditions"
	"github.com/dentalai/dentalsynth/pkg/types"
)

// DefaultSize is the default width and height of generated images.
const DefaultSize = 416

// Style selects the rendering layout.
type Style string

const (
	StyleSingle Style = "single"
	StyleMulti  Style = "multi"
)

// Config holds rendering parameters.
type Config struct {
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Style      Style   `json:"style"`
	NoiseSigma float64 `json:"noise_sigma"` // per-channel gaussian noise, 0-255 scale
	BlurRadius float64 `json:"blur_radius"` // box blur radius in pixels, 0 disables
}

// DefaultConfig returns a 416x416 single-condition configuration.
func DefaultConfig() Config {
	return Config{
		Width:      DefaultSize,
		Height:     DefaultSize,
		Style:      StyleSingle,
		NoiseSigma: 10,
		BlurRadius: 1,
	}
}

// Validate checks the configuration ranges.
func (c Config) Validate() error {
	if c.Width < 64 || c.Width > 4096 || c.Height < 64 || c.Height > 4096 {
		return fmt.Errorf("image size %dx%d must be within 64..4096", c.Width, c.Height)
	}
	if c.Style != StyleSingle && c.Style != StyleMulti {
		return fmt.Errorf("unknown style %q (use single or multi)", c.Style)
	}
	if c.NoiseSigma < 0 || c.NoiseSigma > 64 {
		return fmt.Errorf("noise sigma %g must be within 0..64", c.NoiseSigma)
	}
	if c.BlurRadius < 0 || c.BlurRadius > 8 {
		return fmt.Errorf("blur radius %g must be within 0..8", c.BlurRadius)
	}
	return nil
}

// Item is one condition to draw and where to draw it.
type Item struct {
	Class conditions.Class
	Box   types.CenterBox
}

// Synthesizer draws synthetic dental images. It is not safe for concurrent use
// because it shares a random source.
type Synthesizer struct {
	cfg Config
	rng *rand.Rand
}

// New creates a synthesizer drawing with rng.
func New(cfg Config, rng *rand.Rand) (*Synthesizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}
	return &Synthesizer{cfg: cfg, rng: rng}, nil
}

// Config returns the rendering configuration.
func (s *Synthesizer) Config() Config {
	return s.cfg
}

// Place picks a randomized placement rectangle for a condition.
// The result is not clamped; pass it through an annotation builder first.
func (s *Synthesizer) Place(c conditions.Class) types.CenterBox {
	if s.cfg.Style == StyleMulti {
		return s.placeRegion()
	}
	return s.placeTeethRow(c)
}

// Render draws the given items. In StyleSingle only the first item is drawn;
// with no items the result is the bare background.
func (s *Synthesizer) Render(items []Item) *image.NRGBA {
	if s.cfg.Style == StyleMulti {
		return s.renderMulti(items)
	}
	return s.renderSingle(items)
}

// Synthesize places and renders a single condition in one step.
func (s *Synthesizer) Synthesize(c conditions.Class) (*image.NRGBA, types.CenterBox) {
	box := s.Place(c)
	return s.Render([]Item{{Class: c, Box: box}}), box
}

// pixelRect converts a normalized center box to a pixel rectangle clipped to the image.
func (s *Synthesizer) pixelRect(b types.CenterBox) image.Rectangle {
	w, h := float64(s.cfg.Width), float64(s.cfg.Height)
	r := image.Rect(
		int((b.CX-b.W/2)*w),
		int((b.CY-b.H/2)*h),
		int((b.CX+b.W/2)*w),
		int((b.CY+b.H/2)*h),
	)
	return r.Intersect(image.Rect(0, 0, s.cfg.Width, s.cfg.Height))
}

func (s *Synthesizer) uniform(lo, hi float64) float64 {
	return lo + s.rng.Float64()*(hi-lo)
}

// addNoise perturbs every channel with gaussian noise of the configured sigma.
func (s *Synthesizer) addNoise(img *image.NRGBA) {
	if s.cfg.NoiseSigma == 0 {
		return
	}
	for i := 0; i < len(img.Pix); i += 4 {
		for ch := 0; ch < 3; ch++ {
			v := float64(img.Pix[i+ch]) + s.rng.NormFloat64()*s.cfg.NoiseSigma
			img.Pix[i+ch] = uint8(clampf(v, 0, 255))
		}
	}
}

func newBackground(w, h int, c colorful.Color) *image.NRGBA {
	return imaging.New(w, h, toNRGBA(c))
}

func clampf(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

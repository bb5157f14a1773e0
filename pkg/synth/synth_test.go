package synth

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dentalai/dentalsynth/pkg/conditions"
	"github.com/dentalai/dentalsynth/pkg/types"
)

func newTestSynth(t *testing.T, style Style, seed int64) *Synthesizer {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Style = style
	s, err := New(cfg, rand.New(rand.NewSource(seed)))
	require.NoError(t, err)
	return s
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"too small", func(c *Config) { c.Width = 32 }},
		{"too large", func(c *Config) { c.Height = 5000 }},
		{"unknown style", func(c *Config) { c.Style = "grid" }},
		{"negative noise", func(c *Config) { c.NoiseSigma = -1 }},
		{"huge blur", func(c *Config) { c.BlurRadius = 20 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestNewRequiresRandomSource(t *testing.T) {
	_, err := New(DefaultConfig(), nil)
	assert.Error(t, err)
}

func TestEveryClassHasRoutines(t *testing.T) {
	for _, c := range conditions.All() {
		_, ok := singleRoutines[c]
		assert.True(t, ok, "no single routine for %s", c)
		_, ok = regionRoutines[c]
		assert.True(t, ok, "no region routine for %s", c)
		_, ok = regionSwatch[c]
		assert.True(t, ok, "no swatch for %s", c)
		_, ok = toothTint[c]
		assert.True(t, ok, "no tint for %s", c)
	}
}

func TestRenderSizeForEveryClass(t *testing.T) {
	for _, style := range []Style{StyleSingle, StyleMulti} {
		s := newTestSynth(t, style, 7)
		for _, c := range conditions.All() {
			img, _ := s.Synthesize(c)
			b := img.Bounds()
			assert.Equal(t, DefaultSize, b.Dx(), "%s/%s width", style, c)
			assert.Equal(t, DefaultSize, b.Dy(), "%s/%s height", style, c)
		}
	}
}

func TestRenderNonSquare(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Width, cfg.Height = 320, 240
	cfg.Style = StyleMulti
	s, err := New(cfg, rand.New(rand.NewSource(3)))
	require.NoError(t, err)

	img := s.Render([]Item{
		{Class: conditions.Cavity, Box: s.Place(conditions.Cavity)},
		{Class: conditions.Chipped, Box: s.Place(conditions.Chipped)},
	})
	assert.Equal(t, 320, img.Bounds().Dx())
	assert.Equal(t, 240, img.Bounds().Dy())
}

func TestSameSeedSameImage(t *testing.T) {
	for _, style := range []Style{StyleSingle, StyleMulti} {
		a, boxA := newTestSynth(t, style, 42).Synthesize(conditions.Discoloration)
		b, boxB := newTestSynth(t, style, 42).Synthesize(conditions.Discoloration)
		assert.Equal(t, boxA, boxB)
		assert.True(t, bytes.Equal(a.Pix, b.Pix), "%s: pixels differ for equal seeds", style)
	}
}

func TestConditionsLookDifferent(t *testing.T) {
	healthy, _ := newTestSynth(t, StyleSingle, 5).Synthesize(conditions.HealthyTooth)
	cavity, _ := newTestSynth(t, StyleSingle, 5).Synthesize(conditions.Cavity)
	assert.False(t, bytes.Equal(healthy.Pix, cavity.Pix))
}

func TestPlaceTeethRowRanges(t *testing.T) {
	s := newTestSynth(t, StyleSingle, 11)
	for i := 0; i < 500; i++ {
		for _, c := range conditions.All() {
			b := s.Place(c)
			assert.InDelta(t, 0.5, b.CX, 0.15+1e-9)
			assert.InDelta(t, 0.45, b.CY, 0.04+1e-9)
			assert.InDelta(t, 0.6, b.W, 0.1+1e-9)
			assert.InDelta(t, 0.3, b.H, 0.08+1e-9)
		}
	}
}

func TestPlaceRegionRanges(t *testing.T) {
	s := newTestSynth(t, StyleMulti, 13)
	for i := 0; i < 1000; i++ {
		b := s.Place(conditions.Plaque)
		require.True(t, b.CX >= 0.2 && b.CX <= 0.8, "cx %f", b.CX)
		require.True(t, b.CY >= 0.3 && b.CY <= 0.7, "cy %f", b.CY)
		require.True(t, b.W >= 0.1 && b.W <= 0.3, "w %f", b.W)
		require.True(t, b.H >= 0.1 && b.H <= 0.3, "h %f", b.H)
	}
}

func TestRenderWithoutItems(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NoiseSigma = 0
	cfg.BlurRadius = 0
	s, err := New(cfg, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	img := s.Render(nil)
	want := toNRGBA(skinTone)
	assert.Equal(t, want, img.NRGBAAt(0, 0))
	assert.Equal(t, want, img.NRGBAAt(200, 300))
}

func TestSingleDrawsInsidePlacement(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NoiseSigma = 0
	cfg.BlurRadius = 0
	s, err := New(cfg, rand.New(rand.NewSource(9)))
	require.NoError(t, err)

	box := types.CenterBox{CX: 0.5, CY: 0.5, W: 0.5, H: 0.4}
	img := s.Render([]Item{{Class: conditions.HealthyTooth, Box: box}})

	bg := toNRGBA(skinTone)
	// Corners stay background, the gum strip at the bottom of the placement does not.
	assert.Equal(t, bg, img.NRGBAAt(5, 5))
	assert.Equal(t, bg, img.NRGBAAt(410, 410))
	assert.Equal(t, toNRGBA(gumHealthy), img.NRGBAAt(208, 285))
}

func TestPixelRectClipsToImage(t *testing.T) {
	s := newTestSynth(t, StyleSingle, 1)
	r := s.pixelRect(types.CenterBox{CX: 0.95, CY: 0.05, W: 0.4, H: 0.4})
	assert.Equal(t, 416, r.Max.X)
	assert.Equal(t, 0, r.Min.Y)
}

func TestClassColor(t *testing.T) {
	c := ClassColor(conditions.Gingivitis)
	assert.Equal(t, uint8(0xDC), c.R)
	assert.Equal(t, uint8(0x14), c.G)
	assert.Equal(t, uint8(0x3C), c.B)
}

package synth

import (
	"image/color"
	"math/rand"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/dentalai/dentalsynth/pkg/conditions"
)

var (
	skinTone      = mustHex("#DCB496")
	lightBackdrop = mustHex("#F0F0F0")
	gumHealthy    = mustHex("#A06450")
	gumInflamed   = mustHex("#B47864")
	mouthShadow   = mustHex("#5A1E1E")
	lipColor      = mustHex("#B4505A")
	enamel        = mustHex("#FFFFF0")
	black         = colorful.Color{R: 0, G: 0, B: 0}
)

// toothTint is the base enamel colour per condition for single-condition samples.
var toothTint = map[conditions.Class]colorful.Color{
	conditions.HealthyTooth:    mustHex("#FFFFF0"),
	conditions.Cavity:          mustHex("#C89664"),
	conditions.Discoloration:   mustHex("#DCC8B4"),
	conditions.Plaque:          mustHex("#B4B4B4"),
	conditions.Tartar:          mustHex("#A0A0A0"),
	conditions.DeadTooth:       mustHex("#646464"),
	conditions.Chipped:         mustHex("#F0F0F0"),
	conditions.Gingivitis:      mustHex("#F5F0E6"),
	conditions.GumInflammation: mustHex("#F5F0E6"),
	conditions.Misaligned:      mustHex("#FAFAFA"),
}

// swatch is the fill and outline used for a condition region in multi-condition samples.
type swatch struct {
	fill    colorful.Color
	outline colorful.Color
}

var regionSwatch = map[conditions.Class]swatch{
	conditions.Cavity:          {mustHex("#8B4513"), mustHex("#000000")},
	conditions.Gingivitis:      {mustHex("#DC143C"), mustHex("#8B0000")},
	conditions.Discoloration:   {mustHex("#FFFF00"), mustHex("#C8C800")},
	conditions.Plaque:          {mustHex("#C0C0C0"), mustHex("#A9A9A9")},
	conditions.Tartar:          {mustHex("#A0522D"), mustHex("#654321")},
	conditions.DeadTooth:       {mustHex("#696969"), mustHex("#404040")},
	conditions.Chipped:         {mustHex("#800080"), mustHex("#400040")},
	conditions.Misaligned:      {mustHex("#4B0082"), mustHex("#250041")},
	conditions.HealthyTooth:    {mustHex("#228B22"), mustHex("#006400")},
	conditions.GumInflammation: {mustHex("#FF4500"), mustHex("#8B0000")},
}

// ClassColor returns the display colour of a class, used for overlays and legends.
func ClassColor(c conditions.Class) color.NRGBA {
	if s, ok := regionSwatch[c]; ok {
		return toNRGBA(s.fill)
	}
	return color.NRGBA{128, 128, 128, 255}
}

func mustHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	return c
}

func toNRGBA(c colorful.Color) color.NRGBA {
	r, g, b := c.Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}

// jitter shifts each channel by up to amount (0-1 scale) in either direction.
func jitter(c colorful.Color, rng *rand.Rand, amount float64) colorful.Color {
	return colorful.Color{
		R: c.R + (rng.Float64()*2-1)*amount,
		G: c.G + (rng.Float64()*2-1)*amount,
		B: c.B + (rng.Float64()*2-1)*amount,
	}.Clamped()
}

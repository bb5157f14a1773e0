package synth

import (
	"image"

	"github.com/anthonynsimon/bild/blur"
	"github.com/disintegration/imaging"

	"github.com/dentalai/dentalsynth/pkg/conditions"
	"github.com/dentalai/dentalsynth/pkg/types"
)

const teethPerArch = 8

type regionRoutine func(cv *canvas, r image.Rectangle, sw swatch)

// regionRoutines maps every condition to the shape drawn inside its placement.
var regionRoutines = map[conditions.Class]regionRoutine{
	conditions.Cavity:          drawRegionEllipse,
	conditions.Gingivitis:      drawRegionRect,
	conditions.Discoloration:   drawRegionEllipse,
	conditions.Plaque:          drawRegionRect,
	conditions.Tartar:          drawRegionRect,
	conditions.DeadTooth:       drawRegionRect,
	conditions.Chipped:         drawRegionJagged,
	conditions.Misaligned:      drawRegionTilted,
	conditions.HealthyTooth:    drawRegionRect,
	conditions.GumInflammation: drawRegionEllipse,
}

// placeRegion picks a placement anywhere in the mouth area.
func (s *Synthesizer) placeRegion() types.CenterBox {
	return types.CenterBox{
		CX: s.uniform(0.2, 0.8),
		CY: s.uniform(0.3, 0.7),
		W:  s.uniform(0.1, 0.3),
		H:  s.uniform(0.1, 0.3),
	}
}

func (s *Synthesizer) renderMulti(items []Item) *image.NRGBA {
	img := newBackground(s.cfg.Width, s.cfg.Height, lightBackdrop)
	s.addNoise(img)
	cv := newCanvas(img)
	s.drawMouth(cv)

	for _, it := range items {
		sw, ok := regionSwatch[it.Class]
		if !ok {
			continue
		}
		routine := regionRoutines[it.Class]
		routine(cv, s.pixelRect(it.Box), sw)
	}

	if s.cfg.BlurRadius > 0 {
		cv.img = imaging.Clone(blur.Box(cv.img, s.cfg.BlurRadius))
	}
	return cv.img
}

// drawMouth paints lips, the mouth cavity and an upper and lower tooth arch.
func (s *Synthesizer) drawMouth(cv *canvas) {
	w, h := s.cfg.Width, s.cfg.Height
	lips := image.Rect(w*15/100, h*20/100, w*85/100, h*80/100)
	cv.fillEllipse(lips, toNRGBA(lipColor))
	cavity := lips.Inset(min(lips.Dx(), lips.Dy()) / 10)
	cv.fillEllipse(cavity, toNRGBA(mouthShadow))

	archW := cavity.Dx() * 8 / 10
	left := cavity.Min.X + (cavity.Dx()-archW)/2
	toothW := archW / teethPerArch
	toothH := cavity.Dy() / 5
	gap := max(1, cv.px(2))
	mid := (cavity.Min.Y + cavity.Max.Y) / 2
	outline := toNRGBA(mustHex("#C8C8B4"))

	for i := 0; i < teethPerArch; i++ {
		x := left + i*toothW
		upper := image.Rect(x, mid-toothH-gap, x+toothW-gap, mid-gap)
		lower := image.Rect(x, mid+gap, x+toothW-gap, mid+toothH+gap)
		cv.outlinedRect(upper, toNRGBA(jitter(enamel, s.rng, 10.0/255.0)), outline, 1)
		cv.outlinedRect(lower, toNRGBA(jitter(enamel, s.rng, 10.0/255.0)), outline, 1)
	}
}

func drawRegionRect(cv *canvas, r image.Rectangle, sw swatch) {
	cv.outlinedRect(r, toNRGBA(sw.fill), toNRGBA(sw.outline), cv.px(2))
}

func drawRegionEllipse(cv *canvas, r image.Rectangle, sw swatch) {
	cv.outlinedEllipse(r, toNRGBA(sw.fill), toNRGBA(sw.outline), cv.px(2))
}

// drawRegionJagged draws a broken-edge polygon spanning the placement.
func drawRegionJagged(cv *canvas, r image.Rectangle, sw swatch) {
	x0, y0 := float64(r.Min.X), float64(r.Min.Y)
	w, h := float64(r.Dx()), float64(r.Dy())
	pts := []fpoint{
		{x0, y0 + h*0.2},
		{x0 + w*0.3, y0},
		{x0 + w*0.5, y0 + h*0.25},
		{x0 + w*0.75, y0},
		{x0 + w, y0 + h*0.3},
		{x0 + w, y0 + h},
		{x0, y0 + h},
	}
	cv.outlinedPolygon(pts, toNRGBA(sw.fill), toNRGBA(sw.outline), float64(cv.px(1)))
}

// drawRegionTilted draws the placement shrunk to 85% and rotated by 15 degrees.
func drawRegionTilted(cv *canvas, r image.Rectangle, sw swatch) {
	inner := r.Inset(min(r.Dx(), r.Dy()) * 15 / 200)
	cv.outlinedPolygon(rotatedRect(inner, 15), toNRGBA(sw.fill), toNRGBA(sw.outline), float64(cv.px(2)))
}

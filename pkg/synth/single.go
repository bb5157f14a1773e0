package synth

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/anthonynsimon/bild/blend"
	"github.com/anthonynsimon/bild/blur"
	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/dentalai/dentalsynth/pkg/conditions"
	"github.com/dentalai/dentalsynth/pkg/types"
)

const teethPerRow = 6

// teethRow is the pixel layout of one single-condition sample.
type teethRow struct {
	teeth []image.Rectangle
	gum   image.Rectangle
	tint  colorful.Color
}

type singleRoutine func(s *Synthesizer, cv *canvas, row teethRow)

// singleRoutines maps every condition to the routine that draws its teeth row.
var singleRoutines = map[conditions.Class]singleRoutine{
	conditions.Cavity:          drawCavities,
	conditions.Gingivitis:      drawGingivitis,
	conditions.Discoloration:   drawDiscoloration,
	conditions.Plaque:          drawPlaque,
	conditions.Tartar:          drawTartar,
	conditions.DeadTooth:       drawPlainRow,
	conditions.Chipped:         drawChipped,
	conditions.Misaligned:      drawMisaligned,
	conditions.HealthyTooth:    drawPlainRow,
	conditions.GumInflammation: drawGumInflammation,
}

// placeTeethRow centers the row slightly above the middle of the image and
// jitters it. Misaligned rows drift sideways and chipped rows vary in height.
func (s *Synthesizer) placeTeethRow(c conditions.Class) types.CenterBox {
	box := types.CenterBox{
		CX: 0.5 + s.uniform(-0.05, 0.05),
		CY: 0.45 + s.uniform(-0.04, 0.04),
		W:  0.6 + s.uniform(-0.05, 0.05),
		H:  0.3 + s.uniform(-0.03, 0.03),
	}
	switch c {
	case conditions.Misaligned:
		box.CX += s.uniform(-0.1, 0.1)
		box.W += s.uniform(-0.05, 0.05)
	case conditions.Chipped:
		box.H += s.uniform(-0.05, 0.05)
	}
	return box
}

func (s *Synthesizer) renderSingle(items []Item) *image.NRGBA {
	img := newBackground(s.cfg.Width, s.cfg.Height, skinTone)
	s.addNoise(img)
	if len(items) == 0 {
		return img
	}

	item := items[0]
	cv := newCanvas(img)
	row := s.layoutRow(cv, s.pixelRect(item.Box), item.Class)

	routine, ok := singleRoutines[item.Class]
	if !ok {
		routine = drawPlainRow
	}
	routine(s, cv, row)

	if s.cfg.BlurRadius > 0 {
		cv.img = imaging.Clone(blur.Box(cv.img, s.cfg.BlurRadius))
	}
	return cv.img
}

func (s *Synthesizer) layoutRow(cv *canvas, r image.Rectangle, c conditions.Class) teethRow {
	gumH := max(2, r.Dy()/5)
	bottom := r.Max.Y - gumH
	toothW := max(2, r.Dx()/teethPerRow)
	gap := min(cv.px(5), toothW/4)

	teeth := make([]image.Rectangle, teethPerRow)
	for i := range teeth {
		x := r.Min.X + i*toothW
		teeth[i] = image.Rect(x, r.Min.Y, x+toothW-gap, bottom)
	}

	tint, ok := toothTint[c]
	if !ok {
		tint = enamel
	}
	return teethRow{
		teeth: teeth,
		gum:   image.Rect(r.Min.X, bottom, r.Max.X, r.Max.Y),
		tint:  tint,
	}
}

// toothColor varies the row tint by up to 20 levels per channel.
func (s *Synthesizer) toothColor(row teethRow) color.NRGBA {
	return toNRGBA(jitter(row.tint, s.rng, 20.0/255.0))
}

func (s *Synthesizer) drawTeeth(cv *canvas, row teethRow) {
	for _, t := range row.teeth {
		cv.fillRect(t, s.toothColor(row))
	}
}

func drawPlainRow(s *Synthesizer, cv *canvas, row teethRow) {
	s.drawTeeth(cv, row)
	cv.fillRect(row.gum, toNRGBA(gumHealthy))
}

func drawCavities(s *Synthesizer, cv *canvas, row teethRow) {
	s.drawTeeth(cv, row)
	spot := toNRGBA(mustHex("#40200A"))
	for _, t := range row.teeth {
		radius := min(cv.px(s.uniform(3, 8)), max(1, min(t.Dx(), t.Dy())/3))
		x := t.Min.X + radius + s.rng.Intn(max(1, t.Dx()-2*radius))
		y := t.Min.Y + radius + s.rng.Intn(max(1, t.Dy()-2*radius))
		cv.fillCircle(x, y, radius, spot)
	}
	cv.fillRect(row.gum, toNRGBA(gumHealthy))
}

// drawChipped cuts a triangular notch out of the biting edge of each tooth.
func drawChipped(s *Synthesizer, cv *canvas, row teethRow) {
	s.drawTeeth(cv, row)
	notch := toNRGBA(skinTone)
	for _, t := range row.teeth {
		w := float64(t.Dx()) * s.uniform(0.25, 0.45)
		h := float64(t.Dy()) * s.uniform(0.1, 0.2)
		top := float64(t.Min.Y)
		if s.rng.Intn(2) == 0 {
			left := float64(t.Min.X)
			cv.fillPolygon([]fpoint{{left, top}, {left + w, top}, {left, top + h}}, notch)
		} else {
			right := float64(t.Max.X)
			cv.fillPolygon([]fpoint{{right, top}, {right - w, top}, {right, top + h}}, notch)
		}
	}
	cv.fillRect(row.gum, toNRGBA(gumHealthy))
}

// drawDiscoloration tints every tooth with a 20% yellow overlay.
func drawDiscoloration(s *Synthesizer, cv *canvas, row teethRow) {
	s.drawTeeth(cv, row)
	overlay := imaging.Clone(cv.img)
	yellow := image.NewUniform(color.NRGBA{255, 255, 0, 255})
	for _, t := range row.teeth {
		draw.Draw(overlay, t, yellow, image.Point{}, draw.Src)
	}
	cv.img = imaging.Clone(blend.Opacity(cv.img, overlay, 0.2))
	cv.fillRect(row.gum, toNRGBA(gumHealthy))
}

// drawPlaque lays a grey film over the lower part of each tooth.
func drawPlaque(s *Synthesizer, cv *canvas, row teethRow) {
	s.drawTeeth(cv, row)
	film := mustHex("#C8C8C8")
	for _, t := range row.teeth {
		inset := cv.px(2)
		top := t.Min.Y + int(float64(t.Dy())*s.uniform(0.35, 0.55))
		r := image.Rect(t.Min.X+inset, top, t.Max.X-inset, t.Max.Y-inset)
		cv.fillRect(r, toNRGBA(jitter(film, s.rng, 8.0/255.0)))
	}
	cv.fillRect(row.gum, toNRGBA(gumHealthy))
}

// drawTartar adds a dark band of buildup just above the gum line.
func drawTartar(s *Synthesizer, cv *canvas, row teethRow) {
	s.drawTeeth(cv, row)
	buildup := toNRGBA(mustHex("#78786E"))
	for _, t := range row.teeth {
		band := cv.px(s.uniform(4, 8))
		r := image.Rect(t.Min.X+cv.px(5), t.Max.Y-band-cv.px(5), t.Max.X-cv.px(5), t.Max.Y-cv.px(2))
		cv.fillRect(r, buildup)
	}
	cv.fillRect(row.gum, toNRGBA(gumHealthy))
}

// drawMisaligned tilts and offsets teeth alternately so the row looks crooked.
func drawMisaligned(s *Synthesizer, cv *canvas, row teethRow) {
	for i, t := range row.teeth {
		angle := s.uniform(6, 14)
		if i%2 == 1 {
			angle = -angle
		}
		shift := int(float64(t.Dy()) * s.uniform(-0.1, 0.1))
		cv.fillPolygon(rotatedRect(t.Add(image.Pt(0, shift)), angle), s.toothColor(row))
	}
	cv.fillRect(row.gum, toNRGBA(gumHealthy))
}

// drawGingivitis reddens the gum and marks a bright margin along the teeth.
func drawGingivitis(s *Synthesizer, cv *canvas, row teethRow) {
	s.drawTeeth(cv, row)
	cv.fillRect(row.gum, toNRGBA(gumInflamed))
	margin := cv.px(3)
	red := toNRGBA(gumInflamed.BlendLab(mustHex("#DC143C"), 0.6))
	cv.fillRect(image.Rect(row.gum.Min.X, row.gum.Min.Y, row.gum.Max.X, row.gum.Min.Y+margin), red)
}

// drawGumInflammation swells the gum with rounded lobes between the teeth.
func drawGumInflammation(s *Synthesizer, cv *canvas, row teethRow) {
	s.drawTeeth(cv, row)
	swollen := toNRGBA(gumInflamed)
	cv.fillRect(row.gum, swollen)
	lobe := toNRGBA(gumInflamed.BlendLab(black, 0.15))
	for _, t := range row.teeth {
		w := t.Dx() / 2
		h := max(2, int(float64(row.gum.Dy())*s.uniform(0.6, 1.0)))
		cx := t.Max.X
		r := image.Rect(cx-w/2, row.gum.Min.Y-h/2, cx+w/2, row.gum.Min.Y+h/2)
		cv.fillEllipse(r, lobe)
	}
}

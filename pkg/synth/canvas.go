package synth

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/vector"
)

// kappa places cubic Bézier control points for a quarter ellipse.
const kappa = 0.5522847498

type fpoint struct {
	X, Y float64
}

// canvas wraps the raster being drawn. All helpers clip to the image bounds,
// so callers only need to keep coordinates sensible, not strictly in range.
type canvas struct {
	img   *image.NRGBA
	z     *vector.Rasterizer
	scale float64 // image width relative to the 416px reference size
}

func newCanvas(img *image.NRGBA) *canvas {
	b := img.Bounds()
	return &canvas{
		img:   img,
		z:     vector.NewRasterizer(b.Dx(), b.Dy()),
		scale: float64(b.Dx()) / float64(DefaultSize),
	}
}

// px scales a length given at the reference size to this canvas.
func (c *canvas) px(v float64) int {
	n := int(math.Round(v * c.scale))
	if n < 1 {
		return 1
	}
	return n
}

func (c *canvas) fillRect(r image.Rectangle, col color.NRGBA) {
	r = r.Canon().Intersect(c.img.Bounds())
	if r.Empty() {
		return
	}
	draw.Draw(c.img, r, image.NewUniform(col), image.Point{}, draw.Src)
}

func (c *canvas) strokeRect(r image.Rectangle, col color.NRGBA, width int) {
	r = r.Canon()
	c.fillRect(image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+width), col)
	c.fillRect(image.Rect(r.Min.X, r.Max.Y-width, r.Max.X, r.Max.Y), col)
	c.fillRect(image.Rect(r.Min.X, r.Min.Y, r.Min.X+width, r.Max.Y), col)
	c.fillRect(image.Rect(r.Max.X-width, r.Min.Y, r.Max.X, r.Max.Y), col)
}

// outlinedRect fills r and draws a border of the given width inside it.
func (c *canvas) outlinedRect(r image.Rectangle, fill, outline color.NRGBA, width int) {
	c.fillRect(r, fill)
	c.strokeRect(r, outline, width)
}

func (c *canvas) fillPolygon(pts []fpoint, col color.NRGBA) {
	if len(pts) < 3 {
		return
	}
	b := c.img.Bounds()
	c.z.Reset(b.Dx(), b.Dy())
	c.z.DrawOp = draw.Over
	c.z.MoveTo(float32(pts[0].X), float32(pts[0].Y))
	for _, p := range pts[1:] {
		c.z.LineTo(float32(p.X), float32(p.Y))
	}
	c.z.ClosePath()
	c.z.Draw(c.img, b, image.NewUniform(col), image.Point{})
}

// strokePolygon draws each edge of the closed polygon as a quad of the given width.
func (c *canvas) strokePolygon(pts []fpoint, col color.NRGBA, width float64) {
	half := width / 2
	for i := range pts {
		p := pts[i]
		q := pts[(i+1)%len(pts)]
		dx, dy := q.X-p.X, q.Y-p.Y
		l := math.Hypot(dx, dy)
		if l == 0 {
			continue
		}
		nx, ny := -dy/l*half, dx/l*half
		c.fillPolygon([]fpoint{
			{p.X + nx, p.Y + ny},
			{q.X + nx, q.Y + ny},
			{q.X - nx, q.Y - ny},
			{p.X - nx, p.Y - ny},
		}, col)
	}
}

func (c *canvas) outlinedPolygon(pts []fpoint, fill, outline color.NRGBA, width float64) {
	c.fillPolygon(pts, fill)
	c.strokePolygon(pts, outline, width)
}

func (c *canvas) fillEllipse(r image.Rectangle, col color.NRGBA) {
	r = r.Canon()
	if r.Empty() {
		return
	}
	cx := float32(r.Min.X+r.Max.X) / 2
	cy := float32(r.Min.Y+r.Max.Y) / 2
	rx := float32(r.Dx()) / 2
	ry := float32(r.Dy()) / 2
	k := float32(kappa)

	b := c.img.Bounds()
	c.z.Reset(b.Dx(), b.Dy())
	c.z.DrawOp = draw.Over
	c.z.MoveTo(cx+rx, cy)
	c.z.CubeTo(cx+rx, cy+k*ry, cx+k*rx, cy+ry, cx, cy+ry)
	c.z.CubeTo(cx-k*rx, cy+ry, cx-rx, cy+k*ry, cx-rx, cy)
	c.z.CubeTo(cx-rx, cy-k*ry, cx-k*rx, cy-ry, cx, cy-ry)
	c.z.CubeTo(cx+k*rx, cy-ry, cx+rx, cy-k*ry, cx+rx, cy)
	c.z.ClosePath()
	c.z.Draw(c.img, b, image.NewUniform(col), image.Point{})
}

// outlinedEllipse paints the outline colour first and the fill inset by width on top.
func (c *canvas) outlinedEllipse(r image.Rectangle, fill, outline color.NRGBA, width int) {
	c.fillEllipse(r, outline)
	inner := r.Canon().Inset(width)
	c.fillEllipse(inner, fill)
}

func (c *canvas) fillCircle(cx, cy, radius int, col color.NRGBA) {
	c.fillEllipse(image.Rect(cx-radius, cy-radius, cx+radius, cy+radius), col)
}

// rotatedRect returns the corners of r rotated by deg degrees about its center.
func rotatedRect(r image.Rectangle, deg float64) []fpoint {
	cx := float64(r.Min.X+r.Max.X) / 2
	cy := float64(r.Min.Y+r.Max.Y) / 2
	hw := float64(r.Dx()) / 2
	hh := float64(r.Dy()) / 2
	sin, cos := math.Sincos(deg * math.Pi / 180)
	corners := []fpoint{{-hw, -hh}, {hw, -hh}, {hw, hh}, {-hw, hh}}
	out := make([]fpoint, len(corners))
	for i, p := range corners {
		out[i] = fpoint{
			X: cx + p.X*cos - p.Y*sin,
			Y: cy + p.X*sin + p.Y*cos,
		}
	}
	return out
}

// Package vision finds visually salient regions without a model, so generated
// labels can be sanity checked offline.
package vision

import (
	"image"
	"math"
	"sort"

	"github.com/dentalai/dentalsynth/pkg/types"
)

// RegionDetector scores image regions by edge strength and brightness.
type RegionDetector struct {
	config DetectionConfig
}

// DetectionConfig holds configuration for region detection
type DetectionConfig struct {
	EdgeThreshold   float64 // minimum mean saliency of a reported region
	ContrastWeight  float64
	ColorWeight     float64
	MinSubjectRatio float64 // minimum region area as a fraction of the image
	MaxRegions      int
}

// New creates a new RegionDetector with default configuration
func New() *RegionDetector {
	return &RegionDetector{
		config: DetectionConfig{
			EdgeThreshold:   0.01,
			ContrastWeight:  0.3,
			ColorWeight:     0.2,
			MinSubjectRatio: 0.05,
			MaxRegions:      10,
		},
	}
}

// NewWithConfig creates a new RegionDetector with custom configuration
func NewWithConfig(config DetectionConfig) *RegionDetector {
	return &RegionDetector{config: config}
}

// Region is a salient area in normalized coordinates.
type Region struct {
	Box   types.Box `json:"box"`
	Score float64   `json:"score"`
}

// SaliencyMap holds a per-pixel saliency score, indexed [y][x].
type SaliencyMap [][]float64

// Mean returns the mean saliency inside r, clipped to the map.
func (m SaliencyMap) Mean(r image.Rectangle) float64 {
	if len(m) == 0 {
		return 0
	}
	r = r.Intersect(image.Rect(0, 0, len(m[0]), len(m)))
	if r.Empty() {
		return 0
	}
	var total float64
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			total += m[y][x]
		}
	}
	return total / float64(r.Dx()*r.Dy())
}

// Saliency computes the saliency map of img.
func (d *RegionDetector) Saliency(img image.Image) SaliencyMap {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	saliencyMap := make(SaliencyMap, height)
	for i := range saliencyMap {
		saliencyMap[i] = make([]float64, width)
	}

	neighbors := [][2]int{{-1, -1}, {-1, 0}, {-1, 1}, {0, -1}, {0, 1}, {1, -1}, {1, 0}, {1, 1}}
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			r1, g1, b1, _ := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()

			// Edge strength: mean colour distance to the 8 neighbours.
			var edgeStrength float64
			for _, offset := range neighbors {
				r2, g2, b2, _ := img.At(x+offset[0]+bounds.Min.X, y+offset[1]+bounds.Min.Y).RGBA()
				dr := float64(r1) - float64(r2)
				dg := float64(g1) - float64(g2)
				db := float64(b1) - float64(b2)
				edgeStrength += math.Sqrt(dr*dr + dg*dg + db*db)
			}
			edgeStrength /= 8.0 * 65535.0

			brightness := (float64(r1) + float64(g1) + float64(b1)) / (3.0 * 65535.0)
			saliencyMap[y][x] = d.config.ContrastWeight*edgeStrength + d.config.ColorWeight*brightness
		}
	}

	return saliencyMap
}

// Contrast returns the mean saliency inside box divided by the mean outside
// it. Values above 1 mean the box stands out from the rest of the image.
func (d *RegionDetector) Contrast(img image.Image, box types.Box) float64 {
	return d.contrast(d.Saliency(img), img.Bounds().Dx(), img.Bounds().Dy(), box)
}

// ContrastAll scores several boxes against one saliency map.
func (d *RegionDetector) ContrastAll(img image.Image, boxes []types.Box) []float64 {
	m := d.Saliency(img)
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	out := make([]float64, len(boxes))
	for i, b := range boxes {
		out[i] = d.contrast(m, w, h, b)
	}
	return out
}

func (d *RegionDetector) contrast(m SaliencyMap, width, height int, box types.Box) float64 {
	r := toPixels(box, width, height)
	if r.Empty() {
		return 0
	}
	inside := m.Mean(r)
	whole := m.Mean(image.Rect(0, 0, width, height))
	area := float64(r.Dx() * r.Dy())
	rest := float64(width*height) - area
	if rest <= 0 {
		return 1
	}
	outside := (whole*float64(width*height) - inside*area) / rest
	if outside <= 1e-9 {
		if inside <= 1e-9 {
			return 1
		}
		return math.Inf(1)
	}
	return inside / outside
}

// DetectRegions returns the highest scoring square windows, best first.
func (d *RegionDetector) DetectRegions(img image.Image) []Region {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	saliencyMap := d.Saliency(img)

	minArea := int(float64(width*height) * d.config.MinSubjectRatio)
	var regions []Region
	for _, windowSize := range []int{width / 20, width / 16, width / 12, width / 8, width / 4} {
		if windowSize < 10 || windowSize*windowSize < minArea {
			continue
		}
		step := max(1, windowSize/8)
		for y := 0; y <= height-windowSize; y += step {
			for x := 0; x <= width-windowSize; x += step {
				score := saliencyMap.Mean(image.Rect(x, y, x+windowSize, y+windowSize))
				if score <= d.config.EdgeThreshold {
					continue
				}
				regions = append(regions, Region{
					Box: types.Box{
						X: float64(x) / float64(width),
						Y: float64(y) / float64(height),
						W: float64(windowSize) / float64(width),
						H: float64(windowSize) / float64(height),
					},
					Score: score,
				})
			}
		}
	}

	sort.SliceStable(regions, func(i, j int) bool { return regions[i].Score > regions[j].Score })
	if d.config.MaxRegions > 0 && len(regions) > d.config.MaxRegions {
		regions = regions[:d.config.MaxRegions]
	}
	return regions
}

func toPixels(b types.Box, width, height int) image.Rectangle {
	x0 := int(math.Round(b.X * float64(width)))
	y0 := int(math.Round(b.Y * float64(height)))
	x1 := int(math.Round((b.X + b.W) * float64(width)))
	y1 := int(math.Round((b.Y + b.H) * float64(height)))
	return image.Rect(x0, y0, x1, y1).Intersect(image.Rect(0, 0, width, height))
}

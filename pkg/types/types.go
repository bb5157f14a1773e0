package types

// Box represents a normalized bounding box with coordinates in [0,1] range.
// X and Y are the top-left corner.
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// CenterBox is a normalized bounding box in YOLO form: center point plus extents.
type CenterBox struct {
	CX float64 `json:"cx"`
	CY float64 `json:"cy"`
	W  float64 `json:"w"`
	H  float64 `json:"h"`
}

// ToBox converts a center-form box to top-left form.
func (c CenterBox) ToBox() Box {
	return Box{X: c.CX - c.W/2, Y: c.CY - c.H/2, W: c.W, H: c.H}
}

// Center converts a top-left box to center form.
func (b Box) Center() CenterBox {
	return CenterBox{CX: b.X + b.W/2, CY: b.Y + b.H/2, W: b.W, H: b.H}
}

// Area returns the normalized area of the box.
func (b Box) Area() float64 {
	if b.W <= 0 || b.H <= 0 {
		return 0
	}
	return b.W * b.H
}

// IoU returns the intersection over union of two boxes.
func (b Box) IoU(o Box) float64 {
	x0 := max(b.X, o.X)
	y0 := max(b.Y, o.Y)
	x1 := min(b.X+b.W, o.X+o.W)
	y1 := min(b.Y+b.H, o.Y+o.H)
	if x1 <= x0 || y1 <= y0 {
		return 0
	}
	inter := (x1 - x0) * (y1 - y0)
	union := b.Area() + o.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// Primary represents the primary finding reported by a vision model
type Primary struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Box        Box     `json:"box"`
	Cx         float64 `json:"cx"`
	Cy         float64 `json:"cy"`
}

// AnalysisResult contains the complete analysis result from the vision model
type AnalysisResult struct {
	Primary     Primary  `json:"primary"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// Fallback returns a conservative result used when a model reply cannot be parsed.
func Fallback(label, description string, tags ...string) *AnalysisResult {
	return &AnalysisResult{
		Primary: Primary{
			Label:      label,
			Confidence: 0.1,
			Box:        Box{X: 0.25, Y: 0.25, W: 0.5, H: 0.5},
			Cx:         0.5,
			Cy:         0.5,
		},
		Description: description,
		Tags:        tags,
	}
}

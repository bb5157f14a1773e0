package types

import (
	"math"
	"testing"
)

func TestCenterBoxRoundTrip(t *testing.T) {
	c := CenterBox{CX: 0.5, CY: 0.45, W: 0.6, H: 0.3}
	b := c.ToBox()
	if math.Abs(b.X-0.2) > 1e-9 || math.Abs(b.Y-0.3) > 1e-9 {
		t.Errorf("Expected top-left (0.2,0.3), got (%f,%f)", b.X, b.Y)
	}
	back := b.Center()
	if math.Abs(back.CX-c.CX) > 1e-9 || math.Abs(back.CY-c.CY) > 1e-9 {
		t.Errorf("Expected center (%f,%f), got (%f,%f)", c.CX, c.CY, back.CX, back.CY)
	}
}

func TestIoU(t *testing.T) {
	a := Box{X: 0, Y: 0, W: 0.5, H: 0.5}

	if got := a.IoU(a); math.Abs(got-1) > 1e-9 {
		t.Errorf("Expected IoU 1 for identical boxes, got %f", got)
	}

	disjoint := Box{X: 0.6, Y: 0.6, W: 0.2, H: 0.2}
	if got := a.IoU(disjoint); got != 0 {
		t.Errorf("Expected IoU 0 for disjoint boxes, got %f", got)
	}

	half := Box{X: 0.25, Y: 0, W: 0.5, H: 0.5}
	// intersection 0.0625, union 0.1875
	if got := a.IoU(half); math.Abs(got-1.0/3.0) > 1e-9 {
		t.Errorf("Expected IoU 1/3, got %f", got)
	}
}

// Package geo holds the axis-aligned bounding-box primitive shared by every
// stage of the OCR pipeline. Coordinates are image pixels with the origin at
// the top-left corner.
package geo

import "math"

// BBox is an axis-aligned rectangle. The invariant X0<=X1 && Y0<=Y1 holds for
// every BBox that leaves this package's constructors; callers that build one
// by hand (e.g. from recognizer output) should run it through Normalize.
type BBox struct {
	X0, Y0, X1, Y1 float64
}

// Normalize swaps coordinates so that X0<=X1 and Y0<=Y1.
func (b BBox) Normalize() BBox {
	if b.X0 > b.X1 {
		b.X0, b.X1 = b.X1, b.X0
	}
	if b.Y0 > b.Y1 {
		b.Y0, b.Y1 = b.Y1, b.Y0
	}
	return b
}

// Width returns X1-X0.
func (b BBox) Width() float64 { return b.X1 - b.X0 }

// Height returns Y1-Y0.
func (b BBox) Height() float64 { return b.Y1 - b.Y0 }

// IsEmpty reports whether the box has non-positive area.
func (b BBox) IsEmpty() bool { return b.Width() <= 0 || b.Height() <= 0 }

// CenterX returns the horizontal midpoint.
func (b BBox) CenterX() float64 { return (b.X0 + b.X1) / 2 }

// CenterY returns the vertical midpoint.
func (b BBox) CenterY() float64 { return (b.Y0 + b.Y1) / 2 }

// Clamp coerces b into [0,w]x[0,h].
func (b BBox) Clamp(w, h float64) BBox {
	b = b.Normalize()
	return BBox{
		X0: math.Max(0, math.Min(b.X0, w)),
		Y0: math.Max(0, math.Min(b.Y0, h)),
		X1: math.Max(0, math.Min(b.X1, w)),
		Y1: math.Max(0, math.Min(b.Y1, h)),
	}
}

// Union returns the tight bounding box covering both a and b. An empty box on
// either side is ignored so Union can be folded over a slice starting from
// the zero value.
func Union(a, b BBox) BBox {
	if a.IsEmpty() {
		return b
	}
	if b.IsEmpty() {
		return a
	}
	return BBox{
		X0: math.Min(a.X0, b.X0),
		Y0: math.Min(a.Y0, b.Y0),
		X1: math.Max(a.X1, b.X1),
		Y1: math.Max(a.Y1, b.Y1),
	}
}

// UnionAll folds Union over a slice, returning the zero BBox for an empty
// slice.
func UnionAll(boxes []BBox) BBox {
	var out BBox
	for _, b := range boxes {
		out = Union(out, b)
	}
	return out
}

// Intersect returns the overlapping rectangle of a and b, which is empty
// (zero width or height) when they do not overlap.
func Intersect(a, b BBox) BBox {
	return BBox{
		X0: math.Max(a.X0, b.X0),
		Y0: math.Max(a.Y0, b.Y0),
		X1: math.Min(a.X1, b.X1),
		Y1: math.Min(a.Y1, b.Y1),
	}
}

// Area returns the box area, or 0 if empty.
func (b BBox) Area() float64 {
	if b.IsEmpty() {
		return 0
	}
	return b.Width() * b.Height()
}

// IoU computes the intersection-over-union ratio of a and b.
func IoU(a, b BBox) float64 {
	inter := Intersect(a, b).Area()
	if inter == 0 {
		return 0
	}
	union := a.Area() + b.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// VerticalOverlapRatio returns the fraction of the shorter box's height that
// overlaps vertically with the other box, in [0,1].
func VerticalOverlapRatio(a, b BBox) float64 {
	top := math.Max(a.Y0, b.Y0)
	bottom := math.Min(a.Y1, b.Y1)
	overlap := bottom - top
	if overlap <= 0 {
		return 0
	}
	shorter := math.Min(a.Height(), b.Height())
	if shorter <= 0 {
		return 0
	}
	return math.Min(1, overlap/shorter)
}

// HorizontalOverlapRatio returns the fraction of the shorter box's width that
// overlaps horizontally with the other box, in [0,1].
func HorizontalOverlapRatio(a, b BBox) float64 {
	left := math.Max(a.X0, b.X0)
	right := math.Min(a.X1, b.X1)
	overlap := right - left
	if overlap <= 0 {
		return 0
	}
	shorter := math.Min(a.Width(), b.Width())
	if shorter <= 0 {
		return 0
	}
	return math.Min(1, overlap/shorter)
}

// MinHorizontalGap returns the smallest horizontal gap between a and b: a
// negative or zero value means the boxes overlap horizontally.
func MinHorizontalGap(a, b BBox) float64 {
	if a.X0 > b.X0 {
		a, b = b, a
	}
	return b.X0 - a.X1
}

// MinVerticalGap mirrors MinHorizontalGap on the vertical axis.
func MinVerticalGap(a, b BBox) float64 {
	if a.Y0 > b.Y0 {
		a, b = b, a
	}
	return b.Y0 - a.Y1
}

// Pad grows the box by dx horizontally and dy vertically on each side.
func (b BBox) Pad(dx, dy float64) BBox {
	return BBox{X0: b.X0 - dx, Y0: b.Y0 - dy, X1: b.X1 + dx, Y1: b.Y1 + dy}
}

// Inset shrinks the box by dx horizontally and dy vertically on each side,
// never crossing the center point.
func (b BBox) Inset(dx, dy float64) BBox {
	cx, cy := b.CenterX(), b.CenterY()
	x0, x1 := b.X0+dx, b.X1-dx
	if x0 > x1 {
		x0, x1 = cx, cx
	}
	y0, y1 := b.Y0+dy, b.Y1-dy
	if y0 > y1 {
		y0, y1 = cy, cy
	}
	return BBox{X0: x0, Y0: y0, X1: x1, Y1: y1}
}

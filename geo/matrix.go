package geo

// Matrix is a 2D affine transform in PDF's [a b c d e f] convention:
// x' = a*x + c*y + e, y' = b*x + d*y + f. It exists so callers that map
// pixel-space boxes into another coordinate space (e.g. textlayer's
// PDF page placement) compose translate/scale/flip the same way rather
// than hand-rolling arithmetic per call site.
type Matrix [6]float64

// Identity returns the no-op transform.
func Identity() Matrix { return Matrix{1, 0, 0, 1, 0, 0} }

// Multiply returns the transform that applies m first, then o.
func (m Matrix) Multiply(o Matrix) Matrix {
	return Matrix{
		m[0]*o[0] + m[1]*o[2],
		m[0]*o[1] + m[1]*o[3],
		m[2]*o[0] + m[3]*o[2],
		m[2]*o[1] + m[3]*o[3],
		m[4]*o[0] + m[5]*o[2] + o[4],
		m[4]*o[1] + m[5]*o[3] + o[5],
	}
}

// Transform maps a point through m.
func (m Matrix) Transform(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// TransformBox maps both corners of b through m and re-normalizes, so a
// flip transform (negative d) still yields X0<=X1, Y0<=Y1.
func (m Matrix) TransformBox(b BBox) BBox {
	x0, y0 := m.Transform(b.X0, b.Y0)
	x1, y1 := m.Transform(b.X1, b.Y1)
	return BBox{X0: x0, Y0: y0, X1: x1, Y1: y1}.Normalize()
}

// Translate returns a pure translation transform.
func Translate(tx, ty float64) Matrix { return Matrix{1, 0, 0, 1, tx, ty} }

// Scale returns a pure scaling transform.
func Scale(sx, sy float64) Matrix { return Matrix{sx, 0, 0, sy, 0, 0} }

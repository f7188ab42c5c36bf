package geometry

import (
	"fmt"
	"math"

	"github.com/chewxy/math32"
)

// Transform is a 2D projective transformation in row-major order:
//
//	| a  b  c |
//	| d  e  f |
//	| g  h  i |
//
// A point (x, y) maps to
//
//	w  = g*x + h*y + i
//	x' = (a*x + b*y + c) / w
//	y' = (d*x + e*y + f) / w
//
// The zero value is not the identity; use [Identity].
type Transform struct {
	A, B, C float32
	D, E, F float32
	G, H, I float32
}

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{A: 1, E: 1, I: 1}
}

// Translate returns a translation transform.
func Translate(x, y float32) Transform {
	return Transform{A: 1, C: x, E: 1, F: y, I: 1}
}

// Scale returns a scaling transform.
func Scale(x, y float32) Transform {
	return Transform{A: x, E: y, I: 1}
}

// Rotate returns a rotation by degrees, clockwise in a y-down space.
// Quarter turns produce exact zero and unit entries.
func Rotate(degrees float32) Transform {
	sin, cos, ok := quarterTurn(degrees)
	if !ok {
		rad := degrees * math.Pi / 180
		sin, cos = math32.Sin(rad), math32.Cos(rad)
	}
	return Transform{
		A: cos, B: -sin,
		D: sin, E: cos,
		I: 1,
	}
}

func quarterTurn(degrees float32) (sin, cos float32, ok bool) {
	if degrees != math32.Floor(degrees) {
		return 0, 0, false
	}
	switch ((int(degrees) % 360) + 360) % 360 {
	case 0:
		return 0, 1, true
	case 90:
		return 1, 0, true
	case 180:
		return 0, -1, true
	case 270:
		return -1, 0, true
	}
	return 0, 0, false
}

// Affine returns a transform from the six affine coefficients.
func Affine(a, b, c, d, e, f float32) Transform {
	return Transform{A: a, B: b, C: c, D: d, E: e, F: f, I: 1}
}

// Multiply returns t * o, the transform that applies o first.
func (t Transform) Multiply(o Transform) Transform {
	return Transform{
		A: t.A*o.A + t.B*o.D + t.C*o.G,
		B: t.A*o.B + t.B*o.E + t.C*o.H,
		C: t.A*o.C + t.B*o.F + t.C*o.I,
		D: t.D*o.A + t.E*o.D + t.F*o.G,
		E: t.D*o.B + t.E*o.E + t.F*o.H,
		F: t.D*o.C + t.E*o.F + t.F*o.I,
		G: t.G*o.A + t.H*o.D + t.I*o.G,
		H: t.G*o.B + t.H*o.E + t.I*o.H,
		I: t.G*o.C + t.H*o.F + t.I*o.I,
	}
}

// MapPoint applies the transform to p, dividing by w when it is neither
// zero nor one.
func (t Transform) MapPoint(p PointF) PointF {
	x := t.A*p.X + t.B*p.Y + t.C
	y := t.D*p.X + t.E*p.Y + t.F
	w := t.G*p.X + t.H*p.Y + t.I
	if w != 0 && w != 1 {
		x /= w
		y /= w
	}
	return PointF{X: x, Y: y}
}

// MapVector applies the linear part of an affine transform to v.
func (t Transform) MapVector(v PointF) PointF {
	return PointF{X: t.A*v.X + t.B*v.Y, Y: t.D*v.X + t.E*v.Y}
}

// MapRect returns the bounding rectangle of r's four mapped corners.
func (t Transform) MapRect(r RectF) RectF {
	p0 := t.MapPoint(PointF{X: r.X, Y: r.Y})
	p1 := t.MapPoint(PointF{X: r.Right(), Y: r.Y})
	p2 := t.MapPoint(PointF{X: r.X, Y: r.Bottom()})
	p3 := t.MapPoint(PointF{X: r.Right(), Y: r.Bottom()})
	x0 := math32.Min(math32.Min(p0.X, p1.X), math32.Min(p2.X, p3.X))
	x1 := math32.Max(math32.Max(p0.X, p1.X), math32.Max(p2.X, p3.X))
	y0 := math32.Min(math32.Min(p0.Y, p1.Y), math32.Min(p2.Y, p3.Y))
	y1 := math32.Max(math32.Max(p0.Y, p1.Y), math32.Max(p2.Y, p3.Y))
	return RectF{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// Determinant returns the determinant of the 3x3 matrix.
func (t Transform) Determinant() float32 {
	return t.A*(t.E*t.I-t.F*t.H) -
		t.B*(t.D*t.I-t.F*t.G) +
		t.C*(t.D*t.H-t.E*t.G)
}

// Invert returns the inverse transform and whether t was invertible.
func (t Transform) Invert() (Transform, bool) {
	det := t.Determinant()
	if math32.Abs(det) < 1e-12 {
		return Identity(), false
	}
	inv := 1 / det
	return Transform{
		A: (t.E*t.I - t.F*t.H) * inv,
		B: (t.C*t.H - t.B*t.I) * inv,
		C: (t.B*t.F - t.C*t.E) * inv,
		D: (t.F*t.G - t.D*t.I) * inv,
		E: (t.A*t.I - t.C*t.G) * inv,
		F: (t.C*t.D - t.A*t.F) * inv,
		G: (t.D*t.H - t.E*t.G) * inv,
		H: (t.B*t.G - t.A*t.H) * inv,
		I: (t.A*t.E - t.B*t.D) * inv,
	}, true
}

// IsIdentity reports whether t is exactly the identity.
func (t Transform) IsIdentity() bool {
	return t == Identity()
}

// HasPerspective reports whether the bottom row differs from (0, 0, 1).
func (t Transform) HasPerspective() bool {
	return t.G != 0 || t.H != 0 || t.I != 1
}

// IsScaleOrTranslation reports whether t only scales and translates.
func (t Transform) IsScaleOrTranslation() bool {
	return !t.HasPerspective() && t.B == 0 && t.D == 0
}

// IsIdentityOrTranslation reports whether t only translates.
func (t Transform) IsIdentityOrTranslation() bool {
	return t.IsScaleOrTranslation() && t.A == 1 && t.E == 1
}

// Preserves2DAxisAlignment reports whether axis-aligned rectangles stay
// axis-aligned: t is affine and either swaps or keeps the axes.
func (t Transform) Preserves2DAxisAlignment() bool {
	if t.HasPerspective() {
		return false
	}
	return (t.B == 0 && t.D == 0) || (t.A == 0 && t.E == 0)
}

// ApproxEqual compares every entry within eps.
func (t Transform) ApproxEqual(o Transform, eps float32) bool {
	a := [9]float32{t.A, t.B, t.C, t.D, t.E, t.F, t.G, t.H, t.I}
	b := [9]float32{o.A, o.B, o.C, o.D, o.E, o.F, o.G, o.H, o.I}
	for i := range a {
		if math32.Abs(a[i]-b[i]) > eps {
			return false
		}
	}
	return true
}

func (t Transform) String() string {
	return fmt.Sprintf("[%g %g %g; %g %g %g; %g %g %g]", t.A, t.B, t.C, t.D, t.E, t.F, t.G, t.H, t.I)
}

package geometry

import (
	"fmt"

	"github.com/chewxy/math32"
)

// Size is an integer width and height.
type Size struct {
	Width, Height int
}

// Sz is shorthand for Size{w, h}.
func Sz(w, h int) Size { return Size{Width: w, Height: h} }

// IsEmpty reports whether either dimension is zero or negative.
func (s Size) IsEmpty() bool { return s.Width <= 0 || s.Height <= 0 }

// Area returns Width*Height, or 0 for an empty size.
func (s Size) Area() int {
	if s.IsEmpty() {
		return 0
	}
	return s.Width * s.Height
}

func (s Size) String() string { return fmt.Sprintf("%dx%d", s.Width, s.Height) }

// Point is an integer position.
type Point struct {
	X, Y int
}

// PointF is a float position.
type PointF struct {
	X, Y float32
}

// Rect is an integer rectangle.
type Rect struct {
	X, Y, Width, Height int
}

// R is shorthand for Rect{x, y, w, h}.
func R(x, y, w, h int) Rect { return Rect{X: x, Y: y, Width: w, Height: h} }

// RectFromSize returns the rectangle at the origin covering s.
func RectFromSize(s Size) Rect { return Rect{Width: s.Width, Height: s.Height} }

// Right returns the exclusive right edge.
func (r Rect) Right() int { return r.X + r.Width }

// Bottom returns the exclusive bottom edge.
func (r Rect) Bottom() int { return r.Y + r.Height }

// Size returns the rectangle's dimensions.
func (r Rect) Size() Size { return Size{Width: r.Width, Height: r.Height} }

// IsEmpty reports whether the rectangle covers no pixels.
func (r Rect) IsEmpty() bool { return r.Width <= 0 || r.Height <= 0 }

// Contains reports whether o lies entirely inside r. Bounds are compared
// even when o is empty.
func (r Rect) Contains(o Rect) bool {
	return o.X >= r.X && o.Y >= r.Y && o.Right() <= r.Right() && o.Bottom() <= r.Bottom()
}

// ContainsPoint reports whether p lies inside r.
func (r Rect) ContainsPoint(p Point) bool {
	return p.X >= r.X && p.X < r.Right() && p.Y >= r.Y && p.Y < r.Bottom()
}

// Intersects reports whether r and o share at least one pixel.
func (r Rect) Intersects(o Rect) bool {
	return !r.IsEmpty() && !o.IsEmpty() &&
		r.X < o.Right() && o.X < r.Right() && r.Y < o.Bottom() && o.Y < r.Bottom()
}

// Intersect returns the overlap of r and o, or the empty Rect.
func (r Rect) Intersect(o Rect) Rect {
	x0, y0 := max(r.X, o.X), max(r.Y, o.Y)
	x1, y1 := min(r.Right(), o.Right()), min(r.Bottom(), o.Bottom())
	if x1 <= x0 || y1 <= y0 {
		return Rect{}
	}
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// Union returns the smallest rectangle containing r and o.
func (r Rect) Union(o Rect) Rect {
	if r.IsEmpty() {
		return o
	}
	if o.IsEmpty() {
		return r
	}
	x0, y0 := min(r.X, o.X), min(r.Y, o.Y)
	x1, y1 := max(r.Right(), o.Right()), max(r.Bottom(), o.Bottom())
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// ToRectF converts r to float coordinates.
func (r Rect) ToRectF() RectF {
	return RectF{X: float32(r.X), Y: float32(r.Y), Width: float32(r.Width), Height: float32(r.Height)}
}

func (r Rect) String() string {
	return fmt.Sprintf("%d,%d %dx%d", r.X, r.Y, r.Width, r.Height)
}

// RectF is a float rectangle.
type RectF struct {
	X, Y, Width, Height float32
}

// BoundingRectF returns the rectangle spanned by two corner points in any
// order.
func BoundingRectF(a, b PointF) RectF {
	x0, x1 := math32.Min(a.X, b.X), math32.Max(a.X, b.X)
	y0, y1 := math32.Min(a.Y, b.Y), math32.Max(a.Y, b.Y)
	return RectF{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// Right returns the right edge.
func (r RectF) Right() float32 { return r.X + r.Width }

// Bottom returns the bottom edge.
func (r RectF) Bottom() float32 { return r.Y + r.Height }

// IsEmpty reports whether the rectangle has no area.
func (r RectF) IsEmpty() bool { return r.Width <= 0 || r.Height <= 0 }

// Contains reports whether o lies entirely inside r.
func (r RectF) Contains(o RectF) bool {
	return o.X >= r.X && o.Y >= r.Y && o.Right() <= r.Right() && o.Bottom() <= r.Bottom()
}

// Intersects reports whether r and o overlap with positive area.
func (r RectF) Intersects(o RectF) bool {
	return !r.IsEmpty() && !o.IsEmpty() &&
		r.X < o.Right() && o.X < r.Right() && r.Y < o.Bottom() && o.Y < r.Bottom()
}

// ToEnclosingRect returns the smallest integer rectangle containing r.
func (r RectF) ToEnclosingRect() Rect {
	x0, y0 := math32.Floor(r.X), math32.Floor(r.Y)
	x1, y1 := math32.Ceil(r.Right()), math32.Ceil(r.Bottom())
	return Rect{X: int(x0), Y: int(y0), Width: int(x1 - x0), Height: int(y1 - y0)}
}

func (r RectF) String() string {
	return fmt.Sprintf("%g,%g %gx%g", r.X, r.Y, r.Width, r.Height)
}

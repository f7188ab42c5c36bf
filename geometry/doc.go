// Package geometry provides the integer and float rectangles and the
// projective transform used by the render-pass model and the overlay
// selector.
//
// Rectangles are half-open: a Rect with X=0 and Width=4 covers columns
// 0, 1, 2 and 3. Transforms map column vectors, so t.Multiply(o) applies o
// first and t second.
package geometry

package overlay

import (
	"fmt"
	"image"
	"slices"

	"golang.org/x/image/draw"

	"github.com/gogpu/compositor/gpucore"
)

// ImageSource returns the pixels of a resource.
type ImageSource func(id gpucore.ResourceID) (image.Image, error)

// Present composites planes in z-order onto dst the way a display
// controller would: underlays first, then the primary plane blended over
// them, then the planes above it. Each candidate's UV rect is cropped
// from its resource, oriented by its transform and scaled into its
// display rect.
func Present(dst *image.RGBA, primary image.Image, candidates []Candidate, src ImageSource) error {
	planes := slices.Clone(candidates)
	slices.SortStableFunc(planes, func(a, b Candidate) int { return a.ZOrder - b.ZOrder })

	draw.Draw(dst, dst.Bounds(), image.Transparent, image.Point{}, draw.Src)
	drawn := false
	for _, c := range planes {
		if c.ZOrder >= 0 && !drawn {
			drawPrimary(dst, primary)
			drawn = true
		}
		if err := drawPlane(dst, c, src); err != nil {
			return err
		}
	}
	if !drawn {
		drawPrimary(dst, primary)
	}
	return nil
}

func drawPrimary(dst *image.RGBA, primary image.Image) {
	if primary == nil {
		return
	}
	draw.Draw(dst, dst.Bounds(), primary, primary.Bounds().Min, draw.Over)
}

func drawPlane(dst *image.RGBA, c Candidate, src ImageSource) error {
	img, err := src(c.ResourceID)
	if err != nil {
		return fmt.Errorf("overlay: plane resource %d: %w", c.ResourceID, err)
	}
	b := img.Bounds()
	w, h := float32(b.Dx()), float32(b.Dy())
	crop := image.Rect(
		b.Min.X+int(c.UVRect.X*w), b.Min.Y+int(c.UVRect.Y*h),
		b.Min.X+int(c.UVRect.Right()*w), b.Min.Y+int(c.UVRect.Bottom()*h),
	).Intersect(b)
	if crop.Empty() {
		return nil
	}
	oriented := orient(img, crop, c.Transform)

	r := c.DisplayRect.ToEnclosingRect()
	target := image.Rect(r.X, r.Y, r.Right(), r.Bottom())
	if target.Size() == oriented.Bounds().Size() {
		draw.Draw(dst, target, oriented, image.Point{}, draw.Over)
		return nil
	}
	draw.BiLinear.Scale(dst, target, oriented, oriented.Bounds(), draw.Over, nil)
	return nil
}

// orient copies the crop of img into a new image with t applied.
func orient(img image.Image, crop image.Rectangle, t Transform) *image.RGBA {
	w, h := crop.Dx(), crop.Dy()
	ow, oh := w, h
	if t == TransformRotate90 || t == TransformRotate270 {
		ow, oh = h, w
	}
	out := image.NewRGBA(image.Rect(0, 0, ow, oh))
	for y := range oh {
		for x := range ow {
			sx, sy := x, y
			switch t {
			case TransformFlipHorizontal:
				sx = w - 1 - x
			case TransformFlipVertical:
				sy = h - 1 - y
			case TransformRotate180:
				sx, sy = w-1-x, h-1-y
			case TransformRotate90:
				sx, sy = y, h-1-x
			case TransformRotate270:
				sx, sy = w-1-y, x
			}
			out.Set(x, y, img.At(crop.Min.X+sx, crop.Min.Y+sy))
		}
	}
	return out
}

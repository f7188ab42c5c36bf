package compositor

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"

	"github.com/gogpu/compositor/geometry"
	"github.com/gogpu/compositor/gpucore"
	"github.com/gogpu/compositor/quad"
	"github.com/gogpu/compositor/resource"
)

// Image returns the pixels of a bitmap resource. The image aliases the
// resource memory. Only software contexts hold bitmap resources.
func (c *Context) Image(id gpucore.ResourceID) (image.Image, error) {
	info, err := c.registry.Info(id)
	if err != nil {
		return nil, err
	}
	bm, err := c.registry.Bitmap(id)
	if err != nil {
		return nil, err
	}
	s := bm.Size()
	r := image.Rect(0, 0, s.Width, s.Height)
	switch info.Format {
	case gpucore.FormatRGBA8888:
		return &image.RGBA{Pix: bm.Pixels(), Stride: bm.Stride(), Rect: r}, nil
	case gpucore.FormatLuminance8, gpucore.FormatRed8:
		return &image.Gray{Pix: bm.Pixels(), Stride: bm.Stride(), Rect: r}, nil
	case gpucore.FormatAlpha8:
		return &image.Alpha{Pix: bm.Pixels(), Stride: bm.Stride(), Rect: r}, nil
	default:
		return nil, fmt.Errorf("%w: %v", resource.ErrUnsupportedFormat, info.Format)
	}
}

// DrawPass rasterizes the quads of pass into dst, bottom quad first. This
// is the primary plane of a software context. Quads of materials without
// a software path are skipped.
func (c *Context) DrawPass(dst *image.RGBA, pass *quad.RenderPass) error {
	if pass.HasTransparentBackground {
		draw.Draw(dst, dst.Bounds(), image.Transparent, image.Point{}, draw.Src)
	}
	for i := range pass.Quads {
		q := &pass.Quads[i]
		sqs := pass.SharedQuadStateOf(i)
		if sqs == nil {
			return &quad.QuadError{Pass: pass.ID, Quad: i, Err: quad.ErrMissingSharedQuadState}
		}
		target := sqs.QuadToTargetTransform.MapRect(q.VisibleRect.ToRectF()).ToEnclosingRect()
		if sqs.IsClipped {
			target = target.Intersect(sqs.ClipRect)
		}
		if target.IsEmpty() {
			continue
		}
		if err := c.drawQuad(dst, q, sqs, target); err != nil {
			return &quad.QuadError{Pass: pass.ID, Quad: i, Err: err}
		}
	}
	return nil
}

func (c *Context) drawQuad(dst *image.RGBA, q *quad.DrawQuad, sqs *quad.SharedQuadState, target geometry.Rect) error {
	r := image.Rect(target.X, target.Y, target.Right(), target.Bottom())
	mask := opacityMask(sqs.Opacity)
	op := draw.Over
	if !q.ShouldDrawWithBlending(sqs) {
		op = draw.Src
	}

	switch content := q.Content.(type) {
	case quad.SolidColorContent:
		draw.DrawMask(dst, r, image.NewUniform(toNRGBA(content.Color)), image.Point{}, mask, image.Point{}, op)
	case quad.CheckerboardContent:
		draw.DrawMask(dst, r, image.NewUniform(toNRGBA(content.Color)), image.Point{}, mask, image.Point{}, op)
	case quad.DebugBorderContent:
		// Debug borders are only drawn by GPU compositing.
	case quad.TextureContent:
		img, err := c.Image(content.ResourceID)
		if err != nil {
			return err
		}
		uv := geometry.BoundingRectF(content.UVTopLeft, content.UVBottomRight)
		scaler := draw.ApproxBiLinear
		if content.NearestNeighbor {
			scaler = draw.NearestNeighbor
		}
		scaled := scaleCrop(img, uv, r.Size(), scaler, content.YFlipped)
		draw.DrawMask(dst, r, scaled, image.Point{}, mask, image.Point{}, op)
	case quad.StreamVideoContent:
		img, err := c.Image(content.ResourceID)
		if err != nil {
			return err
		}
		uv := geometry.RectF{Width: 1, Height: 1}
		scaled := scaleCrop(img, uv, r.Size(), draw.ApproxBiLinear, false)
		draw.DrawMask(dst, r, scaled, image.Point{}, mask, image.Point{}, op)
	default:
		slogger().Debug("compositor: no software path", "material", q.Material())
	}
	return nil
}

// scaleCrop scales the uv part of img to size.
func scaleCrop(img image.Image, uv geometry.RectF, size image.Point, s draw.Interpolator, yFlipped bool) *image.RGBA {
	b := img.Bounds()
	w, h := float32(b.Dx()), float32(b.Dy())
	src := image.Rect(
		b.Min.X+int(uv.X*w), b.Min.Y+int(uv.Y*h),
		b.Min.X+int(uv.Right()*w), b.Min.Y+int(uv.Bottom()*h),
	).Intersect(b)
	out := image.NewRGBA(image.Rectangle{Max: size})
	if src.Empty() {
		return out
	}
	s.Scale(out, out.Bounds(), img, src, draw.Src, nil)
	if yFlipped {
		flipRows(out)
	}
	return out
}

func flipRows(img *image.RGBA) {
	h := img.Bounds().Dy()
	row := make([]byte, img.Stride)
	for y := range h / 2 {
		a := img.Pix[y*img.Stride : (y+1)*img.Stride]
		b := img.Pix[(h-1-y)*img.Stride : (h-y)*img.Stride]
		copy(row, a)
		copy(a, b)
		copy(b, row)
	}
}

func opacityMask(opacity float32) image.Image {
	if opacity >= 1 {
		return nil
	}
	if opacity <= 0 {
		return image.NewUniform(color.Alpha{})
	}
	return image.NewUniform(color.Alpha{A: uint8(opacity*255 + 0.5)})
}

func toNRGBA(c quad.Color) color.NRGBA {
	v := uint32(c)
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: uint8(v >> 24)}
}

package video

import (
	"errors"
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// ErrShortPlane is returned when a plane holds fewer bytes than its size
// and stride require.
var ErrShortPlane = errors.New("video: plane data too short")

// subsampleRatio maps a planar format to the image package's chroma layout.
func subsampleRatio(f Format) (image.YCbCrSubsampleRatio, bool) {
	switch f {
	case FormatYV12, FormatI420, FormatYV12A, FormatNV12:
		return image.YCbCrSubsampleRatio420, true
	case FormatYV16:
		return image.YCbCrSubsampleRatio422, true
	case FormatYV24:
		return image.YCbCrSubsampleRatio444, true
	default:
		return 0, false
	}
}

func checkPlane(f *Frame, plane, rowBytes, rows int) error {
	if plane >= len(f.Data) || plane >= len(f.Stride) {
		return fmt.Errorf("%w: plane %d missing", ErrShortPlane, plane)
	}
	stride := f.Stride[plane]
	if rows == 0 {
		return nil
	}
	if stride < rowBytes || len(f.Data[plane]) < stride*(rows-1)+rowBytes {
		return fmt.Errorf("%w: plane %d has %d bytes, stride %d, need %dx%d",
			ErrShortPlane, plane, len(f.Data[plane]), stride, rowBytes, rows)
	}
	return nil
}

// ycbcrImage exposes the planes of a mappable frame as an image.Image.
// NV12 chroma is de-interleaved into scratch.
func ycbcrImage(f *Frame, scratch []byte) (image.Image, []byte, error) {
	ratio, ok := subsampleRatio(f.Format)
	if !ok {
		return nil, scratch, fmt.Errorf("video: %v is not planar YUV", f.Format)
	}
	w, h := f.CodedSize.Width, f.CodedSize.Height
	cw, ch := w, h
	switch ratio {
	case image.YCbCrSubsampleRatio420:
		cw, ch = (w+1)/2, (h+1)/2
	case image.YCbCrSubsampleRatio422:
		cw = (w + 1) / 2
	}

	if err := checkPlane(f, PlaneY, w, h); err != nil {
		return nil, scratch, err
	}
	img := &image.YCbCr{
		Y:              f.Data[PlaneY],
		YStride:        f.Stride[PlaneY],
		SubsampleRatio: ratio,
		Rect:           image.Rect(0, 0, w, h),
	}

	if f.Format == FormatNV12 {
		if err := checkPlane(f, PlaneUV, 2*cw, ch); err != nil {
			return nil, scratch, err
		}
		if cap(scratch) < 2*cw*ch {
			scratch = make([]byte, 2*cw*ch)
		}
		scratch = scratch[:2*cw*ch]
		cb, cr := scratch[:cw*ch], scratch[cw*ch:]
		uv, stride := f.Data[PlaneUV], f.Stride[PlaneUV]
		for y := range ch {
			row := uv[y*stride:]
			for x := range cw {
				cb[y*cw+x] = row[2*x]
				cr[y*cw+x] = row[2*x+1]
			}
		}
		img.Cb, img.Cr, img.CStride = cb, cr, cw
		return img, scratch, nil
	}

	if err := checkPlane(f, PlaneU, cw, ch); err != nil {
		return nil, scratch, err
	}
	if err := checkPlane(f, PlaneV, cw, ch); err != nil {
		return nil, scratch, err
	}
	if f.Stride[PlaneU] != f.Stride[PlaneV] {
		return nil, scratch, fmt.Errorf("video: chroma strides differ (%d, %d)", f.Stride[PlaneU], f.Stride[PlaneV])
	}
	img.Cb, img.Cr, img.CStride = f.Data[PlaneU], f.Data[PlaneV], f.Stride[PlaneU]

	if f.Format == FormatYV12A {
		if err := checkPlane(f, PlaneA, w, h); err != nil {
			return nil, scratch, err
		}
		return &image.NYCbCrA{YCbCr: *img, A: f.Data[PlaneA], AStride: f.Stride[PlaneA]}, scratch, nil
	}
	return img, scratch, nil
}

// toRGBA converts a planar frame to RGBA at its coded size. dst is reused
// when it has the right bounds.
func toRGBA(f *Frame, dst *image.RGBA, scratch []byte) (*image.RGBA, []byte, error) {
	src, scratch, err := ycbcrImage(f, scratch)
	if err != nil {
		return dst, scratch, err
	}
	bounds := image.Rect(0, 0, f.CodedSize.Width, f.CodedSize.Height)
	if dst == nil || dst.Bounds() != bounds {
		dst = image.NewRGBA(bounds)
	}
	draw.Draw(dst, bounds, src, image.Point{}, draw.Src)
	return dst, scratch, nil
}

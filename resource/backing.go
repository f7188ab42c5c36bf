package resource

import (
	"fmt"

	"github.com/gogpu/compositor/geometry"
	"github.com/gogpu/compositor/gpucore"
)

// Kind is the storage behind a resource.
type Kind uint8

// Backing kinds.
const (
	KindTexture Kind = iota
	KindBitmap
)

func (k Kind) String() string {
	switch k {
	case KindTexture:
		return "texture"
	case KindBitmap:
		return "bitmap"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Hint describes how a resource will be used. Hints combine as bit flags.
type Hint uint8

// Allocation hints.
const (
	HintDefault Hint = 0

	// HintImmutable means the contents are written once per upload and
	// never rendered to.
	HintImmutable Hint = 1 << 0

	// HintFramebuffer means the resource is a render target.
	HintFramebuffer Hint = 1 << 1

	// HintOverlay means the resource may be scanned out as an overlay plane.
	HintOverlay Hint = 1 << 2
)

// Has reports whether all bits of f are set in h.
func (h Hint) Has(f Hint) bool { return h&f == f }

// Descriptor describes a backing to allocate.
type Descriptor struct {
	Label  string
	Size   geometry.Size
	Format gpucore.Format
	Hint   Hint
}

// Bytes returns the storage size of the described backing.
func (d Descriptor) Bytes() uint64 {
	return uint64(d.Size.Area()) * uint64(d.Format.BytesPerPixel())
}

// Backing is the storage of one resource.
type Backing interface {
	// Kind returns the storage kind.
	Kind() Kind

	// Write uploads rows of pixels with the given stride into region.
	// The region has already been bounds-checked by the registry.
	Write(region geometry.Rect, pixels []byte, stride int) error

	// Free releases the storage. It is called at most once.
	Free()
}

// Allocator creates backings.
type Allocator interface {
	Allocate(desc Descriptor) (Backing, error)
}

// BitmapAllocator allocates shared-memory bitmaps, the backing used by
// software compositing.
type BitmapAllocator struct{}

// NewBitmapAllocator returns a bitmap allocator.
func NewBitmapAllocator() *BitmapAllocator { return &BitmapAllocator{} }

// Allocate creates a zeroed bitmap.
func (*BitmapAllocator) Allocate(desc Descriptor) (Backing, error) {
	bpp := desc.Format.BytesPerPixel()
	return &Bitmap{
		pix:    make([]byte, desc.Size.Area()*bpp),
		stride: desc.Size.Width * bpp,
		size:   desc.Size,
		bpp:    bpp,
	}, nil
}

// Bitmap is a CPU-memory backing.
type Bitmap struct {
	pix    []byte
	stride int
	size   geometry.Size
	bpp    int
}

// Kind returns KindBitmap.
func (*Bitmap) Kind() Kind { return KindBitmap }

// Write copies rows of pixels into region.
func (b *Bitmap) Write(region geometry.Rect, pixels []byte, stride int) error {
	row := region.Width * b.bpp
	for y := range region.Height {
		src := pixels[y*stride : y*stride+row]
		off := (region.Y+y)*b.stride + region.X*b.bpp
		copy(b.pix[off:off+row], src)
	}
	return nil
}

// Free drops the pixel memory.
func (b *Bitmap) Free() { b.pix = nil }

// Pixels returns the bitmap memory, tightly packed with Stride bytes per row.
func (b *Bitmap) Pixels() []byte { return b.pix }

// Stride returns the number of bytes per row.
func (b *Bitmap) Stride() int { return b.stride }

// Size returns the bitmap dimensions.
func (b *Bitmap) Size() geometry.Size { return b.size }

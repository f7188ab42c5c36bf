package resource

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/compositor/geometry"
)

// HALAllocator allocates wgpu HAL textures.
type HALAllocator struct {
	device hal.Device
	queue  hal.Queue
}

// NewHALAllocator creates an allocator on device. Uploads are written
// through queue.
func NewHALAllocator(device hal.Device, queue hal.Queue) *HALAllocator {
	return &HALAllocator{device: device, queue: queue}
}

// Allocate creates a 2D texture and a view of it.
func (a *HALAllocator) Allocate(desc Descriptor) (Backing, error) {
	format, ok := desc.Format.ToWGPUFormat()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, desc.Format)
	}

	usage := gputypes.TextureUsageCopySrc | gputypes.TextureUsageCopyDst | gputypes.TextureUsageTextureBinding
	if desc.Hint.Has(HintFramebuffer) {
		usage |= gputypes.TextureUsageRenderAttachment
	}

	size := hal.Extent3D{
		Width:              uint32(desc.Size.Width),  //nolint:gosec // validated by the registry
		Height:             uint32(desc.Size.Height), //nolint:gosec // validated by the registry
		DepthOrArrayLayers: 1,
	}
	tex, err := a.device.CreateTexture(&hal.TextureDescriptor{
		Label:         desc.Label,
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         usage,
	})
	if err != nil {
		return nil, fmt.Errorf("create texture %q: %w", desc.Label, err)
	}

	view, err := a.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         desc.Label + "_view",
		Format:        format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		a.device.DestroyTexture(tex)
		return nil, fmt.Errorf("create texture view %q: %w", desc.Label, err)
	}

	return &HALTexture{
		device: a.device,
		queue:  a.queue,
		tex:    tex,
		view:   view,
		size:   desc.Size,
		bpp:    desc.Format.BytesPerPixel(),
	}, nil
}

// HALTexture is a texture backing on a HAL device.
type HALTexture struct {
	device hal.Device
	queue  hal.Queue
	tex    hal.Texture
	view   hal.TextureView
	size   geometry.Size
	bpp    int
}

// Kind returns KindTexture.
func (*HALTexture) Kind() Kind { return KindTexture }

// Write uploads pixels into region through the queue.
func (t *HALTexture) Write(region geometry.Rect, pixels []byte, stride int) error {
	//nolint:gosec // region and stride were bounds-checked by the registry
	err := t.queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  t.tex,
			MipLevel: 0,
			Origin:   hal.Origin3D{X: uint32(region.X), Y: uint32(region.Y), Z: 0},
			Aspect:   gputypes.TextureAspectAll,
		},
		pixels,
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  uint32(stride),
			RowsPerImage: uint32(region.Height),
		},
		&hal.Extent3D{Width: uint32(region.Width), Height: uint32(region.Height), DepthOrArrayLayers: 1},
	)
	if err != nil {
		return fmt.Errorf("write texture %v: %w", region, err)
	}
	return nil
}

// Free destroys the view and the texture.
func (t *HALTexture) Free() {
	if t.view != nil {
		t.device.DestroyTextureView(t.view)
		t.view = nil
	}
	if t.tex != nil {
		t.device.DestroyTexture(t.tex)
		t.tex = nil
	}
}

// Texture returns the HAL texture.
func (t *HALTexture) Texture() hal.Texture { return t.tex }

// View returns the default view of the texture.
func (t *HALTexture) View() hal.TextureView { return t.view }

package compositor

import (
	"fmt"
	"sync"

	"github.com/gogpu/compositor/geometry"
	"github.com/gogpu/compositor/gpucore"
	"github.com/gogpu/compositor/resource"
	"github.com/gogpu/compositor/texture"
)

// textureTracker mirrors the registry's texture resources in a
// texture.Manager. Registry deletes may run on the fence goroutine, so all
// manager access is serialized by mu.
type textureTracker struct {
	mu sync.Mutex
	m  *texture.Manager
}

func newTextureTracker(m *texture.Manager) *textureTracker {
	return &textureTracker{m: m}
}

// Track creates a 2D texture with level 0 sized and formatted like desc.
func (tr *textureTracker) Track(id gpucore.ResourceID, desc resource.Descriptor) error {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	t := tr.m.CreateTexture(texture.ID(id))
	if err := tr.m.SetTarget(t, texture.Target2D); err != nil {
		tr.m.RemoveTexture(t.ID())
		return err
	}
	params := []struct {
		p texture.Param
		v int32
	}{
		{texture.ParamMinFilter, int32(texture.FilterLinear)},
		{texture.ParamMagFilter, int32(texture.FilterLinear)},
		{texture.ParamWrapS, int32(texture.WrapClampToEdge)},
		{texture.ParamWrapT, int32(texture.WrapClampToEdge)},
	}
	for _, p := range params {
		if err := tr.m.SetParameter(t, p.p, p.v); err != nil {
			tr.m.RemoveTexture(t.ID())
			return err
		}
	}
	triple := tr.triple(desc.Format)
	err := tr.m.SetLevelInfo(t, texture.LevelInfo{
		Target:         texture.Target2D,
		Level:          0,
		InternalFormat: triple.InternalFormat,
		Width:          desc.Size.Width,
		Height:         desc.Size.Height,
		Depth:          1,
		Format:         triple.Format,
		Type:           triple.Type,
	})
	if err != nil {
		tr.m.RemoveTexture(t.ID())
		return fmt.Errorf("level 0 of %s: %w", desc.Label, err)
	}
	return nil
}

// triple maps a registry format to the closest triple the format table
// accepts.
func (tr *textureTracker) triple(f gpucore.Format) texture.Triple {
	table := tr.m.FormatTable()
	pick := func(preferred, fallback texture.Triple) texture.Triple {
		if table.IsValid(preferred.InternalFormat, preferred.Format, preferred.Type) {
			return preferred
		}
		return fallback
	}
	rgba := texture.Triple{InternalFormat: texture.FormatRGBA, Format: texture.FormatRGBA, Type: texture.TypeUnsignedByte}
	switch f {
	case gpucore.FormatRGBA4444:
		return texture.Triple{InternalFormat: texture.FormatRGBA, Format: texture.FormatRGBA, Type: texture.TypeUnsignedShort4444}
	case gpucore.FormatBGRA8888:
		return pick(texture.Triple{InternalFormat: texture.FormatBGRA, Format: texture.FormatBGRA, Type: texture.TypeUnsignedByte}, rgba)
	case gpucore.FormatAlpha8:
		return texture.Triple{InternalFormat: texture.FormatAlpha, Format: texture.FormatAlpha, Type: texture.TypeUnsignedByte}
	case gpucore.FormatLuminance8:
		return texture.Triple{InternalFormat: texture.FormatLuminance, Format: texture.FormatLuminance, Type: texture.TypeUnsignedByte}
	case gpucore.FormatRGB565:
		return texture.Triple{InternalFormat: texture.FormatRGB, Format: texture.FormatRGB, Type: texture.TypeUnsignedShort565}
	case gpucore.FormatRed8:
		return pick(texture.Triple{InternalFormat: texture.FormatRed, Format: texture.FormatRed, Type: texture.TypeUnsignedByte},
			texture.Triple{InternalFormat: texture.FormatLuminance, Format: texture.FormatLuminance, Type: texture.TypeUnsignedByte})
	default:
		return rgba
	}
}

// Written extends the cleared rect of level 0 by region. The cleared rect
// is a single rectangle: when the union is not fully covered the larger of
// the two rects is kept.
func (tr *textureTracker) Written(id gpucore.ResourceID, region geometry.Rect) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	t := tr.m.Texture(texture.ID(id))
	if t == nil {
		return
	}
	cleared, ok := t.LevelClearedRect(texture.Target2D, 0)
	if !ok {
		return
	}
	union := cleared.Union(region)
	if area(union) != area(cleared)+area(region)-area(cleared.Intersect(region)) {
		union = cleared
		if area(region) > area(cleared) {
			union = region
		}
	}
	if union != cleared {
		_ = tr.m.SetLevelClearedRect(t, texture.Target2D, 0, union)
	}
}

func area(r geometry.Rect) int {
	if r.IsEmpty() {
		return 0
	}
	return r.Width * r.Height
}

// Untrack removes the texture of id.
func (tr *textureTracker) Untrack(id gpucore.ResourceID) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.m.RemoveTexture(texture.ID(id))
}

// Renderable reports whether the texture of id can be sampled.
func (tr *textureTracker) Renderable(id gpucore.ResourceID) bool {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	t := tr.m.Texture(texture.ID(id))
	return t != nil && tr.m.CanRender(t)
}

// use runs fn with exclusive access to the manager.
func (tr *textureTracker) use(fn func(m *texture.Manager)) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	fn(tr.m)
}

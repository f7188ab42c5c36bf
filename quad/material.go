package quad

import "fmt"

// Material identifies the payload carried by a DrawQuad. Values are also the
// tag byte of the wire format and must not be renumbered.
type Material uint8

// Material constants.
const (
	MaterialInvalid Material = iota
	MaterialCheckerboard
	MaterialDebugBorder
	MaterialIOSurfaceContent
	MaterialRenderPass
	MaterialSolidColor
	MaterialStreamVideo
	MaterialSurface
	MaterialTexture
	MaterialTile
	MaterialYUVVideo

	materialLast = MaterialYUVVideo
)

// IsValid reports whether m names a concrete material.
func (m Material) IsValid() bool {
	return m > MaterialInvalid && m <= materialLast
}

// String returns a human-readable name for the material.
func (m Material) String() string {
	switch m {
	case MaterialInvalid:
		return "Invalid"
	case MaterialCheckerboard:
		return "Checkerboard"
	case MaterialDebugBorder:
		return "DebugBorder"
	case MaterialIOSurfaceContent:
		return "IOSurfaceContent"
	case MaterialRenderPass:
		return "RenderPass"
	case MaterialSolidColor:
		return "SolidColor"
	case MaterialStreamVideo:
		return "StreamVideo"
	case MaterialSurface:
		return "Surface"
	case MaterialTexture:
		return "Texture"
	case MaterialTile:
		return "Tile"
	case MaterialYUVVideo:
		return "YUVVideo"
	default:
		return fmt.Sprintf("Material(%d)", m)
	}
}

// Color is a non-premultiplied ARGB color packed as 0xAARRGGBB.
type Color uint32

// ColorTransparent is fully transparent black.
const ColorTransparent Color = 0

// ARGB packs four channels into a Color.
func ARGB(a, r, g, b uint8) Color {
	return Color(uint32(a)<<24 | uint32(r)<<16 | uint32(g)<<8 | uint32(b))
}

// Alpha returns the alpha channel.
func (c Color) Alpha() uint8 { return uint8(c >> 24) }

// IsOpaque reports whether alpha is 255.
func (c Color) IsOpaque() bool { return c.Alpha() == 0xff }

func (c Color) String() string { return fmt.Sprintf("#%08x", uint32(c)) }

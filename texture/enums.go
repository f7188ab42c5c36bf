package texture

import "fmt"

// Target is a texture binding target or a cube map face target.
type Target uint32

// Texture targets.
const (
	TargetNone      Target = 0
	Target2D        Target = 0x0DE1
	Target3D        Target = 0x806F
	Target2DArray   Target = 0x8C1A
	TargetCubeMap   Target = 0x8513
	TargetRectangle Target = 0x84F5
	TargetExternal  Target = 0x8D65

	TargetCubeMapPositiveX Target = 0x8515
	TargetCubeMapNegativeX Target = 0x8516
	TargetCubeMapPositiveY Target = 0x8517
	TargetCubeMapNegativeY Target = 0x8518
	TargetCubeMapPositiveZ Target = 0x8519
	TargetCubeMapNegativeZ Target = 0x851A
)

// IsCubeFace reports whether t is one of the six cube map face targets.
func (t Target) IsCubeFace() bool {
	return t >= TargetCubeMapPositiveX && t <= TargetCubeMapNegativeZ
}

// faceIndex maps a level target to its face: cube faces to 0..5, all other
// targets to 0.
func faceIndex(t Target) int {
	if t.IsCubeFace() {
		return int(t - TargetCubeMapPositiveX)
	}
	return 0
}

// faceTarget maps a face index of a cube map back to its target.
func faceTarget(i int) Target {
	return TargetCubeMapPositiveX + Target(i) //nolint:gosec // i < 6
}

func (t Target) String() string {
	switch t {
	case TargetNone:
		return "NONE"
	case Target2D:
		return "TEXTURE_2D"
	case Target3D:
		return "TEXTURE_3D"
	case Target2DArray:
		return "TEXTURE_2D_ARRAY"
	case TargetCubeMap:
		return "TEXTURE_CUBE_MAP"
	case TargetRectangle:
		return "TEXTURE_RECTANGLE"
	case TargetExternal:
		return "TEXTURE_EXTERNAL"
	}
	if t.IsCubeFace() {
		return fmt.Sprintf("TEXTURE_CUBE_MAP_FACE_%d", faceIndex(t))
	}
	return fmt.Sprintf("Target(0x%04X)", uint32(t))
}

// Filter is a minification or magnification filter.
type Filter uint32

// Filters.
const (
	FilterNearest              Filter = 0x2600
	FilterLinear               Filter = 0x2601
	FilterNearestMipmapNearest Filter = 0x2700
	FilterLinearMipmapNearest  Filter = 0x2701
	FilterNearestMipmapLinear  Filter = 0x2702
	FilterLinearMipmapLinear   Filter = 0x2703
)

func validMinFilter(v int32) bool {
	switch Filter(v) { //nolint:gosec // enum values are positive
	case FilterNearest, FilterLinear,
		FilterNearestMipmapNearest, FilterLinearMipmapNearest,
		FilterNearestMipmapLinear, FilterLinearMipmapLinear:
		return true
	}
	return false
}

func validMagFilter(v int32) bool {
	return Filter(v) == FilterNearest || Filter(v) == FilterLinear //nolint:gosec // enum values are positive
}

// Wrap is a texture coordinate wrap mode.
type Wrap uint32

// Wrap modes.
const (
	WrapRepeat         Wrap = 0x2901
	WrapClampToEdge    Wrap = 0x812F
	WrapMirroredRepeat Wrap = 0x8370
)

func validWrap(v int32) bool {
	switch Wrap(v) { //nolint:gosec // enum values are positive
	case WrapRepeat, WrapClampToEdge, WrapMirroredRepeat:
		return true
	}
	return false
}

// Param names a texture parameter.
type Param uint32

// Texture parameters.
const (
	ParamMagFilter     Param = 0x2800
	ParamMinFilter     Param = 0x2801
	ParamWrapS         Param = 0x2802
	ParamWrapT         Param = 0x2803
	ParamWrapR         Param = 0x8072
	ParamBaseLevel     Param = 0x813C
	ParamMaxLevel      Param = 0x813D
	ParamMaxAnisotropy Param = 0x84FE
)

// Format is an internal or external pixel format.
type Format uint32

// Unsized formats.
const (
	FormatDepthComponent Format = 0x1902
	FormatRed            Format = 0x1903
	FormatAlpha          Format = 0x1906
	FormatRGB            Format = 0x1907
	FormatRGBA           Format = 0x1908
	FormatLuminance      Format = 0x1909
	FormatLuminanceAlpha Format = 0x190A
	FormatRG             Format = 0x8227
	FormatBGRA           Format = 0x80E1
	FormatDepthStencil   Format = 0x84F9
	FormatSRGB           Format = 0x8C40
	FormatSRGBAlpha      Format = 0x8C42
)

// Sized internal formats.
const (
	FormatR8        Format = 0x8229
	FormatRG8       Format = 0x822B
	FormatR16F      Format = 0x822D
	FormatR32F      Format = 0x822E
	FormatRG16F     Format = 0x822F
	FormatRGB8      Format = 0x8051
	FormatRGBA4     Format = 0x8056
	FormatRGB5A1    Format = 0x8057
	FormatRGBA8     Format = 0x8058
	FormatRGB565    Format = 0x8D62
	FormatRGBA16F   Format = 0x881A
	FormatRGBA32F   Format = 0x8814
	FormatSRGB8     Format = 0x8C41
	FormatSRGB8A8   Format = 0x8C43
	FormatDepth16   Format = 0x81A5
	FormatDepth24   Format = 0x81A6
	FormatDepth24S8 Format = 0x88F0
)

// channels returns the number of components of an external format.
func (f Format) channels() int {
	switch f {
	case FormatAlpha, FormatLuminance, FormatRed, FormatDepthComponent:
		return 1
	case FormatLuminanceAlpha, FormatRG, FormatDepthStencil:
		return 2
	case FormatRGB, FormatSRGB:
		return 3
	default:
		return 4
	}
}

// isDepthOrStencil reports whether f holds depth or stencil data.
func (f Format) isDepthOrStencil() bool {
	switch f {
	case FormatDepthComponent, FormatDepthStencil, FormatDepth16, FormatDepth24, FormatDepth24S8:
		return true
	}
	return false
}

// DataType is the component type of pixel data.
type DataType uint32

// Data types.
const (
	TypeUnsignedByte      DataType = 0x1401
	TypeUnsignedShort     DataType = 0x1403
	TypeUnsignedInt       DataType = 0x1405
	TypeFloat             DataType = 0x1406
	TypeHalfFloat         DataType = 0x140B
	TypeHalfFloatOES      DataType = 0x8D61
	TypeUnsignedShort565  DataType = 0x8363
	TypeUnsignedShort4444 DataType = 0x8033
	TypeUnsignedShort5551 DataType = 0x8034
	TypeUnsignedInt248    DataType = 0x84FA
)

// bytesPerPixel returns the size of one pixel of format f stored as t.
func (t DataType) bytesPerPixel(f Format) int {
	switch t {
	case TypeUnsignedShort565, TypeUnsignedShort4444, TypeUnsignedShort5551:
		return 2
	case TypeUnsignedInt248:
		return 4
	case TypeUnsignedShort, TypeHalfFloat, TypeHalfFloatOES:
		return 2 * f.channels()
	case TypeUnsignedInt, TypeFloat:
		return 4 * f.channels()
	default:
		return f.channels()
	}
}

// isHalfFloat reports whether t is either half-float enum.
func (t DataType) isHalfFloat() bool {
	return t == TypeHalfFloat || t == TypeHalfFloatOES
}

// CanRenderCondition is the cached renderability of a texture.
type CanRenderCondition uint8

// Render conditions.
const (
	CanRenderAlways CanRenderCondition = iota
	CanRenderNever
	// CanRenderOnlyIfNPOT defers to whether the context supports
	// non-power-of-two textures.
	CanRenderOnlyIfNPOT
)

func (c CanRenderCondition) String() string {
	switch c {
	case CanRenderAlways:
		return "Always"
	case CanRenderNever:
		return "Never"
	case CanRenderOnlyIfNPOT:
		return "OnlyIfNPOT"
	default:
		return fmt.Sprintf("CanRenderCondition(%d)", c)
	}
}

// State summarizes how complete a texture is, weakest first.
type State uint8

// Completeness states.
const (
	StateIncomplete State = iota
	// StateLevel0Complete: level 0 of every face is defined with a non-zero
	// size.
	StateLevel0Complete
	// StateCubeComplete: a cube map whose six level-0 faces are square and
	// agree in size and format.
	StateCubeComplete
	// StateMipComplete: every mip level required by level 0 is defined and
	// consistent, but a cube map is not yet cube complete.
	StateMipComplete
	// StateTextureComplete: mip complete, and cube complete for cube maps.
	StateTextureComplete
)

func (s State) String() string {
	switch s {
	case StateIncomplete:
		return "Incomplete"
	case StateLevel0Complete:
		return "Level0Complete"
	case StateCubeComplete:
		return "CubeComplete"
	case StateMipComplete:
		return "MipComplete"
	case StateTextureComplete:
		return "TextureComplete"
	default:
		return fmt.Sprintf("State(%d)", s)
	}
}

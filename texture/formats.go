package texture

import "math/bits"

// Features are the context capabilities that affect texture validation and
// renderability.
type Features struct {
	// NPOT reports full support for non-power-of-two textures, including
	// mipmaps and repeat wrapping.
	NPOT bool

	// FloatLinear and HalfFloatLinear allow linear filtering of float and
	// half-float textures.
	FloatLinear     bool
	HalfFloatLinear bool

	TextureFloat     bool
	TextureHalfFloat bool
	DepthTexture     bool
	SRGB             bool
	BGRA             bool
	RG               bool

	// ES3 enables sized internal formats.
	ES3 bool
}

// Limits are the maximum texture dimensions of a context.
type Limits struct {
	MaxTextureSize   int
	MaxCubeMapSize   int
	MaxRectangleSize int
	Max3DSize        int
}

// DefaultLimits returns conservative limits every GLES2 device meets.
func DefaultLimits() Limits {
	return Limits{
		MaxTextureSize:   2048,
		MaxCubeMapSize:   2048,
		MaxRectangleSize: 2048,
		Max3DSize:        256,
	}
}

// Triple is one (internal format, format, type) combination.
type Triple struct {
	InternalFormat Format
	Format         Format
	Type           DataType
}

// FormatCompatibilityTable is the immutable set of accepted triples.
// The zero value accepts nothing.
type FormatCompatibilityTable struct {
	set map[Triple]struct{}
}

// NewFormatCompatibilityTable builds a table accepting exactly triples.
func NewFormatCompatibilityTable(triples ...Triple) FormatCompatibilityTable {
	set := make(map[Triple]struct{}, len(triples))
	for _, t := range triples {
		set[t] = struct{}{}
	}
	return FormatCompatibilityTable{set: set}
}

// IsValid reports whether the triple is accepted.
func (t FormatCompatibilityTable) IsValid(internalFormat, format Format, typ DataType) bool {
	_, ok := t.set[Triple{InternalFormat: internalFormat, Format: format, Type: typ}]
	return ok
}

// Len returns the number of accepted triples.
func (t FormatCompatibilityTable) Len() int { return len(t.set) }

// Triples returns the accepted triples in no particular order.
func (t FormatCompatibilityTable) Triples() []Triple {
	out := make([]Triple, 0, len(t.set))
	for k := range t.set {
		out = append(out, k)
	}
	return out
}

// DefaultFormatTable returns the triples a context with features accepts.
func DefaultFormatTable(f Features) FormatCompatibilityTable {
	triples := []Triple{
		{FormatRGBA, FormatRGBA, TypeUnsignedByte},
		{FormatRGB, FormatRGB, TypeUnsignedByte},
		{FormatRGBA, FormatRGBA, TypeUnsignedShort4444},
		{FormatRGBA, FormatRGBA, TypeUnsignedShort5551},
		{FormatRGB, FormatRGB, TypeUnsignedShort565},
		{FormatLuminanceAlpha, FormatLuminanceAlpha, TypeUnsignedByte},
		{FormatLuminance, FormatLuminance, TypeUnsignedByte},
		{FormatAlpha, FormatAlpha, TypeUnsignedByte},
	}
	unsized := []Format{FormatRGBA, FormatRGB, FormatLuminanceAlpha, FormatLuminance, FormatAlpha}
	if f.TextureFloat {
		for _, u := range unsized {
			triples = append(triples, Triple{u, u, TypeFloat})
		}
	}
	if f.TextureHalfFloat {
		for _, u := range unsized {
			triples = append(triples, Triple{u, u, TypeHalfFloatOES})
		}
	}
	if f.DepthTexture {
		triples = append(triples,
			Triple{FormatDepthComponent, FormatDepthComponent, TypeUnsignedShort},
			Triple{FormatDepthComponent, FormatDepthComponent, TypeUnsignedInt},
			Triple{FormatDepthStencil, FormatDepthStencil, TypeUnsignedInt248},
		)
	}
	if f.SRGB {
		triples = append(triples,
			Triple{FormatSRGB, FormatSRGB, TypeUnsignedByte},
			Triple{FormatSRGBAlpha, FormatSRGBAlpha, TypeUnsignedByte},
		)
	}
	if f.BGRA {
		triples = append(triples, Triple{FormatBGRA, FormatBGRA, TypeUnsignedByte})
	}
	if f.RG {
		triples = append(triples,
			Triple{FormatRed, FormatRed, TypeUnsignedByte},
			Triple{FormatRG, FormatRG, TypeUnsignedByte},
		)
	}
	if f.ES3 {
		triples = append(triples,
			Triple{FormatR8, FormatRed, TypeUnsignedByte},
			Triple{FormatRG8, FormatRG, TypeUnsignedByte},
			Triple{FormatRGB8, FormatRGB, TypeUnsignedByte},
			Triple{FormatRGBA8, FormatRGBA, TypeUnsignedByte},
			Triple{FormatRGB565, FormatRGB, TypeUnsignedByte},
			Triple{FormatRGB565, FormatRGB, TypeUnsignedShort565},
			Triple{FormatRGBA4, FormatRGBA, TypeUnsignedByte},
			Triple{FormatRGBA4, FormatRGBA, TypeUnsignedShort4444},
			Triple{FormatRGB5A1, FormatRGBA, TypeUnsignedByte},
			Triple{FormatRGB5A1, FormatRGBA, TypeUnsignedShort5551},
			Triple{FormatSRGB8, FormatRGB, TypeUnsignedByte},
			Triple{FormatSRGB8A8, FormatRGBA, TypeUnsignedByte},
			Triple{FormatR16F, FormatRed, TypeHalfFloat},
			Triple{FormatR16F, FormatRed, TypeFloat},
			Triple{FormatRG16F, FormatRG, TypeHalfFloat},
			Triple{FormatRG16F, FormatRG, TypeFloat},
			Triple{FormatRGBA16F, FormatRGBA, TypeHalfFloat},
			Triple{FormatRGBA16F, FormatRGBA, TypeFloat},
			Triple{FormatR32F, FormatRed, TypeFloat},
			Triple{FormatRGBA32F, FormatRGBA, TypeFloat},
			Triple{FormatDepth16, FormatDepthComponent, TypeUnsignedShort},
			Triple{FormatDepth16, FormatDepthComponent, TypeUnsignedInt},
			Triple{FormatDepth24, FormatDepthComponent, TypeUnsignedInt},
			Triple{FormatDepth24S8, FormatDepthStencil, TypeUnsignedInt248},
		)
	}
	return NewFormatCompatibilityTable(triples...)
}

// ComputeMipMapCount returns the number of levels in a full mip chain for a
// level 0 of the given size. External textures have exactly one level.
func ComputeMipMapCount(target Target, width, height, depth int) int {
	if target == TargetExternal {
		return 1
	}
	m := max(width, height, depth)
	if m <= 0 {
		return 0
	}
	return bits.Len(uint(m))
}

func isPOT(v int) bool { return v > 0 && v&(v-1) == 0 }

func isNPOT(width, height, depth int) bool {
	return (width != 0 && !isPOT(width)) ||
		(height != 0 && !isPOT(height)) ||
		(depth != 0 && !isPOT(depth))
}

// imageDataSize returns the bytes occupied by an image with rows padded to
// 4 bytes, the last row unpadded.
func imageDataSize(width, height, depth int, format Format, typ DataType) uint64 {
	if width <= 0 || height <= 0 || depth <= 0 {
		return 0
	}
	row := width * typ.bytesPerPixel(format)
	padded := (row + 3) &^ 3
	return uint64(padded*(height*depth-1) + row) //nolint:gosec // all factors positive
}

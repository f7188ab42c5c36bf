package texture

import (
	"fmt"

	"github.com/gogpu/compositor/geometry"
)

// ID identifies a texture within a Manager.
type ID uint64

// LevelInfo describes the image stored at one level of one face.
type LevelInfo struct {
	// Target is the texture target, or the face target for cube maps.
	Target Target
	Level  int

	InternalFormat Format
	Width          int
	Height         int
	Depth          int
	Border         int
	Format         Format
	Type           DataType

	// ClearedRect is the part of the level known to hold initialized data.
	ClearedRect geometry.Rect
}

type levelInfo struct {
	LevelInfo
	estimatedSize uint64
}

func (l *levelInfo) fullRect() geometry.Rect {
	return geometry.R(0, 0, l.Width, l.Height)
}

func (l *levelInfo) isCleared() bool {
	return l.ClearedRect == l.fullRect()
}

type faceInfo struct {
	levels       []levelInfo
	numMipLevels int
}

// Texture is the tracked state of one texture. All mutation goes through
// the owning Manager.
type Texture struct {
	id      ID
	manager *Manager

	target Target
	faces  []faceInfo

	minFilter     Filter
	magFilter     Filter
	wrapS         Wrap
	wrapT         Wrap
	wrapR         Wrap
	baseLevel     int
	maxLevel      int
	maxAnisotropy int32

	maxLevelSet int

	textureComplete bool
	cubeComplete    bool
	level0Complete  bool
	mipsComplete    bool
	level0Dirty     bool
	mipsDirty       bool

	npot         bool
	numNPOTFaces int

	immutable bool

	cleared          bool
	numUnclearedMips int

	canRender CanRenderCondition

	estimatedSize uint64
}

func newTexture(id ID, m *Manager) *Texture {
	return &Texture{
		id:            id,
		manager:       m,
		minFilter:     FilterNearestMipmapLinear,
		magFilter:     FilterLinear,
		wrapS:         WrapRepeat,
		wrapT:         WrapRepeat,
		wrapR:         WrapRepeat,
		maxLevel:      1000,
		maxAnisotropy: 1,
		maxLevelSet:   -1,
		cleared:       true,
		canRender:     CanRenderAlways,
	}
}

// ID returns the texture's id.
func (t *Texture) ID() ID { return t.id }

// Target returns the bound target, or TargetNone before the first bind.
func (t *Texture) Target() Target { return t.target }

// MinFilter returns the minification filter.
func (t *Texture) MinFilter() Filter { return t.minFilter }

// MagFilter returns the magnification filter.
func (t *Texture) MagFilter() Filter { return t.magFilter }

// Wrap returns the S, T and R wrap modes.
func (t *Texture) Wrap() (s, tt, r Wrap) { return t.wrapS, t.wrapT, t.wrapR }

// BaseLevel returns the base mip level.
func (t *Texture) BaseLevel() int { return t.baseLevel }

// MaxLevel returns the maximum mip level parameter.
func (t *Texture) MaxLevel() int { return t.maxLevel }

// MaxLevelSet returns the highest level defined so far, or -1.
func (t *Texture) MaxLevelSet() int { return t.maxLevelSet }

// IsImmutable reports whether the level layout can no longer change shape.
func (t *Texture) IsImmutable() bool { return t.immutable }

// NPOT reports whether any face's level 0 has a non-power-of-two
// dimension. External textures are always treated as NPOT.
func (t *Texture) NPOT() bool { return t.npot }

// TextureComplete reports whether every mip level the filters require is
// defined and consistent with level 0.
func (t *Texture) TextureComplete() bool { return t.textureComplete }

// CubeComplete reports whether all six faces are square, non-empty and
// agree in size and format at level 0.
func (t *Texture) CubeComplete() bool { return t.cubeComplete }

// CanRenderCondition returns the cached renderability condition.
func (t *Texture) CanRenderCondition() CanRenderCondition { return t.canRender }

// SafeToRenderFrom reports whether every defined level is fully cleared.
func (t *Texture) SafeToRenderFrom() bool { return t.cleared }

// NumUnclearedMips returns the number of levels with uninitialized texels.
func (t *Texture) NumUnclearedMips() int { return t.numUnclearedMips }

// EstimatedSize returns the bytes used by all defined levels.
func (t *Texture) EstimatedSize() uint64 { return t.estimatedSize }

// State returns the strongest completeness state the texture satisfies.
func (t *Texture) State() State {
	switch {
	case t.textureComplete && (t.target != TargetCubeMap || t.cubeComplete):
		return StateTextureComplete
	case t.textureComplete:
		return StateMipComplete
	case t.cubeComplete:
		return StateCubeComplete
	case t.Level0Complete():
		return StateLevel0Complete
	default:
		return StateIncomplete
	}
}

func (t *Texture) String() string {
	return fmt.Sprintf("Texture{id=%d target=%v state=%v render=%v uncleared=%d}",
		t.id, t.target, t.State(), t.canRender, t.numUnclearedMips)
}

// Level0Complete reports whether level 0 of every face is defined and
// matches face 0 in size and format. Single-face targets only need level 0
// to be defined.
func (t *Texture) Level0Complete() bool {
	if len(t.faces) == 0 {
		return false
	}
	first := &t.faces[0].levels[0]
	if len(t.faces) == 1 {
		return first.Target != TargetNone && first.Width > 0 && first.Height > 0 && first.Depth > 0
	}
	if first.Height == 0 {
		return false
	}
	for i := range t.faces {
		if !faceComplete(first, i, &t.faces[i].levels[0]) {
			return false
		}
	}
	return true
}

// level returns the info at (target, level) or nil when out of range.
func (t *Texture) level(target Target, level int) *levelInfo {
	fi := faceIndex(target)
	if level < 0 || fi >= len(t.faces) || level >= len(t.faces[fi].levels) {
		return nil
	}
	return &t.faces[fi].levels[level]
}

// LevelSize returns the dimensions of a level. ok is false when the level
// is out of range or undefined.
func (t *Texture) LevelSize(target Target, level int) (width, height, depth int, ok bool) {
	l := t.level(target, level)
	if l == nil || l.Target == TargetNone {
		return 0, 0, 0, false
	}
	return l.Width, l.Height, l.Depth, true
}

// LevelType returns the data type and internal format of a level.
func (t *Texture) LevelType(target Target, level int) (typ DataType, internalFormat Format, ok bool) {
	l := t.level(target, level)
	if l == nil || l.Target == TargetNone {
		return 0, 0, false
	}
	return l.Type, l.InternalFormat, true
}

// LevelClearedRect returns the cleared part of a level.
func (t *Texture) LevelClearedRect(target Target, level int) (geometry.Rect, bool) {
	l := t.level(target, level)
	if l == nil || l.Target == TargetNone {
		return geometry.Rect{}, false
	}
	return l.ClearedRect, true
}

// IsLevelCleared reports whether a level is fully cleared. Levels that do
// not exist count as cleared.
func (t *Texture) IsLevelCleared(target Target, level int) bool {
	l := t.level(target, level)
	if l == nil {
		return true
	}
	return l.isCleared()
}

// ValidForTexture reports whether a sub-image update of the given box and
// type fits inside an existing level.
func (t *Texture) ValidForTexture(target Target, level, x, y, z, width, height, depth int, typ DataType) bool {
	l := t.level(target, level)
	if l == nil {
		return false
	}
	if x < 0 || y < 0 || z < 0 || width < 0 || height < 0 || depth < 0 {
		return false
	}
	return x+width <= l.Width &&
		y+height <= l.Height &&
		z+depth <= l.Depth &&
		typ == l.Type
}

// filtersLinear reports whether either filter interpolates texels.
func (t *Texture) filtersLinear() bool {
	if t.magFilter != FilterNearest {
		return true
	}
	return t.minFilter != FilterNearest && t.minFilter != FilterNearestMipmapNearest
}

// needsMips reports whether the minification filter samples mip levels.
func (t *Texture) needsMips() bool {
	return t.minFilter != FilterNearest && t.minFilter != FilterLinear
}

// setTarget fixes the target and sizes the level arrays.
func (t *Texture) setTarget(target Target, maxLevels int) {
	t.target = target
	n := 1
	if target == TargetCubeMap {
		n = 6
	}
	t.faces = make([]faceInfo, n)
	for i := range t.faces {
		t.faces[i].levels = make([]levelInfo, maxLevels)
	}
	if target == TargetExternal || target == TargetRectangle {
		t.minFilter = FilterLinear
		t.wrapS = WrapClampToEdge
		t.wrapT = WrapClampToEdge
	}
	if target == TargetExternal {
		t.immutable = true
	}
	t.update()
	t.updateCanRenderCondition()
}

// setLevelInfo stores a level and recomputes every derived flag.
func (t *Texture) setLevelInfo(in LevelInfo) {
	fi := faceIndex(in.Target)
	face := &t.faces[fi]
	info := &face.levels[in.Level]

	// Compare before assignment; the counters depend on the old values.
	if info.Target != in.Target ||
		info.InternalFormat != in.InternalFormat ||
		info.Width != in.Width ||
		info.Height != in.Height ||
		info.Depth != in.Depth ||
		info.Format != in.Format ||
		info.Type != in.Type {
		if in.Level == 0 {
			face.numMipLevels = ComputeMipMapCount(t.target, in.Width, in.Height, in.Depth)
			prev := isNPOT(info.Width, info.Height, info.Depth)
			now := isNPOT(in.Width, in.Height, in.Depth)
			if prev != now {
				if now {
					t.numNPOTFaces++
				} else {
					t.numNPOTFaces--
				}
			}
			t.level0Dirty = true
		}
		t.mipsDirty = true
	}

	info.Target = in.Target
	info.Level = in.Level
	info.InternalFormat = in.InternalFormat
	info.Depth = in.Depth
	info.Border = in.Border
	info.Format = in.Format
	info.Type = in.Type
	t.updateMipCleared(info, in.Width, in.Height, in.ClearedRect)

	t.estimatedSize -= info.estimatedSize
	info.estimatedSize = imageDataSize(in.Width, in.Height, in.Depth, in.Format, in.Type)
	t.estimatedSize += info.estimatedSize

	t.maxLevelSet = max(t.maxLevelSet, in.Level)
	t.update()
	t.updateCleared()
	t.updateCanRenderCondition()
}

// updateMipCleared resizes a level, replaces its cleared rect and adjusts
// the uncleared mip counters when the level's cleared status flips.
func (t *Texture) updateMipCleared(info *levelInfo, width, height int, cleared geometry.Rect) {
	wasCleared := info.isCleared()
	info.Width = width
	info.Height = height
	info.ClearedRect = cleared.Intersect(info.fullRect())
	if info.ClearedRect.IsEmpty() {
		info.ClearedRect = geometry.Rect{}
	}
	isCleared := info.isCleared()
	if isCleared == wasCleared {
		return
	}
	delta := 1
	if isCleared {
		delta = -1
	}
	t.numUnclearedMips += delta
	if t.manager != nil {
		t.manager.updateUnclearedMips(delta)
	}
}

// updateCleared recomputes SafeToRenderFrom from the uncleared mip count.
func (t *Texture) updateCleared() {
	if len(t.faces) == 0 {
		return
	}
	t.updateSafeToRenderFrom(t.numUnclearedMips == 0)
}

func (t *Texture) updateSafeToRenderFrom(cleared bool) {
	if t.cleared == cleared {
		return
	}
	t.cleared = cleared
	delta := 1
	if cleared {
		delta = -1
	}
	if t.manager != nil {
		t.manager.updateSafeToRenderFrom(delta)
	}
}

// update recomputes npot, texture completeness and cube completeness.
func (t *Texture) update() {
	t.npot = t.target == TargetExternal || t.numNPOTFaces > 0

	if len(t.faces) == 0 {
		t.textureComplete = false
		t.cubeComplete = false
		return
	}

	first := &t.faces[0]
	l0 := &first.levels[0]
	levelsNeeded := first.numMipLevels

	t.textureComplete = t.maxLevelSet >= levelsNeeded-1 && t.maxLevelSet >= 0
	t.cubeComplete = len(t.faces) == 6 && l0.Width == l0.Height

	if l0.Width == 0 || l0.Height == 0 {
		t.textureComplete = false
	}

	var features Features
	if t.manager != nil {
		features = t.manager.features
	}
	switch {
	case l0.Type == TypeFloat && !features.FloatLinear && t.filtersLinear():
		t.textureComplete = false
	case l0.Type.isHalfFloat() && !features.HalfFloatLinear && t.filtersLinear():
		t.textureComplete = false
	}

	if t.cubeComplete && t.level0Dirty {
		t.level0Complete = true
		for i := range t.faces {
			if !faceComplete(l0, i, &t.faces[i].levels[0]) {
				t.level0Complete = false
				break
			}
		}
		t.level0Dirty = false
	}
	t.cubeComplete = t.cubeComplete && t.level0Complete

	if t.textureComplete && t.mipsDirty {
		t.mipsComplete = true
		for i := 0; i < len(t.faces) && t.mipsComplete; i++ {
			face := &t.faces[i]
			for lvl := 1; lvl < levelsNeeded && lvl < len(face.levels); lvl++ {
				if !mipComplete(&face.levels[0], lvl, &face.levels[lvl]) {
					t.mipsComplete = false
					break
				}
			}
		}
		t.mipsDirty = false
	}
	t.textureComplete = t.textureComplete && t.mipsComplete
}

// faceComplete checks level 0 of face i against level 0 of face 0.
func faceComplete(first *levelInfo, i int, l *levelInfo) bool {
	ok := l.Target != TargetNone && l.Depth == 1 && l.Width > 0
	if i != 0 {
		ok = ok &&
			l.Width == first.Width &&
			l.Height == first.Height &&
			l.InternalFormat == first.InternalFormat &&
			l.Format == first.Format &&
			l.Type == first.Type
	}
	return ok
}

// mipComplete checks that a level has the size and format its position in
// the chain requires.
func mipComplete(l0 *levelInfo, level int, l *levelInfo) bool {
	if l.Target == TargetNone {
		return false
	}
	return l.Width == max(1, l0.Width>>level) &&
		l.Height == max(1, l0.Height>>level) &&
		l.Depth == max(1, l0.Depth>>level) &&
		l.InternalFormat == l0.InternalFormat &&
		l.Format == l0.Format &&
		l.Type == l0.Type
}

// computeCanRenderCondition derives renderability from the current state.
func (t *Texture) computeCanRenderCondition() CanRenderCondition {
	if t.target == TargetNone {
		return CanRenderAlways
	}
	if t.target != TargetExternal {
		if len(t.faces) == 0 {
			return CanRenderNever
		}
		l0 := &t.faces[0].levels[0]
		if l0.Width == 0 || l0.Height == 0 || l0.Depth == 0 {
			return CanRenderNever
		}
	}
	mips := t.needsMips()
	if mips {
		if !t.textureComplete {
			return CanRenderNever
		}
		if t.target == TargetCubeMap && !t.cubeComplete {
			return CanRenderNever
		}
	}
	npotCompatible := !mips && t.wrapS == WrapClampToEdge && t.wrapT == WrapClampToEdge
	if !npotCompatible {
		if t.target == TargetRectangle {
			return CanRenderNever
		}
		if t.npot {
			return CanRenderOnlyIfNPOT
		}
	}
	return CanRenderAlways
}

func (t *Texture) updateCanRenderCondition() {
	next := t.computeCanRenderCondition()
	if next == t.canRender {
		return
	}
	prev := t.canRender
	t.canRender = next
	if t.manager != nil {
		t.manager.updateCanRenderCondition(prev, next)
	}
}

// canGenerateMipmaps reports whether the level 0 images allow a mip chain
// to be generated from them.
func (t *Texture) canGenerateMipmaps(f Features) bool {
	if (t.npot && !f.NPOT) || len(t.faces) == 0 ||
		t.target == TargetExternal || t.target == TargetRectangle {
		return false
	}
	first := &t.faces[0].levels[0]
	if first.Format.isDepthOrStencil() || first.InternalFormat.isDepthOrStencil() {
		return false
	}
	for i := range t.faces {
		l := &t.faces[i].levels[0]
		if l.Target == TargetNone ||
			l.Width != first.Width ||
			l.Height != first.Height ||
			l.Depth != 1 ||
			l.Format != first.Format ||
			l.InternalFormat != first.InternalFormat ||
			l.Type != first.Type {
			return false
		}
	}
	return true
}

// Clearer writes zeros into a region of a texture level. It returns false
// if the clear could not be performed.
type Clearer interface {
	ClearLevel(tex *Texture, target Target, level int, format Format, typ DataType, rect geometry.Rect) bool
}

// ClearerFunc adapts a function to the Clearer interface.
type ClearerFunc func(tex *Texture, target Target, level int, format Format, typ DataType, rect geometry.Rect) bool

// ClearLevel calls f.
func (f ClearerFunc) ClearLevel(tex *Texture, target Target, level int, format Format, typ DataType, rect geometry.Rect) bool {
	return f(tex, target, level, format, typ, rect)
}

// clearLevel clears the uncleared border of one level. The cleared rect
// splits the level into a nine-patch; all non-empty patches except the
// center are handed to c.
func (t *Texture) clearLevel(c Clearer, target Target, level int) bool {
	l := t.level(target, level)
	if l == nil {
		return true
	}
	if l.Target == TargetNone || l.isCleared() || l.Width == 0 || l.Height == 0 || l.Depth == 0 {
		return true
	}
	cr := l.ClearedRect
	xs := [4]int{0, cr.X, cr.Right(), l.Width}
	ys := [4]int{0, cr.Y, cr.Bottom(), l.Height}
	for j := 0; j < 3; j++ {
		for i := 0; i < 3; i++ {
			if i == 1 && j == 1 {
				continue
			}
			r := geometry.R(xs[i], ys[j], xs[i+1]-xs[i], ys[j+1]-ys[j])
			if r.IsEmpty() {
				continue
			}
			if !c.ClearLevel(t, l.Target, l.Level, l.Format, l.Type, r) {
				return false
			}
		}
	}
	t.updateMipCleared(l, l.Width, l.Height, l.fullRect())
	return true
}

// clearRenderableLevels clears every defined level of every face.
func (t *Texture) clearRenderableLevels(c Clearer) bool {
	if t.cleared {
		return true
	}
	for i := range t.faces {
		face := &t.faces[i]
		end := min(t.baseLevel+face.numMipLevels, len(face.levels))
		for lvl := t.baseLevel; lvl < end; lvl++ {
			l := &face.levels[lvl]
			if l.Target == TargetNone {
				continue
			}
			if !t.clearLevel(c, l.Target, lvl) {
				return false
			}
		}
	}
	t.updateSafeToRenderFrom(true)
	return true
}

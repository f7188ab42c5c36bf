package texture

import (
	"fmt"

	"github.com/gogpu/compositor/geometry"
)

// Manager tracks every texture of one context.
type Manager struct {
	limits   Limits
	features Features
	table    FormatCompatibilityTable

	maxLevels        int
	maxCubeMapLevels int
	max3DLevels      int

	textures map[ID]*Texture

	numUnrenderable  int
	numUnsafe        int
	numUnclearedMips int

	memoryUsage uint64
}

// NewManager returns a manager for a context with the given limits and
// features. The table is consulted for every level definition.
func NewManager(limits Limits, features Features, table FormatCompatibilityTable) *Manager {
	return &Manager{
		limits:           limits,
		features:         features,
		table:            table,
		maxLevels:        ComputeMipMapCount(Target2D, limits.MaxTextureSize, limits.MaxTextureSize, limits.MaxTextureSize),
		maxCubeMapLevels: ComputeMipMapCount(TargetCubeMap, limits.MaxCubeMapSize, limits.MaxCubeMapSize, limits.MaxCubeMapSize),
		max3DLevels:      ComputeMipMapCount(Target3D, limits.Max3DSize, limits.Max3DSize, limits.Max3DSize),
		textures:         make(map[ID]*Texture),
	}
}

// Limits returns the context limits.
func (m *Manager) Limits() Limits { return m.limits }

// Features returns the context features.
func (m *Manager) Features() Features { return m.features }

// FormatTable returns the compatibility table.
func (m *Manager) FormatTable() FormatCompatibilityTable { return m.table }

// CreateTexture starts tracking a new texture. An existing texture with the
// same id is replaced.
func (m *Manager) CreateTexture(id ID) *Texture {
	if old, ok := m.textures[id]; ok {
		m.stopTracking(old)
	}
	t := newTexture(id, m)
	m.textures[id] = t
	m.startTracking(t)
	return t
}

// Texture returns the texture with id, or nil.
func (m *Manager) Texture(id ID) *Texture { return m.textures[id] }

// Len returns the number of tracked textures.
func (m *Manager) Len() int { return len(m.textures) }

// RemoveTexture stops tracking a texture. Its counters are removed from the
// manager totals and later calls on the detached texture have no effect on
// them.
func (m *Manager) RemoveTexture(id ID) {
	t, ok := m.textures[id]
	if !ok {
		return
	}
	delete(m.textures, id)
	m.stopTracking(t)
}

// Destroy removes every texture. haveContext is false when the GPU context
// is already gone and only the bookkeeping remains to be dropped.
func (m *Manager) Destroy(haveContext bool) {
	slogger().Debug("texture: destroy manager", "textures", len(m.textures), "haveContext", haveContext)
	for id, t := range m.textures {
		delete(m.textures, id)
		m.stopTracking(t)
	}
}

func (m *Manager) startTracking(t *Texture) {
	if !t.cleared {
		m.numUnsafe++
	}
	if !m.canRenderWith(t.canRender) {
		m.numUnrenderable++
	}
	m.numUnclearedMips += t.numUnclearedMips
	m.memoryUsage += t.estimatedSize
}

func (m *Manager) stopTracking(t *Texture) {
	if !t.cleared {
		m.numUnsafe--
	}
	if !m.canRenderWith(t.canRender) {
		m.numUnrenderable--
	}
	m.numUnclearedMips -= t.numUnclearedMips
	m.memoryUsage -= t.estimatedSize
	t.manager = nil
}

func (m *Manager) owns(t *Texture) bool {
	return t != nil && t.manager == m
}

// MaxLevelsForTarget returns the number of mip levels a target can hold.
func (m *Manager) MaxLevelsForTarget(target Target) int {
	switch target {
	case Target2D:
		return m.maxLevels
	case TargetRectangle, TargetExternal:
		return 1
	case Target3D, Target2DArray:
		return m.max3DLevels
	default:
		return m.maxCubeMapLevels
	}
}

// MaxSizeForTarget returns the largest level 0 dimension of a target.
func (m *Manager) MaxSizeForTarget(target Target) int {
	switch target {
	case Target2D, TargetExternal:
		return m.limits.MaxTextureSize
	case TargetRectangle:
		return m.limits.MaxRectangleSize
	case Target3D, Target2DArray:
		return m.limits.Max3DSize
	default:
		return m.limits.MaxCubeMapSize
	}
}

// ValidForTarget reports whether a level of the given size can exist for
// target. Cube face targets are checked against the cube map limits.
func (m *Manager) ValidForTarget(target Target, level, width, height, depth int) bool {
	if level < 0 || width < 0 || height < 0 || depth < 0 {
		return false
	}
	if level >= m.MaxLevelsForTarget(target) {
		return false
	}
	maxSize := m.MaxSizeForTarget(target) >> level
	if width > maxSize || height > maxSize || depth > maxSize {
		return false
	}
	if level != 0 && !m.features.NPOT && (!isPOTOrZero(width) || !isPOTOrZero(height) || !isPOTOrZero(depth)) {
		return false
	}
	if (target == TargetCubeMap || target.IsCubeFace()) && (width != height || depth != 1) {
		return false
	}
	if target == Target2D && depth != 1 {
		return false
	}
	return true
}

func isPOTOrZero(v int) bool { return v == 0 || isPOT(v) }

// SetTarget binds a texture to a target for the first time. A texture's
// target cannot change once set.
func (m *Manager) SetTarget(t *Texture, target Target) error {
	if !m.owns(t) {
		return fmt.Errorf("%w: texture not tracked", ErrInvalidOperation)
	}
	switch target {
	case Target2D, Target3D, Target2DArray, TargetCubeMap, TargetRectangle, TargetExternal:
	default:
		return fmt.Errorf("%w: target %v", ErrInvalidEnum, target)
	}
	if t.target != TargetNone {
		if t.target == target {
			return nil
		}
		return fmt.Errorf("%w: texture %d already bound to %v", ErrInvalidOperation, t.id, t.target)
	}
	t.setTarget(target, m.MaxLevelsForTarget(target))
	return nil
}

// checkLevelTarget verifies that target addresses a face of t.
func checkLevelTarget(t *Texture, target Target) error {
	switch {
	case t.target == TargetNone:
		return fmt.Errorf("%w: texture %d has no target", ErrInvalidOperation, t.id)
	case t.target == TargetCubeMap:
		if !target.IsCubeFace() {
			return fmt.Errorf("%w: %v is not a cube face", ErrInvalidEnum, target)
		}
	case target != t.target:
		return fmt.Errorf("%w: %v does not match %v", ErrInvalidEnum, target, t.target)
	}
	return nil
}

// SetLevelInfo defines one level of one face. The format triple and the
// dimensions are validated before any state changes; on error the texture
// is untouched.
func (m *Manager) SetLevelInfo(t *Texture, info LevelInfo) error {
	if !m.owns(t) {
		return fmt.Errorf("%w: texture not tracked", ErrInvalidOperation)
	}
	if err := checkLevelTarget(t, info.Target); err != nil {
		return err
	}
	if !m.table.IsValid(info.InternalFormat, info.Format, info.Type) {
		slogger().Debug("texture: rejected format triple",
			"texture", t.id, "internal", info.InternalFormat, "format", info.Format, "type", info.Type)
		return fmt.Errorf("%w: (0x%04X, 0x%04X, 0x%04X)", ErrInvalidCombination,
			uint32(info.InternalFormat), uint32(info.Format), uint32(info.Type))
	}
	if info.Border != 0 {
		return fmt.Errorf("%w: border %d", ErrInvalidValue, info.Border)
	}
	if !m.ValidForTarget(info.Target, info.Level, info.Width, info.Height, info.Depth) {
		return fmt.Errorf("%w: level %d size %dx%dx%d for %v", ErrInvalidValue,
			info.Level, info.Width, info.Height, info.Depth, info.Target)
	}
	if t.level(info.Target, info.Level) == nil {
		return fmt.Errorf("%w: level %d out of range", ErrInvalidValue, info.Level)
	}

	m.memoryUsage -= t.estimatedSize
	t.setLevelInfo(info)
	m.memoryUsage += t.estimatedSize
	return nil
}

// SetParameter sets a texture parameter. External and rectangle textures
// accept only NEAREST or LINEAR minification and CLAMP_TO_EDGE wrapping.
func (m *Manager) SetParameter(t *Texture, param Param, value int32) error {
	if !m.owns(t) {
		return fmt.Errorf("%w: texture not tracked", ErrInvalidOperation)
	}
	if t.target == TargetExternal || t.target == TargetRectangle {
		if param == ParamMinFilter && Filter(value) != FilterNearest && Filter(value) != FilterLinear { //nolint:gosec // compared as enum
			return fmt.Errorf("%w: min filter 0x%04X on %v", ErrInvalidEnum, value, t.target)
		}
		if (param == ParamWrapS || param == ParamWrapT) && Wrap(value) != WrapClampToEdge { //nolint:gosec // compared as enum
			return fmt.Errorf("%w: wrap 0x%04X on %v", ErrInvalidEnum, value, t.target)
		}
	}
	switch param {
	case ParamMinFilter:
		if !validMinFilter(value) {
			return fmt.Errorf("%w: min filter 0x%04X", ErrInvalidEnum, value)
		}
		t.minFilter = Filter(value) //nolint:gosec // validated
	case ParamMagFilter:
		if !validMagFilter(value) {
			return fmt.Errorf("%w: mag filter 0x%04X", ErrInvalidEnum, value)
		}
		t.magFilter = Filter(value) //nolint:gosec // validated
	case ParamWrapS, ParamWrapT, ParamWrapR:
		if !validWrap(value) {
			return fmt.Errorf("%w: wrap 0x%04X", ErrInvalidEnum, value)
		}
		w := Wrap(value) //nolint:gosec // validated
		switch param {
		case ParamWrapS:
			t.wrapS = w
		case ParamWrapT:
			t.wrapT = w
		default:
			t.wrapR = w
		}
	case ParamBaseLevel:
		if value < 0 {
			return fmt.Errorf("%w: base level %d", ErrInvalidValue, value)
		}
		t.baseLevel = int(value)
	case ParamMaxLevel:
		if value < 0 {
			return fmt.Errorf("%w: max level %d", ErrInvalidValue, value)
		}
		t.maxLevel = int(value)
	case ParamMaxAnisotropy:
		if value < 1 {
			return fmt.Errorf("%w: max anisotropy %d", ErrInvalidValue, value)
		}
		t.maxAnisotropy = value
	default:
		return fmt.Errorf("%w: parameter 0x%04X", ErrInvalidEnum, uint32(param))
	}
	t.update()
	t.updateCleared()
	t.updateCanRenderCondition()
	return nil
}

// SetLevelCleared marks a whole level as cleared or uncleared.
func (m *Manager) SetLevelCleared(t *Texture, target Target, level int, cleared bool) error {
	if !m.owns(t) {
		return fmt.Errorf("%w: texture not tracked", ErrInvalidOperation)
	}
	l := t.level(target, level)
	if l == nil {
		return fmt.Errorf("%w: level %d of %v", ErrInvalidValue, level, target)
	}
	var r geometry.Rect
	if cleared {
		r = l.fullRect()
	}
	return m.SetLevelClearedRect(t, target, level, r)
}

// SetLevelClearedRect replaces the cleared rect of a level. The rect is
// clipped to the level bounds.
func (m *Manager) SetLevelClearedRect(t *Texture, target Target, level int, r geometry.Rect) error {
	if !m.owns(t) {
		return fmt.Errorf("%w: texture not tracked", ErrInvalidOperation)
	}
	l := t.level(target, level)
	if l == nil {
		return fmt.Errorf("%w: level %d of %v", ErrInvalidValue, level, target)
	}
	t.updateMipCleared(l, l.Width, l.Height, r)
	t.updateCleared()
	return nil
}

// ClearLevel clears the uncleared part of one level through c and reports
// whether every clear succeeded.
func (m *Manager) ClearLevel(t *Texture, target Target, level int, c Clearer) bool {
	if !m.owns(t) {
		return false
	}
	if t.numUnclearedMips == 0 {
		return true
	}
	ok := t.clearLevel(c, target, level)
	t.updateCleared()
	return ok
}

// ClearRenderableLevels clears every level a draw may sample.
func (m *Manager) ClearRenderableLevels(t *Texture, c Clearer) bool {
	if !m.owns(t) {
		return false
	}
	return t.clearRenderableLevels(c)
}

// CanGenerateMipmaps reports whether MarkMipmapsGenerated would succeed.
func (m *Manager) CanGenerateMipmaps(t *Texture) bool {
	return m.owns(t) && t.canGenerateMipmaps(m.features)
}

// MarkMipmapsGenerated defines levels 1..N of every face from level 0, as
// a mipmap generation pass would. The new levels are cleared.
func (m *Manager) MarkMipmapsGenerated(t *Texture) bool {
	if !m.CanGenerateMipmaps(t) {
		return false
	}
	m.memoryUsage -= t.estimatedSize
	for i := range t.faces {
		face := &t.faces[i]
		l0 := face.levels[0].LevelInfo
		target := t.target
		if target == TargetCubeMap {
			target = faceTarget(i)
		}
		w, h, d := l0.Width, l0.Height, l0.Depth
		for lvl := 1; lvl < face.numMipLevels && lvl < len(face.levels); lvl++ {
			w, h, d = max(1, w>>1), max(1, h>>1), max(1, d>>1)
			t.setLevelInfo(LevelInfo{
				Target:         target,
				Level:          lvl,
				InternalFormat: l0.InternalFormat,
				Width:          w,
				Height:         h,
				Depth:          d,
				Border:         l0.Border,
				Format:         l0.Format,
				Type:           l0.Type,
				ClearedRect:    geometry.R(0, 0, w, h),
			})
		}
	}
	m.memoryUsage += t.estimatedSize
	return true
}

// CanRender reports whether t can be sampled in this context.
func (m *Manager) CanRender(t *Texture) bool {
	return m.canRenderWith(t.canRender)
}

func (m *Manager) canRenderWith(c CanRenderCondition) bool {
	switch c {
	case CanRenderAlways:
		return true
	case CanRenderNever:
		return false
	default:
		return m.features.NPOT
	}
}

// HaveUnrenderableTextures reports whether any tracked texture cannot be
// rendered.
func (m *Manager) HaveUnrenderableTextures() bool { return m.numUnrenderable > 0 }

// HaveUnsafeTextures reports whether any tracked texture has uncleared
// levels.
func (m *Manager) HaveUnsafeTextures() bool { return m.numUnsafe > 0 }

// HaveUnclearedMips reports whether any level of any texture is uncleared.
func (m *Manager) HaveUnclearedMips() bool { return m.numUnclearedMips > 0 }

// UnclearedMipCount returns the number of uncleared levels across all
// textures.
func (m *Manager) UnclearedMipCount() int { return m.numUnclearedMips }

// MemoryUsage returns the estimated bytes of all tracked levels.
func (m *Manager) MemoryUsage() uint64 { return m.memoryUsage }

func (m *Manager) updateCanRenderCondition(prev, next CanRenderCondition) {
	if !m.canRenderWith(prev) {
		m.numUnrenderable--
	}
	if !m.canRenderWith(next) {
		m.numUnrenderable++
	}
}

func (m *Manager) updateSafeToRenderFrom(delta int) { m.numUnsafe += delta }

func (m *Manager) updateUnclearedMips(delta int) { m.numUnclearedMips += delta }

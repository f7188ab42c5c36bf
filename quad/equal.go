package quad

// Equal reports whether two passes draw the same thing with the same
// shared-state structure. Quads are compared field by field, shared states
// by the value each quad refers to, and for every pair of adjacent quads
// both passes must agree on whether the pair shares one state. Unreferenced
// arena entries are ignored.
func Equal(a, b *RenderPass) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.ID != b.ID ||
		a.OutputRect != b.OutputRect ||
		a.DamageRect != b.DamageRect ||
		a.TransformToRoot != b.TransformToRoot ||
		a.HasTransparentBackground != b.HasTransparentBackground ||
		len(a.Quads) != len(b.Quads) {
		return false
	}
	for i := range a.Quads {
		qa, qb := &a.Quads[i], &b.Quads[i]
		if qa.Rect != qb.Rect ||
			qa.OpaqueRect != qb.OpaqueRect ||
			qa.VisibleRect != qb.VisibleRect ||
			qa.NeedsBlending != qb.NeedsBlending ||
			!contentEqual(qa.Content, qb.Content) {
			return false
		}
		sa, sb := a.SharedQuadStateOf(i), b.SharedQuadStateOf(i)
		if sa == nil || sb == nil {
			if sa != sb {
				return false
			}
		} else if *sa != *sb {
			return false
		}
		if i > 0 {
			sharedA := qa.SharedQuadState == a.Quads[i-1].SharedQuadState
			sharedB := qb.SharedQuadState == b.Quads[i-1].SharedQuadState
			if sharedA != sharedB {
				return false
			}
		}
	}
	return true
}

// FramesEqual compares two frames pass by pass.
func FramesEqual(a, b *Frame) bool {
	if a.DeviceScaleFactor != b.DeviceScaleFactor || len(a.Passes) != len(b.Passes) {
		return false
	}
	for i := range a.Passes {
		if !Equal(a.Passes[i], b.Passes[i]) {
			return false
		}
	}
	return true
}

// Package texture tracks the completeness, renderability and cleared state
// of textures defined level by level through a GLES2-style API.
//
// A [Manager] owns every [Texture] of a context and keeps context-wide
// counters: how many textures cannot be rendered, how many are not safe to
// sample because some level holds uninitialized memory, and how many mip
// levels are uncleared. Every mutating call recomputes the affected
// texture's state before returning, so queries never observe stale values.
//
// (internal format, format, type) triples are validated against a
// [FormatCompatibilityTable] fixed at construction. A rejected call returns
// [ErrInvalidCombination] and leaves the texture untouched.
//
// The Manager is not safe for concurrent use; it belongs to the compositor
// goroutine.
package texture

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package quad is the render-pass model handed to the compositor each frame.
//
// A [Frame] is an ordered list of [RenderPass] values, root pass last. Each
// pass owns an arena of [SharedQuadState] values and an ordered list of
// [DrawQuad] values that refer into the arena by index. Quad payloads form
// a closed set: [Content] is implemented only by the ten material types in
// this package, and every switch over them ends in a panic for the
// impossible default.
//
// # Wire format
//
// [Encoder] and [Decoder] implement a compact little-endian stream. A shared
// quad state is written only when a quad's state differs from the previous
// quad's, so runs of quads sharing one state decode back into a single
// state. The decoder enforces the limits in [Limits] and rejects quads whose
// visible or opaque rectangles fall outside the quad rectangle.
package quad

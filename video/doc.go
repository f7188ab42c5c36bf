// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package video turns decoded video frames into compositor resources.
//
// A [Frame] is either mappable (CPU planes) or texture backed (mailboxes
// produced by a hardware decoder). [Updater.Convert] wraps texture-backed
// planes directly and uploads mappable planes into pooled registry
// resources. Pooled resources are reused across frames of the same plane
// size and format. A plane whose resource already holds the same frame and
// timestamp is returned without another upload.
//
// In software compositing mode the frame is converted to a single RGBA
// bitmap on the CPU.
package video

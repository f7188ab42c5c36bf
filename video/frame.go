package video

import (
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/compositor/geometry"
	"github.com/gogpu/compositor/gpucore"
	"github.com/gogpu/compositor/texture"
)

// Format is the pixel layout of a video frame.
type Format uint8

// Frame formats.
const (
	FormatUnknown Format = iota
	// FormatYV12 is 12bpp YVU planar with 2x2 chroma subsampling.
	FormatYV12
	// FormatYV16 is 16bpp YVU planar with 2x1 chroma subsampling.
	FormatYV16
	// FormatYV12A is YV12 with a full-resolution alpha plane.
	FormatYV12A
	// FormatYV24 is 24bpp YUV planar without subsampling.
	FormatYV24
	// FormatI420 is 12bpp YUV planar with 2x2 chroma subsampling.
	FormatI420
	// FormatNV12 is a Y plane followed by an interleaved UV plane.
	FormatNV12
	FormatARGB
	FormatXRGB
)

var formatNames = [...]string{
	FormatUnknown: "Unknown",
	FormatYV12:    "YV12",
	FormatYV16:    "YV16",
	FormatYV12A:   "YV12A",
	FormatYV24:    "YV24",
	FormatI420:    "I420",
	FormatNV12:    "NV12",
	FormatARGB:    "ARGB",
	FormatXRGB:    "XRGB",
}

func (f Format) String() string {
	if int(f) < len(formatNames) {
		return formatNames[f]
	}
	return fmt.Sprintf("Format(%d)", f)
}

// Plane indices.
const (
	PlaneY  = 0
	PlaneU  = 1
	PlaneUV = 1
	PlaneV  = 2
	PlaneA  = 3

	MaxPlanes = 4
)

// NumPlanes returns the number of planes of the format.
func (f Format) NumPlanes() int {
	switch f {
	case FormatARGB, FormatXRGB:
		return 1
	case FormatNV12:
		return 2
	case FormatYV12, FormatYV16, FormatI420, FormatYV24:
		return 3
	case FormatYV12A:
		return 4
	default:
		return 0
	}
}

// IsYUVPlanar reports whether the format stores luma and chroma in
// separate planes.
func (f Format) IsYUVPlanar() bool {
	switch f {
	case FormatYV12, FormatI420, FormatYV16, FormatYV12A, FormatYV24, FormatNV12:
		return true
	}
	return false
}

// sampleSize returns the number of pixels covered by one element of plane.
func (f Format) sampleSize(plane int) (w, h int) {
	if plane == PlaneY || plane == PlaneA {
		return 1, 1
	}
	switch f {
	case FormatYV24:
		return 1, 1
	case FormatYV16:
		return 2, 1
	default:
		return 2, 2
	}
}

// bytesPerElement returns the size of one element of plane.
func (f Format) bytesPerElement(plane int) int {
	switch {
	case f == FormatARGB || f == FormatXRGB:
		return 4
	case f == FormatNV12 && plane == PlaneUV:
		return 2
	default:
		return 1
	}
}

func roundUp(v, m int) int { return (v + m - 1) / m * m }

// PlaneSize returns the size in bytes-per-row by rows of a plane for a
// frame of the given coded size. Planar formats are first padded to an even
// size so subsampled planes cover the whole image.
func PlaneSize(f Format, plane int, coded geometry.Size) geometry.Size {
	if plane < 0 || plane >= f.NumPlanes() {
		return geometry.Size{}
	}
	w, h := coded.Width, coded.Height
	if f != FormatARGB {
		w, h = roundUp(w, 2), roundUp(h, 2)
	}
	sw, sh := f.sampleSize(plane)
	return geometry.Sz(f.bytesPerElement(plane)*w/sw, h/sh)
}

// MailboxHolder names one texture plane of a hardware frame.
type MailboxHolder struct {
	Mailbox   gpucore.Mailbox
	Target    texture.Target
	SyncToken gpucore.SyncToken
}

// SyncTokenClient inserts and waits on sync tokens for a frame's release.
type SyncTokenClient interface {
	InsertSyncToken() gpucore.SyncToken
	WaitSyncToken(token gpucore.SyncToken)
}

// Frame is one decoded video frame. Its identity (pointer) together with
// Timestamp fingerprints the content of its planes.
type Frame struct {
	Format    Format
	CodedSize geometry.Size
	Timestamp time.Duration

	// Data and Stride describe mappable planes, in bytes.
	Data   [][]byte
	Stride []int

	// Mailboxes describe texture-backed planes.
	Mailboxes []MailboxHolder

	// AllowOverlay marks the frame as eligible for overlay promotion.
	AllowOverlay bool

	mu           sync.Mutex
	releaseToken gpucore.SyncToken
}

// NewFrame allocates a mappable frame with tightly packed planes.
func NewFrame(format Format, coded geometry.Size, timestamp time.Duration) *Frame {
	f := &Frame{Format: format, CodedSize: coded, Timestamp: timestamp}
	n := format.NumPlanes()
	f.Data = make([][]byte, n)
	f.Stride = make([]int, n)
	for i := range n {
		ps := PlaneSize(format, i, coded)
		f.Stride[i] = ps.Width
		f.Data[i] = make([]byte, ps.Area())
	}
	return f
}

// WrapTextures returns a texture-backed frame.
func WrapTextures(format Format, holders []MailboxHolder, coded geometry.Size, timestamp time.Duration) *Frame {
	return &Frame{
		Format:    format,
		CodedSize: coded,
		Timestamp: timestamp,
		Mailboxes: holders,
	}
}

// HasTextures reports whether the frame's planes live on the GPU.
func (f *Frame) HasTextures() bool { return len(f.Mailboxes) > 0 }

// IsMappable reports whether the frame has CPU planes.
func (f *Frame) IsMappable() bool { return len(f.Data) > 0 && f.Data[0] != nil }

// UpdateReleaseSyncToken waits on the previous release token, if any, and
// replaces it with one inserted by c. The returned token is the one the
// producer must wait on before reusing the frame's textures.
func (f *Frame) UpdateReleaseSyncToken(c SyncTokenClient) gpucore.SyncToken {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.releaseToken.HasFence() {
		c.WaitSyncToken(f.releaseToken)
	}
	f.releaseToken = c.InsertSyncToken()
	return f.releaseToken
}

// ReleaseSyncToken returns the current release token.
func (f *Frame) ReleaseSyncToken() gpucore.SyncToken {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.releaseToken
}

func (f *Frame) String() string {
	return fmt.Sprintf("Frame{%v %v ts=%v textures=%v}", f.Format, f.CodedSize, f.Timestamp, f.HasTextures())
}

package gpucore

import (
	"encoding/hex"
	"fmt"

	"github.com/gogpu/gputypes"
)

// ResourceID is an opaque handle to a registry resource.
type ResourceID uint64

// InvalidID is the zero value, representing an invalid/null resource.
const InvalidID ResourceID = 0

// IsValid reports whether id names a resource.
func (id ResourceID) IsValid() bool { return id != InvalidID }

// SyncToken is a GPU fence value. Tokens issued by one fence source are
// strictly increasing, so a signalled token implies all smaller ones.
type SyncToken uint64

// NoSyncToken is the empty token.
const NoSyncToken SyncToken = 0

// HasFence reports whether t carries a fence.
func (t SyncToken) HasFence() bool { return t != NoSyncToken }

// MailboxSize is the length of a mailbox name in bytes.
const MailboxSize = 64

// Mailbox is a cross-process name for a texture.
type Mailbox [MailboxSize]byte

// IsZero reports whether the mailbox is unset.
func (m Mailbox) IsZero() bool {
	return m == Mailbox{}
}

// String returns the first bytes of the mailbox in hex, enough to tell
// mailboxes apart in logs.
func (m Mailbox) String() string {
	if m.IsZero() {
		return "Mailbox[zero]"
	}
	return "Mailbox[" + hex.EncodeToString(m[:8]) + "]"
}

// Format is the pixel format of a registry resource.
type Format uint8

// Resource formats.
const (
	FormatRGBA8888 Format = iota
	FormatRGBA4444
	FormatBGRA8888
	FormatAlpha8
	FormatLuminance8
	FormatRGB565
	FormatRed8
)

// String returns a human-readable name for the format.
func (f Format) String() string {
	switch f {
	case FormatRGBA8888:
		return "RGBA_8888"
	case FormatRGBA4444:
		return "RGBA_4444"
	case FormatBGRA8888:
		return "BGRA_8888"
	case FormatAlpha8:
		return "ALPHA_8"
	case FormatLuminance8:
		return "LUMINANCE_8"
	case FormatRGB565:
		return "RGB_565"
	case FormatRed8:
		return "RED_8"
	default:
		return fmt.Sprintf("Unknown(%d)", f)
	}
}

// BitsPerPixel returns the storage size of one pixel.
func (f Format) BitsPerPixel() int {
	switch f {
	case FormatRGBA8888, FormatBGRA8888:
		return 32
	case FormatRGBA4444, FormatRGB565:
		return 16
	case FormatAlpha8, FormatLuminance8, FormatRed8:
		return 8
	default:
		return 32
	}
}

// BytesPerPixel returns BitsPerPixel / 8.
func (f Format) BytesPerPixel() int {
	return f.BitsPerPixel() / 8
}

// ToWGPUFormat maps f to the texture format used for HAL backings.
// Packed 16-bit formats have no WebGPU equivalent and report false.
func (f Format) ToWGPUFormat() (gputypes.TextureFormat, bool) {
	switch f {
	case FormatRGBA8888:
		return gputypes.TextureFormatRGBA8Unorm, true
	case FormatBGRA8888:
		return gputypes.TextureFormatBGRA8Unorm, true
	case FormatAlpha8, FormatLuminance8, FormatRed8:
		return gputypes.TextureFormatR8Unorm, true
	default:
		return gputypes.TextureFormatUndefined, false
	}
}

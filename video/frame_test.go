package video

import (
	"testing"
	"time"

	"github.com/gogpu/compositor/geometry"
	"github.com/gogpu/compositor/gpucore"
	"github.com/gogpu/compositor/texture"
)

func TestPlaneSize(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		plane  int
		coded  geometry.Size
		want   geometry.Size
	}{
		{"YV12 Y", FormatYV12, PlaneY, geometry.Sz(4, 4), geometry.Sz(4, 4)},
		{"YV12 U", FormatYV12, PlaneU, geometry.Sz(4, 4), geometry.Sz(2, 2)},
		{"YV12 odd Y", FormatYV12, PlaneY, geometry.Sz(5, 3), geometry.Sz(6, 4)},
		{"YV12 odd V", FormatYV12, PlaneV, geometry.Sz(5, 3), geometry.Sz(3, 2)},
		{"YV16 U", FormatYV16, PlaneU, geometry.Sz(8, 6), geometry.Sz(4, 6)},
		{"YV24 V", FormatYV24, PlaneV, geometry.Sz(8, 6), geometry.Sz(8, 6)},
		{"YV12A A", FormatYV12A, PlaneA, geometry.Sz(8, 6), geometry.Sz(8, 6)},
		{"NV12 UV", FormatNV12, PlaneUV, geometry.Sz(8, 6), geometry.Sz(8, 3)},
		{"ARGB", FormatARGB, 0, geometry.Sz(3, 3), geometry.Sz(12, 3)},
		{"ARGB plane 1", FormatARGB, 1, geometry.Sz(3, 3), geometry.Size{}},
		{"I420 plane 3", FormatI420, PlaneA, geometry.Sz(4, 4), geometry.Size{}},
		{"unknown", FormatUnknown, 0, geometry.Sz(4, 4), geometry.Size{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PlaneSize(tt.format, tt.plane, tt.coded); got != tt.want {
				t.Errorf("PlaneSize(%v, %d, %v) = %v, want %v", tt.format, tt.plane, tt.coded, got, tt.want)
			}
		})
	}
}

func TestFormatPlanes(t *testing.T) {
	tests := []struct {
		format Format
		planes int
		yuv    bool
	}{
		{FormatUnknown, 0, false},
		{FormatYV12, 3, true},
		{FormatYV16, 3, true},
		{FormatYV12A, 4, true},
		{FormatYV24, 3, true},
		{FormatI420, 3, true},
		{FormatNV12, 2, true},
		{FormatARGB, 1, false},
		{FormatXRGB, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			if got := tt.format.NumPlanes(); got != tt.planes {
				t.Errorf("NumPlanes() = %d, want %d", got, tt.planes)
			}
			if got := tt.format.IsYUVPlanar(); got != tt.yuv {
				t.Errorf("IsYUVPlanar() = %v, want %v", got, tt.yuv)
			}
		})
	}
}

func TestNewFrame(t *testing.T) {
	f := NewFrame(FormatYV12, geometry.Sz(5, 3), 40*time.Millisecond)
	if !f.IsMappable() || f.HasTextures() {
		t.Fatalf("IsMappable=%v HasTextures=%v, want mappable frame", f.IsMappable(), f.HasTextures())
	}
	if len(f.Data) != 3 || len(f.Stride) != 3 {
		t.Fatalf("planes = %d/%d, want 3", len(f.Data), len(f.Stride))
	}
	if f.Stride[PlaneY] != 6 || len(f.Data[PlaneY]) != 24 {
		t.Errorf("Y plane stride %d len %d, want 6 and 24", f.Stride[PlaneY], len(f.Data[PlaneY]))
	}
	if f.Stride[PlaneU] != 3 || len(f.Data[PlaneU]) != 6 {
		t.Errorf("U plane stride %d len %d, want 3 and 6", f.Stride[PlaneU], len(f.Data[PlaneU]))
	}
}

// recordingClient records the order of sync token calls.
type recordingClient struct {
	calls []string
	waits []gpucore.SyncToken
	next  gpucore.SyncToken
}

func (c *recordingClient) InsertSyncToken() gpucore.SyncToken {
	c.calls = append(c.calls, "insert")
	return c.next
}

func (c *recordingClient) WaitSyncToken(token gpucore.SyncToken) {
	c.calls = append(c.calls, "wait")
	c.waits = append(c.waits, token)
}

func TestUpdateReleaseSyncToken(t *testing.T) {
	f := WrapTextures(FormatARGB, []MailboxHolder{{Target: texture.Target2D}}, geometry.Sz(4, 4), 0)

	c := &recordingClient{next: 3}
	if got := f.UpdateReleaseSyncToken(c); got != 3 {
		t.Fatalf("first token = %d, want 3", got)
	}
	if len(c.waits) != 0 {
		t.Errorf("first update waited on %v, want no wait", c.waits)
	}

	c = &recordingClient{next: 9}
	if got := f.UpdateReleaseSyncToken(c); got != 9 {
		t.Fatalf("second token = %d, want 9", got)
	}
	if len(c.calls) != 2 || c.calls[0] != "wait" || c.calls[1] != "insert" {
		t.Errorf("calls = %v, want [wait insert]", c.calls)
	}
	if len(c.waits) != 1 || c.waits[0] != 3 {
		t.Errorf("waits = %v, want [3]", c.waits)
	}
	if got := f.ReleaseSyncToken(); got != 9 {
		t.Errorf("ReleaseSyncToken() = %d, want 9", got)
	}
}

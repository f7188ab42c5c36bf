package video

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/gogpu/compositor/geometry"
	"github.com/gogpu/compositor/gpucore"
	"github.com/gogpu/compositor/resource"
	"github.com/gogpu/compositor/texture"
)

func newTestUpdater(t *testing.T, regCfg resource.Config, cfg Config) (*Updater, *resource.Registry) {
	t.Helper()
	reg := resource.New(resource.NewBitmapAllocator(), regCfg)
	t.Cleanup(reg.Close)
	return NewUpdater(reg, cfg), reg
}

func release(ext ExternalResources, token gpucore.SyncToken) {
	for _, cb := range ext.ReleaseCallbacks {
		cb(token, false)
	}
}

func TestConvertYUVPlanes(t *testing.T) {
	u, reg := newTestUpdater(t, resource.Config{}, Config{})
	f := NewFrame(FormatYV12, geometry.Sz(8, 6), time.Second)

	ext := u.Convert(f)
	if ext.Type != TypeYUV {
		t.Fatalf("Type = %v, want YUV", ext.Type)
	}
	if len(ext.Resources) != 3 || len(ext.Mailboxes) != 3 || len(ext.ReleaseCallbacks) != 3 {
		t.Fatalf("got %d resources, %d mailboxes, %d callbacks, want 3 each",
			len(ext.Resources), len(ext.Mailboxes), len(ext.ReleaseCallbacks))
	}
	wantSizes := []geometry.Size{geometry.Sz(8, 6), geometry.Sz(4, 3), geometry.Sz(4, 3)}
	for i, mb := range ext.Mailboxes {
		if mb.Size != wantSizes[i] {
			t.Errorf("plane %d size = %v, want %v", i, mb.Size, wantSizes[i])
		}
		if mb.Target != texture.Target2D {
			t.Errorf("plane %d target = %v, want 2D", i, mb.Target)
		}
		if mb.Mailbox.IsZero() {
			t.Errorf("plane %d has no mailbox", i)
		}
		if got := reg.RefCount(ext.Resources[i]); got != 1 {
			t.Errorf("plane %d refs = %d, want 1", i, got)
		}
	}
	if ext.ReadLockFencesEnabled {
		t.Error("software planes enabled read lock fences")
	}
}

func TestConvertSameFrameReusesResources(t *testing.T) {
	u, reg := newTestUpdater(t, resource.Config{}, Config{})
	f := NewFrame(FormatI420, geometry.Sz(4, 4), 0)

	first := u.Convert(f)
	second := u.Convert(f)
	if !slices.Equal(first.Resources, second.Resources) {
		t.Errorf("resources = %v then %v, want identical", first.Resources, second.Resources)
	}
	if got := u.PoolSize(); got != 3 {
		t.Errorf("PoolSize() = %d, want 3", got)
	}
	if got := reg.RefCount(first.Resources[0]); got != 2 {
		t.Errorf("refs = %d, want 2", got)
	}

	release(first, gpucore.NoSyncToken)
	release(second, gpucore.NoSyncToken)
	if got := reg.RefCount(first.Resources[0]); got != 0 {
		t.Errorf("refs after release = %d, want 0", got)
	}
}

func TestConvertRecyclesReleasedResources(t *testing.T) {
	u, _ := newTestUpdater(t, resource.Config{}, Config{})

	a := u.Convert(NewFrame(FormatYV12, geometry.Sz(4, 4), 0))
	release(a, gpucore.NoSyncToken)

	b := u.Convert(NewFrame(FormatYV12, geometry.Sz(4, 4), time.Millisecond))
	if b.Type != TypeYUV {
		t.Fatalf("Type = %v, want YUV", b.Type)
	}
	if !slices.Equal(a.Resources, b.Resources) {
		t.Errorf("resources = %v, want recycled %v", b.Resources, a.Resources)
	}
	if got := u.PoolSize(); got != 3 {
		t.Errorf("PoolSize() = %d, want 3", got)
	}
}

func TestConvertWaitsForReleaseFence(t *testing.T) {
	u, reg := newTestUpdater(t, resource.Config{}, Config{})

	a := u.Convert(NewFrame(FormatYV12, geometry.Sz(4, 4), 0))
	release(a, 5)

	b := u.Convert(NewFrame(FormatYV12, geometry.Sz(4, 4), time.Millisecond))
	for _, id := range b.Resources {
		if slices.Contains(a.Resources, id) {
			t.Fatalf("resource %d reused before its fence signalled", id)
		}
	}
	release(b, gpucore.NoSyncToken)

	reg.SignalFence(5)
	c := u.Convert(NewFrame(FormatYV12, geometry.Sz(4, 4), 2*time.Millisecond))
	if got := u.PoolSize(); got != 6 {
		t.Errorf("PoolSize() = %d, want 6", got)
	}
	if len(c.Resources) != 3 {
		t.Fatalf("got %d resources, want 3", len(c.Resources))
	}
}

func TestConvertOversizedFrame(t *testing.T) {
	u, reg := newTestUpdater(t, resource.Config{}, Config{MaxTextureSize: 8})

	ext := u.Convert(NewFrame(FormatYV12, geometry.Sz(16, 16), 0))
	if ext.Type != TypeNone || len(ext.Resources) != 0 {
		t.Errorf("got %v with %d resources, want empty result", ext.Type, len(ext.Resources))
	}
	if reg.Len() != 0 {
		t.Errorf("registry holds %d resources, want 0", reg.Len())
	}
}

func TestConvertRollsBackPartialAllocation(t *testing.T) {
	// Room for the Y and U planes of a 4x4 frame, not V.
	u, reg := newTestUpdater(t, resource.Config{MemoryBudget: 20}, Config{})

	ext := u.Convert(NewFrame(FormatYV12, geometry.Sz(4, 4), 0))
	if ext.Type != TypeNone {
		t.Fatalf("Type = %v, want None", ext.Type)
	}
	if got := u.PoolSize(); got != 2 {
		t.Fatalf("PoolSize() = %d, want 2", got)
	}
	u.mu.Lock()
	ids := []gpucore.ResourceID{u.pool[0].id, u.pool[1].id}
	u.mu.Unlock()
	for _, id := range ids {
		if got := reg.RefCount(id); got != 0 {
			t.Errorf("resource %d refs = %d after rollback, want 0", id, got)
		}
	}
}

func TestRecycleLostResource(t *testing.T) {
	u, reg := newTestUpdater(t, resource.Config{}, Config{})
	ext := u.Convert(NewFrame(FormatYV12, geometry.Sz(4, 4), 0))

	ext.ReleaseCallbacks[0](gpucore.NoSyncToken, true)
	if reg.Contains(ext.Resources[0]) {
		t.Error("lost resource still registered")
	}
	if got := u.PoolSize(); got != 2 {
		t.Errorf("PoolSize() = %d, want 2", got)
	}
}

func TestConvertSoftware(t *testing.T) {
	u, reg := newTestUpdater(t, resource.Config{}, Config{Software: true})
	f := NewFrame(FormatYV24, geometry.Sz(2, 2), 0)
	fill(f.Data[PlaneY], 255)
	fill(f.Data[PlaneU], 128)
	fill(f.Data[PlaneV], 128)

	ext := u.Convert(f)
	if ext.Type != TypeSoftwareResource {
		t.Fatalf("Type = %v, want SoftwareResource", ext.Type)
	}
	if len(ext.SoftwareResources) != 1 || ext.SoftwareRelease == nil {
		t.Fatalf("got %d software resources, release=%v", len(ext.SoftwareResources), ext.SoftwareRelease != nil)
	}
	id := ext.SoftwareResources[0]
	bm, err := reg.Bitmap(id)
	if err != nil {
		t.Fatalf("Bitmap: %v", err)
	}
	if bm.Size() != geometry.Sz(2, 2) {
		t.Errorf("bitmap size = %v, want 2x2", bm.Size())
	}
	for i, b := range bm.Pixels() {
		if b != 255 {
			t.Fatalf("pixel byte %d = %d, want 255", i, b)
		}
	}

	ext.SoftwareRelease(gpucore.NoSyncToken, false)
	if got := reg.RefCount(id); got != 0 {
		t.Errorf("refs after release = %d, want 0", got)
	}

	// A bitmap still shown by the output device is not overwritten.
	if err := reg.SetInUseByConsumer(id, true); err != nil {
		t.Fatal(err)
	}
	next := u.Convert(NewFrame(FormatYV24, geometry.Sz(2, 2), time.Millisecond))
	if next.Type != TypeSoftwareResource {
		t.Fatalf("Type = %v, want SoftwareResource", next.Type)
	}
	if next.SoftwareResources[0] == id {
		t.Error("resource in use by consumer was recycled")
	}
}

func TestConvertUnsupported(t *testing.T) {
	u, _ := newTestUpdater(t, resource.Config{}, Config{})
	if ext := u.Convert(nil); ext.Type != TypeNone {
		t.Errorf("nil frame Type = %v, want None", ext.Type)
	}
	if ext := u.Convert(NewFrame(FormatARGB, geometry.Sz(4, 4), 0)); ext.Type != TypeNone {
		t.Errorf("ARGB software frame Type = %v, want None", ext.Type)
	}
	if ext := u.Convert(&Frame{Format: FormatYV12, CodedSize: geometry.Sz(4, 4)}); ext.Type != TypeNone {
		t.Errorf("frame without planes Type = %v, want None", ext.Type)
	}
}

func TestConvertHardware(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		target texture.Target
		planes int
		want   ResourceType
	}{
		{"ARGB 2D", FormatARGB, texture.Target2D, 1, TypeRGBA},
		{"XRGB 2D", FormatXRGB, texture.Target2D, 1, TypeRGB},
		{"ARGB external", FormatARGB, texture.TargetExternal, 1, TypeStreamTexture},
		{"ARGB rectangle", FormatARGB, texture.TargetRectangle, 1, TypeIOSurface},
		{"I420", FormatI420, texture.Target2D, 3, TypeYUV},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, _ := newTestUpdater(t, resource.Config{}, Config{})
			holders := make([]MailboxHolder, tt.planes)
			for i := range holders {
				holders[i] = MailboxHolder{Target: tt.target, SyncToken: gpucore.SyncToken(i + 1)}
				holders[i].Mailbox[0] = byte(i + 1)
			}
			f := WrapTextures(tt.format, holders, geometry.Sz(16, 8), 0)
			f.AllowOverlay = true

			ext := u.Convert(f)
			if ext.Type != tt.want {
				t.Fatalf("Type = %v, want %v", ext.Type, tt.want)
			}
			if !ext.ReadLockFencesEnabled {
				t.Error("ReadLockFencesEnabled = false, want true")
			}
			if len(ext.Mailboxes) != tt.planes || len(ext.ReleaseCallbacks) != tt.planes {
				t.Fatalf("got %d mailboxes, %d callbacks, want %d", len(ext.Mailboxes), len(ext.ReleaseCallbacks), tt.planes)
			}
			for i, mb := range ext.Mailboxes {
				if mb.Mailbox != holders[i].Mailbox || mb.SyncToken != holders[i].SyncToken {
					t.Errorf("mailbox %d = %+v, want holder %+v", i, mb, holders[i])
				}
				if mb.Size != geometry.Sz(16, 8) || !mb.AllowOverlay {
					t.Errorf("mailbox %d size %v overlay %v", i, mb.Size, mb.AllowOverlay)
				}
			}
			if len(ext.Resources) != 0 || u.PoolSize() != 0 {
				t.Error("hardware frame allocated pooled resources")
			}
		})
	}
}

func TestConvertHardwareUnsupported(t *testing.T) {
	u, _ := newTestUpdater(t, resource.Config{}, Config{})
	yv12 := WrapTextures(FormatYV12, []MailboxHolder{{Target: texture.Target2D}}, geometry.Sz(4, 4), 0)
	if ext := u.Convert(yv12); ext.Type != TypeNone || len(ext.Mailboxes) != 0 {
		t.Errorf("YV12 texture frame = %v with %d mailboxes, want None", ext.Type, len(ext.Mailboxes))
	}

	cube := WrapTextures(FormatARGB, []MailboxHolder{{Target: texture.TargetCubeMap}}, geometry.Sz(4, 4), 0)
	if ext := u.Convert(cube); ext.Type != TypeNone || ext.ReadLockFencesEnabled {
		t.Errorf("cube map frame = %+v, want empty result", ext)
	}

	sw, _ := newTestUpdater(t, resource.Config{}, Config{Software: true})
	argb := WrapTextures(FormatARGB, []MailboxHolder{{Target: texture.Target2D}}, geometry.Sz(4, 4), 0)
	if ext := sw.Convert(argb); ext.Type != TypeNone || ext.ReadLockFencesEnabled {
		t.Errorf("software compositor converted texture frame: %+v", ext)
	}
}

// fakeFences issues increasing tokens.
type fakeFences struct {
	next gpucore.SyncToken
}

func (f *fakeFences) Insert() (gpucore.SyncToken, error) {
	f.next++
	return f.next, nil
}

func TestHardwareReleaseUpdatesFrameToken(t *testing.T) {
	fences := &fakeFences{next: 100}
	u, _ := newTestUpdater(t, resource.Config{}, Config{Fences: fences})
	f := WrapTextures(FormatARGB, []MailboxHolder{{Target: texture.Target2D}}, geometry.Sz(4, 4), 0)

	ext := u.Convert(f)
	ext.ReleaseCallbacks[0](7, false)
	if got := f.ReleaseSyncToken(); got != 7 {
		t.Fatalf("release token = %d, want consumer token 7", got)
	}

	ext = u.Convert(f)
	ext.ReleaseCallbacks[0](gpucore.NoSyncToken, false)
	if got := f.ReleaseSyncToken(); got != 101 {
		t.Errorf("release token = %d, want inserted 101", got)
	}

	ext = u.Convert(f)
	ext.ReleaseCallbacks[0](50, true)
	if got := f.ReleaseSyncToken(); got != 101 {
		t.Errorf("lost release changed token to %d", got)
	}
}

// stalledFences issues tokens the GPU never reaches. Wait blocks until
// the test ends.
type stalledFences struct {
	fakeFences
	block chan struct{}
}

func (f *stalledFences) Wait(context.Context, gpucore.SyncToken) error {
	<-f.block
	return nil
}

func TestHardwareReleaseNeverBlocks(t *testing.T) {
	fences := &stalledFences{fakeFences: fakeFences{next: 10}, block: make(chan struct{})}
	defer close(fences.block)
	u, _ := newTestUpdater(t, resource.Config{}, Config{Fences: fences})
	f := WrapTextures(FormatARGB, []MailboxHolder{{Target: texture.Target2D}}, geometry.Sz(4, 4), 0)

	done := make(chan struct{})
	go func() {
		defer close(done)
		ext := u.Convert(f)
		ext.ReleaseCallbacks[0](30, false)
		ext = u.Convert(f)
		ext.ReleaseCallbacks[0](20, false)
		ext = u.Convert(f)
		ext.ReleaseCallbacks[0](gpucore.NoSyncToken, false)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("release callback blocked on an unsignalled fence")
	}
	// 20 arrived after 30 was pending, and the inserted 11 after both: the
	// frame must stay behind the newest of them.
	if got := f.ReleaseSyncToken(); got != 30 {
		t.Errorf("release token = %d, want 30", got)
	}
}

func TestConvertYUVExposesProgram(t *testing.T) {
	if _, err := compileWGSL(YUVShaderSource()); err != nil {
		t.Skipf("shader compiler unavailable: %v", err)
	}
	programs := NewPrograms(createNoopDevice(t))
	t.Cleanup(programs.Destroy)
	u, _ := newTestUpdater(t, resource.Config{}, Config{Programs: programs})

	ext := u.Convert(NewFrame(FormatYV12, geometry.Sz(8, 6), 0))
	if ext.Type != TypeYUV {
		t.Fatalf("Type = %v, want YUV", ext.Type)
	}
	if ext.Program == nil || ext.Program.Module == nil || ext.Program.Layout == nil {
		t.Fatalf("Program = %+v, want a built module and layout", ext.Program)
	}
	module, layout, _ := programs.YUV()
	if ext.Program.Module != module || ext.Program.Layout != layout {
		t.Error("Program differs from the cached YUV program")
	}
}

func TestConvertYUVWithoutProgram(t *testing.T) {
	u, _ := newTestUpdater(t, resource.Config{}, Config{Programs: NewPrograms(nil)})
	for range 2 {
		ext := u.Convert(NewFrame(FormatYV12, geometry.Sz(8, 6), 0))
		if ext.Type != TypeYUV || ext.Program != nil {
			t.Errorf("Type = %v, Program = %v, want YUV without a program", ext.Type, ext.Program)
		}
	}
}

func TestLostReleaseAfterClose(t *testing.T) {
	u, reg := newTestUpdater(t, resource.Config{}, Config{})
	held := u.Convert(NewFrame(FormatYV12, geometry.Sz(4, 4), 0))
	u.Close()
	for _, id := range held.Resources {
		if !reg.Contains(id) {
			t.Fatalf("referenced resource %d deleted by Close", id)
		}
	}
	for _, cb := range held.ReleaseCallbacks {
		cb(gpucore.NoSyncToken, true)
	}
	if reg.Len() != 0 {
		t.Errorf("registry holds %d resources after lost releases, want 0", reg.Len())
	}
}

func TestUpdaterClose(t *testing.T) {
	u, reg := newTestUpdater(t, resource.Config{}, Config{})
	held := u.Convert(NewFrame(FormatYV12, geometry.Sz(4, 4), 0))
	idle := u.Convert(NewFrame(FormatYV12, geometry.Sz(4, 4), time.Millisecond))
	release(idle, gpucore.NoSyncToken)

	u.Close()
	if got := u.PoolSize(); got != 0 {
		t.Errorf("PoolSize() = %d after Close, want 0", got)
	}
	for _, id := range idle.Resources {
		if reg.Contains(id) {
			t.Errorf("idle resource %d survived Close", id)
		}
	}
	for _, id := range held.Resources {
		if !reg.Contains(id) {
			t.Errorf("referenced resource %d deleted by Close", id)
		}
	}

	release(held, gpucore.NoSyncToken)
	if reg.Len() != 0 {
		t.Errorf("registry holds %d resources, want 0", reg.Len())
	}
	if ext := u.Convert(NewFrame(FormatYV12, geometry.Sz(4, 4), 0)); ext.Type != TypeNone {
		t.Errorf("Convert after Close Type = %v, want None", ext.Type)
	}
}

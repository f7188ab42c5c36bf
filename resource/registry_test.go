package resource

import (
	"bytes"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/gogpu/compositor/geometry"
	"github.com/gogpu/compositor/gpucore"
)

// fakeAllocator counts allocations and frees of texture backings.
type fakeAllocator struct {
	allocated atomic.Int32
	freed     atomic.Int32
	fail      error
}

func (a *fakeAllocator) Allocate(Descriptor) (Backing, error) {
	if a.fail != nil {
		return nil, a.fail
	}
	a.allocated.Add(1)
	return &fakeBacking{alloc: a}, nil
}

type fakeBacking struct {
	alloc  *fakeAllocator
	writes int
}

func (*fakeBacking) Kind() Kind { return KindTexture }

func (b *fakeBacking) Write(geometry.Rect, []byte, int) error {
	b.writes++
	return nil
}

func (b *fakeBacking) Free() { b.alloc.freed.Add(1) }

func mustAllocate(t *testing.T, r *Registry, hint Hint) gpucore.ResourceID {
	t.Helper()
	id, err := r.Allocate(geometry.Sz(4, 4), gpucore.FormatRGBA8888, hint)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	return id
}

func TestAllocate(t *testing.T) {
	r := New(NewBitmapAllocator(), Config{MaxTextureSize: 64})
	id := mustAllocate(t, r, HintOverlay)
	if !id.IsValid() {
		t.Fatal("Allocate returned invalid id")
	}
	info, err := r.Info(id)
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info.Kind != KindBitmap || info.Size != geometry.Sz(4, 4) || info.RefCount != 0 {
		t.Errorf("Info = %+v", info)
	}
	if !r.AllowOverlay(id) {
		t.Error("AllowOverlay = false for HintOverlay resource")
	}
	if got := r.Stats().UsedBytes; got != 64 {
		t.Errorf("UsedBytes = %d, want 64", got)
	}

	tests := []struct {
		name string
		size geometry.Size
	}{
		{"empty", geometry.Sz(0, 4)},
		{"negative", geometry.Sz(-1, 4)},
		{"too wide", geometry.Sz(65, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := r.Allocate(tt.size, gpucore.FormatRGBA8888, HintDefault); !errors.Is(err, ErrSizeMismatch) {
				t.Errorf("Allocate(%v) error = %v, want ErrSizeMismatch", tt.size, err)
			}
		})
	}
}

func TestAllocateOutOfMemory(t *testing.T) {
	r := New(NewBitmapAllocator(), Config{MemoryBudget: 100})
	mustAllocate(t, r, HintDefault) // 64 bytes
	if _, err := r.Allocate(geometry.Sz(4, 4), gpucore.FormatRGBA8888, HintDefault); !errors.Is(err, ErrOutOfMemory) {
		t.Errorf("over-budget Allocate error = %v, want ErrOutOfMemory", err)
	}

	fa := &fakeAllocator{fail: errors.New("device full")}
	r2 := New(fa, Config{})
	if _, err := r2.Allocate(geometry.Sz(4, 4), gpucore.FormatRGBA8888, HintDefault); !errors.Is(err, ErrOutOfMemory) {
		t.Errorf("failing allocator error = %v, want ErrOutOfMemory", err)
	}
	if r2.Stats().UsedBytes != 0 {
		t.Error("failed allocation leaked budget")
	}
}

func TestExportMailboxIdempotent(t *testing.T) {
	r := New(NewBitmapAllocator(), Config{})
	a := mustAllocate(t, r, HintDefault)
	b := mustAllocate(t, r, HintDefault)

	m1, err := r.ExportMailbox(a)
	if err != nil {
		t.Fatal(err)
	}
	m2, _ := r.ExportMailbox(a)
	other, _ := r.ExportMailbox(b)
	if m1.IsZero() {
		t.Error("mailbox is zero")
	}
	if m1 != m2 {
		t.Error("ExportMailbox is not idempotent")
	}
	if m1 == other {
		t.Error("two resources share a mailbox")
	}
	if _, err := r.ExportMailbox(999); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown id error = %v, want ErrNotFound", err)
	}
}

func TestCopyInto(t *testing.T) {
	r := New(NewBitmapAllocator(), Config{})
	id, err := r.Allocate(geometry.Sz(4, 2), gpucore.FormatLuminance8, HintDefault)
	if err != nil {
		t.Fatal(err)
	}

	// Two rows of two pixels with a padded stride of 3.
	src := []byte{1, 2, 0, 3, 4}
	if err := r.CopyInto(id, src, 3, geometry.R(1, 0, 2, 2)); err != nil {
		t.Fatalf("CopyInto: %v", err)
	}
	bm, err := r.Bitmap(id)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0, 1, 2, 0, 0, 3, 4, 0}
	if !bytes.Equal(bm.Pixels(), want) {
		t.Errorf("pixels = %v, want %v", bm.Pixels(), want)
	}

	tests := []struct {
		name   string
		pixels []byte
		stride int
		region geometry.Rect
	}{
		{"outside", make([]byte, 16), 4, geometry.R(2, 0, 4, 2)},
		{"empty region", make([]byte, 16), 4, geometry.Rect{}},
		{"short buffer", make([]byte, 5), 4, geometry.R(0, 0, 4, 2)},
		{"stride too small", make([]byte, 16), 2, geometry.R(0, 0, 4, 2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := r.CopyInto(id, tt.pixels, tt.stride, tt.region); !errors.Is(err, ErrSizeMismatch) {
				t.Errorf("CopyInto error = %v, want ErrSizeMismatch", err)
			}
		})
	}
}

func TestRefCountConservation(t *testing.T) {
	r := New(NewBitmapAllocator(), Config{})
	id := mustAllocate(t, r, HintDefault)

	for range 3 {
		if err := r.MarkInUse(id); err != nil {
			t.Fatal(err)
		}
	}

	var order []int
	var mu sync.Mutex
	record := func(n int) func() {
		return func() {
			mu.Lock()
			order = append(order, n)
			mu.Unlock()
		}
	}

	if err := r.MarkReleased(id, 5, record(1)); err != nil {
		t.Fatal(err)
	}
	if got := r.FenceState(id); got != (FenceState{Kind: PendingFence, New: 5}) {
		t.Errorf("after first release: %v", got)
	}
	if err := r.MarkReleased(id, 7, record(2)); err != nil {
		t.Fatal(err)
	}
	if got := r.FenceState(id); got != (FenceState{Kind: Superseded, Old: 5, New: 7}) {
		t.Errorf("after second release: %v", got)
	}
	// Unfenced, but queued behind the fenced releases.
	if err := r.MarkReleased(id, gpucore.NoSyncToken, record(3)); err != nil {
		t.Fatal(err)
	}
	if got := r.RefCount(id); got != 3 {
		t.Fatalf("RefCount before any fence = %d, want 3", got)
	}

	r.SignalFence(5)
	if got := r.RefCount(id); got != 2 {
		t.Errorf("RefCount after fence 5 = %d, want 2", got)
	}
	if got := r.FenceState(id); got != (FenceState{Kind: PendingFence, New: 7}) {
		t.Errorf("after fence 5: %v", got)
	}

	r.SignalFence(7)
	if got := r.RefCount(id); got != 0 {
		t.Errorf("RefCount after fence 7 = %d, want 0", got)
	}
	if got := r.FenceState(id); got.Kind != NoFence {
		t.Errorf("after fence 7: %v", got)
	}
	if want := []int{1, 2, 3}; !slicesEqual(order, want) {
		t.Errorf("callback order = %v, want %v", order, want)
	}

	if err := r.MarkReleased(id, 0, nil); !errors.Is(err, ErrNotInUse) {
		t.Errorf("over-release error = %v, want ErrNotInUse", err)
	}
}

func TestSignalledTokenReleasesImmediately(t *testing.T) {
	r := New(NewBitmapAllocator(), Config{})
	id := mustAllocate(t, r, HintDefault)
	r.SignalFence(10)
	_ = r.MarkInUse(id)
	if err := r.MarkReleased(id, 4, nil); err != nil {
		t.Fatal(err)
	}
	if got := r.RefCount(id); got != 0 {
		t.Errorf("RefCount = %d, want 0 for an already signalled token", got)
	}
	// The watermark never moves backwards.
	r.SignalFence(3)
	if got := r.Signalled(); got != 10 {
		t.Errorf("Signalled = %d, want 10", got)
	}
}

func TestDeleteRefusedWhileInUse(t *testing.T) {
	fa := &fakeAllocator{}
	r := New(fa, Config{})
	id := mustAllocate(t, r, HintDefault)
	_ = r.MarkInUse(id)

	if err := r.Delete(id); !errors.Is(err, ErrResourceStillInUse) {
		t.Fatalf("Delete error = %v, want ErrResourceStillInUse", err)
	}
	if !r.Contains(id) {
		t.Fatal("refused Delete removed the resource")
	}

	_ = r.MarkReleased(id, 1, nil)
	if err := r.Delete(id); !errors.Is(err, ErrResourceStillInUse) {
		t.Errorf("Delete with a pending fence error = %v, want ErrResourceStillInUse", err)
	}
	r.SignalFence(1)
	if err := r.Delete(id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if fa.freed.Load() != 1 {
		t.Errorf("freed = %d, want 1", fa.freed.Load())
	}
	if err := r.Delete(id); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete error = %v, want ErrNotFound", err)
	}
}

func TestDeleteAfterContextLoss(t *testing.T) {
	fa := &fakeAllocator{}
	r := New(fa, Config{})
	id := mustAllocate(t, r, HintDefault)
	r.LoseContext()
	if r.HaveContext() {
		t.Fatal("HaveContext after LoseContext")
	}
	if err := r.CopyInto(id, make([]byte, 64), 16, geometry.R(0, 0, 4, 4)); !errors.Is(err, ErrContextLost) {
		t.Errorf("CopyInto error = %v, want ErrContextLost", err)
	}
	if err := r.Delete(id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if fa.freed.Load() != 0 {
		t.Error("native texture freed after context loss")
	}
	if r.Stats().UsedBytes != 0 {
		t.Error("budget not released")
	}
	if _, err := r.Allocate(geometry.Sz(1, 1), gpucore.FormatRGBA8888, HintDefault); !errors.Is(err, ErrContextLost) {
		t.Errorf("Allocate error = %v, want ErrContextLost", err)
	}
}

func TestMarkForDeletion(t *testing.T) {
	r := New(NewBitmapAllocator(), Config{})
	id := mustAllocate(t, r, HintDefault)
	_ = r.MarkInUse(id)
	if err := r.MarkForDeletion(id); err != nil {
		t.Fatal(err)
	}
	if !r.Contains(id) {
		t.Fatal("referenced resource deleted early")
	}
	_ = r.MarkReleased(id, 2, nil)
	r.SignalFence(2)
	if r.Contains(id) {
		t.Error("resource not deleted after its last release")
	}

	idle := mustAllocate(t, r, HintDefault)
	if err := r.MarkForDeletion(idle); err != nil {
		t.Fatal(err)
	}
	if r.Contains(idle) {
		t.Error("idle resource not deleted immediately")
	}
}

func TestDropRefAndForceRelease(t *testing.T) {
	r := New(NewBitmapAllocator(), Config{})
	id := mustAllocate(t, r, HintDefault)
	_ = r.MarkInUse(id)
	_ = r.MarkInUse(id)
	if err := r.DropRef(id); err != nil {
		t.Fatal(err)
	}
	if got := r.RefCount(id); got != 1 {
		t.Errorf("RefCount after DropRef = %d, want 1", got)
	}

	called := false
	_ = r.MarkReleased(id, 9, func() { called = true })
	if err := r.ForceRelease(id); err != nil {
		t.Fatal(err)
	}
	info, _ := r.Info(id)
	if info.RefCount != 0 || info.PendingReleases != 0 || !info.Lost || info.Fence.Kind != NoFence {
		t.Errorf("after ForceRelease: %+v", info)
	}
	r.SignalFence(9)
	if called {
		t.Error("discarded release callback ran")
	}
	if err := r.DropRef(id); !errors.Is(err, ErrNotInUse) {
		t.Errorf("DropRef error = %v, want ErrNotInUse", err)
	}
}

func TestForceReleaseDeletesMarkedResource(t *testing.T) {
	r := New(NewBitmapAllocator(), Config{})
	id := mustAllocate(t, r, HintDefault)
	_ = r.MarkInUse(id)
	_ = r.MarkReleased(id, 5, nil)
	if err := r.MarkForDeletion(id); err != nil {
		t.Fatal(err)
	}
	if !r.Contains(id) {
		t.Fatal("referenced resource deleted early")
	}
	if err := r.ForceRelease(id); err != nil {
		t.Fatal(err)
	}
	if r.Contains(id) {
		t.Error("marked resource survived ForceRelease")
	}
}

// recordingTracker records tracker calls.
type recordingTracker struct {
	mu      sync.Mutex
	tracked map[gpucore.ResourceID]Descriptor
	written []geometry.Rect
	fail    error
}

func (tr *recordingTracker) Track(id gpucore.ResourceID, desc Descriptor) error {
	if tr.fail != nil {
		return tr.fail
	}
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if tr.tracked == nil {
		tr.tracked = make(map[gpucore.ResourceID]Descriptor)
	}
	tr.tracked[id] = desc
	return nil
}

func (tr *recordingTracker) Written(_ gpucore.ResourceID, region geometry.Rect) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.written = append(tr.written, region)
}

func (tr *recordingTracker) Untrack(id gpucore.ResourceID) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	delete(tr.tracked, id)
}

func (tr *recordingTracker) Renderable(id gpucore.ResourceID) bool {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	_, ok := tr.tracked[id]
	return ok
}

func TestTrackerFollowsTextures(t *testing.T) {
	tr := &recordingTracker{}
	r := New(&fakeAllocator{}, Config{Tracker: tr})
	id, err := r.Allocate(geometry.Sz(8, 8), gpucore.FormatBGRA8888, HintDefault)
	if err != nil {
		t.Fatal(err)
	}
	if got := tr.tracked[id].Format; got != gpucore.FormatBGRA8888 {
		t.Errorf("tracked format = %v, want %v", got, gpucore.FormatBGRA8888)
	}
	info, _ := r.Info(id)
	if !info.Renderable {
		t.Error("tracked texture not renderable")
	}
	if format, ok := r.Format(id); !ok || format != gpucore.FormatBGRA8888 {
		t.Errorf("Format = %v, %v", format, ok)
	}
	region := geometry.R(0, 0, 2, 2)
	if err := r.CopyInto(id, make([]byte, 16), 8, region); err != nil {
		t.Fatal(err)
	}
	if len(tr.written) != 1 || tr.written[0] != region {
		t.Errorf("written = %v, want [%v]", tr.written, region)
	}
	if err := r.Delete(id); err != nil {
		t.Fatal(err)
	}
	if len(tr.tracked) != 0 {
		t.Errorf("tracked after Delete = %d, want 0", len(tr.tracked))
	}

	_, _ = r.Allocate(geometry.Sz(8, 8), gpucore.FormatRGBA8888, HintDefault)
	r.Close()
	if len(tr.tracked) != 0 {
		t.Errorf("tracked after Close = %d, want 0", len(tr.tracked))
	}
}

func TestTrackerSkipsBitmapsAndRollsBack(t *testing.T) {
	tr := &recordingTracker{}
	r := New(NewBitmapAllocator(), Config{Tracker: tr})
	mustAllocate(t, r, HintDefault)
	if len(tr.tracked) != 0 {
		t.Error("bitmap resource tracked")
	}

	failing := &recordingTracker{fail: errors.New("no texture names")}
	alloc := &fakeAllocator{}
	r = New(alloc, Config{Tracker: failing})
	if _, err := r.Allocate(geometry.Sz(8, 8), gpucore.FormatRGBA8888, HintDefault); err == nil {
		t.Fatal("Allocate succeeded with a failing tracker")
	}
	if alloc.freed.Load() != 1 || r.Stats().UsedBytes != 0 {
		t.Errorf("freed = %d, used = %d", alloc.freed.Load(), r.Stats().UsedBytes)
	}
}

func TestConsumerFlags(t *testing.T) {
	r := New(NewBitmapAllocator(), Config{})
	id := mustAllocate(t, r, HintDefault)
	if r.AllowOverlay(id) {
		t.Error("AllowOverlay without HintOverlay")
	}
	_ = r.SetInUseByConsumer(id, true)
	_ = r.SetReadLockFence(id, true)
	if !r.InUseByConsumer(id) {
		t.Error("InUseByConsumer = false")
	}
	info, _ := r.Info(id)
	if !info.ReadLockFence {
		t.Error("ReadLockFence = false")
	}
}

func TestConcurrentSignal(t *testing.T) {
	r := New(NewBitmapAllocator(), Config{})
	ids := make([]gpucore.ResourceID, 8)
	for i := range ids {
		ids[i] = mustAllocate(t, r, HintDefault)
		for range 50 {
			_ = r.MarkInUse(ids[i])
		}
	}

	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := range 50 {
				_ = r.MarkReleased(id, gpucore.SyncToken(n+1+i), nil)
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for n := range 100 {
			r.SignalFence(gpucore.SyncToken(n))
		}
	}()
	wg.Wait()
	r.SignalFence(1000)

	for _, id := range ids {
		if got := r.RefCount(id); got != 0 {
			t.Errorf("id %d RefCount = %d, want 0", id, got)
		}
	}
}

func TestClose(t *testing.T) {
	fa := &fakeAllocator{}
	r := New(fa, Config{})
	a := mustAllocate(t, r, HintDefault)
	mustAllocate(t, r, HintDefault)
	_ = r.MarkInUse(a)
	r.Close()
	if r.Len() != 0 {
		t.Errorf("Len after Close = %d", r.Len())
	}
	if fa.freed.Load() != 2 {
		t.Errorf("freed = %d, want 2", fa.freed.Load())
	}
}

func slicesEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

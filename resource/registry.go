package resource

import (
	"crypto/rand"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/compositor/geometry"
	"github.com/gogpu/compositor/gpucore"
)

// DefaultMaxTextureSize is used when Config.MaxTextureSize is zero.
const DefaultMaxTextureSize = 8192

// Config holds registry settings.
type Config struct {
	// MemoryBudget caps the bytes held by live backings. Zero is unlimited.
	MemoryBudget uint64

	// MaxTextureSize bounds both dimensions of an allocation.
	MaxTextureSize int

	// Tracker, if set, follows every texture-kind resource from
	// allocation to deletion.
	Tracker Tracker
}

// Tracker keeps per-texture state alongside the registry. Track is called
// once a texture backing exists, Untrack when it is freed. Implementations
// must not call back into the registry.
type Tracker interface {
	Track(id gpucore.ResourceID, desc Descriptor) error
	Written(id gpucore.ResourceID, region geometry.Rect)
	Untrack(id gpucore.ResourceID)
	Renderable(id gpucore.ResourceID) bool
}

// release is one queued MarkReleased call.
type release struct {
	token gpucore.SyncToken
	done  func()
}

// resource is a registry entry.
type resource struct {
	id      gpucore.ResourceID
	desc    Descriptor
	backing Backing

	refs            atomic.Int32
	inUseByConsumer atomic.Bool

	// retireMu serializes retirement so callbacks run in FIFO order.
	retireMu sync.Mutex

	// mu guards the fields below. It is the only lock taken from the
	// fence completion goroutine besides the registry map lock.
	mu                sync.Mutex
	releases          []release
	fence             FenceState
	mailbox           gpucore.Mailbox
	readLockFence     bool
	markedForDeletion bool
	lost              bool
}

// Info is a snapshot of a resource's metadata.
type Info struct {
	ID              gpucore.ResourceID
	Kind            Kind
	Size            geometry.Size
	Format          gpucore.Format
	Hint            Hint
	Mailbox         gpucore.Mailbox
	RefCount        int
	PendingReleases int
	Fence           FenceState
	ReadLockFence   bool
	InUseByConsumer bool
	Lost            bool

	// Renderable reports whether the tracker considers the texture
	// complete enough to sample. It is false without a tracker.
	Renderable bool
}

// Registry owns the GPU resources of one compositor context.
//
// Registry is safe for concurrent use.
type Registry struct {
	alloc  Allocator
	cfg    Config
	budget memoryBudget

	nextID      atomic.Uint64
	haveContext atomic.Bool
	signalled   atomic.Uint64

	mu        sync.RWMutex
	resources map[gpucore.ResourceID]*resource
}

// New creates a registry that allocates backings from alloc.
func New(alloc Allocator, cfg Config) *Registry {
	if cfg.MaxTextureSize <= 0 {
		cfg.MaxTextureSize = DefaultMaxTextureSize
	}
	r := &Registry{
		alloc:     alloc,
		cfg:       cfg,
		resources: make(map[gpucore.ResourceID]*resource),
	}
	r.budget.budget = cfg.MemoryBudget
	r.nextID.Store(1)
	r.haveContext.Store(true)
	return r
}

// MaxTextureSize returns the largest allowed dimension.
func (r *Registry) MaxTextureSize() int { return r.cfg.MaxTextureSize }

// Allocate creates a resource with a zero reference count.
func (r *Registry) Allocate(size geometry.Size, format gpucore.Format, hint Hint) (gpucore.ResourceID, error) {
	if size.IsEmpty() {
		return gpucore.InvalidID, fmt.Errorf("%w: empty size %v", ErrSizeMismatch, size)
	}
	if size.Width > r.cfg.MaxTextureSize || size.Height > r.cfg.MaxTextureSize {
		return gpucore.InvalidID, fmt.Errorf("%w: %v exceeds max texture size %d",
			ErrSizeMismatch, size, r.cfg.MaxTextureSize)
	}
	if !r.haveContext.Load() {
		return gpucore.InvalidID, ErrContextLost
	}

	id := gpucore.ResourceID(r.nextID.Add(1) - 1)
	desc := Descriptor{
		Label:  fmt.Sprintf("resource_%d", id),
		Size:   size,
		Format: format,
		Hint:   hint,
	}
	if err := r.budget.reserve(desc.Bytes()); err != nil {
		slogger().Debug("resource: allocation over budget", "size", size, "format", format)
		return gpucore.InvalidID, err
	}
	backing, err := r.alloc.Allocate(desc)
	if err != nil {
		r.budget.release(desc.Bytes())
		return gpucore.InvalidID, fmt.Errorf("%w: %w", ErrOutOfMemory, err)
	}
	if r.tracked(backing) {
		if err := r.cfg.Tracker.Track(id, desc); err != nil {
			backing.Free()
			r.budget.release(desc.Bytes())
			return gpucore.InvalidID, fmt.Errorf("resource: track %d: %w", id, err)
		}
	}

	res := &resource{id: id, desc: desc, backing: backing}
	r.mu.Lock()
	r.resources[id] = res
	r.mu.Unlock()

	slogger().Debug("resource: allocated", "id", id, "size", size, "format", format, "kind", backing.Kind())
	return id, nil
}

func (r *Registry) tracked(b Backing) bool {
	return r.cfg.Tracker != nil && b.Kind() == KindTexture
}

func (r *Registry) lookup(id gpucore.ResourceID) (*resource, error) {
	r.mu.RLock()
	res, ok := r.resources[id]
	r.mu.RUnlock()
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	return res, nil
}

// Contains reports whether id is live.
func (r *Registry) Contains(id gpucore.ResourceID) bool {
	_, err := r.lookup(id)
	return err == nil
}

// Len returns the number of live resources.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.resources)
}

// ExportMailbox returns the resource's mailbox, generating it on first use.
// Repeated calls return the same mailbox.
func (r *Registry) ExportMailbox(id gpucore.ResourceID) (gpucore.Mailbox, error) {
	res, err := r.lookup(id)
	if err != nil {
		return gpucore.Mailbox{}, err
	}
	res.mu.Lock()
	defer res.mu.Unlock()
	if res.mailbox.IsZero() {
		if _, err := rand.Read(res.mailbox[:]); err != nil {
			return gpucore.Mailbox{}, fmt.Errorf("resource: generate mailbox: %w", err)
		}
	}
	return res.mailbox, nil
}

// CopyInto uploads pixels, laid out with stride bytes per row, into region
// of the resource.
func (r *Registry) CopyInto(id gpucore.ResourceID, pixels []byte, stride int, region geometry.Rect) error {
	res, err := r.lookup(id)
	if err != nil {
		return err
	}
	if region.IsEmpty() || !geometry.RectFromSize(res.desc.Size).Contains(region) {
		return fmt.Errorf("%w: region %v outside %v", ErrSizeMismatch, region, res.desc.Size)
	}
	row := region.Width * res.desc.Format.BytesPerPixel()
	if stride < row || len(pixels) < stride*(region.Height-1)+row {
		return fmt.Errorf("%w: %d bytes with stride %d for region %v",
			ErrSizeMismatch, len(pixels), stride, region)
	}
	if res.backing.Kind() == KindTexture && !r.haveContext.Load() {
		return ErrContextLost
	}
	if err := res.backing.Write(region, pixels, stride); err != nil {
		return err
	}
	if r.tracked(res.backing) {
		r.cfg.Tracker.Written(id, region)
	}
	return nil
}

// MarkInUse adds a reference on behalf of a consumer.
func (r *Registry) MarkInUse(id gpucore.ResourceID) error {
	res, err := r.lookup(id)
	if err != nil {
		return err
	}
	res.refs.Add(1)
	return nil
}

// MarkReleased queues the release of one reference once token has been
// signalled. done, if not nil, runs after the reference is dropped.
// A zero token releases as soon as all earlier releases have retired.
//
// A token arriving while another fence is pending supersedes it: the
// resource waits for the old fence first and then for the new one.
func (r *Registry) MarkReleased(id gpucore.ResourceID, token gpucore.SyncToken, done func()) error {
	res, err := r.lookup(id)
	if err != nil {
		return err
	}
	res.mu.Lock()
	if int(res.refs.Load())-len(res.releases) <= 0 {
		res.mu.Unlock()
		return fmt.Errorf("%w: id %d", ErrNotInUse, id)
	}
	res.releases = append(res.releases, release{token: token, done: done})
	if token.HasFence() {
		res.fence = res.fence.Add(token)
	}
	res.mu.Unlock()

	r.retire(res)
	return nil
}

// DropRef removes a reference without waiting on a fence. It rolls back a
// MarkInUse whose frame was never handed to a consumer.
func (r *Registry) DropRef(id gpucore.ResourceID) error {
	res, err := r.lookup(id)
	if err != nil {
		return err
	}
	res.mu.Lock()
	if int(res.refs.Load())-len(res.releases) <= 0 {
		res.mu.Unlock()
		return fmt.Errorf("%w: id %d", ErrNotInUse, id)
	}
	res.refs.Add(-1)
	deleteNow := res.markedForDeletion && res.refs.Load() == 0
	res.mu.Unlock()

	if deleteNow {
		return r.Delete(id)
	}
	return nil
}

// ForceRelease drops every reference of a resource whose consumer lost it.
// Queued releases are discarded without running their callbacks. A
// resource already marked for deletion is deleted.
func (r *Registry) ForceRelease(id gpucore.ResourceID) error {
	res, err := r.lookup(id)
	if err != nil {
		return err
	}
	res.mu.Lock()
	res.refs.Store(0)
	res.releases = nil
	res.fence = FenceState{}
	res.lost = true
	marked := res.markedForDeletion
	res.mu.Unlock()
	if marked {
		return r.Delete(id)
	}
	return nil
}

// SignalFence records that the GPU has passed token and retires every
// release waiting on it or an earlier token. It may be called from any
// goroutine.
func (r *Registry) SignalFence(token gpucore.SyncToken) {
	for {
		cur := r.signalled.Load()
		if uint64(token) <= cur || r.signalled.CompareAndSwap(cur, uint64(token)) {
			break
		}
	}

	r.mu.RLock()
	pending := make([]*resource, 0, len(r.resources))
	for _, res := range r.resources {
		pending = append(pending, res)
	}
	r.mu.RUnlock()

	for _, res := range pending {
		r.retire(res)
	}
}

// Signalled returns the highest token passed to SignalFence.
func (r *Registry) Signalled() gpucore.SyncToken {
	return gpucore.SyncToken(r.signalled.Load())
}

// retire drops the references of queued releases whose fence has passed,
// oldest first, stopping at the first one still waiting. Release callbacks
// must not release the same resource again.
func (r *Registry) retire(res *resource) {
	res.retireMu.Lock()
	defer res.retireMu.Unlock()
	watermark := r.Signalled()

	res.mu.Lock()
	n := 0
	for _, rel := range res.releases {
		if rel.token.HasFence() && rel.token > watermark {
			break
		}
		n++
	}
	if n == 0 {
		res.mu.Unlock()
		return
	}
	retired := res.releases[:n:n]
	res.releases = res.releases[n:]
	for _, rel := range retired {
		if rel.token.HasFence() {
			res.fence = res.fence.Retire(fencedTokens(res.releases))
		}
	}
	res.refs.Add(-int32(n)) //nolint:gosec // n is bounded by the queue length
	deleteNow := res.markedForDeletion && res.refs.Load() == 0 && len(res.releases) == 0
	id := res.id
	res.mu.Unlock()

	for _, rel := range retired {
		if rel.done != nil {
			rel.done()
		}
	}
	if deleteNow {
		_ = r.Delete(id)
	}
}

func fencedTokens(rels []release) []gpucore.SyncToken {
	var out []gpucore.SyncToken
	for _, rel := range rels {
		if rel.token.HasFence() {
			out = append(out, rel.token)
		}
	}
	return out
}

// Delete frees a resource with no references. While references remain the
// call is refused and logged. The backing's native storage is freed only
// while the context is live.
func (r *Registry) Delete(id gpucore.ResourceID) error {
	r.mu.Lock()
	res, ok := r.resources[id]
	if !ok {
		r.mu.Unlock()
		return &NotFoundError{ID: id}
	}
	res.mu.Lock()
	refs, queued := res.refs.Load(), len(res.releases)
	res.mu.Unlock()
	if refs > 0 || queued > 0 {
		r.mu.Unlock()
		slogger().Warn("resource: delete refused", "id", id, "refs", refs, "pending_releases", queued)
		return fmt.Errorf("%w: id %d has %d references", ErrResourceStillInUse, id, refs)
	}
	delete(r.resources, id)
	r.mu.Unlock()

	r.free(res)
	return nil
}

// MarkForDeletion deletes the resource now if it is unreferenced, or as
// soon as its last reference is released.
func (r *Registry) MarkForDeletion(id gpucore.ResourceID) error {
	res, err := r.lookup(id)
	if err != nil {
		return err
	}
	res.mu.Lock()
	res.markedForDeletion = true
	idle := res.refs.Load() == 0 && len(res.releases) == 0
	res.mu.Unlock()
	if idle {
		return r.Delete(id)
	}
	return nil
}

func (r *Registry) free(res *resource) {
	if r.haveContext.Load() || res.backing.Kind() == KindBitmap {
		res.backing.Free()
	}
	if r.tracked(res.backing) {
		r.cfg.Tracker.Untrack(res.id)
	}
	r.budget.release(res.desc.Bytes())
	slogger().Debug("resource: deleted", "id", res.id)
}

// LoseContext marks the GPU context as lost. Deleting texture resources
// afterwards forgets them without touching native handles.
func (r *Registry) LoseContext() {
	if r.haveContext.Swap(false) {
		slogger().Info("resource: context lost", "resources", r.Len())
	}
}

// HaveContext reports whether the GPU context is live.
func (r *Registry) HaveContext() bool { return r.haveContext.Load() }

// Close deletes every resource regardless of references.
func (r *Registry) Close() {
	r.mu.Lock()
	all := r.resources
	r.resources = make(map[gpucore.ResourceID]*resource)
	r.mu.Unlock()

	for _, res := range all {
		res.mu.Lock()
		if n := res.refs.Load(); n > 0 {
			slogger().Warn("resource: closing referenced resource", "id", res.id, "refs", n)
		}
		res.releases = nil
		res.mu.Unlock()
		r.free(res)
	}
}

// Info returns a snapshot of the resource's metadata.
func (r *Registry) Info(id gpucore.ResourceID) (Info, error) {
	res, err := r.lookup(id)
	if err != nil {
		return Info{}, err
	}
	renderable := r.tracked(res.backing) && r.cfg.Tracker.Renderable(id)
	res.mu.Lock()
	defer res.mu.Unlock()
	return Info{
		ID:              res.id,
		Kind:            res.backing.Kind(),
		Size:            res.desc.Size,
		Format:          res.desc.Format,
		Hint:            res.desc.Hint,
		Mailbox:         res.mailbox,
		RefCount:        int(res.refs.Load()),
		PendingReleases: len(res.releases),
		Fence:           res.fence,
		ReadLockFence:   res.readLockFence,
		InUseByConsumer: res.inUseByConsumer.Load(),
		Lost:            res.lost,
		Renderable:      renderable,
	}, nil
}

// RefCount returns the number of references, or 0 for an unknown id.
func (r *Registry) RefCount(id gpucore.ResourceID) int {
	res, err := r.lookup(id)
	if err != nil {
		return 0
	}
	return int(res.refs.Load())
}

// FenceState returns the fence state of a resource.
func (r *Registry) FenceState(id gpucore.ResourceID) FenceState {
	res, err := r.lookup(id)
	if err != nil {
		return FenceState{}
	}
	res.mu.Lock()
	defer res.mu.Unlock()
	return res.fence
}

// SetReadLockFence records whether consumers must fence their reads.
func (r *Registry) SetReadLockFence(id gpucore.ResourceID, enabled bool) error {
	res, err := r.lookup(id)
	if err != nil {
		return err
	}
	res.mu.Lock()
	res.readLockFence = enabled
	res.mu.Unlock()
	return nil
}

// SetInUseByConsumer records whether a display consumer (an overlay plane
// or the software output device) still scans out the resource.
func (r *Registry) SetInUseByConsumer(id gpucore.ResourceID, inUse bool) error {
	res, err := r.lookup(id)
	if err != nil {
		return err
	}
	res.inUseByConsumer.Store(inUse)
	return nil
}

// InUseByConsumer reports the flag set by SetInUseByConsumer.
func (r *Registry) InUseByConsumer(id gpucore.ResourceID) bool {
	res, err := r.lookup(id)
	if err != nil {
		return false
	}
	return res.inUseByConsumer.Load()
}

// AllowOverlay reports whether the resource was allocated with HintOverlay.
func (r *Registry) AllowOverlay(id gpucore.ResourceID) bool {
	res, err := r.lookup(id)
	if err != nil {
		return false
	}
	return res.desc.Hint.Has(HintOverlay)
}

// Format returns the pixel format of the resource.
func (r *Registry) Format(id gpucore.ResourceID) (gpucore.Format, bool) {
	res, err := r.lookup(id)
	if err != nil {
		return 0, false
	}
	return res.desc.Format, true
}

// Backing returns the storage of a resource.
func (r *Registry) Backing(id gpucore.ResourceID) (Backing, error) {
	res, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	return res.backing, nil
}

// Bitmap returns the CPU backing of a bitmap resource.
func (r *Registry) Bitmap(id gpucore.ResourceID) (*Bitmap, error) {
	b, err := r.Backing(id)
	if err != nil {
		return nil, err
	}
	bm, ok := b.(*Bitmap)
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrNotBitmap, id)
	}
	return bm, nil
}

// Stats returns memory usage statistics.
func (r *Registry) Stats() MemoryStats {
	return r.budget.stats()
}

package video

import (
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/compositor/geometry"
	"github.com/gogpu/compositor/gpucore"
	"github.com/gogpu/compositor/resource"
	"github.com/gogpu/compositor/texture"
)

// ResourceType is the kind of quad content produced for a frame.
type ResourceType uint8

// Resource types.
const (
	TypeNone ResourceType = iota
	TypeYUV
	TypeRGB
	TypeRGBA
	TypeStreamTexture
	TypeIOSurface
	TypeSoftwareResource
)

var resourceTypeNames = [...]string{
	TypeNone:             "None",
	TypeYUV:              "YUV",
	TypeRGB:              "RGB",
	TypeRGBA:             "RGBA",
	TypeStreamTexture:    "StreamTexture",
	TypeIOSurface:        "IOSurface",
	TypeSoftwareResource: "SoftwareResource",
}

func (t ResourceType) String() string {
	if int(t) < len(resourceTypeNames) {
		return resourceTypeNames[t]
	}
	return fmt.Sprintf("ResourceType(%d)", t)
}

// TextureMailbox is one texture handed to the compositor.
type TextureMailbox struct {
	Mailbox      gpucore.Mailbox
	Target       texture.Target
	SyncToken    gpucore.SyncToken
	Size         geometry.Size
	AllowOverlay bool
}

// ReleaseCallback is invoked once the compositor is done with a resource.
// token is the fence the consumer's last read was submitted behind.
type ReleaseCallback func(token gpucore.SyncToken, lostResource bool)

// ExternalResources is the output of Convert. A zero Type means the frame
// could not be converted.
type ExternalResources struct {
	Type             ResourceType
	Mailboxes        []TextureMailbox
	Resources        []gpucore.ResourceID
	ReleaseCallbacks []ReleaseCallback

	SoftwareResources []gpucore.ResourceID
	SoftwareRelease   ReleaseCallback

	// ReadLockFencesEnabled asks consumers to fence their reads of the
	// frame's textures.
	ReadLockFencesEnabled bool

	// Program samples the planes of a GPU YUV frame. It is nil in software
	// mode or when the program could not be built.
	Program *YUVProgram
}

// YUVProgram is the built YUV to RGB program.
type YUVProgram struct {
	Module hal.ShaderModule
	Layout hal.BindGroupLayout
}

// SyncFences issues GPU fences. Tokens from one source must be monotonic.
// *resource.HALFences implements it.
type SyncFences interface {
	Insert() (gpucore.SyncToken, error)
}

// Config configures an Updater.
type Config struct {
	// Software selects software compositing: frames are converted to RGBA
	// bitmaps and hardware frames are not supported.
	Software bool

	// MaxTextureSize bounds plane allocations. Zero uses the registry's.
	MaxTextureSize int

	// YUVFormat is the resource format of GPU YUV planes.
	// Zero means gpucore.FormatLuminance8.
	YUVFormat gpucore.Format

	// Fences issues release tokens for hardware frames. May be nil.
	Fences SyncFences

	// Programs, if set, is prepared on the first GPU YUV frame.
	Programs *Programs
}

// planeResource is one pooled plane texture and the content it holds.
type planeResource struct {
	id      gpucore.ResourceID
	size    geometry.Size
	format  gpucore.Format
	mailbox gpucore.Mailbox

	frame     *Frame
	plane     int
	timestamp time.Duration
}

func (p *planeResource) matches(f *Frame, plane int) bool {
	return p.frame == f && p.plane == plane && p.timestamp == f.Timestamp
}

func (p *planeResource) setUniqueID(f *Frame, plane int) {
	p.frame, p.plane, p.timestamp = f, plane, f.Timestamp
}

func (p *planeResource) clearUniqueID() { p.frame, p.plane, p.timestamp = nil, 0, 0 }

// Updater turns video frames into compositor resources, pooling plane
// textures between frames.
//
// Updater is safe for concurrent use.
type Updater struct {
	reg *resource.Registry
	cfg Config

	mu        sync.Mutex
	pool      []*planeResource
	closed    bool
	warned    bool
	uploadBuf []byte
	rgba      *image.RGBA
	uvScratch []byte
}

// NewUpdater creates an updater that allocates from reg.
func NewUpdater(reg *resource.Registry, cfg Config) *Updater {
	if cfg.YUVFormat == 0 && !cfg.Software {
		cfg.YUVFormat = gpucore.FormatLuminance8
	}
	return &Updater{reg: reg, cfg: cfg}
}

// PoolSize returns the number of pooled plane resources.
func (u *Updater) PoolSize() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.pool)
}

// Convert produces the resources that draw f.
func (u *Updater) Convert(f *Frame) ExternalResources {
	if f == nil {
		return ExternalResources{}
	}
	if f.HasTextures() {
		return u.convertHardware(f)
	}
	if f.IsMappable() {
		return u.convertSoftware(f)
	}
	return ExternalResources{}
}

func (u *Updater) maxTextureSize() int {
	if u.cfg.MaxTextureSize > 0 {
		return u.cfg.MaxTextureSize
	}
	return u.reg.MaxTextureSize()
}

func (u *Updater) convertSoftware(f *Frame) ExternalResources {
	if !f.Format.IsYUVPlanar() {
		slogger().Debug("video: unsupported software frame format", "format", f.Format)
		return ExternalResources{}
	}

	outFormat := u.cfg.YUVFormat
	outPlanes := f.Format.NumPlanes()
	if u.cfg.Software {
		outFormat = gpucore.FormatRGBA8888
		outPlanes = 1
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		return ExternalResources{}
	}

	u.dropWrongFormat(outFormat)

	maxSize := u.maxTextureSize()
	planes := make([]*planeResource, 0, outPlanes)
	for i := range outPlanes {
		size := f.CodedSize
		if !u.cfg.Software {
			size = PlaneSize(f.Format, i, f.CodedSize)
		}
		if size.IsEmpty() || size.Width > maxSize || size.Height > maxSize {
			break
		}
		p := u.recycleOrAllocate(f, i, size, outFormat)
		if p == nil {
			break
		}
		if err := u.reg.MarkInUse(p.id); err != nil {
			slogger().Warn("video: mark in use failed", "id", p.id, "err", err)
			break
		}
		planes = append(planes, p)
	}

	if len(planes) != outPlanes {
		for _, p := range planes {
			_ = u.reg.DropRef(p.id)
		}
		slogger().Debug("video: could not obtain plane resources",
			"format", f.Format, "size", f.CodedSize, "planes", len(planes), "need", outPlanes)
		return ExternalResources{}
	}

	if u.cfg.Software {
		return u.uploadSoftware(f, planes[0])
	}
	return u.uploadYUV(f, planes)
}

// dropWrongFormat deletes idle pooled resources that can no longer serve.
func (u *Updater) dropWrongFormat(format gpucore.Format) {
	kept := u.pool[:0]
	for _, p := range u.pool {
		if p.format != format && u.reg.RefCount(p.id) == 0 {
			if err := u.reg.Delete(p.id); err != nil {
				slogger().Debug("video: delete pooled resource", "id", p.id, "err", err)
			}
			continue
		}
		kept = append(kept, p)
	}
	clear(u.pool[len(kept):])
	u.pool = kept
}

// recycleOrAllocate finds a pooled resource for plane of f. A resource
// already holding the plane's content wins; otherwise the last idle
// resource of the right size and format is reused.
func (u *Updater) recycleOrAllocate(f *Frame, plane int, size geometry.Size, format gpucore.Format) *planeResource {
	var reuse *planeResource
	for _, p := range u.pool {
		if p.size != size || p.format != format {
			continue
		}
		if p.matches(f, plane) {
			return p
		}
		inUse := u.reg.RefCount(p.id) > 0 ||
			(u.cfg.Software && u.reg.InUseByConsumer(p.id))
		if !inUse {
			reuse = p
		}
	}
	if reuse != nil {
		return reuse
	}

	hint := resource.HintImmutable
	if f.AllowOverlay {
		hint |= resource.HintOverlay
	}
	id, err := u.reg.Allocate(size, format, hint)
	if err != nil {
		slogger().Debug("video: allocate plane", "size", size, "format", format, "err", err)
		return nil
	}
	p := &planeResource{id: id, size: size, format: format}
	if !u.cfg.Software {
		mb, err := u.reg.ExportMailbox(id)
		if err != nil {
			_ = u.reg.Delete(id)
			slogger().Debug("video: export mailbox", "id", id, "err", err)
			return nil
		}
		p.mailbox = mb
	}
	u.pool = append([]*planeResource{p}, u.pool...)
	return p
}

func (u *Updater) uploadSoftware(f *Frame, p *planeResource) ExternalResources {
	if !p.matches(f, 0) {
		p.clearUniqueID()
		rgba, scratch, err := toRGBA(f, u.rgba, u.uvScratch)
		u.rgba, u.uvScratch = rgba, scratch
		if err == nil {
			err = u.reg.CopyInto(p.id, rgba.Pix, rgba.Stride, geometry.RectFromSize(p.size))
		}
		if err != nil {
			_ = u.reg.DropRef(p.id)
			slogger().Warn("video: software upload failed", "frame", f, "err", err)
			return ExternalResources{}
		}
		p.setUniqueID(f, 0)
	}

	id := p.id
	return ExternalResources{
		Type:              TypeSoftwareResource,
		SoftwareResources: []gpucore.ResourceID{id},
		SoftwareRelease: func(token gpucore.SyncToken, lost bool) {
			u.RecycleResource(id, token, lost)
		},
	}
}

func (u *Updater) uploadYUV(f *Frame, planes []*planeResource) ExternalResources {
	ext := ExternalResources{Type: TypeYUV}
	for i, p := range planes {
		if !p.matches(f, i) {
			p.clearUniqueID()
			if err := u.uploadPlane(f, i, p); err != nil {
				for _, q := range planes {
					_ = u.reg.DropRef(q.id)
				}
				slogger().Warn("video: plane upload failed", "frame", f, "plane", i, "err", err)
				return ExternalResources{}
			}
			p.setUniqueID(f, i)
		}

		id := p.id
		ext.Mailboxes = append(ext.Mailboxes, TextureMailbox{
			Mailbox:      p.mailbox,
			Target:       texture.Target2D,
			Size:         p.size,
			AllowOverlay: f.AllowOverlay,
		})
		ext.Resources = append(ext.Resources, id)
		ext.ReleaseCallbacks = append(ext.ReleaseCallbacks, func(token gpucore.SyncToken, lost bool) {
			u.RecycleResource(id, token, lost)
		})
	}

	if u.cfg.Programs != nil {
		module, layout, err := u.cfg.Programs.YUV()
		switch {
		case err == nil:
			ext.Program = &YUVProgram{Module: module, Layout: layout}
		case !u.warned:
			u.warned = true
			slogger().Warn("video: yuv program unavailable", "err", err)
		}
	}
	return ext
}

// uploadPlane copies plane i of f into p. Rows are repacked when the
// frame's stride differs from the 4-byte aligned upload stride.
func (u *Updater) uploadPlane(f *Frame, plane int, p *planeResource) error {
	bpp := p.format.BytesPerPixel()
	rowBytes := bpp * p.size.Width
	stride := roundUp(rowBytes, 4)
	if plane >= len(f.Data) || plane >= len(f.Stride) {
		return fmt.Errorf("%w: plane %d missing", ErrShortPlane, plane)
	}
	src, srcStride := f.Data[plane], f.Stride[plane]
	need := srcStride*(p.size.Height-1) + rowBytes
	if srcStride < rowBytes || len(src) < need {
		return fmt.Errorf("%w: plane %d", ErrShortPlane, plane)
	}

	pixels := src
	if srcStride != stride {
		n := stride * p.size.Height
		if cap(u.uploadBuf) < n {
			u.uploadBuf = make([]byte, n)
		}
		u.uploadBuf = u.uploadBuf[:n]
		for y := range p.size.Height {
			copy(u.uploadBuf[y*stride:y*stride+rowBytes], src[y*srcStride:y*srcStride+rowBytes])
		}
		pixels = u.uploadBuf
	}
	return u.reg.CopyInto(p.id, pixels, stride, geometry.RectFromSize(p.size))
}

func (u *Updater) convertHardware(f *Frame) ExternalResources {
	if u.cfg.Software {
		return ExternalResources{}
	}
	ext := ExternalResources{ReadLockFencesEnabled: true}
	switch f.Format {
	case FormatARGB, FormatXRGB:
		switch f.Mailboxes[0].Target {
		case texture.Target2D:
			ext.Type = TypeRGBA
			if f.Format == FormatXRGB {
				ext.Type = TypeRGB
			}
		case texture.TargetExternal:
			ext.Type = TypeStreamTexture
		case texture.TargetRectangle:
			ext.Type = TypeIOSurface
		default:
			slogger().Debug("video: unsupported texture target", "target", f.Mailboxes[0].Target)
			return ExternalResources{}
		}
	case FormatI420:
		ext.Type = TypeYUV
	default:
		slogger().Warn("video: unsupported hardware frame format", "format", f.Format)
		ext.Type = TypeNone
		return ext
	}

	for _, h := range f.Mailboxes {
		ext.Mailboxes = append(ext.Mailboxes, TextureMailbox{
			Mailbox:      h.Mailbox,
			Target:       h.Target,
			SyncToken:    h.SyncToken,
			Size:         f.CodedSize,
			AllowOverlay: f.AllowOverlay,
		})
		ext.ReleaseCallbacks = append(ext.ReleaseCallbacks, u.returnTexture(f))
	}
	return ext
}

// returnTexture hands the consumer's release token back to the frame.
func (u *Updater) returnTexture(f *Frame) ReleaseCallback {
	return func(token gpucore.SyncToken, lost bool) {
		u.mu.Lock()
		closed := u.closed
		u.mu.Unlock()
		if lost || closed {
			return
		}
		f.UpdateReleaseSyncToken(&syncClient{fences: u.cfg.Fences, token: token})
	}
}

// RecycleResource returns a pooled plane resource after the consumer is
// done with it. A lost resource is deleted.
func (u *Updater) RecycleResource(id gpucore.ResourceID, token gpucore.SyncToken, lost bool) {
	u.mu.Lock()
	defer u.mu.Unlock()

	idx := -1
	for i, p := range u.pool {
		if p.id == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		if !u.closed {
			return
		}
		// Close marked the resource for deletion, so a forced release
		// deletes it.
		var err error
		if lost {
			err = u.reg.ForceRelease(id)
		} else {
			err = u.reg.MarkReleased(id, token, nil)
		}
		if err != nil {
			slogger().Debug("video: release after close", "id", id, "lost", lost, "err", err)
		}
		return
	}

	if lost {
		_ = u.reg.ForceRelease(id)
		if err := u.reg.Delete(id); err != nil {
			slogger().Debug("video: delete lost resource", "id", id, "err", err)
		}
		u.pool = append(u.pool[:idx], u.pool[idx+1:]...)
		return
	}
	if err := u.reg.MarkReleased(id, token, nil); err != nil {
		slogger().Warn("video: release pooled resource", "id", id, "err", err)
	}
}

// Close stops pooling. Idle resources are deleted now; referenced ones as
// soon as their consumers release them.
func (u *Updater) Close() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		return
	}
	u.closed = true
	for _, p := range u.pool {
		if err := u.reg.MarkForDeletion(p.id); err != nil {
			slogger().Debug("video: mark for deletion", "id", p.id, "err", err)
		}
	}
	u.pool = nil
}

// syncClient adapts SyncFences to the frame's release protocol. Tokens
// are monotonic, so a token the frame must wait on is folded into the
// inserted one instead of being waited on here.
type syncClient struct {
	fences SyncFences
	token  gpucore.SyncToken
	waited gpucore.SyncToken
}

func (c *syncClient) InsertSyncToken() gpucore.SyncToken {
	t := c.token
	if !t.HasFence() && c.fences != nil {
		var err error
		if t, err = c.fences.Insert(); err != nil {
			slogger().Warn("video: insert sync token", "err", err)
			t = gpucore.NoSyncToken
		}
	}
	return max(t, c.waited)
}

func (c *syncClient) WaitSyncToken(t gpucore.SyncToken) {
	c.waited = max(c.waited, t)
}

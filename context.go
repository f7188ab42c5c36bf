package compositor

import (
	"context"
	"fmt"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/compositor/gpucore"
	"github.com/gogpu/compositor/overlay"
	"github.com/gogpu/compositor/quad"
	"github.com/gogpu/compositor/resource"
	"github.com/gogpu/compositor/texture"
	"github.com/gogpu/compositor/video"
)

// fenceSource issues sync tokens.
type fenceSource interface {
	Insert() (gpucore.SyncToken, error)
}

// Context is the compositor state of one GPU context.
//
// Frame operations are called from one compositor goroutine. Run may
// execute concurrently to confirm GPU fences.
type Context struct {
	registry *resource.Registry
	textures *textureTracker
	video    *video.Updater
	overlays *overlay.Processor
	programs *video.Programs

	fences      fenceSource
	halFences   *resource.HALFences
	watcher     *resource.FenceWatcher
	software    bool
	frameLimits quad.Limits

	mu     sync.Mutex
	frames uint64
	closed bool

	// deferred holds frame references whose fence could not be inserted.
	// They are released behind the next token.
	deferred []gpucore.ResourceID
}

// NewContext creates a compositor context. Without WithDevice or WithHAL
// the context composites in software.
func NewContext(opts ...Option) (*Context, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	device, queue := o.device, o.queue
	if device == nil && o.provider != nil && !o.software {
		var err error
		device, queue, err = halFromProvider(o.provider)
		if err != nil {
			return nil, err
		}
	}

	c := &Context{
		software:    o.software || device == nil,
		frameLimits: o.frameLimits,
	}

	var alloc resource.Allocator
	if c.software {
		alloc = resource.NewBitmapAllocator()
		c.fences = &softwareFences{}
	} else {
		hf := resource.NewHALFences(queue)
		alloc = resource.NewHALAllocator(device, queue)
		c.halFences = hf
		c.fences = hf
		c.programs = video.NewPrograms(device)
	}

	limits := o.limits
	if o.maxTexture > 0 {
		limits.MaxTextureSize = o.maxTexture
	}
	table := texture.DefaultFormatTable(o.features)
	if o.formatTable != nil {
		table = *o.formatTable
	}
	c.textures = newTextureTracker(texture.NewManager(limits, o.features, table))

	// Every registry texture is tracked by the manager, so both share the
	// same size limit.
	c.registry = resource.New(alloc, resource.Config{
		MemoryBudget:   o.memoryBudget,
		MaxTextureSize: limits.MaxTextureSize,
		Tracker:        c.textures,
	})
	if c.halFences != nil {
		c.watcher = resource.NewFenceWatcher(c.halFences, c.registry, o.fencePoll)
	}

	c.video = video.NewUpdater(c.registry, video.Config{
		Software:       c.software,
		MaxTextureSize: limits.MaxTextureSize,
		Fences:         c.fences,
		Programs:       c.programs,
	})

	var popts []overlay.Option
	if o.strategies != nil {
		popts = append(popts, overlay.WithStrategies(o.strategies...))
	}
	c.overlays = overlay.NewProcessor(o.validator, c.registry, popts...)

	slogger().Info("compositor: context created",
		"software", c.software,
		"overlays", c.overlays.Enabled(),
		"max_texture_size", c.registry.MaxTextureSize())
	return c, nil
}

// halProvider is implemented by device providers that share their HAL
// objects.
type halProvider interface {
	HalDevice() any
	HalQueue() any
}

func halFromProvider(p gpucontext.DeviceProvider) (hal.Device, hal.Queue, error) {
	hp, ok := p.(halProvider)
	if !ok {
		return nil, nil, ErrNoHALDevice
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNoHALDevice)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrNoHALDevice)
	}
	slogger().Debug("compositor: using shared device", "surface_format", p.SurfaceFormat())
	return device, queue, nil
}

// Software reports whether the context composites in software.
func (c *Context) Software() bool { return c.software }

// Registry returns the resource registry.
func (c *Context) Registry() *resource.Registry { return c.registry }

// Textures returns the texture manager that tracks the registry's GPU
// textures. The manager is not safe for concurrent use: while Run is
// active use UseTextures instead.
func (c *Context) Textures() *texture.Manager { return c.textures.m }

// UseTextures runs fn with exclusive access to the texture manager.
func (c *Context) UseTextures(fn func(m *texture.Manager)) { c.textures.use(fn) }

// Video returns the video frame updater.
func (c *Context) Video() *video.Updater { return c.video }

// Overlays returns the overlay processor.
func (c *Context) Overlays() *overlay.Processor { return c.overlays }

// Programs returns the GPU programs, or nil in software mode.
func (c *Context) Programs() *video.Programs { return c.programs }

// FrameLimits returns the limits applied to incoming frames.
func (c *Context) FrameLimits() quad.Limits { return c.frameLimits }

// Frames returns the number of frames drawn.
func (c *Context) Frames() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frames
}

// HaveContext reports whether the GPU context is still live.
func (c *Context) HaveContext() bool { return c.registry.HaveContext() }

// LoseContext records that the GPU context is gone. Native handles are not
// touched from then on; Close still releases the bookkeeping.
func (c *Context) LoseContext() {
	if !c.registry.HaveContext() {
		return
	}
	c.registry.LoseContext()
	if c.halFences != nil {
		c.halFences.Destroy()
	}
	slogger().Info("compositor: context lost")
}

// InsertFence issues a token behind all work submitted so far. In software
// mode the token has already passed and is signalled immediately; on the
// GPU it is signalled by Run once the device reaches it. InsertFence never
// blocks.
func (c *Context) InsertFence() (gpucore.SyncToken, error) {
	token, err := c.fences.Insert()
	if err != nil {
		return gpucore.NoSyncToken, fmt.Errorf("compositor: insert fence: %w", err)
	}
	if c.watcher == nil {
		c.registry.SignalFence(token)
		return token, nil
	}
	c.watcher.Watch(token)
	return token, nil
}

// Run confirms GPU fences until ctx is cancelled. In software mode it only
// waits for ctx.
func (c *Context) Run(ctx context.Context) error {
	if c.watcher == nil {
		<-ctx.Done()
		return nil
	}
	return c.watcher.Run(ctx)
}

// Close releases every resource of the context. Resources still referenced
// by consumers are freed without waiting for them.
func (c *Context) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.video.Close()
	if c.programs != nil && c.registry.HaveContext() {
		c.programs.Destroy()
	}
	c.registry.Close()
	haveContext := c.registry.HaveContext()
	c.textures.use(func(m *texture.Manager) { m.Destroy(haveContext) })
	if c.halFences != nil {
		c.halFences.Destroy()
	}
	slogger().Info("compositor: context closed", "frames", c.frames)
}

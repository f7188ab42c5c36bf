package compositor

import (
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/compositor/overlay"
	"github.com/gogpu/compositor/quad"
	"github.com/gogpu/compositor/texture"
)

// Option configures a Context during creation.
//
// Example:
//
//	// Software compositing with single-plane overlays
//	ctx, err := compositor.NewContext(compositor.WithValidator(overlay.PlaneValidator{MaxOverlays: 1}))
//
//	// GPU compositing on a shared device
//	ctx, err := compositor.NewContext(compositor.WithDevice(app))
type Option func(*options)

// options holds the configuration collected from Options.
type options struct {
	provider gpucontext.DeviceProvider
	device   hal.Device
	queue    hal.Queue
	software bool

	validator    overlay.Validator
	strategies   []overlay.Strategy
	memoryBudget uint64
	maxTexture   int

	limits      texture.Limits
	features    texture.Features
	formatTable *texture.FormatCompatibilityTable
	frameLimits quad.Limits
	fencePoll   time.Duration
}

func defaultOptions() options {
	return options{
		limits:      texture.DefaultLimits(),
		frameLimits: quad.DefaultLimits(),
	}
}

// WithDevice composites on the GPU device of provider. The provider must
// also expose its HAL objects through HalDevice() and HalQueue(); otherwise
// NewContext fails with ErrNoHALDevice.
func WithDevice(provider gpucontext.DeviceProvider) Option {
	return func(o *options) { o.provider = provider }
}

// WithHAL composites on device and queue directly.
func WithHAL(device hal.Device, queue hal.Queue) Option {
	return func(o *options) { o.device, o.queue = device, queue }
}

// WithSoftware forces software compositing even when a device is given.
func WithSoftware() Option {
	return func(o *options) { o.software = true }
}

// WithValidator enables overlay promotion. Without a validator every frame
// is composited into the primary plane.
func WithValidator(v overlay.Validator) Option {
	return func(o *options) { o.validator = v }
}

// WithStrategies replaces the overlay strategies, tried in order.
func WithStrategies(s ...overlay.Strategy) Option {
	return func(o *options) { o.strategies = s }
}

// WithMemoryBudget caps the bytes held by registry resources. Zero is
// unlimited.
func WithMemoryBudget(bytes uint64) Option {
	return func(o *options) { o.memoryBudget = bytes }
}

// WithMaxTextureSize bounds both dimensions of every allocation. It also
// becomes the 2D size limit of the texture manager. Without it the
// manager's limit bounds allocations.
func WithMaxTextureSize(n int) Option {
	return func(o *options) { o.maxTexture = n }
}

// WithLimits sets the texture manager limits.
func WithLimits(l texture.Limits) Option {
	return func(o *options) { o.limits = l }
}

// WithFeatures sets the texture features. Unless WithFormatTable is also
// given, the format table is derived from them.
func WithFeatures(f texture.Features) Option {
	return func(o *options) { o.features = f }
}

// WithFormatTable sets the immutable format compatibility table.
func WithFormatTable(t texture.FormatCompatibilityTable) Option {
	return func(o *options) { o.formatTable = &t }
}

// WithFrameLimits sets the limits applied by DecodeFrame and DrawFrame.
func WithFrameLimits(l quad.Limits) Option {
	return func(o *options) { o.frameLimits = l }
}

// WithFencePollInterval sets how often Run checks GPU progress while a
// fence is outstanding. Zero uses resource.DefaultFencePollInterval.
func WithFencePollInterval(d time.Duration) Option {
	return func(o *options) { o.fencePoll = d }
}

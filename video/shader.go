package video

import (
	_ "embed"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

//go:embed shaders/yuv_to_rgb.wgsl
var yuvToRGBShaderSource string

// YUVShaderSource returns the WGSL source of the YUV to RGB program.
func YUVShaderSource() string { return yuvToRGBShaderSource }

// compileWGSL compiles WGSL to little-endian SPIR-V words.
func compileWGSL(src string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("video: compile shader: %w", err)
	}
	if len(spirvBytes)%4 != 0 {
		return nil, fmt.Errorf("video: SPIR-V length %d is not word aligned", len(spirvBytes))
	}
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(spirvBytes[i*4:])
	}
	return words, nil
}

// Programs holds the GPU programs used to sample YUV plane resources.
// They are built on first use and kept until Destroy.
type Programs struct {
	device hal.Device

	mu     sync.Mutex
	spirv  []uint32
	module hal.ShaderModule
	layout hal.BindGroupLayout
	built  bool
	err    error
}

// NewPrograms returns a program cache for device.
func NewPrograms(device hal.Device) *Programs {
	return &Programs{device: device}
}

// YUV returns the shader module and bind group layout of the YUV to RGB
// program. A build failure is remembered and returned on later calls.
func (p *Programs) YUV() (hal.ShaderModule, hal.BindGroupLayout, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.built || p.err != nil {
		return p.module, p.layout, p.err
	}
	p.err = p.build()
	return p.module, p.layout, p.err
}

func (p *Programs) build() error {
	if p.device == nil {
		return errors.New("video: no device for YUV program")
	}
	spirv, err := compileWGSL(yuvToRGBShaderSource)
	if err != nil {
		return err
	}
	module, err := p.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "yuv_to_rgb_shader",
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return fmt.Errorf("video: create YUV shader module: %w", err)
	}

	plane := &gputypes.TextureBindingLayout{
		SampleType:    gputypes.TextureSampleTypeFloat,
		ViewDimension: gputypes.TextureViewDimension2D,
	}
	layout, err := p.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "yuv_to_rgb_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gputypes.ShaderStageFragment, Texture: plane},
			{Binding: 1, Visibility: gputypes.ShaderStageFragment, Texture: plane},
			{Binding: 2, Visibility: gputypes.ShaderStageFragment, Texture: plane},
			{
				Binding:    3,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		p.device.DestroyShaderModule(module)
		return fmt.Errorf("video: create YUV bind group layout: %w", err)
	}

	p.spirv = spirv
	p.module = module
	p.layout = layout
	p.built = true
	slogger().Debug("video: YUV program ready", "spirv_words", len(spirv))
	return nil
}

// SPIRV returns the compiled YUV program, or nil before the first build.
func (p *Programs) SPIRV() []uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.spirv
}

// Destroy releases the GPU objects. The cache can be rebuilt afterwards.
func (p *Programs) Destroy() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.layout != nil {
		p.device.DestroyBindGroupLayout(p.layout)
		p.layout = nil
	}
	if p.module != nil {
		p.device.DestroyShaderModule(p.module)
		p.module = nil
	}
	p.spirv = nil
	p.built = false
	p.err = nil
}

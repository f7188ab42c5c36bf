package video

import (
	"strings"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

func createNoopDevice(t *testing.T) hal.Device {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		openDev.Device.Destroy()
		instance.Destroy()
	})
	return openDev.Device
}

func TestYUVShaderSource(t *testing.T) {
	src := YUVShaderSource()
	for _, want := range []string{"fn vs_main", "fn fs_main", "y_plane", "u_plane", "v_plane", "plane_sampler"} {
		if !strings.Contains(src, want) {
			t.Errorf("shader source missing %q", want)
		}
	}
}

func TestProgramsWithoutDevice(t *testing.T) {
	p := NewPrograms(nil)
	if _, _, err := p.YUV(); err == nil {
		t.Fatal("YUV() without device succeeded")
	}
	// The failure is remembered.
	if _, _, err := p.YUV(); err == nil {
		t.Error("second YUV() succeeded")
	}
	p.Destroy()
}

func TestProgramsYUV(t *testing.T) {
	if _, err := compileWGSL(YUVShaderSource()); err != nil {
		t.Skipf("shader compiler unavailable: %v", err)
	}
	p := NewPrograms(createNoopDevice(t))
	defer p.Destroy()

	_, _, err := p.YUV()
	if err != nil {
		t.Fatalf("YUV: %v", err)
	}
	if len(p.SPIRV()) == 0 {
		t.Error("SPIRV() is empty after build")
	}
	if p.SPIRV()[0] != 0x07230203 {
		t.Errorf("SPIR-V magic = %#x, want 0x07230203", p.SPIRV()[0])
	}

	p.Destroy()
	if p.SPIRV() != nil {
		t.Error("SPIRV() not cleared by Destroy")
	}
}

package video

import (
	"errors"
	"testing"

	"github.com/gogpu/compositor/geometry"
)

func fill(b []byte, v byte) {
	for i := range b {
		b[i] = v
	}
}

func TestToRGBA(t *testing.T) {
	tests := []struct {
		name    string
		format  Format
		y, c, a byte
		want    [4]byte
	}{
		{"YV12 white", FormatYV12, 255, 128, 255, [4]byte{255, 255, 255, 255}},
		{"I420 black", FormatI420, 0, 128, 255, [4]byte{0, 0, 0, 255}},
		{"YV16 white", FormatYV16, 255, 128, 255, [4]byte{255, 255, 255, 255}},
		{"YV24 black", FormatYV24, 0, 128, 255, [4]byte{0, 0, 0, 255}},
		{"NV12 white", FormatNV12, 255, 128, 255, [4]byte{255, 255, 255, 255}},
		{"YV12A transparent", FormatYV12A, 255, 128, 0, [4]byte{0, 0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFrame(tt.format, geometry.Sz(4, 2), 0)
			fill(f.Data[PlaneY], tt.y)
			for p := 1; p < len(f.Data); p++ {
				if p == PlaneA {
					fill(f.Data[p], tt.a)
				} else {
					fill(f.Data[p], tt.c)
				}
			}

			img, _, err := toRGBA(f, nil, nil)
			if err != nil {
				t.Fatalf("toRGBA: %v", err)
			}
			if img.Bounds().Dx() != 4 || img.Bounds().Dy() != 2 {
				t.Fatalf("bounds = %v, want 4x2", img.Bounds())
			}
			for i := 0; i < len(img.Pix); i += 4 {
				got := [4]byte{img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3]}
				if got != tt.want {
					t.Fatalf("pixel %d = %v, want %v", i/4, got, tt.want)
				}
			}
		})
	}
}

func TestToRGBAReusesDestination(t *testing.T) {
	f := NewFrame(FormatYV12, geometry.Sz(4, 4), 0)
	first, scratch, err := toRGBA(f, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	second, _, err := toRGBA(f, first, scratch)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("destination of matching size was not reused")
	}
}

func TestToRGBAShortPlane(t *testing.T) {
	f := NewFrame(FormatYV12, geometry.Sz(4, 4), 0)
	f.Data[PlaneV] = f.Data[PlaneV][:1]
	if _, _, err := toRGBA(f, nil, nil); !errors.Is(err, ErrShortPlane) {
		t.Errorf("err = %v, want ErrShortPlane", err)
	}

	argb := NewFrame(FormatARGB, geometry.Sz(4, 4), 0)
	if _, _, err := toRGBA(argb, nil, nil); err == nil {
		t.Error("ARGB frame converted, want error")
	}
}

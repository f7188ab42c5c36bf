// Package framefile reads frame descriptions used to drive the compositor
// from the command line. Descriptions are TOML or YAML documents listing
// resources, video frames and render passes.
package framefile

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Errors returned while loading or building a description.
var (
	ErrUnknownFormat   = errors.New("framefile: unknown file format")
	ErrUnknownMaterial = errors.New("framefile: unknown material")
	ErrUnknownResource = errors.New("framefile: unknown resource")
	ErrDuplicateName   = errors.New("framefile: duplicate resource name")
	ErrBadValue        = errors.New("framefile: bad value")
	ErrVideoFailed     = errors.New("framefile: video frame could not be converted")
)

// Format is the encoding of a description file.
type Format int

// Description encodings.
const (
	FormatTOML Format = iota
	FormatYAML
)

func (f Format) String() string {
	switch f {
	case FormatTOML:
		return "toml"
	case FormatYAML:
		return "yaml"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// FormatFromPath picks the encoding from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, path)
	}
}

// Description is one compositor frame and the content it draws.
type Description struct {
	DeviceScaleFactor float32    `toml:"device_scale_factor,omitempty" yaml:"device_scale_factor,omitempty"`
	Resources         []Resource `toml:"resources,omitempty" yaml:"resources,omitempty"`
	Videos            []Video    `toml:"videos,omitempty" yaml:"videos,omitempty"`
	Passes            []Pass     `toml:"passes,omitempty" yaml:"passes,omitempty"`
}

// Resource is a bitmap or texture filled with one color.
type Resource struct {
	Name    string `toml:"name,omitempty" yaml:"name,omitempty"`
	Size    []int  `toml:"size,omitempty" yaml:"size,omitempty"`
	Format  string `toml:"format,omitempty" yaml:"format,omitempty"`
	Overlay bool   `toml:"overlay,omitempty" yaml:"overlay,omitempty"`
	Fill    string `toml:"fill,omitempty" yaml:"fill,omitempty"`
}

// Video is a planar video frame with constant planes.
type Video struct {
	Name      string `toml:"name,omitempty" yaml:"name,omitempty"`
	Format    string `toml:"format,omitempty" yaml:"format,omitempty"`
	Size      []int  `toml:"size,omitempty" yaml:"size,omitempty"`
	YUV       []int  `toml:"yuv,omitempty" yaml:"yuv,omitempty"`
	Timestamp int64  `toml:"timestamp_ms,omitempty" yaml:"timestamp_ms,omitempty"`
	Overlay   bool   `toml:"overlay,omitempty" yaml:"overlay,omitempty"`
}

// Pass is one render pass. Quads are listed bottom first.
type Pass struct {
	ID                    int32   `toml:"id,omitempty" yaml:"id,omitempty"`
	Output                []int   `toml:"output,omitempty" yaml:"output,omitempty"`
	Damage                []int   `toml:"damage,omitempty" yaml:"damage,omitempty"`
	TransparentBackground bool    `toml:"transparent_background,omitempty" yaml:"transparent_background,omitempty"`
	States                []State `toml:"states,omitempty" yaml:"states,omitempty"`
	Quads                 []Quad  `toml:"quads,omitempty" yaml:"quads,omitempty"`
}

// State is a shared quad state. Transform holds the affine terms
// a, b, c, d, e, f with x' = a*x + b*y + c and y' = d*x + e*y + f.
type State struct {
	Transform      []float32 `toml:"transform,omitempty" yaml:"transform,omitempty"`
	Bounds         []int     `toml:"bounds,omitempty" yaml:"bounds,omitempty"`
	Opacity        *float32  `toml:"opacity,omitempty" yaml:"opacity,omitempty"`
	BlendMode      string    `toml:"blend_mode,omitempty" yaml:"blend_mode,omitempty"`
	Clip           []int     `toml:"clip,omitempty" yaml:"clip,omitempty"`
	SortingContext int32     `toml:"sorting_context,omitempty" yaml:"sorting_context,omitempty"`
}

// Quad is one draw quad.
type Quad struct {
	State         int    `toml:"state,omitempty" yaml:"state,omitempty"`
	Material      string `toml:"material,omitempty" yaml:"material,omitempty"`
	Rect          []int  `toml:"rect,omitempty" yaml:"rect,omitempty"`
	Opaque        []int  `toml:"opaque,omitempty" yaml:"opaque,omitempty"`
	Visible       []int  `toml:"visible,omitempty" yaml:"visible,omitempty"`
	NeedsBlending bool   `toml:"needs_blending,omitempty" yaml:"needs_blending,omitempty"`

	Resource        string    `toml:"resource,omitempty" yaml:"resource,omitempty"`
	Color           string    `toml:"color,omitempty" yaml:"color,omitempty"`
	Background      string    `toml:"background,omitempty" yaml:"background,omitempty"`
	UV              []float32 `toml:"uv,omitempty" yaml:"uv,omitempty"`
	Matrix          []float32 `toml:"matrix,omitempty" yaml:"matrix,omitempty"`
	Premultiplied   bool      `toml:"premultiplied,omitempty" yaml:"premultiplied,omitempty"`
	YFlipped        bool      `toml:"y_flipped,omitempty" yaml:"y_flipped,omitempty"`
	NearestNeighbor bool      `toml:"nearest_neighbor,omitempty" yaml:"nearest_neighbor,omitempty"`
	AllowOverlay    bool      `toml:"allow_overlay,omitempty" yaml:"allow_overlay,omitempty"`
	Pass            int32     `toml:"pass,omitempty" yaml:"pass,omitempty"`
	Width           int32     `toml:"width,omitempty" yaml:"width,omitempty"`
}

// Load reads the description at path. The encoding follows the extension.
func Load(path string) (*Description, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("framefile: %w", err)
	}
	d, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// Parse decodes a description. Unknown keys are rejected.
func Parse(data []byte, format Format) (*Description, error) {
	var d Description
	switch format {
	case FormatTOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&d); err != nil {
			return nil, fmt.Errorf("framefile: toml: %w", err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&d); err != nil {
			return nil, fmt.Errorf("framefile: yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownFormat, format)
	}
	if d.DeviceScaleFactor == 0 {
		d.DeviceScaleFactor = 1
	}
	return &d, nil
}

// Marshal encodes d in format.
func Marshal(d *Description, format Format) ([]byte, error) {
	switch format {
	case FormatTOML:
		return toml.Marshal(d)
	case FormatYAML:
		return yaml.Marshal(d)
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownFormat, format)
	}
}

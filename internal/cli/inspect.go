package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gogpu/compositor/geometry"
	"github.com/gogpu/compositor/internal/framefile"
	"github.com/gogpu/compositor/quad"
)

// frameSummary is the printed form of a frame.
type frameSummary struct {
	DeviceScaleFactor float32       `json:"device_scale_factor"`
	Passes            []passSummary `json:"passes"`
}

type passSummary struct {
	ID                 quad.PassID   `json:"id"`
	Output             geometry.Rect `json:"output_rect"`
	Damage             geometry.Rect `json:"damage_rect"`
	SharedQuadStates   int           `json:"shared_quad_states"`
	TransparentBackground bool          `json:"transparent_background,omitempty"`
	Quads              []quadSummary `json:"quads"`
}

type quadSummary struct {
	Material  string        `json:"material"`
	Rect      geometry.Rect `json:"rect"`
	State     int           `json:"state"`
	Resources []uint64      `json:"resources,omitempty"`
}

func summarize(f *quad.Frame) frameSummary {
	s := frameSummary{DeviceScaleFactor: f.DeviceScaleFactor}
	for _, p := range f.Passes {
		ps := passSummary{
			ID:                 p.ID,
			Output:             p.OutputRect,
			Damage:             p.DamageRect,
			SharedQuadStates:   len(p.SharedQuadStates),
			TransparentBackground: p.HasTransparentBackground,
		}
		for i := range p.Quads {
			q := &p.Quads[i]
			qs := quadSummary{Material: q.Material().String(), Rect: q.Rect, State: q.SharedQuadState}
			for _, id := range q.Resources() {
				qs.Resources = append(qs.Resources, uint64(id))
			}
			ps.Quads = append(ps.Quads, qs)
		}
		s.Passes = append(s.Passes, ps)
	}
	return s
}

func (a *app) newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <frame>",
		Short: "Print the structure of a frame",
		Long: `Inspect prints the passes and quads of a frame. The frame is either a
binary frame written by encode or a TOML or YAML frame file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.newContext()
			if err != nil {
				return err
			}
			defer c.Close()

			var frame *quad.Frame
			if _, ferr := framefile.FormatFromPath(args[0]); ferr == nil {
				desc, err := framefile.Load(args[0])
				if err != nil {
					return err
				}
				scene, err := desc.Build(c)
				if err != nil {
					return err
				}
				defer scene.Release(0)
				frame = scene.Frame
			} else {
				data, err := os.ReadFile(args[0])
				if err != nil {
					return fmt.Errorf("read frame: %w", err)
				}
				if frame, err = c.DecodeFrame(data); err != nil {
					return err
				}
			}
			return a.printJSON(summarize(frame))
		},
	}
}

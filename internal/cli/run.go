package cli

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/internal/framefile"
	"github.com/gogpu/compositor/overlay"
)

func (a *app) newRunCmd() *cobra.Command {
	var (
		outPath string
		watch   bool
	)
	cmd := &cobra.Command{
		Use:   "run <frame-file>",
		Short: "Composite a frame file",
		Long: `Run builds the frame described by a TOML or YAML file, selects overlay
planes, composites the primary plane in software and presents all planes
into a PNG. The selected planes are printed as JSON.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !watch {
				return a.runFile(cmd.Context(), args[0], outPath)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return a.watch(ctx, args[0], func() error {
				return a.runFile(ctx, args[0], outPath)
			})
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the presented output to this PNG file")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Run again whenever the frame file changes")
	return cmd
}

// runFile composites one frame file on a fresh context.
func (a *app) runFile(ctx context.Context, path, outPath string) error {
	desc, err := framefile.Load(path)
	if err != nil {
		return err
	}
	c, err := a.newContext()
	if err != nil {
		return err
	}
	defer c.Close()

	g, gctx := errgroup.WithContext(ctx)
	runCtx, cancel := context.WithCancel(gctx)
	g.Go(func() error { return c.Run(runCtx) })
	defer func() {
		cancel()
		if err := g.Wait(); err != nil {
			a.log.Warn("fence watcher stopped", "err", err)
		}
	}()

	scene, err := desc.Build(c)
	if err != nil {
		return err
	}
	drawn, err := c.DrawFrame(scene.Frame)
	if err != nil {
		scene.Release(0)
		return err
	}

	var out *image.RGBA
	if outPath != "" && c.Software() {
		out, err = a.present(c, drawn)
		if err != nil {
			scene.Release(0)
			return err
		}
	}

	if err := c.DidSwap(drawn); err != nil {
		a.log.Warn("swap", "err", err)
	}
	scene.Release(c.Registry().Signalled())

	a.log.Info("frame composited",
		"file", path,
		"passes", len(drawn.Frame.Passes),
		"overlays", len(drawn.Overlays),
		"memory", c.Registry().Stats())
	if out != nil {
		if err := writePNG(outPath, out); err != nil {
			return err
		}
		a.log.Info("wrote output", "path", outPath)
	}
	return a.printJSON(candidatesJSON(drawn.Overlays))
}

// present rasterizes the root pass and presents it with the overlay
// planes.
func (a *app) present(c *compositor.Context, d *compositor.DrawnFrame) (*image.RGBA, error) {
	root := d.Frame.RootPass()
	r := root.OutputRect
	bounds := image.Rect(0, 0, r.Right(), r.Bottom())

	primary := image.NewRGBA(bounds)
	if err := c.DrawPass(primary, root); err != nil {
		return nil, err
	}
	out := image.NewRGBA(bounds)
	if err := overlay.Present(out, primary, d.Overlays, c.Image); err != nil {
		return nil, err
	}
	return out, nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode PNG: %w", err)
	}
	return f.Close()
}

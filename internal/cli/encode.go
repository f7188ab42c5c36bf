package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gogpu/compositor/internal/framefile"
	"github.com/gogpu/compositor/quad"
)

func (a *app) newEncodeCmd() *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "encode <frame-file>",
		Short: "Serialize a frame file",
		Long: `Encode builds the frame described by a TOML or YAML file and writes it in
the binary compositor frame format.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			desc, err := framefile.Load(args[0])
			if err != nil {
				return err
			}
			c, err := a.newContext()
			if err != nil {
				return err
			}
			defer c.Close()

			scene, err := desc.Build(c)
			if err != nil {
				return err
			}
			defer scene.Release(0)
			if err := scene.Frame.Validate(c.FrameLimits()); err != nil {
				return err
			}

			data, err := quad.MarshalFrame(scene.Frame)
			if err != nil {
				return err
			}
			if err := os.WriteFile(outPath, data, 0o644); err != nil { //nolint:gosec // output is not secret
				return fmt.Errorf("write frame: %w", err)
			}
			a.log.Info("encoded frame", "path", outPath, "bytes", len(data), "passes", len(scene.Frame.Passes))
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "frame.bin", "Output file")
	return cmd
}

// Package cli implements the compositorctl command line.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tidwall/pretty"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/geometry"
	"github.com/gogpu/compositor/overlay"
	"github.com/gogpu/compositor/quad"
)

// Version is the compositorctl release.
const Version = "0.4.0"

// app is the state shared by the commands of one invocation.
type app struct {
	v   *viper.Viper
	log *log.Logger
	out io.Writer

	cfgFile string
}

// NewRootCmd builds the command tree writing results to out and logs to
// errOut.
func NewRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{
		v:   viper.New(),
		log: log.NewWithOptions(errOut, log.Options{Prefix: "compositorctl"}),
		out: out,
	}

	root := &cobra.Command{
		Use:   "compositorctl",
		Short: "Drive the GPU compositor from frame files",
		Long: `compositorctl loads frame descriptions (TOML or YAML), composites them
with overlay plane selection and writes the result as PNG or as a
serialized compositor frame.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if v, err := cmd.Flags().GetBool("version"); err == nil && v {
				a.printVersion()
				return nil
			}
			if v, err := cmd.Flags().GetBool("show-config"); err == nil && v {
				a.log.Infof("Using config file: %v", a.v.ConfigFileUsed())
				return a.printJSON(a.v.AllSettings())
			}
			return cmd.Help()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.config/compositorctl/compositorctl.toml)")
	pf.BoolP("debug", "d", false, "Enable debug logging")
	pf.Bool("software", true, "Composite in software")
	pf.Int("max-texture-size", 0, "Largest texture dimension (0 for the default)")
	pf.Uint64("memory-budget", 0, "Resource memory budget in bytes (0 for unlimited)")
	pf.Int("overlays", 1, "Number of overlay planes (0 disables overlays)")
	pf.Bool("underlays", true, "Allow planes below the primary plane")
	root.Flags().Bool("show-config", false, "Dump resolved config")
	root.Flags().BoolP("version", "v", false, "Print version")

	_ = a.v.BindPFlag("debug", pf.Lookup("debug"))
	_ = a.v.BindPFlag("software", pf.Lookup("software"))
	_ = a.v.BindPFlag("max_texture_size", pf.Lookup("max-texture-size"))
	_ = a.v.BindPFlag("memory_budget", pf.Lookup("memory-budget"))
	_ = a.v.BindPFlag("overlays.planes", pf.Lookup("overlays"))
	_ = a.v.BindPFlag("overlays.underlays", pf.Lookup("underlays"))

	root.AddCommand(a.newRunCmd(), a.newEncodeCmd(), a.newInspectCmd())
	return root
}

// Execute runs compositorctl with the process arguments.
func Execute() {
	if err := NewRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func (a *app) initConfig() error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.SetConfigName("compositorctl")
		a.v.SetConfigType("toml")
		a.v.AddConfigPath("$HOME/.config/compositorctl")
		a.v.AddConfigPath("/etc/xdg/compositorctl")
	}

	a.v.SetDefault("overlays.rotation", false)
	a.v.SetDefault("fence_poll", "2ms")
	a.v.SetEnvPrefix("COMPOSITOR")
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	if a.v.GetBool("debug") {
		a.log.SetLevel(log.DebugLevel)
	}
	compositor.SetLogger(slog.New(a.log))
	return nil
}

// newContext creates a compositor context from the resolved settings.
func (a *app) newContext() (*compositor.Context, error) {
	opts := []compositor.Option{
		compositor.WithMaxTextureSize(a.v.GetInt("max_texture_size")),
		compositor.WithMemoryBudget(a.v.GetUint64("memory_budget")),
		compositor.WithFencePollInterval(a.v.GetDuration("fence_poll")),
	}
	if a.v.GetBool("software") {
		opts = append(opts, compositor.WithSoftware())
	}
	if n := a.v.GetInt("overlays.planes"); n > 0 {
		opts = append(opts, compositor.WithValidator(overlay.PlaneValidator{
			MaxOverlays:    n,
			AllowUnderlays: a.v.GetBool("overlays.underlays"),
			AllowRotation:  a.v.GetBool("overlays.rotation"),
		}))
	}
	return compositor.NewContext(opts...)
}

func (a *app) printVersion() {
	name := lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	ver := lipgloss.NewStyle().Foreground(lipgloss.Color("76"))
	fmt.Fprintf(a.out, "%s %s\n", name.Render("compositorctl"), ver.Render(Version))
}

func (a *app) printJSON(data any) error {
	j, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	if f, ok := a.out.(*os.File); ok && isTerminal(f) {
		j = pretty.Color(j, nil)
	}
	_, err = fmt.Fprintln(a.out, string(j))
	return err
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}

// candidateJSON is the printed form of an overlay plane.
type candidateJSON struct {
	Pass      quad.PassID    `json:"pass"`
	Resource  uint64         `json:"resource"`
	ZOrder    int            `json:"z_order"`
	Display   geometry.RectF `json:"display_rect"`
	UV        geometry.RectF `json:"uv_rect"`
	Transform string         `json:"transform"`
	Clipped   bool           `json:"clipped,omitempty"`
}

func candidatesJSON(cs []overlay.Candidate) []candidateJSON {
	out := make([]candidateJSON, 0, len(cs))
	for _, c := range cs {
		out = append(out, candidateJSON{
			Pass:      c.Pass,
			Resource:  uint64(c.ResourceID),
			ZOrder:    c.ZOrder,
			Display:   c.DisplayRect,
			UV:        c.UVRect,
			Transform: c.Transform.String(),
			Clipped:   c.IsClipped,
		})
	}
	return out
}

package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/spherical/docprompt/internal/config"
	"github.com/spherical/docprompt/internal/domain"
	"github.com/spherical/docprompt/pkg/docprompt"
)

// app carries what every subcommand needs once flags are parsed
type app struct {
	verbose bool
	noColor bool
	envFile string

	cfg *config.Config
	ui  *UI

	// newClient is replaced in tests
	newClient func(cfg *config.Config) (*docprompt.Client, error)
}

func newApp() *app {
	return &app{newClient: docprompt.NewClientWithConfig}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "docprompt",
		Short: "Ask a multimodal model about a PDF or image",
		Long: `docprompt extracts the text layer and embedded images of a PDF, or takes a
standalone JPEG/PNG, and sends them with your prompt to a vision-capable model.
The answer is printed as it streams in.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var files []string
			if a.envFile != "" {
				files = append(files, a.envFile)
			}
			cfg, err := config.Load(files...)
			if err != nil {
				return err
			}
			if a.verbose {
				cfg.LogLevel = "debug"
			}
			domain.DefaultLogger = cfg.Logger()
			a.cfg = cfg
			a.ui = NewUI(cmd.OutOrStdout(), cmd.ErrOrStderr(), a.noColor)
			return nil
		},
	}

	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "disable colored output")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", "", "load settings from this file instead of .env")

	root.AddCommand(a.extractCmd(), a.askCmd())
	return root
}

func (a *app) client() (*docprompt.Client, error) {
	return a.newClient(a.cfg)
}

// reportError prints a command failure. Configuration errors can happen
// before the UI exists, so one is built on demand.
func (a *app) reportError(errOut io.Writer, err error) {
	ui := a.ui
	if ui == nil {
		ui = NewUI(io.Discard, errOut, a.noColor)
	}
	ui.Error("Error: %v", err)
}

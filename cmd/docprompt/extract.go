package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spherical/docprompt/internal/domain"
	"github.com/spherical/docprompt/internal/extract"
)

func (a *app) extractCmd() *cobra.Command {
	var showImages bool

	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "Print the text and images extracted from a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}

			spin := NewSpinner("Extracting " + args[0])
			spin.Start()
			content, err := client.IngestFile(cmd.Context(), args[0])
			spin.Stop()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			a.ui.Section("Text")
			if content.Text == "" {
				fmt.Fprintln(out, "(no text layer)")
			} else {
				fmt.Fprintln(out, content.Text)
			}

			a.ui.Section("Images")
			fmt.Fprintf(out, "%d images\n", len(content.Images))
			if showImages {
				for i, img := range content.Images {
					fmt.Fprintf(out, "[%d] %dx%d %s\n", i+1, img.Width, img.Height, img.DataURL())
				}
			}

			if err := content.SkippedErr(); err != nil && domain.DefaultLogger.Level() <= domain.LogLevelDebug {
				a.ui.Warning("Skipped images: %v", err)
			}
			a.ui.Success("Extracted %s", extract.Summary(content))
			return nil
		},
	}

	cmd.Flags().BoolVar(&showImages, "images", false, "print each image as a data URL")
	return cmd
}

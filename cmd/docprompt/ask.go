package main

import (
	"fmt"
	"strings"

	"github.com/russross/blackfriday"
	"github.com/spf13/cobra"

	"github.com/spherical/docprompt/internal/extract"
)

func (a *app) askCmd() *cobra.Command {
	var (
		instruction string
		noStream    bool
		asHTML      bool
	)

	cmd := &cobra.Command{
		Use:   "ask [file]",
		Short: "Send a prompt, optionally with a document, and print the answer",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := a.client()
			if err != nil {
				return err
			}

			if len(args) == 1 {
				spin := NewSpinner("Extracting " + args[0])
				spin.Start()
				content, err := client.IngestFile(ctx, args[0])
				spin.Stop()
				if err != nil {
					return err
				}
				a.ui.Info("Extracted %s", extract.Summary(content))
			}

			out := cmd.OutOrStdout()

			if noStream || asHTML {
				spin := NewSpinner("Waiting for the model")
				spin.Start()
				answer, err := client.Complete(ctx, instruction)
				spin.Stop()
				if err != nil {
					return err
				}
				return a.printAnswer(cmd, answer, asHTML)
			}

			seq, err := client.Generate(ctx, instruction)
			if err != nil {
				return err
			}

			spin := NewSpinner("Waiting for the model")
			spin.Start()
			defer spin.Stop()

			w := &incrementalWriter{out: out}
			for partial, err := range seq {
				spin.Stop()
				if werr := w.Update(partial); werr != nil {
					return werr
				}
				if err != nil {
					fmt.Fprintln(out)
					return err
				}
			}
			if w.written > 0 {
				fmt.Fprintln(out)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&instruction, "prompt", "p", "", "instruction sent to the model (required)")
	cmd.Flags().BoolVar(&noStream, "no-stream", false, "print the answer once it is complete")
	cmd.Flags().BoolVar(&asHTML, "html", false, "render the complete answer from Markdown to HTML")
	return cmd
}

func (a *app) printAnswer(cmd *cobra.Command, answer string, asHTML bool) error {
	out := cmd.OutOrStdout()
	if asHTML {
		_, err := out.Write(blackfriday.MarkdownCommon([]byte(answer)))
		return err
	}
	_, err := fmt.Fprintln(out, strings.TrimRight(answer, "\n"))
	return err
}

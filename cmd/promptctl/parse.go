package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/runixer/trendstudio/internal/prompt"
)

type parseOutput struct {
	Scene             string            `json:"scene"`
	Style             prompt.StyleValue `json:"style"`
	Avoid             string            `json:"avoid"`
	Composition       string            `json:"composition"`
	StyleParsedAsJSON bool              `json:"style_parsed_as_json"`
	Marked            bool              `json:"marked"`
}

func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse [file]",
		Short: "Parse flat prompt text into blocks",
		Long: `Split flat prompt text into its scene, style, avoid and composition blocks.
Text before any marker, or text without markers at all, goes to the scene.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			b := prompt.Parse(text)

			if isJSON(cmd) {
				return writeJSON(cmd, parseOutput{
					Scene:             b.Scene,
					Style:             b.Style,
					Avoid:             b.Avoid,
					Composition:       b.Composition,
					StyleParsedAsJSON: b.StyleParsedAsJSON(),
					Marked:            b.Marked,
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "scene:       %q\n", b.Scene)
			fmt.Fprintf(out, "style:       %q\n", b.Style.String())
			fmt.Fprintf(out, "avoid:       %q\n", b.Avoid)
			fmt.Fprintf(out, "composition: %q\n", b.Composition)
			fmt.Fprintf(out, "style is JSON: %t, markers found: %t\n", b.StyleParsedAsJSON(), b.Marked)
			return nil
		},
	}
}

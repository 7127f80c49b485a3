package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/runixer/trendstudio/internal/prompt"
)

func newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build flat prompt text from blocks",
		Long: `Render the given blocks as flat prompt text in canonical order:
[SCENE], [STYLE], [AVOID], [COMPOSITION]. Empty blocks are omitted.`,
		Example: `  promptctl build --scene "a cat on a roof" --style '{"lighting":"rim"}' --avoid "text"`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			text := prompt.Build(
				mustGetString(cmd, "scene"),
				mustGetString(cmd, "style"),
				mustGetString(cmd, "avoid"),
				mustGetString(cmd, "composition"),
			)
			if isJSON(cmd) {
				return writeJSON(cmd, map[string]string{"text": text})
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), text)
			return err
		},
	}
	cmd.Flags().String("scene", "", "Scene block")
	cmd.Flags().String("style", "", "Style block (plain text or a JSON object)")
	cmd.Flags().String("avoid", "", "Avoid block")
	cmd.Flags().String("composition", "", "Composition block")
	return cmd
}

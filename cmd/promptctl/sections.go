package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/runixer/trendstudio/internal/prompt"
)

func newSplitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "split [file]",
		Short: "Split flat prompt text into sections",
		Long: `Convert flat prompt text into editable sections. Marked text always yields the
four canonical sections; text without markers yields a single "prompt" section.
Sections are printed as JSON regardless of --output.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			return writeJSON(cmd, prompt.FlatTextToSections(text))
		},
	}
}

func newFlattenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "flatten [file]",
		Short: "Render a JSON section list as flat prompt text",
		Long: `Read a JSON array of sections and render the enabled ones, in order, as flat
prompt text.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			var sections []prompt.Section
			if err := json.Unmarshal([]byte(data), &sections); err != nil {
				return fmt.Errorf("invalid sections JSON: %w", err)
			}

			text := prompt.SectionsToFlatText(sections)
			if isJSON(cmd) {
				return writeJSON(cmd, map[string]string{"text": text})
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
			return err
		},
	}
}

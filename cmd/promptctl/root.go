package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "promptctl",
		Short: "Offline tool for trend prompt text",
		Long: `Promptctl exposes the prompt codec used by the admin API: parsing flat prompt
text into scene/style/avoid/composition blocks, building flat text back, and
converting between flat text and editable sections.

Every command reads its input from the file given as the first argument, or
from stdin when the argument is omitted or "-".`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringP("output", "o", "text", "Output format: text, json")

	root.AddCommand(
		newParseCmd(),
		newBuildCmd(),
		newSplitCmd(),
		newFlattenCmd(),
		newSubstituteCmd(),
	)
	return root
}

// readInput returns the contents of args[0], or stdin when absent or "-".
func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	return string(data), nil
}

func writeJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func isJSON(cmd *cobra.Command) bool {
	return mustGetString(cmd, "output") == "json"
}

// mustGetString retrieves a string flag value, panicking if the flag doesn't exist.
// This indicates a programming error (flag not defined), not a user error.
func mustGetString(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		panic(fmt.Sprintf("flag %q not defined: %v", name, err))
	}
	return val
}

// mustGetBool retrieves a bool flag value, panicking if the flag doesn't exist.
func mustGetBool(cmd *cobra.Command, name string) bool {
	val, err := cmd.Flags().GetBool(name)
	if err != nil {
		panic(fmt.Sprintf("flag %q not defined: %v", name, err))
	}
	return val
}

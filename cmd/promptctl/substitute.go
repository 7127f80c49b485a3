package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/runixer/trendstudio/internal/prompt"
	"github.com/runixer/trendstudio/internal/storage"
)

type substituteOutput struct {
	Content    string   `json:"content"`
	Unresolved []string `json:"unresolved"`
}

func newSubstituteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "substitute [file]",
		Short: "Replace {{variable}} placeholders",
		Long: `Replace {{name}} placeholders with variable values. Master variables are
loaded from --db when given; --var values override them. Unknown placeholders
are left in place and listed on stderr (or in the JSON output).`,
		Example: `  promptctl substitute prompt.txt --var gender=female --var city=Paris`,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			overrides, err := cmd.Flags().GetStringToString("var")
			if err != nil {
				return err
			}
			vars, err := loadVariables(mustGetString(cmd, "db"))
			if err != nil {
				return err
			}
			for k, v := range overrides {
				vars[k] = v
			}

			out := substituteOutput{Content: prompt.Substitute(content, vars)}
			out.Unresolved = prompt.Placeholders(out.Content)
			if out.Unresolved == nil {
				out.Unresolved = []string{}
			}

			if isJSON(cmd) {
				if err := writeJSON(cmd, out); err != nil {
					return err
				}
			} else {
				fmt.Fprint(cmd.OutOrStdout(), out.Content)
				if len(out.Unresolved) > 0 {
					fmt.Fprintf(cmd.ErrOrStderr(), "unresolved: %s\n", strings.Join(out.Unresolved, ", "))
				}
			}

			if mustGetBool(cmd, "strict") && len(out.Unresolved) > 0 {
				return fmt.Errorf("%d unresolved placeholder(s)", len(out.Unresolved))
			}
			return nil
		},
	}
	cmd.Flags().StringToString("var", nil, "Variable value as name=value (repeatable)")
	cmd.Flags().String("db", "", "Database to load master variables from")
	cmd.Flags().Bool("strict", false, "Fail when placeholders remain unresolved")
	return cmd
}

// loadVariables reads master variables from the database at path, or returns
// an empty set when path is empty.
func loadVariables(path string) (map[string]string, error) {
	vars := make(map[string]string)
	if path == "" {
		return vars, nil
	}

	store, err := storage.NewSQLiteStore(slog.New(slog.NewTextHandler(io.Discard, nil)), path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()
	if err := store.Init(); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	master, err := store.GetVariables()
	if err != nil {
		return nil, err
	}
	for k, v := range master {
		vars[k] = v
	}
	return vars, nil
}

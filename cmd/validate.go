package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"specrun/internal/config"
	"specrun/internal/gherkin"
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate [path ...]",
	Short: "Parse feature files and report syntax errors without running them",
	Long: `The validate command parses Gherkin feature files and reports every
syntax error found, without executing anything.

Paths name .feature files or directories, searched recursively. Without
arguments the configured default paths are used (normally ./features).
Parsing does not stop at the first error, so one pass shows all problems
in a file.

Example usage:
  specrun validate                      # Validate everything under ./features
  specrun validate features/pay.feature # Validate a single file

The exit code is 0 when every file parses and 2 otherwise, so the
command works as a cheap pre-commit or CI gate.`,
	Args: cobra.ArbitraryArgs,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	paths := args
	if len(paths) == 0 {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		paths = cfg.Features
	}

	features, err := gherkin.LoadFeatures(paths...)
	if err != nil {
		return err
	}
	if len(features) == 0 {
		return fmt.Errorf("no feature files found under %s", strings.Join(paths, ", "))
	}

	out := cmd.OutOrStdout()
	scenarios, steps := 0, 0
	for _, f := range features {
		fSteps := 0
		for _, scn := range f.Scenarios {
			fSteps += len(scn.Steps)
		}
		fmt.Fprintf(out, "%s: %d scenario(s), %d step(s)\n", f.Path, len(f.Scenarios), fSteps)
		scenarios += len(f.Scenarios)
		steps += fSteps
	}
	fmt.Fprintf(out, "OK: %d feature(s), %d scenario(s), %d step(s)\n", len(features), scenarios, steps)
	return nil
}

package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Process exit codes: 0 is a passing run, exitFailed reports scenario
// failures, exitUsage reports flag, configuration or parse errors.
const (
	exitFailed = 1
	exitUsage  = 2
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "specrun",
	Short: "Run Gherkin feature files against Go step definitions",
	Long: `specrun executes Gherkin feature files against registered step
definitions. Scenarios run concurrently, each with its own isolated
World state, and results are reported in source order on the console,
as JSON, or in a live terminal UI.`,
	// SilenceUsage is set to true to prevent printing usage message on errors
	// handled by us (e.g. invalid flag values, failing runs)
	SilenceUsage: true,
}

// SetVersion sets the version for the root command
func SetVersion(v string) {
	rootCmd.Version = v // Set cobra's version field as well
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "specrun version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		// Cobra prints the error, we just exit non-zero
		os.Exit(exitUsage)
	}
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"specrun/internal/config"
)

var (
	stepsPluginPaths []string
	stepsKube        bool
	stepsFormat      string
)

// completeStepsFormatFlag provides shell completion for the format flag
func completeStepsFormatFlag(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return []string{"text", "yaml"}, cobra.ShellCompDirectiveDefault
}

// stepsCmd represents the steps command
var stepsCmd = &cobra.Command{
	Use:   "steps",
	Short: "List the registered step definitions",
	Long: `The steps command lists every registered step definition: the built-in
library, the Kubernetes library when enabled, and any plugin sources.

Use it to discover what glue is available when writing features, or with
--format yaml to feed the pattern list to other tooling.

Example usage:
  specrun steps                         # Built-in definitions
  specrun steps --steps ./glue          # Including plugin definitions
  specrun steps --kube --format yaml    # Full list as YAML`,
	Args: cobra.NoArgs,
	RunE: runSteps,
}

func init() {
	rootCmd.AddCommand(stepsCmd)

	stepsCmd.Flags().StringSliceVar(&stepsPluginPaths, "steps", nil, "Step definition sources (.go files or directories), repeatable")
	stepsCmd.Flags().BoolVar(&stepsKube, "kube", false, "Include the Kubernetes step library")
	stepsCmd.Flags().StringVar(&stepsFormat, "format", "text", "Output format: text or yaml")

	_ = stepsCmd.RegisterFlagCompletionFunc("format", completeStepsFormatFlag)

	stepsCmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		if stepsFormat != "text" && stepsFormat != "yaml" {
			return fmt.Errorf("invalid format '%s', must be 'text' or 'yaml'", stepsFormat)
		}
		return nil
	}
}

func runSteps(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("kube") {
		cfg.Kube.Enabled = stepsKube
	}
	if cmd.Flags().Changed("steps") {
		cfg.Plugins.Paths = append(cfg.Plugins.Paths, stepsPluginPaths...)
	}

	registry, err := buildRegistry(cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if stepsFormat == "yaml" {
		type stepEntry struct {
			Keywords string `yaml:"keywords"`
			Pattern  string `yaml:"pattern"`
		}
		doc := struct {
			Steps       []stepEntry `yaml:"steps"`
			BeforeHooks int         `yaml:"beforeHooks"`
			AfterHooks  int         `yaml:"afterHooks"`
		}{
			BeforeHooks: len(registry.BeforeHooks()),
			AfterHooks:  len(registry.AfterHooks()),
		}
		for _, p := range registry.Patterns() {
			doc.Steps = append(doc.Steps, stepEntry{Keywords: p.Keywords().String(), Pattern: p.Expr()})
		}
		data, err := yaml.Marshal(doc)
		if err != nil {
			return err
		}
		fmt.Fprint(out, string(data))
		return nil
	}

	for _, p := range registry.Patterns() {
		fmt.Fprintln(out, p.Description())
	}
	fmt.Fprintf(out, "\n%d step definition(s), %d before hook(s), %d after hook(s)\n",
		registry.Len(), len(registry.BeforeHooks()), len(registry.AfterHooks()))
	return nil
}

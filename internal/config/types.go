package config

import (
	"specrun/internal/engine"
)

// Config is the top-level specrun configuration, assembled by layering
// defaults, the user file and the project file.
type Config struct {
	// Features lists the default feature paths (files or directories)
	// used when the command line names none.
	Features []string `yaml:"features,omitempty"`
	// Run holds the execution parameters passed to the engine.
	Run engine.RunConfig `yaml:"run,omitempty"`
	// Output controls reporters and report files.
	Output OutputConfig `yaml:"output,omitempty"`
	// Plugins locates step definition sources loaded at startup.
	Plugins PluginsConfig `yaml:"plugins,omitempty"`
	// Kube configures the Kubernetes World factory.
	Kube KubeConfig `yaml:"kube,omitempty"`
	// LogLevel is one of "debug", "info", "warn", "error".
	LogLevel string `yaml:"logLevel,omitempty"`
}

// OutputConfig controls how run results are rendered.
type OutputConfig struct {
	// Format selects the reporter: "console", "json" or "tui".
	Format string `yaml:"format,omitempty"`
	// Verbosity is "quiet", "normal" or "verbose".
	Verbosity string `yaml:"verbosity,omitempty"`
	// ReportDir, when set, saves a timestamped JSON report there after
	// every run.
	ReportDir string `yaml:"reportDir,omitempty"`
	// NoColor disables ANSI styling regardless of terminal detection.
	NoColor bool `yaml:"noColor,omitempty"`
}

// PluginsConfig locates step definition plugins.
type PluginsConfig struct {
	// Paths lists Go source files or directories interpreted at startup
	// for step definitions. Paths accumulate across configuration layers.
	Paths []string `yaml:"paths,omitempty"`
}

// KubeConfig controls the namespace-per-scenario Kubernetes World factory.
type KubeConfig struct {
	// Enabled switches scenario Worlds from in-memory maps to isolated
	// namespaces on a cluster.
	Enabled bool `yaml:"enabled,omitempty"`
	// Kubeconfig is the path to the kubeconfig file; empty uses the
	// standard loading rules (KUBECONFIG, then ~/.kube/config).
	Kubeconfig string `yaml:"kubeconfig,omitempty"`
	// Context selects a kubeconfig context; empty uses the current one.
	Context string `yaml:"context,omitempty"`
	// NamespacePrefix prefixes the generated per-scenario namespaces.
	NamespacePrefix string `yaml:"namespacePrefix,omitempty"`
}

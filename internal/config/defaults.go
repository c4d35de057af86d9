package config

import (
	"specrun/internal/engine"
)

// DefaultConfig returns the built-in configuration: features under
// ./features, console output at normal verbosity, four scenarios in flight
// and undefined steps treated as failures.
func DefaultConfig() Config {
	return Config{
		Features: []string{"features"},
		Run: engine.RunConfig{
			Concurrency: engine.DefaultConcurrency,
		},
		Output: OutputConfig{
			Format:    "console",
			Verbosity: "normal",
		},
		Kube: KubeConfig{
			NamespacePrefix: "specrun",
		},
		LogLevel: "info",
	}
}

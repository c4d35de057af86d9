// Package config provides configuration management for specrun.
//
// This package implements a layered configuration system that allows users
// to customize specrun's behavior through YAML files. Configuration is
// loaded from multiple sources and merged in a specific order, with later
// sources overriding earlier ones.
//
// # Configuration Layers
//
// Configuration is loaded and merged in the following order:
//
//  1. Default Configuration (embedded in binary)
//     - Provides sensible defaults for all settings
//     - Ensures specrun works out-of-the-box
//
//  2. User Configuration (~/.config/specrun/config.yaml)
//     - User-specific settings that apply to all projects
//     - Useful for personal preferences such as verbosity
//
//  3. Project Configuration (./.specrun/config.yaml)
//     - Project-specific settings in the current directory
//     - Allows teams to share configuration via version control
//
// Command-line flags are applied on top of the loaded configuration by the
// cmd layer and always win.
//
// # Configuration Structure
//
//	features:
//	  - features/
//
//	run:
//	  tags: "@smoke and not @wip"
//	  concurrency: 4
//	  fail_fast: false
//	  step_timeout: 30s
//	  undefined_steps_ok: false
//
//	output:
//	  format: console       # console, json or tui
//	  verbosity: normal     # quiet, normal or verbose
//	  reportDir: .specrun/reports
//
//	plugins:
//	  paths:
//	    - steps/
//
//	kube:
//	  enabled: false
//	  kubeconfig: ~/.kube/config
//	  namespacePrefix: specrun
//
// # Merge Semantics
//
// Scalar settings follow "last non-zero wins" across the layers. Boolean
// settings merge true-wins: a layer can enable fail-fast but cannot disable
// what an earlier layer enabled; use per-run flags for that. Plugin paths
// accumulate across layers so user-wide step libraries combine with
// project-local ones.
package config

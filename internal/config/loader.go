package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"specrun/pkg/logging"
)

// For mocking in tests
var osUserHomeDir = os.UserHomeDir
var osGetwd = os.Getwd

const (
	userConfigDir    = ".config/specrun"
	projectConfigDir = ".specrun"
	configFileName   = "config.yaml"
)

// Load assembles the configuration by layering defaults, the user file and
// the project file. Missing files are fine; unreadable or malformed ones
// are errors.
func Load() (Config, error) {
	config := DefaultConfig()

	userConfigPath, err := getUserConfigPath()
	if err != nil {
		logging.Warn("Config", "Could not determine user config path: %v", err)
	} else if fileExists(userConfigPath) {
		userConfig, err := loadConfigFromFile(userConfigPath)
		if err != nil {
			return Config{}, fmt.Errorf("loading user config from %s: %w", userConfigPath, err)
		}
		config = merge(config, userConfig)
	}

	projectConfigPath, err := getProjectConfigPath()
	if err != nil {
		logging.Warn("Config", "Could not determine project config path: %v", err)
	} else if fileExists(projectConfigPath) {
		projectConfig, err := loadConfigFromFile(projectConfigPath)
		if err != nil {
			return Config{}, fmt.Errorf("loading project config from %s: %w", projectConfigPath, err)
		}
		config = merge(config, projectConfig)
	}

	return config, nil
}

var getUserConfigPath = func() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir, configFileName), nil
}

var getProjectConfigPath = func() (string, error) {
	wd, err := osGetwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, projectConfigDir, configFileName), nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// loadConfigFromFile loads a Config from a YAML file.
func loadConfigFromFile(path string) (Config, error) {
	var config Config
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, err
	}
	return config, nil
}

// merge overlays the non-zero fields of overlay onto base. Boolean settings
// merge true-wins; plugin paths accumulate.
func merge(base, overlay Config) Config {
	merged := base

	if len(overlay.Features) > 0 {
		merged.Features = overlay.Features
	}
	if overlay.LogLevel != "" {
		merged.LogLevel = overlay.LogLevel
	}

	if overlay.Run.Tags != "" {
		merged.Run.Tags = overlay.Run.Tags
	}
	if overlay.Run.NameFilter != "" {
		merged.Run.NameFilter = overlay.Run.NameFilter
	}
	if overlay.Run.Concurrency > 0 {
		merged.Run.Concurrency = overlay.Run.Concurrency
	}
	if overlay.Run.StepTimeout > 0 {
		merged.Run.StepTimeout = overlay.Run.StepTimeout
	}
	merged.Run.FailFast = merged.Run.FailFast || overlay.Run.FailFast
	merged.Run.UndefinedStepsOk = merged.Run.UndefinedStepsOk || overlay.Run.UndefinedStepsOk

	if overlay.Output.Format != "" {
		merged.Output.Format = overlay.Output.Format
	}
	if overlay.Output.Verbosity != "" {
		merged.Output.Verbosity = overlay.Output.Verbosity
	}
	if overlay.Output.ReportDir != "" {
		merged.Output.ReportDir = overlay.Output.ReportDir
	}
	merged.Output.NoColor = merged.Output.NoColor || overlay.Output.NoColor

	if len(overlay.Plugins.Paths) > 0 {
		merged.Plugins.Paths = append(merged.Plugins.Paths, overlay.Plugins.Paths...)
	}

	merged.Kube.Enabled = merged.Kube.Enabled || overlay.Kube.Enabled
	if overlay.Kube.Kubeconfig != "" {
		merged.Kube.Kubeconfig = overlay.Kube.Kubeconfig
	}
	if overlay.Kube.Context != "" {
		merged.Kube.Context = overlay.Kube.Context
	}
	if overlay.Kube.NamespacePrefix != "" {
		merged.Kube.NamespacePrefix = overlay.Kube.NamespacePrefix
	}

	return merged
}

// UserConfigDir returns the user configuration directory path.
func UserConfigDir() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir), nil
}

package color

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestInitialize(t *testing.T) {
	tests := []struct {
		name       string
		isDarkMode bool
		expected   bool
	}{
		{"set dark mode", true, true},
		{"set light mode", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Initialize(tt.isDarkMode)
			if lipgloss.HasDarkBackground() != tt.expected {
				t.Errorf("lipgloss.HasDarkBackground() got %v, want %v after Initialize(%v)", lipgloss.HasDarkBackground(), tt.expected, tt.isDarkMode)
			}
		})
	}
}

func TestDetectDarkModeHonorsThemeOverride(t *testing.T) {
	tests := []struct {
		name     string
		theme    string
		expected bool
	}{
		{"forced dark", "dark", true},
		{"forced light", "light", false},
		{"forced dark uppercase", "DARK", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SPECRUN_THEME", tt.theme)
			if got := DetectDarkMode(); got != tt.expected {
				t.Errorf("DetectDarkMode() got %v, want %v with SPECRUN_THEME=%s", got, tt.expected, tt.theme)
			}
		})
	}
}

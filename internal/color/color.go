package color

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Semantic palette with light/dark variants. The console reporter and the
// TUI both draw from this palette so outcome colors stay consistent.
var (
	Primary = lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7571F9"}
	Success = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#10B981"}
	Error   = lipgloss.AdaptiveColor{Light: "#DC2626", Dark: "#EF4444"}
	Warning = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#F59E0B"}
	Info    = lipgloss.AdaptiveColor{Light: "#2563EB", Dark: "#3B82F6"}
	Muted   = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6B7280"}
)

// Shared text styles keyed to the palette above.
var (
	SuccessStyle = lipgloss.NewStyle().Foreground(Success)
	ErrorStyle   = lipgloss.NewStyle().Foreground(Error)
	WarningStyle = lipgloss.NewStyle().Foreground(Warning)
	InfoStyle    = lipgloss.NewStyle().Foreground(Info)
	MutedStyle   = lipgloss.NewStyle().Foreground(Muted)
	HeaderStyle  = lipgloss.NewStyle().Bold(true)
)

// Initialize sets the background mode used to resolve adaptive colors.
// Call once at startup, before any styled output is rendered.
func Initialize(isDarkMode bool) {
	lipgloss.SetHasDarkBackground(isDarkMode)
}

// Disable replaces every shared style with an unstyled one. Call before
// rendering when colors are unwanted, e.g. --no-color or piped output.
func Disable() {
	SuccessStyle = lipgloss.NewStyle()
	ErrorStyle = lipgloss.NewStyle()
	WarningStyle = lipgloss.NewStyle()
	InfoStyle = lipgloss.NewStyle()
	MutedStyle = lipgloss.NewStyle()
	HeaderStyle = lipgloss.NewStyle()
}

// DetectDarkMode resolves the active theme. SPECRUN_THEME=dark|light wins;
// otherwise the terminal background detected by lipgloss decides.
func DetectDarkMode() bool {
	switch strings.ToLower(os.Getenv("SPECRUN_THEME")) {
	case "dark":
		return true
	case "light":
		return false
	}
	return lipgloss.HasDarkBackground()
}

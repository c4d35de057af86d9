// Package color provides terminal color theming for specrun.
//
// Colors are organized into semantic categories applied consistently by the
// console reporter and the TUI:
//   - Success: passed scenarios and steps
//   - Error: failed, ambiguous and timed-out outcomes
//   - Warning: undefined steps
//   - Muted: skipped steps and de-emphasized detail
//   - Info: run-level information
//
// Every color is a lipgloss.AdaptiveColor with a light and a dark variant.
// Initialize selects the variant set; DetectDarkMode resolves the theme
// from the SPECRUN_THEME environment variable, falling back to the
// terminal background reported by lipgloss. Setting NO_COLOR disables
// color output entirely (handled by lipgloss itself).
package color

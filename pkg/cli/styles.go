package cli

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme defines the color scheme for terminal output.
type Theme struct {
	Primary lipgloss.Color // Main accent color
	Dim     lipgloss.Color // Dimmed/metadata color
	Warn    lipgloss.Color // Warnings and degraded states
	Error   lipgloss.Color // Errors and failures
}

// DefaultTheme is the default bright green theme.
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00ff9f"),
	Dim:     lipgloss.Color("#6e7681"),
	Warn:    lipgloss.Color("#d29922"),
	Error:   lipgloss.Color("#f85149"),
}

// Styles holds all styles derived from a theme.
type Styles struct {
	Title   lipgloss.Style
	Label   lipgloss.Style
	Value   lipgloss.Style
	Channel lipgloss.Style
	Meta    lipgloss.Style
	Warn    lipgloss.Style
	Error   lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(t Theme) Styles {
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(t.Primary).Padding(0, 1),
		Label:   lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Value:   lipgloss.NewStyle(),
		Channel: lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Meta:    lipgloss.NewStyle().Foreground(t.Dim),
		Warn:    lipgloss.NewStyle().Foreground(t.Warn),
		Error:   lipgloss.NewStyle().Bold(true).Foreground(t.Error),
	}
}

// Level renders a log level with the severity-appropriate color.
func (s Styles) Level(level string) string {
	switch level {
	case "ERROR", "CRITICAL", "FATAL":
		return s.Error.Render(level)
	case "WARN", "WARNING":
		return s.Warn.Render(level)
	default:
		return s.Meta.Render(level)
	}
}

// StateBadge renders a connection or cognitive state with color.
func (s Styles) StateBadge(state string) string {
	switch state {
	case "connected", "healthy", "WORK":
		return s.Label.Render(state)
	case "reconnecting", "connecting", "degraded":
		return s.Warn.Render(state)
	case "failed", "unhealthy":
		return s.Error.Render(state)
	default:
		return s.Meta.Render(state)
	}
}

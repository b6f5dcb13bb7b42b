package cmd

import "github.com/charmbracelet/lipgloss"

// Color palette for human-readable output.
const (
	// ColorPrimary is purple: titles and headers.
	ColorPrimary = lipgloss.Color("#7C3AED")
	// ColorMuted is gray: secondary text and labels.
	ColorMuted = lipgloss.Color("#6B7280")
	// ColorSuccess is green.
	ColorSuccess = lipgloss.Color("#10B981")
	// ColorError is red.
	ColorError = lipgloss.Color("#EF4444")
	// ColorWarning is amber.
	ColorWarning = lipgloss.Color("#F59E0B")
	// ColorHighlight is blue: identifiers and paths.
	ColorHighlight = lipgloss.Color("#3B82F6")
)

var (
	// TitleStyle is for the addon name and section titles.
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)
	// SubtitleStyle is for descriptions.
	SubtitleStyle = lipgloss.NewStyle().Foreground(ColorMuted)
	// LabelStyle pads field labels into a column.
	LabelStyle = lipgloss.NewStyle().Foreground(ColorMuted).Width(11)
	// SuccessStyle is for success messages.
	SuccessStyle = lipgloss.NewStyle().Foreground(ColorSuccess)
	// ErrorStyle is for error severities.
	ErrorStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorError)
	// WarningStyle is for warnings.
	WarningStyle = lipgloss.NewStyle().Foreground(ColorWarning)
	// ValueStyle is for identifiers and file names.
	ValueStyle = lipgloss.NewStyle().Foreground(ColorHighlight)
)

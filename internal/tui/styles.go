package tui

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	PrimaryColor = lipgloss.Color("#00D4FF") // Cyan
	SuccessColor = lipgloss.Color("#10B981") // Green
	ErrorColor   = lipgloss.Color("#EF4444") // Red
	WarningColor = lipgloss.Color("#F59E0B") // Amber
	TextColor    = lipgloss.Color("#E5E7EB")
	MutedColor   = lipgloss.Color("#9CA3AF")
	DimColor     = lipgloss.Color("#6B7280")
	BorderColor  = lipgloss.Color("#4B5563")
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(PrimaryColor)

	LabelStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			Width(12)

	ValueStyle = lipgloss.NewStyle().
			Foreground(TextColor)

	RunningBadge = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#000000")).
			Background(SuccessColor).
			Bold(true).
			Padding(0, 1)

	StoppedBadge = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(ErrorColor).
			Bold(true).
			Padding(0, 1)

	OutputBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BorderColor)

	FocusedInputStyle = lipgloss.NewStyle().
				Border(lipgloss.NormalBorder()).
				BorderForeground(PrimaryColor).
				Padding(0, 1)

	StderrStyle = lipgloss.NewStyle().Foreground(WarningColor)
	SystemStyle = lipgloss.NewStyle().Foreground(PrimaryColor).Italic(true)
	DimStyle    = lipgloss.NewStyle().Foreground(DimColor)
)

// Success returns success-colored text
func Success(text string) string {
	return lipgloss.NewStyle().Foreground(SuccessColor).Render(text)
}

// Error returns error-colored text
func Error(text string) string {
	return lipgloss.NewStyle().Foreground(ErrorColor).Render(text)
}

// Muted returns muted text
func Muted(text string) string {
	return lipgloss.NewStyle().Foreground(MutedColor).Render(text)
}

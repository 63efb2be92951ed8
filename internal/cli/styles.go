package cli

import "github.com/charmbracelet/lipgloss"

var (
	colorDim    = lipgloss.AdaptiveColor{Light: "242", Dark: "240"}
	colorGreen  = lipgloss.AdaptiveColor{Light: "28", Dark: "40"}
	colorRed    = lipgloss.AdaptiveColor{Light: "160", Dark: "196"}
	colorYellow = lipgloss.AdaptiveColor{Light: "136", Dark: "220"}
	colorCyan   = lipgloss.AdaptiveColor{Light: "30", Dark: "45"}
)

var (
	styleBrand   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	styleLabel   = lipgloss.NewStyle().Foreground(colorDim)
	styleSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleWarning = lipgloss.NewStyle().Bold(true).Foreground(colorYellow)
	styleError   = lipgloss.NewStyle().Bold(true).Foreground(colorRed)
	styleBanner  = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(colorYellow).
			Padding(0, 2)
)

// outcomeStyle colours a result by how it ended
func outcomeStyle(outcome string) lipgloss.Style {
	switch outcome {
	case "sent":
		return styleSuccess
	case "failed":
		return styleError
	default:
		return styleWarning
	}
}

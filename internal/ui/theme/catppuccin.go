package theme

import "github.com/charmbracelet/lipgloss"

var (
	Base     = lipgloss.Color("#1e1e2e")
	Mantle   = lipgloss.Color("#181825")
	Surface0 = lipgloss.Color("#313244")
	Surface1 = lipgloss.Color("#45475a")
	Text     = lipgloss.Color("#cdd6f4")
	Subtext0 = lipgloss.Color("#a6adc8")
	Lavender = lipgloss.Color("#b4befe")
	Sapphire = lipgloss.Color("#74c7ec")
	Green    = lipgloss.Color("#a6e3a1")
	Peach    = lipgloss.Color("#fab387")
	Red      = lipgloss.Color("#f38ba8")
	Yellow   = lipgloss.Color("#f9e2af")
	Mauve    = lipgloss.Color("#cba6f7")
	Teal     = lipgloss.Color("#94e2d5")

	App = lipgloss.NewStyle().
		Background(Base).
		Foreground(Text).
		Padding(1, 2)

	Pane = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Surface1).
		Background(Mantle).
		Foreground(Text).
		Padding(0, 1)

	PaneActive = Pane.BorderForeground(Lavender)

	Title = lipgloss.NewStyle().Foreground(Sapphire).Bold(true)
	Muted = lipgloss.NewStyle().Foreground(Subtext0)
	Hot   = lipgloss.NewStyle().Foreground(Peach).Bold(true)

	Badge = lipgloss.NewStyle().Padding(0, 1).Bold(true).Foreground(Base)
)

// SourceBadge colors the data-source label by freshness.
func SourceBadge(label string, connected bool) string {
	color := Red
	switch {
	case connected:
		color = Green
	case label == "Cached":
		color = Peach
	}
	return Badge.Background(color).Render(label)
}

// CategoryColor gives each canonical category a stable series color.
func CategoryColor(key string) lipgloss.Color {
	switch key {
	case "people":
		return Mauve
	case "places":
		return Teal
	case "objects":
		return Yellow
	case "category-match":
		return Sapphire
	default:
		return Subtext0
	}
}

package report

import "github.com/charmbracelet/lipgloss"

// Theme defines the colors of the terminal summary.
type Theme struct {
	Primary   lipgloss.Color // title, rank one
	Secondary lipgloss.Color // plan ids
	Error     lipgloss.Color // failed runs, unscored criteria
	Warning   lipgloss.Color // partial runs, gaps
	Success   lipgloss.Color // complete runs
	Text      lipgloss.Color
	TextMuted lipgloss.Color // hints, rationale
	Border    lipgloss.Color
}

// DarkTheme is the default.
func DarkTheme() Theme {
	return Theme{
		Primary:   lipgloss.Color("#fab283"),
		Secondary: lipgloss.Color("#5c9cf5"),
		Error:     lipgloss.Color("#e06c75"),
		Warning:   lipgloss.Color("#f5a742"),
		Success:   lipgloss.Color("#7fd88f"),
		Text:      lipgloss.Color("#eeeeee"),
		TextMuted: lipgloss.Color("#808080"),
		Border:    lipgloss.Color("#484848"),
	}
}

// LightTheme is for bright terminal backgrounds.
func LightTheme() Theme {
	return Theme{
		Primary:   lipgloss.Color("#b35c00"),
		Secondary: lipgloss.Color("#0550ae"),
		Error:     lipgloss.Color("#cf222e"),
		Warning:   lipgloss.Color("#bf8700"),
		Success:   lipgloss.Color("#116329"),
		Text:      lipgloss.Color("#1f2328"),
		TextMuted: lipgloss.Color("#656d76"),
		Border:    lipgloss.Color("#d0d7de"),
	}
}

// ThemeByName returns a theme by name. Defaults to dark.
func ThemeByName(name string) Theme {
	switch name {
	case "light":
		return LightTheme()
	default:
		return DarkTheme()
	}
}

type styles struct {
	title   lipgloss.Style
	header  lipgloss.Style
	plan    lipgloss.Style
	ok      lipgloss.Style
	warn    lipgloss.Style
	err     lipgloss.Style
	dim     lipgloss.Style
	text    lipgloss.Style
	border  lipgloss.Style
	leading lipgloss.Style
}

func newStyles(t Theme) styles {
	return styles{
		title:   lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		header:  lipgloss.NewStyle().Bold(true).Foreground(t.Text),
		plan:    lipgloss.NewStyle().Foreground(t.Secondary),
		ok:      lipgloss.NewStyle().Foreground(t.Success),
		warn:    lipgloss.NewStyle().Foreground(t.Warning),
		err:     lipgloss.NewStyle().Foreground(t.Error),
		dim:     lipgloss.NewStyle().Foreground(t.TextMuted),
		text:    lipgloss.NewStyle().Foreground(t.Text),
		border:  lipgloss.NewStyle().Foreground(t.Border),
		leading: lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
	}
}

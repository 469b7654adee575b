package ui

import (
	"codeberg.org/sigterm-de/scripter/internal/app"
	"github.com/charmbracelet/lipgloss"
)

// Styles are the lipgloss styles of the player, derived from preferences.
type Styles struct {
	Tab         lipgloss.Style
	ActiveTab   lipgloss.Style
	Gutter      lipgloss.Style
	Cursor      lipgloss.Style
	Popup       lipgloss.Style
	PopupActive lipgloss.Style
	PopupHint   lipgloss.Style
	Caption     lipgloss.Style
	Overlay     lipgloss.Style
	StatusState lipgloss.Style
	StatusHint  lipgloss.Style
	StatusInfo  lipgloss.Style
	StatusError lipgloss.Style
	Picker      lipgloss.Style
	PickerMatch lipgloss.Style
}

// NewStyles builds the styles for prefs.
func NewStyles(prefs app.AppPreferences) Styles {
	accent := lipgloss.Color(prefs.AccentColor)
	caption := lipgloss.Color(prefs.CaptionColor)
	popup := lipgloss.Color(prefs.CompletionColor)

	return Styles{
		Tab:         lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("245")),
		ActiveTab:   lipgloss.NewStyle().Padding(0, 1).Bold(true).Foreground(lipgloss.Color("230")).Background(accent),
		Gutter:      lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		Cursor:      lipgloss.NewStyle().Reverse(true),
		Popup:       lipgloss.NewStyle().Background(popup).Foreground(lipgloss.Color("252")),
		PopupActive: lipgloss.NewStyle().Background(accent).Foreground(lipgloss.Color("230")).Bold(true),
		PopupHint:   lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		Caption:     lipgloss.NewStyle().Foreground(lipgloss.Color("16")).Background(caption).Padding(0, 1),
		Overlay:     lipgloss.NewStyle().Foreground(accent).Italic(true),
		StatusState: lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(accent),
		StatusHint:  lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		StatusInfo:  lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		StatusError: lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		Picker:      lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(accent).Padding(0, 1),
		PickerMatch: lipgloss.NewStyle().Foreground(accent).Bold(true),
	}
}

package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/adrg/xdg"
)

// AppPreferences holds persistent user-configurable settings for the player.
type AppPreferences struct {
	// Colours are lipgloss colour strings: "#rrggbb" or an ANSI index 0-255.
	AccentColor     string `json:"accent_color"`
	CaptionColor    string `json:"caption_color"`
	CompletionColor string `json:"completion_color"`

	// StartTake names the tab that is active when the player opens. Empty
	// means the first take in library order.
	StartTake string `json:"start_take"`

	ShowLineNumbers bool `json:"show_line_numbers"`

	// SyntaxAutoDetect shows the detected buffer language in the status line.
	SyntaxAutoDetect bool `json:"syntax_auto_detect"`
}

func defaultPreferences() AppPreferences {
	return AppPreferences{
		AccentColor:      "#7D56F4",
		CaptionColor:     "#F4D35E",
		CompletionColor:  "#3C3C5A",
		ShowLineNumbers:  true,
		SyntaxAutoDetect: true,
	}
}

func preferencesFilePath() (string, error) {
	return xdg.ConfigFile(filepath.Join(appName, "preferences.json"))
}

// LoadPreferences loads preferences from disk, returning defaults on any error.
func LoadPreferences() AppPreferences {
	path, err := preferencesFilePath()
	if err != nil {
		return defaultPreferences()
	}
	return loadPreferencesFrom(path)
}

func loadPreferencesFrom(path string) AppPreferences {
	data, err := os.ReadFile(path)
	if err != nil {
		return defaultPreferences()
	}
	prefs := defaultPreferences()
	if err := json.Unmarshal(data, &prefs); err != nil {
		return defaultPreferences()
	}
	sanitizePreferences(&prefs)
	return prefs
}

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

func validColor(s string) bool {
	if hexColor.MatchString(s) {
		return true
	}
	n, err := strconv.Atoi(s)
	return err == nil && n >= 0 && n <= 255
}

// sanitizePreferences replaces any field that would cause silent misbehaviour
// with its default value. A hand-edited file must not leave the player
// rendering in the terminal's default colours by accident.
func sanitizePreferences(p *AppPreferences) {
	def := defaultPreferences()
	if !validColor(p.AccentColor) {
		p.AccentColor = def.AccentColor
	}
	if !validColor(p.CaptionColor) {
		p.CaptionColor = def.CaptionColor
	}
	if !validColor(p.CompletionColor) {
		p.CompletionColor = def.CompletionColor
	}
}

// SavePreferences writes preferences to disk.
func SavePreferences(prefs AppPreferences) error {
	path, err := preferencesFilePath()
	if err != nil {
		return fmt.Errorf("preferences: resolve path: %w", err)
	}
	return savePreferencesTo(path, prefs)
}

func savePreferencesTo(path string, prefs AppPreferences) error {
	data, err := json.MarshalIndent(prefs, "", "  ")
	if err != nil {
		return fmt.Errorf("preferences: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("preferences: write: %w", err)
	}
	return nil
}

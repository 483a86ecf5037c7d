package domain

type ThemePreference string

const (
	ThemeLight ThemePreference = "light"
	ThemeDark  ThemePreference = "dark"
)

// ParseTheme maps a stored value to a preference. Anything but "dark" is light.
func ParseTheme(s string) ThemePreference {
	if s == string(ThemeDark) {
		return ThemeDark
	}
	return ThemeLight
}

type Palette struct {
	Background string
	Text       string
	Primary    string
	Secondary  string
	Card       string
	Border     string
}

func PaletteFor(pref ThemePreference) Palette {
	if pref == ThemeDark {
		return Palette{
			Background: "#121212",
			Text:       "#ffffff",
			Primary:    "#3b5998",
			Secondary:  "#192f6a",
			Card:       "#1a1a1a",
			Border:     "#333333",
		}
	}
	return Palette{
		Background: "#ffffff",
		Text:       "#000000",
		Primary:    "#4c669f",
		Secondary:  "#3b5998",
		Card:       "#f5f5f5",
		Border:     "#e0e0e0",
	}
}

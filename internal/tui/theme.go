package tui

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// Theme holds the color palette for the TUI.
type Theme struct {
	BgColor       tcell.Color
	FgColor       tcell.Color
	BorderColor   tcell.Color
	TitleColor    tcell.Color
	SecondaryFg   tcell.Color
	ContrastBg    tcell.Color
	TableCursorBg tcell.Color
}

// LightTheme returns the default light palette.
func LightTheme() *Theme {
	return &Theme{
		BgColor:       tcell.ColorWhite,
		FgColor:       tcell.ColorBlack,
		BorderColor:   tcell.ColorDarkSlateGray,
		TitleColor:    tcell.ColorDarkGreen,
		SecondaryFg:   tcell.ColorGray,
		ContrastBg:    tcell.ColorLightGray,
		TableCursorBg: tcell.ColorLightGreen,
	}
}

// DarkTheme returns the dark palette.
func DarkTheme() *Theme {
	return &Theme{
		BgColor:       tcell.ColorBlack,
		FgColor:       tcell.ColorCadetBlue,
		BorderColor:   tcell.ColorDodgerBlue,
		TitleColor:    tcell.ColorFuchsia,
		SecondaryFg:   tcell.ColorGray,
		ContrastBg:    tcell.ColorDarkSlateGray,
		TableCursorBg: tcell.ColorAqua,
	}
}

// themeByName resolves a persisted theme name to a palette.
func themeByName(name string) *Theme {
	if name == "dark" {
		return DarkTheme()
	}
	return LightTheme()
}

// apply installs the palette into tview's global styles. Must run before
// widgets are created or be followed by a redraw.
func (t *Theme) apply() {
	tview.Styles.PrimitiveBackgroundColor = t.BgColor
	tview.Styles.ContrastBackgroundColor = t.ContrastBg
	tview.Styles.MoreContrastBackgroundColor = t.ContrastBg
	tview.Styles.PrimaryTextColor = t.FgColor
	tview.Styles.SecondaryTextColor = t.SecondaryFg
	tview.Styles.BorderColor = t.BorderColor
	tview.Styles.TitleColor = t.TitleColor
}

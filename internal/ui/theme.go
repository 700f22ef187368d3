package ui

import (
	"sort"
	"strings"
)

func init() { SetTheme(DefaultTheme) }

// DefaultTheme is used for empty or unknown names.
const DefaultTheme = "classic"

// Theme is the palette and glyph set for list output. Colors are ANSI
// sequences and may be empty.
type Theme struct {
	Name string

	Title, Muted, Accent, Success, Error, Pending string
	Assignee                                      string

	BoxUnchecked, BoxChecked               string
	CornerTL, CornerTR, CornerBL, CornerBR string
	H, V                                   string
	SymDone, SymUnchecked                  string

	// Assignee badges render as BadgeOpen + name + BadgeClose.
	BadgeOpen, BadgeClose string
}

var themes = map[string]Theme{
	"classic": {
		Title: bold, Muted: fgGray, Accent: fgBlue,
		Success: fgGreen, Error: fgRed, Pending: fgYellow,
		Assignee:     fgPurple,
		BoxUnchecked: "☐", BoxChecked: "☑",
		CornerTL: "┌", CornerTR: "┐", CornerBL: "└", CornerBR: "┘",
		H: "─", V: "│",
		SymDone: "✔", SymUnchecked: "•",
		BadgeOpen: "[", BadgeClose: "]",
	},
	"neon": {
		Title: "\033[95m", Muted: fgGray, Accent: "\033[96m",
		Success: fgGreen, Error: fgRed, Pending: "\033[93m",
		Assignee:     "\033[1;95m",
		BoxUnchecked: "◻", BoxChecked: "◼",
		CornerTL: "╭", CornerTR: "╮", CornerBL: "╰", CornerBR: "╯",
		H: "─", V: "│",
		SymDone: "✔", SymUnchecked: "•",
		BadgeOpen: "❮", BadgeClose: "❯",
	},
	"mono": {
		BoxUnchecked: "[ ]", BoxChecked: "[x]",
		CornerTL: "+", CornerTR: "+", CornerBL: "+", CornerBR: "+",
		H: "-", V: "|",
		SymDone: "x", SymUnchecked: "-",
		BadgeOpen: "[", BadgeClose: "]",
	},
}

var current Theme

// Themes lists the known theme names, sorted.
func Themes() []string {
	names := make([]string, 0, len(themes))
	for n := range themes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// HasTheme reports whether name (case-insensitive) is a known theme.
func HasTheme(name string) bool {
	_, ok := themes[strings.ToLower(name)]
	return ok
}

// SetTheme selects a theme by name. Unknown names fall back to
// DefaultTheme. mono also turns color off.
func SetTheme(name string) {
	name = strings.ToLower(name)
	th, ok := themes[name]
	if !ok {
		name, th = DefaultTheme, themes[DefaultTheme]
	}
	th.Name = name
	if name == "mono" {
		disableColor = true
	}
	current = th
}

func Current() Theme { return current }

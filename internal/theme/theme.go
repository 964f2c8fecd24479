// Package theme holds the visual variants of the studio. Both variants share
// every template; only the palette differs.
package theme

import (
	"sort"
	"strings"
)

type Theme struct {
	Name       string
	Label      string
	Dark       bool
	Background string
	Surface    string
	Border     string
	Text       string
	Muted      string
	Accent     string
	AccentAlt  string
	Glow       string
}

const Default = "purple"

var themes = map[string]Theme{
	"purple": {
		Name:       "purple",
		Label:      "Midnight",
		Dark:       true,
		Background: "#0f0a1f",
		Surface:    "rgba(255,255,255,0.06)",
		Border:     "rgba(255,255,255,0.18)",
		Text:       "#f8fafc",
		Muted:      "#c4b5fd",
		Accent:     "#a855f7",
		AccentAlt:  "#3b82f6",
		Glow:       "rgba(168,85,247,0.25)",
	},
	"emerald": {
		Name:       "emerald",
		Label:      "Emerald",
		Dark:       false,
		Background: "#f0fdf4",
		Surface:    "#ffffff",
		Border:     "#e5e7eb",
		Text:       "#111827",
		Muted:      "#4b5563",
		Accent:     "#10b981",
		AccentAlt:  "#4b5563",
		Glow:       "rgba(16,185,129,0.18)",
	},
}

// Lookup finds a theme by case-insensitive name.
func Lookup(name string) (Theme, bool) {
	t, ok := themes[strings.ToLower(strings.TrimSpace(name))]
	return t, ok
}

// Resolve returns the named theme, falling back to def and then Default.
func Resolve(name, def string) Theme {
	if t, ok := Lookup(name); ok {
		return t
	}
	if t, ok := Lookup(def); ok {
		return t
	}
	return themes[Default]
}

// Names lists the available themes.
func Names() []string {
	out := make([]string, 0, len(themes))
	for name := range themes {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

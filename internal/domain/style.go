package domain

import "strings"

// Style is one entry of the predefined transformation catalog.
type Style struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	From        string `json:"from"`
	To          string `json:"to"`
}

// DefaultStyle is selected for every new session and is also sent as the
// style field in custom prompt mode, which the backend still expects.
const DefaultStyle = "Anime Style"

var styles = []Style{
	{Name: "Anime Style", Description: "Transform into beautiful anime character", From: "#ec4899", To: "#9333ea"},
	{Name: "Picasso Style", Description: "Geometric abstract cubist art", From: "#3b82f6", To: "#0891b2"},
	{Name: "Oil Painting Style", Description: "Classic Degas oil painting", From: "#f59e0b", To: "#ea580c"},
	{Name: "Frida Kahlo Style", Description: "Bold colors and symbolic elements", From: "#ef4444", To: "#db2777"},
	{Name: "Miniature Effect", Description: "1/7 scale commercialized figure", From: "#22c55e", To: "#0d9488"},
}

// Styles returns a copy of the catalog in display order.
func Styles() []Style {
	out := make([]Style, len(styles))
	copy(out, styles)
	return out
}

// LookupStyle finds a catalog entry by exact name.
func LookupStyle(name string) (Style, bool) {
	name = strings.TrimSpace(name)
	for _, s := range styles {
		if s.Name == name {
			return s, true
		}
	}
	return Style{}, false
}

// Mode selects between the catalog and a free-text prompt.
type Mode string

const (
	ModePredefined Mode = "predefined"
	ModeCustom     Mode = "custom"
)

// ParseMode accepts the mode names as well as the "true"/"false" toggle
// values posted by the custom prompt switch.
func ParseMode(v string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case string(ModePredefined), "false", "0", "off":
		return ModePredefined, nil
	case string(ModeCustom), "true", "1", "on":
		return ModeCustom, nil
	}
	return "", ErrUnknownMode
}

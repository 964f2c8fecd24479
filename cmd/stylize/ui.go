package main

import (
	"github.com/charmbracelet/lipgloss"

	"nanobanana/internal/theme"
)

type palette struct {
	Title   lipgloss.Style
	Name    lipgloss.Style
	Desc    lipgloss.Style
	Marker  lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Subtle  lipgloss.Style
}

func newPalette(t theme.Theme) palette {
	accent := lipgloss.Color(t.Accent)
	muted := lipgloss.Color(t.Muted)
	return palette{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(accent).MarginBottom(1),
		Name:    lipgloss.NewStyle().Bold(true),
		Desc:    lipgloss.NewStyle().Foreground(muted),
		Marker:  lipgloss.NewStyle().Foreground(accent),
		Success: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#22c55e")),
		Error:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ef4444")),
		Subtle:  lipgloss.NewStyle().Foreground(muted).Italic(true),
	}
}

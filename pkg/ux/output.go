// Copyright (C) 2025 ArcticSec (security@arcticsec.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ux provides terminal output styling for the riskwatch CLI.
package ux

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// riskwatch color palette - arctic blues with semantic alert colors
var (
	ColorIceBright  = lipgloss.Color("#7FDBFF") // Bright ice blue - highlights
	ColorIcePrimary = lipgloss.Color("#39A0CA") // Primary blue - brand color
	ColorIceDeep    = lipgloss.Color("#1B6B93") // Deep blue - borders, accents
	ColorSlate      = lipgloss.Color("#4A5A6A") // Slate - muted text
	ColorSuccess    = lipgloss.Color("#2ECC71") // Green for healthy/success
	ColorWarning    = lipgloss.Color("#F4D03F") // Gold for warnings
	ColorDanger     = lipgloss.Color("#E74C3C") // Red for errors and critical risk
	ColorOrange     = lipgloss.Color("#E67E22") // Orange for high risk
	ColorYellow     = lipgloss.Color("#F1C40F") // Yellow for medium risk
)

// Styles provides pre-configured lipgloss styles.
var Styles = struct {
	Title     lipgloss.Style
	Subtitle  lipgloss.Style
	Bold      lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Highlight lipgloss.Style
	Box       lipgloss.Style
}{
	Title:     lipgloss.NewStyle().Bold(true).Foreground(ColorIceBright),
	Subtitle:  lipgloss.NewStyle().Foreground(ColorIcePrimary),
	Bold:      lipgloss.NewStyle().Bold(true),
	Muted:     lipgloss.NewStyle().Foreground(ColorSlate),
	Success:   lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning:   lipgloss.NewStyle().Foreground(ColorWarning),
	Error:     lipgloss.NewStyle().Foreground(ColorDanger),
	Highlight: lipgloss.NewStyle().Foreground(ColorIceBright).Bold(true),
	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorIceDeep).
		Padding(0, 1),
}

// riskLevelStyles maps risk level names to their display styles.
var riskLevelStyles = map[string]lipgloss.Style{
	"Critical": lipgloss.NewStyle().Bold(true).Foreground(ColorDanger),
	"High":     lipgloss.NewStyle().Bold(true).Foreground(ColorOrange),
	"Medium":   lipgloss.NewStyle().Foreground(ColorYellow),
	"Low":      lipgloss.NewStyle().Foreground(ColorIcePrimary),
	"Info":     lipgloss.NewStyle().Foreground(ColorSlate),
}

// plain disables all styling when stdout is not a terminal (pipes, CI, cron).
var plain = !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd())

// render applies a style unless plain output is in effect.
func render(style lipgloss.Style, text string) string {
	if plain {
		return text
	}
	return style.Render(text)
}

// RiskLevel renders a risk level name with its semantic color.
// Unknown levels are rendered unstyled.
func RiskLevel(level string) string {
	if style, ok := riskLevelStyles[level]; ok {
		return render(style, level)
	}
	return level
}

// Icon provides themed status icons.
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconArrow   Icon = "→"
	IconBullet  Icon = "•"
)

// Render returns the icon with appropriate styling.
func (i Icon) Render() string {
	switch i {
	case IconSuccess:
		return render(Styles.Success, string(i))
	case IconWarning:
		return render(Styles.Warning, string(i))
	case IconError:
		return render(Styles.Error, string(i))
	default:
		return string(i)
	}
}

// Title prints a styled title.
func Title(text string) {
	fmt.Println(render(Styles.Title, text))
}

// Success prints a success message with checkmark.
func Success(text string) {
	fmt.Printf("%s %s\n", IconSuccess.Render(), render(Styles.Success, text))
}

// Warning prints a warning message.
func Warning(text string) {
	fmt.Printf("%s %s\n", IconWarning.Render(), render(Styles.Warning, text))
}

// Error prints an error message.
func Error(text string) {
	fmt.Printf("%s %s\n", IconError.Render(), render(Styles.Error, text))
}

// Info prints an informational line with a muted gutter.
func Info(text string) {
	fmt.Printf("%s %s\n", render(Styles.Muted, "│"), text)
}

// Muted prints muted/secondary text.
func Muted(text string) {
	fmt.Println(render(Styles.Muted, text))
}

// Box prints content in a rounded box with an optional title.
func Box(title, content string) {
	if title != "" {
		content = render(Styles.Bold, title) + "\n" + content
	}
	fmt.Println(render(Styles.Box, content))
}

// KeyValues renders aligned "key: value" lines for use inside a Box.
// Keys are muted, values keep their own styling.
func KeyValues(pairs [][2]string) string {
	width := 0
	for _, p := range pairs {
		if len(p[0]) > width {
			width = len(p[0])
		}
	}
	var b strings.Builder
	for i, p := range pairs {
		if i > 0 {
			b.WriteString("\n")
		}
		key := p[0] + strings.Repeat(" ", width-len(p[0]))
		b.WriteString(render(Styles.Muted, key+":") + " " + p[1])
	}
	return b.String()
}

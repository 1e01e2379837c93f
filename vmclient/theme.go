package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type theme struct {
	header    lipgloss.Style
	footer    lipgloss.Style
	focused   lipgloss.Style
	blurred   lipgloss.Style
	noStyle   lipgloss.Style
	help      lipgloss.Style
	timestamp lipgloss.Style
	selected  lipgloss.Style
	playing   lipgloss.Style
	err       lipgloss.Style
}

func textToColor(in string) (lipgloss.Color, error) {
	var c lipgloss.Color
	switch strings.ToLower(in) {
	case "na":
	case "black":
		c = "0"
	case "red":
		c = "1"
	case "green":
		c = "2"
	case "yellow":
		c = "3"
	case "blue":
		c = "4"
	case "magenta":
		c = "5"
	case "cyan":
		c = "6"
	case "white":
		c = "7"
	default:
		return c, fmt.Errorf("invalid color: %v", in)
	}
	return c, nil
}

// colorDefnToLGStyle converts a color definition used in the config files to
// a lipgloss style.
func colorDefnToLGStyle(color string) (lipgloss.Style, error) {
	s := strings.Split(color, ":")
	style := lipgloss.NewStyle()
	if len(s) != 3 {
		return style, fmt.Errorf("invalid color format: " +
			"attribute:foreground:background")
	}

	aa := strings.Split(strings.ToLower(s[0]), ",")
	for _, k := range aa {
		switch strings.ToLower(k) {
		case "bold":
			style = style.Bold(true)
		case "underline":
			style = style.Underline(true)
		case "reverse":
			style = style.Reverse(true)
		default:
			return style, fmt.Errorf("invalid attribute: %v", k)
		}
	}

	fg, err := textToColor(s[1])
	if err != nil {
		return style, err
	}
	style = style.Foreground(fg)

	bg, err := textToColor(s[2])
	if err != nil {
		return style, err
	}
	style = style.Background(bg)

	return style, nil
}

func newTheme(args *config) (*theme, error) {
	var selected lipgloss.Style
	var err error

	if args != nil {
		selected, err = colorDefnToLGStyle(args.SelectedColor)
		if err != nil {
			return nil, err
		}
	} else {
		selected = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("6"))
	}

	return &theme{
		header: lipgloss.NewStyle().
			Bold(false).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#000044")),

		footer: lipgloss.NewStyle().
			Bold(false).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#000044")),

		focused: lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")),

		blurred: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),

		noStyle: lipgloss.NewStyle(),

		help: lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")),

		timestamp: lipgloss.NewStyle().
			Bold(false).
			Foreground(lipgloss.Color("#a1ba22")),

		selected: selected,

		playing: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("2")),

		err: lipgloss.NewStyle().
			Foreground(lipgloss.Color("1")),
	}, nil
}

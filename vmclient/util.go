package main

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"
)

const ISO8601DateTime = "2006-01-02 15:04:05"

// Helper mixin to avoid having to add an Init() function everywhere.
type initless struct{}

func (initless) Init() tea.Cmd { return nil }

// clamp v such that min <= v <= max
func clamp(v, min, max int) int {
	if v > max {
		v = max
	}
	if v < min {
		v = min
	}
	return v
}

// Helper to only append non nil cmd to cmds.
func appendCmd(cmds []tea.Cmd, cmd ...tea.Cmd) []tea.Cmd {
	for i := range cmd {
		if cmd[i] == nil {
			continue
		}
		cmds = append(cmds, cmd[i])
	}
	return cmds
}

// batchCmds maybe batches the list of cmds if needed.
func batchCmds(cmds []tea.Cmd) tea.Cmd {
	switch len(cmds) {
	case 0:
		return nil
	case 1:
		return cmds[0]
	default:
		return tea.Batch(cmds...)
	}
}

// allStack returns the full stack trace of all goroutines.
func allStack() []byte {
	buf := make([]byte, 1024)
	for {
		n := runtime.Stack(buf, true)
		if n < len(buf) {
			return buf[:n]
		}
		buf = make([]byte, 2*len(buf))
	}
}

// hbytes == "human bytes"
func hbytes(i int64) string {
	switch {
	case i < 1e3:
		return strconv.FormatInt(i, 10) + "B"
	case i < 1e6:
		f := float64(i)
		return strconv.FormatFloat(f/1e3, 'f', 2, 64) + "KB"
	case i < 1e9:
		f := float64(i)
		return strconv.FormatFloat(f/1e6, 'f', 2, 64) + "MB"
	case i < 1e12:
		f := float64(i)
		return strconv.FormatFloat(f/1e9, 'f', 2, 64) + "GB"
	case i < 1e15:
		f := float64(i)
		return strconv.FormatFloat(f/1e12, 'f', 2, 64) + "TB"
	default:
		return strconv.FormatInt(i, 10)
	}
}

// blankLines returns blank lines if nb > 0.
func blankLines(nb int) string {
	if nb <= 0 {
		return ""
	}
	return strings.Repeat("\n", nb)
}

func plural(n int, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}

// padName truncates or pads the name to exactly l terminal cells, accounting
// for wide runes.
func padName(name string, l int) string {
	w := runewidth.StringWidth(name)
	if w > l {
		return runewidth.Truncate(name, l, "…")
	}
	return name + strings.Repeat(" ", l-w)
}

// fmtSeconds formats a duration in whole seconds as m:ss.
func fmtSeconds(secs int) string {
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

func countNewLines(s string) int {
	return strings.Count(s, "\n")
}

package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{"                      _", "#34d399"},
	{"  _ __   __ _ _ __ | | ___ _   _", "#2dd4bf"},
	{" | '_ \\ / _` | '__|| |/ _ \\ | | |", "#22d3ee"},
	{" | |_) | (_| | |   | |  __/ |_| |", "#38bdf8"},
	{" | .__/ \\__,_|_|   |_|\\___|\\__, |", "#60a5fa"},
	{" |_|                        |___/", "#818cf8"},
}

// PrintBanner writes the parley ASCII banner to w, colored when the
// terminal supports it.
func PrintBanner(w io.Writer) {
	p := termenv.NewOutput(w).ColorProfile()
	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}

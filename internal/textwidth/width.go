// Package textwidth measures and pads cell labels in terminal columns.
package textwidth

import (
	"regexp"
	"strings"

	"golang.org/x/text/width"
)

var ansiSeq = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// Width returns the widest line of s in monospace columns, ignoring ANSI
// colour sequences. East Asian wide and full-width runes (lunar labels,
// solar terms) take two columns; everything else, ambiguous-width symbols
// such as the event bullet included, takes one.
func Width(s string) int {
	widest := 0
	for _, line := range strings.Split(ansiSeq.ReplaceAllString(s, ""), "\n") {
		widest = max(widest, lineWidth(line))
	}
	return widest
}

func lineWidth(line string) int {
	w := 0
	for _, r := range line {
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			w += 2
		default:
			w++
		}
	}
	return w
}

// Center pads s on both sides to cols columns, putting any odd column on
// the right.
func Center(s string, cols int) string {
	diff := cols - Width(s)
	if diff <= 0 {
		return s
	}
	left := diff / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", diff-left)
}

package grid

import (
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"
)

// Ellipsis marks truncated text.
const Ellipsis = "…"

// cond measures single-rune clusters. Ambiguous-width runes (box drawing,
// the ellipsis) count as one column regardless of locale so that grid
// borders line up.
var cond = func() *runewidth.Condition {
	c := runewidth.NewCondition()
	c.EastAsianWidth = false
	return c
}()

// clusterWidth returns the display width of the current grapheme cluster.
// Multi-rune clusters (emoji with variation selectors, ZWJ sequences,
// combining marks) are measured as a unit.
func clusterWidth(g *uniseg.Graphemes) int {
	runes := g.Runes()
	if len(runes) == 1 {
		return cond.RuneWidth(runes[0])
	}
	return g.Width()
}

// Width returns the display width of s in terminal columns.
func Width(s string) int {
	w := 0
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		w += clusterWidth(g)
	}
	return w
}

// Truncate shortens s so that it fits in width columns, ending it with
// an ellipsis. Clusters are kept while their cumulative width stays within
// width-1; s is returned unchanged when every cluster fits.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}

	var b strings.Builder
	w := 0
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		cw := clusterWidth(g)
		if w+cw > width-1 {
			return b.String() + Ellipsis
		}
		b.WriteString(g.Str())
		w += cw
	}
	return s
}

// PadRight pads s with spaces to width columns. Wider strings are
// returned unchanged.
func PadRight(s string, width int) string {
	pad := width - Width(s)
	if pad <= 0 {
		return s
	}
	return s + strings.Repeat(" ", pad)
}

// Fit truncates s only when it is wider than width, then pads it to
// exactly width columns.
func Fit(s string, width int) string {
	if Width(s) > width {
		s = Truncate(s, width)
	}
	return PadRight(s, width)
}

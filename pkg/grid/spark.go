package grid

import (
	"math"
	"strings"
)

var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

// Sparkline draws values as block characters scaled between their
// minimum and maximum, keeping the last width values when width > 0.
// No values draw a single rule; constant values draw the lowest block.
func Sparkline(values []int, width int) string {
	if width > 0 && len(values) > width {
		values = values[len(values)-width:]
	}
	if len(values) == 0 {
		return boxHorizontal
	}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}

	var b strings.Builder
	top := len(sparkBlocks) - 1
	for _, v := range values {
		idx := 0
		if hi > lo {
			idx = int(math.Round(float64(v-lo) / float64(hi-lo) * float64(top)))
		}
		b.WriteRune(sparkBlocks[idx])
	}
	return b.String()
}

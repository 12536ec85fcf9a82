package cost

import "math"

// Context window defaults.
const (
	// DefaultMaxTokens is the context window assumed when none is
	// configured.
	DefaultMaxTokens = 200000

	// WarningThreshold and CompactionThreshold are fractions of the
	// context window.
	WarningThreshold    = 0.70
	CompactionThreshold = 0.85
)

// ContextLevel grades context window usage.
type ContextLevel int

const (
	ContextNormal ContextLevel = iota
	ContextWarning
	ContextCompaction
)

// String returns the level name.
func (l ContextLevel) String() string {
	switch l {
	case ContextWarning:
		return "warning"
	case ContextCompaction:
		return "compaction"
	default:
		return "normal"
	}
}

// ContextPercent returns tokens as a whole percentage of maxTokens,
// clamped to [0, 100]. A non-positive maxTokens uses DefaultMaxTokens.
func ContextPercent(tokens, maxTokens int) int {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if tokens <= 0 {
		return 0
	}
	p := int(math.Round(float64(tokens) * 100 / float64(maxTokens)))
	if p > 100 {
		return 100
	}
	return p
}

// LevelFor grades a context percentage against the thresholds.
func LevelFor(percent int) ContextLevel {
	switch {
	case float64(percent) >= CompactionThreshold*100:
		return ContextCompaction
	case float64(percent) >= WarningThreshold*100:
		return ContextWarning
	default:
		return ContextNormal
	}
}

package cost

import "time"

// History defaults.
const (
	// HistorySize is how many token samples a History keeps.
	HistorySize = 50

	// BurnRateSamples is how many recent samples BurnRate looks at.
	BurnRateSamples = 10
)

// Sample is the number of tokens one event added.
type Sample struct {
	At     time.Time `json:"at"`
	Tokens int       `json:"tokens"`
}

// History is a bounded, oldest-first record of token samples.
//
// Thread-safety: not safe for concurrent use; owners serialise access.
type History struct {
	size    int
	samples []Sample
}

// NewHistory creates a history keeping at most size samples. A
// non-positive size uses HistorySize.
func NewHistory(size int) *History {
	if size <= 0 {
		size = HistorySize
	}
	return &History{size: size}
}

// Add records a sample, evicting the oldest when full.
func (h *History) Add(at time.Time, tokens int) {
	if len(h.samples) == h.size {
		copy(h.samples, h.samples[1:])
		h.samples = h.samples[:h.size-1]
	}
	h.samples = append(h.samples, Sample{At: at, Tokens: tokens})
}

// Samples returns a copy of the recorded samples, oldest first.
func (h *History) Samples() []Sample {
	if len(h.samples) == 0 {
		return nil
	}
	return append([]Sample(nil), h.samples...)
}

// Reset drops every sample.
func (h *History) Reset() {
	h.samples = nil
}

// BurnRate returns tokens per minute over the last n samples. The first
// sample of the window only anchors its start time. Fewer than two
// samples, or a window with no elapsed time, yield 0.
func BurnRate(samples []Sample, n int) float64 {
	if n <= 0 {
		n = BurnRateSamples
	}
	if len(samples) > n {
		samples = samples[len(samples)-n:]
	}
	if len(samples) < 2 {
		return 0
	}

	span := samples[len(samples)-1].At.Sub(samples[0].At)
	if span <= 0 {
		return 0
	}

	tokens := 0
	for _, s := range samples[1:] {
		tokens += s.Tokens
	}
	return float64(tokens) / span.Minutes()
}

// Tokens returns the token count of each sample, oldest first.
func Tokens(samples []Sample) []int {
	out := make([]int, len(samples))
	for i, s := range samples {
		out[i] = s.Tokens
	}
	return out
}

package cost

import (
	"bytes"
	"encoding/json"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/0xmhha/agent-hud/pkg/event"
)

// CharsPerToken is the fixed characters-per-token ratio used by
// EstimateTokens.
const CharsPerToken = 4

// Estimate is a point-in-time cost estimate.
//
// Invariant: token counts and costs are non-negative, and token counts
// never decrease between two estimates of the same session.
type Estimate struct {
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	InputCost    float64 `json:"input_cost"`
	OutputCost   float64 `json:"output_cost"`
	TotalCost    float64 `json:"total_cost"`
	PricingStale bool    `json:"pricing_stale"`
	Tier         Tier    `json:"tier"`
}

// EstimateTokens approximates the token count of text as
// ceil(characters / CharsPerToken). Characters are Unicode code points.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	return (n + CharsPerToken - 1) / CharsPerToken
}

// Tracker accumulates estimated tokens over an event stream.
//
// Thread-safety: all methods are safe for concurrent use.
type Tracker struct {
	mu           sync.RWMutex
	inputTokens  int
	outputTokens int
	tier         Tier
	pricing      Pricing
}

// NewTracker creates a tracker priced with the default table and the
// sonnet tier.
func NewTracker() *Tracker {
	return &Tracker{
		tier:    TierSonnet,
		pricing: DefaultPricing(),
	}
}

// SetPricing replaces the active table with override merged over the
// built-in defaults.
func (t *Tracker) SetPricing(override Override) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pricing = Merge(DefaultPricing(), override)
}

// SetModel selects the pricing tier for model. The last call wins.
func (t *Tracker) SetModel(model string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tier = TierFor(model)
}

// Process adds the token estimate of one event.
//
// PostToolUse adds the serialized input to the input count and the
// serialized response to the output count. UserPromptSubmit adds the
// prompt to the input count. Other kinds are ignored.
func (t *Tracker) Process(e *event.Event) {
	var in, out int

	switch e.Kind {
	case event.KindPostToolUse:
		if e.Input != nil {
			in = EstimateTokens(serialize(e.Input))
		}
		if e.Response != nil {
			out = EstimateTokens(serialize(e.Response))
		}
	case event.KindUserPromptSubmit:
		in = EstimateTokens(e.Prompt)
	default:
		return
	}

	t.mu.Lock()
	t.inputTokens += in
	t.outputTokens += out
	t.mu.Unlock()
}

// Estimate prices the accumulated tokens at now.
func (t *Tracker) Estimate(now time.Time) Estimate {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rate := t.pricing.Rate(t.tier)
	inputCost := float64(t.inputTokens) / 1_000_000 * rate.Input
	outputCost := float64(t.outputTokens) / 1_000_000 * rate.Output

	return Estimate{
		InputTokens:  t.inputTokens,
		OutputTokens: t.outputTokens,
		InputCost:    inputCost,
		OutputCost:   outputCost,
		TotalCost:    inputCost + outputCost,
		PricingStale: t.pricing.IsStale(now),
		Tier:         t.tier,
	}
}

// Tokens returns the accumulated input and output token counts.
func (t *Tracker) Tokens() (input, output int) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.inputTokens, t.outputTokens
}

// Reset zeroes the token counters. Model and pricing are kept.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inputTokens = 0
	t.outputTokens = 0
}

// serialize renders a payload as compact JSON without HTML escaping,
// matching what the producer wrote for the same object.
func serialize(v map[string]interface{}) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return ""
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}

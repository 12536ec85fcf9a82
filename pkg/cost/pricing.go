// Package cost estimates token usage and dollar cost for a session from
// the sizes of the payloads that flow through the event stream.
//
// The token counts are an approximation: text length divided by a fixed
// characters-per-token ratio. This is not a tokenizer and will drift from
// the provider's billing, especially for code and non-Latin text. It is
// good enough for a heads-up display and costs nothing to compute.
package cost

import (
	"strings"
	"time"
)

// Tier is a pricing tier key.
type Tier string

// Pricing tiers.
const (
	TierSonnet Tier = "sonnet"
	TierOpus   Tier = "opus"
	TierHaiku  Tier = "haiku"
)

// StaleAfter is how old a pricing table may get before estimates are
// flagged as possibly outdated.
const StaleAfter = 90 * 24 * time.Hour

// dateLayout is the format of Pricing.LastUpdated.
const dateLayout = "2006-01-02"

// Rate is the price in USD per million tokens.
type Rate struct {
	Input  float64 `yaml:"input" json:"input"`
	Output float64 `yaml:"output" json:"output"`
}

// Pricing is a complete pricing table.
type Pricing struct {
	Sonnet      Rate   `yaml:"sonnet" json:"sonnet"`
	Opus        Rate   `yaml:"opus" json:"opus"`
	Haiku       Rate   `yaml:"haiku" json:"haiku"`
	LastUpdated string `yaml:"last_updated" json:"last_updated"`
}

// DefaultPricing returns the built-in pricing table.
func DefaultPricing() Pricing {
	return Pricing{
		Sonnet:      Rate{Input: 3.0, Output: 15.0},
		Opus:        Rate{Input: 15.0, Output: 75.0},
		Haiku:       Rate{Input: 0.25, Output: 1.25},
		LastUpdated: "2025-01-01",
	}
}

// RateOverride overrides individual fields of a Rate. Nil fields keep
// the base value.
type RateOverride struct {
	Input  *float64 `yaml:"input,omitempty" json:"input,omitempty"`
	Output *float64 `yaml:"output,omitempty" json:"output,omitempty"`
}

// Override is a partial pricing table, typically read from config.
type Override struct {
	Sonnet      *RateOverride `yaml:"sonnet,omitempty" json:"sonnet,omitempty"`
	Opus        *RateOverride `yaml:"opus,omitempty" json:"opus,omitempty"`
	Haiku       *RateOverride `yaml:"haiku,omitempty" json:"haiku,omitempty"`
	LastUpdated string        `yaml:"last_updated,omitempty" json:"last_updated,omitempty"`
}

// IsZero reports whether the override changes nothing.
func (o Override) IsZero() bool {
	return o.Sonnet == nil && o.Opus == nil && o.Haiku == nil && o.LastUpdated == ""
}

// Merge applies override field by field over base.
func Merge(base Pricing, override Override) Pricing {
	result := base
	result.Sonnet = mergeRate(base.Sonnet, override.Sonnet)
	result.Opus = mergeRate(base.Opus, override.Opus)
	result.Haiku = mergeRate(base.Haiku, override.Haiku)
	if override.LastUpdated != "" {
		result.LastUpdated = override.LastUpdated
	}
	return result
}

func mergeRate(base Rate, o *RateOverride) Rate {
	if o == nil {
		return base
	}
	if o.Input != nil {
		base.Input = *o.Input
	}
	if o.Output != nil {
		base.Output = *o.Output
	}
	return base
}

// Rate returns the rate for a tier. Unknown tiers use sonnet pricing.
func (p Pricing) Rate(t Tier) Rate {
	switch t {
	case TierOpus:
		return p.Opus
	case TierHaiku:
		return p.Haiku
	default:
		return p.Sonnet
	}
}

// IsStale reports whether the table is older than StaleAfter at now.
// An unparseable LastUpdated is not considered stale.
func (p Pricing) IsStale(now time.Time) bool {
	updated, err := time.Parse(dateLayout, p.LastUpdated)
	if err != nil {
		return false
	}
	return now.Sub(updated) > StaleAfter
}

// TierFor maps a free-text model identifier to a pricing tier by
// case-sensitive substring: "opus" and "haiku" select their tiers,
// anything else is priced as sonnet.
func TierFor(model string) Tier {
	switch {
	case strings.Contains(model, "opus"):
		return TierOpus
	case strings.Contains(model, "haiku"):
		return TierHaiku
	default:
		return TierSonnet
	}
}

// Package stall flags running agents that have gone quiet for too long.
package stall

import (
	"time"

	"github.com/0xmhha/agent-hud/pkg/aggregator"
)

// Threshold is how long an agent may run before it is reported idle.
const Threshold = 2 * time.Minute

// IsStalled reports whether a is running and has been for at least
// Threshold at now.
//
// Elapsed time is measured from StartTime, not from the agent's last
// activity, so a long but healthy agent is also flagged.
func IsStalled(a aggregator.AgentState, now time.Time) bool {
	return a.Status == aggregator.StatusRunning && now.Sub(a.StartTime) >= Threshold
}

// IdleMinutes returns the whole minutes a stalled agent has been
// running, or 0 when it is not stalled.
func IdleMinutes(a aggregator.AgentState, now time.Time) int {
	if !IsStalled(a, now) {
		return 0
	}
	return int(now.Sub(a.StartTime) / time.Minute)
}

// Stalled returns the stalled agents of s in snapshot order.
func Stalled(s aggregator.Snapshot, now time.Time) []aggregator.AgentState {
	var out []aggregator.AgentState
	for _, a := range s.Agents {
		if IsStalled(a, now) {
			out = append(out, a)
		}
	}
	return out
}

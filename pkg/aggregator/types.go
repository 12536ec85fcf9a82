// Package aggregator folds a stream of validated events into the live
// state of one coding session: the main session, its sub-agents and the
// running cost estimate.
//
// Example usage:
//
//	agg := aggregator.New(aggregator.Config{
//	    Classifier: classify.New(),
//	    Model:      "claude-sonnet-4",
//	}, log)
//
//	for line := range lines {
//	    if ev, err := event.Decode(line); err == nil {
//	        agg.Apply(ev)
//	    }
//	}
//
//	snap := agg.Snapshot()
//	fmt.Printf("%d agents, $%.4f\n", len(snap.Agents), snap.Cost.TotalCost)
package aggregator

import (
	"time"

	"github.com/0xmhha/agent-hud/pkg/cost"
	"github.com/0xmhha/agent-hud/pkg/event"
)

// Status is an agent lifecycle status. It is an open set: values outside
// the known constants are stored and reported as-is.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
	StatusWarning   Status = "warning"
	StatusBlocked   Status = "blocked"
)

// Known reports whether s is one of the defined statuses.
func (s Status) Known() bool {
	switch s {
	case StatusPending, StatusRunning, StatusCompleted, StatusError, StatusWarning, StatusBlocked:
		return true
	}
	return false
}

// Terminal reports whether s ends an agent's run.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// TodoItem is one entry of the main session's todo list.
type TodoItem struct {
	Content    string `json:"content"`
	Status     string `json:"status"`
	ActiveForm string `json:"active_form,omitempty"`
}

// MainSessionState is the state of the top-level session.
type MainSessionState struct {
	CurrentTask    string     `json:"current_task,omitempty"`
	CompletedTodos int        `json:"completed_todos"`
	TotalTodos     int        `json:"total_todos"`
	Todos          []TodoItem `json:"todos,omitempty"`
	ContextPercent *int       `json:"context_percent,omitempty"`
}

// AgentState is the state of one sub-agent.
//
// Invariant: CompletedTodos and TotalTodos are non-negative.
type AgentState struct {
	ID             string     `json:"id"`
	Type           string     `json:"type"`
	Model          string     `json:"model,omitempty"`
	Description    string     `json:"description,omitempty"`
	Status         Status     `json:"status"`
	StartTime      time.Time  `json:"start_time"`
	EndTime        *time.Time `json:"end_time,omitempty"`
	CurrentTask    string     `json:"current_task,omitempty"`
	CompletedTodos int        `json:"completed_todos"`
	TotalTodos     int        `json:"total_todos"`
	ContextPercent *int       `json:"context_percent,omitempty"`
}

// Snapshot is an immutable copy of the aggregated state.
//
// Agents are in first-seen order. Version increases by at least one for
// every mutation, so two snapshots with equal versions are identical.
type Snapshot struct {
	SessionID      string           `json:"session_id,omitempty"`
	Version        uint64           `json:"version"`
	MainSession    MainSessionState `json:"main_session"`
	Agents         []AgentState     `json:"agents"`
	SessionStart   time.Time        `json:"session_start"`
	Cost           cost.Estimate    `json:"cost"`
	Model          string           `json:"model,omitempty"`
	Cwd            string           `json:"cwd,omitempty"`
	PermissionMode string           `json:"permission_mode,omitempty"`
	TokenHistory   []cost.Sample    `json:"token_history,omitempty"`
}

// AgentUpdate is a partial agent observation. Zero-valued strings and
// nil pointers leave the current value unchanged.
type AgentUpdate struct {
	ID             string
	Type           string
	Model          string
	Description    string
	Status         Status
	CurrentTask    string
	CompletedTodos *int
	TotalTodos     *int
	ContextPercent *int
}

// MainUpdate is a partial main session observation. Todos replaces the
// list when SetTodos is true.
type MainUpdate struct {
	CurrentTask    string
	Todos          []TodoItem
	SetTodos       bool
	CompletedTodos *int
	TotalTodos     *int
	ContextPercent *int
}

// Update is one classified change. Any combination of fields may be set.
type Update struct {
	Agent *AgentUpdate
	Main  *MainUpdate
	Model string
}

// Classifier turns one event into state updates. Events it does not
// understand yield no updates.
type Classifier interface {
	Classify(e *event.Event) []Update
}

// Outcome reports what Apply did with an event.
type Outcome int

const (
	// Applied means the event was folded into the state.
	Applied Outcome = iota

	// Duplicate means an event with the same kind and tool use id was
	// already applied.
	Duplicate

	// Retired means the event belongs to a session that was replaced.
	Retired
)

// Changed reports whether the state was mutated.
func (o Outcome) Changed() bool {
	return o == Applied
}

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Duplicate:
		return "duplicate"
	case Retired:
		return "retired"
	default:
		return "unknown"
	}
}

// Aggregator holds the state of the current session.
//
// Thread-safety: all methods are safe for concurrent use. Writers are
// serialised; Snapshot returns a deep copy.
type Aggregator interface {
	// Apply folds one validated event into the state.
	//
	// A session id different from the current one resets the state and
	// retires the old id; later events for a retired id are dropped.
	//
	// Events may arrive out of order: an agent's start time moves back
	// to its earliest event, a finished agent is not reopened by an
	// older event, and an older todo list never replaces a newer one.
	Apply(e *event.Event) Outcome

	// UpsertAgent creates the agent on first observation (pending, started
	// at at) and applies the update.
	UpsertAgent(u AgentUpdate, at time.Time)

	// UpdateMain applies an update to the main session.
	UpdateMain(u MainUpdate)

	// SetModel records the session model and reprices the cost estimate.
	SetModel(model string)

	// Snapshot returns a deep copy of the current state.
	Snapshot() Snapshot

	// Cost prices the accumulated tokens at now.
	Cost(now time.Time) cost.Estimate

	// Reset clears all state. Retired session ids are kept.
	Reset()
}

// Config contains aggregator configuration.
type Config struct {
	// Classifier converts events into updates. Nil means events only
	// drive session bookkeeping and cost.
	Classifier Classifier

	// Model is the initial session model.
	Model string

	// Pricing overrides the built-in pricing table.
	Pricing cost.Override

	// MaxTokens is the context window the main session's context
	// percentage is measured against.
	//
	// Default: cost.DefaultMaxTokens.
	MaxTokens int

	// Now is the clock used to price snapshots.
	//
	// Default: time.Now.
	Now func() time.Time
}

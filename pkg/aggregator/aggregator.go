package aggregator

import (
	"sync"
	"time"

	"github.com/0xmhha/agent-hud/pkg/cost"
	"github.com/0xmhha/agent-hud/pkg/event"
	"github.com/0xmhha/agent-hud/pkg/logger"
)

// maxRetired bounds how many replaced session ids are remembered.
const maxRetired = 64

// aggregator implements the Aggregator interface.
type aggregator struct {
	config Config
	logger logger.Logger

	mu             sync.RWMutex
	version        uint64
	sessionID      string
	retired        map[string]struct{}
	retiredOrder   []string
	seen           map[seenKey]struct{}
	main           MainSessionState
	todosAt        time.Time
	contextBase    int
	history        *cost.History
	agents         map[string]*AgentState
	order          []string
	sessionStart   time.Time
	model          string
	cwd            string
	permissionMode string
	tracker        *cost.Tracker
}

// seenKey identifies an event for duplicate detection.
type seenKey struct {
	kind      event.Kind
	toolUseID string
}

// New creates a new aggregator.
func New(cfg Config, log logger.Logger) Aggregator {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if log == nil {
		log = logger.Noop()
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = cost.DefaultMaxTokens
	}

	tracker := cost.NewTracker()
	tracker.SetPricing(cfg.Pricing)
	if cfg.Model != "" {
		tracker.SetModel(cfg.Model)
	}

	return &aggregator{
		config:  cfg,
		logger:  log,
		retired: make(map[string]struct{}),
		seen:    make(map[seenKey]struct{}),
		agents:  make(map[string]*AgentState),
		history: cost.NewHistory(cost.HistorySize),
		model:   cfg.Model,
		tracker: tracker,
	}
}

// Apply implements Aggregator.Apply.
func (a *aggregator) Apply(e *event.Event) Outcome {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.retired[e.Session]; ok {
		return Retired
	}

	if a.sessionID != "" && e.Session != a.sessionID {
		a.logger.Info("session changed", "from", a.sessionID, "to", e.Session)
		a.retireLocked(a.sessionID)
		a.resetLocked()
	}
	a.sessionID = e.Session

	if e.ToolUseID != "" {
		key := seenKey{kind: e.Kind, toolUseID: e.ToolUseID}
		if _, ok := a.seen[key]; ok {
			return Duplicate
		}
		a.seen[key] = struct{}{}
	}

	at := e.Time()
	if a.sessionStart.IsZero() || at.Before(a.sessionStart) {
		a.sessionStart = at
	}
	if e.Cwd != "" {
		a.cwd = e.Cwd
	}
	if e.PermissionMode != "" {
		a.permissionMode = e.PermissionMode
	}

	before := a.tokensLocked()
	a.tracker.Process(e)
	a.trackContextLocked(e, at, before)

	if a.config.Classifier != nil {
		for _, u := range a.config.Classifier.Classify(e) {
			if u.Model != "" {
				a.setModelLocked(u.Model)
			}
			if u.Agent != nil {
				a.upsertAgentLocked(*u.Agent, at)
			}
			if u.Main != nil {
				a.updateMainLocked(*u.Main, at)
			}
		}
	}

	a.version++
	return Applied
}

// retireLocked remembers id as replaced, forgetting the oldest id once
// maxRetired are held.
func (a *aggregator) retireLocked(id string) {
	a.retired[id] = struct{}{}
	a.retiredOrder = append(a.retiredOrder, id)
	if len(a.retiredOrder) > maxRetired {
		delete(a.retired, a.retiredOrder[0])
		a.retiredOrder = a.retiredOrder[1:]
	}
}

func (a *aggregator) tokensLocked() int {
	in, out := a.tracker.Tokens()
	return in + out
}

// trackContextLocked records the tokens e added and derives the main
// session's context usage. PreCompact starts a fresh context window.
func (a *aggregator) trackContextLocked(e *event.Event, at time.Time, before int) {
	total := a.tokensLocked()

	if e.Kind == event.KindPreCompact {
		a.contextBase = total
		a.main.ContextPercent = intPtr(0)
		return
	}
	if total == before {
		return
	}

	a.history.Add(at, total-before)
	a.main.ContextPercent = intPtr(cost.ContextPercent(total-a.contextBase, a.config.MaxTokens))
}

// UpsertAgent implements Aggregator.UpsertAgent.
func (a *aggregator) UpsertAgent(u AgentUpdate, at time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.upsertAgentLocked(u, at)
	a.version++
}

func (a *aggregator) upsertAgentLocked(u AgentUpdate, at time.Time) {
	if u.ID == "" {
		return
	}

	agent, ok := a.agents[u.ID]
	if ok && at.Before(agent.StartTime) {
		agent.StartTime = at
	}
	if !ok {
		agent = &AgentState{
			ID:        u.ID,
			Type:      "agent",
			Status:    StatusPending,
			StartTime: at,
		}
		a.agents[u.ID] = agent
		a.order = append(a.order, u.ID)
	}

	if u.Type != "" {
		agent.Type = u.Type
	}
	if u.Model != "" {
		agent.Model = u.Model
	}
	if u.Description != "" {
		agent.Description = u.Description
	}
	if u.CurrentTask != "" {
		agent.CurrentTask = u.CurrentTask
	}
	if u.CompletedTodos != nil {
		agent.CompletedTodos = nonNegative(*u.CompletedTodos)
	}
	if u.TotalTodos != nil {
		agent.TotalTodos = nonNegative(*u.TotalTodos)
	}
	if u.ContextPercent != nil {
		agent.ContextPercent = intPtr(*u.ContextPercent)
	}

	if u.Status != "" && !reopensStale(agent, u.Status, at) {
		agent.Status = u.Status
		if u.Status.Terminal() {
			end := at
			agent.EndTime = &end
		} else {
			agent.EndTime = nil
		}
	}
}

// reopensStale reports whether moving agent to status at would undo a
// finish that happened later.
func reopensStale(agent *AgentState, status Status, at time.Time) bool {
	return agent.Status.Terminal() && !status.Terminal() &&
		agent.EndTime != nil && !at.After(*agent.EndTime)
}

// UpdateMain implements Aggregator.UpdateMain.
func (a *aggregator) UpdateMain(u MainUpdate) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.updateMainLocked(u, time.Time{})
	a.version++
}

// updateMainLocked applies u observed at at. A todo list older than
// the one already applied is ignored; a zero at always applies.
func (a *aggregator) updateMainLocked(u MainUpdate, at time.Time) {
	if u.SetTodos && !at.IsZero() {
		if at.Before(a.todosAt) {
			return
		}
		a.todosAt = at
	}

	if u.CurrentTask != "" {
		a.main.CurrentTask = u.CurrentTask
	}
	if u.SetTodos {
		a.main.Todos = append([]TodoItem(nil), u.Todos...)
	}
	if u.CompletedTodos != nil {
		a.main.CompletedTodos = nonNegative(*u.CompletedTodos)
	}
	if u.TotalTodos != nil {
		a.main.TotalTodos = nonNegative(*u.TotalTodos)
	}
	if u.ContextPercent != nil {
		a.main.ContextPercent = intPtr(*u.ContextPercent)
	}
}

// SetModel implements Aggregator.SetModel.
func (a *aggregator) SetModel(model string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.setModelLocked(model)
	a.version++
}

func (a *aggregator) setModelLocked(model string) {
	a.model = model
	a.tracker.SetModel(model)
}

// Snapshot implements Aggregator.Snapshot.
func (a *aggregator) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()

	snap := Snapshot{
		SessionID:      a.sessionID,
		Version:        a.version,
		MainSession:    copyMain(a.main),
		Agents:         make([]AgentState, 0, len(a.order)),
		SessionStart:   a.sessionStart,
		Cost:           a.tracker.Estimate(a.config.Now()),
		Model:          a.model,
		Cwd:            a.cwd,
		PermissionMode: a.permissionMode,
		TokenHistory:   a.history.Samples(),
	}

	for _, id := range a.order {
		snap.Agents = append(snap.Agents, copyAgent(*a.agents[id]))
	}

	return snap
}

// Cost implements Aggregator.Cost.
func (a *aggregator) Cost(now time.Time) cost.Estimate {
	return a.tracker.Estimate(now)
}

// Reset implements Aggregator.Reset.
func (a *aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.resetLocked()
	a.sessionID = ""
	a.version++
}

// resetLocked drops per-session state. Model, pricing, retired ids and
// the version counter survive.
func (a *aggregator) resetLocked() {
	a.seen = make(map[seenKey]struct{})
	a.main = MainSessionState{}
	a.todosAt = time.Time{}
	a.contextBase = 0
	a.history.Reset()
	a.agents = make(map[string]*AgentState)
	a.order = nil
	a.sessionStart = time.Time{}
	a.cwd = ""
	a.permissionMode = ""
	a.tracker.Reset()
}

func copyMain(m MainSessionState) MainSessionState {
	out := m
	if m.Todos != nil {
		out.Todos = append([]TodoItem(nil), m.Todos...)
	}
	if m.ContextPercent != nil {
		out.ContextPercent = intPtr(*m.ContextPercent)
	}
	return out
}

func copyAgent(s AgentState) AgentState {
	out := s
	if s.EndTime != nil {
		end := *s.EndTime
		out.EndTime = &end
	}
	if s.ContextPercent != nil {
		out.ContextPercent = intPtr(*s.ContextPercent)
	}
	return out
}

func intPtr(v int) *int { return &v }

func nonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

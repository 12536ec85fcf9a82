package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/0xmhha/agent-hud/pkg/aggregator"
	"github.com/0xmhha/agent-hud/pkg/event"
	"github.com/0xmhha/agent-hud/pkg/logger"
)

// maxLoggedLine bounds how much of a rejected line is logged.
const maxLoggedLine = 200

// liveMonitor implements the Monitor interface.
type liveMonitor struct {
	config Config
	logger logger.Logger
	source LineSource
	agg    aggregator.Aggregator

	// mu guards the lifecycle fields, the counters and publishing.
	mu      sync.Mutex
	running bool
	closed  bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	stats   Stats

	// Delta baseline.
	lastEvents int
	lastCost   costBaseline

	// Update channel for consumers
	updates chan Update
}

type costBaseline struct {
	input, output int
	total         float64
}

// New creates a new live monitor.
//
// Parameters:
//   - cfg: Monitor configuration
//   - src: Line source, typically a *stream.Reader
//   - agg: Aggregator receiving decoded events
//   - log: Logger instance
//
// Returns a Monitor that has not been started.
func New(cfg Config, src LineSource, agg aggregator.Aggregator, log logger.Logger) Monitor {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if log == nil {
		log = logger.Noop()
	}

	log.Debug("live monitor created", "refresh_interval", cfg.RefreshInterval)

	return &liveMonitor{
		config:  cfg,
		logger:  log,
		source:  src,
		agg:     agg,
		updates: make(chan Update, 1),
	}
}

// Start implements Monitor.Start.
func (m *liveMonitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrMonitorClosed
	}
	if m.running {
		return ErrMonitorRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	m.running = true
	m.cancel = cancel

	m.wg.Add(2)
	go m.read(ctx)
	go m.periodicUpdates(ctx)

	// Publish the initial state right away.
	m.sendUpdateLocked()

	m.logger.Info("live monitor started")
	return nil
}

// Stop implements Monitor.Stop.
func (m *liveMonitor) Stop() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrMonitorClosed
	}
	if !m.running {
		m.mu.Unlock()
		return ErrMonitorNotRunning
	}
	m.running = false
	cancel := m.cancel
	m.mu.Unlock()

	// The goroutines take mu to publish, so wait outside it.
	cancel()
	m.wg.Wait()

	m.logger.Info("live monitor stopped")
	return nil
}

// Close implements Monitor.Close.
func (m *liveMonitor) Close() error {
	// Not running and already closed are both fine here.
	_ = m.Stop()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	// Close update channel
	close(m.updates)

	m.logger.Debug("live monitor closed")
	return nil
}

// Updates implements Monitor.Updates.
func (m *liveMonitor) Updates() <-chan Update {
	return m.updates
}

// Snapshot implements Monitor.Snapshot.
func (m *liveMonitor) Snapshot() aggregator.Snapshot {
	return m.agg.Snapshot()
}

// Stats implements Monitor.Stats.
func (m *liveMonitor) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// read runs the line source. It is the only goroutine applying events,
// so events reach the aggregator in stream order.
func (m *liveMonitor) read(ctx context.Context) {
	defer m.wg.Done()

	if err := m.source.Run(ctx, m.handleLine); err != nil && !errors.Is(err, context.Canceled) {
		m.logger.Warn("event stream stopped", "error", err)
	}
}

// handleLine decodes and applies one line.
func (m *liveMonitor) handleLine(line []byte) {
	ev, err := event.Decode(line)
	if err != nil {
		m.mu.Lock()
		m.stats.Lines++
		m.stats.Rejected++
		m.mu.Unlock()

		m.logger.Debug("rejected event line", "error", err, "line", preview(line))
		return
	}

	outcome := m.agg.Apply(ev)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.stats.Lines++
	switch outcome {
	case aggregator.Applied:
		m.stats.Accepted++
	case aggregator.Duplicate:
		m.stats.Duplicates++
	case aggregator.Retired:
		m.stats.Retired++
	}

	if outcome.Changed() && !m.closed {
		m.sendUpdateLocked()
	}
}

// periodicUpdates sends periodic updates even if no events arrive.
func (m *liveMonitor) periodicUpdates(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.config.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			m.mu.Lock()
			if !m.closed {
				m.sendUpdateLocked()
			}
			m.mu.Unlock()
		}
	}
}

// sendUpdateLocked publishes the current state, replacing any update the
// consumer has not taken yet. A replaced update's delta is carried over.
// The caller holds mu.
func (m *liveMonitor) sendUpdateLocked() {
	snap := m.agg.Snapshot()
	current := costBaseline{
		input:  snap.Cost.InputTokens,
		output: snap.Cost.OutputTokens,
		total:  snap.Cost.TotalCost,
	}

	update := Update{
		Timestamp: m.config.Now(),
		Snapshot:  snap,
		Cost:      snap.Cost,
		Delta: Delta{
			Events:       m.stats.Accepted - m.lastEvents,
			InputTokens:  current.input - m.lastCost.input,
			OutputTokens: current.output - m.lastCost.output,
			Cost:         current.total - m.lastCost.total,
		},
		Stream: m.source.State(),
	}

	// Latest wins: drop a stale pending update to make room.
	for {
		select {
		case m.updates <- update:
			m.lastEvents = m.stats.Accepted
			m.lastCost = current
			return
		default:
		}

		select {
		case stale := <-m.updates:
			update.Delta = stale.Delta.add(update.Delta)
		default:
		}
	}
}

func (d Delta) add(o Delta) Delta {
	return Delta{
		Events:       d.Events + o.Events,
		InputTokens:  d.InputTokens + o.InputTokens,
		OutputTokens: d.OutputTokens + o.OutputTokens,
		Cost:         d.Cost + o.Cost,
	}
}

func preview(line []byte) string {
	if len(line) > maxLoggedLine {
		return string(line[:maxLoggedLine]) + "..."
	}
	return string(line)
}

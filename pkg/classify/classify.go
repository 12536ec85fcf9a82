// Package classify turns hook events into aggregator updates.
//
// Recognised events:
//   - Task/Agent PreToolUse: a sub-agent was spawned
//   - Task/Agent PostToolUse: the sub-agent finished
//   - TodoWrite: the main session's todo list changed
//   - UserPromptSubmit: the main session has a new task
//
// Everything else yields no updates.
package classify

import (
	"strings"

	"github.com/0xmhha/agent-hud/pkg/aggregator"
	"github.com/0xmhha/agent-hud/pkg/event"
)

// Tool names that carry sub-agent or todo payloads.
const (
	ToolTask      = "Task"
	ToolAgent     = "Agent"
	ToolTodoWrite = "TodoWrite"
)

// Todo statuses written by TodoWrite.
const (
	TodoPending    = "pending"
	TodoInProgress = "in_progress"
	TodoCompleted  = "completed"
)

// defaultAgentType is used when a spawn names no subagent_type.
const defaultAgentType = "agent"

// Classifier implements aggregator.Classifier. It is stateless and safe
// for concurrent use.
type Classifier struct{}

// New creates a classifier.
func New() *Classifier {
	return &Classifier{}
}

var _ aggregator.Classifier = (*Classifier)(nil)

// Classify implements aggregator.Classifier.
func (c *Classifier) Classify(e *event.Event) []aggregator.Update {
	switch e.Kind {
	case event.KindPreToolUse:
		switch e.ToolName() {
		case ToolTask, ToolAgent:
			return spawn(e)
		case ToolTodoWrite:
			return todos(e)
		}
	case event.KindPostToolUse:
		switch e.ToolName() {
		case ToolTask, ToolAgent:
			return finish(e)
		case ToolTodoWrite:
			return todos(e)
		}
	case event.KindUserPromptSubmit:
		return prompt(e)
	}
	return nil
}

func spawn(e *event.Event) []aggregator.Update {
	if e.ToolUseID == "" {
		return nil
	}

	agentType := stringField(e.Input, "subagent_type")
	if agentType == "" {
		agentType = defaultAgentType
	}

	return []aggregator.Update{{
		Agent: &aggregator.AgentUpdate{
			ID:          e.ToolUseID,
			Type:        agentType,
			Model:       stringField(e.Input, "model"),
			Description: stringField(e.Input, "description"),
			Status:      aggregator.StatusRunning,
		},
	}}
}

func finish(e *event.Event) []aggregator.Update {
	if e.ToolUseID == "" {
		return nil
	}

	status := aggregator.StatusCompleted
	if failed(e.Response) {
		status = aggregator.StatusError
	}

	u := &aggregator.AgentUpdate{ID: e.ToolUseID, Status: status}
	// A finish seen without its spawn still carries the spawn input.
	if t := stringField(e.Input, "subagent_type"); t != "" {
		u.Type = t
	}
	u.Model = stringField(e.Input, "model")
	u.Description = stringField(e.Input, "description")

	return []aggregator.Update{{Agent: u}}
}

// failed reports whether a tool response describes an error.
func failed(resp map[string]interface{}) bool {
	if resp == nil {
		return false
	}
	if v, ok := resp["is_error"].(bool); ok && v {
		return true
	}
	switch v := resp["error"].(type) {
	case string:
		return v != ""
	case map[string]interface{}:
		return true
	case bool:
		return v
	}
	return false
}

func todos(e *event.Event) []aggregator.Update {
	raw, ok := e.Input["todos"].([]interface{})
	if !ok {
		return nil
	}

	items := make([]aggregator.TodoItem, 0, len(raw))
	completed := 0
	current := ""

	for _, r := range raw {
		obj, ok := r.(map[string]interface{})
		if !ok {
			continue
		}
		item := aggregator.TodoItem{
			Content:    stringField(obj, "content"),
			Status:     stringField(obj, "status"),
			ActiveForm: stringField(obj, "activeForm"),
		}
		items = append(items, item)

		switch item.Status {
		case TodoCompleted:
			completed++
		case TodoInProgress:
			if current == "" {
				current = item.ActiveForm
				if current == "" {
					current = item.Content
				}
			}
		}
	}

	total := len(items)
	return []aggregator.Update{{
		Main: &aggregator.MainUpdate{
			CurrentTask:    current,
			Todos:          items,
			SetTodos:       true,
			CompletedTodos: &completed,
			TotalTodos:     &total,
		},
	}}
}

func prompt(e *event.Event) []aggregator.Update {
	line := FirstLine(e.Prompt)
	if line == "" {
		return nil
	}
	return []aggregator.Update{{Main: &aggregator.MainUpdate{CurrentTask: line}}}
}

// FirstLine returns the first non-blank line of s, trimmed.
func FirstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func stringField(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

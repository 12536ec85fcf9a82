// Package event decodes the HUD wire format: one JSON object per line,
// emitted by the assistant's hook scripts for every tool invocation,
// prompt and lifecycle signal.
//
// The decoder is the single error boundary of the stream. A malformed
// line is rejected with a typed error and the caller moves on to the
// next line; nothing in this package panics on untrusted input.
//
// Example usage:
//
//	ev, err := event.Decode(line)
//	if err != nil {
//	    log.Debug("line rejected", "error", err)
//	    continue
//	}
//	agg.Apply(ev)
package event

import "time"

// SchemaVersion is the only wire schema version this decoder accepts.
// Records carrying any other version are rejected; there is no
// forward-compatible coercion.
const SchemaVersion = 1

// Kind names the hook that produced an event. It is an open set:
// unrecognized kinds decode normally and consumers decide relevance.
type Kind string

// Known event kinds.
const (
	KindPreToolUse       Kind = "PreToolUse"
	KindPostToolUse      Kind = "PostToolUse"
	KindUserPromptSubmit Kind = "UserPromptSubmit"
	KindStop             Kind = "Stop"
	KindSubagentStop     Kind = "SubagentStop"
	KindPreCompact       Kind = "PreCompact"
	KindSessionStart     Kind = "SessionStart"
	KindNotification     Kind = "Notification"
)

// Known reports whether k is one of the kinds declared above.
func (k Kind) Known() bool {
	switch k {
	case KindPreToolUse, KindPostToolUse, KindUserPromptSubmit, KindStop,
		KindSubagentStop, KindPreCompact, KindSessionStart, KindNotification:
		return true
	default:
		return false
	}
}

// Event is one validated wire record.
//
// Invariant: Kind and Session are non-empty.
// Invariant: SchemaVersion == SchemaVersion.
// Tool, Input and Response are nil when the record carried null or
// omitted the key.
type Event struct {
	Kind          Kind
	SchemaVersion int
	Session       string

	// Timestamp is milliseconds since the Unix epoch.
	Timestamp int64

	Tool      *string
	ToolUseID string
	Input     map[string]interface{}
	Response  map[string]interface{}

	Prompt         string
	Cwd            string
	PermissionMode string
	TranscriptPath string
}

// Time returns the event timestamp in UTC.
func (e *Event) Time() time.Time {
	return time.UnixMilli(e.Timestamp).UTC()
}

// ToolName returns the tool name or "" when the event has none.
func (e *Event) ToolName() string {
	if e.Tool == nil {
		return ""
	}
	return *e.Tool
}

package event

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// MaxLineLength is the longest line the stream layer will hand to Decode (1MB).
const MaxLineLength = 1024 * 1024

var jsonNull = []byte("null")

// Parse decodes a line and returns nil when it is rejected.
//
// It is the lossy form of Decode for callers that only need to know
// whether a line was usable.
func Parse(line string) *Event {
	ev, err := Decode([]byte(line))
	if err != nil {
		return nil
	}
	return ev
}

// Decode validates one wire record.
//
// Validation order:
//  1. the line must be valid JSON
//  2. it must decode to an object
//  3. event, session, ts and schemaVersion must be present with the
//     right types; event and session must be non-empty
//  4. tool, input and response, when present, must be string/object or null
//  5. schemaVersion must equal SchemaVersion
//
// Optional string fields (toolUseId, prompt, cwd, permissionMode,
// transcriptPath) of the wrong type are dropped rather than rejected.
//
// Thread-safety: Decode holds no state and is safe for concurrent use.
func Decode(line []byte) (*Event, error) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 || !json.Valid(trimmed) {
		return nil, newDecodeError("", line, ErrMalformedJSON)
	}
	if trimmed[0] != '{' {
		return nil, newDecodeError("", line, ErrNotObject)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, newDecodeError("", line, ErrMalformedJSON)
	}

	ev := &Event{}

	kind, err := requireString(raw, "event")
	if err != nil {
		return nil, newDecodeError("event", line, err)
	}
	ev.Kind = Kind(kind)

	if ev.Session, err = requireString(raw, "session"); err != nil {
		return nil, newDecodeError("session", line, err)
	}

	ts, err := requireNumber(raw, "ts")
	if err != nil {
		return nil, newDecodeError("ts", line, err)
	}
	if ts >= math.MaxInt64 || ts < math.MinInt64 {
		return nil, newDecodeError("ts", line, ErrInvalidField)
	}
	ev.Timestamp = int64(ts)

	version, err := requireNumber(raw, "schemaVersion")
	if err != nil {
		return nil, newDecodeError("schemaVersion", line, err)
	}

	if ev.Tool, err = optionalStringOrNull(raw, "tool"); err != nil {
		return nil, newDecodeError("tool", line, err)
	}
	if ev.Input, err = optionalObjectOrNull(raw, "input"); err != nil {
		return nil, newDecodeError("input", line, err)
	}
	if ev.Response, err = optionalObjectOrNull(raw, "response"); err != nil {
		return nil, newDecodeError("response", line, err)
	}

	if version != SchemaVersion {
		return nil, newDecodeError("schemaVersion", line, ErrUnsupportedSchema)
	}
	ev.SchemaVersion = SchemaVersion

	ev.ToolUseID = lenientString(raw, "toolUseId")
	ev.Prompt = lenientString(raw, "prompt")
	ev.Cwd = lenientString(raw, "cwd")
	ev.PermissionMode = lenientString(raw, "permissionMode")
	ev.TranscriptPath = lenientString(raw, "transcriptPath")

	return ev, nil
}

// requireString returns a non-empty string field.
func requireString(raw map[string]json.RawMessage, key string) (string, error) {
	v, ok := raw[key]
	if !ok || isNull(v) {
		return "", ErrMissingField
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return "", ErrInvalidField
	}
	if s == "" {
		return "", ErrMissingField
	}
	return s, nil
}

// requireNumber returns a finite numeric field.
func requireNumber(raw map[string]json.RawMessage, key string) (float64, error) {
	v, ok := raw[key]
	if !ok || isNull(v) {
		return 0, ErrMissingField
	}
	v = bytes.TrimSpace(v)
	if len(v) == 0 || (v[0] != '-' && (v[0] < '0' || v[0] > '9')) {
		return 0, ErrInvalidField
	}
	f, err := strconv.ParseFloat(string(v), 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, ErrInvalidField
	}
	return f, nil
}

// optionalStringOrNull distinguishes an absent or null key (nil, nil)
// from a key holding the wrong type (error).
func optionalStringOrNull(raw map[string]json.RawMessage, key string) (*string, error) {
	v, ok := raw[key]
	if !ok || isNull(v) {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return nil, ErrInvalidField
	}
	return &s, nil
}

// optionalObjectOrNull decodes an object field, keeping numbers as
// json.Number so re-encoding reproduces the producer's literals.
func optionalObjectOrNull(raw map[string]json.RawMessage, key string) (map[string]interface{}, error) {
	v, ok := raw[key]
	if !ok || isNull(v) {
		return nil, nil
	}
	v = bytes.TrimSpace(v)
	if len(v) == 0 || v[0] != '{' {
		return nil, ErrInvalidField
	}

	dec := json.NewDecoder(bytes.NewReader(v))
	dec.UseNumber()
	var obj map[string]interface{}
	if err := dec.Decode(&obj); err != nil {
		return nil, ErrInvalidField
	}
	return obj, nil
}

func lenientString(raw map[string]json.RawMessage, key string) string {
	v, ok := raw[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return ""
	}
	return s
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), jsonNull)
}

// wireEvent fixes the field order and null handling of the encoded form.
type wireEvent struct {
	Event          Kind                   `json:"event"`
	SchemaVersion  int                    `json:"schemaVersion"`
	Session        string                 `json:"session"`
	Ts             int64                  `json:"ts"`
	Tool           *string                `json:"tool"`
	ToolUseID      string                 `json:"toolUseId,omitempty"`
	Input          map[string]interface{} `json:"input"`
	Response       map[string]interface{} `json:"response"`
	Prompt         string                 `json:"prompt,omitempty"`
	Cwd            string                 `json:"cwd,omitempty"`
	PermissionMode string                 `json:"permissionMode,omitempty"`
	TranscriptPath string                 `json:"transcriptPath,omitempty"`
}

// MarshalJSON emits the wire form. tool, input and response are always
// written, as null when unset.
func (e Event) MarshalJSON() ([]byte, error) {
	return Encode(&e)
}

// Encode serializes an event as a single wire line without the trailing
// newline. A zero SchemaVersion is written as SchemaVersion.
func Encode(e *Event) ([]byte, error) {
	version := e.SchemaVersion
	if version == 0 {
		version = SchemaVersion
	}

	w := wireEvent{
		Event:          e.Kind,
		SchemaVersion:  version,
		Session:        e.Session,
		Ts:             e.Timestamp,
		Tool:           e.Tool,
		ToolUseID:      e.ToolUseID,
		Input:          e.Input,
		Response:       e.Response,
		Prompt:         e.Prompt,
		Cwd:            e.Cwd,
		PermissionMode: e.PermissionMode,
		TranscriptPath: e.TranscriptPath,
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(w); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

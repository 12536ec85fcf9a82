package classify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xmhha/agent-hud/pkg/aggregator"
	"github.com/0xmhha/agent-hud/pkg/event"
)

func decode(t *testing.T, line string) *event.Event {
	t.Helper()
	ev, err := event.Decode([]byte(line))
	require.NoError(t, err)
	return ev
}

func TestClassifySpawn(t *testing.T) {
	t.Parallel()

	ev := decode(t, `{"event":"PreToolUse","schemaVersion":1,"tool":"Task","toolUseId":"toolu_1","input":{"subagent_type":"scout","model":"haiku","description":"Explore the repo"},"response":null,"session":"s","ts":1}`)

	updates := New().Classify(ev)
	require.Len(t, updates, 1)
	require.NotNil(t, updates[0].Agent)

	u := updates[0].Agent
	assert.Equal(t, "toolu_1", u.ID)
	assert.Equal(t, "scout", u.Type)
	assert.Equal(t, "haiku", u.Model)
	assert.Equal(t, "Explore the repo", u.Description)
	assert.Equal(t, aggregator.StatusRunning, u.Status)
}

func TestClassifySpawnDefaults(t *testing.T) {
	t.Parallel()

	ev := decode(t, `{"event":"PreToolUse","schemaVersion":1,"tool":"Agent","toolUseId":"toolu_2","input":{"subagent_type":7},"session":"s","ts":1}`)
	updates := New().Classify(ev)
	require.Len(t, updates, 1)
	assert.Equal(t, "agent", updates[0].Agent.Type)

	noID := decode(t, `{"event":"PreToolUse","schemaVersion":1,"tool":"Task","input":{},"session":"s","ts":1}`)
	assert.Empty(t, New().Classify(noID))
}

func TestClassifyFinish(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		response string
		want     aggregator.Status
	}{
		{"plain response", `{"content":"done"}`, aggregator.StatusCompleted},
		{"null response", `null`, aggregator.StatusCompleted},
		{"is_error true", `{"is_error":true}`, aggregator.StatusError},
		{"is_error false", `{"is_error":false}`, aggregator.StatusCompleted},
		{"error string", `{"error":"boom"}`, aggregator.StatusError},
		{"empty error string", `{"error":""}`, aggregator.StatusCompleted},
		{"error object", `{"error":{"message":"boom"}}`, aggregator.StatusError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := decode(t, `{"event":"PostToolUse","schemaVersion":1,"tool":"Task","toolUseId":"toolu_1","input":{},"response":`+tt.response+`,"session":"s","ts":1}`)
			updates := New().Classify(ev)
			require.Len(t, updates, 1)
			assert.Equal(t, tt.want, updates[0].Agent.Status)
		})
	}
}

func TestClassifyTodoWrite(t *testing.T) {
	t.Parallel()

	ev := decode(t, `{"event":"PostToolUse","schemaVersion":1,"tool":"TodoWrite","toolUseId":"toolu_3","input":{"todos":[
		{"content":"Read code","status":"completed","activeForm":"Reading code"},
		{"content":"Fix bug","status":"in_progress","activeForm":"Fixing bug"},
		{"content":"Write tests","status":"in_progress"},
		{"content":"Ship","status":"pending"},
		"garbage"
	]},"response":{},"session":"s","ts":1}`)

	updates := New().Classify(ev)
	require.Len(t, updates, 1)
	m := updates[0].Main
	require.NotNil(t, m)

	assert.True(t, m.SetTodos)
	assert.Len(t, m.Todos, 4)
	assert.Equal(t, "Fixing bug", m.CurrentTask)
	assert.Equal(t, 1, *m.CompletedTodos)
	assert.Equal(t, 4, *m.TotalTodos)
}

func TestClassifyTodoWriteFallsBackToContent(t *testing.T) {
	t.Parallel()

	ev := decode(t, `{"event":"PreToolUse","schemaVersion":1,"tool":"TodoWrite","input":{"todos":[{"content":"Write tests","status":"in_progress"}]},"session":"s","ts":1}`)
	updates := New().Classify(ev)
	require.Len(t, updates, 1)
	assert.Equal(t, "Write tests", updates[0].Main.CurrentTask)

	missing := decode(t, `{"event":"PreToolUse","schemaVersion":1,"tool":"TodoWrite","input":{},"session":"s","ts":1}`)
	assert.Empty(t, New().Classify(missing))
}

func TestClassifyPrompt(t *testing.T) {
	t.Parallel()

	ev := decode(t, `{"event":"UserPromptSubmit","schemaVersion":1,"session":"s","ts":1,"prompt":"\n  Fix the login flow  \nMore detail here"}`)
	updates := New().Classify(ev)
	require.Len(t, updates, 1)
	assert.Equal(t, "Fix the login flow", updates[0].Main.CurrentTask)

	blank := decode(t, `{"event":"UserPromptSubmit","schemaVersion":1,"session":"s","ts":1,"prompt":"   "}`)
	assert.Empty(t, New().Classify(blank))
}

func TestClassifyIgnoresOtherEvents(t *testing.T) {
	t.Parallel()

	lines := []string{
		`{"event":"PreToolUse","schemaVersion":1,"tool":"Read","toolUseId":"x","input":{},"session":"s","ts":1}`,
		`{"event":"Stop","schemaVersion":1,"session":"s","ts":1}`,
		`{"event":"SomethingNew","schemaVersion":1,"tool":"Task","toolUseId":"x","session":"s","ts":1}`,
	}
	for _, line := range lines {
		assert.Empty(t, New().Classify(decode(t, line)), line)
	}
}

func TestClassifierWithAggregator(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	agg := aggregator.New(aggregator.Config{Classifier: New(), Now: func() time.Time { return start }}, nil)

	lines := []string{
		`{"event":"UserPromptSubmit","schemaVersion":1,"session":"s","ts":1735689600000,"prompt":"Refactor auth"}`,
		`{"event":"PreToolUse","schemaVersion":1,"tool":"Task","toolUseId":"a","input":{"subagent_type":"scout","description":"Explore"},"session":"s","ts":1735689601000}`,
		`{"event":"PreToolUse","schemaVersion":1,"tool":"Task","toolUseId":"b","input":{"subagent_type":"kraken"},"session":"s","ts":1735689602000}`,
		`{"event":"PostToolUse","schemaVersion":1,"tool":"Task","toolUseId":"a","input":{"subagent_type":"scout"},"response":{"content":"ok"},"session":"s","ts":1735689660000}`,
		`{"event":"PostToolUse","schemaVersion":1,"tool":"Task","toolUseId":"a","input":{"subagent_type":"scout"},"response":{"content":"ok"},"session":"s","ts":1735689660000}`,
	}
	for _, line := range lines {
		agg.Apply(decode(t, line))
	}

	snap := agg.Snapshot()
	assert.Equal(t, "Refactor auth", snap.MainSession.CurrentTask)
	require.Len(t, snap.Agents, 2)
	assert.Equal(t, aggregator.StatusCompleted, snap.Agents[0].Status)
	assert.Equal(t, "Explore", snap.Agents[0].Description)
	assert.Equal(t, aggregator.StatusRunning, snap.Agents[1].Status)
	assert.Equal(t, "kraken", snap.Agents[1].Type)
	assert.Equal(t, start, snap.SessionStart)
}

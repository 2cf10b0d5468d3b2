package agent_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danpun9/memocore/internal/agent"
)

func TestExecuteAction_Create(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	obs := f.agent.ExecuteAction(ctx, agent.ToolAction{
		Type:    agent.ActionCreate,
		Title:   "notes",
		Content: "hello",
	})
	assert.Equal(t, "Observation: Document 'notes.md' created successfully.", obs)

	text, found, err := f.docs.ReadDocument(ctx, "notes.md")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "hello", text)
}

func TestExecuteAction_CreateDuplicate(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	_, err := f.docs.Create(ctx, "notes", "first")
	require.NoError(t, err)

	obs := f.agent.ExecuteAction(ctx, agent.ToolAction{
		Type:    agent.ActionCreate,
		Title:   "notes",
		Content: "second",
	})
	assert.Contains(t, obs, "Observation: Error executing action:")

	// The original content is untouched.
	text, _, err := f.docs.ReadDocument(ctx, "notes.md")
	require.NoError(t, err)
	assert.Equal(t, "first", text)
}

func TestExecuteAction_Edit(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	_, err := f.docs.Create(ctx, "todo", "- Buy milk")
	require.NoError(t, err)

	obs := f.agent.ExecuteAction(ctx, agent.ToolAction{
		Type:    agent.ActionEdit,
		Title:   "todo",
		Content: "- Buy milk\n- Buy eggs",
	})
	assert.Equal(t, "Observation: Document 'todo.md' updated successfully.", obs)

	text, _, err := f.docs.ReadDocument(ctx, "todo.md")
	require.NoError(t, err)
	assert.Equal(t, "- Buy milk\n- Buy eggs", text)
}

func TestExecuteAction_EditMissing(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	obs := f.agent.ExecuteAction(context.Background(), agent.ToolAction{
		Type:    agent.ActionEdit,
		Title:   "ghost",
		Content: "body",
	})
	assert.Contains(t, obs, "Observation: Error executing action:")
}

func TestExecuteAction_Delete(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	_, err := f.docs.Create(ctx, "todo", "- Buy milk")
	require.NoError(t, err)

	obs := f.agent.ExecuteAction(ctx, agent.ToolAction{Type: agent.ActionDelete, Title: "todo"})
	assert.Equal(t, "Observation: Document 'todo.md' deleted successfully.", obs)

	_, found, err := f.docs.ReadDocument(ctx, "todo.md")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestExecuteAction_List(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	obs := f.agent.ExecuteAction(context.Background(), agent.ToolAction{Type: agent.ActionList})
	assert.Equal(t, "Observation: Listed documents.", obs)
}

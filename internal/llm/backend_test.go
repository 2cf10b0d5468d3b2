package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectFeeds(t *testing.T, deltas []string) (string, error) {
	t.Helper()

	var got string
	cutter := &stopCutter{cb: func(_ context.Context, d string) error {
		got += d
		return nil
	}}

	ctx := context.Background()
	for _, d := range deltas {
		if err := cutter.feed(ctx, d); err != nil {
			return got, err
		}
	}
	return got, cutter.flush(ctx)
}

func TestStopCutter_NoMarker(t *testing.T) {
	t.Parallel()

	got, err := collectFeeds(t, []string{"Thought: hello ", "world"})
	require.NoError(t, err)
	assert.Equal(t, "Thought: hello world", got)
}

func TestStopCutter_MarkerInSingleDelta(t *testing.T) {
	t.Parallel()

	got, err := collectFeeds(t, []string{"answer\nObservation: secret tool output"})
	assert.ErrorIs(t, err, errStopMarker)
	assert.Equal(t, "answer\n", got)
}

func TestStopCutter_MarkerSplitAcrossDeltas(t *testing.T) {
	t.Parallel()

	got, err := collectFeeds(t, []string{"done Obser", "vation: hidden"})
	assert.ErrorIs(t, err, errStopMarker)
	assert.Equal(t, "done ", got)
}

func TestStopCutter_MarkerAtStart(t *testing.T) {
	t.Parallel()

	got, err := collectFeeds(t, []string{"Observation: everything suppressed"})
	assert.ErrorIs(t, err, errStopMarker)
	assert.Empty(t, got)
}

func TestStopCutter_HeldTailFlushedAtEnd(t *testing.T) {
	t.Parallel()

	// "Observ" looks like the start of the marker; without a following
	// "ation:" it must still be delivered when the stream ends.
	got, err := collectFeeds(t, []string{"value is Observ"})
	require.NoError(t, err)
	assert.Equal(t, "value is Observ", got)
}

func TestStopCutter_NothingAfterMarkerEmitted(t *testing.T) {
	t.Parallel()

	var got string
	cutter := &stopCutter{cb: func(_ context.Context, d string) error {
		got += d
		return nil
	}}

	ctx := context.Background()
	err := cutter.feed(ctx, "a Observation: b")
	assert.ErrorIs(t, err, errStopMarker)

	// Further deltas after the cut are dropped.
	err = cutter.feed(ctx, " more text")
	assert.ErrorIs(t, err, errStopMarker)
	assert.Equal(t, "a ", got)
}

func TestMarkerOverlap(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"hello", 0},
		{"hello O", 1},
		{"hello Observ", 6},
		{"Observation", 11},
		{"xObservatio", 10},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, markerOverlap(tt.in), "input %q", tt.in)
	}
}

func TestNewGemini_MissingKey(t *testing.T) {
	t.Parallel()

	_, err := NewGemini(context.Background(), GeminiConfig{Model: "gemini-2.5-flash-lite"})
	assert.ErrorIs(t, err, ErrAPIKeyMissing)
}

func TestLocal_NotLoaded(t *testing.T) {
	t.Parallel()

	l := NewLocal("", "")
	assert.False(t, l.Loaded())

	err := l.StreamResponse(context.Background(), "hi", func(context.Context, string) error {
		t.Fatal("no delta expected from an unloaded backend")
		return nil
	})
	assert.ErrorIs(t, err, ErrModelNotLoaded)
}

func TestBackendCapabilityFlags(t *testing.T) {
	t.Parallel()

	assert.True(t, NewLocal("", "").RequiresSystemPrompt())
	assert.Equal(t, "local model", NewLocal("", "").Name())
	assert.False(t, (&Gemini{}).RequiresSystemPrompt())
	assert.Equal(t, "Gemini cloud model", (&Gemini{}).Name())
}

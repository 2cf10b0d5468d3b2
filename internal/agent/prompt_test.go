package agent

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestBuildPrompt(t *testing.T) {
	t.Parallel()

	history := []ChatMessage{
		{Role: RoleUser, Content: "hi"},
		{
			Role:    RoleModel,
			Content: "hello",
			Sources: []RetrievedContext{{FileName: "f.md", Text: "ctx"}},
		},
		{Role: RoleSystem, Content: "note"},
		{Role: RoleModel, Content: "half-typed", Provisional: true},
	}

	got := buildPrompt(history, "next", false)

	want := "User Query: hi\n" +
		"Model Answer: hello\n" +
		"Context from previous turn:\n" +
		"<file>f.md</file>\n" +
		"<content>\nctx\n</content>\n" +
		"[System Notification]: note\n" +
		"User Query: next"
	assert.Equal(t, want, got)
}

func TestBuildPrompt_SystemQuery(t *testing.T) {
	t.Parallel()

	got := buildPrompt(nil, "do it", true)
	assert.Equal(t, "[System Notification]: do it", got)
}

func TestBuildPrompt_ModelWithoutSources(t *testing.T) {
	t.Parallel()

	got := buildPrompt([]ChatMessage{{Role: RoleModel, Content: "plain"}}, "q", false)
	assert.Equal(t, "Model Answer: plain\nUser Query: q", got)
	assert.NotContains(t, got, "Context from previous turn")
}

func TestSystemInstruction(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 9, 14, 30, 0, 0, time.UTC)
	got := SystemInstruction(now)

	assert.True(t, strings.HasPrefix(got, "You are Memocore"))
	assert.Contains(t, got, "System Current Time: "+now.Format("Monday, 2006-01-02 15:04"))
	for _, tag := range []string{"<search>", "<read_doc>", "<create_doc>", "<edit_doc>", "<delete_doc>"} {
		assert.Contains(t, got, tag)
	}
}

func TestTagBody(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		in     string
		want   string
		wantOK bool
	}{
		{"complete", "x <search>door code</search> y", "door code", true},
		{"missing close", "x <search>door", "", false},
		{"missing open", "door</search>", "", false},
		{"close before open", "</search> junk <search>", "", false},
		{"empty body", "<search></search>", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := tagBody(tt.in, searchOpenTag, searchCloseTag)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestChildTag(t *testing.T) {
	t.Parallel()

	body := "<title> todo.md </title><content>- Buy milk\n- Buy eggs</content>"
	assert.Equal(t, "todo.md", childTag(body, "title"))
	assert.Equal(t, "- Buy milk\n- Buy eggs", childTag(body, "content"))

	// A missing close marker yields the trimmed remainder.
	assert.Equal(t, "partial", childTag("<content>partial", "content"))
	// A missing element yields the empty string after trimming the input.
	assert.Equal(t, "", childTag("", "content"))
}

func TestTextAfterLast(t *testing.T) {
	t.Parallel()

	s := "a Final Answer: first b Final Answer: second"
	assert.Equal(t, " second", textAfterLast(s, finalAnswerMarker))
	assert.Equal(t, "no marker", textAfterLast("no marker", finalAnswerMarker))
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	short := strings.Repeat("x", inlineLimit)
	assert.Equal(t, short, truncate(short))

	long := strings.Repeat("y", inlineLimit+10)
	got := truncate(long)
	assert.Equal(t, inlineLimit+len(truncationSuffix), len(got))
	assert.True(t, strings.HasSuffix(got, truncationSuffix))
}

func TestTruncate_MultiByteBoundary(t *testing.T) {
	t.Parallel()

	// A 3-byte rune straddles the byte limit; the cut backs up to the rune's
	// start instead of leaving a partial character in the prompt.
	text := strings.Repeat("x", inlineLimit-1) + "한국"
	got := truncate(text)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("x", inlineLimit-1)+truncationSuffix, got)
}

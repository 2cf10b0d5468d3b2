package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_Empty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, Split("", 100, 10, " "))
}

func TestSplit_SingleShortText(t *testing.T) {
	t.Parallel()

	chunks := Split("hello world", 100, 10, " ")
	require.Len(t, chunks, 1)
	assert.Equal(t, "hello world", chunks[0])
}

func TestSplit_RespectsTargetSize(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("word ", 500) // 2500 chars
	chunks := Split(text, 100, 10, " ")

	require.NotEmpty(t, chunks)
	for i, c := range chunks {
		assert.LessOrEqual(t, len(c), 100, "chunk %d exceeds target size", i)
	}
}

func TestSplit_LongWordBecomesOwnChunk(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("x", 150)
	chunks := Split("short "+long+" tail", 100, 0, " ")

	require.Len(t, chunks, 3)
	assert.Equal(t, "short", chunks[0])
	assert.Equal(t, long, chunks[1])
	assert.Equal(t, "tail", chunks[2])
}

func TestSplit_ZeroOverlapSharesNothing(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("alpha beta gamma delta ", 50)
	chunks := Split(text, 60, 0, " ")
	require.Greater(t, len(chunks), 1)

	// With overlap 0 consecutive chunks are disjoint: rejoining them with the
	// separator reconstructs the original word sequence exactly.
	rejoined := strings.Join(chunks, " ")
	assert.Equal(t, strings.TrimRight(text, " "), strings.TrimRight(rejoined, " "))
}

func TestSplit_OverlapSeedsNextChunk(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("one two three four five six ", 20)
	overlap := 10
	chunks := Split(text, 50, overlap, " ")
	require.Greater(t, len(chunks), 1)

	for i := 1; i < len(chunks); i++ {
		prev := chunks[i-1]
		tail := prev
		if len(prev) > overlap {
			tail = prev[len(prev)-overlap:]
		}
		assert.True(t, strings.HasPrefix(chunks[i], tail),
			"chunk %d does not start with the previous chunk's %d-char tail", i, overlap)
	}
}

func TestSplit_OverlapMaySplitWords(t *testing.T) {
	t.Parallel()

	// The overlap is a character window over the closed chunk, so the seed can
	// begin mid-word. This is accepted behavior, kept for boundary parity.
	chunks := Split("abcdef ghijkl mnopqr stuvwx", 14, 4, " ")
	require.Greater(t, len(chunks), 1)
	assert.Equal(t, "abcdef ghijkl", chunks[0])
	assert.True(t, strings.HasPrefix(chunks[1], "ijkl "), "got %q", chunks[1])
}

func TestSplit_MultiByteCountsRunes(t *testing.T) {
	t.Parallel()

	// Each word is 10 runes (30 bytes). With byte arithmetic the mid-word
	// overlap seed would start inside a rune; rune arithmetic keeps every
	// chunk valid UTF-8 and the seed on a character boundary.
	word := "가나다라마바사아자차"
	text := strings.TrimSuffix(strings.Repeat(word+" ", 8), " ")
	chunks := Split(text, 31, 1, " ")

	require.Len(t, chunks, 4)
	assert.Equal(t, word+" "+word, chunks[0])
	for i := 1; i < len(chunks); i++ {
		assert.Equal(t, "차 "+word+" "+word, chunks[i])
	}
	for i, c := range chunks {
		assert.True(t, utf8.ValidString(c), "chunk %d is not valid UTF-8", i)
	}
}

func TestSplit_MultiByteDefaultSizes(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("한국어 문서 분할 경계 검증 ", 200)
	chunks := Split(text, 1000, 100, " ")

	require.Greater(t, len(chunks), 1)
	for i, c := range chunks {
		assert.True(t, utf8.ValidString(c), "chunk %d is not valid UTF-8", i)
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 1000, "chunk %d exceeds target size", i)
	}
}

func TestSplit_MultiByteOverlapSeedsRuneTail(t *testing.T) {
	t.Parallel()

	overlap := 5
	text := strings.Repeat("하나 둘 셋 넷 다섯 여섯 일곱 여덟 ", 30)
	chunks := Split(text, 40, overlap, " ")
	require.Greater(t, len(chunks), 1)

	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1])
		tail := string(prev[len(prev)-overlap:])
		assert.True(t, strings.HasPrefix(chunks[i], tail),
			"chunk %d does not start with the previous chunk's %d-rune tail", i, overlap)
	}
}

func TestSplit_DefaultSeparator(t *testing.T) {
	t.Parallel()

	withDefault := Split("a b c", 100, 0, "")
	explicit := Split("a b c", 100, 0, " ")
	assert.Equal(t, explicit, withDefault)
}

func TestSplit_Deterministic(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("the quick brown fox ", 100)
	first := Split(text, 80, 20, " ")
	second := Split(text, 80, 20, " ")
	assert.Equal(t, first, second)
}

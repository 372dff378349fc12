package textproc

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wordsText(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(words, " ")
}

func TestCreateChunksEmptyText(t *testing.T) {
	c := NewChunker(50)
	assert.Empty(t, c.CreateChunks("", "a.pdf", 1, StrategyTokens))
	assert.Empty(t, c.CreateChunks("   \n ", "a.pdf", 1, StrategySentences))
}

func TestOptimalChunkSizeTiers(t *testing.T) {
	assert.Equal(t, 500, OptimalChunkSize(wordsText(100)))
	assert.Equal(t, 800, OptimalChunkSize(wordsText(5000)))
	assert.Equal(t, 1000, OptimalChunkSize(wordsText(20000)))
}

func TestChunkByTokensCoversInput(t *testing.T) {
	c := NewChunker(100)
	text := wordsText(1200)
	chunks := c.CreateChunks(text, "doc.pdf", 2, StrategyTokens)
	require.NotEmpty(t, chunks)

	// Every input token appears in some chunk, in order, with no gaps.
	seen := make(map[string]bool)
	for _, ch := range chunks {
		for _, w := range strings.Fields(ch.Text) {
			seen[w] = true
		}
	}
	for _, w := range strings.Fields(text) {
		assert.True(t, seen[w], "token %q missing from chunks", w)
	}

	for i, ch := range chunks {
		assert.Equal(t, i, ch.Index)
		assert.Equal(t, "doc.pdf", ch.SourceFile)
		assert.Equal(t, 2, ch.PageNumber)
		assert.Equal(t, len(strings.Fields(ch.Text)), ch.TokenCount)
	}
}

func TestChunkTokenCountNeverExceedsMax(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	c := NewChunker(200)
	for trial := 0; trial < 30; trial++ {
		n := 1 + rng.Intn(15000)
		text := wordsText(n)
		max := OptimalChunkSize(text)
		for _, strategy := range []Strategy{StrategyTokens, StrategySentences} {
			for _, ch := range c.CreateChunks(text, "r.pdf", 1, strategy) {
				assert.LessOrEqual(t, ch.TokenCount, max,
					"strategy=%s n=%d", strategy, n)
			}
		}
	}
}

func TestChunkBySentencesKeepsBoundaries(t *testing.T) {
	c := NewChunker(2)
	var sb strings.Builder
	for i := 0; i < 400; i++ {
		fmt.Fprintf(&sb, "sentence number %d is short. ", i)
	}
	chunks := c.CreateChunks(sb.String(), "s.pdf", 1, StrategySentences)
	require.Greater(t, len(chunks), 1)

	// Chunks after the first start with the overlap carried from the
	// previous chunk's trailing tokens.
	for i := 1; i < len(chunks); i++ {
		prev := strings.Fields(chunks[i-1].Text)
		cur := strings.Fields(chunks[i].Text)
		require.GreaterOrEqual(t, len(prev), 2)
		assert.Equal(t, prev[len(prev)-2:], cur[:2])
	}
}

func TestChunkIDsUniquePerCall(t *testing.T) {
	c := NewChunker(10)
	text := wordsText(2000)
	ids := make(map[string]bool)
	for _, ch := range c.CreateChunks(text, "u.pdf", 1, StrategyTokens) {
		assert.False(t, ids[ch.ID])
		ids[ch.ID] = true
	}
}

func TestChunkBoundariesDeterministic(t *testing.T) {
	c := NewChunker(50)
	text := wordsText(3000)
	a := c.CreateChunks(text, "d.pdf", 1, StrategySentences)
	b := c.CreateChunks(text, "d.pdf", 1, StrategySentences)
	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].Text, b[i].Text)
		assert.Equal(t, a[i].TokenCount, b[i].TokenCount)
	}
}

func TestSplitSentences(t *testing.T) {
	got := SplitSentences("One. Two! Three? trailing fragment")
	assert.Equal(t, []string{"One.", "Two!", "Three?", "trailing fragment"}, got)
	assert.Equal(t, []string{"no punctuation at all"}, SplitSentences("no punctuation at all"))
	assert.Nil(t, SplitSentences("   "))
}

package qa

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartdocs/internal/ai"
	"smartdocs/internal/search"
)

type fakeCompleter struct {
	answer   string
	failures int
	calls    int
	messages []ai.ChatMessage
}

func (f *fakeCompleter) Complete(ctx context.Context, cfg ai.ChatConfig, messages []ai.ChatMessage) (string, error) {
	f.calls++
	f.messages = messages
	if f.calls <= f.failures {
		return "", errors.New("provider down")
	}
	return f.answer, nil
}

func newTestComposer(completer Completer) *Composer {
	c := NewComposer(completer, ai.ChatConfig{Model: "test-model"})
	c.delay = time.Millisecond
	return c
}

func chunk(text, file string, page int) search.Result {
	return search.Result{ChunkText: text, SourceFile: file, PageNumber: page, RelevanceScore: 0.9}
}

func TestComposeNoChunksSkipsProvider(t *testing.T) {
	completer := &fakeCompleter{answer: "should not be used"}
	c := newTestComposer(completer)

	got, err := c.Compose(context.Background(), "what is revenue?", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, AnswerNotFound, got.Answer)
	assert.NotNil(t, got.Citations)
	assert.Empty(t, got.Citations)
	assert.Zero(t, completer.calls)
}

func TestComposeReturnsAnswerWithCitations(t *testing.T) {
	completer := &fakeCompleter{answer: "Revenue grew 10%. [Source: report.pdf, Page: 3]"}
	c := newTestComposer(completer)

	got, err := c.Compose(context.Background(), "how did revenue do?",
		[]search.Result{chunk("revenue grew", "report.pdf", 3)}, nil)
	require.NoError(t, err)
	assert.Equal(t, completer.answer, got.Answer)
	require.Len(t, got.Citations, 1)
	assert.Equal(t, Citation{SourceFile: "report.pdf", PageNumber: 3}, got.Citations[0])
}

func TestComposeRetriesThenSucceeds(t *testing.T) {
	completer := &fakeCompleter{answer: "fine now", failures: 2}
	c := newTestComposer(completer)

	got, err := c.Compose(context.Background(), "q", []search.Result{chunk("ctx", "a.pdf", 1)}, nil)
	require.NoError(t, err)
	assert.Equal(t, "fine now", got.Answer)
	assert.Equal(t, 3, completer.calls)
}

func TestComposeExhaustedAttemptsDegrades(t *testing.T) {
	completer := &fakeCompleter{failures: 10}
	c := newTestComposer(completer)

	got, err := c.Compose(context.Background(), "q", []search.Result{chunk("ctx", "a.pdf", 1)}, nil)
	require.NoError(t, err)
	assert.Equal(t, AnswerUnavailable, got.Answer)
	assert.NotNil(t, got.Citations)
	assert.Empty(t, got.Citations)
	assert.Equal(t, 3, completer.calls)
}

func TestComposePromptShape(t *testing.T) {
	completer := &fakeCompleter{answer: "ok"}
	c := newTestComposer(completer)

	history := []HistoryTurn{
		{Question: "old q1", Answer: "old a1"},
		{Question: "old q2", Answer: "old a2"},
		{Question: "old q3", Answer: "old a3"},
		{Question: "old q4", Answer: "old a4"},
	}
	chunks := []search.Result{
		chunk("first chunk", "a.pdf", 1),
		chunk("second chunk", "b.pdf", 2),
	}
	_, err := c.Compose(context.Background(), "current question", chunks, history)
	require.NoError(t, err)

	msgs := completer.messages
	// system + 3 replayed turns (oldest dropped) + the final user message.
	require.Len(t, msgs, 1+3*2+1)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "[Source: filename.pdf, Page: X]")
	assert.Equal(t, "old q2", msgs[1].Content)
	assert.Equal(t, "old a4", msgs[6].Content)

	last := msgs[len(msgs)-1]
	assert.Equal(t, "user", last.Role)
	assert.Contains(t, last.Content, "Context:\n[Source: a.pdf, Page: 1]\nfirst chunk")
	assert.Contains(t, last.Content, "[Source: b.pdf, Page: 2]\nsecond chunk")
	assert.Contains(t, last.Content, "\n\nQ: current question")
}

func TestFormatContextJoinsBlocks(t *testing.T) {
	got := FormatContext([]search.Result{
		chunk("alpha", "a.pdf", 1),
		chunk("beta", "b.pdf", 2),
	})
	assert.Equal(t, "[Source: a.pdf, Page: 1]\nalpha\n\n[Source: b.pdf, Page: 2]\nbeta", got)
}

func TestParseCitations(t *testing.T) {
	text := "Answer body. [Source: one.pdf, Page: 2] more text " +
		"[Source:  spaced name.pdf ,  Page: 14] [Source: bad.pdf, Page: xx]"
	got := ParseCitations(text)
	require.Len(t, got, 2)
	assert.Equal(t, Citation{SourceFile: "one.pdf", PageNumber: 2}, got[0])
	assert.Equal(t, Citation{SourceFile: "spaced name.pdf", PageNumber: 14}, got[1])

	assert.Empty(t, ParseCitations("no markers here"))
	assert.NotNil(t, ParseCitations("no markers here"))
}

package embedding

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"smartdocs/internal/model"
	"smartdocs/internal/textproc"
)

type fakeProvider struct {
	calls    int
	dim      int
	failures int
}

func (p *fakeProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	p.calls++
	if p.failures > 0 {
		p.failures--
		return nil, errors.New("transient provider error")
	}
	vec := make([]float32, p.dim)
	for i := range vec {
		vec[i] = float32(len(text)%7) + float32(i)
	}
	return vec, nil
}

func newTestService(t *testing.T, provider Provider) *Service {
	t.Helper()
	cache, err := NewCache(nil)
	require.NoError(t, err)
	return NewService(provider, cache, Options{
		MaxAttempts:       3,
		BaseDelay:         time.Millisecond,
		RequestsPerMinute: 60000,
		Dimension:         8,
	})
}

func TestEmbedRejectsEmptyInput(t *testing.T) {
	provider := &fakeProvider{dim: 8}
	svc := newTestService(t, provider)

	_, err := svc.Embed(context.Background(), "   \n ")
	assert.ErrorIs(t, err, ErrEmptyText)
	assert.Zero(t, provider.calls, "no network call for empty input")
}

func TestEmbedCacheHitMakesOneExternalCall(t *testing.T) {
	provider := &fakeProvider{dim: 8}
	svc := newTestService(t, provider)

	first, err := svc.Embed(context.Background(), "the same text")
	require.NoError(t, err)
	second, err := svc.Embed(context.Background(), "  the same text  ")
	require.NoError(t, err)

	assert.Equal(t, 1, provider.calls)
	assert.Equal(t, first, second)
}

func TestEmbedDimensionMismatchIsFatal(t *testing.T) {
	provider := &fakeProvider{dim: 5}
	svc := newTestService(t, provider)

	_, err := svc.Embed(context.Background(), "some text")
	assert.ErrorIs(t, err, ErrDimension)
}

func TestEmbedRetriesTransientFailures(t *testing.T) {
	provider := &fakeProvider{dim: 8, failures: 2}
	svc := newTestService(t, provider)

	vec, err := svc.Embed(context.Background(), "flaky")
	require.NoError(t, err)
	assert.Len(t, vec, 8)
	assert.Equal(t, 3, provider.calls)
}

func TestEmbedFailsAfterExhaustedAttempts(t *testing.T) {
	provider := &fakeProvider{dim: 8, failures: 10}
	svc := newTestService(t, provider)

	_, err := svc.Embed(context.Background(), "always down")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, 3, provider.calls)
}

func TestEmbedBatchPairsChunksWithVectors(t *testing.T) {
	provider := &fakeProvider{dim: 8}
	svc := newTestService(t, provider)

	chunker := textproc.NewChunker(10)
	chunks := chunker.CreateChunks("one two three. four five six. seven eight nine.", "b.pdf", 1, textproc.StrategySentences)
	require.NotEmpty(t, chunks)

	embedded, err := svc.EmbedBatch(context.Background(), chunks)
	require.NoError(t, err)
	require.Len(t, embedded, len(chunks))
	for i := range embedded {
		assert.Equal(t, chunks[i].ID, embedded[i].Chunk.ID)
		assert.Len(t, embedded[i].Vector, 8)
		assert.False(t, embedded[i].CreatedAt.IsZero())
		assert.Equal(t, time.UTC, embedded[i].CreatedAt.Location())
	}
}

func TestCachePersistsAcrossInstances(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:cache_%d?mode=memory&cache=shared", time.Now().UnixNano())), &gorm.Config{})
	require.NoError(t, err)

	cache, err := NewCache(db)
	require.NoError(t, err)
	require.NoError(t, cache.Put(HashText("hello"), []float32{1, 2, 3}))

	reloaded, err := NewCache(db)
	require.NoError(t, err)
	vec, ok := reloaded.Get(HashText("hello"))
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2, 3}, vec)
	assert.Equal(t, 1, reloaded.Len())

	var count int64
	require.NoError(t, db.Model(&model.EmbeddingCacheEntry{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestHashTextIsContentAddressed(t *testing.T) {
	assert.Equal(t, HashText("abc"), HashText("  abc  "))
	assert.NotEqual(t, HashText("abc"), HashText("abd"))
	assert.Len(t, HashText("abc"), 64)
}

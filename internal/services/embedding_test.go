package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragcorpus/internal/embedder"
	"ragcorpus/internal/models"
)

func TestEmbeddingPool_DelegatesToProvider(t *testing.T) {
	hash := embedder.NewHash(32)
	pool := NewEmbeddingPool(hash, 2, 8)
	pool.Start()
	defer pool.Shutdown()

	texts := []string{"one", "two", "three"}
	got, err := pool.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)

	want, err := hash.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, 32, pool.Dimension())
}

func TestEmbeddingPool_ConcurrentBatches(t *testing.T) {
	hash := embedder.NewHash(16)
	pool := NewEmbeddingPool(hash, 3, 16)
	pool.Start()
	defer pool.Shutdown()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			texts := []string{string(rune('a' + n%26))}
			vectors, err := pool.EmbedBatch(context.Background(), texts)
			if err != nil {
				errs <- err
				return
			}
			if len(vectors) != 1 || len(vectors[0]) != 16 {
				errs <- assert.AnError
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent batch failed: %v", err)
	}
}

func TestEmbeddingPool_EmptyBatch(t *testing.T) {
	pool := NewEmbeddingPool(embedder.NewHash(16), 1, 1)
	pool.Start()
	defer pool.Shutdown()

	vectors, err := pool.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vectors)
}

func TestEmbeddingPool_RejectsAfterShutdown(t *testing.T) {
	pool := NewEmbeddingPool(embedder.NewHash(16), 1, 1)
	pool.Start()
	pool.Shutdown()

	_, err := pool.EmbedBatch(context.Background(), []string{"late"})
	require.Error(t, err)

	// Losing a batch to shutdown is retryable, so it must classify as a
	// transient provider failure, not an anonymous 500.
	var pe *models.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.True(t, models.IsTransientProviderError(err))
}

func TestEmbeddingPool_HonorsCallerContext(t *testing.T) {
	pool := NewEmbeddingPool(embedder.NewHash(16), 1, 1)
	pool.Start()
	defer pool.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pool.EmbedBatch(ctx, []string{"text"})
	// Either the cancelled submit or a completed tiny batch is
	// acceptable; what matters is that a dead context cannot hang.
	if err != nil {
		assert.ErrorIs(t, err, context.Canceled)
	}
}

package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragcorpus/internal/chunking"
	"ragcorpus/internal/embedder"
	"ragcorpus/internal/models"
)

func cannedMatches(scores ...float64) []*models.SearchResult {
	out := make([]*models.SearchResult, len(scores))
	for i, score := range scores {
		out[i] = &models.SearchResult{
			Chunk: models.Chunk{
				ID:         fmt.Sprintf("chunk-%d", i),
				FileID:     "file-1",
				ChunkIndex: i,
				Content:    fmt.Sprintf("chunk content %d", i),
				Size:       15,
			},
			Score: score,
		}
	}
	return out
}

func newSearchFixture(scores ...float64) (*SearchServiceImpl, *fakeFiles) {
	files := newFakeFiles()
	files.canned = cannedMatches(scores...)
	svc := NewSearchService(embedder.NewHash(16), files)
	return svc, files
}

func TestSearch_ThresholdAndFirstPage(t *testing.T) {
	// Five chunks scoring [0.91, 0.88, 0.85, 0.40, 0.10]; threshold 0.5,
	// page 1 of size 2 -> top two results, totalCount 3, totalPages 2.
	svc, _ := newSearchFixture(0.91, 0.88, 0.85, 0.40, 0.10)

	page, err := svc.Search(context.Background(), "proj", "query", 1, 2, 0.5)
	require.NoError(t, err)

	require.Len(t, page.Results, 2)
	assert.InDelta(t, 0.91, page.Results[0].Score, 1e-9)
	assert.InDelta(t, 0.88, page.Results[1].Score, 1e-9)
	assert.Equal(t, 3, page.TotalCount)
	assert.Equal(t, 2, page.TotalPages)
}

func TestSearch_ResultsSortedAndAboveThreshold(t *testing.T) {
	svc, _ := newSearchFixture(0.2, 0.95, 0.6, 0.55, 0.81)

	page, err := svc.Search(context.Background(), "proj", "query", 1, 10, 0.5)
	require.NoError(t, err)

	require.Len(t, page.Results, 4)
	for i, result := range page.Results {
		assert.GreaterOrEqual(t, result.Score, 0.5)
		if i > 0 {
			assert.LessOrEqual(t, result.Score, page.Results[i-1].Score)
		}
	}
}

func TestSearch_PagesConcatenateToFullRanking(t *testing.T) {
	svc, _ := newSearchFixture(0.9, 0.85, 0.8, 0.75, 0.7, 0.65, 0.6)

	first, err := svc.Search(context.Background(), "proj", "query", 1, 3, 0.0)
	require.NoError(t, err)
	require.Equal(t, 7, first.TotalCount)
	require.Equal(t, 3, first.TotalPages)

	var all []models.SearchResult
	for p := 1; p <= first.TotalPages; p++ {
		page, err := svc.Search(context.Background(), "proj", "query", p, 3, 0.0)
		require.NoError(t, err)
		all = append(all, page.Results...)
	}

	require.Len(t, all, 7)
	seen := map[string]bool{}
	for i, result := range all {
		assert.False(t, seen[result.Chunk.ID], "no chunk repeats across pages")
		seen[result.Chunk.ID] = true
		if i > 0 {
			assert.LessOrEqual(t, result.Score, all[i-1].Score)
		}
	}
}

func TestSearch_PageBeyondDataIsEmptyNotError(t *testing.T) {
	svc, _ := newSearchFixture(0.9, 0.8)

	page, err := svc.Search(context.Background(), "proj", "query", 5, 2, 0.0)
	require.NoError(t, err)

	assert.Empty(t, page.Results)
	assert.Equal(t, 2, page.TotalCount)
	assert.Equal(t, 1, page.TotalPages)
}

func TestSearch_NoMatchesStillOnePage(t *testing.T) {
	svc, _ := newSearchFixture(0.1, 0.2)

	page, err := svc.Search(context.Background(), "proj", "query", 1, 10, 0.9)
	require.NoError(t, err)

	assert.Empty(t, page.Results)
	assert.Equal(t, 0, page.TotalCount)
	assert.Equal(t, 1, page.TotalPages)
}

func TestSearch_RequestsFullRanking(t *testing.T) {
	svc, files := newSearchFixture(0.9)

	_, err := svc.Search(context.Background(), "proj", "query", 1, 2, 0.0)
	require.NoError(t, err)
	assert.LessOrEqual(t, files.lastLimit, 0, "coordinator needs the unbounded ranking for exact totals")
}

func TestSearch_DeduplicatesKeepingBestScore(t *testing.T) {
	files := newFakeFiles()
	// Two rows with identical (content, index) - a storage anomaly. The
	// higher-scoring instance must win.
	dup := cannedMatches(0.9, 0.7)
	dup[1].Chunk.Content = dup[0].Chunk.Content
	dup[1].Chunk.ChunkIndex = dup[0].Chunk.ChunkIndex
	dup[1].Chunk.ID = "chunk-dup"
	files.canned = dup
	svc := NewSearchService(embedder.NewHash(16), files)

	page, err := svc.Search(context.Background(), "proj", "query", 1, 10, 0.0)
	require.NoError(t, err)

	require.Len(t, page.Results, 1)
	assert.InDelta(t, 0.9, page.Results[0].Score, 1e-9)
	assert.Equal(t, 1, page.TotalCount)
}

func TestSearch_Validation(t *testing.T) {
	svc, _ := newSearchFixture(0.9)
	ctx := context.Background()

	_, err := svc.Search(ctx, "proj", "", 1, 10, 0.5)
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = svc.Search(ctx, "proj", "query", 0, 10, 0.5)
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = svc.Search(ctx, "proj", "query", 1, 0, 0.5)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestSearch_ProviderFailureFailsWholeSearch(t *testing.T) {
	files := newFakeFiles()
	files.canned = cannedMatches(0.9)
	failing := &stubEmbedder{dim: 16, embedFn: func(texts []string) ([][]float32, error) {
		return nil, &models.ProviderError{Op: "embed", StatusCode: 401, Err: errors.New("bad key")}
	}}
	svc := NewSearchService(failing, files)

	_, err := svc.Search(context.Background(), "proj", "query", 1, 10, 0.5)
	require.Error(t, err)

	var pe *models.ProviderError
	assert.ErrorAs(t, err, &pe)
	assert.False(t, models.IsTransientProviderError(err))
}

func TestSearch_EndToEndWithIngestedChunks(t *testing.T) {
	// Ingest through the real pipeline with the deterministic embedder,
	// then search with one chunk's exact text: cosine similarity of a
	// text with itself is 1, so that chunk must rank first.
	chunker, err := chunking.NewLineChunker(3, 0)
	require.NoError(t, err)

	projects := newFakeProjects()
	files := newFakeFiles()
	hash := embedder.NewHash(64)
	ingest := NewIngestService(chunker, hash, projects, files, &eventRecorder{}, 100)
	search := NewSearchService(hash, files)

	ctx := context.Background()
	project, err := projects.Create(ctx, "docs", "")
	require.NoError(t, err)

	file, _, err := ingest.AddFile(ctx, project.ID, fileUpload("corpus.txt", 9))
	require.NoError(t, err)

	target := files.chunksByFile[file.ID][1]

	page, err := search.Search(ctx, project.ID, target.Content, 1, 5, 0.99)
	require.NoError(t, err)

	require.NotEmpty(t, page.Results)
	assert.Equal(t, target.ChunkIndex, page.Results[0].Chunk.ChunkIndex)
	assert.InDelta(t, 1.0, page.Results[0].Score, 1e-5)
}

package services

import (
	"context"
	"fmt"

	"ragcorpus/internal/middleware"
	"ragcorpus/internal/models"

	"go.opentelemetry.io/otel/attribute"
)

// SearchServiceImpl coordinates one similarity query: embed the query text,
// pull the full threshold-filtered ranking from the store, deduplicate, and
// slice out the requested page.
type SearchServiceImpl struct {
	embedder Embedder
	files    FileRepository
}

// NewSearchService creates the search coordinator.
func NewSearchService(embedder Embedder, files FileRepository) *SearchServiceImpl {
	return &SearchServiceImpl{embedder: embedder, files: files}
}

// Search runs a paginated semantic query against one project's corpus.
// A provider failure fails the whole search - there is no partial or cached
// fallback. A page past the end of the data is not an error: it returns an
// empty result slice with TotalCount/TotalPages still describing the true
// ranking.
func (s *SearchServiceImpl) Search(ctx context.Context, projectID, queryText string, page, pageSize int, threshold float64) (*models.ResultPage, error) {
	ctx, span := middleware.StartSpan(ctx, "Search.Execute",
		attribute.String("project.id", projectID),
		attribute.Int("page", page),
		attribute.Int("page_size", pageSize),
		attribute.Float64("threshold", threshold),
	)
	defer span.End()

	if queryText == "" {
		return nil, fmt.Errorf("%w: query text must not be empty", models.ErrValidation)
	}
	if page < 1 {
		return nil, fmt.Errorf("%w: page must be >= 1, got %d", models.ErrValidation, page)
	}
	if pageSize < 1 {
		return nil, fmt.Errorf("%w: page size must be >= 1, got %d", models.ErrValidation, pageSize)
	}

	vectors, err := s.embedder.EmbedBatch(ctx, []string{queryText})
	if err != nil {
		middleware.AddSpanError(ctx, err)
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	// The store ranks all matches efficiently, so ask for the complete
	// threshold-filtered ranking - exact totals need it anyway.
	ranked, err := s.files.SimilaritySearch(ctx, projectID, vectors[0], threshold, 0)
	if err != nil {
		middleware.AddSpanError(ctx, err)
		return nil, err
	}

	deduped := dedupeMatches(ranked)

	totalCount := len(deduped)
	totalPages := (totalCount + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if start > totalCount {
		start = totalCount
	}
	if end > totalCount {
		end = totalCount
	}

	middleware.AddSpanEvent(ctx, "search_ranked",
		attribute.Int("total_count", totalCount),
		attribute.Int("returned", end-start),
	)

	return &models.ResultPage{
		Results:    deduped[start:end],
		Page:       page,
		PageSize:   pageSize,
		TotalCount: totalCount,
		TotalPages: totalPages,
	}, nil
}

// dedupeMatches drops duplicate (content, chunk index) pairs, keeping the
// first - and therefore highest-scoring - occurrence of each. The unique
// index on (file_id, chunk_index) should make duplicates impossible; this
// pass keeps the query path correct against data that predates it.
func dedupeMatches(ranked []*models.SearchResult) []models.SearchResult {
	type matchKey struct {
		content string
		index   int
	}

	seen := make(map[matchKey]struct{}, len(ranked))
	out := make([]models.SearchResult, 0, len(ranked))
	for _, match := range ranked {
		key := matchKey{content: match.Chunk.Content, index: match.Chunk.ChunkIndex}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, *match)
	}
	return out
}

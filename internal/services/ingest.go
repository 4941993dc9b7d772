package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ragcorpus/internal/chunking"
	"ragcorpus/internal/middleware"
	"ragcorpus/internal/models"
	"ragcorpus/internal/services/events"

	"github.com/pgvector/pgvector-go"
	"go.opentelemetry.io/otel/attribute"
)

// IngestServiceImpl turns uploaded documents into embedded, searchable
// chunks. Ingestion is all-or-nothing: fingerprint dedup, chunking,
// embedding and persistence form one logical unit, and a failure anywhere
// leaves no partial file behind.
type IngestServiceImpl struct {
	chunker   *chunking.LineChunker
	embedder  Embedder
	projects  ProjectRepository
	files     FileRepository
	events    EventPublisher
	batchSize int
}

// NewIngestService wires the ingestion pipeline.
func NewIngestService(
	chunker *chunking.LineChunker,
	embedder Embedder,
	projects ProjectRepository,
	files FileRepository,
	publisher EventPublisher,
	batchSize int,
) *IngestServiceImpl {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &IngestServiceImpl{
		chunker:   chunker,
		embedder:  embedder,
		projects:  projects,
		files:     files,
		events:    publisher,
		batchSize: batchSize,
	}
}

// AddFile ingests a document into a project. The bool result reports whether
// a new file was created: re-submitting content whose fingerprint already
// exists in the project returns the stored file with created=false and does
// not re-chunk or re-embed anything.
func (s *IngestServiceImpl) AddFile(ctx context.Context, projectID string, upload models.FileUpload) (*models.File, bool, error) {
	ctx, span := middleware.StartSpan(ctx, "Ingest.AddFile",
		attribute.String("project.id", projectID),
		attribute.String("file.name", upload.Name),
		attribute.Int("file.bytes", len(upload.Content)),
	)
	defer span.End()

	if strings.TrimSpace(upload.Name) == "" {
		return nil, false, fmt.Errorf("%w: file name must not be empty", models.ErrValidation)
	}
	if upload.Content == "" {
		return nil, false, fmt.Errorf("%w: file content must not be empty", models.ErrValidation)
	}

	if _, err := s.projects.GetByID(ctx, projectID); err != nil {
		middleware.AddSpanError(ctx, err)
		return nil, false, err
	}

	fingerprint := upload.Fingerprint()

	existing, err := s.files.FindByFingerprint(ctx, projectID, fingerprint)
	if err == nil {
		middleware.AddSpanEvent(ctx, "dedup_hit", attribute.String("file.id", existing.ID))
		return existing, false, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		middleware.AddSpanError(ctx, err)
		return nil, false, err
	}

	pieces := s.chunker.Chunk(upload.Content)
	if len(pieces) == 0 {
		return nil, false, fmt.Errorf("%w: content produced no chunks", models.ErrValidation)
	}

	vectors, err := s.embedChunks(ctx, pieces)
	if err != nil {
		// Nothing has been persisted at this point; the failed
		// ingestion leaves no trace.
		middleware.AddSpanError(ctx, err)
		return nil, false, err
	}

	file := &models.File{
		ProjectID:   projectID,
		Name:        upload.Name,
		Content:     upload.Content,
		Fingerprint: fingerprint,
		Size:        len(upload.Content),
		Metadata:    upload.Metadata,
	}

	chunks := make([]*models.Chunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = &models.Chunk{
			ChunkIndex: piece.Index,
			Content:    piece.Content,
			Size:       piece.Size,
			Embedding:  pgvector.NewVector(vectors[i]),
		}
	}

	err = s.files.CreateWithChunks(ctx, file, chunks)
	if errors.Is(err, models.ErrConflict) {
		// A concurrent upload of identical content won the race. The
		// unique index guarantees exactly one copy survived; return it.
		winner, ferr := s.files.FindByFingerprint(ctx, projectID, fingerprint)
		if ferr != nil {
			middleware.AddSpanError(ctx, err)
			return nil, false, err
		}
		middleware.AddSpanEvent(ctx, "dedup_race_resolved", attribute.String("file.id", winner.ID))
		return winner, false, nil
	}
	if err != nil {
		middleware.AddSpanError(ctx, err)
		return nil, false, err
	}

	middleware.AddSpanEvent(ctx, "file_ingested",
		attribute.String("file.id", file.ID),
		attribute.Int("chunk.count", len(chunks)),
	)
	s.events.Publish(events.Event{
		Type:      events.TypeFileAdded,
		ProjectID: projectID,
		FileID:    file.ID,
		Name:      file.Name,
		At:        time.Now().UTC(),
	})

	return file, true, nil
}

// embedChunks embeds every chunk through the provider in bounded batches.
// Any batch failure aborts the whole file; every returned vector is checked
// against the provider's fixed dimension before it can reach storage.
func (s *IngestServiceImpl) embedChunks(ctx context.Context, pieces []chunking.Chunk) ([][]float32, error) {
	texts := make([]string, len(pieces))
	for i, piece := range pieces {
		texts[i] = piece.Content
	}

	dimension := s.embedder.Dimension()
	vectors := make([][]float32, 0, len(texts))

	for start := 0; start < len(texts); start += s.batchSize {
		end := start + s.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := s.embedder.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embedding chunks %d-%d: %w", start, end-1, err)
		}
		if len(batch) != end-start {
			return nil, &models.ProviderError{
				Op:  "embed",
				Err: fmt.Errorf("expected %d vectors, got %d", end-start, len(batch)),
			}
		}
		for i, vec := range batch {
			if len(vec) != dimension {
				return nil, &models.ProviderError{
					Op:  "embed",
					Err: fmt.Errorf("chunk %d: vector dimension %d, want %d", start+i, len(vec), dimension),
				}
			}
		}
		vectors = append(vectors, batch...)
	}

	return vectors, nil
}

// DeleteFile removes a file and, via the cascade, all of its chunks and
// embeddings. Deleting a missing file is a no-op reported as false.
func (s *IngestServiceImpl) DeleteFile(ctx context.Context, fileID string) (bool, error) {
	ctx, span := middleware.StartSpan(ctx, "Ingest.DeleteFile",
		attribute.String("file.id", fileID),
	)
	defer span.End()

	// Look up the file first so the deletion event can carry its project.
	file, err := s.files.GetByID(ctx, fileID)
	if errors.Is(err, models.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		middleware.AddSpanError(ctx, err)
		return false, err
	}

	deleted, err := s.files.Delete(ctx, fileID)
	if err != nil {
		middleware.AddSpanError(ctx, err)
		return false, err
	}

	if deleted {
		s.events.Publish(events.Event{
			Type:      events.TypeFileDeleted,
			ProjectID: file.ProjectID,
			FileID:    fileID,
			Name:      file.Name,
			At:        time.Now().UTC(),
		})
	}
	return deleted, nil
}

// ListFiles returns a project's files in insertion order. An unknown project
// simply has no files.
func (s *IngestServiceImpl) ListFiles(ctx context.Context, projectID string) ([]*models.File, error) {
	return s.files.ListByProject(ctx, projectID)
}

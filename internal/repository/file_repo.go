package repository

import (
	"context"
	"errors"
	"fmt"

	"ragcorpus/internal/models"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// FileRepositoryImpl handles file and chunk persistence plus vector search
// using pgvector. This is the IMPLEMENTATION - consumers declare interfaces.
type FileRepositoryImpl struct {
	db *gorm.DB
}

// NewFileRepository creates a new file repository
func NewFileRepository(db *gorm.DB) *FileRepositoryImpl {
	return &FileRepositoryImpl{db: db}
}

// FindByFingerprint looks up a file in a project by its content fingerprint.
// Returns ErrNotFound when no such file exists.
func (r *FileRepositoryImpl) FindByFingerprint(ctx context.Context, projectID, fingerprint string) (*models.File, error) {
	var file models.File

	err := r.db.WithContext(ctx).
		First(&file, "project_id = ? AND fingerprint = ?", projectID, fingerprint).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: file with fingerprint %s in project %s", models.ErrNotFound, fingerprint, projectID)
	}
	if err != nil {
		return nil, storageError("find file by fingerprint", err)
	}

	return &file, nil
}

// GetByID retrieves a file by its KSUID.
func (r *FileRepositoryImpl) GetByID(ctx context.Context, id string) (*models.File, error) {
	var file models.File

	err := r.db.WithContext(ctx).First(&file, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: file %s", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, storageError("get file", err)
	}

	return &file, nil
}

// CreateWithChunks persists a file and its embedded chunks as one
// transaction - either the whole ingestion lands or none of it does, so
// readers never observe a half-ingested file. A duplicated-key error means a
// concurrent ingestion of identical content won the race and surfaces as
// ErrConflict for the caller to resolve idempotently.
func (r *FileRepositoryImpl) CreateWithChunks(ctx context.Context, file *models.File, chunks []*models.Chunk) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(file).Error; err != nil {
			return err
		}

		for _, chunk := range chunks {
			chunk.FileID = file.ID
		}
		if len(chunks) > 0 {
			if err := tx.CreateInBatches(chunks, 200).Error; err != nil {
				return err
			}
		}
		return nil
	})

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: file with fingerprint %s already exists in project %s",
			models.ErrConflict, file.Fingerprint, file.ProjectID)
	}
	if err != nil {
		return storageError("persist file with chunks", err)
	}

	return nil
}

// Delete removes a file; postgres cascades the delete to its chunks and
// their embeddings in the same statement, so a racing search sees either the
// full chunk set or none of it. Returns false (not an error) when the file
// does not exist.
func (r *FileRepositoryImpl) Delete(ctx context.Context, fileID string) (bool, error) {
	result := r.db.WithContext(ctx).Delete(&models.File{}, "id = ?", fileID)
	if result.Error != nil {
		return false, storageError("delete file", result.Error)
	}

	return result.RowsAffected > 0, nil
}

// ListByProject returns a project's files in insertion order.
func (r *FileRepositoryImpl) ListByProject(ctx context.Context, projectID string) ([]*models.File, error) {
	var files []*models.File

	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("id ASC").
		Find(&files).Error
	if err != nil {
		return nil, storageError("list files", err)
	}

	return files, nil
}

// chunkMatchRow is the scan target for the raw similarity query.
type chunkMatchRow struct {
	ID         string
	FileID     string
	ChunkIndex int
	Content    string
	Size       int
	Score      float64
}

// SimilaritySearch scores every chunk in the project against the query vector
// with cosine similarity (score = 1 - cosine distance, range [-1, 1]), keeps
// matches at or above threshold, and ranks them score-descending with
// (file_id, chunk_index) as the deterministic tie-break. limit <= 0 returns
// the full ranking.
//
// Raw SQL because the <=> operator is pgvector's; GORM has no native support.
func (r *FileRepositoryImpl) SimilaritySearch(ctx context.Context, projectID string, query []float32, threshold float64, limit int) ([]*models.SearchResult, error) {
	vec := pgvector.NewVector(query)

	sql := `
		SELECT
			c.id,
			c.file_id,
			c.chunk_index,
			c.content,
			c.size,
			1 - (c.embedding <=> ?) AS score
		FROM chunks c
		JOIN files f ON f.id = c.file_id
		WHERE f.project_id = ?
		  AND 1 - (c.embedding <=> ?) >= ?
		ORDER BY c.embedding <=> ? ASC, c.file_id ASC, c.chunk_index ASC`
	args := []any{vec, projectID, vec, threshold, vec}

	if limit > 0 {
		sql += " LIMIT ?"
		args = append(args, limit)
	}

	var rows []chunkMatchRow
	if err := r.db.WithContext(ctx).Raw(sql, args...).Scan(&rows).Error; err != nil {
		return nil, storageError("similarity search", err)
	}

	results := make([]*models.SearchResult, 0, len(rows))
	for _, row := range rows {
		results = append(results, &models.SearchResult{
			Chunk: models.Chunk{
				ID:         row.ID,
				FileID:     row.FileID,
				ChunkIndex: row.ChunkIndex,
				Content:    row.Content,
				Size:       row.Size,
			},
			Score: row.Score,
		})
	}
	return results, nil
}

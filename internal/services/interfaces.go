package services

import (
	"context"

	"ragcorpus/internal/models"
	"ragcorpus/internal/services/events"
)

// Interfaces live with their consumer, not their implementation
// ("accept interfaces, return structs"). This package consumes the
// repositories and the embedding provider, so their contracts are declared
// here, trimmed to the methods actually used.

// Embedder is the embedding-provider capability. EmbedBatch returns one
// vector per input, in input order, or fails the whole batch; Dimension is
// the provider's fixed vector size, validated on every write.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// ProjectRepository defines what the services need from project storage.
type ProjectRepository interface {
	Create(ctx context.Context, name, description string) (*models.Project, error)
	GetOrCreate(ctx context.Context, name, description string) (*models.Project, error)
	GetByID(ctx context.Context, id string) (*models.Project, error)
	List(ctx context.Context) ([]*models.Project, error)
}

// FileRepository defines what the services need from file/chunk storage.
type FileRepository interface {
	FindByFingerprint(ctx context.Context, projectID, fingerprint string) (*models.File, error)
	GetByID(ctx context.Context, id string) (*models.File, error)
	CreateWithChunks(ctx context.Context, file *models.File, chunks []*models.Chunk) error
	Delete(ctx context.Context, fileID string) (bool, error)
	ListByProject(ctx context.Context, projectID string) ([]*models.File, error)
	SimilaritySearch(ctx context.Context, projectID string, query []float32, threshold float64, limit int) ([]*models.SearchResult, error)
}

// EventPublisher lets services announce corpus mutations without knowing
// how (or whether) anyone is listening.
type EventPublisher interface {
	Publish(event events.Event)
}

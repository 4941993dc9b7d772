package api

import (
	"context"

	"ragcorpus/internal/models"
)

// This package is the CONSUMER of the services and repositories, so the
// contracts it depends on are declared here, limited to the methods the
// handlers actually call.

// ProjectStore defines what handlers need from project storage.
type ProjectStore interface {
	Create(ctx context.Context, name, description string) (*models.Project, error)
	GetOrCreate(ctx context.Context, name, description string) (*models.Project, error)
	List(ctx context.Context) ([]*models.Project, error)
}

// IngestService defines what handlers need from the ingestion pipeline.
type IngestService interface {
	AddFile(ctx context.Context, projectID string, upload models.FileUpload) (*models.File, bool, error)
	DeleteFile(ctx context.Context, fileID string) (bool, error)
	ListFiles(ctx context.Context, projectID string) ([]*models.File, error)
}

// SearchService defines what handlers need from the search coordinator.
type SearchService interface {
	Search(ctx context.Context, projectID, queryText string, page, pageSize int, threshold float64) (*models.ResultPage, error)
}

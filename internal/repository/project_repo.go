package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ragcorpus/internal/models"

	"gorm.io/gorm"
)

// ProjectRepositoryImpl handles project persistence using GORM.
// This is the IMPLEMENTATION - the services package declares the interface
// it needs ("accept interfaces, return structs").
type ProjectRepositoryImpl struct {
	db *gorm.DB
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(db *gorm.DB) *ProjectRepositoryImpl {
	return &ProjectRepositoryImpl{db: db}
}

// storageError tags persistence failures with the ErrStorage sentinel so the
// HTTP layer can classify them without knowing gorm.
func storageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", models.ErrStorage, op, err)
}

// Create inserts a new project. An empty name is a validation error; a name
// collision surfaces as ErrConflict.
func (r *ProjectRepositoryImpl) Create(ctx context.Context, name, description string) (*models.Project, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: project name must not be empty", models.ErrValidation)
	}

	project := &models.Project{Name: name, Description: description}
	err := r.db.WithContext(ctx).Create(project).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, fmt.Errorf("%w: project %q already exists", models.ErrConflict, name)
	}
	if err != nil {
		return nil, storageError("create project", err)
	}

	return project, nil
}

// GetOrCreate returns the project with the given name, creating it if absent.
// Safe under concurrent callers: the unique index on name guarantees at most
// one row survives, and a lost insert race is resolved by re-reading the
// winning record.
func (r *ProjectRepositoryImpl) GetOrCreate(ctx context.Context, name, description string) (*models.Project, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: project name must not be empty", models.ErrValidation)
	}

	var existing models.Project
	err := r.db.WithContext(ctx).First(&existing, "name = ?", name).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storageError("find project", err)
	}

	project := &models.Project{Name: name, Description: description}
	err = r.db.WithContext(ctx).Create(project).Error
	if err == nil {
		return project, nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, storageError("create project", err)
	}

	// A concurrent caller won the insert - return the surviving row.
	if err := r.db.WithContext(ctx).First(&existing, "name = ?", name).Error; err != nil {
		return nil, storageError("re-read project after conflict", err)
	}
	return &existing, nil
}

// GetByID retrieves a project by its KSUID.
func (r *ProjectRepositoryImpl) GetByID(ctx context.Context, id string) (*models.Project, error) {
	var project models.Project

	err := r.db.WithContext(ctx).First(&project, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: project %s", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, storageError("get project", err)
	}

	return &project, nil
}

// List returns all projects in insertion order. KSUIDs are time-ordered, so
// sorting by ID is sorting by creation time - stable across calls.
func (r *ProjectRepositoryImpl) List(ctx context.Context) ([]*models.Project, error) {
	var projects []*models.Project

	if err := r.db.WithContext(ctx).Order("id ASC").Find(&projects).Error; err != nil {
		return nil, storageError("list projects", err)
	}

	return projects, nil
}

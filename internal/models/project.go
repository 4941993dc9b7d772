package models

import (
	"time"

	"github.com/segmentio/ksuid"
	"gorm.io/gorm"
)

// Project groups a set of ingested files into one searchable corpus.
// Learning: Using KSUID instead of UUID provides:
// - Time-based sorting (first 32 bits are timestamp)
// - Better database index performance (sequential, less B-tree fragmentation)
// - Smaller string representation (27 chars vs 36 for UUID)
//
// Because KSUIDs are time-ordered, "insertion order" listings are just
// ORDER BY id.
type Project struct {
	ID          string    `json:"id" gorm:"type:char(27);primaryKey"`
	Name        string    `json:"name" gorm:"type:text;not null;uniqueIndex:idx_projects_name"`
	Description string    `json:"description" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`

	Files []File `json:"files,omitempty" gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
}

// BeforeCreate hook generates KSUID before inserting
func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = ksuid.New().String()
	}
	return nil
}

// ProjectCreate is the inbound payload for creating (or resolving) a project.
type ProjectCreate struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

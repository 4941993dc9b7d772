package models

import (
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/segmentio/ksuid"
	"gorm.io/gorm"
)

// Chunk is a contiguous line-bounded slice of a file, the unit of embedding
// and retrieval. The embedding vector lives on the chunk row itself (NOT NULL),
// so a chunk without an embedding cannot exist. ChunkIndex is the 0-based
// position in the file's chunk sequence; the unique index on
// (file_id, chunk_index) keeps duplicate chunk rows out of the store.
type Chunk struct {
	ID         string          `json:"id" gorm:"type:char(27);primaryKey"`
	FileID     string          `json:"file_id" gorm:"type:char(27);not null;index;uniqueIndex:idx_chunks_file_index"`
	ChunkIndex int             `json:"index" gorm:"not null;uniqueIndex:idx_chunks_file_index"`
	Content    string          `json:"content" gorm:"type:text;not null"`
	Size       int             `json:"size" gorm:"not null"`
	Embedding  pgvector.Vector `json:"-" gorm:"type:vector(1536);not null"`
	CreatedAt  time.Time       `json:"created_at" gorm:"column:created_at;autoCreateTime"`
}

// BeforeCreate hook generates KSUID before inserting
func (c *Chunk) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = ksuid.New().String()
	}
	return nil
}

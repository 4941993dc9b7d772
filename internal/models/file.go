package models

import (
	"crypto/md5"
	"encoding/hex"
	"time"

	"github.com/segmentio/ksuid"
	"gorm.io/gorm"
)

// File is one immutable document inside a project. Re-submitting the same
// content to the same project is detected through the fingerprint and must
// not produce a second embedded copy, so (project_id, fingerprint) carries
// a unique index and ingestion relies on it rather than on locking.
type File struct {
	ID          string         `json:"id" gorm:"type:char(27);primaryKey"`
	ProjectID   string         `json:"project_id" gorm:"type:char(27);not null;index;uniqueIndex:idx_files_project_fingerprint"`
	Name        string         `json:"name" gorm:"type:text;not null"`
	Content     string         `json:"content" gorm:"type:text;not null"`
	Fingerprint string         `json:"fingerprint" gorm:"type:char(32);not null;uniqueIndex:idx_files_project_fingerprint"`
	Size        int            `json:"size" gorm:"not null"`
	Metadata    map[string]any `json:"metadata" gorm:"type:jsonb;default:'{}';serializer:json"`
	CreatedAt   time.Time      `json:"created_at" gorm:"column:created_at;autoCreateTime"`

	Chunks []Chunk `json:"chunks,omitempty" gorm:"foreignKey:FileID;constraint:OnDelete:CASCADE"`
}

// BeforeCreate hook generates KSUID before inserting
func (f *File) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = ksuid.New().String()
	}
	return nil
}

// FileUpload is the inbound payload for ingesting a document.
type FileUpload struct {
	Name     string         `json:"name"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

// Fingerprint computes the content fingerprint used for dedup.
// MD5 here is a change-detection key, not a security boundary.
func (u FileUpload) Fingerprint() string {
	sum := md5.Sum([]byte(u.Content))
	return hex.EncodeToString(sum[:])
}

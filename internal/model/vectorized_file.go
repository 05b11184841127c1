package model

import "time"

type FileStatus string

const (
	FileInProgress FileStatus = "in_progress"
	FileVectorized FileStatus = "vectorized"
	FileEmpty      FileStatus = "empty"
	FileFailed     FileStatus = "failed"
)

// VectorizedFile records one ingestion of a file into a collection. The
// vectors themselves live in the vector store.
type VectorizedFile struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	AttorneyID  string     `gorm:"size:64;not null;index" json:"attorney_id"`
	ApplicantID string     `gorm:"size:64;not null;index" json:"applicant_id"`
	Collection  string     `gorm:"size:160;not null;uniqueIndex:idx_collection_file" json:"collection"`
	Tag         string     `gorm:"size:32;not null;uniqueIndex:idx_collection_file" json:"tag"`
	Filename    string     `gorm:"size:255;not null;uniqueIndex:idx_collection_file" json:"filename"`
	Status      FileStatus `gorm:"size:16;not null;index" json:"status"`
	ChunkCount  int        `gorm:"not null;default:0" json:"chunk_count"`
	Error       string     `gorm:"type:text" json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

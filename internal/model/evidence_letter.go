package model

import "time"

// EvidenceLetter is a cover letter drafted from an applicant's screening.
type EvidenceLetter struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	AttorneyID  string    `gorm:"size:64;not null;index:idx_evidence_owner" json:"attorney_id"`
	ApplicantID string    `gorm:"size:64;not null;index:idx_evidence_owner" json:"applicant_id"`
	ScreeningID uint      `gorm:"index" json:"screening_id"`
	Letter      string    `gorm:"type:longtext;not null" json:"letter"`
	CreatedAt   time.Time `json:"created_at"`
}

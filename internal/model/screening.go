package model

import "time"

// Screening is one summarize run over an applicant's questionnaire.
type Screening struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	AttorneyID  string            `gorm:"size:64;not null;index:idx_screening_owner" json:"attorney_id"`
	ApplicantID string            `gorm:"size:64;not null;index:idx_screening_owner" json:"applicant_id"`
	Answers     []ScreeningAnswer `gorm:"constraint:OnDelete:CASCADE" json:"answers"`
	CreatedAt   time.Time         `json:"created_at"`
}

type ScreeningAnswer struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ScreeningID uint      `gorm:"not null;index" json:"screening_id"`
	Position    int       `gorm:"not null" json:"position"`
	Question    string    `gorm:"type:text;not null" json:"question"`
	Answer      string    `gorm:"type:longtext;not null" json:"answer"`
	Source      string    `gorm:"type:text" json:"source"`
	CreatedAt   time.Time `json:"created_at"`
}

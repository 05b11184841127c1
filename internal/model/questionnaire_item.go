package model

import "time"

// QuestionnaireItem is one stored prompt of an applicant's questionnaire.
type QuestionnaireItem struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	AttorneyID  string    `gorm:"size:64;not null;index:idx_questionnaire_owner" json:"attorney_id"`
	ApplicantID string    `gorm:"size:64;not null;index:idx_questionnaire_owner" json:"applicant_id"`
	Position    int       `gorm:"not null" json:"position"`
	Question    string    `gorm:"type:text;not null" json:"question"`
	DetailLevel string    `gorm:"size:32;not null" json:"detail_level"`
	Tags        []string  `gorm:"type:text;serializer:json" json:"tags"`
	Filenames   []string  `gorm:"type:text;serializer:json" json:"filenames"`
	CreatedAt   time.Time `json:"created_at"`
}

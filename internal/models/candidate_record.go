package models

import (
	"time"
)

// CandidateRecord is a finished, scored interview kept in the roster.
type CandidateRecord struct {
	ID               string        `gorm:"type:text;primaryKey" json:"id"`
	SessionID        string        `gorm:"type:text;index" json:"session_id"`
	ResumeDocumentID string        `gorm:"type:text" json:"resume_document_id,omitempty"`
	Name             string        `gorm:"type:text" json:"name"`
	Email            string        `gorm:"type:text" json:"email"`
	Phone            string        `gorm:"type:text" json:"phone"`
	FinalScore       float64       `gorm:"not null;default:0" json:"final_score"`
	FinalSummary     string        `gorm:"type:text" json:"final_summary"`
	Chat             []ScoreResult `gorm:"type:text;serializer:json" json:"chat"`
	CreatedAt        time.Time     `gorm:"autoCreateTime" json:"created_at"`
}

func (CandidateRecord) TableName() string {
	return "candidates"
}

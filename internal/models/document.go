package models

import (
	"time"
)

// Document is an uploaded resume file.
type Document struct {
	ID               string    `gorm:"type:text;primaryKey" json:"id"`
	SessionID        string    `gorm:"type:text;index" json:"session_id"`
	Filename         string    `gorm:"type:text" json:"filename"`
	OriginalFileName string    `gorm:"type:text" json:"original_filename"`
	FilePath         string    `gorm:"type:text" json:"file_path"`
	TextLength       int       `json:"text_length"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (d *Document) TableName() string {
	return "documents"
}

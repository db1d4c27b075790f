package models

import "time"

// ErrorLog records a failure the daemon absorbed instead of stopping on.
// Rows are append-only; Clear removes them with the journal
type ErrorLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Timestamp time.Time `gorm:"not null;index" json:"timestamp"`
	Source    string    `gorm:"not null;default:'';index" json:"source"` // "journal" or "monitor"
	Message   string    `gorm:"not null" json:"message"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

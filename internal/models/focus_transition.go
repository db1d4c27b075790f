package models

import (
	"time"

	"gorm.io/gorm"
)

// Transition kinds as stored in focus_transitions.kind
const (
	TransitionEnter = "enter"
	TransitionExit  = "exit"
	// TransitionStop closes an open session when monitoring stops while a
	// target still has focus.
	TransitionStop = "stop"
)

type FocusTransition struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	Timestamp     time.Time      `gorm:"not null;index" json:"timestamp"`
	Kind          string         `gorm:"not null;index" json:"kind"`
	ProcessName   string         `gorm:"not null" json:"process_name"`
	Target        string         `gorm:"not null;index" json:"target"` // canonical (uppercase) target name
	WindowTitle   string         `gorm:"not null;default:''" json:"window_title"`
	ClassName     string         `gorm:"not null;default:''" json:"class_name"`
	ProcessID     uint32         `gorm:"not null;default:0" json:"process_id"`
	WindowHandle  uint64         `gorm:"not null;default:0" json:"window_handle"`
	DisplayServer string         `gorm:"not null;default:''" json:"display_server"` // "x11", "wayland" or "windows"
	CreatedAt     time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// OpensSession reports whether focus entered a target
func (t *FocusTransition) OpensSession() bool {
	return t.Kind == TransitionEnter
}

type TargetSummary struct {
	Target       string  `json:"target"`
	TotalSeconds int64   `json:"total_seconds"`
	TotalMinutes float64 `json:"total_minutes"`
	TotalHours   float64 `json:"total_hours"`
	Duration     string  `json:"duration"`
	Sessions     int     `json:"sessions"`
	Percentage   float64 `json:"percentage,omitempty"`
}

type ReportPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Type  string    `json:"type"` // "day", "week", "month"
}

type Report struct {
	Period       ReportPeriod    `json:"period"`
	Targets      []TargetSummary `json:"targets"`
	TotalSeconds int64           `json:"total_seconds"`
	TotalMinutes float64         `json:"total_minutes"`
	TotalHours   float64         `json:"total_hours"`
	Transitions  int             `json:"transitions"`
	GeneratedAt  time.Time       `json:"generated_at"`
}

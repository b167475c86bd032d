package models

import "time"

// Diagnosis is one stored leaf diagnosis. Only written when the history store is enabled.
type Diagnosis struct {
	ID          uint      `gorm:"primaryKey"`
	CreatedAt   time.Time `gorm:"index"`
	FileName    string    `gorm:"size:255"`
	Source      string    `gorm:"size:32;index"` // "upload" or "watch"
	Label       string    `gorm:"size:128;not null"`
	Plant       string    `gorm:"size:64;not null;index"`
	Disease     string    `gorm:"size:128;not null;index"`
	Confidence  float64   `gorm:"not null"`
	Severity    float64   `gorm:"not null"`
	WaterStress float64   `gorm:"not null"`
}

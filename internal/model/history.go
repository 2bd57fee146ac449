package model

import (
	"time"

	"gorm.io/gorm"
)

type History struct {
	gorm.Model
	Outcome  Outcome `gorm:"not null"`
	Attempts int     `gorm:"not null"`
	Reason   string  `gorm:"not null"`
	ErrMsg   string
	SyncedAt time.Time `gorm:"not null"`
}

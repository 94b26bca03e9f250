package entity

import (
	"database/sql"
	"time"
)

type ReferralCode struct {
	Base

	OwnerID string
	Owner   User `gorm:"foreignKey:OwnerID"`

	Code        string `gorm:"unique"`
	Description string

	// MaxUses of zero means unlimited.
	MaxUses   int
	UsedCount int

	RewardMultiplier float64
	IsActive         bool
	ExpiresAt        time.Time
	LastUsedAt       sql.NullTime

	Metadata Map
}

package entity

import (
	"database/sql"

	"github.com/referlab/backend/pkg/enum"
)

type ReferralStatus string

var (
	ReferralPending    = enum.New(ReferralStatus("pending"))
	ReferralRegistered = enum.New(ReferralStatus("registered"))
	ReferralQualified  = enum.New(ReferralStatus("qualified"))
	ReferralCompleted  = enum.New(ReferralStatus("completed"))
	ReferralExpired    = enum.New(ReferralStatus("expired"))
	ReferralInvalid    = enum.New(ReferralStatus("invalid"))
)

// IsTerminal reports whether no further transition is legal from s.
func (s ReferralStatus) IsTerminal() bool {
	switch s {
	case ReferralCompleted, ReferralExpired, ReferralInvalid:
		return true
	}

	return false
}

const (
	InvalidReasonCircular  = "circular_referral"
	InvalidReasonTooDeep   = "chain_too_deep"
	InvalidReasonDuplicate = "duplicate_referral"
)

type Referral struct {
	Base

	ReferrerID string
	Referrer   User `gorm:"foreignKey:ReferrerID"`

	// ReferredUserID is null for referrals ingested before the referred
	// account existed; it is always bound by the time of registration.
	ReferredUserID sql.NullString
	ReferredUser   User `gorm:"foreignKey:ReferredUserID"`

	ReferralCodeID string
	ReferralCode   ReferralCode `gorm:"foreignKey:ReferralCodeID"`

	Status ReferralStatus `gorm:"index"`

	RegisteredAt sql.NullTime
	QualifiedAt  sql.NullTime
	CompletedAt  sql.NullTime
	ExpiredAt    sql.NullTime

	RewardAmount       float64
	CompletedEventType string
	ConversionAmount   float64

	InvalidReason string
	ChainDepth    int

	Metadata Map
}

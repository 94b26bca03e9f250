package entity

import "github.com/referlab/backend/pkg/enum"

type ReferralEventType string

var (
	EventCodeUsed     = enum.New(ReferralEventType("code_used"))
	EventRegistered   = enum.New(ReferralEventType("registered"))
	EventKycCompleted = enum.New(ReferralEventType("kyc_completed"))
	EventFirstTrade   = enum.New(ReferralEventType("first_trade"))
	EventFirstBet     = enum.New(ReferralEventType("first_bet"))
	EventExpired      = enum.New(ReferralEventType("expired"))
	EventInvalidated  = enum.New(ReferralEventType("invalidated"))
)

// ReferralEvent is the append-only audit log of a referral's lifecycle.
// Rows are never updated or deleted.
type ReferralEvent struct {
	SnowFlakeBase

	ReferralID string
	Referral   Referral `gorm:"foreignKey:ReferralID"`

	Type    ReferralEventType `gorm:"index"`
	ActorID string

	Metadata Map
}

package entity

import (
	"database/sql"

	"github.com/referlab/backend/pkg/enum"
)

type RewardType string

var (
	RewardCash     = enum.New(RewardType("cash"))
	RewardCredit   = enum.New(RewardType("credit"))
	RewardDiscount = enum.New(RewardType("discount"))
	RewardFeature  = enum.New(RewardType("feature"))
)

type RewardStatus string

var (
	RewardPending   = enum.New(RewardStatus("pending"))
	RewardApproved  = enum.New(RewardStatus("approved"))
	RewardPaid      = enum.New(RewardStatus("paid"))
	RewardExpired   = enum.New(RewardStatus("expired"))
	RewardCancelled = enum.New(RewardStatus("cancelled"))
)

// Requirement names recognized by the claim validator.
const (
	RequirementMinReferrals = "MIN_REFERRALS"
	RequirementMinEarnings  = "MIN_EARNINGS"
)

type Reward struct {
	Base

	UserID string
	User   User `gorm:"foreignKey:UserID"`

	// ReferralID is null for rewards not originating from a referral.
	ReferralID sql.NullString
	Referral   Referral `gorm:"foreignKey:ReferralID"`

	Type     RewardType
	Amount   float64
	Currency string
	Status   RewardStatus `gorm:"index"`

	IsActive  bool
	StartsAt  sql.NullTime
	ExpiresAt sql.NullTime
	PaidAt    sql.NullTime

	// MaxClaims of zero means unlimited.
	MaxClaims     int
	CurrentClaims int

	// Requirements maps requirement names to their thresholds, e.g.
	// {"MIN_REFERRALS": 3}.
	Requirements Map
	Metadata     Map
}

type RewardClaim struct {
	Base

	RewardID string `gorm:"uniqueIndex:idx_reward_user"`
	Reward   Reward `gorm:"foreignKey:RewardID"`

	UserID string `gorm:"uniqueIndex:idx_reward_user"`
	User   User   `gorm:"foreignKey:UserID"`

	Metadata Map
}

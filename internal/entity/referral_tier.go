package entity

import "github.com/referlab/backend/pkg/enum"

type TierName string

var (
	TierBronze   = enum.New(TierName("bronze"))
	TierSilver   = enum.New(TierName("silver"))
	TierGold     = enum.New(TierName("gold"))
	TierPlatinum = enum.New(TierName("platinum"))
	TierDiamond  = enum.New(TierName("diamond"))
)

// ReferralTier is read-mostly reference data owned by administrators. The
// ladder must be gapless: every completed-referral count maps to exactly
// one active tier.
type ReferralTier struct {
	Base

	Name TierName `gorm:"unique"`

	MinReferrals int
	// MaxReferrals of -1 means unbounded.
	MaxReferrals int

	Multiplier  float64
	BonusReward float64

	Features Array[string]

	IsActive     bool
	DisplayOrder int
}

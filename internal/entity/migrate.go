package entity

import (
	"context"

	"github.com/google/uuid"
	"github.com/referlab/backend/pkg/xcontext"
)

func MigrateTable(ctx context.Context) error {
	if err := xcontext.DB(ctx).AutoMigrate(
		&User{},
		&ReferralCode{},
		&Referral{},
		&ReferralEvent{},
		&Reward{},
		&RewardClaim{},
		&ReferralTier{},
	); err != nil {
		return err
	}

	return seedTiers(ctx)
}

// seedTiers installs the default tier ladder if no tier exists yet. The
// ladder is gapless: min bounds meet the previous max bound plus one.
func seedTiers(ctx context.Context) error {
	var count int64
	if err := xcontext.DB(ctx).Model(&ReferralTier{}).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		return nil
	}

	defaults := []ReferralTier{
		{Name: TierBronze, MinReferrals: 0, MaxReferrals: 4, Multiplier: 1.0, BonusReward: 0, DisplayOrder: 1},
		{Name: TierSilver, MinReferrals: 5, MaxReferrals: 9, Multiplier: 1.5, BonusReward: 0, DisplayOrder: 2},
		{Name: TierGold, MinReferrals: 10, MaxReferrals: 24, Multiplier: 2.0, BonusReward: 5, DisplayOrder: 3},
		{Name: TierPlatinum, MinReferrals: 25, MaxReferrals: 49, Multiplier: 2.5, BonusReward: 10, DisplayOrder: 4},
		{Name: TierDiamond, MinReferrals: 50, MaxReferrals: -1, Multiplier: 3.0, BonusReward: 25, DisplayOrder: 5},
	}

	for i := range defaults {
		defaults[i].Base = Base{ID: uuid.NewString()}
		defaults[i].IsActive = true
		if err := xcontext.DB(ctx).Create(&defaults[i]).Error; err != nil {
			return err
		}
	}

	return nil
}

package repository

import (
	"context"

	"github.com/referlab/backend/internal/entity"
	"github.com/referlab/backend/pkg/xcontext"
	"gorm.io/gorm/clause"
)

type ReferralTierRepository interface {
	GetActiveOrdered(ctx context.Context) ([]entity.ReferralTier, error)
	GetByName(ctx context.Context, name entity.TierName) (*entity.ReferralTier, error)
	Upsert(ctx context.Context, data *entity.ReferralTier) error
}

type referralTierRepository struct{}

func NewReferralTierRepository() *referralTierRepository {
	return &referralTierRepository{}
}

func (r *referralTierRepository) GetActiveOrdered(ctx context.Context) ([]entity.ReferralTier, error) {
	var result []entity.ReferralTier
	err := xcontext.DB(ctx).
		Where("is_active=?", true).
		Order("min_referrals asc").
		Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *referralTierRepository) GetByName(ctx context.Context, name entity.TierName) (*entity.ReferralTier, error) {
	var result entity.ReferralTier
	if err := xcontext.DB(ctx).Take(&result, "name=?", name).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *referralTierRepository) Upsert(ctx context.Context, data *entity.ReferralTier) error {
	return xcontext.DB(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"min_referrals", "max_referrals", "multiplier",
			"bonus_reward", "features", "is_active", "display_order",
		}),
	}).Create(data).Error
}

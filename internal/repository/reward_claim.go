package repository

import (
	"context"

	"github.com/referlab/backend/internal/entity"
	"github.com/referlab/backend/pkg/xcontext"
)

type RewardClaimRepository interface {
	Create(ctx context.Context, data *entity.RewardClaim) error
	GetByRewardAndUser(ctx context.Context, rewardID, userID string) (*entity.RewardClaim, error)
	CountByRewardID(ctx context.Context, rewardID string) (int64, error)
}

type rewardClaimRepository struct{}

func NewRewardClaimRepository() *rewardClaimRepository {
	return &rewardClaimRepository{}
}

func (r *rewardClaimRepository) Create(ctx context.Context, data *entity.RewardClaim) error {
	return xcontext.DB(ctx).Create(data).Error
}

func (r *rewardClaimRepository) GetByRewardAndUser(
	ctx context.Context, rewardID, userID string,
) (*entity.RewardClaim, error) {
	var result entity.RewardClaim
	err := xcontext.DB(ctx).
		Where("reward_id=? AND user_id=?", rewardID, userID).
		Take(&result).Error
	if err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *rewardClaimRepository) CountByRewardID(ctx context.Context, rewardID string) (int64, error) {
	var count int64
	err := xcontext.DB(ctx).
		Model(&entity.RewardClaim{}).
		Where("reward_id=?", rewardID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

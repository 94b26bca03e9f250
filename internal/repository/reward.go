package repository

import (
	"context"
	"errors"
	"time"

	"github.com/referlab/backend/internal/entity"
	"github.com/referlab/backend/pkg/xcontext"
	"gorm.io/gorm"
)

type RewardRepository interface {
	Create(ctx context.Context, data *entity.Reward) error
	GetByID(ctx context.Context, id string) (*entity.Reward, error)
	GetListByUserID(ctx context.Context, userID string, offset, limit int) ([]entity.Reward, error)

	// UpdateStatus is conditioned on the expected prior status; zero rows
	// changed is reported as gorm.ErrRecordNotFound.
	UpdateStatus(ctx context.Context, id string, from, to entity.RewardStatus, updates map[string]any) error

	// IncrementClaims bumps current_claims under the ceiling; the loser of
	// a race at the ceiling gets gorm.ErrRecordNotFound.
	IncrementClaims(ctx context.Context, id string) error

	GetExpiredPending(ctx context.Context, now time.Time) ([]entity.Reward, error)
	SumAmountByUserID(ctx context.Context, userID string, status []entity.RewardStatus) (float64, error)
	ExistsByReferralAndType(ctx context.Context, referralID string, rewardType entity.RewardType) (bool, error)
}

type rewardRepository struct{}

func NewRewardRepository() *rewardRepository {
	return &rewardRepository{}
}

func (r *rewardRepository) Create(ctx context.Context, data *entity.Reward) error {
	return xcontext.DB(ctx).Create(data).Error
}

func (r *rewardRepository) GetByID(ctx context.Context, id string) (*entity.Reward, error) {
	var result entity.Reward
	if err := xcontext.DB(ctx).Take(&result, "id=?", id).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *rewardRepository) GetListByUserID(
	ctx context.Context, userID string, offset, limit int,
) ([]entity.Reward, error) {
	var result []entity.Reward
	tx := xcontext.DB(ctx).
		Where("user_id=?", userID).
		Order("created_at desc")

	if limit > 0 {
		tx = tx.Offset(offset).Limit(limit)
	}

	if err := tx.Find(&result).Error; err != nil {
		return nil, err
	}

	return result, nil
}

func (r *rewardRepository) UpdateStatus(
	ctx context.Context, id string, from, to entity.RewardStatus, updates map[string]any,
) error {
	if updates == nil {
		updates = map[string]any{}
	}
	updates["status"] = to

	tx := xcontext.DB(ctx).
		Model(&entity.Reward{}).
		Where("id=? AND status=?", id, from).
		Updates(updates)
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *rewardRepository) IncrementClaims(ctx context.Context, id string) error {
	tx := xcontext.DB(ctx).
		Model(&entity.Reward{}).
		Where("id=? AND (max_claims=0 OR current_claims<max_claims)", id).
		Update("current_claims", gorm.Expr("current_claims+1"))
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected > 1 {
		return errors.New("the number of affected rows is invalid")
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *rewardRepository) GetExpiredPending(ctx context.Context, now time.Time) ([]entity.Reward, error) {
	var result []entity.Reward
	err := xcontext.DB(ctx).
		Where("status=? AND expires_at IS NOT NULL AND expires_at < ?", entity.RewardPending, now).
		Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *rewardRepository) SumAmountByUserID(
	ctx context.Context, userID string, status []entity.RewardStatus,
) (float64, error) {
	var sum float64
	err := xcontext.DB(ctx).
		Model(&entity.Reward{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("user_id=? AND status IN (?)", userID, status).
		Scan(&sum).Error
	if err != nil {
		return 0, err
	}

	return sum, nil
}

func (r *rewardRepository) ExistsByReferralAndType(
	ctx context.Context, referralID string, rewardType entity.RewardType,
) (bool, error) {
	var count int64
	err := xcontext.DB(ctx).
		Model(&entity.Reward{}).
		Where("referral_id=? AND type=?", referralID, rewardType).
		Count(&count).Error
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

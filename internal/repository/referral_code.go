package repository

import (
	"context"
	"errors"
	"time"

	"github.com/referlab/backend/internal/entity"
	"github.com/referlab/backend/pkg/xcontext"
	"gorm.io/gorm"
)

type ReferralCodeRepository interface {
	Create(ctx context.Context, data *entity.ReferralCode) error
	GetByID(ctx context.Context, id string) (*entity.ReferralCode, error)
	GetByCode(ctx context.Context, code string) (*entity.ReferralCode, error)
	GetListByOwnerID(ctx context.Context, ownerID string) ([]entity.ReferralCode, error)
	Consume(ctx context.Context, id string, usedAt time.Time) error
	Deactivate(ctx context.Context, id string) error
}

type referralCodeRepository struct{}

func NewReferralCodeRepository() *referralCodeRepository {
	return &referralCodeRepository{}
}

func (r *referralCodeRepository) Create(ctx context.Context, data *entity.ReferralCode) error {
	return xcontext.DB(ctx).Create(data).Error
}

func (r *referralCodeRepository) GetByID(ctx context.Context, id string) (*entity.ReferralCode, error) {
	var result entity.ReferralCode
	if err := xcontext.DB(ctx).Take(&result, "id=?", id).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *referralCodeRepository) GetByCode(ctx context.Context, code string) (*entity.ReferralCode, error) {
	var result entity.ReferralCode
	if err := xcontext.DB(ctx).Take(&result, "code=?", code).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *referralCodeRepository) GetListByOwnerID(ctx context.Context, ownerID string) ([]entity.ReferralCode, error) {
	var result []entity.ReferralCode
	err := xcontext.DB(ctx).
		Where("owner_id=?", ownerID).
		Order("created_at desc").
		Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

// Consume increments used_count under the usage ceiling. The condition
// makes two concurrent consumptions at the ceiling impossible: the loser
// matches no row and gets gorm.ErrRecordNotFound.
func (r *referralCodeRepository) Consume(ctx context.Context, id string, usedAt time.Time) error {
	tx := xcontext.DB(ctx).
		Model(&entity.ReferralCode{}).
		Where("id=? AND is_active=? AND (max_uses=0 OR used_count<max_uses)", id, true).
		Updates(map[string]any{
			"used_count":   gorm.Expr("used_count+1"),
			"last_used_at": usedAt,
		})

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

func (r *referralCodeRepository) Deactivate(ctx context.Context, id string) error {
	return xcontext.DB(ctx).
		Model(&entity.ReferralCode{}).
		Where("id=?", id).
		Update("is_active", false).Error
}

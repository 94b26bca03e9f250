package repository

import (
	"context"
	"time"

	"github.com/referlab/backend/internal/entity"
	"github.com/referlab/backend/pkg/xcontext"
)

type UserRepository interface {
	Create(ctx context.Context, data *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]entity.User, error)

	// The signal stamps write only a null column, so the first confirmation
	// wins and repeats are no-ops.
	MarkKycVerified(ctx context.Context, id string, at time.Time) error
	MarkFirstTrade(ctx context.Context, id string, at time.Time, amount float64) error
	MarkFirstBet(ctx context.Context, id string, at time.Time) error
}

type userRepository struct{}

func NewUserRepository() *userRepository {
	return &userRepository{}
}

func (r *userRepository) Create(ctx context.Context, data *entity.User) error {
	return xcontext.DB(ctx).Create(data).Error
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	var result entity.User
	if err := xcontext.DB(ctx).Take(&result, "id=?", id).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *userRepository) GetByIDs(ctx context.Context, ids []string) ([]entity.User, error) {
	var result []entity.User
	if err := xcontext.DB(ctx).Find(&result, "id IN (?)", ids).Error; err != nil {
		return nil, err
	}

	return result, nil
}

func (r *userRepository) MarkKycVerified(ctx context.Context, id string, at time.Time) error {
	return xcontext.DB(ctx).
		Model(&entity.User{}).
		Where("id=? AND kyc_verified_at IS NULL", id).
		Update("kyc_verified_at", at).Error
}

func (r *userRepository) MarkFirstTrade(ctx context.Context, id string, at time.Time, amount float64) error {
	return xcontext.DB(ctx).
		Model(&entity.User{}).
		Where("id=? AND first_trade_at IS NULL", id).
		Updates(map[string]any{
			"first_trade_at":     at,
			"first_trade_amount": amount,
		}).Error
}

func (r *userRepository) MarkFirstBet(ctx context.Context, id string, at time.Time) error {
	return xcontext.DB(ctx).
		Model(&entity.User{}).
		Where("id=? AND first_bet_at IS NULL", id).
		Update("first_bet_at", at).Error
}

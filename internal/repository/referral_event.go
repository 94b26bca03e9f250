package repository

import (
	"context"
	"time"

	"github.com/referlab/backend/internal/entity"
	"github.com/referlab/backend/pkg/xcontext"
)

type ReferralEventRepository interface {
	Create(ctx context.Context, data *entity.ReferralEvent) error
	GetListByReferralID(ctx context.Context, referralID string) ([]entity.ReferralEvent, error)
	Exists(ctx context.Context, referralID string, eventType entity.ReferralEventType) (bool, error)
	CountByTypeSince(ctx context.Context, eventType entity.ReferralEventType, since time.Time) (int64, error)
}

type referralEventRepository struct{}

func NewReferralEventRepository() *referralEventRepository {
	return &referralEventRepository{}
}

func (r *referralEventRepository) Create(ctx context.Context, data *entity.ReferralEvent) error {
	if data.ID == 0 {
		data.ID = xcontext.SnowFlake(ctx).Generate().Int64()
	}

	return xcontext.DB(ctx).Create(data).Error
}

func (r *referralEventRepository) GetListByReferralID(
	ctx context.Context, referralID string,
) ([]entity.ReferralEvent, error) {
	var result []entity.ReferralEvent
	err := xcontext.DB(ctx).
		Where("referral_id=?", referralID).
		Order("id asc").
		Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *referralEventRepository) Exists(
	ctx context.Context, referralID string, eventType entity.ReferralEventType,
) (bool, error) {
	var count int64
	err := xcontext.DB(ctx).
		Model(&entity.ReferralEvent{}).
		Where("referral_id=? AND type=?", referralID, eventType).
		Count(&count).Error
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

func (r *referralEventRepository) CountByTypeSince(
	ctx context.Context, eventType entity.ReferralEventType, since time.Time,
) (int64, error) {
	var count int64
	err := xcontext.DB(ctx).
		Model(&entity.ReferralEvent{}).
		Where("type=? AND created_at >= ?", eventType, since).
		Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

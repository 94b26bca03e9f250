package repository

import (
	"context"
	"time"

	"github.com/referlab/backend/internal/entity"
	"github.com/referlab/backend/pkg/xcontext"
)

type ReferralFilter struct {
	ReferrerID    string
	Status        []entity.ReferralStatus
	CreatedAfter  time.Time
	CreatedBefore time.Time
	Offset        int
	Limit         int
}

// ReferrerCount is one row of the completed-in-window leaderboard
// aggregation.
type ReferrerCount struct {
	ReferrerID string
	Count      int64
}

type ReferralRepository interface {
	Create(ctx context.Context, data *entity.Referral) error
	GetByID(ctx context.Context, id string) (*entity.Referral, error)
	GetList(ctx context.Context, filter ReferralFilter) ([]entity.Referral, error)
	Count(ctx context.Context, filter ReferralFilter) (int64, error)

	// GetActiveByReferredUserID returns the non-expired, non-invalid
	// referral pointing at the user, if any.
	GetActiveByReferredUserID(ctx context.Context, userID string) (*entity.Referral, error)
	CountActiveByReferredUserID(ctx context.Context, userID string) (int64, error)
	GetLatestByReferredUserID(ctx context.Context, userID string) (*entity.Referral, error)

	// GetParent returns the referral through which userID was referred,
	// used to walk the chain upward.
	GetParent(ctx context.Context, userID string, completedOnly bool) (*entity.Referral, error)
	ExistsByReferrerAndReferred(ctx context.Context, referrerID, referredUserID string) (bool, error)

	// UpdateStatus applies a transition conditioned on the expected prior
	// status and returns the number of rows changed. Zero rows means the
	// referral was concurrently moved elsewhere.
	UpdateStatus(ctx context.Context, id string, from []entity.ReferralStatus, updates map[string]any) (int64, error)

	SumRewardByReferrerID(ctx context.Context, referrerID string) (float64, error)
	GroupCompletedByReferrer(ctx context.Context, start, end time.Time, limit int) ([]ReferrerCount, error)
}

type referralRepository struct{}

func NewReferralRepository() *referralRepository {
	return &referralRepository{}
}

func (r *referralRepository) Create(ctx context.Context, data *entity.Referral) error {
	return xcontext.DB(ctx).Create(data).Error
}

func (r *referralRepository) GetByID(ctx context.Context, id string) (*entity.Referral, error) {
	var result entity.Referral
	if err := xcontext.DB(ctx).Take(&result, "id=?", id).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *referralRepository) GetList(ctx context.Context, filter ReferralFilter) ([]entity.Referral, error) {
	var result []entity.Referral
	tx := xcontext.DB(ctx).Model(&entity.Referral{}).Order("created_at desc")

	if filter.ReferrerID != "" {
		tx.Where("referrer_id=?", filter.ReferrerID)
	}

	if len(filter.Status) > 0 {
		tx.Where("status IN (?)", filter.Status)
	}

	if !filter.CreatedAfter.IsZero() {
		tx.Where("created_at >= ?", filter.CreatedAfter)
	}

	if !filter.CreatedBefore.IsZero() {
		tx.Where("created_at < ?", filter.CreatedBefore)
	}

	if filter.Limit > 0 {
		tx.Offset(filter.Offset).Limit(filter.Limit)
	}

	if err := tx.Find(&result).Error; err != nil {
		return nil, err
	}

	return result, nil
}

func (r *referralRepository) Count(ctx context.Context, filter ReferralFilter) (int64, error) {
	var count int64
	tx := xcontext.DB(ctx).Model(&entity.Referral{})

	if filter.ReferrerID != "" {
		tx.Where("referrer_id=?", filter.ReferrerID)
	}

	if len(filter.Status) > 0 {
		tx.Where("status IN (?)", filter.Status)
	}

	if !filter.CreatedAfter.IsZero() {
		tx.Where("created_at >= ?", filter.CreatedAfter)
	}

	if !filter.CreatedBefore.IsZero() {
		tx.Where("created_at < ?", filter.CreatedBefore)
	}

	if err := tx.Count(&count).Error; err != nil {
		return 0, err
	}

	return count, nil
}

func (r *referralRepository) GetActiveByReferredUserID(ctx context.Context, userID string) (*entity.Referral, error) {
	var result entity.Referral
	err := xcontext.DB(ctx).
		Where("referred_user_id=? AND status NOT IN (?)",
			userID, []entity.ReferralStatus{entity.ReferralExpired, entity.ReferralInvalid}).
		Take(&result).Error
	if err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *referralRepository) CountActiveByReferredUserID(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := xcontext.DB(ctx).Model(&entity.Referral{}).
		Where("referred_user_id=? AND status NOT IN (?)",
			userID, []entity.ReferralStatus{entity.ReferralExpired, entity.ReferralInvalid}).
		Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

func (r *referralRepository) GetLatestByReferredUserID(ctx context.Context, userID string) (*entity.Referral, error) {
	var result entity.Referral
	err := xcontext.DB(ctx).
		Where("referred_user_id=?", userID).
		Order("created_at desc").
		First(&result).Error
	if err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *referralRepository) GetParent(ctx context.Context, userID string, completedOnly bool) (*entity.Referral, error) {
	tx := xcontext.DB(ctx).Where("referred_user_id=?", userID)
	if completedOnly {
		tx = tx.Where("status=?", entity.ReferralCompleted)
	} else {
		tx = tx.Where("status NOT IN (?)",
			[]entity.ReferralStatus{entity.ReferralExpired, entity.ReferralInvalid})
	}

	var result entity.Referral
	if err := tx.Order("created_at desc").First(&result).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *referralRepository) ExistsByReferrerAndReferred(
	ctx context.Context, referrerID, referredUserID string,
) (bool, error) {
	var count int64
	err := xcontext.DB(ctx).
		Model(&entity.Referral{}).
		Where("referrer_id=? AND referred_user_id=?", referrerID, referredUserID).
		Count(&count).Error
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

func (r *referralRepository) UpdateStatus(
	ctx context.Context, id string, from []entity.ReferralStatus, updates map[string]any,
) (int64, error) {
	tx := xcontext.DB(ctx).
		Model(&entity.Referral{}).
		Where("id=? AND status IN (?)", id, from).
		Updates(updates)
	if tx.Error != nil {
		return 0, tx.Error
	}

	return tx.RowsAffected, nil
}

func (r *referralRepository) SumRewardByReferrerID(ctx context.Context, referrerID string) (float64, error) {
	var sum float64
	err := xcontext.DB(ctx).
		Model(&entity.Referral{}).
		Select("COALESCE(SUM(reward_amount), 0)").
		Where("referrer_id=? AND status=?", referrerID, entity.ReferralCompleted).
		Scan(&sum).Error
	if err != nil {
		return 0, err
	}

	return sum, nil
}

func (r *referralRepository) GroupCompletedByReferrer(
	ctx context.Context, start, end time.Time, limit int,
) ([]ReferrerCount, error) {
	var result []ReferrerCount
	err := xcontext.DB(ctx).
		Model(&entity.Referral{}).
		Select("referrer_id, COUNT(*) as count").
		Where("status=? AND completed_at >= ? AND completed_at < ?",
			entity.ReferralCompleted, start, end).
		Group("referrer_id").
		Order("count desc").
		Limit(limit).
		Scan(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

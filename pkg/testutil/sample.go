package testutil

import (
	"context"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/referlab/backend/internal/entity"
	"github.com/referlab/backend/internal/repository"
)

// SampleUser creates a user with randomized fields. Non-zero fields of
// init overwrite the sample before it is persisted.
func SampleUser(ctx context.Context, init *entity.User) (entity.User, error) {
	userRepo := repository.NewUserRepository()

	sample := &entity.User{
		Base: entity.Base{ID: uuid.NewString()},
		Name: uuid.NewString(),
	}

	if init != nil {
		overwriteFields(sample, *init)
	}

	if err := userRepo.Create(ctx, sample); err != nil {
		return *sample, err
	}

	return *sample, nil
}

// SampleCode creates an active referral code owned by a fresh user unless
// init provides an owner.
func SampleCode(ctx context.Context, init *entity.ReferralCode) (entity.ReferralCode, error) {
	codeRepo := repository.NewReferralCodeRepository()

	sample := &entity.ReferralCode{
		Base:             entity.Base{ID: uuid.NewString()},
		Code:             "REF-" + uuid.NewString()[:8],
		RewardMultiplier: 1,
		IsActive:         true,
		ExpiresAt:        time.Now().Add(time.Hour),
	}

	if init != nil {
		overwriteFields(sample, *init)
	}

	if sample.OwnerID == "" {
		owner, err := SampleUser(ctx, nil)
		if err != nil {
			return *sample, err
		}
		sample.OwnerID = owner.ID
	}

	if err := codeRepo.Create(ctx, sample); err != nil {
		return *sample, err
	}

	return *sample, nil
}

// SampleReferral creates a referral in the given status, backed by a fresh
// code and users where init leaves them unset.
func SampleReferral(ctx context.Context, init *entity.Referral) (entity.Referral, error) {
	referralRepo := repository.NewReferralRepository()

	sample := &entity.Referral{
		Base:   entity.Base{ID: uuid.NewString()},
		Status: entity.ReferralPending,
	}

	if init != nil {
		overwriteFields(sample, *init)
	}

	if sample.ReferralCodeID == "" {
		var ownerInit *entity.ReferralCode
		if sample.ReferrerID != "" {
			ownerInit = &entity.ReferralCode{OwnerID: sample.ReferrerID}
		}

		code, err := SampleCode(ctx, ownerInit)
		if err != nil {
			return *sample, err
		}

		sample.ReferralCodeID = code.ID
		if sample.ReferrerID == "" {
			sample.ReferrerID = code.OwnerID
		}
	}

	if err := referralRepo.Create(ctx, sample); err != nil {
		return *sample, err
	}

	return *sample, nil
}

func overwriteFields[T any](origin *T, overwrite T) {
	originValue := reflect.ValueOf(origin).Elem()
	overwriteValue := reflect.ValueOf(overwrite)

	for i := 0; i < overwriteValue.NumField(); i++ {
		overwriteField := overwriteValue.Field(i)
		if !overwriteField.IsZero() {
			originValue.Field(i).Set(overwriteField)
		}
	}
}

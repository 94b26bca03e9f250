package domain

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/referlab/backend/internal/domain/lifecycle"
	"github.com/referlab/backend/internal/domain/processor"
	"github.com/referlab/backend/internal/entity"
	"github.com/referlab/backend/internal/model"
	"github.com/referlab/backend/internal/repository"
	"github.com/referlab/backend/pkg/errorx"
	"github.com/referlab/backend/pkg/pubsub"
	"github.com/referlab/backend/pkg/testutil"
	"github.com/referlab/backend/pkg/xcontext"
	"github.com/stretchr/testify/require"
)

func newCodeDomain(publisher pubsub.Publisher) *referralCodeDomain {
	referralRepo := repository.NewReferralRepository()
	return NewReferralCodeDomain(
		repository.NewReferralCodeRepository(),
		referralRepo,
		lifecycle.NewMachine(referralRepo, repository.NewReferralEventRepository()),
		processor.NewEnqueuer(publisher),
		&testutil.MockRedisClient{},
	)
}

func Test_referralCodeDomain_FullScenario(t *testing.T) {
	ctx := testutil.MockContext()

	owner, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)
	friend, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)

	var published []*pubsub.Pack
	publisher := &testutil.MockPublisher{
		PublishFunc: func(ctx context.Context, topic string, pack *pubsub.Pack) error {
			published = append(published, pack)
			return nil
		},
	}

	codeDomain := newCodeDomain(publisher)

	ownerCtx := xcontext.WithRequestUserID(ctx, owner.ID)
	issued, err := codeDomain.Issue(ownerCtx, &model.IssueCodeRequest{Description: "launch"})
	require.NoError(t, err)
	require.Contains(t, issued.Code, "REF-")
	require.True(t, issued.ExpiresAt.After(time.Now()))

	validated, err := codeDomain.Validate(ctx, &model.ValidateCodeRequest{Code: issued.Code})
	require.NoError(t, err)
	require.True(t, validated.Valid)

	friendCtx := xcontext.WithRequestUserID(ctx, friend.ID)
	consumed, err := codeDomain.Consume(friendCtx, &model.ConsumeCodeRequest{Code: issued.Code})
	require.NoError(t, err)
	require.NotEmpty(t, consumed.ReferralID)
	require.Len(t, published, 1)
	require.Equal(t, consumed.ReferralID, string(published[0].Key))

	referral, err := repository.NewReferralRepository().GetByID(ctx, consumed.ReferralID)
	require.NoError(t, err)
	require.Equal(t, entity.ReferralPending, referral.Status)
	require.Equal(t, owner.ID, referral.ReferrerID)
	require.Equal(t, friend.ID, referral.ReferredUserID.String)

	code, err := repository.NewReferralCodeRepository().GetByCode(ctx, issued.Code)
	require.NoError(t, err)
	require.Equal(t, 1, code.UsedCount)
	require.True(t, code.LastUsedAt.Valid)

	// A referred user cannot consume a second code.
	_, err = codeDomain.Consume(friendCtx, &model.ConsumeCodeRequest{Code: issued.Code})
	var xerr errorx.Error
	require.ErrorAs(t, err, &xerr)
	require.Equal(t, errorx.AlreadyExists, xerr.Code)

	mine, err := codeDomain.GetMyCodes(ownerCtx, &model.GetMyCodesRequest{})
	require.NoError(t, err)
	require.Len(t, mine.Codes, 1)
	require.Equal(t, 1, mine.Codes[0].UsedCount)
}

func Test_referralCodeDomain_DuplicateRace(t *testing.T) {
	ctx := testutil.MockContext()

	user, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)
	code, err := testutil.SampleCode(ctx, nil)
	require.NoError(t, err)

	referralRepo := repository.NewReferralRepository()

	// The cache invalidation runs between validation and the insert, which
	// is exactly where a concurrent consumption of another code lands.
	raced := false
	codeDomain := NewReferralCodeDomain(
		repository.NewReferralCodeRepository(),
		referralRepo,
		lifecycle.NewMachine(referralRepo, repository.NewReferralEventRepository()),
		processor.NewEnqueuer(&testutil.MockPublisher{}),
		&testutil.MockRedisClient{
			DelFunc: func(ctx context.Context, key ...string) error {
				if !raced {
					raced = true
					_, err := testutil.SampleReferral(ctx, &entity.Referral{
						ReferredUserID: sql.NullString{Valid: true, String: user.ID},
					})
					require.NoError(t, err)
				}
				return nil
			},
		},
	)

	_, err = codeDomain.Consume(
		xcontext.WithRequestUserID(ctx, user.ID),
		&model.ConsumeCodeRequest{Code: code.Code})

	var xerr errorx.Error
	require.ErrorAs(t, err, &xerr)
	require.Equal(t, errorx.AlreadyExists, xerr.Code)

	// The racing record survives and ours was invalidated.
	active, err := referralRepo.CountActiveByReferredUserID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), active)

	invalid, err := referralRepo.GetList(ctx, repository.ReferralFilter{
		Status: []entity.ReferralStatus{entity.ReferralInvalid},
	})
	require.NoError(t, err)
	require.Len(t, invalid, 1)
	require.Equal(t, entity.InvalidReasonDuplicate, invalid[0].InvalidReason)
}

func Test_referralCodeDomain_SelfReferral(t *testing.T) {
	ctx := testutil.MockContext()
	codeDomain := newCodeDomain(&testutil.MockPublisher{})

	owner, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)
	code, err := testutil.SampleCode(ctx, &entity.ReferralCode{OwnerID: owner.ID})
	require.NoError(t, err)

	ownerCtx := xcontext.WithRequestUserID(ctx, owner.ID)
	_, err = codeDomain.Consume(ownerCtx, &model.ConsumeCodeRequest{Code: code.Code})

	var xerr errorx.Error
	require.ErrorAs(t, err, &xerr)
	require.Equal(t, errorx.SelfReferral, xerr.Code)
}

func Test_referralCodeDomain_UsageCeiling(t *testing.T) {
	ctx := testutil.MockContext()
	codeDomain := newCodeDomain(&testutil.MockPublisher{})

	code, err := testutil.SampleCode(ctx, &entity.ReferralCode{MaxUses: 1})
	require.NoError(t, err)

	first, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)
	_, err = codeDomain.Consume(
		xcontext.WithRequestUserID(ctx, first.ID),
		&model.ConsumeCodeRequest{Code: code.Code})
	require.NoError(t, err)

	second, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)
	_, err = codeDomain.Consume(
		xcontext.WithRequestUserID(ctx, second.ID),
		&model.ConsumeCodeRequest{Code: code.Code})

	var xerr errorx.Error
	require.ErrorAs(t, err, &xerr)
	require.Equal(t, errorx.UsageExhausted, xerr.Code)

	validated, err := codeDomain.Validate(ctx, &model.ValidateCodeRequest{Code: code.Code})
	require.NoError(t, err)
	require.False(t, validated.Valid)
	require.Equal(t, "usage_exhausted", validated.Reason)
}

func Test_referralCodeDomain_ValidateRejections(t *testing.T) {
	ctx := testutil.MockContext()
	codeDomain := newCodeDomain(&testutil.MockPublisher{})

	unknown, err := codeDomain.Validate(ctx, &model.ValidateCodeRequest{Code: "REF-NOPE1234"})
	require.NoError(t, err)
	require.False(t, unknown.Valid)
	require.Equal(t, "not_found", unknown.Reason)

	expiredCode, err := testutil.SampleCode(ctx, &entity.ReferralCode{
		ExpiresAt: time.Now().Add(-time.Hour),
	})
	require.NoError(t, err)

	expired, err := codeDomain.Validate(ctx, &model.ValidateCodeRequest{Code: expiredCode.Code})
	require.NoError(t, err)
	require.False(t, expired.Valid)
	require.Equal(t, "expired", expired.Reason)

	inactiveCode, err := testutil.SampleCode(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, repository.NewReferralCodeRepository().Deactivate(ctx, inactiveCode.ID))

	inactive, err := codeDomain.Validate(ctx, &model.ValidateCodeRequest{Code: inactiveCode.Code})
	require.NoError(t, err)
	require.False(t, inactive.Valid)
	require.Equal(t, "inactive", inactive.Reason)
}

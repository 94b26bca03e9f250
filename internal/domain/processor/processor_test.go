package processor

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/referlab/backend/internal/domain/chain"
	"github.com/referlab/backend/internal/domain/lifecycle"
	"github.com/referlab/backend/internal/domain/rewarding"
	"github.com/referlab/backend/internal/domain/statistic"
	"github.com/referlab/backend/internal/domain/tracker"
	"github.com/referlab/backend/internal/entity"
	"github.com/referlab/backend/internal/model"
	"github.com/referlab/backend/internal/repository"
	"github.com/referlab/backend/pkg/pubsub"
	"github.com/referlab/backend/pkg/testutil"
	"github.com/stretchr/testify/require"
)

func newProcessor(publisher pubsub.Publisher) *Processor {
	referralRepo := repository.NewReferralRepository()
	codeRepo := repository.NewReferralCodeRepository()
	userRepo := repository.NewUserRepository()
	redisClient := &testutil.MockRedisClient{}

	return New(
		NewEnqueuer(publisher),
		referralRepo,
		userRepo,
		lifecycle.NewMachine(referralRepo, repository.NewReferralEventRepository()),
		chain.NewValidator(referralRepo),
		rewarding.NewCalculator(
			referralRepo,
			repository.NewRewardRepository(),
			repository.NewReferralTierRepository(),
			codeRepo,
			&testutil.MockWalletCaller{},
		),
		tracker.New(referralRepo, codeRepo, redisClient),
		statistic.New(referralRepo, userRepo, redisClient),
	)
}

func jobPack(t *testing.T, name entity.JobType, key string, payload any) *pubsub.Pack {
	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	job := model.Job{Name: string(name), Payload: raw, EnqueuedAt: time.Now()}
	msg, err := job.Marshal()
	require.NoError(t, err)

	return &pubsub.Pack{Key: []byte(key), Msg: msg}
}

func Test_Processor_ProcessSignup(t *testing.T) {
	ctx := testutil.MockContext()

	var published []string
	processor := newProcessor(&testutil.MockPublisher{
		PublishFunc: func(ctx context.Context, topic string, pack *pubsub.Pack) error {
			var job model.Job
			require.NoError(t, job.Unmarshal(pack.Msg))
			published = append(published, job.Name)
			return nil
		},
	})

	referral, err := testutil.SampleReferral(ctx, nil)
	require.NoError(t, err)
	user, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)

	pack := jobPack(t, entity.JobProcessSignup, referral.ID, model.ProcessSignupPayload{
		ReferralID:     referral.ID,
		ReferredUserID: user.ID,
	})
	processor.Subscribe(ctx, pack, time.Now())

	got, err := repository.NewReferralRepository().GetByID(ctx, referral.ID)
	require.NoError(t, err)
	require.Equal(t, entity.ReferralRegistered, got.Status)
	require.Equal(t, user.ID, got.ReferredUserID.String)

	// The signup fans out into chain validation and a completion check.
	require.Equal(t, []string{
		string(entity.JobValidateChain),
		string(entity.JobCheckCompletion),
	}, published)

	// Redelivery is a no-op on the referral but still fans out.
	processor.Subscribe(ctx, pack, time.Now())
	got, err = repository.NewReferralRepository().GetByID(ctx, referral.ID)
	require.NoError(t, err)
	require.Equal(t, entity.ReferralRegistered, got.Status)
	require.Len(t, published, 4)
}

func Test_Processor_CheckCompletion(t *testing.T) {
	ctx := testutil.MockContext()
	processor := newProcessor(&testutil.MockPublisher{})

	user, err := testutil.SampleUser(ctx, &entity.User{
		KycVerifiedAt:    sql.NullTime{Valid: true, Time: time.Now()},
		FirstTradeAt:     sql.NullTime{Valid: true, Time: time.Now()},
		FirstTradeAmount: 500,
	})
	require.NoError(t, err)

	referral, err := testutil.SampleReferral(ctx, &entity.Referral{
		ReferredUserID: sql.NullString{Valid: true, String: user.ID},
		Status:         entity.ReferralRegistered,
	})
	require.NoError(t, err)

	pack := jobPack(t, entity.JobCheckCompletion, referral.ID,
		model.CheckCompletionPayload{ReferralID: referral.ID})
	processor.Subscribe(ctx, pack, time.Now())

	got, err := repository.NewReferralRepository().GetByID(ctx, referral.ID)
	require.NoError(t, err)
	require.Equal(t, entity.ReferralCompleted, got.Status)
	require.Equal(t, string(entity.EventFirstTrade), got.CompletedEventType)
	require.Equal(t, float64(500), got.ConversionAmount)
	// One completion keeps the referrer in bronze: multiplier 1, no bonus.
	require.Equal(t, float64(10), got.RewardAmount)

	rewardRepo := repository.NewRewardRepository()
	rewards, err := rewardRepo.GetListByUserID(ctx, referral.ReferrerID, 0, 10)
	require.NoError(t, err)
	require.Len(t, rewards, 1)
	require.Equal(t, float64(10), rewards[0].Amount)

	// Redelivery after completion converges without a second reward.
	processor.Subscribe(ctx, pack, time.Now())
	rewards, err = rewardRepo.GetListByUserID(ctx, referral.ReferrerID, 0, 10)
	require.NoError(t, err)
	require.Len(t, rewards, 1)
}

func Test_Processor_CheckCompletion_KycOnly(t *testing.T) {
	ctx := testutil.MockContext()
	processor := newProcessor(&testutil.MockPublisher{})

	user, err := testutil.SampleUser(ctx, &entity.User{
		KycVerifiedAt: sql.NullTime{Valid: true, Time: time.Now()},
	})
	require.NoError(t, err)

	referral, err := testutil.SampleReferral(ctx, &entity.Referral{
		ReferredUserID: sql.NullString{Valid: true, String: user.ID},
		Status:         entity.ReferralRegistered,
	})
	require.NoError(t, err)

	pack := jobPack(t, entity.JobCheckCompletion, referral.ID,
		model.CheckCompletionPayload{ReferralID: referral.ID})
	processor.Subscribe(ctx, pack, time.Now())

	// KYC qualifies but does not complete: no converting event yet.
	got, err := repository.NewReferralRepository().GetByID(ctx, referral.ID)
	require.NoError(t, err)
	require.Equal(t, entity.ReferralQualified, got.Status)
}

func Test_Processor_ValidateChain(t *testing.T) {
	ctx := testutil.MockContext()
	processor := newProcessor(&testutil.MockPublisher{})

	alice, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)
	bob, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)

	_, err = testutil.SampleReferral(ctx, &entity.Referral{
		ReferrerID:     alice.ID,
		ReferredUserID: sql.NullString{Valid: true, String: bob.ID},
		Status:         entity.ReferralCompleted,
	})
	require.NoError(t, err)

	back, err := testutil.SampleReferral(ctx, &entity.Referral{
		ReferrerID:     bob.ID,
		ReferredUserID: sql.NullString{Valid: true, String: alice.ID},
		Status:         entity.ReferralRegistered,
	})
	require.NoError(t, err)

	pack := jobPack(t, entity.JobValidateChain, back.ID,
		model.ValidateChainPayload{ReferralID: back.ID})
	processor.Subscribe(ctx, pack, time.Now())

	got, err := repository.NewReferralRepository().GetByID(ctx, back.ID)
	require.NoError(t, err)
	require.Equal(t, entity.ReferralInvalid, got.Status)
	require.Equal(t, entity.InvalidReasonCircular, got.InvalidReason)
}

func Test_Processor_ExpireSweep(t *testing.T) {
	ctx := testutil.MockContext()
	processor := newProcessor(&testutil.MockPublisher{})

	overdue, err := testutil.SampleReferral(ctx, &entity.Referral{
		Base: entity.Base{
			ID:        uuid.NewString(),
			CreatedAt: time.Now().Add(-31 * 24 * time.Hour),
		},
	})
	require.NoError(t, err)

	fresh, err := testutil.SampleReferral(ctx, nil)
	require.NoError(t, err)

	pack := jobPack(t, entity.JobExpireReferrals, "sweep", model.ExpireReferralsPayload{})
	processor.Subscribe(ctx, pack, time.Now())

	referralRepo := repository.NewReferralRepository()

	got, err := referralRepo.GetByID(ctx, overdue.ID)
	require.NoError(t, err)
	require.Equal(t, entity.ReferralExpired, got.Status)

	got, err = referralRepo.GetByID(ctx, fresh.ID)
	require.NoError(t, err)
	require.Equal(t, entity.ReferralPending, got.Status)
}

func Test_Processor_UnknownJobDropped(t *testing.T) {
	ctx := testutil.MockContext()

	var requeued int
	processor := newProcessor(&testutil.MockPublisher{
		PublishFunc: func(ctx context.Context, topic string, pack *pubsub.Pack) error {
			requeued++
			return nil
		},
	})

	job := model.Job{Name: "wipe-everything", Payload: json.RawMessage(`{}`)}
	msg, err := job.Marshal()
	require.NoError(t, err)

	processor.Subscribe(ctx, &pubsub.Pack{Key: []byte("x"), Msg: msg}, time.Now())
	require.Zero(t, requeued)
}

package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/referlab/backend/internal/domain/chain"
	"github.com/referlab/backend/internal/domain/lifecycle"
	"github.com/referlab/backend/internal/domain/rewarding"
	"github.com/referlab/backend/internal/domain/statistic"
	"github.com/referlab/backend/internal/domain/tracker"
	"github.com/referlab/backend/internal/entity"
	"github.com/referlab/backend/internal/model"
	"github.com/referlab/backend/internal/repository"
	"github.com/referlab/backend/pkg/enum"
	"github.com/referlab/backend/pkg/pubsub"
	"github.com/referlab/backend/pkg/xcontext"
	"gorm.io/gorm"
)

// Processor consumes the job topic and drives referrals through their
// lifecycle. Every handler is idempotent: redelivery of an already-applied
// job converges to the same state instead of duplicating effects, so the
// at-least-once delivery of the broker is safe.
type Processor struct {
	*Enqueuer

	referralRepo repository.ReferralRepository
	userRepo     repository.UserRepository
	machine      *lifecycle.Machine
	validator    *chain.Validator
	calculator   *rewarding.Calculator
	track        *tracker.Tracker
	board        statistic.Leaderboard
}

func New(
	enqueuer *Enqueuer,
	referralRepo repository.ReferralRepository,
	userRepo repository.UserRepository,
	machine *lifecycle.Machine,
	validator *chain.Validator,
	calculator *rewarding.Calculator,
	track *tracker.Tracker,
	board statistic.Leaderboard,
) *Processor {
	return &Processor{
		Enqueuer:     enqueuer,
		referralRepo: referralRepo,
		userRepo:     userRepo,
		machine:      machine,
		validator:    validator,
		calculator:   calculator,
		track:        track,
		board:        board,
	}
}

// Subscribe is the pubsub handler for the job topic.
func (p *Processor) Subscribe(ctx context.Context, pack *pubsub.Pack, serverTime time.Time) {
	var job model.Job
	if err := job.Unmarshal(pack.Msg); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot unmarshal job envelope: %v", err)
		return
	}

	name, err := enum.ToEnum[entity.JobType](job.Name)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Dropped job of unknown kind %s", job.Name)
		return
	}

	handlerCtx, cancel := context.WithTimeout(ctx, xcontext.Configs(ctx).Job.HandlerTimeout)
	defer cancel()

	switch name {
	case entity.JobProcessSignup:
		err = p.processSignup(handlerCtx, job.Payload)
	case entity.JobCheckCompletion:
		err = p.checkCompletion(handlerCtx, job.Payload)
	case entity.JobExpireReferrals:
		err = p.expireReferrals(handlerCtx, job.Payload)
	case entity.JobValidateChain:
		err = p.validateChain(handlerCtx, job.Payload)
	}

	if err != nil {
		p.requeue(ctx, &job, string(pack.Key), err)
	}
}

// requeue republishes a failed job with a bumped attempt counter, backing
// off linearly. Jobs past the attempt ceiling are dropped with an error
// log; their handlers converge on the next trigger of the same referral.
func (p *Processor) requeue(ctx context.Context, job *model.Job, key string, cause error) {
	cfg := xcontext.Configs(ctx).Job

	job.Attempt++
	if job.Attempt >= cfg.MaxAttempts {
		xcontext.Logger(ctx).Errorf("Dropped job %s after %d attempts: %v", job.Name, job.Attempt, cause)
		return
	}

	xcontext.Logger(ctx).Warnf("Job %s failed on attempt %d: %v", job.Name, job.Attempt, cause)
	time.Sleep(cfg.RetryBackoff * time.Duration(job.Attempt))

	msg, err := job.Marshal()
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot marshal job for requeue: %v", err)
		return
	}

	topic := xcontext.Configs(ctx).Kafka.JobTopic
	if err := p.publisher.Publish(ctx, topic, &pubsub.Pack{Key: []byte(key), Msg: msg}); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot requeue job %s: %v", job.Name, err)
	}
}

func (p *Processor) processSignup(ctx context.Context, raw json.RawMessage) error {
	var payload model.ProcessSignupPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		// Malformed payloads never succeed on retry.
		xcontext.Logger(ctx).Errorf("Dropped malformed signup payload: %v", err)
		return nil
	}

	referral, err := p.referralRepo.GetByID(ctx, payload.ReferralID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			xcontext.Logger(ctx).Warnf("Skipped signup for unknown referral %s", payload.ReferralID)
			return nil
		}

		return err
	}

	if referral.ReferredUserID.Valid && referral.ReferredUserID.String != payload.ReferredUserID {
		xcontext.Logger(ctx).Errorf("Referral %s is bound to another user, skipped signup of %s",
			referral.ID, payload.ReferredUserID)
		return nil
	}

	applied, err := p.machine.Register(ctx, referral.ID, payload.ReferredUserID)
	if err != nil {
		return err
	}

	if applied {
		now := time.Now()
		p.track.CountSignup(ctx, now)
		if err := p.board.AddEventPoints(ctx, referral.ReferrerID, entity.EventRegistered, 0, now); err != nil {
			xcontext.Logger(ctx).Warnf("Cannot add signup points: %v", err)
		}
	}

	err = p.Enqueue(ctx, entity.JobValidateChain, referral.ID,
		model.ValidateChainPayload{ReferralID: referral.ID})
	if err != nil {
		return err
	}

	return p.Enqueue(ctx, entity.JobCheckCompletion, referral.ID,
		model.CheckCompletionPayload{ReferralID: referral.ID})
}

func (p *Processor) checkCompletion(ctx context.Context, raw json.RawMessage) error {
	var payload model.CheckCompletionPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		xcontext.Logger(ctx).Errorf("Dropped malformed completion payload: %v", err)
		return nil
	}

	referral, err := p.referralRepo.GetByID(ctx, payload.ReferralID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			xcontext.Logger(ctx).Warnf("Skipped completion check for unknown referral %s", payload.ReferralID)
			return nil
		}

		return err
	}

	if referral.Status == entity.ReferralCompleted {
		// A prior delivery may have crashed between the transition and the
		// reward creation.
		_, err := p.calculator.EnsureReward(ctx, referral, referral.RewardAmount)
		return err
	}

	if referral.Status.IsTerminal() {
		return nil
	}

	if !referral.ReferredUserID.Valid {
		// Still pending, nothing to evaluate yet.
		return nil
	}

	user, err := p.userRepo.GetByID(ctx, referral.ReferredUserID.String)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			xcontext.Logger(ctx).Warnf("Referred user of referral %s not found", referral.ID)
			return nil
		}

		return err
	}

	if user.KycVerifiedAt.Valid {
		if _, err := p.machine.Qualify(ctx, referral.ID, user.ID); err != nil {
			return err
		}
	}

	eventType, conversion := completionSignal(user)
	if eventType == "" {
		return nil
	}

	amount, err := p.calculator.ReferralAmount(ctx, referral)
	if err != nil {
		return err
	}

	applied, err := p.machine.Complete(ctx, referral.ID, user.ID, eventType, conversion, amount)
	if err != nil {
		return err
	}

	if !applied {
		return nil
	}

	referral.CompletedEventType = string(eventType)
	referral.ConversionAmount = conversion
	if _, err := p.calculator.EnsureReward(ctx, referral, amount); err != nil {
		return err
	}

	now := time.Now()
	p.track.CountConversion(ctx, now)
	if err := p.board.AddEventPoints(ctx, referral.ReferrerID, eventType, conversion, now); err != nil {
		xcontext.Logger(ctx).Warnf("Cannot add conversion points: %v", err)
	}

	return nil
}

// completionSignal picks the converting event recorded on the user, trade
// before bet.
func completionSignal(user *entity.User) (entity.ReferralEventType, float64) {
	if user.FirstTradeAt.Valid {
		return entity.EventFirstTrade, user.FirstTradeAmount
	}

	if user.FirstBetAt.Valid {
		return entity.EventFirstBet, 0
	}

	return "", 0
}

func (p *Processor) expireReferrals(ctx context.Context, raw json.RawMessage) error {
	var payload model.ExpireReferralsPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		xcontext.Logger(ctx).Errorf("Dropped malformed expire payload: %v", err)
		return nil
	}

	if payload.ReferralID != "" {
		_, err := p.machine.Expire(ctx, payload.ReferralID, "expire_window_elapsed")
		return err
	}

	cutoff := time.Now().Add(-xcontext.Configs(ctx).Referral.ExpireAfter)
	overdue, err := p.referralRepo.GetList(ctx, repository.ReferralFilter{
		Status:        []entity.ReferralStatus{entity.ReferralPending, entity.ReferralRegistered},
		CreatedBefore: cutoff,
	})
	if err != nil {
		return err
	}

	// One broken candidate must not stall the rest of the sweep.
	var failed int
	for _, referral := range overdue {
		if _, err := p.machine.Expire(ctx, referral.ID, "expire_window_elapsed"); err != nil {
			failed++
			xcontext.Logger(ctx).Errorf("Cannot expire referral %s: %v", referral.ID, err)
		}
	}

	if failed > 0 {
		return fmt.Errorf("failed to expire %d of %d overdue referrals", failed, len(overdue))
	}

	xcontext.Logger(ctx).Infof("Expired %d overdue referrals", len(overdue))
	return nil
}

func (p *Processor) validateChain(ctx context.Context, raw json.RawMessage) error {
	var payload model.ValidateChainPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		xcontext.Logger(ctx).Errorf("Dropped malformed chain payload: %v", err)
		return nil
	}

	referral, err := p.referralRepo.GetByID(ctx, payload.ReferralID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			xcontext.Logger(ctx).Warnf("Skipped chain validation for unknown referral %s", payload.ReferralID)
			return nil
		}

		return err
	}

	if referral.Status.IsTerminal() {
		return nil
	}

	result, err := p.validator.Validate(ctx, referral)
	if err != nil {
		return err
	}

	if result.Valid {
		return nil
	}

	_, err = p.machine.Invalidate(ctx, referral.ID, result.Reason, result.Depth)
	return err
}

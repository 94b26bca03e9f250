package lifecycle

import (
	"context"
	"time"

	"github.com/referlab/backend/internal/entity"
	"github.com/referlab/backend/internal/repository"
	"github.com/referlab/backend/pkg/xcontext"
)

// Machine owns the legal transitions of a referral record:
//
//	PENDING -> REGISTERED -> QUALIFIED -> COMPLETED
//
// with side exits to EXPIRED (from PENDING/REGISTERED) and INVALID (from
// any non-terminal state). Every applied transition updates the row
// conditioned on the expected prior status and appends the matching
// ReferralEvent in the same database transaction. Triggers that arrive
// after a terminal state are benign duplicates, not errors.
type Machine struct {
	referralRepo repository.ReferralRepository
	eventRepo    repository.ReferralEventRepository
}

func NewMachine(
	referralRepo repository.ReferralRepository,
	eventRepo repository.ReferralEventRepository,
) *Machine {
	return &Machine{referralRepo: referralRepo, eventRepo: eventRepo}
}

// CreatePending inserts the initial referral record together with its
// code_used event.
func (m *Machine) CreatePending(ctx context.Context, referral *entity.Referral, actorID string) error {
	referral.Status = entity.ReferralPending

	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	if err := m.referralRepo.Create(ctx, referral); err != nil {
		return err
	}

	err := m.eventRepo.Create(ctx, &entity.ReferralEvent{
		ReferralID: referral.ID,
		Type:       entity.EventCodeUsed,
		ActorID:    actorID,
		Metadata:   referral.Metadata,
	})
	if err != nil {
		return err
	}

	xcontext.WithCommitDBTransaction(ctx)
	return nil
}

// Register applies PENDING -> REGISTERED and binds the referred user.
func (m *Machine) Register(ctx context.Context, referralID, referredUserID string) (bool, error) {
	now := time.Now()
	return m.apply(ctx, referralID, referredUserID,
		[]entity.ReferralStatus{entity.ReferralPending},
		entity.EventRegistered,
		map[string]any{
			"status":           entity.ReferralRegistered,
			"referred_user_id": referredUserID,
			"registered_at":    now,
		},
		entity.Map{"registered_at": now.Format(time.RFC3339)},
	)
}

// Qualify applies REGISTERED -> QUALIFIED on KYC completion.
func (m *Machine) Qualify(ctx context.Context, referralID, actorID string) (bool, error) {
	now := time.Now()
	return m.apply(ctx, referralID, actorID,
		[]entity.ReferralStatus{entity.ReferralRegistered},
		entity.EventKycCompleted,
		map[string]any{
			"status":       entity.ReferralQualified,
			"qualified_at": now,
		},
		nil,
	)
}

// Complete applies REGISTERED/QUALIFIED -> COMPLETED, recording the
// conversion. The reward amount is computed by the caller beforehand so
// the stamp lands in the same transaction as the event.
func (m *Machine) Complete(
	ctx context.Context,
	referralID, actorID string,
	eventType entity.ReferralEventType,
	conversionAmount, rewardAmount float64,
) (bool, error) {
	now := time.Now()
	return m.apply(ctx, referralID, actorID,
		[]entity.ReferralStatus{entity.ReferralRegistered, entity.ReferralQualified},
		eventType,
		map[string]any{
			"status":               entity.ReferralCompleted,
			"completed_at":         now,
			"completed_event_type": string(eventType),
			"conversion_amount":    conversionAmount,
			"reward_amount":        rewardAmount,
		},
		entity.Map{"conversion_amount": conversionAmount},
	)
}

// Expire applies PENDING/REGISTERED -> EXPIRED.
func (m *Machine) Expire(ctx context.Context, referralID, reason string) (bool, error) {
	now := time.Now()
	return m.apply(ctx, referralID, "",
		[]entity.ReferralStatus{entity.ReferralPending, entity.ReferralRegistered},
		entity.EventExpired,
		map[string]any{
			"status":     entity.ReferralExpired,
			"expired_at": now,
		},
		entity.Map{"reason": reason},
	)
}

// Invalidate moves any non-terminal referral to INVALID, stamping the
// reason and the offending chain depth.
func (m *Machine) Invalidate(ctx context.Context, referralID, reason string, chainDepth int) (bool, error) {
	return m.apply(ctx, referralID, "",
		[]entity.ReferralStatus{
			entity.ReferralPending,
			entity.ReferralRegistered,
			entity.ReferralQualified,
		},
		entity.EventInvalidated,
		map[string]any{
			"status":         entity.ReferralInvalid,
			"invalid_reason": reason,
			"chain_depth":    chainDepth,
		},
		entity.Map{"reason": reason, "chain_depth": chainDepth},
	)
}

// apply performs the conditional status update and the event append as one
// unit of work. A conditional update matching no row means another trigger
// won the race or the referral is already terminal; both are benign.
func (m *Machine) apply(
	ctx context.Context,
	referralID, actorID string,
	from []entity.ReferralStatus,
	eventType entity.ReferralEventType,
	updates map[string]any,
	eventMeta entity.Map,
) (bool, error) {
	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	rows, err := m.referralRepo.UpdateStatus(ctx, referralID, from, updates)
	if err != nil {
		return false, err
	}

	if rows == 0 {
		xcontext.Logger(ctx).Debugf(
			"Skipped %s on referral %s: not in %v anymore", eventType, referralID, from)
		return false, nil
	}

	err = m.eventRepo.Create(ctx, &entity.ReferralEvent{
		ReferralID: referralID,
		Type:       eventType,
		ActorID:    actorID,
		Metadata:   eventMeta,
	})
	if err != nil {
		return false, err
	}

	xcontext.WithCommitDBTransaction(ctx)
	return true, nil
}

package chain

import (
	"context"
	"errors"

	"github.com/referlab/backend/internal/entity"
	"github.com/referlab/backend/internal/repository"
	"github.com/referlab/backend/pkg/xcontext"
	"gorm.io/gorm"
)

// Result of a chain validation. When Valid is false, Reason is one of the
// entity.InvalidReason constants and Depth is the depth at which the walk
// gave up.
type Result struct {
	Valid  bool
	Reason string
	Depth  int
}

// Validator walks the referrer graph upward to reject circular referrals
// and chains deeper than the configured maximum. It always reads the
// ledger, never the code cache: correctness here is safety-critical. The
// walk is iterative with a visited set and terminates after at most
// maxDepth+1 steps regardless of the graph shape.
type Validator struct {
	referralRepo repository.ReferralRepository
}

func NewValidator(referralRepo repository.ReferralRepository) *Validator {
	return &Validator{referralRepo: referralRepo}
}

func (v *Validator) Validate(ctx context.Context, referral *entity.Referral) (Result, error) {
	cfg := xcontext.Configs(ctx).Referral

	// A one-hop cycle (the referrer was ever referred by the referred
	// user) is rejected without walking the chain.
	if referral.ReferredUserID.Valid {
		cycle, err := v.referralRepo.ExistsByReferrerAndReferred(
			ctx, referral.ReferredUserID.String, referral.ReferrerID)
		if err != nil {
			return Result{}, err
		}

		if cycle {
			return Result{Valid: false, Reason: entity.InvalidReasonCircular, Depth: 0}, nil
		}
	}

	completedOnly := !cfg.CountPendingInChainDepth

	visited := map[string]bool{}
	if referral.ReferredUserID.Valid {
		visited[referral.ReferredUserID.String] = true
	}

	// The referral under validation is the first link of the chain.
	depth := 1
	current := referral.ReferrerID

	for {
		if visited[current] {
			return Result{Valid: false, Reason: entity.InvalidReasonCircular, Depth: depth}, nil
		}
		visited[current] = true

		if depth > cfg.MaxChainDepth {
			return Result{Valid: false, Reason: entity.InvalidReasonTooDeep, Depth: depth}, nil
		}

		parent, err := v.referralRepo.GetParent(ctx, current, completedOnly)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// Reached an unreferred root user.
				return Result{Valid: true, Depth: depth}, nil
			}

			return Result{}, err
		}

		depth++
		current = parent.ReferrerID
	}
}

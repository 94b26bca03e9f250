package domain

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/referlab/backend/internal/domain/lifecycle"
	"github.com/referlab/backend/internal/domain/processor"
	"github.com/referlab/backend/internal/entity"
	"github.com/referlab/backend/internal/model"
	"github.com/referlab/backend/internal/repository"
	"github.com/referlab/backend/pkg/crypto"
	"github.com/referlab/backend/pkg/errorx"
	"github.com/referlab/backend/pkg/xcontext"
	"github.com/referlab/backend/pkg/xredis"
	"gorm.io/gorm"
)

// Rejection reasons surfaced by code validation.
const (
	reasonNotFound        = "not_found"
	reasonInactive        = "inactive"
	reasonExpired         = "expired"
	reasonUsageExhausted  = "usage_exhausted"
	reasonSelfReferral    = "self_referral"
	reasonAlreadyReferred = "already_referred"
	reasonCooldown        = "cooldown"
)

type ReferralCodeDomain interface {
	Issue(ctx context.Context, req *model.IssueCodeRequest) (*model.IssueCodeResponse, error)
	Validate(ctx context.Context, req *model.ValidateCodeRequest) (*model.ValidateCodeResponse, error)
	Consume(ctx context.Context, req *model.ConsumeCodeRequest) (*model.ConsumeCodeResponse, error)
	GetMyCodes(ctx context.Context, req *model.GetMyCodesRequest) (*model.GetMyCodesResponse, error)
}

type referralCodeDomain struct {
	codeRepo     repository.ReferralCodeRepository
	referralRepo repository.ReferralRepository
	machine      *lifecycle.Machine
	enqueuer     *processor.Enqueuer
	redisClient  xredis.Client
}

func NewReferralCodeDomain(
	codeRepo repository.ReferralCodeRepository,
	referralRepo repository.ReferralRepository,
	machine *lifecycle.Machine,
	enqueuer *processor.Enqueuer,
	redisClient xredis.Client,
) *referralCodeDomain {
	return &referralCodeDomain{
		codeRepo:     codeRepo,
		referralRepo: referralRepo,
		machine:      machine,
		enqueuer:     enqueuer,
		redisClient:  redisClient,
	}
}

func (d *referralCodeDomain) Issue(
	ctx context.Context, req *model.IssueCodeRequest,
) (*model.IssueCodeResponse, error) {
	userID := xcontext.RequestUserID(ctx)
	if userID == "" {
		return nil, errorx.New(errorx.Unauthenticated, "User is not authenticated")
	}

	cfg := xcontext.Configs(ctx).Referral

	expiresAt := time.Now().Add(cfg.CodeExpiration)
	if req.ExpiresInDays > 0 {
		expiresAt = time.Now().AddDate(0, 0, req.ExpiresInDays)
	}

	multiplier := req.RewardMultiplier
	if multiplier <= 0 {
		multiplier = 1
	}

	code, err := d.generateCode(ctx)
	if err != nil {
		return nil, err
	}

	record := &entity.ReferralCode{
		Base:             entity.Base{ID: uuid.NewString()},
		OwnerID:          userID,
		Code:             code,
		Description:      req.Description,
		MaxUses:          req.MaxUses,
		RewardMultiplier: multiplier,
		IsActive:         true,
		ExpiresAt:        expiresAt,
		Metadata:         req.Metadata,
	}

	if err := d.codeRepo.Create(ctx, record); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot create referral code: %v", err)
		return nil, errorx.Unknown
	}

	return &model.IssueCodeResponse{
		ID:        record.ID,
		Code:      record.Code,
		ExpiresAt: record.ExpiresAt,
	}, nil
}

// generateCode draws random suffixes until one is unused. The alphabet
// excludes ambiguous characters, so collisions stay rare at any realistic
// code volume.
func (d *referralCodeDomain) generateCode(ctx context.Context) (string, error) {
	cfg := xcontext.Configs(ctx).Referral

	for i := 0; i < cfg.MaxCodeAttempts; i++ {
		code := cfg.CodePrefix + crypto.GenerateReferralSuffix(cfg.CodeSuffixLen)

		_, err := d.codeRepo.GetByCode(ctx, code)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return code, nil
		}

		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot check code collision: %v", err)
			return "", errorx.Unknown
		}
	}

	xcontext.Logger(ctx).Errorf("Gave up generating a code after %d attempts", cfg.MaxCodeAttempts)
	return "", errorx.New(errorx.GenerationExhausted, "Cannot generate an unused code")
}

func (d *referralCodeDomain) Validate(
	ctx context.Context, req *model.ValidateCodeRequest,
) (*model.ValidateCodeResponse, error) {
	code, err := d.resolve(ctx, req.Code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &model.ValidateCodeResponse{Valid: false, Reason: reasonNotFound}, nil
		}

		xcontext.Logger(ctx).Errorf("Cannot resolve code: %v", err)
		return nil, errorx.Unknown
	}

	reason, err := d.checkConsumable(ctx, code, xcontext.RequestUserID(ctx))
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot check code: %v", err)
		return nil, errorx.Unknown
	}

	return &model.ValidateCodeResponse{Valid: reason == "", Reason: reason}, nil
}

func (d *referralCodeDomain) Consume(
	ctx context.Context, req *model.ConsumeCodeRequest,
) (*model.ConsumeCodeResponse, error) {
	userID := xcontext.RequestUserID(ctx)
	if userID == "" {
		return nil, errorx.New(errorx.Unauthenticated, "User is not authenticated")
	}

	code, err := d.resolve(ctx, req.Code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found code")
		}

		xcontext.Logger(ctx).Errorf("Cannot resolve code: %v", err)
		return nil, errorx.Unknown
	}

	reason, err := d.checkConsumable(ctx, code, userID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot check code: %v", err)
		return nil, errorx.Unknown
	}

	if reason != "" {
		return nil, rejectionError(reason)
	}

	// The conditional update owns the usage ceiling. Losing it usually
	// means the cached snapshot went stale, so re-read the ledger once and
	// try again before giving up.
	if err := d.codeRepo.Consume(ctx, code.ID, time.Now()); err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			xcontext.Logger(ctx).Errorf("Cannot consume code: %v", err)
			return nil, errorx.Unknown
		}

		if err := d.redisClient.Del(ctx, redisKeyCode(code.Code)); err != nil {
			xcontext.Logger(ctx).Warnf("Cannot invalidate code cache: %v", err)
		}

		fresh, err := d.codeRepo.GetByCode(ctx, req.Code)
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot re-read code: %v", err)
			return nil, errorx.Unknown
		}

		reason, err := d.checkConsumable(ctx, fresh, userID)
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot re-check code: %v", err)
			return nil, errorx.Unknown
		}

		if reason != "" {
			return nil, rejectionError(reason)
		}

		if err := d.codeRepo.Consume(ctx, fresh.ID, time.Now()); err != nil {
			return nil, errorx.New(errorx.Conflict, "Code was consumed concurrently, try again")
		}
	}

	if err := d.redisClient.Del(ctx, redisKeyCode(code.Code)); err != nil {
		xcontext.Logger(ctx).Warnf("Cannot invalidate code cache: %v", err)
	}

	referral := &entity.Referral{
		Base:           entity.Base{ID: uuid.NewString()},
		ReferrerID:     code.OwnerID,
		ReferredUserID: sql.NullString{Valid: true, String: userID},
		ReferralCodeID: code.ID,
		Metadata:       req.Metadata,
	}

	if err := d.machine.CreatePending(ctx, referral, userID); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot create pending referral: %v", err)
		return nil, errorx.Unknown
	}

	// Validation and the insert are not atomic, so a racing consumption by
	// the same user can slip past checkConsumable. Re-count after the
	// insert and invalidate our record when the user already holds another
	// active referral.
	active, err := d.referralRepo.CountActiveByReferredUserID(ctx, userID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot recount active referrals: %v", err)
		return nil, errorx.Unknown
	}

	if active > 1 {
		if _, err := d.machine.Invalidate(
			ctx, referral.ID, entity.InvalidReasonDuplicate, 0); err != nil {
			xcontext.Logger(ctx).Errorf("Cannot invalidate duplicate referral: %v", err)
			return nil, errorx.Unknown
		}

		return nil, errorx.New(errorx.AlreadyExists, "You were already referred")
	}

	err = d.enqueuer.Enqueue(ctx, entity.JobProcessSignup, referral.ID,
		model.ProcessSignupPayload{ReferralID: referral.ID, ReferredUserID: userID})
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot enqueue signup job: %v", err)
		return nil, errorx.Unknown
	}

	return &model.ConsumeCodeResponse{ReferralID: referral.ID}, nil
}

func (d *referralCodeDomain) GetMyCodes(
	ctx context.Context, req *model.GetMyCodesRequest,
) (*model.GetMyCodesResponse, error) {
	userID := xcontext.RequestUserID(ctx)
	if userID == "" {
		return nil, errorx.New(errorx.Unauthenticated, "User is not authenticated")
	}

	codes, err := d.codeRepo.GetListByOwnerID(ctx, userID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get codes: %v", err)
		return nil, errorx.Unknown
	}

	resp := &model.GetMyCodesResponse{Codes: []model.ReferralCode{}}
	for _, code := range codes {
		view := model.ReferralCode{
			ID:               code.ID,
			Code:             code.Code,
			Description:      code.Description,
			MaxUses:          code.MaxUses,
			UsedCount:        code.UsedCount,
			RewardMultiplier: code.RewardMultiplier,
			IsActive:         code.IsActive,
			ExpiresAt:        code.ExpiresAt,
		}
		if code.LastUsedAt.Valid {
			t := code.LastUsedAt.Time
			view.LastUsedAt = &t
		}

		resp.Codes = append(resp.Codes, view)
	}

	return resp, nil
}

// resolve reads a code through the cache. Cache misses fall through to the
// ledger and refill the cache; a broken cache degrades to ledger reads.
func (d *referralCodeDomain) resolve(ctx context.Context, code string) (*entity.ReferralCode, error) {
	var cached entity.ReferralCode
	if err := d.redisClient.GetObj(ctx, redisKeyCode(code), &cached); err == nil {
		return &cached, nil
	}

	record, err := d.codeRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	ttl := xcontext.Configs(ctx).Referral.CodeCacheTTL
	if err := d.redisClient.SetObj(ctx, redisKeyCode(code), record, ttl); err != nil {
		xcontext.Logger(ctx).Warnf("Cannot cache code %s: %v", code, err)
	}

	return record, nil
}

// checkConsumable returns the first failing rule as a rejection reason, or
// the empty string when the code can be consumed by userID.
func (d *referralCodeDomain) checkConsumable(
	ctx context.Context, code *entity.ReferralCode, userID string,
) (string, error) {
	if !code.IsActive {
		return reasonInactive, nil
	}

	if !code.ExpiresAt.IsZero() && time.Now().After(code.ExpiresAt) {
		return reasonExpired, nil
	}

	if code.MaxUses > 0 && code.UsedCount >= code.MaxUses {
		return reasonUsageExhausted, nil
	}

	if userID == "" {
		return "", nil
	}

	if code.OwnerID == userID {
		return reasonSelfReferral, nil
	}

	_, err := d.referralRepo.GetActiveByReferredUserID(ctx, userID)
	if err == nil {
		return reasonAlreadyReferred, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	// An expired or invalidated referral still holds the user in cooldown
	// for a while, blocking rapid code hopping.
	latest, err := d.referralRepo.GetLatestByReferredUserID(ctx, userID)
	if err == nil {
		cooldown := xcontext.Configs(ctx).Referral.CooldownWindow
		if time.Since(latest.CreatedAt) < cooldown {
			return reasonCooldown, nil
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	return "", nil
}

func rejectionError(reason string) error {
	switch reason {
	case reasonInactive:
		return errorx.New(errorx.CodeInactive, "Code is inactive")
	case reasonExpired:
		return errorx.New(errorx.CodeExpired, "Code is expired")
	case reasonUsageExhausted:
		return errorx.New(errorx.UsageExhausted, "Code usage limit is reached")
	case reasonSelfReferral:
		return errorx.New(errorx.SelfReferral, "Cannot use your own code")
	case reasonAlreadyReferred:
		return errorx.New(errorx.AlreadyExists, "You were already referred")
	case reasonCooldown:
		return errorx.New(errorx.ReferralCooldown, "Please wait before using another code")
	default:
		return errorx.Unknown
	}
}

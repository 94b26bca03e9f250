package model

import "time"

type Reward struct {
	ID         string     `json:"id"`
	ReferralID string     `json:"referral_id,omitempty"`
	Type       string     `json:"type"`
	Amount     float64    `json:"amount"`
	Currency   string     `json:"currency"`
	Status     string     `json:"status"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	PaidAt     *time.Time `json:"paid_at,omitempty"`
}

type ClaimRewardRequest struct {
	RewardID string         `json:"reward_id"`
	Metadata map[string]any `json:"metadata"`
}

type ClaimRewardResponse struct {
	ClaimID string `json:"claim_id"`
}

type GetMyRewardsRequest struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

type GetMyRewardsResponse struct {
	Rewards []Reward `json:"rewards"`
}

type ApproveRewardRequest struct {
	RewardID string `json:"reward_id"`
}

type ApproveRewardResponse struct{}

type MarkRewardPaidRequest struct {
	RewardID string `json:"reward_id"`
	TxRef    string `json:"tx_ref"`
}

type MarkRewardPaidResponse struct{}

package model

import "time"

type ShortUser struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

type IssueCodeRequest struct {
	Description      string         `json:"description"`
	MaxUses          int            `json:"max_uses"`
	RewardMultiplier float64        `json:"reward_multiplier"`
	ExpiresInDays    int            `json:"expires_in_days"`
	Metadata         map[string]any `json:"metadata"`
}

type IssueCodeResponse struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

type ValidateCodeRequest struct {
	Code string `json:"code"`
}

type ValidateCodeResponse struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

type ConsumeCodeRequest struct {
	Code     string         `json:"code"`
	Metadata map[string]any `json:"metadata"`
}

type ConsumeCodeResponse struct {
	ReferralID string `json:"referral_id"`
}

type TrackClickRequest struct {
	Code        string `json:"code"`
	UTMSource   string `json:"utm_source"`
	UTMMedium   string `json:"utm_medium"`
	UTMCampaign string `json:"utm_campaign"`
	IP          string `json:"ip"`
	UserAgent   string `json:"user_agent"`
}

type TrackClickResponse struct{}

type ConfirmReferralEventRequest struct {
	ReferralID string         `json:"referral_id"`
	EventType  string         `json:"event_type"`
	Amount     float64        `json:"amount"`
	Metadata   map[string]any `json:"metadata"`
}

type ConfirmReferralEventResponse struct {
	Status string `json:"status"`
}

type ReferralCode struct {
	ID               string     `json:"id"`
	Code             string     `json:"code"`
	Description      string     `json:"description"`
	MaxUses          int        `json:"max_uses"`
	UsedCount        int        `json:"used_count"`
	RewardMultiplier float64    `json:"reward_multiplier"`
	IsActive         bool       `json:"is_active"`
	ExpiresAt        time.Time  `json:"expires_at"`
	LastUsedAt       *time.Time `json:"last_used_at,omitempty"`
}

type Referral struct {
	ID               string     `json:"id"`
	ReferrerID       string     `json:"referrer_id"`
	ReferredUserID   string     `json:"referred_user_id,omitempty"`
	Status           string     `json:"status"`
	RewardAmount     float64    `json:"reward_amount"`
	ConversionAmount float64    `json:"conversion_amount"`
	CreatedAt        time.Time  `json:"created_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

type GetMyCodesRequest struct{}

type GetMyCodesResponse struct {
	Codes []ReferralCode `json:"codes"`
}

type GetMyReferralsRequest struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

type GetMyReferralsResponse struct {
	Referrals []Referral `json:"referrals"`
}

type GetStatsRequest struct {
	Window string `json:"window"`
}

type GetStatsResponse struct {
	TotalReferrals     int64   `json:"total_referrals"`
	CompletedReferrals int64   `json:"completed_referrals"`
	PendingReferrals   int64   `json:"pending_referrals"`
	TotalEarned        float64 `json:"total_earned"`
	Tier               string  `json:"tier"`
	TierMultiplier     float64 `json:"tier_multiplier"`

	ActiveClicks     int64   `json:"active_clicks"`
	TodaySignups     int64   `json:"today_signups"`
	TodayConversions int64   `json:"today_conversions"`
	CompletionRate   float64 `json:"completion_rate"`
}

type LeaderboardEntry struct {
	User        ShortUser `json:"user"`
	Points      int64     `json:"points"`
	CurrentRank int       `json:"current_rank"`
}

type GetLeaderboardRequest struct {
	Period string `json:"period"`
	Offset int    `json:"offset"`
	Limit  int    `json:"limit"`
}

type GetLeaderboardResponse struct {
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
}

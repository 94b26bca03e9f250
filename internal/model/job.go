package model

import (
	"encoding/json"
	"time"
)

// Job is the envelope published to the job topic. Name selects the
// handler, Attempt counts deliveries of this payload.
type Job struct {
	Name       string          `json:"name"`
	Payload    json.RawMessage `json:"payload"`
	Attempt    int             `json:"attempt"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

func (j *Job) Marshal() ([]byte, error) {
	return json.Marshal(j)
}

func (j *Job) Unmarshal(b []byte) error {
	return json.Unmarshal(b, j)
}

type ProcessSignupPayload struct {
	ReferralID     string `json:"referral_id"`
	ReferredUserID string `json:"referred_user_id"`
}

type CheckCompletionPayload struct {
	ReferralID string `json:"referral_id"`
}

// ExpireReferralsPayload targets one referral when ReferralID is set,
// otherwise the handler sweeps every overdue referral.
type ExpireReferralsPayload struct {
	ReferralID string `json:"referral_id,omitempty"`
}

type ValidateChainPayload struct {
	ReferralID string `json:"referral_id"`
}

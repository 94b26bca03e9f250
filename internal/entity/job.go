package entity

import "github.com/referlab/backend/pkg/enum"

type JobType string

var (
	JobProcessSignup   = enum.New(JobType("process-referral-signup"))
	JobCheckCompletion = enum.New(JobType("check-referral-completion"))
	JobExpireReferrals = enum.New(JobType("expire-referrals"))
	JobValidateChain   = enum.New(JobType("validate-referral-chain"))
)

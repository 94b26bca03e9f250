package config

import (
	"fmt"
	"time"
)

type Configs struct {
	Env string

	Database  DatabaseConfigs
	ApiServer ServerConfigs
	Auth      AuthConfigs
	Redis     RedisConfigs
	Kafka     KafkaConfigs
	Referral  ReferralConfigs
	Job       JobConfigs
	Wallet    WalletConfigs
}

type WalletConfigs struct {
	Endpoint string
	Timeout  time.Duration
}

type DatabaseConfigs struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
}

func (d *DatabaseConfigs) ConnectionString() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.User,
		d.Password,
		d.Host,
		d.Port,
		d.Database,
	)
}

type ServerConfigs struct {
	Host string
	Port string

	DefaultLimit int
	MaxLimit     int
}

type AuthConfigs struct {
	TokenSecret string
	AccessToken TokenConfigs
}

type TokenConfigs struct {
	Name       string
	Expiration time.Duration
}

type RedisConfigs struct {
	Addr string
}

type KafkaConfigs struct {
	Addr          string
	JobTopic      string
	ConsumerGroup string
}

// ReferralConfigs is loaded once at startup and passed through the
// context; domain services treat it as immutable.
type ReferralConfigs struct {
	// Code issuing.
	CodePrefix      string
	CodeSuffixLen   uint
	MaxCodeAttempts int
	CodeExpiration  time.Duration
	CodeCacheTTL    time.Duration

	// Rewarding.
	BaseReward       float64
	RewardCurrency   string
	RewardExpiration time.Duration

	// Chain validation.
	MaxChainDepth int
	// CountPendingInChainDepth includes not-yet-completed referrals when
	// walking the referrer chain. Default walks completed referrals only.
	CountPendingInChainDepth bool

	// Lifecycle windows.
	CooldownWindow time.Duration
	ExpireAfter    time.Duration

	// Analytics.
	AnalyticsCacheTTL time.Duration
	ClickTTL          time.Duration

	// Optional toml file overriding the seeded tier ladder.
	TiersFile string
}

type JobConfigs struct {
	MaxAttempts    int
	RetryBackoff   time.Duration
	HandlerTimeout time.Duration
}

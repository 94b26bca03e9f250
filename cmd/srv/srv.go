package main

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/joho/godotenv"
	"github.com/referlab/backend/config"
	"github.com/referlab/backend/internal/client"
	"github.com/referlab/backend/internal/domain"
	"github.com/referlab/backend/internal/domain/chain"
	"github.com/referlab/backend/internal/domain/lifecycle"
	"github.com/referlab/backend/internal/domain/processor"
	"github.com/referlab/backend/internal/domain/rewarding"
	"github.com/referlab/backend/internal/domain/statistic"
	"github.com/referlab/backend/internal/domain/tracker"
	"github.com/referlab/backend/internal/model"
	"github.com/referlab/backend/internal/repository"
	"github.com/referlab/backend/pkg/jwt"
	"github.com/referlab/backend/pkg/kafka"
	"github.com/referlab/backend/pkg/logger"
	"github.com/referlab/backend/pkg/pubsub"
	"github.com/referlab/backend/pkg/router"
	"github.com/referlab/backend/pkg/xcontext"
	"github.com/referlab/backend/pkg/xredis"
	"github.com/urfave/cli/v2"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

type srv struct {
	app *cli.App
	ctx context.Context

	configs *config.Configs

	userRepo     repository.UserRepository
	codeRepo     repository.ReferralCodeRepository
	referralRepo repository.ReferralRepository
	eventRepo    repository.ReferralEventRepository
	rewardRepo   repository.RewardRepository
	claimRepo    repository.RewardClaimRepository
	tierRepo     repository.ReferralTierRepository

	redisClient xredis.Client
	publisher   pubsub.Publisher
	subscriber  pubsub.Subscriber

	machine    *lifecycle.Machine
	validator  *chain.Validator
	calculator *rewarding.Calculator
	track      *tracker.Tracker
	board      statistic.Leaderboard
	enqueuer   *processor.Enqueuer
	processor  *processor.Processor

	referralCodeDomain domain.ReferralCodeDomain
	referralDomain     domain.ReferralDomain
	rewardDomain       domain.RewardDomain
	statisticDomain    domain.StatisticDomain

	router *router.Router
	server *http.Server
}

func (s *srv) loadConfig() {
	godotenv.Load()

	s.configs = &config.Configs{
		Env: getEnv("ENV", "dev"),
		Database: config.DatabaseConfigs{
			Host:     getEnv("MYSQL_HOST", "localhost"),
			Port:     getEnv("MYSQL_PORT", "3306"),
			Database: getEnv("MYSQL_DATABASE", "referlab"),
			User:     getEnv("MYSQL_USER", "referlab"),
			Password: getEnv("MYSQL_PASSWORD", "secret"),
		},
		ApiServer: config.ServerConfigs{
			Host:         getEnv("API_HOST", "localhost"),
			Port:         getEnv("API_PORT", "8080"),
			DefaultLimit: getEnvAsInt("API_DEFAULT_LIMIT", 10),
			MaxLimit:     getEnvAsInt("API_MAX_LIMIT", 50),
		},
		Auth: config.AuthConfigs{
			TokenSecret: getEnv("TOKEN_SECRET", "token_secret"),
			AccessToken: config.TokenConfigs{
				Name:       "access_token",
				Expiration: getEnvAsDuration("ACCESS_TOKEN_DURATION", time.Hour),
			},
		},
		Redis: config.RedisConfigs{
			Addr: getEnv("REDIS_ADDRESS", "localhost:6379"),
		},
		Kafka: config.KafkaConfigs{
			Addr:          getEnv("KAFKA_ADDRESS", "localhost:9092"),
			JobTopic:      getEnv("KAFKA_JOB_TOPIC", "referral-jobs"),
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "referral-worker"),
		},
		Referral: config.ReferralConfigs{
			CodePrefix:               getEnv("REFERRAL_CODE_PREFIX", "REF-"),
			CodeSuffixLen:            uint(getEnvAsInt("REFERRAL_CODE_SUFFIX_LEN", 8)),
			MaxCodeAttempts:          getEnvAsInt("REFERRAL_CODE_MAX_ATTEMPTS", 10),
			CodeExpiration:           getEnvAsDuration("REFERRAL_CODE_EXPIRATION", 365*24*time.Hour),
			CodeCacheTTL:             getEnvAsDuration("REFERRAL_CODE_CACHE_TTL", 5*time.Minute),
			BaseReward:               getEnvAsFloat("REFERRAL_BASE_REWARD", 10),
			RewardCurrency:           getEnv("REFERRAL_REWARD_CURRENCY", "USDT"),
			RewardExpiration:         getEnvAsDuration("REFERRAL_REWARD_EXPIRATION", 90*24*time.Hour),
			MaxChainDepth:            getEnvAsInt("REFERRAL_MAX_CHAIN_DEPTH", 5),
			CountPendingInChainDepth: getEnv("REFERRAL_COUNT_PENDING_IN_CHAIN", "false") == "true",
			CooldownWindow:           getEnvAsDuration("REFERRAL_COOLDOWN_WINDOW", 30*24*time.Hour),
			ExpireAfter:              getEnvAsDuration("REFERRAL_EXPIRE_AFTER", 30*24*time.Hour),
			AnalyticsCacheTTL:        getEnvAsDuration("REFERRAL_ANALYTICS_CACHE_TTL", 10*time.Minute),
			ClickTTL:                 getEnvAsDuration("REFERRAL_CLICK_TTL", 24*time.Hour),
			TiersFile:                getEnv("REFERRAL_TIERS_FILE", ""),
		},
		Job: config.JobConfigs{
			MaxAttempts:    getEnvAsInt("JOB_MAX_ATTEMPTS", 5),
			RetryBackoff:   getEnvAsDuration("JOB_RETRY_BACKOFF", 5*time.Second),
			HandlerTimeout: getEnvAsDuration("JOB_HANDLER_TIMEOUT", 30*time.Second),
		},
		Wallet: config.WalletConfigs{
			Endpoint: getEnv("WALLET_ENDPOINT", "http://localhost:8081"),
			Timeout:  getEnvAsDuration("WALLET_TIMEOUT", 10*time.Second),
		},
	}

	s.ctx = xcontext.WithConfigs(context.Background(), *s.configs)
}

func (s *srv) loadLogger() {
	s.ctx = xcontext.WithLogger(s.ctx, logger.NewLogger(getEnvAsInt("LOG_LEVEL", 1)))
}

func (s *srv) loadDatabase() {
	db, err := gorm.Open(mysql.Open(s.configs.Database.ConnectionString()), &gorm.Config{})
	if err != nil {
		panic(err)
	}

	s.ctx = xcontext.WithDB(s.ctx, db)

	node, err := snowflake.NewNode(int64(getEnvAsInt("SNOWFLAKE_NODE", 0)))
	if err != nil {
		panic(err)
	}

	s.ctx = xcontext.WithSnowFlake(s.ctx, node)
}

func (s *srv) loadTokenEngine() {
	engine := jwt.NewEngine[model.AccessToken](
		s.configs.Auth.TokenSecret, s.configs.Auth.AccessToken.Expiration)
	s.ctx = xcontext.WithTokenEngine(s.ctx, engine)
}

func (s *srv) loadRedis() {
	redisClient, err := xredis.NewClient(s.ctx, s.configs.Redis)
	if err != nil {
		panic(err)
	}

	s.redisClient = redisClient
}

func (s *srv) loadPublisher() {
	publisher, err := kafka.NewPublisher("referlab", []string{s.configs.Kafka.Addr})
	if err != nil {
		panic(err)
	}

	s.publisher = publisher
}

func (s *srv) loadRepos() {
	s.userRepo = repository.NewUserRepository()
	s.codeRepo = repository.NewReferralCodeRepository()
	s.referralRepo = repository.NewReferralRepository()
	s.eventRepo = repository.NewReferralEventRepository()
	s.rewardRepo = repository.NewRewardRepository()
	s.claimRepo = repository.NewRewardClaimRepository()
	s.tierRepo = repository.NewReferralTierRepository()
}

func (s *srv) loadDomains() {
	s.machine = lifecycle.NewMachine(s.referralRepo, s.eventRepo)
	s.validator = chain.NewValidator(s.referralRepo)
	s.calculator = rewarding.NewCalculator(
		s.referralRepo, s.rewardRepo, s.tierRepo, s.codeRepo, client.NewWalletCaller())
	s.track = tracker.New(s.referralRepo, s.codeRepo, s.redisClient)
	s.board = statistic.New(s.referralRepo, s.userRepo, s.redisClient)
	s.enqueuer = processor.NewEnqueuer(s.publisher)

	s.referralCodeDomain = domain.NewReferralCodeDomain(
		s.codeRepo, s.referralRepo, s.machine, s.enqueuer, s.redisClient)
	s.referralDomain = domain.NewReferralDomain(
		s.referralRepo, s.userRepo, s.track, s.calculator, s.enqueuer)
	s.rewardDomain = domain.NewRewardDomain(s.rewardRepo, s.claimRepo, s.referralRepo)
	s.statisticDomain = domain.NewStatisticDomain(s.board)
}

func (s *srv) loadProcessor() {
	s.processor = processor.New(
		s.enqueuer,
		s.referralRepo,
		s.userRepo,
		s.machine,
		s.validator,
		s.calculator,
		s.track,
		s.board,
	)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}

	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}

	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}

	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}

	return fallback
}

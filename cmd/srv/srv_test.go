package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func Test_loadConfig_ReferralDefaults(t *testing.T) {
	s := &srv{}
	s.loadConfig()

	cfg := s.configs.Referral
	require.Equal(t, 365*24*time.Hour, cfg.CodeExpiration)
	require.Equal(t, 5, cfg.MaxChainDepth)
	require.Equal(t, 30*24*time.Hour, cfg.CooldownWindow)
	require.Equal(t, 30*24*time.Hour, cfg.ExpireAfter)
	require.Equal(t, 10*time.Minute, cfg.AnalyticsCacheTTL)
	require.Equal(t, 24*time.Hour, cfg.ClickTTL)
}

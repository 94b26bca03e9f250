package main

import (
	"os"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
	"github.com/referlab/backend/internal/entity"
	"github.com/referlab/backend/pkg/enum"
	"github.com/referlab/backend/pkg/xcontext"
	"github.com/urfave/cli/v2"
)

func (s *srv) startMigrate(*cli.Context) error {
	s.loadConfig()
	s.loadLogger()
	s.loadDatabase()
	s.loadRepos()

	if err := entity.MigrateTable(s.ctx); err != nil {
		return err
	}

	if s.configs.Referral.TiersFile != "" {
		if err := s.applyTiersFile(s.configs.Referral.TiersFile); err != nil {
			return err
		}
	}

	xcontext.Logger(s.ctx).Infof("Migration completed")
	return nil
}

type tierFileEntry struct {
	Name         string   `toml:"name"`
	MinReferrals int      `toml:"min_referrals"`
	MaxReferrals int      `toml:"max_referrals"`
	Multiplier   float64  `toml:"multiplier"`
	BonusReward  float64  `toml:"bonus_reward"`
	Features     []string `toml:"features"`
	DisplayOrder int      `toml:"display_order"`
}

type tierFile struct {
	Tiers []tierFileEntry `toml:"tiers"`
}

// applyTiersFile overrides the seeded ladder with operator-provided tiers.
func (s *srv) applyTiersFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var file tierFile
	if err := toml.Unmarshal(b, &file); err != nil {
		return err
	}

	for i, entry := range file.Tiers {
		name, err := enum.ToEnum[entity.TierName](entry.Name)
		if err != nil {
			xcontext.Logger(s.ctx).Warnf("Skipped unknown tier %s", entry.Name)
			continue
		}

		order := entry.DisplayOrder
		if order == 0 {
			order = i + 1
		}

		err = s.tierRepo.Upsert(s.ctx, &entity.ReferralTier{
			Base:         entity.Base{ID: uuid.NewString()},
			Name:         name,
			MinReferrals: entry.MinReferrals,
			MaxReferrals: entry.MaxReferrals,
			Multiplier:   entry.Multiplier,
			BonusReward:  entry.BonusReward,
			Features:     entry.Features,
			IsActive:     true,
			DisplayOrder: order,
		})
		if err != nil {
			return err
		}
	}

	xcontext.Logger(s.ctx).Infof("Applied %d tiers from %s", len(file.Tiers), path)
	return nil
}

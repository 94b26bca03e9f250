package domain

import (
	"context"

	"github.com/referlab/backend/internal/domain/statistic"
	"github.com/referlab/backend/internal/model"
	"github.com/referlab/backend/pkg/errorx"
	"github.com/referlab/backend/pkg/xcontext"
)

type StatisticDomain interface {
	GetLeaderboard(ctx context.Context, req *model.GetLeaderboardRequest) (*model.GetLeaderboardResponse, error)
}

type statisticDomain struct {
	board statistic.Leaderboard
}

func NewStatisticDomain(board statistic.Leaderboard) *statisticDomain {
	return &statisticDomain{board: board}
}

func (d *statisticDomain) GetLeaderboard(
	ctx context.Context, req *model.GetLeaderboardRequest,
) (*model.GetLeaderboardResponse, error) {
	period, err := statistic.ToPeriod(req.Period)
	if err != nil {
		return nil, errorx.New(errorx.BadRequest, "Invalid period %s", req.Period)
	}

	apiCfg := xcontext.Configs(ctx).ApiServer
	if req.Limit == 0 {
		req.Limit = apiCfg.DefaultLimit
	}

	if req.Limit < 0 {
		return nil, errorx.New(errorx.BadRequest, "Limit must not be negative")
	}

	if req.Limit > apiCfg.MaxLimit {
		return nil, errorx.New(errorx.BadRequest, "Exceed the maximum of limit (%d)", apiCfg.MaxLimit)
	}

	entries, err := d.board.GetLeaderboard(ctx, period, req.Offset, req.Limit)
	if err != nil {
		return nil, err
	}

	return &model.GetLeaderboardResponse{Leaderboard: entries}, nil
}

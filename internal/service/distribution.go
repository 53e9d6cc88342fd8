package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/fundvault/internal/finance"
	"github.com/mmeshcher/fundvault/internal/model"
	"github.com/mmeshcher/fundvault/internal/repository"
)

const profitDistributionJob = "profit_distribution"

// DistributionResult содержит итог запуска распределения прибыли.
type DistributionResult struct {
	Distributed bool
	Pool        decimal.Decimal
	Base        decimal.Decimal
	Investors   int
	Message     string
}

// DistributeProfits распределяет пул входных комиссий между активными инвесторами пропорционально
// их чистым вложениям. Запуск выполняется одной транзакцией: либо все выплаты, либо ни одной.
func (s *Service) DistributeProfits(ctx context.Context) (DistributionResult, error) {
	var (
		res   DistributionResult
		notes []model.Notification
	)
	err := s.repo.WithinTx(ctx, func(q repository.Querier) error {
		res = DistributionResult{}
		notes = nil

		if err := q.AcquireJobLock(ctx, profitDistributionJob); err != nil {
			return err
		}

		st, err := loadSettings(ctx, q)
		if err != nil {
			return err
		}
		active, err := q.ListInvestmentsByStatus(ctx, model.InvestmentStatusActive)
		if err != nil {
			return err
		}
		if len(active) == 0 {
			res.Message = "no active investments to distribute profits to"
			return nil
		}

		plan := finance.DistributeProfit(active, st)
		res.Pool = plan.Pool
		res.Base = plan.Base
		if plan.Empty() {
			res.Message = "profit pool or investment base is zero, nothing to distribute"
			return nil
		}

		now := s.clock()
		dist := &model.ProfitDistribution{
			ID:        uuid.New(),
			Pool:      plan.Pool,
			Base:      plan.Base,
			Investors: len(plan.Shares),
			CreatedAt: now,
		}
		if err := q.AddProfitDistribution(ctx, dist); err != nil {
			return err
		}

		for _, sh := range plan.Shares {
			if !sh.Share.IsPositive() {
				continue
			}
			err := q.AddTransaction(ctx, &model.Transaction{
				ID:          uuid.New(),
				UserID:      sh.UserID,
				Type:        model.TransactionTypeProfitPayout,
				Amount:      sh.Share,
				Status:      model.TransactionStatusCompleted,
				ReferenceID: &dist.ID,
				Description: "Profit distribution payout",
				CreatedAt:   now,
			})
			if err != nil {
				return err
			}
			notes = append(notes, model.Notification{
				UserID:    sh.UserID,
				Kind:      "profit_payout",
				Message:   fmt.Sprintf("You received a profit share of $%s", sh.Share.StringFixed(2)),
				CreatedAt: now,
			})
		}

		fees, err := q.ListUndistributedFees(ctx, model.FeeTypeEntry)
		if err != nil {
			return err
		}
		if err := q.MarkFeesDistributed(ctx, feeIDs(fees)); err != nil {
			return err
		}

		res.Distributed = true
		res.Investors = len(plan.Shares)
		res.Message = fmt.Sprintf("distributed $%s among %d investors", plan.Pool.StringFixed(2), len(plan.Shares))
		return nil
	})
	if err != nil {
		return DistributionResult{}, err
	}

	if res.Distributed {
		s.logger.Info("profits distributed",
			zap.String("pool", res.Pool.String()),
			zap.String("base", res.Base.String()),
			zap.Int("investors", res.Investors),
		)
		s.notifyAll(ctx, notes)
	}
	return res, nil
}

func feeIDs(fees []model.DailyFee) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(fees))
	for _, f := range fees {
		ids = append(ids, f.ID)
	}
	return ids
}

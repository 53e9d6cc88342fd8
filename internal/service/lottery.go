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

const (
	lotteryDrawJob     = "lottery_draw"
	defaultWinnersPage = 20
)

// DrawResult содержит итог розыгрыша лотереи.
type DrawResult struct {
	Drawn   bool
	Winner  *model.LotteryWinner
	Message string
}

// RunLotteryDraw разыгрывает накопленный лотерейный фонд среди владельцев билетов.
// Шанс участника пропорционален числу его билетов.
func (s *Service) RunLotteryDraw(ctx context.Context) (DrawResult, error) {
	var res DrawResult
	err := s.repo.WithinTx(ctx, func(q repository.Querier) error {
		res = DrawResult{}

		if err := q.AcquireJobLock(ctx, lotteryDrawJob); err != nil {
			return err
		}

		active, err := q.ListInvestmentsByStatus(ctx, model.InvestmentStatusActive)
		if err != nil {
			return err
		}
		holders := finance.TicketHolders(active)
		if len(holders) == 0 {
			res.Message = "no ticket holders, lottery skipped"
			return nil
		}

		fees, err := q.ListUndistributedFees(ctx, model.FeeTypeLottery)
		if err != nil {
			return err
		}
		prize := decimal.Zero
		for _, f := range fees {
			prize = prize.Add(f.Amount)
		}
		if !prize.IsPositive() {
			res.Message = "lottery pool is empty, lottery skipped"
			return nil
		}

		holder, total, ok := finance.DrawWinner(holders, s.pick)
		if !ok {
			res.Message = "no ticket holders, lottery skipped"
			return nil
		}

		now := s.clock()
		w := &model.LotteryWinner{
			ID:           uuid.New(),
			UserID:       holder.UserID,
			Prize:        prize,
			Tickets:      holder.Tickets,
			TotalTickets: total,
			CreatedAt:    now,
		}
		if err := q.AddLotteryWinner(ctx, w); err != nil {
			return err
		}
		err = q.AddTransaction(ctx, &model.Transaction{
			ID:          uuid.New(),
			UserID:      w.UserID,
			Type:        model.TransactionTypeLotteryPrize,
			Amount:      prize,
			Status:      model.TransactionStatusCompleted,
			ReferenceID: &w.ID,
			Description: "Lottery prize",
			CreatedAt:   now,
		})
		if err != nil {
			return err
		}
		if err := q.MarkFeesDistributed(ctx, feeIDs(fees)); err != nil {
			return err
		}

		res = DrawResult{
			Drawn:   true,
			Winner:  w,
			Message: fmt.Sprintf("winner drawn with %d of %d tickets, prize $%s", w.Tickets, w.TotalTickets, prize.StringFixed(2)),
		}
		return nil
	})
	if err != nil {
		return DrawResult{}, err
	}

	if res.Drawn {
		s.logger.Info("lottery drawn",
			zap.String("winnerID", res.Winner.UserID.String()),
			zap.String("prize", res.Winner.Prize.String()),
			zap.Int64("tickets", res.Winner.Tickets),
			zap.Int64("totalTickets", res.Winner.TotalTickets),
		)
		s.notifyAll(ctx, []model.Notification{{
			UserID:    res.Winner.UserID,
			Kind:      "lottery_won",
			Message:   fmt.Sprintf("Congratulations, you won the lottery prize of $%s", res.Winner.Prize.StringFixed(2)),
			CreatedAt: res.Winner.CreatedAt,
		}})
	}
	return res, nil
}

// ListLotteryWinners возвращает последних победителей.
func (s *Service) ListLotteryWinners(ctx context.Context, limit int) ([]model.LotteryWinner, error) {
	if limit <= 0 {
		limit = defaultWinnersPage
	}
	return s.repo.ListLotteryWinners(ctx, limit)
}

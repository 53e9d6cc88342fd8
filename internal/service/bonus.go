package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/fundvault/internal/model"
	"github.com/mmeshcher/fundvault/internal/repository"
)

const bonusUnlockJob = "bonus_unlock"

// UnlockResult содержит итог пакетной разблокировки бонусов.
type UnlockResult struct {
	Unlocked int
	Total    decimal.Decimal
	Message  string
}

// UnlockBonuses разблокирует бонусы пользователей, чьи активные чистые вложения достигли порога,
// и зачисляет сумму бонуса в журнал. Вся пачка фиксируется одной транзакцией.
func (s *Service) UnlockBonuses(ctx context.Context) (UnlockResult, error) {
	var (
		res   UnlockResult
		notes []model.Notification
	)
	err := s.repo.WithinTx(ctx, func(q repository.Querier) error {
		res = UnlockResult{Total: decimal.Zero}
		notes = nil

		if err := q.AcquireJobLock(ctx, bonusUnlockJob); err != nil {
			return err
		}

		st, err := loadSettings(ctx, q)
		if err != nil {
			return err
		}
		locked, err := q.ListBonusesByStatus(ctx, model.BonusStatusLocked)
		if err != nil {
			return err
		}

		now := s.clock()
		for _, b := range locked {
			net, err := q.SumActiveNetInvestment(ctx, b.UserID)
			if err != nil {
				return err
			}
			if net.LessThan(st.BonusUnlockTarget) {
				continue
			}

			if err := q.UnlockBonus(ctx, b.ID, now); err != nil {
				return err
			}
			err = q.AddTransaction(ctx, &model.Transaction{
				ID:          uuid.New(),
				UserID:      b.UserID,
				Type:        model.TransactionTypeBonus,
				Amount:      b.Amount,
				Status:      model.TransactionStatusCompleted,
				ReferenceID: &b.ID,
				Description: "Welcome bonus unlocked",
				CreatedAt:   now,
			})
			if err != nil {
				return err
			}

			res.Unlocked++
			res.Total = res.Total.Add(b.Amount)
			notes = append(notes, model.Notification{
				UserID:    b.UserID,
				Kind:      "bonus_unlocked",
				Message:   fmt.Sprintf("Your $%s bonus is unlocked and added to your balance", b.Amount.StringFixed(2)),
				CreatedAt: now,
			})
		}

		if res.Unlocked == 0 {
			res.Message = "no bonuses are eligible for unlocking"
		} else {
			res.Message = fmt.Sprintf("unlocked %d bonuses totalling $%s", res.Unlocked, res.Total.StringFixed(2))
		}
		return nil
	})
	if err != nil {
		return UnlockResult{}, err
	}

	if res.Unlocked > 0 {
		s.logger.Info("bonuses unlocked", zap.Int("count", res.Unlocked), zap.String("total", res.Total.String()))
		s.notifyAll(ctx, notes)
	}
	return res, nil
}

package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/fundvault/internal/finance"
	"github.com/mmeshcher/fundvault/internal/model"
	"github.com/mmeshcher/fundvault/internal/repository"
)

// GetBalance считает балансы пользователя: сумму журнала, активные чистые вложения и их итог.
func (s *Service) GetBalance(ctx context.Context, userID uuid.UUID) (model.Balance, error) {
	withdrawable, err := s.repo.SumTransactions(ctx, userID)
	if err != nil {
		return model.Balance{}, err
	}
	active, err := s.repo.SumActiveNetInvestment(ctx, userID)
	if err != nil {
		return model.Balance{}, err
	}
	return model.Balance{
		Withdrawable:     withdrawable,
		ActiveInvestment: active,
		Total:            withdrawable.Add(active),
	}, nil
}

// GetDashboard собирает сводку личного кабинета.
func (s *Service) GetDashboard(ctx context.Context, userID uuid.UUID) (*model.Dashboard, error) {
	balance, err := s.GetBalance(ctx, userID)
	if err != nil {
		return nil, err
	}

	d := &model.Dashboard{
		Balance: balance,
		Tickets: finance.TicketCount(balance.ActiveInvestment),
	}

	bonus, err := s.repo.GetBonusByUser(ctx, userID)
	switch {
	case err == nil:
		d.Bonus = bonus
	case !errors.Is(err, repository.ErrBonusNotFound):
		return nil, err
	}

	d.PendingWithdrawal, err = s.repo.HasPendingWithdrawal(ctx, userID)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// ListTransactions возвращает журнал пользователя.
func (s *Service) ListTransactions(ctx context.Context, userID uuid.UUID) ([]model.Transaction, error) {
	return s.repo.ListTransactionsByUser(ctx, userID)
}

// ListCommissions возвращает реферальные начисления пользователя.
func (s *Service) ListCommissions(ctx context.Context, referrerID uuid.UUID) ([]model.Commission, error) {
	return s.repo.ListCommissionsByReferrer(ctx, referrerID)
}

// Stats возвращает сводку для панели администратора.
func (s *Service) Stats(ctx context.Context) (*model.PlatformStats, error) {
	return s.repo.GetPlatformStats(ctx)
}

// PriceQuote содержит цену единицы фонда в долларах.
type PriceQuote struct {
	Fund model.Fund
	USD  decimal.Decimal
}

// Price возвращает текущую цену фонда в долларах.
func (s *Service) Price(ctx context.Context, fund model.Fund) (PriceQuote, error) {
	if !fund.Valid() {
		return PriceQuote{}, ErrInvalidFund
	}
	p, err := s.prices.USDPrice(ctx, fund)
	if err != nil {
		return PriceQuote{}, fmt.Errorf("get %s price: %w: %w", fund, ErrPriceUnavailable, err)
	}
	return PriceQuote{Fund: fund, USD: p}, nil
}

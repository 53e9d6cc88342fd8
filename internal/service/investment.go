package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/fundvault/internal/finance"
	"github.com/mmeshcher/fundvault/internal/model"
	"github.com/mmeshcher/fundvault/internal/repository"
	"github.com/mmeshcher/fundvault/internal/validation"
)

const bonusAwardJob = "bonus_award"

// InvestmentRequest описывает заявку пользователя на вложение в фонд.
type InvestmentRequest struct {
	UserID          uuid.UUID
	Fund            model.Fund
	Amount          decimal.Decimal
	TransactionHash string
}

var investmentEdges = map[model.InvestmentStatus][]model.InvestmentStatus{
	model.InvestmentStatusPending: {model.InvestmentStatusActive, model.InvestmentStatusRejected},
	model.InvestmentStatusActive:  {model.InvestmentStatusCompleted},
}

func canMoveInvestment(from, to model.InvestmentStatus) bool {
	for _, next := range investmentEdges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// SubmitInvestment создаёт инвестицию в статусе pending по текущей цене фонда.
func (s *Service) SubmitInvestment(ctx context.Context, req InvestmentRequest) (*model.Investment, error) {
	if !req.Fund.Valid() {
		return nil, ErrInvalidFund
	}
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	hash := strings.TrimSpace(req.TransactionHash)
	if !validation.IsValidTxHash(hash) {
		return nil, ErrInvalidTxHash
	}

	st, err := loadSettings(ctx, s.repo)
	if err != nil {
		return nil, err
	}
	if st.Maintenance {
		return nil, ErrMaintenance
	}
	if _, err := ensureActiveUser(ctx, s.repo, req.UserID); err != nil {
		return nil, err
	}

	price, err := s.prices.USDPrice(ctx, req.Fund)
	if err != nil {
		return nil, fmt.Errorf("get %s price: %w: %w", req.Fund, ErrPriceUnavailable, err)
	}

	amountUSD := req.Amount.Mul(price)
	fees := finance.CalculateFees(amountUSD, st)
	if !fees.NetAmount.IsPositive() {
		return nil, ErrNonPositiveNet
	}

	now := s.clock()
	inv := &model.Investment{
		ID:              uuid.New(),
		UserID:          req.UserID,
		FundID:          req.Fund,
		Amount:          req.Amount,
		UnitPrice:       price,
		AmountUSD:       amountUSD,
		NetAmountUSD:    fees.NetAmount,
		FeesUSD:         fees.TotalFees,
		TransactionHash: hash,
		Status:          model.InvestmentStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.CreateInvestment(ctx, inv); err != nil {
		return nil, err
	}

	s.logger.Info("investment submitted",
		zap.String("investmentID", inv.ID.String()),
		zap.String("userID", inv.UserID.String()),
		zap.String("fund", string(inv.FundID)),
		zap.String("amountUSD", inv.AmountUSD.String()),
	)
	return inv, nil
}

// TransitionInvestment переводит инвестицию в новый статус вместе со всеми денежными последствиями.
// Переход в текущий статус ничего не делает и возвращает Result с Changed=false.
func (s *Service) TransitionInvestment(ctx context.Context, id uuid.UUID, target model.InvestmentStatus, reason string) (Result, error) {
	if !target.Valid() {
		return Result{}, ErrInvalidStatus
	}
	reason = strings.TrimSpace(reason)

	var (
		res   Result
		notes []model.Notification
	)
	err := s.repo.WithinTx(ctx, func(q repository.Querier) error {
		res = Result{}
		notes = nil

		inv, err := q.LockInvestment(ctx, id)
		if err != nil {
			return err
		}
		if inv.Status == target {
			res.Message = fmt.Sprintf("investment is already %s", target)
			return nil
		}
		if target == model.InvestmentStatusRejected && reason == "" {
			return ErrRejectionReasonRequired
		}
		if !canMoveInvestment(inv.Status, target) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, inv.Status, target)
		}

		now := s.clock()
		switch target {
		case model.InvestmentStatusActive:
			notes, err = s.approveInvestment(ctx, q, inv)
			if err != nil {
				return err
			}
		case model.InvestmentStatusCompleted:
			err = q.AddTransaction(ctx, &model.Transaction{
				ID:          uuid.New(),
				UserID:      inv.UserID,
				Type:        model.TransactionTypePrincipalReturn,
				Amount:      inv.NetAmountUSD,
				Status:      model.TransactionStatusCompleted,
				ReferenceID: &inv.ID,
				Description: fmt.Sprintf("Principal return for %s investment", inv.FundID),
				CreatedAt:   now,
			})
			if err != nil {
				return err
			}
		}

		storedReason := ""
		if target == model.InvestmentStatusRejected {
			storedReason = reason
		}
		if err := q.UpdateInvestmentStatus(ctx, inv.ID, target, storedReason, now); err != nil {
			return err
		}

		notes = append(notes, investmentNotification(inv, target, reason, now))
		res = Result{Changed: true, Message: fmt.Sprintf("investment %s", target)}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	if res.Changed {
		s.logger.Info("investment status changed",
			zap.String("investmentID", id.String()),
			zap.String("status", string(target)),
		)
		s.notifyAll(ctx, notes)
	}
	return res, nil
}

// approveInvestment выполняет все последствия одобрения внутри транзакции q.
func (s *Service) approveInvestment(ctx context.Context, q repository.Querier, inv *model.Investment) ([]model.Notification, error) {
	st, err := loadSettings(ctx, q)
	if err != nil {
		return nil, err
	}

	if err := q.LockUser(ctx, inv.UserID); err != nil {
		return nil, err
	}
	user, err := q.GetUserByID(ctx, inv.UserID)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	var notes []model.Notification

	// число одобренных считается до смены статуса, поэтому 0 означает первую инвестицию
	approved, err := q.CountApprovedInvestments(ctx, inv.UserID)
	if err != nil {
		return nil, err
	}

	err = q.AddTransaction(ctx, &model.Transaction{
		ID:          uuid.New(),
		UserID:      inv.UserID,
		Type:        model.TransactionTypeInvestment,
		Amount:      inv.NetAmountUSD,
		Status:      model.TransactionStatusCompleted,
		ReferenceID: &inv.ID,
		Description: fmt.Sprintf("Investment in %s fund approved", inv.FundID),
		CreatedAt:   now,
	})
	if err != nil {
		return nil, err
	}

	fees := finance.CalculateFees(inv.AmountUSD, st)
	buckets := []struct {
		typ         model.FeeType
		amount      decimal.Decimal
		distributed bool
	}{
		{model.FeeTypeEntry, fees.EntryFee, false},
		{model.FeeTypeLottery, fees.LotteryFee, false},
		{model.FeeTypePlatform, fees.PlatformFee, true},
	}
	for _, b := range buckets {
		err := q.AddDailyFee(ctx, &model.DailyFee{
			ID:           uuid.New(),
			Type:         b.typ,
			Amount:       b.amount,
			Distributed:  b.distributed,
			InvestmentID: inv.ID,
			FundID:       inv.FundID,
			CreatedAt:    now,
		})
		if err != nil {
			return nil, err
		}
	}

	if approved == 0 {
		awarded, err := s.awardBonus(ctx, q, inv.UserID, st)
		if err != nil {
			return nil, err
		}
		if awarded {
			notes = append(notes, model.Notification{
				UserID:    inv.UserID,
				Kind:      "bonus_awarded",
				Message:   fmt.Sprintf("A welcome bonus of $%s has been reserved for you", st.BonusAmount.StringFixed(2)),
				CreatedAt: now,
			})
		}
	}

	if user.ReferredBy != nil {
		amount := finance.ReferralCommission(inv.AmountUSD, st)
		if amount.IsPositive() {
			c := &model.Commission{
				ID:               uuid.New(),
				ReferrerID:       *user.ReferredBy,
				ReferredUserID:   inv.UserID,
				InvestmentID:     inv.ID,
				InvestmentAmount: inv.AmountUSD,
				CommissionAmount: amount,
				CreatedAt:        now,
			}
			if err := q.AddCommission(ctx, c); err != nil {
				return nil, err
			}
			err := q.AddTransaction(ctx, &model.Transaction{
				ID:          uuid.New(),
				UserID:      c.ReferrerID,
				Type:        model.TransactionTypeCommission,
				Amount:      amount,
				Status:      model.TransactionStatusCompleted,
				ReferenceID: &c.ID,
				Description: "Referral commission",
				CreatedAt:   now,
			})
			if err != nil {
				return nil, err
			}
			notes = append(notes, model.Notification{
				UserID:    c.ReferrerID,
				Kind:      "commission_earned",
				Message:   fmt.Sprintf("You earned a $%s referral commission", amount.StringFixed(2)),
				CreatedAt: now,
			})
		}
	}

	return notes, nil
}

// awardBonus выдаёт заблокированный бонус, если у пользователя его нет и лимит бонусов не исчерпан.
func (s *Service) awardBonus(ctx context.Context, q repository.Querier, userID uuid.UUID, st model.PlatformSettings) (bool, error) {
	if !st.BonusAmount.IsPositive() || st.BonusCap <= 0 {
		return false, nil
	}

	// лимит общий для всех пользователей, поэтому проверка и вставка сериализуются
	if err := q.AcquireJobLock(ctx, bonusAwardJob); err != nil {
		return false, err
	}

	if _, err := q.GetBonusByUser(ctx, userID); err == nil {
		return false, nil
	} else if !errors.Is(err, repository.ErrBonusNotFound) {
		return false, err
	}

	count, err := q.CountBonuses(ctx)
	if err != nil {
		return false, err
	}
	if count >= st.BonusCap {
		return false, nil
	}

	err = q.AddBonus(ctx, &model.Bonus{
		ID:        uuid.New(),
		UserID:    userID,
		Amount:    st.BonusAmount,
		Status:    model.BonusStatusLocked,
		AwardedAt: s.clock(),
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func investmentNotification(inv *model.Investment, target model.InvestmentStatus, reason string, at time.Time) model.Notification {
	n := model.Notification{UserID: inv.UserID, CreatedAt: at}
	switch target {
	case model.InvestmentStatusActive:
		n.Kind = "investment_approved"
		n.Message = fmt.Sprintf("Your %s investment of $%s is now active", inv.FundID, inv.NetAmountUSD.StringFixed(2))
	case model.InvestmentStatusRejected:
		n.Kind = "investment_rejected"
		n.Message = fmt.Sprintf("Your %s investment was rejected: %s", inv.FundID, reason)
	case model.InvestmentStatusCompleted:
		n.Kind = "investment_completed"
		n.Message = fmt.Sprintf("Your %s investment is completed, $%s returned to your balance", inv.FundID, inv.NetAmountUSD.StringFixed(2))
	}
	return n
}

// GetInvestment возвращает инвестицию. Пользователь видит только свои инвестиции.
func (s *Service) GetInvestment(ctx context.Context, userID, id uuid.UUID) (*model.Investment, error) {
	inv, err := s.repo.GetInvestment(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.UserID != userID {
		return nil, repository.ErrInvestmentNotFound
	}
	return inv, nil
}

// ListUserInvestments возвращает инвестиции пользователя.
func (s *Service) ListUserInvestments(ctx context.Context, userID uuid.UUID) ([]model.Investment, error) {
	return s.repo.ListInvestmentsByUser(ctx, userID)
}

// ListInvestmentsByStatus возвращает инвестиции в статусе для панели администратора.
func (s *Service) ListInvestmentsByStatus(ctx context.Context, status model.InvestmentStatus) ([]model.Investment, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	return s.repo.ListInvestmentsByStatus(ctx, status)
}

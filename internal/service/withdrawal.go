package service

import (
	"context"
	"crypto/subtle"
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

// WithdrawalRequest описывает заявку пользователя на вывод средств.
type WithdrawalRequest struct {
	UserID        uuid.UUID
	Amount        decimal.Decimal
	WalletAddress string
	TwoFactorCode string
}

var withdrawalEdges = map[model.WithdrawalStatus][]model.WithdrawalStatus{
	model.WithdrawalStatusPending:  {model.WithdrawalStatusApproved, model.WithdrawalStatusRejected},
	model.WithdrawalStatusApproved: {model.WithdrawalStatusCompleted},
}

func canMoveWithdrawal(from, to model.WithdrawalStatus) bool {
	for _, next := range withdrawalEdges[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s *Service) checkTwoFactor(code string) bool {
	if s.twoFactorCode == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(strings.TrimSpace(code)), []byte(s.twoFactorCode)) == 1
}

// CreateWithdrawal создаёт заявку на вывод и сразу резервирует сумму списанием из журнала.
// При любой ошибке ни заявка, ни запись журнала не создаются.
func (s *Service) CreateWithdrawal(ctx context.Context, req WithdrawalRequest) (*model.Withdrawal, error) {
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	wallet := strings.TrimSpace(req.WalletAddress)
	if !validation.IsValidWallet(wallet) {
		return nil, ErrInvalidWallet
	}
	if !s.checkTwoFactor(req.TwoFactorCode) {
		return nil, ErrInvalidTwoFactor
	}

	st, err := loadSettings(ctx, s.repo)
	if err != nil {
		return nil, err
	}
	if st.Maintenance {
		return nil, ErrMaintenance
	}
	if req.Amount.LessThan(st.MinWithdrawalAmount) {
		return nil, fmt.Errorf("%w: minimum is %s", ErrBelowMinimum, st.MinWithdrawalAmount.StringFixed(2))
	}
	calc := finance.CalculateWithdrawal(req.Amount, st)
	if !calc.NetAmount.IsPositive() {
		return nil, ErrNonPositiveNet
	}

	var w *model.Withdrawal
	err = s.repo.WithinTx(ctx, func(q repository.Querier) error {
		if err := q.LockUser(ctx, req.UserID); err != nil {
			return err
		}
		if _, err := ensureActiveUser(ctx, q, req.UserID); err != nil {
			return err
		}

		pending, err := q.HasPendingWithdrawal(ctx, req.UserID)
		if err != nil {
			return err
		}
		if pending {
			return ErrPendingWithdrawalExists
		}

		balance, err := q.SumTransactions(ctx, req.UserID)
		if err != nil {
			return err
		}
		if balance.LessThan(req.Amount) {
			return ErrInsufficientBalance
		}

		now := s.clock()
		w = &model.Withdrawal{
			ID:            uuid.New(),
			UserID:        req.UserID,
			Amount:        req.Amount,
			WalletAddress: wallet,
			Status:        model.WithdrawalStatusPending,
			ExitFee:       calc.ExitFee,
			NetworkFee:    calc.NetworkFee,
			NetAmount:     calc.NetAmount,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := q.CreateWithdrawal(ctx, w); err != nil {
			return err
		}
		return q.AddTransaction(ctx, &model.Transaction{
			ID:          uuid.New(),
			UserID:      req.UserID,
			Type:        model.TransactionTypeWithdrawalRequest,
			Amount:      req.Amount.Neg(),
			Status:      model.TransactionStatusCompleted,
			ReferenceID: &w.ID,
			Description: "Withdrawal request",
			CreatedAt:   now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("withdrawal requested",
		zap.String("withdrawalID", w.ID.String()),
		zap.String("userID", w.UserID.String()),
		zap.String("amount", w.Amount.String()),
	)
	return w, nil
}

// TransitionWithdrawal переводит заявку на вывод в новый статус.
// Одобрение повторно проверяет баланс, отказ возвращает зарезервированную сумму компенсирующей записью.
func (s *Service) TransitionWithdrawal(ctx context.Context, id uuid.UUID, target model.WithdrawalStatus, reason string) (Result, error) {
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

		w, err := q.LockWithdrawal(ctx, id)
		if err != nil {
			return err
		}
		if w.Status == target {
			res.Message = fmt.Sprintf("withdrawal is already %s", target)
			return nil
		}
		if !canMoveWithdrawal(w.Status, target) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, w.Status, target)
		}
		if err := q.LockUser(ctx, w.UserID); err != nil {
			return err
		}

		now := s.clock()
		switch target {
		case model.WithdrawalStatusApproved:
			// баланс уже включает резервирование, отрицательное значение означает перерасход
			balance, err := q.SumTransactions(ctx, w.UserID)
			if err != nil {
				return err
			}
			if balance.IsNegative() {
				return ErrInsufficientBalance
			}
		case model.WithdrawalStatusRejected:
			err := q.AddTransaction(ctx, &model.Transaction{
				ID:          uuid.New(),
				UserID:      w.UserID,
				Type:        model.TransactionTypeWithdrawalReversal,
				Amount:      w.Amount,
				Status:      model.TransactionStatusCompleted,
				ReferenceID: &w.ID,
				Description: "Withdrawal request rejected, funds returned",
				CreatedAt:   now,
			})
			if err != nil {
				return err
			}
		}

		storedReason := ""
		if target == model.WithdrawalStatusRejected {
			storedReason = reason
		}
		if err := q.UpdateWithdrawalStatus(ctx, w.ID, target, storedReason, now); err != nil {
			return err
		}

		notes = append(notes, withdrawalNotification(w, target, reason, now))
		res = Result{Changed: true, Message: fmt.Sprintf("withdrawal %s", target)}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	if res.Changed {
		s.logger.Info("withdrawal status changed",
			zap.String("withdrawalID", id.String()),
			zap.String("status", string(target)),
		)
		s.notifyAll(ctx, notes)
	}
	return res, nil
}

func withdrawalNotification(w *model.Withdrawal, target model.WithdrawalStatus, reason string, at time.Time) model.Notification {
	n := model.Notification{UserID: w.UserID, CreatedAt: at}
	switch target {
	case model.WithdrawalStatusApproved:
		n.Kind = "withdrawal_approved"
		n.Message = fmt.Sprintf("Your withdrawal of $%s was approved", w.Amount.StringFixed(2))
	case model.WithdrawalStatusRejected:
		n.Kind = "withdrawal_rejected"
		n.Message = fmt.Sprintf("Your withdrawal of $%s was rejected and returned to your balance", w.Amount.StringFixed(2))
		if reason != "" {
			n.Message += ": " + reason
		}
	case model.WithdrawalStatusCompleted:
		n.Kind = "withdrawal_completed"
		n.Message = fmt.Sprintf("$%s has been sent to %s", w.NetAmount.StringFixed(2), w.WalletAddress)
	}
	return n
}

// ListUserWithdrawals возвращает заявки пользователя.
func (s *Service) ListUserWithdrawals(ctx context.Context, userID uuid.UUID) ([]model.Withdrawal, error) {
	return s.repo.ListWithdrawalsByUser(ctx, userID)
}

// ListWithdrawalsByStatus возвращает заявки в статусе для панели администратора.
func (s *Service) ListWithdrawalsByStatus(ctx context.Context, status model.WithdrawalStatus) ([]model.Withdrawal, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	return s.repo.ListWithdrawalsByStatus(ctx, status)
}

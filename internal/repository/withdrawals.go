package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/fundvault/internal/model"
)

const withdrawalColumns = `id, user_id, amount, wallet_address, status, exit_fee, network_fee, net_amount,
	rejection_reason, created_at, updated_at`

func scanWithdrawal(row pgx.Row) (*model.Withdrawal, error) {
	var (
		w      model.Withdrawal
		status string
	)
	err := row.Scan(&w.ID, &w.UserID, &w.Amount, &w.WalletAddress, &status, &w.ExitFee, &w.NetworkFee,
		&w.NetAmount, &w.RejectionReason, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	w.Status = model.WithdrawalStatus(status)
	return &w, nil
}

func (q *queries) selectWithdrawals(ctx context.Context, sql string, args ...any) ([]model.Withdrawal, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("select withdrawals: %w", err)
	}
	defer rows.Close()

	var res []model.Withdrawal
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan withdrawal: %w", err)
		}
		res = append(res, *w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return res, nil
}

// CreateWithdrawal сохраняет заявку на вывод средств.
func (q *queries) CreateWithdrawal(ctx context.Context, w *model.Withdrawal) error {
	_, err := q.db.Exec(ctx,
		`INSERT INTO withdrawals (`+withdrawalColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		w.ID, w.UserID, w.Amount, w.WalletAddress, string(w.Status), w.ExitFee, w.NetworkFee,
		w.NetAmount, w.RejectionReason, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert withdrawal: %w", err)
	}
	return nil
}

// LockWithdrawal читает заявку с блокировкой строки до конца транзакции.
func (q *queries) LockWithdrawal(ctx context.Context, id uuid.UUID) (*model.Withdrawal, error) {
	w, err := scanWithdrawal(q.db.QueryRow(ctx,
		`SELECT `+withdrawalColumns+` FROM withdrawals WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWithdrawalNotFound
		}
		return nil, fmt.Errorf("lock withdrawal: %w", err)
	}
	return w, nil
}

// HasPendingWithdrawal сообщает, есть ли у пользователя необработанная заявка.
func (q *queries) HasPendingWithdrawal(ctx context.Context, userID uuid.UUID) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM withdrawals WHERE user_id = $1 AND status = $2)`,
		userID, string(model.WithdrawalStatusPending),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check pending withdrawal: %w", err)
	}
	return exists, nil
}

// UpdateWithdrawalStatus меняет статус заявки и причину отказа.
func (q *queries) UpdateWithdrawalStatus(ctx context.Context, id uuid.UUID, status model.WithdrawalStatus, reason string, at time.Time) error {
	tag, err := q.db.Exec(ctx,
		`UPDATE withdrawals SET status = $2, rejection_reason = $3, updated_at = $4 WHERE id = $1`,
		id, string(status), reason, at,
	)
	if err != nil {
		return fmt.Errorf("update withdrawal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrWithdrawalNotFound
	}
	return nil
}

// ListWithdrawalsByUser возвращает заявки пользователя, новые первыми.
func (q *queries) ListWithdrawalsByUser(ctx context.Context, userID uuid.UUID) ([]model.Withdrawal, error) {
	return q.selectWithdrawals(ctx,
		`SELECT `+withdrawalColumns+` FROM withdrawals WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
}

// ListWithdrawalsByStatus возвращает заявки в указанном статусе, старые первыми.
func (q *queries) ListWithdrawalsByStatus(ctx context.Context, status model.WithdrawalStatus) ([]model.Withdrawal, error) {
	return q.selectWithdrawals(ctx,
		`SELECT `+withdrawalColumns+` FROM withdrawals WHERE status = $1 ORDER BY created_at`,
		string(status),
	)
}

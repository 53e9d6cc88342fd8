package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/fundvault/internal/model"
)

const investmentColumns = `id, user_id, fund_id, amount, unit_price, amount_usd, net_amount_usd, fees_usd,
	transaction_hash, status, rejection_reason, created_at, updated_at`

func scanInvestment(row pgx.Row) (*model.Investment, error) {
	var (
		inv    model.Investment
		fund   string
		status string
	)
	err := row.Scan(&inv.ID, &inv.UserID, &fund, &inv.Amount, &inv.UnitPrice, &inv.AmountUSD,
		&inv.NetAmountUSD, &inv.FeesUSD, &inv.TransactionHash, &status, &inv.RejectionReason,
		&inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	inv.FundID = model.Fund(fund)
	inv.Status = model.InvestmentStatus(status)
	return &inv, nil
}

func (q *queries) selectInvestments(ctx context.Context, sql string, args ...any) ([]model.Investment, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("select investments: %w", err)
	}
	defer rows.Close()

	var res []model.Investment
	for rows.Next() {
		inv, err := scanInvestment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan investment: %w", err)
		}
		res = append(res, *inv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return res, nil
}

// CreateInvestment сохраняет новую инвестицию.
func (q *queries) CreateInvestment(ctx context.Context, inv *model.Investment) error {
	_, err := q.db.Exec(ctx,
		`INSERT INTO investments (`+investmentColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		inv.ID, inv.UserID, string(inv.FundID), inv.Amount, inv.UnitPrice, inv.AmountUSD,
		inv.NetAmountUSD, inv.FeesUSD, inv.TransactionHash, string(inv.Status), inv.RejectionReason,
		inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert investment: %w", err)
	}
	return nil
}

// GetInvestment возвращает инвестицию по идентификатору.
func (q *queries) GetInvestment(ctx context.Context, id uuid.UUID) (*model.Investment, error) {
	inv, err := scanInvestment(q.db.QueryRow(ctx, `SELECT `+investmentColumns+` FROM investments WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvestmentNotFound
		}
		return nil, fmt.Errorf("get investment: %w", err)
	}
	return inv, nil
}

// LockInvestment читает инвестицию с блокировкой строки до конца транзакции.
func (q *queries) LockInvestment(ctx context.Context, id uuid.UUID) (*model.Investment, error) {
	inv, err := scanInvestment(q.db.QueryRow(ctx,
		`SELECT `+investmentColumns+` FROM investments WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvestmentNotFound
		}
		return nil, fmt.Errorf("lock investment: %w", err)
	}
	return inv, nil
}

// UpdateInvestmentStatus меняет статус инвестиции и причину отказа.
func (q *queries) UpdateInvestmentStatus(ctx context.Context, id uuid.UUID, status model.InvestmentStatus, reason string, at time.Time) error {
	tag, err := q.db.Exec(ctx,
		`UPDATE investments SET status = $2, rejection_reason = $3, updated_at = $4 WHERE id = $1`,
		id, string(status), reason, at,
	)
	if err != nil {
		return fmt.Errorf("update investment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInvestmentNotFound
	}
	return nil
}

// ListInvestmentsByUser возвращает инвестиции пользователя, новые первыми.
func (q *queries) ListInvestmentsByUser(ctx context.Context, userID uuid.UUID) ([]model.Investment, error) {
	return q.selectInvestments(ctx,
		`SELECT `+investmentColumns+` FROM investments WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
}

// ListInvestmentsByStatus возвращает инвестиции в указанном статусе, старые первыми.
func (q *queries) ListInvestmentsByStatus(ctx context.Context, status model.InvestmentStatus) ([]model.Investment, error) {
	return q.selectInvestments(ctx,
		`SELECT `+investmentColumns+` FROM investments WHERE status = $1 ORDER BY created_at`,
		string(status),
	)
}

// CountApprovedInvestments возвращает число когда-либо одобренных инвестиций пользователя.
func (q *queries) CountApprovedInvestments(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM investments WHERE user_id = $1 AND status IN ($2, $3)`,
		userID, string(model.InvestmentStatusActive), string(model.InvestmentStatusCompleted),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count approved investments: %w", err)
	}
	return n, nil
}

// SumActiveNetInvestment возвращает сумму чистых вложений пользователя в активных инвестициях.
func (q *queries) SumActiveNetInvestment(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := q.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(net_amount_usd), 0) FROM investments WHERE user_id = $1 AND status = $2`,
		userID, string(model.InvestmentStatusActive),
	).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum active investments: %w", err)
	}
	return sum, nil
}

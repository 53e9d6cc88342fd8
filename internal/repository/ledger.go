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

// AddTransaction добавляет запись в журнал. Журнал только дописывается.
func (q *queries) AddTransaction(ctx context.Context, t *model.Transaction) error {
	_, err := q.db.Exec(ctx,
		`INSERT INTO transactions (id, user_id, type, amount, status, reference_id, description, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		t.ID, t.UserID, string(t.Type), t.Amount, t.Status, t.ReferenceID, t.Description, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// SumTransactions возвращает баланс кошелька как сумму всех записей журнала пользователя.
func (q *queries) SumTransactions(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := q.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE user_id = $1`,
		userID,
	).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum transactions: %w", err)
	}
	return sum, nil
}

// ListTransactionsByUser возвращает журнал пользователя, новые записи первыми.
func (q *queries) ListTransactionsByUser(ctx context.Context, userID uuid.UUID) ([]model.Transaction, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, user_id, type, amount, status, reference_id, description, created_at
		 FROM transactions
		 WHERE user_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select transactions: %w", err)
	}
	defer rows.Close()

	var res []model.Transaction
	for rows.Next() {
		var (
			t   model.Transaction
			typ string
		)
		if err := rows.Scan(&t.ID, &t.UserID, &typ, &t.Amount, &t.Status, &t.ReferenceID, &t.Description, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Type = model.TransactionType(typ)
		res = append(res, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return res, nil
}

// AddDailyFee сохраняет запись комиссионного дохода.
func (q *queries) AddDailyFee(ctx context.Context, f *model.DailyFee) error {
	_, err := q.db.Exec(ctx,
		`INSERT INTO daily_fees (id, type, amount, distributed, investment_id, fund_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		f.ID, string(f.Type), f.Amount, f.Distributed, f.InvestmentID, string(f.FundID), f.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert daily fee: %w", err)
	}
	return nil
}

// ListUndistributedFees возвращает нераспределённые комиссии указанного типа.
func (q *queries) ListUndistributedFees(ctx context.Context, feeType model.FeeType) ([]model.DailyFee, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, type, amount, distributed, investment_id, fund_id, created_at
		 FROM daily_fees
		 WHERE type = $1 AND NOT distributed
		 ORDER BY created_at`,
		string(feeType),
	)
	if err != nil {
		return nil, fmt.Errorf("select daily fees: %w", err)
	}
	defer rows.Close()

	var res []model.DailyFee
	for rows.Next() {
		var (
			f    model.DailyFee
			typ  string
			fund string
		)
		if err := rows.Scan(&f.ID, &typ, &f.Amount, &f.Distributed, &f.InvestmentID, &fund, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan daily fee: %w", err)
		}
		f.Type = model.FeeType(typ)
		f.FundID = model.Fund(fund)
		res = append(res, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return res, nil
}

// MarkFeesDistributed помечает комиссии распределёнными.
func (q *queries) MarkFeesDistributed(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := q.db.Exec(ctx, `UPDATE daily_fees SET distributed = TRUE WHERE id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("mark fees distributed: %w", err)
	}
	return nil
}

// CountBonuses возвращает общее число выданных бонусов.
func (q *queries) CountBonuses(ctx context.Context) (int64, error) {
	var n int64
	if err := q.db.QueryRow(ctx, `SELECT COUNT(*) FROM bonuses`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count bonuses: %w", err)
	}
	return n, nil
}

const bonusColumns = `id, user_id, amount, status, awarded_at, unlocked_at`

func scanBonus(row pgx.Row) (*model.Bonus, error) {
	var (
		b      model.Bonus
		status string
	)
	if err := row.Scan(&b.ID, &b.UserID, &b.Amount, &status, &b.AwardedAt, &b.UnlockedAt); err != nil {
		return nil, err
	}
	b.Status = model.BonusStatus(status)
	return &b, nil
}

// GetBonusByUser возвращает бонус пользователя.
func (q *queries) GetBonusByUser(ctx context.Context, userID uuid.UUID) (*model.Bonus, error) {
	b, err := scanBonus(q.db.QueryRow(ctx, `SELECT `+bonusColumns+` FROM bonuses WHERE user_id = $1`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBonusNotFound
		}
		return nil, fmt.Errorf("get bonus: %w", err)
	}
	return b, nil
}

// AddBonus сохраняет бонус. У пользователя может быть не более одного бонуса.
func (q *queries) AddBonus(ctx context.Context, b *model.Bonus) error {
	_, err := q.db.Exec(ctx,
		`INSERT INTO bonuses (`+bonusColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		b.ID, b.UserID, b.Amount, string(b.Status), b.AwardedAt, b.UnlockedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrBonusExists
		}
		return fmt.Errorf("insert bonus: %w", err)
	}
	return nil
}

// ListBonusesByStatus возвращает бонусы в указанном статусе.
func (q *queries) ListBonusesByStatus(ctx context.Context, status model.BonusStatus) ([]model.Bonus, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+bonusColumns+` FROM bonuses WHERE status = $1 ORDER BY awarded_at`,
		string(status),
	)
	if err != nil {
		return nil, fmt.Errorf("select bonuses: %w", err)
	}
	defer rows.Close()

	var res []model.Bonus
	for rows.Next() {
		b, err := scanBonus(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bonus: %w", err)
		}
		res = append(res, *b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return res, nil
}

// UnlockBonus переводит бонус в статус unlocked.
func (q *queries) UnlockBonus(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := q.db.Exec(ctx,
		`UPDATE bonuses SET status = $2, unlocked_at = $3 WHERE id = $1`,
		id, string(model.BonusStatusUnlocked), at,
	)
	if err != nil {
		return fmt.Errorf("unlock bonus: %w", err)
	}
	return nil
}

// AddCommission сохраняет реферальное вознаграждение.
func (q *queries) AddCommission(ctx context.Context, c *model.Commission) error {
	_, err := q.db.Exec(ctx,
		`INSERT INTO commissions (id, referrer_id, referred_user_id, investment_id, investment_amount, commission_amount, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.ReferrerID, c.ReferredUserID, c.InvestmentID, c.InvestmentAmount, c.CommissionAmount, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert commission: %w", err)
	}
	return nil
}

// ListCommissionsByReferrer возвращает вознаграждения реферера, новые первыми.
func (q *queries) ListCommissionsByReferrer(ctx context.Context, referrerID uuid.UUID) ([]model.Commission, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, referrer_id, referred_user_id, investment_id, investment_amount, commission_amount, created_at
		 FROM commissions
		 WHERE referrer_id = $1
		 ORDER BY created_at DESC`,
		referrerID,
	)
	if err != nil {
		return nil, fmt.Errorf("select commissions: %w", err)
	}
	defer rows.Close()

	var res []model.Commission
	for rows.Next() {
		var c model.Commission
		if err := rows.Scan(&c.ID, &c.ReferrerID, &c.ReferredUserID, &c.InvestmentID, &c.InvestmentAmount, &c.CommissionAmount, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan commission: %w", err)
		}
		res = append(res, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return res, nil
}

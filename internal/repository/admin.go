package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/fundvault/internal/model"
)

// GetSettings возвращает документ настроек платформы.
func (q *queries) GetSettings(ctx context.Context) (*model.PlatformSettings, error) {
	var s model.PlatformSettings
	err := q.db.QueryRow(ctx,
		`SELECT entry_fee_percent, lottery_fee_percent, platform_fee_percent, exit_fee_percent,
		        network_fee, min_withdrawal_amount, withdrawal_day, maintenance,
		        bonus_amount, bonus_cap, bonus_unlock_target, wallet_addresses, updated_at
		 FROM platform_settings
		 WHERE id = 1`,
	).Scan(&s.EntryFeePercent, &s.LotteryFeePercent, &s.PlatformFeePercent, &s.ExitFeePercent,
		&s.NetworkFee, &s.MinWithdrawalAmount, &s.WithdrawalDay, &s.Maintenance,
		&s.BonusAmount, &s.BonusCap, &s.BonusUnlockTarget, &s.WalletAddresses, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSettingsNotFound
		}
		return nil, fmt.Errorf("get settings: %w", err)
	}
	if s.WalletAddresses == nil {
		s.WalletAddresses = map[model.Fund]string{}
	}
	return &s, nil
}

// SaveSettings создаёт или перезаписывает документ настроек.
func (q *queries) SaveSettings(ctx context.Context, s model.PlatformSettings) error {
	wallets := s.WalletAddresses
	if wallets == nil {
		wallets = map[model.Fund]string{}
	}

	_, err := q.db.Exec(ctx,
		`INSERT INTO platform_settings (id, entry_fee_percent, lottery_fee_percent, platform_fee_percent,
		        exit_fee_percent, network_fee, min_withdrawal_amount, withdrawal_day, maintenance,
		        bonus_amount, bonus_cap, bonus_unlock_target, wallet_addresses, updated_at)
		 VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 ON CONFLICT (id) DO UPDATE SET
		        entry_fee_percent = EXCLUDED.entry_fee_percent,
		        lottery_fee_percent = EXCLUDED.lottery_fee_percent,
		        platform_fee_percent = EXCLUDED.platform_fee_percent,
		        exit_fee_percent = EXCLUDED.exit_fee_percent,
		        network_fee = EXCLUDED.network_fee,
		        min_withdrawal_amount = EXCLUDED.min_withdrawal_amount,
		        withdrawal_day = EXCLUDED.withdrawal_day,
		        maintenance = EXCLUDED.maintenance,
		        bonus_amount = EXCLUDED.bonus_amount,
		        bonus_cap = EXCLUDED.bonus_cap,
		        bonus_unlock_target = EXCLUDED.bonus_unlock_target,
		        wallet_addresses = EXCLUDED.wallet_addresses,
		        updated_at = EXCLUDED.updated_at`,
		s.EntryFeePercent, s.LotteryFeePercent, s.PlatformFeePercent, s.ExitFeePercent,
		s.NetworkFee, s.MinWithdrawalAmount, s.WithdrawalDay, s.Maintenance,
		s.BonusAmount, s.BonusCap, s.BonusUnlockTarget, wallets, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// AddProfitDistribution сохраняет запись о запуске распределения прибыли.
func (q *queries) AddProfitDistribution(ctx context.Context, d *model.ProfitDistribution) error {
	_, err := q.db.Exec(ctx,
		`INSERT INTO profit_distributions (id, pool, base, investors, created_at) VALUES ($1, $2, $3, $4, $5)`,
		d.ID, d.Pool, d.Base, d.Investors, d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert profit distribution: %w", err)
	}
	return nil
}

// AddLotteryWinner сохраняет итог розыгрыша.
func (q *queries) AddLotteryWinner(ctx context.Context, w *model.LotteryWinner) error {
	_, err := q.db.Exec(ctx,
		`INSERT INTO lottery_winners (id, user_id, prize, tickets, total_tickets, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		w.ID, w.UserID, w.Prize, w.Tickets, w.TotalTickets, w.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert lottery winner: %w", err)
	}
	return nil
}

// ListLotteryWinners возвращает последних победителей лотереи.
func (q *queries) ListLotteryWinners(ctx context.Context, limit int) ([]model.LotteryWinner, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, user_id, prize, tickets, total_tickets, created_at
		 FROM lottery_winners
		 ORDER BY created_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select lottery winners: %w", err)
	}
	defer rows.Close()

	var res []model.LotteryWinner
	for rows.Next() {
		var w model.LotteryWinner
		if err := rows.Scan(&w.ID, &w.UserID, &w.Prize, &w.Tickets, &w.TotalTickets, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan lottery winner: %w", err)
		}
		res = append(res, w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return res, nil
}

// AcquireJobLock берёт транзакционную advisory-блокировку по имени задачи.
// Блокировка снимается при завершении транзакции, поэтому вызывать её имеет смысл только внутри WithinTx.
func (q *queries) AcquireJobLock(ctx context.Context, job string) error {
	if _, err := q.db.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, job); err != nil {
		return fmt.Errorf("acquire job lock %s: %w", job, err)
	}
	return nil
}

// GetPlatformStats собирает агрегаты для панели администратора.
func (q *queries) GetPlatformStats(ctx context.Context) (*model.PlatformStats, error) {
	st := model.PlatformStats{UndistributedFees: map[model.FeeType]decimal.Decimal{}}

	err := q.db.QueryRow(ctx,
		`SELECT
		    (SELECT COUNT(*) FROM users),
		    (SELECT COALESCE(SUM(net_amount_usd), 0) FROM investments WHERE status = $1),
		    (SELECT COUNT(*) FROM investments WHERE status = $2),
		    (SELECT COUNT(*) FROM withdrawals WHERE status = $3),
		    (SELECT COUNT(*) FROM bonuses WHERE status = $4),
		    (SELECT COALESCE(SUM(amount), 0) FROM transactions)`,
		string(model.InvestmentStatusActive),
		string(model.InvestmentStatusPending),
		string(model.WithdrawalStatusPending),
		string(model.BonusStatusLocked),
	).Scan(&st.Users, &st.ActiveInvestmentUSD, &st.PendingInvestments, &st.PendingWithdrawals,
		&st.LockedBonuses, &st.TotalLedgerBalanceUSD)
	if err != nil {
		return nil, fmt.Errorf("select stats: %w", err)
	}

	rows, err := q.db.Query(ctx,
		`SELECT type, COALESCE(SUM(amount), 0) FROM daily_fees WHERE NOT distributed GROUP BY type`)
	if err != nil {
		return nil, fmt.Errorf("select undistributed fees: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			typ string
			sum decimal.Decimal
		)
		if err := rows.Scan(&typ, &sum); err != nil {
			return nil, fmt.Errorf("scan fee total: %w", err)
		}
		st.UndistributedFees[model.FeeType(typ)] = sum
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return &st, nil
}

// ClearTestData удаляет все бизнес-данные и всех пользователей, кроме keepUserID.
func (q *queries) ClearTestData(ctx context.Context, keepUserID uuid.UUID) error {
	statements := []string{
		`DELETE FROM lottery_winners`,
		`DELETE FROM profit_distributions`,
		`DELETE FROM daily_fees`,
		`DELETE FROM commissions`,
		`DELETE FROM bonuses`,
		`DELETE FROM withdrawals`,
		`DELETE FROM transactions`,
		`DELETE FROM investments`,
		`DELETE FROM login_history WHERE user_id <> $1`,
		`UPDATE users SET referred_by = NULL WHERE id = $1`,
		`DELETE FROM users WHERE id <> $1`,
	}

	for _, stmt := range statements {
		var err error
		if strings.Contains(stmt, "$1") {
			_, err = q.db.Exec(ctx, stmt, keepUserID)
		} else {
			_, err = q.db.Exec(ctx, stmt)
		}
		if err != nil {
			return fmt.Errorf("clear test data: %w", err)
		}
	}
	return nil
}

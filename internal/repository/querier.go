package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/fundvault/internal/model"
)

// Querier описывает операции хранилища. Одна и та же реализация работает и с пулом,
// и с транзакцией, открытой через WithinTx.
type Querier interface {
	CreateUser(ctx context.Context, u *model.User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	LockUser(ctx context.Context, id uuid.UUID) error
	ListUsers(ctx context.Context) ([]model.User, error)
	UpdateUserStatus(ctx context.Context, id uuid.UUID, status model.UserStatus) error
	UpdateUserName(ctx context.Context, id uuid.UUID, name string) error
	AddLoginRecord(ctx context.Context, rec model.LoginRecord) error

	GetSettings(ctx context.Context) (*model.PlatformSettings, error)
	SaveSettings(ctx context.Context, s model.PlatformSettings) error

	CreateInvestment(ctx context.Context, inv *model.Investment) error
	GetInvestment(ctx context.Context, id uuid.UUID) (*model.Investment, error)
	LockInvestment(ctx context.Context, id uuid.UUID) (*model.Investment, error)
	UpdateInvestmentStatus(ctx context.Context, id uuid.UUID, status model.InvestmentStatus, reason string, at time.Time) error
	ListInvestmentsByUser(ctx context.Context, userID uuid.UUID) ([]model.Investment, error)
	ListInvestmentsByStatus(ctx context.Context, status model.InvestmentStatus) ([]model.Investment, error)
	CountApprovedInvestments(ctx context.Context, userID uuid.UUID) (int64, error)
	SumActiveNetInvestment(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)

	AddTransaction(ctx context.Context, t *model.Transaction) error
	SumTransactions(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
	ListTransactionsByUser(ctx context.Context, userID uuid.UUID) ([]model.Transaction, error)

	AddDailyFee(ctx context.Context, f *model.DailyFee) error
	ListUndistributedFees(ctx context.Context, feeType model.FeeType) ([]model.DailyFee, error)
	MarkFeesDistributed(ctx context.Context, ids []uuid.UUID) error

	CountBonuses(ctx context.Context) (int64, error)
	GetBonusByUser(ctx context.Context, userID uuid.UUID) (*model.Bonus, error)
	AddBonus(ctx context.Context, b *model.Bonus) error
	ListBonusesByStatus(ctx context.Context, status model.BonusStatus) ([]model.Bonus, error)
	UnlockBonus(ctx context.Context, id uuid.UUID, at time.Time) error

	AddCommission(ctx context.Context, c *model.Commission) error
	ListCommissionsByReferrer(ctx context.Context, referrerID uuid.UUID) ([]model.Commission, error)

	CreateWithdrawal(ctx context.Context, w *model.Withdrawal) error
	LockWithdrawal(ctx context.Context, id uuid.UUID) (*model.Withdrawal, error)
	HasPendingWithdrawal(ctx context.Context, userID uuid.UUID) (bool, error)
	UpdateWithdrawalStatus(ctx context.Context, id uuid.UUID, status model.WithdrawalStatus, reason string, at time.Time) error
	ListWithdrawalsByUser(ctx context.Context, userID uuid.UUID) ([]model.Withdrawal, error)
	ListWithdrawalsByStatus(ctx context.Context, status model.WithdrawalStatus) ([]model.Withdrawal, error)

	AddProfitDistribution(ctx context.Context, d *model.ProfitDistribution) error
	AddLotteryWinner(ctx context.Context, w *model.LotteryWinner) error
	ListLotteryWinners(ctx context.Context, limit int) ([]model.LotteryWinner, error)

	AcquireJobLock(ctx context.Context, job string) error
	GetPlatformStats(ctx context.Context) (*model.PlatformStats, error)
	ClearTestData(ctx context.Context, keepUserID uuid.UUID) error
}

var _ Querier = (*queries)(nil)

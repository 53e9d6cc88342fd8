// Package model содержит доменные сущности инвестиционной платформы fundvault.
package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Role описывает роль пользователя.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// UserStatus описывает статус учётной записи.
type UserStatus string

const (
	UserStatusActive  UserStatus = "active"
	UserStatusBlocked UserStatus = "blocked"
)

// User представляет зарегистрированного пользователя платформы.
type User struct {
	ID           uuid.UUID
	Email        string
	Name         string
	PasswordHash []byte
	Role         Role
	Status       UserStatus
	ReferredBy   *uuid.UUID
	CreatedAt    time.Time
}

// IsAdmin сообщает, является ли пользователь администратором.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// LoginRecord описывает запись истории входов.
type LoginRecord struct {
	UserID    uuid.UUID
	IP        string
	UserAgent string
	CreatedAt time.Time
}

// Fund идентифицирует один из четырёх инвестиционных фондов.
type Fund string

const (
	FundGold    Fund = "gold"
	FundSilver  Fund = "silver"
	FundDollar  Fund = "dollar"
	FundBitcoin Fund = "bitcoin"
)

// Funds перечисляет все фонды платформы.
var Funds = []Fund{FundGold, FundSilver, FundDollar, FundBitcoin}

// Valid проверяет, что идентификатор фонда известен.
func (f Fund) Valid() bool {
	for _, known := range Funds {
		if f == known {
			return true
		}
	}
	return false
}

// InvestmentStatus описывает статус инвестиции.
type InvestmentStatus string

const (
	InvestmentStatusPending   InvestmentStatus = "pending"
	InvestmentStatusActive    InvestmentStatus = "active"
	InvestmentStatusRejected  InvestmentStatus = "rejected"
	InvestmentStatusCompleted InvestmentStatus = "completed"
)

// Valid проверяет, что статус инвестиции известен.
func (s InvestmentStatus) Valid() bool {
	switch s {
	case InvestmentStatusPending, InvestmentStatusActive, InvestmentStatusRejected, InvestmentStatusCompleted:
		return true
	}
	return false
}

// Investment описывает вложение пользователя в один из фондов.
type Investment struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	FundID          Fund
	Amount          decimal.Decimal
	UnitPrice       decimal.Decimal
	AmountUSD       decimal.Decimal
	NetAmountUSD    decimal.Decimal
	FeesUSD         decimal.Decimal
	TransactionHash string
	Status          InvestmentStatus
	RejectionReason string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TransactionType описывает тип записи журнала.
type TransactionType string

const (
	TransactionTypeInvestment         TransactionType = "investment"
	TransactionTypeWithdrawalRequest  TransactionType = "withdrawal_request"
	TransactionTypeWithdrawalReversal TransactionType = "withdrawal_reversal"
	TransactionTypeProfitPayout       TransactionType = "profit_payout"
	TransactionTypeCommission         TransactionType = "commission"
	TransactionTypePrincipalReturn    TransactionType = "principal_return"
	TransactionTypeBonus              TransactionType = "bonus"
	TransactionTypeLotteryPrize       TransactionType = "lottery_prize"
)

// TransactionStatusCompleted является единственным статусом, с которым пишутся записи журнала.
const TransactionStatusCompleted = "completed"

// Transaction описывает запись журнала со знаковой суммой. Баланс кошелька равен сумме записей пользователя.
type Transaction struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Type        TransactionType
	Amount      decimal.Decimal
	Status      string
	ReferenceID *uuid.UUID
	Description string
	CreatedAt   time.Time
}

// WithdrawalStatus описывает статус заявки на вывод.
type WithdrawalStatus string

const (
	WithdrawalStatusPending   WithdrawalStatus = "pending"
	WithdrawalStatusApproved  WithdrawalStatus = "approved"
	WithdrawalStatusRejected  WithdrawalStatus = "rejected"
	WithdrawalStatusCompleted WithdrawalStatus = "completed"
)

// Valid проверяет, что статус заявки известен.
func (s WithdrawalStatus) Valid() bool {
	switch s {
	case WithdrawalStatusPending, WithdrawalStatusApproved, WithdrawalStatusRejected, WithdrawalStatusCompleted:
		return true
	}
	return false
}

// Withdrawal описывает заявку на вывод средств.
type Withdrawal struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	Amount          decimal.Decimal
	WalletAddress   string
	Status          WithdrawalStatus
	ExitFee         decimal.Decimal
	NetworkFee      decimal.Decimal
	NetAmount       decimal.Decimal
	RejectionReason string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Commission описывает реферальное вознаграждение.
type Commission struct {
	ID               uuid.UUID
	ReferrerID       uuid.UUID
	ReferredUserID   uuid.UUID
	InvestmentID     uuid.UUID
	InvestmentAmount decimal.Decimal
	CommissionAmount decimal.Decimal
	CreatedAt        time.Time
}

// BonusStatus описывает статус бонуса.
type BonusStatus string

const (
	BonusStatusLocked   BonusStatus = "locked"
	BonusStatusUnlocked BonusStatus = "unlocked"
)

// Bonus описывает разовый приветственный бонус пользователя.
type Bonus struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	Amount     decimal.Decimal
	Status     BonusStatus
	AwardedAt  time.Time
	UnlockedAt *time.Time
}

// FeeType описывает вид комиссионного дохода.
type FeeType string

const (
	FeeTypeEntry    FeeType = "entry_fee"
	FeeTypeLottery  FeeType = "lottery_fee"
	FeeTypePlatform FeeType = "platform_fee"
)

// DailyFee описывает запись комиссионного дохода, созданную при одобрении инвестиции.
type DailyFee struct {
	ID           uuid.UUID
	Type         FeeType
	Amount       decimal.Decimal
	Distributed  bool
	InvestmentID uuid.UUID
	FundID       Fund
	CreatedAt    time.Time
}

// ProfitDistribution описывает один запуск распределения прибыли.
type ProfitDistribution struct {
	ID        uuid.UUID
	Pool      decimal.Decimal
	Base      decimal.Decimal
	Investors int
	CreatedAt time.Time
}

// LotteryWinner описывает итог розыгрыша лотереи.
type LotteryWinner struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	Prize        decimal.Decimal
	Tickets      int64
	TotalTickets int64
	CreatedAt    time.Time
}

// Balance содержит производные балансы пользователя.
type Balance struct {
	Withdrawable     decimal.Decimal
	ActiveInvestment decimal.Decimal
	Total            decimal.Decimal
}

// Dashboard содержит сводку личного кабинета пользователя.
type Dashboard struct {
	Balance           Balance
	Tickets           int64
	Bonus             *Bonus
	PendingWithdrawal bool
}

// PlatformStats содержит сводку для панели администратора.
type PlatformStats struct {
	Users                 int64
	ActiveInvestmentUSD   decimal.Decimal
	PendingInvestments    int64
	PendingWithdrawals    int64
	UndistributedFees     map[FeeType]decimal.Decimal
	LockedBonuses         int64
	TotalLedgerBalanceUSD decimal.Decimal
}

// Notification описывает уведомление пользователя о событии на платформе.
type Notification struct {
	UserID    uuid.UUID `json:"user_id"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

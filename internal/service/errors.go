package service

import "errors"

// Ошибки валидации входных данных.
var (
	ErrInvalidAmount           = errors.New("amount must be positive")
	ErrInvalidFund             = errors.New("unknown fund")
	ErrInvalidTxHash           = errors.New("transaction hash is required")
	ErrInvalidWallet           = errors.New("invalid wallet address")
	ErrInvalidStatus           = errors.New("unknown status")
	ErrInvalidSettings         = errors.New("invalid platform settings")
	ErrRejectionReasonRequired = errors.New("rejection reason is required")
	ErrWeakPassword            = errors.New("password must be at least 8 characters")
)

// Нарушения бизнес-правил.
var (
	ErrInvalidCredentials      = errors.New("invalid credentials")
	ErrUserBlocked             = errors.New("user is blocked")
	ErrUnknownReferrer         = errors.New("unknown referral code")
	ErrForbidden               = errors.New("operation not permitted")
	ErrMaintenance             = errors.New("platform is under maintenance")
	ErrInvalidTransition       = errors.New("status transition not allowed")
	ErrInvalidTwoFactor        = errors.New("invalid two-factor code")
	ErrPendingWithdrawalExists = errors.New("a pending withdrawal already exists")
	ErrBelowMinimum            = errors.New("amount is below the minimum withdrawal")
	ErrNonPositiveNet          = errors.New("net amount after fees must be positive")
	ErrInsufficientBalance     = errors.New("insufficient balance")
)

// ErrPriceUnavailable оборачивает любую ошибку получения цены фонда.
var ErrPriceUnavailable = errors.New("price unavailable")

package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PlatformSettings содержит единственный документ настроек платформы.
type PlatformSettings struct {
	EntryFeePercent    decimal.Decimal
	LotteryFeePercent  decimal.Decimal
	PlatformFeePercent decimal.Decimal
	ExitFeePercent     decimal.Decimal
	// NetworkFee задаётся фиксированной суммой в долларах, не процентом.
	NetworkFee          decimal.Decimal
	MinWithdrawalAmount decimal.Decimal
	WithdrawalDay       string
	Maintenance         bool
	BonusAmount         decimal.Decimal
	BonusCap            int64
	BonusUnlockTarget   decimal.Decimal
	WalletAddresses     map[Fund]string
	UpdatedAt           time.Time
}

// DefaultSettings возвращает настройки, действующие до первого сохранения администратором.
func DefaultSettings() PlatformSettings {
	return PlatformSettings{
		EntryFeePercent:     decimal.NewFromInt(3),
		LotteryFeePercent:   decimal.NewFromInt(2),
		PlatformFeePercent:  decimal.NewFromInt(1),
		ExitFeePercent:      decimal.NewFromInt(2),
		NetworkFee:          decimal.NewFromInt(1),
		MinWithdrawalAmount: decimal.NewFromInt(10),
		WithdrawalDay:       "saturday",
		BonusAmount:         decimal.NewFromInt(10),
		BonusCap:            100,
		BonusUnlockTarget:   decimal.NewFromInt(100),
		WalletAddresses:     map[Fund]string{},
	}
}

var weekdays = []string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

// IsWeekday проверяет, что строка является названием дня недели на английском.
func IsWeekday(day string) bool {
	day = strings.ToLower(strings.TrimSpace(day))
	for _, d := range weekdays {
		if d == day {
			return true
		}
	}
	return false
}

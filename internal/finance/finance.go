// Package finance содержит чистые денежные расчёты платформы: комиссии, вывод,
// реферальные начисления, распределение прибыли и лотерейные билеты.
package finance

import (
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/fundvault/internal/model"
)

var (
	hundred = decimal.NewFromInt(100)
	// commissionDivisor = 3 * 100: две трети процента входной комиссии.
	commissionDivisor = decimal.NewFromInt(300)
	two               = decimal.NewFromInt(2)
)

// FeeBreakdown содержит комиссии, удержанные при вложении, и чистую сумму.
type FeeBreakdown struct {
	EntryFee    decimal.Decimal
	LotteryFee  decimal.Decimal
	PlatformFee decimal.Decimal
	TotalFees   decimal.Decimal
	NetAmount   decimal.Decimal
}

// CalculateFees раскладывает валовую сумму на комиссии и чистую сумму по текущим процентам.
func CalculateFees(amount decimal.Decimal, s model.PlatformSettings) FeeBreakdown {
	entry := percentOf(amount, s.EntryFeePercent)
	lottery := percentOf(amount, s.LotteryFeePercent)
	platform := percentOf(amount, s.PlatformFeePercent)
	total := entry.Add(lottery).Add(platform)

	return FeeBreakdown{
		EntryFee:    entry,
		LotteryFee:  lottery,
		PlatformFee: platform,
		TotalFees:   total,
		NetAmount:   amount.Sub(total),
	}
}

// WithdrawalBreakdown содержит удержания при выводе средств.
type WithdrawalBreakdown struct {
	ExitFee    decimal.Decimal
	NetworkFee decimal.Decimal
	NetAmount  decimal.Decimal
}

// CalculateWithdrawal считает комиссию выхода (процент) и сетевую комиссию (фиксированная сумма).
func CalculateWithdrawal(amount decimal.Decimal, s model.PlatformSettings) WithdrawalBreakdown {
	exit := percentOf(amount, s.ExitFeePercent)
	return WithdrawalBreakdown{
		ExitFee:    exit,
		NetworkFee: s.NetworkFee,
		NetAmount:  amount.Sub(exit).Sub(s.NetworkFee),
	}
}

// ReferralCommission возвращает вознаграждение реферера: amountUSD × (entryFee% × 2/3) / 100.
func ReferralCommission(amountUSD decimal.Decimal, s model.PlatformSettings) decimal.Decimal {
	return amountUSD.Mul(s.EntryFeePercent).Mul(two).Div(commissionDivisor)
}

func percentOf(amount, percent decimal.Decimal) decimal.Decimal {
	return amount.Mul(percent).Div(hundred)
}

// ValidPercent проверяет, что процент лежит в диапазоне [0, 100].
func ValidPercent(p decimal.Decimal) bool {
	return !p.IsNegative() && p.LessThanOrEqual(hundred)
}

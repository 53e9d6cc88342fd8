package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/fundvault/internal/finance"
	"github.com/mmeshcher/fundvault/internal/model"
	"github.com/mmeshcher/fundvault/internal/validation"
)

// PublicSettings содержит часть настроек, видимую без авторизации: проценты комиссий и адреса для пополнения.
type PublicSettings struct {
	EntryFeePercent     decimal.Decimal
	LotteryFeePercent   decimal.Decimal
	PlatformFeePercent  decimal.Decimal
	ExitFeePercent      decimal.Decimal
	NetworkFee          decimal.Decimal
	MinWithdrawalAmount decimal.Decimal
	WithdrawalDay       string
	Maintenance         bool
	WalletAddresses     map[model.Fund]string
}

// GetSettings возвращает текущие настройки платформы.
func (s *Service) GetSettings(ctx context.Context) (model.PlatformSettings, error) {
	return loadSettings(ctx, s.repo)
}

// GetPublicSettings возвращает публичную часть настроек.
func (s *Service) GetPublicSettings(ctx context.Context) (PublicSettings, error) {
	st, err := loadSettings(ctx, s.repo)
	if err != nil {
		return PublicSettings{}, err
	}
	return PublicSettings{
		EntryFeePercent:     st.EntryFeePercent,
		LotteryFeePercent:   st.LotteryFeePercent,
		PlatformFeePercent:  st.PlatformFeePercent,
		ExitFeePercent:      st.ExitFeePercent,
		NetworkFee:          st.NetworkFee,
		MinWithdrawalAmount: st.MinWithdrawalAmount,
		WithdrawalDay:       st.WithdrawalDay,
		Maintenance:         st.Maintenance,
		WalletAddresses:     st.WalletAddresses,
	}, nil
}

// UpdateSettings проверяет и сохраняет настройки платформы.
func (s *Service) UpdateSettings(ctx context.Context, st model.PlatformSettings) (model.PlatformSettings, error) {
	st.WithdrawalDay = strings.ToLower(strings.TrimSpace(st.WithdrawalDay))
	if st.WalletAddresses == nil {
		st.WalletAddresses = map[model.Fund]string{}
	}
	if err := validateSettings(st); err != nil {
		return model.PlatformSettings{}, err
	}

	st.UpdatedAt = s.clock()
	if err := s.repo.SaveSettings(ctx, st); err != nil {
		return model.PlatformSettings{}, err
	}

	s.logger.Info("platform settings updated",
		zap.String("entryFee", st.EntryFeePercent.String()),
		zap.String("exitFee", st.ExitFeePercent.String()),
		zap.Bool("maintenance", st.Maintenance),
	)
	return st, nil
}

func validateSettings(st model.PlatformSettings) error {
	percents := []struct {
		name  string
		value decimal.Decimal
	}{
		{"entry fee", st.EntryFeePercent},
		{"lottery fee", st.LotteryFeePercent},
		{"platform fee", st.PlatformFeePercent},
		{"exit fee", st.ExitFeePercent},
	}
	for _, p := range percents {
		if !finance.ValidPercent(p.value) {
			return fmt.Errorf("%w: %s must be between 0 and 100", ErrInvalidSettings, p.name)
		}
	}

	total := st.EntryFeePercent.Add(st.LotteryFeePercent).Add(st.PlatformFeePercent)
	if total.GreaterThanOrEqual(decimal.NewFromInt(100)) {
		return fmt.Errorf("%w: investment fees must total less than 100", ErrInvalidSettings)
	}
	if st.NetworkFee.IsNegative() {
		return fmt.Errorf("%w: network fee must not be negative", ErrInvalidSettings)
	}
	if st.MinWithdrawalAmount.IsNegative() {
		return fmt.Errorf("%w: minimum withdrawal must not be negative", ErrInvalidSettings)
	}
	if st.BonusAmount.IsNegative() || st.BonusCap < 0 || st.BonusUnlockTarget.IsNegative() {
		return fmt.Errorf("%w: bonus parameters must not be negative", ErrInvalidSettings)
	}
	if !model.IsWeekday(st.WithdrawalDay) {
		return fmt.Errorf("%w: withdrawal day must be a weekday name", ErrInvalidSettings)
	}
	for fund, addr := range st.WalletAddresses {
		if !fund.Valid() {
			return fmt.Errorf("%w: unknown fund %q", ErrInvalidSettings, fund)
		}
		if addr != "" && !validation.IsValidWallet(addr) {
			return fmt.Errorf("%w: invalid wallet address for %s", ErrInvalidSettings, fund)
		}
	}
	return nil
}

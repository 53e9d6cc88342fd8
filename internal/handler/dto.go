package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/fundvault/internal/model"
	"github.com/mmeshcher/fundvault/internal/service"
)

type registerRequest struct {
	Email        string `json:"email" validate:"required,email,max=255"`
	Name         string `json:"name" validate:"required,max=100"`
	Password     string `json:"password" validate:"required,min=8,max=72"`
	ReferralCode string `json:"referral_code" validate:"omitempty,uuid"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type profileRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

type investmentRequest struct {
	Fund            string          `json:"fund" validate:"required,fund"`
	Amount          decimal.Decimal `json:"amount" validate:"gt=0"`
	TransactionHash string          `json:"transaction_hash" validate:"required,txhash"`
}

type withdrawalRequest struct {
	Amount        decimal.Decimal `json:"amount" validate:"gt=0"`
	WalletAddress string          `json:"wallet_address" validate:"required,wallet"`
	TwoFactorCode string          `json:"two_factor_code" validate:"required"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
	Reason string `json:"reason" validate:"max=500"`
}

type userStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active blocked"`
}

type settingsRequest struct {
	EntryFeePercent     decimal.Decimal       `json:"entry_fee_percent" validate:"gte=0,lte=100"`
	LotteryFeePercent   decimal.Decimal       `json:"lottery_fee_percent" validate:"gte=0,lte=100"`
	PlatformFeePercent  decimal.Decimal       `json:"platform_fee_percent" validate:"gte=0,lte=100"`
	ExitFeePercent      decimal.Decimal       `json:"exit_fee_percent" validate:"gte=0,lte=100"`
	NetworkFee          decimal.Decimal       `json:"network_fee" validate:"gte=0"`
	MinWithdrawalAmount decimal.Decimal       `json:"min_withdrawal_amount" validate:"gte=0"`
	WithdrawalDay       string                `json:"withdrawal_day" validate:"required,weekday"`
	Maintenance         bool                  `json:"maintenance"`
	BonusAmount         decimal.Decimal       `json:"bonus_amount" validate:"gte=0"`
	BonusCap            int64                 `json:"bonus_cap" validate:"gte=0"`
	BonusUnlockTarget   decimal.Decimal       `json:"bonus_unlock_target" validate:"gte=0"`
	WalletAddresses     map[model.Fund]string `json:"wallet_addresses"`
}

func (r settingsRequest) toModel() model.PlatformSettings {
	return model.PlatformSettings{
		EntryFeePercent:     r.EntryFeePercent,
		LotteryFeePercent:   r.LotteryFeePercent,
		PlatformFeePercent:  r.PlatformFeePercent,
		ExitFeePercent:      r.ExitFeePercent,
		NetworkFee:          r.NetworkFee,
		MinWithdrawalAmount: r.MinWithdrawalAmount,
		WithdrawalDay:       r.WithdrawalDay,
		Maintenance:         r.Maintenance,
		BonusAmount:         r.BonusAmount,
		BonusCap:            r.BonusCap,
		BonusUnlockTarget:   r.BonusUnlockTarget,
		WalletAddresses:     r.WalletAddresses,
	}
}

type userResponse struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	Role         string `json:"role"`
	Status       string `json:"status"`
	ReferralCode string `json:"referral_code"`
	ReferredBy   string `json:"referred_by,omitempty"`
	CreatedAt    string `json:"created_at"`
}

func newUserResponse(u *model.User) userResponse {
	resp := userResponse{
		ID:           u.ID.String(),
		Email:        u.Email,
		Name:         u.Name,
		Role:         string(u.Role),
		Status:       string(u.Status),
		ReferralCode: u.ID.String(),
		CreatedAt:    u.CreatedAt.Format(time.RFC3339),
	}
	if u.ReferredBy != nil {
		resp.ReferredBy = u.ReferredBy.String()
	}
	return resp
}

type authResponse struct {
	User  userResponse `json:"user"`
	Token string       `json:"token"`
}

type investmentResponse struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	Fund            string          `json:"fund"`
	Amount          decimal.Decimal `json:"amount"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	AmountUSD       decimal.Decimal `json:"amount_usd"`
	NetAmountUSD    decimal.Decimal `json:"net_amount_usd"`
	FeesUSD         decimal.Decimal `json:"fees_usd"`
	TransactionHash string          `json:"transaction_hash"`
	Status          string          `json:"status"`
	RejectionReason string          `json:"rejection_reason,omitempty"`
	CreatedAt       string          `json:"created_at"`
	UpdatedAt       string          `json:"updated_at"`
}

func newInvestmentResponse(inv *model.Investment) investmentResponse {
	return investmentResponse{
		ID:              inv.ID.String(),
		UserID:          inv.UserID.String(),
		Fund:            string(inv.FundID),
		Amount:          inv.Amount,
		UnitPrice:       inv.UnitPrice,
		AmountUSD:       inv.AmountUSD,
		NetAmountUSD:    inv.NetAmountUSD,
		FeesUSD:         inv.FeesUSD,
		TransactionHash: inv.TransactionHash,
		Status:          string(inv.Status),
		RejectionReason: inv.RejectionReason,
		CreatedAt:       inv.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       inv.UpdatedAt.Format(time.RFC3339),
	}
}

func newInvestmentList(items []model.Investment) []investmentResponse {
	resp := make([]investmentResponse, 0, len(items))
	for i := range items {
		resp = append(resp, newInvestmentResponse(&items[i]))
	}
	return resp
}

type withdrawalResponse struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	Amount          decimal.Decimal `json:"amount"`
	WalletAddress   string          `json:"wallet_address"`
	Status          string          `json:"status"`
	ExitFee         decimal.Decimal `json:"exit_fee"`
	NetworkFee      decimal.Decimal `json:"network_fee"`
	NetAmount       decimal.Decimal `json:"net_amount"`
	RejectionReason string          `json:"rejection_reason,omitempty"`
	CreatedAt       string          `json:"created_at"`
	UpdatedAt       string          `json:"updated_at"`
}

func newWithdrawalResponse(wd *model.Withdrawal) withdrawalResponse {
	return withdrawalResponse{
		ID:              wd.ID.String(),
		UserID:          wd.UserID.String(),
		Amount:          wd.Amount,
		WalletAddress:   wd.WalletAddress,
		Status:          string(wd.Status),
		ExitFee:         wd.ExitFee,
		NetworkFee:      wd.NetworkFee,
		NetAmount:       wd.NetAmount,
		RejectionReason: wd.RejectionReason,
		CreatedAt:       wd.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       wd.UpdatedAt.Format(time.RFC3339),
	}
}

func newWithdrawalList(items []model.Withdrawal) []withdrawalResponse {
	resp := make([]withdrawalResponse, 0, len(items))
	for i := range items {
		resp = append(resp, newWithdrawalResponse(&items[i]))
	}
	return resp
}

type transactionResponse struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Status      string          `json:"status"`
	ReferenceID string          `json:"reference_id,omitempty"`
	Description string          `json:"description,omitempty"`
	CreatedAt   string          `json:"created_at"`
}

type commissionResponse struct {
	ID               string          `json:"id"`
	ReferredUserID   string          `json:"referred_user_id"`
	InvestmentID     string          `json:"investment_id"`
	InvestmentAmount decimal.Decimal `json:"investment_amount"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`
	CreatedAt        string          `json:"created_at"`
}

type balanceResponse struct {
	Withdrawable     decimal.Decimal `json:"withdrawable"`
	ActiveInvestment decimal.Decimal `json:"active_investment"`
	Total            decimal.Decimal `json:"total"`
}

type bonusResponse struct {
	Amount     decimal.Decimal `json:"amount"`
	Status     string          `json:"status"`
	AwardedAt  string          `json:"awarded_at"`
	UnlockedAt string          `json:"unlocked_at,omitempty"`
}

type dashboardResponse struct {
	Balance           balanceResponse `json:"balance"`
	Tickets           int64           `json:"tickets"`
	Bonus             *bonusResponse  `json:"bonus,omitempty"`
	PendingWithdrawal bool            `json:"pending_withdrawal"`
}

func newDashboardResponse(d *model.Dashboard) dashboardResponse {
	resp := dashboardResponse{
		Balance: balanceResponse{
			Withdrawable:     d.Balance.Withdrawable,
			ActiveInvestment: d.Balance.ActiveInvestment,
			Total:            d.Balance.Total,
		},
		Tickets:           d.Tickets,
		PendingWithdrawal: d.PendingWithdrawal,
	}
	if d.Bonus != nil {
		b := &bonusResponse{
			Amount:    d.Bonus.Amount,
			Status:    string(d.Bonus.Status),
			AwardedAt: d.Bonus.AwardedAt.Format(time.RFC3339),
		}
		if d.Bonus.UnlockedAt != nil {
			b.UnlockedAt = d.Bonus.UnlockedAt.Format(time.RFC3339)
		}
		resp.Bonus = b
	}
	return resp
}

type statsResponse struct {
	Users                 int64                      `json:"users"`
	ActiveInvestmentUSD   decimal.Decimal            `json:"active_investment_usd"`
	PendingInvestments    int64                      `json:"pending_investments"`
	PendingWithdrawals    int64                      `json:"pending_withdrawals"`
	UndistributedFees     map[string]decimal.Decimal `json:"undistributed_fees"`
	LockedBonuses         int64                      `json:"locked_bonuses"`
	TotalLedgerBalanceUSD decimal.Decimal            `json:"total_ledger_balance_usd"`
}

func newStatsResponse(st *model.PlatformStats) statsResponse {
	fees := make(map[string]decimal.Decimal, len(st.UndistributedFees))
	for k, v := range st.UndistributedFees {
		fees[string(k)] = v
	}
	return statsResponse{
		Users:                 st.Users,
		ActiveInvestmentUSD:   st.ActiveInvestmentUSD,
		PendingInvestments:    st.PendingInvestments,
		PendingWithdrawals:    st.PendingWithdrawals,
		UndistributedFees:     fees,
		LockedBonuses:         st.LockedBonuses,
		TotalLedgerBalanceUSD: st.TotalLedgerBalanceUSD,
	}
}

type winnerResponse struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	Prize        decimal.Decimal `json:"prize"`
	Tickets      int64           `json:"tickets"`
	TotalTickets int64           `json:"total_tickets"`
	CreatedAt    string          `json:"created_at"`
}

func newWinnerResponse(w *model.LotteryWinner) winnerResponse {
	return winnerResponse{
		ID:           w.ID.String(),
		UserID:       w.UserID.String(),
		Prize:        w.Prize,
		Tickets:      w.Tickets,
		TotalTickets: w.TotalTickets,
		CreatedAt:    w.CreatedAt.Format(time.RFC3339),
	}
}

type settingsResponse struct {
	EntryFeePercent     decimal.Decimal       `json:"entry_fee_percent"`
	LotteryFeePercent   decimal.Decimal       `json:"lottery_fee_percent"`
	PlatformFeePercent  decimal.Decimal       `json:"platform_fee_percent"`
	ExitFeePercent      decimal.Decimal       `json:"exit_fee_percent"`
	NetworkFee          decimal.Decimal       `json:"network_fee"`
	MinWithdrawalAmount decimal.Decimal       `json:"min_withdrawal_amount"`
	WithdrawalDay       string                `json:"withdrawal_day"`
	Maintenance         bool                  `json:"maintenance"`
	BonusAmount         *decimal.Decimal      `json:"bonus_amount,omitempty"`
	BonusCap            *int64                `json:"bonus_cap,omitempty"`
	BonusUnlockTarget   *decimal.Decimal      `json:"bonus_unlock_target,omitempty"`
	WalletAddresses     map[model.Fund]string `json:"wallet_addresses"`
	UpdatedAt           string                `json:"updated_at,omitempty"`
}

func newSettingsResponse(st model.PlatformSettings) settingsResponse {
	resp := settingsResponse{
		EntryFeePercent:     st.EntryFeePercent,
		LotteryFeePercent:   st.LotteryFeePercent,
		PlatformFeePercent:  st.PlatformFeePercent,
		ExitFeePercent:      st.ExitFeePercent,
		NetworkFee:          st.NetworkFee,
		MinWithdrawalAmount: st.MinWithdrawalAmount,
		WithdrawalDay:       st.WithdrawalDay,
		Maintenance:         st.Maintenance,
		BonusAmount:         &st.BonusAmount,
		BonusCap:            &st.BonusCap,
		BonusUnlockTarget:   &st.BonusUnlockTarget,
		WalletAddresses:     st.WalletAddresses,
	}
	if !st.UpdatedAt.IsZero() {
		resp.UpdatedAt = st.UpdatedAt.Format(time.RFC3339)
	}
	return resp
}

func newPublicSettingsResponse(st service.PublicSettings) settingsResponse {
	return settingsResponse{
		EntryFeePercent:     st.EntryFeePercent,
		LotteryFeePercent:   st.LotteryFeePercent,
		PlatformFeePercent:  st.PlatformFeePercent,
		ExitFeePercent:      st.ExitFeePercent,
		NetworkFee:          st.NetworkFee,
		MinWithdrawalAmount: st.MinWithdrawalAmount,
		WithdrawalDay:       st.WithdrawalDay,
		Maintenance:         st.Maintenance,
		WalletAddresses:     st.WalletAddresses,
	}
}

package finance

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/fundvault/internal/model"
)

// InvestorShare описывает долю одного инвестора в пуле прибыли.
type InvestorShare struct {
	UserID uuid.UUID
	Net    decimal.Decimal
	Share  decimal.Decimal
}

// ProfitPlan содержит результат расчёта распределения прибыли.
type ProfitPlan struct {
	Pool   decimal.Decimal
	Base   decimal.Decimal
	Shares []InvestorShare
}

// Empty сообщает, что распределять нечего.
func (p ProfitPlan) Empty() bool {
	return len(p.Shares) == 0
}

// DistributeProfit строит план распределения прибыли по активным инвестициям.
//
// Пул считается заново от валовых сумм (amountUSD × entryFee%), база равна сумме чистых
// вложений по пользователям. Последняя доля забирает остаток округления, поэтому
// сумма долей всегда в точности равна пулу.
func DistributeProfit(investments []model.Investment, s model.PlatformSettings) ProfitPlan {
	pool := decimal.Zero
	base := decimal.Zero
	perUser := make(map[uuid.UUID]decimal.Decimal)

	for _, inv := range investments {
		if inv.Status != model.InvestmentStatusActive {
			continue
		}
		pool = pool.Add(percentOf(inv.AmountUSD, s.EntryFeePercent))
		base = base.Add(inv.NetAmountUSD)
		perUser[inv.UserID] = perUser[inv.UserID].Add(inv.NetAmountUSD)
	}

	plan := ProfitPlan{Pool: pool, Base: base}
	if !pool.IsPositive() || !base.IsPositive() {
		return plan
	}

	users := make([]uuid.UUID, 0, len(perUser))
	for id, net := range perUser {
		if net.IsPositive() {
			users = append(users, id)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].String() < users[j].String() })

	allocated := decimal.Zero
	for i, id := range users {
		net := perUser[id]
		share := net.Mul(pool).Div(base)
		if i == len(users)-1 {
			share = pool.Sub(allocated)
		}
		allocated = allocated.Add(share)
		plan.Shares = append(plan.Shares, InvestorShare{UserID: id, Net: net, Share: share})
	}

	return plan
}

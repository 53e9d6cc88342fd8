package finance

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/fundvault/internal/model"
)

// TicketPrice задаёт сумму активного чистого вложения в долларах за один билет.
var TicketPrice = decimal.NewFromInt(10)

// TicketCount возвращает число лотерейных билетов: floor(net / 10).
func TicketCount(activeNet decimal.Decimal) int64 {
	if !activeNet.IsPositive() {
		return 0
	}
	return activeNet.Div(TicketPrice).Floor().IntPart()
}

// TicketHolder описывает участника розыгрыша и количество его билетов.
type TicketHolder struct {
	UserID  uuid.UUID
	Tickets int64
}

// TicketHolders собирает владельцев билетов из активных инвестиций.
// Билеты считаются от суммарного чистого вложения пользователя, а не от каждой инвестиции отдельно.
func TicketHolders(investments []model.Investment) []TicketHolder {
	perUser := make(map[uuid.UUID]decimal.Decimal)
	for _, inv := range investments {
		if inv.Status != model.InvestmentStatusActive {
			continue
		}
		perUser[inv.UserID] = perUser[inv.UserID].Add(inv.NetAmountUSD)
	}

	holders := make([]TicketHolder, 0, len(perUser))
	for id, net := range perUser {
		if t := TicketCount(net); t > 0 {
			holders = append(holders, TicketHolder{UserID: id, Tickets: t})
		}
	}
	sort.Slice(holders, func(i, j int) bool { return holders[i].UserID.String() < holders[j].UserID.String() })

	return holders
}

// DrawWinner выбирает победителя взвешенным случайным выбором: каждый билет даёт один шанс.
// pick должна возвращать равномерное число из [0, n).
func DrawWinner(holders []TicketHolder, pick func(n int64) int64) (TicketHolder, int64, bool) {
	var total int64
	for _, h := range holders {
		total += h.Tickets
	}
	if total <= 0 {
		return TicketHolder{}, 0, false
	}

	r := pick(total)
	for _, h := range holders {
		if r < h.Tickets {
			return h, total, true
		}
		r -= h.Tickets
	}

	// pick вернула значение вне диапазона
	return holders[len(holders)-1], total, true
}

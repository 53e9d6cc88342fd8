package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mmeshcher/fundvault/internal/model"
)

// GetStats возвращает сводку платформы для администратора.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.Stats(r.Context())
	if err != nil {
		h.writeError(w, "get stats", err)
		return
	}
	h.writeJSON(w, http.StatusOK, "", newStatsResponse(st))
}

// ListUsers возвращает всех пользователей.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.writeError(w, "list users", err)
		return
	}

	resp := make([]userResponse, 0, len(users))
	for i := range users {
		resp = append(resp, newUserResponse(&users[i]))
	}
	h.writeJSON(w, http.StatusOK, "", resp)
}

// SetUserStatus блокирует или разблокирует пользователя.
func (h *Handler) SetUserStatus(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	userID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req userStatusRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.service.SetUserStatus(r.Context(), actorID, userID, model.UserStatus(req.Status)); err != nil {
		h.writeError(w, "set user status", err)
		return
	}
	h.writeJSON(w, http.StatusOK, "user "+req.Status, nil)
}

// ListInvestmentsByStatus возвращает инвестиции в статусе из параметра status, по умолчанию pending.
func (h *Handler) ListInvestmentsByStatus(w http.ResponseWriter, r *http.Request) {
	status := model.InvestmentStatusPending
	if s := r.URL.Query().Get("status"); s != "" {
		status = model.InvestmentStatus(s)
	}

	items, err := h.service.ListInvestmentsByStatus(r.Context(), status)
	if err != nil {
		h.writeError(w, "list investments by status", err)
		return
	}
	h.writeJSON(w, http.StatusOK, "", newInvestmentList(items))
}

// TransitionInvestment меняет статус инвестиции.
func (h *Handler) TransitionInvestment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req statusRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	res, err := h.service.TransitionInvestment(r.Context(), id, model.InvestmentStatus(req.Status), req.Reason)
	if err != nil {
		h.writeError(w, "transition investment", err)
		return
	}
	h.writeJSON(w, http.StatusOK, res.Message, map[string]bool{"changed": res.Changed})
}

// ListWithdrawalsByStatus возвращает заявки на вывод в статусе из параметра status, по умолчанию pending.
func (h *Handler) ListWithdrawalsByStatus(w http.ResponseWriter, r *http.Request) {
	status := model.WithdrawalStatusPending
	if s := r.URL.Query().Get("status"); s != "" {
		status = model.WithdrawalStatus(s)
	}

	items, err := h.service.ListWithdrawalsByStatus(r.Context(), status)
	if err != nil {
		h.writeError(w, "list withdrawals by status", err)
		return
	}
	h.writeJSON(w, http.StatusOK, "", newWithdrawalList(items))
}

// TransitionWithdrawal меняет статус заявки на вывод.
func (h *Handler) TransitionWithdrawal(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req statusRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	res, err := h.service.TransitionWithdrawal(r.Context(), id, model.WithdrawalStatus(req.Status), req.Reason)
	if err != nil {
		h.writeError(w, "transition withdrawal", err)
		return
	}
	h.writeJSON(w, http.StatusOK, res.Message, map[string]bool{"changed": res.Changed})
}

// GetSettings возвращает полные настройки платформы.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.GetSettings(r.Context())
	if err != nil {
		h.writeError(w, "get settings", err)
		return
	}
	h.writeJSON(w, http.StatusOK, "", newSettingsResponse(st))
}

// UpdateSettings сохраняет настройки платформы.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	st, err := h.service.UpdateSettings(r.Context(), req.toModel())
	if err != nil {
		h.writeError(w, "update settings", err)
		return
	}
	h.writeJSON(w, http.StatusOK, "settings updated", newSettingsResponse(st))
}

// DistributeProfits запускает распределение прибыли.
func (h *Handler) DistributeProfits(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.DistributeProfits(r.Context())
	if err != nil {
		h.writeError(w, "distribute profits", err)
		return
	}
	h.writeJSON(w, http.StatusOK, res.Message, map[string]any{
		"distributed": res.Distributed,
		"pool":        res.Pool,
		"base":        res.Base,
		"investors":   res.Investors,
	})
}

// UnlockBonuses запускает разблокировку бонусов.
func (h *Handler) UnlockBonuses(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.UnlockBonuses(r.Context())
	if err != nil {
		h.writeError(w, "unlock bonuses", err)
		return
	}
	h.writeJSON(w, http.StatusOK, res.Message, map[string]any{
		"unlocked": res.Unlocked,
		"total":    res.Total,
	})
}

// RunLotteryDraw проводит розыгрыш лотереи.
func (h *Handler) RunLotteryDraw(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.RunLotteryDraw(r.Context())
	if err != nil {
		h.writeError(w, "run lottery draw", err)
		return
	}

	data := map[string]any{"drawn": res.Drawn}
	if res.Winner != nil {
		data["winner"] = newWinnerResponse(res.Winner)
	}
	h.writeJSON(w, http.StatusOK, res.Message, data)
}

// ListLotteryWinners возвращает последних победителей лотереи.
func (h *Handler) ListLotteryWinners(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			h.writeFail(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	winners, err := h.service.ListLotteryWinners(r.Context(), limit)
	if err != nil {
		h.writeError(w, "list lottery winners", err)
		return
	}

	resp := make([]winnerResponse, 0, len(winners))
	for i := range winners {
		resp = append(resp, newWinnerResponse(&winners[i]))
	}
	h.writeJSON(w, http.StatusOK, "", resp)
}

// ClearTestData удаляет все данные, кроме учётной записи вызывающего администратора.
func (h *Handler) ClearTestData(w http.ResponseWriter, r *http.Request) {
	adminID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	if err := h.service.ClearTestData(r.Context(), adminID); err != nil {
		h.writeError(w, "clear test data", err)
		return
	}
	h.writeJSON(w, http.StatusOK, "test data cleared", nil)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeFail(w, http.StatusBadRequest, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}
